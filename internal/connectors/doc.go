// Package connectors holds the adapters that reach outside the process to
// discover and download PDFs: web for crawling and fetching, google for
// query-based URL discovery.
package connectors
