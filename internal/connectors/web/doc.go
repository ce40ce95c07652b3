// Package web discovers and downloads PDFs over HTTP.
//
// Every outbound request goes through a RateLimiter keyed by host.
// The Crawler walks same-host HTML pages collecting PDF links; the
// Fetcher downloads candidates and keeps only bodies that carry the PDF
// signature.
package web
