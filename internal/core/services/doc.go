// Package services holds the collector's use cases: running a collection,
// querying stored documents, cached search, settings and the background
// scheduler. They depend only on the ports in internal/core/ports.
package services
