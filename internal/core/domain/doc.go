// Package domain defines the core business entities for the PostOp collector.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A fetched PDF identified by the SHA-256 of its bytes
//   - CollectionRun: One execution of the pipeline with its aggregates
//   - AnalysisResult: A typed analysis payload attached to a document
//   - TimelineEvent: A single dated recovery instruction
//   - SearchCacheEntry: Cached search provider results with an expiry
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
