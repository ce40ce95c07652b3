// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - DocumentStore: Document persistence keyed by content hash
//   - RunStore: CollectionRun persistence and transactional document commits
//   - AnalysisStore: AnalysisResult persistence
//   - StatisticsStore: Read-only corpus aggregation
//   - Fetcher: Rate-limited PDF download
//   - Crawler: Same-site PDF link discovery
//   - TextExtractor: PDF text extraction over a strategy chain
//   - ContentAnalyser, ProcedureCategoriser, TimelineParser: Text analysis
//   - BlobStore: Raw PDF byte persistence
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - SearchProvider: Query-based discovery. Without it only direct URLs are collected.
//   - SearchCache: Search result caching. Without it every query hits the provider.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or analyser package
package driven
