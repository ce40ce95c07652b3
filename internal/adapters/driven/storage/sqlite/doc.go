// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - DocumentStore: PDF documents keyed by content hash
//   - RunStore: Collection runs and the documents they produced
//   - AnalysisStore: Timeline and procedure analysis payloads
//   - SearchCache: Search provider results with a time-to-live
//   - StatisticsStore: Corpus aggregates
//   - SchedulerStore: Background task state for the serve command
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at <output>/collector.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode, and write transactions take the lock up front.
package sqlite
