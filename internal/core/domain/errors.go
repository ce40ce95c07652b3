package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimited indicates an upstream rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// Run Errors.

	// ErrInvalidTransition indicates a run status change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid run status transition")

	// ErrRunNotActive indicates the run is not executing in this process.
	ErrRunNotActive = errors.New("run not active")

	// Fetch Errors.

	// ErrFileTooLarge indicates a response body exceeded the configured size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrSearchUnavailable indicates no search provider is configured.
	// Query-based discovery is disabled; direct URLs still work.
	ErrSearchUnavailable = errors.New("search provider unavailable")

	// Extraction Errors.

	// ErrStrategyUnavailable indicates an extraction strategy cannot run in this build
	// or environment (missing binary, missing build tag).
	ErrStrategyUnavailable = errors.New("extraction strategy unavailable")
)
