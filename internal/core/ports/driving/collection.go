package driving

import (
	"context"

	"github.com/custodia-labs/postop-collector/internal/core/domain"
)

// CollectionService runs and inspects collection runs.
type CollectionService interface {
	// Run executes a collection run to completion and returns the sealed run.
	Run(ctx context.Context, req CollectionRequest) (*domain.CollectionRun, error)

	// Start launches a run in the background and returns its id.
	Start(ctx context.Context, req CollectionRequest) (string, error)

	// Cancel stops an active run. Returns domain.ErrRunNotActive if the run
	// is not executing in this process.
	Cancel(ctx context.Context, runID string) error

	// Status returns live progress for active runs, stored counters otherwise.
	Status(ctx context.Context, runID string) (*RunProgress, error)

	// GetRun retrieves a stored run.
	GetRun(ctx context.Context, runID string) (*domain.CollectionRun, error)

	// ListRuns returns the most recent runs.
	ListRuns(ctx context.Context, limit int) ([]domain.CollectionRun, error)

	// RunDocuments returns the documents a run collected, in collection order.
	RunDocuments(ctx context.Context, runID string) ([]domain.RunDocument, error)
}

// CollectionRequest describes what a run should collect.
type CollectionRequest struct {
	// Queries are passed to the search provider.
	Queries []string

	// URLs are collected directly when they point at a PDF and crawled otherwise.
	URLs []string

	// MaxPDFsPerSource overrides the configured per-site cap when positive.
	MaxPDFsPerSource int

	// Workers overrides the configured worker count when positive.
	Workers int
}

// IsEmpty reports whether the request names nothing to collect.
func (r CollectionRequest) IsEmpty() bool {
	return len(r.Queries) == 0 && len(r.URLs) == 0
}

// RunProgress is a point-in-time view of a run.
type RunProgress struct {
	// RunID identifies the run.
	RunID string

	// Running indicates the run is executing in this process.
	Running bool

	// Status is the run's lifecycle state.
	Status domain.RunStatus

	// Discovered is the count of PDF URLs attempted so far.
	Discovered int

	// Collected is the count of documents persisted so far.
	Collected int

	// Rejected is the count of filtered URLs.
	Rejected int

	// Failed is the count of per-URL errors.
	Failed int
}
