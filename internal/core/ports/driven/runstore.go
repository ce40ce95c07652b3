package driven

import (
	"context"

	"github.com/custodia-labs/postop-collector/internal/core/domain"
)

// RunStore persists collection runs and the documents they produce.
type RunStore interface {
	// CreateRun allocates a fresh run id, stores the run and sets run.ID.
	CreateRun(ctx context.Context, run *domain.CollectionRun) error

	// GetRun retrieves a run by id.
	// Returns domain.ErrNotFound if absent.
	GetRun(ctx context.Context, id string) (*domain.CollectionRun, error)

	// ListRuns returns the most recent runs first.
	ListRuns(ctx context.Context, limit int) ([]domain.CollectionRun, error)

	// CommitDocument upserts the document, links it to the run and inserts
	// its analysis results in a single transaction.
	CommitDocument(ctx context.Context, doc *domain.Document, link domain.RunDocument, results []domain.AnalysisResult) error

	// SealRun writes the run's aggregates, status and completion time atomically.
	// Returns domain.ErrInvalidTransition if the stored run is already terminal.
	SealRun(ctx context.Context, run *domain.CollectionRun) error

	// RunDocuments returns the run's document links in ordinal order.
	RunDocuments(ctx context.Context, runID string) ([]domain.RunDocument, error)
}
