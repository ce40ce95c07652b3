package driven

import (
	"context"

	"github.com/custodia-labs/postop-collector/internal/core/domain"
)

// DocumentStore persists documents keyed by the SHA-256 of their bytes.
type DocumentStore interface {
	// SaveDocument inserts a document or overwrites every analytical field of
	// the existing row with the same hash.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by hash.
	// Returns domain.ErrNotFound if absent.
	GetDocument(ctx context.Context, hash string) (*domain.Document, error)

	// DeleteDocument removes a document, its run links and analysis results.
	DeleteDocument(ctx context.Context, hash string) error

	// ListByProcedure returns documents of one category at or above minConfidence,
	// ordered by confidence descending.
	ListByProcedure(ctx context.Context, category domain.ProcedureCategory, minConfidence float64, limit int) ([]domain.Document, error)

	// SearchDocuments returns documents matching the query, ordered by confidence descending.
	SearchDocuments(ctx context.Context, query domain.DocumentQuery) ([]domain.Document, error)

	// KnownURLs returns every URL a stored document was fetched from.
	KnownURLs(ctx context.Context) ([]string, error)
}

// StatisticsStore aggregates the stored corpus.
type StatisticsStore interface {
	// Statistics computes totals and breakdowns. It has no side effects.
	Statistics(ctx context.Context) (*domain.Statistics, error)
}
