package driving

import (
	"context"

	"github.com/custodia-labs/postop-collector/internal/core/domain"
)

// DocumentService is the read API over collected documents.
type DocumentService interface {
	// Get retrieves a document by hash.
	Get(ctx context.Context, hash string) (*domain.Document, error)

	// ListByProcedure returns documents of one category, most confident first.
	ListByProcedure(ctx context.Context, category domain.ProcedureCategory, minConfidence float64, limit int) ([]domain.Document, error)

	// Search filters documents by text, category, quality and confidence range.
	Search(ctx context.Context, query domain.DocumentQuery) ([]domain.Document, error)

	// Analyses returns analysis results for a document.
	// An empty analysisType returns every type.
	Analyses(ctx context.Context, hash string, analysisType domain.AnalysisType) ([]domain.AnalysisResult, error)

	// Delete removes a document, its stored PDF and its analysis results.
	Delete(ctx context.Context, hash string) error

	// Statistics aggregates the stored corpus.
	Statistics(ctx context.Context) (*domain.Statistics, error)
}
