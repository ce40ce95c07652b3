package driven

import (
	"context"

	"github.com/custodia-labs/postop-collector/internal/core/domain"
)

// AnalysisStore persists analysis results.
type AnalysisStore interface {
	// SaveAnalysis inserts a result and sets its ID. Results are never updated.
	SaveAnalysis(ctx context.Context, result *domain.AnalysisResult) error

	// ListAnalyses returns results for a document, newest first.
	// An empty analysisType returns every type.
	ListAnalyses(ctx context.Context, documentHash string, analysisType domain.AnalysisType) ([]domain.AnalysisResult, error)
}
