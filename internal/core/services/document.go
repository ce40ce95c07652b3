package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/postop-collector/internal/core/domain"
	"github.com/custodia-labs/postop-collector/internal/core/ports/driven"
	"github.com/custodia-labs/postop-collector/internal/core/ports/driving"
	"github.com/custodia-labs/postop-collector/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService is the read and delete API over collected documents.
type DocumentService struct {
	docStore      driven.DocumentStore
	analysisStore driven.AnalysisStore
	statsStore    driven.StatisticsStore
	blobs         driven.BlobStore
}

// NewDocumentService creates a new document service.
// The blob store is optional; without it Delete leaves PDFs on disk.
func NewDocumentService(
	docStore driven.DocumentStore,
	analysisStore driven.AnalysisStore,
	statsStore driven.StatisticsStore,
	blobs driven.BlobStore,
) *DocumentService {
	return &DocumentService{
		docStore:      docStore,
		analysisStore: analysisStore,
		statsStore:    statsStore,
		blobs:         blobs,
	}
}

// Get retrieves a document by hash.
func (s *DocumentService) Get(ctx context.Context, hash string) (*domain.Document, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, fmt.Errorf("%w: hash is required", domain.ErrInvalidInput)
	}
	return s.docStore.GetDocument(ctx, strings.ToLower(hash))
}

// ListByProcedure returns documents of one category, most confident first.
func (s *DocumentService) ListByProcedure(
	ctx context.Context, category domain.ProcedureCategory, minConfidence float64, limit int,
) ([]domain.Document, error) {
	if !category.IsValid() {
		return nil, fmt.Errorf("%w: unknown procedure category %q", domain.ErrInvalidInput, category)
	}
	if err := checkConfidence(minConfidence); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = domain.DefaultQueryLimit
	}
	return s.docStore.ListByProcedure(ctx, category, minConfidence, limit)
}

// Search filters documents by text, category, quality and confidence range.
func (s *DocumentService) Search(ctx context.Context, query domain.DocumentQuery) ([]domain.Document, error) {
	query.Text = strings.TrimSpace(query.Text)

	for _, p := range query.Procedures {
		if !p.IsValid() {
			return nil, fmt.Errorf("%w: unknown procedure category %q", domain.ErrInvalidInput, p)
		}
	}
	if query.Quality != "" && !query.Quality.IsValid() {
		return nil, fmt.Errorf("%w: unknown quality tier %q", domain.ErrInvalidInput, query.Quality)
	}
	if err := checkConfidence(query.MinConfidence); err != nil {
		return nil, err
	}
	if err := checkConfidence(query.MaxConfidence); err != nil {
		return nil, err
	}
	if query.MaxConfidence > 0 && query.MinConfidence > query.MaxConfidence {
		return nil, fmt.Errorf("%w: min confidence %.2f exceeds max %.2f",
			domain.ErrInvalidInput, query.MinConfidence, query.MaxConfidence)
	}
	if query.Offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", domain.ErrInvalidInput)
	}

	logger.Debug("Document search: text=%q procedures=%v quality=%q confidence=[%.2f, %.2f]",
		query.Text, query.Procedures, query.Quality, query.MinConfidence, query.MaxConfidence)
	return s.docStore.SearchDocuments(ctx, query)
}

// Analyses returns analysis results for a document.
func (s *DocumentService) Analyses(
	ctx context.Context, hash string, analysisType domain.AnalysisType,
) ([]domain.AnalysisResult, error) {
	doc, err := s.Get(ctx, hash)
	if err != nil {
		return nil, err
	}
	return s.analysisStore.ListAnalyses(ctx, doc.Hash, analysisType)
}

// Delete removes a document and its analyses, then its stored PDF.
// The row goes first so the store never points at a missing file.
func (s *DocumentService) Delete(ctx context.Context, hash string) error {
	doc, err := s.Get(ctx, hash)
	if err != nil {
		return err
	}

	if err := s.docStore.DeleteDocument(ctx, doc.Hash); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	if s.blobs != nil {
		if err := s.blobs.Remove(ctx, doc.FilePath); err != nil {
			logger.Warn("Document %s deleted but its PDF was not: %v", doc.Hash, err)
		}
	}

	logger.Info("Deleted document %s (%s)", doc.Hash, doc.Filename)
	return nil
}

// Statistics aggregates the stored corpus.
func (s *DocumentService) Statistics(ctx context.Context) (*domain.Statistics, error) {
	return s.statsStore.Statistics(ctx)
}

func checkConfidence(c float64) error {
	if c < 0 || c > 1 {
		return fmt.Errorf("%w: confidence %.2f outside [0,1]", domain.ErrInvalidInput, c)
	}
	return nil
}
