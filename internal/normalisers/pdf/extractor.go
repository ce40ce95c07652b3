package pdf

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/postop-collector/internal/core/domain"
	"github.com/custodia-labs/postop-collector/internal/core/ports/driven"
	"github.com/custodia-labs/postop-collector/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// Strategy names recorded in domain.Extraction.Method.
const (
	MethodLayout = "layout"
	MethodBasic  = "basic"
	MethodOCR    = "ocr"
)

const (
	maxSanePages = 50
	bonusFactor  = 0.1
)

// Extractor runs extraction strategies in priority order.
type Extractor struct {
	strategies []driven.ExtractionStrategy
}

// New creates an extractor over the given strategies, tried in order.
func New(strategies ...driven.ExtractionStrategy) *Extractor {
	return &Extractor{strategies: strategies}
}

// NewDefault creates the standard chain: layout, basic and, when enabled, OCR.
func NewDefault(enableOCR bool) *Extractor {
	strategies := []driven.ExtractionStrategy{NewLayout(), NewBasic()}
	if enableOCR {
		strategies = append(strategies, NewOCR(NewExecRunner()))
	}
	return New(strategies...)
}

// Strategies returns the names of the configured strategies in order.
func (e *Extractor) Strategies() []string {
	names := make([]string, len(e.strategies))
	for i, s := range e.strategies {
		names[i] = s.Name()
	}
	return names
}

// Extract returns the output of the first strategy yielding non-empty
// text. Strategy errors are logged and the next strategy is tried. When
// nothing yields text the result is empty with method "none".
func (e *Extractor) Extract(ctx context.Context, data []byte) domain.Extraction {
	for _, s := range e.strategies {
		if ctx.Err() != nil {
			break
		}

		res, err := s.Extract(ctx, data)
		if err != nil {
			logger.Debug("%s extraction failed: %v", s.Name(), err)
			continue
		}
		if res == nil || strings.TrimSpace(res.Text) == "" {
			logger.Debug("%s extraction produced no text", s.Name())
			continue
		}

		out := *res
		out.Method = s.Name()
		out.Confidence = confidence(&out, s.Weight())
		return out
	}

	return domain.Extraction{Method: domain.ExtractionNone}
}

// Clean normalises extracted text. See Clean.
func (e *Extractor) Clean(text string) string {
	return Clean(text)
}

// Sections splits text by instruction headers. See ExtractSections.
func (e *Extractor) Sections(text string) map[string]string {
	return ExtractSections(text)
}

// confidence averages the length bucket, the method weight and a small
// bonus for each of metadata, tables and a sane page count.
func confidence(ex *domain.Extraction, weight float64) float64 {
	n := utf8.RuneCountInString(ex.Text)

	var length float64
	switch {
	case n > 1000:
		length = 1.0
	case n > 500:
		length = 0.8
	case n > 100:
		length = 0.6
	case n > 0:
		length = 0.3
	default:
		return 0
	}

	factors := []float64{length, weight}
	if len(ex.Metadata) > 0 {
		factors = append(factors, bonusFactor)
	}
	if ex.HasTables {
		factors = append(factors, bonusFactor)
	}
	if ex.PageCount >= 1 && ex.PageCount <= maxSanePages {
		factors = append(factors, bonusFactor)
	}

	var sum float64
	for _, f := range factors {
		sum += f
	}
	return max(0, min(1, sum/float64(len(factors))))
}
