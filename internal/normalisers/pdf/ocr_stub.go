//go:build !ocr

package pdf

import (
	"context"
	"fmt"

	"github.com/custodia-labs/postop-collector/internal/core/domain"
	"github.com/custodia-labs/postop-collector/internal/core/ports/driven"
)

// Ensure OCR implements the interface.
var _ driven.ExtractionStrategy = (*OCR)(nil)

// OCR is unavailable in builds without the "ocr" tag.
type OCR struct {
	runner driven.CommandRunner
}

// NewOCR creates the OCR strategy.
func NewOCR(runner driven.CommandRunner) *OCR {
	return &OCR{runner: runner}
}

// Name returns the strategy name.
func (o *OCR) Name() string { return MethodOCR }

// Weight returns the method factor.
func (o *OCR) Weight() float64 { return 0.6 }

// Extract always fails; rebuild with -tags ocr to enable tesseract.
func (o *OCR) Extract(_ context.Context, _ []byte) (*domain.Extraction, error) {
	return nil, fmt.Errorf("ocr: %w (build with -tags ocr)", domain.ErrStrategyUnavailable)
}
