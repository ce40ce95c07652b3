//go:build ocr

package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/custodia-labs/postop-collector/internal/core/domain"
	"github.com/custodia-labs/postop-collector/internal/core/ports/driven"
)

// Ensure OCR implements the interface.
var _ driven.ExtractionStrategy = (*OCR)(nil)

const ocrDPI = 200

// OCR rasterises pages with pdftoppm and recognises them with tesseract.
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

// Extract renders every page to PNG and runs tesseract over each image.
func (o *OCR) Extract(ctx context.Context, data []byte) (*domain.Extraction, error) {
	dir, err := os.MkdirTemp("", "postop-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("creating ocr workdir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, fmt.Errorf("writing ocr input: %w", err)
	}

	prefix := filepath.Join(dir, "page")
	if _, err := o.runner.Run(ctx, "pdftoppm", "-r", strconv.Itoa(ocrDPI), "-png", in, prefix); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w", err)
	}

	// pdftoppm zero-pads page numbers, so lexical order is page order.
	images, err := filepath.Glob(prefix + "*.png")
	if err != nil {
		return nil, err
	}
	sort.Strings(images)

	client := gosseract.NewClient()
	defer client.Close()

	texts := make([]string, 0, len(images))
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := client.SetImage(img); err != nil {
			return nil, fmt.Errorf("loading %s: %w", filepath.Base(img), err)
		}
		text, err := client.Text()
		if err != nil {
			return nil, fmt.Errorf("recognising %s: %w", filepath.Base(img), err)
		}
		texts = append(texts, text)
	}

	return &domain.Extraction{
		Text:      strings.Join(texts, "\n\n"),
		PageCount: len(images),
		HasImages: true,
	}, nil
}
