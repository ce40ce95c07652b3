package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/postop-collector/internal/core/domain"
	"github.com/custodia-labs/postop-collector/internal/core/ports/driven"
	"github.com/custodia-labs/postop-collector/internal/logger"
)

// Ensure Basic implements the interface.
var _ driven.ExtractionStrategy = (*Basic)(nil)

var infoKeys = []string{"Title", "Author", "Subject", "Keywords", "Creator", "Producer"}

// Basic extracts text page by page with a pure Go parser.
type Basic struct{}

// NewBasic creates the basic strategy.
func NewBasic() *Basic {
	return &Basic{}
}

// Name returns the strategy name.
func (b *Basic) Name() string { return MethodBasic }

// Weight returns the method factor.
func (b *Basic) Weight() float64 { return 0.9 }

// Extract parses data and concatenates the plain text of every page.
func (b *Basic) Extract(ctx context.Context, data []byte) (ex *domain.Extraction, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			ex, err = nil, fmt.Errorf("parsing pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("creating pdf reader: %w", err)
	}

	total := reader.NumPage()
	result := &domain.Extraction{
		PageCount: total,
		Metadata:  documentInfo(reader),
	}

	texts := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			logger.Debug("skipping null pdf page %d", i)
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extracting page %d: %w", i, err)
		}
		texts = append(texts, text)

		if !result.HasImages && hasImage(page) {
			result.HasImages = true
		}
	}

	result.Text = strings.Join(texts, "\n\n")
	result.HasTables = looksTabular(result.Text)
	return result, nil
}

func documentInfo(r *pdf.Reader) map[string]string {
	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return nil
	}

	meta := make(map[string]string)
	for _, k := range infoKeys {
		if v := strings.TrimSpace(info.Key(k).Text()); v != "" {
			meta[k] = v
		}
	}
	return meta
}

func hasImage(page pdf.Page) bool {
	xobjects := page.Resources().Key("XObject")
	for _, name := range xobjects.Keys() {
		if xobjects.Key(name).Key("Subtype").Name() == "Image" {
			return true
		}
	}
	return false
}
