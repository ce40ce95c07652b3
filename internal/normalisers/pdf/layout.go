package pdf

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"code.sajari.com/docconv/v2"

	"github.com/custodia-labs/postop-collector/internal/core/domain"
	"github.com/custodia-labs/postop-collector/internal/core/ports/driven"
)

// Ensure Layout implements the interface.
var _ driven.ExtractionStrategy = (*Layout)(nil)

const pdfMIMEType = "application/pdf"

// Layout extracts text with poppler through docconv.
type Layout struct {
	available func() error
}

// NewLayout creates the layout strategy.
func NewLayout() *Layout {
	return &Layout{available: CheckAvailable}
}

// Name returns the strategy name.
func (l *Layout) Name() string { return MethodLayout }

// Weight returns the method factor.
func (l *Layout) Weight() float64 { return 1.0 }

// Extract converts data with pdftotext and pdfinfo.
func (l *Layout) Extract(_ context.Context, data []byte) (*domain.Extraction, error) {
	if err := l.available(); err != nil {
		return nil, err
	}

	res, err := docconv.Convert(bytes.NewReader(data), pdfMIMEType, false)
	if err != nil {
		return nil, fmt.Errorf("docconv: %w", err)
	}

	pages, _ := strconv.Atoi(strings.TrimSpace(res.Meta["Pages"]))

	return &domain.Extraction{
		Text:      res.Body,
		PageCount: pages,
		Metadata:  pdfinfoFields(res.Meta),
		HasTables: looksTabular(res.Body),
	}, nil
}

// pdfinfoFields keeps the document information fields of pdfinfo output.
// Fields such as Pages and PDF version are present for every file and are
// not metadata the author supplied.
func pdfinfoFields(raw map[string]string) map[string]string {
	meta := make(map[string]string)
	for _, k := range infoKeys {
		if v := strings.TrimSpace(raw[k]); v != "" {
			meta[k] = v
		}
	}
	return meta
}

var columnGap = regexp.MustCompile(`\S(\t| {2,})\S`)

// minTableRows is the run of column-aligned lines treated as a table.
const minTableRows = 3

// looksTabular reports whether text contains a run of lines that each
// have at least two column gaps.
func looksTabular(text string) bool {
	run := 0
	for _, line := range strings.Split(text, "\n") {
		if len(columnGap.FindAllStringIndex(line, -1)) >= 2 {
			run++
			if run >= minTableRows {
				return true
			}
			continue
		}
		run = 0
	}
	return false
}
