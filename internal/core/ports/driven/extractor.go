package driven

import (
	"context"

	"github.com/custodia-labs/postop-collector/internal/core/domain"
)

// TextExtractor turns PDF bytes into text.
type TextExtractor interface {
	// Extract runs the strategy chain. It never fails: when every strategy
	// comes back empty the result has zero confidence and method "none".
	Extract(ctx context.Context, data []byte) domain.Extraction

	// Clean normalises whitespace and strips boilerplate from extracted text.
	Clean(text string) string

	// Sections splits cleaned text by recognised instruction headers.
	Sections(text string) map[string]string
}

// ExtractionStrategy is one way of getting text out of a PDF.
type ExtractionStrategy interface {
	// Name identifies the strategy in results and logs.
	Name() string

	// Weight is the method factor used in confidence scoring.
	Weight() float64

	// Extract returns the text and facts this strategy found.
	Extract(ctx context.Context, data []byte) (*domain.Extraction, error)
}

// CommandRunner executes external commands.
// Abstracted for testing extraction strategies that shell out.
type CommandRunner interface {
	// Run executes a command and returns its standard output.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}
