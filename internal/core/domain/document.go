package domain

import (
	"time"
	"unicode/utf8"
)

// Storage bounds applied when a document is persisted.
const (
	// MaxStoredTextLength caps the stored text body in characters.
	MaxStoredTextLength = 5000

	// MaxStoredSnippets caps each persisted snippet list.
	MaxStoredSnippets = 10

	// DefaultLanguage is recorded for every document; detection is not performed.
	DefaultLanguage = "en"
)

// Document represents a fetched PDF and its analytical findings.
// Identity is the SHA-256 hex digest of the raw bytes.
type Document struct {
	// Hash is the SHA-256 hex digest of the raw PDF bytes.
	Hash string

	// URL is the location the bytes were fetched from.
	URL string

	// Filename is the name the PDF was stored under.
	Filename string

	// FilePath is the persisted location of the PDF bytes.
	FilePath string

	// Size is the byte length of the PDF.
	Size int64

	// SourceDomain is the host component of URL.
	SourceDomain string

	// FetchedAt is when the bytes were downloaded.
	FetchedAt time.Time

	// Text is the cleaned extracted text, truncated to MaxStoredTextLength.
	Text string

	// Confidence is the final weighted confidence in [0,1].
	Confidence float64

	// Procedure is the assigned procedure category.
	Procedure ProcedureCategory

	// Quality is the content quality tier.
	Quality QualityTier

	// TimelineSnippets holds the first timeline event descriptions.
	TimelineSnippets []string

	// MedicationSnippets holds medication instruction snippets.
	MedicationSnippets []string

	// WarningSigns holds warning-sign snippets.
	WarningSigns []string

	// Language is the document language code.
	Language string

	// PageCount is the number of pages reported by extraction.
	PageCount int

	// HasImages reports whether embedded images were detected.
	HasImages bool

	// HasTables reports whether tabular content was detected.
	HasTables bool

	// CreatedAt is when the document was first stored.
	CreatedAt time.Time

	// UpdatedAt is when the document was last re-ingested.
	UpdatedAt time.Time
}

// Bound applies the storage caps to the text and snippet lists in place.
func (d *Document) Bound() {
	d.Text = TruncateRunes(d.Text, MaxStoredTextLength)
	d.TimelineSnippets = capStrings(d.TimelineSnippets, MaxStoredSnippets)
	d.MedicationSnippets = capStrings(d.MedicationSnippets, MaxStoredSnippets)
	d.WarningSigns = capStrings(d.WarningSigns, MaxStoredSnippets)
}

// TruncateRunes shortens s to at most n characters without splitting a rune.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func capStrings(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// DocumentQuery filters documents for listing and search.
type DocumentQuery struct {
	// Text matches documents whose stored text contains the value (case-insensitive).
	Text string

	// Procedures restricts results to these categories. Empty means any.
	Procedures []ProcedureCategory

	// Quality restricts results to one tier. Empty means any.
	Quality QualityTier

	// MinConfidence is the inclusive lower confidence bound.
	MinConfidence float64

	// MaxConfidence is the inclusive upper bound. Zero means no upper bound.
	MaxConfidence float64

	// Limit is the maximum number of results. Zero uses DefaultQueryLimit.
	Limit int

	// Offset is the number of results to skip.
	Offset int
}

// DefaultQueryLimit is used when a query does not specify a limit.
const DefaultQueryLimit = 100

// EffectiveLimit returns Limit or DefaultQueryLimit when unset.
func (q DocumentQuery) EffectiveLimit() int {
	if q.Limit <= 0 {
		return DefaultQueryLimit
	}
	return q.Limit
}
