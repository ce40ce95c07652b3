package driven

import "github.com/custodia-labs/postop-collector/internal/core/domain"

// ContentAnalyser scores text for post-operative relevance.
type ContentAnalyser interface {
	// Analyse extracts relevance, quality and instruction snippets.
	Analyse(text string) domain.ContentAnalysis

	// ConfidenceScore blends an analysis into the final document confidence.
	ConfidenceScore(analysis domain.ContentAnalysis) float64
}

// ProcedureCategoriser assigns procedure categories.
type ProcedureCategoriser interface {
	// Categorise returns the best category and its confidence.
	Categorise(text string) (domain.ProcedureCategory, float64)

	// CategoriseMultiple returns up to n plausible categories, best first.
	CategoriseMultiple(text string, n int) []domain.ProcedureMatch

	// ExtractDetails pulls procedure name, body part, approach, implants and complexity.
	ExtractDetails(text string) domain.ProcedureDetails
}

// TimelineParser extracts dated recovery instructions.
type TimelineParser interface {
	// Parse returns events sorted by day.
	Parse(text string) []domain.TimelineEvent

	// Schedule groups events into recovery periods.
	Schedule(events []domain.TimelineEvent) []domain.RecoveryPeriod

	// Milestones tags events matching a milestone vocabulary, sorted by day.
	Milestones(events []domain.TimelineEvent) []domain.Milestone

	// Summary renders the schedule and milestones as plain text.
	Summary(events []domain.TimelineEvent) string
}
