package domain

import "time"

// DefaultAnalysisVersion is recorded on results produced by the current analysers.
const DefaultAnalysisVersion = "1.0.0"

// AnalysisType names the kind of payload an AnalysisResult carries.
type AnalysisType string

// Analysis result types.
const (
	AnalysisTimeline  AnalysisType = "timeline"
	AnalysisProcedure AnalysisType = "procedure"
	AnalysisContent   AnalysisType = "content"
)

// AnalysisResult is a typed analysis payload attached to a document.
type AnalysisResult struct {
	// ID is assigned by the store.
	ID int64

	// DocumentHash links to the owning Document.
	DocumentHash string

	// RunID is the run that produced the result, empty for ad-hoc analysis.
	RunID string

	// Type is the analysis kind.
	Type AnalysisType

	// Version identifies the analyser revision.
	Version string

	// Payload is the structured result.
	Payload map[string]any

	// Confidence is the analyser's confidence in [0,1].
	Confidence float64

	// ProcessingTime is how long the analysis took.
	ProcessingTime time.Duration

	// Error is set when analysis failed.
	Error string

	// CreatedAt is when the result was stored.
	CreatedAt time.Time
}

// TimelineCategory groups timeline events by what they instruct.
type TimelineCategory string

// Timeline categories, in classification precedence order.
const (
	TimelineActivity    TimelineCategory = "activity"
	TimelineMedication  TimelineCategory = "medication"
	TimelineAppointment TimelineCategory = "appointment"
	TimelineWoundCare   TimelineCategory = "wound_care"
	TimelineDiet        TimelineCategory = "diet"
	TimelineGeneral     TimelineCategory = "general"
)

// TimelineEvent is a single dated recovery instruction.
type TimelineEvent struct {
	// Reference is the phrase the day was derived from.
	Reference string `json:"reference"`

	// Day is the normalised day offset from surgery.
	Day int `json:"day"`

	// Description is the sentence the event came from.
	Description string `json:"description"`

	// Category classifies the instruction.
	Category TimelineCategory `json:"category"`

	// Confidence is the parser's confidence in [0.1,1].
	Confidence float64 `json:"confidence"`
}

// RecoveryPeriod groups events into a named recovery window.
type RecoveryPeriod struct {
	Name   string          `json:"name"`
	Events []TimelineEvent `json:"events"`
}

// Milestone tags a timeline event that marks a recognisable recovery step.
type Milestone struct {
	Type        string  `json:"type"`
	Day         int     `json:"day"`
	Reference   string  `json:"reference"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// TextStats summarises analysed text.
type TextStats struct {
	Characters        int     `json:"character_count"`
	Words             int     `json:"word_count"`
	Sentences         int     `json:"sentence_count"`
	AverageWordLength float64 `json:"average_word_length"`
	UniqueWords       int     `json:"unique_words"`
}

// ContentAnalysis is the result of scoring text for post-operative relevance.
type ContentAnalysis struct {
	IsRelevant       bool
	RelevanceScore   float64
	Quality          QualityTier
	WarningSigns     []string
	Medications      []string
	TimelineSnippets []string
	ProcedureHints   []string
	SectionsFound    []string
	KeywordMatches   map[string][]string
	Stats            TextStats
}

// Extraction is the output of the text extraction chain.
type Extraction struct {
	// Text is the raw extracted text.
	Text string

	// Method names the strategy that produced Text, or "none".
	Method string

	// PageCount is the number of pages reported by the strategy.
	PageCount int

	// Metadata holds document info entries (title, author, producer).
	Metadata map[string]string

	// HasImages reports whether embedded images were detected.
	HasImages bool

	// HasTables reports whether tabular content was detected.
	HasTables bool

	// Confidence is the extraction confidence in [0,1].
	Confidence float64
}

// ExtractionNone is the method recorded when every strategy came back empty.
const ExtractionNone = "none"
