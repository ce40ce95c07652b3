package content

import (
	"regexp"

	"github.com/custodia-labs/postop-collector/internal/analysers/textutil"
)

// Keyword group names used in ContentAnalysis.KeywordMatches.
const (
	GroupPrimary   = "primary"
	GroupSecondary = "secondary"
	GroupProcedure = "procedure_specific"
)

// Snippet extraction family: patterns plus the context window taken around each match.
type snippetFamily struct {
	patterns []*regexp.Regexp
	before   int
	after    int
	minLen   int
	limit    int
}

// Vocabulary holds the keyword lists and regex families the analyser scores with.
// Build it once with DefaultVocabulary and share it; it is never modified.
type Vocabulary struct {
	Primary   []string
	Secondary []string
	Procedure []string

	ProcedureHints []string
	SectionHeaders []string

	warnings    snippetFamily
	medications snippetFamily
	timeline    snippetFamily
}

// DefaultVocabulary returns the post-operative vocabulary.
func DefaultVocabulary() *Vocabulary {
	return &Vocabulary{
		Primary: []string{
			"post-operative", "postoperative", "post operative",
			"after surgery", "following surgery", "recovery",
			"discharge instructions", "home care", "aftercare",
			"post-surgical", "postsurgical", "rehabilitation",
		},
		Secondary: []string{
			"wound care", "incision", "sutures", "stitches", "staples",
			"dressing", "bandage", "pain management", "medication",
			"activity restrictions", "follow-up", "appointment",
			"symptoms", "complications", "emergency", "call doctor",
		},
		Procedure: []string{
			"knee replacement", "hip replacement", "cardiac surgery",
			"spine surgery", "shoulder surgery", "gallbladder",
			"appendectomy", "hernia repair", "cataract surgery",
			"arthroscopy", "laparoscopy", "bypass surgery",
		},
		ProcedureHints: []string{
			"knee replacement", "hip replacement", "total knee", "total hip",
			"cardiac surgery", "heart surgery", "bypass", "valve replacement",
			"spine surgery", "spinal fusion", "laminectomy", "discectomy",
			"shoulder surgery", "rotator cuff", "shoulder replacement",
			"gallbladder surgery", "cholecystectomy", "appendectomy",
			"hernia repair", "inguinal hernia", "umbilical hernia",
			"cataract surgery", "lens replacement", "eye surgery",
			"arthroscopy", "arthroscopic surgery", "laparoscopy",
			"hysterectomy", "prostatectomy", "mastectomy",
			"tonsillectomy", "adenoidectomy", "sinus surgery",
		},
		SectionHeaders: []string{
			"before surgery", "pre-operative",
			"after surgery", "post-operative",
			"medications", "prescriptions",
			"activity", "restrictions", "limitations",
			"diet", "nutrition", "eating",
			"wound care", "incision care",
			"follow-up", "appointments",
			"warning signs", "when to call",
			"recovery timeline", "what to expect",
			"pain management", "pain control",
			"discharge instructions", "going home",
			"physical therapy", "exercises",
		},
		warnings: snippetFamily{
			patterns: textutil.MustCompileAll(
				`(?i)(call|contact|notify).{0,20}(doctor|physician|surgeon|911|emergency)`,
				`(?i)(seek|get).{0,20}(medical|emergency).{0,20}(attention|care|help)`,
				`(?i)warning.{0,10}signs?`,
				`(?i)red.{0,10}flags?`,
				`(?i)(fever|temperature).{0,20}(above|over|greater|\d+)`,
				`(?i)(severe|worsening|increasing).{0,20}(pain|discomfort)`,
				`(?i)(redness|swelling|drainage|bleeding).{0,20}(incision|wound|surgical site)`,
				`(?i)(shortness.{0,10}breath|chest.{0,10}pain|difficulty.{0,10}breathing)`,
			),
			before: 50, after: 100, minLen: 21, limit: 10,
		},
		medications: snippetFamily{
			patterns: textutil.MustCompileAll(
				`(?i)take.{0,20}(tablet|pill|capsule|medication)`,
				`(?i)\d+.{0,10}(mg|mcg|ml).{0,20}(times|daily|twice|three)`,
				`(?i)(antibiotic|pain.{0,10}(medication|killer|reliever)|anti-inflammatory)`,
				`(?i)(prescription|over-the-counter|OTC)`,
				`(?i)(aspirin|ibuprofen|acetaminophen|tylenol|advil|motrin)`,
				`(?i)(opioid|narcotic|oxycodone|hydrocodone|morphine)`,
				`(?i)blood.{0,10}thinner`,
			),
			before: 30, after: 50, minLen: 16, limit: 15,
		},
		timeline: snippetFamily{
			patterns: textutil.MustCompileAll(
				`(?i)(day|week|month)\s+(\d+|one|two|three|four|five|six)`,
				`(?i)(\d+|one|two|three|four|five|six).{0,10}(days?|weeks?|months?)`,
				`(?i)(first|second|third).{0,10}(day|week|month)`,
				`(?i)(24|48|72).{0,10}hours?`,
				`(?i)follow-up.{0,20}(\d+|one|two|three).{0,10}(days?|weeks?)`,
				`(?i)(immediately|right away|as soon as)`,
			),
			before: 20, after: 40, minLen: 11, limit: 20,
		},
	}
}
