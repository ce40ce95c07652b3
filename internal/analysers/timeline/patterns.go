package timeline

import (
	"regexp"

	"github.com/custodia-labs/postop-collector/internal/core/domain"
)

type ruleKind int

const (
	kindFixed ruleKind = iota
	kindNumber
	kindWord
	kindRange
	kindHours
)

// rule converts one time-reference pattern into a day offset.
type rule struct {
	re   *regexp.Regexp
	kind ruleKind
	// days is the fixed offset for kindFixed and the unit length otherwise.
	days int
	// once limits the rule to its first match per sentence.
	once bool
}

const (
	daysPerWeek  = 7
	daysPerMonth = 30
	hoursPerDay  = 24
)

var rules = []rule{
	{re: regexp.MustCompile(`(?i)immediately`), kind: kindFixed, days: 0, once: true},
	{re: regexp.MustCompile(`(?i)right\s+away`), kind: kindFixed, days: 0, once: true},
	{re: regexp.MustCompile(`(?i)as\s+soon\s+as`), kind: kindFixed, days: 0, once: true},
	{re: regexp.MustCompile(`(?i)first\s+24\s+hours?`), kind: kindFixed, days: 1, once: true},
	{re: regexp.MustCompile(`(?i)within\s+24\s+hours?`), kind: kindFixed, days: 1, once: true},

	{re: regexp.MustCompile(`(?i)day\s+(\d+)`), kind: kindNumber, days: 1},
	{re: regexp.MustCompile(`(?i)(\d+)\s+days?`), kind: kindNumber, days: 1},
	{re: regexp.MustCompile(`(?i)(first|second|third|fourth|fifth)\s+day`), kind: kindWord, days: 1},
	{re: regexp.MustCompile(`(?i)(\d+)-(\d+)\s+days?`), kind: kindRange, days: 1},

	{re: regexp.MustCompile(`(?i)week\s+(\d+)`), kind: kindNumber, days: daysPerWeek},
	{re: regexp.MustCompile(`(?i)(\d+)\s+weeks?`), kind: kindNumber, days: daysPerWeek},
	{re: regexp.MustCompile(`(?i)(first|second|third|fourth)\s+week`), kind: kindWord, days: daysPerWeek},
	{re: regexp.MustCompile(`(?i)(\d+)-(\d+)\s+weeks?`), kind: kindRange, days: daysPerWeek},

	{re: regexp.MustCompile(`(?i)month\s+(\d+)`), kind: kindNumber, days: daysPerMonth},
	{re: regexp.MustCompile(`(?i)(\d+)\s+months?`), kind: kindNumber, days: daysPerMonth},
	{re: regexp.MustCompile(`(?i)(first|second|third)\s+month`), kind: kindWord, days: daysPerMonth},
	{re: regexp.MustCompile(`(?i)(\d+)-(\d+)\s+months?`), kind: kindRange, days: daysPerMonth},

	{re: regexp.MustCompile(`(?i)\b(one|two|three|four|five|six|seven|eight|nine|ten|twelve)\s+days?`), kind: kindWord, days: 1},
	{re: regexp.MustCompile(`(?i)\b(one|two|three|four|five|six|seven|eight|nine|ten|twelve)\s+weeks?`), kind: kindWord, days: daysPerWeek},
	{re: regexp.MustCompile(`(?i)\b(one|two|three|four|five|six|seven|eight|nine|ten|twelve)\s+months?`), kind: kindWord, days: daysPerMonth},

	{re: regexp.MustCompile(`(?i)(\d+)\s+hours?`), kind: kindHours},
}

var wordNumbers = map[string]int{
	"first": 1, "second": 2, "third": 3,
	"fourth": 4, "fifth": 5, "sixth": 6,
	"one": 1, "two": 2, "three": 3,
	"four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9,
	"ten": 10, "twelve": 12,
}

// Keyword families in classification precedence order.
var categoryKeywords = []struct {
	category domain.TimelineCategory
	keywords []string
}{
	{domain.TimelineActivity, []string{
		"walk", "exercise", "lift", "drive", "work", "shower",
		"bath", "swim", "run", "bend", "stretch", "climb",
		"return to", "resume", "avoid", "restrict",
	}},
	{domain.TimelineMedication, []string{
		"medication", "medicine", "pill", "tablet", "dose",
		"antibiotic", "pain", "aspirin", "blood thinner",
		"prescription", "take", "stop", "continue",
	}},
	{domain.TimelineAppointment, []string{
		"appointment", "follow-up", "visit", "check-up",
		"see", "call", "schedule", "return", "office",
	}},
	{domain.TimelineWoundCare, []string{"wound", "incision", "dressing", "bandage"}},
	{domain.TimelineDiet, []string{"eat", "diet", "food", "drink"}},
}

var (
	modalWords       = regexp.MustCompile(`(?i)\b(must|should|will|needs?)\b`)
	conditionalWords = regexp.MustCompile(`(?i)\b(if|may|might|could)\b`)
	listMarkers      = []string{":", "-", "•", "1.", "2."}
	medicalTerms     = []string{"doctor", "surgeon", "nurse", "hospital", "clinic"}
)

// Recovery period names with their inclusive upper bound in days.
const (
	PeriodImmediate   = "immediate"
	PeriodFirstWeek   = "first_week"
	PeriodSecondWeek  = "second_week"
	PeriodFirstMonth  = "first_month"
	PeriodSecondMonth = "second_month"
	PeriodThirdMonth  = "third_month"
	PeriodLongTerm    = "long_term"
)

var periods = []struct {
	name    string
	maxDays int
}{
	{PeriodImmediate, 2},
	{PeriodFirstWeek, 7},
	{PeriodSecondWeek, 14},
	{PeriodFirstMonth, 30},
	{PeriodSecondMonth, 60},
	{PeriodThirdMonth, 90},
}

var milestoneVocabulary = []struct {
	kind     string
	keywords []string
}{
	{"return_to_work", []string{"return to work", "back to work", "resume work"}},
	{"driving", []string{"drive", "driving", "behind the wheel"}},
	{"full_activity", []string{"full activity", "normal activities", "all activities"}},
	{"exercise", []string{"exercise", "gym", "sports", "physical activity"}},
	{"follow_up", []string{"follow-up", "appointment", "see doctor"}},
	{"suture_removal", []string{"suture", "stitch", "staple", "removal"}},
}
