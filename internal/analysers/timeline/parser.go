package timeline

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/postop-collector/internal/analysers/textutil"
	"github.com/custodia-labs/postop-collector/internal/core/domain"
	"github.com/custodia-labs/postop-collector/internal/core/ports/driven"
)

// Ensure Parser implements the interface.
var _ driven.TimelineParser = (*Parser)(nil)

const (
	minSentenceLength = 10
	dedupePrefix      = 50
	baseConfidence    = 0.5
	// maxDay bounds offsets to ten years; larger numerals are not instructions.
	maxDay = 3650
)

var sentenceEnd = regexp.MustCompile(`[.!?]\s+`)

// Parser turns recovery instructions into day-offset events.
type Parser struct{}

// New creates a timeline parser.
func New() *Parser {
	return &Parser{}
}

// Parse extracts every time reference in text as an event. Events are
// sorted by day, keeping text order within a day, and duplicates sharing
// day, category and description prefix are dropped.
func (p *Parser) Parse(text string) []domain.TimelineEvent {
	var events []domain.TimelineEvent

	for _, sentence := range splitSentences(text) {
		category := categorise(sentence)
		confidence := sentenceConfidence(sentence)
		for _, ref := range references(sentence) {
			events = append(events, domain.TimelineEvent{
				Reference:   ref.text,
				Day:         ref.day,
				Description: sentence,
				Category:    category,
				Confidence:  confidence,
			})
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Day < events[j].Day
	})
	return dedupe(events)
}

func splitSentences(text string) []string {
	var out []string
	for _, s := range sentenceEnd.Split(text, -1) {
		for _, line := range strings.Split(s, "\n") {
			for _, part := range strings.Split(line, "•") {
				part = strings.TrimSpace(part)
				if utf8.RuneCountInString(part) > minSentenceLength {
					out = append(out, part)
				}
			}
		}
	}
	return out
}

type reference struct {
	text string
	day  int
}

func references(sentence string) []reference {
	var refs []reference
	for _, r := range rules {
		n := -1
		if r.once {
			n = 1
		}
		for _, m := range r.re.FindAllStringSubmatch(sentence, n) {
			if day, ok := r.resolve(m); ok {
				refs = append(refs, reference{text: m[0], day: day})
			}
		}
	}
	return refs
}

// resolve converts a submatch into a day offset.
func (r rule) resolve(m []string) (int, bool) {
	switch r.kind {
	case kindFixed:
		return r.days, true
	case kindNumber:
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		return scale(n, r.days)
	case kindWord:
		n, ok := wordNumbers[strings.ToLower(m[1])]
		if !ok {
			n = 1
		}
		return scale(n, r.days)
	case kindRange:
		lo, err1 := strconv.Atoi(m[1])
		hi, err2 := strconv.Atoi(m[2])
		if err1 != nil || err2 != nil || lo > maxDay || hi > maxDay {
			return 0, false
		}
		return scale((lo+hi)/2, r.days)
	case kindHours:
		h, err := strconv.Atoi(m[1])
		if err != nil || h < 0 || h/hoursPerDay > maxDay {
			return 0, false
		}
		return max(1, h/hoursPerDay), true
	default:
		return 0, false
	}
}

// scale multiplies n by unit days, rejecting offsets outside [0, maxDay].
func scale(n, unit int) (int, bool) {
	if n < 0 || unit < 0 || (unit > 0 && n > maxDay/unit) {
		return 0, false
	}
	return n * unit, true
}

func categorise(sentence string) domain.TimelineCategory {
	lower := strings.ToLower(sentence)
	for _, family := range categoryKeywords {
		for _, kw := range family.keywords {
			if strings.Contains(lower, kw) {
				return family.category
			}
		}
	}
	return domain.TimelineGeneral
}

func sentenceConfidence(sentence string) float64 {
	lower := strings.ToLower(sentence)
	confidence := baseConfidence

	if modalWords.MatchString(lower) {
		confidence += 0.2
	}
	if containsAny(sentence, listMarkers) {
		confidence += 0.1
	}
	if containsAny(lower, medicalTerms) {
		confidence += 0.1
	}
	if conditionalWords.MatchString(lower) {
		confidence -= 0.2
	}
	return max(0.1, min(1.0, confidence))
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func dedupe(events []domain.TimelineEvent) []domain.TimelineEvent {
	type key struct {
		day      int
		category domain.TimelineCategory
		prefix   string
	}

	seen := make(map[key]struct{}, len(events))
	out := make([]domain.TimelineEvent, 0, len(events))
	for _, e := range events {
		k := key{e.Day, e.Category, textutil.Prefix(e.Description, dedupePrefix)}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
	}
	return out
}
