package content

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/postop-collector/internal/analysers/textutil"
	"github.com/custodia-labs/postop-collector/internal/core/domain"
	"github.com/custodia-labs/postop-collector/internal/core/ports/driven"
)

// Ensure Analyser implements the interface.
var _ driven.ContentAnalyser = (*Analyser)(nil)

// RelevanceThreshold is the score a document must exceed to be relevant.
const RelevanceThreshold = 0.5

var sentenceBreak = regexp.MustCompile(`[.!?]+`)

// Analyser scores text for post-operative relevance and pulls out
// warning signs, medication instructions and timeline snippets.
type Analyser struct {
	vocab *Vocabulary
}

// New creates an analyser over vocab. A nil vocab uses DefaultVocabulary.
func New(vocab *Vocabulary) *Analyser {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &Analyser{vocab: vocab}
}

// Analyse scores text. Blank input yields a zero result with low quality.
func (a *Analyser) Analyse(text string) domain.ContentAnalysis {
	if strings.TrimSpace(text) == "" {
		return domain.ContentAnalysis{
			Quality:        domain.QualityLow,
			KeywordMatches: map[string][]string{},
		}
	}

	lower := strings.ToLower(text)

	result := domain.ContentAnalysis{
		Stats:          textStats(text),
		KeywordMatches: a.keywordMatches(lower),
	}

	result.RelevanceScore = relevanceScore(result.KeywordMatches, result.Stats.Words)
	result.IsRelevant = result.RelevanceScore > RelevanceThreshold

	result.WarningSigns = snippets(text, a.vocab.warnings)
	result.Medications = snippets(text, a.vocab.medications)
	result.TimelineSnippets = snippets(text, a.vocab.timeline)
	result.ProcedureHints = titledMatches(lower, a.vocab.ProcedureHints)
	result.SectionsFound = titledMatches(lower, a.vocab.SectionHeaders)

	result.Quality = assessQuality(&result)
	return result
}

// ConfidenceScore blends relevance (40%), quality tier (30%) and
// information completeness (30%) into a single [0,1] value.
func (a *Analyser) ConfidenceScore(r domain.ContentAnalysis) float64 {
	var info float64
	if len(r.WarningSigns) > 0 {
		info += 0.25
	}
	if len(r.Medications) > 0 {
		info += 0.25
	}
	if len(r.TimelineSnippets) > 0 {
		info += 0.25
	}
	if len(r.SectionsFound) > 3 {
		info += 0.25
	}

	quality := r.Quality
	if quality == "" {
		quality = domain.QualityLow
	}

	score := r.RelevanceScore*0.4 + quality.Weight()*0.3 + info*0.3
	return clamp(score)
}

func (a *Analyser) keywordMatches(lower string) map[string][]string {
	groups := []struct {
		name     string
		keywords []string
	}{
		{GroupPrimary, a.vocab.Primary},
		{GroupSecondary, a.vocab.Secondary},
		{GroupProcedure, a.vocab.Procedure},
	}

	matches := make(map[string][]string, len(groups))
	for _, g := range groups {
		found := []string{}
		for _, kw := range g.keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				found = append(found, kw)
			}
		}
		matches[g.name] = found
	}
	return matches
}

func relevanceScore(matches map[string][]string, words int) float64 {
	var score float64

	score += min(0.4, float64(len(matches[GroupPrimary]))*0.1)
	score += min(0.3, float64(len(matches[GroupSecondary]))*0.05)
	score += min(0.2, float64(len(matches[GroupProcedure]))*0.1)

	switch {
	case words > 500:
		score += 0.1
	case words > 200:
		score += 0.05
	}

	return clamp(score)
}

// snippets collects whitespace-collapsed context windows around every match,
// drops short ones, removes duplicates and caps the list.
func snippets(text string, fam snippetFamily) []string {
	var found []string
	for _, re := range fam.patterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			ctx := textutil.CollapseSpace(textutil.Window(text, loc[0], loc[1], fam.before, fam.after))
			if utf8.RuneCountInString(ctx) >= fam.minLen {
				found = append(found, ctx)
			}
		}
	}

	found = textutil.Dedupe(found)
	if len(found) > fam.limit {
		found = found[:fam.limit]
	}
	return found
}

func titledMatches(lower string, terms []string) []string {
	var found []string
	for _, term := range terms {
		if strings.Contains(lower, term) {
			found = append(found, textutil.Title(term))
		}
	}
	return textutil.Dedupe(found)
}

func textStats(text string) domain.TextStats {
	words := strings.Fields(text)

	sentences := 0
	for _, s := range sentenceBreak.Split(text, -1) {
		if strings.TrimSpace(s) != "" {
			sentences++
		}
	}

	unique := make(map[string]struct{}, len(words))
	letters := 0
	for _, w := range words {
		letters += utf8.RuneCountInString(w)
		unique[strings.ToLower(w)] = struct{}{}
	}

	stats := domain.TextStats{
		Characters:  utf8.RuneCountInString(text),
		Words:       len(words),
		Sentences:   sentences,
		UniqueWords: len(unique),
	}
	if len(words) > 0 {
		stats.AverageWordLength = float64(letters) / float64(len(words))
	}
	return stats
}

// assessQuality awards points for relevance, information presence and
// length, then maps the total onto a tier.
func assessQuality(r *domain.ContentAnalysis) domain.QualityTier {
	points := 0

	switch {
	case r.RelevanceScore > 0.7:
		points += 3
	case r.RelevanceScore > 0.5:
		points += 2
	case r.RelevanceScore > 0.3:
		points++
	}

	if len(r.WarningSigns) > 0 {
		points++
	}
	if len(r.Medications) > 0 {
		points++
	}
	if len(r.TimelineSnippets) > 0 {
		points++
	}
	if len(r.SectionsFound) > 3 {
		points++
	}

	switch {
	case r.Stats.Words > 1000:
		points += 2
	case r.Stats.Words > 500:
		points++
	}

	switch {
	case points >= 7:
		return domain.QualityHigh
	case points >= 4:
		return domain.QualityMedium
	default:
		return domain.QualityLow
	}
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
