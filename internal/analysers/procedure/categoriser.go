package procedure

import (
	"sort"
	"strings"

	"github.com/custodia-labs/postop-collector/internal/core/domain"
	"github.com/custodia-labs/postop-collector/internal/core/ports/driven"
)

// Ensure Categoriser implements the interface.
var _ driven.ProcedureCategoriser = (*Categoriser)(nil)

const (
	// MinConfidence is the floor below which Categorise reports unknown.
	MinConfidence = 0.3

	// MinMultipleConfidence is the floor for CategoriseMultiple entries.
	MinMultipleConfidence = 0.2

	// DefaultTopN is used by CategoriseMultiple when n is not positive.
	DefaultTopN = 3

	scoreScale   = 10.0
	maxRepeats   = 3
	repeatBonus  = 0.5
	phraseScore  = 2.0
	wordScore    = 1.0
	specialScore = 3.0
)

// Categoriser assigns procedure categories by weighted keyword scoring.
type Categoriser struct {
	profiles []Profile
}

// New creates a categoriser. A nil profile list uses DefaultProfiles.
func New(profiles []Profile) *Categoriser {
	if profiles == nil {
		profiles = DefaultProfiles()
	}
	return &Categoriser{profiles: profiles}
}

type scored struct {
	category domain.ProcedureCategory
	score    float64
}

// Categorise returns the best-scoring category. When the best confidence
// is under MinConfidence the category is unknown but the raw confidence
// is still returned.
func (c *Categoriser) Categorise(text string) (domain.ProcedureCategory, float64) {
	if text == "" {
		return domain.ProcedureUnknown, 0
	}

	ranked := c.rank(strings.ToLower(text))
	if len(ranked) == 0 {
		return domain.ProcedureUnknown, 0
	}

	best := ranked[0]
	confidence := min(1.0, best.score/scoreScale)
	if confidence < MinConfidence {
		return domain.ProcedureUnknown, confidence
	}
	return best.category, confidence
}

// CategoriseMultiple returns up to n categories at or above
// MinMultipleConfidence, best first. It never returns an empty slice.
func (c *Categoriser) CategoriseMultiple(text string, n int) []domain.ProcedureMatch {
	unknown := []domain.ProcedureMatch{{Category: domain.ProcedureUnknown, Confidence: 0}}
	if text == "" {
		return unknown
	}
	if n <= 0 {
		n = DefaultTopN
	}

	ranked := c.rank(strings.ToLower(text))
	if len(ranked) > n {
		ranked = ranked[:n]
	}

	var matches []domain.ProcedureMatch
	for _, r := range ranked {
		confidence := min(1.0, r.score/scoreScale)
		if confidence >= MinMultipleConfidence {
			matches = append(matches, domain.ProcedureMatch{Category: r.category, Confidence: confidence})
		}
	}
	if len(matches) == 0 {
		return unknown
	}
	return matches
}

// rank scores every profile against lower and returns the non-zero
// scores, highest first. Equal scores order by category name.
func (c *Categoriser) rank(lower string) []scored {
	var out []scored
	for _, p := range c.profiles {
		if s := score(lower, p); s > 0 {
			out = append(out, scored{category: p.Category, score: s})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].category < out[j].category
	})
	return out
}

func score(lower string, p Profile) float64 {
	var total float64
	for _, kw := range p.Keywords {
		if !strings.Contains(lower, kw) {
			continue
		}
		if strings.Contains(kw, " ") {
			total += phraseScore * p.Weight
		} else {
			total += wordScore * p.Weight
		}
		if n := strings.Count(lower, kw); n > 1 {
			total += float64(min(n-1, maxRepeats)) * repeatBonus * p.Weight
		}
	}
	for _, sp := range p.Specialties {
		if strings.Contains(lower, sp) {
			total += specialScore * p.Weight
		}
	}
	return total
}
