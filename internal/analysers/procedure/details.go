package procedure

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/postop-collector/internal/analysers/textutil"
	"github.com/custodia-labs/postop-collector/internal/core/domain"
)

var namePatterns = textutil.MustCompileAll(
	`(?i)(total|partial)\s+(knee|hip|shoulder)\s+replacement`,
	`(?i)\w+ectomy`,
	`(?i)\w+oscopy`,
	`(?i)\w+plasty`,
	`(?i)(open|closed|percutaneous)\s+\w+\s+(repair|reduction)`,
	`(?i)(anterior|posterior|lateral)\s+\w+\s+(fusion|approach)`,
)

// ExtractDetails pulls structured procedure facts from text.
func (c *Categoriser) ExtractDetails(text string) domain.ProcedureDetails {
	lower := strings.ToLower(text)

	details := domain.ProcedureDetails{
		BodyPart:   bodyPart(lower),
		Approach:   firstGroup(lower, approaches),
		Implants:   implants(lower),
		Complexity: firstGroup(lower, complexityLevels),
	}
	if details.Complexity == "" {
		details.Complexity = ComplexityStandard
	}
	if names := procedureNames(lower, namePatterns); len(names) > 0 {
		details.Name = names[0]
	}
	return details
}

func procedureNames(lower string, patterns []*regexp.Regexp) []string {
	var names []string
	for _, re := range patterns {
		for _, m := range re.FindAllString(lower, -1) {
			m = strings.TrimSpace(m)
			if utf8.RuneCountInString(m) > 5 {
				names = append(names, textutil.Title(m))
			}
		}
	}
	return textutil.Dedupe(names)
}

func bodyPart(lower string) string {
	for _, part := range bodyParts {
		if !strings.Contains(lower, part) {
			continue
		}
		switch {
		case strings.Contains(lower, "left "+part):
			return "left " + part
		case strings.Contains(lower, "right "+part):
			return "right " + part
		case strings.Contains(lower, "bilateral "+part):
			return "bilateral " + part + "s"
		default:
			return part
		}
	}
	return ""
}

func firstGroup(lower string, groups []struct {
	name  string
	terms []string
}) string {
	for _, g := range groups {
		for _, t := range g.terms {
			if strings.Contains(lower, t) {
				return g.name
			}
		}
	}
	return ""
}

func implants(lower string) []string {
	var found []string
	for _, t := range implantTerms {
		if strings.Contains(lower, t) {
			found = append(found, t)
		}
	}
	return found
}
