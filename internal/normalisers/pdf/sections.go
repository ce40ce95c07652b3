package pdf

import (
	"strings"

	"github.com/custodia-labs/postop-collector/internal/analysers/textutil"
)

// DefaultSection holds text that precedes the first recognised header.
const DefaultSection = "introduction"

var sectionHeaders = textutil.MustCompileAll(
	`(?i)(before\s+surgery|pre-?operative\s+instructions?)`,
	`(?i)(after\s+surgery|post-?operative\s+instructions?)`,
	`(?i)(medications?|prescriptions?)`,
	`(?i)(activity\s+restrictions?|physical\s+limitations?)`,
	`(?i)(diet|nutrition|eating)`,
	`(?i)(wound\s+care|incision\s+care)`,
	`(?i)(follow-?up|appointments?)`,
	`(?i)(warning\s+signs?|when\s+to\s+call|emergency)`,
	`(?i)(recovery\s+timeline|what\s+to\s+expect)`,
	`(?i)(pain\s+management|pain\s+control)`,
)

// ExtractSections splits text into sections keyed by the lowercased,
// underscore-joined header that opened them. A header line belongs to its
// own section. Blank lines are dropped.
func ExtractSections(text string) map[string]string {
	sections := make(map[string]string)
	current := DefaultSection
	var content []string

	flush := func() {
		if len(content) > 0 {
			sections[current] = strings.Join(content, "\n")
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if header := matchHeader(line); header != "" {
			flush()
			current = strings.ReplaceAll(strings.ToLower(header), " ", "_")
			content = []string{line}
			continue
		}
		if strings.TrimSpace(line) != "" {
			content = append(content, line)
		}
	}
	flush()

	return sections
}

func matchHeader(line string) string {
	for _, re := range sectionHeaders {
		if m := re.FindString(line); m != "" {
			return m
		}
	}
	return ""
}
