package pdf

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	pageOfPattern  = regexp.MustCompile(`(?i)page\s+\d+\s+of\s+\d+`)
	pageNumberLine = regexp.MustCompile(`^\d+$`)
	boilerplate    = regexp.MustCompile(`(?i)(confidential|proprietary|copyright.*\d{4})`)

	artefacts = strings.NewReplacer("¬", "", "™", "", "®", "", "©", "")
)

// Clean normalises extracted text: control characters and common
// artefacts are removed, page numbering and header/footer boilerplate
// stripped, whitespace collapsed within lines, and blank or
// symbol-dominated lines dropped. Line breaks are preserved.
func Clean(text string) string {
	text = strings.Map(func(r rune) rune {
		if r != '\n' && r != '\t' && unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)
	text = artefacts.Replace(text)
	text = pageOfPattern.ReplaceAllString(text, "")
	text = boilerplate.ReplaceAllString(text, "")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" || pageNumberLine.MatchString(line) || mostlySymbols(line) {
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// mostlySymbols reports whether at least half the runes in line are
// neither letters, digits nor spaces.
func mostlySymbols(line string) bool {
	total, symbols := 0, 0
	for _, r := range line {
		total++
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			symbols++
		}
	}
	return total > 0 && symbols*2 >= total
}
