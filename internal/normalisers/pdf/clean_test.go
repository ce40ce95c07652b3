package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "collapses whitespace within lines",
			input:    "Take   your\tmedication  ",
			expected: "Take your medication",
		},
		{
			name:     "strips page numbering",
			input:    "Page 1 of 3\nRest well\n12\n",
			expected: "Rest well",
		},
		{
			name:     "strips boilerplate and artefacts",
			input:    "Copyright 2023 Hospital\n®Rest well¬\nCONFIDENTIAL",
			expected: "Hospital\nRest well",
		},
		{
			name:     "drops symbol lines",
			input:    "*** --- ***\nKeep the wound dry",
			expected: "Keep the wound dry",
		},
		{
			name:     "removes control characters",
			input:    "Walk\x00 daily\r\n",
			expected: "Walk daily",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Clean(tt.input))
		})
	}
}

func TestExtractor_CleanDelegates(t *testing.T) {
	assert.Equal(t, "a b", New().Clean("a   b"))
}

func TestMostlySymbols(t *testing.T) {
	assert.True(t, mostlySymbols("----"))
	assert.True(t, mostlySymbols("a--"))
	assert.False(t, mostlySymbols("a-b"))
	assert.False(t, mostlySymbols(""))
}

func TestExtractSections(t *testing.T) {
	text := "Intro line\n\nAfter Surgery\nRest.\nMedications\nTake pills."

	sections := ExtractSections(text)

	assert.Equal(t, map[string]string{
		DefaultSection:  "Intro line",
		"after_surgery": "After Surgery\nRest.",
		"medications":   "Medications\nTake pills.",
	}, sections)
}

func TestExtractSections_NoHeaders(t *testing.T) {
	assert.Equal(t, map[string]string{DefaultSection: "one\ntwo"}, ExtractSections("one\ntwo"))
	assert.Empty(t, ExtractSections(""))
}
