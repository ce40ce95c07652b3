package procedure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDetails(t *testing.T) {
	c := New(nil)

	d := c.ExtractDetails("Total knee replacement of the left knee, arthroscopic assistance, titanium screw. Routine case.")

	assert.Equal(t, "Total Knee Replacement", d.Name)
	assert.Equal(t, "left knee", d.BodyPart)
	assert.Equal(t, "minimally_invasive", d.Approach)
	assert.Equal(t, []string{"screw"}, d.Implants)
	assert.Equal(t, "moderate", d.Complexity)
}

func TestExtractDetails_Empty(t *testing.T) {
	c := New(nil)

	d := c.ExtractDetails("")

	assert.Empty(t, d.Name)
	assert.Empty(t, d.BodyPart)
	assert.Empty(t, d.Approach)
	assert.Empty(t, d.Implants)
	assert.Equal(t, ComplexityStandard, d.Complexity)
}

func TestBodyPart_Laterality(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"right shoulder pain", "right shoulder"},
		{"bilateral hip surgery", "bilateral hips"},
		{"the kidney was removed", "kidney"},
		{"nothing anatomical", ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, bodyPart(tt.text))
		})
	}
}

func TestProcedureNames_Dedupes(t *testing.T) {
	names := procedureNames("appendectomy then another appendectomy and a rhinoplasty", namePatterns)

	assert.Equal(t, []string{"Appendectomy", "Rhinoplasty"}, names)
}

func TestComplexity_FirstLevelWins(t *testing.T) {
	assert.Equal(t, "complex", firstGroup("a simple but revision case", complexityLevels))
	assert.Equal(t, "simple", firstGroup("minor procedure", complexityLevels))
}
