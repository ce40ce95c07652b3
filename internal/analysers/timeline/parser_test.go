package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/postop-collector/internal/core/domain"
	"github.com/custodia-labs/postop-collector/internal/core/ports/driven"
)

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.TimelineParser = (*Parser)(nil)
}

func days(events []domain.TimelineEvent) []int {
	out := make([]int, len(events))
	for i, e := range events {
		out[i] = e.Day
	}
	return out
}

func TestParse_DayAndWeek(t *testing.T) {
	p := New()

	events := p.Parse("Day 1: rest. Week 2: start therapy.")

	require.Len(t, events, 2)
	assert.Equal(t, []int{1, 14}, days(events))
	assert.Equal(t, "Day 1", events[0].Reference)
	assert.Equal(t, "Week 2", events[1].Reference)
	assert.Equal(t, domain.TimelineGeneral, events[0].Category)
	assert.InDelta(t, 0.6, events[0].Confidence, 1e-9)
}

func TestParse_References(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		days     []int
		category domain.TimelineCategory
	}{
		{"immediate", "Begin walking immediately after you wake up.", []int{0}, domain.TimelineActivity},
		{"hours to days", "Keep the dressing dry for 48 hours.", []int{2}, domain.TimelineWoundCare},
		{"short hours floor at one day", "Keep the dressing dry for 6 hours.", []int{1}, domain.TimelineWoundCare},
		{"week range", "Avoid lifting for 4-6 weeks.", []int{35, 42}, domain.TimelineActivity},
		{"cardinal word", "You should see your surgeon in two weeks.", []int{14}, domain.TimelineAppointment},
		{"ordinal word", "Shower after the second day.", []int{2}, domain.TimelineActivity},
		{"months", "Full recovery takes about 3 months.", []int{90}, domain.TimelineMedication},
	}

	p := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := p.Parse(tt.text)
			assert.Equal(t, tt.days, days(events))
			for _, e := range events {
				assert.Equal(t, tt.category, e.Category)
			}
		})
	}
}

func TestParse_ConfidenceHeuristic(t *testing.T) {
	p := New()

	events := p.Parse("You should see your surgeon in two weeks.")
	require.Len(t, events, 1)
	assert.InDelta(t, 0.8, events[0].Confidence, 1e-9)

	events = p.Parse("If you feel pain call the clinic within 24 hours.")
	require.Len(t, events, 1)
	assert.Equal(t, "within 24 hours", events[0].Reference)
	assert.Equal(t, 1, events[0].Day)
	assert.Equal(t, domain.TimelineMedication, events[0].Category)
	assert.InDelta(t, 0.4, events[0].Confidence, 1e-9)
}

func TestParse_RemovesDuplicates(t *testing.T) {
	p := New()

	events := p.Parse("Walk gently on day 3.\nWalk gently on day 3.\n")

	require.Len(t, events, 1)
	assert.Equal(t, 3, events[0].Day)
}

func TestParse_SkipsShortFragments(t *testing.T) {
	p := New()

	assert.Empty(t, p.Parse("Day 1.\nDay 2."))
	assert.Empty(t, p.Parse(""))
}

func TestParse_SortedAndBounded(t *testing.T) {
	p := New()
	text := "Return to work in 6 weeks.\n• Drive after 10 days\n• Walk on day 1\nSee your doctor in 2 weeks."

	events := p.Parse(text)

	require.NotEmpty(t, events)
	for i := 1; i < len(events); i++ {
		assert.LessOrEqual(t, events[i-1].Day, events[i].Day)
	}
	for _, e := range events {
		assert.GreaterOrEqual(t, e.Confidence, 0.1)
		assert.LessOrEqual(t, e.Confidence, 1.0)
	}
	assert.Equal(t, []int{1, 10, 14, 42}, days(events))
}

func TestParse_RejectsOversizedNumerals(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"months overflow", "Avoid lifting for 400000000000000000 months after surgery."},
		{"beyond int range", "Avoid lifting for 99999999999999999999999 weeks after surgery."},
		{"range overflow", "Avoid lifting for 400000000000000000-400000000000000001 weeks."},
		{"hours overflow", "Keep the dressing dry for 900000000000000000 hours."},
		{"over ten years", "Avoid contact sport for 200 months after surgery."},
	}

	p := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, e := range p.Parse(tt.text) {
				assert.GreaterOrEqual(t, e.Day, 0)
				assert.LessOrEqual(t, e.Day, maxDay)
			}
		})
	}

	events := p.Parse("Avoid contact sport for 120 months after surgery.")
	require.Len(t, events, 1)
	assert.Equal(t, 3600, events[0].Day)
}
