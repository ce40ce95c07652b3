package timeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/postop-collector/internal/analysers/textutil"
	"github.com/custodia-labs/postop-collector/internal/core/domain"
)

const (
	summaryEventsPerPeriod = 3
	summaryMilestones      = 5
	summaryDescription     = 80

	// NoTimelineSummary is returned by Summary when there are no events.
	NoTimelineSummary = "No timeline information found."
)

// Schedule buckets events into recovery periods. Empty periods are omitted.
func (p *Parser) Schedule(events []domain.TimelineEvent) []domain.RecoveryPeriod {
	buckets := make(map[string][]domain.TimelineEvent)
	for _, e := range events {
		name := periodFor(e.Day)
		buckets[name] = append(buckets[name], e)
	}

	var schedule []domain.RecoveryPeriod
	for _, name := range periodNames() {
		if evs := buckets[name]; len(evs) > 0 {
			schedule = append(schedule, domain.RecoveryPeriod{Name: name, Events: evs})
		}
	}
	return schedule
}

func periodFor(day int) string {
	for _, p := range periods {
		if day <= p.maxDays {
			return p.name
		}
	}
	return PeriodLongTerm
}

func periodNames() []string {
	names := make([]string, 0, len(periods)+1)
	for _, p := range periods {
		names = append(names, p.name)
	}
	return append(names, PeriodLongTerm)
}

// Milestones tags each event with the first milestone type its
// description matches. Untagged events are skipped.
func (p *Parser) Milestones(events []domain.TimelineEvent) []domain.Milestone {
	var milestones []domain.Milestone
	for _, e := range events {
		lower := strings.ToLower(e.Description)
		for _, m := range milestoneVocabulary {
			if containsAny(lower, m.keywords) {
				milestones = append(milestones, domain.Milestone{
					Type:        m.kind,
					Day:         e.Day,
					Reference:   e.Reference,
					Description: e.Description,
					Confidence:  e.Confidence,
				})
				break
			}
		}
	}

	sort.SliceStable(milestones, func(i, j int) bool {
		return milestones[i].Day < milestones[j].Day
	})
	return milestones
}

// Summary renders a plain-text overview: up to three events per period
// followed by the first five milestones.
func (p *Parser) Summary(events []domain.TimelineEvent) string {
	if len(events) == 0 {
		return NoTimelineSummary
	}

	var b strings.Builder
	b.WriteString("Recovery Timeline Summary\n")
	b.WriteString(strings.Repeat("=", 40))
	b.WriteString("\n")

	for _, period := range p.Schedule(events) {
		fmt.Fprintf(&b, "\n%s:\n", label(period.Name))
		for i, e := range period.Events {
			if i == summaryEventsPerPeriod {
				break
			}
			fmt.Fprintf(&b, "  • %s: %s\n", e.Reference, textutil.Prefix(e.Description, summaryDescription))
		}
	}

	milestones := p.Milestones(events)
	if len(milestones) > 0 {
		b.WriteString("\nKey Milestones:\n")
		b.WriteString(strings.Repeat("-", 40))
		b.WriteString("\n")
		for i, m := range milestones {
			if i == summaryMilestones {
				break
			}
			fmt.Fprintf(&b, "  • %s: %s\n", m.Reference, label(m.Type))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func label(name string) string {
	return textutil.Title(strings.ReplaceAll(name, "_", " "))
}
