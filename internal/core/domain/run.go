package domain

import (
	"fmt"
	"time"
)

// RunStatus is the lifecycle state of a CollectionRun.
type RunStatus string

// Run states. Completed, failed and cancelled are terminal.
const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// IsValid returns true if the status is recognised.
func (s RunStatus) IsValid() bool {
	switch s {
	case RunPending, RunRunning, RunCompleted, RunFailed, RunCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are allowed.
func (s RunStatus) IsTerminal() bool {
	return s == RunCompleted || s == RunFailed || s == RunCancelled
}

// CanTransitionTo reports whether the state machine permits s -> next.
func (s RunStatus) CanTransitionTo(next RunStatus) bool {
	switch s {
	case RunPending:
		return next == RunRunning || next == RunFailed || next == RunCancelled
	case RunRunning:
		return next == RunCompleted || next == RunFailed || next == RunCancelled
	default:
		return false
	}
}

// String returns the string representation.
func (s RunStatus) String() string {
	return string(s)
}

// DiscoveryMethod records how a run found a document.
type DiscoveryMethod string

// Discovery methods.
const (
	DiscoverySearch DiscoveryMethod = "search"
	DiscoveryCrawl  DiscoveryMethod = "crawl"
	DiscoveryDirect DiscoveryMethod = "direct"
)

// CollectionRun is one execution of the collection pipeline.
type CollectionRun struct {
	// ID is a UUID allocated by the store.
	ID string

	// Queries are the search queries the run was started with.
	Queries []string

	// URLs are the direct or seed URLs the run was started with.
	URLs []string

	// Status is the lifecycle state.
	Status RunStatus

	// StartedAt is when the run began.
	StartedAt time.Time

	// CompletedAt is set when the run reaches a terminal state.
	CompletedAt *time.Time

	// Discovered is the number of PDF URLs the run attempted.
	Discovered int

	// Collected is the number of documents persisted.
	Collected int

	// Rejected counts content rejections (not a PDF, irrelevant, duplicate).
	Rejected int

	// Failed counts per-URL errors.
	Failed int

	// SuccessRate is Collected/Discovered, or 0 when nothing was discovered.
	SuccessRate float64

	// AverageConfidence is the mean confidence of persisted documents.
	AverageConfidence float64

	// Errors holds per-URL and run-level error text.
	Errors []string

	// MaxPDFsPerSource snapshots the per-source cap the run used.
	MaxPDFsPerSource int

	// QualityThreshold snapshots the minimum confidence the run used.
	QualityThreshold float64
}

// Transition moves the run to next, stamping CompletedAt on terminal states.
func (r *CollectionRun) Transition(next RunStatus, now time.Time) error {
	if !r.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, next)
	}
	r.Status = next
	if next.IsTerminal() {
		if now.Before(r.StartedAt) {
			now = r.StartedAt
		}
		r.CompletedAt = &now
	}
	return nil
}

// Finalise computes the derived aggregates from the counters and confidences.
func (r *CollectionRun) Finalise(confidences []float64) {
	r.SuccessRate = 0
	if r.Discovered > 0 {
		r.SuccessRate = float64(r.Collected) / float64(r.Discovered)
	}
	r.AverageConfidence = 0
	if len(confidences) > 0 {
		var sum float64
		for _, c := range confidences {
			sum += c
		}
		r.AverageConfidence = sum / float64(len(confidences))
	}
}

// Duration returns the elapsed run time, up to now for unfinished runs.
func (r *CollectionRun) Duration(now time.Time) time.Duration {
	if r.CompletedAt != nil {
		return r.CompletedAt.Sub(r.StartedAt)
	}
	return now.Sub(r.StartedAt)
}

// RunDocument links a document to the run that collected it.
type RunDocument struct {
	RunID        string
	DocumentHash string
	Ordinal      int
	Method       DiscoveryMethod
	CreatedAt    time.Time
}
