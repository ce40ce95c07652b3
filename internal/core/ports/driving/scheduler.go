package driving

import "context"

// Scheduler runs scheduled collection and search cache purges.
type Scheduler interface {
	// Start runs due tasks until ctx is cancelled.
	Start(ctx context.Context) error
	// Stop waits for in-flight tasks to finish.
	Stop() error
}
