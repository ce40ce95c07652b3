package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/postop-collector/internal/core/domain"
)

// SearchCache stores search provider results with a time-to-live.
// Expiry is enforced at read time; PurgeExpired is caller-driven.
type SearchCache interface {
	// SetCached stores results for (query, provider), replacing any previous entry.
	SetCached(ctx context.Context, query, provider string, results []string, ttl time.Duration) error

	// GetCached returns the live entry for (query, provider).
	// Returns domain.ErrNotFound when absent or expired.
	GetCached(ctx context.Context, query, provider string) (*domain.SearchCacheEntry, error)

	// PurgeExpired deletes expired entries and returns how many were removed.
	PurgeExpired(ctx context.Context) (int, error)
}
