package driving

import "context"

// SearchService exposes cached URL discovery.
type SearchService interface {
	// Search returns up to limit URLs for the query, served from cache when fresh.
	Search(ctx context.Context, query string, limit int) ([]string, error)

	// PurgeExpired removes stale cache entries and returns how many were removed.
	PurgeExpired(ctx context.Context) (int, error)
}
