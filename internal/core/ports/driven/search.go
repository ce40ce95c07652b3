package driven

import "context"

// SearchProvider finds candidate URLs for a query.
type SearchProvider interface {
	// Name identifies the provider for cache keys and logs.
	Name() string

	// Search returns up to limit URLs in provider rank order.
	// A provider without credentials returns an empty list and no error.
	Search(ctx context.Context, query string, limit int) ([]string, error)
}
