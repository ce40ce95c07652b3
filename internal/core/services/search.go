package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/postop-collector/internal/core/domain"
	"github.com/custodia-labs/postop-collector/internal/core/ports/driven"
	"github.com/custodia-labs/postop-collector/internal/core/ports/driving"
	"github.com/custodia-labs/postop-collector/internal/logger"
)

// Ensure CachedSearch implements both interfaces.
var (
	_ driving.SearchService  = (*CachedSearch)(nil)
	_ driven.SearchProvider = (*CachedSearch)(nil)
)

// CachedSearch serves search results from the cache while they are fresh
// and from the provider otherwise. It is itself a SearchProvider so the
// collector can use it in place of the raw provider.
type CachedSearch struct {
	provider driven.SearchProvider
	cache    driven.SearchCache
	ttl      time.Duration
}

// NewCachedSearch creates a caching decorator. A non-positive ttl disables
// writes to the cache.
func NewCachedSearch(provider driven.SearchProvider, cache driven.SearchCache, ttl time.Duration) *CachedSearch {
	return &CachedSearch{
		provider: provider,
		cache:    cache,
		ttl:      ttl,
	}
}

// Name returns the wrapped provider's name so cache keys stay stable.
func (s *CachedSearch) Name() string {
	return s.provider.Name()
}

// Search returns up to limit URLs for the query. Cache read and write
// failures are logged and never fail the search. Empty result sets are not
// cached, so a provider that was unconfigured is asked again next time.
func (s *CachedSearch) Search(ctx context.Context, query string, limit int) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []string{}, nil
	}

	entry, err := s.cache.GetCached(ctx, query, s.provider.Name())
	switch {
	case err == nil:
		logger.Debug("Search cache hit for %q: %d results", query, len(entry.Results))
		return firstN(entry.Results, limit), nil
	case !errors.Is(err, domain.ErrNotFound):
		logger.Warn("Search cache read failed for %q: %v", query, err)
	}

	results, err := s.provider.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	if len(results) > 0 && s.ttl > 0 {
		if err := s.cache.SetCached(ctx, query, s.provider.Name(), results, s.ttl); err != nil {
			logger.Warn("Search cache write failed for %q: %v", query, err)
		}
	}
	return results, nil
}

// PurgeExpired removes stale cache entries and returns how many were removed.
func (s *CachedSearch) PurgeExpired(ctx context.Context) (int, error) {
	n, err := s.cache.PurgeExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge search cache: %w", err)
	}
	if n > 0 {
		logger.Info("Purged %d expired search cache entries", n)
	}
	return n, nil
}

func firstN(items []string, n int) []string {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}
