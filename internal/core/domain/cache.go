package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// SearchCacheEntry holds search provider results until ExpiresAt.
type SearchCacheEntry struct {
	// Key is CacheKey(Query, Provider).
	Key string

	// Query is the original query text.
	Query string

	// Provider names the search provider.
	Provider string

	// Results are the returned URLs in provider order.
	Results []string

	// CreatedAt is when the entry was written.
	CreatedAt time.Time

	// ExpiresAt is when the entry stops being served.
	ExpiresAt time.Time
}

// CacheKey derives the cache key for a query and provider.
func CacheKey(query, provider string) string {
	sum := sha256.Sum256([]byte(query + ":" + provider))
	return hex.EncodeToString(sum[:])
}

// Expired reports whether the entry is stale at now.
// An entry is served strictly before ExpiresAt.
func (e *SearchCacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Statistics aggregates the stored corpus.
type Statistics struct {
	TotalDocuments    int
	TotalRuns         int
	ByProcedure       map[ProcedureCategory]int
	ByQuality         map[QualityTier]int
	AverageConfidence float64
	TotalBytes        int64
	CachedQueries     int
}
