package google

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/custodia-labs/postop-collector/internal/core/ports/driven"
	"github.com/custodia-labs/postop-collector/internal/logger"
)

// Ensure SearchProvider implements the interface.
var _ driven.SearchProvider = (*SearchProvider)(nil)

const (
	// ProviderName identifies results cached from this provider.
	ProviderName = "google"

	// maxPerPage is the most results the API returns per call.
	maxPerPage = 10

	// maxResults is the deepest the API will page.
	maxResults = 100
)

// Config configures the search provider.
type Config struct {
	APIKey         string
	SearchEngineID string

	// Endpoint overrides the API base URL. Used by tests.
	Endpoint string
}

// SearchProvider queries Google Custom Search.
type SearchProvider struct {
	cfg Config
	svc *customsearch.Service
}

// NewSearchProvider creates a provider. Missing credentials are not an
// error: the provider is created disabled.
func NewSearchProvider(ctx context.Context, cfg Config) (*SearchProvider, error) {
	p := &SearchProvider{cfg: cfg}
	if !p.Enabled() {
		return p, nil
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating custom search service: %w", err)
	}
	p.svc = svc
	return p, nil
}

// Name returns the provider name.
func (p *SearchProvider) Name() string { return ProviderName }

// Enabled reports whether credentials are configured.
func (p *SearchProvider) Enabled() bool {
	return p.cfg.APIKey != "" && p.cfg.SearchEngineID != ""
}

// Search returns up to limit result links in rank order, paging through
// the API ten at a time. Without credentials it returns nothing. API
// failures are logged and whatever was gathered so far is returned.
func (p *SearchProvider) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if !p.Enabled() {
		logger.Warn("Google search credentials not configured; skipping query %q", query)
		return []string{}, nil
	}
	if limit <= 0 {
		limit = maxPerPage
	}
	limit = min(limit, maxResults)

	links := []string{}
	for start := 1; len(links) < limit; start += maxPerPage {
		num := min(maxPerPage, limit-len(links))

		res, err := p.svc.Cse.List().
			Q(query).
			Cx(p.cfg.SearchEngineID).
			Num(int64(num)).
			Start(int64(start)).
			Context(ctx).
			Do()
		if err != nil {
			logFailure(query, err)
			return links, nil
		}

		for _, item := range res.Items {
			if item.Link != "" {
				links = append(links, item.Link)
			}
		}
		if len(res.Items) < num {
			break
		}
	}

	if len(links) > limit {
		links = links[:limit]
	}
	return links, nil
}

// logFailure reports an API error, pointing at the setting to fix when the
// credentials were rejected.
func logFailure(query string, err error) {
	wrapped := WrapError(err)
	switch {
	case errors.Is(wrapped, ErrQuotaExceeded), IsRateLimited(err):
		logger.Warn("Google search quota exhausted for %q: %v", query, wrapped)
	case IsUnauthorized(err), IsForbidden(err):
		logger.Error("Google search rejected the API key; check search.api_key: %v", wrapped)
	case IsNotFound(err):
		logger.Error("Google search engine not found; check search.search_engine_id: %v", wrapped)
	default:
		logger.Warn("Google search for %q failed: %v", query, wrapped)
	}
}
