package web

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/custodia-labs/postop-collector/internal/core/domain"
	"github.com/custodia-labs/postop-collector/internal/core/ports/driven"
	"github.com/custodia-labs/postop-collector/internal/logger"
)

// Ensure Fetcher implements the interface.
var _ driven.Fetcher = (*Fetcher)(nil)

var pdfMagic = []byte("%PDF")

// IsPDF reports whether data starts with the PDF signature.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}

// Fetcher downloads PDFs, skipping URLs already ingested.
type Fetcher struct {
	client    *http.Client
	limiter   *RateLimiter
	userAgent string
	maxSize   int64

	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewFetcher creates a fetcher. A non-positive maxSize disables the size limit.
func NewFetcher(client *http.Client, limiter *RateLimiter, userAgent string, maxSize int64) *Fetcher {
	return &Fetcher{
		client:    client,
		limiter:   limiter,
		userAgent: userAgent,
		maxSize:   maxSize,
		seen:      make(map[string]struct{}),
	}
}

// Seed marks every url as already ingested.
func (f *Fetcher) Seed(urls []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range urls {
		f.seen[u] = struct{}{}
	}
}

// MarkSeen records that url has been ingested.
func (f *Fetcher) MarkSeen(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen[url] = struct{}{}
}

// Seen reports whether url has been ingested.
func (f *Fetcher) Seen(url string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.seen[url]
	return ok
}

// Download fetches url. Already-ingested URLs and non-PDF bodies yield
// nil bytes without error. Non-200 responses return *HTTPStatusError and
// bodies over the size limit return domain.ErrFileTooLarge.
func (f *Fetcher) Download(ctx context.Context, url string) ([]byte, error) {
	if f.Seen(url) {
		logger.Debug("Skipping already ingested %s", url)
		return nil, nil
	}

	key := hostKey(url)
	if err := f.limiter.Acquire(ctx, key); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.client.Do(newRequest(req, f.userAgent))
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		f.limiter.RecordRateLimit(key, retryAfter(resp.Header))
		return nil, fmt.Errorf("%w: %w", domain.ErrRateLimited, &HTTPStatusError{URL: url, StatusCode: resp.StatusCode})
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPStatusError{URL: url, StatusCode: resp.StatusCode}
	}

	if f.maxSize > 0 && resp.ContentLength > f.maxSize {
		return nil, fmt.Errorf("%s is %d bytes: %w", url, resp.ContentLength, domain.ErrFileTooLarge)
	}

	body := io.Reader(resp.Body)
	if f.maxSize > 0 {
		body = io.LimitReader(resp.Body, f.maxSize+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	if f.maxSize > 0 && int64(len(data)) > f.maxSize {
		return nil, fmt.Errorf("%s exceeds %d bytes: %w", url, f.maxSize, domain.ErrFileTooLarge)
	}

	if !IsPDF(data) {
		logger.Warn("Discarding non-PDF content from %s", url)
		return nil, nil
	}

	return data, nil
}
