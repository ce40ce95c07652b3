package driven

import "context"

// Fetcher downloads PDF bytes.
type Fetcher interface {
	// Download returns the body at url. It returns nil bytes and a nil error
	// when the URL was already ingested or the body is not a PDF.
	Download(ctx context.Context, url string) ([]byte, error)

	// MarkSeen records that url has been ingested.
	MarkSeen(url string)
}

// Crawler discovers PDF links on a single site.
type Crawler interface {
	// DiscoverFromSite walks same-host HTML pages from seedURL and returns
	// the PDF links it found in discovery order.
	DiscoverFromSite(ctx context.Context, seedURL string) ([]string, error)
}
