package web

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/custodia-labs/postop-collector/internal/core/ports/driven"
	"github.com/custodia-labs/postop-collector/internal/logger"
)

// Ensure Crawler implements the interface.
var _ driven.Crawler = (*Crawler)(nil)

// DefaultMaxPages bounds a crawl when no limit is configured.
const DefaultMaxPages = 50

const maxRedirects = 10

var errOffSiteRedirect = errors.New("redirect leaves site")

// Crawler walks a site breadth-first collecting PDF links.
type Crawler struct {
	client    *http.Client
	limiter   *RateLimiter
	userAgent string
	maxPages  int
}

// NewCrawler creates a crawler that visits at most maxPages HTML pages per site.
func NewCrawler(client *http.Client, limiter *RateLimiter, userAgent string, maxPages int) *Crawler {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Crawler{
		client:    sameHostRedirects(client),
		limiter:   limiter,
		userAgent: userAgent,
		maxPages:  maxPages,
	}
}

// DiscoverFromSite visits same-host pages starting at seedURL and returns
// the PDF links found, de-duplicated in discovery order. PDF links are
// never visited. Pages that fail or are not HTML are skipped.
func (c *Crawler) DiscoverFromSite(ctx context.Context, seedURL string) ([]string, error) {
	seed, err := url.Parse(seedURL)
	if err != nil || seed.Host == "" {
		return nil, fmt.Errorf("invalid seed url %q", seedURL)
	}

	var pdfs []string
	found := make(map[string]struct{})
	queued := map[string]struct{}{normalise(seed): {}}
	queue := []*url.URL{seed}
	visited := 0

	for len(queue) > 0 && visited < c.maxPages {
		if err := ctx.Err(); err != nil {
			return pdfs, err
		}

		page := queue[0]
		queue = queue[1:]
		visited++

		links, err := c.fetchLinks(ctx, page)
		if err != nil {
			logger.Debug("crawl: skipping %s: %v", page, err)
			continue
		}

		for _, link := range links {
			if link.Host != seed.Host {
				continue
			}
			key := normalise(link)
			if isPDFLink(link) {
				if _, ok := found[key]; !ok {
					found[key] = struct{}{}
					pdfs = append(pdfs, key)
				}
				continue
			}
			if _, ok := queued[key]; !ok {
				queued[key] = struct{}{}
				queue = append(queue, link)
			}
		}
	}

	logger.Debug("crawl: %s visited %d pages, found %d pdfs", seed.Host, visited, len(pdfs))
	return pdfs, nil
}

// sameHostRedirects copies client so that it only follows redirects that
// stay on the host of the original request.
func sameHostRedirects(client *http.Client) *http.Client {
	c := &http.Client{}
	if client != nil {
		*c = *client
	}
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		if req.URL.Host != via[0].URL.Host {
			return fmt.Errorf("%w: %s to %s", errOffSiteRedirect, via[0].URL.Host, req.URL.Host)
		}
		return nil
	}
	return c
}

// fetchLinks downloads page and returns its absolute http(s) links.
func (c *Crawler) fetchLinks(ctx context.Context, page *url.URL) ([]*url.URL, error) {
	if err := c.limiter.Acquire(ctx, page.Host); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, page.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(newRequest(req, c.userAgent))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPStatusError{URL: page.String(), StatusCode: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if mediaType, _, _ := mime.ParseMediaType(contentType); mediaType != "text/html" {
		return nil, fmt.Errorf("not html: %q", contentType)
	}

	body, err := charset.NewReader(resp.Body, contentType)
	if err != nil {
		return nil, fmt.Errorf("decoding body: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	// resp.Request reflects redirects
	base := resp.Request.URL
	var links []*url.URL
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		links = append(links, abs)
	})
	return links, nil
}

func isPDFLink(u *url.URL) bool {
	return strings.EqualFold(path.Ext(u.Path), ".pdf")
}

// normalise drops the fragment so anchors on one page count once.
func normalise(u *url.URL) string {
	c := *u
	c.Fragment = ""
	return c.String()
}
