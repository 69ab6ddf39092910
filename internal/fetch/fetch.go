// Package fetch acquires page content for analysis, trying Jina Reader first
// and falling back to Firecrawl per URL.
package fetch

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"go.uber.org/zap"
)

// Page holds fetched page content.
type Page struct {
	URL     string
	Title   string
	Content string
	Source  string // "jina" or "firecrawl"
}

// Result is the per-URL outcome of a fetch. Page is nil when every scraper
// failed for the URL.
type Result struct {
	URL  string
	Page *Page
	Err  error
}

// OK reports whether the URL produced usable content.
func (r Result) OK() bool {
	return r.Page != nil
}

// Scraper fetches a single URL and returns its content.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Page, error)
	Name() string
	Supports(url string) bool
}

// Chain tries scrapers in priority order per URL, returning the first
// success. Fetch runs URLs concurrently but preserves input order.
type Chain struct {
	scrapers      []Scraper
	maxConcurrent int
}

// NewChain creates a Chain. Scrapers are tried in the given order.
func NewChain(maxConcurrent int, scrapers ...Scraper) *Chain {
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}
	return &Chain{
		scrapers:      scrapers,
		maxConcurrent: maxConcurrent,
	}
}

// ScrapeOne tries each scraper in order for a single URL.
func (c *Chain) ScrapeOne(ctx context.Context, targetURL string) (*Page, error) {
	var lastErr error
	for _, s := range c.scrapers {
		if !s.Supports(targetURL) {
			continue
		}
		page, err := s.Scrape(ctx, targetURL)
		if err == nil && page != nil {
			return page, nil
		}
		if err != nil {
			zap.L().Debug("fetch: scraper failed, trying next",
				zap.String("scraper", s.Name()),
				zap.String("url", targetURL),
				zap.Error(err),
			)
			lastErr = err
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errNoScraper(targetURL)
}

// Fetch resolves all URLs concurrently. Results align with the input slice:
// a failed URL yields a Result with a nil Page, never a shortened slice.
func (c *Chain) Fetch(ctx context.Context, urls []string) []Result {
	results := make([]Result, len(urls))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrent)

	for i, u := range urls {
		g.Go(func() error {
			page, err := c.ScrapeOne(gCtx, u)
			results[i] = Result{URL: u, Page: page, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// separator delimits per-page sections in combined output.
const separator = "\n\n---\n\n"

// Combine joins the successful pages in input order, separator-delimited,
// truncated rune-safely to maxChars. Returns the combined content and the
// URLs that contributed to it.
func Combine(results []Result, maxChars int) (string, []string) {
	var parts []string
	var sources []string
	for _, r := range results {
		if !r.OK() || strings.TrimSpace(r.Page.Content) == "" {
			continue
		}
		parts = append(parts, r.Page.Content)
		sources = append(sources, r.URL)
	}

	combined := strings.Join(parts, separator)
	if maxChars > 0 {
		if runes := []rune(combined); len(runes) > maxChars {
			combined = string(runes[:maxChars])
		}
	}
	return combined, sources
}
