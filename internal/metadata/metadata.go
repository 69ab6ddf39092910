// Package metadata fetches page titles and descriptions for candidate
// websites in a single Firecrawl batch scrape.
package metadata

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sagyolink/leadscout/pkg/firecrawl"
)

// PageMeta holds the metadata extracted for one URL. A URL that could not
// be scraped yields zero-value Title and Description.
type PageMeta struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// Fetcher resolves page metadata for a set of URLs.
type Fetcher interface {
	Fetch(ctx context.Context, urls []string) ([]PageMeta, error)
}

// BatchFetcher implements Fetcher over Firecrawl's batch scrape API.
type BatchFetcher struct {
	client firecrawl.Client
}

// NewBatchFetcher creates a BatchFetcher.
func NewBatchFetcher(client firecrawl.Client) *BatchFetcher {
	return &BatchFetcher{client: client}
}

// Fetch scrapes all URLs in one batch and returns results aligned with the
// input slice. Pages that fail within the batch are returned with empty
// metadata rather than dropped.
func (f *BatchFetcher) Fetch(ctx context.Context, urls []string) ([]PageMeta, error) {
	metas := make([]PageMeta, len(urls))
	for i, u := range urls {
		metas[i] = PageMeta{URL: u}
	}
	if len(urls) == 0 {
		return metas, nil
	}

	resp, err := f.client.BatchScrape(ctx, firecrawl.BatchScrapeRequest{
		URLs:            urls,
		Formats:         []string{"markdown"},
		OnlyMainContent: true,
	})
	if err != nil {
		return nil, eris.Wrap(err, "metadata: start batch scrape")
	}

	status, err := firecrawl.PollBatchScrape(ctx, f.client, resp.ID,
		firecrawl.WithPollInterval(2*time.Second),
		firecrawl.WithPollCap(10*time.Second),
	)
	if err != nil {
		return nil, eris.Wrap(err, "metadata: poll batch scrape")
	}

	// Map batch results back onto the input order. Firecrawl reports the
	// fetched URL, which may differ from the request by scheme or trailing
	// slash, so match on normalized form.
	byURL := make(map[string]firecrawl.PageData, len(status.Data))
	for _, d := range status.Data {
		key := d.Metadata.SourceURL
		if key == "" {
			key = d.URL
		}
		byURL[normalizeURL(key)] = d
	}

	matched := 0
	for i, u := range urls {
		d, ok := byURL[normalizeURL(u)]
		if !ok {
			continue
		}
		metas[i].Title = d.Metadata.Title
		metas[i].Description = d.Metadata.Description
		matched++
	}

	zap.L().Debug("metadata: batch scrape complete",
		zap.Int("requested", len(urls)),
		zap.Int("matched", matched),
	)

	return metas, nil
}

// normalizeURL reduces a URL to host+path for matching request URLs against
// the URLs Firecrawl reports back.
func normalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.TrimRight(strings.TrimSpace(raw), "/")
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	path := strings.TrimRight(u.Path, "/")
	return host + path
}
