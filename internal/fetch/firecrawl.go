package fetch

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sagyolink/leadscout/pkg/firecrawl"
)

// FirecrawlScraper wraps a Firecrawl client as a single-page fallback Scraper.
type FirecrawlScraper struct {
	client firecrawl.Client
}

// NewFirecrawlScraper creates a FirecrawlScraper from a Firecrawl client.
func NewFirecrawlScraper(client firecrawl.Client) *FirecrawlScraper {
	return &FirecrawlScraper{client: client}
}

// Name implements Scraper.
func (f *FirecrawlScraper) Name() string { return "firecrawl" }

// Supports returns true, Firecrawl can attempt any URL as a fallback.
func (f *FirecrawlScraper) Supports(_ string) bool { return true }

// Scrape fetches a single URL via Firecrawl's scrape API.
func (f *FirecrawlScraper) Scrape(ctx context.Context, targetURL string) (*Page, error) {
	resp, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:             targetURL,
		Formats:         []string{"markdown"},
		OnlyMainContent: true,
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, eris.New("firecrawl: scrape not successful")
	}
	return &Page{
		URL:     resp.Data.URL,
		Title:   resp.Data.Metadata.Title,
		Content: resp.Data.Markdown,
		Source:  "firecrawl",
	}, nil
}
