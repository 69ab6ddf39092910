// Package selector decides which pages of a company's website are worth
// scraping. Strategies are tried in fixed priority order and the first one
// producing at least one URL wins.
package selector

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sagyolink/leadscout/internal/keywords"
	"github.com/sagyolink/leadscout/internal/model"
	"github.com/sagyolink/leadscout/internal/resilience"
	"github.com/sagyolink/leadscout/pkg/firecrawl"
)

// Strategy names the mechanism that produced a URL list.
type Strategy string

const (
	StrategyKeywordSearch Strategy = "keyword-search"
	StrategySiteMap       Strategy = "site-map"
	StrategyFallbackRoot  Strategy = "fallback-root"
)

// Hints carry per-company context that shapes the keyword sets.
type Hints struct {
	BusinessType  model.BusinessType
	SearchKeyword string
}

// Result is the selected URL list plus the strategy that produced it.
type Result struct {
	URLs     []string `json:"urls"`
	Strategy Strategy `json:"strategy"`
}

// Selector picks the pages to scrape for a website.
type Selector interface {
	Select(ctx context.Context, website string, hints Hints) Result
}

// PageSelector implements Selector over Firecrawl's search and map APIs.
// Strategy errors are logged and fall through to the next strategy; Select
// itself never fails because fallback-root always yields the site root.
type PageSelector struct {
	client   firecrawl.Client
	maxPages int
	retry    resilience.RetryConfig
}

// NewPageSelector creates a PageSelector. maxPages bounds every strategy's
// URL list; retries is the number of extra attempts per remote strategy.
func NewPageSelector(client firecrawl.Client, maxPages, retries int) *PageSelector {
	if maxPages <= 0 {
		maxPages = 5
	}
	if retries < 0 {
		retries = 0
	}
	return &PageSelector{
		client:   client,
		maxPages: maxPages,
		retry: resilience.RetryConfig{
			MaxAttempts:    retries + 1,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     5 * time.Second,
			ShouldRetry:    retryableStrategyError,
		},
	}
}

// retryableStrategyError retries rate limits and upstream outages but not
// client errors such as an exhausted quota.
func retryableStrategyError(err error) bool {
	var apiErr *firecrawl.APIError
	if errors.As(err, &apiErr) {
		return resilience.IsTransientHTTPStatus(apiErr.StatusCode)
	}
	return resilience.IsTransient(err)
}

// Select runs keyword-search, then site-map, then fallback-root.
func (s *PageSelector) Select(ctx context.Context, website string, hints Hints) Result {
	log := zap.L().With(zap.String("website", website))

	urls, err := s.keywordSearch(ctx, website, hints)
	if err != nil {
		log.Debug("selector: keyword search failed", zap.Error(err))
	}
	if len(urls) > 0 {
		log.Debug("selector: keyword search hit", zap.Int("urls", len(urls)))
		return Result{URLs: urls, Strategy: StrategyKeywordSearch}
	}

	urls, err = s.siteMap(ctx, website, hints)
	if err != nil {
		log.Debug("selector: site map failed", zap.Error(err))
	}
	if len(urls) > 0 {
		log.Debug("selector: site map hit", zap.Int("urls", len(urls)))
		return Result{URLs: urls, Strategy: StrategySiteMap}
	}

	log.Debug("selector: falling back to site root")
	return Result{URLs: []string{website}, Strategy: StrategyFallbackRoot}
}

// keywordSearch queries the search index scoped to the company's domain.
func (s *PageSelector) keywordSearch(ctx context.Context, website string, hints Hints) ([]string, error) {
	domain := extractDomain(website)
	terms := keywords.ForSearch(hints.BusinessType, hints.SearchKeyword)
	query := fmt.Sprintf("site:%s %s", domain, strings.Join(terms, " OR "))

	resp, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) (*firecrawl.SearchResponse, error) {
		return s.client.Search(ctx, firecrawl.SearchRequest{
			Query: query,
			Limit: s.maxPages,
		})
	})
	if err != nil {
		return nil, err
	}

	var urls []string
	for _, item := range resp.Data {
		if item.URL != "" {
			urls = append(urls, item.URL)
		}
	}
	return capURLs(urls, s.maxPages), nil
}

// siteMap enumerates the site's URLs filtered by the OR-joined term string.
func (s *PageSelector) siteMap(ctx context.Context, website string, hints Hints) ([]string, error) {
	search := keywords.ForSiteMap(hints.BusinessType, hints.SearchKeyword)

	resp, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) (*firecrawl.MapResponse, error) {
		return s.client.Map(ctx, firecrawl.MapRequest{
			URL:    website,
			Search: search,
			Limit:  s.maxPages,
		})
	})
	if err != nil {
		return nil, err
	}

	var urls []string
	for _, link := range resp.Links {
		if link != "" {
			urls = append(urls, link)
		}
	}
	return capURLs(urls, s.maxPages), nil
}

func capURLs(urls []string, max int) []string {
	if len(urls) > max {
		return urls[:max]
	}
	return urls
}

// extractDomain reduces a website URL to its hostname for domain-scoped
// search queries. Unparseable input is passed through as-is.
func extractDomain(website string) string {
	u, err := url.Parse(website)
	if err != nil || u.Hostname() == "" {
		return website
	}
	return u.Hostname()
}
