package selector

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagyolink/leadscout/internal/model"
	"github.com/sagyolink/leadscout/pkg/firecrawl"
)

// fakeFirecrawl serves canned Search and Map responses and counts calls.
type fakeFirecrawl struct {
	firecrawl.Client

	searchResp *firecrawl.SearchResponse
	searchErr  error
	mapResp    *firecrawl.MapResponse
	mapErr     error

	searchCalls int
	mapCalls    int
	lastQuery   string
	lastMapReq  firecrawl.MapRequest
}

func (f *fakeFirecrawl) Search(_ context.Context, req firecrawl.SearchRequest) (*firecrawl.SearchResponse, error) {
	f.searchCalls++
	f.lastQuery = req.Query
	return f.searchResp, f.searchErr
}

func (f *fakeFirecrawl) Map(_ context.Context, req firecrawl.MapRequest) (*firecrawl.MapResponse, error) {
	f.mapCalls++
	f.lastMapReq = req
	return f.mapResp, f.mapErr
}

func searchHits(urls ...string) *firecrawl.SearchResponse {
	resp := &firecrawl.SearchResponse{Success: true}
	for _, u := range urls {
		resp.Data = append(resp.Data, firecrawl.SearchItem{URL: u})
	}
	return resp
}

func newTestSelector(client firecrawl.Client, maxPages, retries int) *PageSelector {
	s := NewPageSelector(client, maxPages, retries)
	s.retry.InitialBackoff = time.Millisecond
	return s
}

func logisticsHints() Hints {
	return Hints{BusinessType: model.BusinessLogistics, SearchKeyword: "物流 大阪"}
}

func TestSelect_KeywordSearchWins(t *testing.T) {
	client := &fakeFirecrawl{
		searchResp: searchHits("https://a.example.jp/service", "https://a.example.jp/about"),
	}
	s := newTestSelector(client, 5, 0)

	res := s.Select(context.Background(), "https://a.example.jp", logisticsHints())
	assert.Equal(t, StrategyKeywordSearch, res.Strategy)
	assert.Equal(t, []string{"https://a.example.jp/service", "https://a.example.jp/about"}, res.URLs)

	// Map is never consulted when search produced URLs.
	assert.Zero(t, client.mapCalls)

	assert.Contains(t, client.lastQuery, "site:a.example.jp")
	assert.Contains(t, client.lastQuery, "手作業")
	assert.Contains(t, client.lastQuery, "検品")
	assert.Contains(t, client.lastQuery, "大阪")
}

func TestSelect_FallsThroughToSiteMap(t *testing.T) {
	client := &fakeFirecrawl{
		searchResp: searchHits(),
		mapResp: &firecrawl.MapResponse{
			Success: true,
			Links:   []string{"https://a.example.jp/company", "https://a.example.jp/price"},
		},
	}
	s := newTestSelector(client, 5, 0)

	res := s.Select(context.Background(), "https://a.example.jp", logisticsHints())
	assert.Equal(t, StrategySiteMap, res.Strategy)
	assert.Len(t, res.URLs, 2)

	assert.Equal(t, "https://a.example.jp", client.lastMapReq.URL)
	assert.Contains(t, client.lastMapReq.Search, " OR ")
	assert.Contains(t, client.lastMapReq.Search, "サービス")
}

func TestSelect_FallbackRootAlwaysSucceeds(t *testing.T) {
	client := &fakeFirecrawl{
		searchErr: eris.New("firecrawl: status 500"),
		mapErr:    eris.New("firecrawl: status 500"),
	}
	s := newTestSelector(client, 5, 0)

	res := s.Select(context.Background(), "https://a.example.jp", Hints{})
	assert.Equal(t, StrategyFallbackRoot, res.Strategy)
	assert.Equal(t, []string{"https://a.example.jp"}, res.URLs)
}

func TestSelect_EmptyResultsFallThrough(t *testing.T) {
	client := &fakeFirecrawl{
		searchResp: searchHits(),
		mapResp:    &firecrawl.MapResponse{Success: true},
	}
	s := newTestSelector(client, 5, 0)

	res := s.Select(context.Background(), "https://a.example.jp", logisticsHints())
	assert.Equal(t, StrategyFallbackRoot, res.Strategy)
}

func TestSelect_RemoteStrategiesRetried(t *testing.T) {
	client := &fakeFirecrawl{
		searchErr: &firecrawl.APIError{StatusCode: 502, Body: "bad gateway"},
		mapErr:    &firecrawl.APIError{StatusCode: 502, Body: "bad gateway"},
	}
	s := newTestSelector(client, 5, 1)

	res := s.Select(context.Background(), "https://a.example.jp", logisticsHints())
	assert.Equal(t, StrategyFallbackRoot, res.Strategy)
	assert.Equal(t, 2, client.searchCalls)
	assert.Equal(t, 2, client.mapCalls)
}

func TestSelect_QuotaErrorsNotRetried(t *testing.T) {
	client := &fakeFirecrawl{
		searchErr: &firecrawl.APIError{StatusCode: 402, Body: "payment required"},
		mapErr:    &firecrawl.APIError{StatusCode: 402, Body: "payment required"},
	}
	s := newTestSelector(client, 5, 2)

	res := s.Select(context.Background(), "https://a.example.jp", logisticsHints())
	assert.Equal(t, StrategyFallbackRoot, res.Strategy)
	assert.Equal(t, 1, client.searchCalls)
	assert.Equal(t, 1, client.mapCalls)
}

func TestSelect_CapsURLsAtMaxPages(t *testing.T) {
	client := &fakeFirecrawl{
		searchResp: searchHits(
			"https://a.example.jp/1",
			"https://a.example.jp/2",
			"https://a.example.jp/3",
			"https://a.example.jp/4",
		),
	}
	s := newTestSelector(client, 3, 0)

	res := s.Select(context.Background(), "https://a.example.jp", logisticsHints())
	require.Len(t, res.URLs, 3)
	assert.Equal(t, "https://a.example.jp/3", res.URLs[2])
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.example.jp/company/", "www.example.jp"},
		{"http://example.jp", "example.jp"},
		{"example.jp", "example.jp"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractDomain(tt.in), tt.in)
	}
}
