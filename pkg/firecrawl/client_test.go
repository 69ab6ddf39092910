package firecrawl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
}

func TestScrape(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/scrape", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req ScrapeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://example.jp", req.URL)
		assert.Equal(t, []string{"markdown"}, req.Formats)

		json.NewEncoder(w).Encode(ScrapeResponse{
			Success: true,
			Data: PageData{
				URL:      "https://example.jp",
				Markdown: "# サービス一覧",
				Metadata: PageMetadata{Title: "例示株式会社", Description: "梱包・検品の例示"},
			},
		})
	})

	resp, err := client.Scrape(context.Background(), ScrapeRequest{
		URL:     "https://example.jp",
		Formats: []string{"markdown"},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "# サービス一覧", resp.Data.Markdown)
	assert.Equal(t, "例示株式会社", resp.Data.Metadata.Title)
}

func TestSearch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)

		var req SearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "site:example.jp")

		json.NewEncoder(w).Encode(SearchResponse{
			Success: true,
			Data: []SearchItem{
				{URL: "https://example.jp/services", Title: "サービス"},
				{URL: "https://example.jp/about", Title: "会社概要"},
			},
		})
	})

	resp, err := client.Search(context.Background(), SearchRequest{Query: "site:example.jp 梱包", Limit: 5})
	require.NoError(t, err)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "https://example.jp/services", resp.Data[0].URL)
}

func TestMap(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/map", r.URL.Path)
		json.NewEncoder(w).Encode(MapResponse{
			Success: true,
			Links:   []string{"https://example.jp/", "https://example.jp/price"},
		})
	})

	resp, err := client.Map(context.Background(), MapRequest{URL: "https://example.jp", Search: "料金 OR 事例"})
	require.NoError(t, err)
	assert.Len(t, resp.Links, 2)
}

func TestAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"payment required"}`, http.StatusPaymentRequired)
	})

	_, err := client.Scrape(context.Background(), ScrapeRequest{URL: "https://example.jp"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusPaymentRequired, apiErr.StatusCode)
}

func TestBatchScrapeLifecycle(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/batch/scrape":
			json.NewEncoder(w).Encode(BatchScrapeResponse{Success: true, ID: "job-1"})
		case r.Method == http.MethodGet && r.URL.Path == "/batch/scrape/job-1":
			json.NewEncoder(w).Encode(BatchScrapeStatusResponse{
				Status: "completed",
				Total:  1,
				Data:   []PageData{{URL: "https://example.jp", Markdown: "content"}},
			})
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	start, err := client.BatchScrape(context.Background(), BatchScrapeRequest{URLs: []string{"https://example.jp"}})
	require.NoError(t, err)
	assert.Equal(t, "job-1", start.ID)

	status, err := client.GetBatchScrapeStatus(context.Background(), start.ID)
	require.NoError(t, err)
	assert.Equal(t, "completed", status.Status)
	require.Len(t, status.Data, 1)
}
