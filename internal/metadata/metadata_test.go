package metadata

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagyolink/leadscout/pkg/firecrawl"
)

// fakeBatchClient serves one batch scrape job from canned data.
type fakeBatchClient struct {
	firecrawl.Client

	batchErr error
	status   firecrawl.BatchScrapeStatusResponse

	gotURLs []string
}

func (f *fakeBatchClient) BatchScrape(_ context.Context, req firecrawl.BatchScrapeRequest) (*firecrawl.BatchScrapeResponse, error) {
	f.gotURLs = req.URLs
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	return &firecrawl.BatchScrapeResponse{Success: true, ID: "job-1"}, nil
}

func (f *fakeBatchClient) GetBatchScrapeStatus(_ context.Context, _ string) (*firecrawl.BatchScrapeStatusResponse, error) {
	return &f.status, nil
}

func pageData(sourceURL, title, description string) firecrawl.PageData {
	return firecrawl.PageData{
		Metadata: firecrawl.PageMetadata{
			Title:       title,
			Description: description,
			SourceURL:   sourceURL,
		},
	}
}

func TestBatchFetcher_AlignsResultsWithInput(t *testing.T) {
	client := &fakeBatchClient{
		status: firecrawl.BatchScrapeStatusResponse{
			Status: "completed",
			Data: []firecrawl.PageData{
				pageData("https://b.example.jp/", "B社", "物流代行のB社です"),
				pageData("https://a.example.jp", "A社", "検品・梱包のA社"),
			},
		},
	}
	f := NewBatchFetcher(client)

	urls := []string{"https://a.example.jp", "https://b.example.jp", "https://c.example.jp"}
	metas, err := f.Fetch(context.Background(), urls)
	require.NoError(t, err)
	require.Len(t, metas, 3)

	assert.Equal(t, "A社", metas[0].Title)
	assert.Equal(t, "検品・梱包のA社", metas[0].Description)
	assert.Equal(t, "B社", metas[1].Title)

	// c.example.jp was not in the batch results.
	assert.Equal(t, "https://c.example.jp", metas[2].URL)
	assert.Empty(t, metas[2].Title)
	assert.Empty(t, metas[2].Description)

	assert.Equal(t, urls, client.gotURLs)
}

func TestBatchFetcher_MatchesDespiteURLVariants(t *testing.T) {
	client := &fakeBatchClient{
		status: firecrawl.BatchScrapeStatusResponse{
			Status: "completed",
			Data: []firecrawl.PageData{
				pageData("https://www.yamada-butsuryu.co.jp/", "山田物流株式会社", "倉庫業務の山田物流"),
			},
		},
	}
	f := NewBatchFetcher(client)

	metas, err := f.Fetch(context.Background(), []string{"http://yamada-butsuryu.co.jp"})
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, "山田物流株式会社", metas[0].Title)
}

func TestBatchFetcher_EmptyInput(t *testing.T) {
	client := &fakeBatchClient{}
	f := NewBatchFetcher(client)

	metas, err := f.Fetch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, metas)
	assert.Nil(t, client.gotURLs)
}

func TestBatchFetcher_BatchStartFails(t *testing.T) {
	client := &fakeBatchClient{batchErr: eris.New("firecrawl: status 402")}
	f := NewBatchFetcher(client)

	_, err := f.Fetch(context.Background(), []string{"https://a.example.jp"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start batch scrape")
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.example.jp/", "example.jp"},
		{"http://example.jp", "example.jp"},
		{"https://Example.JP/company/", "example.jp/company"},
		{"not a url", "not a url"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeURL(tt.in), tt.in)
	}
}
