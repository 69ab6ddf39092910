package fetch

import (
	"context"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagyolink/leadscout/pkg/jina"
)

type fakeJinaClient struct {
	resp *jina.ReadResponse
	err  error
}

func (f *fakeJinaClient) Read(_ context.Context, _ string) (*jina.ReadResponse, error) {
	return f.resp, f.err
}

func goodReadResponse(content string) *jina.ReadResponse {
	return &jina.ReadResponse{
		Code: 200,
		Data: jina.ReadData{
			URL:     "https://a.example.jp",
			Title:   "会社概要",
			Content: content,
		},
	}
}

func TestJinaScraper_Success(t *testing.T) {
	content := strings.Repeat("検品・梱包・発送代行を承ります。", 20)
	s := NewJinaScraper(&fakeJinaClient{resp: goodReadResponse(content)})

	page, err := s.Scrape(context.Background(), "https://a.example.jp")
	require.NoError(t, err)
	assert.Equal(t, "jina", page.Source)
	assert.Equal(t, "会社概要", page.Title)
	assert.Equal(t, content, page.Content)
}

func TestJinaScraper_ShortContentNeedsFallback(t *testing.T) {
	s := NewJinaScraper(&fakeJinaClient{resp: goodReadResponse("too short")})

	_, err := s.Scrape(context.Background(), "https://a.example.jp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs fallback")
}

func TestJinaScraper_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	s := NewJinaScraper(&fakeJinaClient{err: eris.New("jina: status 503")})

	for i := 0; i < 3; i++ {
		_, err := s.Scrape(context.Background(), "https://a.example.jp")
		require.Error(t, err)
	}

	assert.False(t, s.Supports("https://a.example.jp"))
}

func TestJinaScraper_BreakerStaysClosedOnSuccess(t *testing.T) {
	content := strings.Repeat("事業内容の説明テキスト。", 30)
	s := NewJinaScraper(&fakeJinaClient{resp: goodReadResponse(content)})

	for i := 0; i < 5; i++ {
		_, err := s.Scrape(context.Background(), "https://a.example.jp")
		require.NoError(t, err)
	}
	assert.True(t, s.Supports("https://a.example.jp"))
}

func TestNeedsFallback(t *testing.T) {
	longBody := strings.Repeat("x", 200)

	tests := []struct {
		name string
		resp *jina.ReadResponse
		want bool
	}{
		{"nil response", nil, true},
		{"error code", &jina.ReadResponse{Code: 451}, true},
		{"empty content", goodReadResponse(""), true},
		{"short content", goodReadResponse("short"), true},
		{"blocked page", goodReadResponse("Just a moment... checking your browser"), true},
		{"usable content", goodReadResponse(longBody), false},
		{
			"challenge phrase in long real content",
			goodReadResponse(strings.Repeat("y", 1200) + " cloudflare"),
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, needsFallback(tt.resp))
		})
	}
}
