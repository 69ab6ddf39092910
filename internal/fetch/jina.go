package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sagyolink/leadscout/internal/resilience"
	"github.com/sagyolink/leadscout/pkg/jina"
)

func errNoScraper(url string) error {
	return eris.New(fmt.Sprintf("fetch: no suitable scraper for url: %s", url))
}

// JinaScraper wraps a Jina Reader client as a Scraper with a circuit
// breaker: 3 consecutive failures open the circuit for 60s, causing
// immediate fallback to the next scraper.
type JinaScraper struct {
	client  jina.Client
	breaker *resilience.CircuitBreaker
}

// NewJinaScraper creates a JinaScraper from a Jina client.
func NewJinaScraper(client jina.Client) *JinaScraper {
	return &JinaScraper{
		client: client,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: 3,
			ResetTimeout:     60 * time.Second,
			OnStateChange: func(from, to resilience.CircuitState) {
				zap.L().Warn("fetch: jina circuit state change",
					zap.Stringer("from", from),
					zap.Stringer("to", to),
				)
			},
		}),
	}
}

func (j *JinaScraper) Name() string { return "jina" }

// Supports returns true unless the circuit breaker is open.
func (j *JinaScraper) Supports(_ string) bool {
	return j.breaker.State() != resilience.CircuitOpen
}

// Scrape fetches a URL via Jina Reader and validates the response. Blocked
// or near-empty pages count as failures so the breaker can trip.
func (j *JinaScraper) Scrape(ctx context.Context, targetURL string) (*Page, error) {
	return resilience.ExecuteVal(ctx, j.breaker, func(ctx context.Context) (*Page, error) {
		resp, err := j.client.Read(ctx, targetURL)
		if err != nil {
			return nil, err
		}
		if needsFallback(resp) {
			return nil, eris.New("jina: response needs fallback")
		}
		return &Page{
			URL:     resp.Data.URL,
			Title:   resp.Data.Title,
			Content: resp.Data.Content,
			Source:  "jina",
		}, nil
	})
}

// needsFallback checks whether a Jina response contains usable content or
// indicates the page is blocked or empty.
func needsFallback(resp *jina.ReadResponse) bool {
	if resp == nil {
		return true
	}

	if resp.Code != 0 && resp.Code != 200 {
		return true
	}

	content := strings.TrimSpace(resp.Data.Content)

	if len(content) < 100 {
		return true
	}

	lower := strings.ToLower(content)

	challengeSignatures := []string{
		"checking your browser",
		"enable javascript",
		"please enable cookies",
		"access denied",
		"403 forbidden",
		"just a moment",
		"cloudflare",
		"attention required",
	}

	for _, sig := range challengeSignatures {
		if strings.Contains(lower, sig) && len(content) < 1000 {
			return true
		}
	}

	return false
}
