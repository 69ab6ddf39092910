// Package places provides a client for the Google Places API (text search
// plus per-place details), the lead discovery source for the pipeline.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// maxDetailLookups bounds the per-search details fan-out.
const maxDetailLookups = 20

// detailFields is the field mask requested from the Details endpoint.
const detailFields = "place_id,name,formatted_address,formatted_phone_number,website,rating,types"

// Client performs Google Places API operations.
type Client interface {
	// Search runs a text search for "query location" and resolves details
	// for each hit. Places whose detail lookup fails are dropped, not fatal.
	Search(ctx context.Context, query, location string) ([]Place, error)
	// Details fetches contact and site metadata for one place.
	Details(ctx context.Context, placeID string) (*Place, error)
}

// Place is a business returned by the API.
type Place struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address"`
	PhoneNumber      string   `json:"formatted_phone_number,omitempty"`
	Website          string   `json:"website,omitempty"`
	Rating           float64  `json:"rating,omitempty"`
	Types            []string `json:"types,omitempty"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithLanguage sets the response language (default "ja").
func WithLanguage(lang string) Option {
	return func(c *httpClient) {
		c.language = lang
	}
}

// WithRateLimit caps request throughput in requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

type httpClient struct {
	apiKey   string
	baseURL  string
	language string
	http     *http.Client
	limiter  *rate.Limiter
}

// NewClient creates a Google Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:   apiKey,
		baseURL:  defaultBaseURL,
		language: "ja",
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(10), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type textSearchResponse struct {
	Status  string `json:"status"`
	Results []struct {
		PlaceID string `json:"place_id"`
	} `json:"results"`
}

type detailsResponse struct {
	Status string `json:"status"`
	Result Place  `json:"result"`
}

func (c *httpClient) Search(ctx context.Context, query, location string) ([]Place, error) {
	params := url.Values{}
	params.Set("query", query+" "+location)
	params.Set("key", c.apiKey)
	params.Set("language", c.language)

	var search textSearchResponse
	if err := c.get(ctx, "/textsearch/json", params, &search); err != nil {
		return nil, eris.Wrap(err, "places: text search")
	}
	if search.Status != "OK" && search.Status != "ZERO_RESULTS" {
		return nil, eris.Errorf("places: text search status %s", search.Status)
	}

	ids := search.Results
	if len(ids) > maxDetailLookups {
		ids = ids[:maxDetailLookups]
	}

	// Resolve details concurrently; order is preserved and individual
	// failures only drop that place.
	results := make([]*Place, len(ids))
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(5)
	for i, hit := range ids {
		g.Go(func() error {
			place, err := c.Details(gCtx, hit.PlaceID)
			if err != nil {
				zap.L().Warn("places: details lookup failed",
					zap.String("place_id", hit.PlaceID),
					zap.Error(err),
				)
				return nil
			}
			mu.Lock()
			results[i] = place
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	places := make([]Place, 0, len(results))
	for _, p := range results {
		if p != nil {
			places = append(places, *p)
		}
	}
	return places, nil
}

func (c *httpClient) Details(ctx context.Context, placeID string) (*Place, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", detailFields)
	params.Set("key", c.apiKey)
	params.Set("language", c.language)

	var details detailsResponse
	if err := c.get(ctx, "/details/json", params, &details); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("places: details %s", placeID))
	}
	if details.Status != "OK" {
		return nil, eris.Errorf("places: details %s status %s", placeID, details.Status)
	}
	return &details.Result, nil
}

func (c *httpClient) get(ctx context.Context, path string, params url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "places: rate limit wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "places: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "places: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "places: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("places: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "places: unmarshal response")
	}
	return nil
}
