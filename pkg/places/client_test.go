package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, NewClient("test-key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
}

func detailsPayload(placeID, name, website string) map[string]any {
	return map[string]any{
		"status": "OK",
		"result": map[string]any{
			"place_id":          placeID,
			"name":              name,
			"formatted_address": "東京都千代田区1-1",
			"website":           website,
			"rating":            4.2,
		},
	}
}

func TestSearch_ResolvesDetailsInOrder(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/textsearch/json":
			assert.Equal(t, "倉庫 大阪", r.URL.Query().Get("query"))
			assert.Equal(t, "ja", r.URL.Query().Get("language"))
			json.NewEncoder(w).Encode(map[string]any{
				"status": "OK",
				"results": []map[string]any{
					{"place_id": "p1"}, {"place_id": "p2"}, {"place_id": "p3"},
				},
			})
		case "/details/json":
			id := r.URL.Query().Get("place_id")
			json.NewEncoder(w).Encode(detailsPayload(id, "会社"+id, "https://"+id+".example.jp"))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	got, err := client.Search(context.Background(), "倉庫", "大阪")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"p1", "p2", "p3"}, []string{got[0].PlaceID, got[1].PlaceID, got[2].PlaceID})
}

func TestSearch_ZeroResults(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": "ZERO_RESULTS"})
	})

	got, err := client.Search(context.Background(), "倉庫", "大阪")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearch_APIErrorStatus(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": "REQUEST_DENIED"})
	})

	_, err := client.Search(context.Background(), "倉庫", "大阪")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REQUEST_DENIED")
}

func TestSearch_DropsFailedDetailLookups(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/textsearch/json":
			json.NewEncoder(w).Encode(map[string]any{
				"status": "OK",
				"results": []map[string]any{
					{"place_id": "good"}, {"place_id": "bad"},
				},
			})
		case "/details/json":
			if r.URL.Query().Get("place_id") == "bad" {
				json.NewEncoder(w).Encode(map[string]any{"status": "NOT_FOUND"})
				return
			}
			json.NewEncoder(w).Encode(detailsPayload("good", "良い会社", "https://good.example.jp"))
		}
	})

	got, err := client.Search(context.Background(), "倉庫", "大阪")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "good", got[0].PlaceID)
}

func TestSearch_CapsDetailLookups(t *testing.T) {
	var detailCalls atomic.Int64
	results := make([]map[string]any, 30)
	for i := range results {
		results[i] = map[string]any{"place_id": fmt.Sprintf("p%02d", i)}
	}

	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/textsearch/json":
			json.NewEncoder(w).Encode(map[string]any{"status": "OK", "results": results})
		case "/details/json":
			detailCalls.Add(1)
			json.NewEncoder(w).Encode(detailsPayload(r.URL.Query().Get("place_id"), "x", ""))
		}
	})

	got, err := client.Search(context.Background(), "倉庫", "大阪")
	require.NoError(t, err)
	assert.Len(t, got, maxDetailLookups)
	assert.Equal(t, int64(maxDetailLookups), detailCalls.Load())
}

func TestDetails_HTTPError(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.Details(context.Background(), "p1")
	assert.Error(t, err)
}
