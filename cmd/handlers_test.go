package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagyolink/leadscout/internal/analyze"
	"github.com/sagyolink/leadscout/internal/fetch"
	"github.com/sagyolink/leadscout/internal/metadata"
	"github.com/sagyolink/leadscout/internal/model"
	"github.com/sagyolink/leadscout/internal/pipeline"
	"github.com/sagyolink/leadscout/internal/propose"
	"github.com/sagyolink/leadscout/internal/selector"
	"github.com/sagyolink/leadscout/internal/store"
	"github.com/sagyolink/leadscout/internal/triage"
	"github.com/sagyolink/leadscout/pkg/places"
)

// Stub pipeline collaborators. The handler tests exercise the HTTP surface
// over a real in-memory store; the external services are canned.

type stubPlaces struct{ results []places.Place }

func (s *stubPlaces) Search(context.Context, string, string) ([]places.Place, error) {
	return s.results, nil
}

func (s *stubPlaces) Details(context.Context, string) (*places.Place, error) {
	return nil, nil
}

type stubMetadata struct{}

func (stubMetadata) Fetch(_ context.Context, urls []string) ([]metadata.PageMeta, error) {
	metas := make([]metadata.PageMeta, len(urls))
	for i, u := range urls {
		metas[i] = metadata.PageMeta{URL: u}
	}
	return metas, nil
}

type stubTriage struct{}

func (stubTriage) Score(_ context.Context, candidates []model.Candidate) []triage.Result {
	results := make([]triage.Result, len(candidates))
	for i, c := range candidates {
		results[i] = triage.Result{PlaceID: c.PlaceID, Score: 3, Reason: "高い可能性"}
	}
	return results
}

type stubSelector struct{}

func (stubSelector) Select(_ context.Context, website string, _ selector.Hints) selector.Result {
	return selector.Result{URLs: []string{website}, Strategy: selector.StrategyFallbackRoot}
}

type stubFetcher struct{ content string }

func (s *stubFetcher) Fetch(_ context.Context, urls []string) []fetch.Result {
	results := make([]fetch.Result, len(urls))
	for i, u := range urls {
		results[i] = fetch.Result{URL: u, Page: &fetch.Page{URL: u, Content: s.content}}
	}
	return results
}

type stubAnalyzer struct{}

func (stubAnalyzer) ExtractServices(context.Context, string) []string {
	return []string{"検品"}
}

func (stubAnalyzer) Score(context.Context, string, model.BusinessType, string, []string) analyze.AnalysisResult {
	return analyze.AnalysisResult{
		Score:        80,
		PartnerScore: 20,
		CompanyType:  model.CompanyTypeOutsource,
		Reason:       "検品ニーズが高い",
	}
}

type stubDrafter struct{}

func (stubDrafter) Draft(_ context.Context, companyName, _, _ string, _ []string) propose.Email {
	return propose.Email{Subject: "ご提案: " + companyName, Body: "本文"}
}

func newTestAPI(t *testing.T) (*api, store.Store) {
	t.Helper()

	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	p := pipeline.New(
		pipeline.Config{},
		st,
		&stubPlaces{results: []places.Place{
			{PlaceID: "p1", Name: "山田物流株式会社", Website: "https://yamada.example.jp"},
		}},
		stubMetadata{},
		stubTriage{},
		stubSelector{},
		&stubFetcher{content: strings.Repeat("検品・梱包サービスのご案内。", 10)},
		stubAnalyzer{},
		stubDrafter{},
	)

	return newAPI(&appEnv{Store: st, Pipeline: p}), st
}

func newTestRouter(a *api) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", a.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/search", a.search)
		r.Post("/analyze", a.analyzeBatch)
		r.Route("/companies", func(r chi.Router) {
			r.Get("/", a.listCompanies)
			r.Post("/bulk-save", a.bulkSave)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", a.getCompany)
				r.Post("/analyze", a.analyzeCompany)
				r.Get("/snapshot", a.getSnapshot)
				r.Get("/proposal", a.getProposal)
				r.Post("/proposal", a.draftProposal)
			})
		})
		r.Patch("/proposals/{companyID}", a.updateProposal)
	})
	return r
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func seedTestCompany(t *testing.T, st store.Store) *model.Company {
	t.Helper()
	company, err := st.UpsertCompany(context.Background(), model.Company{
		PlaceID:      "p1",
		Name:         "山田物流株式会社",
		Website:      "https://yamada.example.jp",
		BusinessType: model.BusinessLogistics,
		Status:       model.StatusPending,
	})
	require.NoError(t, err)
	return company
}

func TestHealthEndpoint(t *testing.T) {
	a, _ := newTestAPI(t)
	rec := doRequest(t, newTestRouter(a), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestSearchEndpoint(t *testing.T) {
	a, _ := newTestAPI(t)
	rec := doRequest(t, newTestRouter(a), http.MethodGet, "/api/search?keyword=物流&location=大阪", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Result  struct {
			Candidates []model.Candidate `json:"candidates"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Result.Candidates, 1)
	assert.Equal(t, 3, resp.Result.Candidates[0].QuickScore)
	assert.True(t, resp.Result.Candidates[0].Selected)
}

func TestSearchEndpoint_MissingParams(t *testing.T) {
	a, _ := newTestAPI(t)
	rec := doRequest(t, newTestRouter(a), http.MethodGet, "/api/search?keyword=物流", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "必須")
}

func TestBulkSaveAndGetCompany(t *testing.T) {
	a, _ := newTestAPI(t)
	router := newTestRouter(a)

	body := `{"candidates": [{"place_id": "p1", "name": "山田物流株式会社", "website": "https://yamada.example.jp", "quick_score": 3}]}`
	rec := doRequest(t, router, http.MethodPost, "/api/companies/bulk-save", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var saveResp struct {
		Saved   int `json:"saved"`
		Results []struct {
			PlaceID string `json:"place_id"`
			ID      string `json:"id"`
			Saved   bool   `json:"saved"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saveResp))
	require.Equal(t, 1, saveResp.Saved)
	companyID := saveResp.Results[0].ID
	require.NotEmpty(t, companyID)

	rec = doRequest(t, router, http.MethodGet, "/api/companies/"+companyID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "山田物流株式会社")
}

func TestGetCompany_NotFound(t *testing.T) {
	a, _ := newTestAPI(t)
	rec := doRequest(t, newTestRouter(a), http.MethodGet, "/api/companies/no-such-id", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "企業が見つかりません")
}

func TestAnalyzeEndpoint_FullFlow(t *testing.T) {
	a, st := newTestAPI(t)
	router := newTestRouter(a)
	company := seedTestCompany(t, st)

	rec := doRequest(t, router, http.MethodPost, "/api/companies/"+company.ID+"/analyze", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	updated, err := st.GetCompany(context.Background(), company.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusScraped, updated.Status)
	require.NotNil(t, updated.AIScore)
	assert.Equal(t, 80, *updated.AIScore)

	rec = doRequest(t, router, http.MethodGet, "/api/companies/"+company.ID+"/snapshot", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "検品")
}

func TestAnalyzeEndpoint_NoWebsite(t *testing.T) {
	a, st := newTestAPI(t)
	company, err := st.UpsertCompany(context.Background(), model.Company{
		PlaceID: "p-nosite",
		Name:    "サイトなし社",
		Status:  model.StatusPending,
	})
	require.NoError(t, err)

	rec := doRequest(t, newTestRouter(a), http.MethodPost, "/api/companies/"+company.ID+"/analyze", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ウェブサイトが登録されていません")
}

func TestAnalyzeBatchEndpoint(t *testing.T) {
	a, st := newTestAPI(t)
	company := seedTestCompany(t, st)

	body := `{"ids": ["` + company.ID + `", "missing-id"]}`
	rec := doRequest(t, newTestRouter(a), http.MethodPost, "/api/analyze", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Results []struct {
			CompanyID string `json:"company_id"`
			Error     string `json:"error"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.Empty(t, resp.Results[0].Error)
	assert.NotEmpty(t, resp.Results[1].Error)
}

func TestProposalLifecycleOverHTTP(t *testing.T) {
	a, st := newTestAPI(t)
	router := newTestRouter(a)
	company := seedTestCompany(t, st)

	// Draft
	rec := doRequest(t, router, http.MethodPost, "/api/companies/"+company.ID+"/proposal", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "ご提案: 山田物流株式会社")

	updated, err := st.GetCompany(context.Background(), company.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusEmailed, updated.Status)

	// User edit marks the proposal edited.
	rec = doRequest(t, router, http.MethodPatch, "/api/proposals/"+company.ID, `{"subject": "手直し済み件名"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"edited":true`)

	// Redraft without force keeps the edit.
	rec = doRequest(t, router, http.MethodPost, "/api/companies/"+company.ID+"/proposal", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "手直し済み件名")

	// Forced redraft overwrites.
	rec = doRequest(t, router, http.MethodPost, "/api/companies/"+company.ID+"/proposal?force=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ご提案: 山田物流株式会社")
}

func TestGetProposal_NotFound(t *testing.T) {
	a, st := newTestAPI(t)
	company := seedTestCompany(t, st)

	rec := doRequest(t, newTestRouter(a), http.MethodGet, "/api/companies/"+company.ID+"/proposal", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "データが見つかりません")
}
