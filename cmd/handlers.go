package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sagyolink/leadscout/internal/model"
	"github.com/sagyolink/leadscout/internal/pipeline"
	"github.com/sagyolink/leadscout/internal/store"
)

// Japanese error messages surfaced to the dashboard.
const (
	msgCompanyIDRequired = "企業IDは必須です"
	msgCompanyNotFound   = "企業が見つかりません"
	msgNoWebsite         = "ウェブサイトが登録されていません"
	msgScrapeFailed      = "スクレイピングに失敗しました"
	msgSaveFailed        = "データの保存に失敗しました"
	msgFetchFailed       = "データの取得中にエラーが発生しました"
	msgDataNotFound      = "データが見つかりません"
	msgUpdateFailed      = "更新に失敗しました"
	msgInvalidBody       = "リクエスト形式が正しくありません"
	msgKeywordRequired   = "検索キーワードと地域は必須です"
	msgNoContent         = "サイトからコンテンツを取得できませんでした"
)

// api holds the HTTP handlers over the wired pipeline.
type api struct {
	env *appEnv
}

func newAPI(env *appEnv) *api {
	return &api{env: env}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	writeOK(w, map[string]string{"status": "ok"})
}

// GET /api/search?keyword=...&location=...&businessType=...
func (a *api) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	keyword := q.Get("keyword")
	location := q.Get("location")
	if keyword == "" || location == "" {
		writeError(w, http.StatusBadRequest, msgKeywordRequired)
		return
	}

	result, err := a.env.Pipeline.SearchPreview(r.Context(), keyword, location, model.BusinessType(q.Get("businessType")))
	if err != nil {
		zap.L().Error("api: search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgFetchFailed)
		return
	}
	writeOK(w, map[string]any{"success": true, "result": result})
}

// POST /api/companies/bulk-save
func (a *api) bulkSave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Candidates []model.Candidate `json:"candidates"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	outcomes := a.env.Pipeline.SaveCandidates(r.Context(), req.Candidates)

	type savedItem struct {
		PlaceID string `json:"place_id"`
		ID      string `json:"id,omitempty"`
		Saved   bool   `json:"saved"`
	}
	items := make([]savedItem, len(outcomes))
	saved := 0
	for i, o := range outcomes {
		items[i] = savedItem{PlaceID: o.PlaceID, ID: o.ID, Saved: o.Err == nil}
		if o.Err == nil {
			saved++
		}
	}
	writeOK(w, map[string]any{"success": true, "saved": saved, "results": items})
}

// GET /api/companies
func (a *api) listCompanies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	companies, err := a.env.Store.ListCompanies(r.Context(), store.CompanyFilter{
		Status:       model.Status(q.Get("status")),
		BusinessType: model.BusinessType(q.Get("businessType")),
	})
	if err != nil {
		zap.L().Error("api: list companies failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgFetchFailed)
		return
	}
	writeOK(w, map[string]any{"success": true, "companies": companies})
}

// GET /api/companies/{id}
func (a *api) getCompany(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, msgCompanyIDRequired)
		return
	}

	company, err := a.env.Store.GetCompany(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, msgCompanyNotFound)
			return
		}
		writeError(w, http.StatusInternalServerError, msgFetchFailed)
		return
	}
	writeOK(w, map[string]any{"success": true, "company": company})
}

// POST /api/companies/{id}/analyze
func (a *api) analyzeCompany(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, msgCompanyIDRequired)
		return
	}

	outcome, err := a.env.Pipeline.AnalyzeCompany(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, msgCompanyNotFound)
		case errors.Is(err, pipeline.ErrNoWebsite):
			writeError(w, http.StatusBadRequest, msgNoWebsite)
		case errors.Is(err, pipeline.ErrNoContent):
			writeError(w, http.StatusInternalServerError, msgNoContent)
		default:
			zap.L().Error("api: analyze failed", zap.String("company_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, msgScrapeFailed)
		}
		return
	}
	writeOK(w, map[string]any{"success": true, "outcome": outcome})
}

// POST /api/analyze
func (a *api) analyzeBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, msgCompanyIDRequired)
		return
	}

	outcomes := a.env.Pipeline.AnalyzeAll(r.Context(), req.IDs)

	type batchItem struct {
		CompanyID string                    `json:"company_id"`
		Outcome   *pipeline.AnalysisOutcome `json:"outcome,omitempty"`
		Error     string                    `json:"error,omitempty"`
	}
	items := make([]batchItem, len(outcomes))
	for i, o := range outcomes {
		items[i] = batchItem{CompanyID: o.CompanyID, Outcome: o.Outcome}
		if o.Err != nil {
			items[i].Error = o.Err.Error()
		}
	}
	writeOK(w, map[string]any{"success": true, "results": items})
}

// GET /api/companies/{id}/snapshot
func (a *api) getSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, msgCompanyIDRequired)
		return
	}

	snap, err := a.env.Store.GetSnapshot(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, msgDataNotFound)
			return
		}
		writeError(w, http.StatusInternalServerError, msgFetchFailed)
		return
	}
	writeOK(w, map[string]any{"success": true, "snapshot": snap})
}

// GET /api/companies/{id}/proposal
func (a *api) getProposal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, msgCompanyIDRequired)
		return
	}

	proposal, err := a.env.Store.GetProposal(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, msgDataNotFound)
			return
		}
		writeError(w, http.StatusInternalServerError, msgFetchFailed)
		return
	}
	writeOK(w, map[string]any{"success": true, "proposal": proposal})
}

// POST /api/companies/{id}/proposal?force=true
func (a *api) draftProposal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, msgCompanyIDRequired)
		return
	}
	force := r.URL.Query().Get("force") == "true"

	proposal, err := a.env.Pipeline.DraftProposal(r.Context(), id, force)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, msgCompanyNotFound)
			return
		}
		zap.L().Error("api: draft proposal failed", zap.String("company_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgSaveFailed)
		return
	}
	writeOK(w, map[string]any{"success": true, "proposal": proposal})
}

// PATCH /api/proposals/{companyID}
func (a *api) updateProposal(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	if companyID == "" {
		writeError(w, http.StatusBadRequest, msgCompanyIDRequired)
		return
	}

	var upd model.ProposalUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	proposal, err := a.env.Store.UpdateProposal(r.Context(), companyID, upd)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, msgDataNotFound)
			return
		}
		zap.L().Error("api: update proposal failed", zap.String("company_id", companyID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgUpdateFailed)
		return
	}
	writeOK(w, map[string]any{"success": true, "proposal": proposal})
}
