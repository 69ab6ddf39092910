// Package pipeline orchestrates the lead flow: search and triage, candidate
// persistence, per-company site analysis, and proposal drafting.
package pipeline

import (
	"context"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sagyolink/leadscout/internal/analyze"
	"github.com/sagyolink/leadscout/internal/fetch"
	"github.com/sagyolink/leadscout/internal/metadata"
	"github.com/sagyolink/leadscout/internal/model"
	"github.com/sagyolink/leadscout/internal/propose"
	"github.com/sagyolink/leadscout/internal/selector"
	"github.com/sagyolink/leadscout/internal/store"
	"github.com/sagyolink/leadscout/internal/triage"
	"github.com/sagyolink/leadscout/pkg/places"
)

// ErrNotFound mirrors the store sentinel for callers that only import this
// package.
var ErrNotFound = store.ErrNotFound

// ErrNoWebsite is returned when analysis is requested for a company without
// a website.
var ErrNoWebsite = eris.New("pipeline: company has no website")

// ErrNoContent is returned when no selected URL produced scrapeable content.
// The company's status is left untouched.
var ErrNoContent = eris.New("pipeline: no content scraped")

// contentFetcher is the slice of fetch.Chain the orchestrator needs.
type contentFetcher interface {
	Fetch(ctx context.Context, urls []string) []fetch.Result
}

// Config carries the orchestration limits.
type Config struct {
	MaxPages               int
	MaxContentChars        int
	MaxConcurrentCompanies int
}

func (c Config) withDefaults() Config {
	if c.MaxPages <= 0 {
		c.MaxPages = 5
	}
	if c.MaxContentChars <= 0 {
		c.MaxContentChars = 10000
	}
	if c.MaxConcurrentCompanies <= 0 {
		c.MaxConcurrentCompanies = 5
	}
	return c
}

// Pipeline wires the discovery, scraping, and drafting components over the
// store.
type Pipeline struct {
	cfg      Config
	store    store.Store
	places   places.Client
	metadata metadata.Fetcher
	triage   triage.Scorer
	selector selector.Selector
	fetcher  contentFetcher
	analyzer analyze.Analyzer
	drafter  propose.Drafter
}

// New creates a Pipeline with all dependencies.
func New(
	cfg Config,
	st store.Store,
	placesClient places.Client,
	metadataFetcher metadata.Fetcher,
	triageScorer triage.Scorer,
	pageSelector selector.Selector,
	fetcher contentFetcher,
	analyzer analyze.Analyzer,
	drafter propose.Drafter,
) *Pipeline {
	return &Pipeline{
		cfg:      cfg.withDefaults(),
		store:    st,
		places:   placesClient,
		metadata: metadataFetcher,
		triage:   triageScorer,
		selector: pageSelector,
		fetcher:  fetcher,
		analyzer: analyzer,
		drafter:  drafter,
	}
}

// SearchResult is the outcome of a search-and-triage preview.
type SearchResult struct {
	Candidates     []model.Candidate `json:"candidates"`
	TotalFound     int               `json:"total_found"`
	ExcludedNoSite int               `json:"excluded_no_site"`
	SearchKeyword  string            `json:"search_keyword"`
	SearchArea     string            `json:"search_area"`
}

// SearchPreview searches for businesses, fetches site metadata, and triages
// the batch. Nothing is persisted; candidates are discarded unless passed to
// SaveCandidates.
func (p *Pipeline) SearchPreview(ctx context.Context, keyword, location string, businessType model.BusinessType) (*SearchResult, error) {
	log := zap.L().With(zap.String("keyword", keyword), zap.String("location", location))

	found, err := p.places.Search(ctx, keyword, location)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: place search")
	}

	// Places without a website cannot be analyzed downstream.
	var withSite []places.Place
	for _, pl := range found {
		if strings.TrimSpace(pl.Website) != "" {
			withSite = append(withSite, pl)
		}
	}
	excluded := len(found) - len(withSite)
	log.Info("pipeline: search complete",
		zap.Int("found", len(found)),
		zap.Int("excluded_no_site", excluded),
	)

	candidates := make([]model.Candidate, len(withSite))
	urls := make([]string, len(withSite))
	for i, pl := range withSite {
		candidates[i] = model.Candidate{
			PlaceID:       pl.PlaceID,
			Name:          pl.Name,
			Address:       pl.FormattedAddress,
			Phone:         pl.PhoneNumber,
			Website:       pl.Website,
			Rating:        pl.Rating,
			BusinessType:  businessType,
			SearchKeyword: keyword,
			SearchArea:    location,
		}
		urls[i] = pl.Website
	}

	// Metadata is best effort; triage works from name and type alone when
	// the batch probe fails.
	if len(urls) > 0 {
		metas, metaErr := p.metadata.Fetch(ctx, urls)
		if metaErr != nil {
			log.Warn("pipeline: metadata fetch failed", zap.Error(metaErr))
		} else {
			for i := range candidates {
				candidates[i].MetaTitle = metas[i].Title
				candidates[i].MetaDescription = metas[i].Description
			}
		}
	}

	for i, r := range p.triage.Score(ctx, candidates) {
		candidates[i].QuickScore = r.Score
		candidates[i].QuickReason = r.Reason
		candidates[i].Selected = r.Score == 3
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].QuickScore > candidates[j].QuickScore
	})

	return &SearchResult{
		Candidates:     candidates,
		TotalFound:     len(found),
		ExcludedNoSite: excluded,
		SearchKeyword:  keyword,
		SearchArea:     location,
	}, nil
}

// SaveOutcome reports one candidate's persistence result.
type SaveOutcome struct {
	PlaceID string `json:"place_id"`
	ID      string `json:"id,omitempty"`
	Err     error  `json:"-"`
}

// SaveCandidates upserts the given candidates as pending companies. Each
// upsert is independent; failures are collected, not fatal.
func (p *Pipeline) SaveCandidates(ctx context.Context, candidates []model.Candidate) []SaveOutcome {
	outcomes := make([]SaveOutcome, len(candidates))
	for i, c := range candidates {
		saved, err := p.store.UpsertCompany(ctx, model.Company{
			PlaceID:         c.PlaceID,
			Name:            c.Name,
			Address:         c.Address,
			Phone:           c.Phone,
			Website:         c.Website,
			Rating:          c.Rating,
			BusinessType:    c.BusinessType,
			SearchKeyword:   c.SearchKeyword,
			SearchArea:      c.SearchArea,
			QuickScore:      c.QuickScore,
			QuickReason:     c.QuickReason,
			MetaTitle:       c.MetaTitle,
			MetaDescription: c.MetaDescription,
			Status:          model.StatusPending,
		})
		if err != nil {
			zap.L().Warn("pipeline: candidate save failed",
				zap.String("place_id", c.PlaceID),
				zap.Error(err),
			)
			outcomes[i] = SaveOutcome{PlaceID: c.PlaceID, Err: err}
			continue
		}
		outcomes[i] = SaveOutcome{PlaceID: c.PlaceID, ID: saved.ID}
	}
	return outcomes
}

// AnalysisOutcome is the result of one company's full scrape-and-score run.
type AnalysisOutcome struct {
	Company      *model.Company         `json:"company"`
	Snapshot     *model.SiteSnapshot    `json:"snapshot"`
	Analysis     analyze.AnalysisResult `json:"analysis"`
	Strategy     selector.Strategy      `json:"strategy"`
	PagesScraped int                    `json:"pages_scraped"`
}

// AnalyzeCompany runs the full selector, fetch, and scoring pipeline for one
// company and persists the outcome. Status moves to scraped on success; on
// any hard failure (including zero scraped content) nothing is persisted and
// the status is untouched.
func (p *Pipeline) AnalyzeCompany(ctx context.Context, companyID string) (*AnalysisOutcome, error) {
	company, err := p.store.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(company.Website) == "" {
		return nil, ErrNoWebsite
	}

	log := zap.L().With(zap.String("company_id", companyID), zap.String("name", company.Name))

	sel := p.selector.Select(ctx, company.Website, selector.Hints{
		BusinessType:  company.BusinessType,
		SearchKeyword: company.SearchKeyword,
	})
	urls := sel.URLs
	if len(urls) > p.cfg.MaxPages {
		urls = urls[:p.cfg.MaxPages]
	}
	log.Info("pipeline: pages selected",
		zap.String("strategy", string(sel.Strategy)),
		zap.Int("urls", len(urls)),
	)

	results := p.fetcher.Fetch(ctx, urls)
	content, sources := fetch.Combine(results, p.cfg.MaxContentChars)
	if content == "" {
		return nil, ErrNoContent
	}

	services := p.analyzer.ExtractServices(ctx, content)
	analysis := p.analyzer.Score(ctx, company.Name, company.BusinessType, content, services)
	manualWork := analyze.ComposeManualWork(services, analysis.ManualWorkPotential)

	snapshot, err := p.store.UpsertSnapshot(ctx, model.SiteSnapshot{
		CompanyID:           companyID,
		SourceURLs:          strings.Join(sources, ", "),
		Content:             content,
		ExtractedServices:   services,
		ManualWorkPotential: manualWork,
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: save snapshot")
	}

	if err := p.store.UpdateCompanyAnalysis(ctx, companyID, model.AnalysisUpdate{
		AIScore:      analysis.Score,
		PartnerScore: analysis.PartnerScore,
		CompanyType:  analysis.CompanyType,
		AIReason:     analysis.Reason,
	}); err != nil {
		return nil, eris.Wrap(err, "pipeline: save analysis")
	}

	if err := p.store.UpdateCompanyStatus(ctx, companyID, model.StatusScraped); err != nil {
		return nil, eris.Wrap(err, "pipeline: advance status")
	}

	updated, err := p.store.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	return &AnalysisOutcome{
		Company:      updated,
		Snapshot:     snapshot,
		Analysis:     analysis,
		Strategy:     sel.Strategy,
		PagesScraped: len(sources),
	}, nil
}

// BatchOutcome reports one company's result within an AnalyzeAll run.
type BatchOutcome struct {
	CompanyID string           `json:"company_id"`
	Outcome   *AnalysisOutcome `json:"outcome,omitempty"`
	Err       error            `json:"-"`
}

// AnalyzeAll fans AnalyzeCompany out over the given companies with bounded
// concurrency. Results align with the input order and one company's failure
// never aborts the others.
func (p *Pipeline) AnalyzeAll(ctx context.Context, companyIDs []string) []BatchOutcome {
	outcomes := make([]BatchOutcome, len(companyIDs))

	g := new(errgroup.Group)
	g.SetLimit(p.cfg.MaxConcurrentCompanies)
	for i, id := range companyIDs {
		g.Go(func() error {
			out, err := p.AnalyzeCompany(ctx, id)
			outcomes[i] = BatchOutcome{CompanyID: id, Outcome: out, Err: err}
			return nil
		})
	}
	g.Wait() //nolint:errcheck

	return outcomes
}

// DraftProposal drafts (or redrafts) the outreach email for a company and
// advances its status to emailed. An edited proposal is only overwritten
// when force is set; drafting itself never hard-fails.
func (p *Pipeline) DraftProposal(ctx context.Context, companyID string, force bool) (*model.Proposal, error) {
	company, err := p.store.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	if existing, getErr := p.store.GetProposal(ctx, companyID); getErr == nil {
		if existing.Edited && !force {
			zap.L().Info("pipeline: keeping edited proposal",
				zap.String("company_id", companyID),
			)
			return existing, nil
		}
	}

	// Snapshot content is optional; drafting degrades to company fields only.
	var content string
	var services []string
	if snap, snapErr := p.store.GetSnapshot(ctx, companyID); snapErr == nil {
		content = snap.Content
		services = snap.ExtractedServices
	}

	email := p.drafter.Draft(ctx, company.Name, composeInfo(company), content, services)
	if propose.IsFailureSubject(email.Subject) {
		email.Subject = propose.DefaultSubject(company.Name)
	}

	proposal, err := p.store.UpsertProposal(ctx, model.Proposal{
		CompanyID: companyID,
		Subject:   email.Subject,
		Body:      email.Body,
		Status:    model.ProposalDraft,
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: save proposal")
	}

	if err := p.store.UpdateCompanyStatus(ctx, companyID, model.StatusEmailed); err != nil {
		return nil, eris.Wrap(err, "pipeline: advance status")
	}

	return proposal, nil
}

// composeInfo joins the company's non-empty fields into the labeled info
// string fed to the drafter.
func composeInfo(c *model.Company) string {
	var parts []string
	if c.Address != "" {
		parts = append(parts, "住所: "+c.Address)
	}
	if c.Phone != "" {
		parts = append(parts, "電話: "+c.Phone)
	}
	if c.BusinessType != "" {
		parts = append(parts, "業種: "+string(c.BusinessType))
	}
	if c.AIReason != "" {
		parts = append(parts, "分析結果: "+c.AIReason)
	}
	return strings.Join(parts, "\n")
}
