package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

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

// --- Store mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) UpsertCompany(ctx context.Context, c model.Company) (*model.Company, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Company), args.Error(1)
}

func (m *mockStore) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Company), args.Error(1)
}

func (m *mockStore) GetCompanyByPlaceID(ctx context.Context, placeID string) (*model.Company, error) {
	args := m.Called(ctx, placeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Company), args.Error(1)
}

func (m *mockStore) ListCompanies(ctx context.Context, filter store.CompanyFilter) ([]model.Company, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Company), args.Error(1)
}

func (m *mockStore) UpdateCompanyAnalysis(ctx context.Context, id string, upd model.AnalysisUpdate) error {
	args := m.Called(ctx, id, upd)
	return args.Error(0)
}

func (m *mockStore) UpdateCompanyStatus(ctx context.Context, id string, status model.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockStore) UpsertSnapshot(ctx context.Context, snap model.SiteSnapshot) (*model.SiteSnapshot, error) {
	args := m.Called(ctx, snap)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SiteSnapshot), args.Error(1)
}

func (m *mockStore) GetSnapshot(ctx context.Context, companyID string) (*model.SiteSnapshot, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SiteSnapshot), args.Error(1)
}

func (m *mockStore) UpsertProposal(ctx context.Context, p model.Proposal) (*model.Proposal, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Proposal), args.Error(1)
}

func (m *mockStore) GetProposal(ctx context.Context, companyID string) (*model.Proposal, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Proposal), args.Error(1)
}

func (m *mockStore) UpdateProposal(ctx context.Context, companyID string, upd model.ProposalUpdate) (*model.Proposal, error) {
	args := m.Called(ctx, companyID, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Proposal), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// --- Places mock ---

type mockPlaces struct {
	mock.Mock
}

func (m *mockPlaces) Search(ctx context.Context, query, location string) ([]places.Place, error) {
	args := m.Called(ctx, query, location)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]places.Place), args.Error(1)
}

func (m *mockPlaces) Details(ctx context.Context, placeID string) (*places.Place, error) {
	args := m.Called(ctx, placeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*places.Place), args.Error(1)
}

// --- Metadata mock ---

type mockMetadata struct {
	mock.Mock
}

func (m *mockMetadata) Fetch(ctx context.Context, urls []string) ([]metadata.PageMeta, error) {
	args := m.Called(ctx, urls)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]metadata.PageMeta), args.Error(1)
}

// --- Triage mock ---

type mockTriage struct {
	mock.Mock
}

func (m *mockTriage) Score(ctx context.Context, candidates []model.Candidate) []triage.Result {
	args := m.Called(ctx, candidates)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]triage.Result)
}

// --- Selector mock ---

type mockSelector struct {
	mock.Mock
}

func (m *mockSelector) Select(ctx context.Context, website string, hints selector.Hints) selector.Result {
	args := m.Called(ctx, website, hints)
	return args.Get(0).(selector.Result)
}

// --- Fetcher mock ---

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, urls []string) []fetch.Result {
	args := m.Called(ctx, urls)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]fetch.Result)
}

// --- Analyzer mock ---

type mockAnalyzer struct {
	mock.Mock
}

func (m *mockAnalyzer) ExtractServices(ctx context.Context, content string) []string {
	args := m.Called(ctx, content)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]string)
}

func (m *mockAnalyzer) Score(ctx context.Context, name string, businessType model.BusinessType, content string, services []string) analyze.AnalysisResult {
	args := m.Called(ctx, name, businessType, content, services)
	return args.Get(0).(analyze.AnalysisResult)
}

// --- Drafter mock ---

type mockDrafter struct {
	mock.Mock
}

func (m *mockDrafter) Draft(ctx context.Context, companyName, companyInfo, content string, services []string) propose.Email {
	args := m.Called(ctx, companyName, companyInfo, content, services)
	return args.Get(0).(propose.Email)
}
