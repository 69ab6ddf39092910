// Package store persists companies, site snapshots, and proposals behind a
// driver-agnostic interface with Postgres and SQLite implementations.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sagyolink/leadscout/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = eris.New("store: not found")

// ErrStatusRegression is returned when a status update would move a company
// backwards in the pipeline.
var ErrStatusRegression = eris.New("store: status regression")

// CompanyFilter specifies criteria for listing companies.
type CompanyFilter struct {
	Status       model.Status       `json:"status,omitempty"`
	BusinessType model.BusinessType `json:"business_type,omitempty"`
	Limit        int                `json:"limit,omitempty"`
	Offset       int                `json:"offset,omitempty"`
}

// Store defines the persistence interface for the lead pipeline.
type Store interface {
	// Companies. UpsertCompany conflicts on place_id: discovery fields are
	// refreshed, analysis fields and status are preserved.
	UpsertCompany(ctx context.Context, c model.Company) (*model.Company, error)
	GetCompany(ctx context.Context, id string) (*model.Company, error)
	GetCompanyByPlaceID(ctx context.Context, placeID string) (*model.Company, error)
	ListCompanies(ctx context.Context, filter CompanyFilter) ([]model.Company, error)
	UpdateCompanyAnalysis(ctx context.Context, id string, upd model.AnalysisUpdate) error
	// UpdateCompanyStatus enforces forward-only transitions and returns
	// ErrStatusRegression on an attempt to move backwards.
	UpdateCompanyStatus(ctx context.Context, id string, status model.Status) error

	// Site snapshots, one per company; re-analysis overwrites.
	UpsertSnapshot(ctx context.Context, snap model.SiteSnapshot) (*model.SiteSnapshot, error)
	GetSnapshot(ctx context.Context, companyID string) (*model.SiteSnapshot, error)

	// Proposals, one per company.
	UpsertProposal(ctx context.Context, p model.Proposal) (*model.Proposal, error)
	GetProposal(ctx context.Context, companyID string) (*model.Proposal, error)
	// UpdateProposal applies a user edit. Changing subject or body marks the
	// proposal as edited.
	UpdateProposal(ctx context.Context, companyID string, upd model.ProposalUpdate) (*model.Proposal, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
