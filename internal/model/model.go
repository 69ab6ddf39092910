// Package model defines the core domain types for the lead pipeline.
package model

import "time"

// Status tracks how far a company has progressed through the pipeline.
// Transitions are strictly forward: pending → scraped → emailed.
type Status string

const (
	StatusPending Status = "pending"
	StatusScraped Status = "scraped"
	StatusEmailed Status = "emailed"
)

// statusRanks orders statuses for monotonicity checks.
var statusRanks = map[Status]int{
	StatusPending: 0,
	StatusScraped: 1,
	StatusEmailed: 2,
}

// Rank returns the ordering position of the status, or -1 for unknown values.
func (s Status) Rank() int {
	r, ok := statusRanks[s]
	if !ok {
		return -1
	}
	return r
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusRanks[s]
	return ok
}

// CanAdvanceTo reports whether moving from s to next is a legal (forward or
// same-rank) transition.
func (s Status) CanAdvanceTo(next Status) bool {
	return next.Valid() && next.Rank() >= s.Rank()
}

// CompanyType classifies how a company could relate to the agency.
type CompanyType string

const (
	CompanyTypeOutsource CompanyType = "outsource" // likely to outsource manual work to us
	CompanyTypePartner   CompanyType = "partner"   // potential subcontracting partner
	CompanyTypeUnknown   CompanyType = "unknown"
)

// BusinessType identifies the coarse industry segment used for keyword
// selection and triage hints.
type BusinessType string

const (
	BusinessLogistics     BusinessType = "logistics"
	BusinessManufacturing BusinessType = "manufacturing"
	BusinessRetail        BusinessType = "retail"
	BusinessFood          BusinessType = "food"
	BusinessPrinting      BusinessType = "printing"
	BusinessOther         BusinessType = "other"
)

// Candidate is a business discovered by a search, enriched with page
// metadata and a triage score. Candidates are transient: they live only in
// the search preview and are discarded unless explicitly persisted.
type Candidate struct {
	PlaceID         string       `json:"place_id"`
	Name            string       `json:"name"`
	Address         string       `json:"address,omitempty"`
	Phone           string       `json:"phone,omitempty"`
	Website         string       `json:"website,omitempty"`
	Rating          float64      `json:"rating,omitempty"`
	BusinessType    BusinessType `json:"business_type,omitempty"`
	SearchKeyword   string       `json:"search_keyword,omitempty"`
	SearchArea      string       `json:"search_area,omitempty"`
	QuickScore      int          `json:"quick_score"` // 1-3
	QuickReason     string       `json:"quick_reason,omitempty"`
	MetaTitle       string       `json:"meta_title,omitempty"`
	MetaDescription string       `json:"meta_description,omitempty"`
	Selected        bool         `json:"selected"`
}

// Company is a persisted lead. PlaceID is the natural key: upserts conflict
// on it, so a place can never appear twice.
type Company struct {
	ID              string       `json:"id"`
	PlaceID         string       `json:"place_id"`
	Name            string       `json:"name"`
	Address         string       `json:"address,omitempty"`
	Phone           string       `json:"phone,omitempty"`
	Website         string       `json:"website,omitempty"`
	Rating          float64      `json:"rating,omitempty"`
	BusinessType    BusinessType `json:"business_type,omitempty"`
	SearchKeyword   string       `json:"search_keyword,omitempty"`
	SearchArea      string       `json:"search_area,omitempty"`
	QuickScore      int          `json:"quick_score,omitempty"`
	QuickReason     string       `json:"quick_reason,omitempty"`
	MetaTitle       string       `json:"meta_title,omitempty"`
	MetaDescription string       `json:"meta_description,omitempty"`
	AIScore         *int         `json:"ai_score,omitempty"`      // outsource-need, 0-100
	PartnerScore    *int         `json:"partner_score,omitempty"` // partner-need, 0-100
	CompanyType     CompanyType  `json:"company_type,omitempty"`
	AIReason        string       `json:"ai_reason,omitempty"`
	Status          Status       `json:"status"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// AnalysisUpdate carries the scoring fields written back to a company after
// a successful site analysis.
type AnalysisUpdate struct {
	AIScore      int         `json:"ai_score"`
	PartnerScore int         `json:"partner_score"`
	CompanyType  CompanyType `json:"company_type"`
	AIReason     string      `json:"ai_reason"`
}

// SiteSnapshot holds the combined scraped content for a company. One row per
// company; re-analysis overwrites it wholesale.
type SiteSnapshot struct {
	ID                  string    `json:"id"`
	CompanyID           string    `json:"company_id"`
	SourceURLs          string    `json:"source_urls,omitempty"` // comma-joined fetch targets
	Content             string    `json:"content,omitempty"`
	ExtractedServices   []string  `json:"extracted_services,omitempty"`
	ManualWorkPotential string    `json:"manual_work_potential,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// ProposalStatus is the lifecycle of a drafted outreach email.
type ProposalStatus string

const (
	ProposalDraft ProposalStatus = "draft"
	ProposalSent  ProposalStatus = "sent"
)

// Proposal is the outreach email drafted for a company. One row per company.
// Edited marks a manual user edit; auto-regeneration must not overwrite an
// edited proposal unless explicitly forced.
type Proposal struct {
	ID        string         `json:"id"`
	CompanyID string         `json:"company_id"`
	Subject   string         `json:"subject,omitempty"`
	Body      string         `json:"body,omitempty"`
	Status    ProposalStatus `json:"status"`
	Edited    bool           `json:"edited"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ProposalUpdate is the user-edit path for a proposal. Nil fields are left
// unchanged.
type ProposalUpdate struct {
	Subject *string         `json:"subject,omitempty"`
	Body    *string         `json:"body,omitempty"`
	Status  *ProposalStatus `json:"status,omitempty"`
}
