package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sagyolink/leadscout/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id               TEXT PRIMARY KEY,
	place_id         TEXT NOT NULL UNIQUE,
	name             TEXT NOT NULL,
	address          TEXT NOT NULL DEFAULT '',
	phone            TEXT NOT NULL DEFAULT '',
	website          TEXT NOT NULL DEFAULT '',
	rating           REAL NOT NULL DEFAULT 0,
	business_type    TEXT NOT NULL DEFAULT '',
	search_keyword   TEXT NOT NULL DEFAULT '',
	search_area      TEXT NOT NULL DEFAULT '',
	quick_score      INTEGER NOT NULL DEFAULT 0,
	quick_reason     TEXT NOT NULL DEFAULT '',
	meta_title       TEXT NOT NULL DEFAULT '',
	meta_description TEXT NOT NULL DEFAULT '',
	ai_score         INTEGER,
	partner_score    INTEGER,
	company_type     TEXT NOT NULL DEFAULT '',
	ai_reason        TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL DEFAULT 'pending',
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS site_snapshots (
	id                    TEXT PRIMARY KEY,
	company_id            TEXT NOT NULL UNIQUE REFERENCES companies(id),
	source_urls           TEXT NOT NULL DEFAULT '',
	content               TEXT NOT NULL DEFAULT '',
	extracted_services    TEXT NOT NULL DEFAULT '[]',
	manual_work_potential TEXT NOT NULL DEFAULT '',
	created_at            DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at            DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS proposals (
	id         TEXT PRIMARY KEY,
	company_id TEXT NOT NULL UNIQUE REFERENCES companies(id),
	subject    TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'draft',
	edited     INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_companies_status ON companies(status);
CREATE INDEX IF NOT EXISTS idx_companies_business_type ON companies(business_type);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertCompany(ctx context.Context, c model.Company) (*model.Company, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = model.StatusPending
	}
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO companies (id, place_id, name, address, phone, website, rating, business_type, search_keyword, search_area, quick_score, quick_reason, meta_title, meta_description, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (place_id) DO UPDATE SET
		   name = excluded.name, address = excluded.address, phone = excluded.phone,
		   website = excluded.website, rating = excluded.rating,
		   business_type = excluded.business_type, search_keyword = excluded.search_keyword,
		   search_area = excluded.search_area, quick_score = excluded.quick_score,
		   quick_reason = excluded.quick_reason, meta_title = excluded.meta_title,
		   meta_description = excluded.meta_description, updated_at = excluded.updated_at`,
		c.ID, c.PlaceID, c.Name, c.Address, c.Phone, c.Website, c.Rating,
		string(c.BusinessType), c.SearchKeyword, c.SearchArea, c.QuickScore,
		c.QuickReason, c.MetaTitle, c.MetaDescription, string(c.Status), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: upsert company %s", c.PlaceID)
	}

	return s.GetCompanyByPlaceID(ctx, c.PlaceID)
}

func (s *SQLiteStore) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = ?`, id)
	return scanSQLiteCompany(row)
}

func (s *SQLiteStore) GetCompanyByPlaceID(ctx context.Context, placeID string) (*model.Company, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE place_id = ?`, placeID)
	return scanSQLiteCompany(row)
}

func (s *SQLiteStore) ListCompanies(ctx context.Context, filter CompanyFilter) ([]model.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.BusinessType != "" {
		query += ` AND business_type = ?`
		args = append(args, string(filter.BusinessType))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list companies")
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		c, err := scanSQLiteCompany(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, *c)
	}
	return companies, eris.Wrap(rows.Err(), "sqlite: list companies iterate")
}

func (s *SQLiteStore) UpdateCompanyAnalysis(ctx context.Context, id string, upd model.AnalysisUpdate) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE companies SET ai_score = ?, partner_score = ?, company_type = ?, ai_reason = ?, updated_at = ? WHERE id = ?`,
		upd.AIScore, upd.PartnerScore, string(upd.CompanyType), upd.AIReason, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update company analysis %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) UpdateCompanyStatus(ctx context.Context, id string, status model.Status) error {
	var current model.Status
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM companies WHERE id = ?`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return eris.Wrapf(err, "sqlite: get company status %s", id)
	}

	if !current.CanAdvanceTo(status) {
		return ErrStatusRegression
	}
	if current == status {
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE companies SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
	return eris.Wrapf(err, "sqlite: update company status %s", id)
}

func (s *SQLiteStore) UpsertSnapshot(ctx context.Context, snap model.SiteSnapshot) (*model.SiteSnapshot, error) {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	now := time.Now().UTC()

	servicesJSON, err := json.Marshal(snap.ExtractedServices)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal services")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO site_snapshots (id, company_id, source_urls, content, extracted_services, manual_work_potential, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (company_id) DO UPDATE SET
		   source_urls = excluded.source_urls, content = excluded.content,
		   extracted_services = excluded.extracted_services,
		   manual_work_potential = excluded.manual_work_potential,
		   updated_at = excluded.updated_at`,
		snap.ID, snap.CompanyID, snap.SourceURLs, snap.Content, string(servicesJSON),
		snap.ManualWorkPotential, now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: upsert snapshot for %s", snap.CompanyID)
	}

	return s.GetSnapshot(ctx, snap.CompanyID)
}

func (s *SQLiteStore) GetSnapshot(ctx context.Context, companyID string) (*model.SiteSnapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, company_id, source_urls, content, extracted_services, manual_work_potential, created_at, updated_at
		 FROM site_snapshots WHERE company_id = ?`, companyID)

	var snap model.SiteSnapshot
	var servicesJSON string
	err := row.Scan(&snap.ID, &snap.CompanyID, &snap.SourceURLs, &snap.Content,
		&servicesJSON, &snap.ManualWorkPotential, &snap.CreatedAt, &snap.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get snapshot for %s", companyID)
	}
	if servicesJSON != "" {
		if err := json.Unmarshal([]byte(servicesJSON), &snap.ExtractedServices); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal extracted services")
		}
	}
	return &snap, nil
}

func (s *SQLiteStore) UpsertProposal(ctx context.Context, p model.Proposal) (*model.Proposal, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = model.ProposalDraft
	}
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO proposals (id, company_id, subject, body, status, edited, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (company_id) DO UPDATE SET
		   subject = excluded.subject, body = excluded.body, status = excluded.status,
		   edited = excluded.edited, updated_at = excluded.updated_at`,
		p.ID, p.CompanyID, p.Subject, p.Body, string(p.Status), p.Edited, now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: upsert proposal for %s", p.CompanyID)
	}

	return s.GetProposal(ctx, p.CompanyID)
}

func (s *SQLiteStore) GetProposal(ctx context.Context, companyID string) (*model.Proposal, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, company_id, subject, body, status, edited, created_at, updated_at
		 FROM proposals WHERE company_id = ?`, companyID)

	var p model.Proposal
	err := row.Scan(&p.ID, &p.CompanyID, &p.Subject, &p.Body, &p.Status,
		&p.Edited, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get proposal for %s", companyID)
	}
	return &p, nil
}

func (s *SQLiteStore) UpdateProposal(ctx context.Context, companyID string, upd model.ProposalUpdate) (*model.Proposal, error) {
	current, err := s.GetProposal(ctx, companyID)
	if err != nil {
		return nil, err
	}

	edited := current.Edited
	if upd.Subject != nil {
		current.Subject = *upd.Subject
		edited = true
	}
	if upd.Body != nil {
		current.Body = *upd.Body
		edited = true
	}
	if upd.Status != nil {
		current.Status = *upd.Status
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE proposals SET subject = ?, body = ?, status = ?, edited = ?, updated_at = ? WHERE company_id = ?`,
		current.Subject, current.Body, string(current.Status), edited, time.Now().UTC(), companyID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update proposal for %s", companyID)
	}

	return s.GetProposal(ctx, companyID)
}

func scanSQLiteCompany(row scannable) (*model.Company, error) {
	var c model.Company
	var aiScore, partnerScore sql.NullInt64

	err := row.Scan(&c.ID, &c.PlaceID, &c.Name, &c.Address, &c.Phone, &c.Website,
		&c.Rating, &c.BusinessType, &c.SearchKeyword, &c.SearchArea,
		&c.QuickScore, &c.QuickReason, &c.MetaTitle, &c.MetaDescription,
		&aiScore, &partnerScore, &c.CompanyType, &c.AIReason,
		&c.Status, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan company")
	}

	if aiScore.Valid {
		v := int(aiScore.Int64)
		c.AIScore = &v
	}
	if partnerScore.Valid {
		v := int(partnerScore.Int64)
		c.PartnerScore = &v
	}
	return &c, nil
}

type scannable interface {
	Scan(dest ...any) error
}
