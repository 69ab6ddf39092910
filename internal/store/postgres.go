package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sagyolink/leadscout/internal/model"
)

// Pool abstracts the pgx connection pool so tests can substitute pgxmock.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id               TEXT PRIMARY KEY,
	place_id         TEXT NOT NULL UNIQUE,
	name             TEXT NOT NULL,
	address          TEXT NOT NULL DEFAULT '',
	phone            TEXT NOT NULL DEFAULT '',
	website          TEXT NOT NULL DEFAULT '',
	rating           DOUBLE PRECISION NOT NULL DEFAULT 0,
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
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS site_snapshots (
	id                    TEXT PRIMARY KEY,
	company_id            TEXT NOT NULL UNIQUE REFERENCES companies(id),
	source_urls           TEXT NOT NULL DEFAULT '',
	content               TEXT NOT NULL DEFAULT '',
	extracted_services    JSONB NOT NULL DEFAULT '[]',
	manual_work_potential TEXT NOT NULL DEFAULT '',
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS proposals (
	id         TEXT PRIMARY KEY,
	company_id TEXT NOT NULL UNIQUE REFERENCES companies(id),
	subject    TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'draft',
	edited     BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_companies_status ON companies(status);
CREATE INDEX IF NOT EXISTS idx_companies_business_type ON companies(business_type);
CREATE INDEX IF NOT EXISTS idx_companies_place_id ON companies(place_id);
`

const companyColumns = `id, place_id, name, address, phone, website, rating, business_type, search_keyword, search_area, quick_score, quick_reason, meta_title, meta_description, ai_score, partner_score, company_type, ai_reason, status, created_at, updated_at`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) UpsertCompany(ctx context.Context, c model.Company) (*model.Company, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = model.StatusPending
	}
	now := time.Now().UTC()

	row := s.pool.QueryRow(ctx,
		`INSERT INTO companies (id, place_id, name, address, phone, website, rating, business_type, search_keyword, search_area, quick_score, quick_reason, meta_title, meta_description, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		 ON CONFLICT (place_id) DO UPDATE SET
		   name = EXCLUDED.name, address = EXCLUDED.address, phone = EXCLUDED.phone,
		   website = EXCLUDED.website, rating = EXCLUDED.rating,
		   business_type = EXCLUDED.business_type, search_keyword = EXCLUDED.search_keyword,
		   search_area = EXCLUDED.search_area, quick_score = EXCLUDED.quick_score,
		   quick_reason = EXCLUDED.quick_reason, meta_title = EXCLUDED.meta_title,
		   meta_description = EXCLUDED.meta_description, updated_at = EXCLUDED.updated_at
		 RETURNING `+companyColumns,
		c.ID, c.PlaceID, c.Name, c.Address, c.Phone, c.Website, c.Rating,
		string(c.BusinessType), c.SearchKeyword, c.SearchArea, c.QuickScore,
		c.QuickReason, c.MetaTitle, c.MetaDescription, string(c.Status), now, now,
	)

	saved, err := scanCompany(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert company %s", c.PlaceID)
	}
	return saved, nil
}

func (s *PostgresStore) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = $1`, id)

	c, err := scanCompany(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get company %s", id)
	}
	return c, nil
}

func (s *PostgresStore) GetCompanyByPlaceID(ctx context.Context, placeID string) (*model.Company, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE place_id = $1`, placeID)

	c, err := scanCompany(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get company by place %s", placeID)
	}
	return c, nil
}

func (s *PostgresStore) ListCompanies(ctx context.Context, filter CompanyFilter) ([]model.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.BusinessType != "" {
		query += fmt.Sprintf(` AND business_type = $%d`, argIdx)
		args = append(args, string(filter.BusinessType))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list companies")
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan company")
		}
		companies = append(companies, *c)
	}
	return companies, eris.Wrap(rows.Err(), "postgres: list companies iterate")
}

func (s *PostgresStore) UpdateCompanyAnalysis(ctx context.Context, id string, upd model.AnalysisUpdate) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE companies SET ai_score = $1, partner_score = $2, company_type = $3, ai_reason = $4, updated_at = $5 WHERE id = $6`,
		upd.AIScore, upd.PartnerScore, string(upd.CompanyType), upd.AIReason, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update company analysis %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateCompanyStatus(ctx context.Context, id string, status model.Status) error {
	var current model.Status
	err := s.pool.QueryRow(ctx,
		`SELECT status FROM companies WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return eris.Wrapf(err, "postgres: get company status %s", id)
	}

	if !current.CanAdvanceTo(status) {
		return ErrStatusRegression
	}
	if current == status {
		return nil
	}

	_, err = s.pool.Exec(ctx,
		`UPDATE companies SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id,
	)
	return eris.Wrapf(err, "postgres: update company status %s", id)
}

func (s *PostgresStore) UpsertSnapshot(ctx context.Context, snap model.SiteSnapshot) (*model.SiteSnapshot, error) {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	now := time.Now().UTC()

	servicesJSON, err := json.Marshal(snap.ExtractedServices)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal services")
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO site_snapshots (id, company_id, source_urls, content, extracted_services, manual_work_potential, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (company_id) DO UPDATE SET
		   source_urls = EXCLUDED.source_urls, content = EXCLUDED.content,
		   extracted_services = EXCLUDED.extracted_services,
		   manual_work_potential = EXCLUDED.manual_work_potential,
		   updated_at = EXCLUDED.updated_at
		 RETURNING id, company_id, source_urls, content, extracted_services, manual_work_potential, created_at, updated_at`,
		snap.ID, snap.CompanyID, snap.SourceURLs, snap.Content, servicesJSON,
		snap.ManualWorkPotential, now, now,
	)

	saved, err := scanSnapshot(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert snapshot for %s", snap.CompanyID)
	}
	return saved, nil
}

func (s *PostgresStore) GetSnapshot(ctx context.Context, companyID string) (*model.SiteSnapshot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, company_id, source_urls, content, extracted_services, manual_work_potential, created_at, updated_at
		 FROM site_snapshots WHERE company_id = $1`, companyID)

	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get snapshot for %s", companyID)
	}
	return snap, nil
}

func (s *PostgresStore) UpsertProposal(ctx context.Context, p model.Proposal) (*model.Proposal, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = model.ProposalDraft
	}
	now := time.Now().UTC()

	row := s.pool.QueryRow(ctx,
		`INSERT INTO proposals (id, company_id, subject, body, status, edited, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (company_id) DO UPDATE SET
		   subject = EXCLUDED.subject, body = EXCLUDED.body, status = EXCLUDED.status,
		   edited = EXCLUDED.edited, updated_at = EXCLUDED.updated_at
		 RETURNING id, company_id, subject, body, status, edited, created_at, updated_at`,
		p.ID, p.CompanyID, p.Subject, p.Body, string(p.Status), p.Edited, now, now,
	)

	saved, err := scanProposal(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert proposal for %s", p.CompanyID)
	}
	return saved, nil
}

func (s *PostgresStore) GetProposal(ctx context.Context, companyID string) (*model.Proposal, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, company_id, subject, body, status, edited, created_at, updated_at
		 FROM proposals WHERE company_id = $1`, companyID)

	p, err := scanProposal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get proposal for %s", companyID)
	}
	return p, nil
}

func (s *PostgresStore) UpdateProposal(ctx context.Context, companyID string, upd model.ProposalUpdate) (*model.Proposal, error) {
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

	row := s.pool.QueryRow(ctx,
		`UPDATE proposals SET subject = $1, body = $2, status = $3, edited = $4, updated_at = $5
		 WHERE company_id = $6
		 RETURNING id, company_id, subject, body, status, edited, created_at, updated_at`,
		current.Subject, current.Body, string(current.Status), edited, time.Now().UTC(), companyID,
	)

	saved, err := scanProposal(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: update proposal for %s", companyID)
	}
	return saved, nil
}

// pgx row scanners

type pgxScannable interface {
	Scan(dest ...any) error
}

func scanCompany(row pgxScannable) (*model.Company, error) {
	var c model.Company
	err := row.Scan(&c.ID, &c.PlaceID, &c.Name, &c.Address, &c.Phone, &c.Website,
		&c.Rating, &c.BusinessType, &c.SearchKeyword, &c.SearchArea,
		&c.QuickScore, &c.QuickReason, &c.MetaTitle, &c.MetaDescription,
		&c.AIScore, &c.PartnerScore, &c.CompanyType, &c.AIReason,
		&c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanSnapshot(row pgxScannable) (*model.SiteSnapshot, error) {
	var snap model.SiteSnapshot
	var servicesJSON []byte
	err := row.Scan(&snap.ID, &snap.CompanyID, &snap.SourceURLs, &snap.Content,
		&servicesJSON, &snap.ManualWorkPotential, &snap.CreatedAt, &snap.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(servicesJSON) > 0 {
		if err := json.Unmarshal(servicesJSON, &snap.ExtractedServices); err != nil {
			return nil, eris.Wrap(err, "unmarshal extracted services")
		}
	}
	return &snap, nil
}

func scanProposal(row pgxScannable) (*model.Proposal, error) {
	var p model.Proposal
	err := row.Scan(&p.ID, &p.CompanyID, &p.Subject, &p.Body, &p.Status,
		&p.Edited, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
