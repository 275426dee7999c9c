package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/db"
	"github.com/sells-group/prospect-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
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
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS organizations (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	industry      TEXT NOT NULL DEFAULT '',
	location      TEXT NOT NULL DEFAULT '',
	size          TEXT NOT NULL DEFAULT '',
	revenue       TEXT NOT NULL DEFAULT '',
	website       TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT '',
	compatibility TEXT NOT NULL DEFAULT '',
	opportunities TEXT[] NOT NULL DEFAULT '{}',
	source        TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS postings (
	id              TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL DEFAULT '',
	title           TEXT NOT NULL DEFAULT '',
	location        TEXT NOT NULL DEFAULT '',
	description     TEXT NOT NULL DEFAULT '',
	salary          TEXT NOT NULL DEFAULT '',
	seniority       TEXT NOT NULL DEFAULT '',
	type            TEXT NOT NULL DEFAULT '',
	sectors         TEXT NOT NULL DEFAULT '',
	apply_urls      TEXT[] NOT NULL DEFAULT '{}',
	score           INTEGER,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS contacts (
	id              TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL DEFAULT '',
	posting_id      TEXT NOT NULL DEFAULT '',
	name            TEXT NOT NULL DEFAULT '',
	title           TEXT NOT NULL DEFAULT '',
	emails          TEXT[] NOT NULL DEFAULT '{}',
	phone           TEXT NOT NULL DEFAULT '',
	profile_url     TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS profile (
	id              INTEGER PRIMARY KEY CHECK (id = 1),
	job_title       TEXT NOT NULL DEFAULT '',
	location        TEXT NOT NULL DEFAULT '',
	bio             TEXT NOT NULL DEFAULT '',
	work_experience JSONB NOT NULL DEFAULT '[]',
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_organizations_name ON organizations(lower(trim(name)));
CREATE INDEX IF NOT EXISTS idx_postings_title_location ON postings(lower(trim(title)), lower(trim(location)));
CREATE INDEX IF NOT EXISTS idx_postings_organization_id ON postings(organization_id);
CREATE INDEX IF NOT EXISTS idx_contacts_name_title ON contacts(lower(trim(name)), lower(trim(title)));
`

// Migrate creates the schema if needed.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

const (
	orgColumns     = `id, name, industry, location, size, revenue, website, description, compatibility, opportunities, source`
	postingColumns = `id, organization_id, title, location, description, salary, seniority, type, sectors, apply_urls, score, created_at`
	contactColumns = `id, organization_id, posting_id, name, title, emails, phone, profile_url`
)

var (
	orgInsert = db.InsertConfig{
		Table:        "organizations",
		Columns:      []string{"id", "name", "industry", "location", "size", "revenue", "website", "description", "compatibility", "opportunities", "source"},
		ConflictKeys: []string{"id"},
	}
	postingInsert = db.InsertConfig{
		Table:        "postings",
		Columns:      []string{"id", "organization_id", "title", "location", "description", "salary", "seniority", "type", "sectors", "apply_urls", "score", "created_at"},
		ConflictKeys: []string{"id"},
	}
	contactInsert = db.InsertConfig{
		Table:        "contacts",
		Columns:      []string{"id", "organization_id", "posting_id", "name", "title", "emails", "phone", "profile_url"},
		ConflictKeys: []string{"id"},
	}
)

// LookupOrganizationsByName returns stored organizations matching any name.
func (s *PostgresStore) LookupOrganizationsByName(ctx context.Context, names []string) ([]model.Organization, error) {
	if len(names) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+orgColumns+` FROM organizations WHERE lower(trim(name)) = ANY($1)`,
		normalizeAll(names),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: lookup organizations")
	}
	return collectOrganizations(rows)
}

// LookupPostingsByTitleAndLocation returns stored postings whose title is in
// titles and whose location is in locations.
func (s *PostgresStore) LookupPostingsByTitleAndLocation(ctx context.Context, titles, locations []string) ([]model.Posting, error) {
	if len(titles) == 0 || len(locations) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+postingColumns+` FROM postings WHERE lower(trim(title)) = ANY($1) AND lower(trim(location)) = ANY($2)`,
		normalizeAll(titles), normalizeAll(locations),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: lookup postings")
	}
	return collectPostings(rows)
}

// LookupContactsByNameAndTitle returns stored contacts whose name is in names
// and whose title is in titles.
func (s *PostgresStore) LookupContactsByNameAndTitle(ctx context.Context, names, titles []string) ([]model.Contact, error) {
	if len(names) == 0 || len(titles) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE lower(trim(name)) = ANY($1) AND lower(trim(title)) = ANY($2)`,
		normalizeAll(names), normalizeAll(titles),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: lookup contacts")
	}
	return collectContacts(rows)
}

// Save writes the batch in one transaction.
func (s *PostgresStore) Save(ctx context.Context, batch *model.Batch) error {
	if batch == nil {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := db.InsertMissing(ctx, tx, orgInsert, orgRows(batch.Organizations)); err != nil {
		return eris.Wrap(err, "postgres: save organizations")
	}
	if _, err := db.InsertMissing(ctx, tx, postingInsert, postingRows(batch.Postings)); err != nil {
		return eris.Wrap(err, "postgres: save postings")
	}
	if _, err := db.InsertMissing(ctx, tx, contactInsert, contactRows(batch.Contacts)); err != nil {
		return eris.Wrap(err, "postgres: save contacts")
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: commit save")
	}
	return nil
}

// ListOrganizations returns one page of organizations.
func (s *PostgresStore) ListOrganizations(ctx context.Context, offset, limit int) ([]model.Organization, int, error) {
	total, err := s.count(ctx, "organizations")
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+orgColumns+` FROM organizations ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, eris.Wrap(err, "postgres: list organizations")
	}
	orgs, err := collectOrganizations(rows)
	return orgs, total, err
}

// ListPostings returns one page of postings, best scores first.
func (s *PostgresStore) ListPostings(ctx context.Context, offset, limit int) ([]model.Posting, int, error) {
	total, err := s.count(ctx, "postings")
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+postingColumns+` FROM postings ORDER BY score DESC NULLS LAST, created_at DESC, id LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, eris.Wrap(err, "postgres: list postings")
	}
	postings, err := collectPostings(rows)
	return postings, total, err
}

// ListContacts returns one page of contacts.
func (s *PostgresStore) ListContacts(ctx context.Context, offset, limit int) ([]model.Contact, int, error) {
	total, err := s.count(ctx, "contacts")
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+contactColumns+` FROM contacts ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, eris.Wrap(err, "postgres: list contacts")
	}
	contacts, err := collectContacts(rows)
	return contacts, total, err
}

func (s *PostgresStore) count(ctx context.Context, table string) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM `+pgx.Identifier{table}.Sanitize()).Scan(&n); err != nil {
		return 0, eris.Wrapf(err, "postgres: count %s", table)
	}
	return n, nil
}

// GetProfile returns the stored profile or nil.
func (s *PostgresStore) GetProfile(ctx context.Context) (*model.Profile, error) {
	var p model.Profile
	var work []byte
	err := s.pool.QueryRow(ctx,
		`SELECT job_title, location, bio, work_experience FROM profile WHERE id = 1`,
	).Scan(&p.JobTitle, &p.Location, &p.Bio, &work)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get profile")
	}
	if err := json.Unmarshal(work, &p.WorkExperience); err != nil {
		return nil, eris.Wrap(err, "postgres: decode work experience")
	}
	return &p, nil
}

// UpsertProfile replaces the stored profile.
func (s *PostgresStore) UpsertProfile(ctx context.Context, profile model.Profile) error {
	work, err := marshalWork(profile.WorkExperience)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO profile (id, job_title, location, bio, work_experience, updated_at) VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET job_title = EXCLUDED.job_title, location = EXCLUDED.location, bio = EXCLUDED.bio,
		work_experience = EXCLUDED.work_experience, updated_at = EXCLUDED.updated_at`,
		profile.JobTitle, profile.Location, profile.Bio, work, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: upsert profile")
}

func collectOrganizations(rows pgx.Rows) ([]model.Organization, error) {
	defer rows.Close()
	var out []model.Organization
	for rows.Next() {
		var o model.Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.Industry, &o.Location, &o.Size, &o.Revenue,
			&o.Website, &o.Description, &o.Compatibility, &o.Opportunities, &o.Source); err != nil {
			return nil, eris.Wrap(err, "postgres: scan organization")
		}
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate organizations")
}

func collectPostings(rows pgx.Rows) ([]model.Posting, error) {
	defer rows.Close()
	var out []model.Posting
	for rows.Next() {
		var p model.Posting
		if err := rows.Scan(&p.ID, &p.OrgRef, &p.Title, &p.Location, &p.Description, &p.Salary,
			&p.Seniority, &p.Type, &p.Sectors, &p.ApplyURLs, &p.Score, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan posting")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate postings")
}

func collectContacts(rows pgx.Rows) ([]model.Contact, error) {
	defer rows.Close()
	var out []model.Contact
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.ID, &c.OrgRef, &c.PostingRef, &c.Name, &c.Title,
			&c.Emails, &c.Phone, &c.ProfileURL); err != nil {
			return nil, eris.Wrap(err, "postgres: scan contact")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate contacts")
}

func orgRows(orgs []model.Organization) [][]any {
	rows := make([][]any, 0, len(orgs))
	for _, o := range orgs {
		rows = append(rows, []any{o.ID, o.Name, o.Industry, o.Location, o.Size, o.Revenue,
			o.Website, o.Description, o.Compatibility, nonNil(o.Opportunities), o.Source})
	}
	return rows
}

func postingRows(postings []model.Posting) [][]any {
	rows := make([][]any, 0, len(postings))
	for _, p := range postings {
		created := p.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		rows = append(rows, []any{p.ID, p.OrgRef, p.Title, p.Location, p.Description, p.Salary,
			p.Seniority, p.Type, p.Sectors, nonNil(p.ApplyURLs), p.Score, created})
	}
	return rows
}

func contactRows(contacts []model.Contact) [][]any {
	rows := make([][]any, 0, len(contacts))
	for _, c := range contacts {
		rows = append(rows, []any{c.ID, c.OrgRef, c.PostingRef, c.Name, c.Title,
			nonNil(c.Emails), c.Phone, c.ProfileURL})
	}
	return rows
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func marshalWork(work []model.WorkExperience) ([]byte, error) {
	if work == nil {
		work = []model.WorkExperience{}
	}
	data, err := json.Marshal(work)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal work experience")
	}
	return data, nil
}
