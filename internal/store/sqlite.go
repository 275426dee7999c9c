package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/prospect-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. List columns are
// stored as JSON arrays.
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
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS organizations (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	norm_name     TEXT NOT NULL,
	industry      TEXT NOT NULL DEFAULT '',
	location      TEXT NOT NULL DEFAULT '',
	size          TEXT NOT NULL DEFAULT '',
	revenue       TEXT NOT NULL DEFAULT '',
	website       TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT '',
	compatibility TEXT NOT NULL DEFAULT '',
	opportunities TEXT NOT NULL DEFAULT '[]',
	source        TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS postings (
	id              TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL DEFAULT '',
	title           TEXT NOT NULL DEFAULT '',
	norm_title      TEXT NOT NULL DEFAULT '',
	location        TEXT NOT NULL DEFAULT '',
	norm_location   TEXT NOT NULL DEFAULT '',
	description     TEXT NOT NULL DEFAULT '',
	salary          TEXT NOT NULL DEFAULT '',
	seniority       TEXT NOT NULL DEFAULT '',
	type            TEXT NOT NULL DEFAULT '',
	sectors         TEXT NOT NULL DEFAULT '',
	apply_urls      TEXT NOT NULL DEFAULT '[]',
	score           INTEGER,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS contacts (
	id              TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL DEFAULT '',
	posting_id      TEXT NOT NULL DEFAULT '',
	name            TEXT NOT NULL DEFAULT '',
	norm_name       TEXT NOT NULL DEFAULT '',
	title           TEXT NOT NULL DEFAULT '',
	norm_title      TEXT NOT NULL DEFAULT '',
	emails          TEXT NOT NULL DEFAULT '[]',
	phone           TEXT NOT NULL DEFAULT '',
	profile_url     TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS profile (
	id              INTEGER PRIMARY KEY CHECK (id = 1),
	job_title       TEXT NOT NULL DEFAULT '',
	location        TEXT NOT NULL DEFAULT '',
	bio             TEXT NOT NULL DEFAULT '',
	work_experience TEXT NOT NULL DEFAULT '[]',
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_organizations_norm_name ON organizations(norm_name);
CREATE INDEX IF NOT EXISTS idx_postings_norm ON postings(norm_title, norm_location);
CREATE INDEX IF NOT EXISTS idx_contacts_norm ON contacts(norm_name, norm_title);
`

// Migrate creates the schema if needed.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const (
	sqliteOrgColumns     = `id, name, industry, location, size, revenue, website, description, compatibility, opportunities, source`
	sqlitePostingColumns = `id, organization_id, title, location, description, salary, seniority, type, sectors, apply_urls, score, created_at`
	sqliteContactColumns = `id, organization_id, posting_id, name, title, emails, phone, profile_url`
)

// placeholders returns "?, ?, ..." with n entries.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(values ...[]string) []any {
	var args []any
	for _, vs := range values {
		for _, v := range vs {
			args = append(args, v)
		}
	}
	return args
}

// LookupOrganizationsByName returns stored organizations matching any name.
func (s *SQLiteStore) LookupOrganizationsByName(ctx context.Context, names []string) ([]model.Organization, error) {
	norm := normalizeAll(names)
	if len(norm) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteOrgColumns+` FROM organizations WHERE norm_name IN (`+placeholders(len(norm))+`)`,
		stringArgs(norm)...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: lookup organizations")
	}
	return scanSQLiteOrganizations(rows)
}

// LookupPostingsByTitleAndLocation returns stored postings whose title is in
// titles and whose location is in locations.
func (s *SQLiteStore) LookupPostingsByTitleAndLocation(ctx context.Context, titles, locations []string) ([]model.Posting, error) {
	nt, nl := normalizeAll(titles), normalizeAll(locations)
	if len(nt) == 0 || len(nl) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqlitePostingColumns+` FROM postings WHERE norm_title IN (`+placeholders(len(nt))+`) AND norm_location IN (`+placeholders(len(nl))+`)`,
		stringArgs(nt, nl)...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: lookup postings")
	}
	return scanSQLitePostings(rows)
}

// LookupContactsByNameAndTitle returns stored contacts whose name is in names
// and whose title is in titles.
func (s *SQLiteStore) LookupContactsByNameAndTitle(ctx context.Context, names, titles []string) ([]model.Contact, error) {
	nn, nt := normalizeAll(names), normalizeAll(titles)
	if len(nn) == 0 || len(nt) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteContactColumns+` FROM contacts WHERE norm_name IN (`+placeholders(len(nn))+`) AND norm_title IN (`+placeholders(len(nt))+`)`,
		stringArgs(nn, nt)...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: lookup contacts")
	}
	return scanSQLiteContacts(rows)
}

// Save writes the batch in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, batch *model.Batch) error {
	if batch == nil {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, o := range batch.Organizations {
		opp, err := jsonList(o.Opportunities)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO organizations (id, name, norm_name, industry, location, size, revenue, website, description, compatibility, opportunities, source)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o.ID, o.Name, model.Normalize(o.Name), o.Industry, o.Location, o.Size, o.Revenue,
			o.Website, o.Description, o.Compatibility, opp, o.Source,
		); err != nil {
			return eris.Wrapf(err, "sqlite: save organization %s", o.ID)
		}
	}

	for _, p := range batch.Postings {
		urls, err := jsonList(p.ApplyURLs)
		if err != nil {
			return err
		}
		created := p.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO postings (id, organization_id, title, norm_title, location, norm_location, description, salary, seniority, type, sectors, apply_urls, score, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.OrgRef, p.Title, model.Normalize(p.Title), p.Location, model.Normalize(p.Location),
			p.Description, p.Salary, p.Seniority, p.Type, p.Sectors, urls, p.Score, created,
		); err != nil {
			return eris.Wrapf(err, "sqlite: save posting %s", p.ID)
		}
	}

	for _, c := range batch.Contacts {
		emails, err := jsonList(c.Emails)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO contacts (id, organization_id, posting_id, name, norm_name, title, norm_title, emails, phone, profile_url)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.OrgRef, c.PostingRef, c.Name, model.Normalize(c.Name), c.Title, model.Normalize(c.Title),
			emails, c.Phone, c.ProfileURL,
		); err != nil {
			return eris.Wrapf(err, "sqlite: save contact %s", c.ID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit save")
}

// ListOrganizations returns one page of organizations.
func (s *SQLiteStore) ListOrganizations(ctx context.Context, offset, limit int) ([]model.Organization, int, error) {
	total, err := s.count(ctx, "organizations")
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteOrgColumns+` FROM organizations ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, eris.Wrap(err, "sqlite: list organizations")
	}
	orgs, err := scanSQLiteOrganizations(rows)
	return orgs, total, err
}

// ListPostings returns one page of postings, best scores first.
func (s *SQLiteStore) ListPostings(ctx context.Context, offset, limit int) ([]model.Posting, int, error) {
	total, err := s.count(ctx, "postings")
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqlitePostingColumns+` FROM postings ORDER BY score IS NULL, score DESC, created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, eris.Wrap(err, "sqlite: list postings")
	}
	postings, err := scanSQLitePostings(rows)
	return postings, total, err
}

// ListContacts returns one page of contacts.
func (s *SQLiteStore) ListContacts(ctx context.Context, offset, limit int) ([]model.Contact, int, error) {
	total, err := s.count(ctx, "contacts")
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteContactColumns+` FROM contacts ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, eris.Wrap(err, "sqlite: list contacts")
	}
	contacts, err := scanSQLiteContacts(rows)
	return contacts, total, err
}

func (s *SQLiteStore) count(ctx context.Context, table string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM `+table).Scan(&n); err != nil {
		return 0, eris.Wrapf(err, "sqlite: count %s", table)
	}
	return n, nil
}

// GetProfile returns the stored profile or nil.
func (s *SQLiteStore) GetProfile(ctx context.Context) (*model.Profile, error) {
	var p model.Profile
	var work string
	err := s.db.QueryRowContext(ctx,
		`SELECT job_title, location, bio, work_experience FROM profile WHERE id = 1`,
	).Scan(&p.JobTitle, &p.Location, &p.Bio, &work)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get profile")
	}
	if err := json.Unmarshal([]byte(work), &p.WorkExperience); err != nil {
		return nil, eris.Wrap(err, "sqlite: decode work experience")
	}
	return &p, nil
}

// UpsertProfile replaces the stored profile.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, profile model.Profile) error {
	work, err := marshalWork(profile.WorkExperience)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profile (id, job_title, location, bio, work_experience, updated_at) VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET job_title = excluded.job_title, location = excluded.location, bio = excluded.bio,
		work_experience = excluded.work_experience, updated_at = excluded.updated_at`,
		profile.JobTitle, profile.Location, profile.Bio, string(work), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: upsert profile")
}

func jsonList(values []string) (string, error) {
	data, err := json.Marshal(nonNil(values))
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal list")
	}
	return string(data), nil
}

func parseList(raw string) ([]string, error) {
	var out []string
	if raw == "" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, eris.Wrap(err, "sqlite: decode list")
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func scanSQLiteOrganizations(rows *sql.Rows) ([]model.Organization, error) {
	defer rows.Close()
	var out []model.Organization
	for rows.Next() {
		var o model.Organization
		var opp string
		if err := rows.Scan(&o.ID, &o.Name, &o.Industry, &o.Location, &o.Size, &o.Revenue,
			&o.Website, &o.Description, &o.Compatibility, &opp, &o.Source); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan organization")
		}
		var err error
		if o.Opportunities, err = parseList(opp); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate organizations")
}

func scanSQLitePostings(rows *sql.Rows) ([]model.Posting, error) {
	defer rows.Close()
	var out []model.Posting
	for rows.Next() {
		var p model.Posting
		var urls string
		var score sql.NullInt64
		if err := rows.Scan(&p.ID, &p.OrgRef, &p.Title, &p.Location, &p.Description, &p.Salary,
			&p.Seniority, &p.Type, &p.Sectors, &urls, &score, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan posting")
		}
		if score.Valid {
			p.Score = model.IntPtr(int(score.Int64))
		}
		var err error
		if p.ApplyURLs, err = parseList(urls); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate postings")
}

func scanSQLiteContacts(rows *sql.Rows) ([]model.Contact, error) {
	defer rows.Close()
	var out []model.Contact
	for rows.Next() {
		var c model.Contact
		var emails string
		if err := rows.Scan(&c.ID, &c.OrgRef, &c.PostingRef, &c.Name, &c.Title,
			&emails, &c.Phone, &c.ProfileURL); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan contact")
		}
		var err error
		if c.Emails, err = parseList(emails); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate contacts")
}
