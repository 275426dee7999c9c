package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := NewPostgresWithPool(mock)
	return s, mock
}

var orgColumnNames = []string{"id", "name", "industry", "location", "size", "revenue", "website", "description", "compatibility", "opportunities", "source"}

func TestPostgresStore_LookupOrganizationsByName(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM organizations WHERE lower\(trim\(name\)\) = ANY\(\$1\)`).
		WithArgs([]string{"acme", "globex"}).
		WillReturnRows(pgxmock.NewRows(orgColumnNames).
			AddRow("o1", "Acme", "Software", "Paris", "50", "1M", "https://acme.test", "desc", "80", []string{"cloud"}, "jsearch"))

	orgs, err := s.LookupOrganizationsByName(context.Background(), []string{" ACME", "Globex", "acme"})
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	assert.Equal(t, "o1", orgs[0].ID)
	assert.Equal(t, []string{"cloud"}, orgs[0].Opportunities)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LookupEmptyInput(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	ctx := context.Background()

	orgs, err := s.LookupOrganizationsByName(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, orgs)

	postings, err := s.LookupPostingsByTitleAndLocation(ctx, []string{"dev"}, nil)
	require.NoError(t, err)
	assert.Nil(t, postings)

	contacts, err := s.LookupContactsByNameAndTitle(ctx, nil, []string{"cto"})
	require.NoError(t, err)
	assert.Nil(t, contacts)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LookupContacts(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM contacts WHERE lower\(trim\(name\)\) = ANY\(\$1\) AND lower\(trim\(title\)\) = ANY\(\$2\)`).
		WithArgs([]string{"jane doe"}, []string{"cto"}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "organization_id", "posting_id", "name", "title", "emails", "phone", "profile_url"}).
			AddRow("c1", "o1", "p1", "Jane Doe", "CTO", []string{"jane@acme.test"}, "", "https://fr.linkedin.com/in/jane"))

	contacts, err := s.LookupContactsByNameAndTitle(context.Background(), []string{"Jane Doe"}, []string{"CTO"})
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, []string{"jane@acme.test"}, contacts[0].Emails)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LookupError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM organizations`).WillReturnError(errors.New("connection reset"))

	_, err := s.LookupOrganizationsByName(context.Background(), []string{"acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lookup organizations")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Save(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	batch := &model.Batch{
		Organizations: []model.Organization{{ID: "o1", Name: "acme"}},
		Postings:      []model.Posting{{ID: "p1", OrgRef: "o1", Title: "go dev"}},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_insert_organizations"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_insert_organizations"}, orgInsert.Columns).
		WillReturnResult(1)
	mock.ExpectExec(`INSERT INTO "organizations" .+ ON CONFLICT \("id"\) DO NOTHING`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_insert_postings"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_insert_postings"}, postingInsert.Columns).
		WillReturnResult(1)
	mock.ExpectExec(`INSERT INTO "postings" .+ ON CONFLICT \("id"\) DO NOTHING`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, s.Save(context.Background(), batch))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Save_RollsBackOnError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	batch := &model.Batch{Organizations: []model.Organization{{ID: "o1", Name: "acme"}}}

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.Save(context.Background(), batch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save organizations")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListOrganizations(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "organizations"`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery(`SELECT .+ FROM organizations ORDER BY created_at DESC, id LIMIT \$1 OFFSET \$2`).
		WithArgs(OrganizationPageSize, 5).
		WillReturnRows(pgxmock.NewRows(orgColumnNames).
			AddRow("o6", "Initech", "", "", "", "", "", "", "0", []string{}, "file").
			AddRow("o7", "Hooli", "", "", "", "", "", "", "0", []string{}, "file"))

	orgs, total, err := s.ListOrganizations(context.Background(), 5, OrganizationPageSize)
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	assert.Len(t, orgs, 2)
	assert.Equal(t, 2, Pages(total, OrganizationPageSize))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetProfile_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT job_title, location, bio, work_experience FROM profile WHERE id = 1`).
		WillReturnError(pgx.ErrNoRows)

	p, err := s.GetProfile(context.Background())
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetProfile(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM profile WHERE id = 1`).
		WillReturnRows(pgxmock.NewRows([]string{"job_title", "location", "bio", "work_experience"}).
			AddRow("Data Engineer", "Paris", "bio", []byte(`[{"position":"Engineer","company":"Acme","start_date":"2020-01","end_date":"Present"}]`)))

	p, err := s.GetProfile(context.Background())
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Data Engineer", p.JobTitle)
	require.Len(t, p.WorkExperience, 1)
	assert.Equal(t, "Present", p.WorkExperience[0].EndDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertProfile(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO profile .+ ON CONFLICT \(id\) DO UPDATE`).
		WithArgs("Data Engineer", "Paris", "", []byte("[]"), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertProfile(context.Background(), model.Profile{JobTitle: "Data Engineer", Location: "Paris"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
