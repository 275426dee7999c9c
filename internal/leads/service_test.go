package leads

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/task"
)

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) LookupOrganizationsByName(ctx context.Context, names []string) ([]model.Organization, error) {
	args := m.Called(ctx, names)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Organization), args.Error(1)
}

func (m *mockStore) LookupPostingsByTitleAndLocation(ctx context.Context, titles, locations []string) ([]model.Posting, error) {
	args := m.Called(ctx, titles, locations)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Posting), args.Error(1)
}

func (m *mockStore) LookupContactsByNameAndTitle(ctx context.Context, names, titles []string) ([]model.Contact, error) {
	args := m.Called(ctx, names, titles)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Contact), args.Error(1)
}

func (m *mockStore) Save(ctx context.Context, batch *model.Batch) error {
	return m.Called(ctx, batch).Error(0)
}

func (m *mockStore) ListOrganizations(ctx context.Context, offset, limit int) ([]model.Organization, int, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).([]model.Organization), args.Int(1), args.Error(2)
}

func (m *mockStore) ListPostings(ctx context.Context, offset, limit int) ([]model.Posting, int, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).([]model.Posting), args.Int(1), args.Error(2)
}

func (m *mockStore) ListContacts(ctx context.Context, offset, limit int) ([]model.Contact, int, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).([]model.Contact), args.Int(1), args.Error(2)
}

func (m *mockStore) GetProfile(ctx context.Context) (*model.Profile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Profile), args.Error(1)
}

func (m *mockStore) UpsertProfile(ctx context.Context, profile model.Profile) error {
	return m.Called(ctx, profile).Error(0)
}

func (m *mockStore) Migrate(ctx context.Context) error { return m.Called(ctx).Error(0) }

func (m *mockStore) Close() error { return m.Called().Error(0) }

// --- Stubs ---

type stubAdapter struct {
	batch *model.Batch
	err   error
}

func (s stubAdapter) Fetch(_ context.Context, _ string, _ []string) (*model.Batch, error) {
	return s.batch, s.err
}

type stubScorer struct {
	score int
	err   error
	calls int
}

func (s *stubScorer) ScorePostings(_ context.Context, _ model.Profile, postings []model.Posting) ([]model.Posting, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]model.Posting, len(postings))
	for i, p := range postings {
		score := s.score
		p.Score = &score
		out[i] = p
	}
	return out, nil
}

// passEnricher returns the batch unchanged, plus any extra contacts.
type passEnricher struct {
	extra []model.Contact
	err   error
	got   *model.Batch
}

func (p *passEnricher) Enrich(_ context.Context, batch *model.Batch, _ model.Profile) (*model.Batch, error) {
	p.got = batch
	if p.err != nil {
		return nil, p.err
	}
	out := *batch
	out.Contacts = append(append([]model.Contact{}, batch.Contacts...), p.extra...)
	return &out, nil
}

// failingRegistry rejects terminal updates.
type failingRegistry struct {
	*task.Memory
}

func (f failingRegistry) Update(ctx context.Context, id, message string, status model.TaskStatus) (model.Task, error) {
	if status.Terminal() {
		return model.Task{}, errors.New("registry unavailable")
	}
	return f.Memory.Update(ctx, id, message, status)
}

func testProfile() *model.Profile {
	return &model.Profile{JobTitle: "Go developer", Location: "Paris", Bio: "backend"}
}

func sampleBatch() *model.Batch {
	return &model.Batch{
		Organizations: []model.Organization{
			{ID: "o1", Name: "Acme"},
			{ID: "o2", Name: "Globex"},
		},
		Postings: []model.Posting{
			{ID: "p1", OrgRef: "o1", Title: "Go Developer", Location: "Paris", Description: "build services"},
			{ID: "p2", OrgRef: "o2", Title: "SRE", Location: "Lyon", Description: "run services"},
		},
		Contacts: []model.Contact{
			{ID: "c1", OrgRef: "Acme", Name: "Jane Doe", Title: "Go Developer"},
		},
	}
}

func emptyLookups(st *mockStore) {
	st.On("LookupContactsByNameAndTitle", mock.Anything, mock.Anything, mock.Anything).Return([]model.Contact{}, nil)
	st.On("LookupOrganizationsByName", mock.Anything, mock.Anything).Return([]model.Organization{}, nil)
	st.On("LookupPostingsByTitleAndLocation", mock.Anything, mock.Anything, mock.Anything).Return([]model.Posting{}, nil)
}

func TestInsertLeads_NoProfile(t *testing.T) {
	st := &mockStore{}
	st.On("GetProfile", mock.Anything).Return(nil, nil)
	reg := task.NewMemory()
	svc := NewService(st, reg, &stubScorer{}, &passEnricher{})

	_, err := svc.InsertLeads(context.Background(), "t1", stubAdapter{batch: sampleBatch()}, "paris", []string{"go"})
	require.ErrorIs(t, err, ErrNoProfile)

	got, err := reg.Status(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskFailed, got.Status)
	assert.Equal(t, "Profile not found. Please create a profile before inserting leads.", got.Message)
	st.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestInsertLeads_EmptyFetch(t *testing.T) {
	tests := []struct {
		name    string
		batch   *model.Batch
		message string
	}{
		{
			name:    "no postings",
			batch:   &model.Batch{Organizations: []model.Organization{{ID: "o1", Name: "Acme"}}},
			message: "No jobs found in the leads data.",
		},
		{
			name:    "no organizations",
			batch:   &model.Batch{Postings: []model.Posting{{ID: "p1", Title: "SRE"}}},
			message: "No companies found in the leads data.",
		},
		{
			name:    "nil batch",
			message: "No jobs found in the leads data.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &mockStore{}
			st.On("GetProfile", mock.Anything).Return(testProfile(), nil)
			reg := task.NewMemory()
			svc := NewService(st, reg, &stubScorer{}, &passEnricher{})

			_, err := svc.InsertLeads(context.Background(), "t1", stubAdapter{batch: tt.batch}, "paris", nil)
			require.Error(t, err)

			got, _ := reg.Status(context.Background(), "t1")
			assert.Equal(t, model.TaskFailed, got.Status)
			assert.Equal(t, tt.message, got.Message)
			st.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}
}

func TestInsertLeads_Success(t *testing.T) {
	st := &mockStore{}
	st.On("GetProfile", mock.Anything).Return(testProfile(), nil)
	emptyLookups(st)
	var saved *model.Batch
	st.On("Save", mock.Anything, mock.AnythingOfType("*model.Batch")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*model.Batch) }).
		Return(nil)

	reg := task.NewMemory()
	scorer := &stubScorer{score: 72}
	svc := NewService(st, reg, scorer, &passEnricher{})

	result, err := svc.InsertLeads(context.Background(), "t1", stubAdapter{batch: sampleBatch()}, "paris", []string{"go"})
	require.NoError(t, err)

	assert.Equal(t, "Insert of 2 companies", result.Companies)
	assert.Equal(t, "insert of 2 jobs", result.Jobs)
	assert.Equal(t, "insert of 1 contacts", result.Contacts)

	got, _ := reg.Status(context.Background(), "t1")
	assert.Equal(t, model.TaskCompleted, got.Status)
	assert.Equal(t,
		"Lead insertion completed with companies : Insert of 2 companies, jobs : insert of 2 jobs, and contacts : insert of 1 contacts saved",
		got.Message)

	require.NotNil(t, saved)
	require.Len(t, saved.Postings, 2)
	for _, p := range saved.Postings {
		require.NotNil(t, p.Score)
		assert.Equal(t, 72, *p.Score)
	}
	require.Len(t, saved.Contacts, 1)
	assert.Equal(t, "o1", saved.Contacts[0].OrgRef)
	assert.Equal(t, "p1", saved.Contacts[0].PostingRef)
	assert.Equal(t, 1, scorer.calls)
}

func TestInsertLeads_ReconcilesAgainstStore(t *testing.T) {
	st := &mockStore{}
	st.On("GetProfile", mock.Anything).Return(testProfile(), nil)
	st.On("LookupContactsByNameAndTitle", mock.Anything, []string{"Jane Doe"}, []string{"Go Developer"}).
		Return([]model.Contact{}, nil)
	st.On("LookupOrganizationsByName", mock.Anything, []string{"Acme", "Globex"}).
		Return([]model.Organization{{ID: "stored-acme", Name: "ACME"}}, nil)
	st.On("LookupPostingsByTitleAndLocation", mock.Anything, []string{"Go Developer", "SRE"}, []string{"Paris", "Lyon"}).
		Return([]model.Posting{{ID: "stored-p", OrgRef: "stored-acme", Title: "go developer", Location: "paris", Description: "build services"}}, nil)
	var saved *model.Batch
	st.On("Save", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*model.Batch) }).
		Return(nil)

	enricher := &passEnricher{}
	svc := NewService(st, task.NewMemory(), &stubScorer{score: 10}, enricher)

	result, err := svc.InsertLeads(context.Background(), "t1", stubAdapter{batch: sampleBatch()}, "paris", nil)
	require.NoError(t, err)
	assert.Equal(t, "Insert of 1 companies", result.Companies)
	assert.Equal(t, "insert of 1 jobs", result.Jobs)

	require.Len(t, saved.Organizations, 1)
	assert.Equal(t, "Globex", saved.Organizations[0].Name)
	require.Len(t, saved.Postings, 1)
	assert.Equal(t, "p2", saved.Postings[0].ID)

	require.Len(t, saved.Contacts, 1)
	assert.Equal(t, "stored-acme", saved.Contacts[0].OrgRef)
	assert.Equal(t, "stored-p", saved.Contacts[0].PostingRef)

	// Only new records reach enrichment.
	require.NotNil(t, enricher.got)
	assert.Len(t, enricher.got.Organizations, 1)
}

func TestInsertLeads_DedupesDiscoveredContacts(t *testing.T) {
	st := &mockStore{}
	st.On("GetProfile", mock.Anything).Return(testProfile(), nil)
	emptyLookups(st)
	var saved *model.Batch
	st.On("Save", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*model.Batch) }).
		Return(nil)

	enricher := &passEnricher{extra: []model.Contact{
		{ID: "c2", OrgRef: "o1", Name: "jane doe", Title: "go developer"},
		{ID: "c3", OrgRef: "o2", Name: "John Roe", Title: "CTO"},
	}}
	svc := NewService(st, task.NewMemory(), &stubScorer{}, enricher)

	result, err := svc.InsertLeads(context.Background(), "t1", stubAdapter{batch: sampleBatch()}, "paris", nil)
	require.NoError(t, err)
	assert.Equal(t, "insert of 2 contacts", result.Contacts)
	require.Len(t, saved.Contacts, 2)
	assert.Equal(t, "c1", saved.Contacts[0].ID)
	assert.Equal(t, "c3", saved.Contacts[1].ID)
}

func TestInsertLeads_Failures(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(st *mockStore)
		scorer   *stubScorer
		enricher *passEnricher
		fetchErr error
		contains string
	}{
		{
			name:     "fetch error",
			setup:    func(*mockStore) {},
			fetchErr: errors.New("quota exceeded"),
			contains: "quota exceeded",
		},
		{
			name: "lookup error",
			setup: func(st *mockStore) {
				st.On("LookupContactsByNameAndTitle", mock.Anything, mock.Anything, mock.Anything).
					Return(nil, errors.New("connection refused"))
			},
			contains: "connection refused",
		},
		{
			name:     "scoring error",
			setup:    emptyLookups,
			scorer:   &stubScorer{err: errors.New("scorer down")},
			contains: "scorer down",
		},
		{
			name:     "enrich error",
			setup:    emptyLookups,
			enricher: &passEnricher{err: errors.New("enrich failed")},
			contains: "enrich failed",
		},
		{
			name: "save error",
			setup: func(st *mockStore) {
				emptyLookups(st)
				st.On("Save", mock.Anything, mock.Anything).Return(errors.New("tx aborted"))
			},
			contains: "tx aborted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &mockStore{}
			st.On("GetProfile", mock.Anything).Return(testProfile(), nil)
			tt.setup(st)
			scorer := tt.scorer
			if scorer == nil {
				scorer = &stubScorer{}
			}
			enricher := tt.enricher
			if enricher == nil {
				enricher = &passEnricher{}
			}
			reg := task.NewMemory()
			svc := NewService(st, reg, scorer, enricher)

			adapter := stubAdapter{batch: sampleBatch(), err: tt.fetchErr}
			_, err := svc.InsertLeads(context.Background(), "t1", adapter, "paris", nil)
			require.Error(t, err)

			got, _ := reg.Status(context.Background(), "t1")
			assert.Equal(t, model.TaskFailed, got.Status)
			assert.Contains(t, got.Message, tt.contains)
		})
	}
}

func TestInsertLeads_RemovesTaskWhenOutcomeCannotBeRecorded(t *testing.T) {
	st := &mockStore{}
	st.On("GetProfile", mock.Anything).Return(testProfile(), nil)
	emptyLookups(st)
	st.On("Save", mock.Anything, mock.Anything).Return(nil)

	mem := task.NewMemory()
	svc := NewService(st, failingRegistry{Memory: mem}, &stubScorer{}, &passEnricher{})

	_, err := svc.InsertLeads(context.Background(), "t1", stubAdapter{batch: sampleBatch()}, "paris", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, mem.Len())

	got, err := mem.Status(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskUnknown, got.Status)
}

func TestGetTaskStatus(t *testing.T) {
	ctx := context.Background()
	reg := task.NewMemory()
	svc := NewService(&mockStore{}, reg, &stubScorer{}, &passEnricher{})

	_, err := svc.Submit(ctx, "running")
	require.NoError(t, err)
	_, err = reg.Update(ctx, "running", MsgScoring, model.TaskProcessing)
	require.NoError(t, err)

	got, err := svc.GetTaskStatus(ctx, "running")
	require.NoError(t, err)
	assert.Equal(t, model.TaskProcessing, got.Status)
	assert.Equal(t, MsgScoring, got.Message)
	assert.Equal(t, 1, reg.Len())

	_, err = reg.Update(ctx, "running", "done", model.TaskCompleted)
	require.NoError(t, err)
	got, err = svc.GetTaskStatus(ctx, "running")
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, got.Status)
	assert.Equal(t, 0, reg.Len())

	got, err = svc.GetTaskStatus(ctx, "running")
	require.NoError(t, err)
	assert.Equal(t, model.TaskUnknown, got.Status)

	got, err = svc.GetTaskStatus(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, task.Unknown("missing"), got)
}

func TestSummarize(t *testing.T) {
	r := Summarize(nil)
	assert.Equal(t, "Insert of 0 companies", r.Companies)
	assert.Equal(t, "insert of 0 jobs", r.Jobs)
	assert.Equal(t, "insert of 0 contacts", r.Contacts)

	r = Summarize(sampleBatch())
	assert.Equal(t, "Insert of 2 companies", r.Companies)
	assert.Equal(t, "insert of 2 jobs", r.Jobs)
	assert.Equal(t, "insert of 1 contacts", r.Contacts)
}
