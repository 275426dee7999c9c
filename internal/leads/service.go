// Package leads runs the lead insertion workflow: fetch, reconcile against
// the store, score, enrich and persist, reporting progress through a task
// registry.
package leads

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/metrics"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/reconcile"
	"github.com/sells-group/prospect-cli/internal/source"
	"github.com/sells-group/prospect-cli/internal/store"
	"github.com/sells-group/prospect-cli/internal/task"
)

// Progress messages written to the registry while a run is processing.
const (
	MsgProcessing = "Processing and deduplicating leads"
	MsgScoring    = "Calculating compatibility scores"
	MsgEnriching  = "Enriching leads with additional data"
)

// ErrNoProfile fails a run started before any profile was saved.
var ErrNoProfile = eris.New("Profile not found. Please create a profile before inserting leads.")

// Scorer fills compatibility scores on postings.
type Scorer interface {
	ScorePostings(ctx context.Context, profile model.Profile, postings []model.Posting) ([]model.Posting, error)
}

// Enricher completes organization details and discovers contacts.
type Enricher interface {
	Enrich(ctx context.Context, batch *model.Batch, profile model.Profile) (*model.Batch, error)
}

// Service coordinates lead insertion runs.
type Service struct {
	store    store.Store
	registry task.Registry
	scorer   Scorer
	enricher Enricher
	metrics  *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records run outcomes and phase durations on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a Service.
func NewService(st store.Store, registry task.Registry, scorer Scorer, enricher Enricher, opts ...Option) *Service {
	s := &Service{
		store:    st,
		registry: registry,
		scorer:   scorer,
		enricher: enricher,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewTaskID returns a fresh task identifier.
func NewTaskID() string { return uuid.NewString() }

// Submit registers a pending task for a run that will be started with Run.
func (s *Service) Submit(ctx context.Context, taskID string) (model.Task, error) {
	t, err := s.registry.Submit(ctx, taskID)
	if err != nil {
		return model.Task{}, eris.Wrapf(err, "leads: submit task %s", taskID)
	}
	s.metrics.RunStarted()
	return t, nil
}

// InsertLeads submits taskID and runs the insertion to completion. It blocks;
// HTTP callers submit first and run in the background instead.
func (s *Service) InsertLeads(ctx context.Context, taskID string, adapter source.Adapter, location string, titles []string) (Result, error) {
	if _, err := s.Submit(ctx, taskID); err != nil {
		return Result{}, err
	}
	return s.Run(ctx, taskID, adapter, location, titles)
}

// Run executes an already submitted task. The task ends completed with the
// statistics message, or failed with the error text. If the registry cannot
// record the outcome the task is removed.
func (s *Service) Run(ctx context.Context, taskID string, adapter source.Adapter, location string, titles []string) (Result, error) {
	log := zap.L().With(zap.String("task_id", taskID))
	start := time.Now()
	log.Info("leads: starting insertion", zap.String("location", location), zap.Strings("titles", titles))

	result, err := s.run(ctx, log, taskID, adapter, location, titles)
	if err != nil {
		log.Error("leads: insertion failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		s.finish(ctx, log, taskID, failureMessage(err), model.TaskFailed)
		return Result{}, err
	}

	s.finish(ctx, log, taskID, result.Message(), model.TaskCompleted)
	log.Info("leads: insertion complete",
		zap.String("companies", result.Companies),
		zap.String("jobs", result.Jobs),
		zap.String("contacts", result.Contacts),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

func (s *Service) run(ctx context.Context, log *zap.Logger, taskID string, adapter source.Adapter, location string, titles []string) (Result, error) {
	profile, err := s.store.GetProfile(ctx)
	if err != nil {
		return Result{}, eris.Wrap(err, "leads: load profile")
	}
	if profile == nil {
		return Result{}, ErrNoProfile
	}

	phase := time.Now()
	batch, err := adapter.Fetch(ctx, location, titles)
	if err != nil {
		return Result{}, eris.Wrap(err, "leads: fetch")
	}
	if err := batch.Validate(); err != nil {
		return Result{}, err
	}
	s.phaseDone(log, "fetch", phase)

	if err := s.progress(ctx, taskID, MsgProcessing); err != nil {
		return Result{}, err
	}
	phase = time.Now()
	pending, err := s.reconcile(ctx, batch)
	if err != nil {
		return Result{}, err
	}
	s.phaseDone(log, "reconcile", phase)

	if err := s.progress(ctx, taskID, MsgScoring); err != nil {
		return Result{}, err
	}
	phase = time.Now()
	pending.Postings, err = s.scorer.ScorePostings(ctx, *profile, pending.Postings)
	if err != nil {
		return Result{}, eris.Wrap(err, "leads: score postings")
	}
	s.phaseDone(log, "score", phase)

	if err := s.progress(ctx, taskID, MsgEnriching); err != nil {
		return Result{}, err
	}
	phase = time.Now()
	enriched, err := s.enricher.Enrich(ctx, pending, *profile)
	if err != nil {
		return Result{}, eris.Wrap(err, "leads: enrich")
	}
	enriched.Contacts = reconcile.DedupeContacts(enriched.Contacts)
	s.phaseDone(log, "enrich", phase)

	result := Summarize(enriched)

	phase = time.Now()
	if err := s.store.Save(ctx, enriched); err != nil {
		return Result{}, eris.Wrap(err, "leads: save")
	}
	s.phaseDone(log, "save", phase)

	s.metrics.Inserted("companies", len(enriched.Organizations))
	s.metrics.Inserted("jobs", len(enriched.Postings))
	s.metrics.Inserted("contacts", len(enriched.Contacts))
	return result, nil
}

// reconcile dedupes the fetched batch and drops what the store already
// holds. References are rekeyed before each diff so they point at stored ids.
func (s *Service) reconcile(ctx context.Context, batch *model.Batch) (*model.Batch, error) {
	orgs, postings := reconcile.DedupeOrganizations(batch.Organizations, batch.Postings)
	postings = reconcile.DedupePostings(postings)

	contactNames, contactTitles := contactKeys(batch.Contacts)
	storeContacts, err := s.store.LookupContactsByNameAndTitle(ctx, contactNames, contactTitles)
	if err != nil {
		return nil, eris.Wrap(err, "leads: lookup contacts")
	}
	names := make([]string, 0, len(orgs))
	for _, o := range orgs {
		if o.Name != "" {
			names = append(names, o.Name)
		}
	}
	storeOrgs, err := s.store.LookupOrganizationsByName(ctx, names)
	if err != nil {
		return nil, eris.Wrap(err, "leads: lookup organizations")
	}

	postings = reconcile.RekeyPostingsAgainstStore(postings, orgs, storeOrgs)
	newOrgs := reconcile.DiffNewOrganizations(orgs, storeOrgs)

	postingTitles, postingLocations := postingKeys(postings)
	storePostings, err := s.store.LookupPostingsByTitleAndLocation(ctx, postingTitles, postingLocations)
	if err != nil {
		return nil, eris.Wrap(err, "leads: lookup postings")
	}
	newPostings := reconcile.DiffNewPostings(postings, storePostings)

	// Stored records come first so a contact resolves to the persisted id.
	contacts := reconcile.DiffNewContacts(batch.Contacts, storeContacts)
	contacts = reconcile.RekeyContactsAgainstStore(contacts,
		append(append([]model.Posting{}, storePostings...), newPostings...),
		append(append([]model.Organization{}, storeOrgs...), orgs...),
	)

	return &model.Batch{
		Organizations: newOrgs,
		Postings:      newPostings,
		Contacts:      contacts,
	}, nil
}

// GetTaskStatus returns the task's state. Once a completed or failed task has
// been reported it is removed from the registry.
func (s *Service) GetTaskStatus(ctx context.Context, taskID string) (model.Task, error) {
	t, err := s.registry.Status(ctx, taskID)
	if err != nil {
		return model.Task{}, eris.Wrapf(err, "leads: task status %s", taskID)
	}
	if t.Status.Terminal() {
		if _, err := s.registry.Remove(ctx, taskID); err != nil {
			zap.L().Warn("leads: failed to remove finished task", zap.String("task_id", taskID), zap.Error(err))
		}
	}
	return t, nil
}

func (s *Service) progress(ctx context.Context, taskID, message string) error {
	if _, err := s.registry.Update(ctx, taskID, message, model.TaskProcessing); err != nil {
		return eris.Wrapf(err, "leads: update task %s", taskID)
	}
	return nil
}

// finish records the terminal status. A registry that cannot take the update
// is asked to forget the task so pollers see it as unknown.
func (s *Service) finish(ctx context.Context, log *zap.Logger, taskID, message string, status model.TaskStatus) {
	s.metrics.RunFinished(string(status))
	if _, err := s.registry.Update(ctx, taskID, message, status); err != nil {
		log.Warn("leads: failed to record task outcome", zap.String("status", string(status)), zap.Error(err))
		if _, rmErr := s.registry.Remove(ctx, taskID); rmErr != nil {
			log.Warn("leads: failed to remove task", zap.Error(rmErr))
		}
	}
}

func (s *Service) phaseDone(log *zap.Logger, name string, start time.Time) {
	elapsed := time.Since(start)
	s.metrics.Phase(name, elapsed.Seconds())
	log.Info("leads: phase complete", zap.String("phase", name), zap.Duration("elapsed", elapsed))
}

// failureMessage returns the text stored on a failed task. Precondition
// errors keep their exact wording.
func failureMessage(err error) string {
	for _, sentinel := range []error{ErrNoProfile, model.ErrNoPostings, model.ErrNoOrganizations} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

func contactKeys(contacts []model.Contact) (names, titles []string) {
	for _, c := range contacts {
		if c.Name != "" {
			names = append(names, c.Name)
		}
		if c.Title != "" {
			titles = append(titles, c.Title)
		}
	}
	return names, titles
}

func postingKeys(postings []model.Posting) (titles, locations []string) {
	for _, p := range postings {
		if p.Title != "" {
			titles = append(titles, p.Title)
		}
		if p.Location != "" {
			locations = append(locations, p.Location)
		}
	}
	return titles, locations
}

// Result summarizes what a run saved.
type Result struct {
	Companies string `json:"companies"`
	Jobs      string `json:"jobs"`
	Contacts  string `json:"contacts"`
}

// Summarize counts the records of a batch about to be saved.
func Summarize(batch *model.Batch) Result {
	var orgs, postings, contacts int
	if batch != nil {
		orgs, postings, contacts = len(batch.Organizations), len(batch.Postings), len(batch.Contacts)
	}
	return Result{
		Companies: fmt.Sprintf("Insert of %d companies", orgs),
		Jobs:      fmt.Sprintf("insert of %d jobs", postings),
		Contacts:  fmt.Sprintf("insert of %d contacts", contacts),
	}
}

// Message is the completed-task text for r.
func (r Result) Message() string {
	return fmt.Sprintf("Lead insertion completed with companies : %s, jobs : %s, and contacts : %s saved",
		r.Companies, r.Jobs, r.Contacts)
}
