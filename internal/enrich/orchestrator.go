package enrich

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/prospect-cli/internal/metrics"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/scrape"
)

// Orchestrator runs the enrichment graph over a batch.
type Orchestrator struct {
	capability    Capability
	searcher      Searcher
	crawler       Crawler
	templates     Templates
	maxConcurrent int
	metrics       *metrics.Metrics
	newID         func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTemplates replaces the embedded search templates.
func WithTemplates(t Templates) Option {
	return func(o *Orchestrator) { o.templates = t }
}

// WithMaxConcurrent bounds each fan-out.
func WithMaxConcurrent(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxConcurrent = n
		}
	}
}

// WithMetrics records decisions, fallbacks and discovered contacts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithIDFunc sets the id generator for discovered contacts.
func WithIDFunc(fn func() string) Option {
	return func(o *Orchestrator) { o.newID = fn }
}

// New creates an Orchestrator.
func New(capability Capability, searcher Searcher, crawler Crawler, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		capability:    capability,
		searcher:      searcher,
		crawler:       crawler,
		templates:     DefaultTemplates(),
		maxConcurrent: 5,
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Enrich returns a new batch in which the organizations selected by the
// decider carry enriched fields and the contacts are the batch's contacts
// followed by the discovered ones. Sub-step failures fall back to defaults;
// only context cancellation is returned as an error.
func (o *Orchestrator) Enrich(ctx context.Context, batch *model.Batch, profile model.Profile) (*model.Batch, error) {
	if batch == nil {
		return &model.Batch{}, nil
	}
	orgs := batch.Organizations
	start := time.Now()

	var (
		enriched   map[string]model.Organization
		discovered []model.Contact
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		selected, err := o.decide(gCtx, orgs)
		if err != nil {
			return err
		}
		enriched, err = o.enrichAll(gCtx, selected)
		return err
	})
	g.Go(func() error {
		var err error
		discovered, err = o.discoverContacts(gCtx, orgs, batch.Postings, profile)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "enrich: run")
	}

	out := aggregate(batch, enriched, discovered)
	zap.L().Info("enrich: batch enriched",
		zap.Int("organizations", len(orgs)),
		zap.Int("enriched", len(enriched)),
		zap.Int("contacts_discovered", len(discovered)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

// aggregate is the single join of the graph.
func aggregate(batch *model.Batch, enriched map[string]model.Organization, discovered []model.Contact) *model.Batch {
	orgs := make([]model.Organization, len(batch.Organizations))
	for i, org := range batch.Organizations {
		if e, ok := enriched[org.ID]; ok {
			org = e
		}
		orgs[i] = org
	}

	contacts := make([]model.Contact, 0, len(batch.Contacts)+len(discovered))
	contacts = append(contacts, batch.Contacts...)
	contacts = append(contacts, discovered...)

	return &model.Batch{
		Organizations: orgs,
		Postings:      batch.Postings,
		Contacts:      contacts,
		Pages:         batch.Pages,
	}
}

// decide asks the decider about every organization and returns the ones to
// enrich, in input order.
func (o *Orchestrator) decide(ctx context.Context, orgs []model.Organization) ([]model.Organization, error) {
	flags := make([]bool, len(orgs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxConcurrent)
	for i := range orgs {
		org := orgs[i]
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			ok, err := o.capability.Decide(gCtx, org)
			switch {
			case err != nil:
				if ctxErr := gCtx.Err(); ctxErr != nil {
					return ctxErr
				}
				zap.L().Warn("enrich: decision failed, applying default",
					zap.String("organization", org.Name),
					zap.Bool("decision", DecisionOnError),
					zap.Error(err),
				)
				o.metrics.Decision("fail_open")
				ok = DecisionOnError
			case ok:
				o.metrics.Decision("enrich")
			default:
				o.metrics.Decision("skip")
			}
			flags[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var selected []model.Organization
	for i, org := range orgs {
		if flags[i] {
			selected = append(selected, org)
		}
	}
	return selected, nil
}

func (o *Orchestrator) enrichAll(ctx context.Context, orgs []model.Organization) (map[string]model.Organization, error) {
	results := make([]model.Organization, len(orgs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxConcurrent)
	for i := range orgs {
		org := orgs[i]
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			results[i] = o.enrichOrganization(gCtx, org)
			return gCtx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]model.Organization, len(results))
	for _, org := range results {
		out[org.ID] = org
	}
	return out, nil
}

// enrichOrganization searches the company registries, crawls the hits and
// derives the description and structured fields.
func (o *Orchestrator) enrichOrganization(ctx context.Context, org model.Organization) model.Organization {
	log := zap.L().With(zap.String("organization", org.Name))

	var pages []string
	for _, q := range o.templates.RegistryQueries(org.Name) {
		hits, err := o.searcher.Search(ctx, q, o.templates.Registry.Results)
		if err != nil {
			log.Warn("enrich: registry search failed", zap.String("query", q), zap.Error(err))
			o.metrics.Fallback("search")
			continue
		}
		for _, hit := range hits {
			if !scrape.HasPath(hit.URL) {
				continue
			}
			content, err := o.crawler.FetchPage(ctx, hit.URL)
			if err != nil {
				log.Debug("enrich: crawl failed", zap.String("url", hit.URL), zap.Error(err))
				o.metrics.Fallback("crawl")
				continue
			}
			if strings.TrimSpace(content) != "" {
				pages = append(pages, content)
			}
		}
	}

	description, err := o.capability.Describe(ctx, org.Name, pages)
	if err != nil {
		log.Warn("enrich: describe failed", zap.Error(err))
		o.metrics.Fallback("describe")
		description = ""
	}
	description = StripThink(description)

	info := DefaultOrganizationInfo()
	if description != "" {
		extracted, err := o.capability.ExtractOrganizationInfo(ctx, description)
		if err != nil {
			log.Warn("enrich: extract organization info failed", zap.Error(err))
			o.metrics.Fallback("extract_info")
		} else {
			info = extracted
		}
	}

	org.Description = description
	org.Industry = joinList(info.Industry)
	org.Location = joinList(info.Location)
	org.Size = orDefault(info.Size, DefaultSize)
	org.Revenue = orDefault(info.Revenue, DefaultRevenue)
	org.Compatibility = orDefault(info.Compatibility, DefaultCompatibility)
	return org
}

// discoverContacts searches public profiles for each organization and target
// title. Results are ordered by organization, then title, then hit.
func (o *Orchestrator) discoverContacts(ctx context.Context, orgs []model.Organization, postings []model.Posting, profile model.Profile) ([]model.Contact, error) {
	if len(orgs) == 0 {
		return nil, nil
	}
	titles, err := o.capability.ExtractTargetTitles(ctx, profile)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		zap.L().Warn("enrich: target titles unavailable, skipping contact discovery", zap.Error(err))
		o.metrics.Fallback("target_titles")
		return nil, nil
	}
	if len(titles) == 0 {
		return nil, nil
	}

	postingFor := make(map[string]string, len(postings))
	for _, p := range postings {
		if _, ok := postingFor[p.OrgRef]; !ok && p.OrgRef != "" {
			postingFor[p.OrgRef] = p.ID
		}
	}

	perOrg := make([][]model.Contact, len(orgs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxConcurrent)
	for i := range orgs {
		org := orgs[i]
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			perOrg[i] = o.contactsFor(gCtx, org, titles, postingFor[org.ID])
			return gCtx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []model.Contact
	for _, cs := range perOrg {
		out = append(out, cs...)
	}
	return out, nil
}

func (o *Orchestrator) contactsFor(ctx context.Context, org model.Organization, titles []string, postingID string) []model.Contact {
	log := zap.L().With(zap.String("organization", org.Name))

	var out []model.Contact
	for _, title := range titles {
		q := o.templates.ContactQuery(org.Name, title)
		hits, err := o.searcher.Search(ctx, q, o.templates.Contacts.Results)
		if err != nil {
			log.Warn("enrich: contact search failed", zap.String("query", q), zap.Error(err))
			o.metrics.Fallback("contact_search")
			continue
		}
		for _, hit := range hits {
			if !isProfileURL(hit.URL) {
				continue
			}
			info, err := o.capability.ExtractContact(ctx, org.Name, hit)
			if err != nil {
				log.Debug("enrich: contact extraction failed", zap.String("url", hit.URL), zap.Error(err))
				o.metrics.Fallback("extract_contact")
				continue
			}
			profileURLs := info.ProfileURLs
			if len(profileURLs) == 0 {
				profileURLs = []string{hit.URL}
			}
			out = append(out, model.Contact{
				ID:         o.newID(),
				OrgRef:     org.ID,
				PostingRef: postingID,
				Name:       strings.TrimSpace(info.Name),
				Title:      strings.TrimSpace(info.Title),
				Emails:     splitEmails(info.Emails),
				Phone:      strings.TrimSpace(info.Phone),
				ProfileURL: joinList(profileURLs),
			})
			o.metrics.ContactFound()
		}
	}
	return out
}

// isProfileURL reports whether u looks like a public profile page.
func isProfileURL(u string) bool {
	if !strings.Contains(u, "/in") {
		return false
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	return parsed.Path != "" && parsed.Path != "/"
}

// splitEmails flattens entries that hold several comma-separated addresses.
func splitEmails(in []string) []string {
	var out []string
	for _, e := range in {
		for _, part := range strings.Split(e, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
