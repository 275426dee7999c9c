package source

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/pkg/rapidapi"
)

// activeJobsLimit is the page size requested from Active Jobs DB.
const activeJobsLimit = 10

// ActiveJobs fetches leads from Active Jobs DB.
type ActiveJobs struct {
	client rapidapi.ActiveJobsDB
	opts   options
}

// NewActiveJobs creates an ActiveJobs adapter.
func NewActiveJobs(client rapidapi.ActiveJobsDB, opts ...Option) *ActiveJobs {
	return &ActiveJobs{client: client, opts: buildOptions(opts)}
}

var _ Adapter = (*ActiveJobs)(nil)

// Fetch implements Adapter with a single query filtering on every title.
func (a *ActiveJobs) Fetch(ctx context.Context, location string, titles []string) (*model.Batch, error) {
	jobs, err := a.client.ActiveJobs(ctx, rapidapi.ActiveJobsQuery{
		Titles:   titles,
		Location: location,
		Limit:    activeJobsLimit,
	})
	if err != nil {
		return nil, eris.Wrap(err, "source: active jobs db")
	}

	batch := &model.Batch{}
	for _, job := range jobs {
		org := model.Organization{
			ID:      a.opts.newID(),
			Name:    job.Organization,
			Website: job.OrganizationURL,
			Source:  "active_jobs_db",
		}
		batch.Organizations = append(batch.Organizations, org)

		var applyURLs []string
		if job.URL != "" {
			applyURLs = []string{job.URL}
		}
		batch.Postings = append(batch.Postings, model.Posting{
			ID:          a.opts.newID(),
			OrgRef:      org.ID,
			Title:       job.Title,
			Location:    firstOf(job.LocationsDerived),
			Description: job.DescriptionText,
			Type:        strings.Join(job.EmploymentType, ", "),
			ApplyURLs:   applyURLs,
			CreatedAt:   parsePostedAt(job.DatePosted, a.opts.now()),
		})
	}

	zap.L().Info("source: active jobs db fetched",
		zap.String("location", location),
		zap.Int("postings", len(batch.Postings)),
	)
	return batch, nil
}

func firstOf(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
