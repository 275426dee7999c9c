package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/pkg/rapidapi"
)

// jsearchMaxTitles caps the titles queried per fetch.
const jsearchMaxTitles = 2

// JSearch fetches leads from the JSearch API. Each job yields one
// organization and one posting.
type JSearch struct {
	client rapidapi.JSearch
	opts   options
}

// NewJSearch creates a JSearch adapter.
func NewJSearch(client rapidapi.JSearch, opts ...Option) *JSearch {
	return &JSearch{client: client, opts: buildOptions(opts)}
}

var _ Adapter = (*JSearch)(nil)

// Fetch implements Adapter. Titles are queried concurrently; results keep
// title order.
func (j *JSearch) Fetch(ctx context.Context, location string, titles []string) (*model.Batch, error) {
	if len(titles) > jsearchMaxTitles {
		titles = titles[:jsearchMaxTitles]
	}

	results := make([][]rapidapi.JobData, len(titles))
	g, gCtx := errgroup.WithContext(ctx)
	for i, title := range titles {
		g.Go(func() error {
			resp, err := j.client.Search(gCtx, rapidapi.JSearchQuery{
				Query:      fmt.Sprintf("%s in %s", title, location),
				Page:       1,
				NumPages:   1,
				DatePosted: "month",
				Country:    countryCode(location),
			})
			if err != nil {
				return eris.Wrapf(err, "source: jsearch %q", title)
			}
			results[i] = resp.Data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	batch := &model.Batch{}
	for _, jobs := range results {
		for _, job := range jobs {
			org := model.Organization{
				ID:      j.opts.newID(),
				Name:    job.EmployerName,
				Website: job.EmployerWebsite,
				Source:  "jsearch",
			}
			batch.Organizations = append(batch.Organizations, org)
			batch.Postings = append(batch.Postings, model.Posting{
				ID:          j.opts.newID(),
				OrgRef:      org.ID,
				Title:       job.JobTitle,
				Location:    job.Location,
				Description: job.Description,
				Salary:      salaryRange(job.MinSalary, job.MaxSalary),
				Type:        job.EmploymentType,
				Sectors:     job.NAICSName,
				ApplyURLs:   []string{job.ApplyLink, job.GoogleLink},
				CreatedAt:   parsePostedAt(job.PostedAtUTC, j.opts.now()),
			})
		}
	}

	zap.L().Info("source: jsearch fetched",
		zap.String("location", location),
		zap.Strings("titles", titles),
		zap.Int("postings", len(batch.Postings)),
	)
	return batch, nil
}

// countryCode derives the API country code from the first two letters of
// the location.
func countryCode(location string) string {
	r := []rune(strings.TrimSpace(location))
	if len(r) > 2 {
		r = r[:2]
	}
	return strings.ToLower(string(r))
}

func salaryRange(lo, hi *float64) string {
	return formatAmount(lo) + " - " + formatAmount(hi)
}

func formatAmount(v *float64) string {
	if v == nil || *v == 0 {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
