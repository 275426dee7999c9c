package rapidapi

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

// ActiveJobsQuery holds the /active-ats-7d parameters.
type ActiveJobsQuery struct {
	Titles   []string
	Location string
	Limit    int
	Offset   int
}

// ActiveJob is one Active Jobs DB posting.
type ActiveJob struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Organization     string   `json:"organization"`
	OrganizationURL  string   `json:"organization_url"`
	DatePosted       string   `json:"date_posted"`
	EmploymentType   []string `json:"employment_type"`
	URL              string   `json:"url"`
	LocationsDerived []string `json:"locations_derived"`
	CitiesDerived    []string `json:"cities_derived"`
	DomainDerived    string   `json:"domain_derived"`
	DescriptionText  string   `json:"description_text"`
	Source           string   `json:"source"`
}

// ActiveJobsDB queries the Active Jobs DB API.
type ActiveJobsDB interface {
	ActiveJobs(ctx context.Context, q ActiveJobsQuery) ([]ActiveJob, error)
}

type activeJobsClient struct {
	*httpClient
}

// NewActiveJobsDB creates an Active Jobs DB client for baseURL, e.g.
// https://active-jobs-db.p.rapidapi.com.
func NewActiveJobsDB(apiKey, baseURL string, opts ...Option) (ActiveJobsDB, error) {
	c, err := newHTTPClient("active_jobs_db", apiKey, baseURL, opts)
	if err != nil {
		return nil, err
	}
	return &activeJobsClient{httpClient: c}, nil
}

func (c *activeJobsClient) ActiveJobs(ctx context.Context, q ActiveJobsQuery) ([]ActiveJob, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(max(q.Offset, 0)))
	params.Set("advanced_title_filter", strings.Join(q.Titles, " | "))
	params.Set("location_filter", q.Location)
	params.Set("description_type", "text")

	var out []ActiveJob
	if err := c.getJSON(ctx, "/active-ats-7d", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}
