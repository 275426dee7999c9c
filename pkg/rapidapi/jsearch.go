package rapidapi

import (
	"context"
	"net/url"
	"strconv"
)

// JSearchQuery holds the /search parameters.
type JSearchQuery struct {
	Query      string
	Page       int
	NumPages   int
	DatePosted string // all, today, 3days, week, month
	Country    string // two-letter code
}

// JSearchResponse is the /search response.
type JSearchResponse struct {
	Status    string    `json:"status"`
	RequestID string    `json:"request_id"`
	Data      []JobData `json:"data"`
}

// JobData is one JSearch job. Only the fields mapped to leads are decoded.
type JobData struct {
	JobID             string   `json:"job_id"`
	JobTitle          string   `json:"job_title"`
	EmployerName      string   `json:"employer_name"`
	EmployerWebsite   string   `json:"employer_website"`
	EmploymentType    string   `json:"job_employment_type"`
	ApplyLink         string   `json:"job_apply_link"`
	GoogleLink        string   `json:"job_google_link"`
	Description       string   `json:"job_description"`
	PostedAtUTC       string   `json:"job_posted_at_datetime_utc"`
	Location          string   `json:"job_location"`
	City              string   `json:"job_city"`
	Country           string   `json:"job_country"`
	MinSalary         *float64 `json:"job_min_salary"`
	MaxSalary         *float64 `json:"job_max_salary"`
	SalaryCurrency    string   `json:"job_salary_currency"`
	NAICSName         string   `json:"job_naics_name"`
	OccupationalCodes []string `json:"job_occupational_categories"`
}

// JSearch queries the JSearch API.
type JSearch interface {
	Search(ctx context.Context, q JSearchQuery) (*JSearchResponse, error)
}

type jsearchClient struct {
	*httpClient
}

// NewJSearch creates a JSearch client for baseURL, e.g.
// https://jsearch.p.rapidapi.com.
func NewJSearch(apiKey, baseURL string, opts ...Option) (JSearch, error) {
	c, err := newHTTPClient("jsearch", apiKey, baseURL, opts)
	if err != nil {
		return nil, err
	}
	return &jsearchClient{httpClient: c}, nil
}

func (c *jsearchClient) Search(ctx context.Context, q JSearchQuery) (*JSearchResponse, error) {
	params := url.Values{}
	params.Set("query", q.Query)
	params.Set("page", strconv.Itoa(max(q.Page, 1)))
	params.Set("num_pages", strconv.Itoa(max(q.NumPages, 1)))
	if q.DatePosted != "" {
		params.Set("date_posted", q.DatePosted)
	}
	if q.Country != "" {
		params.Set("country", q.Country)
	}

	var out JSearchResponse
	if err := c.getJSON(ctx, "/search", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
