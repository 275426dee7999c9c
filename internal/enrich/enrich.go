// Package enrich fills in sparse organization records and discovers
// contacts through web search, page crawling and a language model.
//
// The work graph is fixed: a decision fan-out selects the organizations to
// enrich, an enrichment fan-out runs on the selected ones, and a contact
// discovery fan-out runs alongside both. A single join aggregates the
// results into a new batch.
package enrich

import (
	"context"
	"regexp"
	"strings"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/search"
)

// DecisionOnError is the decision applied when the decider fails: the
// organization is enriched anyway.
const DecisionOnError = true

// Default values for organization fields the extractor could not fill.
const (
	DefaultSize          = "0"
	DefaultRevenue       = "0"
	DefaultCompatibility = "0"
)

// Searcher runs a web search.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]search.Result, error)
}

// Crawler fetches the readable content of a page.
type Crawler interface {
	FetchPage(ctx context.Context, url string) (string, error)
}

// Decider reports whether an organization needs enrichment.
type Decider interface {
	Decide(ctx context.Context, org model.Organization) (bool, error)
}

// Capability is the language model surface used during enrichment. Every
// method may fail; the orchestrator applies the defaults.
type Capability interface {
	Decider
	// Describe writes a description of the organization from crawled pages.
	Describe(ctx context.Context, name string, pages []string) (string, error)
	// ExtractOrganizationInfo pulls structured fields out of a description.
	ExtractOrganizationInfo(ctx context.Context, description string) (OrganizationInfo, error)
	// ExtractContact turns a profile search hit into a contact.
	ExtractContact(ctx context.Context, orgName string, hit search.Result) (ContactInfo, error)
	// ExtractTargetTitles lists the job titles worth prospecting for a profile.
	ExtractTargetTitles(ctx context.Context, profile model.Profile) ([]string, error)
}

// OrganizationInfo holds the fields extracted from a description.
type OrganizationInfo struct {
	Industry      []string `json:"industry"`
	Compatibility string   `json:"compatibility"`
	Location      []string `json:"location"`
	Size          string   `json:"size"`
	Revenue       string   `json:"revenue"`
}

// DefaultOrganizationInfo is used when extraction fails.
func DefaultOrganizationInfo() OrganizationInfo {
	return OrganizationInfo{
		Industry:      []string{},
		Compatibility: DefaultCompatibility,
		Location:      []string{},
		Size:          DefaultSize,
		Revenue:       DefaultRevenue,
	}
}

// ContactInfo is a contact extracted from a search hit.
type ContactInfo struct {
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Emails      []string `json:"email"`
	Phone       string   `json:"phone"`
	ProfileURLs []string `json:"profile_url"`
}

var thinkRe = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StripThink removes <think>...</think> reasoning blocks from model output.
func StripThink(s string) string {
	return strings.TrimSpace(thinkRe.ReplaceAllString(s, ""))
}

func joinList(items []string) string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return strings.Join(out, ", ")
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}
