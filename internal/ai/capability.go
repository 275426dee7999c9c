package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/enrich"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/search"
	"github.com/sells-group/prospect-cli/pkg/anthropic"
	"github.com/sells-group/prospect-cli/pkg/perplexity"
)

// maxPageChars caps the crawled content sent for one description.
const maxPageChars = 40000

// Capability implements enrich.Capability. The Perplexity client is optional
// and researches organizations for which no page could be crawled.
type Capability struct {
	client   anthropic.Client
	research perplexity.Client
	models   Models
}

var _ enrich.Capability = (*Capability)(nil)

// NewCapability creates a Capability. research may be nil.
func NewCapability(client anthropic.Client, research perplexity.Client, models Models) *Capability {
	return &Capability{client: client, research: research, models: models.withDefaults()}
}

// Decide reports whether org needs enrichment.
func (c *Capability) Decide(ctx context.Context, org model.Organization) (bool, error) {
	text, err := complete(ctx, c.client, c.models.Decision, 64, fmt.Sprintf(decisionPrompt, mustJSON(org)), "decision")
	if err != nil {
		return false, err
	}
	var out struct {
		Result *bool `json:"result"`
	}
	if err := decode(text, &out); err != nil {
		return false, err
	}
	if out.Result == nil {
		return false, eris.New("ai: decision missing result")
	}
	return *out.Result, nil
}

// Describe writes a description of the organization from crawled pages.
func (c *Capability) Describe(ctx context.Context, name string, pages []string) (string, error) {
	content := strings.Join(pages, "\n")
	if strings.TrimSpace(content) == "" && c.research != nil {
		content = c.researchOrganization(ctx, name)
	}
	if len(content) > maxPageChars {
		content = strings.ToValidUTF8(content[:maxPageChars], "")
	}

	text, err := complete(ctx, c.client, c.models.Extract, 1024, fmt.Sprintf(describePrompt, name, content), "describe")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (c *Capability) researchOrganization(ctx context.Context, name string) string {
	temp := 0.2
	resp, err := c.research.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Messages:    []perplexity.Message{{Role: "user", Content: fmt.Sprintf(researchPrompt, name)}},
		Temperature: &temp,
	})
	if err != nil {
		zap.L().Debug("ai: research fallback failed", zap.String("organization", name), zap.Error(err))
		return ""
	}
	return resp.Content()
}

// ExtractOrganizationInfo pulls structured fields out of a description.
func (c *Capability) ExtractOrganizationInfo(ctx context.Context, description string) (enrich.OrganizationInfo, error) {
	text, err := complete(ctx, c.client, c.models.Extract, 512, fmt.Sprintf(organizationInfoPrompt, description), "organization_info")
	if err != nil {
		return enrich.OrganizationInfo{}, err
	}
	var info enrich.OrganizationInfo
	if err := decode(text, &info); err != nil {
		return enrich.OrganizationInfo{}, err
	}
	return info, nil
}

// ExtractContact turns a profile search hit into a contact.
func (c *Capability) ExtractContact(ctx context.Context, orgName string, hit search.Result) (enrich.ContactInfo, error) {
	prompt := fmt.Sprintf(contactPrompt, orgName, hit.Title, hit.URL, hit.Snippet)
	text, err := complete(ctx, c.client, c.models.Decision, 512, prompt, "contact")
	if err != nil {
		return enrich.ContactInfo{}, err
	}
	var info enrich.ContactInfo
	if err := decode(text, &info); err != nil {
		return enrich.ContactInfo{}, err
	}
	if strings.TrimSpace(info.Name) == "" {
		return enrich.ContactInfo{}, eris.New("ai: no contact in search result")
	}
	return info, nil
}

// ExtractTargetTitles lists the job titles worth prospecting for a profile.
func (c *Capability) ExtractTargetTitles(ctx context.Context, profile model.Profile) ([]string, error) {
	prompt := fmt.Sprintf(targetTitlesPrompt, profile.JobTitle, profile.Location, profile.Bio, mustJSON(profile.WorkExperience))
	text, err := complete(ctx, c.client, c.models.Decision, 256, prompt, "target_titles")
	if err != nil {
		return nil, err
	}
	var out struct {
		JobTitles []string `json:"job_titles"`
	}
	if err := decode(text, &out); err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(out.JobTitles))
	seen := make(map[string]bool, len(out.JobTitles))
	for _, t := range out.JobTitles {
		t = strings.TrimSpace(t)
		key := model.Normalize(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		titles = append(titles, t)
	}
	return titles, nil
}
