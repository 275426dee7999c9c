package enrich

import (
	_ "embed"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed queries.yaml
var defaultQueries []byte

// Templates holds the search query templates.
type Templates struct {
	Registry struct {
		Results int      `yaml:"results"`
		Queries []string `yaml:"queries"`
	} `yaml:"registry"`
	Contacts struct {
		Results int    `yaml:"results"`
		Query   string `yaml:"query"`
	} `yaml:"contacts"`
}

// ParseTemplates decodes templates from YAML.
func ParseTemplates(data []byte) (Templates, error) {
	var t Templates
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Templates{}, eris.Wrap(err, "enrich: parse templates")
	}
	if len(t.Registry.Queries) == 0 {
		return Templates{}, eris.New("enrich: templates define no registry queries")
	}
	if t.Contacts.Query == "" {
		return Templates{}, eris.New("enrich: templates define no contact query")
	}
	if t.Registry.Results < 1 {
		t.Registry.Results = 1
	}
	if t.Contacts.Results < 1 {
		t.Contacts.Results = 1
	}
	return t, nil
}

// DefaultTemplates returns the embedded templates.
func DefaultTemplates() Templates {
	t, err := ParseTemplates(defaultQueries)
	if err != nil {
		panic(err)
	}
	return t
}

// Override replaces the templates with non-empty values.
func (t Templates) Override(queries []string, results int, contactQuery string, contactResults int) Templates {
	if len(queries) > 0 {
		t.Registry.Queries = append([]string(nil), queries...)
	}
	if results > 0 {
		t.Registry.Results = results
	}
	if contactQuery != "" {
		t.Contacts.Query = contactQuery
	}
	if contactResults > 0 {
		t.Contacts.Results = contactResults
	}
	return t
}

// RegistryQueries expands the registry templates for an organization.
func (t Templates) RegistryQueries(name string) []string {
	r := strings.NewReplacer("{name}", name)
	out := make([]string, 0, len(t.Registry.Queries))
	for _, q := range t.Registry.Queries {
		out = append(out, r.Replace(q))
	}
	return out
}

// ContactQuery expands the contact template.
func (t Templates) ContactQuery(name, title string) string {
	return strings.NewReplacer("{name}", name, "{title}", title).Replace(t.Contacts.Query)
}
