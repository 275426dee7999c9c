package model

// Organization is a prospect company. Optional text fields default to the
// empty string.
type Organization struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Industry      string   `json:"industry"`
	Location      string   `json:"location"`
	Size          string   `json:"size"`
	Revenue       string   `json:"revenue"`
	Website       string   `json:"website"`
	Description   string   `json:"description"`
	Compatibility string   `json:"compatibility"`
	Opportunities []string `json:"opportunities,omitempty"`
	Source        string   `json:"source"`
}

// OrgKey is the natural key of an organization.
type OrgKey string

// Key returns the organization's natural key.
func (o Organization) Key() OrgKey {
	return OrgKey(Normalize(o.Name))
}
