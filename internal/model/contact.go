package model

// Contact is a person reachable at an organization. Before reconciliation
// OrgRef may hold the organization's name instead of its id.
type Contact struct {
	ID         string   `json:"id"`
	OrgRef     string   `json:"company_id"`
	PostingRef string   `json:"job_id"`
	Name       string   `json:"name"`
	Title      string   `json:"title"`
	Emails     []string `json:"email,omitempty"`
	Phone      string   `json:"phone"`
	ProfileURL string   `json:"profile_url"`
}

// ContactKey is the natural key of a contact.
type ContactKey struct {
	Name  string
	Title string
}

// Key returns the contact's natural key.
func (c Contact) Key() ContactKey {
	return ContactKey{Name: Normalize(c.Name), Title: Normalize(c.Title)}
}
