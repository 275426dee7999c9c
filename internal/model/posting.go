package model

import "time"

// Posting is a job offer published by an organization. OrgRef holds the id
// of the owning Organization.
type Posting struct {
	ID          string    `json:"id"`
	OrgRef      string    `json:"company_id"`
	Title       string    `json:"job_title"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Salary      string    `json:"salary"`
	Seniority   string    `json:"job_seniority"`
	Type        string    `json:"job_type"`
	Sectors     string    `json:"sectors"`
	ApplyURLs   []string  `json:"apply_url,omitempty"`
	Score       *int      `json:"compatibility_score,omitempty"`
	CreatedAt   time.Time `json:"date_creation"`
}

// PostingKey identifies duplicate postings inside one batch.
type PostingKey struct {
	Title    string
	Location string
	Type     string
	OrgRef   string
}

// PostingDiffKey identifies postings already persisted. It extends
// PostingKey with the description.
type PostingDiffKey struct {
	Title       string
	Location    string
	OrgRef      string
	Type        string
	Description string
}

// DedupKey returns the in-batch duplicate key.
func (p Posting) DedupKey() PostingKey {
	return PostingKey{
		Title:    Normalize(p.Title),
		Location: Normalize(p.Location),
		Type:     Normalize(p.Type),
		OrgRef:   Normalize(p.OrgRef),
	}
}

// DiffKey returns the key compared against stored postings.
func (p Posting) DiffKey() PostingDiffKey {
	return PostingDiffKey{
		Title:       Normalize(p.Title),
		Location:    Normalize(p.Location),
		OrgRef:      Normalize(p.OrgRef),
		Type:        Normalize(p.Type),
		Description: Normalize(p.Description),
	}
}

// ScoreValue returns the score or 0 when unscored.
func (p Posting) ScoreValue() int {
	if p.Score == nil {
		return 0
	}
	return *p.Score
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }
