package model

import "github.com/rotisserie/eris"

// Batch groups the records produced by one fetch or read back from the store.
type Batch struct {
	Organizations []Organization `json:"companies,omitempty"`
	Postings      []Posting      `json:"jobs,omitempty"`
	Contacts      []Contact      `json:"contacts,omitempty"`
	Pages         int            `json:"pages,omitempty"`
}

// Errors returned by Batch.Validate. Their text is shown to API callers.
var (
	ErrNoPostings      = eris.New("No jobs found in the leads data.")
	ErrNoOrganizations = eris.New("No companies found in the leads data.")
)

// Validate checks that a batch can be inserted: it needs both postings and
// organizations.
func (b *Batch) Validate() error {
	if b == nil || len(b.Postings) == 0 {
		return ErrNoPostings
	}
	if len(b.Organizations) == 0 {
		return ErrNoOrganizations
	}
	return nil
}

// Names returns the organization names in batch order.
func (b *Batch) Names() []string {
	out := make([]string, 0, len(b.Organizations))
	for _, o := range b.Organizations {
		out = append(out, o.Name)
	}
	return out
}
