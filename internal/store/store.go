package store

import (
	"context"

	"github.com/sells-group/prospect-cli/internal/model"
)

// Page sizes for listing endpoints.
const (
	OrganizationPageSize = 5
	PostingPageSize      = 3
	ContactPageSize      = 10
)

// Store defines the persistence interface for leads and the user profile.
type Store interface {
	// Reconciliation lookups. Arguments are compared after normalization.
	LookupOrganizationsByName(ctx context.Context, names []string) ([]model.Organization, error)
	LookupPostingsByTitleAndLocation(ctx context.Context, titles, locations []string) ([]model.Posting, error)
	LookupContactsByNameAndTitle(ctx context.Context, names, titles []string) ([]model.Contact, error)

	// Save persists a batch atomically. Records whose id already exists are
	// left untouched.
	Save(ctx context.Context, batch *model.Batch) error

	// Listing, newest first. The int is the total row count.
	ListOrganizations(ctx context.Context, offset, limit int) ([]model.Organization, int, error)
	ListPostings(ctx context.Context, offset, limit int) ([]model.Posting, int, error)
	ListContacts(ctx context.Context, offset, limit int) ([]model.Contact, int, error)

	// Profile. GetProfile returns nil, nil when none has been saved.
	GetProfile(ctx context.Context) (*model.Profile, error)
	UpsertProfile(ctx context.Context, profile model.Profile) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Pages returns the number of pages needed to show total rows.
func Pages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

func normalizeAll(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		n := model.Normalize(s)
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
