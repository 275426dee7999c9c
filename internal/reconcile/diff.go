package reconcile

import "github.com/sells-group/prospect-cli/internal/model"

// DiffNewOrganizations returns the batch organizations whose normalized name
// is not in stored. Organizations without a name are dropped.
func DiffNewOrganizations(batch, stored []model.Organization) []model.Organization {
	existing := keySet(stored, model.Organization.Key)
	out := make([]model.Organization, 0, len(batch))
	for _, o := range batch {
		if o.Key() == "" {
			continue
		}
		if _, ok := existing[o.Key()]; ok {
			continue
		}
		out = append(out, o)
	}
	return out
}

// DiffNewPostings returns the postings whose diff key is not in stored.
// Postings must already be rekeyed against the store.
func DiffNewPostings(postings, stored []model.Posting) []model.Posting {
	return absent(postings, keySet(stored, model.Posting.DiffKey), model.Posting.DiffKey)
}

// DiffNewContacts returns the contacts whose (name, title) is not in stored.
func DiffNewContacts(contacts, stored []model.Contact) []model.Contact {
	return absent(contacts, keySet(stored, model.Contact.Key), model.Contact.Key)
}
