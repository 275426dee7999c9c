package reconcile

import "github.com/sells-group/prospect-cli/internal/model"

// DedupeOrganizations keeps the first organization per normalized name and
// stores that normalized name on the survivor. Postings referencing a dropped
// duplicate are re-pointed to the survivor. Postings whose OrgRef is not a
// batch organization id are returned unchanged.
func DedupeOrganizations(orgs []model.Organization, postings []model.Posting) ([]model.Organization, []model.Posting) {
	keyByID := make(map[string]model.OrgKey, len(orgs))
	for _, o := range orgs {
		if o.ID == "" {
			continue
		}
		keyByID[o.ID] = o.Key()
	}

	survivors := make([]model.Organization, 0, len(orgs))
	survivorID := make(map[model.OrgKey]string, len(orgs))
	for _, o := range orgs {
		k := o.Key()
		if _, dup := survivorID[k]; dup {
			continue
		}
		survivorID[k] = o.ID
		o.Name = string(k)
		survivors = append(survivors, o)
	}

	rewritten := make([]model.Posting, len(postings))
	for i, p := range postings {
		if k, ok := keyByID[p.OrgRef]; ok && survivorID[k] != "" {
			p.OrgRef = survivorID[k]
		}
		rewritten[i] = p
	}

	return survivors, rewritten
}

// DedupePostings keeps the first posting per normalized (title, location,
// type, organization). Title, location and type are stored normalized.
func DedupePostings(postings []model.Posting) []model.Posting {
	out := keepFirst(postings, model.Posting.DedupKey)
	for i := range out {
		out[i].Title = model.Normalize(out[i].Title)
		out[i].Location = model.Normalize(out[i].Location)
		out[i].Type = model.Normalize(out[i].Type)
	}
	return out
}

// DedupeContacts keeps the first contact per normalized (name, title), both
// stored normalized.
func DedupeContacts(contacts []model.Contact) []model.Contact {
	out := keepFirst(contacts, model.Contact.Key)
	for i := range out {
		out[i].Name = model.Normalize(out[i].Name)
		out[i].Title = model.Normalize(out[i].Title)
	}
	return out
}
