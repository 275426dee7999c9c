package reconcile

import "github.com/sells-group/prospect-cli/internal/model"

// RekeyPostingsAgainstStore re-points postings from a batch organization to
// the stored organization with the same normalized name. Postings whose
// organization is unknown to the batch or absent from the store keep their
// reference.
func RekeyPostingsAgainstStore(postings []model.Posting, batchOrgs, storeOrgs []model.Organization) []model.Posting {
	storeID := make(map[model.OrgKey]string, len(storeOrgs))
	for _, o := range storeOrgs {
		if o.ID == "" || o.Key() == "" {
			continue
		}
		if _, ok := storeID[o.Key()]; !ok {
			storeID[o.Key()] = o.ID
		}
	}

	batchKey := make(map[string]model.OrgKey, len(batchOrgs))
	for _, o := range batchOrgs {
		if o.ID == "" || o.Key() == "" {
			continue
		}
		batchKey[o.ID] = o.Key()
	}

	out := make([]model.Posting, len(postings))
	for i, p := range postings {
		if k, ok := batchKey[p.OrgRef]; ok {
			if id, ok := storeID[k]; ok {
				p.OrgRef = id
			}
		}
		out[i] = p
	}
	return out
}

type postingRef struct {
	title  string
	orgRef string
}

// RekeyContactsAgainstStore resolves contact references. A non-empty OrgRef
// is looked up by normalized organization name among orgs and replaced by
// that organization's id. The PostingRef is then set to the posting whose
// normalized (title, organization id) matches the contact's (title, OrgRef).
// Unmatched references are left unchanged. When names or posting keys
// collide, the earliest entry in orgs or postings wins.
func RekeyContactsAgainstStore(contacts []model.Contact, postings []model.Posting, orgs []model.Organization) []model.Contact {
	orgIdx := firstIndex(orgs, model.Organization.Key)
	postingIdx := firstIndex(postings, func(p model.Posting) postingRef {
		return postingRef{title: model.Normalize(p.Title), orgRef: model.Normalize(p.OrgRef)}
	})

	out := make([]model.Contact, len(contacts))
	for i, c := range contacts {
		if c.OrgRef != "" {
			if j, ok := orgIdx[model.OrgKey(model.Normalize(c.OrgRef))]; ok && orgs[j].ID != "" {
				c.OrgRef = orgs[j].ID
			}
		}
		if c.Title != "" && c.OrgRef != "" {
			ref := postingRef{title: model.Normalize(c.Title), orgRef: model.Normalize(c.OrgRef)}
			if j, ok := postingIdx[ref]; ok && postings[j].ID != "" {
				c.PostingRef = postings[j].ID
			}
		}
		out[i] = c
	}
	return out
}
