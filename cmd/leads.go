package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
)

var (
	leadsType   string
	leadsOffset int
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Inspect saved leads",
}

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print one page of saved leads as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}
		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		page, err := listPage(ctx, st, leadsType, leadsOffset)
		if err != nil {
			return err
		}
		return writeIndentedJSON(cmd, page)
	},
}

// listPage reads one page of kind at offset using the API page sizes.
func listPage(ctx context.Context, st store.Store, kind string, offset int) (*model.Batch, error) {
	if offset < 0 {
		return nil, eris.New("offset must be non-negative")
	}
	out := &model.Batch{}
	wantOrgs := kind == "companies" || kind == "leads"
	wantPostings := kind == "jobs" || kind == "leads"
	wantContacts := kind == "contacts" || kind == "leads"
	if !wantOrgs && !wantPostings && !wantContacts {
		return nil, eris.Errorf("unknown lead type %q (companies, jobs, contacts, leads)", kind)
	}

	if wantOrgs {
		orgs, total, err := st.ListOrganizations(ctx, offset, store.OrganizationPageSize)
		if err != nil {
			return nil, err
		}
		out.Organizations = orgs
		out.Pages = max(out.Pages, store.Pages(total, store.OrganizationPageSize))
	}
	if wantPostings {
		postings, total, err := st.ListPostings(ctx, offset, store.PostingPageSize)
		if err != nil {
			return nil, err
		}
		out.Postings = postings
		out.Pages = max(out.Pages, store.Pages(total, store.PostingPageSize))
	}
	if wantContacts {
		contacts, total, err := st.ListContacts(ctx, offset, store.ContactPageSize)
		if err != nil {
			return nil, err
		}
		out.Contacts = contacts
		out.Pages = max(out.Pages, store.Pages(total, store.ContactPageSize))
	}
	return out, nil
}

func init() {
	leadsListCmd.Flags().StringVar(&leadsType, "type", "leads", "companies, jobs, contacts or leads")
	leadsListCmd.Flags().IntVar(&leadsOffset, "offset", 0, "row offset")

	leadsCmd.AddCommand(leadsListCmd)
	rootCmd.AddCommand(leadsCmd)
}
