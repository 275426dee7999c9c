package main

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
)

// exportPageSize is the number of rows read per store call during export.
const exportPageSize = 200

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write all saved leads to an XLSX workbook",
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

		f, counts, err := buildWorkbook(ctx, st)
		if err != nil {
			return err
		}
		if err := f.Save(exportOut); err != nil {
			return eris.Wrapf(err, "export: save %s", exportOut)
		}

		zap.L().Info("export complete",
			zap.String("path", exportOut),
			zap.Int("companies", counts[0]),
			zap.Int("jobs", counts[1]),
			zap.Int("contacts", counts[2]),
		)
		return nil
	},
}

// buildWorkbook writes companies, jobs and contacts to one sheet each and
// returns the row counts in that order.
func buildWorkbook(ctx context.Context, st store.Store) (*xlsx.File, [3]int, error) {
	var counts [3]int
	f := xlsx.NewFile()

	companies, err := f.AddSheet("Companies")
	if err != nil {
		return nil, counts, eris.Wrap(err, "export: add companies sheet")
	}
	addRow(companies, "id", "name", "industry", "location", "size", "revenue", "website", "compatibility", "source", "description")
	counts[0], err = forEachPage(ctx, st.ListOrganizations, func(o model.Organization) {
		addRow(companies, o.ID, o.Name, o.Industry, o.Location, o.Size, o.Revenue, o.Website, o.Compatibility, o.Source, o.Description)
	})
	if err != nil {
		return nil, counts, eris.Wrap(err, "export: companies")
	}

	jobs, err := f.AddSheet("Jobs")
	if err != nil {
		return nil, counts, eris.Wrap(err, "export: add jobs sheet")
	}
	addRow(jobs, "id", "company_id", "job_title", "location", "job_type", "salary", "compatibility_score", "date_creation", "apply_url")
	counts[1], err = forEachPage(ctx, st.ListPostings, func(p model.Posting) {
		score := ""
		if p.Score != nil {
			score = strconv.Itoa(*p.Score)
		}
		created := ""
		if !p.CreatedAt.IsZero() {
			created = p.CreatedAt.Format("2006-01-02")
		}
		addRow(jobs, p.ID, p.OrgRef, p.Title, p.Location, p.Type, p.Salary, score, created, strings.Join(p.ApplyURLs, " "))
	})
	if err != nil {
		return nil, counts, eris.Wrap(err, "export: jobs")
	}

	contacts, err := f.AddSheet("Contacts")
	if err != nil {
		return nil, counts, eris.Wrap(err, "export: add contacts sheet")
	}
	addRow(contacts, "id", "company_id", "job_id", "name", "title", "email", "phone", "profile_url")
	counts[2], err = forEachPage(ctx, st.ListContacts, func(c model.Contact) {
		addRow(contacts, c.ID, c.OrgRef, c.PostingRef, c.Name, c.Title, strings.Join(c.Emails, ", "), c.Phone, c.ProfileURL)
	})
	if err != nil {
		return nil, counts, eris.Wrap(err, "export: contacts")
	}

	return f, counts, nil
}

// forEachPage walks list until every row has been visited.
func forEachPage[T any](ctx context.Context, list func(context.Context, int, int) ([]T, int, error), fn func(T)) (int, error) {
	n := 0
	for offset := 0; ; offset += exportPageSize {
		items, total, err := list(ctx, offset, exportPageSize)
		if err != nil {
			return n, err
		}
		for _, item := range items {
			fn(item)
		}
		n += len(items)
		if len(items) == 0 || offset+len(items) >= total {
			return n, nil
		}
	}
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "leads.xlsx", "output workbook path")
	rootCmd.AddCommand(exportCmd)
}
