package source

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
)

// File reads leads from a local file, for offline runs and imports. JSON
// files hold a batch ({"companies", "jobs", "contacts"}); CSV and XLSX files
// hold one posting per row under a header row.
type File struct {
	path string
	opts options
}

// NewFile creates a File adapter for path.
func NewFile(path string, opts ...Option) *File {
	return &File{path: path, opts: buildOptions(opts)}
}

var _ Adapter = (*File)(nil)

// Fetch implements Adapter. The file is an exported snapshot, so location
// and titles do not filter it.
func (f *File) Fetch(ctx context.Context, _ string, _ []string) (*model.Batch, error) {
	var (
		batch *model.Batch
		err   error
	)
	switch strings.ToLower(filepath.Ext(f.path)) {
	case ".json":
		batch, err = f.readJSON()
	case ".csv":
		var rows [][]string
		if rows, err = readCSV(ctx, f.path); err == nil {
			batch, err = f.fromRows(ctx, rows)
		}
	case ".xlsx":
		var rows [][]string
		if rows, err = readXLSX(f.path); err == nil {
			batch, err = f.fromRows(ctx, rows)
		}
	default:
		return nil, eris.Errorf("source: unsupported file type %q", filepath.Ext(f.path))
	}
	if err != nil {
		return nil, err
	}

	zap.L().Info("source: file read",
		zap.String("path", f.path),
		zap.Int("organizations", len(batch.Organizations)),
		zap.Int("postings", len(batch.Postings)),
	)
	return batch, nil
}

func (f *File) readJSON() (*model.Batch, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, eris.Wrap(err, "source: open file")
	}
	defer func() { _ = fh.Close() }()

	var batch model.Batch
	if err := json.NewDecoder(fh).Decode(&batch); err != nil {
		return nil, eris.Wrap(err, "source: decode json")
	}

	byName := make(map[model.OrgKey]string, len(batch.Organizations))
	for i := range batch.Organizations {
		o := &batch.Organizations[i]
		if o.ID == "" {
			o.ID = f.opts.newID()
		}
		if o.Source == "" {
			o.Source = "file"
		}
		byName[o.Key()] = o.ID
	}
	ids := make(map[string]bool, len(batch.Organizations))
	for _, o := range batch.Organizations {
		ids[o.ID] = true
	}

	now := f.opts.now()
	for i := range batch.Postings {
		p := &batch.Postings[i]
		if p.ID == "" {
			p.ID = f.opts.newID()
		}
		if !ids[p.OrgRef] {
			if id, ok := byName[model.OrgKey(model.Normalize(p.OrgRef))]; ok {
				p.OrgRef = id
			}
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
	}
	for i := range batch.Contacts {
		if batch.Contacts[i].ID == "" {
			batch.Contacts[i].ID = f.opts.newID()
		}
	}
	return &batch, nil
}

// Column aliases accepted in tabular files.
var columnAliases = map[string]string{
	"company":      "company",
	"company_name": "company",
	"organization": "company",
	"employer":     "company",
	"website":      "website",
	"job_title":    "title",
	"title":        "title",
	"location":     "location",
	"description":  "description",
	"salary":       "salary",
	"job_type":     "type",
	"type":         "type",
	"apply_url":    "apply_url",
	"date_posted":  "date",
	"date":         "date",
}

func (f *File) fromRows(ctx context.Context, rows [][]string) (*model.Batch, error) {
	if len(rows) == 0 {
		return &model.Batch{}, nil
	}

	cols := make(map[string]int)
	for i, h := range rows[0] {
		key := strings.ReplaceAll(model.Normalize(h), " ", "_")
		if canonical, ok := columnAliases[key]; ok {
			if _, dup := cols[canonical]; !dup {
				cols[canonical] = i
			}
		}
	}
	if _, ok := cols["company"]; !ok {
		return nil, eris.New("source: file has no company column")
	}
	if _, ok := cols["title"]; !ok {
		return nil, eris.New("source: file has no job title column")
	}

	cell := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	now := f.opts.now()
	batch := &model.Batch{}
	for _, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "source: read rows")
		}
		company, title := cell(row, "company"), cell(row, "title")
		if company == "" || title == "" {
			continue
		}
		org := model.Organization{
			ID:      f.opts.newID(),
			Name:    company,
			Website: cell(row, "website"),
			Source:  "file",
		}
		batch.Organizations = append(batch.Organizations, org)

		var applyURLs []string
		if u := cell(row, "apply_url"); u != "" {
			applyURLs = []string{u}
		}
		batch.Postings = append(batch.Postings, model.Posting{
			ID:          f.opts.newID(),
			OrgRef:      org.ID,
			Title:       title,
			Location:    cell(row, "location"),
			Description: cell(row, "description"),
			Salary:      cell(row, "salary"),
			Type:        cell(row, "type"),
			ApplyURLs:   applyURLs,
			CreatedAt:   parsePostedAt(cell(row, "date"), now),
		})
	}
	return batch, nil
}

func readCSV(ctx context.Context, path string) ([][]string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "source: open file")
	}
	defer func() { _ = fh.Close() }()

	reader := csv.NewReader(fh)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "csv: context cancelled")
		}
		record, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		rows = append(rows, record)
	}
}

func readXLSX(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: file has no sheets")
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, c := range row.Cells {
			cells[j] = c.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
