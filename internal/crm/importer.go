package crm

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/minicrm/pkg/types"
)

// importColumns is the positional layout used when a CSV has no header.
var importColumns = []string{"name", "url", "email", "linkedin", "type", "status", "owner", "notes"}

// ImportRow is one record to import. Invalid type and owner fall back to
// preferences then the catalog default; an invalid status becomes New.
type ImportRow struct {
	Name         string
	URL          string
	Email        string
	LinkedIn     string
	Type         string
	Status       string
	Owner        string
	ContactedVia types.ContactedVia
	Sources      types.Sources
	Notes        []types.Note
}

// ImportResult counts the outcome of an import.
type ImportResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// ParseCSV reads import rows from r. When the first record names a "name"
// or "url" column it is treated as a header and columns are matched by
// name, including an optional "sources" column; otherwise columns are read
// positionally as name, url, email, linkedin, type, status, owner, notes.
// Records whose fields are all blank are dropped.
func ParseCSV(r io.Reader) ([]ImportRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
		if !blankRecord(rec) {
			records = append(records, rec)
		}
	}
	if len(records) == 0 {
		return []ImportRow{}, nil
	}
	records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")

	columns := importColumns
	if header, ok := headerOf(records[0]); ok {
		columns = header
		records = records[1:]
	}

	rows := make([]ImportRow, 0, len(records))
	for _, rec := range records {
		field := func(name string) string {
			for i, col := range columns {
				if col == name && i < len(rec) {
					return strings.TrimSpace(rec[i])
				}
			}
			return ""
		}
		row := ImportRow{
			Name:     field("name"),
			URL:      field("url"),
			Email:    field("email"),
			LinkedIn: field("linkedin"),
			Type:     field("type"),
			Status:   field("status"),
			Owner:    field("owner"),
			Sources:  types.ParseSources(field("sources")),
		}
		if note := field("notes"); note != "" {
			row.Notes = []types.Note{{Text: note}}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// headerOf returns the lower-cased column names of rec if it looks like a
// header row.
func headerOf(rec []string) ([]string, bool) {
	cols := make([]string, len(rec))
	isHeader := false
	for i, v := range rec {
		cols[i] = strings.ToLower(strings.TrimSpace(v))
		if cols[i] == "name" || cols[i] == "url" {
			isHeader = true
		}
	}
	return cols, isHeader
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Import parses a CSV and adds its rows. With skipDuplicates, rows that
// match an existing or earlier imported company are counted as skipped.
func (s *Service) Import(ctx context.Context, r io.Reader, skipDuplicates bool) (ImportResult, error) {
	rows, err := ParseCSV(r)
	if err != nil {
		return ImportResult{}, err
	}
	return s.ImportRows(ctx, rows, skipDuplicates)
}

// ImportCompanies re-imports exported companies. IDs and timestamps are
// assigned afresh.
func (s *Service) ImportCompanies(ctx context.Context, companies []*types.Company, skipDuplicates bool) (ImportResult, error) {
	rows := make([]ImportRow, 0, len(companies))
	for _, c := range companies {
		rows = append(rows, ImportRow{
			Name:         c.Name,
			URL:          c.URL,
			Email:        c.Email,
			LinkedIn:     c.LinkedIn,
			Type:         c.Type,
			Status:       c.Status,
			Owner:        c.Owner,
			ContactedVia: c.ContactedVia,
			Sources:      c.Sources,
			Notes:        c.Notes,
		})
	}
	return s.ImportRows(ctx, rows, skipDuplicates)
}

// ImportRows adds rows in order. Each row is created in its own
// transaction and joins the duplicate candidates for later rows.
// Preferences are read but not updated. On a storage error the counts so
// far are returned with the error.
func (s *Service) ImportRows(ctx context.Context, rows []ImportRow, skipDuplicates bool) (ImportResult, error) {
	log := s.logger(ctx)

	prefs, err := s.store.Preferences().Load()
	if err != nil {
		log.Error("loading preferences", zap.Error(err))
		return ImportResult{}, err
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	existing, err := s.store.Companies().List()
	if err != nil {
		log.Error("listing companies", zap.Error(err))
		return ImportResult{}, err
	}
	candidates := candidatesOf(existing)

	var res ImportResult
	defer func() { s.metrics.Imported(res.Added, res.Skipped) }()

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		c := s.companyFromRow(row, prefs)
		if m := FindDuplicate(candidates, c.Name, c.URL); m != nil {
			s.metrics.DuplicateDetected(m.Field)
			if skipDuplicates {
				res.Skipped++
				continue
			}
		}

		id, err := s.store.Companies().Create(c)
		if err != nil {
			log.Error("importing row", zap.Int("row", i+1), zap.Error(err))
			return res, fmt.Errorf("importing row %d: %w", i+1, err)
		}
		candidates = append(candidates, Candidate{ID: id, Name: c.Name, URL: c.URL})
		res.Added++
	}

	log.Info("import finished", zap.Int("added", res.Added), zap.Int("skipped", res.Skipped))
	return res, nil
}

// companyFromRow coerces an import row into a valid company.
func (s *Service) companyFromRow(row ImportRow, prefs types.Preferences) *types.Company {
	typ := strings.TrimSpace(row.Type)
	if !s.cfg.IsValidType(typ) {
		typ = s.pickType("", prefs.LastType)
	}
	owner := strings.TrimSpace(row.Owner)
	if owner == "" || !s.cfg.IsValidOwner(owner) {
		owner = s.pickOwner("", prefs.LastOwner)
	}
	status := strings.TrimSpace(row.Status)
	if !types.IsValidStatus(status) {
		status = types.DefaultStatus
	}

	notes := make([]types.Note, 0, len(row.Notes))
	for _, n := range row.Notes {
		if strings.TrimSpace(n.Text) == "" {
			continue
		}
		notes = append(notes, types.Note{Text: n.Text, Category: n.Category, Starred: n.Starred})
	}

	return &types.Company{
		Type:         typ,
		Owner:        owner,
		Name:         strings.TrimSpace(row.Name),
		URL:          strings.TrimSpace(row.URL),
		LinkedIn:     strings.TrimSpace(row.LinkedIn),
		Email:        strings.TrimSpace(row.Email),
		ContactedVia: row.ContactedVia,
		Status:       status,
		Sources:      types.NewSources(row.Sources...),
		Notes:        notes,
	}
}
