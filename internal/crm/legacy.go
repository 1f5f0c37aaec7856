package crm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/minicrm/pkg/types"
)

// Files of a JSON-document data directory.
const (
	LegacyCompaniesFile = "companies.json"
	LegacyPrefsFile     = "prefs.json"
)

// legacyStatuses maps statuses of the JSON-document revisions onto the
// current lead stages. Anything else that is not a current status becomes
// New on import.
var legacyStatuses = map[string]string{
	"Followup Sent": types.StatusContacted,
	"Replied":       types.StatusContacted,
	"Discovery":     types.StatusQualified,
}

// legacyTypes maps the lower-case types of the first revision.
var legacyTypes = map[string]string{
	"marketing":   "Marketing Agency",
	"development": "Agency",
	"merchant":    "Direct Customer",
}

type legacyDocument struct {
	Companies []legacyCompany `json:"companies"`
}

type legacyCompany struct {
	ID           string             `json:"id"`
	Type         string             `json:"type"`
	Owner        string             `json:"owner"`
	Name         string             `json:"name"`
	URL          string             `json:"url"`
	LinkedIn     string             `json:"linkedin"`
	Email        string             `json:"email"`
	ContactedVia types.ContactedVia `json:"contacted_via"`
	Status       string             `json:"status"`
	Notes        []legacyNote       `json:"notes"`
}

type legacyNote struct {
	Time string `json:"time"`
	Text string `json:"text"`
}

type legacyPrefs struct {
	LastType  string `json:"last_type"`
	LastOwner string `json:"last_owner"`
}

// MigrateLegacy imports the companies.json document in dir, skipping
// duplicates, then adopts prefs.json when present. IDs and timestamps are
// assigned afresh.
func (s *Service) MigrateLegacy(ctx context.Context, dir string) (ImportResult, error) {
	log := s.logger(ctx)

	data, err := os.ReadFile(filepath.Join(dir, LegacyCompaniesFile))
	if err != nil {
		return ImportResult{}, fmt.Errorf("reading %s: %w", LegacyCompaniesFile, err)
	}
	var doc legacyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return ImportResult{}, fmt.Errorf("decoding %s: %w", LegacyCompaniesFile, err)
	}

	rows := make([]ImportRow, 0, len(doc.Companies))
	for _, lc := range doc.Companies {
		rows = append(rows, lc.importRow())
	}
	res, err := s.ImportRows(ctx, rows, true)
	if err != nil {
		return res, err
	}

	if err := s.migrateLegacyPrefs(dir); err != nil {
		log.Warn("skipping legacy preferences", zap.Error(err))
	}
	log.Info("legacy data migrated", zap.String("dir", dir), zap.Int("added", res.Added), zap.Int("skipped", res.Skipped))
	return res, nil
}

// migrateLegacyPrefs saves the remembered type and owner of prefs.json.
// A missing file is not an error.
func (s *Service) migrateLegacyPrefs(dir string) error {
	data, err := os.ReadFile(filepath.Join(dir, LegacyPrefsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", LegacyPrefsFile, err)
	}
	var lp legacyPrefs
	if err := json.Unmarshal(data, &lp); err != nil {
		return fmt.Errorf("decoding %s: %w", LegacyPrefsFile, err)
	}

	prefs, err := s.store.Preferences().Load()
	if err != nil {
		return err
	}
	if t := legacyType(lp.LastType); s.cfg.IsValidType(t) {
		prefs.LastType = t
	}
	if lp.LastOwner != "" && s.cfg.IsValidOwner(lp.LastOwner) {
		prefs.LastOwner = lp.LastOwner
	}
	return s.store.Preferences().Save(prefs)
}

func (lc legacyCompany) importRow() ImportRow {
	row := ImportRow{
		Name:         lc.Name,
		URL:          lc.URL,
		Email:        lc.Email,
		LinkedIn:     lc.LinkedIn,
		Type:         legacyType(lc.Type),
		Status:       lc.Status,
		Owner:        lc.Owner,
		ContactedVia: lc.ContactedVia,
	}
	if mapped, ok := legacyStatuses[lc.Status]; ok {
		row.Status = mapped
	}
	for _, n := range lc.Notes {
		row.Notes = append(row.Notes, types.Note{Text: n.Text})
	}
	return row
}

func legacyType(t string) string {
	if mapped, ok := legacyTypes[t]; ok {
		return mapped
	}
	return t
}
