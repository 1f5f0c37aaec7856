// This file implements the companies table accessor for the SQLite backend.
// Source tags live in the sources table and are written in the same
// transaction as the company row.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/minicrm/pkg/types"
)

// Compile-time interface check: companiesTable must implement CompanyTable.
var _ types.CompanyTable = (*companiesTable)(nil)

// deleteChunkSize bounds the number of placeholders in one IN clause.
const deleteChunkSize = 500

const companyColumns = `id, type, owner, name, url, linkedin, email,
    contacted_email, contacted_url, contacted_linkedin, status, created_at, updated_at`

// companiesTable implements CompanyTable.
type companiesTable struct {
	backend *Backend
}

// Create validates c, assigns a UUID v7 and timestamps, and inserts the
// company, its sources, and any non-blank notes in one transaction.
// On success c is updated in place with the stored values.
func (ct *companiesTable) Create(c *types.Company) (string, error) {
	if c == nil {
		return "", types.ErrInvalidData
	}

	status := c.Status
	if status == "" {
		status = types.DefaultStatus
	}
	if !types.IsValidStatus(status) {
		return "", types.ErrInvalidStatus
	}

	id, err := generateUUID()
	if err != nil {
		return "", err
	}
	sources := types.NewSources(c.Sources...)
	var notes []types.Note
	var created time.Time

	b := ct.backend
	err = b.write(func(tx *sql.Tx) error {
		if !b.config.IsValidType(c.Type) {
			return types.ErrInvalidType
		}
		if !b.config.IsValidOwner(c.Owner) {
			return types.ErrInvalidOwner
		}

		now := b.stamp()
		ts := formatTime(now)
		_, err := tx.Exec(
			"INSERT INTO companies ("+companyColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			id, c.Type, c.Owner, c.Name, c.URL, c.LinkedIn, c.Email,
			boolToInt(c.ContactedVia.Email), boolToInt(c.ContactedVia.URL), boolToInt(c.ContactedVia.LinkedIn),
			status, ts, ts,
		)
		if err != nil {
			return fmt.Errorf("inserting company: %w", err)
		}
		if err := insertSources(tx, id, sources); err != nil {
			return err
		}

		for _, n := range c.Notes {
			n.CompanyID = id
			if err := insertNote(tx, &n, now); err != nil {
				if errors.Is(err, types.ErrEmptyNote) {
					continue
				}
				return err
			}
			notes = append(notes, n)
		}

		created = now
		return nil
	})
	if err != nil {
		return "", err
	}

	c.ID = id
	c.Status = status
	c.CreatedAt = created
	c.UpdatedAt = created
	c.Sources = sources
	if notes == nil {
		notes = []types.Note{}
	}
	c.Notes = notes
	return id, nil
}

// Get retrieves a company by ID with its notes and sources.
func (ct *companiesTable) Get(id string) (*types.Company, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}

	var company *types.Company
	err := ct.backend.read(func(db *sql.DB) error {
		row := db.QueryRow("SELECT "+companyColumns+" FROM companies WHERE id = ?", id)
		c, err := hydrateCompany(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return types.ErrNotFound
			}
			return fmt.Errorf("getting company %s: %w", id, err)
		}

		if c.Notes, err = queryNotes(db, id); err != nil {
			return err
		}
		if c.Sources, err = querySources(db, id); err != nil {
			return err
		}
		company = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return company, nil
}

// Update applies the non-nil fields of u. updated_at is always refreshed
// and a non-nil Sources replaces the stored tag set.
func (ct *companiesTable) Update(id string, u types.CompanyUpdate) error {
	if id == "" {
		return types.ErrInvalidID
	}
	if u.Status != nil && !types.IsValidStatus(*u.Status) {
		return types.ErrInvalidStatus
	}

	b := ct.backend
	return b.write(func(tx *sql.Tx) error {
		if u.Type != nil && !b.config.IsValidType(*u.Type) {
			return types.ErrInvalidType
		}
		if u.Owner != nil && !b.config.IsValidOwner(*u.Owner) {
			return types.ErrInvalidOwner
		}

		var sets []string
		var args []any
		set := func(col string, v any) {
			sets = append(sets, col+" = ?")
			args = append(args, v)
		}
		if u.Type != nil {
			set("type", *u.Type)
		}
		if u.Owner != nil {
			set("owner", *u.Owner)
		}
		if u.Name != nil {
			set("name", *u.Name)
		}
		if u.URL != nil {
			set("url", *u.URL)
		}
		if u.LinkedIn != nil {
			set("linkedin", *u.LinkedIn)
		}
		if u.Email != nil {
			set("email", *u.Email)
		}
		if u.ContactedVia != nil {
			set("contacted_email", boolToInt(u.ContactedVia.Email))
			set("contacted_url", boolToInt(u.ContactedVia.URL))
			set("contacted_linkedin", boolToInt(u.ContactedVia.LinkedIn))
		}
		if u.Status != nil {
			set("status", *u.Status)
		}
		sets = append(sets, "updated_at = MAX(created_at, ?)")
		args = append(args, formatTime(b.stamp()), id)

		res, err := tx.Exec("UPDATE companies SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
		if err != nil {
			return fmt.Errorf("updating company: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("updating company: %w", err)
		} else if n == 0 {
			return types.ErrNotFound
		}

		if u.Sources != nil {
			if _, err := tx.Exec("DELETE FROM sources WHERE company_id = ?", id); err != nil {
				return fmt.Errorf("clearing sources: %w", err)
			}
			if err := insertSources(tx, id, types.NewSources(*u.Sources...)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a company and cascades to its notes and sources.
func (ct *companiesTable) Delete(id string) (int, error) {
	if id == "" {
		return 0, types.ErrInvalidID
	}
	n, err := ct.DeleteMany([]string{id})
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, types.ErrNotFound
	}
	return n, nil
}

// DeleteMany removes the listed companies and their children. Blank,
// repeated, and unknown IDs are ignored. Returns the number of companies
// removed.
func (ct *companiesTable) DeleteMany(ids []string) (int, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return 0, nil
	}

	deleted := 0
	err := ct.backend.write(func(tx *sql.Tx) error {
		for start := 0; start < len(unique); start += deleteChunkSize {
			end := min(start+deleteChunkSize, len(unique))
			chunk := unique[start:end]

			in, args := inClause(chunk)
			if _, err := tx.Exec("DELETE FROM notes WHERE company_id IN "+in, args...); err != nil {
				return fmt.Errorf("deleting notes: %w", err)
			}
			if _, err := tx.Exec("DELETE FROM sources WHERE company_id IN "+in, args...); err != nil {
				return fmt.Errorf("deleting sources: %w", err)
			}
			res, err := tx.Exec("DELETE FROM companies WHERE id IN "+in, args...)
			if err != nil {
				return fmt.Errorf("deleting companies: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("deleting companies: %w", err)
			}
			deleted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// List returns all companies in insertion order with notes and sources.
func (ct *companiesTable) List() ([]*types.Company, error) {
	companies := []*types.Company{}
	err := ct.backend.read(func(db *sql.DB) error {
		rows, err := db.Query("SELECT " + companyColumns + " FROM companies ORDER BY rowid")
		if err != nil {
			return fmt.Errorf("querying companies: %w", err)
		}
		defer rows.Close()

		byID := make(map[string]*types.Company)
		for rows.Next() {
			c, err := hydrateCompany(rows)
			if err != nil {
				return fmt.Errorf("scanning company: %w", err)
			}
			companies = append(companies, c)
			byID[c.ID] = c
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating companies: %w", err)
		}

		if err := attachAllNotes(db, byID); err != nil {
			return err
		}
		return attachAllSources(db, byID)
	})
	if err != nil {
		return nil, err
	}
	return companies, nil
}

// hydrateCompany scans a company row. Notes and Sources are initialized empty.
func hydrateCompany(row rowScanner) (*types.Company, error) {
	var c types.Company
	var email, url, linkedin int
	var createdAt, updatedAt string
	if err := row.Scan(
		&c.ID, &c.Type, &c.Owner, &c.Name, &c.URL, &c.LinkedIn, &c.Email,
		&email, &url, &linkedin, &c.Status, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	c.ContactedVia = types.ContactedVia{Email: email != 0, URL: url != 0, LinkedIn: linkedin != 0}

	var err error
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	c.Notes = []types.Note{}
	c.Sources = types.Sources{}
	return &c, nil
}

// insertSources stores each tag of sources for the company.
func insertSources(tx *sql.Tx, companyID string, sources types.Sources) error {
	for _, s := range sources {
		if _, err := tx.Exec(
			"INSERT OR IGNORE INTO sources (company_id, source) VALUES (?, ?)",
			companyID, s,
		); err != nil {
			return fmt.Errorf("inserting source %q: %w", s, err)
		}
	}
	return nil
}

// querySources returns the tags of one company ordered case-insensitively.
func querySources(db *sql.DB, companyID string) (types.Sources, error) {
	rows, err := db.Query(
		"SELECT source FROM sources WHERE company_id = ? ORDER BY source COLLATE NOCASE, source",
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	sources := types.Sources{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// attachAllSources loads every tag and assigns it to its company.
func attachAllSources(db *sql.DB, byID map[string]*types.Company) error {
	rows, err := db.Query("SELECT company_id, source FROM sources ORDER BY source COLLATE NOCASE, source")
	if err != nil {
		return fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var companyID, s string
		if err := rows.Scan(&companyID, &s); err != nil {
			return fmt.Errorf("scanning source: %w", err)
		}
		if c, ok := byID[companyID]; ok {
			c.Sources = append(c.Sources, s)
		}
	}
	return rows.Err()
}

// touchCompany refreshes updated_at and reports whether the company exists.
func touchCompany(tx *sql.Tx, companyID, ts string) (bool, error) {
	res, err := tx.Exec("UPDATE companies SET updated_at = MAX(created_at, ?) WHERE id = ?", ts, companyID)
	if err != nil {
		return false, fmt.Errorf("touching company: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("touching company: %w", err)
	}
	return n > 0, nil
}

// inClause builds "(?, ?, ...)" and its arguments for ids.
func inClause(ids []string) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return "(" + strings.Join(placeholders, ", ") + ")", args
}
