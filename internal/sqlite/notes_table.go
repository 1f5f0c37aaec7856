// This file implements the notes table accessor for the SQLite backend.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/minicrm/pkg/types"
)

// Compile-time interface check: notesTable must implement NoteTable.
var _ types.NoteTable = (*notesTable)(nil)

const noteColumns = "id, company_id, time, text, starred, category"

// notesTable implements NoteTable.
type notesTable struct {
	backend *Backend
}

// Add stores a note for companyID. Blank text returns ErrEmptyNote and an
// unknown company returns ErrNotFound; neither writes anything.
func (nt *notesTable) Add(companyID string, n *types.Note) (string, error) {
	if companyID == "" {
		return "", types.ErrInvalidID
	}
	if n == nil {
		return "", types.ErrInvalidData
	}
	if strings.TrimSpace(n.Text) == "" {
		return "", types.ErrEmptyNote
	}

	b := nt.backend
	stored := *n
	stored.CompanyID = companyID
	err := b.write(func(tx *sql.Tx) error {
		now := b.stamp()
		ok, err := touchCompany(tx, companyID, formatTime(now))
		if err != nil {
			return err
		}
		if !ok {
			return types.ErrNotFound
		}
		return insertNote(tx, &stored, now)
	})
	if err != nil {
		return "", err
	}

	*n = stored
	return n.ID, nil
}

// ToggleStar flips the starred flag of a note that belongs to companyID.
func (nt *notesTable) ToggleStar(companyID, noteID string) (bool, error) {
	if companyID == "" || noteID == "" {
		return false, types.ErrInvalidID
	}

	b := nt.backend
	var starred bool
	err := b.write(func(tx *sql.Tx) error {
		var current int
		err := tx.QueryRow(
			"SELECT starred FROM notes WHERE id = ? AND company_id = ?", noteID, companyID,
		).Scan(&current)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return types.ErrNotFound
			}
			return fmt.Errorf("reading note: %w", err)
		}

		starred = current == 0
		if _, err := tx.Exec(
			"UPDATE notes SET starred = ? WHERE id = ? AND company_id = ?",
			boolToInt(starred), noteID, companyID,
		); err != nil {
			return fmt.Errorf("updating note: %w", err)
		}
		_, err = touchCompany(tx, companyID, formatTime(b.stamp()))
		return err
	})
	if err != nil {
		return false, err
	}
	return starred, nil
}

// Edit replaces the text, category, and starred flag of a note. The note
// time is left unchanged.
func (nt *notesTable) Edit(companyID, noteID string, e types.NoteEdit) error {
	if companyID == "" || noteID == "" {
		return types.ErrInvalidID
	}

	b := nt.backend
	return b.write(func(tx *sql.Tx) error {
		res, err := tx.Exec(
			"UPDATE notes SET text = ?, category = ?, starred = ? WHERE id = ? AND company_id = ?",
			strings.TrimSpace(e.Text), types.NormalizeCategory(e.Category), boolToInt(e.Starred),
			noteID, companyID,
		)
		if err != nil {
			return fmt.Errorf("updating note: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("updating note: %w", err)
		} else if n == 0 {
			return types.ErrNotFound
		}
		_, err = touchCompany(tx, companyID, formatTime(b.stamp()))
		return err
	})
}

// Delete removes a note that belongs to companyID.
func (nt *notesTable) Delete(companyID, noteID string) error {
	if companyID == "" || noteID == "" {
		return types.ErrInvalidID
	}

	b := nt.backend
	return b.write(func(tx *sql.Tx) error {
		res, err := tx.Exec("DELETE FROM notes WHERE id = ? AND company_id = ?", noteID, companyID)
		if err != nil {
			return fmt.Errorf("deleting note: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("deleting note: %w", err)
		} else if n == 0 {
			return types.ErrNotFound
		}
		_, err = touchCompany(tx, companyID, formatTime(b.stamp()))
		return err
	})
}

// List returns the notes of a company ordered by time then insertion.
func (nt *notesTable) List(companyID string) ([]types.Note, error) {
	if companyID == "" {
		return nil, types.ErrInvalidID
	}

	var notes []types.Note
	err := nt.backend.read(func(db *sql.DB) error {
		var exists int
		if err := db.QueryRow("SELECT 1 FROM companies WHERE id = ?", companyID).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return types.ErrNotFound
			}
			return fmt.Errorf("checking company existence: %w", err)
		}
		var err error
		notes, err = queryNotes(db, companyID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return notes, nil
}

// insertNote assigns an ID and time to n and inserts it. The category is
// normalized and the text trimmed.
func insertNote(tx *sql.Tx, n *types.Note, now time.Time) error {
	text := strings.TrimSpace(n.Text)
	if text == "" {
		return types.ErrEmptyNote
	}
	id, err := generateUUID()
	if err != nil {
		return err
	}

	n.ID = id
	n.Text = text
	n.Time = now
	n.Category = types.NormalizeCategory(n.Category)
	if _, err := tx.Exec(
		"INSERT INTO notes ("+noteColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		n.ID, n.CompanyID, formatTime(now), n.Text, boolToInt(n.Starred), n.Category,
	); err != nil {
		return fmt.Errorf("inserting note: %w", err)
	}
	return nil
}

// queryNotes returns the notes of one company ordered by time then rowid.
func queryNotes(db *sql.DB, companyID string) ([]types.Note, error) {
	rows, err := db.Query(
		"SELECT "+noteColumns+" FROM notes WHERE company_id = ? ORDER BY time, rowid",
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying notes: %w", err)
	}
	defer rows.Close()

	notes := []types.Note{}
	for rows.Next() {
		n, err := hydrateNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// attachAllNotes loads every note and appends it to its company.
func attachAllNotes(db *sql.DB, byID map[string]*types.Company) error {
	rows, err := db.Query("SELECT " + noteColumns + " FROM notes ORDER BY time, rowid")
	if err != nil {
		return fmt.Errorf("querying notes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		n, err := hydrateNote(rows)
		if err != nil {
			return fmt.Errorf("scanning note: %w", err)
		}
		if c, ok := byID[n.CompanyID]; ok {
			c.Notes = append(c.Notes, n)
		}
	}
	return rows.Err()
}

func hydrateNote(row rowScanner) (types.Note, error) {
	var n types.Note
	var ts string
	var starred int
	if err := row.Scan(&n.ID, &n.CompanyID, &ts, &n.Text, &starred, &n.Category); err != nil {
		return n, err
	}
	t, err := parseTime(ts)
	if err != nil {
		return n, fmt.Errorf("parsing note time: %w", err)
	}
	n.Time = t
	n.Starred = starred != 0
	n.Category = types.NormalizeCategory(n.Category)
	return n, nil
}
