// Package sqlite implements the SQLite storage backend for minicrm.
//
// A Backend owns one database file in the configured data directory. Reads
// share the backend lock; writes take it exclusively and run inside a single
// transaction, so every table operation is atomic.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/minicrm/pkg/types"
)

// DBFileName is the database file created inside the data directory.
const DBFileName = "minicrm.db"

// Compile-time interface check: Backend must implement Store.
var _ types.Store = (*Backend)(nil)

// Backend implements the Store interface using SQLite.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	now      func() time.Time

	companies *companiesTable
	notes     *notesTable
	prefs     *preferencesTable
	users     *usersTable
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	b := &Backend{now: time.Now}
	b.companies = &companiesTable{backend: b}
	b.notes = &notesTable{backend: b}
	b.prefs = &preferencesTable{backend: b}
	b.users = &usersTable{backend: b}
	return b
}

// SetClock replaces the time source used for timestamps.
func (b *Backend) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// Attach initializes the backend with the given configuration.
// Creates DataDir if it does not exist, applies the schema, and seeds
// preferences and users. Existing data is kept.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	dsn := "file:" + filepath.Join(dataDir, DBFileName) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return fmt.Errorf("applying schema: %w", err)
		}
	}

	if err := seed(db, config); err != nil {
		db.Close()
		return fmt.Errorf("seeding: %w", err)
	}

	b.db = db
	b.config = config
	b.attached = true
	return nil
}

// Detach releases all resources held by the backend.
// After Detach, all operations return ErrStoreDetached.
// Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	b.attached = false
	if b.db != nil {
		err := b.db.Close()
		b.db = nil
		if err != nil {
			return fmt.Errorf("closing database: %w", err)
		}
	}
	return nil
}

// Config returns the configuration the backend was attached with.
func (b *Backend) Config() types.Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config
}

// Companies returns the company table accessor.
func (b *Backend) Companies() types.CompanyTable { return b.companies }

// Notes returns the note table accessor.
func (b *Backend) Notes() types.NoteTable { return b.notes }

// Preferences returns the preference table accessor.
func (b *Backend) Preferences() types.PreferenceTable { return b.prefs }

// Users returns the user table accessor.
func (b *Backend) Users() types.UserTable { return b.users }

// read runs fn under the shared lock.
func (b *Backend) read(fn func(db *sql.DB) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.ErrStoreDetached
	}
	return fn(b.db)
}

// write runs fn inside a transaction under the exclusive lock. The
// transaction commits only if fn returns nil.
func (b *Backend) write(fn func(tx *sql.Tx) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrStoreDetached
	}

	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// stamp returns the current time at stored granularity.
// The caller must hold b.mu.
func (b *Backend) stamp() time.Time {
	return types.Stamp(b.now())
}

// generateUUID generates a new UUID v7 for entity IDs.
func generateUUID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating UUID v7: %w", err)
	}
	return id.String(), nil
}

// formatTime renders t in the stored layout.
func formatTime(t time.Time) string {
	return types.Stamp(t).Format(types.TimestampLayout)
}

// parseTime parses a stored timestamp as UTC.
func parseTime(s string) (time.Time, error) {
	return time.ParseInLocation(types.TimestampLayout, s, time.UTC)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// boolToInt converts a flag for storage in an INTEGER column.
func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
