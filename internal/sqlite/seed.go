// This file implements first-run seeding of preferences and users.
package sqlite

import (
	"database/sql"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/mesh-intelligence/minicrm/pkg/types"
)

// seed inserts default preference rows that are missing and, when the
// users table is empty, the configured seed users. Both steps are
// idempotent and share one transaction.
func seed(db *sql.DB, config types.Config) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := seedPreferences(tx, config); err != nil {
		return err
	}
	if err := seedUsers(tx, config.SeedUsers); err != nil {
		return err
	}
	return tx.Commit()
}

// seedPreferences creates the preference rows with catalog defaults.
func seedPreferences(tx *sql.Tx, config types.Config) error {
	defaults := [][2]string{
		{types.PrefLastType, config.TypeCatalog()[0]},
		{types.PrefLastOwner, config.OwnerCatalog()[0]},
		{types.PrefLastSources, "[]"},
	}
	for _, kv := range defaults {
		if _, err := tx.Exec("INSERT OR IGNORE INTO prefs (key, value) VALUES (?, ?)", kv[0], kv[1]); err != nil {
			return fmt.Errorf("seeding pref %s: %w", kv[0], err)
		}
	}
	return nil
}

// seedUsers hashes and inserts users only when no user exists yet.
func seedUsers(tx *sql.Tx, users []types.SeedUser) error {
	var count int
	if err := tx.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("counting users: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, u := range users {
		if u.Username == "" || u.Password == "" {
			return fmt.Errorf("seed user %q: %w", u.Username, types.ErrInvalidData)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hashing password for %s: %w", u.Username, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)",
			u.Username, string(hash), u.Role,
		); err != nil {
			return fmt.Errorf("inserting user %s: %w", u.Username, err)
		}
	}
	return nil
}
