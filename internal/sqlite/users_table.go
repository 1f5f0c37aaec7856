// This file implements the read-only users table accessor.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/minicrm/pkg/types"
)

// Compile-time interface check: usersTable must implement UserTable.
var _ types.UserTable = (*usersTable)(nil)

const userColumns = "id, username, password_hash, role"

// usersTable implements UserTable.
type usersTable struct {
	backend *Backend
}

// Get returns the user with the given ID.
func (ut *usersTable) Get(id int64) (*types.User, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	return ut.getOne("SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

// GetByUsername returns the user with the given username.
func (ut *usersTable) GetByUsername(username string) (*types.User, error) {
	if username == "" {
		return nil, types.ErrInvalidID
	}
	return ut.getOne("SELECT "+userColumns+" FROM users WHERE username = ?", username)
}

// List returns all users ordered by ID.
func (ut *usersTable) List() ([]*types.User, error) {
	users := []*types.User{}
	err := ut.backend.read(func(db *sql.DB) error {
		rows, err := db.Query("SELECT " + userColumns + " FROM users ORDER BY id")
		if err != nil {
			return fmt.Errorf("querying users: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			u, err := hydrateUser(rows)
			if err != nil {
				return fmt.Errorf("scanning user: %w", err)
			}
			users = append(users, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (ut *usersTable) getOne(query string, arg any) (*types.User, error) {
	var user *types.User
	err := ut.backend.read(func(db *sql.DB) error {
		u, err := hydrateUser(db.QueryRow(query, arg))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return types.ErrNotFound
			}
			return fmt.Errorf("getting user: %w", err)
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func hydrateUser(row rowScanner) (*types.User, error) {
	var u types.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role); err != nil {
		return nil, err
	}
	return &u, nil
}
