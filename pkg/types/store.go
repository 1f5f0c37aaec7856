package types

import "errors"

// Store defines the interface for backend-agnostic storage access.
// Callers attach to a backend, use its tables, and detach when done.
type Store interface {
	// Attach connects the Store to the backend described by config.
	// Creates the DataDir if it does not exist. Returns ErrAlreadyAttached
	// if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, table operations return ErrStoreDetached.
	Detach() error

	Companies() CompanyTable
	Notes() NoteTable
	Preferences() PreferenceTable
	Users() UserTable
}

// CompanyTable persists company records together with their source tags.
// Every operation runs in one transaction. Returned values are copies.
type CompanyTable interface {
	// Create assigns a fresh ID, stamps both timestamps, and stores c.
	// An empty status becomes DefaultStatus. Returns the new ID.
	Create(c *Company) (string, error)

	// Get returns the company with its notes and sources, or ErrNotFound.
	Get(id string) (*Company, error)

	// Update applies the non-nil fields of u and refreshes updated_at.
	Update(id string, u CompanyUpdate) error

	// Delete removes the company with its notes and sources. Returns the
	// number of companies removed; ErrNotFound when none matched.
	Delete(id string) (int, error)

	// DeleteMany removes every listed company that exists and returns how
	// many were removed. Unknown IDs are ignored.
	DeleteMany(ids []string) (int, error)

	// List returns every company in insertion order, notes and sources
	// included.
	List() ([]*Company, error)
}

// NoteTable persists notes. Every successful mutation refreshes the parent
// company's updated_at.
type NoteTable interface {
	// Add stores n under companyID. Blank text returns ErrEmptyNote.
	Add(companyID string, n *Note) (string, error)

	// ToggleStar flips the starred flag and returns the new value.
	ToggleStar(companyID, noteID string) (bool, error)

	// Edit replaces text, category, and starred.
	Edit(companyID, noteID string, e NoteEdit) error

	// Delete removes the note.
	Delete(companyID, noteID string) error

	// List returns the notes of a company ordered by time then insertion.
	List(companyID string) ([]Note, error)
}

// PreferenceTable persists the singleton preference rows.
type PreferenceTable interface {
	Load() (Preferences, error)
	Save(p Preferences) error

	// RecentSources returns up to limit distinct tags ordered by the most
	// recent activity of the companies that carry them.
	RecentSources(limit int) ([]string, error)
}

// UserTable reads seeded users.
type UserTable interface {
	Get(id int64) (*User, error)
	GetByUsername(username string) (*User, error)
	List() ([]*User, error)
}

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)

// Entity errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidID     = errors.New("invalid id")
	ErrInvalidData   = errors.New("invalid data")
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidType   = errors.New("invalid type")
	ErrInvalidOwner  = errors.New("invalid owner")
	ErrEmptyNote     = errors.New("note text is empty")
)

// Auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
)
