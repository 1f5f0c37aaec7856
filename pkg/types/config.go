package types

import (
	"errors"
	"fmt"
	"slices"
)

// Config holds backend selection and catalog settings for Store.Attach.
type Config struct {
	Backend   string     `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir   string     `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	Types     []string   `json:"types" yaml:"types" mapstructure:"types"`
	Owners    []string   `json:"owners" yaml:"owners" mapstructure:"owners"`
	SeedUsers []SeedUser `json:"seed_users" yaml:"seed_users" mapstructure:"seed_users"`
}

// SeedUser describes an account created the first time the store is
// initialized. Password is plain text and hashed before it is stored.
type SeedUser struct {
	Username string `json:"username" yaml:"username" mapstructure:"username"`
	Password string `json:"password" yaml:"password" mapstructure:"password"`
	Role     string `json:"role" yaml:"role" mapstructure:"role"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// Default catalogs. The first entry of each is the hard default.
var (
	DefaultTypes  = []string{"Marketing Agency", "Agency", "Direct Customer", "Hosting Provider"}
	DefaultOwners = []string{"Oskars", "Shawn"}
)

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
	ErrCatalogEntry   = errors.New("catalog entries must not be empty")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if slices.Contains(c.Types, "") || slices.Contains(c.Owners, "") {
		return ErrCatalogEntry
	}
	for _, u := range c.SeedUsers {
		if !IsValidRole(u.Role) {
			return fmt.Errorf("seed user %q: %w", u.Username, ErrInvalidRole)
		}
	}
	return nil
}

// TypeCatalog returns the configured company types, or DefaultTypes when
// none are configured.
func (c Config) TypeCatalog() []string {
	if len(c.Types) == 0 {
		return slices.Clone(DefaultTypes)
	}
	return slices.Clone(c.Types)
}

// OwnerCatalog returns the configured owners, or DefaultOwners when none
// are configured.
func (c Config) OwnerCatalog() []string {
	if len(c.Owners) == 0 {
		return slices.Clone(DefaultOwners)
	}
	return slices.Clone(c.Owners)
}

// IsValidType reports whether t is in the type catalog.
func (c Config) IsValidType(t string) bool {
	return slices.Contains(c.TypeCatalog(), t)
}

// IsValidOwner reports whether o is empty or in the owner catalog.
func (c Config) IsValidOwner(o string) bool {
	return o == "" || slices.Contains(c.OwnerCatalog(), o)
}
