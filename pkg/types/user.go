package types

import "errors"

// User roles.
const (
	RoleAdmin   = "Admin"
	RoleManager = "Manager"
	RoleSales   = "Sales"
)

// ErrInvalidRole is returned when a seeded user carries an unknown role.
var ErrInvalidRole = errors.New("invalid role")

// IsValidRole reports whether r is a known role.
func IsValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleManager, RoleSales:
		return true
	default:
		return false
	}
}

// User is an account that can sign in to the API. PasswordHash is a
// bcrypt hash and is never serialized.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
}
