package identity

import (
	"errors"
	"fmt"
)

// Role is the authorization tier of a principal.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

var (
	// ErrUnauthorized indicates the caller's role or ownership does not permit the operation.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAdminRequired rejects a non-admin caller of an admin-only operation.
	ErrAdminRequired = fmt.Errorf("%w: admin role required", ErrUnauthorized)

	// ErrNotOwner rejects a caller acting on another principal's data without
	// being an admin.
	ErrNotOwner = fmt.Errorf("%w: not the account owner", ErrUnauthorized)

	// ErrInvalidRole reports an unknown role name.
	ErrInvalidRole = errors.New("invalid role")
)

// ParseRole converts a role name into a Role.
func ParseRole(name string) (Role, error) {
	switch r := Role(name); r {
	case RoleAdmin, RoleUser, RoleGuest:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, name)
	}
}
