package auth

import (
	"fmt"
	"strings"
)

// Role is the closed set of actor roles. Scoping and authorization switch on
// it exhaustively; an unrecognized role always falls through to the explicit
// fail-closed branch, never to a default grant.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleDistrict Role = "district"
	RoleDivision Role = "division"
)

// ParseRole validates a stored or submitted role string.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.TrimSpace(strings.ToLower(raw))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleDistrict:
		return RoleDistrict, nil
	case RoleDivision:
		return RoleDivision, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, raw)
	}
}

func (r Role) String() string { return string(r) }

// Valid reports whether the role is one of the three built-ins.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDistrict, RoleDivision:
		return true
	}
	return false
}
