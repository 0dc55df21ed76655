package domain

import (
	"fmt"
	"strings"
)

// Role is one of the closed set of roles an actor can hold.
type Role string

const (
	RolePassenger Role = "PASSENGER"
	RoleDriver    Role = "DRIVER"
	RoleAdmin     Role = "ADMIN"
)

// ParseRole converts a raw role string into a Role.
// Unknown roles are an error rather than being silently ignored.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RolePassenger:
		return RolePassenger, nil
	case RoleDriver:
		return RoleDriver, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// ParseRoles parses every entry of raw, failing on the first unknown role.
func ParseRoles(raw []string) ([]Role, error) {
	roles := make([]Role, 0, len(raw))
	for _, r := range raw {
		role, err := ParseRole(r)
		if err != nil {
			return nil, err
		}
		if !containsRole(roles, role) {
			roles = append(roles, role)
		}
	}
	return roles, nil
}

// Actor is the authenticated identity issuing a command.
type Actor struct {
	ID    string
	Roles []Role
}

// HasRole reports whether the actor holds role.
func (a Actor) HasRole(role Role) bool {
	return containsRole(a.Roles, role)
}

func containsRole(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
