package domain

import (
	"fmt"
	"strings"
)

// Role is the closed set of permission tiers a user can hold.
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

// Roles lists every valid role.
var Roles = []Role{RoleUser, RoleAdmin}

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// ParseRole resolves a role name case-insensitively. An empty string yields
// RoleUser, the default role assigned at registration.
func ParseRole(s string) (Role, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return RoleUser, nil
	}
	for _, r := range Roles {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}
