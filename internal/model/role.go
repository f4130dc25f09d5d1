package model

import (
	"errors"
	"strings"
)

// Role is the privilege level of a user.
type Role string

const (
	RoleUser      Role = "user"
	RoleTrusted   Role = "trusted"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
	RoleOwner     Role = "owner"
)

// ErrUnknownRole is returned by ParseRole for anything outside the enumeration.
var ErrUnknownRole = errors.New("unknown role")

// Roles lists every valid role, lowest privilege first.
func Roles() []Role {
	return []Role{RoleUser, RoleTrusted, RoleModerator, RoleAdmin, RoleOwner}
}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleTrusted, RoleModerator, RoleAdmin, RoleOwner:
		return true
	}
	return false
}

// ParseRole converts s into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrUnknownRole
	}
	return r, nil
}
