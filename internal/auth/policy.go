package auth

import (
	"github.com/google/uuid"

	"marketplace/internal/errors"
	"marketplace/internal/model"
)

// Principal is the authenticated caller of a service operation. It is passed
// explicitly into every call that needs an identity.
type Principal struct {
	UserID   uuid.UUID
	Username string
	Role     model.Role
}

// Authenticated reports whether p identifies a user.
func (p Principal) Authenticated() bool {
	return p.UserID != uuid.Nil
}

// Permission is an action gated by role.
type Permission int

const (
	// PermAdminPanel covers the admin dashboard and user management.
	PermAdminPanel Permission = iota
	// PermManageCategories covers category writes.
	PermManageCategories
	// PermModerateContent covers editing and deleting other users' posts.
	PermModerateContent
)

var permissionRoles = map[Permission][]model.Role{
	PermAdminPanel:       {model.RoleAdmin, model.RoleOwner},
	PermManageCategories: {model.RoleAdmin, model.RoleOwner},
	PermModerateContent:  {model.RoleAdmin, model.RoleModerator, model.RoleOwner},
}

// RolesFor returns the roles granted perm.
func RolesFor(perm Permission) []model.Role {
	roles := permissionRoles[perm]
	out := make([]model.Role, len(roles))
	copy(out, roles)
	return out
}

// RoleIn reports whether role is one of roles.
func RoleIn(role model.Role, roles ...model.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// Allowed reports whether role is granted perm. Unknown roles get nothing.
func Allowed(role model.Role, perm Permission) bool {
	if !role.Valid() {
		return false
	}
	return RoleIn(role, permissionRoles[perm]...)
}

// Require returns nil when p is authenticated and granted perm.
func Require(p Principal, perm Permission) error {
	if !p.Authenticated() {
		return errors.ErrUnauthenticated
	}
	if !Allowed(p.Role, perm) {
		return errors.ErrForbidden
	}
	return nil
}

// CanModifyPost reports whether p may edit or delete a post written by
// authorID: authors always may, moderators and above may touch anyone's.
func CanModifyPost(p Principal, authorID uuid.UUID) bool {
	if !p.Authenticated() {
		return false
	}
	return p.UserID == authorID || Allowed(p.Role, PermModerateContent)
}
