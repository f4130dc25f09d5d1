package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"marketplace/internal/errors"
	"marketplace/internal/model"
)

func TestAllowed(t *testing.T) {
	tests := []struct {
		role       model.Role
		admin      bool
		categories bool
		moderate   bool
	}{
		{model.RoleUser, false, false, false},
		{model.RoleTrusted, false, false, false},
		{model.RoleModerator, false, false, true},
		{model.RoleAdmin, true, true, true},
		{model.RoleOwner, true, true, true},
		{model.Role("superuser"), false, false, false},
		{model.Role(""), false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.admin, Allowed(tt.role, PermAdminPanel))
			assert.Equal(t, tt.categories, Allowed(tt.role, PermManageCategories))
			assert.Equal(t, tt.moderate, Allowed(tt.role, PermModerateContent))
		})
	}
}

func TestCanModifyPost(t *testing.T) {
	author := uuid.New()
	other := uuid.New()

	tests := []struct {
		name      string
		principal Principal
		expected  bool
	}{
		{"author with plain role", Principal{UserID: author, Role: model.RoleUser}, true},
		{"stranger", Principal{UserID: other, Role: model.RoleUser}, false},
		{"trusted stranger", Principal{UserID: other, Role: model.RoleTrusted}, false},
		{"moderator", Principal{UserID: other, Role: model.RoleModerator}, true},
		{"admin", Principal{UserID: other, Role: model.RoleAdmin}, true},
		{"owner", Principal{UserID: other, Role: model.RoleOwner}, true},
		{"anonymous", Principal{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanModifyPost(tt.principal, author))
		})
	}
}

func TestRequire(t *testing.T) {
	assert.ErrorIs(t, Require(Principal{}, PermAdminPanel), errors.ErrUnauthenticated)
	assert.ErrorIs(t, Require(Principal{UserID: uuid.New(), Role: model.RoleModerator}, PermAdminPanel), errors.ErrForbidden)
	assert.NoError(t, Require(Principal{UserID: uuid.New(), Role: model.RoleOwner}, PermAdminPanel))
}

func TestRolesForReturnsCopy(t *testing.T) {
	roles := RolesFor(PermAdminPanel)
	roles[0] = model.RoleUser
	assert.False(t, Allowed(model.RoleUser, PermAdminPanel))
}
