package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleAdmin, RoleHostAdmin, RoleHostTeamMember, RoleAttendee, RoleAttendeeAdmin} {
		assert.True(t, r.Valid(), r)
	}
	assert.False(t, Role("GUEST").Valid())
	assert.False(t, Role("admin").Valid())
}

func TestRoleScopes(t *testing.T) {
	assert.True(t, RoleHostAdmin.IsHost())
	assert.True(t, RoleHostTeamMember.IsHost())
	assert.False(t, RoleAttendee.IsHost())
	assert.True(t, RoleAttendee.IsAttendee())
	assert.True(t, RoleAttendeeAdmin.IsAttendee())
	assert.False(t, RoleAdmin.IsAttendee())
}

func TestAccountHasPassword(t *testing.T) {
	assert.False(t, Account{}.HasPassword())
	assert.False(t, Account{PasswordSet: true}.HasPassword())
	assert.False(t, Account{PasswordHash: strPtr("$2a$12$x")}.HasPassword())
	assert.True(t, Account{PasswordSet: true, PasswordHash: strPtr("$2a$12$x")}.HasPassword())
}

func TestAccountAccessors(t *testing.T) {
	a := Account{FirstName: "  Ada ", HostID: strPtr("H1")}
	assert.Equal(t, "Ada", a.DisplayName())
	assert.Equal(t, "H1", a.HostIDOrEmpty())
	assert.Equal(t, "", a.AttendeeIDOrEmpty())
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ada@example.com", NormalizeEmail("  Ada@Example.COM "))
}
