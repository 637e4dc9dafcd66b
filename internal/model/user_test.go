package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Operator ")
	assert.NoError(t, err)
	assert.Equal(t, RoleOperator, r)

	_, err = ParseRole("admin")
	assert.Error(t, err)
}

func TestRoleCan(t *testing.T) {
	testCases := []struct {
		role     Role
		perm     Permission
		expected bool
	}{
		{RoleSuperuser, PermResetSystem, true},
		{RoleSuperuser, PermDeleteUsers, true},
		{RoleOperator, PermManageUsers, true},
		{RoleOperator, PermAssignRoles, false},
		{RoleOperator, PermResetSystem, false},
		{RoleUser, PermManageUsers, false},
		{RoleUser, PermUploadFiles, true},
		{Role("ghost"), PermUploadFiles, false},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, tc.role.Can(tc.perm), "%s/%d", tc.role, tc.perm)
	}
}

func TestCaseSceneKey(t *testing.T) {
	assert.Equal(t, "USA(Quincy)", CaseScene{Country: "USA", Location: "Quincy"}.Key())
}
