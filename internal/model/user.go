package model

import (
	"fmt"
	"strings"
	"time"
)

// Role is the authorization level of a User.
type Role string

const (
	RoleSuperuser Role = "superuser"
	RoleOperator  Role = "operator"
	RoleUser      Role = "user"
)

// ParseRole converts a stored or submitted role name into a Role.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleSuperuser, RoleOperator, RoleUser:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Permission is an action gated by role.
type Permission int

const (
	PermManageUsers Permission = iota
	PermDeleteUsers
	PermAssignRoles
	PermResetSystem
	PermUploadFiles
	PermSubmitFeedback
)

// Can reports whether the role grants perm.
func (r Role) Can(perm Permission) bool {
	switch r {
	case RoleSuperuser:
		return true
	case RoleOperator:
		switch perm {
		case PermManageUsers, PermUploadFiles, PermSubmitFeedback:
			return true
		case PermDeleteUsers, PermAssignRoles, PermResetSystem:
			return false
		}
	case RoleUser:
		switch perm {
		case PermUploadFiles, PermSubmitFeedback:
			return true
		case PermManageUsers, PermDeleteUsers, PermAssignRoles, PermResetSystem:
			return false
		}
	}
	return false
}

// User is an authenticated staff account.
type User struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:64;uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"size:128;not null" json:"-"`
	Role         Role      `gorm:"size:16;not null" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
