package enums

import (
	"fmt"
	"strings"
)

// AdminRole is the coarse role of a staff account.
type AdminRole string

const (
	AdminRoleAdmin    AdminRole = "ADMIN"
	AdminRoleManager  AdminRole = "MANAGER"
	AdminRoleAgent    AdminRole = "AGENT"
	AdminRoleReadonly AdminRole = "READONLY"
)

var validAdminRoles = []AdminRole{
	AdminRoleAdmin,
	AdminRoleManager,
	AdminRoleAgent,
	AdminRoleReadonly,
}

func (r AdminRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known AdminRole.
func (r AdminRole) IsValid() bool {
	for _, candidate := range validAdminRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseAdminRole accepts role names case-insensitively.
func ParseAdminRole(value string) (AdminRole, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validAdminRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid admin role %q", value)
}

// Permission names a capability checked by the admin API.
type Permission string

const (
	PermissionViewInquiries   Permission = "canViewInquiries"
	PermissionEditInquiries   Permission = "canEditInquiries"
	PermissionDeleteInquiries Permission = "canDeleteInquiries"
	PermissionManageUsers     Permission = "canManageUsers"
	PermissionViewAnalytics   Permission = "canViewAnalytics"
	PermissionManageSettings  Permission = "canManageSettings"
)

var validPermissions = []Permission{
	PermissionViewInquiries,
	PermissionEditInquiries,
	PermissionDeleteInquiries,
	PermissionManageUsers,
	PermissionViewAnalytics,
	PermissionManageSettings,
}

// Permissions returns all declared permissions.
func Permissions() []Permission {
	out := make([]Permission, len(validPermissions))
	copy(out, validPermissions)
	return out
}

func (p Permission) IsValid() bool {
	for _, candidate := range validPermissions {
		if candidate == p {
			return true
		}
	}
	return false
}
