package admins

import (
	"github.com/tutorgoat/tutorgoat-backend/pkg/db/models"
	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
)

var roleCeiling = map[enums.AdminRole]map[enums.Permission]bool{
	enums.AdminRoleManager: {
		enums.PermissionViewInquiries:   true,
		enums.PermissionEditInquiries:   true,
		enums.PermissionDeleteInquiries: true,
		enums.PermissionViewAnalytics:   true,
	},
	enums.AdminRoleAgent: {
		enums.PermissionViewInquiries: true,
		enums.PermissionEditInquiries: true,
		enums.PermissionViewAnalytics: true,
	},
	enums.AdminRoleReadonly: {
		enums.PermissionViewInquiries: true,
		enums.PermissionViewAnalytics: true,
	},
}

// HasPermission applies the role ceiling on top of the per-account flags.
// ADMIN holds every permission regardless of flags.
func HasPermission(admin *models.Admin, p enums.Permission) bool {
	if admin == nil || !admin.IsActive {
		return false
	}
	if admin.Role == enums.AdminRoleAdmin {
		return p.IsValid()
	}
	if !roleCeiling[admin.Role][p] {
		return false
	}
	return flag(admin, p)
}

// Permissions lists every permission the admin effectively holds.
func Permissions(admin *models.Admin) []enums.Permission {
	out := make([]enums.Permission, 0, len(enums.Permissions()))
	for _, p := range enums.Permissions() {
		if HasPermission(admin, p) {
			out = append(out, p)
		}
	}
	return out
}

// DefaultFlags returns the permission flags a new account of role gets.
func DefaultFlags(role enums.AdminRole) map[enums.Permission]bool {
	flags := make(map[enums.Permission]bool, len(enums.Permissions()))
	for _, p := range enums.Permissions() {
		flags[p] = role == enums.AdminRoleAdmin || roleCeiling[role][p]
	}
	return flags
}

func flag(admin *models.Admin, p enums.Permission) bool {
	switch p {
	case enums.PermissionViewInquiries:
		return admin.CanViewInquiries
	case enums.PermissionEditInquiries:
		return admin.CanEditInquiries
	case enums.PermissionDeleteInquiries:
		return admin.CanDeleteInquiries
	case enums.PermissionManageUsers:
		return admin.CanManageUsers
	case enums.PermissionViewAnalytics:
		return admin.CanViewAnalytics
	case enums.PermissionManageSettings:
		return admin.CanManageSettings
	}
	return false
}

func applyFlags(admin *models.Admin, flags map[enums.Permission]bool) {
	admin.CanViewInquiries = flags[enums.PermissionViewInquiries]
	admin.CanEditInquiries = flags[enums.PermissionEditInquiries]
	admin.CanDeleteInquiries = flags[enums.PermissionDeleteInquiries]
	admin.CanManageUsers = flags[enums.PermissionManageUsers]
	admin.CanViewAnalytics = flags[enums.PermissionViewAnalytics]
	admin.CanManageSettings = flags[enums.PermissionManageSettings]
}
