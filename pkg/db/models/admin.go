package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
)

// Admin is a staff account allowed into the admin API.
type Admin struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Username           string          `gorm:"column:username;not null;uniqueIndex"`
	Email              string          `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash       string          `gorm:"column:password_hash;not null"`
	Role               enums.AdminRole `gorm:"column:role;type:admin_role;not null;default:'AGENT'"`
	IsActive           bool            `gorm:"column:is_active;not null;default:true"`
	LastLoginAt        *time.Time      `gorm:"column:last_login_at"`
	LoginAttempts      int             `gorm:"column:login_attempts;not null;default:0"`
	LockUntil          *time.Time      `gorm:"column:lock_until"`
	CanViewInquiries   bool            `gorm:"column:can_view_inquiries;not null;default:true"`
	CanEditInquiries   bool            `gorm:"column:can_edit_inquiries;not null;default:true"`
	CanDeleteInquiries bool            `gorm:"column:can_delete_inquiries;not null;default:false"`
	CanManageUsers     bool            `gorm:"column:can_manage_users;not null;default:false"`
	CanViewAnalytics   bool            `gorm:"column:can_view_analytics;not null;default:true"`
	CanManageSettings  bool            `gorm:"column:can_manage_settings;not null;default:false"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Admin) TableName() string { return "admins" }

// IsLocked reports whether the account is inside a lockout window at now.
func (a Admin) IsLocked(now time.Time) bool {
	return a.LockUntil != nil && a.LockUntil.After(now)
}
