package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
	"github.com/tutorgoat/tutorgoat-backend/pkg/types"
)

// AuditLog records one admin action, successful or not.
type AuditLog struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AdminID       *uuid.UUID        `gorm:"column:admin_id;type:uuid"`
	AdminUsername string            `gorm:"column:admin_username;not null"`
	Action        enums.AuditAction `gorm:"column:action;type:audit_action;not null"`
	Resource      string            `gorm:"column:resource;not null"`
	ResourceID    *string           `gorm:"column:resource_id"`
	Details       types.JSONMap     `gorm:"column:details"`
	IPAddress     *string           `gorm:"column:ip_address"`
	UserAgent     *string           `gorm:"column:user_agent"`
	Success       bool              `gorm:"column:success;not null;default:true"`
	ErrorMessage  *string           `gorm:"column:error_message"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (AuditLog) TableName() string { return "audit_logs" }
