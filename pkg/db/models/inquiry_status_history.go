package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
)

// InquiryStatusHistory is one append-only lifecycle record. Seq is dense and
// 1-based per inquiry.
type InquiryStatusHistory struct {
	InquiryID       uuid.UUID           `gorm:"column:inquiry_id;type:uuid;primaryKey"`
	Seq             int                 `gorm:"column:seq;primaryKey;autoIncrement:false"`
	FromStatus      enums.InquiryStatus `gorm:"column:from_status;type:inquiry_status;not null"`
	Status          enums.InquiryStatus `gorm:"column:status;type:inquiry_status;not null"`
	ChangedAt       time.Time           `gorm:"column:changed_at;not null"`
	ChangedBy       uuid.UUID           `gorm:"column:changed_by;type:uuid;not null"`
	FromStatusSince time.Time           `gorm:"column:from_status_since;not null"`
	Reason          *string             `gorm:"column:reason"`
	Notes           *string             `gorm:"column:notes"`
}

func (InquiryStatusHistory) TableName() string { return "inquiry_status_history" }

// Dwell is the time the inquiry spent in FromStatus before this record.
func (h InquiryStatusHistory) Dwell() time.Duration {
	d := h.ChangedAt.Sub(h.FromStatusSince)
	if d < 0 {
		return 0
	}
	return d
}
