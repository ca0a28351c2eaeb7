package models

import (
	"time"

	"github.com/google/uuid"
)

// InquiryAttachment references an uploaded file stored in GCS.
type InquiryAttachment struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InquiryID    uuid.UUID `gorm:"column:inquiry_id;type:uuid;not null;index"`
	Position     int       `gorm:"column:position;not null"`
	OriginalName string    `gorm:"column:original_name;not null"`
	StoragePath  string    `gorm:"column:storage_path;not null"`
	SizeBytes    int64     `gorm:"column:size_bytes;not null"`
	MimeType     string    `gorm:"column:mime_type;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (InquiryAttachment) TableName() string { return "inquiry_attachments" }
