package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
)

// Inquiry is the aggregate root for a tutoring request.
type Inquiry struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Reference         string              `gorm:"column:reference;not null;uniqueIndex"`
	CourseName        string              `gorm:"column:course_name;not null"`
	AssignmentDetails string              `gorm:"column:assignment_details;not null"`
	ServiceType       enums.ServiceType   `gorm:"column:service_type;type:service_type;not null"`
	Urgency           enums.Urgency       `gorm:"column:urgency;type:urgency_level;not null;default:'normal'"`
	ContactEmail      string              `gorm:"column:contact_email;not null"`
	Name              *string             `gorm:"column:name"`
	PhoneNumber       string              `gorm:"column:phone_number;not null"`
	ClientType        enums.ClientType    `gorm:"column:client_type;type:client_type;not null"`
	Status            enums.InquiryStatus `gorm:"column:status;type:inquiry_status;not null;default:'PENDING'"`
	StatusChangedAt   time.Time           `gorm:"column:status_changed_at;not null"`
	HistoryCount      int                 `gorm:"column:history_count;not null;default:0"`
	QuoteAmount       *decimal.Decimal    `gorm:"column:quote_amount;type:numeric(12,2)"`
	QuoteEmailSent    bool                `gorm:"column:quote_email_sent;not null;default:false"`
	QuoteEmailSentAt  *time.Time          `gorm:"column:quote_email_sent_at"`
	PaymentReceived   bool                `gorm:"column:payment_received;not null;default:false"`
	PaymentReceivedAt *time.Time          `gorm:"column:payment_received_at"`
	InternalNotes     *string             `gorm:"column:internal_notes"`
	AssignedTutor     *string             `gorm:"column:assigned_tutor"`
	Attachments       []InquiryAttachment `gorm:"foreignKey:InquiryID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Inquiry) TableName() string { return "inquiries" }

// DisplayName falls back to the contact email when no name was given.
func (i Inquiry) DisplayName() string {
	if i.Name != nil && *i.Name != "" {
		return *i.Name
	}
	return i.ContactEmail
}
