package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
)

// InquiryContact is the subset of an inquiry that notification emails need.
type InquiryContact struct {
	InquiryID    uuid.UUID         `json:"inquiry_id"`
	Reference    string            `json:"reference"`
	Name         string            `json:"name,omitempty"`
	ContactEmail string            `json:"contact_email"`
	CourseName   string            `json:"course_name"`
	ServiceType  enums.ServiceType `json:"service_type"`
	Urgency      enums.Urgency     `json:"urgency"`
}

// InquirySubmittedEvent is emitted once a public inquiry is stored.
type InquirySubmittedEvent struct {
	InquiryContact
	PhoneNumber       string           `json:"phone_number"`
	ClientType        enums.ClientType `json:"client_type"`
	AssignmentDetails string           `json:"assignment_details"`
	AttachmentCount   int              `json:"attachment_count"`
	SubmittedAt       time.Time        `json:"submitted_at"`
}

// InquiryQuotedEvent is emitted whenever an admin sets a quote.
type InquiryQuotedEvent struct {
	InquiryContact
	QuoteAmount decimal.Decimal `json:"quote_amount"`
	QuotedBy    uuid.UUID       `json:"quoted_by"`
}

// InquiryStatusChangedEvent mirrors one appended history record.
type InquiryStatusChangedEvent struct {
	InquiryContact
	Seq            int                 `json:"seq"`
	PreviousStatus enums.InquiryStatus `json:"previous_status"`
	NewStatus      enums.InquiryStatus `json:"new_status"`
	Reason         string              `json:"reason,omitempty"`
	ChangedBy      uuid.UUID           `json:"changed_by"`
	ChangedAt      time.Time           `json:"changed_at"`
}

// ContactSubmittedEvent carries one message from the public contact form.
type ContactSubmittedEvent struct {
	MessageID   uuid.UUID `json:"message_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Subject     string    `json:"subject"`
	Message     string    `json:"message"`
	SubmittedAt time.Time `json:"submitted_at"`
}
