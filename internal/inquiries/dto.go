package inquiries

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tutorgoat/tutorgoat-backend/pkg/db/models"
	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
	pkgerrors "github.com/tutorgoat/tutorgoat-backend/pkg/errors"
	"github.com/tutorgoat/tutorgoat-backend/pkg/types"
)

const (
	maxReasonLen        = 500
	maxNotesLen         = 1000
	maxInternalNotesLen = 1000
	maxTutorLen         = 100
)

// UpdateStatusInput asks the engine to move one inquiry to NewStatus.
// InternalNotes and AssignedTutor are applied in the same write when set.
type UpdateStatusInput struct {
	InquiryID     uuid.UUID
	NewStatus     enums.InquiryStatus
	ActorID       uuid.UUID
	Reason        string
	Notes         string
	InternalNotes types.NullableString
	AssignedTutor types.NullableString
}

// TransitionResult carries everything downstream consumers need after a
// successful transition.
type TransitionResult struct {
	Inquiry        *models.Inquiry
	PreviousStatus enums.InquiryStatus
	NewStatus      enums.InquiryStatus
	ActorID        uuid.UUID
	ActorUsername  string
	ChangedAt      time.Time
	Record         models.InquiryStatusHistory
}

// BulkStatusUpdate is one item of a bulk request.
type BulkStatusUpdate struct {
	InquiryID uuid.UUID           `json:"inquiry_id"`
	NewStatus enums.InquiryStatus `json:"new_status"`
	Reason    string              `json:"reason,omitempty"`
	Notes     string              `json:"notes,omitempty"`
}

type BulkSuccess struct {
	InquiryID      uuid.UUID           `json:"inquiry_id"`
	PreviousStatus enums.InquiryStatus `json:"previous_status"`
	NewStatus      enums.InquiryStatus `json:"new_status"`
}

type BulkFailure struct {
	InquiryID uuid.UUID      `json:"inquiry_id"`
	Code      pkgerrors.Code `json:"code"`
	Error     string         `json:"error"`
}

// BulkResult keeps input order within each list. The counts always match
// the list lengths.
type BulkResult struct {
	Successful     []BulkSuccess       `json:"successful"`
	Failed         []BulkFailure       `json:"failed"`
	SucceededCount int                 `json:"succeeded_count"`
	FailedCount    int                 `json:"failed_count"`
	Applied        []*TransitionResult `json:"-"`
}

// ActorSummary identifies who wrote a history record.
type ActorSummary struct {
	ID       uuid.UUID       `json:"id"`
	Username string          `json:"username,omitempty"`
	Role     enums.AdminRole `json:"role,omitempty"`
}

type HistoryRecordDTO struct {
	Seq             int                 `json:"seq"`
	FromStatus      enums.InquiryStatus `json:"from_status"`
	Status          enums.InquiryStatus `json:"status"`
	ChangedAt       time.Time           `json:"changed_at"`
	ChangedBy       ActorSummary        `json:"changed_by"`
	FromStatusSince time.Time           `json:"from_status_since"`
	Reason          *string             `json:"reason,omitempty"`
	Notes           *string             `json:"notes,omitempty"`
}

type AttachmentDTO struct {
	ID           uuid.UUID `json:"id"`
	Position     int       `json:"position"`
	OriginalName string    `json:"original_name"`
	SizeBytes    int64     `json:"size_bytes"`
	MimeType     string    `json:"mime_type"`
	CreatedAt    time.Time `json:"created_at"`
}

type InquiryDTO struct {
	ID                uuid.UUID           `json:"id"`
	Reference         string              `json:"reference"`
	CourseName        string              `json:"course_name"`
	AssignmentDetails string              `json:"assignment_details"`
	ServiceType       enums.ServiceType   `json:"service_type"`
	Urgency           enums.Urgency       `json:"urgency"`
	ContactEmail      string              `json:"contact_email"`
	Name              *string             `json:"name,omitempty"`
	PhoneNumber       string              `json:"phone_number"`
	ClientType        enums.ClientType    `json:"client_type"`
	Status            enums.InquiryStatus `json:"status"`
	StatusChangedAt   time.Time           `json:"status_changed_at"`
	QuoteAmount       *decimal.Decimal    `json:"quote_amount,omitempty"`
	QuoteEmailSent    bool                `json:"quote_email_sent"`
	QuoteEmailSentAt  *time.Time          `json:"quote_email_sent_at,omitempty"`
	PaymentReceived   bool                `json:"payment_received"`
	PaymentReceivedAt *time.Time          `json:"payment_received_at,omitempty"`
	InternalNotes     *string             `json:"internal_notes,omitempty"`
	AssignedTutor     *string             `json:"assigned_tutor,omitempty"`
	Attachments       []AttachmentDTO     `json:"attachments"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// InquiryDetail is an inquiry with its full history, newest record first.
type InquiryDetail struct {
	Inquiry InquiryDTO         `json:"inquiry"`
	History []HistoryRecordDTO `json:"history"`
}

// PublicInquiryStatus is what the public lookup endpoint reveals.
type PublicInquiryStatus struct {
	Reference       string              `json:"reference"`
	Status          enums.InquiryStatus `json:"status"`
	QuoteAmount     *decimal.Decimal    `json:"quote_amount,omitempty"`
	QuoteEmailSent  bool                `json:"quote_email_sent"`
	PaymentReceived bool                `json:"payment_received"`
	CreatedAt       time.Time           `json:"created_at"`
}

// TransitionMetric aggregates history records of one (from, to) pair.
type TransitionMetric struct {
	FromStatus      enums.InquiryStatus `json:"from_status"`
	ToStatus        enums.InquiryStatus `json:"to_status"`
	Count           int                 `json:"count"`
	AvgDwellSeconds float64             `json:"avg_dwell_seconds"`
}

type StatusMetrics struct {
	Start       time.Time          `json:"start"`
	End         time.Time          `json:"end"`
	Total       int                `json:"total"`
	Transitions []TransitionMetric `json:"transitions"`
}

// AttachmentInput references a file already uploaded through a signed URL.
type AttachmentInput struct {
	OriginalName string `json:"original_name"`
	StoragePath  string `json:"storage_path"`
	SizeBytes    int64  `json:"size_bytes"`
	MimeType     string `json:"mime_type"`
}

// SubmitInput is a public inquiry after HTTP validation.
type SubmitInput struct {
	CourseName        string
	AssignmentDetails string
	ServiceType       enums.ServiceType
	Urgency           enums.Urgency
	ContactEmail      string
	Name              string
	PhoneNumber       string
	ClientType        enums.ClientType
	Attachments       []AttachmentInput
}

type SubmitResult struct {
	ID        uuid.UUID           `json:"id"`
	Reference string              `json:"reference"`
	Status    enums.InquiryStatus `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
}

// UploadRequest asks for a signed upload URL for one file.
type UploadRequest struct {
	Filename    string
	ContentType string
	SizeBytes   int64
}

type UpdateQuoteInput struct {
	InquiryID uuid.UUID
	Amount    decimal.Decimal
	ActorID   uuid.UUID
}

// UpdateDetailsInput carries PATCH fields; unset fields are left alone.
type UpdateDetailsInput struct {
	InquiryID       uuid.UUID
	InternalNotes   types.NullableString
	AssignedTutor   types.NullableString
	PaymentReceived *bool
}

// SortField names the columns the admin list can order by.
type SortField string

const (
	SortCreatedAt   SortField = "created_at"
	SortQuoteAmount SortField = "quote_amount"
	SortCourseName  SortField = "course_name"
	SortStatus      SortField = "status"
	SortUrgency     SortField = "urgency"
)

// ParseSortField falls back to created_at for unknown values.
func ParseSortField(value string) SortField {
	switch SortField(value) {
	case SortQuoteAmount, SortCourseName, SortStatus, SortUrgency:
		return SortField(value)
	}
	switch value {
	case "quoteAmount":
		return SortQuoteAmount
	case "courseName":
		return SortCourseName
	}
	return SortCreatedAt
}

// ListFilters narrows the admin list. Zero values mean no filter.
type ListFilters struct {
	Status        enums.InquiryStatus
	ServiceType   enums.ServiceType
	Urgency       enums.Urgency
	AssignedTutor string
	Search        string
	DateFrom      *time.Time
	DateTo        *time.Time
	MinQuote      *decimal.Decimal
	MaxQuote      *decimal.Decimal
	SortBy        SortField
	SortAsc       bool
}

type InquiryList struct {
	Inquiries    []InquiryDTO                  `json:"inquiries"`
	Pagination   types.PageMeta                `json:"pagination"`
	StatusCounts map[enums.InquiryStatus]int64 `json:"status_counts"`
}

// DashboardPeriod is one of the supported analytics windows.
type DashboardPeriod string

const (
	Period7d  DashboardPeriod = "7d"
	Period30d DashboardPeriod = "30d"
	Period90d DashboardPeriod = "90d"
)

// ParseDashboardPeriod defaults unknown values to 30d.
func ParseDashboardPeriod(value string) DashboardPeriod {
	switch DashboardPeriod(value) {
	case Period7d, Period90d:
		return DashboardPeriod(value)
	}
	return Period30d
}

// Duration returns the look-back window.
func (p DashboardPeriod) Duration() time.Duration {
	switch p {
	case Period7d:
		return 7 * 24 * time.Hour
	case Period90d:
		return 90 * 24 * time.Hour
	}
	return 30 * 24 * time.Hour
}

type RecentInquiry struct {
	ID           uuid.UUID           `json:"id"`
	Reference    string              `json:"reference"`
	CourseName   string              `json:"course_name"`
	Status       enums.InquiryStatus `json:"status"`
	ContactEmail string              `json:"contact_email"`
	CreatedAt    time.Time           `json:"created_at"`
}

type Dashboard struct {
	Period            DashboardPeriod               `json:"period"`
	Since             time.Time                     `json:"since"`
	TotalInquiries    int64                         `json:"total_inquiries"`
	StatusCounts      map[enums.InquiryStatus]int64 `json:"status_counts"`
	ServiceTypeCounts map[enums.ServiceType]int64   `json:"service_type_counts"`
	UrgencyCounts     map[enums.Urgency]int64       `json:"urgency_counts"`
	RecentInquiries   []RecentInquiry               `json:"recent_inquiries"`
	TotalRevenue      decimal.Decimal               `json:"total_revenue"`
}

func toInquiryDTO(m *models.Inquiry) InquiryDTO {
	attachments := make([]AttachmentDTO, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		attachments = append(attachments, AttachmentDTO{
			ID:           a.ID,
			Position:     a.Position,
			OriginalName: a.OriginalName,
			SizeBytes:    a.SizeBytes,
			MimeType:     a.MimeType,
			CreatedAt:    a.CreatedAt,
		})
	}
	return InquiryDTO{
		ID:                m.ID,
		Reference:         m.Reference,
		CourseName:        m.CourseName,
		AssignmentDetails: m.AssignmentDetails,
		ServiceType:       m.ServiceType,
		Urgency:           m.Urgency,
		ContactEmail:      m.ContactEmail,
		Name:              m.Name,
		PhoneNumber:       m.PhoneNumber,
		ClientType:        m.ClientType,
		Status:            m.Status,
		StatusChangedAt:   m.StatusChangedAt,
		QuoteAmount:       m.QuoteAmount,
		QuoteEmailSent:    m.QuoteEmailSent,
		QuoteEmailSentAt:  m.QuoteEmailSentAt,
		PaymentReceived:   m.PaymentReceived,
		PaymentReceivedAt: m.PaymentReceivedAt,
		InternalNotes:     m.InternalNotes,
		AssignedTutor:     m.AssignedTutor,
		Attachments:       attachments,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// ToDTO exposes the JSON shape of an inquiry model.
func ToDTO(m *models.Inquiry) InquiryDTO {
	return toInquiryDTO(m)
}

// ToHistoryDTO renders the record a transition just appended.
func ToHistoryDTO(result *TransitionResult) HistoryRecordDTO {
	rec := result.Record
	return HistoryRecordDTO{
		Seq:             rec.Seq,
		FromStatus:      rec.FromStatus,
		Status:          rec.Status,
		ChangedAt:       rec.ChangedAt,
		ChangedBy:       ActorSummary{ID: result.ActorID, Username: result.ActorUsername},
		FromStatusSince: rec.FromStatusSince,
		Reason:          rec.Reason,
		Notes:           rec.Notes,
	}
}
