package realtime

import (
	"time"

	"github.com/google/uuid"

	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
)

// EventType names the SSE event pushed to admin dashboards.
type EventType string

const (
	EventStatusUpdate   EventType = "status-update"
	EventNewInquiry     EventType = "new-inquiry"
	EventInquiryUpdated EventType = "inquiry-updated"
	EventInquiryDeleted EventType = "inquiry-deleted"
)

// Event is broadcast to every connected admin.
type Event struct {
	Type      EventType           `json:"type"`
	InquiryID uuid.UUID           `json:"inquiry_id"`
	Reference string              `json:"reference,omitempty"`
	NewStatus enums.InquiryStatus `json:"new_status,omitempty"`
	UpdatedBy string              `json:"updated_by,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// StatusUpdate builds the event sent after a successful transition.
func StatusUpdate(inquiryID uuid.UUID, status enums.InquiryStatus, updatedBy string, at time.Time) Event {
	return Event{
		Type:      EventStatusUpdate,
		InquiryID: inquiryID,
		NewStatus: status,
		UpdatedBy: updatedBy,
		Timestamp: at.UTC(),
	}
}

// NewInquiry builds the event sent when a student submits an inquiry.
func NewInquiry(inquiryID uuid.UUID, reference string, at time.Time) Event {
	return Event{
		Type:      EventNewInquiry,
		InquiryID: inquiryID,
		Reference: reference,
		NewStatus: enums.InquiryStatusPending,
		Timestamp: at.UTC(),
	}
}

// InquiryChanged builds update and delete notifications.
func InquiryChanged(kind EventType, inquiryID uuid.UUID, updatedBy string, at time.Time) Event {
	return Event{
		Type:      kind,
		InquiryID: inquiryID,
		UpdatedBy: updatedBy,
		Timestamp: at.UTC(),
	}
}
