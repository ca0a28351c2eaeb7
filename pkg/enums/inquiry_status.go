package enums

import "fmt"

// InquiryStatus tracks where an inquiry sits in its lifecycle.
type InquiryStatus string

const (
	InquiryStatusPending    InquiryStatus = "PENDING"
	InquiryStatusAssigned   InquiryStatus = "ASSIGNED"
	InquiryStatusInProgress InquiryStatus = "IN_PROGRESS"
	InquiryStatusCompleted  InquiryStatus = "COMPLETED"
	InquiryStatusRejected   InquiryStatus = "REJECTED"
	InquiryStatusRefuted    InquiryStatus = "REFUTED"
	InquiryStatusOnHold     InquiryStatus = "ON_HOLD"
	InquiryStatusCancelled  InquiryStatus = "CANCELLED"
)

var validInquiryStatuses = []InquiryStatus{
	InquiryStatusPending,
	InquiryStatusAssigned,
	InquiryStatusInProgress,
	InquiryStatusCompleted,
	InquiryStatusRejected,
	InquiryStatusRefuted,
	InquiryStatusOnHold,
	InquiryStatusCancelled,
}

// InquiryStatuses returns every declared status in lifecycle order.
func InquiryStatuses() []InquiryStatus {
	out := make([]InquiryStatus, len(validInquiryStatuses))
	copy(out, validInquiryStatuses)
	return out
}

// String implements fmt.Stringer.
func (s InquiryStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known InquiryStatus.
func (s InquiryStatus) IsValid() bool {
	for _, candidate := range validInquiryStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseInquiryStatus converts raw input into an InquiryStatus.
func ParseInquiryStatus(value string) (InquiryStatus, error) {
	for _, candidate := range validInquiryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inquiry status %q", value)
}
