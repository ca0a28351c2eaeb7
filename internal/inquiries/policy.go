package inquiries

import (
	"fmt"

	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
)

// transitions lists the legal successors of every status. Terminal statuses
// map to an empty slice.
var transitions = map[enums.InquiryStatus][]enums.InquiryStatus{
	enums.InquiryStatusPending:    {enums.InquiryStatusAssigned, enums.InquiryStatusRejected, enums.InquiryStatusCancelled},
	enums.InquiryStatusAssigned:   {enums.InquiryStatusInProgress, enums.InquiryStatusOnHold, enums.InquiryStatusCancelled},
	enums.InquiryStatusInProgress: {enums.InquiryStatusCompleted, enums.InquiryStatusOnHold, enums.InquiryStatusRefuted, enums.InquiryStatusCancelled},
	enums.InquiryStatusCompleted:  {},
	enums.InquiryStatusRejected:   {},
	enums.InquiryStatusRefuted:    {enums.InquiryStatusAssigned, enums.InquiryStatusCancelled},
	enums.InquiryStatusOnHold:     {enums.InquiryStatusAssigned, enums.InquiryStatusInProgress, enums.InquiryStatusCancelled},
	enums.InquiryStatusCancelled:  {},
}

var reasonRequired = map[enums.InquiryStatus]bool{
	enums.InquiryStatusRejected:  true,
	enums.InquiryStatusRefuted:   true,
	enums.InquiryStatusOnHold:    true,
	enums.InquiryStatusCancelled: true,
}

func init() {
	for _, status := range enums.InquiryStatuses() {
		if _, ok := transitions[status]; !ok {
			panic(fmt.Sprintf("inquiries: status %s has no transition table entry", status))
		}
	}
}

// IsValidTransition reports whether current may move to requested. Self-loops
// and unknown statuses are never valid.
func IsValidTransition(current, requested enums.InquiryStatus) bool {
	if current == requested {
		return false
	}
	for _, next := range transitions[current] {
		if next == requested {
			return true
		}
	}
	return false
}

// RequiresReason reports whether entering status needs a non-empty reason.
func RequiresReason(status enums.InquiryStatus) bool {
	return reasonRequired[status]
}

// Successors returns a copy of the legal next statuses.
func Successors(status enums.InquiryStatus) []enums.InquiryStatus {
	out := make([]enums.InquiryStatus, len(transitions[status]))
	copy(out, transitions[status])
	return out
}

// IsTerminal reports whether status admits no further transition.
func IsTerminal(status enums.InquiryStatus) bool {
	next, ok := transitions[status]
	return ok && len(next) == 0
}

// TransitionRule is the public shape of one row of the table.
type TransitionRule struct {
	Status         enums.InquiryStatus   `json:"status"`
	Successors     []enums.InquiryStatus `json:"successors"`
	Terminal       bool                  `json:"terminal"`
	RequiresReason bool                  `json:"requires_reason"`
}

// TransitionTable returns every status in declaration order with its rules.
func TransitionTable() []TransitionRule {
	statuses := enums.InquiryStatuses()
	out := make([]TransitionRule, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, TransitionRule{
			Status:         status,
			Successors:     Successors(status),
			Terminal:       IsTerminal(status),
			RequiresReason: RequiresReason(status),
		})
	}
	return out
}
