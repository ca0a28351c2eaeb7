package inquiries

import (
	"context"

	"github.com/google/uuid"

	pkgerrors "github.com/tutorgoat/tutorgoat-backend/pkg/errors"
)

// MaxBulkItems caps one bulk request.
const MaxBulkItems = 100

// BulkUpdateStatus applies each update in input order through UpdateStatus.
// A failed item is reported and the batch moves on.
func (e *Engine) BulkUpdateStatus(ctx context.Context, actorID uuid.UUID, updates []BulkStatusUpdate) BulkResult {
	result := BulkResult{
		Successful: make([]BulkSuccess, 0, len(updates)),
		Failed:     []BulkFailure{},
		Applied:    make([]*TransitionResult, 0, len(updates)),
	}

	for _, update := range updates {
		applied, err := e.UpdateStatus(ctx, UpdateStatusInput{
			InquiryID: update.InquiryID,
			NewStatus: update.NewStatus,
			ActorID:   actorID,
			Reason:    update.Reason,
			Notes:     update.Notes,
		})
		if err != nil {
			result.Failed = append(result.Failed, BulkFailure{
				InquiryID: update.InquiryID,
				Code:      pkgerrors.CodeOf(err),
				Error:     pkgerrors.PublicMessage(err),
			})
			continue
		}
		result.Successful = append(result.Successful, BulkSuccess{
			InquiryID:      update.InquiryID,
			PreviousStatus: applied.PreviousStatus,
			NewStatus:      applied.NewStatus,
		})
		result.Applied = append(result.Applied, applied)
	}

	result.SucceededCount = len(result.Successful)
	result.FailedCount = len(result.Failed)
	if e.metrics != nil {
		e.metrics.ObserveBulk(result.SucceededCount, result.FailedCount)
	}
	return result
}
