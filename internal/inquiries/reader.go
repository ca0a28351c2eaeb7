package inquiries

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
	pkgerrors "github.com/tutorgoat/tutorgoat-backend/pkg/errors"
)

// Reader serves read-only views of inquiries and their lifecycle history.
type Reader struct {
	repo Repository
}

func NewReader(repo Repository) (*Reader, error) {
	if repo == nil {
		return nil, fmt.Errorf("inquiries repository required")
	}
	return &Reader{repo: repo}, nil
}

// GetInquiryWithHistory returns the inquiry with attachments in upload order
// and history newest first.
func (r *Reader) GetInquiryWithHistory(ctx context.Context, id uuid.UUID) (*InquiryDetail, error) {
	inquiry, err := r.repo.FindInquiry(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inquiry not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "load inquiry")
	}

	rows, err := r.repo.ListHistory(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "load inquiry history")
	}

	history := make([]HistoryRecordDTO, 0, len(rows))
	for _, row := range rows {
		actor := ActorSummary{ID: row.ChangedBy}
		if row.ChangedByUsername != nil {
			actor.Username = *row.ChangedByUsername
		}
		if row.ChangedByRole != nil {
			actor.Role = *row.ChangedByRole
		}
		history = append(history, HistoryRecordDTO{
			Seq:             row.Seq,
			FromStatus:      row.FromStatus,
			Status:          row.Status,
			ChangedAt:       row.ChangedAt,
			ChangedBy:       actor,
			FromStatusSince: row.FromStatusSince,
			Reason:          row.Reason,
			Notes:           row.Notes,
		})
	}

	return &InquiryDetail{
		Inquiry: toInquiryDTO(inquiry),
		History: history,
	}, nil
}

type transitionKey struct {
	from enums.InquiryStatus
	to   enums.InquiryStatus
}

// GetStatusMetrics aggregates the transitions recorded in [start, end].
func (r *Reader) GetStatusMetrics(ctx context.Context, start, end time.Time) (*StatusMetrics, error) {
	if start.After(end) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start date must not be after end date")
	}

	rows, err := r.repo.ListHistoryBetween(ctx, start.UTC(), end.UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "load status history")
	}

	counts := map[transitionKey]int{}
	dwell := map[transitionKey]time.Duration{}
	for _, row := range rows {
		key := transitionKey{from: row.FromStatus, to: row.Status}
		counts[key]++
		dwell[key] += row.Dwell()
	}

	transitions := make([]TransitionMetric, 0, len(counts))
	for key, count := range counts {
		transitions = append(transitions, TransitionMetric{
			FromStatus:      key.from,
			ToStatus:        key.to,
			Count:           count,
			AvgDwellSeconds: dwell[key].Seconds() / float64(count),
		})
	}
	sort.Slice(transitions, func(i, j int) bool {
		a, b := transitions[i], transitions[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.FromStatus != b.FromStatus {
			return a.FromStatus < b.FromStatus
		}
		return a.ToStatus < b.ToStatus
	})

	return &StatusMetrics{
		Start:       start,
		End:         end,
		Total:       len(rows),
		Transitions: transitions,
	}, nil
}
