package inquiries

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tutorgoat/tutorgoat-backend/pkg/db/models"
	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
	pkgerrors "github.com/tutorgoat/tutorgoat-backend/pkg/errors"
	"github.com/tutorgoat/tutorgoat-backend/pkg/metrics"
	"github.com/tutorgoat/tutorgoat-backend/pkg/outbox"
	"github.com/tutorgoat/tutorgoat-backend/pkg/outbox/payloads"
	"github.com/tutorgoat/tutorgoat-backend/pkg/redis"
	"github.com/tutorgoat/tutorgoat-backend/pkg/types"
)

func TestUpdateStatusAppliesTransition(t *testing.T) {
	env := newTestEnv(t)
	admin := seedAdmin(t, env.conn, "maria", true)
	inquiry := seedInquiry(t, env.conn, inquirySeed{})
	rec := &recordingMetrics{}
	engine := env.engine(t, WithEmitter(env.outbox), WithMetrics(rec))

	result, err := engine.UpdateStatus(context.Background(), UpdateStatusInput{
		InquiryID: inquiry.ID,
		NewStatus: enums.InquiryStatusAssigned,
		ActorID:   admin.ID,
		Notes:     "  picked up by calc team ",
	})
	require.NoError(t, err)

	changedAt := baseTime.Add(time.Hour)
	assert.Equal(t, enums.InquiryStatusPending, result.PreviousStatus)
	assert.Equal(t, enums.InquiryStatusAssigned, result.NewStatus)
	assert.Equal(t, admin.ID, result.ActorID)
	assert.Equal(t, "maria", result.ActorUsername)
	assert.True(t, changedAt.Equal(result.ChangedAt))
	assert.Equal(t, enums.InquiryStatusAssigned, result.Inquiry.Status)
	assert.Equal(t, 1, result.Inquiry.HistoryCount)

	history := historyOf(t, env.conn, inquiry.ID)
	require.Len(t, history, 1)
	record := history[0]
	assert.Equal(t, 1, record.Seq)
	assert.Equal(t, enums.InquiryStatusPending, record.FromStatus)
	assert.Equal(t, enums.InquiryStatusAssigned, record.Status)
	assert.Equal(t, admin.ID, record.ChangedBy)
	assert.True(t, baseTime.Equal(record.FromStatusSince))
	assert.Nil(t, record.Reason)
	require.NotNil(t, record.Notes)
	assert.Equal(t, "picked up by calc team", *record.Notes)
	assert.Equal(t, time.Hour, record.Dwell())

	var events []models.OutboxEvent
	require.NoError(t, env.conn.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventInquiryStatusChanged, events[0].EventType)
	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(events[0].Payload, &envelope))
	var payload payloads.InquiryStatusChangedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &payload))
	assert.Equal(t, 1, payload.Seq)
	assert.Equal(t, enums.InquiryStatusAssigned, payload.NewStatus)
	assert.Equal(t, inquiry.ContactEmail, payload.ContactEmail)

	require.Len(t, rec.transitions, 1)
	assert.Equal(t, observedTransition{from: "PENDING", to: "ASSIGNED", outcome: metrics.OutcomeApplied}, rec.transitions[0])
}

func TestUpdateStatusWalksLifecycleWithDenseSequence(t *testing.T) {
	env := newTestEnv(t)
	admin := seedAdmin(t, env.conn, "maria", true)
	inquiry := seedInquiry(t, env.conn, inquirySeed{})

	clock := baseTime
	engine := env.engine(t, WithClock(func() time.Time {
		clock = clock.Add(10 * time.Minute)
		return clock
	}))

	steps := []struct {
		to     enums.InquiryStatus
		reason string
	}{
		{to: enums.InquiryStatusAssigned},
		{to: enums.InquiryStatusInProgress},
		{to: enums.InquiryStatusOnHold, reason: "waiting for syllabus"},
		{to: enums.InquiryStatusInProgress},
		{to: enums.InquiryStatusRefuted, reason: "student disputes grade"},
		{to: enums.InquiryStatusAssigned},
		{to: enums.InquiryStatusInProgress},
		{to: enums.InquiryStatusCompleted},
	}
	for _, step := range steps {
		_, err := engine.UpdateStatus(context.Background(), UpdateStatusInput{
			InquiryID: inquiry.ID,
			NewStatus: step.to,
			ActorID:   admin.ID,
			Reason:    step.reason,
		})
		require.NoError(t, err, "transition to %s", step.to)
	}

	history := historyOf(t, env.conn, inquiry.ID)
	require.Len(t, history, len(steps))
	prev := enums.InquiryStatusPending
	prevAt := baseTime
	for i, record := range history {
		assert.Equal(t, i+1, record.Seq)
		assert.Equal(t, prev, record.FromStatus)
		assert.Equal(t, steps[i].to, record.Status)
		assert.True(t, prevAt.Equal(record.FromStatusSince), "seq %d", record.Seq)
		assert.Equal(t, 10*time.Minute, record.Dwell())
		prev = record.Status
		prevAt = record.ChangedAt
	}

	_, err := engine.UpdateStatus(context.Background(), UpdateStatusInput{
		InquiryID: inquiry.ID,
		NewStatus: enums.InquiryStatusCancelled,
		ActorID:   admin.ID,
		Reason:    "too late",
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
}

// Walks the assign, reject and terminal cases in order. A rejection after
// assignment is refused because REJECTED is only reachable from PENDING.
func TestUpdateStatusScenarioFollowsTransitionTable(t *testing.T) {
	env := newTestEnv(t)
	admin := seedAdmin(t, env.conn, "maria", true)
	engine := env.engine(t, WithEmitter(env.outbox))
	ctx := context.Background()

	assigned := seedInquiry(t, env.conn, inquirySeed{})
	_, err := engine.UpdateStatus(ctx, UpdateStatusInput{InquiryID: assigned.ID, NewStatus: enums.InquiryStatusAssigned, ActorID: admin.ID})
	require.NoError(t, err)

	for _, reason := range []string{"", "tutor unavailable"} {
		_, err = engine.UpdateStatus(ctx, UpdateStatusInput{
			InquiryID: assigned.ID,
			NewStatus: enums.InquiryStatusRejected,
			ActorID:   admin.ID,
			Reason:    reason,
		})
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeInvalidTransition, pkgerrors.CodeOf(err), "reason %q", reason)
	}
	assert.Len(t, historyOf(t, env.conn, assigned.ID), 1)

	pending := seedInquiry(t, env.conn, inquirySeed{})
	_, err = engine.UpdateStatus(ctx, UpdateStatusInput{InquiryID: pending.ID, NewStatus: enums.InquiryStatusRejected, ActorID: admin.ID})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeMissingReason, pkgerrors.CodeOf(err))

	result, err := engine.UpdateStatus(ctx, UpdateStatusInput{
		InquiryID: pending.ID,
		NewStatus: enums.InquiryStatusRejected,
		ActorID:   admin.ID,
		Reason:    "no capacity",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.InquiryStatusPending, result.PreviousStatus)
	history := historyOf(t, env.conn, pending.ID)
	require.Len(t, history, 1)
	require.NotNil(t, history[0].Reason)
	assert.Equal(t, "no capacity", *history[0].Reason)

	for _, to := range []enums.InquiryStatus{enums.InquiryStatusPending, enums.InquiryStatusAssigned, enums.InquiryStatusCancelled} {
		_, err = engine.UpdateStatus(ctx, UpdateStatusInput{
			InquiryID: pending.ID,
			NewStatus: to,
			ActorID:   admin.ID,
			Reason:    "reopen",
		})
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeInvalidTransition, pkgerrors.CodeOf(err), "REJECTED to %s", to)
	}
	assert.Len(t, historyOf(t, env.conn, pending.ID), 1)
}

func TestUpdateStatusRejectsInvalidTransition(t *testing.T) {
	env := newTestEnv(t)
	admin := seedAdmin(t, env.conn, "maria", true)
	inquiry := seedInquiry(t, env.conn, inquirySeed{})
	rec := &recordingMetrics{}
	engine := env.engine(t, WithEmitter(env.outbox), WithMetrics(rec))

	_, err := engine.UpdateStatus(context.Background(), UpdateStatusInput{
		InquiryID: inquiry.ID,
		NewStatus: enums.InquiryStatusCompleted,
		ActorID:   admin.ID,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInvalidTransition, typed.Code())
	assert.Equal(t, "invalid status transition from PENDING to COMPLETED", typed.Message())

	assert.Empty(t, historyOf(t, env.conn, inquiry.ID))
	assert.Zero(t, countEvents(t, env.conn, enums.EventInquiryStatusChanged))

	var reloaded models.Inquiry
	require.NoError(t, env.conn.First(&reloaded, "id = ?", inquiry.ID).Error)
	assert.Equal(t, enums.InquiryStatusPending, reloaded.Status)
	assert.Zero(t, reloaded.HistoryCount)

	require.Len(t, rec.transitions, 1)
	assert.Equal(t, metrics.OutcomeRejected, rec.transitions[0].outcome)
}

func TestUpdateStatusRequiresReason(t *testing.T) {
	env := newTestEnv(t)
	admin := seedAdmin(t, env.conn, "maria", true)
	engine := env.engine(t)

	for _, to := range []enums.InquiryStatus{enums.InquiryStatusRejected, enums.InquiryStatusCancelled} {
		inquiry := seedInquiry(t, env.conn, inquirySeed{})
		_, err := engine.UpdateStatus(context.Background(), UpdateStatusInput{
			InquiryID: inquiry.ID,
			NewStatus: to,
			ActorID:   admin.ID,
			Reason:    "   ",
		})
		require.Error(t, err)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		assert.Equal(t, pkgerrors.CodeMissingReason, typed.Code())
		assert.Equal(t, "reason is required for status "+string(to), typed.Message())
		assert.Empty(t, historyOf(t, env.conn, inquiry.ID))
	}
}

func TestUpdateStatusStoresReason(t *testing.T) {
	env := newTestEnv(t)
	admin := seedAdmin(t, env.conn, "maria", true)
	inquiry := seedInquiry(t, env.conn, inquirySeed{})
	engine := env.engine(t)

	result, err := engine.UpdateStatus(context.Background(), UpdateStatusInput{
		InquiryID: inquiry.ID,
		NewStatus: enums.InquiryStatusRejected,
		ActorID:   admin.ID,
		Reason:    "outside our subjects",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Record.Reason)
	assert.Equal(t, "outside our subjects", *result.Record.Reason)
}

func TestUpdateStatusValidatesInput(t *testing.T) {
	env := newTestEnv(t)
	admin := seedAdmin(t, env.conn, "maria", true)
	inquiry := seedInquiry(t, env.conn, inquirySeed{})
	engine := env.engine(t)

	tooLong := strings.Repeat("x", maxReasonLen+1)
	cases := []struct {
		name  string
		input UpdateStatusInput
		code  pkgerrors.Code
	}{
		{
			name:  "missing inquiry id",
			input: UpdateStatusInput{NewStatus: enums.InquiryStatusAssigned, ActorID: admin.ID},
			code:  pkgerrors.CodeValidation,
		},
		{
			name:  "unknown status",
			input: UpdateStatusInput{InquiryID: inquiry.ID, NewStatus: "QUOTED", ActorID: admin.ID},
			code:  pkgerrors.CodeValidation,
		},
		{
			name:  "missing actor",
			input: UpdateStatusInput{InquiryID: inquiry.ID, NewStatus: enums.InquiryStatusAssigned},
			code:  pkgerrors.CodeForbidden,
		},
		{
			name:  "unknown inquiry",
			input: UpdateStatusInput{InquiryID: uuid.New(), NewStatus: enums.InquiryStatusAssigned, ActorID: admin.ID},
			code:  pkgerrors.CodeNotFound,
		},
		{
			name:  "reason too long",
			input: UpdateStatusInput{InquiryID: inquiry.ID, NewStatus: enums.InquiryStatusRejected, ActorID: admin.ID, Reason: tooLong},
			code:  pkgerrors.CodeValidation,
		},
		{
			name:  "notes too long",
			input: UpdateStatusInput{InquiryID: inquiry.ID, NewStatus: enums.InquiryStatusAssigned, ActorID: admin.ID, Notes: strings.Repeat("n", maxNotesLen+1)},
			code:  pkgerrors.CodeValidation,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.UpdateStatus(context.Background(), tc.input)
			require.Error(t, err)
			assert.Equal(t, tc.code, pkgerrors.CodeOf(err))
		})
	}
	assert.Empty(t, historyOf(t, env.conn, inquiry.ID))
}

func TestUpdateStatusRequiresActiveAdmin(t *testing.T) {
	env := newTestEnv(t)
	inactive := seedAdmin(t, env.conn, "former", false)
	inquiry := seedInquiry(t, env.conn, inquirySeed{})
	engine := env.engine(t)

	for _, actorID := range []uuid.UUID{inactive.ID, uuid.New()} {
		_, err := engine.UpdateStatus(context.Background(), UpdateStatusInput{
			InquiryID: inquiry.ID,
			NewStatus: enums.InquiryStatusAssigned,
			ActorID:   actorID,
		})
		require.Error(t, err)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
		assert.Equal(t, "actor is not an active administrator", typed.Message())
	}
	assert.Empty(t, historyOf(t, env.conn, inquiry.ID))
}

func TestUpdateStatusAppliesNotesAndTutor(t *testing.T) {
	env := newTestEnv(t)
	admin := seedAdmin(t, env.conn, "maria", true)
	inquiry := seedInquiry(t, env.conn, inquirySeed{})
	engine := env.engine(t)

	notes := "prefers evenings"
	tutor := "Dr. Okafor"
	result, err := engine.UpdateStatus(context.Background(), UpdateStatusInput{
		InquiryID:     inquiry.ID,
		NewStatus:     enums.InquiryStatusAssigned,
		ActorID:       admin.ID,
		InternalNotes: types.NullableString{Set: true, Value: &notes},
		AssignedTutor: types.NullableString{Set: true, Value: &tutor},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Inquiry.AssignedTutor)
	assert.Equal(t, tutor, *result.Inquiry.AssignedTutor)
	require.NotNil(t, result.Inquiry.InternalNotes)
	assert.Equal(t, notes, *result.Inquiry.InternalNotes)
}

type racingRepository struct {
	Repository
}

func (r racingRepository) WithTx(tx *gorm.DB) Repository {
	return racingRepository{Repository: r.Repository.WithTx(tx)}
}

func (r racingRepository) CompareAndSetStatus(context.Context, uuid.UUID, enums.InquiryStatus, int, map[string]any) (bool, error) {
	return false, nil
}

func TestUpdateStatusConflictWhenCompareAndSetLoses(t *testing.T) {
	env := newTestEnv(t)
	admin := seedAdmin(t, env.conn, "maria", true)
	inquiry := seedInquiry(t, env.conn, inquirySeed{})
	rec := &recordingMetrics{}

	engine, err := NewEngine(racingRepository{Repository: env.repo}, env.client, WithMetrics(rec))
	require.NoError(t, err)

	_, err = engine.UpdateStatus(context.Background(), UpdateStatusInput{
		InquiryID: inquiry.ID,
		NewStatus: enums.InquiryStatusAssigned,
		ActorID:   admin.ID,
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.Empty(t, historyOf(t, env.conn, inquiry.ID))
	require.Len(t, rec.transitions, 1)
	assert.Equal(t, metrics.OutcomeConflict, rec.transitions[0].outcome)
}

func TestUpdateStatusSecondWriterSeesNewStatus(t *testing.T) {
	env := newTestEnv(t)
	admin := seedAdmin(t, env.conn, "maria", true)
	inquiry := seedInquiry(t, env.conn, inquirySeed{})
	engine := env.engine(t)

	input := UpdateStatusInput{InquiryID: inquiry.ID, NewStatus: enums.InquiryStatusAssigned, ActorID: admin.ID}
	_, err := engine.UpdateStatus(context.Background(), input)
	require.NoError(t, err)

	_, err = engine.UpdateStatus(context.Background(), input)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
	assert.Len(t, historyOf(t, env.conn, inquiry.ID), 1)
}

type mutexLocker struct {
	mu sync.Mutex
}

func (l *mutexLocker) Obtain(context.Context, string, string) (redis.Lock, error) {
	if !l.mu.TryLock() {
		return nil, redis.ErrLockNotObtained
	}
	return mutexLock{mu: &l.mu}, nil
}

type mutexLock struct {
	mu *sync.Mutex
}

func (l mutexLock) Release(context.Context) error {
	l.mu.Unlock()
	return nil
}

func TestUpdateStatusConcurrentWritersApplyOnce(t *testing.T) {
	cases := []struct {
		name string
		opts []EngineOption
	}{
		{name: "compare-and-set only"},
		{name: "with lock", opts: []EngineOption{WithLocker(&mutexLocker{})}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			sqlDB, err := env.conn.DB()
			require.NoError(t, err)
			// shared-cache sqlite reports table locks instead of waiting
			sqlDB.SetMaxOpenConns(1)

			admin := seedAdmin(t, env.conn, "maria", true)
			inquiry := seedInquiry(t, env.conn, inquirySeed{})
			engine := env.engine(t, append(tc.opts, WithEmitter(env.outbox))...)

			const writers = 4
			start := make(chan struct{})
			errs := make([]error, writers)
			var wg sync.WaitGroup
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					<-start
					_, errs[i] = engine.UpdateStatus(context.Background(), UpdateStatusInput{
						InquiryID: inquiry.ID,
						NewStatus: enums.InquiryStatusAssigned,
						ActorID:   admin.ID,
					})
				}(i)
			}
			close(start)
			wg.Wait()

			applied := 0
			for _, err := range errs {
				if err == nil {
					applied++
					continue
				}
				code := pkgerrors.CodeOf(err)
				assert.Contains(t, []pkgerrors.Code{pkgerrors.CodeInvalidTransition, pkgerrors.CodeConflict}, code, err.Error())
			}
			assert.Equal(t, 1, applied)
			assert.Len(t, historyOf(t, env.conn, inquiry.ID), 1)
			assert.EqualValues(t, 1, countEvents(t, env.conn, enums.EventInquiryStatusChanged))

			var reloaded models.Inquiry
			require.NoError(t, env.conn.First(&reloaded, "id = ?", inquiry.ID).Error)
			assert.Equal(t, enums.InquiryStatusAssigned, reloaded.Status)
			assert.Equal(t, 1, reloaded.HistoryCount)
		})
	}
}

func TestUpdateStatusRollsBackWhenEmitFails(t *testing.T) {
	env := newTestEnv(t)
	admin := seedAdmin(t, env.conn, "maria", true)
	inquiry := seedInquiry(t, env.conn, inquirySeed{})
	engine := env.engine(t, WithEmitter(stubEmitter{emitFn: func(context.Context, *gorm.DB, outbox.DomainEvent) error {
		return errors.New("outbox unavailable")
	}}))

	_, err := engine.UpdateStatus(context.Background(), UpdateStatusInput{
		InquiryID: inquiry.ID,
		NewStatus: enums.InquiryStatusAssigned,
		ActorID:   admin.ID,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodePersistenceFailure, pkgerrors.CodeOf(err))
	assert.Equal(t, "internal server error", pkgerrors.PublicMessage(err))

	assert.Empty(t, historyOf(t, env.conn, inquiry.ID))
	var reloaded models.Inquiry
	require.NoError(t, env.conn.First(&reloaded, "id = ?", inquiry.ID).Error)
	assert.Equal(t, enums.InquiryStatusPending, reloaded.Status)
	assert.Zero(t, reloaded.HistoryCount)
}

func TestUpdateStatusHonoursCancelledContext(t *testing.T) {
	env := newTestEnv(t)
	admin := seedAdmin(t, env.conn, "maria", true)
	inquiry := seedInquiry(t, env.conn, inquirySeed{})
	engine := env.engine(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := engine.UpdateStatus(ctx, UpdateStatusInput{
		InquiryID: inquiry.ID,
		NewStatus: enums.InquiryStatusAssigned,
		ActorID:   admin.ID,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodePersistenceFailure, pkgerrors.CodeOf(err))
	assert.Empty(t, historyOf(t, env.conn, inquiry.ID))
}

func TestUpdateStatusLocking(t *testing.T) {
	t.Run("held elsewhere", func(t *testing.T) {
		env := newTestEnv(t)
		admin := seedAdmin(t, env.conn, "maria", true)
		inquiry := seedInquiry(t, env.conn, inquirySeed{})
		engine := env.engine(t, WithLocker(stubLocker{obtainFn: func(context.Context, string, string) (redis.Lock, error) {
			return nil, redis.ErrLockNotObtained
		}}))

		_, err := engine.UpdateStatus(context.Background(), UpdateStatusInput{
			InquiryID: inquiry.ID,
			NewStatus: enums.InquiryStatusAssigned,
			ActorID:   admin.ID,
		})
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
		assert.Empty(t, historyOf(t, env.conn, inquiry.ID))
	})

	t.Run("released after success", func(t *testing.T) {
		env := newTestEnv(t)
		admin := seedAdmin(t, env.conn, "maria", true)
		inquiry := seedInquiry(t, env.conn, inquirySeed{})
		lock := &stubLock{}
		var gotResource, gotID string
		engine := env.engine(t, WithLocker(stubLocker{obtainFn: func(_ context.Context, resource, id string) (redis.Lock, error) {
			gotResource, gotID = resource, id
			return lock, nil
		}}))

		_, err := engine.UpdateStatus(context.Background(), UpdateStatusInput{
			InquiryID: inquiry.ID,
			NewStatus: enums.InquiryStatusAssigned,
			ActorID:   admin.ID,
		})
		require.NoError(t, err)
		assert.True(t, lock.released)
		assert.Equal(t, "inquiry", gotResource)
		assert.Equal(t, inquiry.ID.String(), gotID)
	})

	t.Run("redis down falls back to compare-and-set", func(t *testing.T) {
		env := newTestEnv(t)
		admin := seedAdmin(t, env.conn, "maria", true)
		inquiry := seedInquiry(t, env.conn, inquirySeed{})
		engine := env.engine(t, WithLocker(stubLocker{obtainFn: func(context.Context, string, string) (redis.Lock, error) {
			return nil, errors.New("dial tcp: connection refused")
		}}))

		_, err := engine.UpdateStatus(context.Background(), UpdateStatusInput{
			InquiryID: inquiry.ID,
			NewStatus: enums.InquiryStatusAssigned,
			ActorID:   admin.ID,
		})
		require.NoError(t, err)
		assert.Len(t, historyOf(t, env.conn, inquiry.ID), 1)
	})
}

func TestNewEngineRequiresDependencies(t *testing.T) {
	_, err := NewEngine(nil, nil)
	require.Error(t, err)

	env := newTestEnv(t)
	_, err = NewEngine(env.repo, nil)
	require.Error(t, err)
}
