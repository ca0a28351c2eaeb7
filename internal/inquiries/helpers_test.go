package inquiries

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tutorgoat/tutorgoat-backend/pkg/db"
	"github.com/tutorgoat/tutorgoat-backend/pkg/db/dbtest"
	"github.com/tutorgoat/tutorgoat-backend/pkg/db/models"
	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
	"github.com/tutorgoat/tutorgoat-backend/pkg/outbox"
	"github.com/tutorgoat/tutorgoat-backend/pkg/redis"
	"github.com/tutorgoat/tutorgoat-backend/pkg/storage/gcs"
)

var baseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	conn   *gorm.DB
	client *db.Client
	repo   Repository
	outbox *outbox.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	conn := dbtest.Open(t)
	return &testEnv{
		conn:   conn,
		client: db.Wrap(conn),
		repo:   NewRepository(conn),
		outbox: outbox.NewService(outbox.NewRepository(conn), nil),
	}
}

func (e *testEnv) engine(t *testing.T, opts ...EngineOption) *Engine {
	t.Helper()
	opts = append([]EngineOption{WithClock(fixedClock(baseTime.Add(time.Hour)))}, opts...)
	engine, err := NewEngine(e.repo, e.client, opts...)
	require.NoError(t, err)
	return engine
}

func (e *testEnv) service(t *testing.T, store objectStore) *Service {
	t.Helper()
	svc, err := NewService(e.repo, e.client, e.outbox, store, nil)
	require.NoError(t, err)
	svc.now = fixedClock(baseTime.Add(time.Hour))
	return svc
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func seedAdmin(t *testing.T, conn *gorm.DB, username string, active bool) models.Admin {
	t.Helper()
	admin := models.Admin{
		ID:           uuid.New(),
		Username:     username,
		Email:        username + "@tutorgoat.test",
		PasswordHash: "hash",
		Role:         enums.AdminRoleManager,
		IsActive:     true,
		CreatedAt:    baseTime,
		UpdatedAt:    baseTime,
	}
	require.NoError(t, conn.Create(&admin).Error)
	if !active {
		require.NoError(t, conn.Model(&models.Admin{}).Where("id = ?", admin.ID).Update("is_active", false).Error)
		admin.IsActive = false
	}
	return admin
}

type inquirySeed struct {
	status      enums.InquiryStatus
	course      string
	email       string
	service     enums.ServiceType
	urgency     enums.Urgency
	tutor       string
	quote       string
	createdAt   time.Time
	attachments int
}

func seedInquiry(t *testing.T, conn *gorm.DB, seed inquirySeed) models.Inquiry {
	t.Helper()
	if seed.status == "" {
		seed.status = enums.InquiryStatusPending
	}
	if seed.course == "" {
		seed.course = "Calculus II"
	}
	if seed.email == "" {
		seed.email = "student@example.com"
	}
	if seed.service == "" {
		seed.service = enums.ServiceTypeExam
	}
	if seed.urgency == "" {
		seed.urgency = enums.UrgencyNormal
	}
	if seed.createdAt.IsZero() {
		seed.createdAt = baseTime
	}

	id := uuid.New()
	inquiry := models.Inquiry{
		ID:                id,
		Reference:         fmt.Sprintf("TG-%d-%s", seed.createdAt.UnixMilli(), id.String()[:9]),
		CourseName:        seed.course,
		AssignmentDetails: "Midterm covering series and sequences.",
		ServiceType:       seed.service,
		Urgency:           seed.urgency,
		ContactEmail:      seed.email,
		PhoneNumber:       "+15555550100",
		ClientType:        enums.ClientTypeFirstTime,
		Status:            seed.status,
		StatusChangedAt:   seed.createdAt,
		CreatedAt:         seed.createdAt,
		UpdatedAt:         seed.createdAt,
	}
	if seed.tutor != "" {
		tutor := seed.tutor
		inquiry.AssignedTutor = &tutor
	}
	if seed.quote != "" {
		q := decimal.RequireFromString(seed.quote)
		inquiry.QuoteAmount = &q
	}
	for i := 0; i < seed.attachments; i++ {
		inquiry.Attachments = append(inquiry.Attachments, models.InquiryAttachment{
			ID:           uuid.New(),
			InquiryID:    id,
			Position:     i,
			OriginalName: fmt.Sprintf("notes-%d.pdf", i),
			StoragePath:  fmt.Sprintf("inquiries/2026/03/%d-notes.pdf", i),
			SizeBytes:    1024,
			MimeType:     "application/pdf",
			CreatedAt:    seed.createdAt,
		})
	}
	require.NoError(t, conn.Create(&inquiry).Error)
	return inquiry
}

func historyOf(t *testing.T, conn *gorm.DB, inquiryID uuid.UUID) []models.InquiryStatusHistory {
	t.Helper()
	var rows []models.InquiryStatusHistory
	require.NoError(t, conn.Where("inquiry_id = ?", inquiryID).Order("seq ASC").Find(&rows).Error)
	return rows
}

func countEvents(t *testing.T, conn *gorm.DB, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&n).Error)
	return n
}

type stubLock struct {
	released bool
}

func (l *stubLock) Release(context.Context) error {
	l.released = true
	return nil
}

type stubLocker struct {
	obtainFn func(ctx context.Context, resource, id string) (redis.Lock, error)
}

func (s stubLocker) Obtain(ctx context.Context, resource, id string) (redis.Lock, error) {
	return s.obtainFn(ctx, resource, id)
}

type observedTransition struct {
	from, to, outcome string
}

type recordingMetrics struct {
	mu          sync.Mutex
	transitions []observedTransition
	succeeded   int
	failed      int
}

func (m *recordingMetrics) ObserveTransition(from, to, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, observedTransition{from: from, to: to, outcome: outcome})
}

func (m *recordingMetrics) ObserveBulk(succeeded, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.succeeded += succeeded
	m.failed += failed
}

type stubEmitter struct {
	emitFn func(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

func (s stubEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	return s.emitFn(ctx, tx, event)
}

type stubStore struct {
	signUploadFn   func(ctx context.Context, objectName, contentType string) (*gcs.SignedUpload, error)
	signDownloadFn func(ctx context.Context, objectName, downloadName string) (string, error)
	deleteFn       func(ctx context.Context, objectName string) error
}

func (s *stubStore) Bucket() string { return "tutorgoat-test" }

func (s *stubStore) ObjectName(filename string) string {
	return "inquiries/2026/03/fixed-" + gcs.SanitizeFilename(filename)
}

func (s *stubStore) SignedUploadURL(ctx context.Context, objectName, contentType string) (*gcs.SignedUpload, error) {
	return s.signUploadFn(ctx, objectName, contentType)
}

func (s *stubStore) SignedDownloadURL(ctx context.Context, objectName, downloadName string) (string, error) {
	return s.signDownloadFn(ctx, objectName, downloadName)
}

func (s *stubStore) DeleteObject(ctx context.Context, objectName string) error {
	return s.deleteFn(ctx, objectName)
}
