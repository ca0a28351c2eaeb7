package audit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tutorgoat/tutorgoat-backend/pkg/db/dbtest"
	"github.com/tutorgoat/tutorgoat-backend/pkg/db/models"
	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
	pkgerrors "github.com/tutorgoat/tutorgoat-backend/pkg/errors"
	"github.com/tutorgoat/tutorgoat-backend/pkg/pagination"
)

var start = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), nil)
	require.NoError(t, err)
	return svc, conn
}

func TestRecordStoresEntry(t *testing.T) {
	svc, conn := newService(t)
	svc.now = func() time.Time { return start }
	adminID := uuid.New()

	svc.Record(context.Background(), Entry{
		AdminID:       &adminID,
		AdminUsername: " alice ",
		Action:        enums.AuditActionUpdateInquiryStatus,
		Resource:      "inquiry",
		ResourceID:    "abc",
		Details:       map[string]any{"new_status": "ASSIGNED"},
		IPAddress:     "10.0.0.1",
		Success:       true,
	})

	var rows []models.AuditLog
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, "alice", row.AdminUsername)
	assert.Equal(t, enums.AuditActionUpdateInquiryStatus, row.Action)
	require.NotNil(t, row.ResourceID)
	assert.Equal(t, "abc", *row.ResourceID)
	assert.Equal(t, "ASSIGNED", row.Details["new_status"])
	assert.Nil(t, row.UserAgent)
	assert.True(t, row.Success)
	assert.Nil(t, row.ErrorMessage)
}

func TestRecordFailureKeepsErrorAndUnknownActor(t *testing.T) {
	svc, conn := newService(t)

	svc.Record(context.Background(), Entry{
		Action:       enums.AuditActionFailedLogin,
		Resource:     "auth",
		Success:      false,
		ErrorMessage: "invalid credentials",
	})

	var row models.AuditLog
	require.NoError(t, conn.First(&row).Error)
	assert.Nil(t, row.AdminID)
	assert.Equal(t, "unknown", row.AdminUsername)
	assert.False(t, row.Success)
	require.NotNil(t, row.ErrorMessage)
	assert.Equal(t, "invalid credentials", *row.ErrorMessage)
}

func TestRecordSwallowsRepositoryErrors(t *testing.T) {
	svc, err := NewService(stubRepository{
		createFn: func(context.Context, *models.AuditLog) error { return errors.New("db down") },
	}, nil)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		svc.Record(context.Background(), Entry{Action: enums.AuditActionLogin, Resource: "auth"})
	})

	var nilService *Service
	assert.NotPanics(t, func() {
		nilService.Record(context.Background(), Entry{})
	})
}

func TestListPagesNewestFirst(t *testing.T) {
	svc, _ := newService(t)
	for i := 0; i < 5; i++ {
		at := start.Add(time.Duration(i) * time.Minute)
		svc.now = func() time.Time { return at }
		svc.Record(context.Background(), Entry{
			AdminUsername: fmt.Sprintf("admin-%d", i),
			Action:        enums.AuditActionViewInquiry,
			Resource:      "inquiry",
			Success:       true,
		})
	}

	first, err := svc.List(context.Background(), ListParams{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.Equal(t, "admin-4", first.Items[0].AdminUsername)
	assert.Equal(t, "admin-3", first.Items[1].AdminUsername)
	require.NotEmpty(t, first.Cursor)

	second, err := svc.List(context.Background(), ListParams{Limit: 2, Cursor: first.Cursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.Equal(t, "admin-2", second.Items[0].AdminUsername)
	assert.Equal(t, "admin-1", second.Items[1].AdminUsername)

	last, err := svc.List(context.Background(), ListParams{Limit: 2, Cursor: second.Cursor})
	require.NoError(t, err)
	require.Len(t, last.Items, 1)
	assert.Equal(t, "admin-0", last.Items[0].AdminUsername)
	assert.Empty(t, last.Cursor)
}

func TestListFilters(t *testing.T) {
	svc, _ := newService(t)
	adminID := uuid.New()
	svc.now = func() time.Time { return start }
	svc.Record(context.Background(), Entry{AdminID: &adminID, AdminUsername: "alice", Action: enums.AuditActionLogin, Resource: "auth", Success: true})
	svc.now = func() time.Time { return start.Add(time.Hour) }
	svc.Record(context.Background(), Entry{AdminUsername: "bob", Action: enums.AuditActionFailedLogin, Resource: "auth", Success: false})
	svc.now = func() time.Time { return start.Add(2 * time.Hour) }
	svc.Record(context.Background(), Entry{AdminID: &adminID, AdminUsername: "alice", Action: enums.AuditActionDeleteInquiry, Resource: "inquiry", Success: true})

	failed := false
	result, err := svc.List(context.Background(), ListParams{Success: &failed})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "bob", result.Items[0].AdminUsername)

	result, err = svc.List(context.Background(), ListParams{AdminID: &adminID, Resource: "inquiry"})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, enums.AuditActionDeleteInquiry, result.Items[0].Action)

	result, err = svc.List(context.Background(), ListParams{Action: "login"})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)

	from, to := start.Add(30*time.Minute), start.Add(90*time.Minute)
	result, err = svc.List(context.Background(), ListParams{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "bob", result.Items[0].AdminUsername)
}

func TestListRejectsBadInput(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.List(context.Background(), ListParams{Action: "dance"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.List(context.Background(), ListParams{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	from, to := start, start.Add(-time.Hour)
	_, err = svc.List(context.Background(), ListParams{From: &from, To: &to})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestNewServiceRequiresRepository(t *testing.T) {
	_, err := NewService(nil, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

type stubRepository struct {
	createFn func(context.Context, *models.AuditLog) error
}

func (s stubRepository) WithTx(*gorm.DB) Repository { return s }

func (s stubRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if s.createFn != nil {
		return s.createFn(ctx, entry)
	}
	return nil
}

func (s stubRepository) List(context.Context, listQuery) ([]models.AuditLog, *pagination.Cursor, error) {
	return nil, nil, nil
}
