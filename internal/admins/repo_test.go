package admins

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorgoat/tutorgoat-backend/pkg/config"
	"github.com/tutorgoat/tutorgoat-backend/pkg/db/dbtest"
	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
	pkgerrors "github.com/tutorgoat/tutorgoat-backend/pkg/errors"
	"github.com/tutorgoat/tutorgoat-backend/pkg/security"
)

var testPassword = config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}

func TestServiceCreate(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, testPassword)
	require.NoError(t, err)
	ctx := context.Background()

	dto, err := svc.Create(ctx, CreateInput{Username: "reader", Email: "Reader@TutorGoat.com", Password: "correct-horse", Role: enums.AdminRoleReadonly})
	require.NoError(t, err)
	assert.Equal(t, "reader@tutorgoat.com", dto.Email)
	assert.ElementsMatch(t, []enums.Permission{enums.PermissionViewInquiries, enums.PermissionViewAnalytics}, dto.Permissions)

	stored, err := repo.FindByEmail(ctx, "READER@tutorgoat.com")
	require.NoError(t, err)
	assert.False(t, stored.CanEditInquiries)
	assert.True(t, stored.IsActive)
	ok, err := security.VerifyPassword("correct-horse", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.Create(ctx, CreateInput{Username: "reader", Email: "other@tutorgoat.com", Password: "correct-horse"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	bad := []CreateInput{
		{Username: "ab", Email: "a@b.co", Password: "correct-horse"},
		{Username: "valid", Email: "not-an-email", Password: "correct-horse"},
		{Username: "valid", Email: "a@b.co", Password: "short"},
		{Username: "valid", Email: "a@b.co", Password: "correct-horse", Role: "super_admin"},
		{Username: strings.Repeat("u", 31), Email: "a@b.co", Password: "correct-horse"},
	}
	for _, in := range bad {
		_, err := svc.Create(ctx, in)
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "%+v", in)
	}
}

func TestRecordFailedLoginLocksAfterMaxAttempts(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, testPassword)
	require.NoError(t, err)
	ctx := context.Background()

	dto, err := svc.Create(ctx, CreateInput{Username: "agent", Email: "agent@tutorgoat.com", Password: "correct-horse"})
	require.NoError(t, err)

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	for i := 1; i < 5; i++ {
		admin, err := repo.RecordFailedLogin(ctx, dto.ID, now, 5, 2*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, i, admin.LoginAttempts)
		assert.False(t, admin.IsLocked(now))
	}
	admin, err := repo.RecordFailedLogin(ctx, dto.ID, now, 5, 2*time.Hour)
	require.NoError(t, err)
	assert.True(t, admin.IsLocked(now))
	assert.True(t, admin.IsLocked(now.Add(119*time.Minute)))
	assert.False(t, admin.IsLocked(now.Add(2*time.Hour)))

	later := now.Add(3 * time.Hour)
	admin, err = repo.RecordFailedLogin(ctx, dto.ID, later, 5, 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, admin.LoginAttempts)
	assert.False(t, admin.IsLocked(later))

	require.NoError(t, repo.RecordSuccessfulLogin(ctx, dto.ID, later))
	reloaded, err := repo.FindByID(ctx, dto.ID)
	require.NoError(t, err)
	assert.Zero(t, reloaded.LoginAttempts)
	assert.Nil(t, reloaded.LockUntil)
	require.NotNil(t, reloaded.LastLoginAt)

	byName, err := repo.FindByUsername(ctx, "agent")
	require.NoError(t, err)
	assert.Equal(t, dto.ID, byName.ID)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestServiceListAndSetActive(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), testPassword)
	require.NoError(t, err)
	ctx := context.Background()

	for _, name := range []string{"zoe", "amir"} {
		_, err := svc.Create(ctx, CreateInput{Username: name, Email: name + "@tutorgoat.com", Password: "correct-horse"})
		require.NoError(t, err)
	}

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "amir", all[0].Username)

	off, err := svc.SetActive(ctx, "ZOE@tutorgoat.com", false)
	require.NoError(t, err)
	assert.False(t, off.IsActive)

	on, err := svc.SetActive(ctx, "zoe", true)
	require.NoError(t, err)
	assert.True(t, on.IsActive)

	_, err = svc.SetActive(ctx, "nobody", false)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = svc.SetActive(ctx, "  ", false)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
