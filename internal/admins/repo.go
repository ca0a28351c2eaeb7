package admins

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tutorgoat/tutorgoat-backend/pkg/db/models"
)

// Repository persists staff accounts.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, admin *models.Admin) error {
	return r.db.WithContext(ctx).Select("*").Create(admin).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&admin).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}

// FindByEmail matches case-insensitively.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var admin models.Admin
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&admin).Error
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *Repository) FindByUsername(ctx context.Context, username string) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&admin).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *Repository) List(ctx context.Context) ([]models.Admin, error) {
	var rows []models.Admin
	if err := r.db.WithContext(ctx).Order("username ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// RecordFailedLogin counts a failed attempt and locks the account for
// lockFor once maxAttempts is reached. An expired lock restarts the count.
func (r *Repository) RecordFailedLogin(ctx context.Context, id uuid.UUID, now time.Time, maxAttempts int, lockFor time.Duration) (*models.Admin, error) {
	var updated *models.Admin
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var admin models.Admin
		if err := tx.Where("id = ?", id).First(&admin).Error; err != nil {
			return err
		}

		attempts := admin.LoginAttempts + 1
		var lockUntil *time.Time
		if admin.LockUntil != nil {
			if admin.LockUntil.After(now) {
				lockUntil = admin.LockUntil
			} else {
				attempts = 1
			}
		}
		if lockUntil == nil && maxAttempts > 0 && attempts >= maxAttempts {
			until := now.Add(lockFor).UTC()
			lockUntil = &until
		}

		res := tx.Model(&models.Admin{}).
			Where("id = ? AND login_attempts = ?", id, admin.LoginAttempts).
			Updates(map[string]any{"login_attempts": attempts, "lock_until": lockUntil, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errConcurrentLogin
		}
		admin.LoginAttempts = attempts
		admin.LockUntil = lockUntil
		updated = &admin
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

var errConcurrentLogin = errors.New("login attempts changed concurrently")

// RecordSuccessfulLogin clears the lockout state and stamps last_login_at.
func (r *Repository) RecordSuccessfulLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Admin{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"login_attempts": 0,
			"lock_until":     nil,
			"last_login_at":  at,
			"updated_at":     at,
		}).Error
}

// UpdatePasswordHash replaces the stored hash.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Admin{}).
		Where("id = ?", id).
		Updates(map[string]any{"password_hash": hash, "updated_at": at}).Error
}

// SetActive enables or disables an account.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.Admin{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_active": active, "updated_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
