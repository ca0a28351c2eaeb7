package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tutorgoat/tutorgoat-backend/pkg/db/models"
	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
	"github.com/tutorgoat/tutorgoat-backend/pkg/pagination"
)

// Repository persists and pages audit log rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, query listQuery) ([]models.AuditLog, *pagination.Cursor, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the audit repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

type listQuery struct {
	AdminID  *uuid.UUID
	Action   enums.AuditAction
	Resource string
	Success  *bool
	From     *time.Time
	To       *time.Time
	Limit    int
	Cursor   *pagination.Cursor
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Select("*").Create(entry).Error
}

func (r *repository) List(ctx context.Context, q listQuery) ([]models.AuditLog, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(q.Limit)

	query := r.db.WithContext(ctx).Model(&models.AuditLog{})
	if q.AdminID != nil {
		query = query.Where("admin_id = ?", *q.AdminID)
	}
	if q.Action != "" {
		query = query.Where("action = ?", q.Action)
	}
	if q.Resource != "" {
		query = query.Where("resource = ?", q.Resource)
	}
	if q.Success != nil {
		query = query.Where("success = ?", *q.Success)
	}
	if q.From != nil {
		query = query.Where("created_at >= ?", q.From.UTC())
	}
	if q.To != nil {
		query = query.Where("created_at <= ?", q.To.UTC())
	}
	if q.Cursor != nil {
		query = query.Where("((created_at < ?) OR (created_at = ? AND id < ?))",
			q.Cursor.CreatedAt, q.Cursor.CreatedAt, q.Cursor.ID)
	}

	var rows []models.AuditLog
	if err := query.Order("created_at DESC, id DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	if len(rows) <= limit {
		return rows, nil, nil
	}

	rows = rows[:limit]
	last := rows[limit-1]
	return rows, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
}
