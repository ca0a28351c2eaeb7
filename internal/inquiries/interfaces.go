package inquiries

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tutorgoat/tutorgoat-backend/pkg/db/models"
	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
	"github.com/tutorgoat/tutorgoat-backend/pkg/outbox"
	"github.com/tutorgoat/tutorgoat-backend/pkg/pagination"
	"github.com/tutorgoat/tutorgoat-backend/pkg/redis"
	"github.com/tutorgoat/tutorgoat-backend/pkg/storage/gcs"
)

// Repository defines persistence operations for inquiries and their history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateInquiry(ctx context.Context, inquiry *models.Inquiry) error
	FindInquiry(ctx context.Context, id uuid.UUID) (*models.Inquiry, error)
	FindInquiryForUpdate(ctx context.Context, id uuid.UUID) (*models.Inquiry, error)
	FindByReference(ctx context.Context, reference string) (*models.Inquiry, error)
	FindAdmin(ctx context.Context, id uuid.UUID) (*models.Admin, error)
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected enums.InquiryStatus, expectedCount int, updates map[string]any) (bool, error)
	AppendHistory(ctx context.Context, record *models.InquiryStatusHistory) error
	ListHistory(ctx context.Context, inquiryID uuid.UUID) ([]HistoryRow, error)
	ListHistoryBetween(ctx context.Context, start, end time.Time) ([]models.InquiryStatusHistory, error)
	UpdateInquiry(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DeleteInquiry(ctx context.Context, id uuid.UUID) error
	ListInquiries(ctx context.Context, filters ListFilters, page pagination.Page) ([]models.Inquiry, int64, error)
	ExportInquiries(ctx context.Context, filters ListFilters, limit int) ([]models.Inquiry, error)
	CountSince(ctx context.Context, since *time.Time) (int64, error)
	CountByStatus(ctx context.Context, since *time.Time) (map[enums.InquiryStatus]int64, error)
	CountByServiceType(ctx context.Context, since *time.Time) (map[enums.ServiceType]int64, error)
	CountByUrgency(ctx context.Context, since *time.Time) (map[enums.Urgency]int64, error)
	RecentInquiries(ctx context.Context, since time.Time, limit int) ([]models.Inquiry, error)
	CompletedQuoteAmounts(ctx context.Context, since time.Time) ([]decimal.Decimal, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type inquiryLocker interface {
	Obtain(ctx context.Context, resource, id string) (redis.Lock, error)
}

type transitionRecorder interface {
	ObserveTransition(from, to, outcome string, took time.Duration)
	ObserveBulk(succeeded, failed int)
}

type objectStore interface {
	Bucket() string
	ObjectName(filename string) string
	SignedUploadURL(ctx context.Context, objectName, contentType string) (*gcs.SignedUpload, error)
	SignedDownloadURL(ctx context.Context, objectName, downloadName string) (string, error)
	DeleteObject(ctx context.Context, objectName string) error
}
