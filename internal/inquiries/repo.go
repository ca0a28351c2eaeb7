package inquiries

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tutorgoat/tutorgoat-backend/pkg/db/models"
	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
	"github.com/tutorgoat/tutorgoat-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inquiries repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// HistoryRow is a history record joined with the admin who wrote it. The
// admin columns are nil when the account no longer exists.
type HistoryRow struct {
	models.InquiryStatusHistory
	ChangedByUsername *string          `gorm:"column:changed_by_username"`
	ChangedByRole     *enums.AdminRole `gorm:"column:changed_by_role"`
}

func (r *repository) CreateInquiry(ctx context.Context, inquiry *models.Inquiry) error {
	return r.db.WithContext(ctx).Create(inquiry).Error
}

func (r *repository) FindInquiry(ctx context.Context, id uuid.UUID) (*models.Inquiry, error) {
	var inquiry models.Inquiry
	err := r.db.WithContext(ctx).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", id).
		First(&inquiry).Error
	if err != nil {
		return nil, err
	}
	return &inquiry, nil
}

func (r *repository) FindInquiryForUpdate(ctx context.Context, id uuid.UUID) (*models.Inquiry, error) {
	var inquiry models.Inquiry
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&inquiry).Error
	if err != nil {
		return nil, err
	}
	return &inquiry, nil
}

func (r *repository) FindByReference(ctx context.Context, reference string) (*models.Inquiry, error) {
	var inquiry models.Inquiry
	err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&inquiry).Error
	if err != nil {
		return nil, err
	}
	return &inquiry, nil
}

func (r *repository) FindAdmin(ctx context.Context, id uuid.UUID) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&admin).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}

// CompareAndSetStatus applies updates only while the inquiry still carries the
// expected status and history count. It reports false when another writer won.
func (r *repository) CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected enums.InquiryStatus, expectedCount int, updates map[string]any) (bool, error) {
	values := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		values[k] = v
	}
	values["history_count"] = gorm.Expr("history_count + 1")

	res := r.db.WithContext(ctx).
		Model(&models.Inquiry{}).
		Where("id = ? AND status = ? AND history_count = ?", id, expected, expectedCount).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) AppendHistory(ctx context.Context, record *models.InquiryStatusHistory) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// ListHistory returns every record of the inquiry, newest first.
func (r *repository) ListHistory(ctx context.Context, inquiryID uuid.UUID) ([]HistoryRow, error) {
	var rows []HistoryRow
	err := r.db.WithContext(ctx).
		Table("inquiry_status_history h").
		Select("h.*, a.username AS changed_by_username, a.role AS changed_by_role").
		Joins("LEFT JOIN admins a ON a.id = h.changed_by").
		Where("h.inquiry_id = ?", inquiryID).
		Order("h.seq DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListHistoryBetween(ctx context.Context, start, end time.Time) ([]models.InquiryStatusHistory, error) {
	var rows []models.InquiryStatusHistory
	err := r.db.WithContext(ctx).
		Where("changed_at >= ? AND changed_at <= ?", start, end).
		Order("changed_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateInquiry returns gorm.ErrRecordNotFound when no row matched.
func (r *repository) UpdateInquiry(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Inquiry{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteInquiry removes the inquiry. Attachments and history cascade.
func (r *repository) DeleteInquiry(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Inquiry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

var sortColumns = map[SortField]string{
	SortCreatedAt:   "created_at",
	SortQuoteAmount: "CAST(quote_amount AS NUMERIC)",
	SortCourseName:  "course_name",
	SortStatus:      "status",
	SortUrgency:     "urgency",
}

func (r *repository) ListInquiries(ctx context.Context, filters ListFilters, page pagination.Page) ([]models.Inquiry, int64, error) {
	var total int64
	if err := applyFilters(r.db.WithContext(ctx).Model(&models.Inquiry{}), filters).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Inquiry
	err := orderBy(applyFilters(r.db.WithContext(ctx).Model(&models.Inquiry{}), filters), filters).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) ExportInquiries(ctx context.Context, filters ListFilters, limit int) ([]models.Inquiry, error) {
	var rows []models.Inquiry
	err := orderBy(applyFilters(r.db.WithContext(ctx).Model(&models.Inquiry{}), filters), filters).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func applyFilters(q *gorm.DB, f ListFilters) *gorm.DB {
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ServiceType != "" {
		q = q.Where("service_type = ?", f.ServiceType)
	}
	if f.Urgency != "" {
		q = q.Where("urgency = ?", f.Urgency)
	}
	if tutor := strings.TrimSpace(f.AssignedTutor); tutor != "" {
		q = q.Where("LOWER(assigned_tutor) LIKE ? ESCAPE '\\'", containsPattern(tutor))
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		pattern := containsPattern(search)
		q = q.Where(
			"(LOWER(course_name) LIKE ? ESCAPE '\\' OR LOWER(contact_email) LIKE ? ESCAPE '\\' OR LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(reference) LIKE ? ESCAPE '\\' OR LOWER(assigned_tutor) LIKE ? ESCAPE '\\')",
			pattern, pattern, pattern, pattern, pattern,
		)
	}
	if f.DateFrom != nil {
		q = q.Where("created_at >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		q = q.Where("created_at <= ?", *f.DateTo)
	}
	if f.MinQuote != nil {
		q = q.Where("CAST(quote_amount AS NUMERIC) >= ?", f.MinQuote.InexactFloat64())
	}
	if f.MaxQuote != nil {
		q = q.Where("CAST(quote_amount AS NUMERIC) <= ?", f.MaxQuote.InexactFloat64())
	}
	return q
}

func orderBy(q *gorm.DB, f ListFilters) *gorm.DB {
	column, ok := sortColumns[f.SortBy]
	if !ok {
		column = sortColumns[SortCreatedAt]
	}
	dir := "DESC"
	if f.SortAsc {
		dir = "ASC"
	}
	return q.Order(column + " " + dir).Order("id " + dir)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(value string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(value)) + "%"
}

func sinceScope(since *time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if since == nil {
			return db
		}
		return db.Where("created_at >= ?", *since)
	}
}

type groupCount struct {
	GroupKey   string
	GroupCount int64
}

func (r *repository) groupCounts(ctx context.Context, column string, since *time.Time) ([]groupCount, error) {
	var rows []groupCount
	err := r.db.WithContext(ctx).
		Model(&models.Inquiry{}).
		Scopes(sinceScope(since)).
		Select(column + " AS group_key, COUNT(*) AS group_count").
		Group(column).
		Scan(&rows).Error
	return rows, err
}

func (r *repository) CountSince(ctx context.Context, since *time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Inquiry{}).Scopes(sinceScope(since)).Count(&total).Error
	return total, err
}

// CountByStatus includes every known status, zero when absent.
func (r *repository) CountByStatus(ctx context.Context, since *time.Time) (map[enums.InquiryStatus]int64, error) {
	rows, err := r.groupCounts(ctx, "status", since)
	if err != nil {
		return nil, err
	}
	out := make(map[enums.InquiryStatus]int64, len(enums.InquiryStatuses()))
	for _, s := range enums.InquiryStatuses() {
		out[s] = 0
	}
	for _, row := range rows {
		out[enums.InquiryStatus(row.GroupKey)] = row.GroupCount
	}
	return out, nil
}

func (r *repository) CountByServiceType(ctx context.Context, since *time.Time) (map[enums.ServiceType]int64, error) {
	rows, err := r.groupCounts(ctx, "service_type", since)
	if err != nil {
		return nil, err
	}
	out := make(map[enums.ServiceType]int64, len(rows))
	for _, row := range rows {
		out[enums.ServiceType(row.GroupKey)] = row.GroupCount
	}
	return out, nil
}

func (r *repository) CountByUrgency(ctx context.Context, since *time.Time) (map[enums.Urgency]int64, error) {
	rows, err := r.groupCounts(ctx, "urgency", since)
	if err != nil {
		return nil, err
	}
	out := make(map[enums.Urgency]int64, len(rows))
	for _, row := range rows {
		out[enums.Urgency(row.GroupKey)] = row.GroupCount
	}
	return out, nil
}

func (r *repository) RecentInquiries(ctx context.Context, since time.Time, limit int) ([]models.Inquiry, error) {
	var rows []models.Inquiry
	err := r.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CompletedQuoteAmounts(ctx context.Context, since time.Time) ([]decimal.Decimal, error) {
	var amounts []decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.Inquiry{}).
		Where("status = ? AND created_at >= ?", enums.InquiryStatusCompleted, since).
		Pluck("quote_amount", &amounts).Error
	if err != nil {
		return nil, err
	}
	out := make([]decimal.Decimal, 0, len(amounts))
	for _, a := range amounts {
		if a.Valid {
			out = append(out, a.Decimal)
		}
	}
	return out, nil
}
