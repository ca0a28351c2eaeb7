package inquiries

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/tutorgoat/tutorgoat-backend/pkg/config"
	"github.com/tutorgoat/tutorgoat-backend/pkg/db"
	"github.com/tutorgoat/tutorgoat-backend/pkg/db/models"
	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
	pkgerrors "github.com/tutorgoat/tutorgoat-backend/pkg/errors"
	"github.com/tutorgoat/tutorgoat-backend/pkg/logger"
	"github.com/tutorgoat/tutorgoat-backend/pkg/outbox"
	"github.com/tutorgoat/tutorgoat-backend/pkg/outbox/payloads"
	"github.com/tutorgoat/tutorgoat-backend/pkg/pagination"
	"github.com/tutorgoat/tutorgoat-backend/pkg/storage/gcs"
	"github.com/tutorgoat/tutorgoat-backend/pkg/types"
)

const (
	MaxAttachments     = 5
	MaxAttachmentBytes = 10 << 20
	recentInquiryLimit = 5
	referenceAttempts  = 3
	maxExportRows      = 10000
	minCourseNameLen   = 2
	maxCourseNameLen   = 200
	minAssignmentLen   = 10
	maxAssignmentLen   = 2000
)

var defaultMimeTypes = map[string]struct{}{
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"text/plain": {},
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
}

// UploadLimits bounds public attachments.
type UploadLimits struct {
	MaxFiles     int
	MaxFileBytes int64
	MimeTypes    map[string]struct{}
}

// DefaultUploadLimits allows five files of up to 10MB each.
func DefaultUploadLimits() UploadLimits {
	return UploadLimits{MaxFiles: MaxAttachments, MaxFileBytes: MaxAttachmentBytes, MimeTypes: defaultMimeTypes}
}

// UploadLimitsFromConfig falls back to the defaults for unset values.
func UploadLimitsFromConfig(cfg config.UploadsConfig) UploadLimits {
	limits := DefaultUploadLimits()
	if cfg.MaxFiles > 0 {
		limits.MaxFiles = cfg.MaxFiles
	}
	if cfg.MaxFileBytes() > 0 {
		limits.MaxFileBytes = cfg.MaxFileBytes()
	}
	if len(cfg.AllowedMIMEs) > 0 {
		limits.MimeTypes = make(map[string]struct{}, len(cfg.AllowedMIMEs))
		for _, m := range cfg.AllowedMIMEs {
			limits.MimeTypes[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
		}
	}
	return limits
}

// Allows reports whether attachments of this type are accepted.
func (l UploadLimits) Allows(mimeType string) bool {
	_, ok := l.MimeTypes[strings.ToLower(strings.TrimSpace(mimeType))]
	return ok
}

// Service covers intake and the admin operations that never change status.
type Service struct {
	repo   Repository
	tx     txRunner
	outbox outboxEmitter
	store  objectStore
	limits UploadLimits
	logg   *logger.Logger
	now    func() time.Time
}

// NewService wires the inquiry service. store may be nil when attachments are
// disabled.
func NewService(repo Repository, tx txRunner, emitter outboxEmitter, store objectStore, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inquiries repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &Service{
		repo:   repo,
		tx:     tx,
		outbox: emitter,
		store:  store,
		limits: DefaultUploadLimits(),
		logg:   logg,
		now:    time.Now,
	}, nil
}

// SetUploadLimits replaces the default attachment limits.
func (s *Service) SetUploadLimits(limits UploadLimits) {
	s.limits = limits
}

// Submit stores a new PENDING inquiry and queues the confirmation emails.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (*SubmitResult, error) {
	if err := s.validateSubmit(&input); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var created *models.Inquiry
	var err error
	for attempt := 0; attempt < referenceAttempts; attempt++ {
		created, err = s.create(ctx, input, now)
		if err == nil || !db.IsUniqueViolation(err, "") {
			break
		}
	}
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "inquiry could not be stored")
	}

	if s.logg != nil {
		logCtx := s.logg.WithInquiryID(ctx, created.ID.String())
		s.logg.Info(logCtx, "inquiry submitted")
	}
	return &SubmitResult{
		ID:        created.ID,
		Reference: created.Reference,
		Status:    created.Status,
		CreatedAt: created.CreatedAt,
	}, nil
}

func (s *Service) create(ctx context.Context, input SubmitInput, now time.Time) (*models.Inquiry, error) {
	reference, err := NewReference(now)
	if err != nil {
		return nil, err
	}
	inquiry := &models.Inquiry{
		ID:                uuid.New(),
		Reference:         reference,
		CourseName:        input.CourseName,
		AssignmentDetails: input.AssignmentDetails,
		ServiceType:       input.ServiceType,
		Urgency:           input.Urgency,
		ContactEmail:      input.ContactEmail,
		Name:              optional(input.Name),
		PhoneNumber:       input.PhoneNumber,
		ClientType:        input.ClientType,
		Status:            enums.InquiryStatusPending,
		StatusChangedAt:   now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	for i, a := range input.Attachments {
		inquiry.Attachments = append(inquiry.Attachments, models.InquiryAttachment{
			ID:           uuid.New(),
			InquiryID:    inquiry.ID,
			Position:     i,
			OriginalName: a.OriginalName,
			StoragePath:  a.StoragePath,
			SizeBytes:    a.SizeBytes,
			MimeType:     a.MimeType,
			CreatedAt:    now,
		})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateInquiry(ctx, inquiry); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInquirySubmitted,
			AggregateType: enums.AggregateInquiry,
			AggregateID:   inquiry.ID,
			OccurredAt:    now,
			Data: payloads.InquirySubmittedEvent{
				InquiryContact:    contactOf(inquiry),
				PhoneNumber:       inquiry.PhoneNumber,
				ClientType:        inquiry.ClientType,
				AssignmentDetails: inquiry.AssignmentDetails,
				AttachmentCount:   len(inquiry.Attachments),
				SubmittedAt:       now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return inquiry, nil
}

func (s *Service) validateSubmit(input *SubmitInput) error {
	input.CourseName = strings.TrimSpace(input.CourseName)
	input.AssignmentDetails = strings.TrimSpace(input.AssignmentDetails)
	input.ContactEmail = strings.ToLower(strings.TrimSpace(input.ContactEmail))
	input.Name = strings.TrimSpace(input.Name)
	input.PhoneNumber = strings.TrimSpace(input.PhoneNumber)
	if input.Urgency == "" {
		input.Urgency = enums.UrgencyNormal
	}

	if n := utf8.RuneCountInString(input.CourseName); n < minCourseNameLen || n > maxCourseNameLen {
		return validationError("course_name", fmt.Sprintf("course name must be between %d and %d characters", minCourseNameLen, maxCourseNameLen))
	}
	if n := utf8.RuneCountInString(input.AssignmentDetails); n < minAssignmentLen || n > maxAssignmentLen {
		return validationError("assignment_details", fmt.Sprintf("assignment details must be between %d and %d characters", minAssignmentLen, maxAssignmentLen))
	}
	if input.ContactEmail == "" {
		return validationError("contact_email", "contact email is required")
	}
	if input.PhoneNumber == "" {
		return validationError("phone_number", "phone number is required")
	}
	if !input.ServiceType.IsValid() {
		return validationError("service_type", "please select a valid service type")
	}
	if !input.Urgency.IsValid() {
		return validationError("urgency", "please select a valid urgency level")
	}
	if !input.ClientType.IsValid() {
		return validationError("client_type", "please select a valid client type")
	}
	if len(input.Attachments) > s.limits.MaxFiles {
		return validationError("attachments", fmt.Sprintf("at most %d files may be attached", s.limits.MaxFiles))
	}
	for _, a := range input.Attachments {
		if err := s.validateAttachment(a.MimeType, a.SizeBytes); err != nil {
			return err
		}
		if strings.TrimSpace(a.StoragePath) == "" || strings.Contains(a.StoragePath, "..") {
			return validationError("attachments", "attachment storage path is invalid")
		}
		if strings.TrimSpace(a.OriginalName) == "" {
			return validationError("attachments", "attachment name is required")
		}
	}
	return nil
}

func (s *Service) validateAttachment(mimeType string, size int64) error {
	if !s.limits.Allows(mimeType) {
		return validationError("attachments", fmt.Sprintf("file type %s is not allowed", mimeType))
	}
	if size <= 0 || size > s.limits.MaxFileBytes {
		return validationError("attachments", fmt.Sprintf("files must be between 1 byte and %dMB", s.limits.MaxFileBytes>>20))
	}
	return nil
}

func validationError(field, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(map[string]string{"field": field})
}

// RequestUpload signs a PUT URL the browser uses to upload one attachment.
func (s *Service) RequestUpload(ctx context.Context, req UploadRequest) (*gcs.SignedUpload, error) {
	if s.store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "attachment storage is not configured")
	}
	if strings.TrimSpace(req.Filename) == "" {
		return nil, validationError("filename", "filename is required")
	}
	if err := s.validateAttachment(req.ContentType, req.SizeBytes); err != nil {
		return nil, err
	}
	upload, err := s.store.SignedUploadURL(ctx, s.store.ObjectName(req.Filename), req.ContentType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "could not sign upload url")
	}
	return upload, nil
}

// Lookup returns the public view of an inquiry by reference.
func (s *Service) Lookup(ctx context.Context, reference string) (*PublicInquiryStatus, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}
	inquiry, err := s.repo.FindByReference(ctx, reference)
	if err != nil {
		return nil, notFoundOr(err, "load inquiry")
	}
	return &PublicInquiryStatus{
		Reference:       inquiry.Reference,
		Status:          inquiry.Status,
		QuoteAmount:     inquiry.QuoteAmount,
		QuoteEmailSent:  inquiry.QuoteEmailSent,
		PaymentReceived: inquiry.PaymentReceived,
		CreatedAt:       inquiry.CreatedAt,
	}, nil
}

// UpdateQuote sets the quote and queues the quote email. Status is untouched.
func (s *Service) UpdateQuote(ctx context.Context, input UpdateQuoteInput) (*InquiryDTO, error) {
	if input.InquiryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inquiry id required")
	}
	if input.Amount.IsNegative() {
		return nil, validationError("quote_amount", "quote amount must be a non-negative number")
	}
	amount := input.Amount.Round(2)

	var updated *models.Inquiry
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		err := repo.UpdateInquiry(ctx, input.InquiryID, map[string]any{
			"quote_amount":        amount,
			"quote_email_sent":    false,
			"quote_email_sent_at": nil,
			"updated_at":          s.now().UTC(),
		})
		if err != nil {
			return err
		}
		updated, err = repo.FindInquiry(ctx, input.InquiryID)
		if err != nil {
			return err
		}

		var actor *outbox.ActorRef
		if input.ActorID != uuid.Nil {
			actorID := input.ActorID
			actor = &outbox.ActorRef{AdminID: &actorID}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInquiryQuoted,
			AggregateType: enums.AggregateInquiry,
			AggregateID:   updated.ID,
			Actor:         actor,
			Data: payloads.InquiryQuotedEvent{
				InquiryContact: contactOf(updated),
				QuoteAmount:    amount,
				QuotedBy:       input.ActorID,
			},
		})
	})
	if err != nil {
		return nil, notFoundOr(err, "update quote")
	}
	dto := toInquiryDTO(updated)
	return &dto, nil
}

// UpdateDetails applies the admin-editable fields that are not part of the
// lifecycle.
func (s *Service) UpdateDetails(ctx context.Context, input UpdateDetailsInput) (*InquiryDTO, error) {
	if input.InquiryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inquiry id required")
	}
	if input.InternalNotes.Len() > maxInternalNotesLen {
		return nil, validationError("internal_notes", fmt.Sprintf("internal notes must be at most %d characters", maxInternalNotesLen))
	}
	if input.AssignedTutor.Len() > maxTutorLen {
		return nil, validationError("assigned_tutor", fmt.Sprintf("assigned tutor must be at most %d characters", maxTutorLen))
	}

	now := s.now().UTC()
	updates := map[string]any{}
	if input.InternalNotes.Set {
		updates["internal_notes"] = input.InternalNotes.Value
	}
	if input.AssignedTutor.Set {
		updates["assigned_tutor"] = input.AssignedTutor.Value
	}
	if input.PaymentReceived != nil {
		updates["payment_received"] = *input.PaymentReceived
		if *input.PaymentReceived {
			updates["payment_received_at"] = now
		} else {
			updates["payment_received_at"] = nil
		}
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}
	updates["updated_at"] = now

	if err := s.repo.UpdateInquiry(ctx, input.InquiryID, updates); err != nil {
		return nil, notFoundOr(err, "update inquiry")
	}
	inquiry, err := s.repo.FindInquiry(ctx, input.InquiryID)
	if err != nil {
		return nil, notFoundOr(err, "load inquiry")
	}
	dto := toInquiryDTO(inquiry)
	return &dto, nil
}

// MarkQuoteEmailSent records that the quote email went out.
func (s *Service) MarkQuoteEmailSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	err := s.repo.UpdateInquiry(ctx, id, map[string]any{
		"quote_email_sent":    true,
		"quote_email_sent_at": at.UTC(),
	})
	if err != nil {
		return notFoundOr(err, "mark quote email sent")
	}
	return nil
}

// List returns one page of inquiries plus counts per status over all inquiries.
func (s *Service) List(ctx context.Context, filters ListFilters, page pagination.Page) (*InquiryList, error) {
	if filters.DateFrom != nil && filters.DateTo != nil && filters.DateFrom.After(*filters.DateTo) {
		return nil, validationError("date_from", "date_from must not be after date_to")
	}
	if filters.MinQuote != nil && filters.MaxQuote != nil && filters.MinQuote.GreaterThan(*filters.MaxQuote) {
		return nil, validationError("min_quote", "min_quote must not exceed max_quote")
	}

	rows, total, err := s.repo.ListInquiries(ctx, filters, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "list inquiries")
	}
	counts, err := s.repo.CountByStatus(ctx, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "count inquiries")
	}

	out := make([]InquiryDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toInquiryDTO(&rows[i]))
	}
	return &InquiryList{
		Inquiries: out,
		Pagination: types.PageMeta{
			Page:       page.Number,
			Limit:      page.Limit,
			Total:      total,
			TotalPages: page.TotalPages(total),
		},
		StatusCounts: counts,
	}, nil
}

// Dashboard summarises inquiries created inside the period.
func (s *Service) Dashboard(ctx context.Context, period DashboardPeriod) (*Dashboard, error) {
	since := s.now().UTC().Add(-period.Duration())

	total, err := s.repo.CountSince(ctx, &since)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "count inquiries")
	}
	byStatus, err := s.repo.CountByStatus(ctx, &since)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "count by status")
	}
	byService, err := s.repo.CountByServiceType(ctx, &since)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "count by service type")
	}
	byUrgency, err := s.repo.CountByUrgency(ctx, &since)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "count by urgency")
	}
	recent, err := s.repo.RecentInquiries(ctx, since, recentInquiryLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "load recent inquiries")
	}
	amounts, err := s.repo.CompletedQuoteAmounts(ctx, since)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "load revenue")
	}

	revenue := decimal.Zero
	for _, amount := range amounts {
		revenue = revenue.Add(amount)
	}

	recentOut := make([]RecentInquiry, 0, len(recent))
	for _, r := range recent {
		recentOut = append(recentOut, RecentInquiry{
			ID:           r.ID,
			Reference:    r.Reference,
			CourseName:   r.CourseName,
			Status:       r.Status,
			ContactEmail: r.ContactEmail,
			CreatedAt:    r.CreatedAt,
		})
	}

	return &Dashboard{
		Period:            period,
		Since:             since,
		TotalInquiries:    total,
		StatusCounts:      byStatus,
		ServiceTypeCounts: byService,
		UrgencyCounts:     byUrgency,
		RecentInquiries:   recentOut,
		TotalRevenue:      revenue,
	}, nil
}

// Delete removes the inquiry with its history and attachments. Storage
// cleanup failures are logged; the row is already gone by then.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (*models.Inquiry, error) {
	var deleted *models.Inquiry
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		inquiry, err := repo.FindInquiry(ctx, id)
		if err != nil {
			return err
		}
		if err := repo.DeleteInquiry(ctx, id); err != nil {
			return err
		}
		deleted = inquiry
		return nil
	})
	if err != nil {
		return nil, notFoundOr(err, "delete inquiry")
	}

	if cleanupErr := s.deleteObjects(ctx, deleted.Attachments); cleanupErr != nil && s.logg != nil {
		logCtx := s.logg.WithInquiryID(ctx, id.String())
		s.logg.Error(logCtx, "attachment cleanup incomplete", cleanupErr)
	}
	return deleted, nil
}

func (s *Service) deleteObjects(ctx context.Context, attachments []models.InquiryAttachment) error {
	if s.store == nil {
		return nil
	}
	var errs error
	for _, a := range attachments {
		if err := s.store.DeleteObject(ctx, a.StoragePath); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete %s: %w", a.StoragePath, err))
		}
	}
	return errs
}

// AttachmentDownloadURL signs a short-lived GET URL for one attachment.
func (s *Service) AttachmentDownloadURL(ctx context.Context, inquiryID, attachmentID uuid.UUID) (string, *models.InquiryAttachment, error) {
	if s.store == nil {
		return "", nil, pkgerrors.New(pkgerrors.CodeDependency, "attachment storage is not configured")
	}
	inquiry, err := s.repo.FindInquiry(ctx, inquiryID)
	if err != nil {
		return "", nil, notFoundOr(err, "load inquiry")
	}
	for i := range inquiry.Attachments {
		a := &inquiry.Attachments[i]
		if a.ID != attachmentID {
			continue
		}
		url, err := s.store.SignedDownloadURL(ctx, a.StoragePath, a.OriginalName)
		if err != nil {
			return "", nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "could not sign download url")
		}
		return url, a, nil
	}
	return "", nil, pkgerrors.New(pkgerrors.CodeNotFound, "attachment not found")
}

func notFoundOr(err error, action string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "inquiry not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, action)
}
