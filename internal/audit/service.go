package audit

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tutorgoat/tutorgoat-backend/pkg/db/models"
	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
	pkgerrors "github.com/tutorgoat/tutorgoat-backend/pkg/errors"
	"github.com/tutorgoat/tutorgoat-backend/pkg/logger"
	"github.com/tutorgoat/tutorgoat-backend/pkg/pagination"
	"github.com/tutorgoat/tutorgoat-backend/pkg/types"
)

const maxErrorMessageLen = 1000

// Entry is one admin action to record. AdminID is nil for failed logins
// against unknown accounts.
type Entry struct {
	AdminID       *uuid.UUID
	AdminUsername string
	Action        enums.AuditAction
	Resource      string
	ResourceID    string
	Details       map[string]any
	IPAddress     string
	UserAgent     string
	Success       bool
	ErrorMessage  string
}

// ListParams filters the audit log feed.
type ListParams struct {
	AdminID  *uuid.UUID
	Action   string
	Resource string
	Success  *bool
	From     *time.Time
	To       *time.Time
	Limit    int
	Cursor   string
}

// LogDTO is the API view of an audit row.
type LogDTO struct {
	ID            uuid.UUID         `json:"id"`
	AdminID       *uuid.UUID        `json:"admin_id,omitempty"`
	AdminUsername string            `json:"admin_username"`
	Action        enums.AuditAction `json:"action"`
	Resource      string            `json:"resource"`
	ResourceID    *string           `json:"resource_id,omitempty"`
	Details       map[string]any    `json:"details,omitempty"`
	IPAddress     *string           `json:"ip_address,omitempty"`
	UserAgent     *string           `json:"user_agent,omitempty"`
	Success       bool              `json:"success"`
	ErrorMessage  *string           `json:"error_message,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// ListResult is one page of the feed, newest first.
type ListResult struct {
	Items  []LogDTO `json:"items"`
	Cursor string   `json:"cursor,omitempty"`
}

// Service records admin actions. Recording never fails the caller.
type Service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo Repository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "audit repository required")
	}
	return &Service{
		repo: repo,
		logg: logg,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

// Record stores entry. A storage failure is logged and swallowed.
func (s *Service) Record(ctx context.Context, entry Entry) {
	if s == nil {
		return
	}
	row := &models.AuditLog{
		ID:            uuid.New(),
		AdminID:       entry.AdminID,
		AdminUsername: strings.TrimSpace(entry.AdminUsername),
		Action:        entry.Action,
		Resource:      entry.Resource,
		ResourceID:    optional(entry.ResourceID),
		IPAddress:     optional(entry.IPAddress),
		UserAgent:     optional(entry.UserAgent),
		Success:       entry.Success,
		CreatedAt:     s.now(),
	}
	if row.AdminUsername == "" {
		row.AdminUsername = "unknown"
	}
	if len(entry.Details) > 0 {
		row.Details = types.JSONMap(entry.Details)
	}
	if msg := entry.ErrorMessage; msg != "" {
		if len(msg) > maxErrorMessageLen {
			msg = msg[:maxErrorMessageLen]
		}
		row.ErrorMessage = &msg
	}

	// the request may already be finished when the entry is written
	ctx = context.WithoutCancel(ctx)
	if err := s.repo.Create(ctx, row); err != nil && s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"audit_action": string(entry.Action),
			"resource":     entry.Resource,
		})
		s.logg.Error(ctx, "failed to record audit log", err)
	}
}

// List returns one page of audit entries.
func (s *Service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listQuery{
		AdminID:  params.AdminID,
		Resource: strings.TrimSpace(params.Resource),
		Success:  params.Success,
		From:     params.From,
		To:       params.To,
		Limit:    params.Limit,
	}
	if raw := strings.TrimSpace(params.Action); raw != "" {
		action, err := enums.ParseAuditAction(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid audit action")
		}
		query.Action = action
	}
	if params.From != nil && params.To != nil && params.From.After(*params.To) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start date must not be after end date")
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit logs")
	}
	result := &ListResult{Items: make([]LogDTO, 0, len(rows))}
	for _, row := range rows {
		result.Items = append(result.Items, LogDTO{
			ID:            row.ID,
			AdminID:       row.AdminID,
			AdminUsername: row.AdminUsername,
			Action:        row.Action,
			Resource:      row.Resource,
			ResourceID:    row.ResourceID,
			Details:       row.Details,
			IPAddress:     row.IPAddress,
			UserAgent:     row.UserAgent,
			Success:       row.Success,
			ErrorMessage:  row.ErrorMessage,
			CreatedAt:     row.CreatedAt,
		})
	}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
