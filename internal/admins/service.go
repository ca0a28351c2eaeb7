package admins

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/tutorgoat/tutorgoat-backend/pkg/config"
	"github.com/tutorgoat/tutorgoat-backend/pkg/db"
	"github.com/tutorgoat/tutorgoat-backend/pkg/db/models"
	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
	pkgerrors "github.com/tutorgoat/tutorgoat-backend/pkg/errors"
	"github.com/tutorgoat/tutorgoat-backend/pkg/security"
)

const minPasswordLen = 8

// Service creates staff accounts.
type Service struct {
	repo     *Repository
	password config.PasswordConfig
	now      func() time.Time
}

func NewService(repo *Repository, password config.PasswordConfig) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("admins repository required")
	}
	return &Service{repo: repo, password: password, now: time.Now}, nil
}

// Create validates input, hashes the password and stores the account with
// the role's default permission flags.
func (s *Service) Create(ctx context.Context, input CreateInput) (*AdminDTO, error) {
	username := strings.TrimSpace(input.Username)
	if n := utf8.RuneCountInString(username); n < 3 || n > 30 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username must be 3-30 characters")
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid email is required")
	}
	if utf8.RuneCountInString(input.Password) < minPasswordLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	role := input.Role
	if role == "" {
		role = enums.AdminRoleAgent
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", input.Role))
	}

	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	now := s.now().UTC()
	admin := &models.Admin{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	applyFlags(admin, DefaultFlags(role))

	if err := s.repo.Create(ctx, admin); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "an admin with this username or email already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "create admin")
	}
	return FromModel(admin), nil
}

// List returns every account ordered by username.
func (s *Service) List(ctx context.Context) ([]*AdminDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "list admins")
	}
	out := make([]*AdminDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out, nil
}

// SetActive enables or disables the account identified by login, which is
// an email address or a username. Disabled admins cannot sign in and are
// rejected as transition actors.
func (s *Service) SetActive(ctx context.Context, login string, active bool) (*AdminDTO, error) {
	admin, err := s.lookup(ctx, login)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := s.repo.SetActive(ctx, admin.ID, active, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "update admin")
	}
	admin.IsActive = active
	admin.UpdatedAt = now
	return FromModel(admin), nil
}

func (s *Service) lookup(ctx context.Context, login string) (*models.Admin, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email or username is required")
	}
	find := s.repo.FindByUsername
	if strings.Contains(login, "@") {
		find = s.repo.FindByEmail
	}
	admin, err := find(ctx, login)
	switch {
	case db.IsNotFound(err):
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "admin %q not found", login)
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "find admin")
	}
	return admin, nil
}
