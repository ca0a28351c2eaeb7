package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tutorgoat/tutorgoat-backend/internal/admins"
	"github.com/tutorgoat/tutorgoat-backend/internal/audit"
	pkgAuth "github.com/tutorgoat/tutorgoat-backend/pkg/auth"
	"github.com/tutorgoat/tutorgoat-backend/pkg/auth/session"
	"github.com/tutorgoat/tutorgoat-backend/pkg/config"
	"github.com/tutorgoat/tutorgoat-backend/pkg/db/models"
	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
	pkgerrors "github.com/tutorgoat/tutorgoat-backend/pkg/errors"
	"github.com/tutorgoat/tutorgoat-backend/pkg/security"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	lockedMessage             = "account is temporarily locked due to too many failed login attempts"
	authResource              = "auth"
)

// Service defines the behavior needed by the auth controllers.
type Service interface {
	Login(ctx context.Context, req LoginRequest, client ClientInfo) (*LoginResponse, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, accessToken string, client ClientInfo) error
	Me(ctx context.Context, adminID uuid.UUID) (*admins.AdminDTO, error)
	ChangePassword(ctx context.Context, adminID uuid.UUID, req ChangePasswordRequest, client ClientInfo) error
}

type service struct {
	admins   adminRepository
	session  sessionManager
	audit    auditRecorder
	jwtCfg   config.JWTConfig
	lockout  config.AdminLockoutConfig
	password config.PasswordConfig
	now      func() time.Time
}

type adminRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Admin, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Admin, error)
	RecordFailedLogin(ctx context.Context, id uuid.UUID, now time.Time, maxAttempts int, lockFor time.Duration) (*models.Admin, error)
	RecordSuccessfulLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string, at time.Time) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string, adminID uuid.UUID) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, uuid.UUID, error)
	Revoke(ctx context.Context, accessID string) error
}

type auditRecorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	AdminRepo      adminRepository
	SessionManager sessionManager
	Audit          auditRecorder
	JWTConfig      config.JWTConfig
	Lockout        config.AdminLockoutConfig

	// Password enables upgrading stored hashes on login when the configured
	// Argon2id costs change. Zero value disables it.
	Password config.PasswordConfig
}

// NewService constructs the admin auth service.
func NewService(params ServiceParams) (Service, error) {
	if params.AdminRepo == nil {
		return nil, fmt.Errorf("admin repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	return &service{
		admins:   params.AdminRepo,
		session:  params.SessionManager,
		audit:    params.Audit,
		jwtCfg:   params.JWTConfig,
		lockout:  params.Lockout,
		password: params.Password,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest, client ClientInfo) (*LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	now := s.now()

	admin, err := s.admins.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.record(ctx, nil, email, enums.AuditActionFailedLogin, client, false, "unknown email", nil)
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup admin")
	}

	if admin.IsLocked(now) {
		s.record(ctx, admin, admin.Username, enums.AuditActionAccountLocked, client, false, "login attempted while locked", nil)
		return nil, lockedError(admin)
	}
	if !admin.IsActive {
		s.record(ctx, admin, admin.Username, enums.AuditActionFailedLogin, client, false, "account inactive", nil)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	valid, err := security.VerifyPassword(req.Password, admin.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, s.failLogin(ctx, admin, now, client)
	}

	if err := s.admins.RecordSuccessfulLogin(ctx, admin.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	admin.LastLoginAt = &now
	admin.LoginAttempts = 0
	admin.LockUntil = nil
	s.upgradeHash(ctx, admin, req.Password, now)

	accessID := session.NewAccessID()
	pair, err := s.issue(ctx, admin, accessID, now)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.session.Generate(ctx, accessID, admin.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}
	pair.RefreshToken = refreshToken

	s.record(ctx, admin, admin.Username, enums.AuditActionLogin, client, true, "", nil)
	return &LoginResponse{TokenPair: *pair, Admin: admins.FromModel(admin)}, nil
}

// upgradeHash re-hashes a verified password whose stored costs are stale.
// Failures leave the old hash in place; it still verifies.
func (s *service) upgradeHash(ctx context.Context, admin *models.Admin, password string, now time.Time) {
	if s.password == (config.PasswordConfig{}) || !security.NeedsRehash(admin.PasswordHash, s.password) {
		return
	}
	hash, err := security.HashPassword(password, s.password)
	if err != nil {
		return
	}
	if err := s.admins.UpdatePasswordHash(ctx, admin.ID, hash, now); err != nil {
		return
	}
	admin.PasswordHash = hash
}

func (s *service) failLogin(ctx context.Context, admin *models.Admin, now time.Time, client ClientInfo) error {
	updated, err := s.admins.RecordFailedLogin(ctx, admin.ID, now, s.lockout.MaxAttempts, s.lockout.LockDuration)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record failed login")
	}
	s.record(ctx, admin, admin.Username, enums.AuditActionFailedLogin, client, false, invalidCredentialsMessage,
		map[string]any{"login_attempts": updated.LoginAttempts})
	if updated.IsLocked(now) {
		s.record(ctx, admin, admin.Username, enums.AuditActionAccountLocked, client, false, "too many failed login attempts",
			map[string]any{"lock_until": updated.LockUntil.UTC().Format(time.RFC3339)})
	}
	return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
}

func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	claims, err := s.claims(accessToken)
	if err != nil {
		return nil, err
	}

	newAccessID, newRefresh, adminID, err := s.session.Rotate(ctx, claims.ID, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rotate session")
	}
	if adminID != claims.AdminID {
		_ = s.session.Revoke(ctx, newAccessID)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
	}

	// role and permission flags may have changed since the last token
	admin, err := s.admins.FindByID(ctx, adminID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup admin")
	}
	now := s.now()
	if admin == nil || !admin.IsActive || admin.IsLocked(now) {
		_ = s.session.Revoke(ctx, newAccessID)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account is no longer active")
	}

	pair, err := s.issue(ctx, admin, newAccessID, now)
	if err != nil {
		return nil, err
	}
	pair.RefreshToken = newRefresh
	return pair, nil
}

func (s *service) Logout(ctx context.Context, accessToken string, client ClientInfo) error {
	claims, err := s.claims(accessToken)
	if err != nil {
		return err
	}
	if err := s.session.Revoke(ctx, claims.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke session")
	}
	adminID := claims.AdminID
	s.record(ctx, &models.Admin{ID: adminID}, claims.Username, enums.AuditActionLogout, client, true, "", nil)
	return nil
}

// Me returns the signed-in admin with permissions read from the database
// rather than the token.
func (s *service) Me(ctx context.Context, adminID uuid.UUID) (*admins.AdminDTO, error) {
	admin, err := s.activeAdmin(ctx, adminID)
	if err != nil {
		return nil, err
	}
	return admins.FromModel(admin), nil
}

// ChangePassword replaces the caller's password after checking the current
// one. Existing sessions stay valid.
func (s *service) ChangePassword(ctx context.Context, adminID uuid.UUID, req ChangePasswordRequest, client ClientInfo) error {
	admin, err := s.activeAdmin(ctx, adminID)
	if err != nil {
		return err
	}

	valid, err := security.VerifyPassword(req.CurrentPassword, admin.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		s.record(ctx, admin, admin.Username, enums.AuditActionChangePassword, client, false, "current password is incorrect", nil)
		return pkgerrors.New(pkgerrors.CodeValidation, "current password is incorrect").
			WithDetails(map[string]string{"field": "current_password"})
	}
	if req.NewPassword == req.CurrentPassword {
		return pkgerrors.New(pkgerrors.CodeValidation, "new password must be different from current password").
			WithDetails(map[string]string{"field": "new_password"})
	}
	if err := security.CheckStrength(req.NewPassword); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, err.Error()).
			WithDetails(map[string]string{"field": "new_password"})
	}

	hash, err := security.HashPassword(req.NewPassword, s.password)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.admins.UpdatePasswordHash(ctx, admin.ID, hash, s.now()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "update password")
	}
	s.record(ctx, admin, admin.Username, enums.AuditActionChangePassword, client, true, "", nil)
	return nil
}

func (s *service) activeAdmin(ctx context.Context, adminID uuid.UUID) (*models.Admin, error) {
	admin, err := s.admins.FindByID(ctx, adminID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin account not found or deactivated")
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup admin")
	case !admin.IsActive:
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin account not found or deactivated")
	}
	return admin, nil
}

func (s *service) claims(accessToken string) (*pkgAuth.AccessTokenClaims, error) {
	token := strings.TrimSpace(accessToken)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	return claims, nil
}

func (s *service) issue(_ context.Context, admin *models.Admin, accessID string, now time.Time) (*TokenPair, error) {
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		AdminID:     admin.ID,
		Username:    admin.Username,
		Role:        admin.Role,
		Permissions: admins.Permissions(admin),
		JTI:         accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &TokenPair{
		AccessToken: accessToken,
		ExpiresIn:   s.jwtCfg.ExpirationMinutes * 60,
	}, nil
}

func (s *service) record(ctx context.Context, admin *models.Admin, username string, action enums.AuditAction, client ClientInfo, success bool, errMsg string, details map[string]any) {
	if s.audit == nil {
		return
	}
	entry := audit.Entry{
		AdminUsername: username,
		Action:        action,
		Resource:      authResource,
		Details:       details,
		IPAddress:     client.IPAddress,
		UserAgent:     client.UserAgent,
		Success:       success,
		ErrorMessage:  errMsg,
	}
	if admin != nil && admin.ID != uuid.Nil {
		id := admin.ID
		entry.AdminID = &id
		entry.ResourceID = id.String()
	}
	s.audit.Record(ctx, entry)
}

func lockedError(admin *models.Admin) error {
	err := pkgerrors.New(pkgerrors.CodeAccountLocked, lockedMessage)
	if admin.LockUntil != nil {
		return err.WithDetails(map[string]any{"lock_until": admin.LockUntil.UTC()})
	}
	return err
}
