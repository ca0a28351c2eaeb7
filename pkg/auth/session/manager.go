// Package session keeps refresh sessions in Redis, keyed by the access
// token's jti.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/tutorgoat/tutorgoat-backend/pkg/config"
	redisclient "github.com/tutorgoat/tutorgoat-backend/pkg/redis"
)

const refreshTokenBytes = 32

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	errAccessIDRequired    = errors.New("access id is required")
)

// Store is the Redis surface sessions need.
type Store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker is what the auth middleware needs.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// Manager issues and rotates refresh tokens. A session is stored as
// "<admin id>.<sha256 of refresh token>", so the token itself never sits in
// Redis and only renews the admin it was issued to.
type Manager struct {
	store Store
	ttl   time.Duration
}

// NewManager requires the refresh TTL to outlive the access token TTL.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	ttl := cfg.RefreshTokenTTL()
	access := time.Duration(cfg.ExpirationMinutes) * time.Minute
	switch {
	case ttl <= 0:
		return nil, errors.New("refresh token ttl must be positive")
	case ttl <= access:
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, access)
	}
	return &Manager{store: client, ttl: ttl}, nil
}

// NewAccessID returns a fresh jti.
func NewAccessID() string {
	return uuid.NewString()
}

// Generate opens a session for adminID under accessID and returns the
// refresh token.
func (m *Manager) Generate(ctx context.Context, accessID string, adminID uuid.UUID) (string, error) {
	if strings.TrimSpace(accessID) == "" {
		return "", errAccessIDRequired
	}
	if adminID == uuid.Nil {
		return "", errors.New("admin id is required")
	}
	return m.open(ctx, accessID, adminID)
}

// Rotate consumes the session under oldAccessID if provided matches, and
// opens a new one. It returns the new access id, refresh token and owner.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, uuid.UUID, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return "", "", uuid.Nil, ErrInvalidRefreshToken
	}
	key := m.store.AccessSessionKey(oldAccessID)
	stored, err := m.store.Get(ctx, key)
	if errors.Is(err, redislib.Nil) {
		return "", "", uuid.Nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return "", "", uuid.Nil, err
	}

	adminID, digest, ok := strings.Cut(stored, ".")
	owner, parseErr := uuid.Parse(adminID)
	if !ok || parseErr != nil || subtle.ConstantTimeCompare([]byte(digest), []byte(hashToken(provided))) != 1 {
		return "", "", uuid.Nil, ErrInvalidRefreshToken
	}

	// the old session goes first so a replayed token cannot rotate twice
	if err := m.store.Del(ctx, key); err != nil {
		return "", "", uuid.Nil, err
	}
	newAccessID := NewAccessID()
	token, err := m.open(ctx, newAccessID, owner)
	if err != nil {
		return "", "", uuid.Nil, err
	}
	return newAccessID, token, owner, nil
}

func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errAccessIDRequired
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}

// HasSession reports whether accessID has not been revoked or rotated away.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, errAccessIDRequired
	}
	_, err := m.store.Get(ctx, m.store.AccessSessionKey(accessID))
	switch {
	case errors.Is(err, redislib.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func (m *Manager) open(ctx context.Context, accessID string, adminID uuid.UUID) (string, error) {
	raw := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)
	value := adminID.String() + "." + hashToken(token)
	if err := m.store.Set(ctx, m.store.AccessSessionKey(accessID), value, m.ttl); err != nil {
		return "", err
	}
	return token, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
