package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tutorgoat/tutorgoat-backend/pkg/config"
)

var (
	signingMethod = jwt.SigningMethodHS256

	errNoSecret = errors.New("jwt secret is required")
	// ErrSubjectMismatch means the sub claim does not name the admin_id claim.
	ErrSubjectMismatch = errors.New("token subject does not match admin id")
)

// MintAccessToken signs an HS256 access token valid for cfg.ExpirationMinutes
// from now. An empty payload.JTI gets a fresh uuid.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	switch {
	case cfg.Secret == "":
		return "", errNoSecret
	case cfg.Issuer == "":
		return "", errors.New("jwt issuer is required")
	case cfg.ExpirationMinutes <= 0:
		return "", errors.New("jwt expiration minutes must be positive")
	case payload.AdminID == uuid.Nil:
		return "", errors.New("admin id is required")
	case !payload.Role.IsValid():
		return "", fmt.Errorf("invalid admin role %q", payload.Role)
	}
	for _, p := range payload.Permissions {
		if !p.IsValid() {
			return "", fmt.Errorf("invalid permission %q", p)
		}
	}

	jti := payload.JTI
	if jti == "" {
		jti = uuid.NewString()
	}
	ttl := time.Duration(cfg.ExpirationMinutes) * time.Minute
	claims := AccessTokenClaims{
		AdminID:     payload.AdminID,
		Username:    payload.Username,
		Role:        payload.Role,
		Permissions: payload.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    cfg.Issuer,
			Subject:   payload.AdminID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer and expiry.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	return parse(cfg, raw)
}

// ParseAccessTokenAllowExpired verifies signature and issuer only. Refresh
// uses it to read the session id from an access token that has lapsed.
func ParseAccessTokenAllowExpired(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	return parse(cfg, raw, jwt.WithoutClaimsValidation())
}

func parse(cfg config.JWTConfig, raw string, extra ...jwt.ParserOption) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, errNoSecret
	}
	opts := append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	}, extra...)

	claims := &AccessTokenClaims{}
	key := func(*jwt.Token) (any, error) { return []byte(cfg.Secret), nil }
	if _, err := jwt.NewParser(opts...).ParseWithClaims(raw, claims, key); err != nil {
		return nil, err
	}
	if claims.Subject != "" && claims.Subject != claims.AdminID.String() {
		return nil, ErrSubjectMismatch
	}
	return claims, nil
}
