package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/tutorgoat/tutorgoat-backend/api/responses"
	pkgAuth "github.com/tutorgoat/tutorgoat-backend/pkg/auth"
	"github.com/tutorgoat/tutorgoat-backend/pkg/auth/session"
	"github.com/tutorgoat/tutorgoat-backend/pkg/config"
	pkgerrors "github.com/tutorgoat/tutorgoat-backend/pkg/errors"
	"github.com/tutorgoat/tutorgoat-backend/pkg/logger"
)

// EventSource cannot set headers, so the SSE stream takes its token from
// this query parameter. Only GET requests honour it.
const accessTokenQueryParam = "access_token"

// Auth admits requests carrying a valid access token whose session is
// still live, and puts the claims on the context.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := credentials(r)
			claims, err := authenticate(r.Context(), cfg, sessions, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithClaims(r.Context(), claims)
			if logg != nil {
				ctx = logg.WithAdmin(ctx, claims.AdminID.String(), string(claims.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(ctx context.Context, cfg config.JWTConfig, sessions session.AccessSessionChecker, token string) (*pkgAuth.AccessTokenClaims, error) {
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	switch {
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	case claims.ID == "":
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	case sessions == nil:
		return claims, nil
	}

	live, err := sessions.HasSession(ctx, claims.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
	}
	if !live {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
	}
	return claims, nil
}

// credentials prefers the Authorization header. A query token is removed
// from the URL once read so it does not reach request logs.
func credentials(r *http.Request) string {
	if token := BearerToken(r); token != "" || r.Method != http.MethodGet {
		return token
	}
	q := r.URL.Query()
	token := strings.TrimSpace(q.Get(accessTokenQueryParam))
	if token != "" {
		q.Del(accessTokenQueryParam)
		r.URL.RawQuery = q.Encode()
	}
	return token
}

// BearerToken reads "Authorization: Bearer <token>". A bare token is
// accepted too; any other scheme yields "".
func BearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(raw, " ")
	switch {
	case !found:
		return raw
	case strings.EqualFold(scheme, "bearer"):
		return strings.TrimSpace(token)
	}
	return ""
}
