package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/cors"
)

var (
	corsMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	corsHeaders = []string{"Accept", "Authorization", "Content-Type", IdempotencyHeader, requestIDHeader}
	corsExposed = []string{requestIDHeader, "Retry-After", "Content-Disposition", "Idempotent-Replayed"}
)

// CORS admits the configured dashboard and site origins. A "*" entry opens
// the API to any origin, in which case cookies and auth headers are not
// shared cross-site.
func CORS(origins []string) func(http.Handler) http.Handler {
	allowed := normalizeOrigins(origins)
	return cors.New(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   corsMethods,
		AllowedHeaders:   corsHeaders,
		ExposedHeaders:   corsExposed,
		AllowCredentials: !slices.Contains(allowed, "*"),
		MaxAge:           600,
	}).Handler
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" && !slices.Contains(out, o) {
			out = append(out, o)
		}
	}
	return out
}
