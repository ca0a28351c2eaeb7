package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func preflight(h http.Handler, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/inquiries", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	h := CORS([]string{" https://admin.tutorgoat.com/ ", ""})(http.NotFoundHandler())

	rec := preflight(h, "https://admin.tutorgoat.com")
	assert.Equal(t, "https://admin.tutorgoat.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = preflight(h, "https://evil.example")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWildcardDropsCredentials(t *testing.T) {
	h := CORS([]string{"*"})(http.NotFoundHandler())

	rec := preflight(h, "https://anywhere.example")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestNormalizeOriginsDedupes(t *testing.T) {
	got := normalizeOrigins([]string{"http://localhost:3000/", "http://localhost:3000", "  "})
	assert.Equal(t, []string{"http://localhost:3000"}, got)
}
