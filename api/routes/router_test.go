package routes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorgoat/tutorgoat-backend/internal/audit"
	"github.com/tutorgoat/tutorgoat-backend/internal/inquiries"
	"github.com/tutorgoat/tutorgoat-backend/internal/realtime"
	pkgAuth "github.com/tutorgoat/tutorgoat-backend/pkg/auth"
	"github.com/tutorgoat/tutorgoat-backend/pkg/auth/session"
	"github.com/tutorgoat/tutorgoat-backend/pkg/config"
	"github.com/tutorgoat/tutorgoat-backend/pkg/db/models"
	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
	"github.com/tutorgoat/tutorgoat-backend/pkg/metrics"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", CORSOrigins: []string{"http://localhost:3000"}},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "tutorgoat", ExpirationMinutes: 15},
		AuthRateLimit: config.AuthRateLimitConfig{
			LoginWindow:     time.Minute,
			LoginEmailLimit: 5,
			LoginIPLimit:    20,
			InquiryWindow:   time.Hour,
			InquiryIPLimit:  10,
		},
		Realtime: config.RealtimeConfig{KeepAlivePeriod: time.Minute},
	}
}

type allowSessions struct{}

func (allowSessions) HasSession(context.Context, string) (bool, error) { return true, nil }

type memoryStore struct {
	mu     sync.Mutex
	values map[string]string
	counts map[string]int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}, counts: map[string]int64{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	switch v := value.(type) {
	case string:
		m.values[key] = v
	case []byte:
		m.values[key] = string(v)
	}
	return true, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = fmt.Sprint(value)
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string { return "idem:" + scope + ":" + id }

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memoryStore) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[scope]++
	return m.counts[scope] <= limit, m.counts[scope], nil
}

type stubEngine struct {
	mu      sync.Mutex
	single  []inquiries.UpdateStatusInput
	bulkHit int
}

func (s *stubEngine) UpdateStatus(_ context.Context, input inquiries.UpdateStatusInput) (*inquiries.TransitionResult, error) {
	s.mu.Lock()
	s.single = append(s.single, input)
	s.mu.Unlock()
	now := time.Now().UTC()
	return &inquiries.TransitionResult{
		Inquiry:        &models.Inquiry{ID: input.InquiryID, Status: input.NewStatus, StatusChangedAt: now},
		PreviousStatus: enums.InquiryStatusPending,
		NewStatus:      input.NewStatus,
		ActorID:        input.ActorID,
		ActorUsername:  "maria",
		ChangedAt:      now,
		Record:         models.InquiryStatusHistory{InquiryID: input.InquiryID, Seq: 2, Status: input.NewStatus, ChangedAt: now},
	}, nil
}

func (s *stubEngine) BulkUpdateStatus(_ context.Context, _ uuid.UUID, updates []inquiries.BulkStatusUpdate) inquiries.BulkResult {
	s.mu.Lock()
	s.bulkHit++
	s.mu.Unlock()
	return inquiries.BulkResult{Successful: []inquiries.BulkSuccess{}, Failed: []inquiries.BulkFailure{}}
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *recordingAudit) Record(_ context.Context, entry audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

type recordingEvents struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (r *recordingEvents) Publish(_ context.Context, event realtime.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func bearer(t *testing.T, cfg *config.Config, role enums.AdminRole, perms ...enums.Permission) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		AdminID:     uuid.New(),
		Username:    "maria",
		Role:        role,
		Permissions: perms,
		JTI:         session.NewAccessID(),
	})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	reg := prometheus.NewRegistry()
	router := NewRouter(Deps{
		Config:   testConfig(),
		Gatherer: reg,
		HTTP:     metrics.NewHTTPMetrics(reg),
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.NotEmpty(t, resp.Header().Get("X-Request-Id"))

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `tutorgoat_http_requests_total{method="GET",route="/health/live",status_code="200"} 1`)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	router := NewRouter(Deps{Config: testConfig()})

	for _, path := range []string{"/api/admin/inquiries", "/api/admin/dashboard", "/api/admin/events"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, resp.Code, path)
	}
}

func TestAdminRoutesEnforcePermissions(t *testing.T) {
	cfg := testConfig()
	auditLog := &recordingAudit{}
	router := NewRouter(Deps{Config: cfg, Sessions: allowSessions{}, Audit: auditLog})

	readonly := bearer(t, cfg, enums.AdminRoleReadonly, enums.PermissionViewInquiries)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/inquiries/transitions", nil)
	req.Header.Set("Authorization", readonly)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"IN_PROGRESS"`)

	req = httptest.NewRequest(http.MethodDelete, "/api/admin/inquiries/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", readonly)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusForbidden, resp.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/audit-logs", nil)
	req.Header.Set("Authorization", readonly)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusForbidden, resp.Code)

	require.Len(t, auditLog.entries, 2)
	for _, entry := range auditLog.entries {
		assert.Equal(t, enums.AuditActionPermissionDenied, entry.Action)
	}
}

func TestStatusUpdateFlowsThroughAdminStack(t *testing.T) {
	cfg := testConfig()
	engine := &stubEngine{}
	auditLog := &recordingAudit{}
	events := &recordingEvents{}
	router := NewRouter(Deps{
		Config:   cfg,
		Sessions: allowSessions{},
		Redis:    newMemoryStore(),
		Engine:   engine,
		Audit:    auditLog,
		Events:   events,
	})
	token := bearer(t, cfg, enums.AdminRoleAgent, enums.PermissionViewInquiries, enums.PermissionEditInquiries)
	id := uuid.New()

	send := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/api/admin/inquiries/"+id.String()+"/status", strings.NewReader(`{"status":"ASSIGNED"}`))
		req.Header.Set("Authorization", token)
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		return resp
	}

	require.Equal(t, http.StatusBadRequest, send("").Code)
	require.Equal(t, http.StatusOK, send("key-1").Code)
	replay := send("key-1")
	require.Equal(t, http.StatusOK, replay.Code)

	require.Len(t, engine.single, 1)
	assert.Equal(t, id, engine.single[0].InquiryID)
	require.Len(t, events.events, 1)
	assert.Equal(t, realtime.EventStatusUpdate, events.events[0].Type)

	require.Len(t, auditLog.entries, 1)
	assert.Equal(t, enums.AuditActionUpdateInquiryStatus, auditLog.entries[0].Action)
	assert.Equal(t, id.String(), auditLog.entries[0].ResourceID)
}

func TestBulkStatusIsNotTreatedAsInquiryID(t *testing.T) {
	cfg := testConfig()
	engine := &stubEngine{}
	router := NewRouter(Deps{Config: cfg, Sessions: allowSessions{}, Engine: engine})
	token := bearer(t, cfg, enums.AdminRoleManager, enums.PermissionEditInquiries)

	body := `{"updates":[{"inquiry_id":"` + uuid.NewString() + `","new_status":"ASSIGNED"}]}`
	req := httptest.NewRequest(http.MethodPut, "/api/admin/inquiries/bulk-status", strings.NewReader(body))
	req.Header.Set("Authorization", token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 1, engine.bulkHit)
	assert.Empty(t, engine.single)
}

func TestPublicLookupRejectsMalformedReference(t *testing.T) {
	router := NewRouter(Deps{Config: testConfig()})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/inquiries/not-a-reference", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestLoginIsRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.AuthRateLimit.LoginIPLimit = 1
	router := NewRouter(Deps{Config: cfg, Redis: newMemoryStore()})

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{}`))
		req.RemoteAddr = "192.0.2.10:5000"
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		codes = append(codes, resp.Code)
	}
	assert.NotEqual(t, http.StatusTooManyRequests, codes[0])
	assert.Equal(t, http.StatusTooManyRequests, codes[1])
}

func TestSignedInAuthRoutesRequireToken(t *testing.T) {
	router := NewRouter(Deps{Config: testConfig(), Sessions: allowSessions{}})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/auth/change-password", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestContactIsRateLimitedPerIP(t *testing.T) {
	cfg := testConfig()
	cfg.AuthRateLimit.ContactWindow = time.Hour
	cfg.AuthRateLimit.ContactIPLimit = 1
	router := NewRouter(Deps{Config: cfg, Redis: newMemoryStore()})

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/contact", strings.NewReader(`{}`))
		req.RemoteAddr = "192.0.2.11:5000"
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		codes = append(codes, resp.Code)
	}
	assert.NotEqual(t, http.StatusTooManyRequests, codes[0])
	assert.Equal(t, http.StatusTooManyRequests, codes[1])
}
