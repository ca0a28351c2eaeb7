package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/tutorgoat/tutorgoat-backend/pkg/errors"
)

func TestParseQueryTime(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?from=2026-03-01&to=2026-03-31&at=2026-03-05T10:00:00Z&bad=yesterday", nil)

	from, err := ParseQueryTime(req, "from", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *from)

	to, err := ParseQueryTime(req, "to", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 31, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC), *to)

	at, err := ParseQueryTime(req, "at", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC), *at)

	missing, err := ParseQueryTime(req, "missing", false)
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = ParseQueryTime(req, "bad", false)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParseQueryDecimalAndBool(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?min=12.50&flag=true&nope=abc", nil)

	min, err := ParseQueryDecimal(req, "min")
	require.NoError(t, err)
	assert.Equal(t, "12.5", min.String())

	_, err = ParseQueryDecimal(req, "nope")
	assert.Error(t, err)

	flag, err := ParseQueryBool(req, "flag")
	require.NoError(t, err)
	assert.True(t, *flag)

	_, err = ParseQueryBool(req, "nope")
	assert.Error(t, err)
}

func TestParseURLUUID(t *testing.T) {
	id := uuid.New()
	build := func(value string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rc := chi.NewRouteContext()
		rc.URLParams.Add("id", value)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
	}

	got, err := ParseURLUUID(build(id.String()), "id")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseURLUUID(build("not-a-uuid"), "id")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = ParseURLUUID(build(""), "id")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	type body struct {
		Email  string `json:"email" validate:"required,email"`
		Status string `json:"status" validate:"required,oneof=A B"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope","status":"C"}`))
	var dest body
	err := DecodeJSONBody(req, &dest)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be a valid email", details["email"])
	assert.Equal(t, "must be one of: A B", details["status"])

	unknown := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","status":"A","extra":1}`))
	assert.True(t, pkgerrors.IsCode(DecodeJSONBody(unknown, &dest), pkgerrors.CodeValidation))
}
