package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"service-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newIssuer(t *testing.T) *utils.TokenIssuer {
	t.Helper()
	tokens, err := utils.NewTokenIssuer(utils.JWTConfig{Secret: "middleware-test", ExpiryHours: 1})
	require.NoError(t, err)
	return tokens
}

func echoActor(w http.ResponseWriter, r *http.Request) {
	actor, ok := utils.GetActorFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	_, _ = w.Write([]byte(actor.Role + ":" + actor.UserID.String()))
}

func TestAuth(t *testing.T) {
	tokens := newIssuer(t)
	userID := uuid.New()
	token, _, err := tokens.Issue(userID, "provider")
	require.NoError(t, err)

	h := Auth(tokens, zap.NewNop())(http.HandlerFunc(echoActor))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer " + token, http.StatusOK},
		{"lowercase scheme", "bearer " + token, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"no scheme", token, http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/bookings", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "provider:"+userID.String(), rec.Body.String())
			}
		})
	}
}

func TestAuthRejectsTokenFromOtherIssuer(t *testing.T) {
	other, err := utils.NewTokenIssuer(utils.JWTConfig{Secret: "someone-else", ExpiryHours: 1})
	require.NoError(t, err)
	token, _, err := other.Issue(uuid.New(), "admin")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	Auth(newIssuer(t), zap.NewNop())(http.HandlerFunc(echoActor)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(zap.NewNop(), "admin")(http.HandlerFunc(echoActor))

	serve := func(role string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if role != "" {
			req = req.WithContext(utils.SetUserContext(req.Context(), uuid.New(), role))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, serve("admin"))
	assert.Equal(t, http.StatusForbidden, serve("customer"))
	assert.Equal(t, http.StatusUnauthorized, serve(""))
}

func TestRecover(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	h := Recover(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body utils.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Status)
	assert.Equal(t, 1, logs.FilterMessage("PANIC recovered").Len())
}

func TestLoggerRecordsStatus(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := Logger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte("taken"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/bookings/1/accept-reject", nil))

	entries := logs.FilterMessage("HTTP request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(http.StatusConflict), fields["status"])
	assert.Equal(t, int64(5), fields["bytes"])
	assert.Equal(t, "PATCH", fields["method"])
}

func TestCORSPreflight(t *testing.T) {
	called := false
	h := CORS()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/bookings", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.False(t, called)
}
