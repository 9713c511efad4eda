package adaptor

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"service-booking/internal/apperr"
	"service-booking/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHandleServiceErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{apperr.FieldErrors{"ScheduledDate": "Must not be in the past"}, http.StatusBadRequest},
		{fmt.Errorf("login: %w", apperr.ErrUnauthorized), http.StatusUnauthorized},
		{fmt.Errorf("verify: %w", apperr.ErrSignatureInvalid), http.StatusUnauthorized},
		{fmt.Errorf("cancel: %w", apperr.ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("get: %w", apperr.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("accept: %w", apperr.ErrConflict), http.StatusConflict},
		{fmt.Errorf("advance: %w", apperr.ErrInvalidTransition), http.StatusConflict},
		{fmt.Errorf("open: %w", apperr.ErrAlreadyPaid), http.StatusConflict},
		{fmt.Errorf("complete: %w", apperr.ErrMissingReport), http.StatusUnprocessableEntity},
		{fmt.Errorf("order: %w", apperr.ErrGatewayUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("tx: %w", apperr.ErrRetryable), http.StatusServiceUnavailable},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleServiceError(rec, zap.NewNop(), tt.err, "test")
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestHandleServiceErrorBody(t *testing.T) {
	rec := httptest.NewRecorder()
	handleServiceError(rec, zap.NewNop(), fmt.Errorf("create: %w", apperr.FieldErrors{"address_id": "Must be a valid UUID"}), "create booking")

	var body struct {
		utils.Response
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Status)
	assert.Equal(t, "Must be a valid UUID", body.Errors["address_id"])

	rec = httptest.NewRecorder()
	handleServiceError(rec, zap.NewNop(), apperr.ErrRetryable, "verify payment")
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))

	rec = httptest.NewRecorder()
	handleServiceError(rec, zap.NewNop(), apperr.ErrAlreadyPaid, "open payment order")
	assert.Contains(t, rec.Body.String(), `"code":"already_paid"`)

	// internal details stay out of the response
	rec = httptest.NewRecorder()
	handleServiceError(rec, zap.NewNop(), errors.New("pq: connection refused"), "list bookings")
	assert.NotContains(t, rec.Body.String(), "connection refused")
}
