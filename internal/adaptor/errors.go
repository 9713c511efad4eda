package adaptor

import (
	"encoding/json"
	"errors"
	"net/http"

	"service-booking/internal/apperr"
	"service-booking/pkg/utils"

	"go.uber.org/zap"
)

// handleServiceError maps an error kind to its HTTP status. Expected kinds log at Warn, the rest at Error.
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	kind := apperr.Kind(err)
	if kind == nil {
		log.Error("Failed to "+operation, zap.Error(err), zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
		return
	}

	log.Warn(operation+" failed",
		zap.Error(err),
		zap.String("operation", operation),
		zap.String("kind", kind.Error()),
	)

	switch kind {
	case apperr.ErrValidation:
		var fields apperr.FieldErrors
		if errors.As(err, &fields) {
			utils.ResponseBadRequest(w, "Validation failed", map[string]string(fields))
			return
		}
		utils.ResponseBadRequest(w, err.Error(), nil)
	case apperr.ErrUnauthorized, apperr.ErrSignatureInvalid:
		utils.ResponseUnauthorized(w, kind.Error())
	case apperr.ErrForbidden:
		utils.ResponseForbidden(w, err.Error())
	case apperr.ErrNotFound:
		utils.ResponseNotFound(w, err.Error())
	case apperr.ErrConflict:
		utils.ResponseConflict(w, err.Error(), "conflict")
	case apperr.ErrInvalidTransition:
		utils.ResponseConflict(w, err.Error(), "invalid_transition")
	case apperr.ErrAlreadyPaid:
		utils.ResponseConflict(w, err.Error(), "already_paid")
	case apperr.ErrMissingReport:
		utils.ResponseUnprocessable(w, err.Error())
	case apperr.ErrGatewayUnavailable, apperr.ErrRetryable:
		utils.ResponseServiceUnavailable(w, kind.Error())
	default:
		utils.ResponseInternalError(w, "Internal server error")
	}
}

// decodeJSON reads the request body into dst, answering 400 itself on malformed input.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return false
	}
	return true
}

// actorFrom returns the authenticated caller, answering 401 itself when there is none.
func actorFrom(w http.ResponseWriter, r *http.Request) (utils.Actor, bool) {
	actor, ok := utils.GetActorFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return utils.Actor{}, false
	}
	return actor, true
}

func paginationFrom(r *http.Request) (page, perPage int) {
	query := r.URL.Query()
	return utils.ParseInt(query.Get("page"), 1), utils.ParseInt(query.Get("per_page"), 10)
}
