package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/todolevel/todo-service/internal/domain"
	"go.uber.org/zap"
)

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the error code, a human message, per-field details and a
// trace id for support correlation.
type ErrorBody struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details"`
	TraceID string        `json:"trace_id"`
}

// ErrorDetail describes a field-specific error.
type ErrorDetail struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string, details ...ErrorDetail) {
	if details == nil {
		details = []ErrorDetail{}
	}
	writeJSON(w, status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
			TraceID: uuid.New().String(),
		},
	})
}

func badRequest(w http.ResponseWriter, field, reason string) {
	writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", reason,
		ErrorDetail{Field: field, Reason: reason})
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "todo not found")
}

func internalError(w http.ResponseWriter, logger *zap.Logger, err error) {
	logger.Error("internal server error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
}

// fromDomainError maps service-layer failures to HTTP responses: validation
// errors become 400 with the offending field, absence becomes 404, anything
// else is a storage failure and becomes 500.
func fromDomainError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyTitle), errors.Is(err, domain.ErrTitleTooLong):
		badRequest(w, "title", err.Error())
	case errors.Is(err, domain.ErrDescriptionTooLong):
		badRequest(w, "description", err.Error())
	case errors.Is(err, domain.ErrInvalidPriority):
		badRequest(w, "priority", err.Error())
	case errors.Is(err, domain.ErrTagTooLong), errors.Is(err, domain.ErrTooManyTags):
		badRequest(w, "tags", err.Error())
	case errors.Is(err, domain.ErrDueBeforeCreated):
		badRequest(w, "due_date", err.Error())
	case errors.Is(err, domain.ErrTodoNotFound):
		notFound(w)
	default:
		internalError(w, logger, err)
	}
}
