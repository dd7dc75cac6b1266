package handlers

import (
	"encoding/json"
	"net/http"

	"learnsphere-backend/internal/models"
	"learnsphere-backend/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch e := err.(type) {
	case *services.ValidationError:
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", e.Fields, r))
	case *services.ConflictError:
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", e.Message, r))
	case *services.NotFoundError:
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", e.Message, r))
	case *services.UnauthorizedError:
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", e.Message, r))
	case *services.ForbiddenError:
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", e.Message, r))
	case *services.AttemptsExhaustedError:
		writeJSON(w, http.StatusConflict, errorResp("ATTEMPTS_EXHAUSTED", e.Error(), r))
	case *services.AlreadySubmittedError:
		writeJSON(w, http.StatusConflict, errorResp("ALREADY_SUBMITTED", e.Error(), r))
	case *services.EmptyQuizError:
		writeJSON(w, http.StatusUnprocessableEntity, errorResp("EMPTY_QUIZ", e.Error(), r))
	case *services.InvalidStatusTransitionError:
		writeJSON(w, http.StatusConflict, errorResp("INVALID_STATUS_TRANSITION", e.Error(), r))
	case *services.ArchiveBlockedError:
		resp := errorResp("ARCHIVE_BLOCKED", "Quiz cannot be archived", r)
		resp.Error.Reasons = e.Reasons
		writeJSON(w, http.StatusConflict, resp)
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}
