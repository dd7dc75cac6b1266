package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"learnsphere-backend/internal/middleware"
	"learnsphere-backend/internal/models"
	"learnsphere-backend/internal/services"
)

type AttemptHandler struct {
	attempts  *services.AttemptManager
	reclaimer *services.Reclaimer
	validate  *validator.Validate
}

func NewAttemptHandler(attempts *services.AttemptManager, reclaimer *services.Reclaimer) *AttemptHandler {
	return &AttemptHandler{
		attempts:  attempts,
		reclaimer: reclaimer,
		validate:  validator.New(),
	}
}

// Start begins or resumes the caller's attempt on a quiz.
func (h *AttemptHandler) Start(w http.ResponseWriter, r *http.Request) {
	quizID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid quiz ID", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	role := middleware.GetRole(r.Context())

	result, err := h.attempts.StartOrResume(r.Context(), quizID, userID, role)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.IsOngoing {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

// Submit grades and closes the caller's open attempt.
func (h *AttemptHandler) Submit(w http.ResponseWriter, r *http.Request) {
	attemptID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid attempt ID", r))
		return
	}

	var req models.SubmitAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Malformed answer payload", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	result, err := h.attempts.Submit(r.Context(), attemptID, userID, req.Answers, time.Now().UTC())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Result returns the per-question breakdown of a submitted attempt.
func (h *AttemptHandler) Result(w http.ResponseWriter, r *http.Request) {
	attemptID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid attempt ID", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	result, err := h.attempts.GetResult(r.Context(), attemptID, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// SweepNow runs a reclamation sweep immediately and reports the count.
func (h *AttemptHandler) SweepNow(w http.ResponseWriter, r *http.Request) {
	reclaimed, err := h.reclaimer.Sweep(r.Context(), time.Now().UTC())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Sweep failed", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"reclaimed": reclaimed})
}
