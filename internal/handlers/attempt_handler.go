package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"eduportal/internal/service"
)

// AttemptHandler serves the quiz attempt lifecycle endpoints. Every
// route requires a student sub-session; the student ID always comes
// from the session, never from the request body.
type AttemptHandler struct {
	attempts *service.AttemptService
	log      *zap.Logger
}

// NewAttemptHandler creates a new attempt handler
func NewAttemptHandler(attempts *service.AttemptService, log *zap.Logger) *AttemptHandler {
	return &AttemptHandler{attempts: attempts, log: log}
}

type startAttemptRequest struct {
	QuizID int64 `json:"quizId"`
}

type answerRequest struct {
	QuestionID int64  `json:"questionId"`
	Value      string `json:"value"`
}

type completeRequest struct {
	Score int `json:"score"`
}

// Start handles POST /attempts/start
func (h *AttemptHandler) Start(w http.ResponseWriter, r *http.Request) {
	student := studentFrom(r)

	var req startAttemptRequest
	if err := decodeJSON(r, &req); err != nil || req.QuizID <= 0 {
		writeError(w, h.log, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	attempt, err := h.attempts.Start(student.ID, req.QuizID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuizNotFound):
			writeError(w, h.log, http.StatusNotFound, "quiz not found", nil)
		case errors.Is(err, service.ErrAlreadyInProgress):
			writeError(w, h.log, http.StatusConflict, "an attempt for this quiz is already in progress", nil)
		case errors.Is(err, service.ErrStoreUnavailable):
			writeError(w, h.log, http.StatusServiceUnavailable, "attempt store unavailable", err)
		default:
			writeError(w, h.log, http.StatusInternalServerError, "failed to start attempt", err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, attempt)
}

// SubmitAnswer handles POST /attempts/{id}/answers
func (h *AttemptHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	student := studentFrom(r)
	attemptID, err := pathID(r)
	if err != nil {
		writeError(w, h.log, http.StatusBadRequest, "invalid attempt id", nil)
		return
	}

	var req answerRequest
	if err := decodeJSON(r, &req); err != nil || req.QuestionID <= 0 {
		writeError(w, h.log, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	answer, err := h.attempts.RecordAnswer(student.ID, attemptID, req.QuestionID, req.Value)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAttemptNotFound):
			writeError(w, h.log, http.StatusNotFound, "attempt not found", nil)
		case errors.Is(err, service.ErrInvalidState):
			writeError(w, h.log, http.StatusConflict, "attempt is no longer in progress", nil)
		case errors.Is(err, service.ErrQuestionNotInQuiz):
			writeError(w, h.log, http.StatusBadRequest, "question does not belong to this quiz", nil)
		case errors.Is(err, service.ErrStoreUnavailable):
			writeError(w, h.log, http.StatusServiceUnavailable, "attempt store unavailable", err)
		default:
			writeError(w, h.log, http.StatusInternalServerError, "failed to record answer", err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, answer)
}

// Complete handles POST /attempts/{id}/complete
func (h *AttemptHandler) Complete(w http.ResponseWriter, r *http.Request) {
	student := studentFrom(r)
	attemptID, err := pathID(r)
	if err != nil {
		writeError(w, h.log, http.StatusBadRequest, "invalid attempt id", nil)
		return
	}

	var req completeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	attempt, err := h.attempts.Complete(student.ID, attemptID, req.Score)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAttemptNotFound):
			writeError(w, h.log, http.StatusNotFound, "attempt not found", nil)
		case errors.Is(err, service.ErrInvalidState):
			writeError(w, h.log, http.StatusConflict, "attempt is no longer in progress", nil)
		case errors.Is(err, service.ErrNoAnswersRecorded):
			writeError(w, h.log, http.StatusUnprocessableEntity, "attempt has no recorded answers", nil)
		case errors.Is(err, service.ErrStoreUnavailable):
			writeError(w, h.log, http.StatusServiceUnavailable, "attempt store unavailable", err)
		default:
			writeError(w, h.log, http.StatusInternalServerError, "failed to complete attempt", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

// Get handles GET /attempts/{id}
func (h *AttemptHandler) Get(w http.ResponseWriter, r *http.Request) {
	student := studentFrom(r)
	attemptID, err := pathID(r)
	if err != nil {
		writeError(w, h.log, http.StatusBadRequest, "invalid attempt id", nil)
		return
	}

	attempt, err := h.attempts.Get(student.ID, attemptID)
	if err != nil {
		if errors.Is(err, service.ErrAttemptNotFound) {
			writeError(w, h.log, http.StatusNotFound, "attempt not found", nil)
			return
		}
		writeError(w, h.log, http.StatusInternalServerError, "failed to load attempt", err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, strconv.ErrSyntax
	}
	return id, nil
}
