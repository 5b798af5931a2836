package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quizora/quizora-backend/internal/middleware"
	"github.com/quizora/quizora-backend/internal/model"
	"github.com/quizora/quizora-backend/internal/response"
	"github.com/quizora/quizora-backend/internal/service"
	"github.com/quizora/quizora-backend/internal/validator"
)

// StudentPortalHandler handles the student-facing quiz endpoints: the lobby,
// the join flow, the attempt paper and resumable state.
type StudentPortalHandler struct {
	quizService    *service.QuizService
	attemptService *service.AttemptService
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(quizService *service.QuizService, attemptService *service.AttemptService) *StudentPortalHandler {
	return &StudentPortalHandler{
		quizService:    quizService,
		attemptService: attemptService,
	}
}

// GetLobby godoc
// GET /api/v1/student/quizzes
// Lists quizzes currently open to students.
func (h *StudentPortalHandler) GetLobby(c *gin.Context) {
	quizzes, err := h.quizService.ListPublished(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	// Entry tokens never leave the server.
	lobby := make([]gin.H, 0, len(quizzes))
	for _, q := range quizzes {
		lobby = append(lobby, gin.H{
			"id":               q.ID,
			"title":            q.Title,
			"scheduled_start":  q.ScheduledStart,
			"scheduled_end":    q.ScheduledEnd,
			"duration_minutes": q.DurationMinutes,
			"status":           q.Status,
		})
	}

	response.Success(c, http.StatusOK, gin.H{"quizzes": lobby})
}

// JoinQuiz godoc
// POST /api/v1/student/quizzes/:quiz_id/join
// Validates the entry token and creates (or resumes) the attempt.
func (h *StudentPortalHandler) JoinQuiz(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	quizID, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.JoinQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attempt, err := h.attemptService.Join(c.Request.Context(), quizID, claims.UserID, req.EntryToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuizNotAvailable):
			response.Fail(c, http.StatusForbidden, response.ErrQuizNotAvailable)
		case errors.Is(err, service.ErrInvalidToken):
			response.Fail(c, http.StatusForbidden, response.ErrInvalidEntryToken)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// GetPaper godoc
// GET /api/v1/student/quizzes/:quiz_id/paper
// Returns the quiz paper with the attempt's deterministic shuffle applied.
func (h *StudentPortalHandler) GetPaper(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	quizID, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, err := h.attemptService.VerifyActiveAttempt(c.Request.Context(), quizID, claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrAttemptSubmitted) {
			response.Fail(c, http.StatusConflict, response.ErrAttemptSubmitted)
			return
		}
		response.Fail(c, http.StatusForbidden, response.ErrAttemptNotActive)
		return
	}

	paper, err := h.quizService.GetPaperForAttempt(c.Request.Context(), quizID, attempt.ID)
	if err != nil {
		if errors.Is(err, service.ErrQuizNotPublished) {
			response.Fail(c, http.StatusForbidden, response.ErrQuizNotPublished)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"paper": paper})
}

// GetAttemptState godoc
// GET /api/v1/student/quizzes/:quiz_id/state
// Returns the resumable attempt state: saved answers, the violation counter
// and remaining time recomputed from the absolute deadline.
func (h *StudentPortalHandler) GetAttemptState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	quizID, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if _, err := h.attemptService.VerifyActiveAttempt(c.Request.Context(), quizID, claims.UserID); err != nil {
		if errors.Is(err, service.ErrAttemptSubmitted) {
			response.Fail(c, http.StatusConflict, response.ErrAttemptSubmitted)
			return
		}
		response.Fail(c, http.StatusForbidden, response.ErrAttemptNotActive)
		return
	}

	state, err := h.attemptService.GetState(c.Request.Context(), quizID, claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"state": state})
}
