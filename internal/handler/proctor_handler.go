package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quizora/quizora-backend/internal/response"
	"github.com/quizora/quizora-backend/internal/service"
)

// ProctorHandler handles proctor quiz-administration endpoints.
type ProctorHandler struct {
	quizService *service.QuizService
	authService *service.AuthService
}

// NewProctorHandler creates a new ProctorHandler.
func NewProctorHandler(quizService *service.QuizService, authService *service.AuthService) *ProctorHandler {
	return &ProctorHandler{
		quizService: quizService,
		authService: authService,
	}
}

// ListQuizzes godoc
// GET /api/v1/proctor/quizzes
func (h *ProctorHandler) ListQuizzes(c *gin.Context) {
	quizzes, err := h.quizService.ListPublished(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"quizzes": quizzes})
}

// PublishQuiz godoc
// POST /api/v1/proctor/quizzes/:quiz_id/publish
// Publishes a draft quiz and warms its Redis paper cache.
func (h *ProctorHandler) PublishQuiz(c *gin.Context) {
	quizID, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.quizService.Publish(c.Request.Context(), quizID); err != nil {
		if errors.Is(err, service.ErrNoQuestions) {
			response.Fail(c, http.StatusConflict, response.ErrNoQuestions)
			return
		}
		response.Fail(c, http.StatusConflict, response.ErrConflict)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// ResetStudentSession godoc
// POST /api/v1/proctor/students/:student_id/reset-session
// Clears a student's single-device login session so they can sign in again.
func (h *ProctorHandler) ResetStudentSession(c *gin.Context) {
	studentID, err := strconv.Atoi(c.Param("student_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.authService.ResetStudentSession(c.Request.Context(), studentID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}
