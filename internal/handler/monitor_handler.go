package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quizora/quizora-backend/internal/config"
	"github.com/quizora/quizora-backend/internal/response"
	"github.com/quizora/quizora-backend/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // prevent slow queries from blocking the SSE loop
)

// MonitorHandler streams live quiz progress to proctors over SSE: an initial
// snapshot, pass-through of the Redis monitor channel, and periodic count
// refreshes.
type MonitorHandler struct {
	rdb            *redis.Client
	quizService    *service.QuizService
	monitorService *service.MonitorService
	log            zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(
	rdb *redis.Client,
	quizService *service.QuizService,
	monitorService *service.MonitorService,
	log zerolog.Logger,
) *MonitorHandler {
	return &MonitorHandler{
		rdb:            rdb,
		quizService:    quizService,
		monitorService: monitorService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorQuizSSE godoc
// GET /api/v1/proctor/quizzes/:quiz_id/monitor
func (h *MonitorHandler) MonitorQuizSSE(c *gin.Context) {
	quizID, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	quiz, err := h.quizService.GetByID(c.Request.Context(), quizID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")

	h.sendSnapshot(c, reqCtx, quizID, quiz.Title, quiz.DurationMinutes, quiz.QuestionCount)

	channelName := config.CacheKey.QuizMonitorChannel(quizID.String())
	pubsub := h.rdb.Subscribe(reqCtx, channelName)
	defer pubsub.Close()

	ch := pubsub.Channel()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	// Skip empty refresh queries until a live event proves students exist.
	hasStudents := false

	h.log.Info().Str("quiz_id", quizID.String()).Msg("Proctor attached to live monitor SSE")

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("quiz_id", quizID.String()).Msg("Proctor disconnected from live monitor SSE")
			return

		case msg := <-ch:
			// Forward the raw JSON directly, no deserialization needed.
			c.Writer.Write([]byte("data: "))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()

			hasStudents = true

		case <-refreshTicker.C:
			if !hasStudents {
				continue
			}
			h.sendRefresh(c, reqCtx, quizID)

		case <-keepAliveTicker.C:
			c.Writer.Write([]byte("data: "))
			c.Writer.Write(pingPayload)
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

// sendSnapshot gathers data and writes the first SSE event.
func (h *MonitorHandler) sendSnapshot(c *gin.Context, ctx context.Context, quizID uuid.UUID, title string, duration, totalQuestions int) {
	fetchCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	students := make([]map[string]interface{}, 0)
	totalViolations := 0

	if progress, err := h.monitorService.GetStudentProgress(fetchCtx, quizID); err == nil {
		totalViolations = progress.TotalViolations
		for sid, answered := range progress.AnsweredCounts {
			students = append(students, map[string]interface{}{
				"student_id":      sid,
				"answered_count":  answered,
				"violation_count": progress.ViolationCounts[sid],
				"total_questions": totalQuestions,
			})
		}
	}

	c.SSEvent("message", map[string]interface{}{
		"type": "snapshot",
		"data": map[string]interface{}{
			"quiz": map[string]interface{}{
				"id":              quizID.String(),
				"title":           title,
				"duration":        duration,
				"total_questions": totalQuestions,
			},
			"stats": map[string]interface{}{
				"total_violations": totalViolations,
			},
			"students": students,
		},
	})
	c.Writer.Flush()
}

// sendRefresh polls DB+Redis for current progress and sends a compact refresh event.
func (h *MonitorHandler) sendRefresh(c *gin.Context, parentCtx context.Context, quizID uuid.UUID) {
	ctx, cancel := context.WithTimeout(parentCtx, refreshTimeout)
	defer cancel()

	progress, err := h.monitorService.GetStudentProgress(ctx, quizID)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to fetch student progress for refresh")
		return
	}

	progressData := make([]map[string]interface{}, 0, len(progress.AnsweredCounts)+len(progress.ViolationCounts))

	for sid, answered := range progress.AnsweredCounts {
		progressData = append(progressData, map[string]interface{}{
			"student_id":      sid,
			"answered_count":  answered,
			"violation_count": progress.ViolationCounts[sid], // 0 if missing
		})
		delete(progress.ViolationCounts, sid) // mark as handled
	}

	// Remaining violation-only students (already submitted, not in-progress).
	for sid, violations := range progress.ViolationCounts {
		progressData = append(progressData, map[string]interface{}{
			"student_id":      sid,
			"answered_count":  int64(0),
			"violation_count": violations,
		})
	}

	c.SSEvent("message", map[string]interface{}{
		"type":             "refresh",
		"total_violations": progress.TotalViolations,
		"students":         progressData,
	})
	c.Writer.Flush()
}
