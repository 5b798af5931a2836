package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/quizora/quizora-backend/internal/attempt"
	"github.com/quizora/quizora-backend/internal/middleware"
	"github.com/quizora/quizora-backend/internal/model"
	"github.com/quizora/quizora-backend/internal/service"
	ws "github.com/quizora/quizora-backend/internal/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler hosts the live attempt runtime. Each accepted connection gets its
// own attempt.Session driving the answer store, debounced persistence, the
// countdown and the violation monitor; Redis and PostgreSQL sit behind it via
// the attempt service.
type WSHandler struct {
	quizService    *service.QuizService
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(quizService *service.QuizService, attemptService *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		quizService:    quizService,
		attemptService: attemptService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// sessionBackend bridges one connection's attempt.Session to the attempt
// service: saves, violation reports and the final submit all target the same
// quiz-student pair.
type sessionBackend struct {
	svc       *service.AttemptService
	quizID    uuid.UUID
	studentID int
}

func (b *sessionBackend) SaveAnswer(ctx context.Context, questionID uuid.UUID, ans *model.Answer) error {
	return b.svc.SaveAnswer(ctx, b.quizID, b.studentID, questionID, ans)
}

func (b *sessionBackend) ReportViolation(ctx context.Context, count int, kind model.ViolationKind, detail string) error {
	return b.svc.RecordViolation(ctx, b.quizID, b.studentID, count, kind, detail)
}

func (b *sessionBackend) SubmitAttempt(ctx context.Context) error {
	return b.svc.Submit(ctx, b.quizID, b.studentID)
}

// AttemptStream godoc
// WS /ws/v1/student/quizzes/:quiz_id/attempt
// Upgrades to WebSocket and runs the attempt session until submission or
// disconnect.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	quizID, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quiz ID"})
		return
	}
	studentID := claims.UserID

	rawConn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewConn(rawConn)
	defer conn.Close()

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("quiz_id", quizID.String()).
		Logger()

	ctx := c.Request.Context()

	// The attempt must exist and still be in progress.
	att, err := h.attemptService.VerifyActiveAttempt(ctx, quizID, studentID)
	if err != nil {
		conn.WriteError("no active attempt for this quiz")
		return
	}

	state, err := h.attemptService.GetState(ctx, quizID, studentID)
	if err != nil {
		wsLog.Error().Err(err).Msg("Load attempt state failed")
		conn.WriteError("failed to load attempt state")
		return
	}

	paper, err := h.quizService.GetPaper(ctx, quizID)
	if err != nil {
		wsLog.Error().Err(err).Msg("Load paper failed")
		conn.WriteError("failed to load quiz paper")
		return
	}

	saved := make([]model.Answer, 0, len(state.SavedAnswers))
	for _, body := range state.SavedAnswers {
		var ans model.Answer
		if err := json.Unmarshal(body, &ans); err != nil {
			wsLog.Warn().Err(err).Msg("Skipping unreadable saved answer")
			continue
		}
		saved = append(saved, ans)
	}

	backend := &sessionBackend{svc: h.attemptService, quizID: quizID, studentID: studentID}

	session := attempt.NewSession(attempt.Params{
		AttemptID:      att.ID,
		Config:         paper.Config,
		Deadline:       state.Deadline,
		Questions:      paper.Questions,
		SavedAnswers:   saved,
		ViolationCount: state.ViolationCount,
		Saver:          backend,
		Reporter:       backend,
		Submitter:      backend,
		Hooks: attempt.Hooks{
			OnTick: func(remaining int64) {
				conn.WriteTyped(ws.TimeResponse{Event: ws.EventTime, RemainingSeconds: remaining})
			},
			OnExpired: func() {
				conn.WriteTyped(ws.ExpiredResponse{Event: ws.EventExpired})
			},
			OnAutoSubmitted: func(err error) {
				if err != nil {
					conn.WriteError("auto-submit failed")
					return
				}
				conn.WriteTyped(ws.SubmittedResponse{Event: ws.EventSubmitted, Auto: true})
				conn.Close()
			},
			OnSaveError: func(questionID uuid.UUID, err error) {
				wsLog.Warn().Err(err).Str("question_id", questionID.String()).Msg("Save failed")
			},
		},
		Log: wsLog,
	})
	defer session.Close()

	questions := session.Activate()
	conn.WriteTyped(ws.StateResponse{
		Event:            ws.EventState,
		Questions:        questions,
		Answers:          state.SavedAnswers,
		ViolationCount:   session.ViolationCount(),
		RemainingSeconds: session.Remaining(),
		Position:         session.Current(),
		SuppressSelect:   paper.Config.SuppressSelection,
	})

	wsLog.Info().Msg("Student connected")

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			conn.WriteError("malformed message")
			continue
		}

		switch envelope.Action {
		case ws.ActionAnswer:
			h.handleAnswer(conn, session, data)
		case ws.ActionClearAnswer:
			h.handleClearAnswer(conn, session, data)
		case ws.ActionToggleMark:
			h.handleToggleMark(conn, session, data)
		case ws.ActionNavigate:
			h.handleNavigate(conn, session, data)
		case ws.ActionViolation:
			h.handleViolation(conn, session, data)
		case ws.ActionSummary:
			conn.WriteTyped(ws.SummaryResponse{Event: ws.EventSummary, Summary: session.Summary()})
		case ws.ActionSubmit:
			if h.handleSubmit(conn, wsLog, session) {
				return
			}
		case ws.ActionPing:
			conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(envelope.Action)).Msg("Unknown action")
			conn.WriteError("unknown action: " + string(envelope.Action))
		}
	}
}

func parseQuestionID(conn *ws.Conn, raw string) (uuid.UUID, bool) {
	qid, err := uuid.Parse(raw)
	if err != nil {
		conn.WriteError("invalid question_id format")
		return uuid.Nil, false
	}
	return qid, true
}

func (h *WSHandler) handleAnswer(conn *ws.Conn, session *attempt.Session, data []byte) {
	var req ws.AnswerRequest
	if err := json.Unmarshal(data, &req); err != nil {
		conn.WriteError("malformed answer payload")
		return
	}
	qid, ok := parseQuestionID(conn, req.QuestionID)
	if !ok {
		return
	}

	ans, err := session.SetAnswer(context.Background(), qid, req.Update)
	if err != nil {
		conn.WriteError(err.Error())
		return
	}
	conn.WriteTyped(ws.SavedResponse{
		Event:      ws.EventSaved,
		QuestionID: req.QuestionID,
		Status:     ans.Status(),
		Marked:     ans.MarkedForLater,
	})
}

func (h *WSHandler) handleClearAnswer(conn *ws.Conn, session *attempt.Session, data []byte) {
	var req ws.ClearAnswerRequest
	if err := json.Unmarshal(data, &req); err != nil {
		conn.WriteError("malformed clear payload")
		return
	}
	qid, ok := parseQuestionID(conn, req.QuestionID)
	if !ok {
		return
	}

	if err := session.ClearAnswer(context.Background(), qid); err != nil {
		conn.WriteError(err.Error())
		return
	}
	conn.WriteTyped(ws.ClearedResponse{Event: ws.EventCleared, QuestionID: req.QuestionID})
}

func (h *WSHandler) handleToggleMark(conn *ws.Conn, session *attempt.Session, data []byte) {
	var req ws.ToggleMarkRequest
	if err := json.Unmarshal(data, &req); err != nil {
		conn.WriteError("malformed mark payload")
		return
	}
	qid, ok := parseQuestionID(conn, req.QuestionID)
	if !ok {
		return
	}

	ans, err := session.ToggleMark(context.Background(), qid)
	if err != nil {
		conn.WriteError(err.Error())
		return
	}
	conn.WriteTyped(ws.SavedResponse{
		Event:      ws.EventSaved,
		QuestionID: req.QuestionID,
		Status:     ans.Status(),
		Marked:     ans.MarkedForLater,
	})
}

func (h *WSHandler) handleNavigate(conn *ws.Conn, session *attempt.Session, data []byte) {
	var req ws.NavigateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		conn.WriteError("malformed navigate payload")
		return
	}

	var pos attempt.Position
	var err error
	switch req.Move {
	case "next":
		pos, err = session.Next()
	case "previous":
		pos, err = session.Previous()
	case "jump":
		pos, err = session.JumpTo(req.Index)
	default:
		conn.WriteError("unknown move: " + req.Move)
		return
	}
	if err != nil {
		conn.WriteError(err.Error())
		return
	}
	conn.WriteTyped(ws.NavigatedResponse{Event: ws.EventNavigated, Position: pos})
}

func (h *WSHandler) handleViolation(conn *ws.Conn, session *attempt.Session, data []byte) {
	var req ws.ViolationRequest
	if err := json.Unmarshal(data, &req); err != nil {
		conn.WriteError("malformed violation payload")
		return
	}

	decision, err := session.ReportSignal(context.Background(), req.Signal)
	if err != nil {
		conn.WriteError(err.Error())
		return
	}
	conn.WriteTyped(ws.ViolationRecordedResponse{Event: ws.EventViolationRecorded, Decision: decision})
}

// handleSubmit returns true when the attempt reached its terminal state and
// the connection should close.
func (h *WSHandler) handleSubmit(conn *ws.Conn, wsLog zerolog.Logger, session *attempt.Session) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := session.Submit(ctx); err != nil {
		wsLog.Warn().Err(err).Msg("Submit failed")
		conn.WriteError(err.Error())
		return false
	}

	conn.WriteTyped(ws.SubmittedResponse{Event: ws.EventSubmitted, Auto: false})
	wsLog.Info().Msg("Attempt submitted")
	return true
}
