package websocket

import (
	"encoding/json"

	"github.com/quizora/quizora-backend/internal/attempt"
	"github.com/quizora/quizora-backend/internal/model"
	"github.com/quizora/quizora-backend/internal/proctor"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer      Action = "answer"
	ActionClearAnswer Action = "clear_answer"
	ActionToggleMark  Action = "toggle_mark"
	ActionNavigate    Action = "navigate"
	ActionViolation   Action = "violation"
	ActionSummary     Action = "summary"
	ActionSubmit      Action = "submit"
	ActionPing        Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AnswerRequest merges a partial answer update for one question.
type AnswerRequest struct {
	Action     Action             `json:"action"`
	QuestionID string             `json:"question_id"`
	Update     model.AnswerUpdate `json:"update"`
}

// ClearAnswerRequest removes the answer for one question entirely.
type ClearAnswerRequest struct {
	Action     Action `json:"action"`
	QuestionID string `json:"question_id"`
}

// ToggleMarkRequest flips mark-for-later on one question.
type ToggleMarkRequest struct {
	Action     Action `json:"action"`
	QuestionID string `json:"question_id"`
}

// NavigateRequest moves the attempt position. Move is "next", "previous"
// or "jump"; Index applies to jump only.
type NavigateRequest struct {
	Action Action `json:"action"`
	Move   string `json:"move"`
	Index  int    `json:"index"`
}

// ViolationRequest reports a raw proctoring signal.
type ViolationRequest struct {
	Action Action         `json:"action"`
	Signal proctor.Signal `json:"signal"`
}

// SummaryRequest asks for the answered/marked/unanswered counts.
type SummaryRequest struct {
	Action Action `json:"action"`
}

// SubmitRequest finishes the attempt.
type SubmitRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState             Event = "state"
	EventSaved             Event = "saved"
	EventCleared           Event = "cleared"
	EventNavigated         Event = "navigated"
	EventViolationRecorded Event = "violation_recorded"
	EventTime              Event = "time"
	EventExpired           Event = "expired"
	EventSummary           Event = "summary"
	EventSubmitted         Event = "submitted"
	EventPong              Event = "pong"
	EventError             Event = "error"
)

// StateResponse is pushed once after the connection activates: the shuffled
// paper, restored answers and the countdown baseline.
type StateResponse struct {
	Event            Event                      `json:"event"`
	Questions        []model.QuestionForStudent `json:"questions"`
	Answers          map[string]json.RawMessage `json:"answers"`
	ViolationCount   int                        `json:"violation_count"`
	RemainingSeconds int64                      `json:"remaining_seconds"`
	Position         attempt.Position           `json:"position"`
	SuppressSelect   bool                       `json:"suppress_select"`
}

// SavedResponse acknowledges a stored answer with its derived status.
type SavedResponse struct {
	Event      Event              `json:"event"`
	QuestionID string             `json:"question_id"`
	Status     model.AnswerStatus `json:"status"`
	Marked     bool               `json:"marked"`
}

// ClearedResponse acknowledges a removed answer.
type ClearedResponse struct {
	Event      Event  `json:"event"`
	QuestionID string `json:"question_id"`
}

// NavigatedResponse carries the position after a movement request, whether
// or not the move was permitted.
type NavigatedResponse struct {
	Event    Event            `json:"event"`
	Position attempt.Position `json:"position"`
}

// ViolationRecordedResponse carries the monitor's verdict on a signal.
type ViolationRecordedResponse struct {
	Event    Event            `json:"event"`
	Decision proctor.Decision `json:"decision"`
}

// TimeResponse is the 1 Hz countdown tick.
type TimeResponse struct {
	Event            Event `json:"event"`
	RemainingSeconds int64 `json:"remaining_seconds"`
}

// ExpiredResponse signals that the deadline has passed. When auto-submit is
// enabled a SubmittedResponse follows.
type ExpiredResponse struct {
	Event Event `json:"event"`
}

// SummaryResponse carries the palette counts for the submit confirmation.
type SummaryResponse struct {
	Event   Event                `json:"event"`
	Summary model.AttemptSummary `json:"summary"`
}

// SubmittedResponse confirms the attempt reached its terminal state.
type SubmittedResponse struct {
	Event Event `json:"event"`
	Auto  bool  `json:"auto"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
