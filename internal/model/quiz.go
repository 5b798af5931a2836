package model

import (
	"time"

	"github.com/google/uuid"
)

// QuizStatus enumerates the possible states of a quiz.
type QuizStatus string

const (
	QuizStatusDraft      QuizStatus = "DRAFT"
	QuizStatusPublished  QuizStatus = "PUBLISHED"
	QuizStatusInProgress QuizStatus = "IN_PROGRESS"
	QuizStatusCompleted  QuizStatus = "COMPLETED"
	QuizStatusArchived   QuizStatus = "ARCHIVED"
)

// QuizConfig is the immutable policy bundle governing a student's attempt.
type QuizConfig struct {
	ShuffleQuestions bool `json:"shuffle_questions"`
	ShuffleOptions   bool `json:"shuffle_options"`
	// LinearNavigation locks movement to the natural next step only.
	LinearNavigation    bool `json:"linear_navigation"`
	AutoSubmitOnTimeout bool `json:"auto_submit_on_timeout"`
	RequireFullscreen   bool `json:"require_fullscreen"`
	DetectTabSwitch     bool `json:"detect_tab_switch"`
	BlockClipboard      bool `json:"block_clipboard"`
	BlockShortcuts      bool `json:"block_shortcuts"`
	SuppressSelection   bool `json:"suppress_selection"`
	// ViolationLimit is informational: reported to the student and to
	// server-side enforcement, never an in-browser hard stop. 0 = no limit.
	ViolationLimit int `json:"violation_limit"`
}

// Quiz represents a quiz entity.
type Quiz struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	ScheduledStart  *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd    *time.Time `json:"scheduled_end,omitempty"`
	DurationMinutes int        `json:"duration_minutes"`
	EntryToken      string     `json:"entry_token,omitempty"`
	Config          QuizConfig `json:"config"`
	QuestionCount   int        `json:"question_count"`
	Status          QuizStatus `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// QuizPaper is the Redis-cached question payload sent to students, in
// authored order. Per-attempt shuffling is applied at read time.
type QuizPaper struct {
	QuizID    uuid.UUID            `json:"quiz_id"`
	Title     string               `json:"title"`
	Duration  int                  `json:"duration_minutes"`
	Config    QuizConfig           `json:"config"`
	Questions []QuestionForStudent `json:"questions"`
}
