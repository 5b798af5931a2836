package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates attempt states as persisted.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusSubmitted  AttemptStatus = "SUBMITTED"
)

// Attempt represents a student's single timed run of a quiz. Mutated
// throughout the session; immutable once submitted.
type Attempt struct {
	ID             uuid.UUID     `json:"id"`
	QuizID         uuid.UUID     `json:"quiz_id"`
	StudentID      int           `json:"student_id"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     *time.Time    `json:"finished_at,omitempty"`
	Status         AttemptStatus `json:"status"`
	ViolationCount int           `json:"violation_count"`
	FinalScore     *float64      `json:"final_score,omitempty"`
}

// JoinQuizRequest is the payload for a student joining a quiz.
type JoinQuizRequest struct {
	EntryToken string `json:"entry_token" binding:"required,min=4,max=20"`
}

// AttemptState is what a reconnecting client needs to resume: saved answers,
// the violation counter and the remaining time recomputed from the absolute
// deadline.
type AttemptState struct {
	QuizID           uuid.UUID                  `json:"quiz_id"`
	StudentID        int                        `json:"student_id"`
	AttemptID        uuid.UUID                  `json:"attempt_id"`
	SavedAnswers     map[string]json.RawMessage `json:"saved_answers"`
	ViolationCount   int                        `json:"violation_count"`
	RemainingSeconds int64                      `json:"remaining_seconds"`
	Deadline         time.Time                  `json:"deadline"`
}

// AttemptSummary is the confirmation step shown before manual submission.
type AttemptSummary struct {
	Answered   int `json:"answered"`
	Marked     int `json:"marked"`
	Unanswered int `json:"unanswered"`
	Total      int `json:"total"`
}
