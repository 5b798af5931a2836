package model

import (
	"time"

	"github.com/google/uuid"
)

// ViolationKind classifies a proctoring-policy breach.
type ViolationKind string

const (
	ViolationTabSwitch      ViolationKind = "TAB_SWITCH"
	ViolationFullscreenExit ViolationKind = "FULLSCREEN_EXIT"
	ViolationCopyAttempt    ViolationKind = "COPY_ATTEMPT"
	ViolationPasteAttempt   ViolationKind = "PASTE_ATTEMPT"
	ViolationShortcut       ViolationKind = "KEYBOARD_SHORTCUT"
	ViolationPrintScreen    ViolationKind = "PRINT_SCREEN"
)

// Label returns the human-readable classification reported to students.
func (k ViolationKind) Label() string {
	switch k {
	case ViolationTabSwitch:
		return "tab switch"
	case ViolationFullscreenExit:
		return "fullscreen exit"
	case ViolationCopyAttempt:
		return "copy attempt"
	case ViolationPasteAttempt:
		return "paste attempt"
	case ViolationShortcut:
		return "blocked keyboard shortcut"
	case ViolationPrintScreen:
		return "print screen"
	default:
		return "proctoring violation"
	}
}

// Violation is one append-only proctoring event. Count is the attempt's
// violation counter after this event; it never decreases.
type Violation struct {
	QuizID     uuid.UUID     `json:"quiz_id"`
	StudentID  int           `json:"student_id"`
	Count      int           `json:"count"`
	Kind       ViolationKind `json:"kind"`
	Detail     string        `json:"detail,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}
