package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AnswerStatus is the derived palette status of a question.
type AnswerStatus string

const (
	StatusUnanswered AnswerStatus = "unanswered"
	StatusAnswered   AnswerStatus = "answered"
	StatusMarked     AnswerStatus = "marked"
)

// Answer is the student's current state for one question: a variant keyed by
// question type, plus the mark-for-later flag. Exactly one Answer exists per
// question id per attempt.
type Answer struct {
	QuestionID        uuid.UUID           `json:"question_id"`
	Type              QuestionType        `json:"type"`
	SelectedOptionIDs []string            `json:"selected_option_ids,omitempty"`
	BoolValue         *bool               `json:"bool_value,omitempty"`
	Text              string              `json:"text,omitempty"`
	BlankValues       map[int]string      `json:"blank_values,omitempty"`
	MatchMap          map[string][]string `json:"match_map,omitempty"`
	FileRefs          []string            `json:"file_refs,omitempty"`
	MarkedForLater    bool                `json:"marked_for_later"`
	LastModified      time.Time           `json:"last_modified"`
}

// AnswerUpdate is a partial mutation. Nil fields are left untouched; map
// fields merge per key, with an empty value deleting the key.
type AnswerUpdate struct {
	SelectedOptionIDs []string            `json:"selected_option_ids,omitempty"`
	BoolValue         *bool               `json:"bool_value,omitempty"`
	Text              *string             `json:"text,omitempty"`
	BlankValues       map[int]string      `json:"blank_values,omitempty"`
	MatchMap          map[string][]string `json:"match_map,omitempty"`
	FileRefs          []string            `json:"file_refs,omitempty"`
	MarkedForLater    *bool               `json:"marked_for_later,omitempty"`
}

// Apply merges an update into the answer in place and stamps LastModified.
// MarkedForLater is preserved unless the update includes it.
func (a *Answer) Apply(upd AnswerUpdate, now time.Time) {
	if upd.SelectedOptionIDs != nil {
		a.SelectedOptionIDs = upd.SelectedOptionIDs
	}
	if upd.BoolValue != nil {
		a.BoolValue = upd.BoolValue
	}
	if upd.Text != nil {
		a.Text = *upd.Text
	}
	if upd.BlankValues != nil {
		if a.BlankValues == nil {
			a.BlankValues = make(map[int]string, len(upd.BlankValues))
		}
		for idx, v := range upd.BlankValues {
			if v == "" {
				delete(a.BlankValues, idx)
				continue
			}
			a.BlankValues[idx] = v
		}
	}
	if upd.MatchMap != nil {
		if a.MatchMap == nil {
			a.MatchMap = make(map[string][]string, len(upd.MatchMap))
		}
		for left, rights := range upd.MatchMap {
			if len(rights) == 0 {
				delete(a.MatchMap, left)
				continue
			}
			a.MatchMap[left] = rights
		}
	}
	if upd.FileRefs != nil {
		a.FileRefs = upd.FileRefs
	}
	if upd.MarkedForLater != nil {
		a.MarkedForLater = *upd.MarkedForLater
	}
	a.LastModified = now
}

// IsEmpty reports whether the type-specific payload carries no content.
// The mark-for-later flag is not payload.
func (a *Answer) IsEmpty() bool {
	switch a.Type {
	case QuestionTypeSingleChoice, QuestionTypeMultiChoice:
		return len(a.SelectedOptionIDs) == 0
	case QuestionTypeTrueFalse:
		return a.BoolValue == nil
	case QuestionTypeFillBlanks:
		return len(a.BlankValues) == 0
	case QuestionTypeMatchPairs:
		return len(a.MatchMap) == 0
	case QuestionTypeDescriptive, QuestionTypeCoding:
		return strings.TrimSpace(a.Text) == ""
	case QuestionTypeFileUpload:
		return len(a.FileRefs) == 0
	default:
		return true
	}
}

// Status derives the palette status. Marked takes priority over answered.
func (a *Answer) Status() AnswerStatus {
	if a.MarkedForLater {
		return StatusMarked
	}
	if a.IsEmpty() {
		return StatusUnanswered
	}
	return StatusAnswered
}
