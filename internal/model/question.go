package model

import (
	"github.com/google/uuid"
)

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionTypeSingleChoice QuestionType = "SINGLE_CHOICE"
	QuestionTypeMultiChoice  QuestionType = "MULTI_CHOICE"
	QuestionTypeTrueFalse    QuestionType = "TRUE_FALSE"
	QuestionTypeFillBlanks   QuestionType = "FILL_BLANKS"
	QuestionTypeMatchPairs   QuestionType = "MATCH_PAIRS"
	QuestionTypeDescriptive  QuestionType = "DESCRIPTIVE"
	QuestionTypeCoding       QuestionType = "CODING"
	QuestionTypeFileUpload   QuestionType = "FILE_UPLOAD"
)

// Option is a selectable choice of a single/multi-choice or true/false question.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// MatchPair is one left/right pairing of a match-pairs question.
// The correct pairing never leaves the server.
type MatchPair struct {
	LeftID    string `json:"left_id"`
	LeftText  string `json:"left_text"`
	RightID   string `json:"right_id"`
	RightText string `json:"right_text"`
}

// MatchSide is one side of a match-pairs question as shown to the student.
type MatchSide struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question represents a single quiz question. Immutable for the duration of
// an attempt; per-attempt presentation order is a derived transformation.
type Question struct {
	ID            uuid.UUID    `json:"id"`
	QuizID        uuid.UUID    `json:"quiz_id"`
	Text          string       `json:"text"`
	Type          QuestionType `json:"type"`
	Options       []Option     `json:"options,omitempty"`
	BlankCount    int          `json:"blank_count,omitempty"`
	Pairs         []MatchPair  `json:"pairs,omitempty"`
	Marks         float64      `json:"marks"`
	NegativeMarks float64      `json:"negative_marks"`
	OrderNum      int          `json:"order_num"`
}

// QuestionForStudent is a question stripped of grading data, with match-pairs
// split into independent sides so position reveals no correlation.
type QuestionForStudent struct {
	ID            uuid.UUID    `json:"id"`
	Text          string       `json:"text"`
	Type          QuestionType `json:"type"`
	Options       []Option     `json:"options,omitempty"`
	BlankCount    int          `json:"blank_count,omitempty"`
	MatchLeft     []MatchSide  `json:"match_left,omitempty"`
	MatchRight    []MatchSide  `json:"match_right,omitempty"`
	Marks         float64      `json:"marks"`
	NegativeMarks float64      `json:"negative_marks"`
	OrderNum      int          `json:"order_num"`
}

// ForStudent converts a Question to its student-facing shape.
func (q *Question) ForStudent() QuestionForStudent {
	out := QuestionForStudent{
		ID:            q.ID,
		Text:          q.Text,
		Type:          q.Type,
		Options:       q.Options,
		BlankCount:    q.BlankCount,
		Marks:         q.Marks,
		NegativeMarks: q.NegativeMarks,
		OrderNum:      q.OrderNum,
	}
	if q.Type == QuestionTypeMatchPairs {
		out.MatchLeft = make([]MatchSide, 0, len(q.Pairs))
		out.MatchRight = make([]MatchSide, 0, len(q.Pairs))
		for _, p := range q.Pairs {
			out.MatchLeft = append(out.MatchLeft, MatchSide{ID: p.LeftID, Text: p.LeftText})
			out.MatchRight = append(out.MatchRight, MatchSide{ID: p.RightID, Text: p.RightText})
		}
	}
	return out
}
