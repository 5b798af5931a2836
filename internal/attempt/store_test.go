package attempt

import (
	"testing"

	"github.com/google/uuid"
	"github.com/quizora/quizora-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func questionSet() ([]model.QuestionForStudent, uuid.UUID, uuid.UUID, uuid.UUID) {
	mcq := uuid.New()
	essay := uuid.New()
	blanks := uuid.New()
	qs := []model.QuestionForStudent{
		{ID: mcq, Type: model.QuestionTypeSingleChoice, Options: []model.Option{{ID: "a"}, {ID: "b"}}},
		{ID: essay, Type: model.QuestionTypeDescriptive},
		{ID: blanks, Type: model.QuestionTypeFillBlanks, BlankCount: 2},
	}
	return qs, mcq, essay, blanks
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestSetCreatesLazilyAndMerges(t *testing.T) {
	qs, mcq, essay, _ := questionSet()
	s := NewStore(qs)

	_, found := s.Get(mcq)
	assert.False(t, found)

	ans, ok := s.Set(mcq, model.AnswerUpdate{SelectedOptionIDs: []string{"a"}})
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, ans.SelectedOptionIDs)
	assert.False(t, ans.LastModified.IsZero())

	// Partial update: text on another question leaves the first untouched.
	_, ok = s.Set(essay, model.AnswerUpdate{Text: strPtr("draft")})
	require.True(t, ok)

	got, found := s.Get(mcq)
	require.True(t, found)
	assert.Equal(t, []string{"a"}, got.SelectedOptionIDs)
}

func TestSetPreservesMarkUnlessIncluded(t *testing.T) {
	qs, mcq, _, _ := questionSet()
	s := NewStore(qs)

	s.Set(mcq, model.AnswerUpdate{SelectedOptionIDs: []string{"a"}})
	s.ToggleMark(mcq)

	ans, _ := s.Set(mcq, model.AnswerUpdate{SelectedOptionIDs: []string{"b"}})
	assert.True(t, ans.MarkedForLater, "mark must survive a payload-only update")

	ans, _ = s.Set(mcq, model.AnswerUpdate{MarkedForLater: boolPtr(false)})
	assert.False(t, ans.MarkedForLater)
}

func TestClearRemovesEntirely(t *testing.T) {
	qs, mcq, _, _ := questionSet()
	s := NewStore(qs)

	assert.False(t, s.Clear(mcq), "clearing an absent answer is a no-op")

	s.Set(mcq, model.AnswerUpdate{SelectedOptionIDs: []string{"a"}})
	assert.True(t, s.Clear(mcq))

	_, found := s.Get(mcq)
	assert.False(t, found)
	assert.Equal(t, model.StatusUnanswered, s.Status(mcq))
}

func TestStatusDerivation(t *testing.T) {
	qs, mcq, essay, blanks := questionSet()
	s := NewStore(qs)

	assert.Equal(t, model.StatusUnanswered, s.Status(mcq))

	s.Set(mcq, model.AnswerUpdate{SelectedOptionIDs: []string{"a"}})
	assert.Equal(t, model.StatusAnswered, s.Status(mcq))

	// Marked takes priority over answered.
	s.ToggleMark(mcq)
	assert.Equal(t, model.StatusMarked, s.Status(mcq))
	s.ToggleMark(mcq)
	assert.Equal(t, model.StatusAnswered, s.Status(mcq))

	// Blank text does not count as answered.
	s.Set(essay, model.AnswerUpdate{Text: strPtr("   ")})
	assert.Equal(t, model.StatusUnanswered, s.Status(essay))
	s.Set(essay, model.AnswerUpdate{Text: strPtr("real content")})
	assert.Equal(t, model.StatusAnswered, s.Status(essay))

	// A marked question with no payload is still marked.
	s.ToggleMark(blanks)
	assert.Equal(t, model.StatusMarked, s.Status(blanks))
}

func TestBlankMapMergesPerKey(t *testing.T) {
	qs, _, _, blanks := questionSet()
	s := NewStore(qs)

	s.Set(blanks, model.AnswerUpdate{BlankValues: map[int]string{0: "alpha"}})
	ans, _ := s.Set(blanks, model.AnswerUpdate{BlankValues: map[int]string{1: "beta"}})
	assert.Equal(t, map[int]string{0: "alpha", 1: "beta"}, ans.BlankValues)

	// Empty value deletes the key.
	ans, _ = s.Set(blanks, model.AnswerUpdate{BlankValues: map[int]string{0: ""}})
	assert.Equal(t, map[int]string{1: "beta"}, ans.BlankValues)
}

func TestSummaryCounts(t *testing.T) {
	qs, mcq, essay, blanks := questionSet()
	s := NewStore(qs)

	s.Set(mcq, model.AnswerUpdate{SelectedOptionIDs: []string{"a"}})
	s.ToggleMark(essay)
	_ = blanks // left unanswered

	sum := s.Summary()
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 1, sum.Answered)
	assert.Equal(t, 1, sum.Marked)
	assert.Equal(t, 1, sum.Unanswered)
}

func TestUnknownQuestionRejected(t *testing.T) {
	qs, _, _, _ := questionSet()
	s := NewStore(qs)

	_, ok := s.Set(uuid.New(), model.AnswerUpdate{Text: strPtr("x")})
	assert.False(t, ok)
	_, ok = s.ToggleMark(uuid.New())
	assert.False(t, ok)
}
