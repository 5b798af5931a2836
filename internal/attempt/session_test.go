package attempt

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quizora/quizora-backend/internal/model"
	"github.com/quizora/quizora-backend/internal/proctor"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubmitter struct {
	calls atomic.Int64
	err   error
}

func (f *fakeSubmitter) SubmitAttempt(context.Context) error {
	f.calls.Add(1)
	return f.err
}

type fakeReporter struct {
	reports atomic.Int64
}

func (f *fakeReporter) ReportViolation(context.Context, int, model.ViolationKind, string) error {
	f.reports.Add(1)
	return nil
}

func sessionParams(cfg model.QuizConfig, questions []model.QuestionForStudent) (Params, *fakeSaver, *fakeSubmitter) {
	saver := &fakeSaver{}
	submitter := &fakeSubmitter{}
	return Params{
		AttemptID: uuid.MustParse("9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d"),
		Config:    cfg,
		Deadline:  time.Now().Add(time.Hour),
		Questions: questions,
		Saver:     saver,
		Reporter:  &fakeReporter{},
		Submitter: submitter,
		Debounce:  40 * time.Millisecond,
		Log:       zerolog.Nop(),
	}, saver, submitter
}

func threeQuestions() []model.QuestionForStudent {
	return []model.QuestionForStudent{
		{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), Type: model.QuestionTypeTrueFalse, OrderNum: 0},
		{ID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), Type: model.QuestionTypeSingleChoice, OrderNum: 1,
			Options: []model.Option{{ID: "a"}, {ID: "b"}, {ID: "c"}}},
		{ID: uuid.MustParse("00000000-0000-0000-0000-000000000003"), Type: model.QuestionTypeDescriptive, OrderNum: 2},
	}
}

func TestPresentationIsReproducible(t *testing.T) {
	cfg := model.QuizConfig{ShuffleQuestions: true, ShuffleOptions: false}
	qs := threeQuestions()

	// Two independent runs with the same attempt id produce the same order.
	first := Presentation("A1", cfg, qs)
	second := Presentation("A1", cfg, qs)
	require.Equal(t, first, second)

	// Option order is untouched when option shuffling is off.
	for _, q := range first {
		if q.Type == model.QuestionTypeSingleChoice {
			assert.Equal(t, []model.Option{{ID: "a"}, {ID: "b"}, {ID: "c"}}, q.Options)
		}
	}

	// All three questions survive the permutation.
	seen := map[uuid.UUID]bool{}
	for _, q := range first {
		seen[q.ID] = true
	}
	assert.Len(t, seen, 3)
}

func TestPresentationShufflesMatchSidesIndependently(t *testing.T) {
	pairs := make([]model.MatchPair, 8)
	q := model.Question{ID: uuid.New(), Type: model.QuestionTypeMatchPairs}
	for i := range pairs {
		pairs[i] = model.MatchPair{
			LeftID: string(rune('a' + i)), LeftText: "L",
			RightID: string(rune('A' + i)), RightText: "R",
		}
	}
	q.Pairs = pairs
	fs := q.ForStudent()

	cfg := model.QuizConfig{ShuffleOptions: true}
	out := Presentation("A1", cfg, []model.QuestionForStudent{fs})
	require.Len(t, out, 1)

	// Same multiset on both sides, but the aligned ordering is broken.
	aligned := 0
	for i := range out[0].MatchLeft {
		if out[0].MatchLeft[i].ID == string(rune('a'+i)) && out[0].MatchRight[i].ID == string(rune('A'+i)) {
			aligned++
		}
	}
	assert.Less(t, aligned, len(pairs), "shuffling must not preserve full pair alignment")
}

func TestSessionLifecycle(t *testing.T) {
	p, saver, submitter := sessionParams(model.QuizConfig{}, threeQuestions())
	s := NewSession(p)
	defer s.Close()

	assert.Equal(t, StateLoading, s.State())

	// Mutations before activation are rejected.
	_, err := s.SetAnswer(context.Background(), p.Questions[0].ID, model.AnswerUpdate{BoolValue: boolPtr(true)})
	assert.ErrorIs(t, err, ErrNotActive)

	s.Activate()
	assert.Equal(t, StateActive, s.State())

	ans, err := s.SetAnswer(context.Background(), p.Questions[0].ID, model.AnswerUpdate{BoolValue: boolPtr(true)})
	require.NoError(t, err)
	assert.NotNil(t, ans.BoolValue)

	require.NoError(t, s.Submit(context.Background()))
	assert.Equal(t, StateSubmitted, s.State())
	assert.Equal(t, int64(1), submitter.calls.Load())

	// Terminal: no further mutations, no re-submit.
	_, err = s.SetAnswer(context.Background(), p.Questions[0].ID, model.AnswerUpdate{BoolValue: boolPtr(false)})
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.ErrorIs(t, s.Submit(context.Background()), ErrAlreadySubmitted)

	// True/false save is immediate class.
	assert.NotEmpty(t, saver.all())
}

func TestImmediateAndDebouncedFlow(t *testing.T) {
	// Student answers an MCQ (immediate) then edits a descriptive answer
	// three times within the debounce window: one save per MCQ edit, one
	// coalesced save carrying the final descriptive text.
	p, saver, _ := sessionParams(model.QuizConfig{}, threeQuestions())
	s := NewSession(p)
	defer s.Close()
	s.Activate()

	mcqID := p.Questions[1].ID
	essayID := p.Questions[2].ID

	_, err := s.SetAnswer(context.Background(), mcqID, model.AnswerUpdate{SelectedOptionIDs: []string{"b"}})
	require.NoError(t, err)

	for _, text := range []string{"f", "fir", "first draft"} {
		_, err = s.SetAnswer(context.Background(), essayID, model.AnswerUpdate{Text: strPtr(text)})
		require.NoError(t, err)
	}

	time.Sleep(150 * time.Millisecond)

	var mcqSaves, essaySaves []recordedSave
	for _, sv := range saver.all() {
		switch sv.questionID {
		case mcqID:
			mcqSaves = append(mcqSaves, sv)
		case essayID:
			essaySaves = append(essaySaves, sv)
		}
	}
	require.Len(t, mcqSaves, 1)
	assert.Equal(t, []string{"b"}, mcqSaves[0].answer.SelectedOptionIDs)
	require.Len(t, essaySaves, 1)
	assert.Equal(t, "first draft", essaySaves[0].answer.Text)
}

func TestSubmitFailureStaysRetryable(t *testing.T) {
	p, _, submitter := sessionParams(model.QuizConfig{}, threeQuestions())
	submitter.err = errors.New("network down")
	s := NewSession(p)
	defer s.Close()
	s.Activate()

	err := s.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateSubmitting, s.State())

	// No mutations while submitting.
	_, err = s.SetAnswer(context.Background(), p.Questions[0].ID, model.AnswerUpdate{BoolValue: boolPtr(true)})
	assert.ErrorIs(t, err, ErrAlreadySubmitted)

	// Retry succeeds once the network recovers.
	submitter.err = nil
	require.NoError(t, s.Submit(context.Background()))
	assert.Equal(t, StateSubmitted, s.State())
}

func TestDeadlinePassedRejectsMutations(t *testing.T) {
	p, _, _ := sessionParams(model.QuizConfig{}, threeQuestions())
	p.Deadline = time.Now().Add(50 * time.Millisecond)
	s := NewSession(p)
	defer s.Close()
	s.Activate()

	time.Sleep(80 * time.Millisecond)

	_, err := s.SetAnswer(context.Background(), p.Questions[0].ID, model.AnswerUpdate{BoolValue: boolPtr(true)})
	assert.ErrorIs(t, err, ErrDeadlinePassed)

	// Manual submission is still allowed (auto-submit was disabled).
	require.NoError(t, s.Submit(context.Background()))
}

func TestAutoSubmitOnExpiry(t *testing.T) {
	p, _, submitter := sessionParams(model.QuizConfig{AutoSubmitOnTimeout: true}, threeQuestions())
	p.Deadline = time.Now().Add(60 * time.Millisecond)

	var expired atomic.Int64
	var autoSubmitted atomic.Int64
	p.Hooks = Hooks{
		OnExpired:       func() { expired.Add(1) },
		OnAutoSubmitted: func(err error) { autoSubmitted.Add(1) },
	}

	s := NewSession(p)
	defer s.Close()
	s.timer.interval = 20 * time.Millisecond
	s.Activate()

	time.Sleep(250 * time.Millisecond)

	assert.Equal(t, StateSubmitted, s.State())
	assert.Equal(t, int64(1), submitter.calls.Load())
	assert.Equal(t, int64(1), expired.Load())
	assert.Equal(t, int64(1), autoSubmitted.Load())
}

func TestViolationSignalsDropAfterSubmission(t *testing.T) {
	p, _, _ := sessionParams(model.QuizConfig{DetectTabSwitch: true}, threeQuestions())
	s := NewSession(p)
	defer s.Close()
	s.Activate()

	d, err := s.ReportSignal(context.Background(), proctor.Signal{Kind: proctor.SignalTabHidden})
	require.NoError(t, err)
	assert.True(t, d.Counted)
	assert.Equal(t, 1, s.ViolationCount())

	require.NoError(t, s.Submit(context.Background()))

	_, err = s.ReportSignal(context.Background(), proctor.Signal{Kind: proctor.SignalTabHidden})
	assert.ErrorIs(t, err, ErrNotActive)
	assert.Equal(t, 1, s.ViolationCount())
}

func TestLinearConfigGatesJump(t *testing.T) {
	p, _, _ := sessionParams(model.QuizConfig{LinearNavigation: true}, threeQuestions())
	s := NewSession(p)
	defer s.Close()
	s.Activate()

	pos, err := s.JumpTo(2)
	require.NoError(t, err)
	assert.False(t, pos.Moved)
	assert.Equal(t, 0, pos.Index)

	pos, err = s.Next()
	require.NoError(t, err)
	assert.True(t, pos.Moved)
	assert.Equal(t, 1, pos.Index)
}

func TestResumeRestoresSavedAnswers(t *testing.T) {
	qs := threeQuestions()
	p, _, _ := sessionParams(model.QuizConfig{}, qs)
	p.SavedAnswers = []model.Answer{
		{QuestionID: qs[1].ID, Type: model.QuestionTypeSingleChoice, SelectedOptionIDs: []string{"c"}},
	}
	s := NewSession(p)
	defer s.Close()
	s.Activate()

	assert.Equal(t, model.StatusAnswered, s.Status(qs[1].ID))
	sum := s.Summary()
	assert.Equal(t, 1, sum.Answered)
	assert.Equal(t, 2, sum.Unanswered)
}
