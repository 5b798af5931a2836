package attempt

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quizora/quizora-backend/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedSave struct {
	questionID uuid.UUID
	answer     *model.Answer
}

type fakeSaver struct {
	mu    sync.Mutex
	saves []recordedSave
	err   error
}

func (f *fakeSaver) SaveAnswer(_ context.Context, questionID uuid.UUID, ans *model.Answer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	var cp *model.Answer
	if ans != nil {
		c := *ans
		cp = &c
	}
	f.saves = append(f.saves, recordedSave{questionID: questionID, answer: cp})
	return nil
}

func (f *fakeSaver) all() []recordedSave {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedSave, len(f.saves))
	copy(out, f.saves)
	return out
}

func mcqAnswer(qid uuid.UUID, opts ...string) model.Answer {
	return model.Answer{QuestionID: qid, Type: model.QuestionTypeSingleChoice, SelectedOptionIDs: opts}
}

func essayAnswer(qid uuid.UUID, text string) model.Answer {
	return model.Answer{QuestionID: qid, Type: model.QuestionTypeDescriptive, Text: text}
}

func TestImmediateClassSavesEveryEditInOrder(t *testing.T) {
	saver := &fakeSaver{}
	y := NewSyncer(saver, 50*time.Millisecond, nil, zerolog.Nop())
	defer y.Close()

	qid := uuid.New()
	y.Enqueue(context.Background(), mcqAnswer(qid, "a"))
	y.Enqueue(context.Background(), mcqAnswer(qid, "b"))
	y.Enqueue(context.Background(), mcqAnswer(qid, "c"))

	saves := saver.all()
	require.Len(t, saves, 3)
	assert.Equal(t, []string{"a"}, saves[0].answer.SelectedOptionIDs)
	assert.Equal(t, []string{"b"}, saves[1].answer.SelectedOptionIDs)
	assert.Equal(t, []string{"c"}, saves[2].answer.SelectedOptionIDs)
}

func TestDebouncedClassCoalescesToFinalState(t *testing.T) {
	saver := &fakeSaver{}
	y := NewSyncer(saver, 40*time.Millisecond, nil, zerolog.Nop())
	defer y.Close()

	qid := uuid.New()
	y.Enqueue(context.Background(), essayAnswer(qid, "h"))
	y.Enqueue(context.Background(), essayAnswer(qid, "he"))
	y.Enqueue(context.Background(), essayAnswer(qid, "hello"))

	time.Sleep(120 * time.Millisecond)

	saves := saver.all()
	require.Len(t, saves, 1, "rapid edits inside the window must coalesce")
	assert.Equal(t, "hello", saves[0].answer.Text)
}

func TestDebounceFingerprintSkipsUnchangedContent(t *testing.T) {
	saver := &fakeSaver{}
	y := NewSyncer(saver, 30*time.Millisecond, nil, zerolog.Nop())
	defer y.Close()

	qid := uuid.New()
	y.Enqueue(context.Background(), essayAnswer(qid, "final text"))
	time.Sleep(90 * time.Millisecond)
	require.Len(t, saver.all(), 1)

	// A mark toggle re-enqueues the same body; the fingerprint is unchanged
	// so no second request goes out.
	marked := essayAnswer(qid, "final text")
	marked.MarkedForLater = true
	y.Enqueue(context.Background(), marked)
	time.Sleep(90 * time.Millisecond)
	assert.Len(t, saver.all(), 1)

	// Real content change sends again.
	y.Enqueue(context.Background(), essayAnswer(qid, "final text v2"))
	time.Sleep(90 * time.Millisecond)
	assert.Len(t, saver.all(), 2)
}

func TestIndependentQuestionsDoNotBlockEachOther(t *testing.T) {
	saver := &fakeSaver{}
	y := NewSyncer(saver, 40*time.Millisecond, nil, zerolog.Nop())
	defer y.Close()

	q1 := uuid.New()
	q2 := uuid.New()
	y.Enqueue(context.Background(), essayAnswer(q1, "one"))
	y.Enqueue(context.Background(), essayAnswer(q2, "two"))

	time.Sleep(120 * time.Millisecond)

	saves := saver.all()
	require.Len(t, saves, 2)
	seen := map[uuid.UUID]string{}
	for _, s := range saves {
		seen[s.questionID] = s.answer.Text
	}
	assert.Equal(t, "one", seen[q1])
	assert.Equal(t, "two", seen[q2])
}

func TestClearPropagatesImmediatelyAndCancelsPending(t *testing.T) {
	saver := &fakeSaver{}
	y := NewSyncer(saver, 40*time.Millisecond, nil, zerolog.Nop())
	defer y.Close()

	qid := uuid.New()
	y.Enqueue(context.Background(), essayAnswer(qid, "to be cleared"))
	y.EnqueueClear(context.Background(), qid)

	time.Sleep(120 * time.Millisecond)

	saves := saver.all()
	require.Len(t, saves, 1, "pending debounced save must be cancelled by clear")
	assert.Nil(t, saves[0].answer)
}

func TestFlushSendsPendingNow(t *testing.T) {
	saver := &fakeSaver{}
	y := NewSyncer(saver, time.Hour, nil, zerolog.Nop())
	defer y.Close()

	qid := uuid.New()
	y.Enqueue(context.Background(), essayAnswer(qid, "unflushed"))
	require.Empty(t, saver.all())

	y.Flush(context.Background())
	saves := saver.all()
	require.Len(t, saves, 1)
	assert.Equal(t, "unflushed", saves[0].answer.Text)
}

func TestSaveFailureSurfacesWithoutBlocking(t *testing.T) {
	saver := &fakeSaver{err: context.DeadlineExceeded}

	var mu sync.Mutex
	var failed []uuid.UUID
	y := NewSyncer(saver, 30*time.Millisecond, func(qid uuid.UUID, err error) {
		mu.Lock()
		failed = append(failed, qid)
		mu.Unlock()
	}, zerolog.Nop())
	defer y.Close()

	qid := uuid.New()
	y.Enqueue(context.Background(), mcqAnswer(qid, "a"))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, failed, 1)
	assert.Equal(t, qid, failed[0])
}

func TestFingerprintCoversBlanks(t *testing.T) {
	qid := uuid.New()
	a := model.Answer{QuestionID: qid, Type: model.QuestionTypeFillBlanks, BlankValues: map[int]string{0: "x", 1: "y"}}
	b := model.Answer{QuestionID: qid, Type: model.QuestionTypeFillBlanks, BlankValues: map[int]string{1: "y", 0: "x"}}
	c := model.Answer{QuestionID: qid, Type: model.QuestionTypeFillBlanks, BlankValues: map[int]string{0: "x", 1: "z"}}

	assert.Equal(t, Fingerprint(a), Fingerprint(b), "map order must not matter")
	assert.NotEqual(t, Fingerprint(a), Fingerprint(c))
}

func TestSaveClassPartition(t *testing.T) {
	immediate := []model.QuestionType{
		model.QuestionTypeSingleChoice, model.QuestionTypeMultiChoice,
		model.QuestionTypeTrueFalse, model.QuestionTypeMatchPairs,
		model.QuestionTypeFileUpload,
	}
	debounced := []model.QuestionType{
		model.QuestionTypeDescriptive, model.QuestionTypeCoding,
		model.QuestionTypeFillBlanks,
	}
	for _, qt := range immediate {
		assert.True(t, Immediate(qt), string(qt))
	}
	for _, qt := range debounced {
		assert.False(t, Immediate(qt), string(qt))
	}
}
