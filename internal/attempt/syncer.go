package attempt

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quizora/quizora-backend/internal/model"
	"github.com/rs/zerolog"
)

// DefaultDebounce is the quiet interval for free-form answer saves.
const DefaultDebounce = time.Second

// Saver pushes one question's latest answer state to the remote save
// endpoint. A nil Answer means the question was cleared and the server must
// forget the prior answer. Saves are idempotent per question.
type Saver interface {
	SaveAnswer(ctx context.Context, questionID uuid.UUID, ans *model.Answer) error
}

// Immediate reports whether a question type belongs to the immediate save
// class. Selection-based types save on every mutation; free-form types are
// debounced.
func Immediate(t model.QuestionType) bool {
	switch t {
	case model.QuestionTypeSingleChoice, model.QuestionTypeMultiChoice,
		model.QuestionTypeTrueFalse, model.QuestionTypeMatchPairs,
		model.QuestionTypeFileUpload:
		return true
	case model.QuestionTypeDescriptive, model.QuestionTypeCoding,
		model.QuestionTypeFillBlanks:
		return false
	default:
		return true
	}
}

// Fingerprint reduces an answer to its meaningful free-form fields (text
// content and blank values). Used to skip a debounced send whose content did
// not change since the last one, e.g. when only the mark flag was toggled.
func Fingerprint(ans model.Answer) string {
	var b strings.Builder
	b.WriteString(ans.Text)
	if len(ans.BlankValues) > 0 {
		idxs := make([]int, 0, len(ans.BlankValues))
		for i := range ans.BlankValues {
			idxs = append(idxs, i)
		}
		sort.Ints(idxs)
		for _, i := range idxs {
			fmt.Fprintf(&b, "\x00%d=%s", i, ans.BlankValues[i])
		}
	}
	return b.String()
}

// Syncer decides when an answer mutation is pushed to the Saver: immediately
// for selection-based types, after a quiet interval for free-form types.
// Each question owns its own cancellable timer so independent questions
// never delay each other. A save always carries the latest state at send
// time — last write wins per question.
type Syncer struct {
	mu       sync.Mutex
	saver    Saver
	debounce time.Duration
	pending  map[uuid.UUID]*pendingSave
	lastSent map[uuid.UUID]string
	onError  func(questionID uuid.UUID, err error)
	closed   bool
	log      zerolog.Logger
}

type pendingSave struct {
	timer  *time.Timer
	answer model.Answer
}

// NewSyncer creates a Syncer. onError is invoked (possibly from a timer
// goroutine) when a save fails; the caller warns the user but local state
// stays authoritative and editing continues.
func NewSyncer(saver Saver, debounce time.Duration, onError func(uuid.UUID, error), log zerolog.Logger) *Syncer {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if onError == nil {
		onError = func(uuid.UUID, error) {}
	}
	return &Syncer{
		saver:    saver,
		debounce: debounce,
		pending:  make(map[uuid.UUID]*pendingSave),
		lastSent: make(map[uuid.UUID]string),
		onError:  onError,
		log:      log.With().Str("component", "answer_syncer").Logger(),
	}
}

// Enqueue schedules or performs the save for a fresh mutation.
// Immediate-class answers are sent synchronously in edit order; debounced
// answers reset their question's quiet timer.
func (y *Syncer) Enqueue(ctx context.Context, ans model.Answer) {
	if Immediate(ans.Type) {
		y.send(ctx, ans.QuestionID, &ans)
		return
	}

	y.mu.Lock()
	defer y.mu.Unlock()
	if y.closed {
		return
	}
	if p, ok := y.pending[ans.QuestionID]; ok {
		// Newer edit before the timer fired: keep the latest state and
		// restart the quiet interval.
		p.answer = ans
		p.timer.Reset(y.debounce)
		return
	}
	p := &pendingSave{answer: ans}
	qid := ans.QuestionID
	p.timer = time.AfterFunc(y.debounce, func() {
		y.fire(qid)
	})
	y.pending[qid] = p
}

// EnqueueClear propagates a cleared answer right away, regardless of class,
// and cancels any pending debounced save for the question.
func (y *Syncer) EnqueueClear(ctx context.Context, questionID uuid.UUID) {
	y.mu.Lock()
	if p, ok := y.pending[questionID]; ok {
		p.timer.Stop()
		delete(y.pending, questionID)
	}
	delete(y.lastSent, questionID)
	y.mu.Unlock()

	if err := y.saver.SaveAnswer(ctx, questionID, nil); err != nil {
		y.log.Warn().Err(err).Str("question_id", questionID.String()).Msg("Clear propagation failed")
		y.onError(questionID, err)
	}
}

// fire runs when a question's quiet interval elapses.
func (y *Syncer) fire(questionID uuid.UUID) {
	y.mu.Lock()
	p, ok := y.pending[questionID]
	if !ok || y.closed {
		y.mu.Unlock()
		return
	}
	delete(y.pending, questionID)
	ans := p.answer
	fp := Fingerprint(ans)
	if prev, sent := y.lastSent[questionID]; sent && prev == fp {
		// Content unchanged since the last send (e.g. a mark toggle).
		y.mu.Unlock()
		return
	}
	y.mu.Unlock()

	y.send(context.Background(), questionID, &ans)
}

func (y *Syncer) send(ctx context.Context, questionID uuid.UUID, ans *model.Answer) {
	if err := y.saver.SaveAnswer(ctx, questionID, ans); err != nil {
		y.log.Warn().Err(err).Str("question_id", questionID.String()).Msg("Save failed")
		y.onError(questionID, err)
		return
	}
	if ans != nil {
		y.mu.Lock()
		y.lastSent[questionID] = Fingerprint(*ans)
		y.mu.Unlock()
	}
}

// Flush sends every pending debounced save immediately. Called before
// submission so the final state reaches the server.
func (y *Syncer) Flush(ctx context.Context) {
	y.mu.Lock()
	flushing := make([]model.Answer, 0, len(y.pending))
	for qid, p := range y.pending {
		p.timer.Stop()
		flushing = append(flushing, p.answer)
		delete(y.pending, qid)
	}
	y.mu.Unlock()

	for _, ans := range flushing {
		y.send(ctx, ans.QuestionID, &ans)
	}
}

// Close cancels all pending timers. Pending saves are dropped, not sent;
// callers that need them must Flush first.
func (y *Syncer) Close() {
	y.mu.Lock()
	defer y.mu.Unlock()
	if y.closed {
		return
	}
	y.closed = true
	for qid, p := range y.pending {
		p.timer.Stop()
		delete(y.pending, qid)
	}
}
