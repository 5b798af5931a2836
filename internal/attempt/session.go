package attempt

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quizora/quizora-backend/internal/model"
	"github.com/quizora/quizora-backend/internal/proctor"
	"github.com/quizora/quizora-backend/internal/shuffle"
	"github.com/rs/zerolog"
)

// State is the session lifecycle phase.
type State string

const (
	StateLoading    State = "loading"
	StateActive     State = "active"
	StateSubmitting State = "submitting"
	StateSubmitted  State = "submitted"
)

// Session errors.
var (
	ErrNotActive        = errors.New("session is not active")
	ErrDeadlinePassed   = errors.New("attempt deadline has passed")
	ErrUnknownQuestion  = errors.New("unknown question")
	ErrAlreadySubmitted = errors.New("attempt already submitted")
)

// Submitter performs the final remote submit call for the attempt.
type Submitter interface {
	SubmitAttempt(ctx context.Context) error
}

// Hooks are callbacks the session owner (the transport handler) receives.
// OnTick and the auto-submit pair fire from timer goroutines.
type Hooks struct {
	OnTick          func(remaining int64)
	OnExpired       func()
	OnAutoSubmitted func(err error)
	OnSaveError     func(questionID uuid.UUID, err error)
}

// Params bundles everything needed to build a Session.
type Params struct {
	AttemptID      uuid.UUID
	Config         model.QuizConfig
	Deadline       time.Time
	Questions      []model.QuestionForStudent // authored order
	SavedAnswers   []model.Answer
	ViolationCount int
	Saver          Saver
	Reporter       proctor.Reporter
	Submitter      Submitter
	Hooks          Hooks
	Debounce       time.Duration
	Log            zerolog.Logger
}

// Session orchestrates one student's live attempt: answer store, persistence
// syncer, deadline timer, violation monitor and navigation, moving through
// loading → active → submitting → submitted. All timers and the monitor are
// detached on every exit path.
type Session struct {
	mu        sync.Mutex
	state     State
	attemptID uuid.UUID
	cfg       model.QuizConfig
	deadline  time.Time

	questions []model.QuestionForStudent // shuffled presentation, cached once
	store     *Store
	syncer    *Syncer
	nav       *Navigator
	timer     *DeadlineTimer
	monitor   *proctor.Monitor
	submitter Submitter
	hooks     Hooks

	closeOnce sync.Once
	now       func() time.Time
	log       zerolog.Logger
}

// Presentation derives the per-attempt question order and, per question, the
// option and match-side orders, all seeded from the attempt id. Pure: the
// same attempt id always yields the same paper, so a reconnecting client
// sees an identical layout.
func Presentation(attemptID string, cfg model.QuizConfig, questions []model.QuestionForStudent) []model.QuestionForStudent {
	out := make([]model.QuestionForStudent, len(questions))
	copy(out, questions)

	if cfg.ShuffleQuestions {
		out = shuffle.Slice(out, shuffle.QuestionOrderSeed(attemptID))
	}
	if cfg.ShuffleOptions {
		for i := range out {
			q := &out[i]
			qid := q.ID.String()
			if len(q.Options) > 1 {
				q.Options = shuffle.Slice(q.Options, shuffle.OptionOrderSeed(attemptID, qid))
			}
			// The two sides permute independently so position never
			// reveals the correct pairing.
			if len(q.MatchLeft) > 1 {
				q.MatchLeft = shuffle.Slice(q.MatchLeft, shuffle.MatchLeftSeed(attemptID, qid))
				q.MatchRight = shuffle.Slice(q.MatchRight, shuffle.MatchRightSeed(attemptID, qid))
			}
		}
	}
	return out
}

// NewSession builds a Session in the loading state.
func NewSession(p Params) *Session {
	s := &Session{
		state:     StateLoading,
		attemptID: p.AttemptID,
		cfg:       p.Config,
		deadline:  p.Deadline,
		submitter: p.Submitter,
		hooks:     p.Hooks,
		now:       time.Now,
		log: p.Log.With().
			Str("component", "attempt_session").
			Str("attempt_id", p.AttemptID.String()).
			Logger(),
	}

	s.questions = Presentation(p.AttemptID.String(), p.Config, p.Questions)
	s.store = NewStore(s.questions)
	for _, ans := range p.SavedAnswers {
		s.store.Restore(ans)
	}

	s.syncer = NewSyncer(p.Saver, p.Debounce, func(qid uuid.UUID, err error) {
		if s.hooks.OnSaveError != nil {
			s.hooks.OnSaveError(qid, err)
		}
	}, p.Log)

	s.monitor = proctor.NewMonitor(p.Config, p.ViolationCount, p.Reporter, p.Log)

	order := make([]uuid.UUID, len(s.questions))
	for i, q := range s.questions {
		order[i] = q.ID
	}
	s.nav = NewNavigator(order, p.Config.LinearNavigation)

	var onExpire func()
	if p.Config.AutoSubmitOnTimeout {
		onExpire = s.expire
	}
	s.timer = NewDeadlineTimer(p.Deadline, func(rem int64) {
		if s.hooks.OnTick != nil {
			s.hooks.OnTick(rem)
		}
	}, onExpire)

	return s
}

// Activate starts the countdown and moves the session to active. Returns the
// shuffled paper for the client.
func (s *Session) Activate() []model.QuestionForStudent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateLoading {
		return s.questions
	}
	s.state = StateActive
	s.timer.Start()
	s.log.Info().Int("questions", len(s.questions)).Msg("Session active")
	return s.questions
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Remaining returns the countdown value in whole seconds.
func (s *Session) Remaining() int64 {
	return s.timer.Remaining()
}

// Deadline returns the absolute submission deadline.
func (s *Session) Deadline() time.Time {
	return s.deadline
}

// guardMutation enforces the two mutation invariants: the session must be
// active, and the deadline must not have passed.
func (s *Session) guardMutation() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateActive:
	case StateSubmitting, StateSubmitted:
		return ErrAlreadySubmitted
	default:
		return ErrNotActive
	}
	if !s.now().Before(s.deadline) {
		return ErrDeadlinePassed
	}
	return nil
}

// SetAnswer merges a partial update and schedules persistence per the
// question's save class.
func (s *Session) SetAnswer(ctx context.Context, questionID uuid.UUID, upd model.AnswerUpdate) (model.Answer, error) {
	if err := s.guardMutation(); err != nil {
		return model.Answer{}, err
	}
	ans, ok := s.store.Set(questionID, upd)
	if !ok {
		return model.Answer{}, ErrUnknownQuestion
	}
	s.syncer.Enqueue(ctx, ans)
	return ans, nil
}

// ClearAnswer removes the answer and propagates the cleared state so the
// server forgets it.
func (s *Session) ClearAnswer(ctx context.Context, questionID uuid.UUID) error {
	if err := s.guardMutation(); err != nil {
		return err
	}
	if !s.store.Clear(questionID) {
		return ErrUnknownQuestion
	}
	s.syncer.EnqueueClear(ctx, questionID)
	return nil
}

// ToggleMark flips mark-for-later. The flag rides along with the next save
// of the answer body; for immediate-class questions it is sent right away.
func (s *Session) ToggleMark(ctx context.Context, questionID uuid.UUID) (model.Answer, error) {
	if err := s.guardMutation(); err != nil {
		return model.Answer{}, err
	}
	ans, ok := s.store.ToggleMark(questionID)
	if !ok {
		return model.Answer{}, ErrUnknownQuestion
	}
	s.syncer.Enqueue(ctx, ans)
	return ans, nil
}

// Status derives the palette status for one question.
func (s *Session) Status(questionID uuid.UUID) model.AnswerStatus {
	return s.store.Status(questionID)
}

// Summary returns the answered/marked/unanswered counts for the submit
// confirmation step.
func (s *Session) Summary() model.AttemptSummary {
	return s.store.Summary()
}

// Navigation. Movement is allowed while active; a rejected transition
// reports moved=false with the unchanged position.

// Position describes the navigator state after a transition.
type Position struct {
	Index      int       `json:"index"`
	QuestionID uuid.UUID `json:"question_id"`
	Moved      bool      `json:"moved"`
	AtLast     bool      `json:"at_last"`
}

func (s *Session) position(moved bool) Position {
	idx, qid := s.nav.Current()
	return Position{Index: idx, QuestionID: qid, Moved: moved, AtLast: s.nav.AtLast()}
}

// Next advances to the next question.
func (s *Session) Next() (Position, error) {
	if s.State() != StateActive {
		return Position{}, ErrNotActive
	}
	return s.position(s.nav.Next()), nil
}

// Previous moves back one question.
func (s *Session) Previous() (Position, error) {
	if s.State() != StateActive {
		return Position{}, ErrNotActive
	}
	return s.position(s.nav.Previous()), nil
}

// JumpTo moves directly to an index.
func (s *Session) JumpTo(idx int) (Position, error) {
	if s.State() != StateActive {
		return Position{}, ErrNotActive
	}
	return s.position(s.nav.JumpTo(idx)), nil
}

// Current returns the present position.
func (s *Session) Current() Position {
	return s.position(false)
}

// ReportSignal feeds a proctoring signal to the violation monitor. Signals
// arriving after the session left the active state are dropped so violations
// never leak past the attempt.
func (s *Session) ReportSignal(ctx context.Context, sig proctor.Signal) (proctor.Decision, error) {
	if s.State() != StateActive {
		return proctor.Decision{}, ErrNotActive
	}
	return s.monitor.Evaluate(ctx, sig), nil
}

// ViolationCount returns the current violation counter.
func (s *Session) ViolationCount() int {
	return s.monitor.Count()
}

// Submit flushes pending saves and performs the final remote submit. On
// failure the session stays in submitting and Submit may be called again; no
// answer mutations are accepted either way.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateSubmitted:
		s.mu.Unlock()
		return ErrAlreadySubmitted
	case StateLoading:
		s.mu.Unlock()
		return ErrNotActive
	}
	s.state = StateSubmitting
	s.mu.Unlock()

	s.syncer.Flush(ctx)

	if err := s.submitter.SubmitAttempt(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Submit failed, session stays in submitting")
		return err
	}

	s.mu.Lock()
	s.state = StateSubmitted
	s.mu.Unlock()

	s.Close()
	s.log.Info().Msg("Attempt submitted")
	return nil
}

// expire handles the one-shot deadline expiry when auto-submit is enabled.
func (s *Session) expire() {
	if s.hooks.OnExpired != nil {
		s.hooks.OnExpired()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := s.Submit(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Auto-submit on expiry failed")
	}
	if s.hooks.OnAutoSubmitted != nil {
		s.hooks.OnAutoSubmitted(err)
	}
}

// Close releases the timer and all pending debounce timers. Runs on every
// exit path — submission, disconnect, teardown — and is idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.timer.Stop()
		s.syncer.Close()
		s.log.Debug().Msg("Session closed")
	})
}
