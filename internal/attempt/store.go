package attempt

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quizora/quizora-backend/internal/model"
)

// Store holds the in-memory answer map for one attempt. It is the source of
// truth for what the student sees, independent of remote-sync success.
// Persistence is a separate concern (Syncer).
type Store struct {
	mu      sync.Mutex
	answers map[uuid.UUID]*model.Answer
	types   map[uuid.UUID]model.QuestionType
	now     func() time.Time
}

// NewStore creates a Store for the given questions. Existing answers (from a
// resumed session) may be loaded with Restore.
func NewStore(questions []model.QuestionForStudent) *Store {
	types := make(map[uuid.UUID]model.QuestionType, len(questions))
	for _, q := range questions {
		types[q.ID] = q.Type
	}
	return &Store{
		answers: make(map[uuid.UUID]*model.Answer),
		types:   types,
		now:     time.Now,
	}
}

// Restore loads a previously saved answer without stamping LastModified.
func (s *Store) Restore(ans model.Answer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, known := s.types[ans.QuestionID]; !known {
		return
	}
	a := ans
	s.answers[ans.QuestionID] = &a
}

// Get returns a copy of the answer for a question, if any.
func (s *Store) Get(questionID uuid.UUID) (model.Answer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.answers[questionID]
	if !ok {
		return model.Answer{}, false
	}
	return *a, true
}

// Set merges a partial update into the answer for a question, creating it
// lazily on first interaction. Returns the resulting answer.
func (s *Store) Set(questionID uuid.UUID, upd model.AnswerUpdate) (model.Answer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	qType, known := s.types[questionID]
	if !known {
		return model.Answer{}, false
	}
	a, ok := s.answers[questionID]
	if !ok {
		a = &model.Answer{QuestionID: questionID, Type: qType}
		s.answers[questionID] = a
	}
	a.Apply(upd, s.now())
	return *a, true
}

// Clear removes the answer entirely. Distinct from setting an empty value:
// the caller must propagate the cleared state so the server forgets it too.
func (s *Store) Clear(questionID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.answers[questionID]; !ok {
		return false
	}
	delete(s.answers, questionID)
	return true
}

// ToggleMark flips the mark-for-later flag without altering the payload.
func (s *Store) ToggleMark(questionID uuid.UUID) (model.Answer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	qType, known := s.types[questionID]
	if !known {
		return model.Answer{}, false
	}
	a, ok := s.answers[questionID]
	if !ok {
		a = &model.Answer{QuestionID: questionID, Type: qType}
		s.answers[questionID] = a
	}
	a.MarkedForLater = !a.MarkedForLater
	a.LastModified = s.now()
	return *a, true
}

// Status derives the palette status for a question.
func (s *Store) Status(questionID uuid.UUID) model.AnswerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.answers[questionID]
	if !ok {
		return model.StatusUnanswered
	}
	return a.Status()
}

// Summary counts answered/marked/unanswered across all questions.
func (s *Store) Summary() model.AttemptSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := model.AttemptSummary{Total: len(s.types)}
	for qid := range s.types {
		a, ok := s.answers[qid]
		if !ok {
			sum.Unanswered++
			continue
		}
		switch a.Status() {
		case model.StatusMarked:
			sum.Marked++
		case model.StatusAnswered:
			sum.Answered++
		default:
			sum.Unanswered++
		}
	}
	return sum
}
