package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/quizora/quizora-backend/internal/config"
	"github.com/quizora/quizora-backend/internal/model"
	"github.com/quizora/quizora-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Attempt service errors.
var (
	ErrNoActiveAttempt  = errors.New("no active attempt for this quiz")
	ErrAttemptSubmitted = errors.New("attempt is already submitted")
)

// AnswerJob is the queue payload for persisting one answer write. Cleared
// marks a tombstone: the worker deletes the row instead of upserting.
type AnswerJob struct {
	StudentID  int             `json:"student_id"`
	QuizID     string          `json:"quiz_id"`
	QuestionID string          `json:"question_id"`
	Answer     json.RawMessage `json:"answer,omitempty"`
	Cleared    bool            `json:"cleared,omitempty"`
}

// ViolationJob is the queue payload for persisting one violation event.
type ViolationJob struct {
	StudentID int    `json:"student_id"`
	QuizID    string `json:"quiz_id"`
	Count     int    `json:"count"`
	Kind      string `json:"kind"`
	Detail    string `json:"detail,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// MonitorEvent is published on the quiz's monitor channel for the live
// proctor dashboard.
type MonitorEvent struct {
	Type      string `json:"type"` // answer_saved | answer_cleared | violation | submitted
	StudentID int    `json:"student_id"`
	Count     int    `json:"count,omitempty"`
	Kind      string `json:"kind,omitempty"`
}

// AttemptService handles the server side of a student's quiz attempt: the
// join flow, resumable state, the write-behind persistence queues and final
// submission. Redis is the hot path; PostgreSQL is the source of truth.
type AttemptService struct {
	attemptRepo *repository.AttemptRepository
	quizRepo    *repository.QuizRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	attemptRepo *repository.AttemptRepository,
	quizRepo *repository.QuizRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attemptRepo: attemptRepo,
		quizRepo:    quizRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "attempt_service").Logger(),
	}
}

// Join validates the entry token and creates an attempt for the student.
// Idempotent: re-joining returns the existing attempt with its original
// start time, so refreshing the page never restarts the clock.
func (s *AttemptService) Join(ctx context.Context, quizID uuid.UUID, studentID int, entryToken string) (*model.Attempt, error) {
	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}

	if quiz.Status != model.QuizStatusPublished && quiz.Status != model.QuizStatusInProgress {
		return nil, ErrQuizNotAvailable
	}
	if quiz.EntryToken != entryToken {
		return nil, ErrInvalidToken
	}

	existing, err := s.attemptRepo.GetByQuizAndStudent(ctx, quizID, studentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check existing attempt: %w", err)
	}
	if existing != nil {
		// Make sure Redis has the start time even if the original join
		// happened on another device.
		_ = s.rdb.Set(ctx, config.CacheKey.AttemptStartKey(quizID.String(), studentID), existing.StartedAt.Unix(), 0)
		return existing, nil
	}

	a := &model.Attempt{
		QuizID:    quizID,
		StudentID: studentID,
		StartedAt: time.Now(),
	}
	if err := s.attemptRepo.Create(ctx, a); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Concurrent join: another connection won the insert.
			existing, fetchErr := s.attemptRepo.GetByQuizAndStudent(ctx, quizID, studentID)
			if fetchErr != nil {
				return nil, fmt.Errorf("concurrent join detected, but fetch failed: %w", fetchErr)
			}
			return existing, nil
		}
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	startKey := config.CacheKey.AttemptStartKey(quizID.String(), studentID)
	if err := s.rdb.Set(ctx, startKey, a.StartedAt.Unix(), 0).Err(); err != nil {
		// Non-fatal: GetState falls back to PostgreSQL and self-heals.
		s.log.Warn().Err(err).Int("student_id", studentID).Msg("Failed to cache start time")
	}

	return a, nil
}

// VerifyActiveAttempt checks that a student has an IN_PROGRESS attempt for
// the given quiz.
func (s *AttemptService) VerifyActiveAttempt(ctx context.Context, quizID uuid.UUID, studentID int) (*model.Attempt, error) {
	a, err := s.attemptRepo.GetByQuizAndStudent(ctx, quizID, studentID)
	if err != nil {
		return nil, ErrNoActiveAttempt
	}
	if a.Status == model.AttemptStatusSubmitted {
		return nil, ErrAttemptSubmitted
	}
	return a, nil
}

// GetState retrieves the resumable state of the attempt: saved answers, the
// violation counter and the remaining time recomputed from the absolute
// start time plus duration. Start time reads fall back from Redis to
// PostgreSQL with a self-heal.
func (s *AttemptService) GetState(ctx context.Context, quizID uuid.UUID, studentID int) (*model.AttemptState, error) {
	qid := quizID.String()

	raw, err := s.rdb.HGetAll(ctx, config.CacheKey.AttemptAnswersKey(qid, studentID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get saved answers: %w", err)
	}
	answers := make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		answers[k] = json.RawMessage(v)
	}

	durationMinutes, err := s.quizDuration(ctx, quizID)
	if err != nil {
		return nil, err
	}

	attempt, err := s.attemptRepo.GetByQuizAndStudent(ctx, quizID, studentID)
	if err != nil {
		return nil, ErrNoActiveAttempt
	}

	startUnix, err := s.attemptStartUnix(ctx, quizID, studentID, attempt)
	if err != nil {
		return nil, err
	}

	deadline := time.Unix(startUnix, 0).Add(time.Duration(durationMinutes) * time.Minute)
	remaining := time.Until(deadline)
	if remaining < 0 {
		remaining = 0
	}

	violations := attempt.ViolationCount
	if v, err := s.rdb.Get(ctx, config.CacheKey.AttemptViolationsKey(qid, studentID)).Int(); err == nil && v > violations {
		violations = v
	}

	return &model.AttemptState{
		QuizID:           quizID,
		StudentID:        studentID,
		AttemptID:        attempt.ID,
		SavedAnswers:     answers,
		ViolationCount:   violations,
		RemainingSeconds: int64(remaining.Seconds()),
		Deadline:         deadline,
	}, nil
}

func (s *AttemptService) quizDuration(ctx context.Context, quizID uuid.UUID) (int, error) {
	val, err := s.rdb.Get(ctx, config.CacheKey.QuizDurationKey(quizID.String())).Result()
	if err == nil {
		minutes, convErr := strconv.Atoi(val)
		if convErr != nil {
			return 0, fmt.Errorf("invalid duration format in cache: %w", convErr)
		}
		return minutes, nil
	}
	if !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("get quiz duration: %w", err)
	}

	// Cache miss: read the source of truth and self-heal.
	quiz, dbErr := s.quizRepo.GetByID(ctx, quizID)
	if dbErr != nil {
		return 0, fmt.Errorf("duration not cached and quiz not found: %w", dbErr)
	}
	_ = s.rdb.Set(ctx, config.CacheKey.QuizDurationKey(quizID.String()), quiz.DurationMinutes, 0)
	return quiz.DurationMinutes, nil
}

func (s *AttemptService) attemptStartUnix(ctx context.Context, quizID uuid.UUID, studentID int, attempt *model.Attempt) (int64, error) {
	startKey := config.CacheKey.AttemptStartKey(quizID.String(), studentID)

	val, err := s.rdb.Get(ctx, startKey).Result()
	if errors.Is(err, redis.Nil) {
		// Evicted or legacy attempt: PostgreSQL is the source of truth.
		startUnix := attempt.StartedAt.Unix()
		_ = s.rdb.Set(ctx, startKey, startUnix, 0)
		return startUnix, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis error getting start time: %w", err)
	}

	startUnix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid start time format in cache: %w", err)
	}
	return startUnix, nil
}

// SaveAnswer stores the latest answer body in the Redis hash and enqueues the
// write-behind persist job. A nil answer is a clear: the hash field is
// removed and a tombstone job makes the worker delete the row.
func (s *AttemptService) SaveAnswer(ctx context.Context, quizID uuid.UUID, studentID int, questionID uuid.UUID, ans *model.Answer) error {
	qid := quizID.String()
	answersKey := config.CacheKey.AttemptAnswersKey(qid, studentID)

	job := AnswerJob{
		StudentID:  studentID,
		QuizID:     qid,
		QuestionID: questionID.String(),
	}

	if ans == nil {
		if err := s.rdb.HDel(ctx, answersKey, questionID.String()).Err(); err != nil {
			return fmt.Errorf("clear answer: %w", err)
		}
		job.Cleared = true
	} else {
		body, err := json.Marshal(ans)
		if err != nil {
			return fmt.Errorf("marshal answer: %w", err)
		}
		if err := s.rdb.HSet(ctx, answersKey, questionID.String(), body).Err(); err != nil {
			return fmt.Errorf("save answer: %w", err)
		}
		job.Answer = body
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload).Err(); err != nil {
		return fmt.Errorf("enqueue persist job: %w", err)
	}

	s.publishMonitor(ctx, quizID, MonitorEvent{
		Type:      eventTypeForAnswer(job.Cleared),
		StudentID: studentID,
	})
	return nil
}

func eventTypeForAnswer(cleared bool) string {
	if cleared {
		return "answer_cleared"
	}
	return "answer_saved"
}

// RecordViolation stores the new counter value in Redis and enqueues the
// append-only violation event. Count comes from the connection's monitor and
// is monotonic per attempt.
func (s *AttemptService) RecordViolation(ctx context.Context, quizID uuid.UUID, studentID, count int, kind model.ViolationKind, detail string) error {
	qid := quizID.String()

	if err := s.rdb.Set(ctx, config.CacheKey.AttemptViolationsKey(qid, studentID), count, 0).Err(); err != nil {
		return fmt.Errorf("cache violation count: %w", err)
	}

	job := ViolationJob{
		StudentID: studentID,
		QuizID:    qid,
		Count:     count,
		Kind:      string(kind),
		Detail:    detail,
		Timestamp: time.Now().Unix(),
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistViolationsQueue, payload).Err(); err != nil {
		return fmt.Errorf("enqueue violation job: %w", err)
	}

	s.publishMonitor(ctx, quizID, MonitorEvent{
		Type:      "violation",
		StudentID: studentID,
		Count:     count,
		Kind:      string(kind),
	})
	return nil
}

// Submit marks the attempt as submitted and releases its hot-path keys. The
// answer hash survives until the persist queue is fully drained; only the
// countdown keys are dropped.
func (s *AttemptService) Submit(ctx context.Context, quizID uuid.UUID, studentID int) error {
	if err := s.attemptRepo.Submit(ctx, quizID, studentID); err != nil {
		return fmt.Errorf("submit attempt: %w", err)
	}

	qid := quizID.String()
	s.rdb.Del(ctx, config.CacheKey.AttemptStartKey(qid, studentID))

	s.publishMonitor(ctx, quizID, MonitorEvent{
		Type:      "submitted",
		StudentID: studentID,
	})

	s.log.Info().
		Str("quiz_id", qid).
		Int("student_id", studentID).
		Msg("Attempt submitted")
	return nil
}

// ListPersistedAnswers loads the answers already flushed to PostgreSQL. Used
// as a fallback when the Redis hash is gone (e.g. after a cache flush).
func (s *AttemptService) ListPersistedAnswers(ctx context.Context, quizID uuid.UUID, studentID int) (map[string]json.RawMessage, error) {
	rows, err := s.attemptRepo.ListAnswers(ctx, quizID, studentID)
	if err != nil {
		return nil, err
	}
	answers := make(map[string]json.RawMessage, len(rows))
	for k, v := range rows {
		answers[k] = json.RawMessage(v)
	}
	return answers, nil
}

// PersistViolationCount raises the attempt's persisted counter. Called by the
// violation worker after a successful batch insert.
func (s *AttemptService) PersistViolationCount(ctx context.Context, quizID uuid.UUID, studentID, count int) error {
	return s.attemptRepo.UpdateViolationCount(ctx, quizID, studentID, count)
}

func (s *AttemptService) publishMonitor(ctx context.Context, quizID uuid.UUID, ev MonitorEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := s.rdb.Publish(ctx, config.CacheKey.QuizMonitorChannel(quizID.String()), data).Err(); err != nil {
		s.log.Debug().Err(err).Msg("Monitor publish failed")
	}
}
