package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/quizora/quizora-backend/internal/attempt"
	"github.com/quizora/quizora-backend/internal/config"
	"github.com/quizora/quizora-backend/internal/model"
	"github.com/quizora/quizora-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Quiz service errors.
var (
	ErrQuizNotPublished = errors.New("quiz is not published")
	ErrQuizNotAvailable = errors.New("quiz is not available for joining")
	ErrInvalidToken     = errors.New("invalid entry token")
	ErrNoQuestions      = errors.New("quiz has no questions")
)

// QuizService handles quiz lifecycle and the Redis paper cache. The cached
// paper is the authored order; per-attempt shuffling is derived at read time
// so one cache entry serves every student.
type QuizService struct {
	quizRepo     *repository.QuizRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewQuizService creates a new QuizService.
func NewQuizService(
	quizRepo *repository.QuizRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *QuizService {
	return &QuizService{
		quizRepo:     quizRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "quiz_service").Logger(),
	}
}

// GetByID retrieves a quiz.
func (s *QuizService) GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	return s.quizRepo.GetByID(ctx, id)
}

// ListPublished returns the quizzes currently open to students.
func (s *QuizService) ListPublished(ctx context.Context) ([]model.Quiz, error) {
	return s.quizRepo.ListPublished(ctx)
}

// Publish changes quiz status to PUBLISHED and caches the paper in Redis.
func (s *QuizService) Publish(ctx context.Context, quizID uuid.UUID) error {
	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		return fmt.Errorf("get quiz: %w", err)
	}
	if quiz.Status != model.QuizStatusDraft {
		return fmt.Errorf("quiz status is %s, expected DRAFT", quiz.Status)
	}

	if err := s.WarmQuizCache(ctx, quiz); err != nil {
		return err
	}

	if err := s.quizRepo.UpdateStatus(ctx, quizID, model.QuizStatusPublished); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	s.log.Info().Str("quiz_id", quizID.String()).Msg("Quiz published")
	return nil
}

// WarmQuizCache loads a quiz's paper, duration and config from PostgreSQL
// into Redis. Core cache-warming logic used by Publish and PrewarmAllCaches.
func (s *QuizService) WarmQuizCache(ctx context.Context, quiz *model.Quiz) error {
	questions, err := s.questionRepo.ListByQuiz(ctx, quiz.ID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	// Build the student-facing payload (without grading data).
	studentQuestions := make([]model.QuestionForStudent, len(questions))
	for i := range questions {
		studentQuestions[i] = questions[i].ForStudent()
	}

	paper := model.QuizPaper{
		QuizID:    quiz.ID,
		Title:     quiz.Title,
		Duration:  quiz.DurationMinutes,
		Config:    quiz.Config,
		Questions: studentQuestions,
	}

	paperJSON, err := json.Marshal(paper)
	if err != nil {
		return fmt.Errorf("marshal paper: %w", err)
	}
	configJSON, err := json.Marshal(quiz.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	qid := quiz.ID.String()
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.QuizPaperKey(qid), paperJSON, 0)
	pipe.Set(ctx, config.CacheKey.QuizDurationKey(qid), quiz.DurationMinutes, 0)
	pipe.Set(ctx, config.CacheKey.QuizConfigKey(qid), configJSON, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("quiz_id", qid).
		Int("questions", len(questions)).
		Msg("Cache warmed")
	return nil
}

// PrewarmAllCaches loads all published quizzes into Redis on application
// startup, preventing lazy-loading races under thundering herd traffic.
func (s *QuizService) PrewarmAllCaches(ctx context.Context) error {
	quizzes, err := s.quizRepo.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published quizzes: %w", err)
	}

	if len(quizzes) == 0 {
		s.log.Info().Msg("No published quizzes to prewarm")
		return nil
	}

	s.log.Info().Int("count", len(quizzes)).Msg("Prewarming published quizzes...")

	warmed := 0
	for i := range quizzes {
		if err := s.WarmQuizCache(ctx, &quizzes[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("quiz_id", quizzes[i].ID.String()).
				Msg("Failed to warm quiz, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(quizzes)).
		Msg("Prewarming complete")
	return nil
}

// GetPaper retrieves the cached authored-order paper from Redis, falling back
// to PostgreSQL with a self-heal when the cache entry was evicted.
func (s *QuizService) GetPaper(ctx context.Context, quizID uuid.UUID) (*model.QuizPaper, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.QuizPaperKey(quizID.String())).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("get paper: %w", err)
		}

		// Cache miss: rebuild from the source of truth.
		quiz, dbErr := s.quizRepo.GetByID(ctx, quizID)
		if dbErr != nil {
			return nil, fmt.Errorf("paper not cached and quiz not found: %w", dbErr)
		}
		if quiz.Status != model.QuizStatusPublished && quiz.Status != model.QuizStatusInProgress {
			return nil, ErrQuizNotPublished
		}
		if err := s.WarmQuizCache(ctx, quiz); err != nil {
			return nil, err
		}
		data, err = s.rdb.Get(ctx, config.CacheKey.QuizPaperKey(quizID.String())).Bytes()
		if err != nil {
			return nil, fmt.Errorf("get paper after warm: %w", err)
		}
	}

	var paper model.QuizPaper
	if err := json.Unmarshal(data, &paper); err != nil {
		return nil, fmt.Errorf("unmarshal paper: %w", err)
	}
	return &paper, nil
}

// GetPaperForAttempt returns the paper with the attempt's deterministic
// shuffle applied. The same attempt id always yields the same layout, so a
// reconnecting client resumes against an identical paper.
func (s *QuizService) GetPaperForAttempt(ctx context.Context, quizID, attemptID uuid.UUID) (*model.QuizPaper, error) {
	paper, err := s.GetPaper(ctx, quizID)
	if err != nil {
		return nil, err
	}

	shuffled := *paper
	shuffled.Questions = attempt.Presentation(attemptID.String(), paper.Config, paper.Questions)
	return &shuffled, nil
}
