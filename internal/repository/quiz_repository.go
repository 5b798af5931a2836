package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizora/quizora-backend/internal/model"
)

// QuizRepository handles quiz data access. The config column is JSONB and
// round-trips through model.QuizConfig.
type QuizRepository struct {
	pool *pgxpool.Pool
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

const quizColumns = `id, title, scheduled_start, scheduled_end, duration_minutes,
	entry_token, config, status, created_at, updated_at,
	(SELECT COUNT(*) FROM questions WHERE questions.quiz_id = quizzes.id) AS question_count`

func scanQuiz(row interface{ Scan(...any) error }) (*model.Quiz, error) {
	q := &model.Quiz{}
	var cfg []byte
	err := row.Scan(&q.ID, &q.Title, &q.ScheduledStart, &q.ScheduledEnd, &q.DurationMinutes,
		&q.EntryToken, &cfg, &q.Status, &q.CreatedAt, &q.UpdatedAt, &q.QuestionCount)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(cfg, &q.Config); err != nil {
		return nil, err
	}
	return q, nil
}

// GetByID retrieves a quiz by ID.
func (r *QuizRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	return scanQuiz(r.pool.QueryRow(ctx,
		`SELECT `+quizColumns+` FROM quizzes WHERE id = $1`, id))
}

// GetByEntryToken retrieves a quiz by its join token.
func (r *QuizRepository) GetByEntryToken(ctx context.Context, token string) (*model.Quiz, error) {
	return scanQuiz(r.pool.QueryRow(ctx,
		`SELECT `+quizColumns+` FROM quizzes WHERE entry_token = $1`, token))
}

// ListPublished retrieves all quizzes currently open to students.
func (r *QuizRepository) ListPublished(ctx context.Context) ([]model.Quiz, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+quizColumns+` FROM quizzes
		 WHERE status IN ('PUBLISHED', 'IN_PROGRESS')
		 ORDER BY scheduled_start NULLS LAST, created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quizzes []model.Quiz
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, *q)
	}
	return quizzes, rows.Err()
}

// Create inserts a new quiz.
func (r *QuizRepository) Create(ctx context.Context, q *model.Quiz) error {
	cfg, err := json.Marshal(q.Config)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO quizzes (title, scheduled_start, scheduled_end, duration_minutes, entry_token, config, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		q.Title, q.ScheduledStart, q.ScheduledEnd, q.DurationMinutes, q.EntryToken, cfg, q.Status,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
}

// UpdateStatus moves a quiz through its lifecycle.
func (r *QuizRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.QuizStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE quizzes SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		status, id)
	return err
}
