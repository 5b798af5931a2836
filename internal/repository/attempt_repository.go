package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizora/quizora-backend/internal/model"
)

// AttemptRepository handles attempt and answer data access. Answers are
// last-write-wins per (quiz, student, question).
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// GetByQuizAndStudent retrieves the attempt for a quiz-student combination.
func (r *AttemptRepository) GetByQuizAndStudent(ctx context.Context, quizID uuid.UUID, studentID int) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, quiz_id, student_id, started_at, finished_at, status, violation_count, final_score
		 FROM attempts
		 WHERE quiz_id = $1 AND student_id = $2`, quizID, studentID,
	).Scan(&a.ID, &a.QuizID, &a.StudentID, &a.StartedAt, &a.FinishedAt, &a.Status, &a.ViolationCount, &a.FinalScore)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create inserts a new attempt (student joins the quiz). A re-join hits the
// conflict path and returns pgx.ErrNoRows; callers fall back to the existing
// row so the original start time is preserved.
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO attempts (quiz_id, student_id, status)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (quiz_id, student_id) DO NOTHING
		 RETURNING id, started_at`,
		a.QuizID, a.StudentID, model.AttemptStatusInProgress,
	).Scan(&a.ID, &a.StartedAt)
}

// Submit marks an attempt as submitted. Idempotent: a second submission
// leaves the original finished_at untouched.
func (r *AttemptRepository) Submit(ctx context.Context, quizID uuid.UUID, studentID int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = $1, finished_at = $2
		 WHERE quiz_id = $3 AND student_id = $4 AND status = $5`,
		model.AttemptStatusSubmitted, time.Now(), quizID, studentID, model.AttemptStatusInProgress)
	return err
}

// UpdateViolationCount raises the persisted counter. GREATEST keeps it
// monotonic when reports land out of order.
func (r *AttemptRepository) UpdateViolationCount(ctx context.Context, quizID uuid.UUID, studentID, count int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET violation_count = GREATEST(violation_count, $1)
		 WHERE quiz_id = $2 AND student_id = $3`,
		count, quizID, studentID)
	return err
}

// UpsertAnswer stores the latest answer body for one question.
func (r *AttemptRepository) UpsertAnswer(ctx context.Context, quizID uuid.UUID, studentID int, questionID uuid.UUID, body []byte) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO student_answers (quiz_id, student_id, question_id, answer, updated_at)
		 VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
		 ON CONFLICT (quiz_id, student_id, question_id)
		 DO UPDATE SET answer = EXCLUDED.answer, updated_at = CURRENT_TIMESTAMP`,
		quizID, studentID, questionID, body)
	return err
}

// DeleteAnswer removes a cleared answer.
func (r *AttemptRepository) DeleteAnswer(ctx context.Context, quizID uuid.UUID, studentID int, questionID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM student_answers
		 WHERE quiz_id = $1 AND student_id = $2 AND question_id = $3`,
		quizID, studentID, questionID)
	return err
}

// ListAnswers retrieves all stored answer bodies for an attempt, keyed by
// question id.
func (r *AttemptRepository) ListAnswers(ctx context.Context, quizID uuid.UUID, studentID int) (map[string][]byte, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT question_id, answer FROM student_answers
		 WHERE quiz_id = $1 AND student_id = $2`, quizID, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := make(map[string][]byte)
	for rows.Next() {
		var qid uuid.UUID
		var body []byte
		if err := rows.Scan(&qid, &body); err != nil {
			return nil, err
		}
		answers[qid.String()] = body
	}
	return answers, rows.Err()
}

// InsertViolations bulk-inserts violation events using the PostgreSQL COPY
// protocol. Used by the violation worker to drain its queue in batches.
func (r *AttemptRepository) InsertViolations(ctx context.Context, violations []model.Violation) (int64, error) {
	rows := make([][]any, 0, len(violations))
	for _, v := range violations {
		rows = append(rows, []any{v.QuizID, v.StudentID, v.Count, v.Kind, v.Detail, v.OccurredAt})
	}
	return r.pool.CopyFrom(ctx,
		pgx.Identifier{"attempt_violations"},
		[]string{"quiz_id", "student_id", "count", "kind", "detail", "occurred_at"},
		pgx.CopyFromRows(rows),
	)
}

// InsertViolation inserts a single violation event. Fallback path when a
// batch COPY fails.
func (r *AttemptRepository) InsertViolation(ctx context.Context, v model.Violation) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attempt_violations (quiz_id, student_id, count, kind, detail, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		v.QuizID, v.StudentID, v.Count, v.Kind, v.Detail, v.OccurredAt)
	return err
}
