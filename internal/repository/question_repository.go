package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizora/quizora-backend/internal/model"
)

// QuestionRepository handles question data access. Options and match pairs
// live in JSONB columns.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByQuiz retrieves all questions for a given quiz, ordered by order_num.
func (r *QuestionRepository) ListByQuiz(ctx context.Context, quizID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, quiz_id, question_text, question_type, options, blank_count, pairs, marks, negative_marks, order_num
		 FROM questions WHERE quiz_id = $1
		 ORDER BY order_num`, quizID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var options, pairs []byte
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Text, &q.Type, &options, &q.BlankCount, &pairs, &q.Marks, &q.NegativeMarks, &q.OrderNum); err != nil {
			return nil, err
		}
		if options != nil {
			if err := json.Unmarshal(options, &q.Options); err != nil {
				return nil, err
			}
		}
		if pairs != nil {
			if err := json.Unmarshal(pairs, &q.Pairs); err != nil {
				return nil, err
			}
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// CountByQuiz returns the number of questions in a quiz.
func (r *QuestionRepository) CountByQuiz(ctx context.Context, quizID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM questions WHERE quiz_id = $1`, quizID,
	).Scan(&count)
	return count, err
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return err
	}
	pairs, err := json.Marshal(q.Pairs)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (quiz_id, question_text, question_type, options, blank_count, pairs, marks, negative_marks, order_num)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		q.QuizID, q.Text, q.Type, options, q.BlankCount, pairs, q.Marks, q.NegativeMarks, q.OrderNum,
	).Scan(&q.ID)
}
