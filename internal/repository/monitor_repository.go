package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizora/quizora-backend/internal/config"
	"github.com/redis/go-redis/v9"
)

// MonitorRepository provides data access for the live quiz monitoring feature.
// It combines PostgreSQL (attempt state) and Redis (live answer counts).
type MonitorRepository struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
}

// NewMonitorRepository creates a new MonitorRepository.
func NewMonitorRepository(pool *pgxpool.Pool, rdb *redis.Client) *MonitorRepository {
	return &MonitorRepository{pool: pool, rdb: rdb}
}

// GetInProgressStudentIDs returns all student IDs with an active attempt for the given quiz.
func (r *MonitorRepository) GetInProgressStudentIDs(ctx context.Context, quizID uuid.UUID) ([]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT student_id FROM attempts WHERE quiz_id = $1 AND status = 'IN_PROGRESS'`,
		quizID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetAnsweredCounts returns the live answered-question count per student,
// read from the Redis answer hashes so it reflects unflushed saves too.
func (r *MonitorRepository) GetAnsweredCounts(ctx context.Context, quizID uuid.UUID, studentIDs []int) (map[int]int64, error) {
	counts := make(map[int]int64, len(studentIDs))

	pipe := r.rdb.Pipeline()
	cmds := make(map[int]*redis.IntCmd, len(studentIDs))
	for _, sid := range studentIDs {
		cmds[sid] = pipe.HLen(ctx, config.CacheKey.AttemptAnswersKey(quizID.String(), sid))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	for sid, cmd := range cmds {
		counts[sid] = cmd.Val()
	}
	return counts, nil
}

// GetViolationCounts returns the persisted violation counter per student.
func (r *MonitorRepository) GetViolationCounts(ctx context.Context, quizID uuid.UUID) (map[int]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT student_id, violation_count FROM attempts WHERE quiz_id = $1`,
		quizID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var sid, count int
		if err := rows.Scan(&sid, &count); err != nil {
			return nil, err
		}
		counts[sid] = count
	}
	return counts, rows.Err()
}
