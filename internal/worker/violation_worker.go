package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/quizora/quizora-backend/internal/config"
	"github.com/quizora/quizora-backend/internal/model"
	"github.com/quizora/quizora-backend/internal/repository"
	"github.com/quizora/quizora-backend/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// ViolationWorker consumes persist_violations_queue in batches: a COPY bulk
// insert on the fast path, row-by-row recovery with requeue when that fails.
// Violation events are append-only, so a requeue never conflicts.
type ViolationWorker struct {
	attemptRepo *repository.AttemptRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewViolationWorker creates a new ViolationWorker.
func NewViolationWorker(attemptRepo *repository.AttemptRepository, rdb *redis.Client, log zerolog.Logger) *ViolationWorker {
	return &ViolationWorker{
		attemptRepo: attemptRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "violation_worker").Logger(),
	}
}

// Start begins the batching worker loop. Call in a goroutine.
func (w *ViolationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	buffer := make([]*service.ViolationJob, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		// Flush on size or age.
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0] // Clear buffer, keep capacity
				lastFlushTime = time.Now()
			}
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistViolationsQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue // Queue empty, loop back to check the flush timer
			}
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var job service.ViolationJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			// Malformed JSON cannot be retried. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}

		buffer = append(buffer, &job)
	}
}

// flushSafe attempts bulk insert, then fallback insert, then requeue.
func (w *ViolationWorker) flushSafe(ctx context.Context, batch []*service.ViolationJob) {
	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
		return
	}
	w.updateCounters(ctx, batch)
}

func (w *ViolationWorker) bulkInsert(ctx context.Context, batch []*service.ViolationJob) error {
	violations := make([]model.Violation, 0, len(batch))
	for _, job := range batch {
		v, err := jobToViolation(job)
		if err != nil {
			// Trigger the fallback, which handles the bad row individually.
			return err
		}
		violations = append(violations, v)
	}

	_, err := w.attemptRepo.InsertViolations(ctx, violations)
	return err
}

func (w *ViolationWorker) fallbackInsert(ctx context.Context, batch []*service.ViolationJob) {
	requeueList := make([]*service.ViolationJob, 0)
	inserted := make([]*service.ViolationJob, 0, len(batch))

	for _, job := range batch {
		v, err := jobToViolation(job)
		if err != nil {
			w.log.Error().Str("quiz_id", job.QuizID).Msg("Dropping violation with invalid UUID")
			continue
		}

		if err := w.attemptRepo.InsertViolation(ctx, v); err != nil {
			w.log.Error().Err(err).Int("student_id", job.StudentID).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, job)
			continue
		}
		inserted = append(inserted, job)
	}

	w.updateCounters(ctx, inserted)

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

// updateCounters raises the per-attempt persisted counter to the highest
// count seen in the batch.
func (w *ViolationWorker) updateCounters(ctx context.Context, batch []*service.ViolationJob) {
	type key struct {
		quizID    string
		studentID int
	}
	maxCounts := make(map[key]int)
	for _, job := range batch {
		k := key{quizID: job.QuizID, studentID: job.StudentID}
		if job.Count > maxCounts[k] {
			maxCounts[k] = job.Count
		}
	}

	for k, count := range maxCounts {
		quizID, err := uuid.Parse(k.quizID)
		if err != nil {
			continue
		}
		if err := w.attemptRepo.UpdateViolationCount(ctx, quizID, k.studentID, count); err != nil {
			w.log.Error().Err(err).Int("student_id", k.studentID).Msg("Counter update failed")
		}
	}
}

func (w *ViolationWorker) requeue(ctx context.Context, items []*service.ViolationJob) {
	pipe := w.rdb.Pipeline()
	for _, job := range items {
		data, _ := json.Marshal(job)
		pipe.RPush(ctx, config.WorkerKey.PersistViolationsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue items to Redis. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed items back to Redis")
	// Avoid thrashing if the DB is down hard.
	time.Sleep(2 * time.Second)
}

func (w *ViolationWorker) shutdown(buffer []*service.ViolationJob) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}

func jobToViolation(job *service.ViolationJob) (model.Violation, error) {
	quizID, err := uuid.Parse(job.QuizID)
	if err != nil {
		return model.Violation{}, err
	}
	return model.Violation{
		QuizID:     quizID,
		StudentID:  job.StudentID,
		Count:      job.Count,
		Kind:       model.ViolationKind(job.Kind),
		Detail:     job.Detail,
		OccurredAt: time.Unix(job.Timestamp, 0),
	}, nil
}
