package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/quizora/quizora-backend/internal/repository"
)

// MonitorService orchestrates live quiz monitoring business logic.
type MonitorService struct {
	monitorRepo *repository.MonitorRepository
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(monitorRepo *repository.MonitorRepository) *MonitorService {
	return &MonitorService{monitorRepo: monitorRepo}
}

// ProgressSnapshot holds the live answered count and violation counter for
// every in-progress student of a quiz.
type ProgressSnapshot struct {
	AnsweredCounts  map[int]int64 // student_id → answered_count
	ViolationCounts map[int]int   // student_id → violation_count
	TotalViolations int
}

// GetStudentProgress returns answered counts and violation counters. The two
// fetches are independent and run in parallel to minimize latency.
func (s *MonitorService) GetStudentProgress(ctx context.Context, quizID uuid.UUID) (*ProgressSnapshot, error) {
	studentIDs, err := s.monitorRepo.GetInProgressStudentIDs(ctx, quizID)
	if err != nil {
		return nil, err
	}

	snapshot := &ProgressSnapshot{
		AnsweredCounts:  make(map[int]int64),
		ViolationCounts: make(map[int]int),
	}

	var (
		answeredCounts  map[int]int64
		violationCounts map[int]int
		answeredErr     error
		violationErr    error
		wg              sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		answeredCounts, answeredErr = s.monitorRepo.GetAnsweredCounts(ctx, quizID, studentIDs)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		violationCounts, violationErr = s.monitorRepo.GetViolationCounts(ctx, quizID)
	}()

	wg.Wait()

	// Answered counts are critical; violation counters are best-effort.
	if answeredErr != nil {
		return nil, answeredErr
	}
	if answeredCounts != nil {
		snapshot.AnsweredCounts = answeredCounts
	}

	if violationErr == nil && violationCounts != nil {
		snapshot.ViolationCounts = violationCounts
		for _, count := range violationCounts {
			snapshot.TotalViolations += count
		}
	}

	return snapshot, nil
}
