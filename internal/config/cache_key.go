package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentSessionKey returns the cache key for a student's login session
func (r *CacheKeyStruct) StudentSessionKey(studentID int) string {
	return fmt.Sprintf("login:%d", studentID)
}

// ProctorSessionKey returns the cache key for a proctor's login session
func (r *CacheKeyStruct) ProctorSessionKey(proctorID int) string {
	return fmt.Sprintf("login:proctor:%d", proctorID)
}

// AttemptStartKey returns the cache key for a student's attempt start time
func (r *CacheKeyStruct) AttemptStartKey(quizID string, studentID int) string {
	return fmt.Sprintf("student:%d:quiz:%s:attempt_start", studentID, quizID)
}

// AttemptAnswersKey returns the cache key for a student's autosaved answers
func (r *CacheKeyStruct) AttemptAnswersKey(quizID string, studentID int) string {
	return fmt.Sprintf("student:%d:quiz:%s:answers", studentID, quizID)
}

// AttemptViolationsKey returns the cache key for a student's violation counter
func (r *CacheKeyStruct) AttemptViolationsKey(quizID string, studentID int) string {
	return fmt.Sprintf("student:%d:quiz:%s:violations", studentID, quizID)
}

// QuizPaperKey returns the cache key for a quiz's question payload
func (r *CacheKeyStruct) QuizPaperKey(quizID string) string {
	return fmt.Sprintf("quiz:%s:paper", quizID)
}

// QuizDurationKey returns the cache key for a quiz's duration in minutes
func (r *CacheKeyStruct) QuizDurationKey(quizID string) string {
	return fmt.Sprintf("quiz:%s:duration", quizID)
}

// QuizConfigKey returns the cache key for a quiz's attempt configuration
func (r *CacheKeyStruct) QuizConfigKey(quizID string) string {
	return fmt.Sprintf("quiz:%s:config", quizID)
}

// QuizMonitorChannel returns the Redis PubSub channel name for a quiz's live monitor
func (r *CacheKeyStruct) QuizMonitorChannel(quizID string) string {
	return fmt.Sprintf("quiz:%s:monitor", quizID)
}

var CacheKey = NewCacheKeyStruct()
