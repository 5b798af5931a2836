package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quizora/quizora-backend/internal/config"
	"github.com/quizora/quizora-backend/internal/database"
	"github.com/quizora/quizora-backend/internal/logger"
	"github.com/quizora/quizora-backend/internal/model"
	"github.com/quizora/quizora-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// Seeds a demo dataset for local development: 20 students (password
// "quizora123"), one draft quiz with a known entry token and a question set
// covering every question type.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	studentRepo := repository.NewStudentRepository(pool)
	quizRepo := repository.NewQuizRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)

	fmt.Println("=== Seeding 20 Students ===")

	passwordHash, err := bcrypt.GenerateFromPassword([]byte("quizora123"), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash seed password")
	}

	names := []string{
		"Aarav Sharma", "Bianca Rossi", "Chen Wei", "Daria Petrova", "Elif Demir",
		"Farhan Ahmed", "Grace Okafor", "Hiro Tanaka", "Ines Garcia", "Jonas Berg",
		"Kavya Iyer", "Liam Murphy", "Mina Haddad", "Noah Dubois", "Oksana Melnyk",
		"Pedro Alves", "Quinn Taylor", "Ravi Patel", "Sofia Lindgren", "Tomas Novak",
	}

	successCount := 0
	for i, name := range names {
		student := &model.Student{
			Name:         name,
			Username:     fmt.Sprintf("student%d", i+1),
			PasswordHash: string(passwordHash),
		}
		if err := studentRepo.Create(ctx, student); err != nil {
			if errors.Is(err, repository.ErrDuplicateUsername) {
				fmt.Printf("Skipping %s: username already exists\n", student.Username)
				continue
			}
			fmt.Printf("Error creating student %s: %v\n", student.Username, err)
			continue
		}
		successCount++
	}
	fmt.Printf("Seeded %d/%d students\n", successCount, len(names))

	fmt.Println("=== Seeding Demo Quiz ===")

	start := time.Now().Add(5 * time.Minute)
	end := start.Add(24 * time.Hour)
	quiz := &model.Quiz{
		Title:           "General Knowledge Demo",
		ScheduledStart:  &start,
		ScheduledEnd:    &end,
		DurationMinutes: 30,
		EntryToken:      "DEMO-1234",
		Status:          model.QuizStatusDraft,
		Config: model.QuizConfig{
			ShuffleQuestions:    true,
			ShuffleOptions:      true,
			AutoSubmitOnTimeout: true,
			RequireFullscreen:   true,
			DetectTabSwitch:     true,
			BlockClipboard:      true,
			BlockShortcuts:      true,
			SuppressSelection:   true,
			ViolationLimit:      5,
		},
	}
	if err := quizRepo.Create(ctx, quiz); err != nil {
		log.Fatal().Err(err).Msg("Failed to create demo quiz")
	}
	fmt.Printf("Created quiz %s (entry token %s)\n", quiz.ID, quiz.EntryToken)

	questions := demoQuestions(quiz.ID)
	for i := range questions {
		if err := questionRepo.Create(ctx, &questions[i]); err != nil {
			log.Fatal().Err(err).Int("order", questions[i].OrderNum).Msg("Failed to create question")
		}
	}
	fmt.Printf("Created %d questions\n", len(questions))

	fmt.Println("\nSeed completed! Publish the quiz via the proctor API to open it to students.")
}

func demoQuestions(quizID uuid.UUID) []model.Question {
	return []model.Question{
		{
			QuizID: quizID, OrderNum: 1, Marks: 1,
			Type: model.QuestionTypeTrueFalse,
			Text: "The Pacific is the largest ocean on Earth.",
			Options: []model.Option{
				{ID: "true", Text: "True"},
				{ID: "false", Text: "False"},
			},
		},
		{
			QuizID: quizID, OrderNum: 2, Marks: 2, NegativeMarks: 0.5,
			Type: model.QuestionTypeSingleChoice,
			Text: "Which planet is known as the Red Planet?",
			Options: []model.Option{
				{ID: "a", Text: "Venus"},
				{ID: "b", Text: "Mars"},
				{ID: "c", Text: "Jupiter"},
				{ID: "d", Text: "Mercury"},
			},
		},
		{
			QuizID: quizID, OrderNum: 3, Marks: 3,
			Type: model.QuestionTypeMultiChoice,
			Text: "Select all prime numbers.",
			Options: []model.Option{
				{ID: "a", Text: "2"},
				{ID: "b", Text: "9"},
				{ID: "c", Text: "13"},
				{ID: "d", Text: "21"},
			},
		},
		{
			QuizID: quizID, OrderNum: 4, Marks: 2,
			Type:       model.QuestionTypeFillBlanks,
			Text:       "Water is made of ___ and ___.",
			BlankCount: 2,
		},
		{
			QuizID: quizID, OrderNum: 5, Marks: 4,
			Type: model.QuestionTypeMatchPairs,
			Text: "Match each country to its capital.",
			Pairs: []model.MatchPair{
				{LeftID: "l1", LeftText: "France", RightID: "r1", RightText: "Paris"},
				{LeftID: "l2", LeftText: "Japan", RightID: "r2", RightText: "Tokyo"},
				{LeftID: "l3", LeftText: "Kenya", RightID: "r3", RightText: "Nairobi"},
			},
		},
		{
			QuizID: quizID, OrderNum: 6, Marks: 5,
			Type: model.QuestionTypeDescriptive,
			Text: "Explain, in a short paragraph, why the sky appears blue.",
		},
		{
			QuizID: quizID, OrderNum: 7, Marks: 6,
			Type: model.QuestionTypeCoding,
			Text: "Write a function that reverses a string.",
		},
		{
			QuizID: quizID, OrderNum: 8, Marks: 3,
			Type: model.QuestionTypeFileUpload,
			Text: "Upload a diagram of the water cycle.",
		},
	}
}
