package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"learnsphere-backend/internal/models"
)

// QuizService covers the author-facing side of the engine: the authoring
// projection (with correctness flags) and status transitions gated by the
// lifecycle guard. Question and option content stays owned by the authoring
// subsystem; only the status column is written here.
type QuizService struct {
	catalog  QuizCatalog
	attempts AttemptStore
}

func NewQuizService(catalog QuizCatalog, attempts AttemptStore) *QuizService {
	return &QuizService{catalog: catalog, attempts: attempts}
}

func (s *QuizService) getOwned(ctx context.Context, quizID, userID uuid.UUID) (*models.Quiz, error) {
	quiz, err := s.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Quiz not found"}
		}
		return nil, err
	}
	if quiz.AuthorID != userID {
		return nil, &ForbiddenError{Message: "Only the course author can manage this quiz"}
	}
	return quiz, nil
}

// GetForAuthor returns the full authoring view, correctness flags included.
func (s *QuizService) GetForAuthor(ctx context.Context, quizID, userID uuid.UUID) (*models.Quiz, []models.Question, error) {
	quiz, err := s.getOwned(ctx, quizID, userID)
	if err != nil {
		return nil, nil, err
	}
	questions, err := s.catalog.GetQuestions(ctx, quizID)
	if err != nil {
		return nil, nil, err
	}
	return quiz, questions, nil
}

func (s *QuizService) UpdateStatus(ctx context.Context, quizID, userID uuid.UUID, to models.QuizStatus) error {
	quiz, err := s.getOwned(ctx, quizID, userID)
	if err != nil {
		return err
	}
	if to == models.QuizStatusArchived {
		// Archival has its own guard; a plain status update cannot reach it.
		return &InvalidStatusTransitionError{From: string(quiz.Status), To: string(to)}
	}
	if !CanTransition(quiz.Status, to) {
		return &InvalidStatusTransitionError{From: string(quiz.Status), To: string(to)}
	}
	return s.catalog.UpdateStatus(ctx, quizID, to)
}

// Archive soft-deletes a quiz by moving it to the archived status, provided
// every lifecycle condition allows it. Quizzes are never hard-deleted while
// attempts reference them.
func (s *QuizService) Archive(ctx context.Context, quizID, userID uuid.UUID) error {
	quiz, err := s.getOwned(ctx, quizID, userID)
	if err != nil {
		return err
	}

	open, completed, err := s.attempts.CountByQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	if blocked := EvaluateArchive(quiz, open, completed); blocked != nil {
		return blocked
	}

	return s.catalog.UpdateStatus(ctx, quizID, models.QuizStatusArchived)
}
