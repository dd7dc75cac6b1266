package services

import (
	"fmt"

	"learnsphere-backend/internal/models"
)

// Allowed quiz status transitions. Archived is terminal and is only reached
// through the archival guard, never via a plain status update.
var allowedTransitions = map[models.QuizStatus][]models.QuizStatus{
	models.QuizStatusDraft:      {models.QuizStatusPublished},
	models.QuizStatusPublished:  {models.QuizStatusActive, models.QuizStatusInactive, models.QuizStatusDraft},
	models.QuizStatusActive:     {models.QuizStatusInactive, models.QuizStatusSuspended, models.QuizStatusCompleted, models.QuizStatusInProgress},
	models.QuizStatusInProgress: {models.QuizStatusActive, models.QuizStatusCompleted, models.QuizStatusSuspended},
	models.QuizStatusInactive:   {models.QuizStatusActive, models.QuizStatusDraft},
	models.QuizStatusSuspended:  {models.QuizStatusActive, models.QuizStatusInactive},
	models.QuizStatusCompleted:  {models.QuizStatusInactive},
	models.QuizStatusArchived:   {},
}

// CanTransition reports whether a quiz may move between the two statuses.
func CanTransition(from, to models.QuizStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// EvaluateArchive checks every condition that gates moving a quiz into the
// archived state. It returns nil when archival is allowed, otherwise an
// ArchiveBlockedError listing each failing condition individually.
func EvaluateArchive(quiz *models.Quiz, openAttempts, completedAttempts int) *ArchiveBlockedError {
	var reasons []string

	if openAttempts > 0 {
		reasons = append(reasons, fmt.Sprintf("%d student(s) are currently taking this quiz", openAttempts))
	}
	if completedAttempts > 0 {
		reasons = append(reasons, fmt.Sprintf("%d student(s) have already taken this quiz", completedAttempts))
	}
	if quiz.Status == models.QuizStatusPublished || quiz.Status == models.QuizStatusActive {
		reasons = append(reasons, "quiz is published or active; change its status to draft first")
	}
	if quiz.IsPrerequisiteQuiz {
		reasons = append(reasons, "quiz is a prerequisite for course progression")
	}
	if quiz.BlocksLessonCompletion {
		reasons = append(reasons, "quiz blocks lesson completion; change that setting first")
	}

	if len(reasons) > 0 {
		return &ArchiveBlockedError{Reasons: reasons}
	}
	return nil
}
