package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"learnsphere-backend/internal/models"
	"learnsphere-backend/internal/repository"
)

// QuizCatalog is the read-only quiz/question/option definition store. Quiz
// authoring owns these rows; the attempt engine never writes them except for
// the status column, which goes through the lifecycle guard.
type QuizCatalog interface {
	GetQuiz(ctx context.Context, id uuid.UUID) (*models.Quiz, error)
	GetQuestions(ctx context.Context, quizID uuid.UUID) ([]models.Question, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.QuizStatus) error
}

// AttemptStore persists quiz attempts and user answers. Finalize must commit
// the answer rows and the attempt closure as one transaction.
type AttemptStore interface {
	ListByUserAndQuiz(ctx context.Context, quizID, userID uuid.UUID) ([]models.QuizAttempt, error)
	Create(ctx context.Context, a *models.QuizAttempt) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.QuizAttempt, error)
	Finalize(ctx context.Context, a *models.QuizAttempt, answers []models.UserAnswer) error
	ListAnswers(ctx context.Context, attemptID uuid.UUID) ([]models.UserAnswer, error)
	ListOpen(ctx context.Context) ([]models.OpenAttempt, error)
	ListOpenByUserAndQuiz(ctx context.Context, quizID, userID uuid.UUID) ([]models.OpenAttempt, error)
	Delete(ctx context.Context, attemptID uuid.UUID) error
	CountByQuiz(ctx context.Context, quizID uuid.UUID) (open, completed int, err error)
}

// EnrollmentChecker answers whether a learner is enrolled in a course.
type EnrollmentChecker interface {
	IsEnrolled(ctx context.Context, userID, courseID uuid.UUID) (bool, error)
}

// AchievementNotifier hands a finished attempt off for achievement checking.
// Best-effort: a failure is logged, never surfaced to the learner.
type AchievementNotifier interface {
	Enqueue(ctx context.Context, job AchievementJob) error
}

const (
	startLockTTL      = 10 * time.Second
	submitRetryBudget = 5 * time.Second
)

type AttemptManager struct {
	catalog      QuizCatalog
	attempts     AttemptStore
	enrollments  EnrollmentChecker
	locks        TTLStore
	achievements AchievementNotifier
	reclaimer    *Reclaimer
	now          func() time.Time
}

func NewAttemptManager(
	catalog QuizCatalog,
	attempts AttemptStore,
	enrollments EnrollmentChecker,
	locks TTLStore,
	achievements AchievementNotifier,
	reclaimer *Reclaimer,
) *AttemptManager {
	return &AttemptManager{
		catalog:      catalog,
		attempts:     attempts,
		enrollments:  enrollments,
		locks:        locks,
		achievements: achievements,
		reclaimer:    reclaimer,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// StartOrResume returns the learner's open attempt on the quiz, or creates a
// new one if none is open and the attempt budget is not exhausted. Elapsed
// wall-clock time on a resumed attempt keeps counting against the limit.
func (m *AttemptManager) StartOrResume(ctx context.Context, quizID, userID uuid.UUID, role string) (*models.StartAttemptResult, error) {
	quiz, err := m.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Quiz not found"}
		}
		return nil, err
	}

	questions, err := m.catalog.GetQuestions(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, &EmptyQuizError{}
	}

	if role == models.RoleLearner {
		enrolled, err := m.enrollments.IsEnrolled(ctx, userID, quiz.CourseID)
		if err != nil {
			return nil, err
		}
		if !enrolled {
			return nil, &ForbiddenError{Message: "You must be enrolled in this course to take the quiz"}
		}
	}

	now := m.now()

	// Reclaim this pair's expired open attempt inline so the learner gets a
	// fresh slot immediately instead of waiting for the next background sweep.
	if _, err := m.reclaimer.ReclaimFor(ctx, quizID, userID, now); err != nil {
		log.Printf("attempt start: scoped reclaim failed for user %s quiz %s: %v", userID, quizID, err)
	}

	// Short-lived lock so two concurrent starts for the same pair serialize.
	// The partial unique index on open attempts is the authoritative guard;
	// the lock just avoids burning an attempt number on the loser.
	lockKey := fmt.Sprintf("attempt_start:%s:%s", userID, quizID)
	locked, err := m.locks.SetNX(ctx, lockKey, "1", startLockTTL)
	if err != nil {
		log.Printf("attempt start: lock acquire failed for %s: %v", lockKey, err)
	}
	if locked {
		defer m.locks.Delete(context.WithoutCancel(ctx), lockKey)
	}

	attempts, err := m.attempts.ListByUserAndQuiz(ctx, quizID, userID)
	if err != nil {
		return nil, err
	}

	completed := 0
	var open *models.QuizAttempt
	for i := range attempts {
		if attempts[i].IsOpen() {
			open = &attempts[i]
		} else {
			completed++
		}
	}

	if open != nil {
		return m.startResult(quiz, questions, open, true, quiz.MaxAttempts-completed, now), nil
	}

	next := completed + 1
	if next > quiz.MaxAttempts {
		return nil, &AttemptsExhaustedError{MaxAttempts: quiz.MaxAttempts}
	}

	attempt := &models.QuizAttempt{
		ID:            uuid.New(),
		QuizID:        quizID,
		UserID:        userID,
		AttemptNumber: next,
		StartedAt:     now,
	}
	if err := m.attempts.Create(ctx, attempt); err != nil {
		if errors.Is(err, repository.ErrOpenAttemptExists) {
			// Lost a concurrent start. Resume the winner's attempt.
			return m.resumeAfterConflict(ctx, quiz, questions, userID, now)
		}
		return nil, err
	}

	return m.startResult(quiz, questions, attempt, false, quiz.MaxAttempts-completed-1, now), nil
}

func (m *AttemptManager) resumeAfterConflict(ctx context.Context, quiz *models.Quiz, questions []models.Question, userID uuid.UUID, now time.Time) (*models.StartAttemptResult, error) {
	attempts, err := m.attempts.ListByUserAndQuiz(ctx, quiz.ID, userID)
	if err != nil {
		return nil, err
	}
	completed := 0
	var open *models.QuizAttempt
	for i := range attempts {
		if attempts[i].IsOpen() {
			open = &attempts[i]
		} else {
			completed++
		}
	}
	if open == nil {
		return nil, &ConflictError{Message: "Could not start the attempt, please try again"}
	}
	return m.startResult(quiz, questions, open, true, quiz.MaxAttempts-completed, now), nil
}

func (m *AttemptManager) startResult(quiz *models.Quiz, questions []models.Question, attempt *models.QuizAttempt, ongoing bool, remaining int, now time.Time) *models.StartAttemptResult {
	if remaining < 0 {
		remaining = 0
	}

	sort.Slice(questions, func(i, j int) bool { return questions[i].Position < questions[j].Position })
	learnerQs := make([]models.LearnerQuestion, 0, len(questions))
	for _, q := range questions {
		learnerQs = append(learnerQs, q.LearnerView())
	}

	res := &models.StartAttemptResult{
		AttemptID:         attempt.ID,
		AttemptNumber:     attempt.AttemptNumber,
		StartedAt:         attempt.StartedAt,
		IsOngoing:         ongoing,
		RemainingAttempts: remaining,
		TimeLimitMinutes:  quiz.TimeLimitMinutes,
		Questions:         learnerQs,
	}

	// Advisory only: drives the countdown display, never blocks submission.
	if quiz.TimeLimitMinutes != nil {
		left := *quiz.TimeLimitMinutes*60 - int(now.Sub(attempt.StartedAt).Seconds())
		if left < 0 {
			left = 0
		}
		res.RemainingSeconds = &left
	}
	return res
}

// Submit grades and closes an open attempt. The answer rows and the attempt
// closure commit as one transaction; on failure the attempt stays open so the
// learner can retry the whole submission. Late submissions are accepted and
// scored the same as on-time ones.
func (m *AttemptManager) Submit(ctx context.Context, attemptID, userID uuid.UUID, answers []models.SubmittedAnswer, submittedAt time.Time) (*models.SubmitAttemptResult, error) {
	attempt, err := m.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Attempt not found"}
		}
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, &NotFoundError{Message: "Attempt not found"}
	}
	if !attempt.IsOpen() {
		return nil, &AlreadySubmittedError{}
	}

	quiz, err := m.catalog.GetQuiz(ctx, attempt.QuizID)
	if err != nil {
		return nil, err
	}
	questions, err := m.catalog.GetQuestions(ctx, attempt.QuizID)
	if err != nil {
		return nil, err
	}

	if err := validateAnswers(questions, answers); err != nil {
		return nil, err
	}

	report := ScoreAttempt(questions, answers, quiz.PassingScorePercent)

	timeSpent := int(submittedAt.Sub(attempt.StartedAt).Seconds())
	finalized := *attempt
	finalized.EndedAt = &submittedAt
	finalized.Score = &report.EarnedPoints
	finalized.TotalPoints = &report.TotalPoints
	finalized.PercentageScore = &report.PercentageScore
	finalized.IsPassed = &report.Passed
	finalized.TimeSpentSeconds = &timeSpent

	rows := make([]models.UserAnswer, 0, len(report.Answers))
	for _, a := range report.Answers {
		rows = append(rows, models.UserAnswer{
			AttemptID:         attemptID,
			QuestionID:        a.QuestionID,
			SelectedOptionIDs: a.SelectedOptionIDs,
			AnswerText:        a.AnswerText,
			IsCorrect:         a.IsCorrect,
			PointsEarned:      a.PointsEarned,
		})
	}

	// Retry transient storage failures at the transaction boundary. Anything
	// non-transient, including a concurrent close, fails immediately.
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxElapsedTime = submitRetryBudget
	err = backoff.Retry(func() error {
		err := m.attempts.Finalize(ctx, &finalized, rows)
		if err != nil && !repository.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		if errors.Is(err, repository.ErrAttemptClosed) {
			return nil, &AlreadySubmittedError{}
		}
		return nil, err
	}

	job := AchievementJob{
		UserID:          userID,
		QuizID:          attempt.QuizID,
		AttemptID:       attemptID,
		PercentageScore: report.PercentageScore,
		Passed:          report.Passed,
	}
	if err := m.achievements.Enqueue(ctx, job); err != nil {
		log.Printf("attempt submit: achievement enqueue failed for attempt %s: %v", attemptID, err)
	}

	return &models.SubmitAttemptResult{
		AttemptID:       attemptID,
		Score:           report.EarnedPoints,
		TotalPoints:     report.TotalPoints,
		PercentageScore: report.PercentageScore,
		IsPassed:        report.Passed,
	}, nil
}

// GetResult returns the per-question breakdown of a submitted attempt,
// including option correctness and explanations.
func (m *AttemptManager) GetResult(ctx context.Context, attemptID, userID uuid.UUID) (*models.AttemptResult, error) {
	attempt, err := m.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Attempt not found"}
		}
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, &NotFoundError{Message: "Attempt not found"}
	}
	if attempt.IsOpen() {
		return nil, &ConflictError{Message: "This attempt has not been submitted yet"}
	}

	quiz, err := m.catalog.GetQuiz(ctx, attempt.QuizID)
	if err != nil {
		return nil, err
	}
	questions, err := m.catalog.GetQuestions(ctx, attempt.QuizID)
	if err != nil {
		return nil, err
	}
	answers, err := m.attempts.ListAnswers(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	byQuestion := make(map[uuid.UUID]models.UserAnswer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	sort.Slice(questions, func(i, j int) bool { return questions[i].Position < questions[j].Position })
	results := make([]models.QuestionResult, 0, len(questions))
	for _, q := range questions {
		qr := models.QuestionResult{
			QuestionID:  q.ID,
			Text:        q.Text,
			Type:        q.Type,
			Points:      q.Points,
			Explanation: q.Explanation,
			Options:     q.Options,
		}
		if a, ok := byQuestion[q.ID]; ok {
			qr.Answered = true
			qr.SelectedOptionIDs = a.SelectedOptionIDs
			qr.AnswerText = a.AnswerText
			qr.IsCorrect = a.IsCorrect
			qr.PointsEarned = a.PointsEarned
		}
		results = append(results, qr)
	}

	return &models.AttemptResult{
		Attempt:   *attempt,
		QuizTitle: quiz.Title,
		Questions: results,
	}, nil
}

func validateAnswers(questions []models.Question, answers []models.SubmittedAnswer) error {
	known := make(map[uuid.UUID]bool, len(questions))
	for _, q := range questions {
		known[q.ID] = true
	}
	fields := make(map[string]string)
	for i, a := range answers {
		if a.QuestionID == uuid.Nil {
			fields[fmt.Sprintf("answers[%d].question_id", i)] = "Question ID is required"
			continue
		}
		if !known[a.QuestionID] {
			fields[fmt.Sprintf("answers[%d].question_id", i)] = "Question does not belong to this quiz"
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
