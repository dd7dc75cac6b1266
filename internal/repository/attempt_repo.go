package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"learnsphere-backend/internal/models"
)

// The partial unique index behind the single-open-attempt invariant; Create
// maps its violation to ErrOpenAttemptExists.
const openAttemptIndex = "quiz_attempts_one_open_per_user_quiz"

// AttemptRepo owns all writes to quiz_attempts and user_answers. Learner-
// facing read paths never write these tables.
type AttemptRepo struct {
	pool *pgxpool.Pool
}

func NewAttemptRepo(pool *pgxpool.Pool) *AttemptRepo {
	return &AttemptRepo{pool: pool}
}

const attemptColumns = `id, quiz_id, user_id, attempt_number, started_at, ended_at,
	score, total_points, percentage_score, is_passed, time_spent_seconds`

func scanAttempt(row pgx.Row, a *models.QuizAttempt) error {
	return row.Scan(
		&a.ID, &a.QuizID, &a.UserID, &a.AttemptNumber, &a.StartedAt, &a.EndedAt,
		&a.Score, &a.TotalPoints, &a.PercentageScore, &a.IsPassed, &a.TimeSpentSeconds,
	)
}

func (r *AttemptRepo) ListByUserAndQuiz(ctx context.Context, quizID, userID uuid.UUID) ([]models.QuizAttempt, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+attemptColumns+`
		FROM quiz_attempts
		WHERE quiz_id = $1 AND user_id = $2
		ORDER BY attempt_number
	`, quizID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []models.QuizAttempt
	for rows.Next() {
		a := models.QuizAttempt{}
		if err := scanAttempt(rows, &a); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func (r *AttemptRepo) Create(ctx context.Context, a *models.QuizAttempt) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO quiz_attempts (id, quiz_id, user_id, attempt_number, started_at)
		VALUES ($1, $2, $3, $4, $5)
	`, a.ID, a.QuizID, a.UserID, a.AttemptNumber, a.StartedAt)
	if isUniqueViolation(err, openAttemptIndex) {
		return ErrOpenAttemptExists
	}
	return err
}

func (r *AttemptRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.QuizAttempt, error) {
	a := &models.QuizAttempt{}
	err := scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM quiz_attempts WHERE id = $1`, id), a)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Finalize closes an attempt and writes its answer rows in one transaction.
// The UPDATE's ended_at IS NULL guard makes submission one-way: closing an
// already-closed attempt reports ErrAttemptClosed and changes nothing.
func (r *AttemptRepo) Finalize(ctx context.Context, a *models.QuizAttempt, answers []models.UserAnswer) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE quiz_attempts
		SET ended_at = $1, score = $2, total_points = $3, percentage_score = $4,
			is_passed = $5, time_spent_seconds = $6
		WHERE id = $7 AND ended_at IS NULL
	`, a.EndedAt, a.Score, a.TotalPoints, a.PercentageScore, a.IsPassed, a.TimeSpentSeconds, a.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAttemptClosed
	}

	for _, ans := range answers {
		_, err := tx.Exec(ctx, `
			INSERT INTO user_answers (attempt_id, question_id, selected_option_ids, answer_text, is_correct, points_earned)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, ans.AttemptID, ans.QuestionID, ans.SelectedOptionIDs, ans.AnswerText, ans.IsCorrect, ans.PointsEarned)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *AttemptRepo) ListAnswers(ctx context.Context, attemptID uuid.UUID) ([]models.UserAnswer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT attempt_id, question_id, selected_option_ids, answer_text, is_correct, points_earned
		FROM user_answers
		WHERE attempt_id = $1
	`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []models.UserAnswer
	for rows.Next() {
		a := models.UserAnswer{}
		if err := rows.Scan(&a.AttemptID, &a.QuestionID, &a.SelectedOptionIDs, &a.AnswerText, &a.IsCorrect, &a.PointsEarned); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

const openAttemptQuery = `
	SELECT a.id, a.quiz_id, a.user_id, a.started_at, q.time_limit_minutes
	FROM quiz_attempts a
	JOIN quizzes q ON q.id = a.quiz_id
	WHERE a.ended_at IS NULL`

func (r *AttemptRepo) ListOpen(ctx context.Context) ([]models.OpenAttempt, error) {
	rows, err := r.pool.Query(ctx, openAttemptQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOpenAttempts(rows)
}

func (r *AttemptRepo) ListOpenByUserAndQuiz(ctx context.Context, quizID, userID uuid.UUID) ([]models.OpenAttempt, error) {
	rows, err := r.pool.Query(ctx, openAttemptQuery+` AND a.quiz_id = $1 AND a.user_id = $2`, quizID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOpenAttempts(rows)
}

func collectOpenAttempts(rows pgx.Rows) ([]models.OpenAttempt, error) {
	var open []models.OpenAttempt
	for rows.Next() {
		a := models.OpenAttempt{}
		if err := rows.Scan(&a.AttemptID, &a.QuizID, &a.UserID, &a.StartedAt, &a.TimeLimitMinutes); err != nil {
			return nil, err
		}
		open = append(open, a)
	}
	return open, rows.Err()
}

// Delete removes an attempt; user_answers rows go with it via the cascading
// foreign key.
func (r *AttemptRepo) Delete(ctx context.Context, attemptID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM quiz_attempts WHERE id = $1", attemptID)
	return err
}

func (r *AttemptRepo) CountByQuiz(ctx context.Context, quizID uuid.UUID) (open, completed int, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE ended_at IS NULL),
			COUNT(*) FILTER (WHERE ended_at IS NOT NULL)
		FROM quiz_attempts
		WHERE quiz_id = $1
	`, quizID).Scan(&open, &completed)
	return open, completed, err
}
