package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"learnsphere-backend/internal/models"
)

// QuizRepo reads quiz, question, and option definitions. These rows are owned
// by the authoring subsystem; the only write this engine performs is the
// status column.
type QuizRepo struct {
	pool *pgxpool.Pool
}

func NewQuizRepo(pool *pgxpool.Pool) *QuizRepo {
	return &QuizRepo{pool: pool}
}

func (r *QuizRepo) GetQuiz(ctx context.Context, id uuid.UUID) (*models.Quiz, error) {
	q := &models.Quiz{}
	query := `SELECT q.id, q.course_id, c.author_id, q.title, q.description, q.time_limit_minutes,
			q.max_attempts, q.passing_score_percent, q.is_prerequisite_quiz,
			q.blocks_lesson_completion, q.status, q.created_at, q.updated_at
		FROM quizzes q
		JOIN courses c ON c.id = q.course_id
		WHERE q.id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&q.ID, &q.CourseID, &q.AuthorID, &q.Title, &q.Description, &q.TimeLimitMinutes,
		&q.MaxAttempts, &q.PassingScorePercent, &q.IsPrerequisiteQuiz,
		&q.BlocksLessonCompletion, &q.Status, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// GetQuestions returns a quiz's questions with their options, in authoring
// order. Callers decide which projection to expose.
func (r *QuizRepo) GetQuestions(ctx context.Context, quizID uuid.UUID) ([]models.Question, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, quiz_id, question_type, question_text, points, position, explanation
		FROM questions
		WHERE quiz_id = $1
		ORDER BY position, id
	`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []models.Question
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		q := models.Question{}
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Type, &q.Text, &q.Points, &q.Position, &q.Explanation); err != nil {
			return nil, err
		}
		index[q.ID] = len(questions)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, nil
	}

	optRows, err := r.pool.Query(ctx, `
		SELECT o.id, o.question_id, o.option_text, o.is_correct, o.position
		FROM answer_options o
		JOIN questions q ON q.id = o.question_id
		WHERE q.quiz_id = $1
		ORDER BY o.position, o.id
	`, quizID)
	if err != nil {
		return nil, err
	}
	defer optRows.Close()

	for optRows.Next() {
		var questionID uuid.UUID
		o := models.AnswerOption{}
		if err := optRows.Scan(&o.ID, &questionID, &o.Text, &o.IsCorrect, &o.Position); err != nil {
			return nil, err
		}
		if i, ok := index[questionID]; ok {
			questions[i].Options = append(questions[i].Options, o)
		}
	}
	if err := optRows.Err(); err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *QuizRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.QuizStatus) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE quizzes SET status = $1, updated_at = NOW() WHERE id = $2",
		status, id,
	)
	return err
}
