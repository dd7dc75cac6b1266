package models

import (
	"time"

	"github.com/google/uuid"
)

type QuizStatus string

const (
	QuizStatusDraft      QuizStatus = "draft"
	QuizStatusPublished  QuizStatus = "published"
	QuizStatusActive     QuizStatus = "active"
	QuizStatusInactive   QuizStatus = "inactive"
	QuizStatusArchived   QuizStatus = "archived"
	QuizStatusSuspended  QuizStatus = "suspended"
	QuizStatusCompleted  QuizStatus = "completed"
	QuizStatusInProgress QuizStatus = "in_progress"
)

type QuestionType string

const (
	QuestionSingleChoice   QuestionType = "single_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionFreeText       QuestionType = "free_text"
)

type Quiz struct {
	ID                     uuid.UUID  `json:"id"`
	CourseID               uuid.UUID  `json:"course_id"`
	AuthorID               uuid.UUID  `json:"author_id"`
	Title                  string     `json:"title"`
	Description            *string    `json:"description"`
	TimeLimitMinutes       *int       `json:"time_limit_minutes"`
	MaxAttempts            int        `json:"max_attempts"`
	PassingScorePercent    float64    `json:"passing_score_percent"`
	IsPrerequisiteQuiz     bool       `json:"is_prerequisite_quiz"`
	BlocksLessonCompletion bool       `json:"blocks_lesson_completion"`
	Status                 QuizStatus `json:"status"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// Question is the authoring/grading view. It carries correctness flags and
// explanations, so it must never be serialized to a learner before submission;
// learner-facing endpoints use LearnerQuestion instead.
type Question struct {
	ID          uuid.UUID      `json:"id"`
	QuizID      uuid.UUID      `json:"quiz_id"`
	Type        QuestionType   `json:"type"`
	Text        string         `json:"text"`
	Points      float64        `json:"points"`
	Position    int            `json:"position"`
	Explanation *string        `json:"explanation"`
	Options     []AnswerOption `json:"options"`
}

type AnswerOption struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	IsCorrect bool      `json:"is_correct"`
	Position  int       `json:"position"`
}

// LearnerQuestion is what a learner sees while taking a quiz. It has no
// IsCorrect or Explanation fields at all, so a handler cannot leak them.
type LearnerQuestion struct {
	ID       uuid.UUID       `json:"id"`
	Type     QuestionType    `json:"type"`
	Text     string          `json:"text"`
	Points   float64         `json:"points"`
	Position int             `json:"position"`
	Options  []LearnerOption `json:"options"`
}

type LearnerOption struct {
	ID       uuid.UUID `json:"id"`
	Text     string    `json:"text"`
	Position int       `json:"position"`
}

// LearnerView strips authoring-only data from a question.
func (q Question) LearnerView() LearnerQuestion {
	opts := make([]LearnerOption, 0, len(q.Options))
	for _, o := range q.Options {
		opts = append(opts, LearnerOption{ID: o.ID, Text: o.Text, Position: o.Position})
	}
	return LearnerQuestion{
		ID:       q.ID,
		Type:     q.Type,
		Text:     q.Text,
		Points:   q.Points,
		Position: q.Position,
		Options:  opts,
	}
}

type UpdateQuizStatusRequest struct {
	Status QuizStatus `json:"status" validate:"required"`
}
