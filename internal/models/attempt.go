package models

import (
	"time"

	"github.com/google/uuid"
)

// QuizAttempt is one learner's run at a quiz. EndedAt == nil means the attempt
// is still open; the scoring fields are only populated once it closes.
type QuizAttempt struct {
	ID               uuid.UUID  `json:"id"`
	QuizID           uuid.UUID  `json:"quiz_id"`
	UserID           uuid.UUID  `json:"user_id"`
	AttemptNumber    int        `json:"attempt_number"`
	StartedAt        time.Time  `json:"started_at"`
	EndedAt          *time.Time `json:"ended_at"`
	Score            *float64   `json:"score"`
	TotalPoints      *float64   `json:"total_points"`
	PercentageScore  *float64   `json:"percentage_score"`
	IsPassed         *bool      `json:"is_passed"`
	TimeSpentSeconds *int       `json:"time_spent_seconds"`
}

func (a *QuizAttempt) IsOpen() bool { return a.EndedAt == nil }

// UserAnswer is written exactly once per answered question, at submission.
type UserAnswer struct {
	AttemptID         uuid.UUID   `json:"attempt_id"`
	QuestionID        uuid.UUID   `json:"question_id"`
	SelectedOptionIDs []uuid.UUID `json:"selected_option_ids,omitempty"`
	AnswerText        *string     `json:"answer_text,omitempty"`
	IsCorrect         bool        `json:"is_correct"`
	PointsEarned      float64     `json:"points_earned"`
}

// SubmittedAnswer is the learner's answer to one question as it arrives on
// the wire. Multi-select answers use a proper array of option IDs.
type SubmittedAnswer struct {
	QuestionID        uuid.UUID   `json:"question_id" validate:"required"`
	SelectedOptionIDs []uuid.UUID `json:"selected_option_ids"`
	AnswerText        string      `json:"answer_text"`
}

type SubmitAttemptRequest struct {
	Answers []SubmittedAnswer `json:"answers" validate:"required,dive"`
}

type StartAttemptResult struct {
	AttemptID         uuid.UUID         `json:"attempt_id"`
	AttemptNumber     int               `json:"attempt_number"`
	StartedAt         time.Time         `json:"started_at"`
	IsOngoing         bool              `json:"is_ongoing"`
	RemainingAttempts int               `json:"remaining_attempts"`
	TimeLimitMinutes  *int              `json:"time_limit_minutes"`
	RemainingSeconds  *int              `json:"remaining_seconds"`
	Questions         []LearnerQuestion `json:"questions"`
}

type SubmitAttemptResult struct {
	AttemptID       uuid.UUID `json:"attempt_id"`
	Score           float64   `json:"score"`
	TotalPoints     float64   `json:"total_points"`
	PercentageScore float64   `json:"percentage_score"`
	IsPassed        bool      `json:"is_passed"`
}

// QuestionResult is the post-submission breakdown for one question. This is
// the only learner-facing shape that exposes option correctness.
type QuestionResult struct {
	QuestionID        uuid.UUID      `json:"question_id"`
	Text              string         `json:"text"`
	Type              QuestionType   `json:"type"`
	Points            float64        `json:"points"`
	Explanation       *string        `json:"explanation"`
	Options           []AnswerOption `json:"options"`
	SelectedOptionIDs []uuid.UUID    `json:"selected_option_ids,omitempty"`
	AnswerText        *string        `json:"answer_text,omitempty"`
	Answered          bool           `json:"answered"`
	IsCorrect         bool           `json:"is_correct"`
	PointsEarned      float64        `json:"points_earned"`
}

type AttemptResult struct {
	Attempt   QuizAttempt      `json:"attempt"`
	QuizTitle string           `json:"quiz_title"`
	Questions []QuestionResult `json:"questions"`
}

// OpenAttempt pairs an open attempt with its quiz's advisory time limit, as
// loaded by the reclamation sweep.
type OpenAttempt struct {
	AttemptID        uuid.UUID
	QuizID           uuid.UUID
	UserID           uuid.UUID
	StartedAt        time.Time
	TimeLimitMinutes *int
}
