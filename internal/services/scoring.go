package services

import (
	"strings"

	"github.com/google/uuid"

	"learnsphere-backend/internal/models"
)

// ScoredAnswer is the grading outcome for one submitted answer.
type ScoredAnswer struct {
	QuestionID        uuid.UUID
	SelectedOptionIDs []uuid.UUID
	AnswerText        *string
	IsCorrect         bool
	PointsEarned      float64
}

// ScoreReport aggregates a whole attempt. TotalPoints sums over every quiz
// question whether or not it was answered.
type ScoreReport struct {
	EarnedPoints    float64
	TotalPoints     float64
	PercentageScore float64
	Passed          bool
	Answers         []ScoredAnswer
}

// ScoreAttempt grades a set of submitted answers against a quiz's questions.
// It is a pure function: no I/O, no clock, no hidden state.
//
// Grading rules per question type:
//   - single choice / true-false: full points iff exactly the one correct
//     option was selected, otherwise zero.
//   - multiple choice: full points iff the selected set equals the correct
//     set and that set is non-empty; any omission or extra selection zeroes
//     the question.
//   - free text: full points for any non-blank answer. Content is not graded.
//
// Unanswered questions earn nothing and produce no ScoredAnswer. A question
// answered more than once keeps only its first submitted entry.
func ScoreAttempt(questions []models.Question, answers []models.SubmittedAnswer, passingScorePercent float64) ScoreReport {
	byQuestion := make(map[uuid.UUID]models.SubmittedAnswer, len(answers))
	for _, a := range answers {
		if _, dup := byQuestion[a.QuestionID]; !dup {
			byQuestion[a.QuestionID] = a
		}
	}

	report := ScoreReport{}
	for _, q := range questions {
		report.TotalPoints += q.Points

		sub, answered := byQuestion[q.ID]
		if !answered {
			continue
		}

		scored := ScoredAnswer{QuestionID: q.ID}
		switch q.Type {
		case models.QuestionMultipleChoice:
			scored.SelectedOptionIDs = sub.SelectedOptionIDs
			scored.IsCorrect = matchesCorrectSet(q.Options, sub.SelectedOptionIDs)
		case models.QuestionSingleChoice, models.QuestionTrueFalse:
			scored.SelectedOptionIDs = sub.SelectedOptionIDs
			scored.IsCorrect = len(sub.SelectedOptionIDs) == 1 && isCorrectOption(q.Options, sub.SelectedOptionIDs[0])
		case models.QuestionFreeText:
			text := sub.AnswerText
			scored.AnswerText = &text
			// Any non-blank answer earns full credit; there is no content
			// grading for free-text questions.
			scored.IsCorrect = strings.TrimSpace(text) != ""
		}

		if scored.IsCorrect {
			scored.PointsEarned = q.Points
			report.EarnedPoints += q.Points
		}
		report.Answers = append(report.Answers, scored)
	}

	if report.TotalPoints > 0 {
		report.PercentageScore = report.EarnedPoints / report.TotalPoints * 100
	}
	report.Passed = report.PercentageScore >= passingScorePercent
	return report
}

// matchesCorrectSet reports whether selected equals, as a set, the non-empty
// set of options flagged correct.
func matchesCorrectSet(options []models.AnswerOption, selected []uuid.UUID) bool {
	correct := make(map[uuid.UUID]bool)
	for _, o := range options {
		if o.IsCorrect {
			correct[o.ID] = true
		}
	}
	if len(correct) == 0 || len(selected) == 0 {
		return false
	}

	seen := make(map[uuid.UUID]bool, len(selected))
	for _, id := range selected {
		if !correct[id] {
			return false
		}
		seen[id] = true
	}
	return len(seen) == len(correct)
}

func isCorrectOption(options []models.AnswerOption, selected uuid.UUID) bool {
	for _, o := range options {
		if o.ID == selected {
			return o.IsCorrect
		}
	}
	return false
}
