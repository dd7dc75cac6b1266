package services

import (
	"testing"

	"github.com/google/uuid"

	"learnsphere-backend/internal/models"
)

func makeQuestion(qType models.QuestionType, points float64, correct ...bool) models.Question {
	q := models.Question{
		ID:     uuid.New(),
		Type:   qType,
		Points: points,
	}
	for i, c := range correct {
		q.Options = append(q.Options, models.AnswerOption{
			ID:        uuid.New(),
			IsCorrect: c,
			Position:  i,
		})
	}
	return q
}

func optionIDs(q models.Question, correct bool) []uuid.UUID {
	var ids []uuid.UUID
	for _, o := range q.Options {
		if o.IsCorrect == correct {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

func TestScoreSingleChoice(t *testing.T) {
	q := makeQuestion(models.QuestionSingleChoice, 5, false, true, false)
	correct := optionIDs(q, true)[0]
	wrong := optionIDs(q, false)[0]

	tests := []struct {
		name     string
		selected []uuid.UUID
		want     float64
	}{
		{"correct option", []uuid.UUID{correct}, 5},
		{"wrong option", []uuid.UUID{wrong}, 0},
		{"nothing selected", nil, 0},
		{"multiple selected", []uuid.UUID{correct, wrong}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			report := ScoreAttempt([]models.Question{q}, []models.SubmittedAnswer{
				{QuestionID: q.ID, SelectedOptionIDs: tc.selected},
			}, 70)
			if report.EarnedPoints != tc.want {
				t.Errorf("Expected %v points, got %v", tc.want, report.EarnedPoints)
			}
		})
	}
}

func TestScoreTrueFalse(t *testing.T) {
	q := makeQuestion(models.QuestionTrueFalse, 2, true, false)
	report := ScoreAttempt([]models.Question{q}, []models.SubmittedAnswer{
		{QuestionID: q.ID, SelectedOptionIDs: optionIDs(q, true)},
	}, 70)
	if report.EarnedPoints != 2 {
		t.Errorf("Expected 2 points, got %v", report.EarnedPoints)
	}
}

func TestScoreMultipleChoiceExactSet(t *testing.T) {
	// Correct set {A, B, C} plus one distractor.
	q := makeQuestion(models.QuestionMultipleChoice, 10, true, true, true, false)
	correct := optionIDs(q, true)
	wrong := optionIDs(q, false)[0]

	tests := []struct {
		name     string
		selected []uuid.UUID
		want     float64
	}{
		{"exact correct set", correct, 10},
		{"omission scores zero", correct[:2], 0},
		{"extra selection scores zero", append(append([]uuid.UUID{}, correct...), wrong), 0},
		{"only distractor", []uuid.UUID{wrong}, 0},
		{"empty selection", nil, 0},
		{"duplicated correct ids still full", append(append([]uuid.UUID{}, correct...), correct[0]), 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			report := ScoreAttempt([]models.Question{q}, []models.SubmittedAnswer{
				{QuestionID: q.ID, SelectedOptionIDs: tc.selected},
			}, 70)
			if report.EarnedPoints != tc.want {
				t.Errorf("Expected %v points, got %v", tc.want, report.EarnedPoints)
			}
		})
	}
}

func TestScoreMultipleChoiceNoCorrectOptions(t *testing.T) {
	// A question whose authored correct set is empty can never be earned.
	q := makeQuestion(models.QuestionMultipleChoice, 10, false, false)
	report := ScoreAttempt([]models.Question{q}, []models.SubmittedAnswer{
		{QuestionID: q.ID, SelectedOptionIDs: []uuid.UUID{q.Options[0].ID}},
	}, 70)
	if report.EarnedPoints != 0 {
		t.Errorf("Expected 0 points, got %v", report.EarnedPoints)
	}
}

func TestScoreFreeText(t *testing.T) {
	q := makeQuestion(models.QuestionFreeText, 4)

	tests := []struct {
		name string
		text string
		want float64
	}{
		{"non-empty earns full credit", "my essay answer", 4},
		{"empty earns nothing", "", 0},
		{"whitespace only earns nothing", "   \n\t", 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			report := ScoreAttempt([]models.Question{q}, []models.SubmittedAnswer{
				{QuestionID: q.ID, AnswerText: tc.text},
			}, 70)
			if report.EarnedPoints != tc.want {
				t.Errorf("Expected %v points, got %v", tc.want, report.EarnedPoints)
			}
		})
	}
}

func TestScoreAggregates(t *testing.T) {
	q1 := makeQuestion(models.QuestionSingleChoice, 5, true, false)
	q2 := makeQuestion(models.QuestionSingleChoice, 5, true, false)
	q3 := makeQuestion(models.QuestionFreeText, 10)

	t.Run("fully correct yields 100 percent", func(t *testing.T) {
		report := ScoreAttempt([]models.Question{q1, q2, q3}, []models.SubmittedAnswer{
			{QuestionID: q1.ID, SelectedOptionIDs: optionIDs(q1, true)},
			{QuestionID: q2.ID, SelectedOptionIDs: optionIDs(q2, true)},
			{QuestionID: q3.ID, AnswerText: "answer"},
		}, 70)
		if report.EarnedPoints != 20 || report.TotalPoints != 20 {
			t.Errorf("Expected 20/20, got %v/%v", report.EarnedPoints, report.TotalPoints)
		}
		if report.PercentageScore != 100 || !report.Passed {
			t.Errorf("Expected 100%% passed, got %v%% passed=%v", report.PercentageScore, report.Passed)
		}
	})

	t.Run("unanswered questions still count toward total", func(t *testing.T) {
		report := ScoreAttempt([]models.Question{q1, q2, q3}, []models.SubmittedAnswer{
			{QuestionID: q1.ID, SelectedOptionIDs: optionIDs(q1, true)},
		}, 70)
		if report.TotalPoints != 20 {
			t.Errorf("Expected total 20, got %v", report.TotalPoints)
		}
		if report.EarnedPoints != 5 {
			t.Errorf("Expected earned 5, got %v", report.EarnedPoints)
		}
		if len(report.Answers) != 1 {
			t.Errorf("Expected 1 scored answer, got %d", len(report.Answers))
		}
	})

	t.Run("percentage exactly at passing score passes", func(t *testing.T) {
		report := ScoreAttempt([]models.Question{q1, q2}, []models.SubmittedAnswer{
			{QuestionID: q1.ID, SelectedOptionIDs: optionIDs(q1, true)},
		}, 50)
		if report.PercentageScore != 50 || !report.Passed {
			t.Errorf("Expected 50%% passed, got %v%% passed=%v", report.PercentageScore, report.Passed)
		}
	})

	t.Run("zero total points yields zero percent", func(t *testing.T) {
		q := makeQuestion(models.QuestionFreeText, 0)
		report := ScoreAttempt([]models.Question{q}, []models.SubmittedAnswer{
			{QuestionID: q.ID, AnswerText: "answer"},
		}, 70)
		if report.PercentageScore != 0 {
			t.Errorf("Expected 0%%, got %v", report.PercentageScore)
		}
	})

	t.Run("duplicate submissions keep the first entry", func(t *testing.T) {
		report := ScoreAttempt([]models.Question{q1}, []models.SubmittedAnswer{
			{QuestionID: q1.ID, SelectedOptionIDs: optionIDs(q1, true)},
			{QuestionID: q1.ID, SelectedOptionIDs: optionIDs(q1, false)},
		}, 70)
		if report.EarnedPoints != 5 {
			t.Errorf("Expected 5 points from first entry, got %v", report.EarnedPoints)
		}
		if len(report.Answers) != 1 {
			t.Errorf("Expected a single scored answer, got %d", len(report.Answers))
		}
	})
}
