package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"learnsphere-backend/internal/models"
	"learnsphere-backend/internal/repository"
)

// ─── Fakes ───

type fakeCatalog struct {
	quiz      *models.Quiz
	questions []models.Question
}

func (f *fakeCatalog) GetQuiz(ctx context.Context, id uuid.UUID) (*models.Quiz, error) {
	if f.quiz == nil || f.quiz.ID != id {
		return nil, pgx.ErrNoRows
	}
	q := *f.quiz
	return &q, nil
}

func (f *fakeCatalog) GetQuestions(ctx context.Context, quizID uuid.UUID) ([]models.Question, error) {
	return append([]models.Question(nil), f.questions...), nil
}

func (f *fakeCatalog) UpdateStatus(ctx context.Context, id uuid.UUID, status models.QuizStatus) error {
	f.quiz.Status = status
	return nil
}

type fakeAttemptStore struct {
	mu           sync.Mutex
	attempts     map[uuid.UUID]*models.QuizAttempt
	answers      map[uuid.UUID][]models.UserAnswer
	timeLimits   map[uuid.UUID]*int
	createErrs   []error
	finalizeErrs []error
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{
		attempts:   make(map[uuid.UUID]*models.QuizAttempt),
		answers:    make(map[uuid.UUID][]models.UserAnswer),
		timeLimits: make(map[uuid.UUID]*int),
	}
}

func (f *fakeAttemptStore) ListByUserAndQuiz(ctx context.Context, quizID, userID uuid.UUID) ([]models.QuizAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.QuizAttempt
	for _, a := range f.attempts {
		if a.QuizID == quizID && a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAttemptStore) Create(ctx context.Context, a *models.QuizAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		return err
	}
	for _, existing := range f.attempts {
		if existing.QuizID == a.QuizID && existing.UserID == a.UserID && existing.IsOpen() {
			return repository.ErrOpenAttemptExists
		}
	}
	cp := *a
	f.attempts[a.ID] = &cp
	return nil
}

func (f *fakeAttemptStore) GetByID(ctx context.Context, id uuid.UUID) (*models.QuizAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAttemptStore) Finalize(ctx context.Context, a *models.QuizAttempt, answers []models.UserAnswer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.finalizeErrs) > 0 {
		err := f.finalizeErrs[0]
		f.finalizeErrs = f.finalizeErrs[1:]
		return err
	}
	stored, ok := f.attempts[a.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if !stored.IsOpen() {
		return repository.ErrAttemptClosed
	}
	cp := *a
	f.attempts[a.ID] = &cp
	f.answers[a.ID] = append([]models.UserAnswer(nil), answers...)
	return nil
}

func (f *fakeAttemptStore) ListAnswers(ctx context.Context, attemptID uuid.UUID) ([]models.UserAnswer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.UserAnswer(nil), f.answers[attemptID]...), nil
}

func (f *fakeAttemptStore) ListOpen(ctx context.Context) ([]models.OpenAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.OpenAttempt
	for _, a := range f.attempts {
		if a.IsOpen() {
			out = append(out, models.OpenAttempt{
				AttemptID:        a.ID,
				QuizID:           a.QuizID,
				UserID:           a.UserID,
				StartedAt:        a.StartedAt,
				TimeLimitMinutes: f.timeLimits[a.QuizID],
			})
		}
	}
	return out, nil
}

func (f *fakeAttemptStore) ListOpenByUserAndQuiz(ctx context.Context, quizID, userID uuid.UUID) ([]models.OpenAttempt, error) {
	all, _ := f.ListOpen(ctx)
	var out []models.OpenAttempt
	for _, a := range all {
		if a.QuizID == quizID && a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAttemptStore) Delete(ctx context.Context, attemptID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.attempts, attemptID)
	delete(f.answers, attemptID)
	return nil
}

func (f *fakeAttemptStore) CountByQuiz(ctx context.Context, quizID uuid.UUID) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	open, completed := 0, 0
	for _, a := range f.attempts {
		if a.QuizID != quizID {
			continue
		}
		if a.IsOpen() {
			open++
		} else {
			completed++
		}
	}
	return open, completed, nil
}

type fakeEnrollments struct{ enrolled bool }

func (f *fakeEnrollments) IsEnrolled(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	return f.enrolled, nil
}

type fakeLocks struct {
	mu   sync.Mutex
	keys map[string]string
}

func (f *fakeLocks) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys == nil {
		f.keys = make(map[string]string)
	}
	if _, ok := f.keys[key]; ok {
		return false, nil
	}
	f.keys[key] = value
	return true, nil
}

func (f *fakeLocks) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keys[key], nil
}

func (f *fakeLocks) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, key)
	return nil
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []AchievementJob
}

func (f *fakeQueue) Enqueue(ctx context.Context, job AchievementJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return nil
}

// ─── Harness ───

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	manager *AttemptManager
	catalog *fakeCatalog
	store   *fakeAttemptStore
	queue   *fakeQueue
	quiz    *models.Quiz
	userID  uuid.UUID
}

func newHarness(t *testing.T, maxAttempts int, passing float64, timeLimit *int, questions ...models.Question) *harness {
	t.Helper()

	quiz := &models.Quiz{
		ID:                  uuid.New(),
		CourseID:            uuid.New(),
		AuthorID:            uuid.New(),
		Title:               "Networks 101 final",
		TimeLimitMinutes:    timeLimit,
		MaxAttempts:         maxAttempts,
		PassingScorePercent: passing,
		Status:              models.QuizStatusActive,
	}

	catalog := &fakeCatalog{quiz: quiz, questions: questions}
	store := newFakeAttemptStore()
	store.timeLimits[quiz.ID] = timeLimit
	queue := &fakeQueue{}

	reclaimer := NewReclaimer(store, 60*time.Minute, 30*time.Minute)
	manager := NewAttemptManager(catalog, store, &fakeEnrollments{enrolled: true}, &fakeLocks{}, queue, reclaimer)
	manager.now = func() time.Time { return testNow }

	return &harness{
		manager: manager,
		catalog: catalog,
		store:   store,
		queue:   queue,
		quiz:    quiz,
		userID:  uuid.New(),
	}
}

func answerAll(questions []models.Question, correct bool) []models.SubmittedAnswer {
	var answers []models.SubmittedAnswer
	for _, q := range questions {
		a := models.SubmittedAnswer{QuestionID: q.ID}
		switch q.Type {
		case models.QuestionFreeText:
			if correct {
				a.AnswerText = "an answer"
			}
		default:
			for _, o := range q.Options {
				if o.IsCorrect == correct {
					a.SelectedOptionIDs = append(a.SelectedOptionIDs, o.ID)
					if q.Type != models.QuestionMultipleChoice {
						break
					}
				}
			}
		}
		answers = append(answers, a)
	}
	return answers
}

// ─── StartOrResume ───

func TestStartCreatesFirstAttempt(t *testing.T) {
	h := newHarness(t, 3, 70, nil, makeQuestion(models.QuestionSingleChoice, 5, true, false))

	res, err := h.manager.StartOrResume(context.Background(), h.quiz.ID, h.userID, models.RoleLearner)
	if err != nil {
		t.Fatalf("StartOrResume failed: %v", err)
	}

	if res.AttemptNumber != 1 {
		t.Errorf("Expected attempt number 1, got %d", res.AttemptNumber)
	}
	if res.IsOngoing {
		t.Error("Expected a fresh attempt, got an ongoing one")
	}
	if res.RemainingAttempts != 2 {
		t.Errorf("Expected 2 remaining attempts, got %d", res.RemainingAttempts)
	}
	if len(res.Questions) != 1 {
		t.Fatalf("Expected 1 question, got %d", len(res.Questions))
	}
	if !res.StartedAt.Equal(testNow) {
		t.Errorf("Expected start time %v, got %v", testNow, res.StartedAt)
	}
}

func TestStartResumesOpenAttempt(t *testing.T) {
	h := newHarness(t, 3, 70, nil, makeQuestion(models.QuestionSingleChoice, 5, true, false))

	first, err := h.manager.StartOrResume(context.Background(), h.quiz.ID, h.userID, models.RoleLearner)
	if err != nil {
		t.Fatalf("first start failed: %v", err)
	}

	second, err := h.manager.StartOrResume(context.Background(), h.quiz.ID, h.userID, models.RoleLearner)
	if err != nil {
		t.Fatalf("second start failed: %v", err)
	}

	if !second.IsOngoing {
		t.Error("Expected resume to report is_ongoing")
	}
	if second.AttemptID != first.AttemptID {
		t.Errorf("Expected same attempt %s, got %s", first.AttemptID, second.AttemptID)
	}
	if !second.StartedAt.Equal(first.StartedAt) {
		t.Error("Resume must not reset the start time")
	}
	if second.RemainingAttempts != 3 {
		t.Errorf("Expected 3 remaining (open attempt not yet consumed), got %d", second.RemainingAttempts)
	}
}

func TestStartEmptyQuiz(t *testing.T) {
	h := newHarness(t, 3, 70, nil)

	_, err := h.manager.StartOrResume(context.Background(), h.quiz.ID, h.userID, models.RoleLearner)
	var emptyErr *EmptyQuizError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("Expected EmptyQuizError, got %v", err)
	}
}

func TestStartQuizNotFound(t *testing.T) {
	h := newHarness(t, 3, 70, nil, makeQuestion(models.QuestionSingleChoice, 5, true, false))

	_, err := h.manager.StartOrResume(context.Background(), uuid.New(), h.userID, models.RoleLearner)
	var nfErr *NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
}

func TestStartRequiresEnrollmentForLearners(t *testing.T) {
	h := newHarness(t, 3, 70, nil, makeQuestion(models.QuestionSingleChoice, 5, true, false))
	h.manager.enrollments = &fakeEnrollments{enrolled: false}

	_, err := h.manager.StartOrResume(context.Background(), h.quiz.ID, h.userID, models.RoleLearner)
	var fbErr *ForbiddenError
	if !errors.As(err, &fbErr) {
		t.Fatalf("Expected ForbiddenError for unenrolled learner, got %v", err)
	}

	// Instructors preview without enrollment.
	if _, err := h.manager.StartOrResume(context.Background(), h.quiz.ID, h.userID, models.RoleInstructor); err != nil {
		t.Fatalf("Expected instructor start to succeed, got %v", err)
	}
}

func TestStartAttemptsExhausted(t *testing.T) {
	h := newHarness(t, 1, 70, nil, makeQuestion(models.QuestionSingleChoice, 5, true, false))

	ended := testNow.Add(-time.Hour)
	score := 5.0
	h.store.attempts[uuid.New()] = &models.QuizAttempt{
		ID: uuid.New(), QuizID: h.quiz.ID, UserID: h.userID,
		AttemptNumber: 1, StartedAt: ended.Add(-10 * time.Minute), EndedAt: &ended, Score: &score,
	}

	_, err := h.manager.StartOrResume(context.Background(), h.quiz.ID, h.userID, models.RoleLearner)
	var exhausted *AttemptsExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("Expected AttemptsExhaustedError, got %v", err)
	}
	if exhausted.MaxAttempts != 1 {
		t.Errorf("Expected max attempts 1 in error, got %d", exhausted.MaxAttempts)
	}
}

func TestStartReclaimsExpiredOpenAttempt(t *testing.T) {
	limit := 30
	h := newHarness(t, 3, 70, &limit, makeQuestion(models.QuestionSingleChoice, 5, true, false))

	// Open attempt started well past limit + grace.
	staleID := uuid.New()
	h.store.attempts[staleID] = &models.QuizAttempt{
		ID: staleID, QuizID: h.quiz.ID, UserID: h.userID,
		AttemptNumber: 1, StartedAt: testNow.Add(-2 * time.Hour),
	}

	res, err := h.manager.StartOrResume(context.Background(), h.quiz.ID, h.userID, models.RoleLearner)
	if err != nil {
		t.Fatalf("StartOrResume failed: %v", err)
	}

	if res.IsOngoing {
		t.Error("Expected the stale attempt to be reclaimed, not resumed")
	}
	if res.AttemptID == staleID {
		t.Error("Expected a fresh attempt ID")
	}
	// The reclaimed attempt frees its slot: the new one reuses number 1.
	if res.AttemptNumber != 1 {
		t.Errorf("Expected attempt number 1 after reclamation, got %d", res.AttemptNumber)
	}
	if _, err := h.store.GetByID(context.Background(), staleID); !errors.Is(err, pgx.ErrNoRows) {
		t.Error("Expected the stale attempt to be deleted")
	}
}

func TestStartConflictResumesWinner(t *testing.T) {
	h := newHarness(t, 3, 70, nil, makeQuestion(models.QuestionSingleChoice, 5, true, false))

	// The insert loses a race; by the time we re-read, the winner's open
	// attempt exists.
	winnerID := uuid.New()
	h.store.createErrs = []error{repository.ErrOpenAttemptExists}
	h.store.attempts[winnerID] = &models.QuizAttempt{
		ID: winnerID, QuizID: h.quiz.ID, UserID: h.userID,
		AttemptNumber: 1, StartedAt: testNow.Add(-time.Minute),
	}

	res, err := h.manager.StartOrResume(context.Background(), h.quiz.ID, h.userID, models.RoleLearner)
	if err != nil {
		t.Fatalf("StartOrResume failed: %v", err)
	}
	if !res.IsOngoing || res.AttemptID != winnerID {
		t.Errorf("Expected to resume winner attempt %s, got %s (ongoing=%v)", winnerID, res.AttemptID, res.IsOngoing)
	}
}

func TestStartRemainingTime(t *testing.T) {
	limit := 30
	h := newHarness(t, 3, 70, &limit, makeQuestion(models.QuestionSingleChoice, 5, true, false))

	openID := uuid.New()
	h.store.attempts[openID] = &models.QuizAttempt{
		ID: openID, QuizID: h.quiz.ID, UserID: h.userID,
		AttemptNumber: 1, StartedAt: testNow.Add(-10 * time.Minute),
	}

	res, err := h.manager.StartOrResume(context.Background(), h.quiz.ID, h.userID, models.RoleLearner)
	if err != nil {
		t.Fatalf("StartOrResume failed: %v", err)
	}
	if res.RemainingSeconds == nil || *res.RemainingSeconds != 20*60 {
		t.Errorf("Expected 1200 remaining seconds, got %v", res.RemainingSeconds)
	}
}

// ─── Submit ───

func TestSubmitGradesAndCloses(t *testing.T) {
	q1 := makeQuestion(models.QuestionSingleChoice, 5, true, false)
	q2 := makeQuestion(models.QuestionFreeText, 5)
	h := newHarness(t, 3, 70, nil, q1, q2)

	start, err := h.manager.StartOrResume(context.Background(), h.quiz.ID, h.userID, models.RoleLearner)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	submittedAt := testNow.Add(12 * time.Minute)
	res, err := h.manager.Submit(context.Background(), start.AttemptID, h.userID,
		answerAll([]models.Question{q1, q2}, true), submittedAt)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if res.Score != 10 || res.TotalPoints != 10 || res.PercentageScore != 100 || !res.IsPassed {
		t.Errorf("Unexpected result: %+v", res)
	}

	stored, _ := h.store.GetByID(context.Background(), start.AttemptID)
	if stored.IsOpen() {
		t.Fatal("Expected attempt to be closed")
	}
	if stored.TimeSpentSeconds == nil || *stored.TimeSpentSeconds != 12*60 {
		t.Errorf("Expected 720s spent, got %v", stored.TimeSpentSeconds)
	}

	answers, _ := h.store.ListAnswers(context.Background(), start.AttemptID)
	if len(answers) != 2 {
		t.Errorf("Expected 2 answer rows, got %d", len(answers))
	}

	if len(h.queue.jobs) != 1 {
		t.Fatalf("Expected 1 achievement job, got %d", len(h.queue.jobs))
	}
	job := h.queue.jobs[0]
	if job.UserID != h.userID || job.QuizID != h.quiz.ID || !job.Passed {
		t.Errorf("Unexpected achievement job: %+v", job)
	}
}

func TestSubmitUnansweredQuestionsGetNoRow(t *testing.T) {
	q1 := makeQuestion(models.QuestionSingleChoice, 5, true, false)
	q2 := makeQuestion(models.QuestionSingleChoice, 5, true, false)
	h := newHarness(t, 3, 70, nil, q1, q2)

	start, _ := h.manager.StartOrResume(context.Background(), h.quiz.ID, h.userID, models.RoleLearner)
	res, err := h.manager.Submit(context.Background(), start.AttemptID, h.userID,
		answerAll([]models.Question{q1}, true), testNow.Add(time.Minute))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if res.TotalPoints != 10 || res.Score != 5 {
		t.Errorf("Expected 5/10, got %v/%v", res.Score, res.TotalPoints)
	}
	answers, _ := h.store.ListAnswers(context.Background(), start.AttemptID)
	if len(answers) != 1 {
		t.Errorf("Expected 1 answer row for the answered question, got %d", len(answers))
	}
}

func TestSubmitAlreadySubmitted(t *testing.T) {
	q := makeQuestion(models.QuestionSingleChoice, 5, true, false)
	h := newHarness(t, 3, 70, nil, q)

	start, _ := h.manager.StartOrResume(context.Background(), h.quiz.ID, h.userID, models.RoleLearner)
	first, err := h.manager.Submit(context.Background(), start.AttemptID, h.userID,
		answerAll([]models.Question{q}, true), testNow.Add(time.Minute))
	if err != nil {
		t.Fatalf("first submit failed: %v", err)
	}

	_, err = h.manager.Submit(context.Background(), start.AttemptID, h.userID,
		answerAll([]models.Question{q}, false), testNow.Add(2*time.Minute))
	var already *AlreadySubmittedError
	if !errors.As(err, &already) {
		t.Fatalf("Expected AlreadySubmittedError, got %v", err)
	}

	// Stored score unchanged by the second call.
	stored, _ := h.store.GetByID(context.Background(), start.AttemptID)
	if stored.Score == nil || *stored.Score != first.Score {
		t.Errorf("Expected stored score %v to survive resubmission, got %v", first.Score, stored.Score)
	}
}

func TestSubmitWrongUser(t *testing.T) {
	q := makeQuestion(models.QuestionSingleChoice, 5, true, false)
	h := newHarness(t, 3, 70, nil, q)

	start, _ := h.manager.StartOrResume(context.Background(), h.quiz.ID, h.userID, models.RoleLearner)
	_, err := h.manager.Submit(context.Background(), start.AttemptID, uuid.New(),
		answerAll([]models.Question{q}, true), testNow)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Expected NotFoundError for another user's attempt, got %v", err)
	}
}

func TestSubmitUnknownQuestionRejected(t *testing.T) {
	q := makeQuestion(models.QuestionSingleChoice, 5, true, false)
	h := newHarness(t, 3, 70, nil, q)

	start, _ := h.manager.StartOrResume(context.Background(), h.quiz.ID, h.userID, models.RoleLearner)
	_, err := h.manager.Submit(context.Background(), start.AttemptID, h.userID,
		[]models.SubmittedAnswer{{QuestionID: uuid.New()}}, testNow)
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}

	stored, _ := h.store.GetByID(context.Background(), start.AttemptID)
	if !stored.IsOpen() {
		t.Error("Expected attempt to stay open after a rejected payload")
	}
}

func TestSubmitLateIsAcceptedAndScored(t *testing.T) {
	limit := 30
	q := makeQuestion(models.QuestionSingleChoice, 5, true, false)
	h := newHarness(t, 3, 70, &limit, q)

	openID := uuid.New()
	h.store.attempts[openID] = &models.QuizAttempt{
		ID: openID, QuizID: h.quiz.ID, UserID: h.userID,
		AttemptNumber: 1, StartedAt: testNow.Add(-45 * time.Minute),
	}

	res, err := h.manager.Submit(context.Background(), openID, h.userID,
		answerAll([]models.Question{q}, true), testNow)
	if err != nil {
		t.Fatalf("Expected late submission to be accepted, got %v", err)
	}
	if res.PercentageScore != 100 {
		t.Errorf("Expected full score on a late submission, got %v", res.PercentageScore)
	}
}

func TestSubmitRetriesTransientFailure(t *testing.T) {
	q := makeQuestion(models.QuestionSingleChoice, 5, true, false)
	h := newHarness(t, 3, 70, nil, q)

	start, _ := h.manager.StartOrResume(context.Background(), h.quiz.ID, h.userID, models.RoleLearner)
	h.store.finalizeErrs = []error{&pgconn.PgError{Code: "40001"}}

	_, err := h.manager.Submit(context.Background(), start.AttemptID, h.userID,
		answerAll([]models.Question{q}, true), testNow.Add(time.Minute))
	if err != nil {
		t.Fatalf("Expected retry to succeed after a serialization failure, got %v", err)
	}

	stored, _ := h.store.GetByID(context.Background(), start.AttemptID)
	if stored.IsOpen() {
		t.Error("Expected attempt closed after retried finalize")
	}
}

func TestSubmitPermanentFailureLeavesAttemptOpen(t *testing.T) {
	q := makeQuestion(models.QuestionSingleChoice, 5, true, false)
	h := newHarness(t, 3, 70, nil, q)

	start, _ := h.manager.StartOrResume(context.Background(), h.quiz.ID, h.userID, models.RoleLearner)
	h.store.finalizeErrs = []error{errors.New("disk on fire")}

	_, err := h.manager.Submit(context.Background(), start.AttemptID, h.userID,
		answerAll([]models.Question{q}, true), testNow.Add(time.Minute))
	if err == nil {
		t.Fatal("Expected submit to fail")
	}

	stored, _ := h.store.GetByID(context.Background(), start.AttemptID)
	if !stored.IsOpen() {
		t.Error("Expected attempt to remain open so the learner can retry")
	}
	if len(h.queue.jobs) != 0 {
		t.Error("Expected no achievement job after a failed submit")
	}
}

// ─── GetResult ───

func TestGetResultBreakdown(t *testing.T) {
	explanation := "the handshake has three steps"
	q1 := makeQuestion(models.QuestionSingleChoice, 5, true, false)
	q1.Explanation = &explanation
	q2 := makeQuestion(models.QuestionSingleChoice, 5, true, false)
	h := newHarness(t, 3, 70, nil, q1, q2)

	start, _ := h.manager.StartOrResume(context.Background(), h.quiz.ID, h.userID, models.RoleLearner)
	answers := append(answerAll([]models.Question{q1}, true), answerAll([]models.Question{q2}, false)...)
	if _, err := h.manager.Submit(context.Background(), start.AttemptID, h.userID, answers, testNow.Add(time.Minute)); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	result, err := h.manager.GetResult(context.Background(), start.AttemptID, h.userID)
	if err != nil {
		t.Fatalf("GetResult failed: %v", err)
	}

	if len(result.Questions) != 2 {
		t.Fatalf("Expected 2 question results, got %d", len(result.Questions))
	}
	first := result.Questions[0]
	if !first.IsCorrect || first.PointsEarned != 5 {
		t.Errorf("Expected first question correct with 5 points, got %+v", first)
	}
	if first.Explanation == nil || *first.Explanation != explanation {
		t.Error("Expected explanation on the graded breakdown")
	}
	second := result.Questions[1]
	if second.IsCorrect || second.PointsEarned != 0 {
		t.Errorf("Expected second question incorrect, got %+v", second)
	}
}

func TestGetResultOpenAttemptRefused(t *testing.T) {
	q := makeQuestion(models.QuestionSingleChoice, 5, true, false)
	h := newHarness(t, 3, 70, nil, q)

	start, _ := h.manager.StartOrResume(context.Background(), h.quiz.ID, h.userID, models.RoleLearner)
	_, err := h.manager.GetResult(context.Background(), start.AttemptID, h.userID)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("Expected ConflictError for an open attempt, got %v", err)
	}
}

// ─── End to end ───

func TestAttemptLifecycleEndToEnd(t *testing.T) {
	limit := 30
	q1 := makeQuestion(models.QuestionSingleChoice, 5, true, false)
	q2 := makeQuestion(models.QuestionSingleChoice, 5, true, false)
	h := newHarness(t, 2, 70, &limit, q1, q2)
	ctx := context.Background()

	// Attempt 1: both correct.
	first, err := h.manager.StartOrResume(ctx, h.quiz.ID, h.userID, models.RoleLearner)
	if err != nil {
		t.Fatalf("attempt 1 start: %v", err)
	}
	res1, err := h.manager.Submit(ctx, first.AttemptID, h.userID,
		answerAll([]models.Question{q1, q2}, true), testNow.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("attempt 1 submit: %v", err)
	}
	if res1.Score != 10 || res1.TotalPoints != 10 || res1.PercentageScore != 100 || !res1.IsPassed {
		t.Errorf("attempt 1: unexpected result %+v", res1)
	}

	// Attempt 2: one correct, one wrong.
	second, err := h.manager.StartOrResume(ctx, h.quiz.ID, h.userID, models.RoleLearner)
	if err != nil {
		t.Fatalf("attempt 2 start: %v", err)
	}
	if second.AttemptNumber != 2 {
		t.Errorf("Expected attempt number 2, got %d", second.AttemptNumber)
	}
	if second.RemainingAttempts != 0 {
		t.Errorf("Expected 0 remaining after consuming the last slot, got %d", second.RemainingAttempts)
	}
	answers := append(answerAll([]models.Question{q1}, true), answerAll([]models.Question{q2}, false)...)
	res2, err := h.manager.Submit(ctx, second.AttemptID, h.userID, answers, testNow.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("attempt 2 submit: %v", err)
	}
	if res2.Score != 5 || res2.PercentageScore != 50 || res2.IsPassed {
		t.Errorf("attempt 2: unexpected result %+v", res2)
	}

	// Third start refused.
	_, err = h.manager.StartOrResume(ctx, h.quiz.ID, h.userID, models.RoleLearner)
	var exhausted *AttemptsExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("Expected AttemptsExhaustedError on third start, got %v", err)
	}
}
