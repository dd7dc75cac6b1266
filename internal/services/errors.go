package services

import "fmt"

// Typed errors returned by the service layer. Handlers map these onto HTTP
// statuses; anything else surfaces as a generic internal error.

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }

type ForbiddenError struct{ Message string }

func (e *ForbiddenError) Error() string { return e.Message }

// AttemptsExhaustedError is returned when a learner has used every allowed
// attempt on a quiz.
type AttemptsExhaustedError struct {
	MaxAttempts int
}

func (e *AttemptsExhaustedError) Error() string {
	return fmt.Sprintf("maximum of %d attempts reached for this quiz", e.MaxAttempts)
}

// AlreadySubmittedError is returned when a closed attempt is submitted again.
// Submission is one-way; the stored result is never altered.
type AlreadySubmittedError struct{}

func (e *AlreadySubmittedError) Error() string {
	return "this quiz attempt has already been submitted"
}

// EmptyQuizError is returned when a quiz with no questions is started.
type EmptyQuizError struct{}

func (e *EmptyQuizError) Error() string { return "this quiz does not have any questions yet" }

type InvalidStatusTransitionError struct {
	From, To string
}

func (e *InvalidStatusTransitionError) Error() string {
	return fmt.Sprintf("cannot move quiz from status %q to %q", e.From, e.To)
}

// ArchiveBlockedError reports every condition that blocks archiving a quiz,
// individually, so an author can be told exactly what to fix.
type ArchiveBlockedError struct {
	Reasons []string
}

func (e *ArchiveBlockedError) Error() string {
	if len(e.Reasons) == 1 {
		return e.Reasons[0]
	}
	return fmt.Sprintf("quiz cannot be archived (%d blocking conditions)", len(e.Reasons))
}
