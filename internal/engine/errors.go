package engine

import (
	"fmt"
	"time"

	"hireline/internal/domain"
)

// conflictTimeLayout is how conflicting slots are rendered in caller-facing
// messages.
const conflictTimeLayout = "2006-01-02 15:04"

// ValidationError reports malformed or missing required input.
type ValidationError struct {
	Msg string
}

func (e ValidationError) Error() string { return e.Msg }

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// ConflictError reports an interviewer double-booking. Existing is the
// earliest-starting interview that overlaps the proposed window.
type ConflictError struct {
	InterviewerID string
	Existing      domain.Interview
	Proposed      time.Time
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("interviewer %s already has an interview at %s", e.InterviewerID, e.ExistingStart())
}

// ExistingStart renders the conflicting slot's start time for display.
func (e ConflictError) ExistingStart() string {
	t, err := time.Parse(time.RFC3339, e.Existing.ScheduledAt)
	if err != nil {
		return e.Existing.ScheduledAt
	}
	return t.Format(conflictTimeLayout)
}

// PreconditionError reports an illegal state transition.
type PreconditionError struct {
	Msg string
}

func (e PreconditionError) Error() string { return e.Msg }
