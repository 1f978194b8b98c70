package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"hireline/internal/domain"
	"hireline/internal/events"
	"hireline/internal/notify"
	"hireline/internal/repo"
)

// interviewerLocks serializes booking and rescheduling per interviewer so
// two concurrent requests for the same slot cannot both pass the conflict
// check before either commits.
type interviewerLocks struct {
	m sync.Map
}

func newInterviewerLocks() *interviewerLocks {
	return &interviewerLocks{}
}

func (l *interviewerLocks) lock(interviewerID string) func() {
	v, _ := l.m.LoadOrStore(interviewerID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// BookOptions are parameters for booking an interview.
type BookOptions struct {
	StageID         string
	InterviewerID   string
	ScheduledAt     time.Time
	DurationMinutes int
	Notes           string
	ActorID         string
}

// BookInterview books an interview slot for a stage. The interviewer
// defaults to the one assigned on the stage, the duration to the configured
// default. A booking that overlaps one of the interviewer's live interviews
// fails with a ConflictError naming the occupied slot.
func (e Engine) BookInterview(ctx context.Context, opts BookOptions) (domain.Interview, error) {
	if opts.ScheduledAt.IsZero() {
		return domain.Interview{}, ValidationError{Msg: "scheduled_at is required"}
	}
	stage, err := e.Repo.GetStage(ctx, opts.StageID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Interview{}, NotFoundError{Kind: "stage", ID: opts.StageID}
		}
		return domain.Interview{}, err
	}
	interviewerID := opts.InterviewerID
	if interviewerID == "" {
		interviewerID = stage.InterviewerID
	}
	if _, err := e.Repo.GetUser(ctx, interviewerID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Interview{}, NotFoundError{Kind: "user", ID: interviewerID}
		}
		return domain.Interview{}, err
	}
	duration := opts.DurationMinutes
	if duration == 0 {
		duration = e.Config.DefaultDuration()
	}
	if duration <= 0 {
		return domain.Interview{}, ValidationError{Msg: "duration_minutes must be positive"}
	}

	unlock := e.locks.lock(interviewerID)
	defer unlock()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Interview{}, err
	}
	defer tx.Rollback()

	// Re-read under the lock; the snapshot from before it may be stale,
	// or the stage may have been deleted entirely in the meantime.
	stage, err = e.Repo.GetStageTx(ctx, tx, opts.StageID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Interview{}, NotFoundError{Kind: "stage", ID: opts.StageID}
		}
		return domain.Interview{}, err
	}
	switch stage.Status {
	case domain.StagePending, domain.StageInProgress:
	case domain.StageWaiting:
		return domain.Interview{}, PreconditionError{Msg: "stage is waiting, activate it before booking"}
	default:
		return domain.Interview{}, PreconditionError{Msg: fmt.Sprintf("stage already %s", stage.Status)}
	}
	if _, err := e.Repo.LiveInterviewForStageTx(ctx, tx, stage.ID); err == nil {
		return domain.Interview{}, PreconditionError{Msg: "stage already has a scheduled interview"}
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.Interview{}, err
	}

	existing, err := e.Repo.ListLiveInterviewsByInterviewerTx(ctx, tx, interviewerID)
	if err != nil {
		return domain.Interview{}, err
	}
	if clash, found := FindConflict(existing, opts.ScheduledAt, time.Duration(duration)*time.Minute); found {
		return domain.Interview{}, ConflictError{
			InterviewerID: interviewerID,
			Existing:      clash,
			Proposed:      opts.ScheduledAt,
		}
	}

	ts := e.ts()
	scheduledAt := opts.ScheduledAt.UTC().Format(time.RFC3339)
	iv := domain.Interview{
		ID:              uuid.NewString(),
		StageID:         stage.ID,
		CandidateID:     stage.CandidateID,
		InterviewerID:   interviewerID,
		ScheduledAt:     scheduledAt,
		DurationMinutes: duration,
		Status:          domain.InterviewScheduled,
		Notes:           opts.Notes,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
	if err := e.Repo.InsertInterviewTx(ctx, tx, iv); err != nil {
		return domain.Interview{}, fmt.Errorf("insert interview: %w", err)
	}

	stage.Status = domain.StageInProgress
	stage.ScheduledAt = &scheduledAt
	stage.UpdatedAt = ts
	if err := e.Repo.UpdateStageTx(ctx, tx, stage); err != nil {
		return domain.Interview{}, err
	}
	if err := e.eventLog().Append(ctx, tx, events.TypeInterviewScheduled, stage.CandidateID, "interview", iv.ID, opts.ActorID, events.EventPayload{
		"stage_name":       stage.StageName,
		"interviewer_id":   interviewerID,
		"scheduled_at":     scheduledAt,
		"duration_minutes": duration,
	}); err != nil {
		return domain.Interview{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Interview{}, err
	}

	e.emit(ctx, notify.TypeInterviewScheduled, stage.CandidateID, map[string]any{
		"interview_id":   iv.ID,
		"stage_name":     stage.StageName,
		"interviewer_id": interviewerID,
		"scheduled_at":   scheduledAt,
	})
	return iv, nil
}

// RescheduleInterview moves a live interview to a new slot, keeping the same
// record. The new slot is conflict-checked against the interviewer's other
// live interviews; the interview being moved does not conflict with itself.
func (e Engine) RescheduleInterview(ctx context.Context, interviewID string, newAt time.Time, actorID string) (domain.Interview, error) {
	if newAt.IsZero() {
		return domain.Interview{}, ValidationError{Msg: "scheduled_at is required"}
	}
	iv, err := e.Repo.GetInterview(ctx, interviewID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Interview{}, NotFoundError{Kind: "interview", ID: interviewID}
		}
		return domain.Interview{}, err
	}

	unlock := e.locks.lock(iv.InterviewerID)
	defer unlock()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Interview{}, err
	}
	defer tx.Rollback()

	iv, err = e.Repo.GetInterviewTx(ctx, tx, interviewID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Interview{}, NotFoundError{Kind: "interview", ID: interviewID}
		}
		return domain.Interview{}, err
	}
	if iv.Status != domain.InterviewScheduled && iv.Status != domain.InterviewRescheduled {
		return domain.Interview{}, PreconditionError{Msg: fmt.Sprintf("interview is %s and cannot be rescheduled", iv.Status)}
	}

	existing, err := e.Repo.ListLiveInterviewsByInterviewerTx(ctx, tx, iv.InterviewerID)
	if err != nil {
		return domain.Interview{}, err
	}
	others := existing[:0]
	for _, other := range existing {
		if other.ID != iv.ID {
			others = append(others, other)
		}
	}
	if clash, found := FindConflict(others, newAt, time.Duration(iv.DurationMinutes)*time.Minute); found {
		return domain.Interview{}, ConflictError{
			InterviewerID: iv.InterviewerID,
			Existing:      clash,
			Proposed:      newAt,
		}
	}

	ts := e.ts()
	oldAt := iv.ScheduledAt
	scheduledAt := newAt.UTC().Format(time.RFC3339)
	iv.ScheduledAt = scheduledAt
	iv.Status = domain.InterviewRescheduled
	iv.UpdatedAt = ts
	if err := e.Repo.UpdateInterviewTx(ctx, tx, iv); err != nil {
		return domain.Interview{}, err
	}

	stage, err := e.Repo.GetStageTx(ctx, tx, iv.StageID)
	if err != nil {
		return domain.Interview{}, err
	}
	stage.ScheduledAt = &scheduledAt
	stage.UpdatedAt = ts
	if err := e.Repo.UpdateStageTx(ctx, tx, stage); err != nil {
		return domain.Interview{}, err
	}
	if err := e.eventLog().Append(ctx, tx, events.TypeInterviewRescheduled, iv.CandidateID, "interview", iv.ID, actorID, events.EventPayload{
		"stage_name":         stage.StageName,
		"previous_scheduled": oldAt,
		"scheduled_at":       scheduledAt,
	}); err != nil {
		return domain.Interview{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Interview{}, err
	}

	e.emit(ctx, notify.TypeInterviewRescheduled, iv.CandidateID, map[string]any{
		"interview_id":       iv.ID,
		"stage_name":         stage.StageName,
		"previous_scheduled": oldAt,
		"scheduled_at":       scheduledAt,
	})
	return iv, nil
}

// CancelInterview cancels a live interview and returns its stage to
// pending, freeing the interviewer's slot.
func (e Engine) CancelInterview(ctx context.Context, interviewID, actorID string) (domain.Interview, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Interview{}, err
	}
	defer tx.Rollback()

	iv, err := e.Repo.GetInterviewTx(ctx, tx, interviewID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Interview{}, NotFoundError{Kind: "interview", ID: interviewID}
		}
		return domain.Interview{}, err
	}
	if iv.Status != domain.InterviewScheduled && iv.Status != domain.InterviewRescheduled {
		return domain.Interview{}, PreconditionError{Msg: fmt.Sprintf("interview is %s and cannot be cancelled", iv.Status)}
	}

	ts := e.ts()
	iv.Status = domain.InterviewCancelled
	iv.UpdatedAt = ts
	if err := e.Repo.UpdateInterviewTx(ctx, tx, iv); err != nil {
		return domain.Interview{}, err
	}

	stage, err := e.Repo.GetStageTx(ctx, tx, iv.StageID)
	if err != nil {
		return domain.Interview{}, err
	}
	if stage.Status == domain.StageInProgress {
		stage.Status = domain.StagePending
		stage.ScheduledAt = nil
		stage.UpdatedAt = ts
		if err := e.Repo.UpdateStageTx(ctx, tx, stage); err != nil {
			return domain.Interview{}, err
		}
	}
	if err := e.eventLog().Append(ctx, tx, events.TypeInterviewCancelled, iv.CandidateID, "interview", iv.ID, actorID, events.EventPayload{
		"stage_name": stage.StageName,
	}); err != nil {
		return domain.Interview{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Interview{}, err
	}
	return iv, nil
}
