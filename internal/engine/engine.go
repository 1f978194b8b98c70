package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"hireline/internal/config"
	"hireline/internal/domain"
	"hireline/internal/events"
	"hireline/internal/notify"
	"hireline/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Notify notify.Notifier
	Config *config.Config
	Now    func() time.Time

	// locks serializes bookings per interviewer. Held behind a pointer so
	// Engine stays copyable by value.
	locks *interviewerLocks
}

func New(db *sql.DB, cfg *config.Config, hub notify.Notifier) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Notify: hub,
		Config: cfg,
		Now:    time.Now,
		locks:  newInterviewerLocks(),
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) ts() string {
	return e.now().UTC().Format(time.RFC3339)
}

// eventLog returns the event writer bound to the engine's clock so event
// rows carry the same timestamps as the entities they describe.
func (e Engine) eventLog() events.Writer {
	w := e.Events
	w.Now = e.Now
	return w
}

// emit sends a notification after the owning transaction has committed.
// Delivery failures never surface to the caller.
func (e Engine) emit(ctx context.Context, evtType, candidateID string, payload map[string]any) {
	if e.Notify == nil {
		return
	}
	e.Notify.Emit(ctx, notify.Event{
		Type:        evtType,
		CandidateID: candidateID,
		TS:          e.now().UTC(),
		Payload:     payload,
	})
}

func validateChain(chain []domain.StageRef) error {
	if len(chain) == 0 {
		return ValidationError{Msg: "stage chain must have at least one stage"}
	}
	for i, ref := range chain {
		if strings.TrimSpace(ref.StageName) == "" {
			return ValidationError{Msg: fmt.Sprintf("chain stage %d: stage_name is required", i)}
		}
		if strings.TrimSpace(ref.InterviewerID) == "" {
			return ValidationError{Msg: fmt.Sprintf("chain stage %d: interviewer_id is required", i)}
		}
	}
	return nil
}

// verifyInterviewers checks every interviewer referenced by the chain exists.
func (e Engine) verifyInterviewers(ctx context.Context, chain []domain.StageRef) error {
	seen := map[string]bool{}
	for _, ref := range chain {
		if seen[ref.InterviewerID] {
			continue
		}
		seen[ref.InterviewerID] = true
		if _, err := e.Repo.GetUser(ctx, ref.InterviewerID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NotFoundError{Kind: "user", ID: ref.InterviewerID}
			}
			return err
		}
	}
	return nil
}

// insertChainStagesTx materializes a chain into stage rows. The first stage
// starts pending, the rest waiting.
func (e Engine) insertChainStagesTx(ctx context.Context, tx *sql.Tx, candidateID string, chain []domain.StageRef) ([]domain.Stage, error) {
	ts := e.ts()
	stages := make([]domain.Stage, 0, len(chain))
	for i, ref := range chain {
		status := domain.StageWaiting
		if i == 0 {
			status = domain.StagePending
		}
		s := domain.Stage{
			ID:            uuid.NewString(),
			CandidateID:   candidateID,
			StageIndex:    i,
			StageName:     strings.TrimSpace(ref.StageName),
			InterviewerID: ref.InterviewerID,
			Status:        status,
			CreatedAt:     ts,
			UpdatedAt:     ts,
		}
		if err := e.Repo.InsertStageTx(ctx, tx, s); err != nil {
			return nil, fmt.Errorf("insert stage %d: %w", i, err)
		}
		stages = append(stages, s)
	}
	return stages, nil
}

// CandidateCreateOptions are parameters for creating a candidate.
type CandidateCreateOptions struct {
	ID        string
	VacancyID string
	FullName  string
	Email     string
	Chain     []domain.StageRef
	ActorID   string
}

// CreateCandidate inserts a candidate and materializes its stage chain in
// one transaction.
func (e Engine) CreateCandidate(ctx context.Context, opts CandidateCreateOptions) (domain.Candidate, error) {
	if strings.TrimSpace(opts.FullName) == "" {
		return domain.Candidate{}, ValidationError{Msg: "full_name is required"}
	}
	if opts.VacancyID == "" {
		return domain.Candidate{}, ValidationError{Msg: "vacancy_id is required"}
	}
	if err := validateChain(opts.Chain); err != nil {
		return domain.Candidate{}, err
	}
	if _, err := e.Repo.GetVacancy(ctx, opts.VacancyID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Candidate{}, NotFoundError{Kind: "vacancy", ID: opts.VacancyID}
		}
		return domain.Candidate{}, err
	}
	if err := e.verifyInterviewers(ctx, opts.Chain); err != nil {
		return domain.Candidate{}, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Candidate{}, err
	}
	defer tx.Rollback()

	ts := e.ts()
	c := domain.Candidate{
		ID:                opts.ID,
		VacancyID:         opts.VacancyID,
		FullName:          strings.TrimSpace(opts.FullName),
		Email:             strings.TrimSpace(opts.Email),
		Status:            domain.CandidateActive,
		CurrentStageIndex: 0,
		CreatedAt:         ts,
		UpdatedAt:         ts,
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := e.Repo.InsertCandidateTx(ctx, tx, c); err != nil {
		return domain.Candidate{}, fmt.Errorf("insert candidate: %w", err)
	}
	if _, err := e.insertChainStagesTx(ctx, tx, c.ID, opts.Chain); err != nil {
		return domain.Candidate{}, err
	}
	if err := e.eventLog().Append(ctx, tx, events.TypeCandidateCreated, c.ID, "candidate", c.ID, opts.ActorID, events.EventPayload{
		"vacancy_id": c.VacancyID,
		"stages":     len(opts.Chain),
	}); err != nil {
		return domain.Candidate{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Candidate{}, err
	}
	return c, nil
}

// MaterializeChain replaces a candidate's stage rows with a new chain.
// Passed and failed stages of the old chain are snapshotted to stage history
// before deletion, so recorded feedback survives the edit. The candidate
// restarts at index 0 with active status.
func (e Engine) MaterializeChain(ctx context.Context, candidateID string, chain []domain.StageRef, actorID string) ([]domain.Stage, error) {
	if err := validateChain(chain); err != nil {
		return nil, err
	}
	if err := e.verifyInterviewers(ctx, chain); err != nil {
		return nil, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	c, err := e.Repo.GetCandidateTx(ctx, tx, candidateID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, NotFoundError{Kind: "candidate", ID: candidateID}
		}
		return nil, err
	}
	switch c.Status {
	case domain.CandidateActive, domain.CandidateRejected:
	default:
		return nil, PreconditionError{Msg: fmt.Sprintf("candidate is %s, chain can only be edited while active or rejected", c.Status)}
	}

	old, err := e.Repo.ListStagesTx(ctx, tx, candidateID)
	if err != nil {
		return nil, err
	}
	ts := e.ts()
	archived := 0
	for _, s := range old {
		if s.Status != domain.StagePassed && s.Status != domain.StageFailed {
			continue
		}
		h := domain.StageHistory{
			ID:            uuid.NewString(),
			CandidateID:   candidateID,
			StageIndex:    s.StageIndex,
			StageName:     s.StageName,
			InterviewerID: s.InterviewerID,
			Status:        s.Status,
			Comments:      s.Comments,
			Rating:        s.Rating,
			CompletedAt:   s.CompletedAt,
			ArchivedAt:    ts,
		}
		if err := e.Repo.InsertStageHistoryTx(ctx, tx, h); err != nil {
			return nil, fmt.Errorf("archive stage %d: %w", s.StageIndex, err)
		}
		archived++
	}
	if err := e.Repo.DeleteStagesTx(ctx, tx, candidateID); err != nil {
		return nil, err
	}
	stages, err := e.insertChainStagesTx(ctx, tx, candidateID, chain)
	if err != nil {
		return nil, err
	}

	c.Status = domain.CandidateActive
	c.CurrentStageIndex = 0
	c.RejectionStage = ""
	c.RejectionReason = ""
	c.UpdatedAt = ts
	if err := e.Repo.UpdateCandidateTx(ctx, tx, c); err != nil {
		return nil, err
	}
	if err := e.eventLog().Append(ctx, tx, events.TypeChainMaterialized, candidateID, "candidate", candidateID, actorID, events.EventPayload{
		"stages":   len(chain),
		"archived": archived,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return stages, nil
}

// ActivateStage moves a waiting stage to pending. Only the candidate's
// current stage can be activated, and only while the candidate is active.
func (e Engine) ActivateStage(ctx context.Context, stageID, actorID string) (domain.Stage, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Stage{}, err
	}
	defer tx.Rollback()

	s, err := e.Repo.GetStageTx(ctx, tx, stageID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Stage{}, NotFoundError{Kind: "stage", ID: stageID}
		}
		return domain.Stage{}, err
	}
	c, err := e.Repo.GetCandidateTx(ctx, tx, s.CandidateID)
	if err != nil {
		return domain.Stage{}, err
	}
	if c.Status != domain.CandidateActive {
		return domain.Stage{}, PreconditionError{Msg: fmt.Sprintf("candidate is %s, stages can only be activated while active", c.Status)}
	}
	if s.Status != domain.StageWaiting {
		return domain.Stage{}, PreconditionError{Msg: fmt.Sprintf("stage is %s, only waiting stages can be activated", s.Status)}
	}
	if s.StageIndex != c.CurrentStageIndex {
		return domain.Stage{}, PreconditionError{Msg: fmt.Sprintf("stage %d is not the candidate's current stage %d", s.StageIndex, c.CurrentStageIndex)}
	}

	s.Status = domain.StagePending
	s.UpdatedAt = e.ts()
	if err := e.Repo.UpdateStageTx(ctx, tx, s); err != nil {
		return domain.Stage{}, err
	}
	if err := e.eventLog().Append(ctx, tx, events.TypeStageActivated, c.ID, "stage", s.ID, actorID, events.EventPayload{
		"stage_index": s.StageIndex,
		"stage_name":  s.StageName,
	}); err != nil {
		return domain.Stage{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Stage{}, err
	}
	return s, nil
}

// OutcomeOptions are parameters for recording a stage outcome.
type OutcomeOptions struct {
	StageID     string
	Outcome     string
	Comments    string
	Rating      *int
	CompletedAt *time.Time
	ActorID     string
}

// RecordOutcome settles a stage as passed or failed and advances the
// pipeline: pass moves the candidate to the next stage (or to documentation
// when the chain is exhausted), fail rejects the candidate. The stage, its
// live interview and the candidate are updated in one transaction.
func (e Engine) RecordOutcome(ctx context.Context, opts OutcomeOptions) (domain.Stage, error) {
	if opts.Outcome != domain.StagePassed && opts.Outcome != domain.StageFailed {
		return domain.Stage{}, ValidationError{Msg: "outcome must be passed or failed"}
	}
	if strings.TrimSpace(opts.Comments) == "" {
		return domain.Stage{}, ValidationError{Msg: "comments are required when recording an outcome"}
	}
	if opts.Rating != nil && (*opts.Rating < 1 || *opts.Rating > 5) {
		return domain.Stage{}, ValidationError{Msg: "rating must be between 1 and 5"}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Stage{}, err
	}
	defer tx.Rollback()

	s, err := e.Repo.GetStageTx(ctx, tx, opts.StageID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Stage{}, NotFoundError{Kind: "stage", ID: opts.StageID}
		}
		return domain.Stage{}, err
	}
	switch s.Status {
	case domain.StagePending, domain.StageInProgress:
	case domain.StagePassed, domain.StageFailed:
		return domain.Stage{}, PreconditionError{Msg: fmt.Sprintf("stage already %s", s.Status)}
	default:
		return domain.Stage{}, PreconditionError{Msg: "stage is waiting, activate it before recording an outcome"}
	}

	c, err := e.Repo.GetCandidateTx(ctx, tx, s.CandidateID)
	if err != nil {
		return domain.Stage{}, err
	}
	if c.Status != domain.CandidateActive {
		return domain.Stage{}, PreconditionError{Msg: fmt.Sprintf("candidate is %s, outcomes can only be recorded while active", c.Status)}
	}

	ts := e.ts()
	completedAt := ts
	if opts.CompletedAt != nil {
		completedAt = opts.CompletedAt.UTC().Format(time.RFC3339)
	}
	s.Status = opts.Outcome
	s.Comments = strings.TrimSpace(opts.Comments)
	s.Rating = opts.Rating
	s.CompletedAt = &completedAt
	s.UpdatedAt = ts
	if err := e.Repo.UpdateStageTx(ctx, tx, s); err != nil {
		return domain.Stage{}, err
	}

	// A live interview for the stage inherits the outcome in the same
	// transaction so the two records never disagree.
	iv, err := e.Repo.LiveInterviewForStageTx(ctx, tx, s.ID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return domain.Stage{}, err
	}
	if err == nil {
		outcome := opts.Outcome
		iv.Status = domain.InterviewCompleted
		iv.Outcome = &outcome
		iv.UpdatedAt = ts
		if err := e.Repo.UpdateInterviewTx(ctx, tx, iv); err != nil {
			return domain.Stage{}, err
		}
	}

	evtType := events.TypeStagePassed
	if opts.Outcome == domain.StageFailed {
		evtType = events.TypeStageFailed
	}
	if err := e.eventLog().Append(ctx, tx, evtType, c.ID, "stage", s.ID, opts.ActorID, events.EventPayload{
		"stage_index": s.StageIndex,
		"stage_name":  s.StageName,
		"comments":    s.Comments,
	}); err != nil {
		return domain.Stage{}, err
	}

	var next domain.Stage
	haveNext := false
	switch opts.Outcome {
	case domain.StagePassed:
		c.CurrentStageIndex = s.StageIndex + 1
		next, err = e.Repo.GetStageByIndexTx(ctx, tx, c.ID, c.CurrentStageIndex)
		switch {
		case err == nil:
			haveNext = true
		case errors.Is(err, repo.ErrNotFound):
			// Chain exhausted: the candidate moves to documentation.
			c.Status = domain.CandidateDocumentation
			if err := e.eventLog().Append(ctx, tx, events.TypeCandidateDocumentation, c.ID, "candidate", c.ID, opts.ActorID, nil); err != nil {
				return domain.Stage{}, err
			}
		default:
			return domain.Stage{}, err
		}
	case domain.StageFailed:
		c.Status = domain.CandidateRejected
		c.RejectionStage = s.StageName
		c.RejectionReason = s.Comments
		if err := e.eventLog().Append(ctx, tx, events.TypeCandidateRejected, c.ID, "candidate", c.ID, opts.ActorID, events.EventPayload{
			"rejection_stage": s.StageName,
		}); err != nil {
			return domain.Stage{}, err
		}
	}
	c.UpdatedAt = ts
	if err := e.Repo.UpdateCandidateTx(ctx, tx, c); err != nil {
		return domain.Stage{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Stage{}, err
	}

	if opts.Outcome == domain.StagePassed {
		e.emit(ctx, notify.TypeStageAdvanced, c.ID, map[string]any{
			"stage_name": s.StageName,
			"outcome":    opts.Outcome,
			"status":     c.Status,
		})
		if haveNext {
			e.emit(ctx, notify.TypeInterviewerAssigned, c.ID, map[string]any{
				"interviewer_id": next.InterviewerID,
				"stage_name":     next.StageName,
				"stage_index":    next.StageIndex,
			})
		}
	}
	return s, nil
}

// MoveToDocumentation transitions an active candidate whose every stage
// passed into paperwork. RecordOutcome already performs this transition
// when the final stage passes, so calling this on an engine-driven
// candidate reports why the move is not allowed; it exists for callers
// that drive candidate transitions by hand.
func (e Engine) MoveToDocumentation(ctx context.Context, candidateID, actorID string) (domain.Candidate, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Candidate{}, err
	}
	defer tx.Rollback()

	c, err := e.Repo.GetCandidateTx(ctx, tx, candidateID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Candidate{}, NotFoundError{Kind: "candidate", ID: candidateID}
		}
		return domain.Candidate{}, err
	}
	if err := ensureCandidateTransition(c.Status, domain.CandidateDocumentation); err != nil {
		return domain.Candidate{}, err
	}
	stages, err := e.Repo.ListStagesTx(ctx, tx, candidateID)
	if err != nil {
		return domain.Candidate{}, err
	}
	for _, s := range stages {
		if s.Status != domain.StagePassed {
			return domain.Candidate{}, PreconditionError{Msg: fmt.Sprintf("stage %d (%s) is %s, all stages must pass first", s.StageIndex, s.StageName, s.Status)}
		}
	}

	c.Status = domain.CandidateDocumentation
	c.UpdatedAt = e.ts()
	if err := e.Repo.UpdateCandidateTx(ctx, tx, c); err != nil {
		return domain.Candidate{}, err
	}
	if err := e.eventLog().Append(ctx, tx, events.TypeCandidateDocumentation, c.ID, "candidate", c.ID, actorID, nil); err != nil {
		return domain.Candidate{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Candidate{}, err
	}
	return c, nil
}

// CompleteDocumentation marks a candidate in documentation as hired.
func (e Engine) CompleteDocumentation(ctx context.Context, candidateID, actorID string) (domain.Candidate, error) {
	return e.transitionCandidate(ctx, candidateID, domain.CandidateHired, actorID, events.TypeCandidateHired, func(c *domain.Candidate) error {
		return nil
	})
}

// Dismiss moves a hired candidate to dismissed. A reason is mandatory.
func (e Engine) Dismiss(ctx context.Context, candidateID, reason string, dismissedAt *time.Time, actorID string) (domain.Candidate, error) {
	if strings.TrimSpace(reason) == "" {
		return domain.Candidate{}, ValidationError{Msg: "dismissal reason is required"}
	}
	return e.transitionCandidate(ctx, candidateID, domain.CandidateDismissed, actorID, events.TypeCandidateDismissed, func(c *domain.Candidate) error {
		at := e.ts()
		if dismissedAt != nil {
			at = dismissedAt.UTC().Format(time.RFC3339)
		}
		c.DismissalReason = strings.TrimSpace(reason)
		c.DismissedAt = &at
		return nil
	})
}

// Archive moves a candidate in a terminal status to the archive.
func (e Engine) Archive(ctx context.Context, candidateID, actorID string) (domain.Candidate, error) {
	return e.transitionCandidate(ctx, candidateID, domain.CandidateArchived, actorID, events.TypeCandidateArchived, func(c *domain.Candidate) error {
		return nil
	})
}

func (e Engine) transitionCandidate(ctx context.Context, candidateID, to, actorID, evtType string, mutate func(*domain.Candidate) error) (domain.Candidate, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Candidate{}, err
	}
	defer tx.Rollback()

	c, err := e.Repo.GetCandidateTx(ctx, tx, candidateID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Candidate{}, NotFoundError{Kind: "candidate", ID: candidateID}
		}
		return domain.Candidate{}, err
	}
	if err := ensureCandidateTransition(c.Status, to); err != nil {
		return domain.Candidate{}, err
	}
	c.Status = to
	if err := mutate(&c); err != nil {
		return domain.Candidate{}, err
	}
	c.UpdatedAt = e.ts()
	if err := e.Repo.UpdateCandidateTx(ctx, tx, c); err != nil {
		return domain.Candidate{}, err
	}
	if err := e.eventLog().Append(ctx, tx, evtType, c.ID, "candidate", c.ID, actorID, nil); err != nil {
		return domain.Candidate{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Candidate{}, err
	}
	return c, nil
}

// ensureCandidateTransition guards the candidate state machine.
func ensureCandidateTransition(from, to string) error {
	allowed := false
	switch to {
	case domain.CandidateDocumentation:
		allowed = from == domain.CandidateActive
	case domain.CandidateRejected:
		allowed = from == domain.CandidateActive
	case domain.CandidateHired:
		allowed = from == domain.CandidateDocumentation
	case domain.CandidateDismissed:
		allowed = from == domain.CandidateHired
	case domain.CandidateArchived:
		allowed = from == domain.CandidateRejected || from == domain.CandidateHired || from == domain.CandidateDismissed
	}
	if !allowed {
		return PreconditionError{Msg: fmt.Sprintf("candidate is %s, cannot move to %s", from, to)}
	}
	return nil
}

// DeleteCandidate removes a candidate and, via schema cascades, its stages,
// interviews and stage history.
func (e Engine) DeleteCandidate(ctx context.Context, candidateID, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	c, err := e.Repo.GetCandidateTx(ctx, tx, candidateID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NotFoundError{Kind: "candidate", ID: candidateID}
		}
		return err
	}
	if err := e.Repo.DeleteCandidateTx(ctx, tx, c.ID); err != nil {
		return err
	}
	if err := e.eventLog().Append(ctx, tx, events.TypeCandidateDeleted, c.ID, "candidate", c.ID, actorID, events.EventPayload{
		"full_name": c.FullName,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateVacancy inserts a vacancy with an open status.
func (e Engine) CreateVacancy(ctx context.Context, id, title string) (domain.Vacancy, error) {
	if strings.TrimSpace(title) == "" {
		return domain.Vacancy{}, ValidationError{Msg: "title is required"}
	}
	v := domain.Vacancy{
		ID:        id,
		Title:     strings.TrimSpace(title),
		Status:    "open",
		CreatedAt: e.ts(),
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if err := e.Repo.InsertVacancy(ctx, v); err != nil {
		return domain.Vacancy{}, err
	}
	return v, nil
}

// CreateUser registers a user with one of the known roles.
func (e Engine) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	if strings.TrimSpace(u.FullName) == "" {
		return domain.User{}, ValidationError{Msg: "full_name is required"}
	}
	switch u.Role {
	case domain.RoleAdmin, domain.RoleHR, domain.RoleInterviewer:
	default:
		return domain.User{}, ValidationError{Msg: fmt.Sprintf("unknown role %q", u.Role)}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.FullName = strings.TrimSpace(u.FullName)
	u.CreatedAt = e.ts()
	if err := e.Repo.InsertUser(ctx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}
