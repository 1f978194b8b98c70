package engine_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"hireline/internal/config"
	"hireline/internal/db"
	"hireline/internal/domain"
	"hireline/internal/engine"
	"hireline/internal/migrate"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default("test-org")
	eng := engine.New(conn, cfg, nil)
	eng.Now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	if _, err := eng.CreateVacancy(ctx, "vac-1", "Backend Engineer"); err != nil {
		t.Fatalf("seed vacancy: %v", err)
	}
	for _, id := range []string{"hr-1", "int-1", "int-2"} {
		role := domain.RoleInterviewer
		if strings.HasPrefix(id, "hr") {
			role = domain.RoleHR
		}
		if _, err := eng.CreateUser(ctx, domain.User{ID: id, FullName: id, Role: role}); err != nil {
			t.Fatalf("seed user %s: %v", id, err)
		}
	}
	return testEnv{Engine: eng, Ctx: ctx}
}

func defaultChain() []domain.StageRef {
	return []domain.StageRef{
		{StageName: "HR Screen", InterviewerID: "hr-1"},
		{StageName: "Technical Interview", InterviewerID: "int-1"},
		{StageName: "Final Interview", InterviewerID: "int-2"},
	}
}

func createCandidate(t *testing.T, env testEnv, id string) domain.Candidate {
	t.Helper()
	c, err := env.Engine.CreateCandidate(env.Ctx, engine.CandidateCreateOptions{
		ID:        id,
		VacancyID: "vac-1",
		FullName:  "Ada Example",
		Chain:     defaultChain(),
		ActorID:   "hr-1",
	})
	if err != nil {
		t.Fatalf("create candidate: %v", err)
	}
	return c
}

func stageAt(t *testing.T, env testEnv, candidateID string, index int) domain.Stage {
	t.Helper()
	stages, err := env.Engine.Repo.ListStages(env.Ctx, candidateID)
	if err != nil {
		t.Fatalf("list stages: %v", err)
	}
	for _, s := range stages {
		if s.StageIndex == index {
			return s
		}
	}
	t.Fatalf("stage %d not found", index)
	return domain.Stage{}
}

func TestCreateCandidateMaterializesChain(t *testing.T) {
	env := newTestEnv(t)
	c := createCandidate(t, env, "cand-1")
	if c.Status != domain.CandidateActive || c.CurrentStageIndex != 0 {
		t.Fatalf("unexpected candidate state: %s %d", c.Status, c.CurrentStageIndex)
	}
	stages, err := env.Engine.Repo.ListStages(env.Ctx, c.ID)
	if err != nil {
		t.Fatalf("list stages: %v", err)
	}
	if len(stages) != 3 {
		t.Fatalf("expected 3 stages, got %d", len(stages))
	}
	for i, s := range stages {
		if s.StageIndex != i {
			t.Fatalf("stage %d out of order: index %d", i, s.StageIndex)
		}
		want := domain.StageWaiting
		if i == 0 {
			want = domain.StagePending
		}
		if s.Status != want {
			t.Fatalf("stage %d status %s, want %s", i, s.Status, want)
		}
	}
}

func TestCreateCandidateRejectsEmptyChain(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateCandidate(env.Ctx, engine.CandidateCreateOptions{
		VacancyID: "vac-1",
		FullName:  "No Chain",
		ActorID:   "hr-1",
	})
	var ve engine.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreateCandidateUnknownInterviewer(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateCandidate(env.Ctx, engine.CandidateCreateOptions{
		VacancyID: "vac-1",
		FullName:  "Ghost Chain",
		Chain:     []domain.StageRef{{StageName: "Screen", InterviewerID: "nobody"}},
		ActorID:   "hr-1",
	})
	var nfe engine.NotFoundError
	if !errors.As(err, &nfe) || nfe.Kind != "user" {
		t.Fatalf("expected user NotFoundError, got %v", err)
	}
}

func TestPassAdvancesThroughChainToDocumentation(t *testing.T) {
	env := newTestEnv(t)
	c := createCandidate(t, env, "cand-1")

	for i := 0; i < 3; i++ {
		s := stageAt(t, env, c.ID, i)
		if i > 0 {
			var err error
			s, err = env.Engine.ActivateStage(env.Ctx, s.ID, "hr-1")
			if err != nil {
				t.Fatalf("activate stage %d: %v", i, err)
			}
		}
		if _, err := env.Engine.RecordOutcome(env.Ctx, engine.OutcomeOptions{
			StageID:  s.ID,
			Outcome:  domain.StagePassed,
			Comments: "strong performance",
			ActorID:  s.InterviewerID,
		}); err != nil {
			t.Fatalf("pass stage %d: %v", i, err)
		}
		got, err := env.Engine.Repo.GetCandidate(env.Ctx, c.ID)
		if err != nil {
			t.Fatalf("get candidate: %v", err)
		}
		if i < 2 {
			if got.CurrentStageIndex != i+1 || got.Status != domain.CandidateActive {
				t.Fatalf("after stage %d: index %d status %s", i, got.CurrentStageIndex, got.Status)
			}
		} else if got.Status != domain.CandidateDocumentation {
			t.Fatalf("expected documentation after final pass, got %s", got.Status)
		}
	}

	hired, err := env.Engine.CompleteDocumentation(env.Ctx, c.ID, "hr-1")
	if err != nil {
		t.Fatalf("hire: %v", err)
	}
	if hired.Status != domain.CandidateHired {
		t.Fatalf("expected hired, got %s", hired.Status)
	}
}

func TestFailRejectsCandidate(t *testing.T) {
	env := newTestEnv(t)
	c := createCandidate(t, env, "cand-1")
	s := stageAt(t, env, c.ID, 0)

	if _, err := env.Engine.RecordOutcome(env.Ctx, engine.OutcomeOptions{
		StageID:  s.ID,
		Outcome:  domain.StageFailed,
		Comments: "lacked depth on fundamentals",
		ActorID:  "hr-1",
	}); err != nil {
		t.Fatalf("fail stage: %v", err)
	}
	got, err := env.Engine.Repo.GetCandidate(env.Ctx, c.ID)
	if err != nil {
		t.Fatalf("get candidate: %v", err)
	}
	if got.Status != domain.CandidateRejected {
		t.Fatalf("expected rejected, got %s", got.Status)
	}
	if got.RejectionStage != "HR Screen" || got.RejectionReason != "lacked depth on fundamentals" {
		t.Fatalf("rejection fields not recorded: %q %q", got.RejectionStage, got.RejectionReason)
	}

	// No further outcomes once the candidate is out of the pipeline.
	next := stageAt(t, env, c.ID, 1)
	_, err = env.Engine.ActivateStage(env.Ctx, next.ID, "hr-1")
	var pe engine.PreconditionError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}
}

func TestOutcomeRequiresComments(t *testing.T) {
	env := newTestEnv(t)
	c := createCandidate(t, env, "cand-1")
	s := stageAt(t, env, c.ID, 0)

	_, err := env.Engine.RecordOutcome(env.Ctx, engine.OutcomeOptions{
		StageID: s.ID,
		Outcome: domain.StagePassed,
		ActorID: "hr-1",
	})
	var ve engine.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	// The stage must be untouched.
	got := stageAt(t, env, c.ID, 0)
	if got.Status != domain.StagePending || got.Comments != "" {
		t.Fatalf("stage mutated by rejected outcome: %s %q", got.Status, got.Comments)
	}
}

func TestDoubleOutcomeBlocked(t *testing.T) {
	env := newTestEnv(t)
	c := createCandidate(t, env, "cand-1")
	s := stageAt(t, env, c.ID, 0)

	if _, err := env.Engine.RecordOutcome(env.Ctx, engine.OutcomeOptions{
		StageID: s.ID, Outcome: domain.StagePassed, Comments: "ok", ActorID: "hr-1",
	}); err != nil {
		t.Fatalf("first outcome: %v", err)
	}
	_, err := env.Engine.RecordOutcome(env.Ctx, engine.OutcomeOptions{
		StageID: s.ID, Outcome: domain.StageFailed, Comments: "changed my mind", ActorID: "hr-1",
	})
	var pe engine.PreconditionError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}
}

func TestActivateStageGuards(t *testing.T) {
	env := newTestEnv(t)
	c := createCandidate(t, env, "cand-1")

	// Activating a stage ahead of the current index is blocked.
	ahead := stageAt(t, env, c.ID, 2)
	_, err := env.Engine.ActivateStage(env.Ctx, ahead.ID, "hr-1")
	var pe engine.PreconditionError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}

	// After stage 0 passes, stage 1 can be activated.
	s0 := stageAt(t, env, c.ID, 0)
	if _, err := env.Engine.RecordOutcome(env.Ctx, engine.OutcomeOptions{
		StageID: s0.ID, Outcome: domain.StagePassed, Comments: "ok", ActorID: "hr-1",
	}); err != nil {
		t.Fatalf("pass stage 0: %v", err)
	}
	s1 := stageAt(t, env, c.ID, 1)
	activated, err := env.Engine.ActivateStage(env.Ctx, s1.ID, "hr-1")
	if err != nil {
		t.Fatalf("activate stage 1: %v", err)
	}
	if activated.Status != domain.StagePending {
		t.Fatalf("expected pending, got %s", activated.Status)
	}
}

func TestBookInterviewConflict(t *testing.T) {
	env := newTestEnv(t)
	a := createCandidate(t, env, "cand-a")
	b := createCandidate(t, env, "cand-b")

	sa := stageAt(t, env, a.ID, 0)
	sb := stageAt(t, env, b.ID, 0)

	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	if _, err := env.Engine.BookInterview(env.Ctx, engine.BookOptions{
		StageID: sa.ID, ScheduledAt: at, ActorID: "hr-1",
	}); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	// Same interviewer, overlapping slot for another candidate.
	_, err := env.Engine.BookInterview(env.Ctx, engine.BookOptions{
		StageID: sb.ID, ScheduledAt: at.Add(15 * time.Minute), ActorID: "hr-1",
	})
	var ce engine.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if !strings.Contains(ce.Error(), "10:00") {
		t.Fatalf("conflict message should cite the occupied slot: %q", ce.Error())
	}
	if ce.InterviewerID != "hr-1" {
		t.Fatalf("conflict names wrong interviewer: %s", ce.InterviewerID)
	}
}

func TestBookTouchingSlots(t *testing.T) {
	env := newTestEnv(t)
	a := createCandidate(t, env, "cand-a")
	b := createCandidate(t, env, "cand-b")

	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	if _, err := env.Engine.BookInterview(env.Ctx, engine.BookOptions{
		StageID: stageAt(t, env, a.ID, 0).ID, ScheduledAt: at, ActorID: "hr-1",
	}); err != nil {
		t.Fatalf("first booking: %v", err)
	}
	// Back to back is fine.
	if _, err := env.Engine.BookInterview(env.Ctx, engine.BookOptions{
		StageID: stageAt(t, env, b.ID, 0).ID, ScheduledAt: at.Add(30 * time.Minute), ActorID: "hr-1",
	}); err != nil {
		t.Fatalf("back-to-back booking: %v", err)
	}
}

func TestBookInterviewUpdatesStage(t *testing.T) {
	env := newTestEnv(t)
	c := createCandidate(t, env, "cand-1")
	s := stageAt(t, env, c.ID, 0)

	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	booked, err := env.Engine.BookInterview(env.Ctx, engine.BookOptions{
		StageID: s.ID, ScheduledAt: at, ActorID: "hr-1",
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if booked.DurationMinutes != 30 {
		t.Fatalf("expected default 30 minute duration, got %d", booked.DurationMinutes)
	}
	if booked.InterviewerID != "hr-1" {
		t.Fatalf("expected stage interviewer, got %s", booked.InterviewerID)
	}
	got := stageAt(t, env, c.ID, 0)
	if got.Status != domain.StageInProgress || got.ScheduledAt == nil {
		t.Fatalf("stage not updated: %s %v", got.Status, got.ScheduledAt)
	}

	// A second live booking for the same stage is blocked.
	_, err = env.Engine.BookInterview(env.Ctx, engine.BookOptions{
		StageID: s.ID, ScheduledAt: at.Add(2 * time.Hour), ActorID: "hr-1",
	})
	var pe engine.PreconditionError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}
}

func TestOutcomeCompletesLiveInterview(t *testing.T) {
	env := newTestEnv(t)
	c := createCandidate(t, env, "cand-1")
	s := stageAt(t, env, c.ID, 0)

	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	booked, err := env.Engine.BookInterview(env.Ctx, engine.BookOptions{
		StageID: s.ID, ScheduledAt: at, ActorID: "hr-1",
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if _, err := env.Engine.RecordOutcome(env.Ctx, engine.OutcomeOptions{
		StageID: s.ID, Outcome: domain.StagePassed, Comments: "solid", ActorID: "hr-1",
	}); err != nil {
		t.Fatalf("outcome: %v", err)
	}
	got, err := env.Engine.Repo.GetInterview(env.Ctx, booked.ID)
	if err != nil {
		t.Fatalf("get interview: %v", err)
	}
	if got.Status != domain.InterviewCompleted {
		t.Fatalf("expected completed interview, got %s", got.Status)
	}
	if got.Outcome == nil || *got.Outcome != domain.StagePassed {
		t.Fatalf("interview outcome not synced: %v", got.Outcome)
	}
}

func TestRescheduleExcludesSelfAndChecksOthers(t *testing.T) {
	env := newTestEnv(t)
	a := createCandidate(t, env, "cand-a")
	b := createCandidate(t, env, "cand-b")

	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	first, err := env.Engine.BookInterview(env.Ctx, engine.BookOptions{
		StageID: stageAt(t, env, a.ID, 0).ID, ScheduledAt: at, ActorID: "hr-1",
	})
	if err != nil {
		t.Fatalf("book first: %v", err)
	}
	second, err := env.Engine.BookInterview(env.Ctx, engine.BookOptions{
		StageID: stageAt(t, env, b.ID, 0).ID, ScheduledAt: at.Add(time.Hour), ActorID: "hr-1",
	})
	if err != nil {
		t.Fatalf("book second: %v", err)
	}

	// Nudging an interview within its own window is fine.
	moved, err := env.Engine.RescheduleInterview(env.Ctx, first.ID, at.Add(10*time.Minute), "hr-1")
	if err != nil {
		t.Fatalf("reschedule within own slot: %v", err)
	}
	if moved.Status != domain.InterviewRescheduled {
		t.Fatalf("expected rescheduled status, got %s", moved.Status)
	}

	// Moving onto the other interview conflicts.
	_, err = env.Engine.RescheduleInterview(env.Ctx, second.ID, at.Add(15*time.Minute), "hr-1")
	var ce engine.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestCancelFreesSlot(t *testing.T) {
	env := newTestEnv(t)
	a := createCandidate(t, env, "cand-a")
	b := createCandidate(t, env, "cand-b")

	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	booked, err := env.Engine.BookInterview(env.Ctx, engine.BookOptions{
		StageID: stageAt(t, env, a.ID, 0).ID, ScheduledAt: at, ActorID: "hr-1",
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if _, err := env.Engine.CancelInterview(env.Ctx, booked.ID, "hr-1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	got := stageAt(t, env, a.ID, 0)
	if got.Status != domain.StagePending || got.ScheduledAt != nil {
		t.Fatalf("stage not reset after cancel: %s %v", got.Status, got.ScheduledAt)
	}
	// Cancelled slot no longer blocks the interviewer.
	if _, err := env.Engine.BookInterview(env.Ctx, engine.BookOptions{
		StageID: stageAt(t, env, b.ID, 0).ID, ScheduledAt: at, ActorID: "hr-1",
	}); err != nil {
		t.Fatalf("rebook freed slot: %v", err)
	}
}

func TestChainEditArchivesCompletedStages(t *testing.T) {
	env := newTestEnv(t)
	c := createCandidate(t, env, "cand-1")
	s0 := stageAt(t, env, c.ID, 0)
	if _, err := env.Engine.RecordOutcome(env.Ctx, engine.OutcomeOptions{
		StageID: s0.ID, Outcome: domain.StagePassed, Comments: "great communicator", ActorID: "hr-1",
	}); err != nil {
		t.Fatalf("pass stage 0: %v", err)
	}

	newChain := []domain.StageRef{
		{StageName: "Pair Programming", InterviewerID: "int-1"},
		{StageName: "Final Interview", InterviewerID: "int-2"},
	}
	stages, err := env.Engine.MaterializeChain(env.Ctx, c.ID, newChain, "hr-1")
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if len(stages) != 2 || stages[0].Status != domain.StagePending || stages[1].Status != domain.StageWaiting {
		t.Fatalf("unexpected new chain state: %+v", stages)
	}

	got, err := env.Engine.Repo.GetCandidate(env.Ctx, c.ID)
	if err != nil {
		t.Fatalf("get candidate: %v", err)
	}
	if got.CurrentStageIndex != 0 || got.Status != domain.CandidateActive {
		t.Fatalf("candidate not reset: %d %s", got.CurrentStageIndex, got.Status)
	}

	history, err := env.Engine.Repo.ListStageHistory(env.Ctx, c.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 archived stage, got %d", len(history))
	}
	if history[0].StageName != "HR Screen" || history[0].Comments != "great communicator" {
		t.Fatalf("archived snapshot wrong: %+v", history[0])
	}
}

func TestDismissLifecycle(t *testing.T) {
	env := newTestEnv(t)
	c := createCandidate(t, env, "cand-1")
	for i := 0; i < 3; i++ {
		s := stageAt(t, env, c.ID, i)
		if i > 0 {
			if _, err := env.Engine.ActivateStage(env.Ctx, s.ID, "hr-1"); err != nil {
				t.Fatalf("activate: %v", err)
			}
		}
		if _, err := env.Engine.RecordOutcome(env.Ctx, engine.OutcomeOptions{
			StageID: s.ID, Outcome: domain.StagePassed, Comments: "ok", ActorID: "hr-1",
		}); err != nil {
			t.Fatalf("pass: %v", err)
		}
	}
	if _, err := env.Engine.CompleteDocumentation(env.Ctx, c.ID, "hr-1"); err != nil {
		t.Fatalf("hire: %v", err)
	}

	// Reason is mandatory.
	_, err := env.Engine.Dismiss(env.Ctx, c.ID, "  ", nil, "hr-1")
	var ve engine.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	dismissed, err := env.Engine.Dismiss(env.Ctx, c.ID, "left the company", nil, "hr-1")
	if err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	if dismissed.Status != domain.CandidateDismissed || dismissed.DismissalReason != "left the company" || dismissed.DismissedAt == nil {
		t.Fatalf("dismissal fields wrong: %+v", dismissed)
	}

	archived, err := env.Engine.Archive(env.Ctx, c.ID, "hr-1")
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if archived.Status != domain.CandidateArchived {
		t.Fatalf("expected archived, got %s", archived.Status)
	}
}

func TestDocumentationRequiresActiveCandidate(t *testing.T) {
	env := newTestEnv(t)
	c := createCandidate(t, env, "cand-1")
	// Not all stages passed yet.
	_, err := env.Engine.MoveToDocumentation(env.Ctx, c.ID, "hr-1")
	var pe engine.PreconditionError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}
}

func TestDeleteCandidateCascades(t *testing.T) {
	env := newTestEnv(t)
	c := createCandidate(t, env, "cand-1")
	s := stageAt(t, env, c.ID, 0)
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	if _, err := env.Engine.BookInterview(env.Ctx, engine.BookOptions{
		StageID: s.ID, ScheduledAt: at, ActorID: "hr-1",
	}); err != nil {
		t.Fatalf("book: %v", err)
	}
	if err := env.Engine.DeleteCandidate(env.Ctx, c.ID, "hr-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.Engine.Repo.GetCandidate(env.Ctx, c.ID); err == nil {
		t.Fatalf("candidate still present")
	}
	stages, err := env.Engine.Repo.ListStages(env.Ctx, c.ID)
	if err != nil {
		t.Fatalf("list stages: %v", err)
	}
	if len(stages) != 0 {
		t.Fatalf("stages not cascaded: %d", len(stages))
	}
}

func TestConcurrentBookingSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	a := createCandidate(t, env, "cand-a")
	b := createCandidate(t, env, "cand-b")
	sa := stageAt(t, env, a.ID, 0)
	sb := stageAt(t, env, b.ID, 0)

	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, stageID := range []string{sa.ID, sb.ID} {
		wg.Add(1)
		go func(i int, stageID string) {
			defer wg.Done()
			_, errs[i] = env.Engine.BookInterview(env.Ctx, engine.BookOptions{
				StageID: stageID, ScheduledAt: at, ActorID: "hr-1",
			})
		}(i, stageID)
	}
	wg.Wait()

	conflicts := 0
	for _, err := range errs {
		var ce engine.ConflictError
		if errors.As(err, &ce) {
			conflicts++
		} else if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if conflicts != 1 {
		t.Fatalf("expected exactly one losing booking, got %d conflicts", conflicts)
	}
}

func TestEventRowsUseEngineClock(t *testing.T) {
	env := newTestEnv(t)
	c := createCandidate(t, env, "cand-1")

	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, 10, c.ID, "", "", "")
	if err != nil {
		t.Fatalf("latest events: %v", err)
	}
	if len(evts) == 0 {
		t.Fatal("expected events for the new candidate")
	}
	want := "2025-03-01T00:00:00Z"
	if c.CreatedAt != want {
		t.Fatalf("candidate created_at = %q, want %q", c.CreatedAt, want)
	}
	for _, evt := range evts {
		if evt.TS != want {
			t.Fatalf("event %s ts = %q, want %q", evt.Type, evt.TS, want)
		}
	}
}
