package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"hireline/internal/config"
	"hireline/internal/db"
	"hireline/internal/domain"
	"hireline/internal/migrate"
)

// A booking that loses the interviewer lock to a candidate deletion must
// come back as a not-found error, not a raw storage error.
func TestBookInterviewStageDeletedWhileWaitingForLock(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := New(conn, config.Default("test-org"), nil)
	eng.Now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	if _, err := eng.CreateVacancy(ctx, "vac-1", "Backend Engineer"); err != nil {
		t.Fatalf("seed vacancy: %v", err)
	}
	if _, err := eng.CreateUser(ctx, domain.User{ID: "hr-1", FullName: "hr-1", Role: domain.RoleHR}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	c, err := eng.CreateCandidate(ctx, CandidateCreateOptions{
		ID:        "cand-1",
		VacancyID: "vac-1",
		FullName:  "Ada Example",
		Chain:     []domain.StageRef{{StageName: "HR Screen", InterviewerID: "hr-1"}},
		ActorID:   "hr-1",
	})
	if err != nil {
		t.Fatalf("create candidate: %v", err)
	}
	stages, err := eng.Repo.ListStages(ctx, c.ID)
	if err != nil || len(stages) != 1 {
		t.Fatalf("list stages: %v (%d)", err, len(stages))
	}

	unlock := eng.locks.lock("hr-1")
	done := make(chan error, 1)
	go func() {
		_, bookErr := eng.BookInterview(ctx, BookOptions{
			StageID:     stages[0].ID,
			ScheduledAt: time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC),
			ActorID:     "hr-1",
		})
		done <- bookErr
	}()

	// Let the booking pass its pre-checks and block on the interviewer
	// lock, then delete the candidate (cascading the stage) out from
	// under it.
	time.Sleep(100 * time.Millisecond)
	if err := eng.DeleteCandidate(ctx, c.ID, "hr-1"); err != nil {
		t.Fatalf("delete candidate: %v", err)
	}
	unlock()

	select {
	case err := <-done:
		var nfe NotFoundError
		if !errors.As(err, &nfe) {
			t.Fatalf("expected NotFoundError, got %v", err)
		}
		if nfe.Kind != "stage" || nfe.ID != stages[0].ID {
			t.Fatalf("unexpected not-found detail: %+v", nfe)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("booking never returned")
	}
}
