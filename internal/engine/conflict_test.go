package engine

import (
	"testing"
	"time"

	"hireline/internal/domain"
)

func iv(id, start string, minutes int) domain.Interview {
	return domain.Interview{ID: id, ScheduledAt: start, DurationMinutes: minutes, Status: domain.InterviewScheduled}
}

func TestFindConflictOverlap(t *testing.T) {
	existing := []domain.Interview{iv("a", "2025-03-01T10:00:00Z", 30)}
	start := time.Date(2025, 3, 1, 10, 15, 0, 0, time.UTC)
	clash, found := FindConflict(existing, start, 30*time.Minute)
	if !found {
		t.Fatalf("expected conflict")
	}
	if clash.ID != "a" {
		t.Fatalf("expected interview a, got %s", clash.ID)
	}
}

func TestFindConflictTouchingEndpointsAllowed(t *testing.T) {
	existing := []domain.Interview{iv("a", "2025-03-01T10:00:00Z", 30)}
	// New slot starts exactly when the existing one ends.
	start := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)
	if _, found := FindConflict(existing, start, 30*time.Minute); found {
		t.Fatalf("touching endpoints must not conflict")
	}
	// And one ending exactly when the existing one starts.
	start = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	if _, found := FindConflict(existing, start, 30*time.Minute); found {
		t.Fatalf("touching endpoints must not conflict")
	}
}

func TestFindConflictEarliestWins(t *testing.T) {
	existing := []domain.Interview{
		iv("late", "2025-03-01T10:20:00Z", 30),
		iv("early", "2025-03-01T10:00:00Z", 60),
	}
	start := time.Date(2025, 3, 1, 10, 25, 0, 0, time.UTC)
	clash, found := FindConflict(existing, start, 30*time.Minute)
	if !found {
		t.Fatalf("expected conflict")
	}
	if clash.ID != "early" {
		t.Fatalf("expected earliest-starting interview, got %s", clash.ID)
	}
}

func TestFindConflictSkipsUnparsable(t *testing.T) {
	existing := []domain.Interview{
		iv("bad", "not-a-time", 30),
		iv("good", "2025-03-01T10:00:00Z", 30),
	}
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	clash, found := FindConflict(existing, start, 15*time.Minute)
	if !found || clash.ID != "good" {
		t.Fatalf("expected conflict with parsable interview, got %v %v", clash.ID, found)
	}
}

func TestFindConflictNoBookings(t *testing.T) {
	if _, found := FindConflict(nil, time.Now(), 30*time.Minute); found {
		t.Fatalf("empty calendar must not conflict")
	}
}
