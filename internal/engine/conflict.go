package engine

import (
	"time"

	"hireline/internal/domain"
)

// FindConflict checks a proposed [start, start+duration) window against an
// interviewer's existing bookings. Windows are half-open, so touching
// endpoints do not conflict. When several bookings overlap the proposal,
// the earliest-starting one is returned.
func FindConflict(existing []domain.Interview, start time.Time, duration time.Duration) (domain.Interview, bool) {
	end := start.Add(duration)
	var best domain.Interview
	var bestStart time.Time
	found := false
	for _, iv := range existing {
		s, err := time.Parse(time.RFC3339, iv.ScheduledAt)
		if err != nil {
			continue
		}
		e := s.Add(time.Duration(iv.DurationMinutes) * time.Minute)
		if start.Before(e) && s.Before(end) {
			if !found || s.Before(bestStart) {
				best = iv
				bestStart = s
				found = true
			}
		}
	}
	return best, found
}
