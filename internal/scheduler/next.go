package scheduler

import (
	"time"

	"github.com/example/academy-timetable/internal/timeclock"
)

// Instant is a position inside the weekly cycle.
type Instant struct {
	Weekday int
	Minute  int
}

// InstantOf converts a wall clock time into its weekly position in loc.
// A nil location keeps the time's own location.
func InstantOf(t time.Time, loc *time.Location) Instant {
	if loc != nil {
		t = t.In(loc)
	}
	return Instant{
		Weekday: int(t.Weekday()),
		Minute:  t.Hour()*timeclock.MinutesPerHour + t.Minute(),
	}
}

// FindNext returns the slot whose raw start is the soonest strictly after now.
// A slot starting exactly at now is treated as a full week away. Ties keep the
// first slot in input order. The boolean is false when sessions is empty.
func FindNext(now Instant, sessions []Slot) (Slot, bool) {
	best := -1
	bestDistance := 0
	for i, s := range sessions {
		d := timeclock.CircularForwardDistance(now.Weekday, now.Minute, s.Weekday, s.StartMinute)
		if best == -1 || d < bestDistance {
			best = i
			bestDistance = d
		}
	}
	if best == -1 {
		return Slot{}, false
	}
	return sessions[best], true
}
