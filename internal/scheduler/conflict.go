package scheduler

import "github.com/example/academy-timetable/internal/timeclock"

// Slot is the scheduling view of a weekly class session. Minutes are raw
// minutes since local midnight.
type Slot struct {
	ID          string
	OwnerID     string
	Weekday     int
	StartMinute int
	EndMinute   int
}

// NormalizedStart returns the start in day-clock minutes.
func (s Slot) NormalizedStart() int {
	return timeclock.NormalizeMinute(s.StartMinute)
}

// NormalizedEnd returns the end in day-clock minutes.
func (s Slot) NormalizedEnd() int {
	return timeclock.NormalizeMinute(s.EndMinute)
}

// Duration returns the day-clock length of the slot in minutes.
func (s Slot) Duration() int {
	return s.NormalizedEnd() - s.NormalizedStart()
}

// Overlaps reports whether two slots collide inside the same conflict scope.
func (s Slot) Overlaps(other Slot) bool {
	if s.OwnerID != other.OwnerID || s.Weekday != other.Weekday {
		return false
	}
	return timeclock.Overlaps(s.NormalizedStart(), s.NormalizedEnd(), other.NormalizedStart(), other.NormalizedEnd())
}

// WouldConflict reports whether candidate collides with any slot owned by
// ownerID on the candidate's weekday. The slot identified by excludeID is
// ignored so a session never conflicts with its own prior placement.
func WouldConflict(candidate Slot, ownerID, excludeID string, all []Slot) bool {
	return len(ConflictingIDs(candidate, ownerID, excludeID, all)) > 0
}

// ConflictingIDs returns the ids of every slot WouldConflict would report,
// in input order.
func ConflictingIDs(candidate Slot, ownerID, excludeID string, all []Slot) []string {
	start, end := candidate.NormalizedStart(), candidate.NormalizedEnd()

	var ids []string
	for _, existing := range all {
		if existing.OwnerID != ownerID || existing.Weekday != candidate.Weekday {
			continue
		}
		if excludeID != "" && existing.ID == excludeID {
			continue
		}
		if timeclock.Overlaps(start, end, existing.NormalizedStart(), existing.NormalizedEnd()) {
			ids = append(ids, existing.ID)
		}
	}
	return ids
}

// Overlap records two slots that violate the per-scope disjointness rule.
type Overlap struct {
	OwnerID string
	Weekday int
	FirstID string
	OtherID string
}

// DetectOverlaps lists every overlapping pair in the set. Pairs are reported
// once, ordered by the position of their first member.
func DetectOverlaps(all []Slot) []Overlap {
	var overlaps []Overlap
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			if all[i].Overlaps(all[j]) {
				overlaps = append(overlaps, Overlap{
					OwnerID: all[i].OwnerID,
					Weekday: all[i].Weekday,
					FirstID: all[i].ID,
					OtherID: all[j].ID,
				})
			}
		}
	}
	return overlaps
}
