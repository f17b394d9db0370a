package scheduler

import (
	"slices"
	"testing"
)

func slot(id, owner string, weekday, start, end int) Slot {
	return Slot{ID: id, OwnerID: owner, Weekday: weekday, StartMinute: start, EndMinute: end}
}

func TestWouldConflict(t *testing.T) {
	t.Run("overlap in the same owner and weekday conflicts", func(t *testing.T) {
		existing := []Slot{slot("a", "t1", 1, 8*60, 10*60+30)}
		candidate := slot("c", "t1", 1, 9*60, 11*60)
		if !WouldConflict(candidate, "t1", "c", existing) {
			t.Fatal("expected conflict with session a")
		}
	})

	t.Run("other owners never conflict", func(t *testing.T) {
		existing := []Slot{slot("a", "t2", 1, 9*60, 11*60)}
		if WouldConflict(slot("c", "t1", 1, 9*60, 11*60), "t1", "", existing) {
			t.Fatal("expected no conflict across owners")
		}
	})

	t.Run("other weekdays never conflict", func(t *testing.T) {
		existing := []Slot{slot("a", "t1", 2, 9*60, 11*60)}
		if WouldConflict(slot("c", "t1", 1, 9*60, 11*60), "t1", "", existing) {
			t.Fatal("expected no conflict across weekdays")
		}
	})

	t.Run("excluded session is ignored", func(t *testing.T) {
		existing := []Slot{slot("a", "t1", 1, 10*60, 12*60)}
		if WouldConflict(slot("a", "t1", 1, 11*60, 13*60), "t1", "a", existing) {
			t.Fatal("expected a session not to conflict with its own prior placement")
		}
	})

	t.Run("touching sessions do not conflict", func(t *testing.T) {
		existing := []Slot{slot("a", "t1", 1, 10*60, 12*60)}
		if WouldConflict(slot("b", "t1", 1, 12*60, 13*60), "t1", "b", existing) {
			t.Fatal("expected touching intervals to be accepted")
		}
	})

	t.Run("late sessions compare on the day clock", func(t *testing.T) {
		existing := []Slot{slot("late", "t1", 1, 23*60, 60)}
		if !WouldConflict(slot("b", "t1", 1, 0, 30), "t1", "b", existing) {
			t.Fatal("expected 00:00-00:30 to overlap 23:00-01:00")
		}
		if WouldConflict(slot("b", "t1", 1, 21*60, 23*60), "t1", "b", existing) {
			t.Fatal("expected 21:00-23:00 to sit before 23:00-01:00")
		}
	})
}

func TestConflictingIDs(t *testing.T) {
	existing := []Slot{
		slot("a", "t1", 1, 9*60, 10*60),
		slot("b", "t1", 1, 10*60, 11*60),
		slot("c", "t1", 1, 12*60, 13*60),
	}
	got := ConflictingIDs(slot("x", "t1", 1, 9*60+30, 10*60+30), "t1", "x", existing)
	if !slices.Equal(got, []string{"a", "b"}) {
		t.Fatalf("unexpected conflicting ids: %v", got)
	}
}

func TestDetectOverlaps(t *testing.T) {
	all := []Slot{
		slot("a", "t1", 1, 9*60, 11*60),
		slot("b", "t1", 1, 10*60, 12*60),
		slot("c", "t1", 2, 10*60, 12*60),
		slot("d", "t2", 1, 10*60, 12*60),
	}

	overlaps := DetectOverlaps(all)
	if len(overlaps) != 1 {
		t.Fatalf("expected a single overlap, got %+v", overlaps)
	}
	if overlaps[0].FirstID != "a" || overlaps[0].OtherID != "b" {
		t.Fatalf("unexpected overlap pair: %+v", overlaps[0])
	}

	if DetectOverlaps(all[2:]) != nil {
		t.Fatal("expected no overlaps across scopes")
	}
}

func TestSlotDuration(t *testing.T) {
	if d := slot("a", "t1", 1, 23*60, 60).Duration(); d != 120 {
		t.Fatalf("expected 23:00-01:00 to last 120 minutes, got %d", d)
	}
}
