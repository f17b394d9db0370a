package application

import (
	"sort"
	"sync"

	"github.com/example/academy-timetable/internal/scheduler"
)

// sessionSet is an immutable-by-convention list of one owner's sessions.
// Mutating helpers return a new set so an optimistic view can be discarded
// by simply dropping it.
type sessionSet []ClassSession

func newSessionSet(sessions []ClassSession) sessionSet {
	out := make(sessionSet, len(sessions))
	copy(out, sessions)
	return out
}

func (s sessionSet) find(id string) (ClassSession, bool) {
	for _, session := range s {
		if session.ID == id {
			return session, true
		}
	}
	return ClassSession{}, false
}

func (s sessionSet) with(session ClassSession) sessionSet {
	out := make(sessionSet, 0, len(s)+1)
	replaced := false
	for _, existing := range s {
		if existing.ID == session.ID {
			out = append(out, session)
			replaced = true
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, session)
	}
	return out
}

func (s sessionSet) without(id string) sessionSet {
	out := make(sessionSet, 0, len(s))
	for _, existing := range s {
		if existing.ID != id {
			out = append(out, existing)
		}
	}
	return out
}

func (s sessionSet) slots() []scheduler.Slot {
	slots := make([]scheduler.Slot, len(s))
	for i, session := range s {
		slots[i] = toSlot(session)
	}
	return slots
}

// ordered returns a copy sorted by weekday, then day-clock start, then id.
func (s sessionSet) ordered() []ClassSession {
	out := make([]ClassSession, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := toSlot(out[i]), toSlot(out[j])
		if a.Weekday != b.Weekday {
			return a.Weekday < b.Weekday
		}
		if a.NormalizedStart() != b.NormalizedStart() {
			return a.NormalizedStart() < b.NormalizedStart()
		}
		return a.ID < b.ID
	})
	return out
}

func toSlot(session ClassSession) scheduler.Slot {
	return scheduler.Slot{
		ID:          session.ID,
		OwnerID:     session.OwnerID,
		Weekday:     session.Weekday,
		StartMinute: session.StartMinute,
		EndMinute:   session.EndMinute,
	}
}

// ownerState is the scheduler state of a single owner. cmd serializes
// commands; mu guards the visible set so readers observe optimistic updates
// while a commit is in flight.
type ownerState struct {
	cmd sync.Mutex

	mu       sync.RWMutex
	sessions sessionSet
	loaded   bool
	version  uint64
	proposal scheduler.Proposal
}

func (o *ownerState) snapshot() (sessionSet, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.sessions, o.loaded
}

func (o *ownerState) replace(sessions sessionSet) {
	o.mu.Lock()
	o.sessions = sessions
	o.loaded = true
	o.version++
	o.mu.Unlock()
}

// invalidate forces the next read to reload from the store.
func (o *ownerState) invalidate() {
	o.mu.Lock()
	o.sessions = nil
	o.loaded = false
	o.version++
	o.mu.Unlock()
}

func (o *ownerState) currentVersion() uint64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.version
}
