package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type sessionStoreStub struct {
	mu        sync.Mutex
	sessions  []ClassSession
	loadErr   error
	commitErr error
	loads     int
	commits   []SessionMutation
	applied   []PresetApplication
	// observe runs inside a commit, before the store changes anything.
	observe func()
}

func newSessionStoreStub(sessions ...ClassSession) *sessionStoreStub {
	return &sessionStoreStub{sessions: append([]ClassSession(nil), sessions...)}
}

func (s *sessionStoreStub) LoadSessions(ctx context.Context, scope SessionScope) ([]ClassSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.ownedLocked(scope.OwnerID), nil
}

func (s *sessionStoreStub) CommitSessionMutation(ctx context.Context, mutation SessionMutation) ([]ClassSession, error) {
	if s.observe != nil {
		s.observe()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits = append(s.commits, mutation)
	if s.commitErr != nil {
		return nil, s.commitErr
	}

	switch mutation.Kind {
	case MutationCreate:
		s.sessions = append(s.sessions, mutation.Session)
	case MutationUpdate:
		for i := range s.sessions {
			if s.sessions[i].ID == mutation.Session.ID {
				s.sessions[i] = mutation.Session
			}
		}
	case MutationDelete:
		kept := s.sessions[:0]
		for _, session := range s.sessions {
			if session.ID != mutation.Session.ID {
				kept = append(kept, session)
			}
		}
		s.sessions = kept
	}
	return s.ownedLocked(mutation.OwnerID), nil
}

func (s *sessionStoreStub) CommitPresetApply(ctx context.Context, application PresetApplication) ([]ClassSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied = append(s.applied, application)
	if s.commitErr != nil {
		return nil, s.commitErr
	}
	kept := make([]ClassSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		if session.OwnerID != application.OwnerID {
			kept = append(kept, session)
		}
	}
	s.sessions = append(kept, application.Sessions...)
	return s.ownedLocked(application.OwnerID), nil
}

func (s *sessionStoreStub) ownedLocked(ownerID string) []ClassSession {
	out := make([]ClassSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		if ownerID == "" || session.OwnerID == ownerID {
			out = append(out, session)
		}
	}
	return out
}

type notifierStub struct {
	mu      sync.Mutex
	reasons []string
	err     error
}

func (n *notifierStub) NotifyTimetableChanged(ctx context.Context, ownerID, reason string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reasons = append(n.reasons, ownerID+":"+reason)
	return n.err
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	next := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		next++
		return fmt.Sprintf("%s-%d", prefix, next)
	}
}

func fixedNow() time.Time {
	return time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)
}

func session(id string, weekday int, start, end string) ClassSession {
	return ClassSession{
		ID:          id,
		OwnerID:     "teacher-1",
		Name:        "Class " + id,
		Weekday:     weekday,
		StartMinute: mustClock(start),
		EndMinute:   mustClock(end),
		ColorTag:    DefaultColorTag,
	}
}

func mustClock(value string) int {
	var hour, minute int
	if _, err := fmt.Sscanf(value, "%d:%d", &hour, &minute); err != nil {
		panic(err)
	}
	return hour*60 + minute
}

func newTestTimetable(store SessionStore) *TimetableService {
	return NewTimetableService(store, sequentialIDs("session"), fixedNow)
}

func TestTimetableService_MoveSession_KeepsDuration(t *testing.T) {
	t.Parallel()

	store := newSessionStoreStub(session("A", 1, "10:00", "12:00"))
	svc := newTestTimetable(store)

	moved, err := svc.MoveSession(context.Background(), MoveSessionParams{
		OwnerID: "teacher-1", SessionID: "A", Weekday: 1, StartMinute: mustClock("11:00"),
	})
	if err != nil {
		t.Fatalf("MoveSession returned error: %v", err)
	}
	if moved.StartMinute != mustClock("11:00") || moved.EndMinute != mustClock("13:00") {
		t.Fatalf("expected 11:00-13:00, got %d-%d", moved.StartMinute, moved.EndMinute)
	}
	if len(store.commits) != 1 || store.commits[0].Kind != MutationUpdate {
		t.Fatalf("expected one update commit, got %+v", store.commits)
	}
}

func TestTimetableService_MoveSession_RejectsConflict(t *testing.T) {
	t.Parallel()

	store := newSessionStoreStub(
		session("A", 1, "08:00", "10:30"),
		session("C", 2, "09:00", "11:00"),
	)
	svc := newTestTimetable(store)

	_, err := svc.MoveSession(context.Background(), MoveSessionParams{
		OwnerID: "teacher-1", SessionID: "C", Weekday: 1, StartMinute: mustClock("09:00"),
	})

	var cErr *ConflictError
	if !errors.As(err, &cErr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if len(cErr.With) != 1 || cErr.With[0] != "A" {
		t.Fatalf("expected conflict with A, got %v", cErr.With)
	}
	if len(store.commits) != 0 {
		t.Fatalf("expected no commits after rejection, got %d", len(store.commits))
	}

	sessions, _, err := svc.ListSessions(context.Background(), "teacher-1")
	if err != nil {
		t.Fatalf("ListSessions returned error: %v", err)
	}
	for _, s := range sessions {
		if s.ID == "C" && (s.Weekday != 2 || s.StartMinute != mustClock("09:00")) {
			t.Fatalf("expected C to remain unchanged, got %+v", s)
		}
	}
}

func TestTimetableService_MoveSession_RejectsBoundaryCrossing(t *testing.T) {
	t.Parallel()

	store := newSessionStoreStub(session("A", 1, "10:00", "12:00"))
	svc := newTestTimetable(store)

	_, err := svc.MoveSession(context.Background(), MoveSessionParams{
		OwnerID: "teacher-1", SessionID: "A", Weekday: 1, StartMinute: mustClock("07:00"),
	})
	if !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
}

func TestTimetableService_MoveSession_EarlyMorningConflict(t *testing.T) {
	t.Parallel()

	// 01:00-02:00 is late on the business day that began at 08:00, so it
	// collides with a session running 23:00-03:00.
	store := newSessionStoreStub(
		session("late", 3, "23:00", "03:00"),
		session("B", 2, "10:00", "11:00"),
	)
	svc := newTestTimetable(store)

	_, err := svc.MoveSession(context.Background(), MoveSessionParams{
		OwnerID: "teacher-1", SessionID: "B", Weekday: 3, StartMinute: mustClock("01:00"),
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestTimetableService_ResizeSession(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		end     string
		wantErr error
	}{
		{name: "end before start", end: "09:30", wantErr: ErrInvalidDuration},
		{name: "shorter than an hour", end: "10:30", wantErr: ErrInvalidDuration},
		{name: "overlaps neighbour", end: "14:00", wantErr: ErrConflict},
		{name: "extends to neighbour", end: "13:00"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store := newSessionStoreStub(
				session("A", 1, "10:00", "12:00"),
				session("B", 1, "13:00", "15:00"),
			)
			svc := newTestTimetable(store)

			resized, err := svc.ResizeSession(context.Background(), ResizeSessionParams{
				OwnerID: "teacher-1", SessionID: "A", EndMinute: mustClock(tc.end),
			})
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				if len(store.commits) != 0 {
					t.Fatalf("expected no commits after rejection")
				}
				return
			}
			if err != nil {
				t.Fatalf("ResizeSession returned error: %v", err)
			}
			if resized.StartMinute != mustClock("10:00") || resized.Weekday != 1 || resized.EndMinute != mustClock(tc.end) {
				t.Fatalf("unexpected resized session %+v", resized)
			}
		})
	}
}

func TestTimetableService_DuplicateSession_ConflictsWithSource(t *testing.T) {
	t.Parallel()

	store := newSessionStoreStub(session("A", 1, "10:00", "12:00"))
	svc := newTestTimetable(store)

	_, err := svc.DuplicateSession(context.Background(), SessionRef{OwnerID: "teacher-1", SessionID: "A"})

	var cErr *ConflictError
	if !errors.As(err, &cErr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if cErr.Candidate.ID == "A" || cErr.Candidate.Name != "Class A"+DuplicateNameSuffix {
		t.Fatalf("expected a renamed copy with a fresh id, got %+v", cErr.Candidate)
	}
	if len(cErr.With) != 1 || cErr.With[0] != "A" {
		t.Fatalf("expected conflict with source, got %v", cErr.With)
	}
}

func TestTimetableService_CreateSession(t *testing.T) {
	t.Parallel()

	store := newSessionStoreStub(session("A", 1, "10:00", "12:00"))
	notifier := &notifierStub{}
	svc := NewTimetableServiceWithLogger(store, notifier, sequentialIDs("session"), fixedNow, time.UTC, nil)

	created, err := svc.CreateSession(context.Background(), CreateSessionParams{
		OwnerID: "teacher-1",
		Draft:   SessionDraft{Name: "  Algebra ", Weekday: 1, StartMinute: mustClock("12:00"), EndMinute: mustClock("13:00")},
	})
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	if created.ID != "session-1" || created.Name != "Algebra" || created.ColorTag != DefaultColorTag {
		t.Fatalf("unexpected created session %+v", created)
	}
	if !created.CreatedAt.Equal(fixedNow()) {
		t.Fatalf("expected timestamps from injected clock, got %v", created.CreatedAt)
	}
	if len(notifier.reasons) != 1 || notifier.reasons[0] != "teacher-1:CreateSession" {
		t.Fatalf("expected one change notification, got %v", notifier.reasons)
	}
}

func TestTimetableService_CreateSession_Validates(t *testing.T) {
	t.Parallel()

	svc := newTestTimetable(newSessionStoreStub())

	_, err := svc.CreateSession(context.Background(), CreateSessionParams{
		OwnerID: "teacher-1",
		Draft:   SessionDraft{Weekday: 9, StartMinute: -5, EndMinute: 600, ColorTag: "neon"},
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"name", "weekday", "start", "color"} {
		if _, ok := vErr.FieldErrors[field]; !ok {
			t.Fatalf("expected %s validation error, got %v", field, vErr.FieldErrors)
		}
	}

	_, err = svc.CreateSession(context.Background(), CreateSessionParams{
		OwnerID: "teacher-1",
		Draft:   SessionDraft{Name: "Short", Weekday: 1, StartMinute: mustClock("10:00"), EndMinute: mustClock("10:30")},
	})
	if !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
}

func TestTimetableService_ConflictScopeIsPerOwnerAndWeekday(t *testing.T) {
	t.Parallel()

	other := session("X", 1, "10:00", "12:00")
	other.OwnerID = "teacher-2"
	store := newSessionStoreStub(other, session("A", 2, "10:00", "12:00"))
	svc := newTestTimetable(store)

	if _, err := svc.CreateSession(context.Background(), CreateSessionParams{
		OwnerID: "teacher-1",
		Draft:   SessionDraft{Name: "Same slot, other owner", Weekday: 1, StartMinute: mustClock("10:00"), EndMinute: mustClock("12:00")},
	}); err != nil {
		t.Fatalf("expected no conflict across owners, got %v", err)
	}
}

func TestTimetableService_DeleteSession(t *testing.T) {
	t.Parallel()

	store := newSessionStoreStub(session("A", 1, "10:00", "12:00"))
	svc := newTestTimetable(store)
	ctx := context.Background()

	if err := svc.DeleteSession(ctx, SessionRef{OwnerID: "teacher-1", SessionID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(store.commits) != 0 {
		t.Fatalf("expected unknown id to leave store untouched")
	}

	if err := svc.DeleteSession(ctx, SessionRef{OwnerID: "teacher-1", SessionID: "A"}); err != nil {
		t.Fatalf("DeleteSession returned error: %v", err)
	}
	sessions, _, err := svc.ListSessions(ctx, "teacher-1")
	if err != nil {
		t.Fatalf("ListSessions returned error: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expected empty timetable, got %+v", sessions)
	}
}

func TestTimetableService_RecolorSession(t *testing.T) {
	t.Parallel()

	store := newSessionStoreStub(session("A", 1, "10:00", "12:00"))
	svc := newTestTimetable(store)

	recolored, err := svc.RecolorSession(context.Background(), RecolorSessionParams{OwnerID: "teacher-1", SessionID: "A", ColorTag: "indigo"})
	if err != nil {
		t.Fatalf("RecolorSession returned error: %v", err)
	}
	if recolored.ColorTag != "indigo" {
		t.Fatalf("expected indigo, got %s", recolored.ColorTag)
	}

	_, err = svc.RecolorSession(context.Background(), RecolorSessionParams{OwnerID: "teacher-1", SessionID: "A", ColorTag: "neon"})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestTimetableService_PersistenceFailureResyncs(t *testing.T) {
	t.Parallel()

	store := newSessionStoreStub(session("A", 1, "10:00", "12:00"))
	svc := newTestTimetable(store)
	ctx := context.Background()

	if _, _, err := svc.ListSessions(ctx, "teacher-1"); err != nil {
		t.Fatalf("ListSessions returned error: %v", err)
	}

	var optimistic []ClassSession
	store.commitErr = errors.New("connection reset")
	store.observe = func() {
		current, _ := svc.owner("teacher-1").snapshot()
		optimistic = current.ordered()
	}

	_, err := svc.MoveSession(ctx, MoveSessionParams{OwnerID: "teacher-1", SessionID: "A", Weekday: 3, StartMinute: mustClock("14:00")})

	var pErr *PersistenceError
	if !errors.As(err, &pErr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if pErr.ResyncErr != nil {
		t.Fatalf("expected resync to succeed, got %v", pErr.ResyncErr)
	}
	if len(optimistic) != 1 || optimistic[0].Weekday != 3 {
		t.Fatalf("expected optimistic move to be visible during commit, got %+v", optimistic)
	}
	if store.loads != 2 {
		t.Fatalf("expected a reload after the failed commit, got %d loads", store.loads)
	}

	sessions, _, err := svc.ListSessions(ctx, "teacher-1")
	if err != nil {
		t.Fatalf("ListSessions returned error: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Weekday != 1 || sessions[0].StartMinute != mustClock("10:00") {
		t.Fatalf("expected authoritative state after rollback, got %+v", sessions)
	}
}

func TestTimetableService_ResyncFailureIsReported(t *testing.T) {
	t.Parallel()

	store := newSessionStoreStub(session("A", 1, "10:00", "12:00"))
	svc := newTestTimetable(store)
	ctx := context.Background()

	if _, _, err := svc.ListSessions(ctx, "teacher-1"); err != nil {
		t.Fatalf("ListSessions returned error: %v", err)
	}

	store.commitErr = errors.New("write failed")
	store.observe = func() { store.loadErr = errors.New("read failed") }

	err := svc.DeleteSession(ctx, SessionRef{OwnerID: "teacher-1", SessionID: "A"})
	var pErr *PersistenceError
	if !errors.As(err, &pErr) || pErr.ResyncErr == nil {
		t.Fatalf("expected PersistenceError with resync failure, got %v", err)
	}

	store.loadErr = nil
	sessions, _, err := svc.ListSessions(ctx, "teacher-1")
	if err != nil {
		t.Fatalf("ListSessions returned error: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected next read to reload the authoritative set, got %+v", sessions)
	}
}

func TestTimetableService_ListSessions_OrdersByDayClock(t *testing.T) {
	t.Parallel()

	store := newSessionStoreStub(
		session("night", 1, "01:00", "02:00"),
		session("morning", 1, "09:00", "10:00"),
		session("sunday", 0, "10:00", "11:00"),
	)
	svc := newTestTimetable(store)

	sessions, warnings, err := svc.ListSessions(context.Background(), "teacher-1")
	if err != nil {
		t.Fatalf("ListSessions returned error: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %+v", warnings)
	}
	got := []string{sessions[0].ID, sessions[1].ID, sessions[2].ID}
	want := []string{"sunday", "morning", "night"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestTimetableService_NextSession(t *testing.T) {
	t.Parallel()

	// Monday 2024-03-11 09:00 UTC.
	store := newSessionStoreStub(
		session("past", 1, "08:00", "09:00"),
		session("soon", 1, "10:00", "11:00"),
		session("later", 3, "10:00", "11:00"),
	)
	svc := NewTimetableServiceWithLogger(store, nil, nil, fixedNow, time.UTC, nil)

	next, ok, err := svc.NextSession(context.Background(), "teacher-1")
	if err != nil {
		t.Fatalf("NextSession returned error: %v", err)
	}
	if !ok || next.ID != "soon" {
		t.Fatalf("expected soon, got %+v (ok=%v)", next, ok)
	}

	empty := NewTimetableServiceWithLogger(newSessionStoreStub(), nil, nil, fixedNow, time.UTC, nil)
	if _, ok, err := empty.NextSession(context.Background(), "teacher-1"); err != nil || ok {
		t.Fatalf("expected no next session, got ok=%v err=%v", ok, err)
	}
}

func TestTimetableService_Resync_DiscardsLocalState(t *testing.T) {
	t.Parallel()

	store := newSessionStoreStub(session("A", 1, "10:00", "12:00"))
	svc := newTestTimetable(store)
	ctx := context.Background()

	if _, _, err := svc.ListSessions(ctx, "teacher-1"); err != nil {
		t.Fatalf("ListSessions returned error: %v", err)
	}

	store.mu.Lock()
	store.sessions = append(store.sessions, session("B", 2, "10:00", "11:00"))
	store.mu.Unlock()

	if err := svc.Resync(ctx, "teacher-1"); err != nil {
		t.Fatalf("Resync returned error: %v", err)
	}
	sessions, _, err := svc.ListSessions(ctx, "teacher-1")
	if err != nil {
		t.Fatalf("ListSessions returned error: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected reloaded set of 2 sessions, got %d", len(sessions))
	}
}

func TestTimetableService_UnknownSession(t *testing.T) {
	t.Parallel()

	svc := newTestTimetable(newSessionStoreStub())
	_, err := svc.MoveSession(context.Background(), MoveSessionParams{OwnerID: "teacher-1", SessionID: "ghost", Weekday: 1, StartMinute: 600})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTimetableService_ConcurrentCreatesKeepInvariant(t *testing.T) {
	t.Parallel()

	store := newSessionStoreStub()
	svc := newTestTimetable(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateSession(ctx, CreateSessionParams{
				OwnerID: "teacher-1",
				Draft:   SessionDraft{Name: "Racer", Weekday: 1, StartMinute: mustClock("10:00"), EndMinute: mustClock("11:00")},
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrConflict) {
			t.Fatalf("unexpected error %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one create to win, got %d", succeeded)
	}
}
