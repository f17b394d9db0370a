package application

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/example/academy-timetable/internal/scheduler"
	"github.com/example/academy-timetable/internal/timeclock"
)

// TimetableService is the mutation surface for weekly class sessions. It keeps
// each owner's authoritative set in memory, validates commands against it,
// applies them optimistically and confirms them through the SessionStore.
type TimetableService struct {
	store       SessionStore
	notifier    ChangeNotifier
	idGenerator func() string
	now         func() time.Time
	location    *time.Location
	logger      *slog.Logger
	warnings    *warningCache

	mu     sync.Mutex
	owners map[string]*ownerState
}

// NewTimetableService wires dependencies for timetable operations.
func NewTimetableService(store SessionStore, idGenerator func() string, now func() time.Time) *TimetableService {
	return NewTimetableServiceWithLogger(store, nil, idGenerator, now, nil, nil)
}

// NewTimetableServiceWithLogger constructs a TimetableService with a change
// notifier, the location "now" is interpreted in, and a logger. Any of the
// optional collaborators may be nil.
func NewTimetableServiceWithLogger(store SessionStore, notifier ChangeNotifier, idGenerator func() string, now func() time.Time, location *time.Location, logger *slog.Logger) *TimetableService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.Local
	}
	return &TimetableService{
		store:       store,
		notifier:    notifier,
		idGenerator: idGenerator,
		now:         now,
		location:    location,
		logger:      defaultLogger(logger),
		warnings:    newWarningCache(0, 0, now),
		owners:      make(map[string]*ownerState),
	}
}

func (s *TimetableService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TimetableService", operation, attrs...)
}

// ListSessions returns the owner's sessions in day-clock order together with
// any overlap warnings present in the set.
func (s *TimetableService) ListSessions(ctx context.Context, ownerID string) ([]ClassSession, []ConflictWarning, error) {
	if s == nil {
		return nil, nil, fmt.Errorf("TimetableService is nil")
	}
	if err := requireOwner(ownerID); err != nil {
		return nil, nil, err
	}

	state := s.owner(ownerID)
	current, err := s.ensureLoaded(ctx, state, ownerID)
	if err != nil {
		return nil, nil, err
	}

	version := state.currentVersion()
	warnings, ok := s.warnings.Get(ownerID, version)
	if !ok {
		warnings = overlapWarnings(current)
		s.warnings.Store(ownerID, version, warnings)
	}

	return current.ordered(), warnings, nil
}

// CreateSession validates a draft and adds it to the owner's timetable.
func (s *TimetableService) CreateSession(ctx context.Context, params CreateSessionParams) (session ClassSession, err error) {
	if s == nil {
		err = fmt.Errorf("TimetableService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateSession", "owner_id", params.OwnerID)
	defer func() {
		logOutcome(ctx, logger, err, "session created", "session_id", session.ID)
	}()

	if vErr := validateDraft(params.OwnerID, params.Draft); vErr.HasErrors() {
		err = vErr
		return
	}

	createdAt := s.now()
	candidate := ClassSession{
		ID:          s.idGenerator(),
		OwnerID:     params.OwnerID,
		Name:        strings.TrimSpace(params.Draft.Name),
		Weekday:     params.Draft.Weekday,
		StartMinute: params.Draft.StartMinute,
		EndMinute:   params.Draft.EndMinute,
		ColorTag:    colorOrDefault(params.Draft.ColorTag),
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}

	if err = checkMinimumDuration(candidate.StartMinute, candidate.EndMinute); err != nil {
		return
	}

	state := s.owner(params.OwnerID)
	state.cmd.Lock()
	defer state.cmd.Unlock()

	current, err := s.ensureLoaded(ctx, state, params.OwnerID)
	if err != nil {
		return
	}
	if err = checkConflict(candidate, candidate.ID, current); err != nil {
		return
	}

	committed, err := s.commit(ctx, state, params.OwnerID, "CreateSession", current.with(candidate), SessionMutation{
		Kind:    MutationCreate,
		OwnerID: params.OwnerID,
		Session: candidate,
	})
	if err != nil {
		return
	}

	session = resolveCommitted(committed, candidate)
	return
}

// MoveSession places a session on a new weekday and start, keeping its duration.
func (s *TimetableService) MoveSession(ctx context.Context, params MoveSessionParams) (session ClassSession, err error) {
	if s == nil {
		err = fmt.Errorf("TimetableService is nil")
		return
	}

	logger := s.loggerWith(ctx, "MoveSession", "owner_id", params.OwnerID, "session_id", params.SessionID)
	defer func() {
		logOutcome(ctx, logger, err, "session moved", "weekday", session.Weekday, "start", timeclock.FormatClock(session.StartMinute))
	}()

	vErr := &ValidationError{}
	validatePlacement(params.Weekday, params.StartMinute, vErr)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	state := s.owner(params.OwnerID)
	state.cmd.Lock()
	defer state.cmd.Unlock()

	current, existing, err := s.loadExisting(ctx, state, params.OwnerID, params.SessionID)
	if err != nil {
		return
	}

	proposal := scheduler.Proposal{Kind: scheduler.ProposalMove, SessionID: existing.ID, Weekday: params.Weekday, StartMinute: params.StartMinute}
	candidate := withSlot(existing, proposal.Apply(toSlot(existing)))
	candidate.UpdatedAt = s.now()

	// A move may not carry the end across the 08:00 business-day boundary.
	if timeclock.NormalizeMinute(candidate.EndMinute) <= timeclock.NormalizeMinute(candidate.StartMinute) {
		err = &InvalidDurationError{StartMinute: candidate.StartMinute, EndMinute: candidate.EndMinute, Minimum: toSlot(existing).Duration()}
		return
	}
	if err = checkConflict(candidate, existing.ID, current); err != nil {
		return
	}

	committed, err := s.commit(ctx, state, params.OwnerID, "MoveSession", current.with(candidate), SessionMutation{
		Kind:    MutationUpdate,
		OwnerID: params.OwnerID,
		Session: candidate,
	})
	if err != nil {
		return
	}

	session = resolveCommitted(committed, candidate)
	return
}

// ResizeSession changes a session's end while holding its start and weekday.
func (s *TimetableService) ResizeSession(ctx context.Context, params ResizeSessionParams) (session ClassSession, err error) {
	if s == nil {
		err = fmt.Errorf("TimetableService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ResizeSession", "owner_id", params.OwnerID, "session_id", params.SessionID)
	defer func() {
		logOutcome(ctx, logger, err, "session resized", "end", timeclock.FormatClock(session.EndMinute))
	}()

	if !timeclock.ValidMinute(params.EndMinute) {
		vErr := &ValidationError{}
		vErr.add("end", "end must be a time of day")
		err = vErr
		return
	}

	state := s.owner(params.OwnerID)
	state.cmd.Lock()
	defer state.cmd.Unlock()

	current, existing, err := s.loadExisting(ctx, state, params.OwnerID, params.SessionID)
	if err != nil {
		return
	}

	candidate := existing
	candidate.EndMinute = params.EndMinute
	candidate.UpdatedAt = s.now()

	if err = checkMinimumDuration(candidate.StartMinute, candidate.EndMinute); err != nil {
		return
	}
	if err = checkConflict(candidate, existing.ID, current); err != nil {
		return
	}

	committed, err := s.commit(ctx, state, params.OwnerID, "ResizeSession", current.with(candidate), SessionMutation{
		Kind:    MutationUpdate,
		OwnerID: params.OwnerID,
		Session: candidate,
	})
	if err != nil {
		return
	}

	session = resolveCommitted(committed, candidate)
	return
}

// DuplicateSession copies a session into the identical slot under a fresh id.
// The copy is checked against the whole set, source included, so it is
// rejected for as long as the source occupies the slot.
func (s *TimetableService) DuplicateSession(ctx context.Context, ref SessionRef) (session ClassSession, err error) {
	if s == nil {
		err = fmt.Errorf("TimetableService is nil")
		return
	}

	logger := s.loggerWith(ctx, "DuplicateSession", "owner_id", ref.OwnerID, "session_id", ref.SessionID)
	defer func() {
		logOutcome(ctx, logger, err, "session duplicated", "duplicate_id", session.ID)
	}()

	state := s.owner(ref.OwnerID)
	state.cmd.Lock()
	defer state.cmd.Unlock()

	current, existing, err := s.loadExisting(ctx, state, ref.OwnerID, ref.SessionID)
	if err != nil {
		return
	}

	createdAt := s.now()
	candidate := existing
	candidate.ID = s.idGenerator()
	candidate.Name = existing.Name + DuplicateNameSuffix
	candidate.CreatedAt = createdAt
	candidate.UpdatedAt = createdAt

	if err = checkConflict(candidate, candidate.ID, current); err != nil {
		return
	}

	committed, err := s.commit(ctx, state, ref.OwnerID, "DuplicateSession", current.with(candidate), SessionMutation{
		Kind:    MutationCreate,
		OwnerID: ref.OwnerID,
		Session: candidate,
	})
	if err != nil {
		return
	}

	session = resolveCommitted(committed, candidate)
	return
}

// DeleteSession removes a session. Removal needs no validation beyond existence.
func (s *TimetableService) DeleteSession(ctx context.Context, ref SessionRef) (err error) {
	if s == nil {
		return fmt.Errorf("TimetableService is nil")
	}

	logger := s.loggerWith(ctx, "DeleteSession", "owner_id", ref.OwnerID, "session_id", ref.SessionID)
	defer func() {
		logOutcome(ctx, logger, err, "session deleted")
	}()

	state := s.owner(ref.OwnerID)
	state.cmd.Lock()
	defer state.cmd.Unlock()

	current, existing, err := s.loadExisting(ctx, state, ref.OwnerID, ref.SessionID)
	if err != nil {
		return
	}

	_, err = s.commit(ctx, state, ref.OwnerID, "DeleteSession", current.without(existing.ID), SessionMutation{
		Kind:    MutationDelete,
		OwnerID: ref.OwnerID,
		Session: existing,
	})
	return
}

// RecolorSession changes a session's color tag. Colors carry no scheduling
// meaning, so no conflict check runs.
func (s *TimetableService) RecolorSession(ctx context.Context, params RecolorSessionParams) (session ClassSession, err error) {
	if s == nil {
		err = fmt.Errorf("TimetableService is nil")
		return
	}

	logger := s.loggerWith(ctx, "RecolorSession", "owner_id", params.OwnerID, "session_id", params.SessionID)
	defer func() {
		logOutcome(ctx, logger, err, "session recolored", "color", session.ColorTag)
	}()

	if !slices.Contains(ColorTags, params.ColorTag) {
		vErr := &ValidationError{}
		vErr.add("color", "color is not in the palette")
		err = vErr
		return
	}

	state := s.owner(params.OwnerID)
	state.cmd.Lock()
	defer state.cmd.Unlock()

	current, existing, err := s.loadExisting(ctx, state, params.OwnerID, params.SessionID)
	if err != nil {
		return
	}

	candidate := existing
	candidate.ColorTag = params.ColorTag
	candidate.UpdatedAt = s.now()

	committed, err := s.commit(ctx, state, params.OwnerID, "RecolorSession", current.with(candidate), SessionMutation{
		Kind:    MutationUpdate,
		OwnerID: params.OwnerID,
		Session: candidate,
	})
	if err != nil {
		return
	}

	session = resolveCommitted(committed, candidate)
	return
}

// NextSession returns the owner's session starting soonest after the current
// time. The boolean is false when the owner has no sessions.
func (s *TimetableService) NextSession(ctx context.Context, ownerID string) (ClassSession, bool, error) {
	if s == nil {
		return ClassSession{}, false, fmt.Errorf("TimetableService is nil")
	}
	if err := requireOwner(ownerID); err != nil {
		return ClassSession{}, false, err
	}

	current, err := s.ensureLoaded(ctx, s.owner(ownerID), ownerID)
	if err != nil {
		return ClassSession{}, false, err
	}

	next, ok := scheduler.FindNext(scheduler.InstantOf(s.now(), s.location), current.slots())
	if !ok {
		return ClassSession{}, false, nil
	}
	session, _ := current.find(next.ID)
	return session, true, nil
}

// Resync discards the owner's local view and reloads it from the store.
func (s *TimetableService) Resync(ctx context.Context, ownerID string) error {
	if s == nil {
		return fmt.Errorf("TimetableService is nil")
	}
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	state := s.owner(ownerID)
	state.cmd.Lock()
	defer state.cmd.Unlock()
	return s.resync(ctx, state, ownerID)
}

// replaceOwnerSessions swaps the owner's whole set for sessions, confirming
// through commitFn. It backs destructive preset application.
func (s *TimetableService) replaceOwnerSessions(ctx context.Context, ownerID, op string, sessions []ClassSession, commitFn func(context.Context) ([]ClassSession, error)) ([]ClassSession, error) {
	state := s.owner(ownerID)
	state.cmd.Lock()
	defer state.cmd.Unlock()

	if _, err := s.ensureLoaded(ctx, state, ownerID); err != nil {
		return nil, err
	}

	committed, err := s.commitWith(ctx, state, ownerID, op, newSessionSet(sessions), commitFn)
	if err != nil {
		return nil, err
	}
	return committed.ordered(), nil
}

// currentSessions returns the owner's authoritative sessions in day-clock order.
func (s *TimetableService) currentSessions(ctx context.Context, ownerID string) ([]ClassSession, error) {
	current, err := s.ensureLoaded(ctx, s.owner(ownerID), ownerID)
	if err != nil {
		return nil, err
	}
	return current.ordered(), nil
}

func (s *TimetableService) owner(ownerID string) *ownerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.owners[ownerID]
	if !ok {
		state = &ownerState{}
		s.owners[ownerID] = state
	}
	return state
}

func (s *TimetableService) ensureLoaded(ctx context.Context, state *ownerState, ownerID string) (sessionSet, error) {
	if current, loaded := state.snapshot(); loaded {
		return current, nil
	}
	if err := s.resync(ctx, state, ownerID); err != nil {
		return nil, err
	}
	current, _ := state.snapshot()
	return current, nil
}

func (s *TimetableService) loadExisting(ctx context.Context, state *ownerState, ownerID, sessionID string) (sessionSet, ClassSession, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, ClassSession{}, err
	}
	current, err := s.ensureLoaded(ctx, state, ownerID)
	if err != nil {
		return nil, ClassSession{}, err
	}
	existing, ok := current.find(sessionID)
	if !ok {
		return nil, ClassSession{}, ErrNotFound
	}
	return current, existing, nil
}

func (s *TimetableService) resync(ctx context.Context, state *ownerState, ownerID string) error {
	if s.store == nil {
		return fmt.Errorf("session store not configured")
	}
	sessions, err := s.store.LoadSessions(ctx, SessionScope{OwnerID: ownerID})
	if err != nil {
		state.invalidate()
		return fmt.Errorf("load sessions: %w", err)
	}
	state.replace(ownedBy(sessions, ownerID))
	s.warnings.Invalidate(ownerID)
	return nil
}

func (s *TimetableService) commit(ctx context.Context, state *ownerState, ownerID, op string, optimistic sessionSet, mutation SessionMutation) (sessionSet, error) {
	return s.commitWith(ctx, state, ownerID, op, optimistic, func(ctx context.Context) ([]ClassSession, error) {
		return s.store.CommitSessionMutation(ctx, mutation)
	})
}

// commitWith publishes the optimistic set, runs the store commit and either
// adopts the authoritative result or discards the optimistic set and reloads.
func (s *TimetableService) commitWith(ctx context.Context, state *ownerState, ownerID, op string, optimistic sessionSet, commitFn func(context.Context) ([]ClassSession, error)) (sessionSet, error) {
	if s.store == nil {
		return nil, fmt.Errorf("session store not configured")
	}

	state.replace(optimistic)
	s.warnings.Invalidate(ownerID)

	authoritative, err := commitFn(ctx)
	if err != nil {
		pErr := &PersistenceError{Op: op, OwnerID: ownerID, Err: err}
		if resyncErr := s.resync(ctx, state, ownerID); resyncErr != nil {
			pErr.ResyncErr = resyncErr
		}
		return nil, pErr
	}

	confirmed := ownedBy(authoritative, ownerID)
	state.replace(confirmed)
	s.notify(ctx, ownerID, op)
	return confirmed, nil
}

func (s *TimetableService) notify(ctx context.Context, ownerID, reason string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyTimetableChanged(ctx, ownerID, reason); err != nil {
		s.loggerWith(ctx, reason, "owner_id", ownerID).WarnContext(ctx, "failed to publish timetable change", "error", err)
	}
}

func ownedBy(sessions []ClassSession, ownerID string) sessionSet {
	out := make(sessionSet, 0, len(sessions))
	for _, session := range sessions {
		if session.OwnerID == ownerID {
			out = append(out, session)
		}
	}
	return out
}

func resolveCommitted(committed sessionSet, candidate ClassSession) ClassSession {
	if session, ok := committed.find(candidate.ID); ok {
		return session
	}
	return candidate
}

func withSlot(session ClassSession, slot scheduler.Slot) ClassSession {
	session.Weekday = slot.Weekday
	session.StartMinute = slot.StartMinute
	session.EndMinute = slot.EndMinute
	return session
}

func checkMinimumDuration(start, end int) error {
	if timeclock.NormalizeMinute(end)-timeclock.NormalizeMinute(start) < MinimumDuration {
		return &InvalidDurationError{StartMinute: start, EndMinute: end, Minimum: MinimumDuration}
	}
	return nil
}

func checkConflict(candidate ClassSession, excludeID string, current sessionSet) error {
	ids := scheduler.ConflictingIDs(toSlot(candidate), candidate.OwnerID, excludeID, current.slots())
	if len(ids) == 0 {
		return nil
	}
	return &ConflictError{Candidate: candidate, With: ids}
}

func overlapWarnings(current sessionSet) []ConflictWarning {
	overlaps := scheduler.DetectOverlaps(current.slots())
	if len(overlaps) == 0 {
		return nil
	}
	warnings := make([]ConflictWarning, 0, len(overlaps))
	for _, o := range overlaps {
		warnings = append(warnings, ConflictWarning{
			OwnerID:   o.OwnerID,
			Weekday:   o.Weekday,
			SessionID: o.FirstID,
			OtherID:   o.OtherID,
		})
	}
	return warnings
}

func requireOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) != "" {
		return nil
	}
	vErr := &ValidationError{}
	vErr.add("owner_id", "owner is required")
	return vErr
}

func validateDraft(ownerID string, draft SessionDraft) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(ownerID) == "" {
		vErr.add("owner_id", "owner is required")
	}
	if strings.TrimSpace(draft.Name) == "" {
		vErr.add("name", "name is required")
	}
	validatePlacement(draft.Weekday, draft.StartMinute, vErr)
	if !timeclock.ValidMinute(draft.EndMinute) {
		vErr.add("end", "end must be a time of day")
	}
	if draft.ColorTag != "" && !slices.Contains(ColorTags, draft.ColorTag) {
		vErr.add("color", "color is not in the palette")
	}
	return vErr
}

func validatePlacement(weekday, startMinute int, vErr *ValidationError) {
	if !timeclock.ValidWeekday(weekday) {
		vErr.add("weekday", "weekday must be between 0 and 6")
	}
	if !timeclock.ValidMinute(startMinute) {
		vErr.add("start", "start must be a time of day")
	}
}

func colorOrDefault(tag string) string {
	if tag == "" {
		return DefaultColorTag
	}
	return tag
}
