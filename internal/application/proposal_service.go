package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/academy-timetable/internal/scheduler"
	"github.com/example/academy-timetable/internal/timeclock"
)

// ProposalPreview describes what committing the owner's open proposal would
// produce. Previews are computed against the current authoritative set and
// never change it.
type ProposalPreview struct {
	Proposal scheduler.Proposal
	Session  ClassSession
	// ConflictsWith lists the sessions the placement would overlap.
	ConflictsWith []string
	// Err is the rejection a commit would return, or nil.
	Err error
}

// Committable reports whether committing the previewed proposal would pass validation.
func (p ProposalPreview) Committable() bool {
	return p.Err == nil
}

// BeginMove opens a drag gesture on a session. Only one gesture may be open
// per owner, which also keeps a session from being moved and resized at once.
func (s *TimetableService) BeginMove(ctx context.Context, ref SessionRef) (scheduler.Proposal, error) {
	return s.beginProposal(ctx, ref, scheduler.NewMoveProposal)
}

// BeginResize opens an end-edge resize gesture on a session.
func (s *TimetableService) BeginResize(ctx context.Context, ref SessionRef) (scheduler.Proposal, error) {
	return s.beginProposal(ctx, ref, scheduler.NewResizeProposal)
}

func (s *TimetableService) beginProposal(ctx context.Context, ref SessionRef, open func(scheduler.Slot) scheduler.Proposal) (scheduler.Proposal, error) {
	if s == nil {
		return scheduler.Proposal{}, fmt.Errorf("TimetableService is nil")
	}
	state := s.owner(ref.OwnerID)
	_, existing, err := s.loadExisting(ctx, state, ref.OwnerID, ref.SessionID)
	if err != nil {
		return scheduler.Proposal{}, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	if !state.proposal.IsIdle() {
		return scheduler.Proposal{}, ErrProposalInProgress
	}
	state.proposal = open(toSlot(existing))
	return state.proposal, nil
}

// UpdateProposal retargets the owner's open gesture at candidate and returns
// the resulting preview.
func (s *TimetableService) UpdateProposal(ctx context.Context, ownerID string, candidate scheduler.Candidate) (ProposalPreview, error) {
	if s == nil {
		return ProposalPreview{}, fmt.Errorf("TimetableService is nil")
	}
	state := s.owner(ownerID)

	state.mu.Lock()
	next, err := state.proposal.WithCandidate(candidate)
	if err == nil {
		state.proposal = next
	}
	state.mu.Unlock()
	if errors.Is(err, scheduler.ErrProposalIdle) {
		return ProposalPreview{}, ErrNoProposal
	}
	if err != nil {
		return ProposalPreview{}, err
	}

	return s.preview(ctx, state, ownerID, next)
}

// PreviewProposal evaluates the owner's open gesture without changing it.
func (s *TimetableService) PreviewProposal(ctx context.Context, ownerID string) (ProposalPreview, error) {
	if s == nil {
		return ProposalPreview{}, fmt.Errorf("TimetableService is nil")
	}
	state := s.owner(ownerID)
	proposal := state.currentProposal()
	if proposal.IsIdle() {
		return ProposalPreview{}, ErrNoProposal
	}
	return s.preview(ctx, state, ownerID, proposal)
}

// CommitProposal closes the owner's gesture and submits it as a move or
// resize command. The gesture is closed whether or not the command succeeds.
func (s *TimetableService) CommitProposal(ctx context.Context, ownerID string) (ClassSession, error) {
	if s == nil {
		return ClassSession{}, fmt.Errorf("TimetableService is nil")
	}
	proposal := s.owner(ownerID).takeProposal()

	switch proposal.Kind {
	case scheduler.ProposalMove:
		return s.MoveSession(ctx, MoveSessionParams{
			OwnerID:     ownerID,
			SessionID:   proposal.SessionID,
			Weekday:     proposal.Weekday,
			StartMinute: proposal.StartMinute,
		})
	case scheduler.ProposalResize:
		return s.ResizeSession(ctx, ResizeSessionParams{
			OwnerID:   ownerID,
			SessionID: proposal.SessionID,
			EndMinute: proposal.EndMinute,
		})
	default:
		return ClassSession{}, ErrNoProposal
	}
}

// CancelProposal discards the owner's gesture. It never touches the store.
func (s *TimetableService) CancelProposal(ownerID string) {
	if s == nil {
		return
	}
	s.owner(ownerID).takeProposal()
}

func (s *TimetableService) preview(ctx context.Context, state *ownerState, ownerID string, proposal scheduler.Proposal) (ProposalPreview, error) {
	current, err := s.ensureLoaded(ctx, state, ownerID)
	if err != nil {
		return ProposalPreview{}, err
	}
	existing, ok := current.find(proposal.SessionID)
	if !ok {
		// The session vanished under the gesture, typically after a resync.
		state.takeProposal()
		return ProposalPreview{}, ErrNotFound
	}

	candidate := withSlot(existing, proposal.Apply(toSlot(existing)))
	out := ProposalPreview{Proposal: proposal, Session: candidate}

	switch proposal.Kind {
	case scheduler.ProposalMove:
		if timeclock.NormalizeMinute(candidate.EndMinute) <= timeclock.NormalizeMinute(candidate.StartMinute) {
			out.Err = &InvalidDurationError{StartMinute: candidate.StartMinute, EndMinute: candidate.EndMinute, Minimum: toSlot(existing).Duration()}
		}
	case scheduler.ProposalResize:
		out.Err = checkMinimumDuration(candidate.StartMinute, candidate.EndMinute)
	}

	out.ConflictsWith = scheduler.ConflictingIDs(toSlot(candidate), ownerID, existing.ID, current.slots())
	if out.Err == nil && len(out.ConflictsWith) > 0 {
		out.Err = &ConflictError{Candidate: candidate, With: out.ConflictsWith}
	}
	return out, nil
}

func (o *ownerState) currentProposal() scheduler.Proposal {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.proposal
}

// takeProposal returns the open proposal and resets it to idle.
func (o *ownerState) takeProposal() scheduler.Proposal {
	o.mu.Lock()
	defer o.mu.Unlock()
	proposal := o.proposal
	o.proposal = scheduler.IdleProposal()
	return proposal
}
