package scheduler

import (
	"errors"

	"github.com/example/academy-timetable/internal/timeclock"
)

// ProposalKind tags the interactive gesture a proposal represents.
type ProposalKind int

const (
	// ProposalIdle means no gesture is in progress.
	ProposalIdle ProposalKind = iota
	// ProposalMove is an in-progress drag of a whole session.
	ProposalMove
	// ProposalResize is an in-progress drag of a session's end edge.
	ProposalResize
)

// String implements fmt.Stringer.
func (k ProposalKind) String() string {
	switch k {
	case ProposalMove:
		return "move"
	case ProposalResize:
		return "resize"
	default:
		return "idle"
	}
}

// ErrProposalIdle is returned when retargeting a proposal that is not open.
var ErrProposalIdle = errors.New("scheduler: no proposal in progress")

// Proposal is an uncommitted placement produced by a drag or resize gesture.
// The zero value is idle. Proposals never reference committed state; discarding
// one has no side effects.
type Proposal struct {
	Kind      ProposalKind
	SessionID string
	// Weekday and StartMinute are the move target; ignored for resizes.
	Weekday     int
	StartMinute int
	// EndMinute is the resize target; ignored for moves.
	EndMinute int
}

// IdleProposal returns the idle variant.
func IdleProposal() Proposal {
	return Proposal{}
}

// NewMoveProposal opens a move gesture seeded with the session's current placement.
func NewMoveProposal(current Slot) Proposal {
	return Proposal{
		Kind:        ProposalMove,
		SessionID:   current.ID,
		Weekday:     current.Weekday,
		StartMinute: current.StartMinute,
	}
}

// NewResizeProposal opens a resize gesture seeded with the session's current end.
func NewResizeProposal(current Slot) Proposal {
	return Proposal{
		Kind:      ProposalResize,
		SessionID: current.ID,
		EndMinute: current.EndMinute,
	}
}

// IsIdle reports whether no gesture is in progress.
func (p Proposal) IsIdle() bool {
	return p.Kind == ProposalIdle
}

// WithCandidate returns the proposal retargeted at candidate. Moves take the
// candidate weekday and start; resizes take the candidate start as the new end.
func (p Proposal) WithCandidate(c Candidate) (Proposal, error) {
	switch p.Kind {
	case ProposalMove:
		p.Weekday = c.Weekday
		p.StartMinute = c.StartMinute
		return p, nil
	case ProposalResize:
		p.EndMinute = c.StartMinute
		return p, nil
	default:
		return p, ErrProposalIdle
	}
}

// Apply returns the slot the proposal would produce from current, without
// altering current. Moves keep the duration; resizes keep start and weekday.
func (p Proposal) Apply(current Slot) Slot {
	next := current
	switch p.Kind {
	case ProposalMove:
		duration := current.Duration()
		next.Weekday = p.Weekday
		next.StartMinute = p.StartMinute
		next.EndMinute = timeclock.WrapMinute(p.StartMinute + duration)
	case ProposalResize:
		next.EndMinute = p.EndMinute
	}
	return next
}
