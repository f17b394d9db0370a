package application

import "context"

// SessionScope narrows session loads. An empty OwnerID loads every owner.
type SessionScope struct {
	OwnerID string
}

// MutationKind identifies the change carried by a SessionMutation.
type MutationKind string

const (
	// MutationCreate inserts a new session.
	MutationCreate MutationKind = "create"
	// MutationUpdate replaces the stored fields of an existing session.
	MutationUpdate MutationKind = "update"
	// MutationDelete removes a session.
	MutationDelete MutationKind = "delete"
)

// SessionMutation is a single validated change to one owner's sessions.
type SessionMutation struct {
	Kind    MutationKind
	OwnerID string
	Session ClassSession
}

// PresetApplication replaces every session of OwnerID with Sessions, which
// were built from the items of PresetID.
type PresetApplication struct {
	PresetID string
	OwnerID  string
	Sessions []ClassSession
}

// SessionStore is the persistence collaborator for class sessions. Commit
// methods return the owner's authoritative sessions after the change.
type SessionStore interface {
	LoadSessions(ctx context.Context, scope SessionScope) ([]ClassSession, error)
	CommitSessionMutation(ctx context.Context, mutation SessionMutation) ([]ClassSession, error)
	CommitPresetApply(ctx context.Context, application PresetApplication) ([]ClassSession, error)
}

// PresetScope narrows preset loads to one owner's presets, optionally
// including every public preset. A non-empty PresetID loads only that preset,
// whoever owns it.
type PresetScope struct {
	OwnerID       string
	IncludePublic bool
	PresetID      string
}

// PresetMutationKind identifies the change carried by a PresetMutation.
type PresetMutationKind string

const (
	// PresetMutationSave inserts a preset together with its items.
	PresetMutationSave PresetMutationKind = "save"
	// PresetMutationVisibility updates IsPublic.
	PresetMutationVisibility PresetMutationKind = "visibility"
	// PresetMutationDelete removes a preset and its items.
	PresetMutationDelete PresetMutationKind = "delete"
)

// PresetMutation is a single validated change to a preset.
type PresetMutation struct {
	Kind   PresetMutationKind
	Preset Preset
}

// PresetStore is the persistence collaborator for presets.
type PresetStore interface {
	LoadPresets(ctx context.Context, scope PresetScope) ([]Preset, error)
	CommitPresetMutation(ctx context.Context, mutation PresetMutation) (Preset, error)
}

// ChangeNotifier is told about every committed change to an owner's timetable
// so other open views can resync.
type ChangeNotifier interface {
	NotifyTimetableChanged(ctx context.Context, ownerID, reason string) error
}
