package persistence

import (
	"context"
	"time"

	"github.com/example/academy-timetable/internal/timeclock"
)

// SessionRepository stores class sessions.
type SessionRepository interface {
	// ListSessions returns the owner's sessions, or every session when ownerID is empty.
	ListSessions(ctx context.Context, ownerID string) ([]ClassSession, error)
	CreateSession(ctx context.Context, session ClassSession) error
	UpdateSession(ctx context.Context, session ClassSession) error
	DeleteSession(ctx context.Context, id string) error
	// ReplaceOwnerSessions deletes every session of ownerID and inserts
	// sessions in a single transaction.
	ReplaceOwnerSessions(ctx context.Context, ownerID string, sessions []ClassSession) error
}

// PresetFilter narrows preset queries. A non-empty PresetID matches that
// preset only, ignoring the other fields.
type PresetFilter struct {
	OwnerID       string
	IncludePublic bool
	PresetID      string
}

// PresetRepository stores presets together with their items.
type PresetRepository interface {
	ListPresets(ctx context.Context, filter PresetFilter) ([]Preset, error)
	// CreatePreset inserts the preset and all of its items atomically.
	CreatePreset(ctx context.Context, preset Preset) error
	SetPresetVisibility(ctx context.Context, id string, isPublic bool, updatedAt time.Time) error
	// DeletePreset removes the preset; its items are removed with it.
	DeletePreset(ctx context.Context, id string) error
}

// ValidateSession reports ErrConstraintViolation for records no backend accepts.
func ValidateSession(session ClassSession) error {
	switch {
	case session.ID == "", session.OwnerID == "":
		return ErrConstraintViolation
	case !timeclock.ValidWeekday(session.Weekday):
		return ErrConstraintViolation
	case !timeclock.ValidMinute(session.StartMinute), !timeclock.ValidMinute(session.EndMinute):
		return ErrConstraintViolation
	}
	return nil
}

// ValidatePreset reports ErrConstraintViolation for presets no backend accepts.
func ValidatePreset(preset Preset) error {
	if preset.ID == "" || preset.OwnerID == "" {
		return ErrConstraintViolation
	}
	for _, item := range preset.Items {
		if !timeclock.ValidWeekday(item.Weekday) || !timeclock.ValidMinute(item.StartMinute) || !timeclock.ValidMinute(item.EndMinute) {
			return ErrConstraintViolation
		}
	}
	return nil
}

