package application

import "time"

// ClassSession is a recurring weekly class slot owned by one teacher.
// StartMinute and EndMinute are raw minutes since local midnight.
type ClassSession struct {
	ID          string
	OwnerID     string
	Name        string
	Weekday     int
	StartMinute int
	EndMinute   int
	ColorTag    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Preset is a named snapshot of an owner's weekly layout.
type Preset struct {
	ID        string
	Name      string
	OwnerID   string
	IsPublic  bool
	Items     []PresetItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PresetItem is a detached copy of a session stored inside a preset.
type PresetItem struct {
	PresetID    string
	Name        string
	Weekday     int
	StartMinute int
	EndMinute   int
	ColorTag    string
}

// ConflictWarning describes two sessions that overlap inside one conflict
// scope. Warnings only arise from preset application, which inserts preset
// items without validating them against each other.
type ConflictWarning struct {
	OwnerID   string
	Weekday   int
	SessionID string
	OtherID   string
}

// SessionDraft captures caller provided session fields.
type SessionDraft struct {
	Name        string
	Weekday     int
	StartMinute int
	EndMinute   int
	ColorTag    string
}

// CreateSessionParams wraps the data required to create a session.
type CreateSessionParams struct {
	OwnerID string
	Draft   SessionDraft
}

// MoveSessionParams wraps the data required to move a session.
type MoveSessionParams struct {
	OwnerID     string
	SessionID   string
	Weekday     int
	StartMinute int
}

// ResizeSessionParams wraps the data required to change a session's end.
type ResizeSessionParams struct {
	OwnerID   string
	SessionID string
	EndMinute int
}

// RecolorSessionParams wraps the data required to change a session's color tag.
type RecolorSessionParams struct {
	OwnerID   string
	SessionID string
	ColorTag  string
}

// SessionRef identifies one of an owner's sessions.
type SessionRef struct {
	OwnerID   string
	SessionID string
}

// SavePresetParams wraps the data required to snapshot an owner's timetable.
type SavePresetParams struct {
	OwnerID string
	Name    string
}

// ApplyPresetParams wraps the data required to replace an owner's timetable
// with a preset.
type ApplyPresetParams struct {
	OwnerID  string
	PresetID string
}

// PresetRef identifies a preset on behalf of a requesting owner.
type PresetRef struct {
	OwnerID  string
	PresetID string
}

// DefaultColorTag is assigned when a draft carries no color.
const DefaultColorTag = "orange"

// ColorTags lists the palette accepted for sessions.
var ColorTags = []string{"orange", "blue", "indigo", "rose", "emerald", "violet", "amber", "slate"}

// DuplicateNameSuffix decorates the name of a duplicated session.
const DuplicateNameSuffix = " (복사)"

// MinimumDuration is the shortest session length in minutes.
const MinimumDuration = 60
