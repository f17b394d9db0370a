package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/academy-timetable/internal/application"
	"github.com/example/academy-timetable/internal/persistence"
)

var (
	sessionCounter uint64
	presetCounter  uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ---------------------------- Session fixtures ----------------------------

// SessionFixture represents a deterministic class session that can be
// materialised for application or persistence tests.
type SessionFixture struct {
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

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a Monday 10:00-11:00 session with a unique ID.
func NewSessionFixture(opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := SessionFixture{
		ID:          fmt.Sprintf("session-%03d", idx),
		OwnerID:     "teacher-1",
		Name:        fmt.Sprintf("Class %03d", idx),
		Weekday:     1,
		StartMinute: 600,
		EndMinute:   660,
		ColorTag:    application.DefaultColorTag,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionID overrides the generated session ID.
func WithSessionID(id string) SessionOption {
	return func(f *SessionFixture) {
		f.ID = id
	}
}

// WithSessionOwner overrides the owner.
func WithSessionOwner(ownerID string) SessionOption {
	return func(f *SessionFixture) {
		f.OwnerID = ownerID
	}
}

// WithSessionName overrides the display name.
func WithSessionName(name string) SessionOption {
	return func(f *SessionFixture) {
		f.Name = name
	}
}

// WithSessionSlot places the session on weekday between the two minutes.
func WithSessionSlot(weekday, startMinute, endMinute int) SessionOption {
	return func(f *SessionFixture) {
		f.Weekday = weekday
		f.StartMinute = startMinute
		f.EndMinute = endMinute
	}
}

// WithSessionColor overrides the color tag.
func WithSessionColor(tag string) SessionOption {
	return func(f *SessionFixture) {
		f.ColorTag = tag
	}
}

// WithSessionTimestamps sets both created and updated timestamps.
func WithSessionTimestamps(created, updated time.Time) SessionOption {
	return func(f *SessionFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application returns the fixture as an application.ClassSession value.
func (f SessionFixture) Application() application.ClassSession {
	return application.ClassSession{
		ID:          f.ID,
		OwnerID:     f.OwnerID,
		Name:        f.Name,
		Weekday:     f.Weekday,
		StartMinute: f.StartMinute,
		EndMinute:   f.EndMinute,
		ColorTag:    f.ColorTag,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.ClassSession value.
func (f SessionFixture) Persistence() persistence.ClassSession {
	return persistence.ClassSession{
		ID:          f.ID,
		OwnerID:     f.OwnerID,
		Name:        f.Name,
		Weekday:     f.Weekday,
		StartMinute: f.StartMinute,
		EndMinute:   f.EndMinute,
		ColorTag:    f.ColorTag,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Draft returns the fixture as an application.SessionDraft.
func (f SessionFixture) Draft() application.SessionDraft {
	return application.SessionDraft{
		Name:        f.Name,
		Weekday:     f.Weekday,
		StartMinute: f.StartMinute,
		EndMinute:   f.EndMinute,
		ColorTag:    f.ColorTag,
	}
}

// ----------------------------- Preset fixtures -----------------------------

// PresetFixture represents a deterministic preset with its items.
type PresetFixture struct {
	ID        string
	Name      string
	OwnerID   string
	IsPublic  bool
	Items     []SessionFixture
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PresetOption configures the generated preset fixture.
type PresetOption func(*PresetFixture)

// NewPresetFixture returns a private preset without items.
func NewPresetFixture(opts ...PresetOption) PresetFixture {
	idx := atomic.AddUint64(&presetCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := PresetFixture{
		ID:        fmt.Sprintf("preset-%03d", idx),
		Name:      fmt.Sprintf("Preset %03d", idx),
		OwnerID:   "teacher-1",
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithPresetID overrides the generated preset ID.
func WithPresetID(id string) PresetOption {
	return func(f *PresetFixture) {
		f.ID = id
	}
}

// WithPresetOwner overrides the owner.
func WithPresetOwner(ownerID string) PresetOption {
	return func(f *PresetFixture) {
		f.OwnerID = ownerID
	}
}

// WithPresetPublic sets the visibility flag.
func WithPresetPublic(isPublic bool) PresetOption {
	return func(f *PresetFixture) {
		f.IsPublic = isPublic
	}
}

// WithPresetItems stores copies of the given sessions as items.
func WithPresetItems(items ...SessionFixture) PresetOption {
	return func(f *PresetFixture) {
		f.Items = append([]SessionFixture(nil), items...)
	}
}

// WithPresetCreatedAt sets both created and updated timestamps.
func WithPresetCreatedAt(t time.Time) PresetOption {
	return func(f *PresetFixture) {
		f.CreatedAt = t
		f.UpdatedAt = t
	}
}

// Application returns the fixture as an application.Preset value.
func (f PresetFixture) Application() application.Preset {
	preset := application.Preset{
		ID:        f.ID,
		Name:      f.Name,
		OwnerID:   f.OwnerID,
		IsPublic:  f.IsPublic,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
	for _, item := range f.Items {
		preset.Items = append(preset.Items, application.PresetItem{
			PresetID:    f.ID,
			Name:        item.Name,
			Weekday:     item.Weekday,
			StartMinute: item.StartMinute,
			EndMinute:   item.EndMinute,
			ColorTag:    item.ColorTag,
		})
	}
	return preset
}

// Persistence returns the fixture as a persistence.Preset value.
func (f PresetFixture) Persistence() persistence.Preset {
	preset := persistence.Preset{
		ID:        f.ID,
		Name:      f.Name,
		OwnerID:   f.OwnerID,
		IsPublic:  f.IsPublic,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
	for _, item := range f.Items {
		preset.Items = append(preset.Items, persistence.PresetItem{
			PresetID:    f.ID,
			Name:        item.Name,
			Weekday:     item.Weekday,
			StartMinute: item.StartMinute,
			EndMinute:   item.EndMinute,
			ColorTag:    item.ColorTag,
		})
	}
	return preset
}
