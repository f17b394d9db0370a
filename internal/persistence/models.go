package persistence

import "time"

// ClassSession is the stored form of a weekly class slot. Times are minutes
// since local midnight; backends store them as wall clock text.
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

// Preset is a stored timetable snapshot. Items are loaded with the preset.
type Preset struct {
	ID        string
	Name      string
	OwnerID   string
	IsPublic  bool
	Items     []PresetItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PresetItem is one detached session copy inside a preset.
type PresetItem struct {
	ID          int64
	PresetID    string
	Name        string
	Weekday     int
	StartMinute int
	EndMinute   int
	ColorTag    string
}
