package scheduler

import (
	"errors"
	"math"

	"github.com/example/academy-timetable/internal/timeclock"
)

// ErrOutsideGrid indicates a pointer position that does not land on a grid cell.
var ErrOutsideGrid = errors.New("scheduler: pointer outside timetable grid")

// DefaultDayOrder is the column order of the weekly grid: Monday first, Sunday last.
var DefaultDayOrder = []int{1, 2, 3, 4, 5, 6, 0}

// GridGeometry describes where the rendered timetable sits so pointer
// positions can be mapped to placements without touching rendering code.
// Row zero starts at 08:00, the first hour of the business day.
type GridGeometry struct {
	OriginX     float64
	OriginY     float64
	ColumnWidth float64
	HourHeight  float64
	// Rows is the number of hour rows rendered; defaults to a full business day.
	Rows int
	// SnapMinutes is the placement granularity; defaults to one hour.
	SnapMinutes int
	// DayOrder maps column index to weekday; defaults to DefaultDayOrder.
	DayOrder []int
}

// Pointer is a pointer position in the same coordinate space as the geometry.
type Pointer struct {
	X float64
	Y float64
}

// Candidate is a grid placement derived from a pointer position.
type Candidate struct {
	Weekday     int
	StartMinute int
}

func (g GridGeometry) rows() int {
	if g.Rows <= 0 {
		return 24
	}
	return g.Rows
}

func (g GridGeometry) snap() int {
	if g.SnapMinutes <= 0 {
		return timeclock.MinutesPerHour
	}
	return g.SnapMinutes
}

func (g GridGeometry) dayOrder() []int {
	if len(g.DayOrder) == 0 {
		return DefaultDayOrder
	}
	return g.DayOrder
}

func (g GridGeometry) valid() bool {
	return g.ColumnWidth > 0 && g.HourHeight > 0
}

// minutesBelowTop converts a y coordinate into minutes past 08:00.
func (g GridGeometry) minutesBelowTop(y float64) float64 {
	return (y - g.OriginY) / g.HourHeight * timeclock.MinutesPerHour
}

// PointerDeltaToCandidate maps a pointer position to the weekday column and
// start minute it lands on. The start snaps down to the geometry's step.
func PointerDeltaToCandidate(g GridGeometry, p Pointer) (Candidate, error) {
	if !g.valid() {
		return Candidate{}, ErrOutsideGrid
	}

	order := g.dayOrder()
	col := int(math.Floor((p.X - g.OriginX) / g.ColumnWidth))
	if col < 0 || col >= len(order) {
		return Candidate{}, ErrOutsideGrid
	}

	offset := g.minutesBelowTop(p.Y)
	if offset < 0 || offset >= float64(g.rows()*timeclock.MinutesPerHour) {
		return Candidate{}, ErrOutsideGrid
	}

	step := g.snap()
	snapped := int(math.Floor(offset/float64(step))) * step
	return Candidate{
		Weekday:     order[col],
		StartMinute: timeclock.WrapMinute(timeclock.DayStartHour*timeclock.MinutesPerHour + snapped),
	}, nil
}

// PointerToResizeEnd maps the y coordinate of a resize gesture to a raw end
// minute for a session starting at startMinute. The end rounds to the nearest
// step and is never less than one step after the start. 07:59 is the latest
// end the day-clock can represent, so later positions clamp to it.
func PointerToResizeEnd(g GridGeometry, startMinute int, y float64) (int, error) {
	if !g.valid() {
		return 0, ErrOutsideGrid
	}

	step := g.snap()
	dayStart := timeclock.DayStartHour * timeclock.MinutesPerHour
	end := dayStart + int(math.Round(g.minutesBelowTop(y)/float64(step)))*step

	minEnd := timeclock.NormalizeMinute(startMinute) + step
	if end < minEnd {
		end = minEnd
	}
	if maxEnd := dayStart + timeclock.MinutesPerDay - 1; end > maxEnd {
		end = maxEnd
	}
	return timeclock.WrapMinute(end), nil
}
