// Package timeclock implements the minute arithmetic shared by the timetable.
//
// The academy's business day runs from 08:00 until 08:00 the following
// morning. Hours before DayStartHour therefore belong to the previous evening
// and are shifted by a full day before any comparison ("day-clock" minutes).
// Stored values stay raw; only comparisons use the normalized form.
package timeclock

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// DayStartHour is the first hour of the business day.
	DayStartHour = 8
	// MinutesPerHour is the number of minutes in an hour.
	MinutesPerHour = 60
	// MinutesPerDay is the number of minutes in a calendar day.
	MinutesPerDay = 24 * MinutesPerHour
	// DaysPerWeek is the number of weekdays on the grid.
	DaysPerWeek = 7
	// MinutesPerWeek is the length of the weekly cycle in minutes.
	MinutesPerWeek = DaysPerWeek * MinutesPerDay
)

// ErrInvalidClock indicates a malformed HH:MM value.
var ErrInvalidClock = errors.New("timeclock: invalid clock value")

// Normalize converts an hour/minute pair into day-clock minutes.
func Normalize(hour, minute int) int {
	if hour < DayStartHour {
		hour += 24
	}
	return hour*MinutesPerHour + minute
}

// NormalizeMinute converts a raw minute-of-day into day-clock minutes.
func NormalizeMinute(raw int) int {
	return Normalize(raw/MinutesPerHour, raw%MinutesPerHour)
}

// Overlaps reports whether the half-open intervals [aStart,aEnd) and
// [bStart,bEnd) intersect. Intervals that only touch do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return max(aStart, bStart) < min(aEnd, bEnd)
}

// CircularForwardDistance returns the minutes from one weekly position to the
// next occurrence of another. The result is always in (0, MinutesPerWeek]: a
// target at exactly the same position counts as a full week away.
func CircularForwardDistance(fromWeekday, fromMinute, toWeekday, toMinute int) int {
	diff := (toWeekday*MinutesPerDay + toMinute) - (fromWeekday*MinutesPerDay + fromMinute)
	diff %= MinutesPerWeek
	if diff < 0 {
		diff += MinutesPerWeek
	}
	if diff == 0 {
		diff = MinutesPerWeek
	}
	return diff
}

// WrapMinute folds a minute count into the storable [0, MinutesPerDay) range.
func WrapMinute(m int) int {
	m %= MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	return m
}

// ValidMinute reports whether m is a raw minute-of-day.
func ValidMinute(m int) bool {
	return m >= 0 && m < MinutesPerDay
}

// ValidWeekday reports whether d is a weekday index (0 = Sunday).
func ValidWeekday(d int) bool {
	return d >= 0 && d < DaysPerWeek
}

// ParseClock parses "HH:MM" or "HH:MM:SS" into a raw minute-of-day.
// Seconds are accepted for compatibility with SQL time columns and dropped.
func ParseClock(value string) (int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	if len(parts) == 3 {
		sec, err := strconv.Atoi(parts[2])
		if err != nil || sec < 0 || sec > 59 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
		}
	}
	return hour*MinutesPerHour + minute, nil
}

// FormatClock renders a minute count as "HH:MM", wrapping into a single day.
func FormatClock(m int) string {
	m = WrapMinute(m)
	return fmt.Sprintf("%02d:%02d", m/MinutesPerHour, m%MinutesPerHour)
}
