package testfixtures

import (
	"testing"
	"time"
)

func TestClockStartsAtReferenceTime(t *testing.T) {
	t.Parallel()

	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}

	now := clock.NowFunc()
	clock.Advance(45 * time.Minute)
	if got := now(); !got.Equal(ReferenceTime().Add(45 * time.Minute)) {
		t.Fatalf("expected injected func to follow Advance, got %v", got)
	}
}

func TestClockSetWeekClock(t *testing.T) {
	t.Parallel()

	seoul := time.FixedZone("KST", 9*60*60)
	// Tuesday.
	clock := NewClock(time.Date(2024, time.January, 2, 15, 4, 5, 0, seoul))

	tests := []struct {
		weekday time.Weekday
		clock   string
		want    time.Time
	}{
		{weekday: time.Sunday, clock: "08:00", want: time.Date(2023, time.December, 31, 8, 0, 0, 0, seoul)},
		{weekday: time.Monday, clock: "09:30", want: time.Date(2024, time.January, 1, 9, 30, 0, 0, seoul)},
		{weekday: time.Saturday, clock: "01:15", want: time.Date(2024, time.January, 6, 1, 15, 0, 0, seoul)},
	}
	for _, tt := range tests {
		got, err := clock.SetWeekClock(tt.weekday, tt.clock)
		if err != nil {
			t.Fatalf("SetWeekClock(%v, %q) returned error: %v", tt.weekday, tt.clock, err)
		}
		if !got.Equal(tt.want) || !clock.Now().Equal(tt.want) {
			t.Fatalf("SetWeekClock(%v, %q) = %v, want %v", tt.weekday, tt.clock, got, tt.want)
		}
	}

	if _, err := clock.SetWeekClock(time.Monday, "25:00"); err == nil {
		t.Fatalf("expected malformed clock to fail")
	}
}
