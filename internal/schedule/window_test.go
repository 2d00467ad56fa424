package schedule_test

import (
	"testing"
	"time"

	"github.com/unclebandit/outreach-backend/internal/schedule"
)

const (
	nineAM  = 9 * 60
	fivePM  = 17 * 60
	allDays = 127
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("load location %s: %v", name, err)
	}
	return loc
}

func TestIsSendable(t *testing.T) {
	loc := time.UTC
	days := schedule.Weekdays

	// Wednesday 2026-09-02
	if !schedule.IsSendable(loc, days, nineAM, fivePM, time.Date(2026, 9, 2, 9, 0, 0, 0, loc)) {
		t.Error("expected 9:00 on a weekday to be sendable")
	}
	if !schedule.IsSendable(loc, days, nineAM, fivePM, time.Date(2026, 9, 2, 16, 59, 0, 0, loc)) {
		t.Error("expected 16:59 to be sendable")
	}
	// window end is exclusive
	if schedule.IsSendable(loc, days, nineAM, fivePM, time.Date(2026, 9, 2, 17, 0, 0, 0, loc)) {
		t.Error("expected 17:00 to be outside the [9,17) window")
	}
	if schedule.IsSendable(loc, days, nineAM, fivePM, time.Date(2026, 9, 2, 8, 59, 0, 0, loc)) {
		t.Error("expected 8:59 to be outside the window")
	}
	// Saturday 2026-09-05
	if schedule.IsSendable(loc, days, nineAM, fivePM, time.Date(2026, 9, 5, 12, 0, 0, 0, loc)) {
		t.Error("expected Saturday noon to be unsendable on a weekday mask")
	}
}

func TestIsSendableLocalWallClock(t *testing.T) {
	nairobi := mustLoc(t, "Africa/Nairobi") // UTC+3, no DST

	// 06:30 UTC is 09:30 in Nairobi
	instant := time.Date(2026, 9, 2, 6, 30, 0, 0, time.UTC)
	if !schedule.IsSendable(nairobi, allDays, nineAM, fivePM, instant) {
		t.Error("expected 06:30 UTC to land inside the Nairobi window")
	}
	if schedule.IsSendable(time.UTC, allDays, nineAM, fivePM, instant) {
		t.Error("expected 06:30 UTC to be outside the UTC window")
	}
}

func TestNextSendableSameDay(t *testing.T) {
	loc := time.UTC
	at := schedule.NextSendable(loc, schedule.Weekdays, nineAM, fivePM, time.Date(2026, 9, 2, 6, 0, 0, 0, loc))
	want := time.Date(2026, 9, 2, 9, 0, 0, 0, loc)
	if !at.Equal(want) {
		t.Errorf("expected %v, got %v", want, at)
	}
}

func TestNextSendableWeekWrap(t *testing.T) {
	loc := time.UTC
	// Friday 18:00 with a Mon-Fri mask wraps to Monday 9:00.
	at := schedule.NextSendable(loc, schedule.Weekdays, nineAM, fivePM, time.Date(2026, 9, 4, 18, 0, 0, 0, loc))
	want := time.Date(2026, 9, 7, 9, 0, 0, 0, loc)
	if !at.Equal(want) {
		t.Errorf("expected Monday 9:00, got %v", at)
	}
	if at.Weekday() != time.Monday {
		t.Errorf("expected Monday, got %v", at.Weekday())
	}
}

func TestNextSendableAlreadyInside(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 9, 2, 10, 30, 0, 0, loc)
	if at := schedule.NextSendable(loc, schedule.Weekdays, nineAM, fivePM, now); !at.Equal(now) {
		t.Errorf("expected identity inside the window, got %v", at)
	}
}

func TestNextSendableDSTGapPushesForward(t *testing.T) {
	ny := mustLoc(t, "America/New_York")
	// 2026-03-08: 2:00-3:00 local does not exist. A 2:30 window start on
	// that day must resolve to an instant at or after the requested one.
	start := 2*60 + 30
	end := 4 * 60
	from := time.Date(2026, 3, 8, 0, 0, 0, 0, ny)
	at := schedule.NextSendable(ny, allDays, start, end, from)
	if at.Before(from) {
		t.Errorf("DST gap pushed backward: %v < %v", at, from)
	}
	if !schedule.IsSendable(ny, allDays, start, end, at) {
		t.Errorf("NextSendable landed on an unsendable instant: %v", at)
	}
}

// Window law: NextSendable always lands on a sendable instant.
func TestWindowLaw(t *testing.T) {
	ny := mustLoc(t, "America/New_York")
	locs := []*time.Location{time.UTC, ny, mustLoc(t, "Africa/Nairobi")}
	masks := []int{schedule.Weekdays, schedule.DayBit(time.Sunday), allDays}
	samples := []time.Time{
		time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 9, 4, 23, 59, 0, 0, time.UTC),
		time.Date(2026, 9, 5, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 7, 20, 0, 0, 0, time.UTC),  // night before US spring forward
		time.Date(2026, 11, 1, 5, 30, 0, 0, time.UTC), // US fall back
		time.Date(2026, 12, 31, 18, 0, 0, 0, time.UTC),
	}
	for _, loc := range locs {
		for _, mask := range masks {
			for _, sample := range samples {
				at := schedule.NextSendable(loc, mask, nineAM, fivePM, sample)
				if !schedule.IsSendable(loc, mask, nineAM, fivePM, at) {
					t.Errorf("law violated: loc=%v mask=%d t=%v next=%v", loc, mask, sample, at)
				}
				if at.Before(sample) {
					t.Errorf("NextSendable went backward: %v -> %v", sample, at)
				}
			}
		}
	}
}

func TestNextLocalMidnight(t *testing.T) {
	nairobi := mustLoc(t, "Africa/Nairobi")
	at := schedule.NextLocalMidnight(nairobi, time.Date(2026, 9, 2, 20, 0, 0, 0, time.UTC)) // 23:00 local
	want := time.Date(2026, 9, 3, 0, 0, 0, 0, nairobi)
	if !at.Equal(want) {
		t.Errorf("expected %v, got %v", want, at)
	}
}

func TestLocalDate(t *testing.T) {
	nairobi := mustLoc(t, "Africa/Nairobi")
	// 22:30 UTC is already the next day in Nairobi.
	instant := time.Date(2026, 9, 2, 22, 30, 0, 0, time.UTC)
	if d := schedule.LocalDate(nairobi, instant); d != "2026-09-03" {
		t.Errorf("expected 2026-09-03, got %s", d)
	}
	if d := schedule.LocalDate(time.UTC, instant); d != "2026-09-02" {
		t.Errorf("expected 2026-09-02, got %s", d)
	}
}
