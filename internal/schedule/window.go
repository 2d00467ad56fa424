// Package schedule answers "is instant T sendable?" for a campaign's
// timezone, send-day set and send-window, and computes the next sendable
// instant at or after T. Pure functions, no I/O.
package schedule

import "time"

// DayBit returns the bitmask bit for a weekday (bit n = time.Weekday(n)).
func DayBit(d time.Weekday) int {
	return 1 << uint(d)
}

// OnDay reports whether the weekday is in the send-day bitmask.
func OnDay(mask int, d time.Weekday) bool {
	return mask&DayBit(d) != 0
}

// Weekdays is the Monday–Friday bitmask, the usual default.
var Weekdays = DayBit(time.Monday) | DayBit(time.Tuesday) | DayBit(time.Wednesday) |
	DayBit(time.Thursday) | DayBit(time.Friday)

// MinuteOfDay converts a wall-clock time to minutes since local midnight.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// IsSendable reports whether t falls on a send day inside the
// [startMin, endMin) window, evaluated in campaign-local wall-clock time.
func IsSendable(loc *time.Location, days, startMin, endMin int, t time.Time) bool {
	local := t.In(loc)
	if !OnDay(days, local.Weekday()) {
		return false
	}
	m := MinuteOfDay(local)
	return m >= startMin && m < endMin
}

// NextSendable returns the earliest sendable instant at or after t. When t
// is outside the window it advances to windowStart on the next send day,
// wrapping across the week. An instant that a DST transition would land in
// a skipped local hour is pushed forward to the following send day, never
// backward.
func NextSendable(loc *time.Location, days, startMin, endMin int, t time.Time) time.Time {
	if days == 0 {
		return t
	}
	if IsSendable(loc, days, startMin, endMin, t) {
		return t
	}
	local := t.In(loc)
	for i := 0; i < 8; i++ {
		day := local.AddDate(0, 0, i)
		if !OnDay(days, day.Weekday()) {
			continue
		}
		at := time.Date(day.Year(), day.Month(), day.Day(), startMin/60, startMin%60, 0, 0, loc)
		if !at.After(t) {
			continue
		}
		// time.Date normalizes instants inside a DST gap; if the
		// normalized wall clock fell outside the window, keep advancing.
		if !IsSendable(loc, days, startMin, endMin, at) {
			continue
		}
		return at
	}
	return t
}

// NextLocalMidnight returns the first instant of the next calendar day in
// the given location. Rate-limit denials reschedule here.
func NextLocalMidnight(loc *time.Location, t time.Time) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
}

// LocalDate formats t as the local calendar date, the rate limiter's
// per-day counter key.
func LocalDate(loc *time.Location, t time.Time) string {
	return t.In(loc).Format("2006-01-02")
}
