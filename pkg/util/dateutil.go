package util

import "time"

// MaxStayLookbackDays caps the multi-night aggregation window.
const MaxStayLookbackDays = 30

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// DayBounds returns the half-open interval [start, end) of t's calendar day in loc.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	start := StartOfDay(t, loc)
	return start, start.AddDate(0, 0, 1)
}

// PreviousDayBounds returns the bounds of the calendar day before now.
func PreviousDayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	today := StartOfDay(now, loc)
	return today.AddDate(0, 0, -1), today
}

// StayLookbackDays is the number of days, including the selected day, that a
// stay of nights N spans. Single-night stays look at the selected day only.
func StayLookbackDays(nights int) int {
	if nights <= 1 {
		return 1
	}
	if nights > MaxStayLookbackDays {
		return MaxStayLookbackDays
	}
	return nights
}

// ParseDay parses YYYY-MM-DD as midnight in loc. An empty value yields the
// start of the current day in loc.
func ParseDay(value string, now time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if value == "" {
		return StartOfDay(now, loc), nil
	}
	return time.ParseInLocation(time.DateOnly, value, loc)
}

// CivilDay returns t's calendar day in loc encoded as midnight UTC. DATE
// columns round-trip through pgx in this form.
func CivilDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// SameCivilDay reports whether two civil days are equal.
func SameCivilDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
