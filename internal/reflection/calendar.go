package reflection

import "time"

// Day returns the calendar date of t as observed in loc, normalised to midnight UTC.
// Two instants fall on the same day in loc exactly when their Day values are equal.
func Day(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayBounds returns the start of t's calendar day in loc and the start of the next one.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, d := t.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
