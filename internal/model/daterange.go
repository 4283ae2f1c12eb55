package model

import "time"

// Overlaps implements the half-open interval overlap test used everywhere
// date ranges are compared: [aIn, aOut) overlaps [bIn, bOut) iff
// aIn < bOut && aOut > bIn.  Back-to-back stays (aOut == bIn) do not
// overlap.
func Overlaps(aIn, aOut, bIn, bOut time.Time) bool {
	return aIn.Before(bOut) && aOut.After(bIn)
}

// DateOnly truncates a timestamp to midnight UTC.  Inventory rows and
// reservation stay dates are always stored at day granularity.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns every day in [from, to) at midnight UTC.  An empty
// slice is returned when the range is empty or inverted.
func DaysBetween(from, to time.Time) []time.Time {
	from, to = DateOnly(from), DateOnly(to)
	var days []time.Time
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
