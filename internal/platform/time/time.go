// Package time contains time related helpers
package time

import "time"

// DayUTC truncates t to midnight UTC of the same calendar day
func DayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// NextMidnightUTC returns the first UTC midnight strictly after t
func NextMidnightUTC(t time.Time) time.Time {
	return DayUTC(t).AddDate(0, 0, 1)
}
