package utils

import "time"

// IsWeekend reports whether t falls on a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// WorkdaysBetween counts the weekday calendar days from start (inclusive)
// to end (exclusive).
func WorkdaysBetween(start, end time.Time) int {
	if !end.After(start) {
		return 0
	}
	days := 0
	cur := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	for cur.Before(end) {
		if !IsWeekend(cur) {
			days++
		}
		cur = cur.AddDate(0, 0, 1)
	}
	return days
}
