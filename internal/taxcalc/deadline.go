package taxcalc

import (
	"math"
	"time"
)

const deadlineLayout = "Monday, January 2, 2006"

// FilingDeadline returns April 15 of year, moved forward to the next weekday
// when it falls on a weekend. Holidays are not considered.
func FilingDeadline(year int) time.Time {
	d := time.Date(year, time.April, 15, 0, 0, 0, 0, time.UTC)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// FormatDeadline renders a deadline as "Tuesday, April 15, 2025".
func FormatDeadline(d time.Time) string {
	return d.Format(deadlineLayout)
}

// DeadlineString is FormatDeadline(FilingDeadline(year)).
func DeadlineString(year int) string {
	return FormatDeadline(FilingDeadline(year))
}

// DaysUntil counts calendar days from now's date to the deadline. It is
// negative once the deadline has passed.
func DaysUntil(deadline, now time.Time) int {
	n := now.UTC()
	today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
	return int(math.Round(deadline.Sub(today).Hours() / 24))
}
