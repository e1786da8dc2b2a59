package taxcalc

import (
	"testing"
	"time"
)

func TestFilingDeadlineKnownYears(t *testing.T) {
	tests := []struct {
		year int
		want string
	}{
		{2024, "Monday, April 15, 2024"},
		{2025, "Tuesday, April 15, 2025"},
		{2028, "Monday, April 17, 2028"},
		{2029, "Monday, April 16, 2029"},
		{2034, "Monday, April 17, 2034"},
	}
	for _, tc := range tests {
		if got := DeadlineString(tc.year); got != tc.want {
			t.Errorf("DeadlineString(%d) = %q, want %q", tc.year, got, tc.want)
		}
	}
}

func TestFilingDeadlineNeverOnWeekend(t *testing.T) {
	for year := 1600; year <= 2600; year++ {
		d := FilingDeadline(year)
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Fatalf("deadline for %d falls on %s", year, wd)
		}
		if d.Month() != time.April || d.Day() < 15 || d.Day() > 17 {
			t.Fatalf("deadline for %d is %s", year, d.Format(time.DateOnly))
		}
	}
}

func TestFilingDeadlineOddYears(t *testing.T) {
	for _, year := range []int{0, 1, 9999, -44} {
		d := FilingDeadline(year)
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Errorf("deadline for %d falls on %s", year, wd)
		}
	}
}

func TestDaysUntil(t *testing.T) {
	deadline := FilingDeadline(2025)
	tests := []struct {
		now  time.Time
		want int
	}{
		{time.Date(2025, time.April, 15, 18, 30, 0, 0, time.UTC), 0},
		{time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), 14},
		{time.Date(2025, time.April, 20, 9, 0, 0, 0, time.UTC), -5},
	}
	for _, tc := range tests {
		if got := DaysUntil(deadline, tc.now); got != tc.want {
			t.Errorf("DaysUntil(%s) = %d, want %d", tc.now, got, tc.want)
		}
	}
}
