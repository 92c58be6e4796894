// Package deadline computes legal deadline term-starts from notice
// certificates. Business-day arithmetic counts Monday–Friday only: there is
// no holiday table, because the correct jurisdiction-specific calendar is
// not known here — callers needing holiday precision must adjust downstream.
package deadline

import "time"

// NextBusinessDay advances d by one day and then skips over the weekend.
func NextBusinessDay(d time.Time) time.Time {
	d = d.AddDate(0, 0, 1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// AddBusinessDays applies NextBusinessDay n times. n must be non-negative;
// zero returns d unchanged.
func AddBusinessDays(d time.Time, n int) time.Time {
	for i := 0; i < n; i++ {
		d = NextBusinessDay(d)
	}
	return d
}
