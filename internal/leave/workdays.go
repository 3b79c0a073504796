package leave

import "time"

// CountWorkingDays returns the number of weekdays (Mon-Fri) in the
// inclusive range [start, end]. There is no holiday calendar: weekends
// are the only non-chargeable days. Returns 0 when end precedes start;
// callers reject that range before pricing a request.
func CountWorkingDays(start, end time.Time) int {
	days := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		wd := d.Weekday()
		if wd != time.Saturday && wd != time.Sunday {
			days++
		}
	}
	return days
}
