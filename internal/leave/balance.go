package leave

import "time"

// monthlyAccrualRate approximates 20 days/year accrued per month.
const monthlyAccrualRate = 1.67

// AccruedDays estimates how much of the annual allocation an employee
// has earned by tenure: floor(monthsSinceJoining * 1.67), capped at the
// allocation. The estimate is advisory only; the flat allocation is
// what gates applications.
func AccruedDays(joiningDate, asOf time.Time, allocated int) int {
	months := monthsBetween(joiningDate, asOf)
	if months <= 0 {
		return 0
	}

	accrued := int(float64(months) * monthlyAccrualRate)
	if accrued > allocated {
		return allocated
	}
	return accrued
}

// monthsBetween counts full calendar months elapsed from from to to.
func monthsBetween(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}

	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
