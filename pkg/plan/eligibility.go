package plan

import "time"

// Status classifies a membership as of a reference date.
type Status string

const (
	StatusActive       Status = "active"
	StatusExpiringSoon Status = "expiring_soon"
	StatusExpired      Status = "expired"
)

// Classify decides whether a membership is expired, expiring soon or active as
// of asOf. visitsUsed is the number of check-ins inside the current cycle
// [anchor, expiry] and only matters for Monthly plans, which are capped at
// MonthlyVisitCap sessions per cycle regardless of the calendar boundary.
// thresholdDays <= 0 means DefaultThresholdDays.
func Classify(t Type, anchor time.Time, visitsUsed int, asOf time.Time, thresholdDays int) Status {
	if thresholdDays <= 0 {
		thresholdDays = DefaultThresholdDays
	}
	asOf = DateOf(asOf)
	expiry := ExpiryDate(t, anchor)

	if asOf.After(expiry) {
		return StatusExpired
	}
	if t == Monthly && visitsUsed >= MonthlyVisitCap {
		return StatusExpired
	}

	daysLeft := daysBetween(asOf, expiry)
	if daysLeft <= thresholdDays {
		return StatusExpiringSoon
	}
	if t == Monthly && MonthlyVisitCap-visitsUsed <= visitWarningCount {
		return StatusExpiringSoon
	}
	return StatusActive
}

// daysBetween is the exact calendar-day difference between two dates. Both are
// re-anchored in UTC so a DST transition inside the span cannot shift the
// count by a day.
func daysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}
