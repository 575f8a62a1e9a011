package plan

import "time"

// Type is a member's payment plan.
type Type string

const (
	Daily   Type = "Daily"
	Monthly Type = "Monthly"
	Premium Type = "Premium"
)

const (
	// MonthlyVisitCap is the number of sessions included in one monthly cycle.
	MonthlyVisitCap = 12

	// DefaultThresholdDays is how close to expiry a membership has to be
	// before it counts as expiring soon.
	DefaultThresholdDays = 3

	monthlyCycleDays  = 30
	visitWarningCount = 3
)

// DateOf truncates t to midnight in its own location. All expiry math is done
// on calendar dates, never raw timestamps.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ExpiryDate computes when a plan anchored at anchor runs out. The anchor is
// the member's most recent payment date, or their enrollment date if they have
// never paid. Unrecognized plan types fall back to Monthly.
func ExpiryDate(t Type, anchor time.Time) time.Time {
	anchor = DateOf(anchor)
	switch t {
	case Daily:
		return anchor
	case Premium:
		// Last calendar day of the anchor's month.
		firstOfNext := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, anchor.Location()).AddDate(0, 1, 0)
		return firstOfNext.AddDate(0, 0, -1)
	default:
		return anchor.AddDate(0, 0, monthlyCycleDays)
	}
}
