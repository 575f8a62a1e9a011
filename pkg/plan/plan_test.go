package plan

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestExpiryDateMonthly(t *testing.T) {
	anchor := date(2026, time.March, 5)
	want := date(2026, time.April, 4)
	if got := ExpiryDate(Monthly, anchor); !got.Equal(want) {
		t.Errorf("ExpiryDate(Monthly, %v) = %v, want %v", anchor, got, want)
	}
}

func TestExpiryDateMonthlyIgnoresTimeOfDay(t *testing.T) {
	anchor := time.Date(2026, time.March, 5, 23, 50, 12, 0, time.Local)
	want := date(2026, time.April, 4)
	if got := ExpiryDate(Monthly, anchor); !got.Equal(want) {
		t.Errorf("ExpiryDate(Monthly, %v) = %v, want %v", anchor, got, want)
	}
}

func TestExpiryDatePremium(t *testing.T) {
	tests := []struct {
		name   string
		anchor time.Time
		want   time.Time
	}{
		{"first of month", date(2026, time.May, 1), date(2026, time.May, 31)},
		{"mid month", date(2026, time.June, 17), date(2026, time.June, 30)},
		{"last day already", date(2026, time.April, 30), date(2026, time.April, 30)},
		{"leap february", date(2028, time.February, 10), date(2028, time.February, 29)},
		{"plain february", date(2026, time.February, 10), date(2026, time.February, 28)},
		{"december rolls into next year", date(2026, time.December, 8), date(2026, time.December, 31)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpiryDate(Premium, tt.anchor); !got.Equal(tt.want) {
				t.Errorf("ExpiryDate(Premium, %v) = %v, want %v", tt.anchor, got, tt.want)
			}
		})
	}
}

func TestExpiryDateDaily(t *testing.T) {
	anchor := date(2026, time.July, 9)
	if got := ExpiryDate(Daily, anchor); !got.Equal(anchor) {
		t.Errorf("ExpiryDate(Daily, %v) = %v, want same day", anchor, got)
	}
}

func TestExpiryDateUnknownPlanFallsBackToMonthly(t *testing.T) {
	anchor := date(2026, time.March, 5)
	want := date(2026, time.April, 4)
	if got := ExpiryDate(Type("Gold"), anchor); !got.Equal(want) {
		t.Errorf("ExpiryDate(Gold, %v) = %v, want %v", anchor, got, want)
	}
}
