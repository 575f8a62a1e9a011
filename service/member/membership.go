package member

import (
	"errors"
	"fmt"
	"time"

	"github.com/ozodbekdev/fitclub-server/cmd/models"
	"github.com/ozodbekdev/fitclub-server/pkg/plan"
	"gorm.io/gorm"
)

// Snapshot is the resolved membership state the rest of the system works
// from: the anchor (last payment or enrollment), the plan expiry derived from
// it, visits used inside the current cycle and the resulting classification.
type Snapshot struct {
	Anchor     time.Time   `json:"anchor_date"`
	Expiry     time.Time   `json:"expiry_date"`
	VisitsUsed int         `json:"visits_used"`
	Status     plan.Status `json:"status"`
}

// Resolve computes a member's Snapshot as of asOf using the default
// expiring-soon threshold.
func Resolve(db *gorm.DB, m *models.Member, asOf time.Time) (Snapshot, error) {
	return ResolveWithThreshold(db, m, asOf, plan.DefaultThresholdDays)
}

// ResolveWithThreshold is Resolve with an explicit expiring-soon window.
func ResolveWithThreshold(db *gorm.DB, m *models.Member, asOf time.Time, thresholdDays int) (Snapshot, error) {
	anchor, err := anchorDate(db, m)
	if err != nil {
		return Snapshot{}, err
	}
	expiry := plan.ExpiryDate(m.PlanType, anchor)

	visits := 0
	if m.PlanType == plan.Monthly {
		var count int64
		err := db.Model(&models.Attendance{}).
			Where("member_id = ? AND active = ?", m.ID, true).
			Where("attended_at >= ? AND attended_at <= ?", anchor, expiry).
			Count(&count).Error
		if err != nil {
			return Snapshot{}, fmt.Errorf("counting cycle visits: %w", err)
		}
		visits = int(count)
	}

	return Snapshot{
		Anchor:     anchor,
		Expiry:     expiry,
		VisitsUsed: visits,
		Status:     plan.Classify(m.PlanType, anchor, visits, asOf, thresholdDays),
	}, nil
}

// anchorDate is the date of the most recent active payment, or the enrollment
// date when the member has never paid.
func anchorDate(db *gorm.DB, m *models.Member) (time.Time, error) {
	var payment models.Payment
	err := db.Where("member_id = ? AND active = ?", m.ID, true).
		Order("date DESC").
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return plan.DateOf(m.CreatedAt), nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("looking up last payment: %w", err)
	}
	return plan.DateOf(payment.Date), nil
}
