package report

import (
	"fmt"
	"time"

	"github.com/ozodbekdev/fitclub-server/cmd/models"
	"github.com/ozodbekdev/fitclub-server/pkg/plan"
	"github.com/ozodbekdev/fitclub-server/service/member"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Generator recomputes daily and monthly report snapshots. Re-running a
// period overwrites the previous numbers (upsert keyed on the period), so a
// run is always safe to repeat.
type Generator struct {
	db *gorm.DB
}

func NewGenerator(db *gorm.DB) *Generator {
	return &Generator{db: db}
}

// aggregates holds the metric set shared by both report grains.
type aggregates struct {
	income     decimal.Decimal
	cashIncome decimal.Decimal
	cardIncome decimal.Decimal
	expense    decimal.Decimal

	newMembers      int64
	totalMembers    int64
	checkIns        int64
	expiringSoon    int64
	attendedMembers int64
	maleMembers     int64
	femaleMembers   int64
}

// Daily recomputes the snapshot for one calendar day.
func (g *Generator) Daily(date time.Time) (*models.DailyReport, error) {
	day := plan.DateOf(date)
	agg, err := g.collect(day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	report := models.DailyReport{
		Date:            day,
		Income:          agg.income,
		CashIncome:      agg.cashIncome,
		CardIncome:      agg.cardIncome,
		Expense:         agg.expense,
		NewMembers:      agg.newMembers,
		TotalMembers:    agg.totalMembers,
		CheckIns:        agg.checkIns,
		ExpiringSoon:    agg.expiringSoon,
		AttendedMembers: agg.attendedMembers,
		MaleMembers:     agg.maleMembers,
		FemaleMembers:   agg.femaleMembers,
	}

	err = g.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns(reportColumns),
	}).Create(&report).Error
	if err != nil {
		return nil, fmt.Errorf("upserting daily report for %s: %w", day.Format("2006-01-02"), err)
	}
	return &report, nil
}

// Monthly recomputes the snapshot for the month containing the given date.
func (g *Generator) Monthly(month time.Time) (*models.MonthlyReport, error) {
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, month.Location())
	next := first.AddDate(0, 1, 0)

	agg, err := g.collect(first, next)
	if err != nil {
		return nil, err
	}

	report := models.MonthlyReport{
		Month:           first,
		Income:          agg.income,
		CashIncome:      agg.cashIncome,
		CardIncome:      agg.cardIncome,
		Expense:         agg.expense,
		NewMembers:      agg.newMembers,
		TotalMembers:    agg.totalMembers,
		CheckIns:        agg.checkIns,
		ExpiringSoon:    agg.expiringSoon,
		AttendedMembers: agg.attendedMembers,
		MaleMembers:     agg.maleMembers,
		FemaleMembers:   agg.femaleMembers,
	}

	err = g.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "month"}},
		DoUpdates: clause.AssignmentColumns(reportColumns),
	}).Create(&report).Error
	if err != nil {
		return nil, fmt.Errorf("upserting monthly report for %s: %w", first.Format("2006-01"), err)
	}
	return &report, nil
}

var reportColumns = []string{
	"income", "cash_income", "card_income", "expense",
	"new_members", "total_members", "check_ins", "expiring_soon",
	"attended_members", "male_members", "female_members", "updated_at",
}

// collect computes every aggregate over [start, end). Missing data zero-fills;
// only real query errors propagate.
func (g *Generator) collect(start, end time.Time) (*aggregates, error) {
	agg := &aggregates{}

	if err := g.sumPayments(start, end, "", &agg.income); err != nil {
		return nil, err
	}
	if err := g.sumPayments(start, end, models.MethodCash, &agg.cashIncome); err != nil {
		return nil, err
	}
	if err := g.sumPayments(start, end, models.MethodCard, &agg.cardIncome); err != nil {
		return nil, err
	}

	err := g.db.Model(&models.Cost{}).
		Where("active = ? AND date >= ? AND date < ?", true, start, end).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&agg.expense).Error
	if err != nil {
		return nil, fmt.Errorf("summing costs: %w", err)
	}

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&agg.newMembers, g.db.Model(&models.Member{}).
			Where("active = ? AND created_at >= ? AND created_at < ?", true, start, end)},
		{&agg.totalMembers, g.db.Model(&models.Member{}).
			Where("active = ?", true)},
		{&agg.checkIns, g.db.Model(&models.Attendance{}).
			Where("active = ? AND attended_at >= ? AND attended_at < ?", true, start, end)},
		{&agg.maleMembers, g.db.Model(&models.Member{}).
			Where("active = ? AND gender = ?", true, models.GenderMale)},
		{&agg.femaleMembers, g.db.Model(&models.Member{}).
			Where("active = ? AND gender = ?", true, models.GenderFemale)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("counting report rows: %w", err)
		}
	}

	err = g.db.Model(&models.Attendance{}).
		Where("active = ? AND attended_at >= ? AND attended_at < ?", true, start, end).
		Distinct("member_id").
		Count(&agg.attendedMembers).Error
	if err != nil {
		return nil, fmt.Errorf("counting distinct attending members: %w", err)
	}

	expiring, err := g.countExpiringSoon(end.AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}
	agg.expiringSoon = expiring

	return agg, nil
}

func (g *Generator) sumPayments(start, end time.Time, method models.PaymentMethod, dest *decimal.Decimal) error {
	query := g.db.Model(&models.Payment{}).
		Where("active = ? AND date >= ? AND date < ?", true, start, end)
	if method != "" {
		query = query.Where("method = ?", method)
	}
	if err := query.Select("COALESCE(SUM(amount), 0)").Scan(dest).Error; err != nil {
		return fmt.Errorf("summing payments: %w", err)
	}
	return nil
}

// countExpiringSoon classifies every active member at the period's last day
// with the standard 3-day lookahead, using the same engine the kiosk uses.
func (g *Generator) countExpiringSoon(asOf time.Time) (int64, error) {
	var members []models.Member
	if err := g.db.Where("active = ?", true).Find(&members).Error; err != nil {
		return 0, fmt.Errorf("loading members for expiry scan: %w", err)
	}

	var count int64
	for i := range members {
		snapshot, err := member.Resolve(g.db, &members[i], asOf)
		if err != nil {
			return 0, err
		}
		if snapshot.Status == plan.StatusExpiringSoon {
			count++
		}
	}
	return count, nil
}
