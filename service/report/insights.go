package report

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/ozodbekdev/fitclub-server/cmd/models"
	"github.com/ozodbekdev/fitclub-server/cmd/utils"
	"github.com/ozodbekdev/fitclub-server/pkg/plan"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// unpaidWindowDays is how far back a payment still counts as recent.
const unpaidWindowDays = 30

// UnpaidMember is an active member with no recent payment. LastPaymentDate is
// nil for members who have never paid.
type UnpaidMember struct {
	MemberID        uint       `json:"member_id"`
	MemberName      string     `json:"member_name"`
	Phone           string     `json:"phone"`
	LastPaymentDate *time.Time `json:"last_payment_date"`
}

// IncomePoint is one day of the per-date income series.
type IncomePoint struct {
	Date        string          `json:"date"`
	TotalIncome decimal.Decimal `json:"total_income"`
}

// AttendancePoint is one day of the per-date check-in series.
type AttendancePoint struct {
	Date          string `json:"date"`
	TotalCheckIns int64  `json:"total_check_ins"`
}

// unpaidMembers lists active members whose last active payment is older than
// the window, including members who have never paid at all.
func unpaidMembers(db *gorm.DB, asOf time.Time) ([]UnpaidMember, error) {
	cutoff := plan.DateOf(asOf).AddDate(0, 0, -unpaidWindowDays)

	var members []models.Member
	if err := db.Where("active = ?", true).Find(&members).Error; err != nil {
		return nil, fmt.Errorf("loading members for unpaid scan: %w", err)
	}

	result := make([]UnpaidMember, 0)
	for i := range members {
		m := &members[i]

		var payment models.Payment
		err := db.Where("member_id = ? AND active = ?", m.ID, true).
			Order("date DESC").
			First(&payment).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			result = append(result, UnpaidMember{
				MemberID:   m.ID,
				MemberName: m.FullName(),
				Phone:      m.Phone,
			})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("looking up last payment: %w", err)
		}

		lastDate := plan.DateOf(payment.Date)
		if lastDate.Before(cutoff) {
			result = append(result, UnpaidMember{
				MemberID:        m.ID,
				MemberName:      m.FullName(),
				Phone:           m.Phone,
				LastPaymentDate: &lastDate,
			})
		}
	}
	return result, nil
}

// incomeSeries sums active payments per calendar day over the trailing window.
func incomeSeries(db *gorm.DB, asOf time.Time) ([]IncomePoint, error) {
	since := plan.DateOf(asOf).AddDate(0, 0, -unpaidWindowDays)

	var payments []models.Payment
	err := db.Where("active = ? AND date >= ?", true, since).Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("loading payments for income series: %w", err)
	}

	totals := make(map[string]decimal.Decimal)
	for i := range payments {
		day := plan.DateOf(payments[i].Date).Format(utils.DateLayout)
		totals[day] = totals[day].Add(payments[i].Amount)
	}

	series := make([]IncomePoint, 0, len(totals))
	for day, total := range totals {
		series = append(series, IncomePoint{Date: day, TotalIncome: total})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })
	return series, nil
}

// attendanceSeries counts active check-ins per calendar day over all records.
func attendanceSeries(db *gorm.DB) ([]AttendancePoint, error) {
	var records []models.Attendance
	if err := db.Where("active = ?", true).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("loading attendance for series: %w", err)
	}

	counts := make(map[string]int64)
	for i := range records {
		day := plan.DateOf(records[i].AttendedAt).Format(utils.DateLayout)
		counts[day]++
	}

	series := make([]AttendancePoint, 0, len(counts))
	for day, total := range counts {
		series = append(series, AttendancePoint{Date: day, TotalCheckIns: total})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })
	return series, nil
}

// GetUnpaidMembers lists members the front desk should chase for payment.
func (h *Handler) GetUnpaidMembers(w http.ResponseWriter, r *http.Request) {
	asOf, err := utils.ParseDateParam(r, "as_of", time.Now())
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid as_of date. Use YYYY-MM-DD")
		return
	}

	unpaid, err := unpaidMembers(h.db, asOf)
	if err != nil {
		utils.LogError(utils.GetLogger(), "report", "GetUnpaidMembers", "scan", nil, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving unpaid members")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Response{Data: unpaid})
}

func (h *Handler) GetIncomeSeries(w http.ResponseWriter, r *http.Request) {
	series, err := incomeSeries(h.db, time.Now())
	if err != nil {
		utils.LogError(utils.GetLogger(), "report", "GetIncomeSeries", "aggregate", nil, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving income series")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Response{Data: series})
}

func (h *Handler) GetAttendanceSeries(w http.ResponseWriter, r *http.Request) {
	series, err := attendanceSeries(h.db)
	if err != nil {
		utils.LogError(utils.GetLogger(), "report", "GetAttendanceSeries", "aggregate", nil, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving attendance series")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Response{Data: series})
}
