package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/ozodbekdev/fitclub-server/cmd/models"
	"github.com/ozodbekdev/fitclub-server/cmd/utils"
	"gorm.io/gorm"
)

type Handler struct {
	db        *gorm.DB
	generator *Generator
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db, generator: NewGenerator(db)}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	reportRouter := router.PathPrefix("/reports").Subrouter()

	reportRouter.HandleFunc("/generate", utils.AuthMiddleware(h.GenerateReports)).Methods("POST")
	reportRouter.HandleFunc("/daily", utils.AuthMiddleware(h.GetDailyReport)).Methods("GET")
	reportRouter.HandleFunc("/daily/export", utils.AuthMiddleware(h.ExportDailyReport)).Methods("GET")
	reportRouter.HandleFunc("/monthly", utils.AuthMiddleware(h.GetMonthlyReport)).Methods("GET")
	reportRouter.HandleFunc("/monthly/export", utils.AuthMiddleware(h.ExportMonthlyReport)).Methods("GET")
	reportRouter.HandleFunc("/unpaid-members", utils.AuthMiddleware(h.GetUnpaidMembers)).Methods("GET")
	reportRouter.HandleFunc("/income", utils.AuthMiddleware(h.GetIncomeSeries)).Methods("GET")
	reportRouter.HandleFunc("/attendance", utils.AuthMiddleware(h.GetAttendanceSeries)).Methods("GET")
}

type generateRequest struct {
	Date  string `json:"date"`
	Month string `json:"month"`
}

// GenerateReports recomputes the daily snapshot for the given date and the
// monthly snapshot for the given month (both default to now). Idempotent.
func (h *Handler) GenerateReports(w http.ResponseWriter, r *http.Request) {
	// An empty body means "today and this month"; malformed JSON does not.
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	date := time.Now()
	if req.Date != "" {
		parsed, err := time.ParseInLocation(utils.DateLayout, req.Date, time.Local)
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD")
			return
		}
		date = parsed
	}
	month := date
	if req.Month != "" {
		parsed, err := time.ParseInLocation(utils.MonthLayout, req.Month, time.Local)
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, "Invalid month format. Use YYYY-MM")
			return
		}
		month = parsed
	}

	daily, err := h.generator.Daily(date)
	if err != nil {
		utils.LogError(utils.GetLogger(), "report", "GenerateReports", "daily", req.Date, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error generating daily report")
		return
	}
	monthly, err := h.generator.Monthly(month)
	if err != nil {
		utils.LogError(utils.GetLogger(), "report", "GenerateReports", "monthly", req.Month, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error generating monthly report")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Response{Data: map[string]interface{}{
		"daily":   daily,
		"monthly": monthly,
	}})
}

func (h *Handler) getDaily(r *http.Request) (*models.DailyReport, error) {
	date, err := utils.ParseDateParam(r, "date", time.Now())
	if err != nil {
		return nil, errDateParam
	}
	var report models.DailyReport
	err = h.db.Where("date = ? AND active = ?", dateOnly(date), true).First(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (h *Handler) getMonthly(r *http.Request) (*models.MonthlyReport, error) {
	month, err := utils.ParseMonthParam(r, "month", time.Now())
	if err != nil {
		return nil, errDateParam
	}
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, month.Location())
	var report models.MonthlyReport
	err = h.db.Where("month = ? AND active = ?", first, true).First(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

var errDateParam = errors.New("invalid date parameter")

func (h *Handler) GetDailyReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.getDaily(r)
	if err != nil {
		h.writeReportError(w, err, "No daily report for that date; generate it first")
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.Response{Data: report})
}

func (h *Handler) GetMonthlyReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.getMonthly(r)
	if err != nil {
		h.writeReportError(w, err, "No monthly report for that month; generate it first")
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.Response{Data: report})
}

func (h *Handler) ExportDailyReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.getDaily(r)
	if err != nil {
		h.writeReportError(w, err, "No daily report for that date; generate it first")
		return
	}
	name := fmt.Sprintf("daily-report-%s.xlsx", report.Date.Format("2006-01-02"))
	h.writeWorkbook(w, name, "Daily Report", report.Date.Format("2006-01-02"), reportRows(
		report.Income, report.CashIncome, report.CardIncome, report.Expense,
		report.NewMembers, report.TotalMembers, report.CheckIns, report.ExpiringSoon,
		report.AttendedMembers, report.MaleMembers, report.FemaleMembers,
	))
}

func (h *Handler) ExportMonthlyReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.getMonthly(r)
	if err != nil {
		h.writeReportError(w, err, "No monthly report for that month; generate it first")
		return
	}
	name := fmt.Sprintf("monthly-report-%s.xlsx", report.Month.Format("2006-01"))
	h.writeWorkbook(w, name, "Monthly Report", report.Month.Format("2006-01"), reportRows(
		report.Income, report.CashIncome, report.CardIncome, report.Expense,
		report.NewMembers, report.TotalMembers, report.CheckIns, report.ExpiringSoon,
		report.AttendedMembers, report.MaleMembers, report.FemaleMembers,
	))
}

func (h *Handler) writeReportError(w http.ResponseWriter, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, errDateParam):
		utils.WriteError(w, http.StatusBadRequest, "Invalid date parameter")
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.WriteError(w, http.StatusNotFound, notFoundMsg)
	default:
		utils.LogError(utils.GetLogger(), "report", "writeReportError", "lookup", nil, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving report")
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
