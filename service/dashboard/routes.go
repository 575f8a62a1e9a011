package dashboard

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/ozodbekdev/fitclub-server/cmd/models"
	"github.com/ozodbekdev/fitclub-server/cmd/utils"
	"github.com/ozodbekdev/fitclub-server/pkg/plan"
	"github.com/ozodbekdev/fitclub-server/service/member"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DashboardHandler struct {
	db *gorm.DB
}

func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{db: db}
}

type DashboardStats struct {
	TotalMembers    int64           `json:"total_members"`
	CheckInsToday   int64           `json:"check_ins_today"`
	ExpiringSoon    int64           `json:"expiring_soon"`
	MonthIncome     decimal.Decimal `json:"month_income"`
	MonthExpense    decimal.Decimal `json:"month_expense"`
	OutstandingDebt decimal.Decimal `json:"outstanding_debt"`
}

func (h *DashboardHandler) RegisterRoutes(router *mux.Router) {
	dashboardRouter := router.PathPrefix("/dashboard").Subrouter()
	dashboardRouter.HandleFunc("/stats", utils.AuthMiddleware(h.GetDashboardStats)).Methods("GET")
}

// GetDashboardStats is the front-desk overview: live membership and
// month-to-date money numbers, computed on request.
func (h *DashboardHandler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	var stats DashboardStats

	now := time.Now()
	today := plan.DateOf(now)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	if err := h.db.Model(&models.Member{}).Where("active = ?", true).Count(&stats.TotalMembers).Error; err != nil {
		h.fail(w, "count members", err)
		return
	}

	err := h.db.Model(&models.Attendance{}).
		Where("active = ? AND attended_at = ?", true, today).
		Count(&stats.CheckInsToday).Error
	if err != nil {
		h.fail(w, "count check-ins", err)
		return
	}

	err = h.db.Model(&models.Payment{}).
		Where("active = ? AND date >= ?", true, monthStart).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&stats.MonthIncome).Error
	if err != nil {
		h.fail(w, "sum income", err)
		return
	}

	err = h.db.Model(&models.Cost{}).
		Where("active = ? AND date >= ?", true, monthStart).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&stats.MonthExpense).Error
	if err != nil {
		h.fail(w, "sum expense", err)
		return
	}

	err = h.db.Model(&models.Debt{}).
		Where("active = ?", true).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&stats.OutstandingDebt).Error
	if err != nil {
		h.fail(w, "sum debt", err)
		return
	}

	var members []models.Member
	if err := h.db.Where("active = ?", true).Find(&members).Error; err != nil {
		h.fail(w, "load members", err)
		return
	}
	for i := range members {
		snapshot, err := member.Resolve(h.db, &members[i], now)
		if err != nil {
			h.fail(w, "resolve membership", err)
			return
		}
		if snapshot.Status == plan.StatusExpiringSoon {
			stats.ExpiringSoon++
		}
	}

	utils.WriteJSON(w, http.StatusOK, utils.Response{Data: stats})
}

func (h *DashboardHandler) fail(w http.ResponseWriter, context string, err error) {
	utils.LogError(utils.GetLogger(), "dashboard", "GetDashboardStats", context, nil, err)
	utils.WriteError(w, http.StatusInternalServerError, "Error computing dashboard stats")
}
