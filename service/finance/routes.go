package finance

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/ozodbekdev/fitclub-server/cmd/models"
	"github.com/ozodbekdev/fitclub-server/cmd/utils"
	"github.com/ozodbekdev/fitclub-server/pkg/plan"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentFilter represents all possible filters for payments.
type PaymentFilter struct {
	MemberID        uint
	Method          string
	PlanType        string
	StartDate       time.Time
	EndDate         time.Time
	IncludeInactive bool
}

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	financeRouter := router.PathPrefix("/finance").Subrouter()

	financeRouter.HandleFunc("/payments", utils.AuthMiddleware(h.GetPayments)).Methods("GET")
	financeRouter.HandleFunc("/payments", utils.AuthMiddleware(h.CreatePayment)).Methods("POST")
	financeRouter.HandleFunc("/payments/summary", utils.AuthMiddleware(h.GetPaymentSummary)).Methods("GET")
	financeRouter.HandleFunc("/payments/{id:[0-9]+}", utils.AuthMiddleware(h.DeletePayment)).Methods("DELETE")

	financeRouter.HandleFunc("/costs", utils.AuthMiddleware(h.GetCosts)).Methods("GET")
	financeRouter.HandleFunc("/costs", utils.AuthMiddleware(h.CreateCost)).Methods("POST")
	financeRouter.HandleFunc("/costs/{id:[0-9]+}", utils.AuthMiddleware(h.DeleteCost)).Methods("DELETE")

	financeRouter.HandleFunc("/debts", utils.AuthMiddleware(h.GetDebts)).Methods("GET")
	financeRouter.HandleFunc("/debts", utils.AuthMiddleware(h.CreateDebt)).Methods("POST")
	financeRouter.HandleFunc("/debts/{id:[0-9]+}", utils.AuthMiddleware(h.DeleteDebt)).Methods("DELETE")
}

func (h *Handler) parsePaymentFilter(r *http.Request) (PaymentFilter, error) {
	var filter PaymentFilter
	params := r.URL.Query()

	if memberIDStr := params.Get("member_id"); memberIDStr != "" {
		memberID, err := strconv.ParseUint(memberIDStr, 10, 32)
		if err != nil {
			return filter, err
		}
		filter.MemberID = uint(memberID)
	}

	filter.Method = params.Get("method")
	filter.PlanType = params.Get("plan")
	filter.IncludeInactive, _ = strconv.ParseBool(params.Get("include_inactive"))

	var err error
	if filter.StartDate, err = utils.ParseDateParam(r, "start_date", time.Time{}); err != nil {
		return filter, err
	}
	if filter.EndDate, err = utils.ParseDateParam(r, "end_date", time.Time{}); err != nil {
		return filter, err
	}
	return filter, nil
}

func (h *Handler) applyPaymentFilter(query *gorm.DB, filter PaymentFilter) *gorm.DB {
	if !filter.IncludeInactive {
		query = query.Where("active = ?", true)
	}
	if filter.MemberID != 0 {
		query = query.Where("member_id = ?", filter.MemberID)
	}
	if filter.Method != "" {
		query = query.Where("method = ?", filter.Method)
	}
	if filter.PlanType != "" {
		query = query.Where("plan_type = ?", filter.PlanType)
	}
	if !filter.StartDate.IsZero() {
		query = query.Where("date >= ?", filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		// End date is inclusive on day granularity.
		query = query.Where("date < ?", filter.EndDate.AddDate(0, 0, 1))
	}
	return query
}

func (h *Handler) GetPayments(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parsePaymentFilter(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid filter parameters")
		return
	}

	query := h.applyPaymentFilter(h.db.Model(&models.Payment{}).Preload("Member"), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.LogError(utils.GetLogger(), "finance", "GetPayments", "count", nil, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving payments")
		return
	}

	page, pageSize := utils.ParsePagination(r)
	var payments []models.Payment
	err = query.Order("date DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&payments).Error
	if err != nil {
		utils.LogError(utils.GetLogger(), "finance", "GetPayments", "find", nil, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving payments")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Response{
		Data: payments,
		Meta: utils.NewPaginationMeta(page, pageSize, total),
	})
}

type paymentRequest struct {
	MemberID uint                 `json:"member_id" validate:"required"`
	Amount   decimal.Decimal      `json:"amount" validate:"required"`
	Date     string               `json:"date"`
	PlanType plan.Type            `json:"plan_type" validate:"omitempty,oneof=Daily Monthly Premium"`
	Method   models.PaymentMethod `json:"method" validate:"omitempty,oneof=cash card transfer"`
	Note     string               `json:"note"`
}

// CreatePayment records a payment. The payment date becomes the member's new
// anchor date, so this is also how a membership gets renewed.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Amount.IsNegative() || req.Amount.IsZero() {
		utils.WriteError(w, http.StatusBadRequest, "Amount must be greater than zero")
		return
	}

	var m models.Member
	if err := h.db.Where("id = ? AND active = ?", req.MemberID, true).First(&m).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Member not found")
		return
	}

	date := time.Now()
	if req.Date != "" {
		parsed, err := time.ParseInLocation(utils.DateLayout, req.Date, time.Local)
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, "Invalid date. Use YYYY-MM-DD")
			return
		}
		date = parsed
	}

	planType := req.PlanType
	if planType == "" {
		planType = m.PlanType
	}
	method := req.Method
	if method == "" {
		method = models.MethodCash
	}

	payment := models.Payment{
		MemberID: m.ID,
		Amount:   req.Amount,
		Date:     date,
		PlanType: planType,
		Method:   method,
		Receipt:  uuid.NewString(),
		Note:     req.Note,
	}
	if err := h.db.Create(&payment).Error; err != nil {
		utils.LogError(utils.GetLogger(), "finance", "CreatePayment", "create", req.MemberID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error creating payment")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.Response{Data: payment})
}

// DeletePayment soft-deletes; payments are otherwise immutable.
func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	h.softDelete(w, r, &models.Payment{}, "Payment")
}

type paymentSummary struct {
	Total    decimal.Decimal `json:"total"`
	Cash     decimal.Decimal `json:"cash"`
	Card     decimal.Decimal `json:"card"`
	Transfer decimal.Decimal `json:"transfer"`
	Count    int64           `json:"count"`
}

// GetPaymentSummary sums active payments in a date range, split by method.
func (h *Handler) GetPaymentSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parsePaymentFilter(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid filter parameters")
		return
	}
	filter.IncludeInactive = false

	var summary paymentSummary
	base := func() *gorm.DB {
		return h.applyPaymentFilter(h.db.Model(&models.Payment{}), filter)
	}

	if err := base().Count(&summary.Count).Error; err != nil {
		utils.LogError(utils.GetLogger(), "finance", "GetPaymentSummary", "count", nil, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error computing summary")
		return
	}

	sums := []struct {
		dest   *decimal.Decimal
		method models.PaymentMethod
	}{
		{&summary.Total, ""},
		{&summary.Cash, models.MethodCash},
		{&summary.Card, models.MethodCard},
		{&summary.Transfer, models.MethodTransfer},
	}
	for _, s := range sums {
		query := base()
		if s.method != "" {
			query = query.Where("method = ?", s.method)
		}
		if err := query.Select("COALESCE(SUM(amount), 0)").Scan(s.dest).Error; err != nil {
			utils.LogError(utils.GetLogger(), "finance", "GetPaymentSummary", "sum", s.method, err)
			utils.WriteError(w, http.StatusInternalServerError, "Error computing summary")
			return
		}
	}

	utils.WriteJSON(w, http.StatusOK, utils.Response{Data: summary})
}

type costRequest struct {
	Name     string          `json:"name" validate:"required"`
	Quantity decimal.Decimal `json:"quantity" validate:"required"`
	Date     string          `json:"date"`
	Note     string          `json:"note"`
}

func (h *Handler) CreateCost(w http.ResponseWriter, r *http.Request) {
	var req costRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	date := time.Now()
	if req.Date != "" {
		parsed, err := time.ParseInLocation(utils.DateLayout, req.Date, time.Local)
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, "Invalid date. Use YYYY-MM-DD")
			return
		}
		date = parsed
	}

	cost := models.Cost{
		Name:     req.Name,
		Quantity: req.Quantity,
		Date:     date,
		Note:     req.Note,
	}
	if err := h.db.Create(&cost).Error; err != nil {
		utils.LogError(utils.GetLogger(), "finance", "CreateCost", "create", req.Name, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error creating cost")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.Response{Data: cost})
}

func (h *Handler) GetCosts(w http.ResponseWriter, r *http.Request) {
	includeInactive, _ := strconv.ParseBool(r.URL.Query().Get("include_inactive"))
	query := h.db.Model(&models.Cost{})
	if !includeInactive {
		query = query.Where("active = ?", true)
	}

	startDate, err := utils.ParseDateParam(r, "start_date", time.Time{})
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid start_date. Use YYYY-MM-DD")
		return
	}
	endDate, err := utils.ParseDateParam(r, "end_date", time.Time{})
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid end_date. Use YYYY-MM-DD")
		return
	}
	if !startDate.IsZero() {
		query = query.Where("date >= ?", startDate)
	}
	if !endDate.IsZero() {
		query = query.Where("date < ?", endDate.AddDate(0, 0, 1))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.LogError(utils.GetLogger(), "finance", "GetCosts", "count", nil, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving costs")
		return
	}

	page, pageSize := utils.ParsePagination(r)
	var costs []models.Cost
	if err := query.Order("date DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&costs).Error; err != nil {
		utils.LogError(utils.GetLogger(), "finance", "GetCosts", "find", nil, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving costs")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Response{
		Data: costs,
		Meta: utils.NewPaginationMeta(page, pageSize, total),
	})
}

func (h *Handler) DeleteCost(w http.ResponseWriter, r *http.Request) {
	h.softDelete(w, r, &models.Cost{}, "Cost")
}

type debtRequest struct {
	MemberID uint            `json:"member_id" validate:"required"`
	Amount   decimal.Decimal `json:"amount" validate:"required"`
	DueDate  string          `json:"due_date"`
	Note     string          `json:"note"`
}

func (h *Handler) CreateDebt(w http.ResponseWriter, r *http.Request) {
	var req debtRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var m models.Member
	if err := h.db.Where("id = ? AND active = ?", req.MemberID, true).First(&m).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Member not found")
		return
	}

	dueDate := time.Now()
	if req.DueDate != "" {
		parsed, err := time.ParseInLocation(utils.DateLayout, req.DueDate, time.Local)
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, "Invalid due_date. Use YYYY-MM-DD")
			return
		}
		dueDate = parsed
	}

	debt := models.Debt{
		MemberID: m.ID,
		Amount:   req.Amount,
		DueDate:  dueDate,
		Note:     req.Note,
	}
	if err := h.db.Create(&debt).Error; err != nil {
		utils.LogError(utils.GetLogger(), "finance", "CreateDebt", "create", req.MemberID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error creating debt")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.Response{Data: debt})
}

func (h *Handler) GetDebts(w http.ResponseWriter, r *http.Request) {
	includeInactive, _ := strconv.ParseBool(r.URL.Query().Get("include_inactive"))
	query := h.db.Model(&models.Debt{}).Preload("Member")
	if !includeInactive {
		query = query.Where("active = ?", true)
	}
	if memberIDStr := r.URL.Query().Get("member_id"); memberIDStr != "" {
		memberID, err := strconv.ParseUint(memberIDStr, 10, 32)
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, "Invalid member_id parameter")
			return
		}
		query = query.Where("member_id = ?", uint(memberID))
	}

	var debts []models.Debt
	if err := query.Order("due_date DESC").Find(&debts).Error; err != nil {
		utils.LogError(utils.GetLogger(), "finance", "GetDebts", "find", nil, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving debts")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Response{Data: debts})
}

// DeleteDebt soft-deletes a debt, which is how a settled debt is cleared.
func (h *Handler) DeleteDebt(w http.ResponseWriter, r *http.Request) {
	h.softDelete(w, r, &models.Debt{}, "Debt")
}

func (h *Handler) softDelete(w http.ResponseWriter, r *http.Request, model interface{}, label string) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid ID")
		return
	}

	result := h.db.Model(model).Where("id = ? AND active = ?", uint(id), true).Update("active", false)
	if result.Error != nil {
		utils.LogError(utils.GetLogger(), "finance", "softDelete", label, id, result.Error)
		utils.WriteError(w, http.StatusInternalServerError, "Error deleting "+label)
		return
	}
	if result.RowsAffected == 0 {
		utils.WriteError(w, http.StatusNotFound, label+" not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
