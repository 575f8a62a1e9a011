package member

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/ozodbekdev/fitclub-server/cmd/models"
	"github.com/ozodbekdev/fitclub-server/cmd/utils"
	"github.com/ozodbekdev/fitclub-server/pkg/plan"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// MemberResponse extends the member row with its resolved membership state.
type MemberResponse struct {
	models.Member
	Membership Snapshot `json:"membership"`
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	memberRouter := router.PathPrefix("/members").Subrouter()

	memberRouter.HandleFunc("", utils.AuthMiddleware(h.GetMembers)).Methods("GET")
	memberRouter.HandleFunc("", utils.AuthMiddleware(h.CreateMember)).Methods("POST")
	memberRouter.HandleFunc("/expiring", utils.AuthMiddleware(h.GetExpiringMembers)).Methods("GET")
	memberRouter.HandleFunc("/{id:[0-9]+}", utils.AuthMiddleware(h.GetMember)).Methods("GET")
	memberRouter.HandleFunc("/{id:[0-9]+}", utils.AuthMiddleware(h.UpdateMember)).Methods("PUT")
	memberRouter.HandleFunc("/{id:[0-9]+}", utils.AuthMiddleware(h.DeleteMember)).Methods("DELETE")
	memberRouter.HandleFunc("/{id:[0-9]+}/status", utils.AuthMiddleware(h.GetMemberStatus)).Methods("GET")
}

// memberQuery builds the base member query. Soft-deleted rows only show up
// when the caller asks for them explicitly.
func (h *Handler) memberQuery(includeInactive bool) *gorm.DB {
	query := h.db.Model(&models.Member{})
	if !includeInactive {
		query = query.Where("active = ?", true)
	}
	return query
}

func (h *Handler) GetMembers(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	includeInactive, _ := strconv.ParseBool(params.Get("include_inactive"))
	query := h.memberQuery(includeInactive)

	if search := params.Get("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("first_name LIKE ? OR last_name LIKE ? OR phone LIKE ?", like, like, like)
	}
	if planType := params.Get("plan"); planType != "" {
		query = query.Where("plan_type = ?", planType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.LogError(utils.GetLogger(), "member", "GetMembers", "count", nil, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving members")
		return
	}

	page, pageSize := utils.ParsePagination(r)
	var members []models.Member
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&members).Error
	if err != nil {
		utils.LogError(utils.GetLogger(), "member", "GetMembers", "find", nil, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving members")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Response{
		Data: members,
		Meta: utils.NewPaginationMeta(page, pageSize, total),
	})
}

type memberRequest struct {
	FirstName     string          `json:"first_name" validate:"required"`
	LastName      string          `json:"last_name" validate:"required"`
	Phone         string          `json:"phone" validate:"required"`
	Gender        models.Gender   `json:"gender" validate:"required,oneof=male female"`
	PINCode       string          `json:"pin_code" validate:"required,len=4,numeric"`
	PlanType      plan.Type       `json:"plan_type" validate:"omitempty,oneof=Daily Monthly Premium"`
	PaymentAmount decimal.Decimal `json:"payment_amount"`
}

func (h *Handler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.PlanType == "" {
		req.PlanType = plan.Monthly
	}

	member := models.Member{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Phone:         req.Phone,
		Gender:        req.Gender,
		PINCode:       req.PINCode,
		PlanType:      req.PlanType,
		PaymentAmount: req.PaymentAmount,
	}
	if err := h.db.Create(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.WriteError(w, http.StatusConflict, "PIN code already in use")
			return
		}
		utils.LogError(utils.GetLogger(), "member", "CreateMember", "create", req.Phone, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error creating member")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.Response{Data: member})
}

func (h *Handler) findMember(r *http.Request) (*models.Member, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return nil, err
	}
	includeInactive, _ := strconv.ParseBool(r.URL.Query().Get("include_inactive"))

	var member models.Member
	query := h.db.Where("id = ?", uint(id))
	if !includeInactive {
		query = query.Where("active = ?", true)
	}
	if err := query.First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	member, err := h.findMember(r)
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "Member not found")
		return
	}

	snapshot, err := Resolve(h.db, member, time.Now())
	if err != nil {
		utils.LogError(utils.GetLogger(), "member", "GetMember", "resolve", member.ID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error resolving membership")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Response{Data: MemberResponse{Member: *member, Membership: snapshot}})
}

func (h *Handler) GetMemberStatus(w http.ResponseWriter, r *http.Request) {
	member, err := h.findMember(r)
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "Member not found")
		return
	}

	asOf, err := utils.ParseDateParam(r, "as_of", time.Now())
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid as_of date. Use YYYY-MM-DD")
		return
	}

	snapshot, err := Resolve(h.db, member, asOf)
	if err != nil {
		utils.LogError(utils.GetLogger(), "member", "GetMemberStatus", "resolve", member.ID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error resolving membership")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Response{Data: snapshot})
}

func (h *Handler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	member, err := h.findMember(r)
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "Member not found")
		return
	}

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	member.FirstName = req.FirstName
	member.LastName = req.LastName
	member.Phone = req.Phone
	member.Gender = req.Gender
	member.PINCode = req.PINCode
	if req.PlanType != "" {
		member.PlanType = req.PlanType
	}
	member.PaymentAmount = req.PaymentAmount

	if err := h.db.Save(member).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.WriteError(w, http.StatusConflict, "PIN code already in use")
			return
		}
		utils.LogError(utils.GetLogger(), "member", "UpdateMember", "save", member.ID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error updating member")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Response{Data: member})
}

// DeleteMember soft-deletes: the row stays for history and reporting, but
// stops matching active-only queries (including PIN lookup at the kiosk).
func (h *Handler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	member, err := h.findMember(r)
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "Member not found")
		return
	}

	if err := h.db.Model(member).Update("active", false).Error; err != nil {
		utils.LogError(utils.GetLogger(), "member", "DeleteMember", "deactivate", member.ID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error deleting member")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetExpiringMembers lists active members whose membership is expiring soon,
// used by the front desk to chase renewals.
func (h *Handler) GetExpiringMembers(w http.ResponseWriter, r *http.Request) {
	asOf, err := utils.ParseDateParam(r, "as_of", time.Now())
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid as_of date. Use YYYY-MM-DD")
		return
	}

	var members []models.Member
	if err := h.memberQuery(false).Find(&members).Error; err != nil {
		utils.LogError(utils.GetLogger(), "member", "GetExpiringMembers", "find", nil, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving members")
		return
	}

	expiring := make([]MemberResponse, 0)
	for i := range members {
		snapshot, err := Resolve(h.db, &members[i], asOf)
		if err != nil {
			utils.LogError(utils.GetLogger(), "member", "GetExpiringMembers", "resolve", members[i].ID, err)
			utils.WriteError(w, http.StatusInternalServerError, "Error resolving membership")
			return
		}
		if snapshot.Status == plan.StatusExpiringSoon {
			expiring = append(expiring, MemberResponse{Member: members[i], Membership: snapshot})
		}
	}

	utils.WriteJSON(w, http.StatusOK, utils.Response{Data: expiring})
}
