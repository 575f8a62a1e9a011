package attendance

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
	"github.com/ozodbekdev/fitclub-server/service/ws"
	"gorm.io/gorm"
)

type Handler struct {
	db  *gorm.DB
	hub *ws.Hub
}

// NewHandler builds the attendance handler. hub may be nil (tests, the report
// CLI); broadcasting is skipped then.
func NewHandler(db *gorm.DB, hub *ws.Hub) *Handler {
	return &Handler{db: db, hub: hub}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	attendanceRouter := router.PathPrefix("/attendance").Subrouter()

	// The kiosk posts here; it is the only unauthenticated endpoint.
	attendanceRouter.HandleFunc("/check-in", h.HandleCheckIn).Methods("POST")

	attendanceRouter.HandleFunc("/today", utils.AuthMiddleware(h.GetTodayAttendance)).Methods("GET")
	attendanceRouter.HandleFunc("", utils.AuthMiddleware(h.GetAttendance)).Methods("GET")
	attendanceRouter.HandleFunc("/{id:[0-9]+}", utils.AuthMiddleware(h.DeleteAttendance)).Methods("DELETE")
}

type checkInRequest struct {
	PINCode string `json:"pin_code"`
}

// HandleCheckIn maps the check-in outcomes onto the HTTP boundary:
// 201 created, 400 invalid pin / expired / duplicate, 404 unknown pin.
func (h *Handler) HandleCheckIn(w http.ResponseWriter, r *http.Request) {
	var req checkInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := CheckIn(h.db, req.PINCode, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidPIN):
			utils.WriteError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrMemberNotFound):
			utils.WriteError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrPlanExpired), errors.Is(err, ErrAlreadyCheckedIn):
			utils.WriteError(w, http.StatusBadRequest, err.Error())
		default:
			utils.LogError(utils.GetLogger(), "attendance", "HandleCheckIn", "check-in", nil, err)
			utils.WriteError(w, http.StatusInternalServerError, "Error processing check-in")
		}
		return
	}

	utils.GetLogger().WithField("member_id", result.Member.ID).Info("member checked in")
	h.hub.NotifyCheckIn(ws.CheckInEvent{
		MemberID:   result.Member.ID,
		MemberName: result.Member.FirstName + " " + result.Member.LastName,
		PlanType:   string(result.Member.PlanType),
		Status:     string(result.Membership.Status),
		AttendedAt: result.Attendance.AttendedAt,
	})

	utils.WriteJSON(w, http.StatusCreated, utils.Response{Data: result})
}

func (h *Handler) GetTodayAttendance(w http.ResponseWriter, r *http.Request) {
	today := plan.DateOf(time.Now())

	var records []models.Attendance
	err := h.db.Preload("Member").
		Where("attended_at = ? AND active = ?", today, true).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		utils.LogError(utils.GetLogger(), "attendance", "GetTodayAttendance", "find", nil, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving attendance")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Response{Data: records})
}

// GetAttendance lists attendance records with member and month/year filters.
func (h *Handler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	includeInactive, _ := strconv.ParseBool(params.Get("include_inactive"))
	query := h.db.Model(&models.Attendance{}).Preload("Member")
	if !includeInactive {
		query = query.Where("active = ?", true)
	}

	if memberIDStr := params.Get("member_id"); memberIDStr != "" {
		memberID, err := strconv.ParseUint(memberIDStr, 10, 32)
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, "Invalid member_id parameter")
			return
		}
		query = query.Where("member_id = ?", uint(memberID))
	}

	monthStr, yearStr := params.Get("month"), params.Get("year")
	if monthStr != "" && yearStr != "" {
		month, errM := strconv.Atoi(monthStr)
		year, errY := strconv.Atoi(yearStr)
		if errM != nil || errY != nil || month < 1 || month > 12 {
			utils.WriteError(w, http.StatusBadRequest, "Invalid month/year parameters")
			return
		}
		start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.Local)
		query = query.Where("attended_at >= ? AND attended_at < ?", start, start.AddDate(0, 1, 0))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.LogError(utils.GetLogger(), "attendance", "GetAttendance", "count", nil, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving attendance")
		return
	}

	page, pageSize := utils.ParsePagination(r)
	var records []models.Attendance
	err := query.Order("attended_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error
	if err != nil {
		utils.LogError(utils.GetLogger(), "attendance", "GetAttendance", "find", nil, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving attendance")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Response{
		Data: records,
		Meta: utils.NewPaginationMeta(page, pageSize, total),
	})
}

// DeleteAttendance soft-deletes a record; the freed (member, day) slot can be
// used again, which is how staff fix a mistaken kiosk entry.
func (h *Handler) DeleteAttendance(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid attendance ID")
		return
	}

	var record models.Attendance
	if err := h.db.Where("id = ? AND active = ?", uint(id), true).First(&record).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Attendance record not found")
		return
	}

	if err := h.db.Model(&record).Update("active", false).Error; err != nil {
		utils.LogError(utils.GetLogger(), "attendance", "DeleteAttendance", "deactivate", record.ID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error deleting attendance record")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
