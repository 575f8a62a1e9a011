package utils

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

const DateLayout = "2006-01-02"

const MonthLayout = "2006-01"

var validate = validator.New()

// ValidateStruct runs the `validate` tags on a request payload.
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// Response is the standard API envelope.
type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Meta  interface{} `json:"meta,omitempty"`
	Error string      `json:"error,omitempty"`
}

// PaginationMeta contains pagination metadata.
type PaginationMeta struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	TotalItems  int64 `json:"total_items"`
	TotalPages  int   `json:"total_pages"`
	HasPrevious bool  `json:"has_previous"`
	HasNext     bool  `json:"has_next"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{Error: message})
}

// ParseDateParam reads a YYYY-MM-DD query parameter; empty means fallback.
func ParseDateParam(r *http.Request, name string, fallback time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return time.ParseInLocation(DateLayout, raw, time.Local)
}

// ParseMonthParam reads a YYYY-MM query parameter; empty means fallback.
func ParseMonthParam(r *http.Request, name string, fallback time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return time.ParseInLocation(MonthLayout, raw, time.Local)
}

// ParsePagination reads page/page_size query parameters with the same bounds
// the rest of the API uses.
func ParsePagination(r *http.Request) (page, pageSize int) {
	page = 1
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	pageSize = 10
	if v, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && v > 0 && v <= 100 {
		pageSize = v
	}
	return page, pageSize
}

// NewPaginationMeta fills the meta block from a total row count.
func NewPaginationMeta(page, pageSize int, total int64) PaginationMeta {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return PaginationMeta{
		CurrentPage: page,
		PerPage:     pageSize,
		TotalItems:  total,
		TotalPages:  totalPages,
		HasPrevious: page > 1,
		HasNext:     page < totalPages,
	}
}
