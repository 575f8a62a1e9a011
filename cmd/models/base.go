package models

import "time"

// BaseModel is embedded by every table. Rows are never hard-deleted: Active is
// flipped to false instead, and every query has to filter on it explicitly.
type BaseModel struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Active    bool      `gorm:"default:true;index" json:"active"`
}
