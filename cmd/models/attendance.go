package models

import "time"

// Attendance is one check-in. AttendedAt is date-granular: the partial unique
// index below is what enforces "one active check-in per member per calendar
// day": a concurrent duplicate insert fails at the storage layer instead of
// racing an application-level check.
type Attendance struct {
	BaseModel
	MemberID   uint      `gorm:"not null;index;uniqueIndex:uniq_attendance_member_day,priority:1" json:"member_id"`
	AttendedAt time.Time `gorm:"type:date;not null;index;uniqueIndex:uniq_attendance_member_day,priority:2,where:active" json:"attended_at"`
	CodeUsed   string    `gorm:"size:4" json:"code_used,omitempty"`

	Member *Member `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"member,omitempty"`
}
