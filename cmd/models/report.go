package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyReport is a derived snapshot for one calendar day. It is rebuilt by the
// report generator (upsert keyed on Date) and never edited by hand.
type DailyReport struct {
	BaseModel
	Date time.Time `gorm:"type:date;not null;uniqueIndex" json:"date"`

	Income     decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"income"`
	CashIncome decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"cash_income"`
	CardIncome decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"card_income"`
	Expense    decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"expense"`

	NewMembers      int64 `gorm:"default:0" json:"new_members"`
	TotalMembers    int64 `gorm:"default:0" json:"total_members"`
	CheckIns        int64 `gorm:"default:0" json:"check_ins"`
	ExpiringSoon    int64 `gorm:"default:0" json:"expiring_soon"`
	AttendedMembers int64 `gorm:"default:0" json:"attended_members"`
	MaleMembers     int64 `gorm:"default:0" json:"male_members"`
	FemaleMembers   int64 `gorm:"default:0" json:"female_members"`
}

// MonthlyReport mirrors DailyReport at month grain. Month is always the first
// day of the month.
type MonthlyReport struct {
	BaseModel
	Month time.Time `gorm:"type:date;not null;uniqueIndex" json:"month"`

	Income     decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"income"`
	CashIncome decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"cash_income"`
	CardIncome decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"card_income"`
	Expense    decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"expense"`

	NewMembers      int64 `gorm:"default:0" json:"new_members"`
	TotalMembers    int64 `gorm:"default:0" json:"total_members"`
	CheckIns        int64 `gorm:"default:0" json:"check_ins"`
	ExpiringSoon    int64 `gorm:"default:0" json:"expiring_soon"`
	AttendedMembers int64 `gorm:"default:0" json:"attended_members"`
	MaleMembers     int64 `gorm:"default:0" json:"male_members"`
	FemaleMembers   int64 `gorm:"default:0" json:"female_members"`
}
