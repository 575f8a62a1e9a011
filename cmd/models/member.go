package models

import (
	"github.com/ozodbekdev/fitclub-server/pkg/plan"
	"github.com/shopspring/decimal"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Member is the aggregate root: payments, attendances and debts hang off it
// and are removed with it.
type Member struct {
	BaseModel
	FirstName     string          `gorm:"size:255;not null" json:"first_name"`
	LastName      string          `gorm:"size:255;not null" json:"last_name"`
	Phone         string          `gorm:"size:20;index" json:"phone"`
	Gender        Gender          `gorm:"size:10" json:"gender"`
	PINCode       string          `gorm:"column:pin_code;size:4;uniqueIndex;not null" json:"pin_code"`
	PlanType      plan.Type       `gorm:"size:16;default:Monthly" json:"plan_type"`
	PaymentAmount decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"payment_amount"`

	Payments    []Payment    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"payments,omitempty"`
	Attendances []Attendance `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"attendances,omitempty"`
	Debts       []Debt       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"debts,omitempty"`
}

// FullName is what the kiosk shows after a successful check-in.
func (m *Member) FullName() string {
	return m.FirstName + " " + m.LastName
}
