package models

import (
	"time"

	"github.com/ozodbekdev/fitclub-server/pkg/plan"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	MethodCash     PaymentMethod = "cash"
	MethodCard     PaymentMethod = "card"
	MethodTransfer PaymentMethod = "transfer"
)

// Payment is immutable once created; corrections happen by soft-deleting and
// re-entering.
type Payment struct {
	BaseModel
	MemberID uint            `gorm:"index;not null" json:"member_id"`
	Amount   decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"amount"`
	Date     time.Time       `gorm:"index;not null" json:"date"`
	PlanType plan.Type       `gorm:"size:16;default:Monthly" json:"plan_type"`
	Method   PaymentMethod   `gorm:"size:16;default:cash" json:"method"`
	Receipt  string          `gorm:"size:36;uniqueIndex" json:"receipt"`
	Note     string          `gorm:"size:200" json:"note,omitempty"`

	Member *Member `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"member,omitempty"`
}

// Debt is money a member still owes the club.
type Debt struct {
	BaseModel
	MemberID uint            `gorm:"index;not null" json:"member_id"`
	Amount   decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"amount"`
	DueDate  time.Time       `gorm:"index" json:"due_date"`
	Note     string          `gorm:"size:200" json:"note,omitempty"`

	Member *Member `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"member,omitempty"`
}

// Cost is a club expense ledger entry.
type Cost struct {
	BaseModel
	Name     string          `gorm:"size:100;not null" json:"name"`
	Quantity decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"quantity"`
	Date     time.Time       `gorm:"index;not null" json:"date"`
	Note     string          `gorm:"size:200" json:"note,omitempty"`
}
