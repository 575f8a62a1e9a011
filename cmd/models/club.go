package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Club is the single settings row for the club. It is seeded by the migrate
// command and loaded exactly once at startup; it is never created lazily.
type Club struct {
	BaseModel
	Name         string          `gorm:"size:255;not null" json:"name"`
	DailyPrice   decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"daily_price"`
	MonthlyPrice decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"monthly_price"`
	VIP          bool            `gorm:"default:false" json:"vip"`
}

// LoadClub fetches the settings row. A missing row is a deployment error
// (migrate was not run), not something to paper over at runtime.
func LoadClub(db *gorm.DB) (*Club, error) {
	var club Club
	err := db.Where("active = ?", true).First(&club).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New("club settings not found: run the migrate command first")
	}
	if err != nil {
		return nil, fmt.Errorf("loading club settings: %w", err)
	}
	return &club, nil
}

// SeedClub creates the settings row if it does not exist yet. Called from the
// migrate command only.
func SeedClub(db *gorm.DB, name string) error {
	var count int64
	if err := db.Model(&Club{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return db.Create(&Club{Name: name}).Error
}
