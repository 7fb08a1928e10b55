package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CarbonPrice maps a calendar year to a currency price per tCO2e credit.
// The table is admin-maintained and read-only input to revenue calculation.
type CarbonPrice struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Year      int             `gorm:"uniqueIndex;not null" json:"year"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Currency  string          `gorm:"size:3;not null;default:USD" json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName specifies the table name for CarbonPrice model
func (CarbonPrice) TableName() string {
	return "carbon_prices"
}
