package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceTick is the latest observed price per symbol. The websocket stream
// keeps it fresh; readers fall back to the REST price source when the row is
// missing or stale.
type PriceTick struct {
	Symbol    string          `gorm:"primaryKey;type:varchar(30)" json:"symbol"`
	Price     decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"price"`
	Source    string          `gorm:"type:varchar(30);not null" json:"source"`
	UpdatedAt time.Time       `gorm:"type:timestamptz;not null" json:"updated_at"`
}

func (PriceTick) TableName() string {
	return "price_ticks"
}
