package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// SettlementRecord is the immutable result of settling one room. The unique
// index on room_id doubles as the settlement idempotency guard: the first
// create-if-absent wins, every later pass observes the existing row and does
// nothing. A room is never re-settled with different numbers.
type SettlementRecord struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomID string `gorm:"type:uuid;not null;uniqueIndex" json:"room_id"`

	StartingPrice    decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"starting_price"`
	EndingPrice      decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"ending_price"`
	WinningDirection Direction       `gorm:"type:varchar(4);not null" json:"winning_direction"`
	TotalPool        decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"total_pool"`
	TotalWinnerStake decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"total_winner_stake"`

	// Payouts is the per-prediction snapshot at settlement time, as a JSON
	// array of {prediction_id, user, outcome, payout}.
	Payouts datatypes.JSON `gorm:"type:jsonb;not null" json:"payouts"`

	SettledAt time.Time `gorm:"type:timestamptz;not null" json:"settled_at"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (SettlementRecord) TableName() string {
	return "settlement_records"
}
