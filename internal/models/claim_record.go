package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClaimRecord marks that one user's payout for one room was disbursed.
// Presence of the row is the single source of truth for "has this user been
// paid": claim processing creates it if absent and returns the existing row
// otherwise, so retries never double-pay.
type ClaimRecord struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomID string `gorm:"type:uuid;not null;uniqueIndex:idx_claims_room_user,priority:1" json:"room_id"`
	User   string `gorm:"type:varchar(64);not null;uniqueIndex:idx_claims_room_user,priority:2;index" json:"user"`

	Amount decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"amount"`
	TxRef  string          `gorm:"type:varchar(128)" json:"tx_ref"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (ClaimRecord) TableName() string {
	return "claim_records"
}
