package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the side of a prediction: will the price end above (UP) or
// at-or-below (DOWN) the starting price.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
)

func (d Direction) Valid() bool {
	return d == DirectionUp || d == DirectionDown
}

// PredictionOutcome moves PENDING -> WIN or PENDING -> LOSS exactly once,
// during settlement.
type PredictionOutcome string

const (
	OutcomePending PredictionOutcome = "PENDING"
	OutcomeWin     PredictionOutcome = "WIN"
	OutcomeLoss    PredictionOutcome = "LOSS"
)

// Prediction is one user's directional stake in a room. The unique index on
// (room_id, user) is the one-prediction-per-user-per-room guard; insertion
// races resolve to a single winner at the store.
type Prediction struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomID string `gorm:"type:uuid;not null;uniqueIndex:idx_predictions_room_user,priority:1;index" json:"room_id"`
	User   string `gorm:"type:varchar(64);not null;uniqueIndex:idx_predictions_room_user,priority:2;index" json:"user"`

	Direction Direction       `gorm:"type:varchar(4);not null" json:"direction"`
	Stake     decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"stake"`

	Outcome PredictionOutcome `gorm:"type:varchar(7);not null;default:PENDING" json:"outcome"`
	Payout  decimal.Decimal   `gorm:"type:numeric(30,10);not null;default:0" json:"payout"`

	CreatedAt time.Time  `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	SettledAt *time.Time `gorm:"type:timestamptz" json:"settled_at,omitempty"`
}

func (Prediction) TableName() string {
	return "predictions"
}
