package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoomStatus is the persisted lifecycle state of a room. StatusCompleted is
// never written to the store: it is derived from StatusStarted plus the clock
// (see service.EffectiveStatus) so that "is this room over" has exactly one
// answer everywhere.
type RoomStatus string

const (
	StatusWaiting   RoomStatus = "waiting"
	StatusStarted   RoomStatus = "started"
	StatusCompleted RoomStatus = "completed"
	StatusSettled   RoomStatus = "settled"
	StatusCancelled RoomStatus = "cancelled"
)

func (s RoomStatus) Valid() bool {
	switch s {
	case StatusWaiting, StatusStarted, StatusCompleted, StatusSettled, StatusCancelled:
		return true
	}
	return false
}

// Room is a time-boxed market on one symbol's price direction.
//
// Invariants:
//   - UpStake + DownStake always equals the sum of all prediction stakes.
//   - Status only moves forward: waiting -> started -> settled (or
//     waiting -> cancelled); StartingPrice is set iff the room has started,
//     EndingPrice is set iff the room has settled.
type Room struct {
	ID          string  `gorm:"primaryKey;type:uuid" json:"id"`
	ChainRoomID *uint64 `gorm:"uniqueIndex" json:"chain_room_id,omitempty"`

	Symbol          string          `gorm:"type:varchar(30);not null;index" json:"symbol"`
	Creator         string          `gorm:"type:varchar(64);not null;index" json:"creator"`
	MinStake        decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"min_stake"`
	DurationMinutes int             `gorm:"not null" json:"duration_minutes"`

	StartingPrice *decimal.Decimal `gorm:"type:numeric(30,10)" json:"starting_price,omitempty"`
	EndingPrice   *decimal.Decimal `gorm:"type:numeric(30,10)" json:"ending_price,omitempty"`

	Status    RoomStatus      `gorm:"type:varchar(12);not null;index" json:"status"`
	UpStake   decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"up_stake"`
	DownStake decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"down_stake"`

	StartedAt *time.Time `gorm:"type:timestamptz" json:"started_at,omitempty"`
	EndsAt    *time.Time `gorm:"type:timestamptz;index" json:"ends_at,omitempty"`

	// Version guards concurrent writers: every status transition is a
	// compare-and-swap on (status, version).
	Version   int       `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (Room) TableName() string {
	return "rooms"
}
