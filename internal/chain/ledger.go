package chain

import (
	"context"

	"github.com/shopspring/decimal"

	"updown/internal/models"
)

// Ledger is the on-chain room contract as consumed by the engine. All
// submissions are asynchronous: a returned transaction hash means accepted by
// the node, not confirmed. The off-chain cache treats confirmation as
// eventually consistent and never blocks on it.
type Ledger interface {
	// CreateRoom submits room creation and returns the numeric room id the
	// contract will assign along with the transaction hash.
	CreateRoom(ctx context.Context, symbol string, durationMinutes int, minStake decimal.Decimal) (uint64, string, error)
	StartRoom(ctx context.Context, roomID uint64, startingPrice decimal.Decimal) (string, error)
	Predict(ctx context.Context, roomID uint64, direction models.Direction, stake decimal.Decimal) (string, error)
	ResolveRoom(ctx context.Context, roomID uint64, endingPrice decimal.Decimal) (string, error)
	ClaimPayout(ctx context.Context, roomID uint64) (string, error)
}
