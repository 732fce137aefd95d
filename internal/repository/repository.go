package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"updown/internal/models"
)

// Repository is the keyed store behind the room engine. Implementations must
// provide the atomic conditional writes (create-if-absent, status-guarded
// updates) that the idempotency guards in the service layer rely on.
type Repository interface {
	// Rooms
	CreateRoom(ctx context.Context, item *models.Room) error
	GetRoomByID(ctx context.Context, id string) (*models.Room, error)
	ListRooms(ctx context.Context, params ListRoomsParams) ([]models.Room, error)
	CountRooms(ctx context.Context, params ListRoomsParams) (int64, error)
	// ListRoomsDueForSettlement returns rooms whose stored status is started
	// and whose end time is at or before now (oldest first).
	ListRoomsDueForSettlement(ctx context.Context, now time.Time, limit int) ([]models.Room, error)
	// MarkRoomStarted is a waiting->started compare-and-swap; it reports
	// whether this caller won the transition.
	MarkRoomStarted(ctx context.Context, id string, startingPrice decimal.Decimal, startedAt, endsAt time.Time) (bool, error)
	// MarkRoomCancelled is a waiting->cancelled compare-and-swap.
	MarkRoomCancelled(ctx context.Context, id string) (bool, error)
	SetRoomChainID(ctx context.Context, id string, chainRoomID uint64) error

	// Predictions. CreatePredictionWithStake inserts the prediction and
	// increments the room's cumulative UP/DOWN stake in one atomic unit; it
	// reports false when a prediction for (room, user) already exists.
	CreatePredictionWithStake(ctx context.Context, item *models.Prediction) (bool, error)
	GetPrediction(ctx context.Context, roomID, user string) (*models.Prediction, error)
	ListPredictionsByRoomID(ctx context.Context, roomID string) ([]models.Prediction, error)
	ListPredictions(ctx context.Context, params ListPredictionsParams) ([]models.Prediction, error)
	CountPredictions(ctx context.Context, params ListPredictionsParams) (int64, error)

	// Settlement. ApplySettlement writes the settlement record, resolves the
	// predictions, and moves the room started->settled in one transaction.
	// It reports false without writing anything when a settlement record for
	// the room already exists.
	ApplySettlement(ctx context.Context, rec *models.SettlementRecord, resolutions []PredictionResolution) (bool, error)
	GetSettlementRecordByRoomID(ctx context.Context, roomID string) (*models.SettlementRecord, error)
	ListSettlementRecords(ctx context.Context, params ListSettlementsParams) ([]models.SettlementRecord, error)
	CountSettlementRecords(ctx context.Context, params ListSettlementsParams) (int64, error)

	// Claims. CreateClaimRecord is create-if-absent on (room, user); when the
	// row already exists it returns created=false and the existing record.
	CreateClaimRecord(ctx context.Context, item *models.ClaimRecord) (bool, *models.ClaimRecord, error)
	GetClaimRecord(ctx context.Context, roomID, user string) (*models.ClaimRecord, error)
	ListClaimRecords(ctx context.Context, params ListClaimsParams) ([]models.ClaimRecord, error)
	CountClaimRecords(ctx context.Context, params ListClaimsParams) (int64, error)

	// Price ticks
	UpsertPriceTick(ctx context.Context, item *models.PriceTick) error
	GetPriceTick(ctx context.Context, symbol string) (*models.PriceTick, error)

	// System settings
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	ListSystemSettings(ctx context.Context, params ListSystemSettingsParams) ([]models.SystemSetting, error)
}

// PredictionResolution is one prediction's settlement outcome as applied to
// the store.
type PredictionResolution struct {
	PredictionID uint64
	Outcome      models.PredictionOutcome
	Payout       decimal.Decimal
}

type ListRoomsParams struct {
	Limit   int
	Offset  int
	Status  *models.RoomStatus
	Symbol  *string
	Creator *string
	OrderBy string
	Asc     *bool
}

type ListPredictionsParams struct {
	Limit   int
	Offset  int
	RoomID  *string
	User    *string
	Outcome *models.PredictionOutcome
	OrderBy string
	Asc     *bool
}

type ListSettlementsParams struct {
	Limit   int
	Offset  int
	Since   *time.Time
	OrderBy string
	Asc     *bool
}

type ListClaimsParams struct {
	Limit  int
	Offset int
	RoomID *string
	User   *string
}

type ListSystemSettingsParams struct {
	Limit   int
	Offset  int
	Prefix  *string
	OrderBy string
	Asc     *bool
}
