package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"updown/internal/chain"
	"updown/internal/models"
	"updown/internal/repository"
)

// PriceSource returns the latest known price for a symbol together with the
// time it was observed.
type PriceSource interface {
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, time.Time, error)
}

// chainCallTimeout bounds the best-effort ledger mirror calls fired from
// request paths. They run detached from the request context so a client
// disconnect does not abandon an already-committed room.
const chainCallTimeout = 15 * time.Second

// RoomLifecycleService owns room creation and the waiting -> started ->
// cancelled transitions. Chain is optional; when set and the chain_submit
// switch is on, every accepted transition is mirrored to the on-chain router
// best-effort.
type RoomLifecycleService struct {
	Repo   repository.Repository
	Chain  chain.Ledger
	Prices PriceSource
	Logger *zap.Logger
	Flags  *SystemSettingsService
	Locks  *RoomLocks

	MaxDurationMinutes int
}

type CreateRoomParams struct {
	Creator         string
	Symbol          string
	MinStake        decimal.Decimal
	DurationMinutes int
}

func (s *RoomLifecycleService) CreateRoom(ctx context.Context, params CreateRoomParams) (*models.Room, error) {
	if s == nil || s.Repo == nil {
		return nil, ErrInvalidParameters
	}
	creator := strings.TrimSpace(params.Creator)
	symbol := strings.ToUpper(strings.TrimSpace(params.Symbol))
	if creator == "" || symbol == "" {
		return nil, fmt.Errorf("%w: creator and symbol are required", ErrInvalidParameters)
	}
	if !params.MinStake.IsPositive() {
		return nil, fmt.Errorf("%w: min_stake must be positive", ErrInvalidParameters)
	}
	if params.DurationMinutes <= 0 {
		return nil, fmt.Errorf("%w: duration_minutes must be positive", ErrInvalidParameters)
	}
	if s.MaxDurationMinutes > 0 && params.DurationMinutes > s.MaxDurationMinutes {
		return nil, fmt.Errorf("%w: duration_minutes exceeds maximum %d", ErrInvalidParameters, s.MaxDurationMinutes)
	}

	room := &models.Room{
		ID:              uuid.NewString(),
		Symbol:          symbol,
		Creator:         creator,
		MinStake:        params.MinStake,
		DurationMinutes: params.DurationMinutes,
		Status:          models.StatusWaiting,
		UpStake:         decimal.Zero,
		DownStake:       decimal.Zero,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.Repo.CreateRoom(ctx, room); err != nil {
		return nil, err
	}

	if s.chainEnabled(ctx) {
		go s.mirrorCreate(room)
	}
	return room, nil
}

// StartRoom transitions a waiting room to started, fixing the starting price
// and the settlement deadline. When startingPrice is nil the current feed
// price is used. The compare-and-set on status makes the transition
// exactly-once under concurrent starts.
func (s *RoomLifecycleService) StartRoom(ctx context.Context, roomID string, startingPrice *decimal.Decimal) (*models.Room, error) {
	if s == nil || s.Repo == nil {
		return nil, ErrInvalidParameters
	}
	unlock := s.Locks.Lock(roomID)
	defer unlock()

	room, err := s.Repo.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	switch EffectiveStatus(room, time.Now().UTC()) {
	case models.StatusWaiting:
	case models.StatusStarted, models.StatusCompleted:
		return nil, ErrAlreadyStarted
	default:
		return nil, fmt.Errorf("%w: cannot start a %s room", ErrInvalidTransition, room.Status)
	}

	var price decimal.Decimal
	if startingPrice != nil {
		price = *startingPrice
	} else {
		if s.Prices == nil {
			return nil, ErrPriceUnavailable
		}
		p, _, err := s.Prices.GetPrice(ctx, room.Symbol)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
		}
		price = p
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("%w: starting price must be positive", ErrInvalidParameters)
	}

	startedAt := time.Now().UTC()
	endsAt := startedAt.Add(time.Duration(room.DurationMinutes) * time.Minute)
	ok, err := s.Repo.MarkRoomStarted(ctx, roomID, price, startedAt, endsAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyStarted
	}

	updated, err := s.Repo.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if s.chainEnabled(ctx) && updated != nil && updated.ChainRoomID != nil {
		go s.mirrorStart(updated, price)
	}
	return updated, nil
}

// CancelRoom retires a waiting room. Rooms that have started cannot be
// cancelled; stakes already placed stay in the pool until settlement.
func (s *RoomLifecycleService) CancelRoom(ctx context.Context, roomID string) (*models.Room, error) {
	if s == nil || s.Repo == nil {
		return nil, ErrInvalidParameters
	}
	unlock := s.Locks.Lock(roomID)
	defer unlock()

	room, err := s.Repo.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	if EffectiveStatus(room, time.Now().UTC()) != models.StatusWaiting {
		return nil, fmt.Errorf("%w: cannot cancel a %s room", ErrInvalidTransition, room.Status)
	}
	ok, err := s.Repo.MarkRoomCancelled(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: room %s changed state concurrently", ErrInvalidTransition, roomID)
	}
	return s.Repo.GetRoomByID(ctx, roomID)
}

func (s *RoomLifecycleService) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	if s == nil || s.Repo == nil {
		return nil, ErrInvalidParameters
	}
	room, err := s.Repo.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

func (s *RoomLifecycleService) chainEnabled(ctx context.Context) bool {
	return s.Chain != nil && s.Flags.IsEnabled(ctx, FeatureChainSubmit, false)
}

func (s *RoomLifecycleService) mirrorCreate(room *models.Room) {
	ctx, cancel := context.WithTimeout(context.Background(), chainCallTimeout)
	defer cancel()
	chainID, txHash, err := s.Chain.CreateRoom(ctx, room.Symbol, room.DurationMinutes, room.MinStake)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("chain createRoom failed", zap.String("room_id", room.ID), zap.Error(err))
		}
		return
	}
	if err := s.Repo.SetRoomChainID(ctx, room.ID, chainID); err != nil {
		if s.Logger != nil {
			s.Logger.Warn("persisting chain room id failed", zap.String("room_id", room.ID), zap.Error(err))
		}
		return
	}
	if s.Logger != nil {
		s.Logger.Info("room mirrored on chain",
			zap.String("room_id", room.ID),
			zap.Uint64("chain_room_id", chainID),
			zap.String("tx", txHash))
	}
}

func (s *RoomLifecycleService) mirrorStart(room *models.Room, price decimal.Decimal) {
	ctx, cancel := context.WithTimeout(context.Background(), chainCallTimeout)
	defer cancel()
	txHash, err := s.Chain.StartRoom(ctx, *room.ChainRoomID, price)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("chain startRoom failed", zap.String("room_id", room.ID), zap.Error(err))
		}
		return
	}
	if s.Logger != nil {
		s.Logger.Info("room start mirrored on chain", zap.String("room_id", room.ID), zap.String("tx", txHash))
	}
}
