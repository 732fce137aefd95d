package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"updown/internal/chain"
	"updown/internal/models"
	"updown/internal/repository"
)

// PredictionLedgerService records stakes against waiting rooms. Inserting the
// prediction and bumping the room's directional total happen in one
// transaction, and the (room, user) unique index enforces the one-prediction
// rule at the database even when two requests race past the in-process lock.
type PredictionLedgerService struct {
	Repo   repository.Repository
	Chain  chain.Ledger
	Logger *zap.Logger
	Flags  *SystemSettingsService
	Locks  *RoomLocks
}

type PlacePredictionParams struct {
	RoomID    string
	User      string
	Direction models.Direction
	Stake     decimal.Decimal
}

func (s *PredictionLedgerService) PlacePrediction(ctx context.Context, params PlacePredictionParams) (*models.Prediction, error) {
	if s == nil || s.Repo == nil {
		return nil, ErrInvalidParameters
	}
	user := strings.TrimSpace(params.User)
	if user == "" {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidParameters)
	}
	if !params.Direction.Valid() {
		return nil, fmt.Errorf("%w: direction must be UP or DOWN", ErrInvalidParameters)
	}
	if !params.Stake.IsPositive() {
		return nil, fmt.Errorf("%w: stake must be positive", ErrInvalidParameters)
	}

	unlock := s.Locks.Lock(params.RoomID)
	defer unlock()

	room, err := s.Repo.GetRoomByID(ctx, params.RoomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	if EffectiveStatus(room, time.Now().UTC()) != models.StatusWaiting {
		return nil, ErrRoomNotAcceptingPredictions
	}
	if params.Stake.LessThan(room.MinStake) {
		return nil, fmt.Errorf("%w: stake %s below room minimum %s", ErrStakeTooLow, params.Stake, room.MinStake)
	}

	item := &models.Prediction{
		RoomID:    params.RoomID,
		User:      user,
		Direction: params.Direction,
		Stake:     params.Stake,
		Outcome:   models.OutcomePending,
		Payout:    decimal.Zero,
		CreatedAt: time.Now().UTC(),
	}
	created, err := s.Repo.CreatePredictionWithStake(ctx, item)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, ErrDuplicatePrediction
	}

	if s.Chain != nil && room.ChainRoomID != nil && s.Flags.IsEnabled(ctx, FeatureChainSubmit, false) {
		go s.mirrorPredict(room, item)
	}
	return item, nil
}

func (s *PredictionLedgerService) GetPrediction(ctx context.Context, roomID, user string) (*models.Prediction, error) {
	if s == nil || s.Repo == nil {
		return nil, ErrInvalidParameters
	}
	return s.Repo.GetPrediction(ctx, roomID, user)
}

func (s *PredictionLedgerService) mirrorPredict(room *models.Room, item *models.Prediction) {
	ctx, cancel := context.WithTimeout(context.Background(), chainCallTimeout)
	defer cancel()
	txHash, err := s.Chain.Predict(ctx, *room.ChainRoomID, item.Direction, item.Stake)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("chain predict failed",
				zap.String("room_id", room.ID),
				zap.String("user", item.User),
				zap.Error(err))
		}
		return
	}
	if s.Logger != nil {
		s.Logger.Info("prediction mirrored on chain",
			zap.String("room_id", room.ID),
			zap.String("user", item.User),
			zap.String("tx", txHash))
	}
}
