package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"updown/internal/audit"
	"updown/internal/chain"
	"updown/internal/config"
	"updown/internal/models"
	"updown/internal/repository"
)

// ReconcileService sweeps rooms whose deadline has passed and settles them.
// A room with a dead deadline but a failed price lookup is left alone and
// picked up on the next pass; nothing here marks a room failed.
type ReconcileService struct {
	Repo   repository.Repository
	Prices PriceSource
	Chain  chain.Ledger
	Audit  *audit.Client
	Logger *zap.Logger
	Flags  *SystemSettingsService
	Locks  *RoomLocks
	Config config.ReconcilerConfig

	// MaxPriceStaleness bounds how old a cached tick may be before the REST
	// feed is consulted instead.
	MaxPriceStaleness time.Duration
}

// Run executes reconciliation passes on Config.ScanInterval until ctx is done.
func (s *ReconcileService) Run(ctx context.Context) {
	if s == nil || s.Repo == nil {
		return
	}
	interval := s.Config.ScanInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.Flags.IsEnabled(ctx, FeatureReconciler, true) {
				continue
			}
			if err := s.RunOnce(ctx); err != nil && s.Logger != nil {
				s.Logger.Warn("reconcile pass failed", zap.Error(err))
			}
		}
	}
}

// RunOnce settles every room that is effectively completed right now. Errors
// on individual rooms are logged and do not stop the pass.
func (s *ReconcileService) RunOnce(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return ErrInvalidParameters
	}
	batch := s.Config.BatchSize
	if batch <= 0 {
		batch = 50
	}
	rooms, err := s.Repo.ListRoomsDueForSettlement(ctx, time.Now().UTC(), batch)
	if err != nil {
		return err
	}
	for _, room := range rooms {
		if _, err := s.settleLocked(ctx, room.ID); err != nil {
			if s.Logger != nil {
				s.Logger.Warn("room settlement deferred",
					zap.String("room_id", room.ID),
					zap.String("symbol", room.Symbol),
					zap.Error(err))
			}
		}
	}
	return nil
}

// SettleRoom settles one room on demand. Settling an already-settled room
// succeeds and returns the existing record, so retries and manual triggers
// are harmless.
func (s *ReconcileService) SettleRoom(ctx context.Context, roomID string) (*models.SettlementRecord, error) {
	if s == nil || s.Repo == nil {
		return nil, ErrInvalidParameters
	}
	return s.settleLocked(ctx, roomID)
}

func (s *ReconcileService) settleLocked(ctx context.Context, roomID string) (*models.SettlementRecord, error) {
	unlock := s.Locks.Lock(roomID)
	defer unlock()

	room, err := s.Repo.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	if room.Status == models.StatusSettled {
		return s.Repo.GetSettlementRecordByRoomID(ctx, roomID)
	}
	if EffectiveStatus(room, time.Now().UTC()) != models.StatusCompleted {
		return nil, fmt.Errorf("%w: room %s is %s", ErrNotCompleted, roomID, room.Status)
	}
	if room.StartingPrice == nil {
		return nil, fmt.Errorf("%w: room %s has no starting price", ErrInvariantViolation, roomID)
	}

	endingPrice, err := s.endingPrice(ctx, room.Symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}

	predictions, err := s.Repo.ListPredictionsByRoomID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	result, err := ComputeSettlement(predictions, *room.StartingPrice, endingPrice)
	if err != nil {
		return nil, err
	}

	payouts, err := json.Marshal(result.Predictions)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	rec := &models.SettlementRecord{
		RoomID:           roomID,
		StartingPrice:    *room.StartingPrice,
		EndingPrice:      endingPrice,
		WinningDirection: result.WinningDirection,
		TotalPool:        result.TotalPool,
		TotalWinnerStake: result.TotalWinnerStake,
		Payouts:          datatypes.JSON(payouts),
		SettledAt:        now,
		CreatedAt:        now,
	}
	resolutions := make([]repository.PredictionResolution, 0, len(result.Predictions))
	for _, p := range result.Predictions {
		resolutions = append(resolutions, repository.PredictionResolution{
			PredictionID: p.PredictionID,
			Outcome:      p.Outcome,
			Payout:       p.Payout,
		})
	}

	applied, err := s.Repo.ApplySettlement(ctx, rec, resolutions)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Another writer settled the room between our status read and the
		// insert; their record is authoritative.
		return s.Repo.GetSettlementRecordByRoomID(ctx, roomID)
	}

	if s.Logger != nil {
		s.Logger.Info("room settled",
			zap.String("room_id", roomID),
			zap.String("symbol", room.Symbol),
			zap.String("winning_direction", string(result.WinningDirection)),
			zap.String("total_pool", result.TotalPool.String()),
			zap.String("total_winner_stake", result.TotalWinnerStake.String()),
			zap.Int("predictions", len(result.Predictions)))
	}
	if s.Chain != nil && room.ChainRoomID != nil && s.Flags.IsEnabled(ctx, FeatureChainSubmit, false) {
		go s.mirrorResolve(room, endingPrice)
	}
	if s.Flags.IsEnabled(ctx, FeatureAudit, false) {
		s.Audit.Emit(ctx, "room.settled", fmt.Sprintf("room %s settled %s", roomID, result.WinningDirection), map[string]any{
			"room_id":            roomID,
			"symbol":             room.Symbol,
			"winning_direction":  result.WinningDirection,
			"total_pool":         result.TotalPool.String(),
			"total_winner_stake": result.TotalWinnerStake.String(),
		})
	}
	return rec, nil
}

// endingPrice prefers a fresh cached tick and falls back to the REST feed.
func (s *ReconcileService) endingPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	staleness := s.MaxPriceStaleness
	if staleness <= 0 {
		staleness = 30 * time.Second
	}
	tick, err := s.Repo.GetPriceTick(ctx, symbol)
	if err == nil && tick != nil && time.Since(tick.UpdatedAt) <= staleness {
		return tick.Price, nil
	}
	if s.Prices == nil {
		return decimal.Zero, fmt.Errorf("no price source for %s", symbol)
	}
	price, _, err := s.Prices.GetPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return price, nil
}

func (s *ReconcileService) mirrorResolve(room *models.Room, endingPrice decimal.Decimal) {
	ctx, cancel := context.WithTimeout(context.Background(), chainCallTimeout)
	defer cancel()
	txHash, err := s.Chain.ResolveRoom(ctx, *room.ChainRoomID, endingPrice)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("chain resolveRoom failed", zap.String("room_id", room.ID), zap.Error(err))
		}
		return
	}
	if s.Logger != nil {
		s.Logger.Info("settlement mirrored on chain", zap.String("room_id", room.ID), zap.String("tx", txHash))
	}
}
