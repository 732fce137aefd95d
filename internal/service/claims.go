package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"updown/internal/audit"
	"updown/internal/chain"
	"updown/internal/models"
	"updown/internal/repository"
)

// ClaimService records payout claims against settled rooms. A claim is an
// acknowledgement, not a transfer: the payout amount comes from the settled
// prediction and repeated claims return the original record unchanged.
type ClaimService struct {
	Repo   repository.Repository
	Chain  chain.Ledger
	Audit  *audit.Client
	Logger *zap.Logger
	Flags  *SystemSettingsService
	Locks  *RoomLocks
}

// RecordClaim registers user's claim on roomID. The returned bool reports
// whether this call created the record; false means the claim already
// existed and the stored record is returned as-is.
//
// When txRef is empty and chain mirroring is on, the claim is relayed to the
// router and the transaction hash becomes the reference. A relay failure is
// logged and the claim is still recorded.
func (s *ClaimService) RecordClaim(ctx context.Context, roomID, user, txRef string) (*models.ClaimRecord, bool, error) {
	if s == nil || s.Repo == nil {
		return nil, false, ErrInvalidParameters
	}
	user = strings.TrimSpace(user)
	if user == "" {
		return nil, false, fmt.Errorf("%w: user is required", ErrInvalidParameters)
	}

	unlock := s.Locks.Lock(roomID)
	defer unlock()

	room, err := s.Repo.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, false, err
	}
	if room == nil {
		return nil, false, ErrRoomNotFound
	}
	if room.Status != models.StatusSettled {
		return nil, false, fmt.Errorf("%w: room %s is %s", ErrNotSettled, roomID, room.Status)
	}
	pred, err := s.Repo.GetPrediction(ctx, roomID, user)
	if err != nil {
		return nil, false, err
	}
	if pred == nil || pred.Outcome != models.OutcomeWin {
		return nil, false, ErrNotAWinner
	}

	if txRef == "" && s.Chain != nil && room.ChainRoomID != nil && s.Flags.IsEnabled(ctx, FeatureChainSubmit, false) {
		if hash, err := s.Chain.ClaimPayout(ctx, *room.ChainRoomID); err != nil {
			if s.Logger != nil {
				s.Logger.Warn("chain claimPayout failed",
					zap.String("room_id", roomID),
					zap.String("user", user),
					zap.Error(err))
			}
		} else {
			txRef = hash
		}
	}

	item := &models.ClaimRecord{
		RoomID:    roomID,
		User:      user,
		Amount:    pred.Payout,
		TxRef:     txRef,
		CreatedAt: time.Now().UTC(),
	}
	created, existing, err := s.Repo.CreateClaimRecord(ctx, item)
	if err != nil {
		return nil, false, err
	}
	if !created {
		return existing, false, nil
	}

	if s.Flags.IsEnabled(ctx, FeatureAudit, false) {
		s.Audit.Emit(ctx, "claim.recorded", fmt.Sprintf("user %s claimed %s from room %s", user, item.Amount, roomID), map[string]any{
			"room_id": roomID,
			"user":    user,
			"amount":  item.Amount.String(),
		})
	}
	return item, true, nil
}
