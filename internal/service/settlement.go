package service

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"updown/internal/models"
)

// payoutPlaces is the fixed scale payouts are truncated to. Truncating (never
// rounding up) is what keeps the sum of payouts at or below the pool; the
// sub-cent remainder stays in the pool.
const payoutPlaces = 8

// PredictionSettlement is one prediction's share of a settlement, as embedded
// in the settlement record's payout snapshot.
type PredictionSettlement struct {
	PredictionID uint64                   `json:"prediction_id"`
	User         string                   `json:"user"`
	Direction    models.Direction         `json:"direction"`
	Stake        decimal.Decimal          `json:"stake"`
	Outcome      models.PredictionOutcome `json:"outcome"`
	Payout       decimal.Decimal          `json:"payout"`
}

type SettlementResult struct {
	WinningDirection models.Direction
	TotalPool        decimal.Decimal
	TotalWinnerStake decimal.Decimal
	// Remainder is the undistributed part of the pool: truncation dust, or
	// the whole pool when nobody predicted the winning side.
	Remainder   decimal.Decimal
	Predictions []PredictionSettlement
}

// ComputeSettlement resolves a completed room's predictions against the
// starting and ending price. It is pure and deterministic: predictions are
// processed in ID order and the same inputs always yield the same payouts,
// which is what makes settlement safely recomputable.
//
// The ending price winning UP requires strictly greater; an unchanged price
// resolves DOWN (documented convention). When no stake sits on the winning
// side every prediction loses and the pool stays unclaimed.
func ComputeSettlement(predictions []models.Prediction, startingPrice, endingPrice decimal.Decimal) (SettlementResult, error) {
	if !startingPrice.IsPositive() || !endingPrice.IsPositive() {
		return SettlementResult{}, fmt.Errorf("%w: prices must be positive", ErrInvalidParameters)
	}

	winning := models.DirectionDown
	if endingPrice.GreaterThan(startingPrice) {
		winning = models.DirectionUp
	}

	ordered := make([]models.Prediction, len(predictions))
	copy(ordered, predictions)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	totalPool := decimal.Zero
	winnerStake := decimal.Zero
	for _, p := range ordered {
		totalPool = totalPool.Add(p.Stake)
		if p.Direction == winning {
			winnerStake = winnerStake.Add(p.Stake)
		}
	}

	result := SettlementResult{
		WinningDirection: winning,
		TotalPool:        totalPool,
		TotalWinnerStake: winnerStake,
		Predictions:      make([]PredictionSettlement, 0, len(ordered)),
	}

	if winnerStake.IsZero() {
		// Nobody on the winning side: everyone loses, nothing is paid out.
		for _, p := range ordered {
			result.Predictions = append(result.Predictions, PredictionSettlement{
				PredictionID: p.ID,
				User:         p.User,
				Direction:    p.Direction,
				Stake:        p.Stake,
				Outcome:      models.OutcomeLoss,
				Payout:       decimal.Zero,
			})
		}
		result.Remainder = totalPool
		return result, nil
	}

	paid := decimal.Zero
	for _, p := range ordered {
		out := PredictionSettlement{
			PredictionID: p.ID,
			User:         p.User,
			Direction:    p.Direction,
			Stake:        p.Stake,
			Outcome:      models.OutcomeLoss,
			Payout:       decimal.Zero,
		}
		if p.Direction == winning {
			out.Outcome = models.OutcomeWin
			out.Payout = p.Stake.Mul(totalPool).Div(winnerStake).Truncate(payoutPlaces)
			paid = paid.Add(out.Payout)
		}
		result.Predictions = append(result.Predictions, out)
	}

	if paid.GreaterThan(totalPool) {
		return SettlementResult{}, fmt.Errorf("%w: payouts %s exceed pool %s", ErrInvariantViolation, paid, totalPool)
	}
	result.Remainder = totalPool.Sub(paid)
	return result, nil
}
