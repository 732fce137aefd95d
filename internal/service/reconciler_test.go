package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"updown/internal/config"
	"updown/internal/models"
	"updown/internal/repository"
)

func listAllSettlements() repository.ListSettlementsParams {
	return repository.ListSettlementsParams{Limit: 100}
}

func newReconciler(repo *stubRepo, locks *RoomLocks, prices PriceSource) *ReconcileService {
	return &ReconcileService{
		Repo:              repo,
		Prices:            prices,
		Logger:            zap.NewNop(),
		Flags:             &SystemSettingsService{Repo: repo},
		Locks:             locks,
		Config:            config.ReconcilerConfig{ScanInterval: time.Second, BatchSize: 50},
		MaxPriceStaleness: 30 * time.Second,
	}
}

// forceDeadline rewinds a started room's end time so it is due now.
func forceDeadline(repo *stubRepo, roomID string, endsAt time.Time) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if room, ok := repo.rooms[roomID]; ok {
		room.EndsAt = &endsAt
	}
}

// dueRoom builds a started room with predictions on both sides whose deadline
// has already passed.
func dueRoom(t *testing.T, repo *stubRepo, locks *RoomLocks) *models.Room {
	t.Helper()
	lifecycle := newLifecycle(repo, nil)
	lifecycle.Locks = locks
	room := mustCreateRoom(t, lifecycle)
	ledger := newLedger(repo, locks)
	ctx := context.Background()
	if _, err := ledger.PlacePrediction(ctx, PlacePredictionParams{
		RoomID: room.ID, User: "alice", Direction: models.DirectionUp, Stake: decimal.RequireFromString("100"),
	}); err != nil {
		t.Fatalf("place up: %v", err)
	}
	if _, err := ledger.PlacePrediction(ctx, PlacePredictionParams{
		RoomID: room.ID, User: "bob", Direction: models.DirectionDown, Stake: decimal.RequireFromString("50"),
	}); err != nil {
		t.Fatalf("place down: %v", err)
	}
	price := decimal.RequireFromString("50000")
	if _, err := lifecycle.StartRoom(ctx, room.ID, &price); err != nil {
		t.Fatalf("StartRoom: %v", err)
	}
	forceDeadline(repo, room.ID, time.Now().UTC().Add(-time.Minute))
	return room
}

func TestReconcilerSettlesDueRoom(t *testing.T) {
	repo := newStubRepo()
	locks := NewRoomLocks()
	room := dueRoom(t, repo, locks)
	svc := newReconciler(repo, locks, &stubPriceSource{price: decimal.RequireFromString("51000")})

	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	got, _ := repo.GetRoomByID(context.Background(), room.ID)
	if got.Status != models.StatusSettled {
		t.Fatalf("status = %s, want settled", got.Status)
	}
	if got.EndingPrice == nil || !got.EndingPrice.Equal(decimal.RequireFromString("51000")) {
		t.Fatalf("ending price = %v, want 51000", got.EndingPrice)
	}

	rec, _ := repo.GetSettlementRecordByRoomID(context.Background(), room.ID)
	if rec == nil {
		t.Fatal("settlement record missing")
	}
	if rec.WinningDirection != models.DirectionUp {
		t.Fatalf("winning direction = %s, want UP", rec.WinningDirection)
	}
	if !rec.TotalPool.Equal(decimal.RequireFromString("150")) {
		t.Fatalf("total pool = %s, want 150", rec.TotalPool)
	}
	var payouts []PredictionSettlement
	if err := json.Unmarshal(rec.Payouts, &payouts); err != nil {
		t.Fatalf("payouts snapshot unparsable: %v", err)
	}
	if len(payouts) != 2 {
		t.Fatalf("payouts = %d entries, want 2", len(payouts))
	}

	alice, _ := repo.GetPrediction(context.Background(), room.ID, "alice")
	if alice.Outcome != models.OutcomeWin || !alice.Payout.Equal(decimal.RequireFromString("150")) {
		t.Fatalf("alice = %s/%s, want WIN with the full pool", alice.Outcome, alice.Payout)
	}
	bob, _ := repo.GetPrediction(context.Background(), room.ID, "bob")
	if bob.Outcome != models.OutcomeLoss || !bob.Payout.IsZero() {
		t.Fatalf("bob = %s/%s, want LOSS with zero", bob.Outcome, bob.Payout)
	}
}

func TestSettleRoomIdempotent(t *testing.T) {
	repo := newStubRepo()
	locks := NewRoomLocks()
	room := dueRoom(t, repo, locks)
	svc := newReconciler(repo, locks, &stubPriceSource{price: decimal.RequireFromString("51000")})

	first, err := svc.SettleRoom(context.Background(), room.ID)
	if err != nil {
		t.Fatalf("first SettleRoom: %v", err)
	}
	second, err := svc.SettleRoom(context.Background(), room.ID)
	if err != nil {
		t.Fatalf("second SettleRoom: %v", err)
	}
	if second == nil || second.RoomID != first.RoomID {
		t.Fatalf("second settle returned %+v, want the original record", second)
	}
	if !second.EndingPrice.Equal(first.EndingPrice) {
		t.Fatalf("ending price changed across settles: %s vs %s", first.EndingPrice, second.EndingPrice)
	}
	count, _ := repo.CountSettlementRecords(context.Background(), listAllSettlements())
	if count != 1 {
		t.Fatalf("settlement records = %d, want 1", count)
	}
}

func TestSettleRoomConcurrentSingleRecord(t *testing.T) {
	repo := newStubRepo()
	locks := NewRoomLocks()
	room := dueRoom(t, repo, locks)
	svc := newReconciler(repo, locks, &stubPriceSource{price: decimal.RequireFromString("51000")})

	const workers = 12
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := svc.SettleRoom(context.Background(), room.ID)
			if err != nil {
				t.Errorf("SettleRoom: %v", err)
				return
			}
			if rec == nil {
				t.Error("SettleRoom returned nil record")
			}
		}()
	}
	wg.Wait()

	count, _ := repo.CountSettlementRecords(context.Background(), listAllSettlements())
	if count != 1 {
		t.Fatalf("settlement records = %d, want 1", count)
	}
	got, _ := repo.GetRoomByID(context.Background(), room.ID)
	if got.Status != models.StatusSettled {
		t.Fatalf("status = %s, want settled", got.Status)
	}
}

func TestSettleRoomPriceFailureLeavesRoomRetryable(t *testing.T) {
	repo := newStubRepo()
	locks := NewRoomLocks()
	room := dueRoom(t, repo, locks)
	feed := &stubPriceSource{failing: true}
	svc := newReconciler(repo, locks, feed)

	if _, err := svc.SettleRoom(context.Background(), room.ID); !errors.Is(err, ErrPriceUnavailable) {
		t.Fatalf("err = %v, want ErrPriceUnavailable", err)
	}
	got, _ := repo.GetRoomByID(context.Background(), room.ID)
	if got.Status != models.StatusStarted {
		t.Fatalf("status = %s, room must stay stored-started for the next pass", got.Status)
	}

	// Feed recovers, the next pass settles.
	feed.mu.Lock()
	feed.failing = false
	feed.price = decimal.RequireFromString("49000")
	feed.mu.Unlock()
	if _, err := svc.SettleRoom(context.Background(), room.ID); err != nil {
		t.Fatalf("SettleRoom after recovery: %v", err)
	}
	got, _ = repo.GetRoomByID(context.Background(), room.ID)
	if got.Status != models.StatusSettled {
		t.Fatalf("status = %s, want settled after recovery", got.Status)
	}
}

func TestSettleRoomNotCompleted(t *testing.T) {
	repo := newStubRepo()
	locks := NewRoomLocks()
	lifecycle := newLifecycle(repo, nil)
	lifecycle.Locks = locks
	room := mustCreateRoom(t, lifecycle)
	svc := newReconciler(repo, locks, &stubPriceSource{price: decimal.RequireFromString("1")})

	// Waiting room.
	if _, err := svc.SettleRoom(context.Background(), room.ID); !errors.Is(err, ErrNotCompleted) {
		t.Fatalf("waiting: err = %v, want ErrNotCompleted", err)
	}
	// Started with a live deadline.
	price := decimal.RequireFromString("50000")
	if _, err := lifecycle.StartRoom(context.Background(), room.ID, &price); err != nil {
		t.Fatalf("StartRoom: %v", err)
	}
	if _, err := svc.SettleRoom(context.Background(), room.ID); !errors.Is(err, ErrNotCompleted) {
		t.Fatalf("running: err = %v, want ErrNotCompleted", err)
	}
}

func TestSettleRoomPrefersFreshTick(t *testing.T) {
	repo := newStubRepo()
	locks := NewRoomLocks()
	room := dueRoom(t, repo, locks)
	_ = repo.UpsertPriceTick(context.Background(), &models.PriceTick{
		Symbol:    room.Symbol,
		Price:     decimal.RequireFromString("52000"),
		Source:    "ws",
		UpdatedAt: time.Now().UTC(),
	})
	// REST feed is down; only the cached tick can serve.
	svc := newReconciler(repo, locks, &stubPriceSource{failing: true})

	rec, err := svc.SettleRoom(context.Background(), room.ID)
	if err != nil {
		t.Fatalf("SettleRoom: %v", err)
	}
	if !rec.EndingPrice.Equal(decimal.RequireFromString("52000")) {
		t.Fatalf("ending price = %s, want the cached tick 52000", rec.EndingPrice)
	}
}

func TestSettleRoomStaleTickFallsBackToFeed(t *testing.T) {
	repo := newStubRepo()
	locks := NewRoomLocks()
	room := dueRoom(t, repo, locks)
	_ = repo.UpsertPriceTick(context.Background(), &models.PriceTick{
		Symbol:    room.Symbol,
		Price:     decimal.RequireFromString("52000"),
		Source:    "ws",
		UpdatedAt: time.Now().UTC().Add(-time.Hour),
	})
	svc := newReconciler(repo, locks, &stubPriceSource{price: decimal.RequireFromString("48000")})

	rec, err := svc.SettleRoom(context.Background(), room.ID)
	if err != nil {
		t.Fatalf("SettleRoom: %v", err)
	}
	if !rec.EndingPrice.Equal(decimal.RequireFromString("48000")) {
		t.Fatalf("ending price = %s, want the live feed 48000", rec.EndingPrice)
	}
}

func TestReconcilerNoWinnersPoolLocked(t *testing.T) {
	repo := newStubRepo()
	locks := NewRoomLocks()
	lifecycle := newLifecycle(repo, nil)
	lifecycle.Locks = locks
	room := mustCreateRoom(t, lifecycle)
	ledger := newLedger(repo, locks)
	ctx := context.Background()
	for _, user := range []string{"alice", "bob"} {
		if _, err := ledger.PlacePrediction(ctx, PlacePredictionParams{
			RoomID: room.ID, User: user, Direction: models.DirectionUp, Stake: decimal.RequireFromString("30"),
		}); err != nil {
			t.Fatalf("place %s: %v", user, err)
		}
	}
	price := decimal.RequireFromString("50000")
	if _, err := lifecycle.StartRoom(ctx, room.ID, &price); err != nil {
		t.Fatalf("StartRoom: %v", err)
	}
	forceDeadline(repo, room.ID, time.Now().UTC().Add(-time.Minute))
	svc := newReconciler(repo, locks, &stubPriceSource{price: decimal.RequireFromString("49000")})

	rec, err := svc.SettleRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("SettleRoom: %v", err)
	}
	if !rec.TotalWinnerStake.IsZero() {
		t.Fatalf("total winner stake = %s, want 0", rec.TotalWinnerStake)
	}
	for _, user := range []string{"alice", "bob"} {
		p, _ := repo.GetPrediction(ctx, room.ID, user)
		if p.Outcome != models.OutcomeLoss || !p.Payout.IsZero() {
			t.Fatalf("%s = %s/%s, want LOSS with zero", user, p.Outcome, p.Payout)
		}
	}
}

func TestRunOnceSettlesBatch(t *testing.T) {
	repo := newStubRepo()
	locks := NewRoomLocks()
	roomA := dueRoom(t, repo, locks)
	roomB := dueRoom(t, repo, locks)
	svc := newReconciler(repo, locks, &stubPriceSource{price: decimal.RequireFromString("51000")})

	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	for _, id := range []string{roomA.ID, roomB.ID} {
		got, _ := repo.GetRoomByID(context.Background(), id)
		if got.Status != models.StatusSettled {
			t.Fatalf("room %s status = %s, want settled", id, got.Status)
		}
	}
}
