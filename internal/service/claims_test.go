package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"updown/internal/models"
)

// settledRoom builds a fully settled room: alice won UP, bob lost DOWN.
func settledRoom(t *testing.T, repo *stubRepo, locks *RoomLocks) *models.Room {
	t.Helper()
	room := dueRoom(t, repo, locks)
	reconciler := newReconciler(repo, locks, &stubPriceSource{price: decimal.RequireFromString("51000")})
	if _, err := reconciler.SettleRoom(context.Background(), room.ID); err != nil {
		t.Fatalf("SettleRoom: %v", err)
	}
	return room
}

func newClaims(repo *stubRepo, locks *RoomLocks) *ClaimService {
	return &ClaimService{
		Repo:   repo,
		Logger: zap.NewNop(),
		Flags:  &SystemSettingsService{Repo: repo},
		Locks:  locks,
	}
}

func TestRecordClaimForWinner(t *testing.T) {
	repo := newStubRepo()
	locks := NewRoomLocks()
	room := settledRoom(t, repo, locks)
	svc := newClaims(repo, locks)

	rec, created, err := svc.RecordClaim(context.Background(), room.ID, "alice", "0xabc")
	if err != nil {
		t.Fatalf("RecordClaim: %v", err)
	}
	if !created {
		t.Fatal("created = false, want a new record")
	}
	if !rec.Amount.Equal(decimal.RequireFromString("150")) {
		t.Fatalf("amount = %s, want alice's payout 150", rec.Amount)
	}
	if rec.TxRef != "0xabc" {
		t.Fatalf("tx_ref = %s, want 0xabc", rec.TxRef)
	}
}

func TestRecordClaimIdempotent(t *testing.T) {
	repo := newStubRepo()
	locks := NewRoomLocks()
	room := settledRoom(t, repo, locks)
	svc := newClaims(repo, locks)

	first, created, err := svc.RecordClaim(context.Background(), room.ID, "alice", "0xabc")
	if err != nil || !created {
		t.Fatalf("first RecordClaim: created=%v err=%v", created, err)
	}
	second, created, err := svc.RecordClaim(context.Background(), room.ID, "alice", "0xdef")
	if err != nil {
		t.Fatalf("second RecordClaim: %v", err)
	}
	if created {
		t.Fatal("created = true on repeat, want the existing record")
	}
	if second.TxRef != first.TxRef {
		t.Fatalf("tx_ref changed on repeat: %s vs %s", first.TxRef, second.TxRef)
	}
	if !second.Amount.Equal(first.Amount) {
		t.Fatalf("amount changed on repeat: %s vs %s", first.Amount, second.Amount)
	}
}

func TestRecordClaimNonWinnerRejected(t *testing.T) {
	repo := newStubRepo()
	locks := NewRoomLocks()
	room := settledRoom(t, repo, locks)
	svc := newClaims(repo, locks)

	// bob lost.
	if _, _, err := svc.RecordClaim(context.Background(), room.ID, "bob", ""); !errors.Is(err, ErrNotAWinner) {
		t.Fatalf("loser: err = %v, want ErrNotAWinner", err)
	}
	// carol never predicted.
	if _, _, err := svc.RecordClaim(context.Background(), room.ID, "carol", ""); !errors.Is(err, ErrNotAWinner) {
		t.Fatalf("stranger: err = %v, want ErrNotAWinner", err)
	}
}

func TestRecordClaimBeforeSettlementRejected(t *testing.T) {
	repo := newStubRepo()
	locks := NewRoomLocks()
	room := dueRoom(t, repo, locks)
	svc := newClaims(repo, locks)

	if _, _, err := svc.RecordClaim(context.Background(), room.ID, "alice", ""); !errors.Is(err, ErrNotSettled) {
		t.Fatalf("err = %v, want ErrNotSettled", err)
	}
}

func TestRecordClaimUnknownRoom(t *testing.T) {
	svc := newClaims(newStubRepo(), NewRoomLocks())
	if _, _, err := svc.RecordClaim(context.Background(), "missing", "alice", ""); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("err = %v, want ErrRoomNotFound", err)
	}
}

func TestRecordClaimConcurrentSingleRecord(t *testing.T) {
	repo := newStubRepo()
	locks := NewRoomLocks()
	room := settledRoom(t, repo, locks)
	svc := newClaims(repo, locks)

	const workers = 12
	var wg sync.WaitGroup
	createdCount := make([]bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, created, err := svc.RecordClaim(context.Background(), room.ID, "alice", "0xabc")
			if err != nil {
				t.Errorf("RecordClaim: %v", err)
				return
			}
			createdCount[i] = created
		}(i)
	}
	wg.Wait()

	created := 0
	for _, c := range createdCount {
		if c {
			created++
		}
	}
	if created != 1 {
		t.Fatalf("created = %d, want exactly 1", created)
	}
}
