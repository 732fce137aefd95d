package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"updown/internal/models"
	"updown/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
// The conditional writes mirror the real store's semantics (create-if-absent,
// status-guarded updates) since that is exactly what the services under test
// depend on. All methods are safe for concurrent use.
type stubRepo struct {
	mu          sync.Mutex
	rooms       map[string]*models.Room
	predictions []*models.Prediction
	settlements map[string]*models.SettlementRecord
	claims      map[string]*models.ClaimRecord
	ticks       map[string]*models.PriceTick
	settings    map[string]*models.SystemSetting
	nextPredID  uint64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		rooms:       make(map[string]*models.Room),
		settlements: make(map[string]*models.SettlementRecord),
		claims:      make(map[string]*models.ClaimRecord),
		ticks:       make(map[string]*models.PriceTick),
		settings:    make(map[string]*models.SystemSetting),
	}
}

func (s *stubRepo) CreateRoom(ctx context.Context, item *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.rooms[item.ID] = &cp
	return nil
}

func (s *stubRepo) GetRoomByID(ctx context.Context, id string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, nil
	}
	cp := *room
	return &cp, nil
}

func (s *stubRepo) ListRooms(ctx context.Context, params repository.ListRoomsParams) ([]models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		if params.Status != nil && room.Status != *params.Status {
			continue
		}
		if params.Symbol != nil && room.Symbol != *params.Symbol {
			continue
		}
		if params.Creator != nil && room.Creator != *params.Creator {
			continue
		}
		out = append(out, *room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubRepo) CountRooms(ctx context.Context, params repository.ListRoomsParams) (int64, error) {
	rooms, _ := s.ListRooms(ctx, params)
	return int64(len(rooms)), nil
}

func (s *stubRepo) ListRoomsDueForSettlement(ctx context.Context, now time.Time, limit int) ([]models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Room, 0)
	for _, room := range s.rooms {
		if room.Status != models.StatusStarted || room.EndsAt == nil {
			continue
		}
		if room.EndsAt.After(now) {
			continue
		}
		out = append(out, *room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndsAt.Before(*out[j].EndsAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubRepo) MarkRoomStarted(ctx context.Context, id string, startingPrice decimal.Decimal, startedAt, endsAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok || room.Status != models.StatusWaiting {
		return false, nil
	}
	room.Status = models.StatusStarted
	room.StartingPrice = &startingPrice
	room.StartedAt = &startedAt
	room.EndsAt = &endsAt
	room.Version++
	return true, nil
}

func (s *stubRepo) MarkRoomCancelled(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok || room.Status != models.StatusWaiting {
		return false, nil
	}
	room.Status = models.StatusCancelled
	room.Version++
	return true, nil
}

func (s *stubRepo) SetRoomChainID(ctx context.Context, id string, chainRoomID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.rooms[id]; ok {
		room.ChainRoomID = &chainRoomID
	}
	return nil
}

func (s *stubRepo) CreatePredictionWithStake(ctx context.Context, item *models.Prediction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.predictions {
		if p.RoomID == item.RoomID && p.User == item.User {
			return false, nil
		}
	}
	s.nextPredID++
	item.ID = s.nextPredID
	cp := *item
	s.predictions = append(s.predictions, &cp)
	if room, ok := s.rooms[item.RoomID]; ok {
		if item.Direction == models.DirectionUp {
			room.UpStake = room.UpStake.Add(item.Stake)
		} else {
			room.DownStake = room.DownStake.Add(item.Stake)
		}
	}
	return true, nil
}

func (s *stubRepo) GetPrediction(ctx context.Context, roomID, user string) (*models.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.predictions {
		if p.RoomID == roomID && p.User == user {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListPredictionsByRoomID(ctx context.Context, roomID string) ([]models.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Prediction, 0)
	for _, p := range s.predictions {
		if p.RoomID == roomID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubRepo) ListPredictions(ctx context.Context, params repository.ListPredictionsParams) ([]models.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Prediction, 0)
	for _, p := range s.predictions {
		if params.RoomID != nil && p.RoomID != *params.RoomID {
			continue
		}
		if params.User != nil && p.User != *params.User {
			continue
		}
		if params.Outcome != nil && p.Outcome != *params.Outcome {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubRepo) CountPredictions(ctx context.Context, params repository.ListPredictionsParams) (int64, error) {
	items, _ := s.ListPredictions(ctx, params)
	return int64(len(items)), nil
}

func (s *stubRepo) ApplySettlement(ctx context.Context, rec *models.SettlementRecord, resolutions []repository.PredictionResolution) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.settlements[rec.RoomID]; exists {
		return false, nil
	}
	cp := *rec
	s.settlements[rec.RoomID] = &cp
	for _, res := range resolutions {
		for _, p := range s.predictions {
			if p.ID == res.PredictionID && p.Outcome == models.OutcomePending {
				p.Outcome = res.Outcome
				p.Payout = res.Payout
				settledAt := rec.SettledAt
				p.SettledAt = &settledAt
			}
		}
	}
	if room, ok := s.rooms[rec.RoomID]; ok && room.Status == models.StatusStarted {
		room.Status = models.StatusSettled
		ending := rec.EndingPrice
		room.EndingPrice = &ending
		room.Version++
	}
	return true, nil
}

func (s *stubRepo) GetSettlementRecordByRoomID(ctx context.Context, roomID string) (*models.SettlementRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.settlements[roomID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *stubRepo) ListSettlementRecords(ctx context.Context, params repository.ListSettlementsParams) ([]models.SettlementRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SettlementRecord, 0, len(s.settlements))
	for _, rec := range s.settlements {
		if params.Since != nil && rec.SettledAt.Before(*params.Since) {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out, nil
}

func (s *stubRepo) CountSettlementRecords(ctx context.Context, params repository.ListSettlementsParams) (int64, error) {
	items, _ := s.ListSettlementRecords(ctx, params)
	return int64(len(items)), nil
}

func (s *stubRepo) CreateClaimRecord(ctx context.Context, item *models.ClaimRecord) (bool, *models.ClaimRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := item.RoomID + "|" + item.User
	if existing, ok := s.claims[key]; ok {
		cp := *existing
		return false, &cp, nil
	}
	cp := *item
	cp.ID = uint64(len(s.claims) + 1)
	s.claims[key] = &cp
	out := cp
	return true, &out, nil
}

func (s *stubRepo) GetClaimRecord(ctx context.Context, roomID, user string) (*models.ClaimRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.claims[roomID+"|"+user]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *stubRepo) ListClaimRecords(ctx context.Context, params repository.ListClaimsParams) ([]models.ClaimRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ClaimRecord, 0, len(s.claims))
	for _, rec := range s.claims {
		if params.RoomID != nil && rec.RoomID != *params.RoomID {
			continue
		}
		if params.User != nil && rec.User != *params.User {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubRepo) CountClaimRecords(ctx context.Context, params repository.ListClaimsParams) (int64, error) {
	items, _ := s.ListClaimRecords(ctx, params)
	return int64(len(items)), nil
}

func (s *stubRepo) UpsertPriceTick(ctx context.Context, item *models.PriceTick) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.ticks[item.Symbol] = &cp
	return nil
}

func (s *stubRepo) GetPriceTick(ctx context.Context, symbol string) (*models.PriceTick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tick, ok := s.ticks[symbol]
	if !ok {
		return nil, nil
	}
	cp := *tick
	return &cp, nil
}

func (s *stubRepo) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.settings[item.Key] = &cp
	return nil
}

func (s *stubRepo) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.settings[key]
	if !ok {
		return nil, nil
	}
	cp := *item
	return &cp, nil
}

func (s *stubRepo) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SystemSetting, 0, len(s.settings))
	for _, item := range s.settings {
		if params.Prefix != nil && !strings.HasPrefix(item.Key, *params.Prefix) {
			continue
		}
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// stubPriceSource returns a fixed price, or an error when failing is set.
type stubPriceSource struct {
	mu      sync.Mutex
	price   decimal.Decimal
	failing bool
	calls   int
}

func (s *stubPriceSource) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failing {
		return decimal.Zero, time.Time{}, context.DeadlineExceeded
	}
	return s.price, time.Now().UTC(), nil
}
