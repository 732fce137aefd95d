package gormrepository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"updown/internal/models"
	"updown/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- Rooms ------------------------------------------------------------------

func (s *Store) CreateRoom(ctx context.Context, item *models.Room) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetRoomByID(ctx context.Context, id string) (*models.Room, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Room
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListRooms(ctx context.Context, params repository.ListRoomsParams) ([]models.Room, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyRoomFilters(s.db.WithContext(ctx).Model(&models.Room{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 50)
	offset := normalizeOffset(params.Offset)
	var items []models.Room
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountRooms(ctx context.Context, params repository.ListRoomsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := applyRoomFilters(s.db.WithContext(ctx).Model(&models.Room{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func applyRoomFilters(query *gorm.DB, params repository.ListRoomsParams) *gorm.DB {
	if params.Status != nil && *params.Status != "" {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Symbol != nil && strings.TrimSpace(*params.Symbol) != "" {
		query = query.Where("symbol = ?", strings.TrimSpace(*params.Symbol))
	}
	if params.Creator != nil && strings.TrimSpace(*params.Creator) != "" {
		query = query.Where("creator = ?", strings.TrimSpace(*params.Creator))
	}
	return query
}

func (s *Store) ListRoomsDueForSettlement(ctx context.Context, now time.Time, limit int) ([]models.Room, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	var items []models.Room
	err := s.db.WithContext(ctx).
		Where("status = ?", models.StatusStarted).
		Where("ends_at IS NOT NULL").
		Where("ends_at <= ?", now).
		Order("ends_at asc").
		Limit(normalizeLimit(limit, 100)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) MarkRoomStarted(ctx context.Context, id string, startingPrice decimal.Decimal, startedAt, endsAt time.Time) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("id = ? AND status = ?", id, models.StatusWaiting).
		Updates(map[string]any{
			"status":         models.StatusStarted,
			"starting_price": startingPrice,
			"started_at":     startedAt,
			"ends_at":        endsAt,
			"version":        gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) MarkRoomCancelled(ctx context.Context, id string) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("id = ? AND status = ?", id, models.StatusWaiting).
		Updates(map[string]any{
			"status":  models.StatusCancelled,
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) SetRoomChainID(ctx context.Context, id string, chainRoomID uint64) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("id = ? AND chain_room_id IS NULL", id).
		UpdateColumn("chain_room_id", chainRoomID).Error
}

// --- Predictions ------------------------------------------------------------

func (s *Store) CreatePredictionWithStake(ctx context.Context, item *models.Prediction) (bool, error) {
	if s == nil || s.db == nil || item == nil {
		return false, nil
	}
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "room_id"}, {Name: "user"}},
			DoNothing: true,
		}).Create(item)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		column := "up_stake"
		if item.Direction == models.DirectionDown {
			column = "down_stake"
		}
		return tx.Model(&models.Room{}).
			Where("id = ?", item.RoomID).
			UpdateColumn(column, gorm.Expr(column+" + ?", item.Stake)).Error
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

func (s *Store) GetPrediction(ctx context.Context, roomID, user string) (*models.Prediction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Prediction
	err := s.db.WithContext(ctx).Where("room_id = ? AND \"user\" = ?", roomID, user).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListPredictionsByRoomID(ctx context.Context, roomID string) ([]models.Prediction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Prediction
	err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListPredictions(ctx context.Context, params repository.ListPredictionsParams) ([]models.Prediction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyPredictionFilters(s.db.WithContext(ctx).Model(&models.Prediction{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 50)
	offset := normalizeOffset(params.Offset)
	var items []models.Prediction
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountPredictions(ctx context.Context, params repository.ListPredictionsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := applyPredictionFilters(s.db.WithContext(ctx).Model(&models.Prediction{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func applyPredictionFilters(query *gorm.DB, params repository.ListPredictionsParams) *gorm.DB {
	if params.RoomID != nil && strings.TrimSpace(*params.RoomID) != "" {
		query = query.Where("room_id = ?", strings.TrimSpace(*params.RoomID))
	}
	if params.User != nil && strings.TrimSpace(*params.User) != "" {
		query = query.Where("\"user\" = ?", strings.TrimSpace(*params.User))
	}
	if params.Outcome != nil && *params.Outcome != "" {
		query = query.Where("outcome = ?", *params.Outcome)
	}
	return query
}

// --- Settlement -------------------------------------------------------------

func (s *Store) ApplySettlement(ctx context.Context, rec *models.SettlementRecord, resolutions []repository.PredictionResolution) (bool, error) {
	if s == nil || s.db == nil || rec == nil {
		return false, nil
	}
	applied := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "room_id"}},
			DoNothing: true,
		}).Create(rec)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Another pass already settled this room.
			return nil
		}
		for _, r := range resolutions {
			if err := tx.Model(&models.Prediction{}).
				Where("id = ? AND outcome = ?", r.PredictionID, models.OutcomePending).
				Updates(map[string]any{
					"outcome":    r.Outcome,
					"payout":     r.Payout,
					"settled_at": rec.SettledAt,
				}).Error; err != nil {
				return err
			}
		}
		room := tx.Model(&models.Room{}).
			Where("id = ? AND status = ?", rec.RoomID, models.StatusStarted).
			Updates(map[string]any{
				"status":       models.StatusSettled,
				"ending_price": rec.EndingPrice,
				"version":      gorm.Expr("version + 1"),
			})
		if room.Error != nil {
			return room.Error
		}
		if room.RowsAffected != 1 {
			return fmt.Errorf("room %s not in started state during settlement", rec.RoomID)
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (s *Store) GetSettlementRecordByRoomID(ctx context.Context, roomID string) (*models.SettlementRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.SettlementRecord
	err := s.db.WithContext(ctx).Where("room_id = ?", roomID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSettlementRecords(ctx context.Context, params repository.ListSettlementsParams) ([]models.SettlementRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.SettlementRecord{})
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("settled_at >= ?", *params.Since)
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "settled_at")
	limit := normalizeLimit(params.Limit, 50)
	offset := normalizeOffset(params.Offset)
	var items []models.SettlementRecord
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountSettlementRecords(ctx context.Context, params repository.ListSettlementsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	query := s.db.WithContext(ctx).Model(&models.SettlementRecord{})
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("settled_at >= ?", *params.Since)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// --- Claims -----------------------------------------------------------------

func (s *Store) CreateClaimRecord(ctx context.Context, item *models.ClaimRecord) (bool, *models.ClaimRecord, error) {
	if s == nil || s.db == nil || item == nil {
		return false, nil, nil
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}, {Name: "user"}},
		DoNothing: true,
	}).Create(item)
	if res.Error != nil {
		return false, nil, res.Error
	}
	if res.RowsAffected == 1 {
		return true, item, nil
	}
	existing, err := s.GetClaimRecord(ctx, item.RoomID, item.User)
	if err != nil {
		return false, nil, err
	}
	return false, existing, nil
}

func (s *Store) GetClaimRecord(ctx context.Context, roomID, user string) (*models.ClaimRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.ClaimRecord
	err := s.db.WithContext(ctx).Where("room_id = ? AND \"user\" = ?", roomID, user).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListClaimRecords(ctx context.Context, params repository.ListClaimsParams) ([]models.ClaimRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyClaimFilters(s.db.WithContext(ctx).Model(&models.ClaimRecord{}), params)
	limit := normalizeLimit(params.Limit, 50)
	offset := normalizeOffset(params.Offset)
	var items []models.ClaimRecord
	if err := query.Order("created_at desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountClaimRecords(ctx context.Context, params repository.ListClaimsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := applyClaimFilters(s.db.WithContext(ctx).Model(&models.ClaimRecord{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func applyClaimFilters(query *gorm.DB, params repository.ListClaimsParams) *gorm.DB {
	if params.RoomID != nil && strings.TrimSpace(*params.RoomID) != "" {
		query = query.Where("room_id = ?", strings.TrimSpace(*params.RoomID))
	}
	if params.User != nil && strings.TrimSpace(*params.User) != "" {
		query = query.Where("\"user\" = ?", strings.TrimSpace(*params.User))
	}
	return query
}

// --- Price ticks ------------------------------------------------------------

func (s *Store) UpsertPriceTick(ctx context.Context, item *models.PriceTick) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Symbol) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"price",
			"source",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetPriceTick(ctx context.Context, symbol string) (*models.PriceTick, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.PriceTick
	err := s.db.WithContext(ctx).Where("symbol = ?", symbol).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// --- System settings --------------------------------------------------------

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Key) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"description",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.SystemSetting{})
	if params.Prefix != nil && strings.TrimSpace(*params.Prefix) != "" {
		query = query.Where("key LIKE ?", strings.TrimSpace(*params.Prefix)+"%")
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "key")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.SystemSetting
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Helpers ----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
