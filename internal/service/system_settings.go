package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"updown/internal/models"
	"updown/internal/repository"
)

// Feature switch keys stored in system_settings. Each value is a JSON object
// of the form {"enabled": bool}.
const (
	FeatureReconciler  = "feature.reconciler"
	FeaturePriceStream = "feature.price_stream"
	FeatureChainSubmit = "feature.chain_submit"
	FeatureAudit       = "feature.audit"
)

type featureSwitch struct {
	Enabled bool `json:"enabled"`
}

// SystemSettingsService reads and writes runtime switches so operators can
// pause background work without a redeploy.
type SystemSettingsService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

// EnsureDefaultSwitches seeds the feature switches that are missing. Existing
// values are left untouched.
func (s *SystemSettingsService) EnsureDefaultSwitches(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	defaults := []struct {
		key         string
		enabled     bool
		description string
	}{
		{FeatureReconciler, true, "background settlement reconciler"},
		{FeaturePriceStream, true, "websocket price tick ingestion"},
		{FeatureChainSubmit, false, "mirror room operations to the on-chain router"},
		{FeatureAudit, false, "forward audit events to the ops platform"},
	}
	for _, d := range defaults {
		existing, err := s.Repo.GetSystemSettingByKey(ctx, d.key)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		raw, err := json.Marshal(featureSwitch{Enabled: d.enabled})
		if err != nil {
			return err
		}
		item := &models.SystemSetting{
			Key:         d.key,
			Value:       raw,
			Description: d.description,
			UpdatedAt:   time.Now().UTC(),
		}
		if err := s.Repo.UpsertSystemSetting(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// IsEnabled reports whether the switch is on, returning fallback when the
// setting is missing or unreadable. Lookup failures are logged, not returned:
// a broken settings table must not take the callers down with it.
func (s *SystemSettingsService) IsEnabled(ctx context.Context, key string, fallback bool) bool {
	if s == nil || s.Repo == nil {
		return fallback
	}
	item, err := s.Repo.GetSystemSettingByKey(ctx, key)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("system setting lookup failed", zap.String("key", key), zap.Error(err))
		}
		return fallback
	}
	if item == nil {
		return fallback
	}
	var sw featureSwitch
	if err := json.Unmarshal(item.Value, &sw); err != nil {
		if s.Logger != nil {
			s.Logger.Warn("system setting malformed", zap.String("key", key), zap.Error(err))
		}
		return fallback
	}
	return sw.Enabled
}

func (s *SystemSettingsService) SetEnabled(ctx context.Context, key string, enabled bool, description string) error {
	if s == nil || s.Repo == nil {
		return ErrInvalidParameters
	}
	raw, err := json.Marshal(featureSwitch{Enabled: enabled})
	if err != nil {
		return err
	}
	item := &models.SystemSetting{
		Key:         key,
		Value:       raw,
		Description: description,
		UpdatedAt:   time.Now().UTC(),
	}
	return s.Repo.UpsertSystemSetting(ctx, item)
}
