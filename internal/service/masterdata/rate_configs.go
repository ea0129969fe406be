package masterdata

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	derrors "github.com/mamadbah2/dairy/internal/domain/errors"
	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/pricing"
)

const rateConfigsKey = "rate-configs"

// RateConfigs returns every rate configuration in selection order. Concurrent
// callers share a single store read, which outlives any one caller's
// cancellation; a cancelled caller stops waiting and gets ctx.Err().
func (s *Service) RateConfigs(ctx context.Context) ([]models.RateConfig, error) {
	ch := s.loads.DoChan(rateConfigsKey, func() (interface{}, error) {
		return s.store.ListRateConfigs(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("load rate configs: %w", res.Err)
		}
		return res.Val.([]models.RateConfig), nil
	}
}

// SelectApplicableConfig returns the configuration that prices date/shift.
// The boolean is false when no configuration applies.
func (s *Service) SelectApplicableConfig(ctx context.Context, date string, shift models.Shift) (models.RateConfig, bool, error) {
	norm, ok := pricing.NormalizeDate(date)
	if !ok {
		return models.RateConfig{}, false, derrors.Invalid("date", "must be a valid date")
	}
	sh, ok := NormalizeShift(shift)
	if !ok {
		return models.RateConfig{}, false, derrors.Invalid("shift", "must be AM or PM")
	}

	configs, err := s.RateConfigs(ctx)
	if err != nil {
		return models.RateConfig{}, false, err
	}
	cfg, found := pricing.SelectConfig(norm, sh, configs)
	return cfg, found, nil
}

// GetRateConfig returns one configuration.
func (s *Service) GetRateConfig(ctx context.Context, id string) (*models.RateConfig, error) {
	return s.store.GetRateConfig(ctx, id)
}

// CreateRateConfig validates and stores a new configuration. It is rejected
// when its window, or the window of any of its sections, covers a locked day.
func (s *Service) CreateRateConfig(ctx context.Context, cfg models.RateConfig) (models.RateConfig, error) {
	if err := validateRateConfig(&cfg); err != nil {
		return models.RateConfig{}, err
	}

	reg, err := s.LockRegistry(ctx)
	if err != nil {
		return models.RateConfig{}, err
	}
	windows := append([]models.Window{cfg.Window}, sectionWindows(cfg.Incentives, cfg.SlabSet)...)
	if err := checkWindows(reg, windows...); err != nil {
		return models.RateConfig{}, err
	}

	now := s.now().UTC()
	cfg.ID = s.newID()
	cfg.CreatedAt, cfg.UpdatedAt = now, now
	if err := s.store.SaveRateConfig(ctx, cfg); err != nil {
		return models.RateConfig{}, fmt.Errorf("save rate config: %w", err)
	}

	s.logger.Info("rate config created", zap.String("config_id", cfg.ID), zap.String("purchase_method", string(cfg.PurchaseMethod)))
	return cfg, nil
}

// UpdateRateConfig replaces a configuration. Changes to the pricing fields
// are gated on the old and new top-level windows; changes to a section are
// gated on that section's old and new windows. Renaming is never gated.
func (s *Service) UpdateRateConfig(ctx context.Context, id string, cfg models.RateConfig) (models.RateConfig, error) {
	existing, err := s.store.GetRateConfig(ctx, id)
	if err != nil {
		return models.RateConfig{}, err
	}
	if err := validateRateConfig(&cfg); err != nil {
		return models.RateConfig{}, err
	}

	reg, err := s.LockRegistry(ctx)
	if err != nil {
		return models.RateConfig{}, err
	}
	var windows []models.Window
	if pricingChanged(*existing, cfg) {
		windows = append(windows, existing.Window, cfg.Window)
	}
	windows = append(windows, changedSectionWindows(existing.Incentives, cfg.Incentives, existing.SlabSet, cfg.SlabSet)...)
	if err := checkWindows(reg, windows...); err != nil {
		return models.RateConfig{}, err
	}

	cfg.ID = existing.ID
	cfg.CreatedAt = existing.CreatedAt
	cfg.UpdatedAt = s.now().UTC()
	if err := s.store.SaveRateConfig(ctx, cfg); err != nil {
		return models.RateConfig{}, fmt.Errorf("save rate config: %w", err)
	}

	s.logger.Info("rate config updated", zap.String("config_id", cfg.ID))
	return cfg, nil
}

// DeleteRateConfig removes a configuration unless any of its windows covers a
// locked day.
func (s *Service) DeleteRateConfig(ctx context.Context, id string) error {
	existing, err := s.store.GetRateConfig(ctx, id)
	if err != nil {
		return err
	}

	reg, err := s.LockRegistry(ctx)
	if err != nil {
		return err
	}
	windows := append([]models.Window{existing.Window}, sectionWindows(existing.Incentives, existing.SlabSet)...)
	if err := checkWindows(reg, windows...); err != nil {
		return err
	}

	if err := s.store.DeleteRateConfig(ctx, id); err != nil {
		return err
	}
	s.logger.Info("rate config deleted", zap.String("config_id", id))
	return nil
}
