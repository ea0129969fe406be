package masterdata

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	derrors "github.com/mamadbah2/dairy/internal/domain/errors"
	"github.com/mamadbah2/dairy/internal/domain/models"
)

// ListFarmers returns every farmer.
func (s *Service) ListFarmers(ctx context.Context) ([]models.Farmer, error) {
	return s.store.ListFarmers(ctx)
}

// GetFarmer returns one farmer.
func (s *Service) GetFarmer(ctx context.Context, id string) (*models.Farmer, error) {
	return s.store.GetFarmer(ctx, id)
}

// CreateFarmer validates and stores a new farmer. Override sections whose
// windows cover a locked day are rejected. A supplied id must not exist yet;
// replacing a farmer goes through UpdateFarmer.
func (s *Service) CreateFarmer(ctx context.Context, farmer models.Farmer) (models.Farmer, error) {
	if err := validateFarmer(&farmer); err != nil {
		return models.Farmer{}, err
	}
	if farmer.ID != "" {
		_, err := s.store.GetFarmer(ctx, farmer.ID)
		switch {
		case err == nil:
			return models.Farmer{}, fmt.Errorf("farmer %s: %w", farmer.ID, derrors.ErrConflict)
		case !derrors.IsNotFound(err):
			return models.Farmer{}, err
		}
	}

	reg, err := s.LockRegistry(ctx)
	if err != nil {
		return models.Farmer{}, err
	}
	if err := checkWindows(reg, sectionWindows(farmer.Incentives, farmer.SlabSet)...); err != nil {
		return models.Farmer{}, err
	}

	now := s.now().UTC()
	if farmer.ID == "" {
		farmer.ID = s.newID()
	}
	farmer.CreatedAt, farmer.UpdatedAt = now, now
	if err := s.store.SaveFarmer(ctx, farmer); err != nil {
		return models.Farmer{}, fmt.Errorf("save farmer: %w", err)
	}

	s.logger.Info("farmer created", zap.String("farmer_id", farmer.ID), zap.String("code", farmer.Code))
	return farmer, nil
}

// UpdateFarmer replaces a farmer. Profile fields are never gated; each
// changed override section is gated on its old and new windows.
func (s *Service) UpdateFarmer(ctx context.Context, id string, farmer models.Farmer) (models.Farmer, error) {
	existing, err := s.store.GetFarmer(ctx, id)
	if err != nil {
		return models.Farmer{}, err
	}
	if err := validateFarmer(&farmer); err != nil {
		return models.Farmer{}, err
	}

	reg, err := s.LockRegistry(ctx)
	if err != nil {
		return models.Farmer{}, err
	}
	windows := changedSectionWindows(existing.Incentives, farmer.Incentives, existing.SlabSet, farmer.SlabSet)
	if err := checkWindows(reg, windows...); err != nil {
		return models.Farmer{}, err
	}

	farmer.ID = existing.ID
	farmer.CreatedAt = existing.CreatedAt
	farmer.UpdatedAt = s.now().UTC()
	if err := s.store.SaveFarmer(ctx, farmer); err != nil {
		return models.Farmer{}, fmt.Errorf("save farmer: %w", err)
	}

	s.logger.Info("farmer updated", zap.String("farmer_id", farmer.ID))
	return farmer, nil
}

// DeleteFarmer removes a farmer unless one of its override windows covers a
// locked day. Collections referencing the farmer are kept.
func (s *Service) DeleteFarmer(ctx context.Context, id string) error {
	existing, err := s.store.GetFarmer(ctx, id)
	if err != nil {
		return err
	}

	reg, err := s.LockRegistry(ctx)
	if err != nil {
		return err
	}
	if err := checkWindows(reg, sectionWindows(existing.Incentives, existing.SlabSet)...); err != nil {
		return err
	}

	if err := s.store.DeleteFarmer(ctx, id); err != nil {
		return err
	}
	s.logger.Info("farmer deleted", zap.String("farmer_id", id))
	return nil
}
