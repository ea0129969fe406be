package procurement

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	derrors "github.com/mamadbah2/dairy/internal/domain/errors"
	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/pricing"
)

// snapshot is the master data a write is valuated against. Farmers are
// looked up lazily and cached, missing ones as nil.
type snapshot struct {
	reg     *pricing.LockRegistry
	configs []models.RateConfig
	farmers map[string]*models.Farmer
}

// loadSnapshot loads the lock registry and the rate configurations concurrently.
func (s *Service) loadSnapshot(ctx context.Context) (*snapshot, error) {
	snap := &snapshot{farmers: make(map[string]*models.Farmer)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		reg, err := s.master.LockRegistry(gctx)
		snap.reg = reg
		return err
	})
	g.Go(func() error {
		configs, err := s.master.RateConfigs(gctx)
		snap.configs = configs
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

// loadEntrySnapshot also fetches the farmer of a single entry in parallel.
func (s *Service) loadEntrySnapshot(ctx context.Context, farmerID string) (*snapshot, error) {
	var (
		snap   *snapshot
		farmer *models.Farmer
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap, err = s.loadSnapshot(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		farmer, err = s.lookupFarmer(gctx, farmerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap.farmers[farmerID] = farmer
	return snap, nil
}

// lookupFarmer returns nil without error when the farmer does not exist, so
// the collection is still recorded with config rates only.
func (s *Service) lookupFarmer(ctx context.Context, id string) (*models.Farmer, error) {
	farmer, err := s.store.GetFarmer(ctx, id)
	if derrors.IsNotFound(err) {
		s.logger.Warn("farmer not found, valuating without overrides", zap.String("farmer_id", id))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load farmer %s: %w", id, err)
	}
	return farmer, nil
}

// resolveFarmer fills the cache on first use.
func (s *Service) resolveFarmer(ctx context.Context, snap *snapshot, id string) (*models.Farmer, error) {
	if farmer, ok := snap.farmers[id]; ok {
		return farmer, nil
	}
	farmer, err := s.lookupFarmer(ctx, id)
	if err != nil {
		return nil, err
	}
	snap.farmers[id] = farmer
	return farmer, nil
}

func (snap *snapshot) farmer(id string) *models.Farmer {
	return snap.farmers[id]
}

func (snap *snapshot) valuate(in models.CollectionInput) models.Valuation {
	cfg, _ := pricing.SelectConfig(in.Date, in.Shift, snap.configs)
	return pricing.Valuate(in, snap.farmer(in.FarmerID), cfg)
}

func (snap *snapshot) checkDate(date string) error {
	return checkDate(snap.reg, date)
}

func checkDate(reg *pricing.LockRegistry, date string) error {
	if reg.IsDateLocked(date) {
		return &derrors.LockedPeriodError{Date: date, PeriodID: reg.ResolvePeriod(date)}
	}
	return nil
}
