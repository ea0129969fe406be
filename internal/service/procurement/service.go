// Package procurement records milk collections. Every write is checked
// against the locked bill periods, valuated by the pricing engine with the
// applicable rate configuration and farmer overrides, and persisted with its
// raw inputs so it can be recalculated later.
package procurement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	derrors "github.com/mamadbah2/dairy/internal/domain/errors"
	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/events"
	"github.com/mamadbah2/dairy/internal/pricing"
	"github.com/mamadbah2/dairy/internal/repository"
	"github.com/mamadbah2/dairy/internal/service/notify"
)

// ErrSheetsDisabled is returned by ImportFromSheet when no spreadsheet is configured.
var ErrSheetsDisabled = errors.New("spreadsheet import is not configured")

// Store is the persistence the service needs.
type Store interface {
	repository.CollectionStore
	GetFarmer(ctx context.Context, id string) (*models.Farmer, error)
}

// MasterData provides the lock state, the rate configurations and range
// validation.
type MasterData interface {
	LockRegistry(ctx context.Context) (*pricing.LockRegistry, error)
	RateConfigs(ctx context.Context) ([]models.RateConfig, error)
	NormalizeRange(from, to string) (string, string, error)
}

// SheetReader reads raw rows from a spreadsheet.
type SheetReader interface {
	ReadRange(ctx context.Context, sheetRange string) ([][]interface{}, error)
}

// Options holds the optional collaborators of the service.
type Options struct {
	Publisher   events.Publisher
	Notifier    notify.Notifier
	Sheets      SheetReader
	ImportRange string
	Logger      *zap.Logger
}

// Service exposes collection operations.
type Service struct {
	store       Store
	master      MasterData
	publisher   events.Publisher
	notifier    notify.Notifier
	sheets      SheetReader
	importRange string
	logger      *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewService wires a new procurement service instance.
func NewService(store Store, master MasterData, opts Options) *Service {
	s := &Service{
		store:       store,
		master:      master,
		publisher:   opts.Publisher,
		notifier:    opts.Notifier,
		sheets:      opts.Sheets,
		importRange: opts.ImportRange,
		logger:      opts.Logger,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.publisher == nil {
		s.publisher = events.Nop{}
	}
	if s.notifier == nil {
		s.notifier = notify.Disabled{}
	}
	return s
}

// Get returns one collection.
func (s *Service) Get(ctx context.Context, id string) (*models.Collection, error) {
	return s.store.GetCollection(ctx, id)
}

// List returns the collections matching filter.
func (s *Service) List(ctx context.Context, filter models.CollectionFilter) ([]models.Collection, error) {
	for _, d := range []*string{&filter.FromDate, &filter.ToDate} {
		if *d == "" {
			continue
		}
		norm, ok := pricing.NormalizeDate(*d)
		if !ok {
			return nil, derrors.Invalid("date", fmt.Sprintf("%q is not a valid date", *d))
		}
		*d = norm
	}
	return s.store.ListCollections(ctx, filter)
}

// Valuate prices an entry without persisting it. Locks are not consulted.
func (s *Service) Valuate(ctx context.Context, in models.CollectionInput) (models.Valuation, error) {
	in, err := normalizeEntry(in)
	if err != nil {
		return models.Valuation{}, err
	}
	snap, err := s.loadEntrySnapshot(ctx, in.FarmerID)
	if err != nil {
		return models.Valuation{}, err
	}
	return snap.valuate(in), nil
}

// Create validates, valuates and stores a new collection.
func (s *Service) Create(ctx context.Context, in models.CollectionInput) (models.Collection, error) {
	in, err := normalizeEntry(in)
	if err != nil {
		return models.Collection{}, err
	}

	snap, err := s.loadEntrySnapshot(ctx, in.FarmerID)
	if err != nil {
		return models.Collection{}, err
	}
	if err := snap.checkDate(in.Date); err != nil {
		return models.Collection{}, err
	}

	now := s.now().UTC()
	c := newCollection(in, snap.valuate(in))
	c.ID = s.newID()
	c.CreatedAt, c.UpdatedAt = now, now

	if err := s.store.SaveCollection(ctx, c); err != nil {
		return models.Collection{}, fmt.Errorf("save collection: %w", err)
	}

	s.logger.Info("collection recorded",
		zap.String("collection_id", c.ID),
		zap.String("farmer_id", c.FarmerID),
		zap.String("date", c.Date),
		zap.Float64("amount", c.Amount))
	s.publish(ctx, events.TypeCollectionValuated, c.ID, c)
	s.sendReceipt(ctx, snap.farmer(in.FarmerID), c)
	return c, nil
}

// Update merges patch into a stored collection and re-valuates the merged
// entry. Both the stored and the new date must be unlocked.
func (s *Service) Update(ctx context.Context, id string, patch models.CollectionInput) (models.Collection, error) {
	existing, err := s.store.GetCollection(ctx, id)
	if err != nil {
		return models.Collection{}, err
	}

	in, err := normalizeEntry(existing.Input().Merge(patch))
	if err != nil {
		return models.Collection{}, err
	}

	snap, err := s.loadEntrySnapshot(ctx, in.FarmerID)
	if err != nil {
		return models.Collection{}, err
	}
	if err := snap.checkDate(existing.Date); err != nil {
		return models.Collection{}, err
	}
	if err := snap.checkDate(in.Date); err != nil {
		return models.Collection{}, err
	}

	c := newCollection(in, snap.valuate(in))
	c.ID = existing.ID
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = s.now().UTC()

	if err := s.store.SaveCollection(ctx, c); err != nil {
		return models.Collection{}, fmt.Errorf("save collection: %w", err)
	}

	s.logger.Info("collection updated", zap.String("collection_id", c.ID), zap.Float64("amount", c.Amount))
	s.publish(ctx, events.TypeCollectionValuated, c.ID, c)
	return c, nil
}

// Delete removes a collection whose date is not locked.
func (s *Service) Delete(ctx context.Context, id string) error {
	existing, err := s.store.GetCollection(ctx, id)
	if err != nil {
		return err
	}

	reg, err := s.master.LockRegistry(ctx)
	if err != nil {
		return err
	}
	if err := checkDate(reg, existing.Date); err != nil {
		return err
	}

	if err := s.store.DeleteCollection(ctx, id); err != nil {
		return err
	}

	s.logger.Info("collection deleted", zap.String("collection_id", id))
	s.publish(ctx, events.TypeCollectionDeleted, id, map[string]string{
		"id":       id,
		"date":     existing.Date,
		"farmerId": existing.FarmerID,
	})
	return nil
}

func (s *Service) publish(ctx context.Context, eventType, key string, payload interface{}) {
	if err := s.publisher.Publish(ctx, eventType, key, payload); err != nil {
		s.logger.Warn("failed to publish event", zap.String("type", eventType), zap.String("key", key), zap.Error(err))
	}
}

// sendReceipt notifies the farmer. Failures never fail the write.
func (s *Service) sendReceipt(ctx context.Context, farmer *models.Farmer, c models.Collection) {
	if farmer == nil {
		return
	}
	if err := s.notifier.CollectionReceipt(ctx, *farmer, c); err != nil {
		s.logger.Warn("failed to send collection receipt",
			zap.String("collection_id", c.ID),
			zap.String("farmer_id", farmer.ID),
			zap.Error(err))
	}
}

// newCollection pairs the raw inputs of in with their valuation.
func newCollection(in models.CollectionInput, v models.Valuation) models.Collection {
	c := models.Collection{
		Date:      in.Date,
		Shift:     in.Shift,
		FarmerID:  in.FarmerID,
		QtyKg:     in.QtyKg.Value(),
		Qty:       in.Qty.Value(),
		CLR:       in.CLR.Value(),
		InputFat:  in.Fat.Value(),
		InputSnf:  in.Snf.Value(),
		Valuation: v,
	}
	if in.KgFat != nil {
		kgFat := in.KgFat.Value()
		c.InputKgFat = &kgFat
	}
	if in.KgSnf != nil {
		kgSnf := in.KgSnf.Value()
		c.InputKgSnf = &kgSnf
	}
	return c
}
