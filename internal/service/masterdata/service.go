// Package masterdata owns bill periods, the locked-period set, rate
// configurations and farmers. Every write that could alter the valuation of a
// locked bill period is rejected before it reaches the store.
package masterdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	derrors "github.com/mamadbah2/dairy/internal/domain/errors"
	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/events"
	"github.com/mamadbah2/dairy/internal/pricing"
	"github.com/mamadbah2/dairy/internal/repository"
)

// DefaultMaxRangeDays bounds administrative date ranges when no limit is configured.
const DefaultMaxRangeDays = 400

// Store is the persistence the service needs.
type Store interface {
	repository.FarmerStore
	repository.RateConfigStore
	repository.PeriodStore
}

// Service exposes master data and lock operations.
type Service struct {
	store        Store
	publisher    events.Publisher
	logger       *zap.Logger
	maxRangeDays int

	loads  singleflight.Group
	lockMu sync.Mutex

	now   func() time.Time
	newID func() string
}

// NewService wires a new master data service instance.
func NewService(store Store, publisher events.Publisher, maxRangeDays int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	if maxRangeDays <= 0 {
		maxRangeDays = DefaultMaxRangeDays
	}
	return &Service{
		store:        store,
		publisher:    publisher,
		logger:       logger,
		maxRangeDays: maxRangeDays,
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

// =============================================================================
// LOCKS AND BILL PERIODS
// =============================================================================

// LockRegistry loads the period definitions and the locked set into a registry.
func (s *Service) LockRegistry(ctx context.Context) (*pricing.LockRegistry, error) {
	periods, err := s.store.ListBillPeriods(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bill periods: %w", err)
	}
	locked, err := s.store.LockedPeriodIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load locked periods: %w", err)
	}
	return pricing.NewLockRegistry(periods, locked), nil
}

// ResolveBillPeriod returns the bill-period id of date, or "" when no period
// definition covers it.
func (s *Service) ResolveBillPeriod(ctx context.Context, date string) (string, error) {
	if _, ok := pricing.NormalizeDate(date); !ok {
		return "", derrors.Invalid("date", "must be a valid date")
	}
	periods, err := s.store.ListBillPeriods(ctx)
	if err != nil {
		return "", fmt.Errorf("load bill periods: %w", err)
	}
	return pricing.ResolvePeriod(date, periods), nil
}

// BillPeriodRange is one concrete occurrence of a bill period.
type BillPeriodRange struct {
	ID       string `json:"id"`
	FromDate string `json:"fromDate"`
	ToDate   string `json:"toDate"`
	Locked   bool   `json:"locked"`
}

// BillPeriodOf returns the bill period containing date.
func (s *Service) BillPeriodOf(ctx context.Context, date string) (BillPeriodRange, error) {
	if _, ok := pricing.NormalizeDate(date); !ok {
		return BillPeriodRange{}, derrors.Invalid("date", "must be a valid date")
	}
	periods, err := s.store.ListBillPeriods(ctx)
	if err != nil {
		return BillPeriodRange{}, fmt.Errorf("load bill periods: %w", err)
	}
	id, from, to, ok := pricing.PeriodBounds(date, periods)
	if !ok {
		return BillPeriodRange{}, fmt.Errorf("no bill period covers %s: %w", date, derrors.ErrNotFound)
	}
	locked, err := s.IsPeriodLocked(ctx, id)
	if err != nil {
		return BillPeriodRange{}, err
	}
	return BillPeriodRange{ID: id, FromDate: from, ToDate: to, Locked: locked}, nil
}

// IsLocked reports whether the bill period containing date is locked.
func (s *Service) IsLocked(ctx context.Context, date string) (bool, error) {
	if _, ok := pricing.NormalizeDate(date); !ok {
		return false, derrors.Invalid("date", "must be a valid date")
	}
	reg, err := s.LockRegistry(ctx)
	if err != nil {
		return false, err
	}
	return reg.IsDateLocked(date), nil
}

// IsRangeLocked reports whether any day of [from, to] is locked.
func (s *Service) IsRangeLocked(ctx context.Context, from, to string) (bool, error) {
	from, to, err := s.NormalizeRange(from, to)
	if err != nil {
		return false, err
	}
	reg, err := s.LockRegistry(ctx)
	if err != nil {
		return false, err
	}
	return reg.IsRangeLocked(from, to), nil
}

// IsPeriodLocked reports whether the period id is in the locked set.
func (s *Service) IsPeriodLocked(ctx context.Context, periodID string) (bool, error) {
	locked, err := s.store.LockedPeriodIDs(ctx)
	if err != nil {
		return false, fmt.Errorf("load locked periods: %w", err)
	}
	return pricing.NewLockRegistry(nil, locked).IsPeriodIDLocked(periodID), nil
}

// LockedPeriods returns the locked set in sorted order.
func (s *Service) LockedPeriods(ctx context.Context) ([]string, error) {
	locked, err := s.store.LockedPeriodIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load locked periods: %w", err)
	}
	return pricing.NewLockRegistry(nil, locked).LockedIDs(), nil
}

// ToggleLock flips the lock of periodID and returns the full locked set.
func (s *Service) ToggleLock(ctx context.Context, periodID string) ([]string, error) {
	if periodID == "" {
		return nil, derrors.Invalid("periodId", "is required")
	}

	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	locked, err := s.store.LockedPeriodIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load locked periods: %w", err)
	}
	reg := pricing.NewLockRegistry(nil, locked)
	ids := reg.Toggle(periodID)
	if err := s.store.SetLockedPeriodIDs(ctx, ids); err != nil {
		return nil, fmt.Errorf("save locked periods: %w", err)
	}

	nowLocked := reg.IsPeriodIDLocked(periodID)
	s.logger.Info("bill period lock toggled", zap.String("period_id", periodID), zap.Bool("locked", nowLocked))
	s.publish(ctx, events.TypeLockToggled, periodID, map[string]interface{}{
		"periodId":  periodID,
		"locked":    nowLocked,
		"lockedIds": ids,
	})
	return ids, nil
}

// ListBillPeriods returns the period definitions in evaluation order.
func (s *Service) ListBillPeriods(ctx context.Context) ([]models.BillPeriod, error) {
	return s.store.ListBillPeriods(ctx)
}

// SaveBillPeriods replaces the period definitions.
func (s *Service) SaveBillPeriods(ctx context.Context, periods []models.BillPeriod) ([]models.BillPeriod, error) {
	seen := make(map[string]struct{}, len(periods))
	for i, p := range periods {
		field := fmt.Sprintf("periods[%d]", i)
		switch {
		case p.ID == "":
			return nil, derrors.Invalid(field+".id", "is required")
		case p.StartDay < 1 || p.StartDay > 31:
			return nil, derrors.Invalid(field+".startDay", "must be between 1 and 31")
		case p.EndDay < p.StartDay || p.EndDay > 31:
			return nil, derrors.Invalid(field+".endDay", "must be between startDay and 31")
		}
		if _, dup := seen[p.ID]; dup {
			return nil, derrors.Invalid(field+".id", "must be unique")
		}
		seen[p.ID] = struct{}{}
		if p.Name == "" {
			periods[i].Name = p.ID
		}
	}

	if err := s.store.SaveBillPeriods(ctx, periods); err != nil {
		return nil, fmt.Errorf("save bill periods: %w", err)
	}
	return periods, nil
}

// NormalizeRange validates an administrative date range and returns it in
// canonical form.
func (s *Service) NormalizeRange(from, to string) (string, string, error) {
	f, ok := pricing.NormalizeDate(from)
	if !ok {
		return "", "", derrors.Invalid("fromDate", "must be a valid date")
	}
	t, ok := pricing.NormalizeDate(to)
	if !ok {
		return "", "", derrors.Invalid("toDate", "must be a valid date")
	}
	days := pricing.RangeDays(f, t)
	if days == 0 {
		return "", "", fmt.Errorf("%s is after %s: %w", f, t, derrors.ErrInvalidRange)
	}
	if days > s.maxRangeDays {
		return "", "", fmt.Errorf("%d days exceeds the limit of %d: %w", days, s.maxRangeDays, derrors.ErrInvalidRange)
	}
	return f, t, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// checkWindows rejects the first window overlapping a locked period. Windows
// missing either date are not range checked.
func checkWindows(reg *pricing.LockRegistry, windows ...models.Window) error {
	for _, w := range windows {
		if !w.Bounded() {
			continue
		}
		if date, locked := reg.FirstLockedDate(w.FromDate, w.ToDate); locked {
			return &derrors.LockedPeriodError{Date: date, PeriodID: reg.ResolvePeriod(date)}
		}
	}
	return nil
}

func (s *Service) publish(ctx context.Context, eventType, key string, payload interface{}) {
	if err := s.publisher.Publish(ctx, eventType, key, payload); err != nil {
		s.logger.Warn("failed to publish event", zap.String("type", eventType), zap.String("key", key), zap.Error(err))
	}
}
