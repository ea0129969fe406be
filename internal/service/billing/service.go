// Package billing aggregates valuated collections into per-farmer bill
// statements and publishes them to the statement store, the spreadsheet
// register and the farmers.
package billing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	derrors "github.com/mamadbah2/dairy/internal/domain/errors"
	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/events"
	"github.com/mamadbah2/dairy/internal/repository"
	"github.com/mamadbah2/dairy/internal/repository/sheets"
	"github.com/mamadbah2/dairy/internal/service/masterdata"
	"github.com/mamadbah2/dairy/internal/service/notify"
)

// Store is the persistence the service needs.
type Store interface {
	repository.SummaryStore
	ListCollections(ctx context.Context, filter models.CollectionFilter) ([]models.Collection, error)
	GetFarmer(ctx context.Context, id string) (*models.Farmer, error)
}

// Periods resolves the concrete bill period of a date.
type Periods interface {
	BillPeriodOf(ctx context.Context, date string) (masterdata.BillPeriodRange, error)
}

// RegisterWriter appends rows to the bill register spreadsheet.
type RegisterWriter interface {
	AppendRows(ctx context.Context, sheetRange string, rows [][]interface{}) error
}

// Options holds the optional collaborators of the service.
type Options struct {
	Publisher     events.Publisher
	Notifier      notify.Notifier
	Register      RegisterWriter
	RegisterRange string
	Logger        *zap.Logger
}

// Service exposes bill statements.
type Service struct {
	store         Store
	periods       Periods
	publisher     events.Publisher
	notifier      notify.Notifier
	register      RegisterWriter
	registerRange string
	logger        *zap.Logger

	now func() time.Time
}

// NewService wires a new billing service instance.
func NewService(store Store, periods Periods, opts Options) *Service {
	s := &Service{
		store:         store,
		periods:       periods,
		publisher:     opts.Publisher,
		notifier:      opts.Notifier,
		register:      opts.Register,
		registerRange: opts.RegisterRange,
		logger:        opts.Logger,
		now:           time.Now,
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

// Statement computes the statement of farmerID for the bill period containing
// date. It is not stored.
func (s *Service) Statement(ctx context.Context, farmerID, date string) (models.BillStatement, error) {
	if farmerID == "" {
		return models.BillStatement{}, derrors.Invalid("farmerId", "is required")
	}
	period, err := s.periods.BillPeriodOf(ctx, date)
	if err != nil {
		return models.BillStatement{}, err
	}

	collections, err := s.store.ListCollections(ctx, models.CollectionFilter{
		FromDate: period.FromDate,
		ToDate:   period.ToDate,
		FarmerID: farmerID,
	})
	if err != nil {
		return models.BillStatement{}, fmt.Errorf("list collections: %w", err)
	}

	farmer, err := s.farmer(ctx, farmerID)
	if err != nil {
		return models.BillStatement{}, err
	}
	return Summarize(period, farmerID, farmer, collections, s.now().UTC()), nil
}

// Statements returns the stored statements of a bill period.
func (s *Service) Statements(ctx context.Context, periodID string) ([]models.BillStatement, error) {
	if periodID == "" {
		return nil, derrors.Invalid("periodId", "is required")
	}
	return s.store.ListStatements(ctx, periodID)
}

// GenerateStatements builds and stores the statement of every farmer who
// delivered during the bill period containing date. When notifyFarmers is set
// each farmer with a phone number is sent their totals.
func (s *Service) GenerateStatements(ctx context.Context, date string, notifyFarmers bool) ([]models.BillStatement, error) {
	period, err := s.periods.BillPeriodOf(ctx, date)
	if err != nil {
		return nil, err
	}

	collections, err := s.store.ListCollections(ctx, models.CollectionFilter{FromDate: period.FromDate, ToDate: period.ToDate})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	byFarmer := make(map[string][]models.Collection)
	for _, c := range collections {
		byFarmer[c.FarmerID] = append(byFarmer[c.FarmerID], c)
	}
	farmerIDs := make([]string, 0, len(byFarmer))
	for id := range byFarmer {
		farmerIDs = append(farmerIDs, id)
	}
	sort.Strings(farmerIDs)

	now := s.now().UTC()
	statements := make([]models.BillStatement, 0, len(farmerIDs))
	rows := make([][]interface{}, 0, len(farmerIDs))
	for _, id := range farmerIDs {
		farmer, err := s.farmer(ctx, id)
		if err != nil {
			return nil, err
		}
		st := Summarize(period, id, farmer, byFarmer[id], now)
		if err := s.store.SaveStatement(ctx, st); err != nil {
			return nil, fmt.Errorf("save statement %s: %w", st.ID, err)
		}
		statements = append(statements, st)
		rows = append(rows, sheets.StatementRow(st))
		s.publish(ctx, st)

		if notifyFarmers && farmer != nil {
			if err := s.notifier.StatementReady(ctx, *farmer, st); err != nil {
				s.logger.Warn("failed to send statement", zap.String("statement_id", st.ID), zap.Error(err))
			}
		}
	}

	if s.register != nil && s.registerRange != "" && len(rows) > 0 {
		if err := s.register.AppendRows(ctx, s.registerRange, rows); err != nil {
			s.logger.Error("failed to append bill register", zap.String("period_id", period.ID), zap.Error(err))
		}
	}

	s.logger.Info("bill statements generated",
		zap.String("period_id", period.ID),
		zap.Bool("locked", period.Locked),
		zap.Int("farmers", len(statements)))
	return statements, nil
}

// CloseDay generates and sends statements when day is the last day of its
// bill period. It reports whether statements were generated.
func (s *Service) CloseDay(ctx context.Context, day string) (bool, error) {
	period, err := s.periods.BillPeriodOf(ctx, day)
	if err != nil {
		if derrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if period.ToDate != day {
		return false, nil
	}
	if _, err := s.GenerateStatements(ctx, day, true); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) farmer(ctx context.Context, id string) (*models.Farmer, error) {
	farmer, err := s.store.GetFarmer(ctx, id)
	if derrors.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load farmer %s: %w", id, err)
	}
	return farmer, nil
}

func (s *Service) publish(ctx context.Context, st models.BillStatement) {
	if err := s.publisher.Publish(ctx, events.TypeStatementGenerated, st.ID, st); err != nil {
		s.logger.Warn("failed to publish event", zap.String("type", events.TypeStatementGenerated), zap.Error(err))
	}
}

// Summarize totals collections into a statement. Averages are weighted by
// quantity: fat and SNF as kg solids over kg milk, rate as amount over liters.
func Summarize(period masterdata.BillPeriodRange, farmerID string, farmer *models.Farmer, collections []models.Collection, at time.Time) models.BillStatement {
	var qtyKg, liters, kgFat, kgSnf, amount, bonus decimal.Decimal
	for _, c := range collections {
		qtyKg = qtyKg.Add(decimal.NewFromFloat(c.QtyKg))
		liters = liters.Add(decimal.NewFromFloat(c.Liters))
		kgFat = kgFat.Add(decimal.NewFromFloat(c.KgFat))
		kgSnf = kgSnf.Add(decimal.NewFromFloat(c.KgSnf))
		amount = amount.Add(decimal.NewFromFloat(c.Amount))
		bonus = bonus.Add(decimal.NewFromFloat(c.BonusAmount))
	}

	st := models.BillStatement{
		ID:          models.StatementID(period.ID, farmerID),
		FarmerID:    farmerID,
		PeriodID:    period.ID,
		FromDate:    period.FromDate,
		ToDate:      period.ToDate,
		Entries:     len(collections),
		Liters:      round(liters, 2),
		KgFat:       round(kgFat, 3),
		KgSnf:       round(kgSnf, 3),
		Amount:      round(amount, 2),
		BonusAmount: round(bonus, 2),
		Locked:      period.Locked,
		GeneratedAt: at,
	}
	if farmer != nil {
		st.FarmerName = farmer.Name
	}

	hundred := decimal.NewFromInt(100)
	if qtyKg.IsPositive() {
		st.AverageFat = round(kgFat.Mul(hundred).Div(qtyKg), 2)
		st.AverageSnf = round(kgSnf.Mul(hundred).Div(qtyKg), 2)
	}
	if liters.IsPositive() {
		st.AverageRate = round(amount.Div(liters), 2)
	}
	return st
}

func round(d decimal.Decimal, places int32) float64 {
	f, _ := d.Round(places).Float64()
	return f
}
