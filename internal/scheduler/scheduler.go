package scheduler

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/config"
	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/pricing"
)

// Recalculator re-valuates stored collections.
type Recalculator interface {
	Recalculate(ctx context.Context, from, to string) (models.RecalcSummary, error)
}

// PeriodCloser issues statements once a bill period has ended.
type PeriodCloser interface {
	CloseDay(ctx context.Context, day string) (bool, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	cfg      config.SchedulerConfig
	recalc   Recalculator
	closer   PeriodCloser
	location *time.Location
	logger   *zap.Logger
	timeout  time.Duration
	now      func() time.Time
}

// NewScheduler creates a new scheduler instance. Jobs run in the configured
// time zone so "yesterday" matches the collection dates operators enter.
func NewScheduler(cfg config.SchedulerConfig, recalc Recalculator, closer PeriodCloser, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc := time.Local
	if cfg.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %s: %w", cfg.Timezone, err)
		}
	}

	return &Scheduler{
		// Standard 5-field parser: min, hour, dom, month, dow.
		cron:     cron.New(cron.WithLocation(loc)),
		cfg:      cfg,
		recalc:   recalc,
		closer:   closer,
		location: loc,
		logger:   logger,
		timeout:  10 * time.Minute,
		now:      time.Now,
	}, nil
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler",
		zap.String("recalc_cron", s.cfg.RecalcCron),
		zap.String("statement_cron", s.cfg.StatementCron),
		zap.String("timezone", s.location.String()))

	if s.cfg.RecalcCron != "" {
		if _, err := s.cron.AddFunc(s.cfg.RecalcCron, s.job("recalculate", s.RunRecalculation)); err != nil {
			return fmt.Errorf("schedule recalculation: %w", err)
		}
	}
	if s.cfg.StatementCron != "" {
		if _, err := s.cron.AddFunc(s.cfg.StatementCron, s.job("statements", s.RunStatements)); err != nil {
			return fmt.Errorf("schedule statements: %w", err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

// RunRecalculation re-valuates the lookback window ending yesterday.
func (s *Scheduler) RunRecalculation(ctx context.Context) error {
	lookback := s.cfg.RecalcLookbackDays
	if lookback < 1 {
		lookback = 1
	}
	today := s.now().In(s.location)
	from := today.AddDate(0, 0, -lookback).Format(pricing.DateLayout)
	to := today.AddDate(0, 0, -1).Format(pricing.DateLayout)

	summary, err := s.recalc.Recalculate(ctx, from, to)
	if err != nil {
		return err
	}
	if len(summary.Errors) > 0 {
		s.logger.Warn("recalculation reported row errors", zap.Int("errors", len(summary.Errors)))
	}
	return nil
}

// RunStatements issues statements when yesterday closed a bill period.
func (s *Scheduler) RunStatements(ctx context.Context) error {
	yesterday := s.now().In(s.location).AddDate(0, 0, -1).Format(pricing.DateLayout)
	generated, err := s.closer.CloseDay(ctx, yesterday)
	if err != nil {
		return err
	}
	if generated {
		s.logger.Info("bill period closed", zap.String("day", yesterday))
	}
	return nil
}

func (s *Scheduler) job(name string, run func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		start := s.now()
		if err := run(ctx); err != nil {
			s.logger.Error("scheduled job failed", zap.String("job", name), zap.Error(err))
			return
		}
		s.logger.Info("scheduled job finished", zap.String("job", name), zap.Duration("duration", time.Since(start)))
	}
}
