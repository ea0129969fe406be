package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairy/internal/config"
	"github.com/mamadbah2/dairy/internal/domain/models"
)

type fakeRecalc struct {
	from, to string
}

func (f *fakeRecalc) Recalculate(_ context.Context, from, to string) (models.RecalcSummary, error) {
	f.from, f.to = from, to
	return models.RecalcSummary{}, nil
}

type fakeCloser struct {
	days []string
	err  error
}

func (f *fakeCloser) CloseDay(_ context.Context, day string) (bool, error) {
	f.days = append(f.days, day)
	return true, f.err
}

func newTestScheduler(t *testing.T, cfg config.SchedulerConfig) (*Scheduler, *fakeRecalc, *fakeCloser) {
	t.Helper()
	recalc, closer := &fakeRecalc{}, &fakeCloser{}
	s, err := NewScheduler(cfg, recalc, closer, nil)
	require.NoError(t, err)
	// 20:00 UTC on June 15 is already June 16 in Kolkata.
	s.now = func() time.Time { return time.Date(2025, 6, 15, 20, 0, 0, 0, time.UTC) }
	return s, recalc, closer
}

func TestRunRecalculation_UsesLookbackInLocalTime(t *testing.T) {
	s, recalc, _ := newTestScheduler(t, config.SchedulerConfig{RecalcLookbackDays: 3, Timezone: "Asia/Kolkata"})

	require.NoError(t, s.RunRecalculation(context.Background()))
	assert.Equal(t, "2025-06-13", recalc.from)
	assert.Equal(t, "2025-06-15", recalc.to)
}

func TestRunStatements_ClosesYesterday(t *testing.T) {
	s, _, closer := newTestScheduler(t, config.SchedulerConfig{Timezone: "Asia/Kolkata"})

	require.NoError(t, s.RunStatements(context.Background()))
	assert.Equal(t, []string{"2025-06-15"}, closer.days)

	closer.err = errors.New("store down")
	assert.Error(t, s.RunStatements(context.Background()))
}

func TestNewScheduler_RejectsUnknownTimezone(t *testing.T) {
	_, err := NewScheduler(config.SchedulerConfig{Timezone: "Mars/Olympus"}, &fakeRecalc{}, &fakeCloser{}, nil)
	assert.Error(t, err)
}

func TestStart_RejectsBadCron(t *testing.T) {
	s, _, _ := newTestScheduler(t, config.SchedulerConfig{RecalcCron: "every night"})
	assert.Error(t, s.Start())
}
