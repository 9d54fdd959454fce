package reaper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/talentgrid/campushire/internal/clock"
)

type sweepCall struct {
	now   time.Time
	limit int
}

type stubSweeper struct {
	calls     []sweepCall
	batches   []int
	remaining []int
	err       error
}

func (s *stubSweeper) ExpireDue(_ context.Context, now time.Time, limit int) (int, int, error) {
	s.calls = append(s.calls, sweepCall{now: now, limit: limit})
	if s.err != nil {
		return 0, 0, s.err
	}
	idx := len(s.calls) - 1
	if idx >= len(s.batches) {
		return 0, 0, nil
	}
	return s.batches[idx], s.remaining[idx], nil
}

func newTestReaper(t *testing.T, sweeper *stubSweeper, cfg Config) *Reaper {
	t.Helper()
	clk := clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	r, err := New(Params{
		Log:     zap.NewNop(),
		Clock:   clk,
		Sweeper: sweeper,
		Config:  cfg,
	})
	require.NoError(t, err)
	return r
}

func TestRunOnceDrainsBacklogInBatches(t *testing.T) {
	sweeper := &stubSweeper{
		batches:   []int{2, 2, 1},
		remaining: []int{3, 1, 0},
	}
	r := newTestReaper(t, sweeper, Config{BatchSize: 2})

	require.NoError(t, r.RunOnce(context.Background()))

	require.Len(t, sweeper.calls, 3)
	for _, call := range sweeper.calls {
		require.Equal(t, 2, call.limit)
		require.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), call.now)
	}
}

func TestRunOnceStopsWhenNothingDue(t *testing.T) {
	sweeper := &stubSweeper{
		batches:   []int{0},
		remaining: []int{0},
	}
	r := newTestReaper(t, sweeper, Config{})

	require.NoError(t, r.RunOnce(context.Background()))
	require.Len(t, sweeper.calls, 1)
	require.Equal(t, DefaultConfig().BatchSize, sweeper.calls[0].limit)
}

func TestRunOncePropagatesSweepError(t *testing.T) {
	sweepErr := errors.New("boom")
	sweeper := &stubSweeper{err: sweepErr}
	r := newTestReaper(t, sweeper, Config{})

	require.ErrorIs(t, r.RunOnce(context.Background()), sweepErr)
	require.Len(t, sweeper.calls, 1)
}

func TestRunOnceHonorsCancelledContext(t *testing.T) {
	sweeper := &stubSweeper{}
	r := newTestReaper(t, sweeper, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, r.RunOnce(ctx), context.Canceled)
	require.Empty(t, sweeper.calls)
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	require.Equal(t, time.Minute, cfg.RunInterval)
	require.Equal(t, 100, cfg.BatchSize)
	require.Equal(t, 30*time.Second, cfg.SweepTimeout)
	require.Equal(t, time.Minute, cfg.LockTTL)

	cfg = Config{RunInterval: 5 * time.Second, BatchSize: 10}.withDefaults()
	require.Equal(t, 5*time.Second, cfg.RunInterval)
	require.Equal(t, 10, cfg.BatchSize)
}
