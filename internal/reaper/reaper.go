package reaper

import (
	"context"
	"errors"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/talentgrid/campushire/internal/clock"
	invitationdomain "github.com/talentgrid/campushire/internal/invitation/domain"
	obsmetrics "github.com/talentgrid/campushire/internal/observability/metrics"
	"github.com/talentgrid/campushire/internal/ratelimit"
)

const sweepLockKey = "reaper:sweep"

var ErrInvalidConfig = errors.New("reaper requires a logger, clock and sweeper")

type Params struct {
	fx.In

	Log     *zap.Logger
	Clock   clock.Clock
	Sweeper invitationdomain.ExpirySweeper
	Locker  *ratelimit.Locker `optional:"true"`
	Config  Config            `optional:"true"`
}

// Reaper drives the invitation expiry sweep on an interval. When a
// redis locker is configured only one instance sweeps at a time; the
// others skip the round.
type Reaper struct {
	log     *zap.Logger
	cfg     Config
	clock   clock.Clock
	sweeper invitationdomain.ExpirySweeper
	locker  *ratelimit.Locker
}

func New(p Params) (*Reaper, error) {
	if p.Log == nil || p.Clock == nil || p.Sweeper == nil {
		return nil, ErrInvalidConfig
	}
	return &Reaper{
		log:     p.Log.Named("reaper").With(zap.String("component", "reaper")),
		cfg:     p.Config.withDefaults(),
		clock:   p.Clock,
		sweeper: p.Sweeper,
		locker:  p.Locker,
	}, nil
}

func (r *Reaper) RunOnce(parent context.Context) error {
	metrics := obsmetrics.Reaper()

	if r.locker != nil {
		token, acquired, err := r.locker.TryLock(parent, sweepLockKey, r.cfg.LockTTL)
		if err != nil {
			metrics.IncSweepError(obsmetrics.ClassifyReaperError(err))
			return err
		}
		if !acquired {
			metrics.IncSweepSkipped()
			r.log.Debug("sweep held by another instance")
			return nil
		}
		defer func() {
			if err := r.locker.Release(parent, sweepLockKey, token); err != nil {
				r.log.Warn("sweep lock release failed", zap.Error(err))
			}
		}()
	}

	metrics.IncSweep()
	start := time.Now()
	defer func() {
		metrics.ObserveSweepDuration(time.Since(start))
	}()

	ctx, cancel := context.WithTimeout(parent, r.cfg.SweepTimeout)
	defer cancel()

	totalExpired := 0
	for {
		if err := ctx.Err(); err != nil {
			metrics.IncSweepError(obsmetrics.ClassifyReaperError(err))
			return err
		}

		expired, remaining, err := r.sweeper.ExpireDue(ctx, r.clock.Now(), r.cfg.BatchSize)
		totalExpired += expired
		if expired > 0 {
			metrics.AddExpired(expired)
		}
		if err != nil {
			metrics.IncSweepError(obsmetrics.ClassifyReaperError(err))
			return err
		}
		metrics.SetBatchRemaining(remaining)
		if remaining == 0 {
			break
		}
	}

	if totalExpired > 0 {
		r.log.Info("expired overdue invitations", zap.Int("count", totalExpired))
	}
	return nil
}

func (r *Reaper) RunForever(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := time.Now().Add(r.cfg.RunInterval)
	metrics := obsmetrics.Reaper()

	for {
		runLag := time.Since(nextRun)
		if runLag > 0 {
			metrics.ObserveRunLoopLag(runLag)
		}
		if err := r.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.log.Warn("sweep failed", zap.Error(err))
		}
		nextRun = nextRun.Add(r.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
