// Package scheduler runs periodic maintenance jobs, currently the monthly
// quota reset.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/propsight/propsight/internal/clock"
	"github.com/propsight/propsight/internal/config"
	quotadomain "github.com/propsight/propsight/internal/quota/domain"
	"github.com/propsight/propsight/internal/ratelimit"
)

const quotaResetLockKey = "propsight:jobs:quota_reset"

var Module = fx.Module("scheduler",
	fx.Provide(New),
	fx.Invoke(Register),
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Config   config.Config
	Clock    clock.Clock
	QuotaSvc quotadomain.Service
	Locker   *ratelimit.Locker `optional:"true"`
}

type Scheduler struct {
	log      *zap.Logger
	cfg      config.SchedulerConfig
	clock    clock.Clock
	quotaSvc quotadomain.Service
	locker   *ratelimit.Locker

	stop chan struct{}
	done chan struct{}
}

func New(p Params) *Scheduler {
	cfg := p.Config.Scheduler
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Hour
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 2 * time.Minute
	}
	return &Scheduler{
		log:      p.Log.Named("scheduler"),
		cfg:      cfg,
		clock:    p.Clock,
		quotaSvc: p.QuotaSvc,
		locker:   p.Locker,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func Register(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go s.run()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(s.stop)
			select {
			case <-s.done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func (s *Scheduler) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	s.log.Info("scheduler started", zap.Duration("tick", s.cfg.TickInterval))
	for {
		select {
		case <-s.stop:
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.RunQuotaReset(context.Background())
		}
	}
}

// RunQuotaReset executes the reset job once. The reset itself only touches
// rows that are due, so running every tick is cheap outside the month
// boundary.
func (s *Scheduler) RunQuotaReset(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	if s.locker != nil {
		token, acquired, err := s.locker.TryLock(ctx, quotaResetLockKey, s.cfg.JobTimeout+time.Minute)
		if err != nil {
			s.log.Warn("quota reset lock unavailable, proceeding", zap.Error(err))
		} else if !acquired {
			s.log.Debug("quota reset held by another instance")
			return
		} else {
			defer func() {
				if err := s.locker.Release(context.Background(), quotaResetLockKey, token); err != nil {
					s.log.Warn("release quota reset lock", zap.Error(err))
				}
			}()
		}
	}

	start := s.clock.Now()
	count, err := s.quotaSvc.ResetMonthlyQuotas(ctx)
	if err != nil {
		s.log.Error("quota reset job failed",
			zap.Duration("elapsed", s.clock.Now().Sub(start)),
			zap.Error(err),
		)
		return
	}
	if count > 0 {
		s.log.Info("quota reset job finished",
			zap.Int("users_reset", count),
			zap.Duration("elapsed", s.clock.Now().Sub(start)),
		)
	}
}
