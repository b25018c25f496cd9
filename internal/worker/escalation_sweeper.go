package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/crm-support/internal/observability"
)

const sweepLockName = "escalation-sweep"

// Sweeper marks overdue tickets.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Locker grants a named lock for ttl. ok=false means another replica holds it.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// SweeperConfig controls the escalation schedule.
type SweeperConfig struct {
	Interval time.Duration
	LockTTL  time.Duration
}

// EscalationSweeper runs the escalation sweep on a cron schedule, one replica at a time.
type EscalationSweeper struct {
	sweeper Sweeper
	locker  Locker
	metrics *observability.Metrics
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     SweeperConfig
}

// NewEscalationSweeper builds the worker and registers its schedule.
func NewEscalationSweeper(sweeper Sweeper, locker Locker, metrics *observability.Metrics, logger *zap.Logger, cfg SweeperConfig) (*EscalationSweeper, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = cfg.Interval / 2
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &EscalationSweeper{
		sweeper: sweeper,
		locker:  locker,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	if _, err := w.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.LockTTL)
		defer cancel()
		if _, err := w.RunOnce(ctx); err != nil {
			w.logger.Error("escalation sweep failed", zap.Error(err))
		}
	}); err != nil {
		return nil, err
	}
	return w, nil
}

// Start begins the schedule.
func (w *EscalationSweeper) Start() {
	w.logger.Info("escalation sweeper started", zap.Duration("interval", w.cfg.Interval))
	w.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish or ctx to expire.
func (w *EscalationSweeper) Stop(ctx context.Context) {
	done := w.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		w.logger.Warn("escalation sweeper stop timed out")
	}
}

// RunOnce performs one locked sweep. It returns 0 without sweeping when another replica holds the lock.
func (w *EscalationSweeper) RunOnce(ctx context.Context) (int, error) {
	release, ok, err := w.locker.TryLock(ctx, sweepLockName, w.cfg.LockTTL)
	if err != nil {
		return 0, err
	}
	if !ok {
		w.logger.Debug("escalation sweep skipped; lock held elsewhere")
		return 0, nil
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			w.logger.Warn("escalation lock release failed", zap.Error(err))
		}
	}()

	marked, err := w.sweeper.Sweep(ctx)
	w.metrics.RecordSweep(marked)
	if marked > 0 {
		w.logger.Info("tickets escalated", zap.Int("count", marked))
	}
	return marked, err
}
