package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/timecapsule/internal/metrics"
	"github.com/pscheid92/timecapsule/internal/platform/correlation"
)

const releaseTimeout = 5 * time.Second

type sweepRunner interface {
	Run(ctx context.Context) (*SweepReport, error)
}

type leaderLock interface {
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// SweepTicker triggers the reveal sweep on a fixed interval. With a leader lock,
// only the replica holding the lease sweeps; without one, every replica sweeps,
// which is still safe because reveals are claimed by conditional update.
type SweepTicker struct {
	sweeper  sweepRunner
	lock     leaderLock
	clock    clockwork.Clock
	interval time.Duration
}

// NewSweepTicker creates a ticker. lock may be nil.
func NewSweepTicker(sweeper sweepRunner, lock leaderLock, clock clockwork.Clock, interval time.Duration) *SweepTicker {
	return &SweepTicker{
		sweeper:  sweeper,
		lock:     lock,
		clock:    clock,
		interval: interval,
	}
}

// Run starts the periodic sweep loop. It blocks until ctx is cancelled.
func (t *SweepTicker) Run(ctx context.Context) {
	ticker := t.clock.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.release()
			return
		case <-ticker.Chan():
			t.tick(ctx)
		}
	}
}

func (t *SweepTicker) tick(ctx context.Context) {
	tickCtx := correlation.WithID(ctx, correlation.NewSweepID())

	if t.lock != nil {
		leader, err := t.lock.TryAcquire(tickCtx)
		switch {
		case err != nil:
			slog.WarnContext(tickCtx, "Ticker: leader lock unavailable, sweeping anyway", "error", err)
		case !leader:
			metrics.SweepRunsTotal.WithLabelValues("skipped").Inc()
			slog.DebugContext(tickCtx, "Ticker: another instance holds the sweep lease")
			return
		}
	}

	if _, err := t.sweeper.Run(tickCtx); err != nil {
		slog.ErrorContext(tickCtx, "Ticker: sweep failed", "error", err)
	}
}

func (t *SweepTicker) release() {
	if t.lock == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := t.lock.Release(ctx); err != nil {
		slog.Warn("Ticker: failed to release sweep lease", "error", err)
	}
}
