package scheduling

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper periodically marks scheduled appointments whose window ended more
// than the grace period ago as no-shows. It runs in-process next to the
// engine, since the schedules only exist in this process's memory.
type Sweeper struct {
	svc      *Service
	interval time.Duration
	grace    time.Duration
	log      *zap.Logger
	onMarked func(count int)
}

func NewSweeper(svc *Service, interval, grace time.Duration, log *zap.Logger) *Sweeper {
	return &Sweeper{svc: svc, interval: interval, grace: grace, log: log}
}

// OnMarked registers a callback invoked with the number of appointments each
// sweep flipped. Used to feed counters without coupling the engine to a
// metrics backend.
func (sw *Sweeper) OnMarked(fn func(count int)) {
	sw.onMarked = fn
}

// Run blocks until ctx is cancelled, sweeping once immediately and then on
// every tick.
func (sw *Sweeper) Run(ctx context.Context) {
	sw.sweep(ctx)

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sw.log.Info("no-show sweeper stopping")
			return
		case <-ticker.C:
			sw.sweep(ctx)
		}
	}
}

func (sw *Sweeper) sweep(ctx context.Context) {
	start := time.Now()
	cutoff := start.Add(-sw.grace)

	flipped, err := sw.svc.MarkOverdueNoShows(ctx, cutoff)
	if err != nil {
		sw.log.Error("no-show sweep failed", zap.Error(err))
		return
	}
	if flipped > 0 && sw.onMarked != nil {
		sw.onMarked(flipped)
	}
	if flipped > 0 {
		sw.log.Info("no-show sweep complete",
			zap.Int("marked", flipped),
			zap.Duration("took", time.Since(start)))
	}
}
