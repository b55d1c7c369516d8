// Package reaper purges expired links in the background so their codes
// become reusable.
package reaper

import (
	"context"
	"log/slog"
	"time"

	"shortlink/storage"
)

// DefaultInterval is how often expired links are swept.
const DefaultInterval = 30 * time.Minute

// Reaper runs one perpetual sweep loop beside request handling. A failed
// sweep is logged and retried on the next tick; it never takes the
// service down.
type Reaper struct {
	store    *storage.LinkStore
	interval time.Duration
	logger   *slog.Logger
}

func New(store *storage.LinkStore, interval time.Duration, logger *slog.Logger) *Reaper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reaper{store: store, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled, sweeping once immediately and then on
// every tick.
func (r *Reaper) Run(ctx context.Context) {
	r.logger.Info("reaper started", "interval", r.interval)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reaper stopped")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep deletes everything past its expiry and reports the count.
func (r *Reaper) Sweep(ctx context.Context) int64 {
	purged, err := r.store.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		r.logger.Error("expiry sweep failed", "error", err)
		return 0
	}
	if purged > 0 {
		r.logger.Info("purged expired links", "count", purged)
	}
	return purged
}
