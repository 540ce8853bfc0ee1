// Package reaper periodically deletes refresh sessions that are past expiry.
// Expired sessions are already rejected at redeem time; the reaper keeps the
// table from accumulating dead rows.
package reaper

import (
	"context"
	"time"

	"github.com/jaeha-dev/inklings/internal/logging"
	"github.com/jaeha-dev/inklings/internal/server/metrics"
	"github.com/jaeha-dev/inklings/internal/server/refreshsessions"
)

type Reaper struct {
	store    *refreshsessions.Store
	interval time.Duration
	logger   logging.Logger
	recorder metrics.AuthRecorder
}

func New(store *refreshsessions.Store, interval time.Duration, logger logging.Logger, recorder metrics.AuthRecorder) *Reaper {
	return &Reaper{store: store, interval: interval, logger: logger, recorder: recorder}
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	r.sweep(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	n, err := r.store.ReapExpired(ctx)
	if err != nil {
		r.logger.Error(ctx, "reaping expired sessions failed", "error", err.Error())
		return
	}

	r.recorder.RecordReapedSessions(n)
	if n > 0 {
		r.logger.Info(ctx, "reaped expired sessions", "count", n)
	}
}
