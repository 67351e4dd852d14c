package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweepable drops entries that expired at or before now.
type Sweepable interface {
	Sweep(now time.Time) int
}

// RunSweeper calls Sweep on every tick until ctx is cancelled. Expired reset
// tokens are already rejected on use; this only bounds memory.
func RunSweeper(ctx context.Context, target Sweepable, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := target.Sweep(now); n > 0 {
				log.Debug("expired reset tokens swept", zap.Int("removed", n))
			}
		}
	}
}
