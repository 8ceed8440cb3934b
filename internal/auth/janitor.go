package auth

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Purger deletes sessions that expired before cutoff.
type Purger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// RunJanitor purges sessions past their refresh window every interval until
// ctx is done.
func RunJanitor(ctx context.Context, p Purger, grace, interval time.Duration, logger *zap.SugaredLogger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := p.PurgeExpired(ctx, now.Add(-grace))
			if err != nil {
				logger.Warnw("purge sessions failed", "err", err)
				continue
			}
			if n > 0 {
				logger.Infow("purged expired sessions", "count", n)
			}
		}
	}
}
