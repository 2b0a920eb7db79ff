package queue

import (
	"context"
	"log/slog"
	"time"
)

const DefaultPromoteInterval = time.Second

// RunPromoter fires due repeat entries until ctx is done.
func RunPromoter(ctx context.Context, q Queue, interval time.Duration, onPromote func(int)) {
	if interval <= 0 {
		interval = DefaultPromoteInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := q.PromoteDue(ctx, now)
			if err != nil && ctx.Err() == nil {
				slog.Error("Failed to promote repeatable jobs", "error", err)
			}
			if n > 0 {
				slog.Debug("Promoted repeatable jobs", "count", n)
				if onPromote != nil {
					onPromote(n)
				}
			}
		}
	}
}
