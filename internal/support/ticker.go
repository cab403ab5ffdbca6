package support

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// RunEvery calls fn every interval until ctx is done. Durations received on
// updates reschedule the ticker; non-positive durations select fallback.
func RunEvery(ctx context.Context, name string, interval, fallback time.Duration, updates <-chan time.Duration, fn func(context.Context)) {
	current := interval
	if current <= 0 {
		current = fallback
	}

	ticker := time.NewTicker(current)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		case newInterval, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			if newInterval <= 0 {
				newInterval = fallback
			}
			if newInterval == current {
				continue
			}
			drainTicker(ticker)
			current = newInterval
			ticker.Reset(current)
			log.Info("Routine interval updated", "routine", name, "interval", current)
		}
	}
}

func drainTicker(ticker *time.Ticker) {
	for {
		select {
		case <-ticker.C:
		default:
			return
		}
	}
}
