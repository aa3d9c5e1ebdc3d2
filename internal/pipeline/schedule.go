package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/skyward-data/flightwx-cli/internal/config"
	"github.com/skyward-data/flightwx-cli/internal/plan"
)

// NextRun returns the first run instant strictly after now: the next
// occurrence of the configured minute-of-hour, stepped forward by the run
// interval until it clears now.
func NextRun(now time.Time, minute, intervalMinutes int) time.Time {
	if minute < 0 || minute > 59 {
		minute = 0
	}
	if intervalMinutes <= 0 {
		intervalMinutes = 60
	}

	next := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), minute, 0, 0, now.Location())
	for !next.After(now) {
		next = next.Add(time.Duration(intervalMinutes) * time.Minute)
	}
	return next
}

// RunLoop runs collection sessions on the configured schedule until the
// context is cancelled. A failed run is logged and the loop keeps going;
// only cancellation stops it.
func (p *Pipeline) RunLoop(ctx context.Context, pl *plan.Plan, sched config.ScheduleConfig) error {
	interval := time.Duration(sched.IntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}

	next := NextRun(time.Now(), sched.Minute, sched.IntervalMinutes)
	for {
		zap.L().Info("pipeline: next run scheduled", zap.Time("at", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if _, _, err := p.Run(ctx, pl); err != nil {
			zap.L().Error("pipeline: run failed", zap.Error(err))
		}

		next = next.Add(interval)
		// A run longer than the interval realigns instead of firing
		// immediately back to back.
		if !next.After(time.Now()) {
			next = NextRun(time.Now(), sched.Minute, sched.IntervalMinutes)
		}
	}
}
