// Package scheduler re-invokes a sync pass at a fixed interval until the
// process is asked to stop.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hiksync/internal/logging"
)

// Pass is one complete, self-contained unit of work.
type Pass func(ctx context.Context)

// Run executes pass immediately and then again interval after each pass
// finishes. It returns nil once ctx is done. A pass in flight when ctx is
// cancelled is allowed to wind down on its own terms.
func Run(ctx context.Context, interval time.Duration, pass Pass, logger *slog.Logger) error {
	if interval <= 0 {
		return fmt.Errorf("scheduler: interval must be positive, got %s", interval)
	}
	if pass == nil {
		return fmt.Errorf("scheduler: pass is required")
	}
	logger = logging.NewComponentLogger(logger, "scheduler")
	logger.Info("scheduled mode started",
		logging.String(logging.FieldEventType, "scheduler_started"),
		logging.Duration("interval", interval),
	)

	for iteration := 1; ; iteration++ {
		if ctx.Err() != nil {
			break
		}
		logger.Debug("starting scheduled pass", logging.Int("iteration", iteration))
		pass(ctx)
		if ctx.Err() != nil {
			break
		}

		next := time.Now().Add(interval)
		logger.Info("next sync scheduled",
			logging.String(logging.FieldEventType, "scheduler_waiting"),
			logging.String("next_run", next.Format(time.RFC3339)),
		)
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
		timer.Stop()
	}

	logger.Info("scheduler stopped", logging.String(logging.FieldEventType, "scheduler_stopped"))
	return nil
}
