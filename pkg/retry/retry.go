package retry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Config defines attempt-loop behavior.
type Config struct {
	MaxAttempts int
	Interval    time.Duration
}

// Loop runs fn up to cfg.MaxAttempts times, sleeping cfg.Interval between
// attempts. fn receives the attempt number and whether this is the final
// attempt, so callers can apply their end-of-loop transitions inside the
// last pass. fn returning done stops the loop early; fn returning an error
// aborts it — errors are structural, per-item failures belong in fn's own
// bookkeeping.
func Loop(ctx context.Context, cfg Config, logger *zap.Logger, operation string, fn func(attempt int, final bool) (done bool, err error)) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled: %w", operation, ctx.Err())
		default:
		}

		done, err := fn(attempt, attempt == cfg.MaxAttempts)
		if err != nil {
			return fmt.Errorf("%s attempt %d: %w", operation, attempt, err)
		}
		if done {
			if attempt > 1 {
				logger.Info("Operation settled after retries",
					zap.String("operation", operation),
					zap.Int("attempts", attempt))
			}
			return nil
		}
		if attempt == cfg.MaxAttempts {
			return nil
		}

		logger.Warn("Operation has unsettled work, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", cfg.MaxAttempts),
			zap.Duration("retry_in", cfg.Interval))

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled: %w", operation, ctx.Err())
		case <-time.After(cfg.Interval):
		}
	}
	return nil
}
