package retry

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/etf-signals/pkg/logger"
)

// Config controls bounded retry with exponential backoff
type Config struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

// DefaultConfig is tuned for upstream data providers (rate limits, flaky networks)
func DefaultConfig() Config {
	return Config{
		Attempts: 4,
		Base:     500 * time.Millisecond,
		Max:      10 * time.Second,
	}
}

// Do runs fn up to cfg.Attempts times, doubling the delay between attempts.
// Returns the last error if all attempts fail. Respects context cancellation
// between attempts.
func Do(ctx context.Context, cfg Config, name string, fn func(ctx context.Context) error) error {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}

	delay := cfg.Base
	var lastErr error

	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == cfg.Attempts {
			break
		}

		logger.Warn("transient failure, retrying",
			zap.String("op", name),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(lastErr),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if cfg.Max > 0 && delay > cfg.Max {
			delay = cfg.Max
		}
	}

	return lastErr
}
