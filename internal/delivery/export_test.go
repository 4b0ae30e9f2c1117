package delivery

import (
	"context"
	"log/slog"
	"time"
)

// NewRetrierWithSleep builds a Retrier with an injected sleep so tests
// can observe the backoff schedule without waiting it out.
func NewRetrierWithSleep(next Sender, config RetryConfig, logger *slog.Logger, sleep func(ctx context.Context, d time.Duration) error) *Retrier {
	r := NewRetrier(next, config, logger)
	r.sleep = sleep
	return r
}
