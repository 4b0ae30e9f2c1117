package delivery

import (
	"context"
	"log/slog"
	"time"
)

// RetryConfig controls the bounded retry behaviour.
type RetryConfig struct {
	MaxAttempts int
	BackoffBase time.Duration
}

// DefaultRetryConfig returns the standard 3-attempt, 1s/2s/4s schedule.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BackoffBase: time.Second,
	}
}

// Retrier wraps a Sender with bounded retry and exponential backoff.
// Success on any attempt short-circuits remaining retries; if all attempts
// fail, only the last error is surfaced, wrapped in a FailureError.
type Retrier struct {
	next   Sender
	config RetryConfig
	logger *slog.Logger

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetrier creates a retrying sender.
func NewRetrier(next Sender, config RetryConfig, logger *slog.Logger) *Retrier {
	if logger == nil {
		logger = slog.Default()
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.BackoffBase <= 0 {
		config.BackoffBase = time.Second
	}
	return &Retrier{
		next:   next,
		config: config,
		logger: logger,
		sleep:  sleepCtx,
	}
}

// Send attempts delivery, retrying transient failures with increasing
// backoff (base, 2*base, 4*base, ...). The caller sees a single outcome:
// nil on any success, or a FailureError carrying the final attempt's error.
func (r *Retrier) Send(ctx context.Context, msg Message) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			backoff := r.config.BackoffBase * time.Duration(1<<(attempt-2))
			if err := r.sleep(ctx, backoff); err != nil {
				return err
			}
		}

		err := r.next.Send(ctx, msg)
		if err == nil {
			if attempt > 1 {
				r.logger.Info("delivery succeeded after retry",
					"channel", msg.Channel,
					"attempt", attempt,
				)
			}
			return nil
		}

		lastErr = err
		r.logger.Warn("delivery attempt failed",
			"channel", msg.Channel,
			"attempt", attempt,
			"max_attempts", r.config.MaxAttempts,
			"error", err,
		)
	}

	return &FailureError{Attempts: r.config.MaxAttempts, Last: lastErr}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
