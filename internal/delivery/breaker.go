package delivery

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Breaker wraps a Sender with a circuit breaker so a hard-down provider
// fails fast instead of burning a full retry schedule per rule.
type Breaker struct {
	next   Sender
	cb     *gobreaker.CircuitBreaker[struct{}]
	logger *slog.Logger
}

// NewBreaker creates a circuit-breaking sender. The breaker opens after
// five consecutive failures and probes again after 30 seconds.
func NewBreaker(next Sender, name string, logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}

	settings := gobreaker.Settings{
		Name:    name,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("delivery breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &Breaker{
		next:   next,
		cb:     gobreaker.NewCircuitBreaker[struct{}](settings),
		logger: logger,
	}
}

// Send delivers through the breaker. An open breaker returns
// gobreaker.ErrOpenState immediately; the retrier treats that as an
// ordinary attempt failure.
func (b *Breaker) Send(ctx context.Context, msg Message) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.Send(ctx, msg)
	})
	return err
}
