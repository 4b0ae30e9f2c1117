package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SweeperConfig controls the recovery sweep for stuck pending entries.
type SweeperConfig struct {
	PollInterval time.Duration
	GracePeriod  time.Duration
	BatchSize    int
}

// DefaultSweeperConfig returns sensible defaults.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		PollInterval: 30 * time.Second,
		GracePeriod:  2 * time.Minute,
		BatchSize:    50,
	}
}

// Sweeper re-dispatches event log entries left pending by a crash between
// append and dispatch. Re-dispatch is safe because the pending→final
// transition is a compare-and-set and automation only runs for the winner,
// so no duplicate automation log rows can be produced.
//
// Entries younger than the grace period are skipped: they may still be
// in-flight in the process that appended them.
type Sweeper struct {
	repo       Repository
	dispatcher *Dispatcher
	config     SweeperConfig
	logger     *slog.Logger

	wg       sync.WaitGroup
	stopChan chan struct{}
	running  bool
	mu       sync.Mutex
}

// NewSweeper creates a recovery sweeper.
func NewSweeper(repo Repository, dispatcher *Dispatcher, config SweeperConfig, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultSweeperConfig().PollInterval
	}
	if config.GracePeriod <= 0 {
		config.GracePeriod = DefaultSweeperConfig().GracePeriod
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultSweeperConfig().BatchSize
	}
	return &Sweeper{
		repo:       repo,
		dispatcher: dispatcher,
		config:     config,
		logger:     logger,
		stopChan:   make(chan struct{}),
	}
}

// Start begins the polling loop in a goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("event recovery sweep started",
		"poll_interval", s.config.PollInterval,
		"grace_period", s.config.GracePeriod,
	)
}

// Stop gracefully stops the sweeper.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("event recovery sweep stopped")
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("recovery sweep failed", "error", err)
			}
		}
	}
}

// SweepOnce processes a single batch synchronously (useful for testing).
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.config.GracePeriod)

	entries, err := s.repo.ListStuckPending(ctx, cutoff, s.config.BatchSize)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		s.logger.Warn("re-dispatching stuck pending entry",
			"event_id", entry.ID,
			"event_type", entry.Type,
			"created_at", entry.CreatedAt,
		)
		if err := s.dispatcher.Dispatch(ctx, entry); err != nil {
			s.logger.Error("re-dispatch failed",
				"event_id", entry.ID,
				"error", err,
			)
		}
	}

	return nil
}
