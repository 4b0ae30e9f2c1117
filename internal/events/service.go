package events

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Service is the emission surface consumed by collaborators that are not
// already inside a larger transaction (inventory updates, staff replies,
// form completions). It appends the entry and dispatches it immediately.
//
// Booking creation does NOT use this path: it appends entries inside its
// own transaction and dispatches them after commit.
type Service struct {
	repo       Repository
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewService creates the event emission service.
func NewService(repo Repository, dispatcher *Dispatcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:       repo,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Emit appends an entry to the event log and dispatches it. The returned
// entry carries the final dispatch status.
func (s *Service) Emit(ctx context.Context, eventType Type, workspaceID uuid.UUID, entityType string, entityID uuid.UUID, data map[string]any) (*Entry, error) {
	entry := NewEntry(eventType, workspaceID, entityType, entityID, data)

	if err := s.repo.Append(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("event logged",
		"event_type", eventType,
		"workspace_id", workspaceID,
		"event_id", entry.ID,
	)

	if err := s.dispatcher.Dispatch(ctx, entry); err != nil {
		// The entry is durable; the recovery sweep will retry dispatch.
		s.logger.Error("dispatch failed, entry left pending",
			"event_id", entry.ID,
			"error", err,
		)
	}

	return entry, nil
}
