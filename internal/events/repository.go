package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists event log entries.
type Repository interface {
	// Append inserts a pending entry. Callers creating entries inside a
	// larger transaction use the transaction-scoped variant exposed by
	// their own store; this method is for standalone emission.
	Append(ctx context.Context, entry *Entry) error

	// GetByID loads a single entry.
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)

	// FinishDispatch transitions an entry from pending to the given final
	// status. It returns false when the entry was not pending anymore,
	// which makes dispatch idempotent across processes.
	FinishDispatch(ctx context.Context, id uuid.UUID, status Status, errorMessage string, processedAt time.Time) (bool, error)

	// ListStuckPending returns pending entries created before the cutoff,
	// oldest first, for the recovery sweep.
	ListStuckPending(ctx context.Context, cutoff time.Time, limit int) ([]*Entry, error)
}
