package domain

import (
	"context"

	"github.com/google/uuid"

	"github.com/CaptainRedCodes/CareOps/internal/events"
)

// ItemTx is the operation set available while an item lock is held.
type ItemTx interface {
	// GetItem loads the current row under the lock.
	GetItem(ctx context.Context, workspaceID, itemID uuid.UUID) (*Item, error)

	// SaveItem writes back the mutated quantity.
	SaveItem(ctx context.Context, item *Item) error

	// InsertUsage records the deduction.
	InsertUsage(ctx context.Context, usage *Usage) error

	// AppendEvent records a pending event log entry in the same
	// transaction as the deduction, so the entry and the state change
	// commit or roll back together.
	AppendEvent(ctx context.Context, entry *events.Entry) error
}

// Store persists inventory items with lock-then-revalidate deduction.
// WithItemLock serializes all mutations of one item: the callback runs
// with the item row locked and its writes commit atomically when the
// callback returns nil.
type Store interface {
	WithItemLock(ctx context.Context, workspaceID, itemID uuid.UUID, fn func(tx ItemTx) error) error

	Create(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, workspaceID, itemID uuid.UUID) (*Item, error)
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*Item, error)
}
