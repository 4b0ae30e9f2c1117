package domain

import (
	"context"

	"github.com/google/uuid"

	"github.com/CaptainRedCodes/CareOps/internal/events"
)

// RuleRepository persists automation rules. Rules are created and edited
// by the admin surface and read-only to the engine.
type RuleRepository interface {
	Create(ctx context.Context, rule *Rule) error
	Update(ctx context.Context, rule *Rule) error
	Delete(ctx context.Context, workspaceID, ruleID uuid.UUID) error
	GetByID(ctx context.Context, workspaceID, ruleID uuid.UUID) (*Rule, error)
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*Rule, error)

	// ListActiveForEvent returns active rules for the event type ordered
	// by priority ascending, ties broken by insertion order.
	ListActiveForEvent(ctx context.Context, workspaceID uuid.UUID, eventType events.Type) ([]*Rule, error)
}

// LogRepository persists write-once automation audit rows.
type LogRepository interface {
	Create(ctx context.Context, log *Log) error
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, limit int) ([]*Log, error)
}

// PauseRegistry is the per-contact suppression set. Existence of the
// (workspace, contact) pair is the entire state: pause is sticky until
// explicitly resumed.
type PauseRegistry interface {
	// Pause is an idempotent insert-if-absent.
	Pause(ctx context.Context, workspaceID, contactID uuid.UUID) error

	// Resume is an idempotent delete-if-present.
	Resume(ctx context.Context, workspaceID, contactID uuid.UUID) error

	IsPaused(ctx context.Context, workspaceID, contactID uuid.UUID) (bool, error)
}
