// Package subscribers contains event handlers owned by the automations
// context.
package subscribers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/CaptainRedCodes/CareOps/internal/automations/domain"
	"github.com/CaptainRedCodes/CareOps/internal/events"
)

// StaffReplyPauser pauses automation for a contact whenever a human staff
// reply occurs. The pause is unconditional and sticky until explicitly
// resumed.
type StaffReplyPauser struct {
	pause  domain.PauseRegistry
	logger *slog.Logger
}

// NewStaffReplyPauser creates the staff.replied handler.
func NewStaffReplyPauser(pause domain.PauseRegistry, logger *slog.Logger) *StaffReplyPauser {
	if logger == nil {
		logger = slog.Default()
	}
	return &StaffReplyPauser{pause: pause, logger: logger}
}

// Name implements events.Handler.
func (p *StaffReplyPauser) Name() string { return "staff-reply-pauser" }

// Handle implements events.Handler.
func (p *StaffReplyPauser) Handle(ctx context.Context, entry *events.Entry) error {
	raw, _ := entry.Data["contact_id"].(string)
	if raw == "" {
		return fmt.Errorf("staff.replied event %s has no contact_id", entry.ID)
	}
	contactID, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("staff.replied event %s has invalid contact_id: %w", entry.ID, err)
	}

	if err := p.pause.Pause(ctx, entry.WorkspaceID, contactID); err != nil {
		return err
	}

	p.logger.Info("automation paused after staff reply",
		"workspace_id", entry.WorkspaceID,
		"contact_id", contactID,
	)
	return nil
}
