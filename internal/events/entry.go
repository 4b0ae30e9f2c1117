// Package events provides the append-only domain event log and its
// dispatcher. Every domain-significant state change is recorded as an
// Entry; registered handlers and the automation rule engine react to
// dispatched entries after the originating transaction commits.
package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type is the closed set of domain event types. No other automation
// triggers are allowed.
type Type string

const (
	TypeContactCreated   Type = "contact.created"
	TypeBookingCreated   Type = "booking.created"
	TypeFormCompleted    Type = "form.completed"
	TypeInventoryUpdated Type = "inventory.updated"
	TypeInventoryLow     Type = "inventory.low"
	TypeStaffReplied     Type = "staff.replied"
)

// ValidTypes lists every allowed event type.
func ValidTypes() []Type {
	return []Type{
		TypeContactCreated,
		TypeBookingCreated,
		TypeFormCompleted,
		TypeInventoryUpdated,
		TypeInventoryLow,
		TypeStaffReplied,
	}
}

// ParseType validates a raw event type string.
func ParseType(s string) (Type, error) {
	for _, t := range ValidTypes() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown event type %q", s)
}

// Status tracks an entry through dispatch. The only legal transitions are
// pending→processed and pending→failed, each at most once.
type Status string

const (
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"
	StatusFailed    Status = "failed"
)

// Entry is one row of the append-only event log.
//
// Data is an open, forward-compatible payload keyed by string; consumers
// must tolerate unknown and missing keys.
type Entry struct {
	ID           uuid.UUID      `json:"id"`
	Type         Type           `json:"event_type"`
	WorkspaceID  uuid.UUID      `json:"workspace_id"`
	EntityType   string         `json:"entity_type,omitempty"`
	EntityID     uuid.UUID      `json:"entity_id,omitempty"`
	Data         map[string]any `json:"event_data"`
	Status       Status         `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	ProcessedAt  *time.Time     `json:"processed_at,omitempty"`
}

// NewEntry creates a pending entry ready to be appended to the log.
func NewEntry(eventType Type, workspaceID uuid.UUID, entityType string, entityID uuid.UUID, data map[string]any) *Entry {
	if data == nil {
		data = map[string]any{}
	}
	return &Entry{
		ID:          uuid.New(),
		Type:        eventType,
		WorkspaceID: workspaceID,
		EntityType:  entityType,
		EntityID:    entityID,
		Data:        data,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
}

// IsFinal reports whether the entry has already been dispatched.
func (e *Entry) IsFinal() bool {
	return e.Status != StatusPending
}

// TriggerData builds the payload handed to the automation rule engine:
// the entry's data plus event_type and, for contact entities, contact_id.
func (e *Entry) TriggerData() map[string]any {
	trigger := make(map[string]any, len(e.Data)+2)
	for k, v := range e.Data {
		trigger[k] = v
	}
	trigger["event_type"] = string(e.Type)
	if e.EntityType == "contact" {
		trigger["contact_id"] = e.EntityID.String()
	}
	return trigger
}
