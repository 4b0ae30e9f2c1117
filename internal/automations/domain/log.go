package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/CaptainRedCodes/CareOps/internal/events"
)

// LogStatus is the outcome of evaluating one rule (or of a whole paused
// evaluation).
type LogStatus string

const (
	LogStatusSuccess LogStatus = "success"
	LogStatusFailed  LogStatus = "failed"
	LogStatusSkipped LogStatus = "skipped"
)

// Log is one write-once audit row: one per rule executed per event, or a
// single skipped row when the contact is paused.
type Log struct {
	ID           uuid.UUID
	WorkspaceID  uuid.UUID
	RuleID       *uuid.UUID
	EventType    events.Type
	TriggerData  map[string]any
	ActionType   ActionType
	Status       LogStatus
	Recipient    string
	Subject      string
	Message      string
	ErrorMessage string
	Stopped      bool
	CreatedAt    time.Time
}

func newLog(workspaceID uuid.UUID, ruleID *uuid.UUID, eventType events.Type, triggerData map[string]any, actionType ActionType) *Log {
	return &Log{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		RuleID:      ruleID,
		EventType:   eventType,
		TriggerData: triggerData,
		ActionType:  actionType,
		CreatedAt:   time.Now().UTC(),
	}
}

// NewSkippedLog records that an evaluation was short-circuited because the
// contact is paused. Exactly one such row is written per paused event.
func NewSkippedLog(workspaceID uuid.UUID, rule *Rule, triggerData map[string]any) *Log {
	var ruleID *uuid.UUID
	actionType := ActionType("")
	if rule != nil {
		id := rule.ID
		ruleID = &id
		actionType = rule.ActionType
	}
	log := newLog(workspaceID, ruleID, eventTypeOf(rule, triggerData), triggerData, actionType)
	log.Status = LogStatusSkipped
	log.Stopped = true
	log.Message = "Automation paused for contact (staff reply)"
	return log
}

// NewSuccessLog records a successful rule execution with the final
// rendered recipient/subject/message.
func NewSuccessLog(rule *Rule, triggerData map[string]any, recipient, subject, message string) *Log {
	id := rule.ID
	log := newLog(rule.WorkspaceID, &id, rule.EventType, triggerData, rule.ActionType)
	log.Status = LogStatusSuccess
	log.Recipient = recipient
	log.Subject = subject
	log.Message = message
	return log
}

// NewFailedLog records a rule execution that could not deliver.
func NewFailedLog(rule *Rule, triggerData map[string]any, recipient string, err error) *Log {
	id := rule.ID
	log := newLog(rule.WorkspaceID, &id, rule.EventType, triggerData, rule.ActionType)
	log.Status = LogStatusFailed
	log.Recipient = recipient
	log.ErrorMessage = err.Error()
	return log
}

func eventTypeOf(rule *Rule, triggerData map[string]any) events.Type {
	if rule != nil {
		return rule.EventType
	}
	if raw, ok := triggerData["event_type"].(string); ok {
		return events.Type(raw)
	}
	return ""
}
