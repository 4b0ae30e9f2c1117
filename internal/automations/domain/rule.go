// Package domain contains the automation rules domain model.
package domain

import (
	"errors"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/CaptainRedCodes/CareOps/internal/events"
)

// Common errors for automation rules.
var (
	ErrRuleNotFound = errors.New("automation rule not found")
	ErrInvalidRule  = errors.New("invalid automation rule")
)

// ActionType is the kind of communication a rule dispatches.
type ActionType string

const (
	ActionSendEmail ActionType = "send_email"
	ActionSendSMS   ActionType = "send_sms"
)

// ActionConfig holds the message templates for a rule's action.
// Subject is ignored for SMS.
type ActionConfig struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Rule is a workspace-configured reaction to an event type.
//
// Conditions is an all-match map: every key must be present in the trigger
// data with an exactly equal value for the rule to fire. Rules are
// evaluated in priority order (lower first, ties by insertion order) and
// never short-circuit each other on success.
type Rule struct {
	ID           uuid.UUID
	WorkspaceID  uuid.UUID
	Name         string
	EventType    events.Type
	IsActive     bool
	Priority     int
	ActionType   ActionType
	ActionConfig ActionConfig
	Conditions   map[string]any
	StopOnReply  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewRule creates an active automation rule.
func NewRule(workspaceID uuid.UUID, name string, eventType events.Type, actionType ActionType, config ActionConfig) (*Rule, error) {
	if name == "" {
		return nil, errors.New("rule name is required")
	}
	if actionType != ActionSendEmail && actionType != ActionSendSMS {
		return nil, errors.New("unknown action type")
	}
	if _, err := events.ParseType(string(eventType)); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Rule{
		ID:           uuid.New(),
		WorkspaceID:  workspaceID,
		Name:         name,
		EventType:    eventType,
		IsActive:     true,
		Priority:     0,
		ActionType:   actionType,
		ActionConfig: config,
		Conditions:   map[string]any{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ConditionsMatch reports whether every condition key exists in the
// trigger data with an exactly equal value. A rule with no conditions
// always matches.
func (r *Rule) ConditionsMatch(triggerData map[string]any) bool {
	for key, expected := range r.Conditions {
		got, ok := triggerData[key]
		if !ok {
			return false
		}
		if !reflect.DeepEqual(got, expected) {
			return false
		}
	}
	return true
}

// Channel returns the delivery channel for the rule's action type.
func (r *Rule) Channel() string {
	if r.ActionType == ActionSendSMS {
		return "sms"
	}
	return "email"
}
