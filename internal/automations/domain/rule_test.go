package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CaptainRedCodes/CareOps/internal/automations/domain"
	"github.com/CaptainRedCodes/CareOps/internal/events"
)

func TestNewRuleValidation(t *testing.T) {
	workspaceID := uuid.New()
	config := domain.ActionConfig{Message: "Hi {{name}}"}

	rule, err := domain.NewRule(workspaceID, "Welcome", events.TypeContactCreated, domain.ActionSendEmail, config)
	require.NoError(t, err)
	assert.True(t, rule.IsActive)
	assert.Equal(t, 0, rule.Priority)

	_, err = domain.NewRule(workspaceID, "", events.TypeContactCreated, domain.ActionSendEmail, config)
	assert.Error(t, err)

	_, err = domain.NewRule(workspaceID, "Bad action", events.TypeContactCreated, "send_fax", config)
	assert.Error(t, err)

	_, err = domain.NewRule(workspaceID, "Bad event", "meeting.scheduled", domain.ActionSendEmail, config)
	assert.Error(t, err)
}

func TestConditionsMatch(t *testing.T) {
	rule := &domain.Rule{Conditions: map[string]any{"service_name": "Deep Clean"}}

	assert.True(t, rule.ConditionsMatch(map[string]any{"service_name": "Deep Clean", "extra": 1}))
	assert.False(t, rule.ConditionsMatch(map[string]any{"service_name": "Quick Clean"}))
	assert.False(t, rule.ConditionsMatch(map[string]any{}))

	// No conditions always matches.
	empty := &domain.Rule{Conditions: map[string]any{}}
	assert.True(t, empty.ConditionsMatch(map[string]any{"anything": true}))
}

func TestRuleChannel(t *testing.T) {
	assert.Equal(t, "email", (&domain.Rule{ActionType: domain.ActionSendEmail}).Channel())
	assert.Equal(t, "sms", (&domain.Rule{ActionType: domain.ActionSendSMS}).Channel())
}
