package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/CaptainRedCodes/CareOps/internal/automations/domain"
	"github.com/CaptainRedCodes/CareOps/internal/events"
)

// RuleService is the admin configuration surface for automation rules.
type RuleService struct {
	rules  domain.RuleRepository
	logs   domain.LogRepository
	pause  domain.PauseRegistry
	logger *slog.Logger
}

// NewRuleService creates the rule CRUD service.
func NewRuleService(rules domain.RuleRepository, logs domain.LogRepository, pause domain.PauseRegistry, logger *slog.Logger) *RuleService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RuleService{
		rules:  rules,
		logs:   logs,
		pause:  pause,
		logger: logger,
	}
}

// CreateRuleInput carries the admin-supplied rule definition.
type CreateRuleInput struct {
	Name         string
	EventType    events.Type
	Priority     int
	ActionType   domain.ActionType
	ActionConfig domain.ActionConfig
	Conditions   map[string]any
	StopOnReply  bool
}

// CreateRule validates and stores a new automation rule.
func (s *RuleService) CreateRule(ctx context.Context, workspaceID uuid.UUID, input CreateRuleInput) (*domain.Rule, error) {
	rule, err := domain.NewRule(workspaceID, input.Name, input.EventType, input.ActionType, input.ActionConfig)
	if err != nil {
		return nil, err
	}
	rule.Priority = input.Priority
	rule.StopOnReply = input.StopOnReply
	if input.Conditions != nil {
		rule.Conditions = input.Conditions
	}

	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, err
	}

	s.logger.Info("automation rule created",
		"rule_id", rule.ID,
		"workspace_id", workspaceID,
		"event_type", rule.EventType,
	)
	return rule, nil
}

// UpdateRuleInput carries partial updates; nil fields are left unchanged.
type UpdateRuleInput struct {
	Name         *string
	Priority     *int
	IsActive     *bool
	ActionConfig *domain.ActionConfig
	Conditions   map[string]any
	StopOnReply  *bool
}

// UpdateRule applies a partial update to an existing rule.
func (s *RuleService) UpdateRule(ctx context.Context, workspaceID, ruleID uuid.UUID, input UpdateRuleInput) (*domain.Rule, error) {
	rule, err := s.rules.GetByID(ctx, workspaceID, ruleID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		rule.Name = *input.Name
	}
	if input.Priority != nil {
		rule.Priority = *input.Priority
	}
	if input.IsActive != nil {
		rule.IsActive = *input.IsActive
	}
	if input.ActionConfig != nil {
		rule.ActionConfig = *input.ActionConfig
	}
	if input.Conditions != nil {
		rule.Conditions = input.Conditions
	}
	if input.StopOnReply != nil {
		rule.StopOnReply = *input.StopOnReply
	}

	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// DeleteRule removes a rule from the workspace.
func (s *RuleService) DeleteRule(ctx context.Context, workspaceID, ruleID uuid.UUID) error {
	return s.rules.Delete(ctx, workspaceID, ruleID)
}

// GetRule loads a single rule.
func (s *RuleService) GetRule(ctx context.Context, workspaceID, ruleID uuid.UUID) (*domain.Rule, error) {
	return s.rules.GetByID(ctx, workspaceID, ruleID)
}

// ListRules returns all rules for a workspace.
func (s *RuleService) ListRules(ctx context.Context, workspaceID uuid.UUID) ([]*domain.Rule, error) {
	return s.rules.ListByWorkspace(ctx, workspaceID)
}

// ListLogs returns recent automation audit rows for a workspace.
func (s *RuleService) ListLogs(ctx context.Context, workspaceID uuid.UUID, limit int) ([]*domain.Log, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.logs.ListByWorkspace(ctx, workspaceID, limit)
}

// ResumeContact lifts the automation pause for a contact. Pause has no
// automatic expiry, so this is the only way out of the suppressed state.
func (s *RuleService) ResumeContact(ctx context.Context, workspaceID, contactID uuid.UUID) error {
	if err := s.pause.Resume(ctx, workspaceID, contactID); err != nil {
		return err
	}
	s.logger.Info("automation resumed for contact",
		"workspace_id", workspaceID,
		"contact_id", contactID,
	)
	return nil
}
