// Package services contains the automation application services.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/CaptainRedCodes/CareOps/internal/automations/domain"
	"github.com/CaptainRedCodes/CareOps/internal/delivery"
	"github.com/CaptainRedCodes/CareOps/internal/events"
)

// InsufficientRecipientError reports a rule whose trigger data carried no
// channel-appropriate contact info. The rule is logged as failed and
// siblings continue.
type InsufficientRecipientError struct {
	ActionType domain.ActionType
}

func (e *InsufficientRecipientError) Error() string {
	field := "contact_email"
	if e.ActionType == domain.ActionSendSMS {
		field = "contact_phone"
	}
	return fmt.Sprintf("no recipient: trigger data has no %s for %s", field, e.ActionType)
}

// Engine evaluates workspace automation rules against dispatched events.
// It implements events.AutomationEvaluator.
type Engine struct {
	rules  domain.RuleRepository
	logs   domain.LogRepository
	pause  domain.PauseRegistry
	sender delivery.Sender
	logger *slog.Logger
}

// NewEngine creates the automation rule engine.
func NewEngine(rules domain.RuleRepository, logs domain.LogRepository, pause domain.PauseRegistry, sender delivery.Sender, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		rules:  rules,
		logs:   logs,
		pause:  pause,
		sender: sender,
		logger: logger,
	}
}

// Evaluate runs the automation pipeline for one event:
//
//  1. A paused contact short-circuits everything: one skipped row, no
//     rules run, zero delivery attempts.
//  2. Active rules for (workspace, event type) run in priority order.
//  3. A rule whose conditions don't match is skipped silently (no row).
//  4. A rule with no channel-appropriate recipient logs a failed row and
//     siblings continue.
//  5. Placeholders are substituted literally; delivery goes through the
//     retrier; one row is written per executed rule.
//
// Rules never short-circuit each other on success.
func (e *Engine) Evaluate(ctx context.Context, workspaceID uuid.UUID, eventType string, triggerData map[string]any) error {
	parsedType, err := events.ParseType(eventType)
	if err != nil {
		return err
	}

	paused, err := e.contactPaused(ctx, workspaceID, triggerData)
	if err != nil {
		return err
	}
	if paused {
		log := domain.NewSkippedLog(workspaceID, nil, triggerData)
		log.EventType = parsedType
		e.writeLog(ctx, log)
		e.logger.Info("automation skipped, contact paused",
			"workspace_id", workspaceID,
			"event_type", eventType,
		)
		return nil
	}

	rules, err := e.rules.ListActiveForEvent(ctx, workspaceID, parsedType)
	if err != nil {
		return err
	}

	for _, rule := range rules {
		if !rule.ConditionsMatch(triggerData) {
			// Failed-condition rules are silent: no log row.
			continue
		}
		e.executeRule(ctx, rule, triggerData)
	}

	return nil
}

func (e *Engine) executeRule(ctx context.Context, rule *domain.Rule, triggerData map[string]any) {
	recipient, err := resolveRecipient(rule, triggerData)
	if err != nil {
		e.writeLog(ctx, domain.NewFailedLog(rule, triggerData, "", err))
		e.logger.Warn("automation rule has no recipient",
			"rule_id", rule.ID,
			"action_type", rule.ActionType,
		)
		return
	}

	subject := domain.RenderTemplate(rule.ActionConfig.Subject, triggerData)
	message := domain.RenderTemplate(rule.ActionConfig.Message, triggerData)

	msg := delivery.Message{
		Channel:   delivery.Channel(rule.Channel()),
		Recipient: recipient,
		Subject:   subject,
		Body:      message,
	}

	if err := e.sender.Send(ctx, msg); err != nil {
		e.writeLog(ctx, domain.NewFailedLog(rule, triggerData, recipient, err))
		e.logger.Error("automation delivery failed",
			"rule_id", rule.ID,
			"channel", msg.Channel,
			"error", err,
		)
		return
	}

	e.writeLog(ctx, domain.NewSuccessLog(rule, triggerData, recipient, subject, message))
	e.logger.Info("automation rule fired",
		"rule_id", rule.ID,
		"channel", msg.Channel,
	)
}

func (e *Engine) contactPaused(ctx context.Context, workspaceID uuid.UUID, triggerData map[string]any) (bool, error) {
	raw, ok := triggerData["contact_id"].(string)
	if !ok || raw == "" {
		return false, nil
	}
	contactID, err := uuid.Parse(raw)
	if err != nil {
		return false, nil
	}
	return e.pause.IsPaused(ctx, workspaceID, contactID)
}

func (e *Engine) writeLog(ctx context.Context, log *domain.Log) {
	if err := e.logs.Create(ctx, log); err != nil {
		e.logger.Error("failed to write automation log",
			"log_id", log.ID,
			"error", err,
		)
	}
}

func resolveRecipient(rule *domain.Rule, triggerData map[string]any) (string, error) {
	key := "contact_email"
	if rule.ActionType == domain.ActionSendSMS {
		key = "contact_phone"
	}
	recipient, _ := triggerData[key].(string)
	if recipient == "" {
		return "", &InsufficientRecipientError{ActionType: rule.ActionType}
	}
	return recipient, nil
}
