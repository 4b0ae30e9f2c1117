// Package persistence provides database implementations for automation
// repositories.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/CaptainRedCodes/CareOps/internal/automations/domain"
	"github.com/CaptainRedCodes/CareOps/internal/events"
)

// SQLiteRuleRepository implements domain.RuleRepository using SQLite.
type SQLiteRuleRepository struct {
	db *sql.DB
}

// NewSQLiteRuleRepository creates a new SQLite rule repository.
func NewSQLiteRuleRepository(db *sql.DB) *SQLiteRuleRepository {
	return &SQLiteRuleRepository{db: db}
}

const ruleColumns = `id, workspace_id, name, event_type, is_active, priority,
	action_type, action_subject, action_message, conditions, stop_on_reply,
	created_at, updated_at`

// Create inserts a new automation rule.
func (r *SQLiteRuleRepository) Create(ctx context.Context, rule *domain.Rule) error {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO automation_rules (` + ruleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		rule.ID.String(),
		rule.WorkspaceID.String(),
		rule.Name,
		string(rule.EventType),
		boolToInt(rule.IsActive),
		rule.Priority,
		string(rule.ActionType),
		rule.ActionConfig.Subject,
		rule.ActionConfig.Message,
		string(conditions),
		boolToInt(rule.StopOnReply),
		rule.CreatedAt.Format(time.RFC3339Nano),
		rule.UpdatedAt.Format(time.RFC3339Nano),
	)
	return err
}

// Update rewrites an existing rule.
func (r *SQLiteRuleRepository) Update(ctx context.Context, rule *domain.Rule) error {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return err
	}

	query := `
		UPDATE automation_rules SET
			name = ?, event_type = ?, is_active = ?, priority = ?,
			action_type = ?, action_subject = ?, action_message = ?,
			conditions = ?, stop_on_reply = ?, updated_at = ?
		WHERE id = ? AND workspace_id = ?
	`
	_, err = r.db.ExecContext(ctx, query,
		rule.Name,
		string(rule.EventType),
		boolToInt(rule.IsActive),
		rule.Priority,
		string(rule.ActionType),
		rule.ActionConfig.Subject,
		rule.ActionConfig.Message,
		string(conditions),
		boolToInt(rule.StopOnReply),
		time.Now().UTC().Format(time.RFC3339Nano),
		rule.ID.String(),
		rule.WorkspaceID.String(),
	)
	return err
}

// Delete removes a rule.
func (r *SQLiteRuleRepository) Delete(ctx context.Context, workspaceID, ruleID uuid.UUID) error {
	query := `DELETE FROM automation_rules WHERE id = ? AND workspace_id = ?`
	_, err := r.db.ExecContext(ctx, query, ruleID.String(), workspaceID.String())
	return err
}

// GetByID retrieves a rule scoped to its workspace.
func (r *SQLiteRuleRepository) GetByID(ctx context.Context, workspaceID, ruleID uuid.UUID) (*domain.Rule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM automation_rules
		WHERE id = ? AND workspace_id = ?
	`
	row := r.db.QueryRowContext(ctx, query, ruleID.String(), workspaceID.String())
	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRuleNotFound
		}
		return nil, err
	}
	return rule, nil
}

// ListByWorkspace returns all rules for a workspace in priority order.
func (r *SQLiteRuleRepository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*domain.Rule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM automation_rules
		WHERE workspace_id = ?
		ORDER BY priority ASC, created_at ASC
	`
	return r.queryRules(ctx, query, workspaceID.String())
}

// ListActiveForEvent returns active rules for the event type, priority
// ascending, ties broken by insertion order.
func (r *SQLiteRuleRepository) ListActiveForEvent(ctx context.Context, workspaceID uuid.UUID, eventType events.Type) ([]*domain.Rule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM automation_rules
		WHERE workspace_id = ? AND event_type = ? AND is_active = 1
		ORDER BY priority ASC, created_at ASC
	`
	return r.queryRules(ctx, query, workspaceID.String(), string(eventType))
}

func (r *SQLiteRuleRepository) queryRules(ctx context.Context, query string, args ...any) ([]*domain.Rule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*domain.Rule, error) {
	var rule domain.Rule
	var idStr, workspaceStr, eventTypeStr, actionTypeStr string
	var isActive, stopOnReply int
	var conditionsStr, createdAtStr, updatedAtStr string

	err := row.Scan(
		&idStr,
		&workspaceStr,
		&rule.Name,
		&eventTypeStr,
		&isActive,
		&rule.Priority,
		&actionTypeStr,
		&rule.ActionConfig.Subject,
		&rule.ActionConfig.Message,
		&conditionsStr,
		&stopOnReply,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return nil, err
	}

	rule.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	rule.WorkspaceID, err = uuid.Parse(workspaceStr)
	if err != nil {
		return nil, err
	}

	rule.EventType = events.Type(eventTypeStr)
	rule.ActionType = domain.ActionType(actionTypeStr)
	rule.IsActive = isActive == 1
	rule.StopOnReply = stopOnReply == 1

	if err := json.Unmarshal([]byte(conditionsStr), &rule.Conditions); err != nil {
		return nil, err
	}

	rule.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return nil, err
	}
	rule.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAtStr)
	if err != nil {
		return nil, err
	}

	return &rule, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
