package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/CaptainRedCodes/CareOps/internal/automations/domain"
	"github.com/CaptainRedCodes/CareOps/internal/events"
)

// SQLiteLogRepository implements domain.LogRepository using SQLite.
// Rows are write-once: there is no update path.
type SQLiteLogRepository struct {
	db *sql.DB
}

// NewSQLiteLogRepository creates a new SQLite automation log repository.
func NewSQLiteLogRepository(db *sql.DB) *SQLiteLogRepository {
	return &SQLiteLogRepository{db: db}
}

// Create inserts one audit row.
func (r *SQLiteLogRepository) Create(ctx context.Context, log *domain.Log) error {
	triggerData, err := json.Marshal(log.TriggerData)
	if err != nil {
		return err
	}

	var ruleID any
	if log.RuleID != nil {
		ruleID = log.RuleID.String()
	}

	query := `
		INSERT INTO automation_logs (
			id, workspace_id, rule_id, event_type, trigger_data, action_type,
			status, recipient, subject, message, error_message, stopped, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		log.ID.String(),
		log.WorkspaceID.String(),
		ruleID,
		string(log.EventType),
		string(triggerData),
		string(log.ActionType),
		string(log.Status),
		log.Recipient,
		log.Subject,
		log.Message,
		log.ErrorMessage,
		boolToInt(log.Stopped),
		log.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

// ListByWorkspace returns the most recent audit rows first.
func (r *SQLiteLogRepository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, limit int) ([]*domain.Log, error) {
	query := `
		SELECT id, workspace_id, rule_id, event_type, trigger_data, action_type,
			status, recipient, subject, message, error_message, stopped, created_at
		FROM automation_logs
		WHERE workspace_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, workspaceID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.Log
	for rows.Next() {
		log, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

func scanLog(row rowScanner) (*domain.Log, error) {
	var log domain.Log
	var idStr, workspaceStr, eventTypeStr, triggerStr, actionTypeStr, statusStr, createdAtStr string
	var ruleIDStr sql.NullString
	var stopped int

	err := row.Scan(
		&idStr,
		&workspaceStr,
		&ruleIDStr,
		&eventTypeStr,
		&triggerStr,
		&actionTypeStr,
		&statusStr,
		&log.Recipient,
		&log.Subject,
		&log.Message,
		&log.ErrorMessage,
		&stopped,
		&createdAtStr,
	)
	if err != nil {
		return nil, err
	}

	log.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	log.WorkspaceID, err = uuid.Parse(workspaceStr)
	if err != nil {
		return nil, err
	}
	if ruleIDStr.Valid {
		ruleID, err := uuid.Parse(ruleIDStr.String)
		if err != nil {
			return nil, err
		}
		log.RuleID = &ruleID
	}

	log.EventType = events.Type(eventTypeStr)
	log.ActionType = domain.ActionType(actionTypeStr)
	log.Status = domain.LogStatus(statusStr)
	log.Stopped = stopped == 1

	if err := json.Unmarshal([]byte(triggerStr), &log.TriggerData); err != nil {
		return nil, err
	}

	log.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return nil, err
	}

	return &log, nil
}
