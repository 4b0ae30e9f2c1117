// Package persistence provides database implementations for the event log.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/CaptainRedCodes/CareOps/internal/events"
)

// ErrEntryNotFound is returned when an event log entry does not exist.
var ErrEntryNotFound = errors.New("event log entry not found")

// TimeFormat stores event log timestamps with fixed nanosecond precision.
// RFC3339Nano trims trailing zeros, which breaks the lexicographic
// ordering the sweep cutoff comparison relies on (".5Z" sorts after
// ".55Z"). Every writer of event_log rows must use this format.
const TimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteEventRepository implements events.Repository using SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

// NewSQLiteEventRepository creates a new SQLite event log repository.
func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

// Append inserts a pending entry.
func (r *SQLiteEventRepository) Append(ctx context.Context, entry *events.Entry) error {
	data, err := json.Marshal(entry.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	query := `
		INSERT INTO event_log (
			id, event_type, workspace_id, entity_type, entity_id,
			event_data, status, error_message, created_at, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`
	_, err = r.db.ExecContext(ctx, query,
		entry.ID.String(),
		string(entry.Type),
		entry.WorkspaceID.String(),
		entry.EntityType,
		entry.EntityID.String(),
		string(data),
		string(entry.Status),
		entry.ErrorMessage,
		entry.CreatedAt.Format(TimeFormat),
	)
	return err
}

// GetByID loads a single entry.
func (r *SQLiteEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*events.Entry, error) {
	query := `
		SELECT id, event_type, workspace_id, entity_type, entity_id,
			event_data, status, error_message, created_at, processed_at
		FROM event_log
		WHERE id = ?
	`
	row := r.db.QueryRowContext(ctx, query, id.String())
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return entry, nil
}

// FinishDispatch transitions pending→{processed,failed} exactly once.
func (r *SQLiteEventRepository) FinishDispatch(ctx context.Context, id uuid.UUID, status events.Status, errorMessage string, processedAt time.Time) (bool, error) {
	query := `
		UPDATE event_log
		SET status = ?, error_message = ?, processed_at = ?
		WHERE id = ? AND status = ?
	`
	res, err := r.db.ExecContext(ctx, query,
		string(status),
		errorMessage,
		processedAt.Format(TimeFormat),
		id.String(),
		string(events.StatusPending),
	)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListStuckPending returns pending entries older than the cutoff.
func (r *SQLiteEventRepository) ListStuckPending(ctx context.Context, cutoff time.Time, limit int) ([]*events.Entry, error) {
	query := `
		SELECT id, event_type, workspace_id, entity_type, entity_id,
			event_data, status, error_message, created_at, processed_at
		FROM event_log
		WHERE status = ? AND created_at < ?
		ORDER BY created_at ASC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query,
		string(events.StatusPending),
		cutoff.Format(TimeFormat),
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*events.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*events.Entry, error) {
	var entry events.Entry
	var idStr, typeStr, workspaceStr, statusStr, createdAtStr string
	var entityType, errorMessage sql.NullString
	var entityIDStr, dataStr string
	var processedAtStr sql.NullString

	err := row.Scan(
		&idStr,
		&typeStr,
		&workspaceStr,
		&entityType,
		&entityIDStr,
		&dataStr,
		&statusStr,
		&errorMessage,
		&createdAtStr,
		&processedAtStr,
	)
	if err != nil {
		return nil, err
	}

	entry.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	entry.WorkspaceID, err = uuid.Parse(workspaceStr)
	if err != nil {
		return nil, err
	}
	entry.EntityID, err = uuid.Parse(entityIDStr)
	if err != nil {
		return nil, err
	}

	entry.Type = events.Type(typeStr)
	entry.Status = events.Status(statusStr)
	entry.EntityType = entityType.String
	entry.ErrorMessage = errorMessage.String

	if err := json.Unmarshal([]byte(dataStr), &entry.Data); err != nil {
		return nil, err
	}

	entry.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return nil, err
	}
	if processedAtStr.Valid {
		processedAt, err := time.Parse(time.RFC3339Nano, processedAtStr.String)
		if err == nil {
			entry.ProcessedAt = &processedAt
		}
	}

	return &entry, nil
}
