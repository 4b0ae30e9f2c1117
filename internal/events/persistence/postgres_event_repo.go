package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CaptainRedCodes/CareOps/internal/events"
)

// PostgresEventRepository implements events.Repository on pgx. It must
// point at the same database as the stores whose transactions append
// entries, or FinishDispatch will never claim them.
type PostgresEventRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEventRepository creates a new Postgres event log repository.
func NewPostgresEventRepository(pool *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{pool: pool}
}

// Append inserts a pending entry.
func (r *PostgresEventRepository) Append(ctx context.Context, entry *events.Entry) error {
	data, err := json.Marshal(entry.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO event_log (
			id, event_type, workspace_id, entity_type, entity_id,
			event_data, status, error_message, created_at, processed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULL)`,
		entry.ID,
		string(entry.Type),
		entry.WorkspaceID,
		entry.EntityType,
		entry.EntityID,
		data,
		string(entry.Status),
		entry.ErrorMessage,
		entry.CreatedAt,
	)
	return err
}

// GetByID loads a single entry.
func (r *PostgresEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*events.Entry, error) {
	row := r.pool.QueryRow(ctx, pgEntrySelect+` WHERE id = $1`, id)
	entry, err := scanPgEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return entry, nil
}

// FinishDispatch transitions pending→{processed,failed} exactly once.
func (r *PostgresEventRepository) FinishDispatch(ctx context.Context, id uuid.UUID, status events.Status, errorMessage string, processedAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE event_log
		SET status = $1, error_message = $2, processed_at = $3
		WHERE id = $4 AND status = $5`,
		string(status),
		errorMessage,
		processedAt,
		id,
		string(events.StatusPending),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListStuckPending returns pending entries older than the cutoff.
func (r *PostgresEventRepository) ListStuckPending(ctx context.Context, cutoff time.Time, limit int) ([]*events.Entry, error) {
	rows, err := r.pool.Query(ctx, pgEntrySelect+`
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC
		LIMIT $3`,
		string(events.StatusPending),
		cutoff,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*events.Entry
	for rows.Next() {
		entry, err := scanPgEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

const pgEntrySelect = `
	SELECT id, event_type, workspace_id, entity_type, entity_id,
		event_data, status, error_message, created_at, processed_at
	FROM event_log`

func scanPgEntry(row rowScanner) (*events.Entry, error) {
	var entry events.Entry
	var typeStr, statusStr string
	var entityType, errorMessage *string
	var data []byte

	err := row.Scan(
		&entry.ID,
		&typeStr,
		&entry.WorkspaceID,
		&entityType,
		&entry.EntityID,
		&data,
		&statusStr,
		&errorMessage,
		&entry.CreatedAt,
		&entry.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.Type = events.Type(typeStr)
	entry.Status = events.Status(statusStr)
	if entityType != nil {
		entry.EntityType = *entityType
	}
	if errorMessage != nil {
		entry.ErrorMessage = *errorMessage
	}

	if err := json.Unmarshal(data, &entry.Data); err != nil {
		return nil, err
	}
	return &entry, nil
}
