package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// SQLitePauseRegistry implements domain.PauseRegistry on the
// automation_paused_contacts table. Row existence is the entire state.
type SQLitePauseRegistry struct {
	db *sql.DB
}

// NewSQLitePauseRegistry creates a new SQLite pause registry.
func NewSQLitePauseRegistry(db *sql.DB) *SQLitePauseRegistry {
	return &SQLitePauseRegistry{db: db}
}

// Pause marks the contact as paused. Pausing an already-paused contact is
// a no-op.
func (r *SQLitePauseRegistry) Pause(ctx context.Context, workspaceID, contactID uuid.UUID) error {
	query := `
		INSERT INTO automation_paused_contacts (workspace_id, contact_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (workspace_id, contact_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		workspaceID.String(),
		contactID.String(),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// Resume lifts the pause. Resuming a non-paused contact is a no-op.
func (r *SQLitePauseRegistry) Resume(ctx context.Context, workspaceID, contactID uuid.UUID) error {
	query := `DELETE FROM automation_paused_contacts WHERE workspace_id = ? AND contact_id = ?`
	_, err := r.db.ExecContext(ctx, query, workspaceID.String(), contactID.String())
	return err
}

// IsPaused reports whether the contact is currently paused.
func (r *SQLitePauseRegistry) IsPaused(ctx context.Context, workspaceID, contactID uuid.UUID) (bool, error) {
	query := `
		SELECT COUNT(1) FROM automation_paused_contacts
		WHERE workspace_id = ? AND contact_id = ?
	`
	var count int
	err := r.db.QueryRowContext(ctx, query, workspaceID.String(), contactID.String()).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
