// Package persistence provides the SQLite booking repositories.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/CaptainRedCodes/CareOps/internal/booking/domain"
)

// SQLiteBookingTypeRepository implements domain.BookingTypeRepository.
// Availability rules are loaded eagerly with their booking type.
type SQLiteBookingTypeRepository struct {
	db *sql.DB
}

// NewSQLiteBookingTypeRepository creates a new booking type repository.
func NewSQLiteBookingTypeRepository(db *sql.DB) *SQLiteBookingTypeRepository {
	return &SQLiteBookingTypeRepository{db: db}
}

// Create inserts the booking type and its availability rules atomically.
func (r *SQLiteBookingTypeRepository) Create(ctx context.Context, bt *domain.BookingType) error {
	linkedForms, err := json.Marshal(uuidStrings(bt.LinkedFormIDs))
	if err != nil {
		return err
	}
	requirements, err := json.Marshal(bt.InventoryRequirements)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO booking_types (
			id, workspace_id, name, duration_minutes, buffer_minutes,
			max_advance_days, linked_form_ids, inventory_requirements,
			is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		bt.ID.String(),
		bt.WorkspaceID.String(),
		bt.Name,
		bt.DurationMinutes,
		bt.BufferMinutes,
		bt.MaxAdvanceDays,
		string(linkedForms),
		string(requirements),
		boolToInt(bt.IsActive),
		bt.CreatedAt.Format(time.RFC3339Nano),
		bt.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}

	ruleQuery := `
		INSERT INTO availability_rules (
			id, booking_type_id, day_of_week, start_minute, end_minute, is_active
		) VALUES (?, ?, ?, ?, ?, ?)
	`
	for _, rule := range bt.Rules {
		_, err = tx.ExecContext(ctx, ruleQuery,
			rule.ID.String(),
			rule.BookingTypeID.String(),
			rule.DayOfWeek,
			rule.StartMinute,
			rule.EndMinute,
			boolToInt(rule.IsActive),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByID loads one booking type with its rules.
func (r *SQLiteBookingTypeRepository) GetByID(ctx context.Context, workspaceID, bookingTypeID uuid.UUID) (*domain.BookingType, error) {
	query := bookingTypeSelect + ` WHERE id = ? AND workspace_id = ?`
	row := r.db.QueryRowContext(ctx, query, bookingTypeID.String(), workspaceID.String())
	bt, err := scanBookingType(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBookingTypeNotFound
		}
		return nil, err
	}

	bt.Rules, err = r.loadRules(ctx, bt.ID)
	if err != nil {
		return nil, err
	}
	return bt, nil
}

// ListByWorkspace returns all booking types for a workspace with rules.
func (r *SQLiteBookingTypeRepository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*domain.BookingType, error) {
	query := bookingTypeSelect + ` WHERE workspace_id = ? ORDER BY name ASC`
	rows, err := r.db.QueryContext(ctx, query, workspaceID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []*domain.BookingType
	for rows.Next() {
		bt, err := scanBookingType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, bt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, bt := range types {
		bt.Rules, err = r.loadRules(ctx, bt.ID)
		if err != nil {
			return nil, err
		}
	}
	return types, nil
}

func (r *SQLiteBookingTypeRepository) loadRules(ctx context.Context, bookingTypeID uuid.UUID) ([]domain.AvailabilityRule, error) {
	query := `
		SELECT id, booking_type_id, day_of_week, start_minute, end_minute, is_active
		FROM availability_rules
		WHERE booking_type_id = ?
		ORDER BY day_of_week ASC, start_minute ASC
	`
	rows, err := r.db.QueryContext(ctx, query, bookingTypeID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []domain.AvailabilityRule
	for rows.Next() {
		var rule domain.AvailabilityRule
		var idStr, typeIDStr string
		var isActive int

		err := rows.Scan(&idStr, &typeIDStr, &rule.DayOfWeek, &rule.StartMinute, &rule.EndMinute, &isActive)
		if err != nil {
			return nil, err
		}
		rule.ID, err = uuid.Parse(idStr)
		if err != nil {
			return nil, err
		}
		rule.BookingTypeID, err = uuid.Parse(typeIDStr)
		if err != nil {
			return nil, err
		}
		rule.IsActive = isActive == 1
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

const bookingTypeSelect = `
	SELECT id, workspace_id, name, duration_minutes, buffer_minutes,
		max_advance_days, linked_form_ids, inventory_requirements,
		is_active, created_at, updated_at
	FROM booking_types`

func scanBookingType(row rowScanner) (*domain.BookingType, error) {
	var bt domain.BookingType
	var idStr, workspaceStr, linkedFormsStr, requirementsStr, createdAtStr, updatedAtStr string
	var isActive int

	err := row.Scan(
		&idStr,
		&workspaceStr,
		&bt.Name,
		&bt.DurationMinutes,
		&bt.BufferMinutes,
		&bt.MaxAdvanceDays,
		&linkedFormsStr,
		&requirementsStr,
		&isActive,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return nil, err
	}

	bt.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	bt.WorkspaceID, err = uuid.Parse(workspaceStr)
	if err != nil {
		return nil, err
	}
	bt.IsActive = isActive == 1

	var formStrs []string
	if err := json.Unmarshal([]byte(linkedFormsStr), &formStrs); err != nil {
		return nil, err
	}
	for _, s := range formStrs {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		bt.LinkedFormIDs = append(bt.LinkedFormIDs, id)
	}

	if err := json.Unmarshal([]byte(requirementsStr), &bt.InventoryRequirements); err != nil {
		return nil, err
	}

	bt.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return nil, err
	}
	bt.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAtStr)
	if err != nil {
		return nil, err
	}

	return &bt, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

type rowScanner interface {
	Scan(dest ...any) error
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
