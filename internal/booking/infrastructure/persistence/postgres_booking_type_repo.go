package persistence

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CaptainRedCodes/CareOps/internal/booking/domain"
)

// PostgresBookingTypeRepository implements domain.BookingTypeRepository
// on pgx. Availability rules are loaded eagerly with their booking type.
type PostgresBookingTypeRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresBookingTypeRepository creates the repository.
func NewPostgresBookingTypeRepository(pool *pgxpool.Pool) *PostgresBookingTypeRepository {
	return &PostgresBookingTypeRepository{pool: pool}
}

// Create inserts the booking type and its availability rules atomically.
func (r *PostgresBookingTypeRepository) Create(ctx context.Context, bt *domain.BookingType) error {
	linkedForms, err := json.Marshal(uuidStrings(bt.LinkedFormIDs))
	if err != nil {
		return err
	}
	requirements, err := json.Marshal(bt.InventoryRequirements)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO booking_types (
			id, workspace_id, name, duration_minutes, buffer_minutes,
			max_advance_days, linked_form_ids, inventory_requirements,
			is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		bt.ID,
		bt.WorkspaceID,
		bt.Name,
		bt.DurationMinutes,
		bt.BufferMinutes,
		bt.MaxAdvanceDays,
		linkedForms,
		requirements,
		bt.IsActive,
		bt.CreatedAt,
		bt.UpdatedAt,
	)
	if err != nil {
		return err
	}

	for _, rule := range bt.Rules {
		_, err = tx.Exec(ctx, `
			INSERT INTO availability_rules (
				id, booking_type_id, day_of_week, start_minute, end_minute, is_active
			) VALUES ($1, $2, $3, $4, $5, $6)`,
			rule.ID,
			rule.BookingTypeID,
			rule.DayOfWeek,
			rule.StartMinute,
			rule.EndMinute,
			rule.IsActive,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// GetByID loads one booking type with its rules.
func (r *PostgresBookingTypeRepository) GetByID(ctx context.Context, workspaceID, bookingTypeID uuid.UUID) (*domain.BookingType, error) {
	row := r.pool.QueryRow(ctx,
		pgBookingTypeSelect+` WHERE id = $1 AND workspace_id = $2`,
		bookingTypeID, workspaceID,
	)
	bt, err := scanPgBookingType(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
func (r *PostgresBookingTypeRepository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*domain.BookingType, error) {
	rows, err := r.pool.Query(ctx,
		pgBookingTypeSelect+` WHERE workspace_id = $1 ORDER BY name ASC`,
		workspaceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []*domain.BookingType
	for rows.Next() {
		bt, err := scanPgBookingType(rows)
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

func (r *PostgresBookingTypeRepository) loadRules(ctx context.Context, bookingTypeID uuid.UUID) ([]domain.AvailabilityRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, booking_type_id, day_of_week, start_minute, end_minute, is_active
		FROM availability_rules
		WHERE booking_type_id = $1
		ORDER BY day_of_week ASC, start_minute ASC`,
		bookingTypeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []domain.AvailabilityRule
	for rows.Next() {
		var rule domain.AvailabilityRule
		err := rows.Scan(&rule.ID, &rule.BookingTypeID, &rule.DayOfWeek, &rule.StartMinute, &rule.EndMinute, &rule.IsActive)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

const pgBookingTypeSelect = `
	SELECT id, workspace_id, name, duration_minutes, buffer_minutes,
		max_advance_days, linked_form_ids, inventory_requirements,
		is_active, created_at, updated_at
	FROM booking_types`

func scanPgBookingType(row pgxRowScanner) (*domain.BookingType, error) {
	var bt domain.BookingType
	var linkedForms, requirements []byte

	err := row.Scan(
		&bt.ID,
		&bt.WorkspaceID,
		&bt.Name,
		&bt.DurationMinutes,
		&bt.BufferMinutes,
		&bt.MaxAdvanceDays,
		&linkedForms,
		&requirements,
		&bt.IsActive,
		&bt.CreatedAt,
		&bt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	var formStrs []string
	if err := json.Unmarshal(linkedForms, &formStrs); err != nil {
		return nil, err
	}
	for _, s := range formStrs {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		bt.LinkedFormIDs = append(bt.LinkedFormIDs, id)
	}

	if err := json.Unmarshal(requirements, &bt.InventoryRequirements); err != nil {
		return nil, err
	}
	return &bt, nil
}
