package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the tables the Postgres-backed stores use. The
// booking write path, the event log and the inventory stores all live in
// the same database so their rows commit in one transaction.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS booking_types (
			id UUID PRIMARY KEY,
			workspace_id UUID NOT NULL,
			name TEXT NOT NULL,
			duration_minutes INTEGER NOT NULL,
			buffer_minutes INTEGER NOT NULL,
			max_advance_days INTEGER NOT NULL,
			linked_form_ids JSONB NOT NULL,
			inventory_requirements JSONB NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS availability_rules (
			id UUID PRIMARY KEY,
			booking_type_id UUID NOT NULL REFERENCES booking_types(id),
			day_of_week INTEGER NOT NULL,
			start_minute INTEGER NOT NULL,
			end_minute INTEGER NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS contacts (
			id UUID PRIMARY KEY,
			workspace_id UUID NOT NULL,
			name TEXT NOT NULL,
			email TEXT,
			phone TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id UUID PRIMARY KEY,
			workspace_id UUID NOT NULL,
			contact_id UUID NOT NULL REFERENCES contacts(id),
			booking_type_id UUID NOT NULL REFERENCES booking_types(id),
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL,
			readiness_status TEXT NOT NULL,
			reservation_status TEXT NOT NULL,
			customer_notes TEXT,
			staff_notes TEXT,
			completed_at TIMESTAMPTZ,
			completed_by UUID,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_type_time
			ON bookings(booking_type_id, start_time)`,
		`CREATE TABLE IF NOT EXISTS event_log (
			id UUID PRIMARY KEY,
			event_type TEXT NOT NULL,
			workspace_id UUID NOT NULL,
			entity_type TEXT,
			entity_id UUID,
			event_data JSONB NOT NULL,
			status TEXT NOT NULL,
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			processed_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_event_log_status
			ON event_log(status, created_at)`,
		`CREATE TABLE IF NOT EXISTS inventory_items (
			id UUID PRIMARY KEY,
			workspace_id UUID NOT NULL,
			name TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			unit TEXT NOT NULL,
			low_stock_threshold INTEGER NOT NULL,
			vendor_email TEXT,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS inventory_usage (
			id UUID PRIMARY KEY,
			item_id UUID NOT NULL REFERENCES inventory_items(id),
			workspace_id UUID NOT NULL,
			booking_id UUID,
			quantity_used INTEGER NOT NULL,
			notes TEXT,
			created_at TIMESTAMPTZ NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
