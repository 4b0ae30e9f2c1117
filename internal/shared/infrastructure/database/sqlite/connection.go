// Package sqlite provides the local-mode SQLite connection.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Open opens a SQLite database at the given path.
//
// Pragmas:
//   - journal_mode=WAL: Write-Ahead Logging for better concurrency
//   - foreign_keys=ON: enforce foreign key constraints
//   - busy_timeout=5000: wait 5s on lock instead of failing immediately
//   - synchronous=NORMAL: good balance of safety and speed
func Open(ctx context.Context, path string) (*sql.DB, error) {
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&"
	} else {
		dsn += "?"
	}
	dsn += "_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// SQLite doesn't support multiple writers, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	return db, nil
}

// EnsureSchema creates the core tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS booking_types (
			id TEXT PRIMARY KEY,
			workspace_id TEXT NOT NULL,
			name TEXT NOT NULL,
			duration_minutes INTEGER NOT NULL,
			buffer_minutes INTEGER NOT NULL,
			max_advance_days INTEGER NOT NULL,
			linked_form_ids TEXT NOT NULL,
			inventory_requirements TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS availability_rules (
			id TEXT PRIMARY KEY,
			booking_type_id TEXT NOT NULL REFERENCES booking_types(id),
			day_of_week INTEGER NOT NULL,
			start_minute INTEGER NOT NULL,
			end_minute INTEGER NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS contacts (
			id TEXT PRIMARY KEY,
			workspace_id TEXT NOT NULL,
			name TEXT NOT NULL,
			email TEXT,
			phone TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id TEXT PRIMARY KEY,
			workspace_id TEXT NOT NULL,
			contact_id TEXT NOT NULL REFERENCES contacts(id),
			booking_type_id TEXT NOT NULL REFERENCES booking_types(id),
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			status TEXT NOT NULL,
			readiness_status TEXT NOT NULL,
			reservation_status TEXT NOT NULL,
			customer_notes TEXT,
			staff_notes TEXT,
			completed_at TEXT,
			completed_by TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_type_time
			ON bookings(booking_type_id, start_time)`,
		`CREATE TABLE IF NOT EXISTS event_log (
			id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			workspace_id TEXT NOT NULL,
			entity_type TEXT,
			entity_id TEXT,
			event_data TEXT NOT NULL,
			status TEXT NOT NULL,
			error_message TEXT,
			created_at TEXT NOT NULL,
			processed_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_event_log_status
			ON event_log(status, created_at)`,
		`CREATE TABLE IF NOT EXISTS automation_rules (
			id TEXT PRIMARY KEY,
			workspace_id TEXT NOT NULL,
			name TEXT NOT NULL,
			event_type TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1,
			priority INTEGER NOT NULL,
			action_type TEXT NOT NULL,
			action_subject TEXT NOT NULL,
			action_message TEXT NOT NULL,
			conditions TEXT NOT NULL,
			stop_on_reply INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS automation_logs (
			id TEXT PRIMARY KEY,
			workspace_id TEXT NOT NULL,
			rule_id TEXT,
			event_type TEXT NOT NULL,
			trigger_data TEXT NOT NULL,
			action_type TEXT NOT NULL,
			status TEXT NOT NULL,
			recipient TEXT,
			subject TEXT,
			message TEXT,
			error_message TEXT,
			stopped INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS automation_paused_contacts (
			workspace_id TEXT NOT NULL,
			contact_id TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (workspace_id, contact_id)
		)`,
		`CREATE TABLE IF NOT EXISTS inventory_items (
			id TEXT PRIMARY KEY,
			workspace_id TEXT NOT NULL,
			name TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			unit TEXT NOT NULL,
			low_stock_threshold INTEGER NOT NULL,
			vendor_email TEXT,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS inventory_usage (
			id TEXT PRIMARY KEY,
			item_id TEXT NOT NULL REFERENCES inventory_items(id),
			workspace_id TEXT NOT NULL,
			booking_id TEXT,
			quantity_used INTEGER NOT NULL,
			notes TEXT,
			created_at TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
