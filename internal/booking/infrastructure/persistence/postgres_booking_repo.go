package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CaptainRedCodes/CareOps/internal/booking/domain"
	"github.com/CaptainRedCodes/CareOps/internal/events"
	shared "github.com/CaptainRedCodes/CareOps/internal/shared/domain"
)

// PostgresBookingStore implements domain.BookingRepository and
// domain.CreationStore on pgx. The booking-type lock is a SELECT ... FOR
// UPDATE on the booking type row, so creation is serialized across
// processes, not just within one.
type PostgresBookingStore struct {
	pool *pgxpool.Pool
}

// NewPostgresBookingStore creates the Postgres booking store.
func NewPostgresBookingStore(pool *pgxpool.Pool) *PostgresBookingStore {
	return &PostgresBookingStore{pool: pool}
}

// WithLock locks the booking type row for the duration of fn's
// transaction.
func (s *PostgresBookingStore) WithLock(ctx context.Context, workspaceID, bookingTypeID uuid.UUID, fn func(tx domain.CreationTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var lockedID uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT id FROM booking_types WHERE id = $1 AND workspace_id = $2 FOR UPDATE`,
		bookingTypeID, workspaceID,
	).Scan(&lockedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrBookingTypeNotFound
		}
		return err
	}

	if err := fn(&pgxCreationTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetByID loads one booking.
func (s *PostgresBookingStore) GetByID(ctx context.Context, workspaceID, bookingID uuid.UUID) (*domain.Booking, error) {
	row := s.pool.QueryRow(ctx,
		pgBookingSelect+` WHERE id = $1 AND workspace_id = $2`,
		bookingID, workspaceID,
	)
	booking, err := scanPgBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}

// Update writes back a mutated booking.
func (s *PostgresBookingStore) Update(ctx context.Context, booking *domain.Booking) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE bookings SET
			status = $1, readiness_status = $2, reservation_status = $3,
			customer_notes = $4, staff_notes = $5,
			completed_at = $6, completed_by = $7, updated_at = $8
		WHERE id = $9 AND workspace_id = $10`,
		string(booking.Status()),
		string(booking.Readiness()),
		string(booking.Reservation()),
		booking.CustomerNotes(),
		booking.StaffNotes(),
		booking.CompletedAt(),
		booking.CompletedBy(),
		booking.UpdatedAt(),
		booking.ID(),
		booking.WorkspaceID(),
	)
	return err
}

// ListOverlapping implements the half-open overlap predicate in SQL.
func (s *PostgresBookingStore) ListOverlapping(ctx context.Context, bookingTypeID uuid.UUID, start, end time.Time, statuses []domain.Status) ([]*domain.Booking, error) {
	return pgListOverlapping(ctx, s.pool, bookingTypeID, start, end, statuses)
}

type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type pgxCreationTx struct {
	tx pgx.Tx
}

func (t *pgxCreationTx) ListOverlapping(ctx context.Context, bookingTypeID uuid.UUID, start, end time.Time, statuses []domain.Status) ([]*domain.Booking, error) {
	return pgListOverlapping(ctx, t.tx, bookingTypeID, start, end, statuses)
}

func (t *pgxCreationTx) FindContact(ctx context.Context, workspaceID uuid.UUID, email, phone string) (*domain.Contact, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	phone = strings.TrimSpace(phone)

	if email != "" {
		contact, err := t.findContactBy(ctx, workspaceID, "email", email)
		if err == nil || !errors.Is(err, domain.ErrContactNotFound) {
			return contact, err
		}
	}
	if phone != "" {
		return t.findContactBy(ctx, workspaceID, "phone", phone)
	}
	return nil, domain.ErrContactNotFound
}

func (t *pgxCreationTx) findContactBy(ctx context.Context, workspaceID uuid.UUID, column, value string) (*domain.Contact, error) {
	query := `
		SELECT id, workspace_id, name, email, phone, created_at, updated_at
		FROM contacts
		WHERE workspace_id = $1 AND ` + column + ` = $2
	`
	row := t.tx.QueryRow(ctx, query, workspaceID, value)

	var contact domain.Contact
	err := row.Scan(
		&contact.ID,
		&contact.WorkspaceID,
		&contact.Name,
		&contact.Email,
		&contact.Phone,
		&contact.CreatedAt,
		&contact.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrContactNotFound
		}
		return nil, err
	}
	return &contact, nil
}

func (t *pgxCreationTx) InsertContact(ctx context.Context, contact *domain.Contact) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO contacts (id, workspace_id, name, email, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		contact.ID,
		contact.WorkspaceID,
		contact.Name,
		contact.Email,
		contact.Phone,
		contact.CreatedAt,
		contact.UpdatedAt,
	)
	return err
}

func (t *pgxCreationTx) InsertBooking(ctx context.Context, booking *domain.Booking) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO bookings (
			id, workspace_id, contact_id, booking_type_id,
			start_time, end_time, status, readiness_status, reservation_status,
			customer_notes, staff_notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		booking.ID(),
		booking.WorkspaceID(),
		booking.ContactID(),
		booking.BookingTypeID(),
		booking.StartTime(),
		booking.EndTime(),
		string(booking.Status()),
		string(booking.Readiness()),
		string(booking.Reservation()),
		booking.CustomerNotes(),
		booking.StaffNotes(),
		booking.CreatedAt(),
		booking.UpdatedAt(),
	)
	return err
}

func (t *pgxCreationTx) AppendEvent(ctx context.Context, entry *events.Entry) error {
	data, err := json.Marshal(entry.Data)
	if err != nil {
		return err
	}

	_, err = t.tx.Exec(ctx, `
		INSERT INTO event_log (
			id, event_type, workspace_id, entity_type, entity_id,
			event_data, status, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
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

const pgBookingSelect = `
	SELECT id, workspace_id, contact_id, booking_type_id,
		start_time, end_time, status, readiness_status, reservation_status,
		customer_notes, staff_notes, completed_at, completed_by,
		created_at, updated_at
	FROM bookings`

func pgListOverlapping(ctx context.Context, q pgxQuerier, bookingTypeID uuid.UUID, start, end time.Time, statuses []domain.Status) ([]*domain.Booking, error) {
	statusStrs := make([]string, len(statuses))
	for i, s := range statuses {
		statusStrs[i] = string(s)
	}

	rows, err := q.Query(ctx, pgBookingSelect+`
		WHERE booking_type_id = $1
		AND start_time < $2
		AND end_time > $3
		AND status = ANY($4)`,
		bookingTypeID, end, start, statusStrs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		booking, err := scanPgBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

type pgxRowScanner interface {
	Scan(dest ...any) error
}

func scanPgBooking(row pgxRowScanner) (*domain.Booking, error) {
	var (
		id, workspaceID, contactID, bookingTypeID uuid.UUID
		startTime, endTime, createdAt, updatedAt  time.Time
		statusStr, readinessStr, reservationStr   string
		customerNotes, staffNotes                 string
		completedAt                               *time.Time
		completedBy                               *uuid.UUID
	)

	err := row.Scan(
		&id, &workspaceID, &contactID, &bookingTypeID,
		&startTime, &endTime, &statusStr, &readinessStr, &reservationStr,
		&customerNotes, &staffNotes, &completedAt, &completedBy,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	return domain.RehydrateBooking(
		shared.RehydrateBaseEntity(id, createdAt, updatedAt),
		workspaceID, contactID, bookingTypeID,
		startTime, endTime,
		domain.Status(statusStr),
		domain.ReadinessStatus(readinessStr),
		domain.ReservationStatus(reservationStr),
		customerNotes, staffNotes,
		completedAt, completedBy,
	), nil
}
