package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CaptainRedCodes/CareOps/internal/booking/domain"
	"github.com/CaptainRedCodes/CareOps/internal/events"
	eventlog "github.com/CaptainRedCodes/CareOps/internal/events/persistence"
	shared "github.com/CaptainRedCodes/CareOps/internal/shared/domain"
)

// SQLiteBookingStore implements domain.BookingRepository and
// domain.CreationStore. SQLite has a single writer, so the booking-type
// lock is a process-level keyed mutex around a transaction; the mutex
// provides the revalidation window, the transaction the atomic commit of
// booking, contact and event rows.
type SQLiteBookingStore struct {
	db *sql.DB

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewSQLiteBookingStore creates the SQLite booking store.
func NewSQLiteBookingStore(db *sql.DB) *SQLiteBookingStore {
	return &SQLiteBookingStore{
		db:    db,
		locks: make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *SQLiteBookingStore) lockFor(bookingTypeID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[bookingTypeID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[bookingTypeID] = lock
	}
	return lock
}

// WithLock serializes booking creation per booking type and wraps fn in
// a transaction.
func (s *SQLiteBookingStore) WithLock(ctx context.Context, workspaceID, bookingTypeID uuid.UUID, fn func(tx domain.CreationTx) error) error {
	lock := s.lockFor(bookingTypeID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(&sqliteCreationTx{tx: tx}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// GetByID loads one booking.
func (s *SQLiteBookingStore) GetByID(ctx context.Context, workspaceID, bookingID uuid.UUID) (*domain.Booking, error) {
	query := bookingSelect + ` WHERE id = ? AND workspace_id = ?`
	row := s.db.QueryRowContext(ctx, query, bookingID.String(), workspaceID.String())
	booking, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}

// Update writes back a mutated booking.
func (s *SQLiteBookingStore) Update(ctx context.Context, booking *domain.Booking) error {
	var completedAt, completedBy any
	if t := booking.CompletedAt(); t != nil {
		completedAt = t.Format(time.RFC3339Nano)
	}
	if id := booking.CompletedBy(); id != nil {
		completedBy = id.String()
	}

	query := `
		UPDATE bookings SET
			status = ?, readiness_status = ?, reservation_status = ?,
			customer_notes = ?, staff_notes = ?,
			completed_at = ?, completed_by = ?, updated_at = ?
		WHERE id = ? AND workspace_id = ?
	`
	_, err := s.db.ExecContext(ctx, query,
		string(booking.Status()),
		string(booking.Readiness()),
		string(booking.Reservation()),
		booking.CustomerNotes(),
		booking.StaffNotes(),
		completedAt,
		completedBy,
		booking.UpdatedAt().Format(time.RFC3339Nano),
		booking.ID().String(),
		booking.WorkspaceID().String(),
	)
	return err
}

// ListOverlapping implements the half-open overlap predicate in SQL.
func (s *SQLiteBookingStore) ListOverlapping(ctx context.Context, bookingTypeID uuid.UUID, start, end time.Time, statuses []domain.Status) ([]*domain.Booking, error) {
	return listOverlapping(ctx, s.db, bookingTypeID, start, end, statuses)
}

type sqliteCreationTx struct {
	tx *sql.Tx
}

func (t *sqliteCreationTx) ListOverlapping(ctx context.Context, bookingTypeID uuid.UUID, start, end time.Time, statuses []domain.Status) ([]*domain.Booking, error) {
	return listOverlapping(ctx, t.tx, bookingTypeID, start, end, statuses)
}

func (t *sqliteCreationTx) FindContact(ctx context.Context, workspaceID uuid.UUID, email, phone string) (*domain.Contact, error) {
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

func (t *sqliteCreationTx) findContactBy(ctx context.Context, workspaceID uuid.UUID, column, value string) (*domain.Contact, error) {
	query := `
		SELECT id, workspace_id, name, email, phone, created_at, updated_at
		FROM contacts
		WHERE workspace_id = ? AND ` + column + ` = ?
	`
	row := t.tx.QueryRowContext(ctx, query, workspaceID.String(), value)

	var contact domain.Contact
	var idStr, workspaceStr, createdAtStr, updatedAtStr string
	var email, phone sql.NullString

	err := row.Scan(&idStr, &workspaceStr, &contact.Name, &email, &phone, &createdAtStr, &updatedAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrContactNotFound
		}
		return nil, err
	}

	contact.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	contact.WorkspaceID, err = uuid.Parse(workspaceStr)
	if err != nil {
		return nil, err
	}
	contact.Email = email.String
	contact.Phone = phone.String

	contact.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return nil, err
	}
	contact.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAtStr)
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

func (t *sqliteCreationTx) InsertContact(ctx context.Context, contact *domain.Contact) error {
	query := `
		INSERT INTO contacts (id, workspace_id, name, email, phone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := t.tx.ExecContext(ctx, query,
		contact.ID.String(),
		contact.WorkspaceID.String(),
		contact.Name,
		contact.Email,
		contact.Phone,
		contact.CreatedAt.Format(time.RFC3339Nano),
		contact.UpdatedAt.Format(time.RFC3339Nano),
	)
	return err
}

func (t *sqliteCreationTx) InsertBooking(ctx context.Context, booking *domain.Booking) error {
	query := `
		INSERT INTO bookings (
			id, workspace_id, contact_id, booking_type_id,
			start_time, end_time, status, readiness_status, reservation_status,
			customer_notes, staff_notes, completed_at, completed_by,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL, ?, ?)
	`
	_, err := t.tx.ExecContext(ctx, query,
		booking.ID().String(),
		booking.WorkspaceID().String(),
		booking.ContactID().String(),
		booking.BookingTypeID().String(),
		booking.StartTime().Format(time.RFC3339Nano),
		booking.EndTime().Format(time.RFC3339Nano),
		string(booking.Status()),
		string(booking.Readiness()),
		string(booking.Reservation()),
		booking.CustomerNotes(),
		booking.StaffNotes(),
		booking.CreatedAt().Format(time.RFC3339Nano),
		booking.UpdatedAt().Format(time.RFC3339Nano),
	)
	return err
}

func (t *sqliteCreationTx) AppendEvent(ctx context.Context, entry *events.Entry) error {
	data, err := json.Marshal(entry.Data)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO event_log (
			id, event_type, workspace_id, entity_type, entity_id,
			event_data, status, error_message, created_at, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`
	_, err = t.tx.ExecContext(ctx, query,
		entry.ID.String(),
		string(entry.Type),
		entry.WorkspaceID.String(),
		entry.EntityType,
		entry.EntityID.String(),
		string(data),
		string(entry.Status),
		entry.ErrorMessage,
		entry.CreatedAt.Format(eventlog.TimeFormat),
	)
	return err
}

type sqlExecutor interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listOverlapping(ctx context.Context, q sqlExecutor, bookingTypeID uuid.UUID, start, end time.Time, statuses []domain.Status) ([]*domain.Booking, error) {
	placeholders := make([]string, len(statuses))
	args := []any{
		bookingTypeID.String(),
		end.UTC().Format(time.RFC3339Nano),
		start.UTC().Format(time.RFC3339Nano),
	}
	for i, status := range statuses {
		placeholders[i] = "?"
		args = append(args, string(status))
	}

	query := bookingSelect + `
		WHERE booking_type_id = ?
		AND start_time < ?
		AND end_time > ?
		AND status IN (` + strings.Join(placeholders, ", ") + `)`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

const bookingSelect = `
	SELECT id, workspace_id, contact_id, booking_type_id,
		start_time, end_time, status, readiness_status, reservation_status,
		customer_notes, staff_notes, completed_at, completed_by,
		created_at, updated_at
	FROM bookings`

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var idStr, workspaceStr, contactStr, typeStr string
	var startStr, endStr, statusStr, readinessStr, reservationStr string
	var customerNotes, staffNotes, completedAtStr, completedByStr sql.NullString
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&idStr, &workspaceStr, &contactStr, &typeStr,
		&startStr, &endStr, &statusStr, &readinessStr, &reservationStr,
		&customerNotes, &staffNotes, &completedAtStr, &completedByStr,
		&createdAtStr, &updatedAtStr,
	)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	workspaceID, err := uuid.Parse(workspaceStr)
	if err != nil {
		return nil, err
	}
	contactID, err := uuid.Parse(contactStr)
	if err != nil {
		return nil, err
	}
	bookingTypeID, err := uuid.Parse(typeStr)
	if err != nil {
		return nil, err
	}

	startTime, err := time.Parse(time.RFC3339Nano, startStr)
	if err != nil {
		return nil, err
	}
	endTime, err := time.Parse(time.RFC3339Nano, endStr)
	if err != nil {
		return nil, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return nil, err
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, updatedAtStr)
	if err != nil {
		return nil, err
	}

	var completedAt *time.Time
	if completedAtStr.Valid {
		t, err := time.Parse(time.RFC3339Nano, completedAtStr.String)
		if err != nil {
			return nil, err
		}
		completedAt = &t
	}
	var completedBy *uuid.UUID
	if completedByStr.Valid {
		u, err := uuid.Parse(completedByStr.String)
		if err != nil {
			return nil, err
		}
		completedBy = &u
	}

	return domain.RehydrateBooking(
		shared.RehydrateBaseEntity(id, createdAt, updatedAt),
		workspaceID, contactID, bookingTypeID,
		startTime, endTime,
		domain.Status(statusStr),
		domain.ReadinessStatus(readinessStr),
		domain.ReservationStatus(reservationStr),
		customerNotes.String, staffNotes.String,
		completedAt, completedBy,
	), nil
}
