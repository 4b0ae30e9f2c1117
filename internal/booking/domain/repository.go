package domain

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/CaptainRedCodes/CareOps/internal/events"
)

// BookingTypeRepository persists booking types with their availability
// rules.
type BookingTypeRepository interface {
	Create(ctx context.Context, bt *BookingType) error
	GetByID(ctx context.Context, workspaceID, bookingTypeID uuid.UUID) (*BookingType, error)
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*BookingType, error)
}

// BookingRepository is the read/update surface for existing bookings.
// Creation goes through CreationStore so revalidation, insert and event
// append share one lock and transaction.
type BookingRepository interface {
	GetByID(ctx context.Context, workspaceID, bookingID uuid.UUID) (*Booking, error)
	Update(ctx context.Context, booking *Booking) error

	// ListOverlapping returns bookings of the type whose half-open
	// interval intersects [start, end) and whose status is in statuses.
	ListOverlapping(ctx context.Context, bookingTypeID uuid.UUID, start, end time.Time, statuses []Status) ([]*Booking, error)
}

// CreationTx is the operation set available while the booking-type lock
// is held. Everything it writes commits atomically with the lock release.
type CreationTx interface {
	ListOverlapping(ctx context.Context, bookingTypeID uuid.UUID, start, end time.Time, statuses []Status) ([]*Booking, error)

	// FindContact looks up by email first, phone second.
	FindContact(ctx context.Context, workspaceID uuid.UUID, email, phone string) (*Contact, error)
	InsertContact(ctx context.Context, contact *Contact) error

	InsertBooking(ctx context.Context, booking *Booking) error

	// AppendEvent records a pending event log entry inside the
	// transaction. Dispatch happens after commit, outside the lock.
	AppendEvent(ctx context.Context, entry *events.Entry) error
}

// CreationStore serializes booking creation per booking type. WithLock
// acquires an exclusive lock on the booking type, runs fn inside a
// transaction, and commits when fn returns nil.
type CreationStore interface {
	WithLock(ctx context.Context, workspaceID, bookingTypeID uuid.UUID, fn func(tx CreationTx) error) error
}
