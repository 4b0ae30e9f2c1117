package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	shared "github.com/CaptainRedCodes/CareOps/internal/shared/domain"
)

// Common errors for bookings.
var (
	ErrBookingNotFound = errors.New("booking not found")

	// ErrSlotConflict is the write-path revalidation failure: the
	// requested interval overlaps an active booking. Distinct from
	// validation errors so callers can map it to a conflict response.
	ErrSlotConflict = errors.New("slot conflicts with an existing booking")

	// ErrPrematureCompletion rejects completing a booking before its
	// start time.
	ErrPrematureCompletion = errors.New("booking cannot be completed before its start time")
)

// InvalidTransitionError reports a status change that is not in the
// transition table. The booking is left unchanged.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid booking transition from %s to %s", e.From, e.To)
}

// Status is the booking lifecycle state.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
	StatusCancelled Status = "cancelled"
)

// transitionTable is the complete set of legal status changes. Terminal
// states have no outgoing transitions.
var transitionTable = map[Status][]Status{
	StatusScheduled: {StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
	StatusCompleted: {},
	StatusNoShow:    {},
	StatusCancelled: {},
}

// CanTransition reports whether from→to is in the transition table.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitionTable[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ActiveStatuses are the statuses that occupy a slot for conflict
// purposes.
func ActiveStatuses() []Status {
	return []Status{StatusScheduled, StatusConfirmed}
}

// ReadinessStatus tracks whether the contact has completed all linked
// forms.
type ReadinessStatus string

const (
	ReadinessPendingForms ReadinessStatus = "pending_forms"
	ReadinessReady        ReadinessStatus = "ready"
)

// ReservationStatus tracks inventory reservation for the booking. A
// partial reservation is an explicit hold, never a silent partial commit.
type ReservationStatus string

const (
	ReservationNone     ReservationStatus = "none"
	ReservationHeld     ReservationStatus = "held"
	ReservationReserved ReservationStatus = "reserved"
)

// Booking is one scheduled appointment. All mutation goes through
// methods so the transition table cannot be bypassed.
type Booking struct {
	shared.BaseEntity

	workspaceID   uuid.UUID
	contactID     uuid.UUID
	bookingTypeID uuid.UUID
	startTime     time.Time
	endTime       time.Time
	status        Status
	readiness     ReadinessStatus
	reservation   ReservationStatus
	customerNotes string
	staffNotes    string
	completedAt   *time.Time
	completedBy   *uuid.UUID
}

// NewBooking creates a scheduled booking. End time is derived from the
// booking type's duration exactly once, here.
func NewBooking(bt *BookingType, contactID uuid.UUID, startTime time.Time, customerNotes string) (*Booking, error) {
	if !bt.IsActive {
		return nil, ErrBookingTypeInactive
	}

	readiness := ReadinessReady
	if len(bt.LinkedFormIDs) > 0 {
		readiness = ReadinessPendingForms
	}

	return &Booking{
		BaseEntity:    shared.NewBaseEntity(),
		workspaceID:   bt.WorkspaceID,
		contactID:     contactID,
		bookingTypeID: bt.ID,
		startTime:     startTime.UTC(),
		endTime:       startTime.UTC().Add(bt.Duration()),
		status:        StatusScheduled,
		readiness:     readiness,
		reservation:   ReservationNone,
		customerNotes: customerNotes,
	}, nil
}

// RehydrateBooking recreates a booking from persisted state.
func RehydrateBooking(
	base shared.BaseEntity,
	workspaceID, contactID, bookingTypeID uuid.UUID,
	startTime, endTime time.Time,
	status Status, readiness ReadinessStatus, reservation ReservationStatus,
	customerNotes, staffNotes string,
	completedAt *time.Time, completedBy *uuid.UUID,
) *Booking {
	return &Booking{
		BaseEntity:    base,
		workspaceID:   workspaceID,
		contactID:     contactID,
		bookingTypeID: bookingTypeID,
		startTime:     startTime,
		endTime:       endTime,
		status:        status,
		readiness:     readiness,
		reservation:   reservation,
		customerNotes: customerNotes,
		staffNotes:    staffNotes,
		completedAt:   completedAt,
		completedBy:   completedBy,
	}
}

func (b *Booking) WorkspaceID() uuid.UUID         { return b.workspaceID }
func (b *Booking) ContactID() uuid.UUID           { return b.contactID }
func (b *Booking) BookingTypeID() uuid.UUID       { return b.bookingTypeID }
func (b *Booking) StartTime() time.Time           { return b.startTime }
func (b *Booking) EndTime() time.Time             { return b.endTime }
func (b *Booking) Status() Status                 { return b.status }
func (b *Booking) Readiness() ReadinessStatus     { return b.readiness }
func (b *Booking) Reservation() ReservationStatus { return b.reservation }
func (b *Booking) CustomerNotes() string          { return b.customerNotes }
func (b *Booking) StaffNotes() string             { return b.staffNotes }
func (b *Booking) CompletedAt() *time.Time        { return b.completedAt }
func (b *Booking) CompletedBy() *uuid.UUID        { return b.completedBy }

// Slot returns the booking's occupied interval.
func (b *Booking) Slot() Slot {
	return Slot{Start: b.startTime, End: b.endTime}
}

// TransitionTo applies a status change from the transition table.
// Completing requires now to be at or after the start time and stamps
// completed_at and the acting user. Any illegal change returns
// InvalidTransitionError and leaves the booking untouched.
func (b *Booking) TransitionTo(target Status, now time.Time, actor uuid.UUID) error {
	if !CanTransition(b.status, target) {
		return &InvalidTransitionError{From: b.status, To: target}
	}

	if target == StatusCompleted {
		if now.Before(b.startTime) {
			return ErrPrematureCompletion
		}
		completedAt := now.UTC()
		b.completedAt = &completedAt
		b.completedBy = &actor
	}

	b.status = target
	b.Touch()
	return nil
}

// MarkReady flips readiness once all linked forms are complete.
func (b *Booking) MarkReady() {
	if b.readiness == ReadinessReady {
		return
	}
	b.readiness = ReadinessReady
	b.Touch()
}

// SetReservation records the inventory reservation outcome.
func (b *Booking) SetReservation(status ReservationStatus) {
	b.reservation = status
	b.Touch()
}

// SetStaffNotes replaces the internal notes.
func (b *Booking) SetStaffNotes(notes string) {
	b.staffNotes = notes
	b.Touch()
}
