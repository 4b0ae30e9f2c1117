package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/CaptainRedCodes/CareOps/internal/booking/domain"
	"github.com/CaptainRedCodes/CareOps/internal/events"
	inventory "github.com/CaptainRedCodes/CareOps/internal/inventory/application/services"
)

// InventoryReserver is the slice of the inventory service booking
// creation needs. Reservation runs after the booking commit; it never
// blocks or fails the booking itself.
type InventoryReserver interface {
	ReserveForBooking(ctx context.Context, workspaceID, bookingID uuid.UUID, requirements []inventory.Requirement) (*inventory.ReservationResult, error)
}

// Emitter is the slice of the event service used for emissions outside
// the creation transaction (form completions).
type Emitter interface {
	Emit(ctx context.Context, eventType events.Type, workspaceID uuid.UUID, entityType string, entityID uuid.UUID, data map[string]any) (*events.Entry, error)
}

// CreateBookingInput is the customer-facing booking request.
type CreateBookingInput struct {
	BookingTypeID uuid.UUID
	StartTime     time.Time
	ContactName   string
	ContactEmail  string
	ContactPhone  string
	CustomerNotes string
}

// BookingService owns the booking write path: creation under the
// per-booking-type lock, status transitions, and form readiness.
type BookingService struct {
	types      domain.BookingTypeRepository
	bookings   domain.BookingRepository
	store      domain.CreationStore
	dispatcher *events.Dispatcher
	emitter    Emitter
	reserver   InventoryReserver
	logger     *slog.Logger
	now        func() time.Time
}

// NewBookingService creates the booking write-path service. reserver may
// be nil when the workspace tracks no inventory.
func NewBookingService(
	types domain.BookingTypeRepository,
	bookings domain.BookingRepository,
	store domain.CreationStore,
	dispatcher *events.Dispatcher,
	emitter Emitter,
	reserver InventoryReserver,
	logger *slog.Logger,
) *BookingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BookingService{
		types:      types,
		bookings:   bookings,
		store:      store,
		dispatcher: dispatcher,
		emitter:    emitter,
		reserver:   reserver,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateBooking books a slot. Under the booking-type lock it revalidates
// the slot against active bookings, finds or creates the contact, inserts
// the booking, and appends contact.created (new contacts only) and
// booking.created entries — all in one transaction. Dispatch runs after
// commit, outside the lock; the inventory reservation runs last and
// records its outcome on the booking.
func (s *BookingService) CreateBooking(ctx context.Context, workspaceID uuid.UUID, input CreateBookingInput) (*domain.Booking, error) {
	bt, err := s.types.GetByID(ctx, workspaceID, input.BookingTypeID)
	if err != nil {
		return nil, err
	}
	if !bt.IsActive {
		return nil, domain.ErrBookingTypeInactive
	}

	now := s.now()
	if err := bt.ValidateDate(input.StartTime, now); err != nil {
		return nil, err
	}
	if !s.slotIsGenerated(bt, input.StartTime) {
		return nil, domain.ErrOutOfWindow
	}

	var (
		booking *domain.Booking
		entries []*events.Entry
	)

	err = s.store.WithLock(ctx, workspaceID, bt.ID, func(tx domain.CreationTx) error {
		start := input.StartTime.UTC()
		end := start.Add(bt.Duration())

		overlapping, err := tx.ListOverlapping(ctx, bt.ID, start, end, domain.ActiveStatuses())
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			return domain.ErrSlotConflict
		}

		contact, isNew, err := s.findOrCreateContact(ctx, tx, workspaceID, input)
		if err != nil {
			return err
		}

		booking, err = domain.NewBooking(bt, contact.ID, start, input.CustomerNotes)
		if err != nil {
			return err
		}
		if err := tx.InsertBooking(ctx, booking); err != nil {
			return err
		}

		entries = entries[:0]
		if isNew {
			entry := events.NewEntry(events.TypeContactCreated, workspaceID, "contact", contact.ID,
				events.ContactData(contact.Name, contact.Email, contact.Phone, true))
			if err := tx.AppendEvent(ctx, entry); err != nil {
				return err
			}
			entries = append(entries, entry)
		}

		entry := events.NewEntry(events.TypeBookingCreated, workspaceID, "booking", booking.ID(),
			events.BookingData(
				contact.ID.String(), contact.Name, contact.Email, contact.Phone, isNew,
				bt.Name,
				start.Format("January 02, 2006"),
				start.Format("03:04 PM"),
			))
		if err := tx.AppendEvent(ctx, entry); err != nil {
			return err
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking created",
		"booking_id", booking.ID(),
		"booking_type_id", bt.ID,
		"start_time", booking.StartTime(),
	)

	for _, entry := range entries {
		if err := s.dispatcher.Dispatch(ctx, entry); err != nil {
			// Entry is durable; the recovery sweep retries it.
			s.logger.Error("dispatch failed, entry left pending",
				"event_id", entry.ID,
				"error", err,
			)
		}
	}

	s.reserveInventory(ctx, bt, booking)
	return booking, nil
}

// UpdateStatus applies a lifecycle transition. Illegal transitions fail
// with InvalidTransitionError; completing before the start time fails
// with ErrPrematureCompletion. Either way the stored row is untouched.
func (s *BookingService) UpdateStatus(ctx context.Context, workspaceID, bookingID uuid.UUID, target domain.Status, actor uuid.UUID) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, workspaceID, bookingID)
	if err != nil {
		return nil, err
	}

	if err := booking.TransitionTo(target, s.now(), actor); err != nil {
		return nil, err
	}
	if err := s.bookings.Update(ctx, booking); err != nil {
		return nil, err
	}

	s.logger.Info("booking status updated",
		"booking_id", bookingID,
		"status", target,
	)
	return booking, nil
}

// CompleteForms marks the booking ready once its linked intake forms are
// all complete, and emits form.completed so automations can react.
func (s *BookingService) CompleteForms(ctx context.Context, workspaceID, bookingID uuid.UUID) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, workspaceID, bookingID)
	if err != nil {
		return nil, err
	}

	booking.MarkReady()
	if err := s.bookings.Update(ctx, booking); err != nil {
		return nil, err
	}

	_, err = s.emitter.Emit(ctx, events.TypeFormCompleted, workspaceID, "booking", bookingID,
		events.FormCompletedData(booking.ContactID().String()))
	if err != nil {
		s.logger.Error("failed to emit form completion",
			"booking_id", bookingID,
			"error", err,
		)
	}
	return booking, nil
}

// GetBooking loads one booking.
func (s *BookingService) GetBooking(ctx context.Context, workspaceID, bookingID uuid.UUID) (*domain.Booking, error) {
	return s.bookings.GetByID(ctx, workspaceID, bookingID)
}

// slotIsGenerated checks the requested start against the generator so a
// write can never land outside an availability window.
func (s *BookingService) slotIsGenerated(bt *domain.BookingType, start time.Time) bool {
	for slot := range bt.GenerateSlots(start) {
		if slot.Start.Equal(start) {
			return true
		}
	}
	return false
}

func (s *BookingService) findOrCreateContact(ctx context.Context, tx domain.CreationTx, workspaceID uuid.UUID, input CreateBookingInput) (*domain.Contact, bool, error) {
	contact, err := tx.FindContact(ctx, workspaceID, input.ContactEmail, input.ContactPhone)
	if err == nil {
		return contact, false, nil
	}
	if !errors.Is(err, domain.ErrContactNotFound) {
		return nil, false, err
	}

	contact, err = domain.NewContact(workspaceID, input.ContactName, input.ContactEmail, input.ContactPhone)
	if err != nil {
		return nil, false, err
	}
	if err := tx.InsertContact(ctx, contact); err != nil {
		return nil, false, err
	}
	return contact, true, nil
}

func (s *BookingService) reserveInventory(ctx context.Context, bt *domain.BookingType, booking *domain.Booking) {
	if s.reserver == nil || len(bt.InventoryRequirements) == 0 {
		return
	}

	requirements := make([]inventory.Requirement, 0, len(bt.InventoryRequirements))
	for _, req := range bt.InventoryRequirements {
		requirements = append(requirements, inventory.Requirement{
			ItemID:   req.ItemID,
			Quantity: req.Quantity,
		})
	}

	result, err := s.reserver.ReserveForBooking(ctx, bt.WorkspaceID, booking.ID(), requirements)
	if err != nil {
		s.logger.Error("inventory reservation failed",
			"booking_id", booking.ID(),
			"error", err,
		)
		booking.SetReservation(domain.ReservationHeld)
	} else if result.FullyReserved {
		booking.SetReservation(domain.ReservationReserved)
	} else {
		// Partial reservations are an explicit hold, never a silent
		// partial commit.
		booking.SetReservation(domain.ReservationHeld)
		s.logger.Warn("booking held, inventory shortfall",
			"booking_id", booking.ID(),
			"shortfalls", len(result.Shortfalls),
		)
	}

	if err := s.bookings.Update(ctx, booking); err != nil {
		s.logger.Error("failed to record reservation status",
			"booking_id", booking.ID(),
			"error", err,
		)
	}
}
