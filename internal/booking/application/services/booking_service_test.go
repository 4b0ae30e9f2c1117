package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CaptainRedCodes/CareOps/internal/booking/application/services"
	"github.com/CaptainRedCodes/CareOps/internal/booking/domain"
	"github.com/CaptainRedCodes/CareOps/internal/events"
	inventory "github.com/CaptainRedCodes/CareOps/internal/inventory/application/services"
)

// memStore is an in-memory booking store implementing the type, booking
// and creation interfaces. WithLock serializes callbacks on one mutex,
// mirroring the per-type lock discipline.
type memStore struct {
	mu       sync.Mutex
	types    map[uuid.UUID]*domain.BookingType
	bookings []*domain.Booking
	contacts []*domain.Contact
	entries  []*events.Entry
}

func newMemStore() *memStore {
	return &memStore{types: make(map[uuid.UUID]*domain.BookingType)}
}

func (s *memStore) Create(ctx context.Context, bt *domain.BookingType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types[bt.ID] = bt
	return nil
}

func (s *memStore) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*domain.BookingType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bt, ok := s.types[id]
	if !ok || bt.WorkspaceID != workspaceID {
		return nil, domain.ErrBookingTypeNotFound
	}
	return bt, nil
}

func (s *memStore) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*domain.BookingType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.BookingType
	for _, bt := range s.types {
		if bt.WorkspaceID == workspaceID {
			out = append(out, bt)
		}
	}
	return out, nil
}

func (s *memStore) WithLock(ctx context.Context, workspaceID, bookingTypeID uuid.UUID, fn func(tx domain.CreationTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn((*memTx)(s))
}

func (s *memStore) bookingByID(workspaceID, bookingID uuid.UUID) (*domain.Booking, error) {
	for _, b := range s.bookings {
		if b.ID() == bookingID && b.WorkspaceID() == workspaceID {
			return b, nil
		}
	}
	return nil, domain.ErrBookingNotFound
}

func (s *memStore) GetBooking(ctx context.Context, workspaceID, bookingID uuid.UUID) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookingByID(workspaceID, bookingID)
}

func (s *memStore) Update(ctx context.Context, booking *domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range s.bookings {
		if b.ID() == booking.ID() {
			s.bookings[i] = booking
			return nil
		}
	}
	return domain.ErrBookingNotFound
}

func (s *memStore) ListOverlapping(ctx context.Context, bookingTypeID uuid.UUID, start, end time.Time, statuses []domain.Status) ([]*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (*memTx)(s).ListOverlapping(ctx, bookingTypeID, start, end, statuses)
}

// bookingRepo adapts memStore to domain.BookingRepository (GetByID
// collides with the type repository method name).
type bookingRepo struct{ store *memStore }

func (r bookingRepo) GetByID(ctx context.Context, workspaceID, bookingID uuid.UUID) (*domain.Booking, error) {
	return r.store.GetBooking(ctx, workspaceID, bookingID)
}

func (r bookingRepo) Update(ctx context.Context, booking *domain.Booking) error {
	return r.store.Update(ctx, booking)
}

func (r bookingRepo) ListOverlapping(ctx context.Context, bookingTypeID uuid.UUID, start, end time.Time, statuses []domain.Status) ([]*domain.Booking, error) {
	return r.store.ListOverlapping(ctx, bookingTypeID, start, end, statuses)
}

// memTx runs under the store mutex.
type memTx memStore

func (t *memTx) ListOverlapping(ctx context.Context, bookingTypeID uuid.UUID, start, end time.Time, statuses []domain.Status) ([]*domain.Booking, error) {
	var out []*domain.Booking
	for _, b := range t.bookings {
		if b.BookingTypeID() != bookingTypeID {
			continue
		}
		if !b.Slot().Overlaps(start, end) {
			continue
		}
		for _, status := range statuses {
			if b.Status() == status {
				out = append(out, b)
				break
			}
		}
	}
	return out, nil
}

func (t *memTx) FindContact(ctx context.Context, workspaceID uuid.UUID, email, phone string) (*domain.Contact, error) {
	for _, c := range t.contacts {
		if c.WorkspaceID != workspaceID {
			continue
		}
		if email != "" && c.Email == email {
			return c, nil
		}
		if phone != "" && c.Phone == phone {
			return c, nil
		}
	}
	return nil, domain.ErrContactNotFound
}

func (t *memTx) InsertContact(ctx context.Context, contact *domain.Contact) error {
	t.contacts = append(t.contacts, contact)
	return nil
}

func (t *memTx) InsertBooking(ctx context.Context, booking *domain.Booking) error {
	t.bookings = append(t.bookings, booking)
	return nil
}

func (t *memTx) AppendEvent(ctx context.Context, entry *events.Entry) error {
	t.entries = append(t.entries, entry)
	return nil
}

// memEventRepo backs the dispatcher in tests.
type memEventRepo struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*events.Entry
}

func newMemEventRepo() *memEventRepo {
	return &memEventRepo{entries: make(map[uuid.UUID]*events.Entry)}
}

func (r *memEventRepo) Append(ctx context.Context, entry *events.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *entry
	r.entries[entry.ID] = &clone
	return nil
}

func (r *memEventRepo) GetByID(ctx context.Context, id uuid.UUID) (*events.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		return e, nil
	}
	return nil, errors.New("entry not found")
}

func (r *memEventRepo) FinishDispatch(ctx context.Context, id uuid.UUID, status events.Status, errorMessage string, processedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		// Entries appended via the creation transaction live in the
		// booking store fake; accept the transition anyway.
		return true, nil
	}
	if e.Status != events.StatusPending {
		return false, nil
	}
	e.Status = status
	e.ErrorMessage = errorMessage
	e.ProcessedAt = &processedAt
	return true, nil
}

func (r *memEventRepo) ListStuckPending(ctx context.Context, cutoff time.Time, limit int) ([]*events.Entry, error) {
	return nil, nil
}

// fakeReserver scripts the inventory reservation outcome.
type fakeReserver struct {
	result *inventory.ReservationResult
	calls  int
}

func (f *fakeReserver) ReserveForBooking(ctx context.Context, workspaceID, bookingID uuid.UUID, requirements []inventory.Requirement) (*inventory.ReservationResult, error) {
	f.calls++
	return f.result, nil
}

func setupBookingType(t *testing.T, store *memStore, workspaceID uuid.UUID, start time.Time) *domain.BookingType {
	t.Helper()

	bt, err := domain.NewBookingType(workspaceID, "Deep Clean", 30, 0, 30)
	require.NoError(t, err)

	day := (int(start.Weekday()) + 6) % 7
	rule, err := domain.NewAvailabilityRule(bt.ID, day, 9*60, 17*60)
	require.NoError(t, err)
	bt.Rules = []domain.AvailabilityRule{*rule}

	require.NoError(t, store.Create(context.Background(), bt))
	return bt
}

func newService(store *memStore, reserver services.InventoryReserver) (*services.BookingService, *memEventRepo) {
	eventRepo := newMemEventRepo()
	registry := events.NewRegistry(nil)
	registry.Freeze()
	dispatcher := events.NewDispatcher(eventRepo, registry, nil, nil, nil)
	emitter := events.NewService(eventRepo, dispatcher, nil)
	return services.NewBookingService(store, bookingRepo{store}, store, dispatcher, emitter, reserver, nil), eventRepo
}

func tomorrowAt(hour int) time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}

func TestCreateBooking(t *testing.T) {
	store := newMemStore()
	workspaceID := uuid.New()
	start := tomorrowAt(9)
	bt := setupBookingType(t, store, workspaceID, start)
	svc, _ := newService(store, nil)

	booking, err := svc.CreateBooking(context.Background(), workspaceID, services.CreateBookingInput{
		BookingTypeID: bt.ID,
		StartTime:     start,
		ContactName:   "Jamie Soto",
		ContactEmail:  "jamie@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusScheduled, booking.Status())
	assert.Equal(t, start, booking.StartTime())
	assert.Equal(t, start.Add(30*time.Minute), booking.EndTime())

	// New contact: contact.created precedes booking.created.
	require.Len(t, store.entries, 2)
	assert.Equal(t, events.TypeContactCreated, store.entries[0].Type)
	assert.Equal(t, events.TypeBookingCreated, store.entries[1].Type)
	assert.Equal(t, true, store.entries[0].Data["is_new_contact"])
	assert.Equal(t, "Deep Clean", store.entries[1].Data["service_name"])
	assert.Equal(t, start.Format("January 02, 2006"), store.entries[1].Data["booking_date"])
	assert.Equal(t, start.Format("03:04 PM"), store.entries[1].Data["booking_time"])
}

func TestCreateBookingReusesExistingContact(t *testing.T) {
	store := newMemStore()
	workspaceID := uuid.New()
	start := tomorrowAt(9)
	bt := setupBookingType(t, store, workspaceID, start)
	svc, _ := newService(store, nil)

	first, err := svc.CreateBooking(context.Background(), workspaceID, services.CreateBookingInput{
		BookingTypeID: bt.ID,
		StartTime:     start,
		ContactName:   "Jamie Soto",
		ContactEmail:  "jamie@example.com",
	})
	require.NoError(t, err)

	second, err := svc.CreateBooking(context.Background(), workspaceID, services.CreateBookingInput{
		BookingTypeID: bt.ID,
		StartTime:     start.Add(time.Hour),
		ContactName:   "Jamie Soto",
		ContactEmail:  "jamie@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, first.ContactID(), second.ContactID())
	require.Len(t, store.contacts, 1)

	// Second booking emits only booking.created.
	require.Len(t, store.entries, 3)
	assert.Equal(t, events.TypeBookingCreated, store.entries[2].Type)
	assert.Equal(t, false, store.entries[2].Data["is_new_contact"])
}

func TestCreateBookingConflictUnderRace(t *testing.T) {
	store := newMemStore()
	workspaceID := uuid.New()
	start := tomorrowAt(10)
	bt := setupBookingType(t, store, workspaceID, start)
	svc, _ := newService(store, nil)

	input := func(email string) services.CreateBookingInput {
		return services.CreateBookingInput{
			BookingTypeID: bt.ID,
			StartTime:     start,
			ContactName:   "Racer",
			ContactEmail:  email,
		}
	}

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := svc.CreateBooking(context.Background(), workspaceID, input("a@example.com"))
		errs <- err
	}()
	go func() {
		defer wg.Done()
		_, err := svc.CreateBooking(context.Background(), workspaceID, input("b@example.com"))
		errs <- err
	}()
	wg.Wait()
	close(errs)

	var conflicts, successes int
	for err := range errs {
		if err == nil {
			successes++
		} else if assert.ErrorIs(t, err, domain.ErrSlotConflict) {
			conflicts++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)
	assert.Len(t, store.bookings, 1)
}

func TestCreateBookingRejectsUnalignedStart(t *testing.T) {
	store := newMemStore()
	workspaceID := uuid.New()
	start := tomorrowAt(9)
	bt := setupBookingType(t, store, workspaceID, start)
	svc, _ := newService(store, nil)

	_, err := svc.CreateBooking(context.Background(), workspaceID, services.CreateBookingInput{
		BookingTypeID: bt.ID,
		StartTime:     start.Add(7 * time.Minute),
		ContactName:   "Jamie Soto",
		ContactEmail:  "jamie@example.com",
	})
	assert.ErrorIs(t, err, domain.ErrOutOfWindow)
	assert.Empty(t, store.bookings)
}

func TestCreateBookingHoldsOnInventoryShortfall(t *testing.T) {
	store := newMemStore()
	workspaceID := uuid.New()
	start := tomorrowAt(11)
	bt := setupBookingType(t, store, workspaceID, start)
	bt.InventoryRequirements = []domain.InventoryRequirement{{ItemID: uuid.New(), Quantity: 5}}

	reserver := &fakeReserver{result: &inventory.ReservationResult{
		FullyReserved: false,
		Shortfalls:    []inventory.Shortfall{{Requested: 5, Available: 2}},
	}}
	svc, _ := newService(store, reserver)

	booking, err := svc.CreateBooking(context.Background(), workspaceID, services.CreateBookingInput{
		BookingTypeID: bt.ID,
		StartTime:     start,
		ContactName:   "Jamie Soto",
		ContactEmail:  "jamie@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, reserver.calls)
	assert.Equal(t, domain.ReservationHeld, booking.Reservation())
}

func TestCreateBookingReservesWhenStockSuffices(t *testing.T) {
	store := newMemStore()
	workspaceID := uuid.New()
	start := tomorrowAt(13)
	bt := setupBookingType(t, store, workspaceID, start)
	bt.InventoryRequirements = []domain.InventoryRequirement{{ItemID: uuid.New(), Quantity: 1}}

	reserver := &fakeReserver{result: &inventory.ReservationResult{FullyReserved: true}}
	svc, _ := newService(store, reserver)

	booking, err := svc.CreateBooking(context.Background(), workspaceID, services.CreateBookingInput{
		BookingTypeID: bt.ID,
		StartTime:     start,
		ContactName:   "Jamie Soto",
		ContactEmail:  "jamie@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationReserved, booking.Reservation())
}

func TestUpdateStatusRejectsInvalidTransition(t *testing.T) {
	store := newMemStore()
	workspaceID := uuid.New()
	start := tomorrowAt(9)
	bt := setupBookingType(t, store, workspaceID, start)
	svc, _ := newService(store, nil)

	booking, err := svc.CreateBooking(context.Background(), workspaceID, services.CreateBookingInput{
		BookingTypeID: bt.ID,
		StartTime:     start,
		ContactName:   "Jamie Soto",
		ContactEmail:  "jamie@example.com",
	})
	require.NoError(t, err)

	// scheduled -> completed is not in the table.
	_, err = svc.UpdateStatus(context.Background(), workspaceID, booking.ID(), domain.StatusCompleted, uuid.New())
	var invalid *domain.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)

	stored, err := svc.GetBooking(context.Background(), workspaceID, booking.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusScheduled, stored.Status())
}

func TestUpdateStatusConfirm(t *testing.T) {
	store := newMemStore()
	workspaceID := uuid.New()
	start := tomorrowAt(9)
	bt := setupBookingType(t, store, workspaceID, start)
	svc, _ := newService(store, nil)

	booking, err := svc.CreateBooking(context.Background(), workspaceID, services.CreateBookingInput{
		BookingTypeID: bt.ID,
		StartTime:     start,
		ContactName:   "Jamie Soto",
		ContactEmail:  "jamie@example.com",
	})
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(context.Background(), workspaceID, booking.ID(), domain.StatusConfirmed, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, updated.Status())
}
