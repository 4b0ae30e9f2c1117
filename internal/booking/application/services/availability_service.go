// Package services contains the booking application services.
package services

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/CaptainRedCodes/CareOps/internal/booking/domain"
)

// BusyBlockSource supplies externally-held busy intervals (for example a
// synced calendar) that availability must respect. Implementations return
// intervals intersecting the given day.
type BusyBlockSource interface {
	BusyBlocks(ctx context.Context, workspaceID uuid.UUID, dayStart, dayEnd time.Time) ([]domain.Slot, error)
}

// AvailabilityService computes the open slots for a booking type on a
// date: generated candidates minus conflicts with active bookings, busy
// blocks, and slots that already started.
type AvailabilityService struct {
	types    domain.BookingTypeRepository
	bookings domain.BookingRepository
	busy     BusyBlockSource
	logger   *slog.Logger
	now      func() time.Time
}

// NewAvailabilityService creates the availability read path. busy may be
// nil when no external calendar is wired.
func NewAvailabilityService(types domain.BookingTypeRepository, bookings domain.BookingRepository, busy BusyBlockSource, logger *slog.Logger) *AvailabilityService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AvailabilityService{
		types:    types,
		bookings: bookings,
		busy:     busy,
		logger:   logger,
		now:      time.Now,
	}
}

// AvailableSlots returns the bookable slots for the booking type on the
// given date, sorted by start time. Dates in the past or beyond the
// advance horizon fail with ErrOutOfWindow.
func (s *AvailabilityService) AvailableSlots(ctx context.Context, workspaceID, bookingTypeID uuid.UUID, date time.Time) ([]domain.Slot, error) {
	bt, err := s.types.GetByID(ctx, workspaceID, bookingTypeID)
	if err != nil {
		return nil, err
	}
	if !bt.IsActive {
		return nil, domain.ErrBookingTypeInactive
	}

	now := s.now()
	if err := bt.ValidateDate(date, now); err != nil {
		return nil, err
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	busy, err := s.busyIntervals(ctx, workspaceID, bookingTypeID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	var open []domain.Slot
	for slot := range bt.GenerateSlots(date) {
		if !slot.Start.After(now) {
			continue
		}
		if conflicts(slot, busy) {
			continue
		}
		open = append(open, slot)
	}

	sort.Slice(open, func(i, j int) bool {
		return open[i].Start.Before(open[j].Start)
	})

	s.logger.Debug("availability computed",
		"booking_type_id", bookingTypeID,
		"date", dayStart.Format("2006-01-02"),
		"slots", len(open),
	)
	return open, nil
}

func (s *AvailabilityService) busyIntervals(ctx context.Context, workspaceID, bookingTypeID uuid.UUID, dayStart, dayEnd time.Time) ([]domain.Slot, error) {
	booked, err := s.bookings.ListOverlapping(ctx, bookingTypeID, dayStart, dayEnd, domain.ActiveStatuses())
	if err != nil {
		return nil, err
	}

	busy := make([]domain.Slot, 0, len(booked))
	for _, b := range booked {
		busy = append(busy, b.Slot())
	}

	if s.busy != nil {
		blocks, err := s.busy.BusyBlocks(ctx, workspaceID, dayStart, dayEnd)
		if err != nil {
			return nil, err
		}
		busy = append(busy, blocks...)
	}
	return busy, nil
}

func conflicts(slot domain.Slot, busy []domain.Slot) bool {
	for _, b := range busy {
		if slot.Overlaps(b.Start, b.End) {
			return true
		}
	}
	return false
}
