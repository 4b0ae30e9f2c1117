package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CaptainRedCodes/CareOps/internal/booking/domain"
)

// newBookingType builds a type with one rule for the given weekday.
func newBookingType(t *testing.T, duration, buffer, day, startMin, endMin int) *domain.BookingType {
	t.Helper()

	bt, err := domain.NewBookingType(uuid.New(), "Consultation", duration, buffer, 30)
	require.NoError(t, err)

	rule, err := domain.NewAvailabilityRule(bt.ID, day, startMin, endMin)
	require.NoError(t, err)
	bt.Rules = []domain.AvailabilityRule{*rule}
	return bt
}

func collectSlots(bt *domain.BookingType, date time.Time) []domain.Slot {
	var slots []domain.Slot
	for slot := range bt.GenerateSlots(date) {
		slots = append(slots, slot)
	}
	return slots
}

func TestGenerateSlotsWalksWindow(t *testing.T) {
	// Monday 2026-09-07, rule 09:00-12:00, 60min slots, no buffer.
	bt := newBookingType(t, 60, 0, 0, 9*60, 12*60)
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

	slots := collectSlots(bt, date)
	require.Len(t, slots, 3)
	assert.Equal(t, time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC), slots[0].Start)
	assert.Equal(t, time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC), slots[1].Start)
	assert.Equal(t, time.Date(2026, 9, 7, 11, 0, 0, 0, time.UTC), slots[2].Start)
}

func TestGenerateSlotsRespectsWindowEnd(t *testing.T) {
	// duration=30, buffer=15, window 09:00-10:00: the second candidate
	// would start 09:45 and end 10:15, past the window end, so exactly
	// one slot is generated.
	bt := newBookingType(t, 30, 15, 0, 9*60, 10*60)
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

	slots := collectSlots(bt, date)
	require.Len(t, slots, 1)
	assert.Equal(t, time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC), slots[0].Start)
	assert.Equal(t, time.Date(2026, 9, 7, 9, 30, 0, 0, time.UTC), slots[0].End)
}

func TestGenerateSlotsDurationConsistency(t *testing.T) {
	bt := newBookingType(t, 45, 10, 2, 8*60, 17*60)
	date := time.Date(2026, 9, 9, 0, 0, 0, 0, time.UTC) // Wednesday

	slots := collectSlots(bt, date)
	require.NotEmpty(t, slots)
	for _, slot := range slots {
		assert.Equal(t, 45*time.Minute, slot.End.Sub(slot.Start))
	}
}

func TestGenerateSlotsConcatenatesRules(t *testing.T) {
	bt := newBookingType(t, 60, 0, 0, 9*60, 11*60)
	afternoon, err := domain.NewAvailabilityRule(bt.ID, 0, 14*60, 16*60)
	require.NoError(t, err)
	bt.Rules = append(bt.Rules, *afternoon)

	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	slots := collectSlots(bt, date)
	require.Len(t, slots, 4)
	assert.Equal(t, 9, slots[0].Start.Hour())
	assert.Equal(t, 10, slots[1].Start.Hour())
	assert.Equal(t, 14, slots[2].Start.Hour())
	assert.Equal(t, 15, slots[3].Start.Hour())
}

func TestGenerateSlotsSkipsOtherWeekdays(t *testing.T) {
	bt := newBookingType(t, 60, 0, 0, 9*60, 12*60) // Monday rule
	tuesday := time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC)

	assert.Empty(t, collectSlots(bt, tuesday))
}

func TestGenerateSlotsSkipsInactiveRules(t *testing.T) {
	bt := newBookingType(t, 60, 0, 0, 9*60, 12*60)
	bt.Rules[0].IsActive = false

	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, collectSlots(bt, date))
}

func TestSlotOverlapsIsHalfOpen(t *testing.T) {
	base := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	slot := domain.Slot{Start: base, End: base.Add(30 * time.Minute)}

	// Touching intervals do not overlap.
	assert.False(t, slot.Overlaps(base.Add(30*time.Minute), base.Add(time.Hour)))
	assert.False(t, slot.Overlaps(base.Add(-time.Hour), base))

	// Any shared interior point overlaps.
	assert.True(t, slot.Overlaps(base.Add(29*time.Minute), base.Add(time.Hour)))
	assert.True(t, slot.Overlaps(base.Add(-time.Hour), base.Add(time.Minute)))
	assert.True(t, slot.Overlaps(base.Add(10*time.Minute), base.Add(20*time.Minute)))
}

func TestValidateDateWindow(t *testing.T) {
	bt := newBookingType(t, 30, 0, 0, 9*60, 17*60)
	now := time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC)

	// Yesterday is out.
	err := bt.ValidateDate(now.AddDate(0, 0, -1), now)
	assert.ErrorIs(t, err, domain.ErrOutOfWindow)

	// Today and the horizon boundary are in.
	assert.NoError(t, bt.ValidateDate(now, now))
	assert.NoError(t, bt.ValidateDate(now.AddDate(0, 0, bt.MaxAdvanceDays), now))

	// One day past the horizon is out.
	err = bt.ValidateDate(now.AddDate(0, 0, bt.MaxAdvanceDays+1), now)
	assert.ErrorIs(t, err, domain.ErrOutOfWindow)
}
