// Package domain contains the booking domain model: booking types with
// availability rules, the slot generator, the conflict predicate, and the
// booking state machine.
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors for booking types.
var (
	ErrBookingTypeNotFound = errors.New("booking type not found")
	ErrBookingTypeInactive = errors.New("booking type is inactive")
)

// InventoryRequirement is one item demand attached to a booking type.
type InventoryRequirement struct {
	ItemID   uuid.UUID `json:"item_id"`
	Quantity int       `json:"quantity"`
}

// AvailabilityRule is one weekly recurring window during which slots of
// its booking type can start. DayOfWeek is 0=Monday through 6=Sunday.
// Minutes are minutes-of-day; EndMinute must exceed StartMinute. Multiple
// rules for the same day are unioned, not merged.
type AvailabilityRule struct {
	ID            uuid.UUID
	BookingTypeID uuid.UUID
	DayOfWeek     int
	StartMinute   int
	EndMinute     int
	IsActive      bool
}

// NewAvailabilityRule creates a validated weekly window.
func NewAvailabilityRule(bookingTypeID uuid.UUID, dayOfWeek, startMinute, endMinute int) (*AvailabilityRule, error) {
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return nil, errors.New("day of week must be in [0,6]")
	}
	if startMinute < 0 || endMinute > 24*60 {
		return nil, errors.New("window must fall within the day")
	}
	if endMinute <= startMinute {
		return nil, errors.New("window end must be after start")
	}
	return &AvailabilityRule{
		ID:            uuid.New(),
		BookingTypeID: bookingTypeID,
		DayOfWeek:     dayOfWeek,
		StartMinute:   startMinute,
		EndMinute:     endMinute,
		IsActive:      true,
	}, nil
}

// weekday maps time.Weekday (0=Sunday) to the rule scheme (0=Monday).
func weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// BookingType is a bookable service definition.
type BookingType struct {
	ID                    uuid.UUID
	WorkspaceID           uuid.UUID
	Name                  string
	DurationMinutes       int
	BufferMinutes         int
	MaxAdvanceDays        int
	LinkedFormIDs         []uuid.UUID
	InventoryRequirements []InventoryRequirement
	IsActive              bool
	Rules                 []AvailabilityRule
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NewBookingType creates an active booking type.
func NewBookingType(workspaceID uuid.UUID, name string, durationMinutes, bufferMinutes, maxAdvanceDays int) (*BookingType, error) {
	if name == "" {
		return nil, errors.New("booking type name is required")
	}
	if durationMinutes <= 0 {
		return nil, errors.New("duration must be positive")
	}
	if bufferMinutes < 0 {
		return nil, errors.New("buffer cannot be negative")
	}
	if maxAdvanceDays <= 0 {
		return nil, errors.New("max advance days must be positive")
	}

	now := time.Now().UTC()
	return &BookingType{
		ID:              uuid.New(),
		WorkspaceID:     workspaceID,
		Name:            name,
		DurationMinutes: durationMinutes,
		BufferMinutes:   bufferMinutes,
		MaxAdvanceDays:  maxAdvanceDays,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Duration returns the slot length.
func (bt *BookingType) Duration() time.Duration {
	return time.Duration(bt.DurationMinutes) * time.Minute
}

// Step returns the distance between consecutive slot starts.
func (bt *BookingType) Step() time.Duration {
	return time.Duration(bt.DurationMinutes+bt.BufferMinutes) * time.Minute
}

// RulesFor returns the active rules matching the date's weekday.
func (bt *BookingType) RulesFor(date time.Time) []AvailabilityRule {
	day := weekday(date)
	var matched []AvailabilityRule
	for _, rule := range bt.Rules {
		if rule.IsActive && rule.DayOfWeek == day {
			matched = append(matched, rule)
		}
	}
	return matched
}
