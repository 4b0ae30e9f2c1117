// Package domain contains the inventory domain model.
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Common errors for inventory operations.
var (
	ErrItemNotFound = errors.New("inventory item not found")
)

// InsufficientStockError reports a deduction that exceeds the current
// quantity. The item is left untouched.
type InsufficientStockError struct {
	ItemID    uuid.UUID
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %s: requested %d, available %d",
		e.ItemID, e.Requested, e.Available)
}

// Item is a tracked consumable or material.
type Item struct {
	ID                uuid.UUID
	WorkspaceID       uuid.UUID
	Name              string
	Quantity          int
	Unit              string
	LowStockThreshold int
	VendorEmail       string
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewItem creates an active inventory item.
func NewItem(workspaceID uuid.UUID, name, unit string, quantity, lowStockThreshold int) (*Item, error) {
	if name == "" {
		return nil, errors.New("item name is required")
	}
	if quantity < 0 {
		return nil, errors.New("quantity cannot be negative")
	}

	now := time.Now().UTC()
	return &Item{
		ID:                uuid.New(),
		WorkspaceID:       workspaceID,
		Name:              name,
		Quantity:          quantity,
		Unit:              unit,
		LowStockThreshold: lowStockThreshold,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// Deduct reduces the quantity by the requested amount. It reports whether
// the deduction dropped the quantity at or below the low-stock threshold
// from above it.
func (i *Item) Deduct(quantity int) (crossedThreshold bool, err error) {
	if quantity <= 0 {
		return false, errors.New("deduction quantity must be positive")
	}
	if quantity > i.Quantity {
		return false, &InsufficientStockError{
			ItemID:    i.ID,
			Requested: quantity,
			Available: i.Quantity,
		}
	}

	before := i.Quantity
	i.Quantity -= quantity
	i.UpdatedAt = time.Now().UTC()

	return before > i.LowStockThreshold && i.Quantity <= i.LowStockThreshold, nil
}

// Usage is one write-once deduction record.
type Usage struct {
	ID          uuid.UUID
	ItemID      uuid.UUID
	WorkspaceID uuid.UUID
	BookingID   *uuid.UUID
	Quantity    int
	Notes       string
	CreatedAt   time.Time
}

// NewUsage records a deduction, optionally tied to a booking.
func NewUsage(item *Item, bookingID *uuid.UUID, quantity int, notes string) *Usage {
	return &Usage{
		ID:          uuid.New(),
		ItemID:      item.ID,
		WorkspaceID: item.WorkspaceID,
		BookingID:   bookingID,
		Quantity:    quantity,
		Notes:       notes,
		CreatedAt:   time.Now().UTC(),
	}
}
