// Package services contains the inventory application services.
package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/CaptainRedCodes/CareOps/internal/events"
	"github.com/CaptainRedCodes/CareOps/internal/inventory/domain"
)

// Requirement is one item demand from a booking type.
type Requirement struct {
	ItemID   uuid.UUID
	Quantity int
}

// Shortfall reports one requirement that could not be reserved.
type Shortfall struct {
	ItemID    uuid.UUID
	Requested int
	Available int
}

// ReservationResult is the outcome of reserving a booking's requirements.
// FullyReserved is true only when every requirement was deducted; any
// shortfall leaves the booking held for manual reconciliation.
type ReservationResult struct {
	FullyReserved bool
	Shortfalls    []Shortfall
}

// InventoryService records stock deductions and their event log entries.
// Deductions use lock-then-revalidate: the quantity check, the write and
// the event append all happen in one transaction under the item lock;
// dispatch runs after commit.
type InventoryService struct {
	store      domain.Store
	dispatcher *events.Dispatcher
	logger     *slog.Logger
}

// NewInventoryService creates the inventory service.
func NewInventoryService(store domain.Store, dispatcher *events.Dispatcher, logger *slog.Logger) *InventoryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &InventoryService{
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// RecordUsage deducts quantity from an item and writes a usage row.
// inventory.updated is appended on every successful deduction;
// inventory.low is appended additionally when the deduction drops the
// quantity at or below the low-stock threshold from above it. Both
// entries commit with the deduction, so a crash before dispatch leaves
// them pending for the recovery sweep instead of losing them.
func (s *InventoryService) RecordUsage(ctx context.Context, workspaceID, itemID uuid.UUID, bookingID *uuid.UUID, quantity int, notes string) (*domain.Usage, error) {
	var (
		usage   *domain.Usage
		item    *domain.Item
		crossed bool
		entries []*events.Entry
	)

	err := s.store.WithItemLock(ctx, workspaceID, itemID, func(tx domain.ItemTx) error {
		var err error
		item, err = tx.GetItem(ctx, workspaceID, itemID)
		if err != nil {
			return err
		}

		crossed, err = item.Deduct(quantity)
		if err != nil {
			return err
		}

		if err := tx.SaveItem(ctx, item); err != nil {
			return err
		}

		usage = domain.NewUsage(item, bookingID, quantity, notes)
		if err := tx.InsertUsage(ctx, usage); err != nil {
			return err
		}

		entries = entries[:0]
		entry := events.NewEntry(events.TypeInventoryUpdated, item.WorkspaceID, "inventory_item", item.ID,
			events.InventoryData(item.Name, item.Quantity, quantity, item.Unit, item.LowStockThreshold, item.VendorEmail))
		if err := tx.AppendEvent(ctx, entry); err != nil {
			return err
		}
		entries = append(entries, entry)

		if crossed {
			low := events.NewEntry(events.TypeInventoryLow, item.WorkspaceID, "inventory_item", item.ID,
				events.InventoryData(item.Name, item.Quantity, quantity, item.Unit, item.LowStockThreshold, item.VendorEmail))
			if err := tx.AppendEvent(ctx, low); err != nil {
				return err
			}
			entries = append(entries, low)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if crossed {
		s.logger.Warn("inventory low",
			"item_id", item.ID,
			"item_name", item.Name,
			"quantity", item.Quantity,
			"threshold", item.LowStockThreshold,
		)
	}

	for _, entry := range entries {
		if err := s.dispatcher.Dispatch(ctx, entry); err != nil {
			// Entry is durable; the recovery sweep retries it.
			s.logger.Error("dispatch failed, entry left pending",
				"event_id", entry.ID,
				"error", err,
			)
		}
	}

	return usage, nil
}

// ReserveForBooking deducts every requirement of a booking. Each
// requirement is attempted even when an earlier one fails, so the result
// reports the complete shortfall picture.
func (s *InventoryService) ReserveForBooking(ctx context.Context, workspaceID, bookingID uuid.UUID, requirements []Requirement) (*ReservationResult, error) {
	result := &ReservationResult{FullyReserved: true}

	for _, req := range requirements {
		_, err := s.RecordUsage(ctx, workspaceID, req.ItemID, &bookingID, req.Quantity, "booking reservation")
		if err == nil {
			continue
		}

		var insufficient *domain.InsufficientStockError
		if errors.As(err, &insufficient) {
			result.FullyReserved = false
			result.Shortfalls = append(result.Shortfalls, Shortfall{
				ItemID:    req.ItemID,
				Requested: insufficient.Requested,
				Available: insufficient.Available,
			})
			continue
		}
		if errors.Is(err, domain.ErrItemNotFound) {
			result.FullyReserved = false
			result.Shortfalls = append(result.Shortfalls, Shortfall{
				ItemID:    req.ItemID,
				Requested: req.Quantity,
			})
			continue
		}
		return nil, err
	}

	return result, nil
}

// CreateItem registers a new inventory item.
func (s *InventoryService) CreateItem(ctx context.Context, workspaceID uuid.UUID, name, unit string, quantity, lowStockThreshold int) (*domain.Item, error) {
	item, err := domain.NewItem(workspaceID, name, unit, quantity, lowStockThreshold)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// GetItem loads one item.
func (s *InventoryService) GetItem(ctx context.Context, workspaceID, itemID uuid.UUID) (*domain.Item, error) {
	return s.store.GetByID(ctx, workspaceID, itemID)
}

// ListItems returns all items for a workspace.
func (s *InventoryService) ListItems(ctx context.Context, workspaceID uuid.UUID) ([]*domain.Item, error) {
	return s.store.ListByWorkspace(ctx, workspaceID)
}
