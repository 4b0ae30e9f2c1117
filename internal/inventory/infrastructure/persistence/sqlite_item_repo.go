// Package persistence provides the SQLite inventory store.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CaptainRedCodes/CareOps/internal/events"
	eventlog "github.com/CaptainRedCodes/CareOps/internal/events/persistence"
	"github.com/CaptainRedCodes/CareOps/internal/inventory/domain"
)

// SQLiteItemStore implements domain.Store. SQLite has a single writer, so
// the item lock is a process-level keyed mutex wrapping a transaction;
// the transaction gives atomicity, the mutex gives the revalidation
// window.
type SQLiteItemStore struct {
	db *sql.DB

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewSQLiteItemStore creates a new SQLite inventory store.
func NewSQLiteItemStore(db *sql.DB) *SQLiteItemStore {
	return &SQLiteItemStore{
		db:    db,
		locks: make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *SQLiteItemStore) lockFor(itemID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[itemID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[itemID] = lock
	}
	return lock
}

// WithItemLock runs fn with the item serialized and its writes wrapped in
// a transaction.
func (s *SQLiteItemStore) WithItemLock(ctx context.Context, workspaceID, itemID uuid.UUID, fn func(tx domain.ItemTx) error) error {
	lock := s.lockFor(itemID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(&sqliteItemTx{tx: tx}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Create inserts a new item.
func (s *SQLiteItemStore) Create(ctx context.Context, item *domain.Item) error {
	query := `
		INSERT INTO inventory_items (
			id, workspace_id, name, quantity, unit, low_stock_threshold,
			vendor_email, is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		item.ID.String(),
		item.WorkspaceID.String(),
		item.Name,
		item.Quantity,
		item.Unit,
		item.LowStockThreshold,
		item.VendorEmail,
		boolToInt(item.IsActive),
		item.CreatedAt.Format(time.RFC3339Nano),
		item.UpdatedAt.Format(time.RFC3339Nano),
	)
	return err
}

// GetByID loads one item outside any lock.
func (s *SQLiteItemStore) GetByID(ctx context.Context, workspaceID, itemID uuid.UUID) (*domain.Item, error) {
	return getItem(ctx, s.db, workspaceID, itemID)
}

// ListByWorkspace returns all items for a workspace by name.
func (s *SQLiteItemStore) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*domain.Item, error) {
	query := itemSelect + ` WHERE workspace_id = ? ORDER BY name ASC`
	rows, err := s.db.QueryContext(ctx, query, workspaceID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type sqliteItemTx struct {
	tx *sql.Tx
}

func (t *sqliteItemTx) GetItem(ctx context.Context, workspaceID, itemID uuid.UUID) (*domain.Item, error) {
	return getItem(ctx, t.tx, workspaceID, itemID)
}

func (t *sqliteItemTx) SaveItem(ctx context.Context, item *domain.Item) error {
	query := `
		UPDATE inventory_items SET quantity = ?, updated_at = ?
		WHERE id = ? AND workspace_id = ?
	`
	_, err := t.tx.ExecContext(ctx, query,
		item.Quantity,
		item.UpdatedAt.Format(time.RFC3339Nano),
		item.ID.String(),
		item.WorkspaceID.String(),
	)
	return err
}

func (t *sqliteItemTx) InsertUsage(ctx context.Context, usage *domain.Usage) error {
	var bookingID any
	if usage.BookingID != nil {
		bookingID = usage.BookingID.String()
	}

	query := `
		INSERT INTO inventory_usage (
			id, item_id, workspace_id, booking_id, quantity_used, notes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := t.tx.ExecContext(ctx, query,
		usage.ID.String(),
		usage.ItemID.String(),
		usage.WorkspaceID.String(),
		bookingID,
		usage.Quantity,
		usage.Notes,
		usage.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

func (t *sqliteItemTx) AppendEvent(ctx context.Context, entry *events.Entry) error {
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

const itemSelect = `
	SELECT id, workspace_id, name, quantity, unit, low_stock_threshold,
		vendor_email, is_active, created_at, updated_at
	FROM inventory_items`

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getItem(ctx context.Context, q querier, workspaceID, itemID uuid.UUID) (*domain.Item, error) {
	query := itemSelect + ` WHERE id = ? AND workspace_id = ?`
	row := q.QueryRowContext(ctx, query, itemID.String(), workspaceID.String())
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		return nil, err
	}
	return item, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*domain.Item, error) {
	var item domain.Item
	var idStr, workspaceStr, createdAtStr, updatedAtStr string
	var vendorEmail sql.NullString
	var isActive int

	err := row.Scan(
		&idStr,
		&workspaceStr,
		&item.Name,
		&item.Quantity,
		&item.Unit,
		&item.LowStockThreshold,
		&vendorEmail,
		&isActive,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return nil, err
	}

	item.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	item.WorkspaceID, err = uuid.Parse(workspaceStr)
	if err != nil {
		return nil, err
	}
	item.VendorEmail = vendorEmail.String
	item.IsActive = isActive == 1

	item.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return nil, err
	}
	item.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAtStr)
	if err != nil {
		return nil, err
	}

	return &item, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
