package persistence

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CaptainRedCodes/CareOps/internal/events"
	"github.com/CaptainRedCodes/CareOps/internal/inventory/domain"
)

// PostgresItemStore implements domain.Store on pgx. The item lock is a
// SELECT ... FOR UPDATE on the item row, so deduction is serialized
// across processes and the event entries commit with the deduction.
type PostgresItemStore struct {
	pool *pgxpool.Pool
}

// NewPostgresItemStore creates the Postgres inventory store.
func NewPostgresItemStore(pool *pgxpool.Pool) *PostgresItemStore {
	return &PostgresItemStore{pool: pool}
}

// WithItemLock locks the item row for the duration of fn's transaction.
func (s *PostgresItemStore) WithItemLock(ctx context.Context, workspaceID, itemID uuid.UUID, fn func(tx domain.ItemTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var lockedID uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT id FROM inventory_items WHERE id = $1 AND workspace_id = $2 FOR UPDATE`,
		itemID, workspaceID,
	).Scan(&lockedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrItemNotFound
		}
		return err
	}

	if err := fn(&pgItemTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Create inserts a new item.
func (s *PostgresItemStore) Create(ctx context.Context, item *domain.Item) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO inventory_items (
			id, workspace_id, name, quantity, unit, low_stock_threshold,
			vendor_email, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		item.ID,
		item.WorkspaceID,
		item.Name,
		item.Quantity,
		item.Unit,
		item.LowStockThreshold,
		item.VendorEmail,
		item.IsActive,
		item.CreatedAt,
		item.UpdatedAt,
	)
	return err
}

// GetByID loads one item outside any lock.
func (s *PostgresItemStore) GetByID(ctx context.Context, workspaceID, itemID uuid.UUID) (*domain.Item, error) {
	row := s.pool.QueryRow(ctx,
		pgItemSelect+` WHERE id = $1 AND workspace_id = $2`,
		itemID, workspaceID,
	)
	return scanPgItemRow(row)
}

// ListByWorkspace returns all items for a workspace by name.
func (s *PostgresItemStore) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*domain.Item, error) {
	rows, err := s.pool.Query(ctx,
		pgItemSelect+` WHERE workspace_id = $1 ORDER BY name ASC`,
		workspaceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.Item
	for rows.Next() {
		item, err := scanPgItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type pgItemTx struct {
	tx pgx.Tx
}

func (t *pgItemTx) GetItem(ctx context.Context, workspaceID, itemID uuid.UUID) (*domain.Item, error) {
	row := t.tx.QueryRow(ctx,
		pgItemSelect+` WHERE id = $1 AND workspace_id = $2`,
		itemID, workspaceID,
	)
	return scanPgItemRow(row)
}

func (t *pgItemTx) SaveItem(ctx context.Context, item *domain.Item) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE inventory_items SET quantity = $1, updated_at = $2
		WHERE id = $3 AND workspace_id = $4`,
		item.Quantity,
		item.UpdatedAt,
		item.ID,
		item.WorkspaceID,
	)
	return err
}

func (t *pgItemTx) InsertUsage(ctx context.Context, usage *domain.Usage) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO inventory_usage (
			id, item_id, workspace_id, booking_id, quantity_used, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		usage.ID,
		usage.ItemID,
		usage.WorkspaceID,
		usage.BookingID,
		usage.Quantity,
		usage.Notes,
		usage.CreatedAt,
	)
	return err
}

func (t *pgItemTx) AppendEvent(ctx context.Context, entry *events.Entry) error {
	data, err := json.Marshal(entry.Data)
	if err != nil {
		return err
	}

	_, err = t.tx.Exec(ctx, `
		INSERT INTO event_log (
			id, event_type, workspace_id, entity_type, entity_id,
			event_data, status, error_message, created_at, processed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULL)`,
		entry.ID,
		string(entry.Type),
		entry.WorkspaceID,
		entry.EntityType,
		entry.EntityID,
		data,
		string(entry.Status),
		entry.ErrorMessage,
		entry.CreatedAt,
	)
	return err
}

const pgItemSelect = `
	SELECT id, workspace_id, name, quantity, unit, low_stock_threshold,
		vendor_email, is_active, created_at, updated_at
	FROM inventory_items`

type pgRowScanner interface {
	Scan(dest ...any) error
}

func scanPgItemRow(row pgRowScanner) (*domain.Item, error) {
	item, err := scanPgItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		return nil, err
	}
	return item, nil
}

func scanPgItem(row pgRowScanner) (*domain.Item, error) {
	var item domain.Item
	var vendorEmail *string

	err := row.Scan(
		&item.ID,
		&item.WorkspaceID,
		&item.Name,
		&item.Quantity,
		&item.Unit,
		&item.LowStockThreshold,
		&vendorEmail,
		&item.IsActive,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if vendorEmail != nil {
		item.VendorEmail = *vendorEmail
	}
	return &item, nil
}
