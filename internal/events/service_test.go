package events_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CaptainRedCodes/CareOps/internal/events"
)

func TestEmitAppendsAndDispatches(t *testing.T) {
	repo := newMemRepo()
	registry := events.NewRegistry(nil)
	var handled int
	require.NoError(t, registry.Register(events.TypeInventoryLow, namedHandler("notifier", func(ctx context.Context, entry *events.Entry) error {
		handled++
		return nil
	})))
	registry.Freeze()

	dispatcher := events.NewDispatcher(repo, registry, nil, nil, nil)
	svc := events.NewService(repo, dispatcher, nil)

	entry, err := svc.Emit(context.Background(), events.TypeInventoryLow, uuid.New(), "inventory_item", uuid.New(), map[string]any{
		"item_name": "Towels",
		"quantity":  1,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, handled)
	assert.Equal(t, events.StatusProcessed, entry.Status)

	stored, err := repo.GetByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, events.StatusProcessed, stored.Status)
	assert.NotNil(t, stored.ProcessedAt)
}

func TestEmitDefaultsNilData(t *testing.T) {
	repo := newMemRepo()
	registry := events.NewRegistry(nil)
	registry.Freeze()
	dispatcher := events.NewDispatcher(repo, registry, nil, nil, nil)
	svc := events.NewService(repo, dispatcher, nil)

	entry, err := svc.Emit(context.Background(), events.TypeStaffReplied, uuid.New(), "conversation", uuid.New(), nil)
	require.NoError(t, err)
	assert.NotNil(t, entry.Data)
}
