package events_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CaptainRedCodes/CareOps/internal/events"
)

func TestRegistryRejectsRegistrationAfterFreeze(t *testing.T) {
	registry := events.NewRegistry(nil)

	h := namedHandler("late", func(ctx context.Context, entry *events.Entry) error { return nil })
	require.NoError(t, registry.Register(events.TypeBookingCreated, h))

	registry.Freeze()

	err := registry.Register(events.TypeBookingCreated, h)
	assert.ErrorIs(t, err, events.ErrRegistryFrozen)
	assert.Equal(t, 1, registry.HandlerCount())
}

func TestRegistryHandlersForUnknownTypeIsEmpty(t *testing.T) {
	registry := events.NewRegistry(nil)
	registry.Freeze()

	assert.Empty(t, registry.HandlersFor(events.TypeInventoryLow))
}

func TestParseTypeRejectsUnknownValues(t *testing.T) {
	for _, valid := range events.ValidTypes() {
		parsed, err := events.ParseType(string(valid))
		require.NoError(t, err)
		assert.Equal(t, valid, parsed)
	}

	_, err := events.ParseType("booking.deleted")
	assert.Error(t, err)
}
