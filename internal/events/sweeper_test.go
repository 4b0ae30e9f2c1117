package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CaptainRedCodes/CareOps/internal/events"
)

func TestSweepOnceRedispatchesStuckEntries(t *testing.T) {
	repo := newMemRepo()
	registry := events.NewRegistry(nil)
	var handled []uuid.UUID
	require.NoError(t, registry.Register(events.TypeBookingCreated, namedHandler("tracker", func(ctx context.Context, entry *events.Entry) error {
		handled = append(handled, entry.ID)
		return nil
	})))
	registry.Freeze()

	dispatcher := events.NewDispatcher(repo, registry, nil, nil, nil)
	sweeper := events.NewSweeper(repo, dispatcher, events.SweeperConfig{
		PollInterval: time.Hour,
		GracePeriod:  time.Minute,
		BatchSize:    10,
	}, nil)

	// One entry stuck from five minutes ago, one fresh.
	stuck := events.NewEntry(events.TypeBookingCreated, uuid.New(), "booking", uuid.New(), nil)
	stuck.CreatedAt = time.Now().UTC().Add(-5 * time.Minute)
	fresh := events.NewEntry(events.TypeBookingCreated, uuid.New(), "booking", uuid.New(), nil)

	require.NoError(t, repo.Append(context.Background(), stuck))
	require.NoError(t, repo.Append(context.Background(), fresh))
	repo.stuck = []*events.Entry{stuck, fresh}

	require.NoError(t, sweeper.SweepOnce(context.Background()))

	// Only the entry older than the grace period was re-dispatched.
	require.Len(t, handled, 1)
	assert.Equal(t, stuck.ID, handled[0])

	stored, err := repo.GetByID(context.Background(), stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, events.StatusProcessed, stored.Status)
}

func TestSweepOnceSkipsAlreadyFinalEntries(t *testing.T) {
	repo := newMemRepo()
	registry := events.NewRegistry(nil)
	var invocations int
	require.NoError(t, registry.Register(events.TypeBookingCreated, namedHandler("tracker", func(ctx context.Context, entry *events.Entry) error {
		invocations++
		return nil
	})))
	registry.Freeze()

	dispatcher := events.NewDispatcher(repo, registry, nil, nil, nil)
	sweeper := events.NewSweeper(repo, dispatcher, events.SweeperConfig{
		PollInterval: time.Hour,
		GracePeriod:  time.Minute,
		BatchSize:    10,
	}, nil)

	entry := events.NewEntry(events.TypeBookingCreated, uuid.New(), "booking", uuid.New(), nil)
	entry.CreatedAt = time.Now().UTC().Add(-5 * time.Minute)
	require.NoError(t, repo.Append(context.Background(), entry))
	repo.stuck = []*events.Entry{entry}

	// Dispatch normally, then sweep: the sweep's copy is already final.
	require.NoError(t, dispatcher.Dispatch(context.Background(), entry))
	require.NoError(t, sweeper.SweepOnce(context.Background()))

	assert.Equal(t, 1, invocations)
}
