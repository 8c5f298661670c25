package publisher_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	audit "trustledger/pkg/platform/audit"
	"trustledger/pkg/platform/audit/publisher"
)

func TestSyncEmitFillsDefaults(t *testing.T) {
	store := audit.NewInMemoryStore()
	p := publisher.New(store)

	err := p.Emit(context.Background(), audit.Event{
		Actor:    "admin",
		Registry: audit.RegistryIdentity,
		Action:   audit.ActionSourceAdded,
	})
	require.NoError(t, err)

	events := store.Events()
	require.Len(t, events, 1)
	require.NotEmpty(t, events[0].EventID)
	require.False(t, events[0].Timestamp.IsZero())
}

func TestAsyncEmitDrainsOnClose(t *testing.T) {
	store := audit.NewInMemoryStore()
	p := publisher.New(store, publisher.WithAsyncBuffer(16))

	for i := 0; i < 10; i++ {
		require.NoError(t, p.Emit(context.Background(), audit.Event{
			Actor:  "admin",
			Action: audit.ActionSourceAdded,
		}))
	}
	p.Close()

	require.Len(t, store.Events(), 10)
}

func TestListByActor(t *testing.T) {
	store := audit.NewInMemoryStore()
	p := publisher.New(store)

	require.NoError(t, p.Emit(context.Background(), audit.Event{Actor: "admin", Action: audit.ActionSourceAdded}))
	require.NoError(t, p.Emit(context.Background(), audit.Event{Actor: "alice", Action: audit.ActionConsentGranted}))

	require.Len(t, store.ListByActor("admin"), 1)
	require.Len(t, store.ListByActor("alice"), 1)
	require.Empty(t, store.ListByActor("bob"))
}
