package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratoscan/stratoscan/pkg/inventory"
)

func testInventory(id string, ts time.Time) *inventory.InfrastructureInventory {
	return &inventory.InfrastructureInventory{
		ID:        id,
		Timestamp: ts,
		Provider:  "aws",
		AccountID: "123456789012",
		Regions:   []string{"us-east-1"},
		Summary:   inventory.InventorySummary{TotalResources: 1},
		Resources: []inventory.DiscoveredResource{
			{ID: "i-abc", Type: "aws_instance", Service: "ec2", Region: "us-east-1"},
		},
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore(NewLocalStore(t.TempDir()), FormatJSON)

	inv := testInventory("sess-1", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	key, err := store.Save(ctx, inv)
	require.NoError(t, err)
	assert.Equal(t, "inventories/123456789012/20260301T120000Z-sess-1.json", key)

	loaded, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, loaded.ID)
	assert.Equal(t, inv.AccountID, loaded.AccountID)
	require.Len(t, loaded.Resources, 1)
	assert.Equal(t, "aws_instance", loaded.Resources[0].Type)
}

func TestSnapshotListAndLatest(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore(NewLocalStore(t.TempDir()), FormatJSON)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"sess-a", "sess-b", "sess-c"} {
		_, err := store.Save(ctx, testInventory(id, base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
	}

	keys, err := store.List(ctx, "123456789012")
	require.NoError(t, err)
	require.Len(t, keys, 3)

	latest, err := store.Latest(ctx, "123456789012")
	require.NoError(t, err)
	assert.Equal(t, "sess-c", latest.ID)
}

func TestSnapshotLatestEmpty(t *testing.T) {
	store := NewSnapshotStore(NewLocalStore(t.TempDir()), FormatJSON)

	_, err := store.Latest(context.Background(), "000000000000")
	require.Error(t, err)
}

func TestSnapshotRejectsUnknownFormat(t *testing.T) {
	store := NewSnapshotStore(NewLocalStore(t.TempDir()), "xml")

	_, err := store.Save(context.Background(), testInventory("sess-1", time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported snapshot format")
}

func TestLocalStoreListMissingPrefix(t *testing.T) {
	store := NewLocalStore(t.TempDir())

	keys, err := store.List(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
