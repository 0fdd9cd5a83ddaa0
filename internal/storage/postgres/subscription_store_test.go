package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mirrorvault/internal/storage"
)

func TestSubscriptionStore_AppendAndListByTrader(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSubscriptionStore(pool)

	first, err := store.Append(ctx, "trader-1", "follower-1")
	require.NoError(t, err)
	assert.Positive(t, first.ID)

	_, err = store.Append(ctx, "trader-1", "follower-2")
	require.NoError(t, err)
	_, err = store.Append(ctx, "trader-2", "follower-1")
	require.NoError(t, err)

	subs, err := store.ListByTrader(ctx, "trader-1")
	require.NoError(t, err)

	require.Len(t, subs, 2)
	assert.Equal(t, "follower-1", subs[0].FollowerVaultID)
	assert.Equal(t, "follower-2", subs[1].FollowerVaultID)
	assert.Less(t, subs[0].ID, subs[1].ID)
}

func TestSubscriptionStore_DuplicatesPreserved(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSubscriptionStore(pool)

	// The same pair registered twice yields two rows, by design.
	_, err := store.Append(ctx, "trader-1", "follower-1")
	require.NoError(t, err)
	_, err = store.Append(ctx, "trader-1", "follower-1")
	require.NoError(t, err)

	subs, err := store.ListByTrader(ctx, "trader-1")
	require.NoError(t, err)
	assert.Len(t, subs, 2)
}

func TestSubscriptionStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSubscriptionStore(pool)

	_, err := store.Append(ctx, "", "follower-1")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestSubscriptionStore_ListAll(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSubscriptionStore(pool)

	_, err := store.Append(ctx, "trader-1", "follower-1")
	require.NoError(t, err)
	_, err = store.Append(ctx, "trader-2", "follower-2")
	require.NoError(t, err)

	subs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, subs, 2)
}
