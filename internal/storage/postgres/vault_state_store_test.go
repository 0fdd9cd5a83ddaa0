package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mirrorvault/internal/domain"
	"mirrorvault/internal/storage"
)

func createTestVaultState(vaultID string) *domain.VaultState {
	return &domain.VaultState{
		VaultID:          vaultID,
		Kind:             domain.VaultKindFollower,
		Owner:            "owner-1",
		BaseToken:        "USDC",
		Balances:         map[string]string{"USDC": "450", "SOL": "93"},
		TotalDeposits:    "500",
		TotalWithdrawals: "0",
		HighWaterMark:    "500",
		UpdatedAt:        1000,
	}
}

func TestVaultStateStore_SaveAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewVaultStateStore(pool)

	state := createTestVaultState("vault-1")
	require.NoError(t, store.Save(ctx, state))

	retrieved, err := store.Get(ctx, "vault-1")
	require.NoError(t, err)

	assert.Equal(t, state.Kind, retrieved.Kind)
	assert.Equal(t, state.Owner, retrieved.Owner)
	assert.Equal(t, state.Balances, retrieved.Balances)
	assert.Equal(t, state.TotalDeposits, retrieved.TotalDeposits)
	assert.Equal(t, state.HighWaterMark, retrieved.HighWaterMark)
}

func TestVaultStateStore_SaveUpserts(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewVaultStateStore(pool)

	require.NoError(t, store.Save(ctx, createTestVaultState("vault-1")))

	updated := createTestVaultState("vault-1")
	updated.Balances = map[string]string{"USDC": "405"}
	updated.TotalWithdrawals = "45"
	updated.UpdatedAt = 2000
	require.NoError(t, store.Save(ctx, updated))

	retrieved, err := store.Get(ctx, "vault-1")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"USDC": "405"}, retrieved.Balances)
	assert.Equal(t, "45", retrieved.TotalWithdrawals)
	assert.Equal(t, int64(2000), retrieved.UpdatedAt)
}

func TestVaultStateStore_GetNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewVaultStateStore(pool)

	_, err := store.Get(ctx, "nonexistent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestVaultStateStore_ListOrdered(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewVaultStateStore(pool)

	for _, id := range []string{"vault-c", "vault-a", "vault-b"} {
		require.NoError(t, store.Save(ctx, createTestVaultState(id)))
	}

	states, err := store.List(ctx)
	require.NoError(t, err)

	require.Len(t, states, 3)
	assert.Equal(t, "vault-a", states[0].VaultID)
	assert.Equal(t, "vault-c", states[2].VaultID)
}
