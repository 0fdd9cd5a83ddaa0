package memory

import (
	"context"
	"sort"
	"sync"

	"mirrorvault/internal/domain"
	"mirrorvault/internal/storage"
)

// VaultStateStore is an in-memory implementation of storage.VaultStateStore.
type VaultStateStore struct {
	mu   sync.RWMutex
	data map[string]*domain.VaultState // keyed by vault_id
}

// NewVaultStateStore creates a new in-memory vault state store.
func NewVaultStateStore() *VaultStateStore {
	return &VaultStateStore{
		data: make(map[string]*domain.VaultState),
	}
}

// Save upserts a vault's durable snapshot, keyed by vault_id.
func (s *VaultStateStore) Save(_ context.Context, state *domain.VaultState) error {
	if state == nil || state.VaultID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[state.VaultID] = copyVaultState(state)
	return nil
}

// Get retrieves a vault snapshot by its ID. Returns ErrNotFound if not exists.
func (s *VaultStateStore) Get(_ context.Context, vaultID string) (*domain.VaultState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, exists := s.data[vaultID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyVaultState(state), nil
}

// List retrieves all vault snapshots, ordered by vault_id.
func (s *VaultStateStore) List(_ context.Context) ([]*domain.VaultState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.VaultState, 0, len(s.data))
	for _, state := range s.data {
		result = append(result, copyVaultState(state))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].VaultID < result[j].VaultID
	})

	return result, nil
}

// copyVaultState deep-copies a snapshot, including the balances map.
func copyVaultState(state *domain.VaultState) *domain.VaultState {
	c := *state
	c.Balances = make(map[string]string, len(state.Balances))
	for token, b := range state.Balances {
		c.Balances[token] = b
	}
	return &c
}

var _ storage.VaultStateStore = (*VaultStateStore)(nil)
