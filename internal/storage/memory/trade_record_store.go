package memory

import (
	"context"
	"sort"
	"sync"

	"mirrorvault/internal/domain"
	"mirrorvault/internal/storage"
)

// TradeRecordStore is an in-memory implementation of storage.TradeRecordStore.
type TradeRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TradeRecord // keyed by batch_id
}

// NewTradeRecordStore creates a new in-memory trade record store.
func NewTradeRecordStore() *TradeRecordStore {
	return &TradeRecordStore{
		data: make(map[string]*domain.TradeRecord),
	}
}

// Insert adds a new batch audit record. Returns ErrDuplicateKey if batch_id exists.
func (s *TradeRecordStore) Insert(_ context.Context, t *domain.TradeRecord) error {
	if t == nil || t.BatchID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.BatchID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *t
	s.data[t.BatchID] = &copy
	return nil
}

// GetByID retrieves a record by its batch ID. Returns ErrNotFound if not exists.
func (s *TradeRecordStore) GetByID(_ context.Context, batchID string) (*domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[batchID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *t
	return &copy, nil
}

// GetByTrader retrieves all records for a trader vault, ordered by timestamp ASC.
func (s *TradeRecordStore) GetByTrader(_ context.Context, traderVaultID string) ([]*domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeRecord
	for _, t := range s.data {
		if t.TraderVaultID == traderVaultID {
			copy := *t
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp < result[j].Timestamp
	})

	return result, nil
}

var _ storage.TradeRecordStore = (*TradeRecordStore)(nil)
