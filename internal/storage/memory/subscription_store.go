package memory

import (
	"context"
	"sync"
	"time"

	"mirrorvault/internal/domain"
	"mirrorvault/internal/storage"
)

// SubscriptionStore is an in-memory implementation of storage.SubscriptionStore.
// Append-only, no dedup: the same pair may be appended repeatedly and will
// appear once per registration in listings.
type SubscriptionStore struct {
	mu     sync.RWMutex
	data   []*domain.Subscription // insertion order
	nextID int64
}

// NewSubscriptionStore creates a new in-memory subscription store.
func NewSubscriptionStore() *SubscriptionStore {
	return &SubscriptionStore{nextID: 1}
}

// Append adds a subscription and returns it with the assigned ID.
func (s *SubscriptionStore) Append(_ context.Context, traderVaultID, followerVaultID string) (*domain.Subscription, error) {
	if traderVaultID == "" || followerVaultID == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sub := &domain.Subscription{
		ID:              s.nextID,
		TraderVaultID:   traderVaultID,
		FollowerVaultID: followerVaultID,
		CreatedAt:       time.Now().UnixMilli(),
	}
	s.nextID++
	s.data = append(s.data, sub)

	copy := *sub
	return &copy, nil
}

// ListByTrader retrieves all subscriptions for a trader vault in registration order.
func (s *SubscriptionStore) ListByTrader(_ context.Context, traderVaultID string) ([]*domain.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Subscription
	for _, sub := range s.data {
		if sub.TraderVaultID == traderVaultID {
			copy := *sub
			result = append(result, &copy)
		}
	}
	return result, nil
}

// List retrieves all subscriptions in registration order.
func (s *SubscriptionStore) List(_ context.Context) ([]*domain.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Subscription, 0, len(s.data))
	for _, sub := range s.data {
		copy := *sub
		result = append(result, &copy)
	}
	return result, nil
}

var _ storage.SubscriptionStore = (*SubscriptionStore)(nil)
