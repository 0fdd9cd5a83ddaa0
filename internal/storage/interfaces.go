package storage

import (
	"context"

	"mirrorvault/internal/domain"
)

// VaultStateStore provides access to vault_states storage.
type VaultStateStore interface {
	// Save upserts a vault's durable snapshot, keyed by vault_id.
	Save(ctx context.Context, s *domain.VaultState) error

	// Get retrieves a vault snapshot by its ID. Returns ErrNotFound if not exists.
	Get(ctx context.Context, vaultID string) (*domain.VaultState, error)

	// List retrieves all vault snapshots, ordered by vault_id.
	List(ctx context.Context) ([]*domain.VaultState, error)
}

// SubscriptionStore provides access to subscriptions storage.
// The relation is append-only and NOT deduplicated: the same
// (trader, follower) pair may appear multiple times.
type SubscriptionStore interface {
	// Append adds a subscription and returns it with the assigned ID.
	Append(ctx context.Context, traderVaultID, followerVaultID string) (*domain.Subscription, error)

	// ListByTrader retrieves all subscriptions for a trader vault in
	// registration order.
	ListByTrader(ctx context.Context, traderVaultID string) ([]*domain.Subscription, error)

	// List retrieves all subscriptions in registration order.
	List(ctx context.Context) ([]*domain.Subscription, error)
}

// TradeRecordStore provides access to trade_records storage.
type TradeRecordStore interface {
	// Insert adds a new batch audit record. Returns ErrDuplicateKey if batch_id exists.
	Insert(ctx context.Context, t *domain.TradeRecord) error

	// GetByID retrieves a record by its batch ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, batchID string) (*domain.TradeRecord, error)

	// GetByTrader retrieves all records for a trader vault, ordered by timestamp ASC.
	GetByTrader(ctx context.Context, traderVaultID string) ([]*domain.TradeRecord, error)
}
