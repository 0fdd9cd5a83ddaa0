package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"mirrorvault/internal/domain"
	"mirrorvault/internal/storage"
)

// SubscriptionStore implements storage.SubscriptionStore using PostgreSQL.
// The table carries no uniqueness constraint on the pair: duplicates are
// part of the protocol's observable behavior.
type SubscriptionStore struct {
	pool *Pool
}

// NewSubscriptionStore creates a new SubscriptionStore.
func NewSubscriptionStore(pool *Pool) *SubscriptionStore {
	return &SubscriptionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SubscriptionStore = (*SubscriptionStore)(nil)

// Append adds a subscription and returns it with the assigned ID.
func (s *SubscriptionStore) Append(ctx context.Context, traderVaultID, followerVaultID string) (*domain.Subscription, error) {
	if traderVaultID == "" || followerVaultID == "" {
		return nil, storage.ErrInvalidInput
	}

	sub := &domain.Subscription{
		TraderVaultID:   traderVaultID,
		FollowerVaultID: followerVaultID,
		CreatedAt:       time.Now().UnixMilli(),
	}

	query := `
		INSERT INTO subscriptions (trader_vault_id, follower_vault_id, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	err := s.pool.QueryRow(ctx, query,
		sub.TraderVaultID, sub.FollowerVaultID, sub.CreatedAt,
	).Scan(&sub.ID)
	if err != nil {
		return nil, fmt.Errorf("append subscription: %w", err)
	}
	return sub, nil
}

// ListByTrader retrieves all subscriptions for a trader vault in registration order.
func (s *SubscriptionStore) ListByTrader(ctx context.Context, traderVaultID string) ([]*domain.Subscription, error) {
	query := `
		SELECT id, trader_vault_id, follower_vault_id, created_at
		FROM subscriptions
		WHERE trader_vault_id = $1
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query, traderVaultID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions by trader: %w", err)
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

// List retrieves all subscriptions in registration order.
func (s *SubscriptionStore) List(ctx context.Context) ([]*domain.Subscription, error) {
	query := `
		SELECT id, trader_vault_id, follower_vault_id, created_at
		FROM subscriptions
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

// scanSubscriptions scans multiple rows into a slice of Subscription.
func scanSubscriptions(rows pgx.Rows) ([]*domain.Subscription, error) {
	var subs []*domain.Subscription

	for rows.Next() {
		var sub domain.Subscription
		if err := rows.Scan(&sub.ID, &sub.TraderVaultID, &sub.FollowerVaultID, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscription row: %w", err)
		}
		subs = append(subs, &sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscription rows: %w", err)
	}
	return subs, nil
}
