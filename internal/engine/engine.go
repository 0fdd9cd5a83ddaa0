// Package engine implements the trade mirroring engine. It owns the
// subscription relation between trader and follower vaults and fans each
// trader trade out to the followers; it never writes a follower's balance
// directly, only invokes the follower's own mirror operation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"mirrorvault/internal/domain"
	"mirrorvault/internal/observability"
	"mirrorvault/internal/storage"
	"mirrorvault/internal/vault"
)

// Engine errors.
var (
	// ErrVaultNotFound is returned when an operation references a vault
	// the engine does not know.
	ErrVaultNotFound = errors.New("vault not found")

	// ErrEmptyPortfolio is returned when mirroring is requested for a
	// trader whose portfolio value is zero.
	ErrEmptyPortfolio = errors.New("trader portfolio value is zero")
)

// AnalyticsSink receives settled batch records for analytical storage.
// Writes are best-effort: a sink failure never fails the batch.
type AnalyticsSink interface {
	InsertBatch(ctx context.Context, t *domain.TradeRecord) error
}

// Config holds the engine's role addresses and fan-out policy.
type Config struct {
	// Address is the engine's caller identity toward follower vaults.
	Address string

	// Registrar is the only address allowed to register followers
	// (the vault factory collaborator).
	Registrar string

	// Relayer is the only address allowed to trigger mirroring. Mirroring
	// is a push model: the relayer observes the trader's trade and submits
	// it here.
	Relayer string

	// ContinueOnError switches fan-out to per-follower isolation: a failed
	// follower leg is skipped and the batch settles with partial success.
	// Off by default; the reference behavior aborts the whole batch on the
	// first failure.
	ContinueOnError bool
}

// Engine orchestrates mirror batches over registered vaults.
type Engine struct {
	config Config
	logger *log.Logger

	mu        sync.RWMutex
	traders   map[string]*vault.TraderVault
	followers map[string]*vault.FollowerVault

	// dispatching is the engine-level reentrancy guard: one mirror batch
	// at a time, overlapping calls rejected rather than queued.
	dispatching atomic.Bool

	subscriptions storage.SubscriptionStore
	records       storage.TradeRecordStore
	states        storage.VaultStateStore
	analytics     AnalyticsSink // optional

	clock func() time.Time
}

// New creates an engine over the given stores. analytics may be nil.
func New(config Config, subscriptions storage.SubscriptionStore,
	records storage.TradeRecordStore, states storage.VaultStateStore,
	analytics AnalyticsSink) *Engine {
	return &Engine{
		config:        config,
		logger:        log.New(os.Stdout, "[engine] ", log.LstdFlags|log.Lshortfile),
		traders:       make(map[string]*vault.TraderVault),
		followers:     make(map[string]*vault.FollowerVault),
		subscriptions: subscriptions,
		records:       records,
		states:        states,
		analytics:     analytics,
		clock:         time.Now,
	}
}

// WithClock overrides the batch timestamp clock, for deterministic tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.clock = now
	return e
}

// Address returns the engine's caller identity toward follower vaults.
func (e *Engine) Address() string {
	return e.config.Address
}

// AddTrader registers a trader vault with the engine.
func (e *Engine) AddTrader(v *vault.TraderVault) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.traders[v.ID()] = v
}

// AddFollower registers a follower vault with the engine.
func (e *Engine) AddFollower(v *vault.FollowerVault) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.followers[v.ID()] = v
}

// Trader returns a registered trader vault.
func (e *Engine) Trader(id string) (*vault.TraderVault, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if v, ok := e.traders[id]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w: trader %s", ErrVaultNotFound, id)
}

// Follower returns a registered follower vault.
func (e *Engine) Follower(id string) (*vault.FollowerVault, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if v, ok := e.followers[id]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w: follower %s", ErrVaultNotFound, id)
}

// RegisterFollower subscribes a follower vault to a trader vault's trades.
// Restricted to the registrar address. The relation is append-only and not
// deduplicated: registering the same pair twice doubles the mirroring.
func (e *Engine) RegisterFollower(ctx context.Context, caller, traderID, followerID string) (*domain.Subscription, error) {
	if caller != e.config.Registrar {
		return nil, fmt.Errorf("%w: registration requires the registrar", vault.ErrNotAuthorized)
	}

	e.mu.RLock()
	_, traderOK := e.traders[traderID]
	_, followerOK := e.followers[followerID]
	e.mu.RUnlock()

	if !traderOK {
		return nil, fmt.Errorf("%w: trader %s", ErrVaultNotFound, traderID)
	}
	if !followerOK {
		return nil, fmt.Errorf("%w: follower %s", ErrVaultNotFound, followerID)
	}

	sub, err := e.subscriptions.Append(ctx, traderID, followerID)
	if err != nil {
		return nil, fmt.Errorf("append subscription: %w", err)
	}

	if all, err := e.subscriptions.List(ctx); err == nil {
		observability.UpdateRegisteredFollowers(len(all))
	}

	e.logger.Printf("registered follower %s for trader %s (subscription %d)",
		followerID, traderID, sub.ID)
	return sub, nil
}
