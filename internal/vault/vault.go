// Package vault implements the trader and follower vaults. Each vault
// exclusively owns its balance ledger; all balance mutation happens inside
// the vault whose state changes. Every public entry point is protected by a
// reentrancy guard and either completes fully or leaves no state change.
package vault

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"mirrorvault/internal/domain"
	"mirrorvault/internal/fees"
	"mirrorvault/internal/gateway"
	"mirrorvault/internal/ledger"
	"mirrorvault/internal/pricing"
)

// core holds the state and collaborators shared by both vault kinds.
type core struct {
	id        string
	kind      domain.VaultKind
	owner     string
	ledger    *ledger.Ledger
	gateway   gateway.ExecutionGateway
	prices    pricing.Source
	schedule  fees.Schedule
	collector *FeeCollector
	guard     guard
}

func newCore(id string, kind domain.VaultKind, owner, baseToken string,
	gw gateway.ExecutionGateway, prices pricing.Source,
	schedule fees.Schedule, collector *FeeCollector) core {
	if prices == nil {
		prices = pricing.NewZeroSource()
	}
	if collector == nil {
		collector = NewFeeCollector()
	}
	return core{
		id:        id,
		kind:      kind,
		owner:     owner,
		ledger:    ledger.New(baseToken),
		gateway:   gw,
		prices:    prices,
		schedule:  schedule,
		collector: collector,
	}
}

// ID returns the vault address.
func (c *core) ID() string { return c.id }

// Owner returns the owner address.
func (c *core) Owner() string { return c.owner }

// BaseToken returns the vault's settlement asset.
func (c *core) BaseToken() string { return c.ledger.BaseToken() }

// Balance returns the tracked balance for token.
func (c *core) Balance(token string) *big.Int { return c.ledger.Balance(token) }

// Deposit credits amount of the base token and advances the high-water
// mark if the new portfolio value exceeds it. Anyone may deposit; only
// withdrawal is restricted.
func (c *core) Deposit(ctx context.Context, amount *big.Int) error {
	if err := c.guard.acquire(); err != nil {
		return err
	}
	defer c.guard.release()

	before := c.ledger.Snapshot()
	if err := c.ledger.RecordDeposit(amount); err != nil {
		return err
	}

	cv, err := c.portfolioValue(ctx)
	if err != nil {
		c.ledger.Restore(before)
		return fmt.Errorf("portfolio valuation after deposit: %w", err)
	}
	c.ledger.UpdateHighWaterMark(cv)
	return nil
}

// PortfolioValue returns the base-token balance plus the price-source
// valuation of every other held token.
func (c *core) PortfolioValue(ctx context.Context) (*big.Int, error) {
	if err := c.guard.acquire(); err != nil {
		return nil, err
	}
	defer c.guard.release()
	return c.portfolioValue(ctx)
}

func (c *core) portfolioValue(ctx context.Context) (*big.Int, error) {
	total := c.ledger.Balance(c.ledger.BaseToken())
	for token, balance := range c.ledger.Balances() {
		if token == c.ledger.BaseToken() {
			continue
		}
		value, err := c.prices.Value(ctx, token, balance)
		if err != nil {
			return nil, fmt.Errorf("value %s: %w", token, err)
		}
		total.Add(total, value)
	}
	return total, nil
}

// AvailableToWithdraw returns the withdrawable amount of token at the
// current portfolio value.
func (c *core) AvailableToWithdraw(ctx context.Context, token string) (*big.Int, error) {
	if err := c.guard.acquire(); err != nil {
		return nil, err
	}
	defer c.guard.release()

	cv, err := c.portfolioValue(ctx)
	if err != nil {
		return nil, err
	}
	return c.ledger.AvailableToWithdraw(token, cv), nil
}

// withdraw runs the owner-restricted withdrawal under the guard.
func (c *core) withdraw(ctx context.Context, caller, token string, amount *big.Int) error {
	if err := c.guard.acquire(); err != nil {
		return err
	}
	defer c.guard.release()

	if caller != c.owner {
		return fmt.Errorf("%w: withdraw requires the vault owner", ErrNotAuthorized)
	}

	cv, err := c.portfolioValue(ctx)
	if err != nil {
		return fmt.Errorf("portfolio valuation before withdrawal: %w", err)
	}
	return c.ledger.RecordWithdrawal(token, amount, cv)
}

// SnapshotLedger captures the full ledger state, including the high-water
// mark. Used by the mirroring engine for all-or-nothing batch rollback.
func (c *core) SnapshotLedger() *ledger.Snapshot {
	return c.ledger.Snapshot()
}

// RestoreLedger replaces the ledger state with a previously taken snapshot.
func (c *core) RestoreLedger(s *ledger.Snapshot) {
	c.ledger.Restore(s)
}

// State exports the vault as a durable snapshot for persistence.
func (c *core) State() *domain.VaultState {
	balances := make(map[string]string)
	for token, b := range c.ledger.Balances() {
		balances[token] = b.String()
	}
	return &domain.VaultState{
		VaultID:          c.id,
		Kind:             c.kind,
		Owner:            c.owner,
		BaseToken:        c.ledger.BaseToken(),
		Balances:         balances,
		TotalDeposits:    c.ledger.TotalDeposits().String(),
		TotalWithdrawals: c.ledger.TotalWithdrawals().String(),
		HighWaterMark:    c.ledger.HighWaterMark().String(),
		UpdatedAt:        time.Now().UnixMilli(),
	}
}

// restoreState loads ledger counters and balances from a durable snapshot.
func (c *core) restoreState(state *domain.VaultState) error {
	snap := &ledger.Snapshot{
		BaseToken: state.BaseToken,
		Balances:  make(map[string]*big.Int, len(state.Balances)),
	}
	for token, s := range state.Balances {
		b, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return fmt.Errorf("malformed balance %q for token %s", s, token)
		}
		snap.Balances[token] = b
	}

	var ok bool
	if snap.TotalDeposits, ok = new(big.Int).SetString(state.TotalDeposits, 10); !ok {
		return fmt.Errorf("malformed total deposits %q", state.TotalDeposits)
	}
	if snap.TotalWithdrawals, ok = new(big.Int).SetString(state.TotalWithdrawals, 10); !ok {
		return fmt.Errorf("malformed total withdrawals %q", state.TotalWithdrawals)
	}
	if snap.HighWaterMark, ok = new(big.Int).SetString(state.HighWaterMark, 10); !ok {
		return fmt.Errorf("malformed high-water mark %q", state.HighWaterMark)
	}

	c.ledger.Restore(snap)
	return nil
}
