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
	"mirrorvault/internal/observability"
	"mirrorvault/internal/pricing"
)

// TraderVault holds the trader's capital and executes swaps through the
// execution gateway. Followers replicate its trades; the vault itself
// knows nothing about them.
type TraderVault struct {
	core
}

// NewTraderVault creates an empty trader vault.
func NewTraderVault(id, owner, baseToken string, gw gateway.ExecutionGateway,
	prices pricing.Source, schedule fees.Schedule, collector *FeeCollector) *TraderVault {
	return &TraderVault{
		core: newCore(id, domain.VaultKindTrader, owner, baseToken, gw, prices, schedule, collector),
	}
}

// TraderVaultFromState rebuilds a trader vault from a durable snapshot.
func TraderVaultFromState(state *domain.VaultState, gw gateway.ExecutionGateway,
	prices pricing.Source, schedule fees.Schedule, collector *FeeCollector) (*TraderVault, error) {
	v := NewTraderVault(state.VaultID, state.Owner, state.BaseToken, gw, prices, schedule, collector)
	if err := v.restoreState(state); err != nil {
		return nil, err
	}
	return v, nil
}

// Withdraw transfers amount of the base token out to the owner. Limited to
// the high-water-mark entitlement: principal stays locked, only profit above
// the mark is withdrawable.
func (v *TraderVault) Withdraw(ctx context.Context, caller string, amount *big.Int) error {
	return v.withdraw(ctx, caller, v.BaseToken(), amount)
}

// ExecuteSwap trades amountIn of tokenIn for tokenOut through the gateway.
// Owner-only. The gateway call happens before any ledger mutation, so a
// gateway failure leaves the vault untouched. The swap fee is deducted from
// the proceeds and routed to the collector; the net amount is credited and
// returned.
func (v *TraderVault) ExecuteSwap(ctx context.Context, caller, tokenIn, tokenOut string,
	amountIn, minAmountOut *big.Int, deadline time.Time) (*big.Int, error) {
	if err := v.guard.acquire(); err != nil {
		return nil, err
	}
	defer v.guard.release()

	if caller != v.owner {
		return nil, fmt.Errorf("%w: swap requires the vault owner", ErrNotAuthorized)
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ledger.ErrInvalidAmount
	}
	if amountIn.Cmp(v.ledger.Balance(tokenIn)) > 0 {
		return nil, fmt.Errorf("%w: %s balance %s, swap %s",
			ledger.ErrInsufficientBalance, tokenIn, v.ledger.Balance(tokenIn), amountIn)
	}

	amountOut, err := v.gateway.ExecuteSwap(ctx, gateway.SwapRequest{
		TokenIn:      tokenIn,
		TokenOut:     tokenOut,
		AmountIn:     amountIn,
		MinAmountOut: minAmountOut,
		Recipient:    v.id,
		Deadline:     deadline,
	})
	if err != nil {
		return nil, fmt.Errorf("gateway swap: %w", err)
	}

	net, fee := v.schedule.SwapFee(amountOut)

	// Everything past the gateway call settles together or not at all: a
	// failure on any step restores the pre-trade ledger.
	before := v.ledger.Snapshot()

	if err := v.ledger.Debit(tokenIn, amountIn); err != nil {
		return nil, err
	}
	if net.Sign() > 0 {
		if err := v.ledger.Credit(tokenOut, net); err != nil {
			v.ledger.Restore(before)
			return nil, err
		}
	}

	cv, err := v.portfolioValue(ctx)
	if err != nil {
		v.ledger.Restore(before)
		return nil, fmt.Errorf("portfolio valuation after swap: %w", err)
	}
	v.ledger.UpdateHighWaterMark(cv)

	v.collector.Collect(tokenOut, fee)
	observability.RecordFeeCollected("swap", fee)

	return net, nil
}
