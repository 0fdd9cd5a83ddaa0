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

// FollowerVault replicates a trader's swaps proportionally to its own base
// balance. Mirroring is restricted to the engine address; depositors interact
// only through deposit and withdraw.
type FollowerVault struct {
	core
	engine string // only this caller may invoke MirrorTrade
}

// NewFollowerVault creates an empty follower vault bound to the engine address.
func NewFollowerVault(id, owner, baseToken, engine string, gw gateway.ExecutionGateway,
	prices pricing.Source, schedule fees.Schedule, collector *FeeCollector) *FollowerVault {
	return &FollowerVault{
		core:   newCore(id, domain.VaultKindFollower, owner, baseToken, gw, prices, schedule, collector),
		engine: engine,
	}
}

// FollowerVaultFromState rebuilds a follower vault from a durable snapshot.
func FollowerVaultFromState(state *domain.VaultState, engine string, gw gateway.ExecutionGateway,
	prices pricing.Source, schedule fees.Schedule, collector *FeeCollector) (*FollowerVault, error) {
	v := NewFollowerVault(state.VaultID, state.Owner, state.BaseToken, engine, gw, prices, schedule, collector)
	if err := v.restoreState(state); err != nil {
		return nil, err
	}
	return v, nil
}

// Withdraw transfers amount of token out to the owner. Base-token
// withdrawals are limited to the high-water-mark entitlement; non-base
// balances are trade proceeds and withdrawable in full.
func (v *FollowerVault) Withdraw(ctx context.Context, caller, token string, amount *big.Int) error {
	return v.withdraw(ctx, caller, token, amount)
}

// MirrorTrade replicates one trader swap at this follower's scale. The
// follower trades floor(baseBalance * traderAmountIn / traderTotalValue):
// a follower holding X% of the trader's portfolio value copies X% of the
// trader's absolute trade size. Restricted to the engine caller.
//
// The proceeds are credited net of the performance fee, which is routed to
// the collector. Returns (netReceived, feeAmount). Any failure, including a
// gateway rejection, leaves the vault untouched.
func (v *FollowerVault) MirrorTrade(ctx context.Context, caller, tokenIn, tokenOut string,
	traderAmountIn, traderTotalValue, minAmountOut *big.Int, deadline time.Time) (*big.Int, *big.Int, error) {
	if err := v.guard.acquire(); err != nil {
		return nil, nil, err
	}
	defer v.guard.release()

	if caller != v.engine {
		return nil, nil, fmt.Errorf("%w: mirroring requires the engine", ErrNotAuthorized)
	}
	// Mirrored swaps must originate from the base token: a trader trading
	// token A -> B is not replicable against a base-token balance.
	if tokenIn != v.BaseToken() {
		return nil, nil, fmt.Errorf("%w: got %s, base token is %s", ErrWrongToken, tokenIn, v.BaseToken())
	}
	if traderAmountIn == nil || traderAmountIn.Sign() <= 0 ||
		traderTotalValue == nil || traderTotalValue.Sign() <= 0 {
		return nil, nil, ledger.ErrInvalidAmount
	}

	baseBalance := v.ledger.Balance(v.BaseToken())

	scaledIn := new(big.Int).Mul(baseBalance, traderAmountIn)
	scaledIn.Div(scaledIn, traderTotalValue)

	if scaledIn.Sign() == 0 {
		return nil, nil, fmt.Errorf("%w: base balance %s, trader traded %s of %s",
			ErrInsufficientAllocation, baseBalance, traderAmountIn, traderTotalValue)
	}
	// Unreachable when traderAmountIn <= traderTotalValue, but traderAmountIn
	// is caller-supplied and not checked against the trader's balance here.
	if scaledIn.Cmp(baseBalance) > 0 {
		return nil, nil, fmt.Errorf("%w: scaled %s, base balance %s", ErrOverdraft, scaledIn, baseBalance)
	}

	// The slippage floor scales with the trade size, same formula as the
	// amount itself.
	var scaledMinOut *big.Int
	if minAmountOut != nil {
		scaledMinOut = new(big.Int).Mul(baseBalance, minAmountOut)
		scaledMinOut.Div(scaledMinOut, traderTotalValue)
	}

	amountOut, err := v.gateway.ExecuteSwap(ctx, gateway.SwapRequest{
		TokenIn:      tokenIn,
		TokenOut:     tokenOut,
		AmountIn:     scaledIn,
		MinAmountOut: scaledMinOut,
		Recipient:    v.id,
		Deadline:     deadline,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("gateway swap: %w", err)
	}

	// Everything past the gateway call settles together or not at all: a
	// failure on any step restores the pre-trade ledger.
	before := v.ledger.Snapshot()

	if err := v.ledger.Debit(v.BaseToken(), scaledIn); err != nil {
		return nil, nil, err
	}
	if amountOut.Sign() > 0 {
		if err := v.ledger.Credit(tokenOut, amountOut); err != nil {
			v.ledger.Restore(before)
			return nil, nil, err
		}
	}

	net, fee := v.schedule.PerformanceFee(amountOut)
	if fee.Sign() > 0 {
		if err := v.ledger.Debit(tokenOut, fee); err != nil {
			v.ledger.Restore(before)
			return nil, nil, err
		}
	}

	cv, err := v.portfolioValue(ctx)
	if err != nil {
		v.ledger.Restore(before)
		return nil, nil, fmt.Errorf("portfolio valuation after mirror: %w", err)
	}
	v.ledger.UpdateHighWaterMark(cv)

	v.collector.Collect(tokenOut, fee)
	observability.RecordFeeCollected("performance", fee)

	return net, fee, nil
}
