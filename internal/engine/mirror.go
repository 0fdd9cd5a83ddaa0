package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"mirrorvault/internal/domain"
	"mirrorvault/internal/idhash"
	"mirrorvault/internal/ledger"
	"mirrorvault/internal/observability"
	"mirrorvault/internal/vault"
)

// appliedLeg tracks one follower mutation so the batch can roll it back.
type appliedLeg struct {
	follower *vault.FollowerVault
	before   *ledger.Snapshot
}

// MirrorTrade fans one trader trade out to every subscribed follower in
// registration order and emits one audit record for the batch. Restricted
// to the relayer address.
//
// Under the default all-or-nothing policy any follower failure rolls back
// every already-applied follower mutation and fails the whole batch. With
// ContinueOnError the failing follower is skipped and the batch settles
// with the legs that succeeded.
func (e *Engine) MirrorTrade(ctx context.Context, caller, traderID, tokenIn, tokenOut string,
	traderAmountIn, minAmountOut *big.Int, deadline time.Time) (*domain.TradeRecord, error) {
	if !e.dispatching.CompareAndSwap(false, true) {
		return nil, vault.ErrReentrancy
	}
	defer e.dispatching.Store(false)

	started := e.clock()

	record, err := e.mirrorTrade(ctx, caller, traderID, tokenIn, tokenOut,
		traderAmountIn, minAmountOut, deadline, started)
	if err != nil {
		observability.RecordBatchFailed(failureReason(err))
		return nil, err
	}

	observability.RecordBatchSettled(record.FollowerCount,
		e.clock().Sub(started).Seconds(), started.Unix())
	e.logger.Printf("batch %s settled: trader %s %s->%s, %d followers, copied %s, fees %s",
		record.BatchID, traderID, tokenIn, tokenOut,
		record.FollowerCount, record.TotalCopied, record.TotalFees)
	return record, nil
}

func (e *Engine) mirrorTrade(ctx context.Context, caller, traderID, tokenIn, tokenOut string,
	traderAmountIn, minAmountOut *big.Int, deadline time.Time, started time.Time) (*domain.TradeRecord, error) {
	if caller != e.config.Relayer {
		return nil, fmt.Errorf("%w: mirroring requires the relayer", vault.ErrNotAuthorized)
	}
	if traderAmountIn == nil || traderAmountIn.Sign() <= 0 {
		return nil, ledger.ErrInvalidAmount
	}

	trader, err := e.Trader(traderID)
	if err != nil {
		return nil, err
	}

	// The trade amount itself is caller-supplied and deliberately not
	// cross-checked against the trader's balance; only the portfolio value
	// used as the scaling denominator is read from the vault.
	traderValue, err := trader.PortfolioValue(ctx)
	if err != nil {
		return nil, fmt.Errorf("trader portfolio value: %w", err)
	}
	if traderValue.Sign() <= 0 {
		return nil, fmt.Errorf("%w: trader %s", ErrEmptyPortfolio, traderID)
	}

	subs, err := e.subscriptions.ListByTrader(ctx, traderID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}

	var (
		applied     []appliedLeg
		totalCopied = big.NewInt(0)
		totalFees   = big.NewInt(0)
		settledLegs = 0
	)

	rollback := func() {
		for i := len(applied) - 1; i >= 0; i-- {
			applied[i].follower.RestoreLedger(applied[i].before)
		}
	}

	for _, sub := range subs {
		follower, err := e.Follower(sub.FollowerVaultID)
		if err != nil {
			rollback()
			return nil, err
		}

		// Copied amount mirrors the follower's own scaling arithmetic.
		copied := new(big.Int).Mul(follower.Balance(follower.BaseToken()), traderAmountIn)
		copied.Div(copied, traderValue)

		before := follower.SnapshotLedger()
		_, fee, err := follower.MirrorTrade(ctx, e.config.Address, tokenIn, tokenOut,
			traderAmountIn, traderValue, minAmountOut, deadline)
		if err != nil {
			if e.config.ContinueOnError {
				e.logger.Printf("follower %s skipped (subscription %d): %v",
					sub.FollowerVaultID, sub.ID, err)
				continue
			}
			rollback()
			return nil, fmt.Errorf("follower %s (subscription %d): %w",
				sub.FollowerVaultID, sub.ID, err)
		}

		applied = append(applied, appliedLeg{follower: follower, before: before})
		totalCopied.Add(totalCopied, copied)
		totalFees.Add(totalFees, fee)
		settledLegs++
	}

	timestamp := started.UnixMilli()
	record := &domain.TradeRecord{
		BatchID:        idhash.ComputeBatchID(traderID, tokenIn, tokenOut, traderAmountIn.String(), timestamp),
		TraderVaultID:  traderID,
		TokenIn:        tokenIn,
		TokenOut:       tokenOut,
		TraderAmountIn: traderAmountIn.String(),
		TotalCopied:    totalCopied.String(),
		TotalFees:      totalFees.String(),
		FollowerCount:  settledLegs,
		Timestamp:      timestamp,
		CreatedAt:      e.clock().UnixMilli(),
	}

	// The audit record is part of the batch: if it cannot be persisted the
	// batch does not settle.
	if err := e.records.Insert(ctx, record); err != nil {
		rollback()
		return nil, fmt.Errorf("insert trade record: %w", err)
	}

	e.persistFollowerStates(ctx, applied)

	if e.analytics != nil {
		if err := e.analytics.InsertBatch(ctx, record); err != nil {
			e.logger.Printf("WARNING: analytics insert for batch %s failed: %v", record.BatchID, err)
		}
	}

	return record, nil
}

// persistFollowerStates saves durable snapshots of every mutated follower.
// Snapshot writes are a durability cache over the in-memory ledgers, so a
// failure is logged rather than failing the settled batch.
func (e *Engine) persistFollowerStates(ctx context.Context, applied []appliedLeg) {
	if e.states == nil {
		return
	}
	for _, leg := range applied {
		if err := e.states.Save(ctx, leg.follower.State()); err != nil {
			e.logger.Printf("WARNING: persist vault %s failed: %v", leg.follower.ID(), err)
		}
	}
}

// failureReason maps a batch error to a metrics label.
func failureReason(err error) string {
	switch {
	case errors.Is(err, vault.ErrNotAuthorized):
		return "not_authorized"
	case errors.Is(err, vault.ErrInsufficientAllocation):
		return "insufficient_allocation"
	case errors.Is(err, vault.ErrOverdraft):
		return "overdraft"
	case errors.Is(err, vault.ErrWrongToken):
		return "wrong_token"
	case errors.Is(err, vault.ErrReentrancy):
		return "reentrancy"
	case errors.Is(err, ErrVaultNotFound):
		return "vault_not_found"
	case errors.Is(err, ErrEmptyPortfolio):
		return "empty_portfolio"
	case errors.Is(err, ledger.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return "insufficient_balance"
	default:
		return "gateway"
	}
}
