// Package ledger implements the per-vault balance ledger with
// high-water-mark accounting. All arithmetic is unsigned big.Int; any
// operation that would take a balance below zero fails without applying
// partial state.
package ledger

import (
	"errors"
	"fmt"
	"math/big"
)

// Ledger errors.
var (
	// ErrInvalidAmount is returned for zero, negative, or nil amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientBalance is returned when a debit or withdrawal exceeds
	// the available balance for the token.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Ledger tracks per-token balances, cumulative deposit/withdrawal counters,
// and the high-water mark of portfolio value for a single vault.
// It is not goroutine-safe; the owning vault serializes access.
type Ledger struct {
	baseToken        string
	balances         map[string]*big.Int
	totalDeposits    *big.Int
	totalWithdrawals *big.Int
	highWaterMark    *big.Int
}

// New creates an empty ledger settled in baseToken.
func New(baseToken string) *Ledger {
	return &Ledger{
		baseToken:        baseToken,
		balances:         make(map[string]*big.Int),
		totalDeposits:    big.NewInt(0),
		totalWithdrawals: big.NewInt(0),
		highWaterMark:    big.NewInt(0),
	}
}

// BaseToken returns the settlement asset identifier.
func (l *Ledger) BaseToken() string {
	return l.baseToken
}

// Balance returns a copy of the tracked balance for token (zero if untracked).
func (l *Ledger) Balance(token string) *big.Int {
	if b, ok := l.balances[token]; ok {
		return new(big.Int).Set(b)
	}
	return big.NewInt(0)
}

// Balances returns a deep copy of all non-zero token balances.
func (l *Ledger) Balances() map[string]*big.Int {
	out := make(map[string]*big.Int, len(l.balances))
	for token, b := range l.balances {
		if b.Sign() > 0 {
			out[token] = new(big.Int).Set(b)
		}
	}
	return out
}

// TotalDeposits returns a copy of the cumulative base-token deposit counter.
func (l *Ledger) TotalDeposits() *big.Int {
	return new(big.Int).Set(l.totalDeposits)
}

// TotalWithdrawals returns a copy of the cumulative base-token withdrawal counter.
func (l *Ledger) TotalWithdrawals() *big.Int {
	return new(big.Int).Set(l.totalWithdrawals)
}

// HighWaterMark returns a copy of the maximum portfolio value ever recorded.
func (l *Ledger) HighWaterMark() *big.Int {
	return new(big.Int).Set(l.highWaterMark)
}

// NetDeposits returns totalDeposits - totalWithdrawals.
// The counters are monotonic, so the result is never negative.
func (l *Ledger) NetDeposits() *big.Int {
	return new(big.Int).Sub(l.totalDeposits, l.totalWithdrawals)
}

// RecordDeposit credits amount of the base token and advances the deposit
// counter. The caller is responsible for recomputing the high-water mark
// afterward via UpdateHighWaterMark.
func (l *Ledger) RecordDeposit(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	l.credit(l.baseToken, amount)
	l.totalDeposits.Add(l.totalDeposits, amount)
	return nil
}

// RecordWithdrawal debits amount of token, enforcing the high-water-mark
// withdrawal entitlement. currentValue is the vault's current portfolio
// value, used only for base-token withdrawals (profit above the high-water
// mark unlocks principal-locked funds).
func (l *Ledger) RecordWithdrawal(token string, amount, currentValue *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	available := l.AvailableToWithdraw(token, currentValue)
	if amount.Cmp(available) > 0 {
		return fmt.Errorf("%w: requested %s, available %s", ErrInsufficientBalance, amount, available)
	}

	if err := l.Debit(token, amount); err != nil {
		return err
	}
	if token == l.baseToken {
		l.totalWithdrawals.Add(l.totalWithdrawals, amount)
	}
	return nil
}

// AvailableToWithdraw returns the withdrawable amount of token.
//
// Base token: balance - (totalDeposits - totalWithdrawals) + max(currentValue - highWaterMark, 0),
// floored at zero and capped at the tracked balance. Principal stays locked;
// only realized profit above the high-water mark is withdrawable.
//
// Non-base tokens represent raw trade proceeds outside the deposit accounting
// and are withdrawable in full.
func (l *Ledger) AvailableToWithdraw(token string, currentValue *big.Int) *big.Int {
	balance := l.Balance(token)
	if token != l.baseToken {
		return balance
	}

	available := new(big.Int).Sub(balance, l.NetDeposits())

	if currentValue != nil {
		profit := new(big.Int).Sub(currentValue, l.highWaterMark)
		if profit.Sign() > 0 {
			available.Add(available, profit)
		}
	}

	if available.Sign() < 0 {
		return big.NewInt(0)
	}
	if available.Cmp(balance) > 0 {
		return balance
	}
	return available
}

// Credit adds amount to the token balance.
func (l *Ledger) Credit(token string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.credit(token, amount)
	return nil
}

// Debit subtracts amount from the token balance, failing on underflow
// with no state change.
func (l *Ledger) Debit(token string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	balance, ok := l.balances[token]
	if !ok || balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s balance %s, debit %s", ErrInsufficientBalance, token, l.Balance(token), amount)
	}
	balance.Sub(balance, amount)
	return nil
}

// UpdateHighWaterMark raises the high-water mark to currentValue if it
// exceeds the stored mark. The mark never decreases.
func (l *Ledger) UpdateHighWaterMark(currentValue *big.Int) {
	if currentValue != nil && currentValue.Cmp(l.highWaterMark) > 0 {
		l.highWaterMark.Set(currentValue)
	}
}

func (l *Ledger) credit(token string, amount *big.Int) {
	if b, ok := l.balances[token]; ok {
		b.Add(b, amount)
		return
	}
	l.balances[token] = new(big.Int).Set(amount)
}

// Snapshot is a deep copy of ledger state, used for all-or-nothing batch
// rollback and for persistence.
type Snapshot struct {
	BaseToken        string
	Balances         map[string]*big.Int
	TotalDeposits    *big.Int
	TotalWithdrawals *big.Int
	HighWaterMark    *big.Int
}

// Snapshot captures the current ledger state.
func (l *Ledger) Snapshot() *Snapshot {
	return &Snapshot{
		BaseToken:        l.baseToken,
		Balances:         l.Balances(),
		TotalDeposits:    l.TotalDeposits(),
		TotalWithdrawals: l.TotalWithdrawals(),
		HighWaterMark:    l.HighWaterMark(),
	}
}

// Restore replaces the ledger state with the snapshot's.
func (l *Ledger) Restore(s *Snapshot) {
	l.baseToken = s.BaseToken
	l.balances = make(map[string]*big.Int, len(s.Balances))
	for token, b := range s.Balances {
		l.balances[token] = new(big.Int).Set(b)
	}
	l.totalDeposits = new(big.Int).Set(s.TotalDeposits)
	l.totalWithdrawals = new(big.Int).Set(s.TotalWithdrawals)
	l.highWaterMark = new(big.Int).Set(s.HighWaterMark)
}

// FromSnapshot builds a ledger from a snapshot (e.g. loaded from storage).
func FromSnapshot(s *Snapshot) *Ledger {
	l := New(s.BaseToken)
	l.Restore(s)
	return l
}
