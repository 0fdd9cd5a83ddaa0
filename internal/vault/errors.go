package vault

import "errors"

// Vault operation errors. Every failure leaves vault state untouched.
var (
	// ErrNotAuthorized is returned when the caller lacks the role an
	// operation requires (owner for withdraw/swap, engine for mirroring).
	ErrNotAuthorized = errors.New("caller not authorized")

	// ErrReentrancy is returned when a guarded operation is entered while
	// another operation on the same vault is still in flight.
	ErrReentrancy = errors.New("reentrant call rejected")

	// ErrWrongToken is returned when a mirrored trade does not originate
	// from the vault's base token.
	ErrWrongToken = errors.New("trade must originate from the base token")

	// ErrInsufficientAllocation is returned when proportional scaling
	// floors a follower's trade size to zero.
	ErrInsufficientAllocation = errors.New("scaled trade amount is zero: insufficient allocation")

	// ErrOverdraft is returned when a scaled trade would exceed the
	// follower's base balance. The scaling arithmetic should make this
	// unreachable, but the trader amount is caller-supplied and is not
	// validated against the trader's actual balance at this layer.
	ErrOverdraft = errors.New("scaled trade amount exceeds base balance")
)
