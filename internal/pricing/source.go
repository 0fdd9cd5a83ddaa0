// Package pricing abstracts valuation of non-base-token holdings.
package pricing

import (
	"context"
	"math/big"
)

// Source values a token amount in base-token units. Implementations make no
// staleness guarantee; refresh semantics belong to the deployment, not here.
type Source interface {
	// Value returns the base-token valuation of amount units of token.
	Value(ctx context.Context, token string, amount *big.Int) (*big.Int, error)
}
