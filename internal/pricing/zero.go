package pricing

import (
	"context"
	"math/big"
)

// ZeroSource values every non-base holding at zero. It is the default until a
// real price source is wired in, so portfolio value reduces to the base-token
// balance. This reproduces the reference's observable behavior.
type ZeroSource struct{}

// NewZeroSource creates a ZeroSource.
func NewZeroSource() *ZeroSource {
	return &ZeroSource{}
}

// Value always returns zero.
func (*ZeroSource) Value(_ context.Context, _ string, _ *big.Int) (*big.Int, error) {
	return big.NewInt(0), nil
}

var _ Source = (*ZeroSource)(nil)
