// Package gateway abstracts the external swap execution venue. The core
// treats a swap as one atomic external call with deterministic success or
// failure; partial fills do not exist at this boundary.
package gateway

import (
	"context"
	"errors"
	"math/big"
	"time"
)

// Gateway execution errors. Callers propagate these as a failure of the
// entire enclosing operation.
var (
	// ErrSlippage is returned when amountOut would fall below MinAmountOut.
	ErrSlippage = errors.New("slippage exceeded: amount out below minimum")

	// ErrDeadlineExpired is returned when the swap instruction is stale.
	ErrDeadlineExpired = errors.New("swap deadline expired")

	// ErrUnauthorizedCaller is returned for recipients the gateway does not serve.
	ErrUnauthorizedCaller = errors.New("caller not authorized on execution gateway")

	// ErrUnsupportedPair is returned when no route exists for the token pair.
	ErrUnsupportedPair = errors.New("unsupported token pair")
)

// SwapRequest describes one swap instruction.
type SwapRequest struct {
	TokenIn      string
	TokenOut     string
	AmountIn     *big.Int
	MinAmountOut *big.Int
	Recipient    string    // vault address receiving the proceeds
	Deadline     time.Time // gateway refuses execution after this instant
}

// ExecutionGateway executes swaps on the external venue.
type ExecutionGateway interface {
	// ExecuteSwap performs the swap and returns the raw amount out.
	// Failure means nothing was executed.
	ExecuteSwap(ctx context.Context, req SwapRequest) (*big.Int, error)
}
