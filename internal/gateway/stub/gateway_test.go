package stub

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mirrorvault/internal/gateway"
)

func swapReq(amountIn, minOut int64) gateway.SwapRequest {
	return gateway.SwapRequest{
		TokenIn:      "USDC",
		TokenOut:     "SOL",
		AmountIn:     big.NewInt(amountIn),
		MinAmountOut: big.NewInt(minOut),
		Recipient:    "vault1",
		Deadline:     time.Now().Add(time.Minute),
	}
}

func TestExecuteSwap(t *testing.T) {
	g := New()
	g.SetRate("USDC", "SOL", 1, 100) // 100 USDC per SOL

	out, err := g.ExecuteSwap(context.Background(), swapReq(1000, 0))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10), out)

	calls := g.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, big.NewInt(1000), calls[0].AmountIn)
}

func TestExecuteSwap_Slippage(t *testing.T) {
	g := New()
	g.SetRate("USDC", "SOL", 1, 100)

	_, err := g.ExecuteSwap(context.Background(), swapReq(1000, 11))
	assert.ErrorIs(t, err, gateway.ErrSlippage)
}

func TestExecuteSwap_DeadlineExpired(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	g := New().WithClock(func() time.Time { return fixed })
	g.SetRate("USDC", "SOL", 1, 100)

	req := swapReq(1000, 0)
	req.Deadline = fixed.Add(-time.Second)

	_, err := g.ExecuteSwap(context.Background(), req)
	assert.ErrorIs(t, err, gateway.ErrDeadlineExpired)
}

func TestExecuteSwap_UnsupportedPair(t *testing.T) {
	g := New()

	_, err := g.ExecuteSwap(context.Background(), swapReq(1000, 0))
	assert.ErrorIs(t, err, gateway.ErrUnsupportedPair)
}

func TestExecuteSwap_Unauthorized(t *testing.T) {
	g := New()
	g.SetRate("USDC", "SOL", 1, 100)
	g.Authorize("someone-else")

	_, err := g.ExecuteSwap(context.Background(), swapReq(1000, 0))
	assert.ErrorIs(t, err, gateway.ErrUnauthorizedCaller)
}

func TestFailPair(t *testing.T) {
	g := New()
	g.SetRate("USDC", "SOL", 1, 100)
	g.FailPair("USDC", "SOL", gateway.ErrSlippage)

	_, err := g.ExecuteSwap(context.Background(), swapReq(1000, 0))
	assert.ErrorIs(t, err, gateway.ErrSlippage)

	g.FailPair("USDC", "SOL", nil)
	_, err = g.ExecuteSwap(context.Background(), swapReq(1000, 0))
	assert.NoError(t, err)
}
