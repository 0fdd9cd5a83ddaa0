// Package stub provides a deterministic in-process execution gateway for
// tests and the scenario runner.
package stub

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"mirrorvault/internal/gateway"
)

// Gateway executes swaps against a fixed rational rate table.
type Gateway struct {
	mu         sync.Mutex
	rates      map[string]rate
	failures   map[string]error
	authorized map[string]bool // empty map means all recipients allowed
	calls      []gateway.SwapRequest
	now        func() time.Time
}

type rate struct {
	num *big.Int
	den *big.Int
}

// New creates a stub gateway with no routes.
func New() *Gateway {
	return &Gateway{
		rates:      make(map[string]rate),
		failures:   make(map[string]error),
		authorized: make(map[string]bool),
		now:        time.Now,
	}
}

// WithClock overrides the deadline clock, for deterministic tests.
func (g *Gateway) WithClock(now func() time.Time) *Gateway {
	g.now = now
	return g
}

// SetRate routes tokenIn -> tokenOut at num/den output units per input unit.
func (g *Gateway) SetRate(tokenIn, tokenOut string, num, den int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rates[pairKey(tokenIn, tokenOut)] = rate{num: big.NewInt(num), den: big.NewInt(den)}
}

// FailPair makes every swap on the pair fail with err until cleared.
func (g *Gateway) FailPair(tokenIn, tokenOut string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.failures, pairKey(tokenIn, tokenOut))
		return
	}
	g.failures[pairKey(tokenIn, tokenOut)] = err
}

// Authorize adds recipient to the allow list. Once any recipient is
// authorized, unlisted recipients are rejected.
func (g *Gateway) Authorize(recipient string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.authorized[recipient] = true
}

// Calls returns a copy of all swap requests seen so far.
func (g *Gateway) Calls() []gateway.SwapRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]gateway.SwapRequest, len(g.calls))
	copy(out, g.calls)
	return out
}

// ExecuteSwap implements gateway.ExecutionGateway.
func (g *Gateway) ExecuteSwap(_ context.Context, req gateway.SwapRequest) (*big.Int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, req)

	if len(g.authorized) > 0 && !g.authorized[req.Recipient] {
		return nil, gateway.ErrUnauthorizedCaller
	}
	if !req.Deadline.IsZero() && g.now().After(req.Deadline) {
		return nil, gateway.ErrDeadlineExpired
	}

	key := pairKey(req.TokenIn, req.TokenOut)
	if err, ok := g.failures[key]; ok {
		return nil, err
	}
	r, ok := g.rates[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s -> %s", gateway.ErrUnsupportedPair, req.TokenIn, req.TokenOut)
	}

	amountOut := new(big.Int).Mul(req.AmountIn, r.num)
	amountOut.Div(amountOut, r.den)

	if req.MinAmountOut != nil && amountOut.Cmp(req.MinAmountOut) < 0 {
		return nil, fmt.Errorf("%w: got %s, want at least %s", gateway.ErrSlippage, amountOut, req.MinAmountOut)
	}

	return amountOut, nil
}

func pairKey(tokenIn, tokenOut string) string {
	return tokenIn + "|" + tokenOut
}

var _ gateway.ExecutionGateway = (*Gateway)(nil)
