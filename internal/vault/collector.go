package vault

import (
	"math/big"
	"sync"
)

// FeeCollector accumulates routed fees per token. One collector is shared
// by all vaults of a deployment; it is the in-process stand-in for the fee
// destination account.
type FeeCollector struct {
	mu     sync.Mutex
	totals map[string]*big.Int
}

// NewFeeCollector creates an empty collector.
func NewFeeCollector() *FeeCollector {
	return &FeeCollector{totals: make(map[string]*big.Int)}
}

// Collect adds amount of token to the collector. Zero and nil amounts are
// ignored.
func (c *FeeCollector) Collect(token string, amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.totals[token]; ok {
		t.Add(t, amount)
		return
	}
	c.totals[token] = new(big.Int).Set(amount)
}

// Total returns a copy of the accumulated fees for token.
func (c *FeeCollector) Total(token string) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.totals[token]; ok {
		return new(big.Int).Set(t)
	}
	return big.NewInt(0)
}

// Totals returns a copy of all accumulated fee balances.
func (c *FeeCollector) Totals() map[string]*big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]*big.Int, len(c.totals))
	for token, t := range c.totals {
		out[token] = new(big.Int).Set(t)
	}
	return out
}
