package pricing

import (
	"context"
	"math/big"
	"sync"
)

// StaticSource values tokens from a fixed rational price table. Used by tests
// and the scenario runner.
type StaticSource struct {
	mu     sync.RWMutex
	prices map[string]rational
}

type rational struct {
	num *big.Int
	den *big.Int
}

// NewStaticSource creates an empty static price table.
func NewStaticSource() *StaticSource {
	return &StaticSource{prices: make(map[string]rational)}
}

// SetPrice sets the price of one unit of token to num/den base units.
func (s *StaticSource) SetPrice(token string, num, den int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[token] = rational{num: big.NewInt(num), den: big.NewInt(den)}
}

// Value returns floor(amount * num / den), or zero for unpriced tokens.
func (s *StaticSource) Value(_ context.Context, token string, amount *big.Int) (*big.Int, error) {
	s.mu.RLock()
	price, ok := s.prices[token]
	s.mu.RUnlock()

	if !ok || amount == nil {
		return big.NewInt(0), nil
	}

	out := new(big.Int).Mul(amount, price.num)
	return out.Div(out, price.den), nil
}

var _ Source = (*StaticSource)(nil)
