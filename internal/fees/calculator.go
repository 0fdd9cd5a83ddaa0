// Package fees implements the pure fee calculator. All proportions are
// expressed in basis points over 10,000 and applied with integer floor
// division; fee + net always reconstructs the input exactly.
package fees

import (
	"errors"
	"math/big"
)

// BpsDenominator is the basis-point denominator.
const BpsDenominator = 10_000

// Schedule validation errors.
var (
	// ErrInvalidBps is returned when a proportion exceeds 10,000 bps.
	ErrInvalidBps = errors.New("fee proportion exceeds 10000 bps")

	// ErrScheduleTooHigh is returned when protocol + performance fees
	// would consume the entire amount.
	ErrScheduleTooHigh = errors.New("combined protocol and performance fees must stay below 10000 bps")
)

// Schedule holds the protocol's fixed fee proportions.
type Schedule struct {
	ProtocolFeeBps    uint32 // applied on deduct-and-split operations
	PerformanceFeeBps uint32 // applied on mirrored-trade proceeds
	SwapFeeBps        uint32 // applied on gateway swap proceeds
}

// DefaultSchedule returns the protocol's fixed schedule:
// 3% protocol, 7% performance, 0.3% swap.
func DefaultSchedule() Schedule {
	return Schedule{
		ProtocolFeeBps:    300,
		PerformanceFeeBps: 700,
		SwapFeeBps:        30,
	}
}

// Validate checks the schedule proportions.
func (s Schedule) Validate() error {
	if s.ProtocolFeeBps > BpsDenominator || s.PerformanceFeeBps > BpsDenominator || s.SwapFeeBps > BpsDenominator {
		return ErrInvalidBps
	}
	if s.ProtocolFeeBps+s.PerformanceFeeBps >= BpsDenominator {
		return ErrScheduleTooHigh
	}
	return nil
}

// PerformanceFee splits proceeds into (net, fee) under the performance
// proportion. fee = floor(proceeds * bps / 10000), net = proceeds - fee.
func (s Schedule) PerformanceFee(proceeds *big.Int) (net, fee *big.Int) {
	return split(proceeds, s.PerformanceFeeBps)
}

// SwapFee splits swap proceeds into (net, fee) under the swap proportion.
func (s Schedule) SwapFee(proceeds *big.Int) (net, fee *big.Int) {
	return split(proceeds, s.SwapFeeBps)
}

// DeductAndSplit applies the protocol and performance proportions to amount,
// returning the remainder and both fee components. Each fee is floored
// independently against the original amount.
func (s Schedule) DeductAndSplit(amount *big.Int) (net, protocolFee, performanceFee *big.Int) {
	protocolFee = proportion(amount, s.ProtocolFeeBps)
	performanceFee = proportion(amount, s.PerformanceFeeBps)

	net = new(big.Int).Sub(amount, protocolFee)
	net.Sub(net, performanceFee)
	return net, protocolFee, performanceFee
}

// split returns (amount - fee, fee) for the given proportion.
func split(amount *big.Int, bps uint32) (net, fee *big.Int) {
	fee = proportion(amount, bps)
	net = new(big.Int).Sub(amount, fee)
	return net, fee
}

// proportion computes floor(amount * bps / 10000).
func proportion(amount *big.Int, bps uint32) *big.Int {
	out := new(big.Int).Mul(amount, big.NewInt(int64(bps)))
	return out.Div(out, big.NewInt(BpsDenominator))
}
