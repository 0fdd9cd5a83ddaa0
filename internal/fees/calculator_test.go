package fees

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSchedule(t *testing.T) {
	s := DefaultSchedule()

	require.NoError(t, s.Validate())
	assert.Equal(t, uint32(300), s.ProtocolFeeBps)
	assert.Equal(t, uint32(700), s.PerformanceFeeBps)
	assert.Equal(t, uint32(30), s.SwapFeeBps)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		schedule Schedule
		wantErr  error
	}{
		{"default", DefaultSchedule(), nil},
		{"zero schedule", Schedule{}, nil},
		{"protocol over denominator", Schedule{ProtocolFeeBps: 10_001}, ErrInvalidBps},
		{"swap over denominator", Schedule{SwapFeeBps: 20_000}, ErrInvalidBps},
		{"combined at denominator", Schedule{ProtocolFeeBps: 5000, PerformanceFeeBps: 5000}, ErrScheduleTooHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schedule.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestPerformanceFee(t *testing.T) {
	s := DefaultSchedule()

	net, fee := s.PerformanceFee(big.NewInt(10_000))
	assert.Equal(t, big.NewInt(700), fee)
	assert.Equal(t, big.NewInt(9300), net)
}

func TestPerformanceFee_FloorsOddAmounts(t *testing.T) {
	s := Schedule{PerformanceFeeBps: 700}

	// 7% of 99 = 6.93, floored to 6.
	net, fee := s.PerformanceFee(big.NewInt(99))
	assert.Equal(t, big.NewInt(6), fee)
	assert.Equal(t, big.NewInt(93), net)
}

func TestSwapFee(t *testing.T) {
	s := DefaultSchedule()

	net, fee := s.SwapFee(big.NewInt(1_000_000))
	assert.Equal(t, big.NewInt(3000), fee)
	assert.Equal(t, big.NewInt(997_000), net)
}

func TestDeductAndSplit(t *testing.T) {
	s := DefaultSchedule()

	net, protocolFee, performanceFee := s.DeductAndSplit(big.NewInt(10_000))
	assert.Equal(t, big.NewInt(300), protocolFee)
	assert.Equal(t, big.NewInt(700), performanceFee)
	assert.Equal(t, big.NewInt(9000), net)
}

func TestFeesReconstructInputExactly(t *testing.T) {
	s := DefaultSchedule()

	amounts := []int64{1, 2, 99, 100, 101, 9999, 10_000, 10_001, 123_456_789}
	for _, a := range amounts {
		amount := big.NewInt(a)

		net, fee := s.PerformanceFee(amount)
		sum := new(big.Int).Add(net, fee)
		assert.Equal(t, amount, sum, "performance fee leaks value for %d", a)

		net, protocolFee, performanceFee := s.DeductAndSplit(amount)
		sum = new(big.Int).Add(net, protocolFee)
		sum.Add(sum, performanceFee)
		assert.Equal(t, amount, sum, "deduct-and-split leaks value for %d", a)
	}
}

func TestZeroSchedule(t *testing.T) {
	var s Schedule

	net, fee := s.PerformanceFee(big.NewInt(500))
	assert.Equal(t, big.NewInt(0), fee)
	assert.Equal(t, big.NewInt(500), net)
}
