package vault

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mirrorvault/internal/fees"
	"mirrorvault/internal/gateway"
	"mirrorvault/internal/gateway/stub"
	"mirrorvault/internal/ledger"
)

const testEngine = "engineAddr"

func newTestFollower(gw gateway.ExecutionGateway) (*FollowerVault, *FeeCollector) {
	collector := NewFeeCollector()
	v := NewFollowerVault("followerVault1", testOwner, "USDC", testEngine,
		gw, nil, fees.DefaultSchedule(), collector)
	return v, collector
}

func TestFollowerVault_MirrorTrade(t *testing.T) {
	gw := stub.New()
	gw.SetRate("USDC", "SOL", 2, 1)
	v, collector := newTestFollower(gw)
	ctx := context.Background()

	require.NoError(t, v.Deposit(ctx, big.NewInt(500)))

	// Trader trades 100 out of a 1000 portfolio; the follower holds 500,
	// so the scaled trade is floor(500 * 100 / 1000) = 50.
	net, fee, err := v.MirrorTrade(ctx, testEngine, "USDC", "SOL",
		big.NewInt(100), big.NewInt(1000), big.NewInt(0), deadline())
	require.NoError(t, err)

	// 100 SOL out, 7% performance fee = 7, net 93.
	assert.Equal(t, big.NewInt(93), net)
	assert.Equal(t, big.NewInt(7), fee)
	assert.Equal(t, big.NewInt(450), v.Balance("USDC"))
	assert.Equal(t, big.NewInt(93), v.Balance("SOL"))
	assert.Equal(t, big.NewInt(7), collector.Total("SOL"))

	calls := gw.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, big.NewInt(50), calls[0].AmountIn)
	assert.Equal(t, "followerVault1", calls[0].Recipient)
}

func TestFollowerVault_MirrorTradeRequiresEngine(t *testing.T) {
	v, _ := newTestFollower(stub.New())
	ctx := context.Background()

	require.NoError(t, v.Deposit(ctx, big.NewInt(500)))

	_, _, err := v.MirrorTrade(ctx, testOwner, "USDC", "SOL",
		big.NewInt(100), big.NewInt(1000), big.NewInt(0), deadline())
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestFollowerVault_MirrorTradeWrongToken(t *testing.T) {
	v, _ := newTestFollower(stub.New())
	ctx := context.Background()

	require.NoError(t, v.Deposit(ctx, big.NewInt(500)))

	_, _, err := v.MirrorTrade(ctx, testEngine, "SOL", "BONK",
		big.NewInt(100), big.NewInt(1000), big.NewInt(0), deadline())
	assert.ErrorIs(t, err, ErrWrongToken)
}

func TestFollowerVault_MirrorTradeInsufficientAllocation(t *testing.T) {
	gw := stub.New()
	gw.SetRate("USDC", "SOL", 2, 1)
	v, _ := newTestFollower(gw)
	ctx := context.Background()

	// Zero base balance floors the scaled amount to zero.
	_, _, err := v.MirrorTrade(ctx, testEngine, "USDC", "SOL",
		big.NewInt(100), big.NewInt(1000), big.NewInt(0), deadline())
	assert.ErrorIs(t, err, ErrInsufficientAllocation)
	assert.Empty(t, gw.Calls())

	// A dust balance below the materiality threshold fails the same way:
	// floor(9 * 100 / 1000) = 0.
	require.NoError(t, v.Deposit(ctx, big.NewInt(9)))
	_, _, err = v.MirrorTrade(ctx, testEngine, "USDC", "SOL",
		big.NewInt(100), big.NewInt(1000), big.NewInt(0), deadline())
	assert.ErrorIs(t, err, ErrInsufficientAllocation)
}

func TestFollowerVault_MirrorTradeOverdraftGuard(t *testing.T) {
	gw := stub.New()
	gw.SetRate("USDC", "SOL", 2, 1)
	v, _ := newTestFollower(gw)
	ctx := context.Background()

	require.NoError(t, v.Deposit(ctx, big.NewInt(500)))

	// Caller-supplied trade amount above the trader's total value scales
	// past the follower's balance.
	_, _, err := v.MirrorTrade(ctx, testEngine, "USDC", "SOL",
		big.NewInt(2000), big.NewInt(1000), big.NewInt(0), deadline())
	assert.ErrorIs(t, err, ErrOverdraft)
	assert.Empty(t, gw.Calls())
}

func TestFollowerVault_MirrorTradeInvalidAmounts(t *testing.T) {
	v, _ := newTestFollower(stub.New())
	ctx := context.Background()

	require.NoError(t, v.Deposit(ctx, big.NewInt(500)))

	_, _, err := v.MirrorTrade(ctx, testEngine, "USDC", "SOL",
		big.NewInt(0), big.NewInt(1000), big.NewInt(0), deadline())
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, _, err = v.MirrorTrade(ctx, testEngine, "USDC", "SOL",
		big.NewInt(100), big.NewInt(0), big.NewInt(0), deadline())
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
}

func TestFollowerVault_GatewayFailureLeavesStateUntouched(t *testing.T) {
	gw := stub.New()
	gw.SetRate("USDC", "SOL", 2, 1)
	gw.FailPair("USDC", "SOL", gateway.ErrSlippage)
	v, collector := newTestFollower(gw)
	ctx := context.Background()

	require.NoError(t, v.Deposit(ctx, big.NewInt(500)))
	before := v.SnapshotLedger()

	_, _, err := v.MirrorTrade(ctx, testEngine, "USDC", "SOL",
		big.NewInt(100), big.NewInt(1000), big.NewInt(0), deadline())
	assert.ErrorIs(t, err, gateway.ErrSlippage)

	after := v.SnapshotLedger()
	assert.Equal(t, before.Balances, after.Balances)
	assert.Equal(t, before.HighWaterMark, after.HighWaterMark)
	assert.Equal(t, big.NewInt(0), collector.Total("SOL"))
}

func TestFollowerVault_ScalingMonotonic(t *testing.T) {
	// floor(B*T/V) never decreases as B or T grows.
	v := big.NewInt(10_000)
	scale := func(b, tr int64) *big.Int {
		out := new(big.Int).Mul(big.NewInt(b), big.NewInt(tr))
		return out.Div(out, v)
	}

	prev := big.NewInt(-1)
	for _, b := range []int64{0, 1, 99, 100, 5000, 10_000} {
		s := scale(b, 777)
		assert.GreaterOrEqual(t, s.Cmp(prev), 0, "balance %d", b)
		prev = s
	}

	prev = big.NewInt(-1)
	for _, tr := range []int64{0, 1, 99, 100, 5000, 10_000} {
		s := scale(3333, tr)
		assert.GreaterOrEqual(t, s.Cmp(prev), 0, "trade %d", tr)
		prev = s
	}
}

func TestFollowerVault_WithdrawNonBaseTokenInFull(t *testing.T) {
	gw := stub.New()
	gw.SetRate("USDC", "SOL", 2, 1)
	v, _ := newTestFollower(gw)
	ctx := context.Background()

	require.NoError(t, v.Deposit(ctx, big.NewInt(500)))
	_, _, err := v.MirrorTrade(ctx, testEngine, "USDC", "SOL",
		big.NewInt(100), big.NewInt(1000), big.NewInt(0), deadline())
	require.NoError(t, err)

	// Non-base proceeds sit outside the deposit accounting.
	require.NoError(t, v.Withdraw(ctx, testOwner, "SOL", big.NewInt(93)))
	assert.Equal(t, big.NewInt(0), v.Balance("SOL"))

	// Base principal stays locked.
	err = v.Withdraw(ctx, testOwner, "USDC", big.NewInt(450))
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
}

// stalePriceSource fails every valuation request.
type stalePriceSource struct{}

func (stalePriceSource) Value(context.Context, string, *big.Int) (*big.Int, error) {
	return nil, errStalePrice
}

var errStalePrice = errors.New("price stale")

func TestFollowerVault_ValuationFailureRollsBack(t *testing.T) {
	gw := stub.New()
	gw.SetRate("USDC", "SOL", 2, 1)
	collector := NewFeeCollector()
	v := NewFollowerVault("followerVault1", testOwner, "USDC", testEngine,
		gw, stalePriceSource{}, fees.DefaultSchedule(), collector)
	ctx := context.Background()

	require.NoError(t, v.Deposit(ctx, big.NewInt(500)))
	before := v.SnapshotLedger()

	// The swap settles at the venue, then the post-trade valuation fails.
	_, _, err := v.MirrorTrade(ctx, testEngine, "USDC", "SOL",
		big.NewInt(100), big.NewInt(1000), big.NewInt(0), deadline())
	assert.ErrorIs(t, err, errStalePrice)

	after := v.SnapshotLedger()
	assert.Equal(t, before.Balances, after.Balances)
	assert.Equal(t, before.HighWaterMark, after.HighWaterMark)
	assert.Zero(t, collector.Total("SOL").Sign())
}

// callbackGateway re-enters the vault mid-swap, as a malicious venue would.
type callbackGateway struct {
	vault *FollowerVault
	err   error
}

func (g *callbackGateway) ExecuteSwap(ctx context.Context, req gateway.SwapRequest) (*big.Int, error) {
	g.err = g.vault.Deposit(ctx, big.NewInt(1))
	return new(big.Int).Set(req.AmountIn), nil
}

func TestFollowerVault_ReentrancyRejected(t *testing.T) {
	gw := &callbackGateway{}
	v, _ := newTestFollower(gw)
	gw.vault = v
	ctx := context.Background()

	require.NoError(t, v.Deposit(ctx, big.NewInt(500)))

	_, _, err := v.MirrorTrade(ctx, testEngine, "USDC", "SOL",
		big.NewInt(100), big.NewInt(1000), big.NewInt(0), deadline())
	require.NoError(t, err)

	// The callback's deposit attempt was rejected by the guard.
	assert.ErrorIs(t, gw.err, ErrReentrancy)
	assert.Equal(t, big.NewInt(450), v.Balance("USDC"))
}
