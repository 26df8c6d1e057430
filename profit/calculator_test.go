package profit

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbbot/types"
	"github.com/michaelpento.lv/arbbot/utils/testutils"
)

// referenceAmountOut recomputes the constant-product formula directly so
// the calculator can be checked against it bit for bit.
func referenceAmountOut(amountIn, reserveIn, reserveOut *big.Int, feeBps uint32) *big.Int {
	fee := big.NewInt(int64(10000 - feeBps))
	withFee := new(big.Int).Mul(amountIn, fee)
	num := new(big.Int).Mul(withFee, reserveOut)
	den := new(big.Int).Add(new(big.Int).Mul(reserveIn, big.NewInt(10000)), withFee)
	return num.Div(num, den)
}

func TestAmountOutMatchesFormula(t *testing.T) {
	calc := NewCalculator(zap.NewNop())

	cases := []struct {
		name     string
		amountIn int64
		reserve0 int64
		reserve1 int64
		feeBps   uint32
	}{
		{"small trade", 1000, 1000000, 1000000, 30},
		{"zero fee", 5000, 2000000, 3000000, 0},
		{"high fee", 5000, 2000000, 3000000, 100},
		{"trade near reserve scale", 900000, 1000000, 1000000, 30},
		{"asymmetric reserves", 12345, 777777, 31337000, 30},
		{"single unit", 1, 1000000, 1000000, 30},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pool := testutils.NewPool(testutils.PoolAddr(1), testutils.TokenA, testutils.TokenB,
				tc.reserve0, tc.reserve1, tc.feeBps, "UniswapV2")
			amountIn := big.NewInt(tc.amountIn)

			out, err := calc.AmountOut(pool, testutils.TokenA, amountIn)
			require.NoError(t, err)

			want := referenceAmountOut(amountIn, big.NewInt(tc.reserve0), big.NewInt(tc.reserve1), tc.feeBps)
			assert.Equal(t, 0, out.Cmp(want), "expected %s, got %s", want, out)

			// Output can never drain the out-side reserve.
			assert.Equal(t, -1, out.Cmp(pool.Reserve1))
		})
	}
}

func TestAmountOutDirection(t *testing.T) {
	calc := NewCalculator(zap.NewNop())
	pool := testutils.NewPool(testutils.PoolAddr(1), testutils.TokenA, testutils.TokenB,
		1000000, 2000000, 30, "UniswapV2")

	// Swapping token1 in must read reserves in the opposite direction.
	out, err := calc.AmountOut(pool, testutils.TokenB, big.NewInt(1000))
	require.NoError(t, err)
	want := referenceAmountOut(big.NewInt(1000), big.NewInt(2000000), big.NewInt(1000000), 30)
	assert.Equal(t, 0, out.Cmp(want))
}

func TestAmountOutErrors(t *testing.T) {
	calc := NewCalculator(zap.NewNop())
	pool := testutils.NewPool(testutils.PoolAddr(1), testutils.TokenA, testutils.TokenB,
		1000000, 1000000, 30, "UniswapV2")

	var calcErr *types.CalculationError

	_, err := calc.AmountOut(pool, testutils.TokenA, big.NewInt(0))
	assert.ErrorAs(t, err, &calcErr)

	_, err = calc.AmountOut(pool, testutils.TokenA, big.NewInt(-5))
	assert.ErrorAs(t, err, &calcErr)

	_, err = calc.AmountOut(pool, testutils.TokenC, big.NewInt(100))
	assert.ErrorAs(t, err, &calcErr)

	empty := testutils.NewPool(testutils.PoolAddr(2), testutils.TokenA, testutils.TokenB,
		0, 1000000, 30, "UniswapV2")
	_, err = calc.AmountOut(empty, testutils.TokenA, big.NewInt(100))
	assert.ErrorAs(t, err, &calcErr)
}

func TestCalculatePathOutput(t *testing.T) {
	calc := NewCalculator(zap.NewNop())
	pool1 := testutils.NewPool(testutils.PoolAddr(1), testutils.TokenA, testutils.TokenB,
		1000000, 1000000, 30, "UniswapV2")
	pool2 := testutils.NewPool(testutils.PoolAddr(2), testutils.TokenB, testutils.TokenA,
		1000000, 1050000, 30, "SushiSwap")
	path := testutils.TwoHopPath(testutils.TokenA, testutils.TokenB, pool1, pool2)

	amountIn := big.NewInt(10000)
	out, err := calc.CalculatePathOutput(path, amountIn)
	require.NoError(t, err)

	hop1 := referenceAmountOut(amountIn, big.NewInt(1000000), big.NewInt(1000000), 30)
	hop2 := referenceAmountOut(hop1, big.NewInt(1000000), big.NewInt(1050000), 30)
	assert.Equal(t, 0, out.Cmp(hop2))

	// The 5% reserve imbalance on the second pool clears both fees.
	assert.Equal(t, 1, out.Cmp(amountIn))
}

func TestCalculatePathOutputRejectsShortPath(t *testing.T) {
	calc := NewCalculator(zap.NewNop())
	pool := testutils.NewPool(testutils.PoolAddr(1), testutils.TokenA, testutils.TokenB,
		1000000, 1000000, 30, "UniswapV2")

	short := types.Path{Nodes: []types.PathNode{
		{Token: testutils.TokenA, Pool: pool},
		{Token: testutils.TokenB},
	}}

	var calcErr *types.CalculationError
	_, err := calc.CalculatePathOutput(short, big.NewInt(1000))
	assert.ErrorAs(t, err, &calcErr)
}

func TestCalculateProfitAndRate(t *testing.T) {
	calc := NewCalculator(zap.NewNop())

	profit := calc.CalculateProfit(big.NewInt(1000), big.NewInt(1100))
	assert.Equal(t, int64(100), profit.Int64())

	loss := calc.CalculateProfit(big.NewInt(1000), big.NewInt(900))
	assert.Equal(t, int64(-100), loss.Int64())

	assert.InDelta(t, 0.1, calc.CalculateProfitRate(big.NewInt(1000), big.NewInt(100)), 1e-12)
	assert.InDelta(t, -0.1, calc.CalculateProfitRate(big.NewInt(1000), big.NewInt(-100)), 1e-12)
	assert.Equal(t, 0.0, calc.CalculateProfitRate(big.NewInt(0), big.NewInt(100)))
}

func TestSimulateSlippage(t *testing.T) {
	calc := NewCalculator(zap.NewNop())
	pool1 := testutils.NewPool(testutils.PoolAddr(1), testutils.TokenA, testutils.TokenB,
		1000000, 1000000, 30, "UniswapV2")
	pool2 := testutils.NewPool(testutils.PoolAddr(2), testutils.TokenB, testutils.TokenA,
		1000000, 1050000, 30, "SushiSwap")
	path := testutils.TwoHopPath(testutils.TokenA, testutils.TokenB, pool1, pool2)

	// A trade at 5% of reserves must show measurable price impact.
	impact, err := calc.SimulateSlippage(path, big.NewInt(50000))
	require.NoError(t, err)
	assert.Greater(t, impact, 0.0)
	assert.Less(t, impact, 1.0)

	_, err = calc.SimulateSlippage(path, big.NewInt(0))
	var calcErr *types.CalculationError
	assert.ErrorAs(t, err, &calcErr)
}
