// Package profit implements the swap math used to price arbitrage
// cycles: per-hop constant-product output, aggregate profit, and a
// slippage diagnostic.
package profit

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbbot/types"
)

var (
	bpsDenominator = big.NewInt(10000)
)

// Calculator prices swaps against cached pool reserves. All amount math
// is integer with floor division so results match on-chain truncation
// bit for bit; floating point appears only in ranking ratios.
type Calculator struct {
	logger *zap.Logger
}

// NewCalculator creates a calculator.
func NewCalculator(logger *zap.Logger) *Calculator {
	return &Calculator{logger: logger}
}

// AmountOut applies the constant-product formula for a single swap:
//
//	out = floor(in*(10000-fee)*reserveOut / (reserveIn*10000 + in*(10000-fee)))
//
// Reserve direction is selected by matching tokenIn against the pool's
// token pair. Concentrated-liquidity (v3-style) pools reuse the same
// approximation; exact tick-range math is a known simplification.
func (c *Calculator) AmountOut(pool *types.PoolInfo, tokenIn common.Address, amountIn *big.Int) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, &types.CalculationError{Reason: "amountIn must be positive"}
	}
	if pool.Reserve0 == nil || pool.Reserve1 == nil ||
		pool.Reserve0.Sign() <= 0 || pool.Reserve1.Sign() <= 0 {
		return nil, &types.CalculationError{Reason: fmt.Sprintf("pool %s has empty reserves", pool.Address.Hex())}
	}
	if pool.FeeBps > 10000 {
		return nil, &types.CalculationError{Reason: fmt.Sprintf("pool %s fee %d exceeds 10000 bps", pool.Address.Hex(), pool.FeeBps)}
	}

	var reserveIn, reserveOut *big.Int
	switch tokenIn {
	case pool.Token0:
		reserveIn, reserveOut = pool.Reserve0, pool.Reserve1
	case pool.Token1:
		reserveIn, reserveOut = pool.Reserve1, pool.Reserve0
	default:
		return nil, &types.CalculationError{Reason: fmt.Sprintf("token %s not in pool %s", tokenIn.Hex(), pool.Address.Hex())}
	}

	feeFactor := big.NewInt(int64(10000 - pool.FeeBps))
	amountInWithFee := new(big.Int).Mul(amountIn, feeFactor)
	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)
	denominator := new(big.Int).Add(
		new(big.Int).Mul(reserveIn, bpsDenominator),
		amountInWithFee,
	)
	return numerator.Div(numerator, denominator), nil
}

// CalculatePathOutput simulates the full cycle hop by hop and returns the
// final output amount in the base token.
func (c *Calculator) CalculatePathOutput(path types.Path, amountIn *big.Int) (*big.Int, error) {
	if path.Hops() < 2 {
		return nil, &types.CalculationError{Reason: "path must have at least 2 hops"}
	}

	amount := amountIn
	for i := 0; i < len(path.Nodes)-1; i++ {
		node := path.Nodes[i]
		if node.Pool == nil {
			return nil, &types.CalculationError{Reason: fmt.Sprintf("hop %d has no pool", i)}
		}
		out, err := c.AmountOut(node.Pool, node.Token, amount)
		if err != nil {
			return nil, err
		}
		if out.Sign() <= 0 {
			return nil, &types.CalculationError{Reason: fmt.Sprintf("hop %d produced zero output", i)}
		}
		amount = out
	}
	return amount, nil
}

// CalculateProfit returns amountOut - amountIn. The result may be
// negative.
func (c *Calculator) CalculateProfit(amountIn, amountOut *big.Int) *big.Int {
	return new(big.Int).Sub(amountOut, amountIn)
}

// CalculateProfitRate returns profit/amountIn as a float ratio. It is
// used for ranking and threshold comparison only, never for amount
// truncation.
func (c *Calculator) CalculateProfitRate(amountIn, profit *big.Int) float64 {
	if amountIn == nil || amountIn.Sign() == 0 {
		return 0
	}
	rate, _ := new(big.Float).Quo(
		new(big.Float).SetInt(profit),
		new(big.Float).SetInt(amountIn),
	).Float64()
	return rate
}

// SimulateSlippage estimates price impact by extrapolating a small trial
// trade linearly and comparing against the actual-size output. Returned
// as a ratio in [0, 1); diagnostic only, it gates nothing.
func (c *Calculator) SimulateSlippage(path types.Path, amountIn *big.Int) (float64, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return 0, &types.CalculationError{Reason: "amountIn must be positive"}
	}

	trial := new(big.Int).Div(amountIn, big.NewInt(1000))
	if trial.Sign() == 0 {
		trial = big.NewInt(1)
	}

	trialOut, err := c.CalculatePathOutput(path, trial)
	if err != nil {
		return 0, err
	}
	actualOut, err := c.CalculatePathOutput(path, amountIn)
	if err != nil {
		return 0, err
	}

	// Linear extrapolation of the trial trade to full size.
	linear := new(big.Int).Mul(trialOut, amountIn)
	linear.Div(linear, trial)
	if linear.Sign() == 0 {
		return 0, nil
	}

	diff := new(big.Int).Sub(linear, actualOut)
	if diff.Sign() < 0 {
		return 0, nil
	}
	impact, _ := new(big.Float).Quo(
		new(big.Float).SetInt(diff),
		new(big.Float).SetInt(linear),
	).Float64()
	return impact, nil
}
