// Package optimizer searches for the profit-maximizing input amount of
// an arbitrage cycle within a liquidity-derived interval.
package optimizer

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbbot/profit"
	"github.com/michaelpento.lv/arbbot/types"
)

const (
	// liquidityDivisor caps the search interval at a tenth of the
	// thinnest reserve along the path.
	liquidityDivisor = 10

	// maxIterations bounds the narrowing loop. The interval halves each
	// round, so this is never reached for realistic reserves.
	maxIterations = 256
)

var (
	// amountFloor is the smallest amount worth trading; anything below
	// it rounds to dust across multiple hops.
	amountFloor = big.NewInt(1000)

	// precision stops the search once the interval narrows to a single
	// base unit, the finest step integer amounts admit.
	precision = big.NewInt(1)
)

// Optimizer runs a bounded local-gradient search over the profit curve.
// The search assumes the curve is roughly unimodal over the interval; for
// multi-hop cycles this is a heuristic, so the best point seen anywhere
// is tracked independently of the narrowing direction.
type Optimizer struct {
	calc   *profit.Calculator
	logger *zap.Logger
}

// NewOptimizer creates an optimizer over the given calculator.
func NewOptimizer(calc *profit.Calculator, logger *zap.Logger) *Optimizer {
	return &Optimizer{calc: calc, logger: logger}
}

// FindOptimalAmount returns the most profitable input amount found for
// the path and its realized output. It fails with a LiquidityError when
// the reserves cannot support a search interval, and with a
// NoOpportunityError when no amount in the interval yields positive
// profit.
func (o *Optimizer) FindOptimalAmount(path types.Path) (amountIn, amountOut *big.Int, err error) {
	lower, upper, err := o.searchInterval(path)
	if err != nil {
		return nil, nil, err
	}

	var (
		bestAmount *big.Int
		bestProfit *big.Int
		bestOut    *big.Int
	)
	consider := func(amount *big.Int) {
		if amount.Cmp(lower) < 0 || amount.Cmp(upper) > 0 {
			return
		}
		out, cerr := o.calc.CalculatePathOutput(path, amount)
		if cerr != nil {
			return
		}
		p := o.calc.CalculateProfit(amount, out)
		if bestProfit == nil || p.Cmp(bestProfit) > 0 {
			bestAmount = new(big.Int).Set(amount)
			bestProfit = p
			bestOut = out
		}
	}

	consider(lower)
	consider(upper)

	lo := new(big.Int).Set(lower)
	hi := new(big.Int).Set(upper)
	width := new(big.Int)

	for i := 0; i < maxIterations; i++ {
		width.Sub(hi, lo)
		if width.Cmp(precision) <= 0 {
			break
		}

		mid := new(big.Int).Add(lo, hi)
		mid.Rsh(mid, 1)
		delta := new(big.Int).Rsh(width, 2)
		if delta.Sign() == 0 {
			delta.SetInt64(1)
		}

		left := new(big.Int).Sub(mid, delta)
		right := new(big.Int).Add(mid, delta)

		consider(left)
		consider(mid)
		consider(right)

		if o.profitAt(path, left).Cmp(o.profitAt(path, right)) > 0 {
			hi.Set(mid)
		} else {
			lo.Set(mid)
		}
	}

	if bestProfit == nil || bestProfit.Sign() <= 0 {
		return nil, nil, &types.NoOpportunityError{Reason: "no profitable amount in search interval"}
	}
	return bestAmount, bestOut, nil
}

// OptimizeWithConstraints runs the unconstrained search, clamps the
// result down to maxAmount, and rejects the opportunity when the clamped
// profit rate falls below minProfitRate. Capital constraints are applied
// post hoc, not jointly optimized.
func (o *Optimizer) OptimizeWithConstraints(path types.Path, maxAmount *big.Int, minProfitRate float64) (amountIn, amountOut *big.Int, err error) {
	amountIn, amountOut, err = o.FindOptimalAmount(path)
	if err != nil {
		return nil, nil, err
	}

	if maxAmount != nil && amountIn.Cmp(maxAmount) > 0 {
		amountIn = new(big.Int).Set(maxAmount)
		amountOut, err = o.calc.CalculatePathOutput(path, amountIn)
		if err != nil {
			return nil, nil, err
		}
	}

	p := o.calc.CalculateProfit(amountIn, amountOut)
	if p.Sign() <= 0 {
		return nil, nil, &types.NoOpportunityError{Reason: "no profit at constrained amount"}
	}
	if o.calc.CalculateProfitRate(amountIn, p) < minProfitRate {
		return nil, nil, &types.NoOpportunityError{Reason: "profit rate below threshold at constrained amount"}
	}
	return amountIn, amountOut, nil
}

// searchInterval derives [amountFloor, minReserve/10] from the thinnest
// reserve along the path.
func (o *Optimizer) searchInterval(path types.Path) (lower, upper *big.Int, err error) {
	if path.Hops() < 2 {
		return nil, nil, &types.CalculationError{Reason: "path must have at least 2 hops"}
	}

	var minReserve *big.Int
	var minPool *types.PoolInfo
	for _, node := range path.Nodes[:len(path.Nodes)-1] {
		pool := node.Pool
		if pool == nil || pool.Reserve0 == nil || pool.Reserve1 == nil ||
			pool.Reserve0.Sign() <= 0 || pool.Reserve1.Sign() <= 0 {
			var addr common.Address
			if pool != nil {
				addr = pool.Address
			}
			return nil, nil, &types.LiquidityError{Pool: addr, Reason: "pool has empty reserves"}
		}
		for _, r := range []*big.Int{pool.Reserve0, pool.Reserve1} {
			if minReserve == nil || r.Cmp(minReserve) < 0 {
				minReserve = r
				minPool = pool
			}
		}
	}

	upper = new(big.Int).Div(minReserve, big.NewInt(liquidityDivisor))
	lower = new(big.Int).Set(amountFloor)
	if upper.Cmp(lower) <= 0 {
		return nil, nil, &types.LiquidityError{
			Pool:   minPool.Address,
			Reason: "reserves too thin to derive a search interval",
		}
	}
	return lower, upper, nil
}

// profitAt evaluates profit at the given amount, treating calculation
// failures as unboundedly negative so the search narrows away from them.
func (o *Optimizer) profitAt(path types.Path, amount *big.Int) *big.Int {
	if amount.Sign() <= 0 {
		return veryNegative()
	}
	out, err := o.calc.CalculatePathOutput(path, amount)
	if err != nil {
		return veryNegative()
	}
	return o.calc.CalculateProfit(amount, out)
}

func veryNegative() *big.Int {
	n := new(big.Int).Lsh(big.NewInt(1), 255)
	return n.Neg(n)
}
