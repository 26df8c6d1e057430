// Package gas estimates execution cost for candidate arbitrage paths:
// a static per-DEX table for cheap screening and a chain-simulated
// fallback for selective verification.
package gas

import (
	"context"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbbot/chain"
	"github.com/michaelpento.lv/arbbot/config"
	"github.com/michaelpento.lv/arbbot/types"
)

const (
	// txOverheadGas covers intrinsic transaction cost plus contract
	// entry bookkeeping shared by every path.
	txOverheadGas = 50000

	// defaultHopGas prices a hop on a DEX type missing from the table.
	defaultHopGas = 150000

	// simulationDefaultGas is the conservative substitute when the node
	// refuses to simulate a call.
	simulationDefaultGas = 500000

	// simulationMargin pads simulated estimates; simulations run against
	// a state that may shift before inclusion.
	simulationMargin = 1.3
)

// hopGasByDexType maps a DEX swap family to its approximate per-hop gas
// usage.
var hopGasByDexType = map[string]uint64{
	"uniswap-v2": 120000,
	"uniswap-v3": 180000,
	"stable":     250000,
}

// Estimator produces gas-usage and gas-price estimates. The static path
// is deterministic and chain-free; the simulated path and price lookups
// go through the chain client.
type Estimator struct {
	client   chain.Client
	logger   *zap.Logger
	margin   float64
	dexTypes map[string]string // DEX name -> type
}

// NewEstimator creates an estimator. The static safety margin comes from
// the strategy configuration.
func NewEstimator(client chain.Client, cfg *config.StrategyConfig, logger *zap.Logger) *Estimator {
	dexTypes := make(map[string]string, len(cfg.SupportedDexes))
	for _, d := range cfg.SupportedDexes {
		dexTypes[d.Name] = d.Type
	}
	return &Estimator{
		client:   client,
		logger:   logger,
		margin:   cfg.GasMultiplier,
		dexTypes: dexTypes,
	}
}

// EstimateGas sums the fixed overhead with each hop's class cost and
// applies the safety margin. Deterministic and cheap; used to screen
// every candidate path.
func (e *Estimator) EstimateGas(path types.Path) uint64 {
	total := uint64(txOverheadGas)
	for _, name := range path.DexNames() {
		hopGas, ok := hopGasByDexType[e.dexTypes[name]]
		if !ok {
			hopGas = defaultHopGas
		}
		total += hopGas
	}
	return uint64(math.Round(float64(total) * e.margin))
}

// EstimateGasWithSimulation asks the node to simulate the call. On
// failure a conservative default is substituted rather than aborting the
// evaluation. The result carries a larger margin than the static table.
func (e *Estimator) EstimateGasWithSimulation(ctx context.Context, contract common.Address, callData []byte, from common.Address) (uint64, error) {
	gasUsed, err := e.client.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &contract,
		Data: callData,
	})
	if err != nil {
		e.logger.Warn("gas simulation failed, using conservative default",
			zap.String("contract", contract.Hex()),
			zap.Error(err))
		gasUsed = simulationDefaultGas
	}
	return uint64(math.Round(float64(gasUsed) * simulationMargin)), nil
}

// GasPrice queries the node's suggestion and inflates it by a fixed 10%
// premium to bias toward inclusion.
func (e *Estimator) GasPrice(ctx context.Context) (*big.Int, error) {
	price, err := e.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	price = new(big.Int).Mul(price, big.NewInt(110))
	return price.Div(price, big.NewInt(100)), nil
}

// CalculateMinProfit returns the profitability floor for an opportunity:
// twice the estimated execution cost.
func CalculateMinProfit(gasEstimate uint64, gasPrice *big.Int) *big.Int {
	cost := new(big.Int).Mul(new(big.Int).SetUint64(gasEstimate), gasPrice)
	return cost.Mul(cost, big.NewInt(2))
}
