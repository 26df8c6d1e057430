package gas

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbbot/config"
	"github.com/michaelpento.lv/arbbot/types"
	"github.com/michaelpento.lv/arbbot/utils/testutils"
)

type mockClient struct {
	gasPrice    *big.Int
	gasPriceErr error
	gasUsed     uint64
	gasErr      error
}

func (m *mockClient) PoolState(ctx context.Context, pool common.Address) (*types.PoolInfo, error) {
	return nil, errors.New("not implemented")
}

func (m *mockClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if m.gasPriceErr != nil {
		return nil, m.gasPriceErr
	}
	return m.gasPrice, nil
}

func (m *mockClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if m.gasErr != nil {
		return 0, m.gasErr
	}
	return m.gasUsed, nil
}

func gasTestConfig() *config.StrategyConfig {
	return &config.StrategyConfig{
		MinPathLength:      2,
		MaxPathLength:      4,
		GasMultiplier:      1.2,
		ValidityDuration:   time.Minute,
		MaxConcurrentPaths: 4,
		BaseTokens:         []string{testutils.TokenA.Hex()},
		SupportedDexes: []config.DexConfig{
			{Name: "UniswapV2", Type: "uniswap-v2", FeeBps: 30},
			{Name: "Curve", Type: "stable", FeeBps: 4},
			{Name: "UniswapV3", Type: "uniswap-v3", FeeBps: 30},
			{Name: "Mystery", Type: "unknown-type", FeeBps: 30},
		},
	}
}

func threeHopPath(dexes ...string) types.Path {
	tokens := []common.Address{testutils.TokenA, testutils.TokenB, testutils.TokenC, testutils.TokenA}
	nodes := make([]types.PathNode, 0, len(tokens))
	for i, tok := range tokens {
		node := types.PathNode{Token: tok}
		if i < len(dexes) {
			node.Pool = testutils.NewPool(testutils.PoolAddr(i+1), tok, tokens[i+1], 1000000, 1000000, 30, dexes[i])
			node.DexName = dexes[i]
		}
		nodes = append(nodes, node)
	}
	return types.Path{Nodes: nodes}
}

func TestEstimateGasStaticTable(t *testing.T) {
	est := NewEstimator(&mockClient{}, gasTestConfig(), zap.NewNop())

	// 50000 overhead + 120000 + 250000 + 180000, all times the 1.2
	// margin.
	path := threeHopPath("UniswapV2", "Curve", "UniswapV3")
	assert.Equal(t, uint64(720000), est.EstimateGas(path))
}

func TestEstimateGasUnknownDexUsesDefault(t *testing.T) {
	est := NewEstimator(&mockClient{}, gasTestConfig(), zap.NewNop())

	// 50000 + 3*150000 = 500000, times 1.2.
	path := threeHopPath("Mystery", "Mystery", "Mystery")
	assert.Equal(t, uint64(600000), est.EstimateGas(path))
}

func TestEstimateGasWithSimulation(t *testing.T) {
	client := &mockClient{gasUsed: 300000}
	est := NewEstimator(client, gasTestConfig(), zap.NewNop())

	gas, err := est.EstimateGasWithSimulation(context.Background(),
		common.HexToAddress("0x01"), []byte{0x01}, common.HexToAddress("0x02"))
	require.NoError(t, err)
	assert.Equal(t, uint64(390000), gas) // 300000 * 1.3
}

func TestEstimateGasWithSimulationFallsBack(t *testing.T) {
	client := &mockClient{gasErr: errors.New("execution reverted")}
	est := NewEstimator(client, gasTestConfig(), zap.NewNop())

	gas, err := est.EstimateGasWithSimulation(context.Background(),
		common.HexToAddress("0x01"), []byte{0x01}, common.HexToAddress("0x02"))
	require.NoError(t, err)
	assert.Equal(t, uint64(650000), gas) // 500000 default * 1.3
}

func TestGasPricePremium(t *testing.T) {
	client := &mockClient{gasPrice: big.NewInt(100_000_000_000)} // 100 gwei
	est := NewEstimator(client, gasTestConfig(), zap.NewNop())

	price, err := est.GasPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(110_000_000_000), price.Int64())
}

func TestGasPriceErrorPropagates(t *testing.T) {
	client := &mockClient{gasPriceErr: errors.New("rpc down")}
	est := NewEstimator(client, gasTestConfig(), zap.NewNop())

	_, err := est.GasPrice(context.Background())
	assert.Error(t, err)
}

func TestCalculateMinProfit(t *testing.T) {
	got := CalculateMinProfit(720000, big.NewInt(110))
	want := new(big.Int).Mul(big.NewInt(2), new(big.Int).Mul(big.NewInt(720000), big.NewInt(110)))
	assert.Equal(t, 0, got.Cmp(want))
}
