package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/michaelpento.lv/arbbot/types"
)

// Pair contract ABI, shared by v2-style pools across the supported DEXes.
const pairABIJson = `[{
	"constant": true,
	"inputs": [],
	"name": "getReserves",
	"outputs": [
		{"name": "reserve0", "type": "uint112"},
		{"name": "reserve1", "type": "uint112"},
		{"name": "blockTimestampLast", "type": "uint32"}
	],
	"payable": false,
	"stateMutability": "view",
	"type": "function"
}, {
	"constant": true,
	"inputs": [],
	"name": "token0",
	"outputs": [{"name": "", "type": "address"}],
	"payable": false,
	"stateMutability": "view",
	"type": "function"
}, {
	"constant": true,
	"inputs": [],
	"name": "token1",
	"outputs": [{"name": "", "type": "address"}],
	"payable": false,
	"stateMutability": "view",
	"type": "function"
}]`

// RPCClient implements Client on top of an ethclient connection. Every
// outgoing call waits on a shared rate limiter so bursts of concurrent
// path evaluations cannot flood the node.
type RPCClient struct {
	client  *ethclient.Client
	logger  *zap.Logger
	limiter *rate.Limiter
	pairABI abi.ABI
}

// NewRPCClient creates a rate-limited chain client.
func NewRPCClient(client *ethclient.Client, rps float64, burst int, logger *zap.Logger) (*RPCClient, error) {
	parsedABI, err := abi.JSON(strings.NewReader(pairABIJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pair ABI: %w", err)
	}

	return &RPCClient{
		client:  client,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		pairABI: parsedABI,
	}, nil
}

// Dial connects to the given RPC endpoint and wraps it in a rate-limited
// client.
func Dial(endpoint string, rps float64, burst int, logger *zap.Logger) (*RPCClient, error) {
	client, err := ethclient.Dial(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to node at %s: %w", endpoint, err)
	}
	return NewRPCClient(client, rps, burst, logger)
}

// PoolState reads reserves and the token pair of a v2-style pool.
func (c *RPCClient) PoolState(ctx context.Context, pool common.Address) (*types.PoolInfo, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &types.ChainCallError{Op: "PoolState", Err: err}
	}

	contract := bind.NewBoundContract(pool, c.pairABI, c.client, c.client, c.client)
	opts := &bind.CallOpts{Context: ctx}

	var out []interface{}
	if err := contract.Call(opts, &out, "getReserves"); err != nil {
		return nil, &types.ChainCallError{Op: "getReserves", Err: err}
	}
	reserve0, ok := out[0].(*big.Int)
	if !ok {
		return nil, &types.ChainCallError{Op: "getReserves", Err: fmt.Errorf("failed to parse reserve0")}
	}
	reserve1, ok := out[1].(*big.Int)
	if !ok {
		return nil, &types.ChainCallError{Op: "getReserves", Err: fmt.Errorf("failed to parse reserve1")}
	}

	out = out[:0]
	if err := contract.Call(opts, &out, "token0"); err != nil {
		return nil, &types.ChainCallError{Op: "token0", Err: err}
	}
	token0, ok := out[0].(common.Address)
	if !ok {
		return nil, &types.ChainCallError{Op: "token0", Err: fmt.Errorf("failed to parse token0")}
	}

	out = out[:0]
	if err := contract.Call(opts, &out, "token1"); err != nil {
		return nil, &types.ChainCallError{Op: "token1", Err: err}
	}
	token1, ok := out[0].(common.Address)
	if !ok {
		return nil, &types.ChainCallError{Op: "token1", Err: fmt.Errorf("failed to parse token1")}
	}

	return &types.PoolInfo{
		Address:   pool,
		Token0:    token0,
		Token1:    token1,
		Reserve0:  reserve0,
		Reserve1:  reserve1,
		UpdatedAt: time.Now(),
	}, nil
}

// SuggestGasPrice returns the node's gas price suggestion.
func (c *RPCClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &types.ChainCallError{Op: "SuggestGasPrice", Err: err}
	}

	price, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, &types.ChainCallError{Op: "SuggestGasPrice", Err: err}
	}
	return price, nil
}

// EstimateGas simulates the call message against the node.
func (c *RPCClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, &types.ChainCallError{Op: "EstimateGas", Err: err}
	}

	gas, err := c.client.EstimateGas(ctx, msg)
	if err != nil {
		return 0, &types.ChainCallError{Op: "EstimateGas", Err: err}
	}
	return gas, nil
}

// Close releases the underlying connection.
func (c *RPCClient) Close() {
	c.client.Close()
}
