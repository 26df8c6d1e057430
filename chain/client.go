// Package chain is the engine's boundary to the node: pool reserve reads,
// gas price suggestions, and gas-usage simulation. Retry and backoff are
// the node client's concern, not implemented here.
package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/michaelpento.lv/arbbot/types"
)

// Client is the chain/RPC collaborator used by the discovery core. All
// calls block until the node answers or ctx is done.
type Client interface {
	// PoolState reads the current reserves and token pair of a pool.
	PoolState(ctx context.Context, pool common.Address) (*types.PoolInfo, error)

	// SuggestGasPrice returns the node's current gas price suggestion.
	SuggestGasPrice(ctx context.Context) (*big.Int, error)

	// EstimateGas simulates the call message and returns its gas usage.
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}
