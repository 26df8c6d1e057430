// Package testutils provides synthetic pools and paths for package
// tests.
package testutils

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/michaelpento.lv/arbbot/types"
)

// TokenA, TokenB and friends are stable addresses for building synthetic
// graphs.
var (
	TokenA = common.HexToAddress("0x00000000000000000000000000000000000000Aa")
	TokenB = common.HexToAddress("0x00000000000000000000000000000000000000Bb")
	TokenC = common.HexToAddress("0x00000000000000000000000000000000000000Cc")
	TokenD = common.HexToAddress("0x00000000000000000000000000000000000000Dd")
)

// PoolAddr derives a deterministic pool address from an index.
func PoolAddr(i int) common.Address {
	return common.HexToAddress(fmt.Sprintf("0x%040x", 0x1000+i))
}

// NewPool builds a pool with the given pair, reserves and fee on the
// named DEX.
func NewPool(addr common.Address, token0, token1 common.Address, reserve0, reserve1 int64, feeBps uint32, dex string) *types.PoolInfo {
	return &types.PoolInfo{
		Address:   addr,
		Token0:    token0,
		Token1:    token1,
		Reserve0:  big.NewInt(reserve0),
		Reserve1:  big.NewInt(reserve1),
		FeeBps:    feeBps,
		DexName:   dex,
		UpdatedAt: time.Now(),
	}
}

// TwoHopPath builds the cycle token0 -> token1 -> token0 across the two
// given pools.
func TwoHopPath(base, mid common.Address, pool1, pool2 *types.PoolInfo) types.Path {
	return types.Path{Nodes: []types.PathNode{
		{Token: base, Pool: pool1, DexName: pool1.DexName},
		{Token: mid, Pool: pool2, DexName: pool2.DexName},
		{Token: base},
	}}
}
