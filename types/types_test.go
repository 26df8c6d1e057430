package types

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

var (
	tokenA = common.HexToAddress("0x00000000000000000000000000000000000000Aa")
	tokenB = common.HexToAddress("0x00000000000000000000000000000000000000Bb")
	tokenC = common.HexToAddress("0x00000000000000000000000000000000000000Cc")
)

func pool(addr common.Address, t0, t1 common.Address) *PoolInfo {
	return &PoolInfo{
		Address:  addr,
		Token0:   t0,
		Token1:   t1,
		Reserve0: big.NewInt(1),
		Reserve1: big.NewInt(1),
	}
}

func TestPoolInfoContainsAndOther(t *testing.T) {
	p := pool(common.HexToAddress("0x1001"), tokenA, tokenB)

	assert.True(t, p.Contains(tokenA))
	assert.True(t, p.Contains(tokenB))
	assert.False(t, p.Contains(tokenC))

	assert.Equal(t, tokenB, p.Other(tokenA))
	assert.Equal(t, tokenA, p.Other(tokenB))
	assert.Equal(t, common.Address{}, p.Other(tokenC))
}

func TestPathAccessors(t *testing.T) {
	p1 := pool(common.HexToAddress("0x1001"), tokenA, tokenB)
	p2 := pool(common.HexToAddress("0x1002"), tokenB, tokenA)
	path := Path{Nodes: []PathNode{
		{Token: tokenA, Pool: p1, DexName: "DexA"},
		{Token: tokenB, Pool: p2, DexName: "DexB"},
		{Token: tokenA},
	}}

	assert.Equal(t, 2, path.Hops())
	assert.Equal(t, []common.Address{tokenA, tokenB, tokenA}, path.Tokens())
	assert.Equal(t, []string{"DexA", "DexB"}, path.DexNames())

	assert.Equal(t, 0, Path{}.Hops())
	assert.Nil(t, Path{}.DexNames())
}

func TestPathFingerprint(t *testing.T) {
	p1 := pool(common.HexToAddress("0x1001"), tokenA, tokenB)
	p2 := pool(common.HexToAddress("0x1002"), tokenB, tokenA)

	forward := Path{Nodes: []PathNode{
		{Token: tokenA, Pool: p1},
		{Token: tokenB, Pool: p2},
		{Token: tokenA},
	}}
	reverse := Path{Nodes: []PathNode{
		{Token: tokenA, Pool: p2},
		{Token: tokenB, Pool: p1},
		{Token: tokenA},
	}}

	assert.Equal(t, forward.Fingerprint(), forward.Fingerprint(),
		"fingerprint must be stable across calls")
	assert.NotEqual(t, forward.Fingerprint(), reverse.Fingerprint(),
		"pool order is part of the route identity")
}

func TestOpportunityExpired(t *testing.T) {
	now := time.Now()
	opp := &ArbitrageOpportunity{ValidUntil: now.Add(time.Second)}

	assert.False(t, opp.Expired(now))
	assert.True(t, opp.Expired(now.Add(time.Second)))
	assert.True(t, opp.Expired(now.Add(2*time.Second)))
}
