package types

import (
	"math/big"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/ethereum/go-ethereum/common"
)

// PoolInfo is the cached on-chain state of a liquidity pool. Instances are
// replaced wholesale on refresh, never mutated in place while readers hold
// a reference.
type PoolInfo struct {
	Address   common.Address
	Token0    common.Address
	Token1    common.Address
	Reserve0  *big.Int
	Reserve1  *big.Int
	FeeBps    uint32 // fee in basis points, out of 10000
	DexName   string
	Router    common.Address
	UpdatedAt time.Time
}

// Contains reports whether token is one of the pool's two tokens.
func (p *PoolInfo) Contains(token common.Address) bool {
	return p.Token0 == token || p.Token1 == token
}

// Other returns the opposite token of the pair. The zero address is
// returned when token does not belong to the pool.
func (p *PoolInfo) Other(token common.Address) common.Address {
	switch token {
	case p.Token0:
		return p.Token1
	case p.Token1:
		return p.Token0
	}
	return common.Address{}
}

// PathNode is one position in an arbitrage cycle: the token held at this
// step plus the pool and DEX chosen for the outgoing swap. The terminal
// node of a cycle carries no outgoing edge.
type PathNode struct {
	Token   common.Address
	Pool    *PoolInfo
	DexName string
	Router  common.Address
}

// Path is an ordered cycle of PathNodes. The first and last token are
// identical; every node except the last names the pool used to swap into
// the next node's token.
type Path struct {
	Nodes []PathNode
}

// Hops returns the number of swaps in the path.
func (p Path) Hops() int {
	if len(p.Nodes) < 2 {
		return 0
	}
	return len(p.Nodes) - 1
}

// Tokens returns the ordered token sequence, including the repeated
// terminal base token.
func (p Path) Tokens() []common.Address {
	tokens := make([]common.Address, len(p.Nodes))
	for i, n := range p.Nodes {
		tokens[i] = n.Token
	}
	return tokens
}

// DexNames returns the DEX used for each hop, in order.
func (p Path) DexNames() []string {
	if len(p.Nodes) < 2 {
		return nil
	}
	names := make([]string, 0, len(p.Nodes)-1)
	for _, n := range p.Nodes[:len(p.Nodes)-1] {
		names = append(names, n.DexName)
	}
	return names
}

// Fingerprint hashes the ordered (token, pool) sequence into a stable
// identity for the cycle. Two discoveries of the same route across scan
// rounds share a fingerprint even though their IDs differ.
func (p Path) Fingerprint() uint64 {
	h := xxhash.New()
	for _, n := range p.Nodes {
		_, _ = h.Write(n.Token.Bytes())
		if n.Pool != nil {
			_, _ = h.Write(n.Pool.Address.Bytes())
		}
	}
	return h.Sum64()
}

// ArbitrageOpportunity is an immutable snapshot of one discovered and
// scored arbitrage cycle. Consumers must discard it once time passes
// ValidUntil.
type ArbitrageOpportunity struct {
	ID          string
	Fingerprint uint64

	Tokens   []common.Address
	DexNames []string
	Routers  []common.Address

	AmountIn     *big.Int
	AmountOut    *big.Int
	ExpectProfit *big.Int
	MinProfit    *big.Int
	ProfitRate   float64

	GasEstimate uint64
	GasPrice    *big.Int
	GasCost     *big.Int

	DiscoveredAt time.Time
	ValidUntil   time.Time
	Confidence   float64
	PathLength   int
}

// Expired reports whether the opportunity is stale at the given time.
func (o *ArbitrageOpportunity) Expired(now time.Time) bool {
	return !now.Before(o.ValidUntil)
}
