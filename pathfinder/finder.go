// Package pathfinder enumerates bounded-length arbitrage cycles over the
// token graph. Branch order follows the graph's adjacency order and the
// configured DEX order, so a stable configuration yields reproducible
// results.
package pathfinder

import (
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbbot/config"
	"github.com/michaelpento.lv/arbbot/types"
)

// GraphView is the read side of the pool registry used during search.
type GraphView interface {
	AdjacentPools(token common.Address) []*types.PoolInfo
}

// Constraints narrows a search: excluded tokens are never visited, and a
// surviving path must use at least one pool from every required DEX.
type Constraints struct {
	ExcludedTokens map[common.Address]bool
	RequiredDexes  []string
}

// Finder performs depth-first cycle search from each configured base
// token.
type Finder struct {
	cfg    *config.StrategyConfig
	graph  GraphView
	logger *zap.Logger
}

// NewFinder creates a finder over the given graph view.
func NewFinder(cfg *config.StrategyConfig, graph GraphView, logger *zap.Logger) *Finder {
	return &Finder{cfg: cfg, graph: graph, logger: logger}
}

// FindAllPaths enumerates every cycle of each hop count in
// [MinPathLength, MaxPathLength] returning to each base token.
func (f *Finder) FindAllPaths() ([]types.Path, error) {
	return f.FindPathsWithConstraints(Constraints{})
}

// FindPathsWithConstraints enumerates cycles subject to the given
// constraints. A token with no adjacent pools is a dead end, not an
// error. Callers must keep MaxPathLength small; fan-out grows
// combinatorially with path length.
func (f *Finder) FindPathsWithConstraints(cons Constraints) ([]types.Path, error) {
	var paths []types.Path

	for _, base := range f.cfg.BaseTokenAddresses() {
		if cons.ExcludedTokens[base] {
			continue
		}
		for hops := f.cfg.MinPathLength; hops <= f.cfg.MaxPathLength; hops++ {
			prefix := []types.PathNode{{Token: base}}
			visited := map[common.Address]bool{base: true}
			paths = f.search(base, base, prefix, visited, hops, cons, paths)
		}
	}

	if len(cons.RequiredDexes) > 0 {
		paths = filterRequiredDexes(paths, cons.RequiredDexes)
	}
	return paths, nil
}

// search extends the path prefix by one hop. The prefix is copied before
// every extension, so sibling branches never observe each other's
// mutations.
func (f *Finder) search(
	base, current common.Address,
	prefix []types.PathNode,
	visited map[common.Address]bool,
	remaining int,
	cons Constraints,
	acc []types.Path,
) []types.Path {
	for _, pool := range f.graph.AdjacentPools(current) {
		next := pool.Other(current)
		if (next == common.Address{}) {
			continue
		}
		if cons.ExcludedTokens[next] {
			continue
		}

		if remaining == 1 {
			// Only the closing hop back to the base token completes a
			// cycle at this depth.
			if next != base {
				continue
			}
		} else if visited[next] {
			// Intermediate tokens must be distinct; the base token may
			// only reappear as the terminal node.
			continue
		}

		for i := range f.cfg.SupportedDexes {
			dex := &f.cfg.SupportedDexes[i]
			if pool.DexName != dex.Name {
				continue
			}

			branch := extend(prefix, pool, dex, next)
			if remaining == 1 {
				acc = append(acc, types.Path{Nodes: branch})
				continue
			}

			visited[next] = true
			acc = f.search(base, next, branch, visited, remaining-1, cons, acc)
			delete(visited, next)
		}
	}
	return acc
}

// extend copies the prefix, attaches the chosen edge to its tail, and
// appends the next token node.
func extend(prefix []types.PathNode, pool *types.PoolInfo, dex *config.DexConfig, next common.Address) []types.PathNode {
	branch := make([]types.PathNode, len(prefix), len(prefix)+1)
	copy(branch, prefix)
	branch[len(branch)-1].Pool = pool
	branch[len(branch)-1].DexName = dex.Name
	branch[len(branch)-1].Router = dex.RouterAddress()
	return append(branch, types.PathNode{Token: next})
}

// filterRequiredDexes keeps only paths that touch every required DEX at
// least once.
func filterRequiredDexes(paths []types.Path, required []string) []types.Path {
	kept := paths[:0]
	for _, p := range paths {
		used := make(map[string]bool, p.Hops())
		for _, name := range p.DexNames() {
			used[name] = true
		}
		ok := true
		for _, name := range required {
			if !used[name] {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, p)
		}
	}
	return kept
}
