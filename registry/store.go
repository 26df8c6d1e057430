// Package registry owns the in-memory pool cache and the token adjacency
// graph used by path enumeration. The graph is rebuilt wholesale on every
// refresh so concurrent readers never observe a partially updated view.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbbot/chain"
	"github.com/michaelpento.lv/arbbot/types"
)

const (
	// FreshnessThreshold is the maximum age of a cached pool entry before
	// GetPool refetches it from the chain.
	FreshnessThreshold = 10 * time.Second

	// RefreshInterval is the tick of the background refresh loop.
	RefreshInterval = 5 * time.Second

	// poolCacheSize bounds the address cache. Pools evicted here simply
	// get refetched on next use.
	poolCacheSize = 4096
)

// PoolStore caches pool state by address and maintains the token graph.
// It is owned by the engine: construction, Start and Stop are driven by
// the engine lifecycle, with no package-level state.
type PoolStore struct {
	client chain.Client
	logger *zap.Logger
	cache  *lru.Cache

	mu    sync.RWMutex
	graph map[common.Address][]*types.PoolInfo

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPoolStore creates an empty store backed by the given chain client.
func NewPoolStore(client chain.Client, logger *zap.Logger) (*PoolStore, error) {
	cache, err := lru.New(poolCacheSize)
	if err != nil {
		return nil, err
	}
	return &PoolStore{
		client: client,
		logger: logger,
		cache:  cache,
		graph:  make(map[common.Address][]*types.PoolInfo),
		stopCh: make(chan struct{}),
	}, nil
}

// SeedPool names a tracked pool and its DEX attribution ahead of the
// first chain read.
type SeedPool struct {
	Address common.Address
	DexName string
	Router  common.Address
	FeeBps  uint32
}

// Bootstrap fetches the initial state of every seed pool and builds the
// graph from the successes. Individual fetch failures are logged and
// counted; the call fails only when not a single pool could be loaded.
func (s *PoolStore) Bootstrap(ctx context.Context, seeds []SeedPool) (int, error) {
	failures := 0
	pools := make([]*types.PoolInfo, 0, len(seeds))

	for _, seed := range seeds {
		fresh, err := s.client.PoolState(ctx, seed.Address)
		if err != nil {
			failures++
			s.logger.Warn("seed pool fetch failed",
				zap.String("pool", seed.Address.Hex()),
				zap.String("dex", seed.DexName),
				zap.Error(err))
			continue
		}
		fresh.DexName = seed.DexName
		fresh.Router = seed.Router
		if fresh.FeeBps == 0 {
			fresh.FeeBps = seed.FeeBps
		}
		pools = append(pools, fresh)
	}

	if len(seeds) > 0 && len(pools) == 0 {
		return failures, fmt.Errorf("no seed pools loaded, %d fetches failed", failures)
	}

	s.BuildGraph(pools)
	s.logger.Info("pool graph bootstrapped",
		zap.Int("pools", len(pools)),
		zap.Int("failures", failures))
	return failures, nil
}

// BuildGraph replaces the adjacency map wholesale from the given pool set
// and seeds the address cache. Both directions of every pool are
// inserted.
func (s *PoolStore) BuildGraph(pools []*types.PoolInfo) {
	graph := make(map[common.Address][]*types.PoolInfo, len(pools)*2)
	for _, pool := range pools {
		graph[pool.Token0] = append(graph[pool.Token0], pool)
		graph[pool.Token1] = append(graph[pool.Token1], pool)
		s.cache.Add(pool.Address, pool)
	}

	s.mu.Lock()
	s.graph = graph
	s.mu.Unlock()
}

// AdjacentPools returns the pools touching the given token in the current
// graph. The returned slice belongs to an immutable graph snapshot and
// must not be modified.
func (s *PoolStore) AdjacentPools(token common.Address) []*types.PoolInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph[token]
}

// Pools returns every pool currently cached.
func (s *PoolStore) Pools() []*types.PoolInfo {
	keys := s.cache.Keys()
	pools := make([]*types.PoolInfo, 0, len(keys))
	for _, k := range keys {
		if v, ok := s.cache.Get(k); ok {
			pools = append(pools, v.(*types.PoolInfo))
		}
	}
	return pools
}

// GetPool returns the cached pool if younger than FreshnessThreshold,
// otherwise refetches it synchronously. When the refetch fails but a
// stale entry exists, the stale entry is returned and the failure logged.
func (s *PoolStore) GetPool(ctx context.Context, addr common.Address) (*types.PoolInfo, error) {
	var cached *types.PoolInfo
	if v, ok := s.cache.Get(addr); ok {
		cached = v.(*types.PoolInfo)
		if time.Since(cached.UpdatedAt) < FreshnessThreshold {
			return cached, nil
		}
	}

	fresh, err := s.client.PoolState(ctx, addr)
	if err != nil {
		if cached != nil {
			s.logger.Warn("pool refetch failed, serving stale entry",
				zap.String("pool", addr.Hex()),
				zap.Error(err))
			return cached, nil
		}
		return nil, err
	}

	merged := mergeMetadata(fresh, cached)
	s.cache.Add(addr, merged)
	return merged, nil
}

// RefreshAll refetches every cached pool and rebuilds the graph from the
// results. A failed fetch leaves the stale entry in place; the number of
// failures is returned for instrumentation.
func (s *PoolStore) RefreshAll(ctx context.Context) int {
	failures := 0
	keys := s.cache.Keys()
	pools := make([]*types.PoolInfo, 0, len(keys))

	for _, k := range keys {
		addr := k.(common.Address)
		var cached *types.PoolInfo
		if v, ok := s.cache.Get(addr); ok {
			cached = v.(*types.PoolInfo)
		}

		fresh, err := s.client.PoolState(ctx, addr)
		if err != nil {
			failures++
			s.logger.Warn("pool refresh failed, keeping stale entry",
				zap.String("pool", addr.Hex()),
				zap.Error(err))
			if cached != nil {
				pools = append(pools, cached)
			}
			continue
		}

		merged := mergeMetadata(fresh, cached)
		s.cache.Add(addr, merged)
		pools = append(pools, merged)
	}

	s.BuildGraph(pools)
	return failures
}

// Start launches the background refresh loop.
func (s *PoolStore) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(RefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RefreshAll(ctx)
			}
		}
	}()
}

// Stop terminates the refresh loop and waits for it to exit.
func (s *PoolStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

// mergeMetadata carries DEX attribution and fee over from the previous
// cache entry; the chain read only knows reserves and the token pair.
func mergeMetadata(fresh, cached *types.PoolInfo) *types.PoolInfo {
	if cached == nil {
		return fresh
	}
	merged := *fresh
	merged.DexName = cached.DexName
	merged.Router = cached.Router
	if merged.FeeBps == 0 {
		merged.FeeBps = cached.FeeBps
	}
	return &merged
}
