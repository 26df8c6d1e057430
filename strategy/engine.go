// Package strategy orchestrates arbitrage discovery: it owns the pool
// store, enumerates candidate cycles, evaluates them concurrently under
// a bounded semaphore, and ranks the survivors.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/ethereum/go-ethereum/common"

	"github.com/michaelpento.lv/arbbot/chain"
	"github.com/michaelpento.lv/arbbot/config"
	"github.com/michaelpento.lv/arbbot/gas"
	"github.com/michaelpento.lv/arbbot/optimizer"
	"github.com/michaelpento.lv/arbbot/pathfinder"
	"github.com/michaelpento.lv/arbbot/profit"
	"github.com/michaelpento.lv/arbbot/registry"
	"github.com/michaelpento.lv/arbbot/types"
	"github.com/michaelpento.lv/arbbot/utils/metrics"
)

// seenCacheSize bounds the fingerprint dedup cache used by the
// continuous scan loop.
const seenCacheSize = 1024

// Engine drives the discovery pipeline. Lifecycle: Stopped -> Running on
// Start, back to Stopped on Stop. Stop cancels the refresh loop and every
// in-flight path evaluation via the engine-scoped context.
type Engine struct {
	cfg     *config.StrategyConfig
	store   *registry.PoolStore
	finder  *pathfinder.Finder
	calc    *profit.Calculator
	opt     *optimizer.Optimizer
	gasEst  *gas.Estimator
	scorer  Scorer
	logger  *zap.Logger
	metrics *metrics.StrategyMetrics

	sem  *semaphore.Weighted
	seen *lru.Cache

	oppCh chan []*types.ArbitrageOpportunity

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewEngine validates the configuration and wires the pipeline
// components. Configuration problems surface here, never at query time.
func NewEngine(cfg *config.StrategyConfig, client chain.Client, m *metrics.StrategyMetrics, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := registry.NewPoolStore(client, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool store: %w", err)
	}
	seen, err := lru.New(seenCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create dedup cache: %w", err)
	}

	calc := profit.NewCalculator(logger)
	return &Engine{
		cfg:     cfg,
		store:   store,
		finder:  pathfinder.NewFinder(cfg, store, logger),
		calc:    calc,
		opt:     optimizer.NewOptimizer(calc, logger),
		gasEst:  gas.NewEstimator(client, cfg, logger),
		scorer:  NewHeuristicScorer(),
		logger:  logger,
		metrics: m,
		sem:     semaphore.NewWeighted(int64(cfg.MaxConcurrentPaths)),
		seen:    seen,
		oppCh:   make(chan []*types.ArbitrageOpportunity, 8),
	}, nil
}

// UseScorer swaps the confidence scoring policy. Call before Start.
func (e *Engine) UseScorer(s Scorer) {
	e.scorer = s
}

// Store exposes the engine-owned pool store for seeding and inspection.
func (e *Engine) Store() *registry.PoolStore {
	return e.store
}

// Opportunities returns the channel the continuous scan loop publishes
// fresh opportunity batches on.
func (e *Engine) Opportunities() <-chan []*types.ArbitrageOpportunity {
	return e.oppCh
}

// Bootstrap loads the configured tracked pools into the store and builds
// the initial token graph. Call once before the first discovery pass.
func (e *Engine) Bootstrap(ctx context.Context) error {
	var seeds []registry.SeedPool
	for _, d := range e.cfg.SupportedDexes {
		router := d.RouterAddress()
		for _, addr := range d.Pools {
			seeds = append(seeds, registry.SeedPool{
				Address: common.HexToAddress(addr),
				DexName: d.Name,
				Router:  router,
				FeeBps:  d.FeeBps,
			})
		}
	}
	if len(seeds) == 0 {
		return &types.ConfigurationError{Reason: "no tracked pools configured"}
	}

	failures, err := e.store.Bootstrap(ctx, seeds)
	if err != nil {
		return fmt.Errorf("pool bootstrap failed: %w", err)
	}
	if failures > 0 {
		e.metrics.PoolRefreshFailures.Add(float64(failures))
	}
	return nil
}

// Start transitions the engine to Running and launches the pool refresh
// loop. Starting a running engine is an error.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return errors.New("engine already running")
	}

	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.stopCh = make(chan struct{})
	e.running = true

	e.wg.Add(1)
	go e.refreshLoop()

	e.logger.Info("strategy engine started",
		zap.Int("max_concurrent_paths", e.cfg.MaxConcurrentPaths),
		zap.Int("dexes", len(e.cfg.SupportedDexes)))
	return nil
}

// Stop transitions the engine to Stopped. The refresh loop exits and all
// in-flight path evaluations are cancelled through the engine context.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stopCh)
	e.cancel()
	e.mu.Unlock()

	e.wg.Wait()
	e.logger.Info("strategy engine stopped")
}

// refreshLoop refetches all cached pools every RefreshInterval until the
// stop signal fires.
func (e *Engine) refreshLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(registry.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			failures := e.store.RefreshAll(e.ctx)
			if failures > 0 {
				e.metrics.PoolRefreshFailures.Add(float64(failures))
			}
		}
	}
}

// FindOpportunities runs one full discovery pass: enumerate candidate
// cycles, evaluate them concurrently bounded by MaxConcurrentPaths,
// filter, and sort descending by profit rate. Per-path failures are
// logged and omitted; only enumeration-level failures abort the call.
func (e *Engine) FindOpportunities(ctx context.Context) ([]*types.ArbitrageOpportunity, error) {
	runCtx, cancelRun := e.scopedContext(ctx)
	defer cancelRun()

	paths, err := e.finder.FindAllPaths()
	if err != nil {
		return nil, fmt.Errorf("path enumeration failed: %w", err)
	}
	e.metrics.PathsEnumerated.Add(float64(len(paths)))
	if len(paths) == 0 {
		return nil, nil
	}

	results := make(chan *types.ArbitrageOpportunity, len(paths))
	var wg sync.WaitGroup

	for _, path := range paths {
		wg.Add(1)
		go func(p types.Path) {
			defer wg.Done()
			if err := e.sem.Acquire(runCtx, 1); err != nil {
				return
			}
			defer e.sem.Release(1)

			e.metrics.InflightEvaluations.Inc()
			defer e.metrics.InflightEvaluations.Dec()

			start := time.Now()
			opp, err := e.evaluatePath(runCtx, p)
			e.metrics.EvaluationTime.Observe(time.Since(start).Seconds())
			e.metrics.PathsEvaluated.Inc()

			if err != nil {
				e.metrics.EvaluationErrors.Inc()
				e.logger.Debug("path evaluation failed",
					zap.Int("hops", p.Hops()),
					zap.Error(err))
				return
			}
			if opp != nil {
				results <- opp
			}
		}(path)
	}

	// Collection order is arrival order, which carries no meaning; the
	// explicit sort below is the only ordering contract.
	collected := make([]*types.ArbitrageOpportunity, 0, len(paths))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for opp := range results {
			collected = append(collected, opp)
		}
	}()

	wg.Wait()
	close(results)
	<-done

	opps := e.filterProfitableOpportunities(dedupeByFingerprint(collected))
	sort.Slice(opps, func(i, j int) bool {
		return opps[i].ProfitRate > opps[j].ProfitRate
	})

	e.metrics.OpportunitiesFound.Add(float64(len(opps)))
	return opps, nil
}

// Run performs discovery passes on the configured scan interval and
// publishes batches of not-yet-seen opportunities until ctx is done or
// the engine stops. Fingerprints already reported within their validity
// window are suppressed.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.stopCh:
			return nil
		case <-ticker.C:
			opps, err := e.FindOpportunities(ctx)
			if err != nil {
				e.logger.Error("discovery pass failed", zap.Error(err))
				continue
			}
			fresh := e.freshOpportunities(opps)
			if len(fresh) == 0 {
				continue
			}
			select {
			case e.oppCh <- fresh:
			default:
				e.logger.Warn("opportunity channel full, dropping batch",
					zap.Int("count", len(fresh)))
			}
		}
	}
}

// evaluatePath runs the per-path pipeline: optimal amount search, gas
// estimation, profitability floor, scoring. A nil, nil return means the
// path simply is not an opportunity right now.
func (e *Engine) evaluatePath(ctx context.Context, path types.Path) (*types.ArbitrageOpportunity, error) {
	amountIn, amountOut, err := e.opt.FindOptimalAmount(path)
	if err != nil {
		var noOpp *types.NoOpportunityError
		var liqErr *types.LiquidityError
		if errors.As(err, &noOpp) || errors.As(err, &liqErr) {
			return nil, nil
		}
		return nil, err
	}

	gasEstimate := e.gasEst.EstimateGas(path)
	gasPrice, err := e.gasEst.GasPrice(ctx)
	if err != nil {
		// No safe default exists for the price side; this one
		// evaluation aborts.
		return nil, err
	}
	e.metrics.GasPrice.Observe(float64(gasPrice.Uint64()))

	gasCost := new(big.Int).Mul(new(big.Int).SetUint64(gasEstimate), gasPrice)
	minProfit := gas.CalculateMinProfit(gasEstimate, gasPrice)

	expectProfit := e.calc.CalculateProfit(amountIn, amountOut)
	if expectProfit.Cmp(minProfit) <= 0 {
		return nil, nil
	}
	profitRate := e.calc.CalculateProfitRate(amountIn, expectProfit)
	if profitRate < e.cfg.MinProfitRate {
		return nil, nil
	}

	now := time.Now()
	return &types.ArbitrageOpportunity{
		ID:           uuid.NewString(),
		Fingerprint:  path.Fingerprint(),
		Tokens:       path.Tokens(),
		DexNames:     path.DexNames(),
		Routers:      pathRouters(path),
		AmountIn:     amountIn,
		AmountOut:    amountOut,
		ExpectProfit: expectProfit,
		MinProfit:    minProfit,
		ProfitRate:   profitRate,
		GasEstimate:  gasEstimate,
		GasPrice:     gasPrice,
		GasCost:      gasCost,
		DiscoveredAt: now,
		ValidUntil:   now.Add(e.cfg.ValidityDuration),
		Confidence:   e.scorer.Score(path, profitRate),
		PathLength:   path.Hops(),
	}, nil
}

// filterProfitableOpportunities keeps an opportunity iff its expected
// profit strictly exceeds the floor, its rate clears the configured
// minimum, and it has not yet expired.
func (e *Engine) filterProfitableOpportunities(opps []*types.ArbitrageOpportunity) []*types.ArbitrageOpportunity {
	now := time.Now()
	kept := make([]*types.ArbitrageOpportunity, 0, len(opps))
	for _, opp := range opps {
		if opp.ExpectProfit.Cmp(opp.MinProfit) <= 0 {
			continue
		}
		if opp.ProfitRate < e.cfg.MinProfitRate {
			continue
		}
		if opp.Expired(now) {
			continue
		}
		kept = append(kept, opp)
	}
	return kept
}

// freshOpportunities filters out fingerprints already published within
// their validity window and records the rest.
func (e *Engine) freshOpportunities(opps []*types.ArbitrageOpportunity) []*types.ArbitrageOpportunity {
	now := time.Now()
	fresh := make([]*types.ArbitrageOpportunity, 0, len(opps))
	for _, opp := range opps {
		if v, ok := e.seen.Get(opp.Fingerprint); ok {
			if validUntil, ok := v.(time.Time); ok && now.Before(validUntil) {
				continue
			}
		}
		e.seen.Add(opp.Fingerprint, opp.ValidUntil)
		fresh = append(fresh, opp)
	}
	return fresh
}

// scopedContext derives the evaluation context from the caller's and
// ties it to the engine lifecycle, so Stop cancels in-flight work even
// when the caller's context lives on.
func (e *Engine) scopedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(ctx)

	e.mu.Lock()
	engineCtx := e.ctx
	running := e.running
	e.mu.Unlock()

	if running && engineCtx != nil {
		go func() {
			select {
			case <-engineCtx.Done():
				cancel()
			case <-runCtx.Done():
			}
		}()
	}
	return runCtx, cancel
}

// dedupeByFingerprint collapses duplicate cycles discovered in the same
// pass, keeping the higher profit rate.
func dedupeByFingerprint(opps []*types.ArbitrageOpportunity) []*types.ArbitrageOpportunity {
	byFp := make(map[uint64]*types.ArbitrageOpportunity, len(opps))
	order := make([]uint64, 0, len(opps))
	for _, opp := range opps {
		prev, ok := byFp[opp.Fingerprint]
		if !ok {
			byFp[opp.Fingerprint] = opp
			order = append(order, opp.Fingerprint)
			continue
		}
		if opp.ProfitRate > prev.ProfitRate {
			byFp[opp.Fingerprint] = opp
		}
	}
	out := make([]*types.ArbitrageOpportunity, 0, len(order))
	for _, fp := range order {
		out = append(out, byFp[fp])
	}
	return out
}

// pathRouters returns the router address for each hop, in order.
func pathRouters(path types.Path) []common.Address {
	if len(path.Nodes) < 2 {
		return nil
	}
	routers := make([]common.Address, 0, len(path.Nodes)-1)
	for _, n := range path.Nodes[:len(path.Nodes)-1] {
		routers = append(routers, n.Router)
	}
	return routers
}
