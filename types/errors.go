package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ConfigurationError reports invalid strategy configuration. It is
// returned at construction time, never from query paths.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}

// LiquidityError reports reserves too thin to derive a usable amount
// search interval.
type LiquidityError struct {
	Pool   common.Address
	Reason string
}

func (e *LiquidityError) Error() string {
	if (e.Pool != common.Address{}) {
		return fmt.Sprintf("insufficient liquidity in pool %s: %s", e.Pool.Hex(), e.Reason)
	}
	return fmt.Sprintf("insufficient liquidity: %s", e.Reason)
}

// CalculationError reports invalid inputs to the AMM math: non-positive
// reserves or amounts, or a token that does not belong to the pool.
type CalculationError struct {
	Reason string
}

func (e *CalculationError) Error() string {
	return fmt.Sprintf("calculation failed: %s", e.Reason)
}

// ChainCallError wraps a failed RPC call to the chain collaborator.
type ChainCallError struct {
	Op  string
	Err error
}

func (e *ChainCallError) Error() string {
	return fmt.Sprintf("chain call %s failed: %v", e.Op, e.Err)
}

func (e *ChainCallError) Unwrap() error {
	return e.Err
}

// NoOpportunityError reports a search that completed without any amount
// clearing the profit bar.
type NoOpportunityError struct {
	Reason string
}

func (e *NoOpportunityError) Error() string {
	return fmt.Sprintf("no opportunity: %s", e.Reason)
}
