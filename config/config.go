package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v2"

	"github.com/michaelpento.lv/arbbot/types"
)

// DexConfig describes one supported exchange. Type selects the gas class
// and swap math family; FeeBps is the default pool fee for pools that do
// not report their own. Pools lists the tracked pair contracts whose
// state seeds the token graph at startup.
type DexConfig struct {
	Name    string   `yaml:"name"`
	Router  string   `yaml:"router"`
	Factory string   `yaml:"factory"`
	Type    string   `yaml:"type"` // uniswap-v2, uniswap-v3, stable
	FeeBps  uint32   `yaml:"fee_bps"`
	Pools   []string `yaml:"pools"`
}

// RouterAddress returns the parsed router address.
func (d *DexConfig) RouterAddress() common.Address {
	return common.HexToAddress(d.Router)
}

// StrategyConfig is the full configuration surface of the discovery
// engine. Invalid values fail fast in Validate, never at query time.
type StrategyConfig struct {
	RPCEndpoint string `yaml:"rpc_endpoint"`

	MinProfitRate      float64       `yaml:"min_profit_rate"`
	MinPathLength      int           `yaml:"min_path_length"`
	MaxPathLength      int           `yaml:"max_path_length"`
	MaxSlippage        float64       `yaml:"max_slippage"`
	GasMultiplier      float64       `yaml:"gas_multiplier"`
	ValidityDuration   time.Duration `yaml:"validity_duration"`
	MaxConcurrentPaths int           `yaml:"max_concurrent_paths"`
	ScanInterval       time.Duration `yaml:"scan_interval"`

	BaseTokens     []string    `yaml:"base_tokens"`
	SupportedDexes []DexConfig `yaml:"supported_dexes"`

	// RPC client knobs
	RPCRateLimit float64 `yaml:"rpc_rate_limit"`
	RPCRateBurst int     `yaml:"rpc_rate_burst"`
}

// UnmarshalYAML decodes on top of the receiver's current values, so a
// partial config file only overrides what it names. Durations accept the
// human forms time.ParseDuration understands.
func (c *StrategyConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw struct {
		RPCEndpoint        *string     `yaml:"rpc_endpoint"`
		MinProfitRate      *float64    `yaml:"min_profit_rate"`
		MinPathLength      *int        `yaml:"min_path_length"`
		MaxPathLength      *int        `yaml:"max_path_length"`
		MaxSlippage        *float64    `yaml:"max_slippage"`
		GasMultiplier      *float64    `yaml:"gas_multiplier"`
		ValidityDuration   *string     `yaml:"validity_duration"`
		MaxConcurrentPaths *int        `yaml:"max_concurrent_paths"`
		ScanInterval       *string     `yaml:"scan_interval"`
		BaseTokens         []string    `yaml:"base_tokens"`
		SupportedDexes     []DexConfig `yaml:"supported_dexes"`
		RPCRateLimit       *float64    `yaml:"rpc_rate_limit"`
		RPCRateBurst       *int        `yaml:"rpc_rate_burst"`
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}

	if raw.RPCEndpoint != nil {
		c.RPCEndpoint = *raw.RPCEndpoint
	}
	if raw.MinProfitRate != nil {
		c.MinProfitRate = *raw.MinProfitRate
	}
	if raw.MinPathLength != nil {
		c.MinPathLength = *raw.MinPathLength
	}
	if raw.MaxPathLength != nil {
		c.MaxPathLength = *raw.MaxPathLength
	}
	if raw.MaxSlippage != nil {
		c.MaxSlippage = *raw.MaxSlippage
	}
	if raw.GasMultiplier != nil {
		c.GasMultiplier = *raw.GasMultiplier
	}
	if raw.MaxConcurrentPaths != nil {
		c.MaxConcurrentPaths = *raw.MaxConcurrentPaths
	}
	if raw.BaseTokens != nil {
		c.BaseTokens = raw.BaseTokens
	}
	if raw.SupportedDexes != nil {
		c.SupportedDexes = raw.SupportedDexes
	}
	if raw.RPCRateLimit != nil {
		c.RPCRateLimit = *raw.RPCRateLimit
	}
	if raw.RPCRateBurst != nil {
		c.RPCRateBurst = *raw.RPCRateBurst
	}

	if raw.ValidityDuration != nil {
		d, err := time.ParseDuration(*raw.ValidityDuration)
		if err != nil {
			return fmt.Errorf("invalid validity_duration: %w", err)
		}
		c.ValidityDuration = d
	}
	if raw.ScanInterval != nil {
		d, err := time.ParseDuration(*raw.ScanInterval)
		if err != nil {
			return fmt.Errorf("invalid scan_interval: %w", err)
		}
		c.ScanInterval = d
	}
	return nil
}

// BaseTokenAddresses returns the parsed cycle anchor tokens.
func (c *StrategyConfig) BaseTokenAddresses() []common.Address {
	addrs := make([]common.Address, len(c.BaseTokens))
	for i, t := range c.BaseTokens {
		addrs[i] = common.HexToAddress(t)
	}
	return addrs
}

// DexByName returns the configured DEX with the given name, or nil.
func (c *StrategyConfig) DexByName(name string) *DexConfig {
	for i := range c.SupportedDexes {
		if c.SupportedDexes[i].Name == name {
			return &c.SupportedDexes[i]
		}
	}
	return nil
}

// Validate checks every bound the engine relies on. Violations are
// collected so a broken config surfaces all at once.
func (c *StrategyConfig) Validate() error {
	var errs []string

	if c.MinPathLength < 2 {
		errs = append(errs, "min_path_length must be at least 2")
	}
	if c.MaxPathLength < c.MinPathLength {
		errs = append(errs, "max_path_length must not be less than min_path_length")
	}
	if c.MaxConcurrentPaths <= 0 {
		errs = append(errs, "max_concurrent_paths must be positive")
	}
	if c.MinProfitRate < 0 {
		errs = append(errs, "min_profit_rate must not be negative")
	}
	if c.MaxSlippage < 0 {
		errs = append(errs, "max_slippage must not be negative")
	}
	if c.GasMultiplier <= 0 {
		errs = append(errs, "gas_multiplier must be positive")
	}
	if c.ValidityDuration <= 0 {
		errs = append(errs, "validity_duration must be positive")
	}
	if len(c.BaseTokens) == 0 {
		errs = append(errs, "at least one base token must be configured")
	}
	if len(c.SupportedDexes) == 0 {
		errs = append(errs, "at least one DEX must be configured")
	}

	seen := make(map[string]bool, len(c.SupportedDexes))
	for _, d := range c.SupportedDexes {
		if d.Name == "" {
			errs = append(errs, "DEX name must not be empty")
			continue
		}
		if seen[d.Name] {
			errs = append(errs, fmt.Sprintf("duplicate DEX name %q", d.Name))
		}
		seen[d.Name] = true
		if d.FeeBps > 10000 {
			errs = append(errs, fmt.Sprintf("DEX %q fee exceeds 10000 bps", d.Name))
		}
	}

	if len(errs) > 0 {
		return &types.ConfigurationError{Reason: strings.Join(errs, "; ")}
	}
	return nil
}

// LoadConfig reads a YAML strategy configuration on top of the defaults,
// applies environment overrides, and validates the result.
func LoadConfig(cfgFile string) (*StrategyConfig, error) {
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		cfgFile = filepath.Join(home, ".arbbot.yaml")
	}

	data, err := os.ReadFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	if endpoint := os.Getenv(EnvRPCEndpoint); endpoint != "" {
		cfg.RPCEndpoint = endpoint
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns a mainnet-oriented configuration used as the base
// for file and environment overrides.
func DefaultConfig() *StrategyConfig {
	return &StrategyConfig{
		RPCEndpoint:        "http://localhost:8545",
		MinProfitRate:      0.002,
		MinPathLength:      2,
		MaxPathLength:      4,
		MaxSlippage:        0.01,
		GasMultiplier:      1.2,
		ValidityDuration:   30 * time.Second,
		MaxConcurrentPaths: 10,
		ScanInterval:       10 * time.Second,
		BaseTokens: []string{
			"0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", // WETH
		},
		SupportedDexes: []DexConfig{
			{
				Name:    "UniswapV2",
				Router:  "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D",
				Factory: "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f",
				Type:    "uniswap-v2",
				FeeBps:  30,
				Pools: []string{
					"0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc", // WETH/USDC
					"0xA478c2975Ab1Ea89e8196811F51A7B7Ade33eB11", // WETH/DAI
				},
			},
			{
				Name:    "SushiSwap",
				Router:  "0xd9e1cE17f2641f24aE83637ab66a2cca9C378B9F",
				Factory: "0xC0AEe478e3658e2610c5F7A4A2E1777cE9e4f2Ac",
				Type:    "uniswap-v2",
				FeeBps:  30,
				Pools: []string{
					"0x397FF1542f962076d0BFE58eA045FfA2d347ACa0", // WETH/USDC
					"0xC3D03e4F041Fd4cD388c549Ee2A29a9E5075882f", // WETH/DAI
				},
			},
		},
		RPCRateLimit: 10,
		RPCRateBurst: 50,
	}
}
