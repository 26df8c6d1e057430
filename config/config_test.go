package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelpento.lv/arbbot/types"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestValidateCollectsAllViolations(t *testing.T) {
	cfg := &StrategyConfig{
		MinProfitRate:      -0.1,
		MinPathLength:      1,
		MaxPathLength:      0,
		MaxSlippage:        -1,
		GasMultiplier:      0,
		ValidityDuration:   0,
		MaxConcurrentPaths: 0,
	}

	err := cfg.Validate()
	var cfgErr *types.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)

	// Every violation surfaces in one pass.
	for _, want := range []string{
		"min_path_length",
		"max_path_length",
		"max_concurrent_paths",
		"min_profit_rate",
		"max_slippage",
		"gas_multiplier",
		"validity_duration",
		"base token",
		"DEX",
	} {
		assert.Contains(t, cfgErr.Reason, want)
	}
}

func TestValidateRejectsDuplicateAndBadDexes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SupportedDexes = append(cfg.SupportedDexes,
		DexConfig{Name: "UniswapV2", Type: "uniswap-v2", FeeBps: 30},
		DexConfig{Name: "Broken", Type: "uniswap-v2", FeeBps: 20000},
		DexConfig{Type: "uniswap-v2"},
	)

	err := cfg.Validate()
	var cfgErr *types.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Reason, `duplicate DEX name "UniswapV2"`)
	assert.Contains(t, cfgErr.Reason, `"Broken" fee exceeds`)
	assert.Contains(t, cfgErr.Reason, "name must not be empty")
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "arbbot.yaml")
	data := []byte(`
min_profit_rate: 0.01
max_path_length: 3
scan_interval: 5s
base_tokens:
  - "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
  - "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 0.01, cfg.MinProfitRate)
	assert.Equal(t, 3, cfg.MaxPathLength)
	assert.Equal(t, 5*time.Second, cfg.ScanInterval)
	assert.Len(t, cfg.BaseTokens, 2)

	// Untouched fields keep their defaults.
	assert.Equal(t, 2, cfg.MinPathLength)
	assert.Len(t, cfg.SupportedDexes, 2)
}

func TestLoadConfigEnvOverridesEndpoint(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "arbbot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rpc_endpoint: http://file:8545\n"), 0o644))

	t.Setenv(EnvRPCEndpoint, "ws://env:8546")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "ws://env:8546", cfg.RPCEndpoint)
}

func TestLoadConfigRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "arbbot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("min_path_length: 1\n"), 0o644))

	_, err := LoadConfig(path)
	var cfgErr *types.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDexByName(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg.DexByName("UniswapV2"))
	assert.Equal(t, "uniswap-v2", cfg.DexByName("UniswapV2").Type)
	assert.Nil(t, cfg.DexByName("Unknown"))
}

func TestBaseTokenAddresses(t *testing.T) {
	cfg := DefaultConfig()
	addrs := cfg.BaseTokenAddresses()
	require.Len(t, addrs, 1)
	assert.Equal(t, "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", addrs[0].Hex())
}
