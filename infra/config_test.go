package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetConfig_defaults(t *testing.T) {
	cfg, err := SetConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HttpConfig.Port)
	assert.Equal(t, 10, cfg.StocksConfig.Count)
	assert.Equal(t, "stock-", cfg.StocksConfig.Prefix)
	assert.Equal(t, int64(1000), cfg.StocksConfig.InitialPrice)
	assert.Equal(t, 500*time.Millisecond, cfg.StocksConfig.MinDelay)
	assert.Equal(t, time.Second, cfg.StocksConfig.MaxDelay)
	assert.Equal(t, time.Duration(0), cfg.StocksConfig.WaitTimeout)
	assert.Equal(t, 3, cfg.StocksConfig.PopularLimit)
	assert.Empty(t, cfg.CentrifugeConfig.Host)
	assert.Equal(t, 50, cfg.CentrifugeConfig.BatchSize)
	assert.Equal(t, 200*time.Millisecond, cfg.CentrifugeConfig.BatchWait)
}

func TestSetConfig_envFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("STOCKS_COUNT=4\nSTOCKS_WAIT_TIMEOUT=2s\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("STOCKS_COUNT")
		os.Unsetenv("STOCKS_WAIT_TIMEOUT")
	})

	cfg, err := SetConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.StocksConfig.Count)
	assert.Equal(t, 2*time.Second, cfg.StocksConfig.WaitTimeout)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			HttpConfig: HttpConfig{Port: 8080},
			StocksConfig: StocksConfig{
				Count:        10,
				InitialPrice: 1000,
				MinDelay:     time.Millisecond,
				MaxDelay:     time.Second,
				MaxDelta:     100,
				PopularLimit: 3,
			},
			CentrifugeConfig: CentrifugeConfig{BatchSize: 10, BatchWait: time.Second},
		}
	}
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "port", mutate: func(c *Config) { c.HttpConfig.Port = 0 }},
		{name: "count", mutate: func(c *Config) { c.StocksConfig.Count = 0 }},
		{name: "price", mutate: func(c *Config) { c.StocksConfig.InitialPrice = -1 }},
		{name: "delays", mutate: func(c *Config) { c.StocksConfig.MaxDelay = 0 }},
		{name: "delta", mutate: func(c *Config) { c.StocksConfig.MaxDelta = -5 }},
		{name: "timeout", mutate: func(c *Config) { c.StocksConfig.WaitTimeout = -time.Second }},
		{name: "popular", mutate: func(c *Config) { c.StocksConfig.PopularLimit = 0 }},
		{name: "batch size", mutate: func(c *Config) { c.CentrifugeConfig.BatchSize = 0 }},
		{name: "batch wait", mutate: func(c *Config) { c.CentrifugeConfig.BatchWait = 0 }},
	}
	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
