package config

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ledgerAddress = "CB270000000000000000000000000000000000000001"

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("LEDGER_ADDRESS", ledgerAddress)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.DatabaseDriver)
	assert.Equal(t, 6532, cfg.APIPort)
	assert.Equal(t, time.Minute, cfg.ReconcileInterval)
	assert.Equal(t, 30*time.Second, cfg.LeaseTTL)
	assert.Equal(t, "cb270000000000000000000000000000000000000001", cfg.LedgerAddress)
	assert.Equal(t, "xcb", cfg.GetNetworkName())
	assert.False(t, cfg.OnChain())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("LEDGER_ADDRESS", ledgerAddress)
	t.Setenv("DATABASE_DRIVER", DriverSQLite)
	t.Setenv("SQLITE_PATH", "/tmp/walletx.db")
	t.Setenv("API_PORT", "8080")
	t.Setenv("RECONCILE_INTERVAL", "15s")
	t.Setenv("NETWORK_ID", "3")
	t.Setenv("DEVELOPMENT", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.DatabaseDriver)
	assert.Equal(t, "/tmp/walletx.db", cfg.SQLitePath)
	assert.Equal(t, 8080, cfg.APIPort)
	assert.Equal(t, 15*time.Second, cfg.ReconcileInterval)
	assert.True(t, cfg.Development)
	assert.Equal(t, "xab", cfg.GetNetworkName())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DatabaseDriver:    DriverSQLite,
			SQLitePath:        ":memory:",
			LedgerAddress:     ledgerAddress,
			ReconcileInterval: time.Minute,
			LeaseTTL:          time.Minute,
			NetworkID:         big.NewInt(1),
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing ledger address", func(c *Config) { c.LedgerAddress = "" }},
		{"malformed ledger address", func(c *Config) { c.LedgerAddress = "cb27" }},
		{"malformed token address", func(c *Config) { c.FundingTokenAddress = "not-an-address" }},
		{"unknown driver", func(c *Config) { c.DatabaseDriver = "mysql" }},
		{"missing postgres host", func(c *Config) { c.DatabaseDriver = DriverPostgres; c.PostgresDB = "walletx" }},
		{"zero reconcile interval", func(c *Config) { c.ReconcileInterval = 0 }},
		{"short lease", func(c *Config) { c.LeaseTTL = time.Millisecond }},
		{"telegram without chat", func(c *Config) { c.TelegramBotToken = "token" }},
		{"negative network", func(c *Config) { c.NetworkID = big.NewInt(-1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
