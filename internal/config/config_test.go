package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadServerConfigAppliesDefaults(t *testing.T) {
	path := writeYAML(t, `
grpc:
  endpoint: "localhost:10000"
postgres:
  host: "localhost"
  database: "ghostreaver"
`)
	cfg, err := LoadServerConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Service.HealthPort)
	assert.Equal(t, DefaultChannelSize, cfg.Channels.Size)
	assert.Equal(t, "block", cfg.Backpressure.Strategy)
	assert.Equal(t, "immediate", cfg.Processing.Mode)
	assert.Equal(t, "disable", cfg.Postgres.SSLMode)
	assert.Equal(t, DefaultTickMaxBatch, cfg.Postgres.TickMaxBatch)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "localhost:10000", cfg.Grpc.Endpoint)
}

func TestLoadServerConfigPreservesExplicitValues(t *testing.T) {
	path := writeYAML(t, `
service:
  health_port: 9999
backpressure:
  strategy: "drop_oldest"
processing:
  mode: "batch"
`)
	cfg, err := LoadServerConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Service.HealthPort, "explicit values must not be overwritten by defaults")
	assert.Equal(t, "drop_oldest", cfg.Backpressure.Strategy)
	assert.Equal(t, "batch", cfg.Processing.Mode)
}

func TestLoadServerConfigMissingFile(t *testing.T) {
	_, err := LoadServerConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestPostgresDSNFormat(t *testing.T) {
	cfg := &ServerConfig{}
	cfg.Postgres.Host = "db"
	cfg.Postgres.Port = 5432
	cfg.Postgres.User = "u"
	cfg.Postgres.Password = "p"
	cfg.Postgres.Database = "ghostreaver"
	cfg.Postgres.SSLMode = "disable"

	dsn := cfg.PostgresDSN()
	assert.Contains(t, dsn, "host=db")
	assert.Contains(t, dsn, "dbname=ghostreaver")
	assert.Contains(t, dsn, "sslmode=disable")
}

func TestLoadWalletConfigDefaults(t *testing.T) {
	path := writeYAML(t, `
rpc:
  endpoint: "https://api.mainnet-beta.solana.com"
`)
	cfg, err := LoadWalletConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 5_000, cfg.RPC.TimeoutMs)
	assert.Equal(t, "sandbox", cfg.Executor.Mode)
	assert.Equal(t, 100, cfg.Executor.SlippageBps)
}

func TestLoadBotConfigDefaults(t *testing.T) {
	path := writeYAML(t, `
trade:
  amount: 5000000
`)
	cfg, err := LoadBotConfig(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(5_000_000), cfg.Trade.BuySizeLamports)
	assert.Equal(t, 50.0, cfg.Trade.TakeProfitPct)
	assert.Equal(t, 20.0, cfg.Trade.StopLossPct)
	assert.Equal(t, 20.0, cfg.Trade.PartialTriggerPct)
	assert.Equal(t, 50.0, cfg.Trade.PartialSellPct)
	assert.Equal(t, 10.0, cfg.Trade.TrailingTriggerPct)
	assert.Equal(t, 50.0, cfg.Trade.TrailingSellPct)
	assert.Equal(t, 15.0, cfg.Trade.TrailingStopPct)
	assert.Equal(t, 5.0, cfg.Trade.TrailingDropPct)
	assert.Equal(t, 300, cfg.Trade.MaxHoldSeconds)
	assert.Equal(t, 70.0, cfg.Trade.LiquidityDrainPct)
	assert.Equal(t, DefaultScannerAttempts, cfg.Trade.Attempts)
	assert.Equal(t, 10, cfg.Trade.MaxConcurrentTrades)
	assert.Equal(t, DefaultEnrichMinPeriodMs, cfg.Enrichment.MinPeriodMs)
	assert.Equal(t, DefaultEnrichTxsThreshold, cfg.Enrichment.TxsThreshold)
}

func TestLoadBotConfigPreservesExplicitTradeValues(t *testing.T) {
	path := writeYAML(t, `
trade:
  amount: 1000000
  takeprofit: 80
  partialtrigger: 25
  trailingtrigger: 12
  trailingsell: 40
`)
	cfg, err := LoadBotConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 80.0, cfg.Trade.TakeProfitPct, "explicit values must not be overwritten by defaults")
	assert.Equal(t, 25.0, cfg.Trade.PartialTriggerPct)
	assert.Equal(t, 12.0, cfg.Trade.TrailingTriggerPct)
	assert.Equal(t, 40.0, cfg.Trade.TrailingSellPct)
}
