// Package config loads the three YAML configuration files the engine is
// split across -- server.yaml (stream/storage/observability), wallet.yaml
// (RPC/executor credentials) and bot.yaml (trade-strategy parameters) --
// following the single Config-struct-plus-LoadConfig pattern the teacher
// uses in stellar-postgres-ingester/go/config.go, just split three ways
// because this engine's three concerns (ingest, custody, strategy) are
// deployed and rotated independently.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values recovered from original_source/src/globals/constants.rs.
const (
	DefaultChannelSize        = 100_000
	DefaultHighPriorityChSize = 100_000
	DefaultLowBackpressureCh  = 200_000
	DefaultLowLatencyChSize   = 5_000
	DefaultMetricsChannelCap  = 100_000

	DefaultTickMaxBatch     = 50_000
	DefaultTickFlushMs      = 20
	DefaultTokenFlushMs     = 5
	DefaultTokenMaxBatch    = 8_000
	DefaultTokenHotCacheCap = 50_000

	DefaultEnrichMinPeriodMs    = 2_000
	DefaultEnrichTxsThreshold   = 3
	DefaultScannerAttempts      = 5
	DefaultScannerBaseDelayMs   = 60
	DefaultScannerCallTimeoutMs = 900

	DefaultProcMaxConcurrency   = 256
	DefaultSlowProcessingMs     = 20.0
	DefaultSlowPostProcessMs    = 10.0
	DefaultRetryAttempts        = 3
	DefaultRetryWaitMs          = 1
)

// ServerConfig covers the ingest pipeline: the Yellowstone/Geyser gRPC
// source, the protocol/event-type filter, channel sizing, the storage
// target, and the ambient HTTP health/metrics surface.
type ServerConfig struct {
	Service struct {
		Name       string `yaml:"name"`
		HealthPort int    `yaml:"health_port"`
	} `yaml:"service"`

	Grpc struct {
		Endpoint          string `yaml:"endpoint"`
		XToken            string `yaml:"x_token"`
		ConnectTimeoutMs  int    `yaml:"connect_timeout_ms"`
		PingIntervalMs    int    `yaml:"ping_interval_ms"`
	} `yaml:"grpc"`

	Protocols struct {
		Enabled []string `yaml:"enabled"` // e.g. "bonk","pumpfun","pumpswap","raydium_amm_v4","raydium_clmm","raydium_cpmm"
		EventTypes []string `yaml:"event_types"` // empty = all
	} `yaml:"protocols"`

	Channels struct {
		Size               int `yaml:"size"`
		HighPrioritySize   int `yaml:"high_priority_size"`
		LowBackpressureSize int `yaml:"low_backpressure_size"`
		LowLatencySize     int `yaml:"low_latency_size"`
		MetricsCap         int `yaml:"metrics_capacity"`
	} `yaml:"channels"`

	Backpressure struct {
		Strategy string `yaml:"strategy"` // "block" | "drop" | "retry"
		RetryAttempts int `yaml:"retry_attempts"`
		RetryWaitMs   int `yaml:"retry_wait_ms"`
	} `yaml:"backpressure"`

	Processing struct {
		Mode                string `yaml:"mode"` // "immediate" | "batch"
		MaxConcurrency      int    `yaml:"max_concurrency"`
		BatchCapacity       int    `yaml:"batch_capacity"`
		BatchTimeoutMs      int    `yaml:"batch_timeout_ms"`
		SlowThresholdMs     int64  `yaml:"slow_threshold_ms"`
		SlowPostProcessMs   int64  `yaml:"slow_post_process_ms"`
	} `yaml:"processing"`

	Postgres struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Database string `yaml:"database"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		SSLMode  string `yaml:"sslmode"`

		ReadPoolSize  int `yaml:"read_pool_size"`
		WritePoolSize int `yaml:"write_pool_size"`
		TickPoolSize  int `yaml:"tick_pool_size"`

		TickMaxBatch     int `yaml:"tick_max_batch"`
		TickFlushMs      int `yaml:"tick_flush_ms"`
		TokenFlushMs     int `yaml:"token_flush_ms"`
		TokenMaxBatch    int `yaml:"token_max_batch"`
		TokenHotCacheCap int `yaml:"token_hot_cache_cap"`
	} `yaml:"postgres"`

	Metrics struct {
		PrintIntervalSeconds int  `yaml:"print_interval_seconds"`
		PrometheusEnabled    bool `yaml:"prometheus_enabled"`
	} `yaml:"metrics"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// LoadServerConfig reads and defaults server.yaml.
func LoadServerConfig(path string) (*ServerConfig, error) {
	var cfg ServerConfig
	if err := readYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Service.HealthPort == 0 {
		cfg.Service.HealthPort = 8088
	}
	if cfg.Grpc.ConnectTimeoutMs == 0 {
		cfg.Grpc.ConnectTimeoutMs = 10_000
	}
	if cfg.Grpc.PingIntervalMs == 0 {
		cfg.Grpc.PingIntervalMs = 15_000
	}
	if cfg.Channels.Size == 0 {
		cfg.Channels.Size = DefaultChannelSize
	}
	if cfg.Channels.HighPrioritySize == 0 {
		cfg.Channels.HighPrioritySize = DefaultHighPriorityChSize
	}
	if cfg.Channels.LowBackpressureSize == 0 {
		cfg.Channels.LowBackpressureSize = DefaultLowBackpressureCh
	}
	if cfg.Channels.LowLatencySize == 0 {
		cfg.Channels.LowLatencySize = DefaultLowLatencyChSize
	}
	if cfg.Channels.MetricsCap == 0 {
		cfg.Channels.MetricsCap = DefaultMetricsChannelCap
	}
	if cfg.Backpressure.Strategy == "" {
		cfg.Backpressure.Strategy = "block"
	}
	if cfg.Backpressure.RetryAttempts == 0 {
		cfg.Backpressure.RetryAttempts = DefaultRetryAttempts
	}
	if cfg.Backpressure.RetryWaitMs == 0 {
		cfg.Backpressure.RetryWaitMs = DefaultRetryWaitMs
	}
	if cfg.Processing.Mode == "" {
		cfg.Processing.Mode = "immediate"
	}
	if cfg.Processing.MaxConcurrency == 0 {
		cfg.Processing.MaxConcurrency = DefaultProcMaxConcurrency
	}
	if cfg.Processing.SlowThresholdMs == 0 {
		cfg.Processing.SlowThresholdMs = int64(DefaultSlowProcessingMs)
	}
	if cfg.Processing.SlowPostProcessMs == 0 {
		cfg.Processing.SlowPostProcessMs = int64(DefaultSlowPostProcessMs)
	}
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = "disable"
	}
	if cfg.Postgres.ReadPoolSize == 0 {
		cfg.Postgres.ReadPoolSize = 48
	}
	if cfg.Postgres.WritePoolSize == 0 {
		cfg.Postgres.WritePoolSize = 24
	}
	if cfg.Postgres.TickPoolSize == 0 {
		cfg.Postgres.TickPoolSize = 12
	}
	if cfg.Postgres.TickMaxBatch == 0 {
		cfg.Postgres.TickMaxBatch = DefaultTickMaxBatch
	}
	if cfg.Postgres.TickFlushMs == 0 {
		cfg.Postgres.TickFlushMs = DefaultTickFlushMs
	}
	if cfg.Postgres.TokenFlushMs == 0 {
		cfg.Postgres.TokenFlushMs = DefaultTokenFlushMs
	}
	if cfg.Postgres.TokenMaxBatch == 0 {
		cfg.Postgres.TokenMaxBatch = DefaultTokenMaxBatch
	}
	if cfg.Postgres.TokenHotCacheCap == 0 {
		cfg.Postgres.TokenHotCacheCap = DefaultTokenHotCacheCap
	}
	if cfg.Metrics.PrintIntervalSeconds == 0 {
		cfg.Metrics.PrintIntervalSeconds = 10
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	return &cfg, nil
}

// ConnectTimeout and PingInterval as time.Duration convenience getters.
func (c *ServerConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.Grpc.ConnectTimeoutMs) * time.Millisecond
}

func (c *ServerConfig) PingInterval() time.Duration {
	return time.Duration(c.Grpc.PingIntervalMs) * time.Millisecond
}

// PostgresDSN builds the libpq connection string pgx/v5 consumes.
func (c *ServerConfig) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Postgres.Host, c.Postgres.Port, c.Postgres.User, c.Postgres.Password,
		c.Postgres.Database, c.Postgres.SSLMode,
	)
}

// WalletConfig covers the wallet/executor/RPC collaborator wiring.
type WalletConfig struct {
	RPC struct {
		Endpoint       string `yaml:"endpoint"`
		WebsocketURL   string `yaml:"websocket_url"`
		TimeoutMs      int    `yaml:"timeout_ms"`
	} `yaml:"rpc"`

	Wallet struct {
		PublicKey      string `yaml:"public_key"`
		PrivateKeyPath string `yaml:"private_key_path"`
	} `yaml:"wallet"`

	Executor struct {
		Mode             string `yaml:"mode"` // "sandbox" | "live"
		PriorityFeeLamports uint64 `yaml:"priority_fee_lamports"`
		SlippageBps      int    `yaml:"slippage_bps"`
	} `yaml:"executor"`
}

// LoadWalletConfig reads and defaults wallet.yaml.
func LoadWalletConfig(path string) (*WalletConfig, error) {
	var cfg WalletConfig
	if err := readYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.RPC.TimeoutMs == 0 {
		cfg.RPC.TimeoutMs = 5_000
	}
	if cfg.Executor.Mode == "" {
		cfg.Executor.Mode = "sandbox"
	}
	if cfg.Executor.SlippageBps == 0 {
		cfg.Executor.SlippageBps = 100
	}
	return &cfg, nil
}

func (c *WalletConfig) RPCTimeout() time.Duration {
	return time.Duration(c.RPC.TimeoutMs) * time.Millisecond
}

// BotConfig covers trade-strategy parameters and the enrichment scanner.
type BotConfig struct {
	// Trade mirrors bot.yaml's orders{} block (spec §6): partialtrigger/
	// takeprofit and trailingstop/trailingdrop are kept as distinct
	// knobs rather than collapsed into one another, since the FSM's
	// trailing-sell ladder (trailingtrigger/trailingsell) and its
	// terminal take-profit close are reachable independently.
	Trade struct {
		BuySizeLamports     uint64  `yaml:"amount"`
		StopLossPct         float64 `yaml:"stoploss"`
		TakeProfitPct       float64 `yaml:"takeprofit"`
		PartialTriggerPct   float64 `yaml:"partialtrigger"`
		PartialSellPct      float64 `yaml:"partialsell"`
		TrailingTriggerPct  float64 `yaml:"trailingtrigger"`
		TrailingSellPct     float64 `yaml:"trailingsell"`
		TrailingStopPct     float64 `yaml:"trailingstop"`
		TrailingDropPct     float64 `yaml:"trailingdrop"`
		MaxHoldSeconds      int     `yaml:"timeclose"`
		LiquidityDrainPct   float64 `yaml:"dropmax"`
		Attempts            int     `yaml:"attempts"`
		MaxConcurrentTrades int     `yaml:"max_concurrent_trades"`
	} `yaml:"trade"`

	Enrichment struct {
		MinPeriodMs   int `yaml:"min_period_ms"`
		TxsThreshold  int `yaml:"txs_threshold"`
	} `yaml:"enrichment"`

	Scanner struct {
		Attempts       int `yaml:"attempts"`
		BaseDelayMs    int `yaml:"base_delay_ms"`
		CallTimeoutMs  int `yaml:"call_timeout_ms"`
	} `yaml:"scanner"`

	BotWallets []string `yaml:"bot_wallets"`
}

// LoadBotConfig reads and defaults bot.yaml.
func LoadBotConfig(path string) (*BotConfig, error) {
	var cfg BotConfig
	if err := readYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Trade.TakeProfitPct == 0 {
		cfg.Trade.TakeProfitPct = 50.0
	}
	if cfg.Trade.StopLossPct == 0 {
		cfg.Trade.StopLossPct = 20.0
	}
	if cfg.Trade.PartialTriggerPct == 0 {
		cfg.Trade.PartialTriggerPct = 20.0
	}
	if cfg.Trade.PartialSellPct == 0 {
		cfg.Trade.PartialSellPct = 50.0
	}
	if cfg.Trade.TrailingTriggerPct == 0 {
		cfg.Trade.TrailingTriggerPct = 10.0
	}
	if cfg.Trade.TrailingSellPct == 0 {
		cfg.Trade.TrailingSellPct = 50.0
	}
	if cfg.Trade.TrailingStopPct == 0 {
		cfg.Trade.TrailingStopPct = 15.0
	}
	if cfg.Trade.TrailingDropPct == 0 {
		cfg.Trade.TrailingDropPct = 5.0
	}
	if cfg.Trade.MaxHoldSeconds == 0 {
		cfg.Trade.MaxHoldSeconds = 300
	}
	if cfg.Trade.LiquidityDrainPct == 0 {
		cfg.Trade.LiquidityDrainPct = 70.0
	}
	if cfg.Trade.Attempts == 0 {
		cfg.Trade.Attempts = DefaultScannerAttempts
	}
	if cfg.Trade.MaxConcurrentTrades == 0 {
		cfg.Trade.MaxConcurrentTrades = 10
	}
	if cfg.Enrichment.MinPeriodMs == 0 {
		cfg.Enrichment.MinPeriodMs = DefaultEnrichMinPeriodMs
	}
	if cfg.Enrichment.TxsThreshold == 0 {
		cfg.Enrichment.TxsThreshold = DefaultEnrichTxsThreshold
	}
	if cfg.Scanner.Attempts == 0 {
		cfg.Scanner.Attempts = DefaultScannerAttempts
	}
	if cfg.Scanner.BaseDelayMs == 0 {
		cfg.Scanner.BaseDelayMs = DefaultScannerBaseDelayMs
	}
	if cfg.Scanner.CallTimeoutMs == 0 {
		cfg.Scanner.CallTimeoutMs = DefaultScannerCallTimeoutMs
	}
	return &cfg, nil
}

func readYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}
