// Command ghostreaver runs the ingest/decode/trade engine: it
// subscribes to a Yellowstone/Geyser gRPC stream, decodes swap/create
// events for the configured DEX protocols, persists ticks and token
// stats to Postgres, drives the sandbox trade monitor, and serves a
// /health and /metrics HTTP surface alongside it. Grounded on the
// teacher's cmd/server/main.go startup sequence (config load, dial,
// health server, run loop, graceful shutdown on signal).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sqoove/ghostreaver/internal/config"
	"github.com/sqoove/ghostreaver/internal/decoder"
	"github.com/sqoove/ghostreaver/internal/dispatcher"
	"github.com/sqoove/ghostreaver/internal/events"
	"github.com/sqoove/ghostreaver/internal/events/bonk"
	"github.com/sqoove/ghostreaver/internal/events/pumpfun"
	"github.com/sqoove/ghostreaver/internal/events/pumpswap"
	"github.com/sqoove/ghostreaver/internal/events/raydiumammv4"
	"github.com/sqoove/ghostreaver/internal/events/raydiumclmm"
	"github.com/sqoove/ghostreaver/internal/events/raydiumcpmm"
	"github.com/sqoove/ghostreaver/internal/executor"
	"github.com/sqoove/ghostreaver/internal/geyser"
	"github.com/sqoove/ghostreaver/internal/health"
	"github.com/sqoove/ghostreaver/internal/logging"
	"github.com/sqoove/ghostreaver/internal/metrics"
	"github.com/sqoove/ghostreaver/internal/processor"
	"github.com/sqoove/ghostreaver/internal/scanner"
	"github.com/sqoove/ghostreaver/internal/storage"
	"github.com/sqoove/ghostreaver/internal/stream"
	"github.com/sqoove/ghostreaver/internal/trade"
	"github.com/sqoove/ghostreaver/internal/walletrpc"
	"github.com/sqoove/ghostreaver/internal/yellowstone"
)

func main() {
	serverPath := flag.String("server-config", "config/server.yaml", "path to server.yaml")
	walletPath := flag.String("wallet-config", "config/wallet.yaml", "path to wallet.yaml")
	botPath := flag.String("bot-config", "config/bot.yaml", "path to bot.yaml")
	dropSchema := flag.Bool("drop-schema", false, "drop and recreate the schema at startup")
	exportCSV := flag.String("export-csv", "", "export all tables to CSV files under this directory on shutdown")
	flag.Parse()

	if err := run(*serverPath, *walletPath, *botPath, *dropSchema, *exportCSV); err != nil {
		fmt.Fprintln(os.Stderr, "ghostreaver:", err)
		os.Exit(1)
	}
}

func run(serverPath, walletPath, botPath string, dropSchema bool, exportCSVPath string) error {
	serverCfg, err := config.LoadServerConfig(serverPath)
	if err != nil {
		return err
	}
	walletCfg, err := config.LoadWalletConfig(walletPath)
	if err != nil {
		return err
	}
	botCfg, err := config.LoadBotConfig(botPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(serverCfg.Logging.Level, serverCfg.Logging.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rpcClient := walletrpc.New(walletCfg.RPC.Endpoint, walletCfg.RPCTimeout(), logger)
	if err := rpcClient.GetHealth(ctx); err != nil {
		logger.Warn("rpc endpoint unhealthy at startup, continuing in ingest-only mode", zap.Error(err))
	}

	pools, err := storage.NewPools(ctx, serverCfg.PostgresDSN(),
		serverCfg.Postgres.ReadPoolSize, serverCfg.Postgres.WritePoolSize, serverCfg.Postgres.TickPoolSize)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pools.Close()

	if err := storage.Bootstrap(ctx, pools.Write, logger, dropSchema); err != nil {
		return fmt.Errorf("bootstrap schema: %w", err)
	}

	caches := storage.NewCaches(serverCfg.Postgres.TokenHotCacheCap)
	tickWriter := storage.NewTickWriter(pools.Tick, logger,
		serverCfg.Postgres.TickMaxBatch, serverCfg.Postgres.TickFlushMs, serverCfg.Channels.LowLatencySize)
	tokenWriter := storage.NewTokenWriter(pools.Write, logger,
		serverCfg.Postgres.TokenMaxBatch, serverCfg.Postgres.TokenFlushMs, serverCfg.Channels.LowBackpressureSize)
	go tickWriter.Run(ctx)
	go tokenWriter.Run(ctx)

	// The default registerer is the one promhttp.Handler() serves on
	// the health server's /metrics route.
	agg := metrics.New(logger, prometheus.DefaultRegisterer, serverCfg.Channels.MetricsCap)
	go agg.Run(ctx, time.Duration(serverCfg.Metrics.PrintIntervalSeconds)*time.Second)

	d := buildDispatcher(serverCfg)

	grpcClient, err := geyser.Dial(serverCfg.Grpc.Endpoint, serverCfg.Grpc.XToken, serverCfg.Grpc.XToken != "")
	if err != nil {
		return fmt.Errorf("dial geyser: %w", err)
	}
	defer grpcClient.Close()

	botWallets := parseBotWallets(botCfg.BotWallets)
	handler := stream.New(grpcClient, d, logger, serverCfg.Channels.Size, stream.Options{
		Strategy:      stream.ParseStrategy(serverCfg.Backpressure.Strategy),
		RetryAttempts: serverCfg.Backpressure.RetryAttempts,
		RetryWait:     time.Duration(serverCfg.Backpressure.RetryWaitMs) * time.Millisecond,
		PingInterval:  serverCfg.PingInterval(),
		PostProcess: decoder.PostProcessOptions{
			BotWallets:        botWallets,
			SlowThresholdMs:   serverCfg.Processing.SlowThresholdMs,
			SlowPostProcessMs: serverCfg.Processing.SlowPostProcessMs,
			Logger:            logger,
		},
	})

	sc := scanner.New(rpcClient, caches, tickWriter, logger,
		botCfg.Scanner.Attempts, botCfg.Scanner.BaseDelayMs, int64(botCfg.Enrichment.MinPeriodMs))

	var exec executor.Executor = executor.NewSandbox()
	bus := trade.NewCloseBus()
	stores := trade.Stores{
		Locks:  storage.NewLockStore(pools.Write),
		Trades: storage.NewTradeStore(pools.Write),
		Market: storage.NewMarketStore(pools.Write),
		Sigs:   storage.NewSignatureLog(pools.Write),
	}
	walletStore := storage.NewWalletStore(pools.Write)
	if err := walletStore.SetBaseline(ctx, walletCfg.Wallet.PublicKey, 0); err != nil {
		logger.Warn("wallet baseline write failed", zap.Error(err))
	}
	monitor := trade.NewMonitor(trade.Thresholds{
		BuySizeLamports:     botCfg.Trade.BuySizeLamports,
		StopLossPct:         botCfg.Trade.StopLossPct,
		TakeProfitPct:       botCfg.Trade.TakeProfitPct,
		PartialTriggerPct:   botCfg.Trade.PartialTriggerPct,
		PartialSellPct:      botCfg.Trade.PartialSellPct,
		TrailingTriggerPct:  botCfg.Trade.TrailingTriggerPct,
		TrailingSellPct:     botCfg.Trade.TrailingSellPct,
		TrailingStopPct:     botCfg.Trade.TrailingStopPct,
		TrailingDropPct:     botCfg.Trade.TrailingDropPct,
		MaxHoldSeconds:      botCfg.Trade.MaxHoldSeconds,
		LiquidityDrainPct:   botCfg.Trade.LiquidityDrainPct,
		MaxConcurrentTrades: botCfg.Trade.MaxConcurrentTrades,
	}, caches, exec, bus, stores, logger)

	go logCloses(ctx, bus, logger)
	go monitor.WatchCloseCmds(ctx)

	healthSrv := health.New(serverCfg.Service.HealthPort, agg, handler.DroppedTotal)
	healthSrv.Start()
	defer healthSrv.Stop(context.Background())

	pl := &pipeline{
		caches: caches, ticks: tickWriter, tokens: tokenWriter,
		scanner: sc, monitor: monitor, botCfg: botCfg, logger: logger,
		enrichCounts: make(map[string]int),
		poolReaders:  make(map[string]scanner.PoolReader),
	}
	callback := func(ctx context.Context, ev events.UnifiedEvent) error {
		agg.IncProcess(ev)
		pl.handle(ctx, ev)
		return nil
	}

	go func() {
		logger.Info("starting subscription", zap.String("endpoint", serverCfg.Grpc.Endpoint))
		if err := handler.Run(ctx, buildSubscribeRequest(serverCfg, d)); err != nil {
			logger.Error("subscription ended", zap.Error(err))
			stop()
		}
	}()

	if serverCfg.Processing.Mode == "batch" {
		bp := &processor.BatchProcessor{Capacity: serverCfg.Processing.BatchCapacity, TimeoutMs: serverCfg.Processing.BatchTimeoutMs}
		go bp.Run(ctx, handler.Out, logger, func(ctx context.Context, batch []events.UnifiedEvent) error {
			for _, ev := range batch {
				callback(ctx, ev)
			}
			return nil
		})
	} else {
		go processor.Immediate(ctx, handler.Out, int64(serverCfg.Processing.MaxConcurrency), logger, callback)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	if exportCSVPath != "" {
		counts, err := storage.ExportAllCSV(context.Background(), pools.Read, exportCSVPath)
		if err != nil {
			logger.Error("csv export failed", zap.Error(err))
		} else {
			logger.Info("csv export complete", zap.Any("rows_per_table", counts))
		}
	}
	return nil
}

func buildDispatcher(cfg *config.ServerConfig) *dispatcher.Dispatcher {
	all := map[string]events.ProtocolParser{
		"bonk":           bonk.New(),
		"pumpfun":        pumpfun.New(),
		"pumpswap":       pumpswap.New(),
		"raydium_amm_v4": raydiumammv4.New(),
		"raydium_clmm":   raydiumclmm.New(),
		"raydium_cpmm":   raydiumcpmm.New(),
	}
	var parsers []events.ProtocolParser
	if len(cfg.Protocols.Enabled) == 0 {
		for _, p := range all {
			parsers = append(parsers, p)
		}
	} else {
		for _, name := range cfg.Protocols.Enabled {
			if p, ok := all[name]; ok {
				parsers = append(parsers, p)
			}
		}
	}

	var filter *dispatcher.EventTypeFilter
	if len(cfg.Protocols.EventTypes) > 0 {
		types := make([]events.EventType, 0, len(cfg.Protocols.EventTypes))
		for _, name := range cfg.Protocols.EventTypes {
			types = append(types, parseEventType(name))
		}
		filter = dispatcher.NewEventTypeFilter(types...)
	}
	return dispatcher.New(filter, parsers...)
}

func parseEventType(name string) events.EventType {
	switch name {
	case "create":
		return events.EventTypeCreate
	case "trade":
		return events.EventTypeTrade
	case "buy":
		return events.EventTypeBuy
	case "sell":
		return events.EventTypeSell
	case "pool":
		return events.EventTypePool
	default:
		return events.EventTypeUnknown
	}
}

func buildSubscribeRequest(cfg *config.ServerConfig, d *dispatcher.Dispatcher) *yellowstone.SubscribeRequest {
	// The transaction filter only excludes failed transactions: it names
	// no program ids and no account filter is set, so the node ships
	// every transaction and the dispatcher discards those for programs it
	// does not handle. d is not read here.
	return &yellowstone.SubscribeRequest{
		Transactions: map[string]yellowstone.TransactionFilter{
			"ghostreaver": {Failed: boolPtr(false)},
		},
		BlockMeta:  map[string]struct{}{"ghostreaver": {}},
		Commitment: yellowstone.CommitmentConfirmed,
	}
}

func boolPtr(b bool) *bool { return &b }

func parseBotWallets(raw []string) map[solana.PublicKey]struct{} {
	out := make(map[solana.PublicKey]struct{}, len(raw))
	for _, s := range raw {
		pk, err := solana.PublicKeyFromBase58(s)
		if err != nil {
			continue
		}
		out[pk] = struct{}{}
	}
	return out
}

// pipeline turns a decoded trade event into a tick write, a token stats
// update, a trade-monitor tick, and (once a mint has accumulated enough
// trades) an RPC-backed pool enrichment, per spec §4.11-§4.13.
type pipeline struct {
	caches  *storage.Caches
	ticks   *storage.TickWriter
	tokens  *storage.TokenWriter
	scanner *scanner.Scanner
	monitor *trade.Monitor
	botCfg  *config.BotConfig
	logger  *zap.Logger

	mu           sync.Mutex
	enrichCounts map[string]int
	poolReaders  map[string]scanner.PoolReader
}

func (p *pipeline) handle(ctx context.Context, ev events.UnifiedEvent) {
	meta := ev.Metadata()
	if meta.SwapData == nil || meta.SwapData.IsZero() {
		return
	}
	mint := tradeMint(ev)
	if mint.IsZero() {
		return
	}
	mintStr := mint.String()
	price := derivedPrice(meta)
	second := meta.BlockTime

	if p.caches.ShouldWriteTick(mintStr, second) {
		p.ticks.Enqueue(storage.TickRow{
			Mint: mintStr, Protocol: meta.Protocol.String(),
			PriceBase: price, Slot: meta.Slot, TickSecond: second,
		})
	}

	row := storage.TokenRow{
		Mint: mintStr, Program: meta.Protocol.String(),
		Signature: meta.Signature, Slot: meta.Slot, BlockTimeMs: meta.BlockTimeMs,
		Price: price, TxsInc: 1, ServTimeMs: storage.NowMs(),
	}
	if provider, ok := ev.(events.SwapContextProvider); ok {
		if swapCtx, ok := provider.SwapContext(); ok {
			row.Creator = swapCtx.User.String()
			row.BaseVault = swapCtx.ToVault.String()
			row.QuoteVault = swapCtx.FromVault.String()
		}
	}
	p.caches.MarkTokenKnown(mintStr)
	p.tokens.Enqueue(row)

	if pos, open := p.monitor.Position(mintStr); open {
		p.monitor.OnTick(ctx, mintStr, price, pos.EntryReserveB, pos.EntryReserveQ)
	} else if meta.EventType == events.EventTypeBuy && !meta.IsBot && !meta.IsDevCreateTokenTrade {
		// Autonomous entries size reserves off the triggering swap's own
		// amounts as a stand-in for a fresh pool query -- good enough to
		// seed the constant-product sandbox fill, refined by the next
		// scanner enrichment once one fires.
		baseReserve := float64(meta.SwapData.ToAmount) * 50
		quoteReserve := float64(meta.SwapData.FromAmount) * 50
		go func() {
			if _, err := p.monitor.Open(context.Background(), mintStr, "", meta.Protocol.String(), baseReserve, quoteReserve); err != nil && err != trade.ErrAlreadyOpen {
				p.logger.Warn("trade open failed", zap.String("mint", mintStr), zap.Error(err))
			}
		}()
	}

	if reader := p.poolReaderFor(mintStr, ev); reader != nil && p.shouldEnrich(mintStr) {
		go p.scanner.Enrich(context.Background(), scanner.Request{Mint: mintStr, Protocol: meta.Protocol.String(), Reader: reader}, meta.Slot, second)
	}
}

// poolReaderFor builds (and caches) the pool reader for mint out of the
// vault accounts the decode-time SwapContext already resolved, so the
// scanner's enrichment call reuses accounts the decoder saw rather than
// looking them up separately. Decimals default to the SPL norm (9 for
// the SOL leg, 6 for the token leg) since SwapContext doesn't carry
// decimals; a mint with non-standard decimals gets an approximate
// price until the tokens table's enrichment pass corrects it.
func (p *pipeline) poolReaderFor(mint string, ev events.UnifiedEvent) scanner.PoolReader {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r, ok := p.poolReaders[mint]; ok {
		return r
	}
	provider, ok := ev.(events.SwapContextProvider)
	if !ok {
		return nil
	}
	ctx, ok := provider.SwapContext()
	if !ok || ctx.FromVault.IsZero() || ctx.ToVault.IsZero() {
		return nil
	}
	reader := scanner.VaultPairReader{BaseVault: ctx.ToVault, QuoteVault: ctx.FromVault, BaseDecimals: 6, QuoteDecimals: 9}
	p.poolReaders[mint] = reader
	return reader
}

func (p *pipeline) shouldEnrich(mint string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enrichCounts[mint]++
	if p.enrichCounts[mint] >= p.botCfg.Enrichment.TxsThreshold {
		p.enrichCounts[mint] = 0
		return true
	}
	return false
}

func derivedPrice(meta *events.EventMetadata) float64 {
	if meta.SwapData == nil || meta.SwapData.FromAmount == 0 {
		return 0
	}
	return float64(meta.SwapData.ToAmount) / float64(meta.SwapData.FromAmount)
}

func tradeMint(ev events.UnifiedEvent) (pk solana.PublicKey) {
	meta := ev.Metadata()
	if meta.SwapData == nil {
		return pk
	}
	if !meta.SwapData.ToMint.IsZero() {
		return meta.SwapData.ToMint
	}
	return meta.SwapData.FromMint
}

func logCloses(ctx context.Context, bus *trade.CloseBus, logger *zap.Logger) {
	ch, unsubscribe := bus.Subscribe()
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ch:
			logger.Info("position closed",
				zap.String("mint", ev.Mint), zap.String("reason", ev.Reason.String()),
				zap.Float64("exit_price", ev.ExitPrice), zap.Float64("pnl_pct", ev.PnLPercent))
		}
	}
}
