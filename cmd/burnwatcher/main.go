package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/ashfall-labs/burnwatcher/internal/burner"
	"github.com/ashfall-labs/burnwatcher/internal/chain"
	"github.com/ashfall-labs/burnwatcher/internal/ledger"
	"github.com/ashfall-labs/burnwatcher/pkg/common/config"
	"github.com/ashfall-labs/burnwatcher/pkg/common/logger"
	"github.com/ashfall-labs/burnwatcher/pkg/events"
	"github.com/ashfall-labs/burnwatcher/pkg/infra"
	"github.com/ashfall-labs/burnwatcher/pkg/kvstore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const version = "0.1.0"

// --- CLI definitions --- //

type CLI struct {
	Watch WatchCmd `cmd:"" default:"1" help:"Watch transfers and execute burns."`
	Serve ServeCmd `cmd:"" help:"Serve the read-only burn API without the watcher."`
}

type WatchCmd struct {
	ConfigPath string `help:"Path to config file." default:"configs/config.yaml" name:"config"`
	Debug      bool   `help:"Enable debug logs." name:"debug"`
}

type ServeCmd struct {
	ConfigPath string `help:"Path to config file." default:"configs/config.yaml" name:"config"`
	Debug      bool   `help:"Enable debug logs." name:"debug"`
}

func (c *WatchCmd) Run() error {
	runWatcher(c.ConfigPath, c.Debug)
	return nil
}

func (c *ServeCmd) Run() error {
	runServe(c.ConfigPath, c.Debug)
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("burnwatcher"),
		kong.Description("Token burn watcher: event-triggered burn executor and ledger."),
		kong.UsageOnError(),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

func initLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger.Init(&logger.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	})
}

func runWatcher(configPath string, debug bool) {
	initLogging(debug)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("Load config failed", "err", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", "err", err)
	}
	logger.Info("Config loaded")

	kv, err := kvstore.NewFromConfig(cfg.KVStore)
	if err != nil {
		logger.Fatal("Open KV store failed", "err", err)
	}
	store := ledger.NewStore(kv, cfg.Ledger.Retention)
	aggregator := ledger.NewAggregator(store, cfg.Stats.Supply)

	emitter := setupEmitter(cfg)

	dialCtx, cancelDial := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelDial()

	clients, err := chain.Dial(dialCtx, cfg.Watcher.SubscribeEndpoint, cfg.Watcher.QueryEndpoint)
	if err != nil {
		logger.Fatal("Connect to node failed", "err", err)
	}

	chainID, err := clients.Query.ChainID(dialCtx)
	if err != nil {
		logger.Fatal("Query chain ID failed", "err", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.Watcher.SigningKey, "0x"))
	if err != nil {
		logger.Fatal("Parse signing key failed", "err", err)
	}

	token := common.HexToAddress(cfg.Watcher.TokenAddress)
	sink := common.HexToAddress(cfg.Watcher.BurnSinkAddress)
	recipient := common.HexToAddress(cfg.Watcher.RecipientAddress)

	submitter := chain.NewSubmitter(clients.Query, chain.SubmitterConfig{
		Token:          token,
		Sink:           sink,
		Key:            key,
		ChainID:        chainID,
		ConfirmTimeout: cfg.Watcher.ConfirmTimeout,
	})
	reader := chain.NewTokenReader(clients.Query, token)

	checkTokenDecimals(dialCtx, reader, cfg.Watcher.Decimals())

	coordinator := burner.NewCoordinator(submitter, store, emitter, burner.CoordinatorConfig{
		TokenDecimals: cfg.Watcher.Decimals(),
		MinAmount:     cfg.Watcher.MinAmount,
		SettleDelay:   cfg.Watcher.SettleDelay(),
		SinkAddress:   sink.Hex(),
	})

	if cfg.Watcher.StartupSweep {
		sweepCtx, cancelSweep := context.WithTimeout(context.Background(), 5*time.Minute)
		if err := burner.StartupSweep(sweepCtx, reader, coordinator, recipient); err != nil {
			logger.Warn("Startup sweep failed", "err", err)
		}
		cancelSweep()
	}

	monitor := chain.NewMonitor(clients.Subscribe, token, cfg.Watcher.RecipientAddress,
		func(ctx context.Context, transfer chain.PendingTransfer) {
			_ = coordinator.Handle(ctx, transfer)
		})
	monitor.Start()

	handler := NewBurnHTTPHandler(version, store, aggregator, cfg.API.DebugEndpoints)
	server := startHTTPServer(cfg.API.Port, handler)

	logger.Info("Burn watcher is running... Press Ctrl+C to stop",
		"token", token.Hex(),
		"recipient", recipient.Hex(),
	)
	waitForShutdown()

	monitor.Stop()
	shutdownHTTPServer(server)
	clients.Close()
	if emitter != nil {
		emitter.Close()
	}
	if err := store.Close(); err != nil {
		logger.Error("Close ledger failed", "err", err)
	}
	logger.Info("Burn watcher stopped")
}

func runServe(configPath string, debug bool) {
	initLogging(debug)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("Load config failed", "err", err)
	}
	if err := cfg.ValidateServe(); err != nil {
		logger.Fatal("Invalid configuration", "err", err)
	}

	kv, err := kvstore.NewFromConfig(cfg.KVStore)
	if err != nil {
		logger.Fatal("Open KV store failed", "err", err)
	}
	store := ledger.NewStore(kv, cfg.Ledger.Retention)
	aggregator := ledger.NewAggregator(store, cfg.Stats.Supply)

	handler := NewBurnHTTPHandler(version, store, aggregator, cfg.API.DebugEndpoints)
	server := startHTTPServer(cfg.API.Port, handler)

	logger.Info("Burn API is running... Press Ctrl+C to stop")
	waitForShutdown()

	shutdownHTTPServer(server)
	if err := store.Close(); err != nil {
		logger.Error("Close ledger failed", "err", err)
	}
}

// setupEmitter wires the optional NATS JetStream publisher for confirmed
// burns. Returns nil when disabled.
func setupEmitter(cfg *config.Config) events.Emitter {
	if !cfg.NATS.Enabled {
		return nil
	}

	nc, err := infra.GetNATSConnection(cfg.NATS)
	if err != nil {
		logger.Fatal("NATS connect failed", "err", err)
	}

	manager, err := infra.NewNATSMessageQueueManager(
		cfg.NATS.SubjectPrefix,
		[]string{cfg.NATS.SubjectPrefix + ".>"},
		nc,
	)
	if err != nil {
		logger.Fatal("NATS stream setup failed", "err", err)
	}

	queue, err := manager.NewMessageQueue("burns")
	if err != nil {
		logger.Fatal("NATS consumer setup failed", "err", err)
	}

	return events.NewEmitter(queue, cfg.NATS.SubjectPrefix+".burns.confirmed")
}

// checkTokenDecimals compares configured decimals against the contract.
// A mismatch is a warning, not an error: the token may not be live yet.
func checkTokenDecimals(ctx context.Context, reader *chain.TokenReader, configured int32) {
	chainDecimals, err := reader.Decimals(ctx)
	if err != nil {
		logger.Warn("decimals() call failed (token not live yet?), continuing", "err", err)
		return
	}
	if int32(chainDecimals) != configured {
		logger.Warn("Configured token decimals disagree with contract",
			"configured", configured,
			"contract", chainDecimals,
		)
	}
}

func shutdownHTTPServer(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", "err", err)
	}
}

func waitForShutdown() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}
