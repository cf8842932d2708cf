package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"soudefi/config"
	"soudefi/core/events"
	"soudefi/core/genesis"
	"soudefi/core/host"
	"soudefi/observability/logging"
	telemetry "soudefi/observability/otel"
	"soudefi/rpc"
	"soudefi/storage"
	"soudefi/storage/eventlog"
	"soudefi/storage/journal"
)

const (
	genesisPathEnv = "SOU_GENESIS"
	rpcTokenEnv    = "SOU_RPC_TOKEN"
	envNameEnv     = "SOU_ENV"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a genesis document (overrides SOU_GENESIS and config GenesisFile)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if env := strings.TrimSpace(os.Getenv(envNameEnv)); env != "" {
		cfg.Environment = env
	}

	logger, logCloser := logging.SetupWithOptions(logging.Options{
		Service:    "soud",
		Env:        cfg.Environment,
		Level:      cfg.Logging.Level,
		File:       cfg.ResolvePath(cfg.Logging.File),
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	genesisPath := resolveGenesisPath(*genesisFlag, cfg.GenesisFile, os.LookupEnv)
	if err := run(ctx, cfg, genesisPath, logger); err != nil {
		logger.Error("soud stopped", slog.Any("error", err))
		logCloser.Close()
		os.Exit(1)
	}
	logger.Info("soud stopped")
}

// run wires the daemon and blocks until ctx is cancelled or the RPC server
// fails.
func run(ctx context.Context, cfg *config.Config, genesisPath string, logger *slog.Logger) error {
	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "soud",
		Environment: cfg.Environment,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Traces:      cfg.Telemetry.Traces,
		Metrics:     cfg.Telemetry.Metrics,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	var (
		sinks  []host.EventSink
		evtLog *eventlog.Log
		jrnl   host.Journal
	)
	if path := cfg.ResolvePath(cfg.Storage.EventLog); path != "" {
		evtLog, err = eventlog.Open(path)
		if err != nil {
			return fmt.Errorf("open event log: %w", err)
		}
		defer evtLog.Close()
		sinks = append(sinks, evtLog)
	}
	if dir := cfg.ResolvePath(cfg.Storage.JournalDir); dir != "" {
		j, err := openJournal(dir, cfg.Storage.SyncWrites)
		if err != nil {
			return err
		}
		defer j.Close()
		jrnl = j
	}

	deployment, err := cfg.Deployment()
	if err != nil {
		return fmt.Errorf("resolve deployment: %w", err)
	}
	var doc *genesis.Document
	if genesisPath != "" {
		doc, err = genesis.Load(genesisPath)
		if err != nil {
			return err
		}
		deployment, err = doc.Resolve(deployment)
		if err != nil {
			return err
		}
	}

	exec, err := host.NewExecutor(db, host.Options{
		Deployment: deployment,
		Journal:    jrnl,
		Sinks:      sinks,
		Emitters:   []events.Emitter{logEmitter{logger: logger}},
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("create executor: %w", err)
	}

	if doc != nil {
		applied, err := genesis.Apply(ctx, exec, doc)
		if err != nil {
			return fmt.Errorf("apply genesis: %w", err)
		}
		logger.Info("genesis checked",
			slog.String("path", genesisPath),
			slog.Bool("applied", applied))
	}

	token := strings.TrimSpace(os.Getenv(rpcTokenEnv))
	if cfg.RPC.EnableFaucet && token == "" {
		logger.Warn("faucet enabled without " + rpcTokenEnv + "; bank_mint will reject every call")
	}
	server := rpc.NewServer(exec, evtLog, rpc.ServerConfig{
		RateLimitPerSecond: cfg.RPC.RateLimitPerSecond,
		Burst:              cfg.RPC.Burst,
		MaxBodyBytes:       cfg.RPC.MaxBodyBytes,
		TrustProxyHeaders:  cfg.RPC.TrustProxyHeaders,
		EnableFaucet:       cfg.RPC.EnableFaucet,
		AuthToken:          token,
		Logger:             logger,
	})

	logger.Info("soud started",
		slog.String("rpc", cfg.RPC.Address),
		slog.String("backend", cfg.Storage.Backend),
		slog.String("token", deployment.TokenAsset),
		logging.MaskField("rpc_token", token))
	if err := server.Start(ctx, cfg.RPC.Address); err != nil {
		return fmt.Errorf("rpc server: %w", err)
	}
	return nil
}

// resolveGenesisPath picks the genesis document: CLI flag, then SOU_GENESIS,
// then the config file.
func resolveGenesisPath(cliValue, cfgValue string, lookup func(string) (string, bool)) string {
	if trimmed := strings.TrimSpace(cliValue); trimmed != "" {
		return trimmed
	}
	if lookup != nil {
		if value, ok := lookup(genesisPathEnv); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return strings.TrimSpace(cfgValue)
}

func openDatabase(cfg *config.Config) (storage.Database, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Backend)) {
	case "memory":
		return storage.NewMemDB(), nil
	case "", "leveldb":
		path := filepath.Join(cfg.DataDir, "state")
		db, err := storage.NewLevelDB(path, cfg.Storage.SyncWrites)
		if err != nil {
			return nil, fmt.Errorf("open state database %s: %w", path, err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func openJournal(dir string, sync bool) (*journal.Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("prepare journal directory: %w", err)
	}
	j, err := journal.Open(dir, sync)
	if err != nil {
		return nil, err
	}
	return j, nil
}

// logEmitter writes every committed event to the daemon log at debug level.
type logEmitter struct {
	logger *slog.Logger
}

func (e logEmitter) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	e.logger.Debug("event", slog.String("type", evt.EventType()))
}
