package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rickgao/vix-data/internal/api"
	"github.com/rickgao/vix-data/internal/config"
	"github.com/rickgao/vix-data/internal/database"
	"github.com/rickgao/vix-data/internal/gateway"
	"github.com/rickgao/vix-data/internal/horizon"
	"github.com/rickgao/vix-data/internal/index"
	"github.com/rickgao/vix-data/internal/metrics"
	"github.com/rickgao/vix-data/internal/model"
	"github.com/rickgao/vix-data/internal/pipeline"
	"github.com/rickgao/vix-data/internal/poller"
	"github.com/rickgao/vix-data/internal/quote"
	"github.com/rickgao/vix-data/internal/server"
	"github.com/rickgao/vix-data/internal/version"
	"github.com/rickgao/vix-data/internal/writer"
)

func main() {
	configPath := flag.String("config", "configs/gatherer.local.yaml", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "config", *configPath)
		os.Exit(1)
	}

	// Set up structured logging
	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting gatherer",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"instance_id", cfg.Instance.ID,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Timescale.Host,
		"port", cfg.Database.Timescale.Port,
		"database", cfg.Database.Timescale.Name,
	)

	pool, err := database.Connect(ctx, cfg.Database.Timescale)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Database.Migrate {
		if err := database.EnsureSchema(ctx, pool); err != nil {
			logger.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
		logger.Info("schema ready")
	}

	logger.Info("database connected")

	m := metrics.New(prometheus.DefaultRegisterer)

	// Gateway session, opened lazily by the first cycle
	gwCfg := gateway.DefaultConfig()
	gwCfg.Host = cfg.Gateway.Host
	gwCfg.Port = cfg.Gateway.Port
	gwCfg.Path = cfg.Gateway.Path
	gwCfg.ClientID = cfg.Gateway.ClientID
	gwCfg.ClientName = version.UserAgent()
	gwCfg.ConnectTimeout = cfg.Gateway.ConnectTimeout
	gwCfg.RequestTimeout = cfg.Gateway.RequestTimeout
	gwCfg.PingInterval = cfg.Gateway.PingInterval

	session := gateway.NewSession(gwCfg, logger, gateway.WithStateHook(func(s gateway.State) {
		m.SetGatewayConnected(s == gateway.StateConnected)
	}))

	quotes := quote.NewFetcher(session, quote.Config{
		Symbol:   cfg.Contracts.Symbol,
		SecType:  "FUT",
		Exchange: cfg.Contracts.Exchange,
		Currency: cfg.Contracts.Currency,
		Wait:     cfg.Gateway.QuoteWait,
	}, logger)

	// Secondary provider for the spot index
	apiClient := api.NewClient(
		cfg.Provider.BaseURL,
		api.WithLogger(logger),
		api.WithTimeout(cfg.Provider.Timeout),
		api.WithRetries(cfg.Provider.MaxRetries, api.DefaultRetryBackoff),
		api.WithUserAgent(cfg.Provider.UserAgent),
	)
	indexFetcher := index.NewFetcher(apiClient, index.Config{
		Symbol:   cfg.Provider.Symbol,
		Range:    cfg.Provider.Range,
		Interval: cfg.Provider.Interval,
	}, logger)

	assembler := pipeline.NewAssembler(
		session,
		horizon.NewGenerator(cfg.Contracts.Root, cfg.Contracts.HorizonMonths),
		quotes,
		indexFetcher,
		logger,
		pipeline.WithMetrics(m),
	)
	defer assembler.Close()

	snapshots := writer.NewSnapshotWriter(pool, logger, m)
	store := poller.ResultHandlerFunc(func(ctx context.Context, r *model.AcquisitionResult) error {
		_, err := snapshots.Write(ctx, r)
		return err
	})

	p := poller.New(poller.Config{
		Interval:     cfg.Poller.Interval,
		CycleTimeout: cfg.Poller.CycleTimeout,
	}, assembler, store, logger)

	if cfg.Poller.Enabled {
		if err := p.Start(ctx); err != nil {
			logger.Error("failed to start poller", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Info("scheduled cycles disabled, serving on-demand cycles only")
	}

	srv := server.New(server.Config{
		Port:        cfg.Server.Port,
		MetricsPath: cfg.Metrics.Path,
	}, server.Deps{
		DB:       pool,
		Gateway:  session,
		Cycles:   p,
		Gatherer: prometheus.DefaultGatherer,
	}, logger)
	srv.Start()

	logger.Info("gatherer running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", "error", err)
	}
	if cfg.Poller.Enabled {
		if err := p.Stop(shutdownCtx); err != nil {
			logger.Warn("poller stop", "error", err)
		}
	}

	stats := snapshots.Stats()
	logger.Info("gatherer stopped",
		"writes", stats.Writes,
		"inserts", stats.Inserts,
		"conflicts", stats.Conflicts,
		"errors", stats.Errors,
	)
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
