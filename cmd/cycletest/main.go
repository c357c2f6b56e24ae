// cycletest runs one acquisition cycle against the configured gateway and
// provider and prints the result to the console. Nothing is written to storage.
// Usage: go run ./cmd/cycletest --config configs/gatherer.local.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rickgao/vix-data/internal/api"
	"github.com/rickgao/vix-data/internal/config"
	"github.com/rickgao/vix-data/internal/gateway"
	"github.com/rickgao/vix-data/internal/horizon"
	"github.com/rickgao/vix-data/internal/index"
	"github.com/rickgao/vix-data/internal/model"
	"github.com/rickgao/vix-data/internal/pipeline"
	"github.com/rickgao/vix-data/internal/quote"
	"github.com/rickgao/vix-data/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/gatherer.example.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "print full result JSON")
	months := flag.Int("months", 0, "override the horizon length")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// Load config
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *months > 0 {
		cfg.Contracts.HorizonMonths = *months
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Poller.CycleTimeout)
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	gwCfg := gateway.DefaultConfig()
	gwCfg.Host = cfg.Gateway.Host
	gwCfg.Port = cfg.Gateway.Port
	gwCfg.Path = cfg.Gateway.Path
	gwCfg.ClientID = cfg.Gateway.ClientID
	gwCfg.ClientName = version.UserAgent()
	gwCfg.ConnectTimeout = cfg.Gateway.ConnectTimeout
	gwCfg.RequestTimeout = cfg.Gateway.RequestTimeout
	session := gateway.NewSession(gwCfg, logger)

	quotes := quote.NewFetcher(session, quote.Config{
		Symbol:   cfg.Contracts.Symbol,
		SecType:  "FUT",
		Exchange: cfg.Contracts.Exchange,
		Currency: cfg.Contracts.Currency,
		Wait:     cfg.Gateway.QuoteWait,
	}, logger)

	apiClient := api.NewClient(cfg.Provider.BaseURL,
		api.WithLogger(logger),
		api.WithTimeout(cfg.Provider.Timeout),
		api.WithUserAgent(cfg.Provider.UserAgent),
	)
	indexFetcher := index.NewFetcher(apiClient, index.Config{
		Symbol:   cfg.Provider.Symbol,
		Range:    cfg.Provider.Range,
		Interval: cfg.Provider.Interval,
	}, logger)

	assembler := pipeline.NewAssembler(session,
		horizon.NewGenerator(cfg.Contracts.Root, cfg.Contracts.HorizonMonths),
		quotes, indexFetcher, logger)
	defer assembler.Close()

	logger.Info("running cycle", "gateway", gwCfg.URL(), "months", cfg.Contracts.HorizonMonths)

	result, err := assembler.Run(ctx)
	if err != nil {
		logger.Error("cycle failed", "error", err)
		if result == nil {
			os.Exit(1)
		}
	}

	if *verbose {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Printf("%s\n", data)
	} else {
		printResult(result)
	}

	if err != nil || result.Partial() {
		os.Exit(2)
	}
}

func printResult(r *model.AcquisitionResult) {
	fmt.Printf("[CYCLE] id=%s attempted=%d stored=%d failed=%d\n",
		r.CycleID, r.Attempted, len(r.Futures), len(r.Failures))

	for _, s := range r.Futures {
		fmt.Printf("[FUTURE] %s month=%s price=%s volume=%s oi=%s\n",
			s.Contract, s.ContractMonth, s.Price, optInt(s.Volume), optInt(s.OpenInterest))
	}
	for _, f := range r.Failures {
		fmt.Printf("[FAILED] %s kind=%s reason=%s\n", f.Contract, f.Kind, f.Reason)
	}

	if r.Index != nil {
		fmt.Printf("[INDEX] value=%s at=%s\n", r.Index.Value, r.Index.Timestamp.Format("2006-01-02 15:04:05Z07:00"))
	} else {
		fmt.Printf("[INDEX] missing: %s\n", r.IndexError)
	}
}

func optInt(v *int64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}
