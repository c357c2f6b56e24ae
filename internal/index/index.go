// Package index fetches the spot volatility index value from the quote provider.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rickgao/vix-data/internal/api"
	"github.com/rickgao/vix-data/internal/model"
)

// ErrNoData is returned when the provider history has no bar with a close.
var ErrNoData = errors.New("no index data")

// ChartSource is the provider call the fetcher needs.
type ChartSource interface {
	GetChart(ctx context.Context, symbol string, opts api.ChartOptions) (*api.ChartResult, error)
}

// Config selects the symbol and history window.
type Config struct {
	Symbol   string // e.g. "^VIX"
	Range    string
	Interval string
}

// Fetcher reads the most recent index close.
type Fetcher struct {
	src    ChartSource
	cfg    Config
	logger *slog.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(src ChartSource, cfg Config, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Range == "" {
		cfg.Range = "1d"
	}
	if cfg.Interval == "" {
		cfg.Interval = "1d"
	}
	return &Fetcher{
		src:    src,
		cfg:    cfg,
		logger: logger.With("component", "index_fetcher", "symbol", cfg.Symbol),
	}
}

// Fetch returns the last bar of the configured history as an index snapshot.
// The snapshot is stamped with the provider's bar time.
func (f *Fetcher) Fetch(ctx context.Context) (model.IndexSnapshot, error) {
	chart, err := f.src.GetChart(ctx, f.cfg.Symbol, api.ChartOptions{
		Range:    f.cfg.Range,
		Interval: f.cfg.Interval,
	})
	if err != nil {
		return model.IndexSnapshot{}, fmt.Errorf("fetch index %s: %w", f.cfg.Symbol, err)
	}

	bar, ok := chart.LastBar()
	if !ok {
		return model.IndexSnapshot{}, fmt.Errorf("fetch index %s: %w", f.cfg.Symbol, ErrNoData)
	}

	f.logger.Debug("index fetched", "ts", bar.Time, "value", bar.Close.String())
	return model.IndexSnapshot{Timestamp: bar.Time, Value: bar.Close}, nil
}
