package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/vix-data/internal/model"
	"github.com/rickgao/vix-data/internal/pipeline"
)

// Acquirer runs one acquisition cycle.
type Acquirer interface {
	Run(ctx context.Context) (*model.AcquisitionResult, error)
}

// ResultHandler receives cycle results.
type ResultHandler interface {
	HandleResult(ctx context.Context, result *model.AcquisitionResult) error
}

// ResultHandlerFunc is a function adapter for ResultHandler.
type ResultHandlerFunc func(context.Context, *model.AcquisitionResult) error

func (f ResultHandlerFunc) HandleResult(ctx context.Context, r *model.AcquisitionResult) error {
	return f(ctx, r)
}

// Config holds poller configuration.
type Config struct {
	Interval     time.Duration // Cycle interval (default: 15m)
	CycleTimeout time.Duration // Per-cycle timeout (default: 2m)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:     15 * time.Minute,
		CycleTimeout: 2 * time.Minute,
	}
}

// Poller periodically runs acquisition cycles.
type Poller struct {
	cfg      Config
	acquirer Acquirer
	handler  ResultHandler
	logger   *slog.Logger

	mu   sync.RWMutex
	last *model.AcquisitionResult

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller.
func New(cfg Config, acquirer Acquirer, handler ResultHandler, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		cfg:      cfg,
		acquirer: acquirer,
		handler:  handler,
		logger:   logger.With("component", "poller"),
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	if p.cfg.Interval <= 0 {
		return fmt.Errorf("poller interval must be > 0, got %s", p.cfg.Interval)
	}
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("poller started",
		"interval", p.cfg.Interval,
		"cycle_timeout", p.cfg.CycleTimeout,
	)

	return nil
}

// Stop gracefully shuts down the poller, waiting for a running cycle.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Last returns the most recent completed result, or nil before the first one.
func (p *Poller) Last() *model.AcquisitionResult {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	p.tick()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.tick()
		}
	}
}

func (p *Poller) tick() {
	_, err := p.RunOnce(p.ctx)
	switch {
	case err == nil:
	case errors.Is(err, pipeline.ErrCycleInProgress):
		p.logger.Debug("cycle already running, skipping tick")
	case p.ctx.Err() != nil:
	default:
		p.logger.Warn("scheduled cycle failed", "error", err)
	}
}

// RunOnce runs one cycle bounded by the cycle timeout and hands the result to the
// handler. Results of cycles that ended early are still handed off, but only a
// completed cycle becomes Last.
func (p *Poller) RunOnce(ctx context.Context) (*model.AcquisitionResult, error) {
	cycleCtx := ctx
	if p.cfg.CycleTimeout > 0 {
		var cancel context.CancelFunc
		cycleCtx, cancel = context.WithTimeout(ctx, p.cfg.CycleTimeout)
		defer cancel()
	}

	result, err := p.acquirer.Run(cycleCtx)
	if result == nil {
		return nil, err
	}

	if p.handler != nil && (len(result.Futures) > 0 || result.Index != nil) {
		if herr := p.handler.HandleResult(ctx, result); herr != nil {
			p.logger.Error("failed to handle result",
				"cycle_id", result.CycleID,
				"error", herr,
			)
			if err == nil {
				err = fmt.Errorf("handle result: %w", herr)
			}
		}
	}

	if err != nil {
		return result, err
	}

	p.mu.Lock()
	p.last = result
	p.mu.Unlock()

	return result, nil
}
