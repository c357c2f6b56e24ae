package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/vix-data/internal/metrics"
	"github.com/rickgao/vix-data/internal/model"
	"github.com/rickgao/vix-data/internal/quote"
)

// ErrCycleInProgress is returned when a cycle is requested while another is running.
var ErrCycleInProgress = errors.New("acquisition cycle already in progress")

// State is the assembler's position in the current cycle.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateFetching
	StateFetchingIndex
	StateAssembled
	StateHandedOff
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateFetching:
		return "fetching"
	case StateFetchingIndex:
		return "fetching_index"
	case StateAssembled:
		return "assembled"
	case StateHandedOff:
		return "handed_off"
	default:
		return "unknown"
	}
}

// Session is the gateway connection the assembler owns.
type Session interface {
	IsConnected() bool
	Connect(ctx context.Context) error
	Disconnect() error
}

// QuoteSource fetches one raw quote per contract.
type QuoteSource interface {
	Fetch(ctx context.Context, id model.ContractID) (model.RawQuote, error)
}

// IndexSource fetches the spot index.
type IndexSource interface {
	Fetch(ctx context.Context) (model.IndexSnapshot, error)
}

// Horizon enumerates the contracts for a cycle.
type Horizon interface {
	Generate(now time.Time) []model.ContractID
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithClock sets the time source used to stamp cycles.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) {
		a.now = now
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Assembler) {
		a.metrics = m
	}
}

// Assembler runs acquisition cycles against one gateway session.
type Assembler struct {
	session Session
	horizon Horizon
	quotes  QuoteSource
	index   IndexSource
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	cycleMu sync.Mutex

	stateMu sync.Mutex
	state   State
}

// NewAssembler creates an Assembler.
func NewAssembler(session Session, horizon Horizon, quotes QuoteSource, index IndexSource, logger *slog.Logger, opts ...Option) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Assembler{
		session: session,
		horizon: horizon,
		quotes:  quotes,
		index:   index,
		logger:  logger.With("component", "assembler"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// State returns the current cycle state.
func (a *Assembler) State() State {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.state
}

func (a *Assembler) setState(s State) {
	a.stateMu.Lock()
	a.state = s
	a.stateMu.Unlock()
}

// Run executes one acquisition cycle.
//
// When the gateway cannot be reached Run returns a result with nothing attempted
// together with the connect error. Otherwise per-contract and index failures are
// recorded on the result and the error is nil, unless ctx ends mid-cycle.
func (a *Assembler) Run(ctx context.Context) (*model.AcquisitionResult, error) {
	if !a.cycleMu.TryLock() {
		a.metrics.CycleFinished(metrics.OutcomeSkipped, 0)
		return nil, ErrCycleInProgress
	}
	defer a.cycleMu.Unlock()

	start := a.now()
	result := &model.AcquisitionResult{
		CycleID:   uuid.New(),
		StartedAt: start,
		Futures:   []model.FuturesSnapshot{},
		Failures:  []model.ContractFailure{},
	}
	logger := a.logger.With("cycle_id", result.CycleID)

	a.setState(StateConnecting)
	if !a.session.IsConnected() {
		if err := a.session.Connect(ctx); err != nil {
			a.metrics.SetGatewayConnected(false)
			result.FinishedAt = a.now()
			a.metrics.CycleFinished(metrics.OutcomeFailed, result.FinishedAt.Sub(start))
			a.setState(StateIdle)
			logger.Error("cycle aborted, gateway unreachable", "error", err)
			return result, fmt.Errorf("connect gateway: %w", err)
		}
	}
	a.metrics.SetGatewayConnected(true)

	// Index runs alongside the futures loop; its failure never fails the cycle.
	var g errgroup.Group
	var indexSnap model.IndexSnapshot
	var indexErr error
	g.Go(func() error {
		indexSnap, indexErr = a.index.Fetch(ctx)
		return nil
	})

	a.setState(StateFetching)
	ts := start.UTC().Truncate(time.Second)
	runErr := a.fetchFutures(ctx, ts, a.horizon.Generate(start), result, logger)

	a.setState(StateFetchingIndex)
	g.Wait()
	if indexErr != nil {
		result.IndexError = indexErr.Error()
		a.metrics.IndexFetched(false)
		logger.Warn("index fetch failed", "error", indexErr)
	} else {
		result.Index = &indexSnap
		a.metrics.IndexFetched(true)
	}

	a.setState(StateAssembled)
	result.FinishedAt = a.now()
	duration := result.FinishedAt.Sub(start)
	a.metrics.SetGatewayConnected(a.session.IsConnected())

	outcome := metrics.OutcomeOK
	if result.Partial() {
		outcome = metrics.OutcomePartial
	}
	a.metrics.CycleFinished(outcome, duration)

	logger.Info("cycle assembled",
		"attempted", result.Attempted,
		"futures", len(result.Futures),
		"failures", len(result.Failures),
		"index", result.Index != nil,
		"duration", duration,
	)

	a.setState(StateHandedOff)
	return result, runErr
}

// fetchFutures walks the horizon in order. A failed contract never stops the walk.
func (a *Assembler) fetchFutures(ctx context.Context, ts time.Time, ids []model.ContractID, result *model.AcquisitionResult, logger *slog.Logger) error {
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cycle interrupted after %d of %d contracts: %w", result.Attempted, len(ids), err)
		}

		result.Attempted++
		snap, err := a.fetchOne(ctx, ts, id)
		if err != nil {
			failure := toFailure(id, err)
			result.Failures = append(result.Failures, failure)
			a.metrics.ContractFetched(string(failure.Kind))
			logger.Warn("contract fetch failed",
				"contract", id.Symbol,
				"contract_month", id.Month,
				"kind", failure.Kind,
				"error", err,
			)
			continue
		}

		result.Futures = append(result.Futures, snap)
		a.metrics.ContractFetched("")
	}
	return nil
}

func (a *Assembler) fetchOne(ctx context.Context, ts time.Time, id model.ContractID) (model.FuturesSnapshot, error) {
	raw, err := a.quotes.Fetch(ctx, id)
	if err != nil {
		return model.FuturesSnapshot{}, err
	}
	return quote.Normalize(ts, id, raw)
}

func toFailure(id model.ContractID, err error) model.ContractFailure {
	var fe *quote.FetchError
	if errors.As(err, &fe) {
		return fe.Failure()
	}
	return model.ContractFailure{
		Contract:      id.Symbol,
		ContractMonth: id.Month,
		Kind:          model.FailureRequest,
		Reason:        err.Error(),
	}
}

// Close disconnects the gateway session. It waits for a running cycle to finish.
func (a *Assembler) Close() error {
	a.cycleMu.Lock()
	defer a.cycleMu.Unlock()

	a.setState(StateIdle)
	a.metrics.SetGatewayConnected(false)
	return a.session.Disconnect()
}
