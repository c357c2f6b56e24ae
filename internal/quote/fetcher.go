package quote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/vix-data/internal/gateway"
	"github.com/rickgao/vix-data/internal/model"
)

// Gateway is the part of a gateway session the fetcher needs.
type Gateway interface {
	IsConnected() bool
	Connect(ctx context.Context) error
	QualifyContract(ctx context.Context, spec gateway.ContractSpec) (gateway.ContractDetails, error)
	RequestMarketData(ctx context.Context, conID int64) (*gateway.Subscription, error)
}

// Config describes the contracts being fetched.
type Config struct {
	Symbol   string
	SecType  string
	Exchange string
	Currency string
	Wait     time.Duration // Fixed wait for a snapshot, no backoff
}

// DefaultConfig returns the VIX futures contract on CFE.
func DefaultConfig() Config {
	return Config{
		Symbol:   "VIX",
		SecType:  "FUT",
		Exchange: "CFE",
		Currency: "USD",
		Wait:     time.Second,
	}
}

// Fetcher retrieves one raw quote per contract month.
type Fetcher struct {
	gw     Gateway
	cfg    Config
	logger *slog.Logger
}

// NewFetcher creates a Fetcher on the given gateway.
func NewFetcher(gw Gateway, cfg Config, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Wait <= 0 {
		cfg.Wait = DefaultConfig().Wait
	}
	return &Fetcher{
		gw:     gw,
		cfg:    cfg,
		logger: logger.With("component", "quote_fetcher"),
	}
}

// Fetch qualifies the contract, requests a snapshot and waits up to the configured
// interval for a usable price. A disconnected gateway is reconnected first.
// All errors are *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, id model.ContractID) (model.RawQuote, error) {
	if !f.gw.IsConnected() {
		if err := f.gw.Connect(ctx); err != nil {
			return model.RawQuote{}, fetchError(id, model.FailureSession, err)
		}
	}

	details, err := f.gw.QualifyContract(ctx, gateway.ContractSpec{
		Symbol:        f.cfg.Symbol,
		SecType:       f.cfg.SecType,
		ContractMonth: id.Month,
		Exchange:      f.cfg.Exchange,
		Currency:      f.cfg.Currency,
	})
	if err != nil {
		return model.RawQuote{}, fetchError(id, model.FailureResolution,
			fmt.Errorf("%w: %w", ErrContractResolution, err))
	}

	sub, err := f.gw.RequestMarketData(ctx, details.ConID)
	if err != nil {
		return model.RawQuote{}, fetchError(id, model.FailureRequest, err)
	}
	defer sub.Cancel()

	q, err := f.collect(ctx, sub)
	if err != nil {
		kind := model.FailureRequest
		if errors.Is(err, ErrQuoteTimeout) {
			kind = model.FailureTimeout
		}
		return model.RawQuote{}, fetchError(id, kind, err)
	}

	f.logger.Debug("quote received",
		"contract", id.Symbol,
		"contract_month", id.Month,
		"con_id", details.ConID,
		"last", q.Last.Decimal.String(),
		"close", q.Close.Decimal.String(),
	)
	return q, nil
}

// collect applies ticks until snapshot_end or the wait expires.
func (f *Fetcher) collect(ctx context.Context, sub *gateway.Subscription) (model.RawQuote, error) {
	var q model.RawQuote

	timer := time.NewTimer(f.cfg.Wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return q, ctx.Err()

		case <-sub.Done():
			return q, gateway.ErrConnectionLost

		case <-timer.C:
			if q.HasPrice() {
				return q, nil
			}
			return q, fmt.Errorf("%w after %s", ErrQuoteTimeout, f.cfg.Wait)

		case msg := <-sub.Events():
			switch msg.Type {
			case gateway.TypeTick:
				tick, err := gateway.DecodeTick(msg)
				if err != nil {
					f.logger.Warn("dropping tick", "req_id", msg.ID, "error", err)
					continue
				}
				apply(&q, tick)
			case gateway.TypeSnapshotEnd:
				if q.HasPrice() {
					return q, nil
				}
				return q, fmt.Errorf("%w: snapshot ended without price", ErrQuoteTimeout)
			case gateway.TypeError:
				return q, msg.Err()
			}
		}
	}
}

func apply(q *model.RawQuote, t gateway.Tick) {
	switch t.Field {
	case gateway.FieldLast:
		q.Last.Decimal, q.Last.Valid = t.Value, true
	case gateway.FieldClose:
		q.Close.Decimal, q.Close.Valid = t.Value, true
	case gateway.FieldBid:
		q.Bid.Decimal, q.Bid.Valid = t.Value, true
	case gateway.FieldAsk:
		q.Ask.Decimal, q.Ask.Valid = t.Value, true
	case gateway.FieldVolume:
		v := t.Value.IntPart()
		q.Volume = &v
	case gateway.FieldOpenInterest:
		v := t.Value.IntPart()
		q.OpenInterest = &v
	}
}
