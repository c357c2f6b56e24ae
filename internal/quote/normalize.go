package quote

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/vix-data/internal/model"
)

// Price applies the fallback policy: last if present and positive, else close.
// A quote with neither is an error; zero is never returned as a price.
func Price(q model.RawQuote) (decimal.Decimal, error) {
	if q.Last.Valid && q.Last.Decimal.IsPositive() {
		return q.Last.Decimal, nil
	}
	if q.Close.Valid && q.Close.Decimal.IsPositive() {
		return q.Close.Decimal, nil
	}
	return decimal.Decimal{}, ErrNoPrice
}

// Normalize maps a raw quote into a futures snapshot stamped with ts.
// Volume, open interest, bid and ask pass through unchanged, absent if absent.
func Normalize(ts time.Time, id model.ContractID, q model.RawQuote) (model.FuturesSnapshot, error) {
	price, err := Price(q)
	if err != nil {
		return model.FuturesSnapshot{}, fetchError(id, model.FailureNormalize, err)
	}

	return model.FuturesSnapshot{
		Timestamp:     ts,
		Contract:      id.Symbol,
		ContractMonth: id.Month,
		Price:         price,
		Bid:           q.Bid,
		Ask:           q.Ask,
		OpenInterest:  q.OpenInterest,
		Volume:        q.Volume,
	}, nil
}
