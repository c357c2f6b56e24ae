package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClosePlaces is the precision closes are rounded to.
const ClosePlaces = 4

// Bar is one history entry with a close.
type Bar struct {
	Time  time.Time
	Close decimal.Decimal
}

// Bars pairs timestamps with closes in time order, skipping bars whose close is null.
// Closes are rounded to ClosePlaces.
func (r *ChartResult) Bars() []Bar {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	closes := r.Indicators.Quote[0].Close

	n := min(len(r.Timestamp), len(closes))
	bars := make([]Bar, 0, n)
	for i := 0; i < n; i++ {
		if !closes[i].Valid {
			continue
		}
		bars = append(bars, Bar{
			Time:  time.Unix(r.Timestamp[i], 0).UTC(),
			Close: closes[i].Decimal.Round(ClosePlaces),
		})
	}
	return bars
}

// LastBar returns the most recent bar with a close.
func (r *ChartResult) LastBar() (Bar, bool) {
	bars := r.Bars()
	if len(bars) == 0 {
		return Bar{}, false
	}
	return bars[len(bars)-1], true
}
