package api

import "github.com/shopspring/decimal"

// ChartResponse from GET /v8/finance/chart/{symbol}
type ChartResponse struct {
	Chart struct {
		Result []ChartResult `json:"result"`
		Error  *ChartError   `json:"error"`
	} `json:"chart"`
}

// ChartError is the provider's error object.
type ChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// ChartResult is the history for one symbol.
type ChartResult struct {
	Meta       ChartMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"` // Unix seconds, parallel to the indicator arrays
	Indicators struct {
		Quote []ChartQuote `json:"quote"`
	} `json:"indicators"`
}

// ChartMeta describes the symbol and its latest regular-session price.
type ChartMeta struct {
	Symbol               string          `json:"symbol"`
	Currency             string          `json:"currency"`
	ExchangeName         string          `json:"exchangeName"`
	ExchangeTimezoneName string          `json:"exchangeTimezoneName"`
	RegularMarketPrice   decimal.Decimal `json:"regularMarketPrice"`
	RegularMarketTime    int64           `json:"regularMarketTime"`
	DataGranularity      string          `json:"dataGranularity"`
	Range                string          `json:"range"`
}

// ChartQuote holds OHLCV arrays. Entries are null for bars without trades.
type ChartQuote struct {
	Open   []decimal.NullDecimal `json:"open"`
	High   []decimal.NullDecimal `json:"high"`
	Low    []decimal.NullDecimal `json:"low"`
	Close  []decimal.NullDecimal `json:"close"`
	Volume []*int64              `json:"volume"`
}

// ChartOptions for GetChart.
type ChartOptions struct {
	Range    string // e.g. "1d", "5d"
	Interval string // e.g. "1d", "1m"
}
