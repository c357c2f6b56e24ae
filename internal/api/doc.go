// Package api provides a REST client for the public quote provider's chart endpoint.
//
// Endpoint:
//   - GET {base}/v8/finance/chart/{symbol}?range=1d&interval=1d
//
// The provider answers with parallel arrays of bar timestamps (Unix seconds) and OHLC
// values. Closes may be null for bars that have not traded yet; Bars skips those.
package api
