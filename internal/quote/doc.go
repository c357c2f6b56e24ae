// Package quote fetches and normalizes per-contract futures quotes from the gateway.
//
// Fetcher qualifies a contract month, subscribes to a market-data snapshot and collects
// ticks until the gateway ends the snapshot or the fixed wait expires. A quote is ready
// once it carries a positive last or close price.
//
// Every failure is returned as a *FetchError whose Kind tells the caller whether the
// contract could not be resolved, the request was rejected, or no price arrived in time.
// None of them should stop a caller from moving on to the next contract.
package quote
