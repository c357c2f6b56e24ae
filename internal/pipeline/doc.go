// Package pipeline runs acquisition cycles.
//
// An Assembler owns the gateway session. Each cycle connects the session if needed,
// walks the contract horizon in order fetching and normalizing one quote per month,
// and reads the spot index alongside the futures loop. Per-contract and index failures
// are recorded on the result; only an unreachable gateway fails the cycle as a whole,
// and in that case no contract is attempted.
//
// Cycles on one Assembler are serialized. A cycle requested while another is running
// returns ErrCycleInProgress instead of queueing.
package pipeline
