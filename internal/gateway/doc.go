// Package gateway implements the session to the brokerage market-data gateway.
//
// The gateway is reached over a websocket and speaks JSON frames:
//   - client → gateway: {"id": N, "cmd": "...", "params": {...}}
//   - gateway → client: {"id": N, "type": "...", "msg": {...}}
//
// A Session owns at most one connection. Connect performs the hello handshake with the
// configured client identity; a dropped socket moves the session back to Disconnected so
// the next caller can reconnect. Sessions are not meant to be shared by concurrent cycles.
package gateway
