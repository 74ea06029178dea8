// Package projector implements control of a Christie DHD800 projector over
// its line-oriented TCP protocol.
//
// The protocol is a short, device-initiated exchange on a fresh TCP
// connection per operation:
//
//	┌────────┐                      ┌───────────┐
//	│ client │ ───── connect ─────► │ projector │
//	│        │ ◄── "PASSWORD:" ──── │           │
//	│        │ ── "<password>\r" ─► │           │
//	│        │ ◄──── "HELLO" ────── │           │
//	│        │ ──── "<CODE>\r" ───► │           │
//	└────────┘                      └───────────┘
//
// Control codes (e.g. C00 = power on) are fire-and-forget: the projector
// sends no acknowledgement, so the connection is held open for a short
// linger period after the command and then closed. Status query codes
// (CR0 = power, CR1 = input) each return a short hex token terminated by
// a carriage return.
//
// # Components
//
//   - Session: one connection's worth of protocol exchange, either in
//     command mode or in status-query mode. Never reused.
//   - Poller: keeps the cached device state fresh by running a status-query
//     session on a fixed interval.
//   - Instance: the controller visible to the host surface. Holds the
//     active configuration, the state cache, the active session and the
//     poller, and dispatches action identifiers to command codes.
//
// # Thread Safety
//
// All exported types are safe for concurrent use from multiple goroutines.
package projector
