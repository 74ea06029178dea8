// Package history persists projector state transitions to SQLite.
//
// Every time a poll cycle observes a power or input value that differs
// from the cached state, one row is appended to the state_history
// table. The store answers "what was the projector doing last night"
// without needing the InfluxDB stack.
package history
