// Package store provides SQLite-backed durable storage for recorded program
// sessions.
//
// The store is an append-only log with:
//   - Sessions: one record per program run (program path and hash, strategy, seed, step quota)
//   - Triggers: external events injected into a session
//   - Selections: events the engine selected, with content hashes
//
// # Ordering
//
// All ordering uses seq INTEGER (the program's logical clock), never
// timestamps, so reads are identical across replays. Every multi-row query
// orders by seq ASC.
//
// # Data
//
// Event data is stored as RFC 8785 canonical JSON. Selection hashes are
// computed with ir.SelectionHash and folded with ir.TraceHash when a replay
// compares whole runs.
//
// # Replay
//
// Replay re-drives a freshly built program with a session's recorded
// triggers and compares the selections it makes with the recorded ones.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
