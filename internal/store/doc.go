// Package store provides SQLite-backed durable storage for evaluation logs.
//
// A *Store implements engine.Recorder. Installed on an engine, it keeps an
// append-only audit log of every evaluation:
//   - evaluations: one row per scope, inserted at begin and completed at end
//     with the final value or the error that ended it
//   - rule_firings: one row per rule or default statement, with its guards
//     and whether it fired, was skipped or did not match
//
// Working memory is never stored: only outcomes are.
//
// # Ordering
//
// All ordering uses the engine's logical clock (seq), never timestamps.
// Queries order by seq ASC with scope_id as tie breaker, so reads are
// identical across runs with the same clock.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
