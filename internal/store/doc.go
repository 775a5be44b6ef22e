// Package store provides SQLite-backed durable storage for director runs.
//
// A run is one execution of a scenario from a seed. The store keeps:
//   - Runs: seed, configuration and library digests, and the scenario source
//   - Steps: every StepResult with its result digest and the state digest
//     after the step
//   - Snapshots: full director state at chosen ticks, one row per
//     cooldown, pressure, milestone and queue entry
//
// # Ordering
//
// Runs are ordered by a logical seq, steps by tick, snapshot rows by their
// natural keys. Queries never order by wall time, so a replay reads rows in
// the order they were produced.
//
// # Floats
//
// Heat, pressure values and milestone progress are stored as IEEE-754 bit
// patterns in INTEGER columns. A restored snapshot is bit-identical to the
// one written and digests the same.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
