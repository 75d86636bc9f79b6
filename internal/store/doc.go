// Package store is the SQLite registry of compiled programs and their runs.
//
// Three tables are kept:
//   - programs: source programs keyed by content hash
//   - compilations: one row per (program, config), holding the compiled
//     program, parameters and signature envelopes
//   - runs: reference or encrypted executions of a compilation with their
//     error against the reference evaluator
//
// Writes are idempotent: storing the same program or compilation twice is a
// no-op, since the ids are content hashes.
//
// Runs are ordered by seq, a logical clock assigned on insert. Listings
// always use ORDER BY seq ASC, id ASC COLLATE BINARY so results do not depend
// on insertion timing.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
