// Package store provides the SQLite-backed run log.
//
// The run log records, per run:
//   - Runs: configuration, final status and the run fingerprint
//   - Event results: how each started event ended
//   - Particles: rows appended by the run-log writer stage
//
// # Ordering
//
// Reads never depend on insertion order or wall time:
//   - Runs are ordered by id (UUIDv7, so by start time)
//   - Event results by event index
//   - Particles by event, collection, barcode
//
// # Unsigned columns
//
// SQLite integers are signed. Seeds and barcodes use the full uint64 range,
// so they are stored as the int64 with the same bit pattern and converted
// back on read.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
