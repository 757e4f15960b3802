// Package store provides SQLite-backed storage for meta definitions,
// relation rows and instances.
//
// Store implements meta.Getter and relation.Getter, so it can sit directly
// behind the routing caches. Memory implements the same getters over maps
// for tests and scenario runs.
//
// # Error contract
//
// Driver failures are returned as ENVIRONMENT model errors. A primary-key
// lookup that yields more than one row is a SYSTEM error. A missing meta is
// (nil, nil), and an upstream without relations yields an empty slice.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
