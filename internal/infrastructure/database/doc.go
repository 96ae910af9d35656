// Package database provides SQLite persistence for Wihajster Core.
//
// It wraps database/sql with WAL-mode configuration, busy-timeout handling,
// health checks, and an embedded-migrations runner. The schema lives in the
// top-level migrations package and is compiled into the binary, so a deployed
// core never depends on loose SQL files.
//
// SQLite is a deliberate choice: the core is a single-writer process and the
// settings/measurement workload is modest. The Repository interfaces in the
// domain packages keep the door open for a different store later.
package database
