// Package timeouts defines shared timeout constants used across the arena
// runtime. Keeping them in one place makes the durations discoverable.
package timeouts

import "time"

// PerGame is the default wall-clock budget charged to one competitor for one
// game when configuration does not set one.
const PerGame = time.Second

// DriverJoin bounds how long shutdown waits for the match driver to finish
// the round in progress before logging that it is still busy.
const DriverJoin = 30 * time.Second

// HealthShutdown limits how long the health server drains during shutdown.
const HealthShutdown = 5 * time.Second

// SQLiteBusy is the busy timeout handed to SQLite connections.
const SQLiteBusy = 5 * time.Second
