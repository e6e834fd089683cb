// Package logging assembles the slog loggers used by settingsd.
//
// It owns the console and JSON handlers, routes output to stderr and the
// optional log file, and exposes attribute helpers so every component tags
// its lines with the same keys. Warnings about degraded startup steps go
// through WarnWithContext so each one carries an event type, a hint and the
// user-facing impact. A no-op logger is provided for tests and for wiring
// code that runs before configuration is known.
package logging
