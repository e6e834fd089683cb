// Package daemon sequences the settings helper's lifecycle.
//
// The Orchestrator claims the instance name, connects the settings store and
// the session manager, reconciles the autostart entry, optionally detaches,
// starts the hosted subsystems and waits for a shutdown request. Teardown runs
// in reverse. Every collaborator sits behind a small interface so the whole
// sequence can be exercised without a bus.
//
// Wiring of the real implementations lives in internal/daemonrun.
package daemon
