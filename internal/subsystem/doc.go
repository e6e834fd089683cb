// Package subsystem starts and stops the settings subsystems hosted by the
// helper.
//
// Subsystems start in registration order and stop in reverse. A fallible
// subsystem that fails to start is left out entirely: it is never stopped and
// never retried. Any other start error is logged and the subsystem stays in
// the started list so its Stop still runs.
package subsystem
