// Package xfconf talks to the xfconf settings daemon over the session bus.
//
// Connect confirms the daemon answers and subscribes to its property
// signals; subsystems then read channel snapshots with Properties and register
// per-channel callbacks with Watch. A single dispatcher goroutine fans
// signals out to watchers.
package xfconf
