// Package runloop holds the orchestrator's main wait.
//
// The loop blocks until the first shutdown request. Requests may come from
// signal handlers or D-Bus callbacks on any goroutine; only the first one is
// kept, later ones are dropped.
package runloop

import (
	"context"
	"sync"
)

// State is the lifecycle of a Loop.
type State int

const (
	Running State = iota
	Draining
	Terminated
)

func (s State) String() string {
	switch s {
	case Draining:
		return "draining"
	case Terminated:
		return "terminated"
	default:
		return "running"
	}
}

// Request records what asked the loop to stop.
type Request struct {
	Source string
}

// Loop is a single-use run loop.
type Loop struct {
	requests chan Request
	once     sync.Once

	mu    sync.Mutex
	state State
}

// New returns a running loop.
func New() *Loop {
	return &Loop{requests: make(chan Request, 1)}
}

// Request enqueues a shutdown request and reports whether it was the first.
// It never blocks.
func (l *Loop) Request(source string) bool {
	accepted := false
	l.once.Do(func() {
		l.requests <- Request{Source: source}
		accepted = true
	})
	return accepted
}

// Run blocks until a request arrives or ctx ends, then moves to Draining.
// A cancelled context is reported as a request from "context".
func (l *Loop) Run(ctx context.Context) Request {
	var req Request
	select {
	case req = <-l.requests:
	case <-ctx.Done():
		l.Request("context")
		req = <-l.requests
	}
	l.setState(Draining)
	return req
}

// Terminate marks teardown as finished.
func (l *Loop) Terminate() {
	l.setState(Terminated)
}

// State returns the current lifecycle state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s > l.state {
		l.state = s
	}
}
