package subsystem

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"settingsd/internal/logging"
)

// Subsystem is one hosted settings manager.
type Subsystem interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
}

// Entry registers a subsystem.
type Entry struct {
	Subsystem Subsystem
	// Fallible subsystems may fail to start without affecting the others.
	Fallible bool
}

// State is the per-subsystem lifecycle.
type State int

const (
	Uninitialized State = iota
	Running
	Stopped
	Failed
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	case Failed:
		return "failed"
	default:
		return "uninitialized"
	}
}

// Registry owns the ordered subsystem list.
type Registry struct {
	entries []Entry
	logger  *slog.Logger

	mu     sync.Mutex
	states map[string]State
}

// NewRegistry records entries in start order.
func NewRegistry(logger *slog.Logger, entries ...Entry) *Registry {
	states := make(map[string]State, len(entries))
	for _, e := range entries {
		states[e.Subsystem.Name()] = Uninitialized
	}
	return &Registry{
		entries: entries,
		logger:  logging.NewComponentLogger(logger, "subsystems"),
		states:  states,
	}
}

// Entries returns the registered entries in start order.
func (r *Registry) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// State returns the lifecycle state of the named subsystem.
func (r *Registry) State(name string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[name]
}

func (r *Registry) setState(name string, s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[name] = s
}

// StartAll starts every subsystem in order and returns the ones that are
// present, in start order.
func (r *Registry) StartAll(ctx context.Context) []Subsystem {
	started := make([]Subsystem, 0, len(r.entries))
	for _, entry := range r.entries {
		sub := entry.Subsystem
		name := sub.Name()
		err := safeCall(func() error { return sub.Start(ctx) })
		switch {
		case err == nil:
			r.logger.Debug("subsystem started", logging.String(logging.FieldSubsystem, name))
		case entry.Fallible:
			r.setState(name, Failed)
			logging.WarnWithContext(r.logger, "subsystem unavailable", "subsystem_start_failed",
				logging.String(logging.FieldSubsystem, name),
				logging.Error(err),
				logging.String(logging.FieldImpact, name+" is disabled for this session"),
			)
			continue
		default:
			logging.WarnWithContext(r.logger, "subsystem started with errors", "subsystem_start_degraded",
				logging.String(logging.FieldSubsystem, name),
				logging.Error(err),
				logging.String(logging.FieldImpact, "settings may not be applied until they change"),
			)
		}
		r.setState(name, Running)
		started = append(started, sub)
	}
	r.logger.Info("subsystems started",
		logging.Int("started", len(started)),
		logging.Int("registered", len(r.entries)),
	)
	return started
}

// StopAll stops started in reverse order. Each subsystem is stopped at most
// once; errors and panics are logged and never skip the rest.
func (r *Registry) StopAll(started []Subsystem) {
	for i := len(started) - 1; i >= 0; i-- {
		sub := started[i]
		name := sub.Name()
		if r.State(name) != Running {
			continue
		}
		r.setState(name, Stopped)
		if err := safeCall(sub.Stop); err != nil {
			logging.WarnWithContext(r.logger, "subsystem stop failed", "subsystem_stop_failed",
				logging.String(logging.FieldSubsystem, name),
				logging.Error(err),
				logging.String(logging.FieldImpact, "resources are released on exit"),
			)
			continue
		}
		r.logger.Debug("subsystem stopped", logging.String(logging.FieldSubsystem, name))
	}
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn()
}
