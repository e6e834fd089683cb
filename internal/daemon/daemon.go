package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"settingsd/internal/bus"
	"settingsd/internal/detach"
	"settingsd/internal/logging"
	"settingsd/internal/runloop"
	"settingsd/internal/session"
	"settingsd/internal/subsystem"
)

var (
	// ErrAlreadyRunning means another helper owns the instance name.
	ErrAlreadyRunning = errors.New("another instance is already running")
	// ErrBusUnavailable means the session bus could not be used.
	ErrBusUnavailable = errors.New("session bus unavailable")
	// ErrConfigServiceUnavailable means the settings store did not answer.
	ErrConfigServiceUnavailable = errors.New("configuration service unavailable")
	// ErrDetached is returned to the parent after a background child took
	// over.
	ErrDetached = errors.New("continuing in background")
)

// InstanceLock is the single-instance name claim.
type InstanceLock interface {
	Name() string
	Claim(ctx context.Context) (bus.ClaimResult, error)
	Release() error
}

// ConfigService is the settings store connection.
type ConfigService interface {
	Connect(ctx context.Context) error
	Disconnect()
}

// SessionBridge is the session manager client.
type SessionBridge interface {
	OnQuit(fn func(source string))
	Connect(ctx context.Context) (session.State, error)
	Disconnect()
}

// AutostartFlag is the autostart Hidden key.
type AutostartFlag interface {
	Reconcile(resumed bool) (bool, error)
}

// Detacher moves the process into the background.
type Detacher interface {
	MaybeDetach(foreground bool) (detach.Outcome, error)
}

// SignalBridge routes OS signals to a callback.
type SignalBridge interface {
	Arm(notify func(os.Signal), sigs ...os.Signal) error
	Disarm()
}

// Deps are the orchestrator's collaborators.
type Deps struct {
	Lock      InstanceLock
	Config    ConfigService
	Session   SessionBridge
	Autostart AutostartFlag
	Detacher  Detacher
	Signals   SignalBridge
	// Subsystems builds the registry. It is called only once the instance
	// name is held and the process will not detach.
	Subsystems func() *subsystem.Registry
	Logger     *slog.Logger
}

// Options tune a run.
type Options struct {
	// Foreground skips detaching (--debug).
	Foreground bool
	Signals    []os.Signal
}

// Orchestrator runs the helper lifecycle once.
type Orchestrator struct {
	deps   Deps
	opts   Options
	loop   *runloop.Loop
	logger *slog.Logger

	mu       sync.Mutex
	registry *subsystem.Registry
}

// New validates deps and returns an orchestrator ready to Run.
func New(deps Deps, opts Options) (*Orchestrator, error) {
	switch {
	case deps.Lock == nil:
		return nil, errors.New("daemon requires an instance lock")
	case deps.Config == nil:
		return nil, errors.New("daemon requires a configuration service")
	case deps.Session == nil:
		return nil, errors.New("daemon requires a session bridge")
	case deps.Autostart == nil:
		return nil, errors.New("daemon requires an autostart flag")
	case deps.Detacher == nil:
		return nil, errors.New("daemon requires a detacher")
	case deps.Signals == nil:
		return nil, errors.New("daemon requires a signal bridge")
	case deps.Subsystems == nil:
		return nil, errors.New("daemon requires a subsystem factory")
	}
	return &Orchestrator{
		deps:   deps,
		opts:   opts,
		loop:   runloop.New(),
		logger: logging.NewComponentLogger(deps.Logger, "daemon"),
	}, nil
}

// State reports the run loop state.
func (o *Orchestrator) State() runloop.State {
	return o.loop.State()
}

// Registry returns the subsystem registry once subsystems were started.
func (o *Orchestrator) Registry() *subsystem.Registry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.registry
}

// RequestShutdown asks a running orchestrator to stop. Only the first
// request counts; it is safe from any goroutine and at any time.
func (o *Orchestrator) RequestShutdown(source string) bool {
	accepted := o.loop.Request(source)
	if accepted {
		o.logger.Debug("shutdown requested", logging.String(logging.FieldSource, source))
	}
	return accepted
}

// Run executes the lifecycle and blocks until shutdown completes.
// ErrAlreadyRunning and ErrDetached are benign outcomes.
func (o *Orchestrator) Run(ctx context.Context) error {
	result, err := o.deps.Lock.Claim(ctx)
	switch result {
	case bus.Acquired:
	case bus.AlreadyOwned:
		return ErrAlreadyRunning
	default:
		if err == nil {
			return ErrBusUnavailable
		}
		return fmt.Errorf("%w: %w", ErrBusUnavailable, err)
	}
	o.logger.Debug("instance name claimed", logging.String(logging.FieldBusName, o.deps.Lock.Name()))

	if err := o.deps.Config.Connect(ctx); err != nil {
		_ = o.deps.Lock.Release()
		return fmt.Errorf("%w: %w", ErrConfigServiceUnavailable, err)
	}

	resumed := o.connectSession(ctx)
	o.reconcileAutostart(resumed)

	if o.maybeDetach() == detach.Spawned {
		o.releaseAll()
		return ErrDetached
	}

	registry := o.deps.Subsystems()
	o.mu.Lock()
	o.registry = registry
	o.mu.Unlock()
	started := registry.StartAll(ctx)

	o.armSignals()

	o.logger.Info("settings helper running",
		logging.Int("subsystems", len(started)),
		logging.Bool("resumed", resumed),
	)
	req := o.loop.Run(ctx)
	o.logger.Info("settings helper shutting down", logging.String(logging.FieldSource, req.Source))

	registry.StopAll(started)
	o.releaseAll()
	o.deps.Signals.Disarm()
	o.loop.Terminate()
	return nil
}

func (o *Orchestrator) connectSession(ctx context.Context) bool {
	o.deps.Session.OnQuit(func(source string) {
		o.RequestShutdown(source)
	})
	state, err := o.deps.Session.Connect(ctx)
	switch {
	case err == nil:
		return state.Resumed
	case errors.Is(err, session.ErrDisabled):
		o.logger.Debug("session integration disabled")
	default:
		logging.WarnWithContext(o.logger, "session manager unavailable", "session_connect_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "start the helper from a session manager to enable restarts"),
			logging.String(logging.FieldImpact, "helper will not be restarted by the session"),
		)
	}
	return false
}

func (o *Orchestrator) reconcileAutostart(resumed bool) {
	if _, err := o.deps.Autostart.Reconcile(resumed); err != nil {
		logging.WarnWithContext(o.logger, "autostart entry not updated", "autostart_update_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the autostart directory"),
			logging.String(logging.FieldImpact, "the helper may start twice at next login"),
		)
	}
}

func (o *Orchestrator) maybeDetach() detach.Outcome {
	outcome, err := o.deps.Detacher.MaybeDetach(o.opts.Foreground)
	if err != nil {
		logging.WarnWithContext(o.logger, "failed to detach", "detach_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "helper keeps running attached to the terminal"),
		)
		return detach.Attached
	}
	o.logger.Debug("detach outcome", logging.String("outcome", outcome.String()))
	return outcome
}

func (o *Orchestrator) armSignals() {
	err := o.deps.Signals.Arm(func(sig os.Signal) {
		o.RequestShutdown("signal:" + sig.String())
	}, o.opts.Signals...)
	if err != nil {
		logging.WarnWithContext(o.logger, "signal handlers not installed", "signal_arm_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "SIGTERM ends the helper without teardown"),
		)
	}
}

// releaseAll gives back the name before dropping the service connections.
func (o *Orchestrator) releaseAll() {
	_ = o.deps.Lock.Release()
	o.deps.Config.Disconnect()
	o.deps.Session.Disconnect()
}
