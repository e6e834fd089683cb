package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"

	"settingsd/internal/autostart"
	"settingsd/internal/bus"
	"settingsd/internal/clipboard"
	"settingsd/internal/config"
	"settingsd/internal/daemon"
	"settingsd/internal/detach"
	"settingsd/internal/logging"
	"settingsd/internal/session"
	"settingsd/internal/signals"
	"settingsd/internal/subsystem"
	"settingsd/internal/xfconf"
)

// Options configures the helper process runtime.
type Options struct {
	// Debug keeps the process in the foreground and forces debug logging.
	Debug bool
	// SMClientID is the id the session manager restored this client with.
	SMClientID string
	// SMDisable skips session manager registration.
	SMDisable bool
	// Logger overrides the logger built from configuration.
	Logger *slog.Logger
}

// Run wires the real components into an orchestrator and runs it to
// completion. The daemon sentinel errors pass through unchanged.
func Run(ctx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	logger := opts.Logger
	if logger == nil {
		var err error
		logger, err = logging.NewFromConfig(cfg, opts.Debug)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
	}

	// The daemonizer snapshots the environment before the session client
	// consumes DESKTOP_AUTOSTART_ID so a detached child registers with the
	// same id.
	detacher := detach.New(detach.Options{}, logger)

	conn, err := bus.ConnectSession()
	if err != nil {
		logging.ErrorWithContext(logger, "session bus unavailable", "bus_connect_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check DBUS_SESSION_BUS_ADDRESS"),
		)
		return fmt.Errorf("%w: %w", daemon.ErrBusUnavailable, err)
	}
	defer conn.Close()

	store := xfconf.NewClient(conn, xfconf.Options{
		Service:   cfg.Xfconf.Service,
		Path:      dbus.ObjectPath(cfg.Xfconf.Path),
		Interface: cfg.Xfconf.Interface,
	}, logger)

	orch, err := daemon.New(daemon.Deps{
		Lock: bus.NewInstanceLock(conn, bus.LockOptions{
			Name:           cfg.Instance.BusName,
			Handoff:        detacher.Child(),
			HandoffTimeout: cfg.HandoffTimeoutDuration(),
		}, logger),
		Config: store,
		Session: session.NewClient(conn, session.Options{
			Service:          cfg.Session.ManagerService,
			Path:             dbus.ObjectPath(cfg.Session.ManagerPath),
			Interface:        cfg.Session.ManagerInterface,
			ClientInterface:  cfg.Session.ClientInterface,
			AppID:            cfg.Session.AppID,
			PreviousClientID: opts.SMClientID,
			Disabled:         opts.SMDisable,
			RestartPolicy:    session.RestartImmediately,
		}, logger),
		Autostart: newAutostartFlag(cfg, logger),
		Detacher:  detacher,
		Signals:   signals.NewBridge(),
		Subsystems: func() *subsystem.Registry {
			return subsystem.NewRegistry(logger, buildEntries(cfg, store, clipboard.SystemBackend{}, logger)...)
		},
		Logger: logger,
	}, daemon.Options{
		Foreground: opts.Debug,
		Signals:    signals.DefaultSignals,
	})
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}

	err = orch.Run(ctx)
	switch {
	case err == nil, errors.Is(err, daemon.ErrAlreadyRunning), errors.Is(err, daemon.ErrDetached):
	default:
		logging.ErrorWithContext(logger, "settings helper stopped", "daemon_run_failed", logging.Error(err))
	}
	return err
}

// unavailableFlag stands in for the autostart entry when its path cannot be
// resolved.
type unavailableFlag struct{ err error }

func (f unavailableFlag) Reconcile(bool) (bool, error) { return false, f.err }

func newAutostartFlag(cfg *config.Config, logger *slog.Logger) daemon.AutostartFlag {
	path, err := autostart.UserPath(cfg.Autostart.FileName)
	if err != nil {
		return unavailableFlag{err: err}
	}
	return autostart.NewFlag(path, autostart.SystemDirs(), logger)
}
