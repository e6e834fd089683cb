package detach

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"

	"settingsd/internal/logging"
)

// EnvMarker is set in the child's environment to the parent's pid.
const EnvMarker = "SETTINGSD_DETACHED"

// Outcome is the result of MaybeDetach.
type Outcome int

const (
	// Attached means the process keeps running where it was started.
	Attached Outcome = iota
	// Detached means this process is the re-executed background child.
	Detached
	// Spawned means a background child was started and this process should
	// exit.
	Spawned
)

func (o Outcome) String() string {
	switch o {
	case Detached:
		return "detached"
	case Spawned:
		return "spawned"
	default:
		return "attached"
	}
}

// Spawner starts the background child.
type Spawner interface {
	Spawn(binary string, args, env []string) (int, error)
}

// Options configures a Daemonizer. Zero values use the running process.
type Options struct {
	Spawner    Spawner
	Executable string
	Args       []string
	Env        []string
}

// Daemonizer decides whether to re-exec into the background.
type Daemonizer struct {
	spawner    Spawner
	executable string
	args       []string
	env        []string
	parentPID  int
	logger     *slog.Logger
}

// New captures the process identity at construction so the marker check is
// stable even if the environment changes later.
func New(opts Options, logger *slog.Logger) *Daemonizer {
	d := &Daemonizer{
		spawner:    opts.Spawner,
		executable: opts.Executable,
		args:       opts.Args,
		env:        opts.Env,
		logger:     logging.NewComponentLogger(logger, "detach"),
	}
	if d.spawner == nil {
		d.spawner = ExecSpawner{}
	}
	if d.args == nil && len(os.Args) > 1 {
		d.args = append([]string(nil), os.Args[1:]...)
	}
	if d.env == nil {
		d.env = os.Environ()
	}
	d.parentPID = markerPID(d.env)
	return d
}

func markerPID(env []string) int {
	for _, kv := range env {
		value, ok := strings.CutPrefix(kv, EnvMarker+"=")
		if !ok {
			continue
		}
		pid, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || pid <= 0 {
			return 0
		}
		return pid
	}
	return 0
}

// Child reports whether this process is a re-executed background child.
func (d *Daemonizer) Child() bool {
	return d.parentPID > 0
}

// ParentPID returns the pid recorded by the parent, or 0.
func (d *Daemonizer) ParentPID() int {
	return d.parentPID
}

// MaybeDetach re-executes the process in the background unless foreground is
// set or this process already is the child. On error the process stays
// attached.
func (d *Daemonizer) MaybeDetach(foreground bool) (Outcome, error) {
	if foreground {
		return Attached, nil
	}
	if d.Child() {
		d.logger.Debug("running detached", logging.Int("parent_pid", d.parentPID))
		return Detached, nil
	}

	binary := d.executable
	if binary == "" {
		exe, err := os.Executable()
		if err != nil {
			return Attached, fmt.Errorf("resolve executable: %w", err)
		}
		binary = exe
	}

	env := make([]string, 0, len(d.env)+1)
	for _, kv := range d.env {
		if !strings.HasPrefix(kv, EnvMarker+"=") {
			env = append(env, kv)
		}
	}
	env = append(env, EnvMarker+"="+strconv.Itoa(os.Getpid()))

	pid, err := d.spawner.Spawn(binary, d.args, env)
	if err != nil {
		return Attached, fmt.Errorf("spawn background process: %w", err)
	}
	d.logger.Debug("background process started", logging.Int("pid", pid))
	return Spawned, nil
}

// ExecSpawner starts the child with os/exec in a new session.
type ExecSpawner struct{}

func (ExecSpawner) Spawn(binary string, args, env []string) (int, error) {
	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", os.DevNull, err)
	}
	defer devNull.Close()

	cmd := exec.Command(binary, args...)
	cmd.Env = env
	cmd.Stdin = devNull
	cmd.Stdout = detachedOutput(os.Stdout, devNull)
	cmd.Stderr = detachedOutput(os.Stderr, devNull)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, err
	}
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("release child process: %w", err)
	}
	return pid, nil
}

// detachedOutput keeps redirected output (log files, journald pipes) and
// swaps a controlling terminal for /dev/null.
func detachedOutput(current, devNull *os.File) *os.File {
	if current == nil {
		return devNull
	}
	fd := current.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return devNull
	}
	return current
}
