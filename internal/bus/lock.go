package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"settingsd/internal/logging"
)

const nameAcquiredSignal = "org.freedesktop.DBus.NameAcquired"

// ErrNotConnected reports a claim attempted without a bus connection.
var ErrNotConnected = errors.New("session bus not connected")

// ClaimResult is the outcome of a name claim.
type ClaimResult int

const (
	// BusUnavailable means the bus could not be reached or refused the request.
	BusUnavailable ClaimResult = iota
	// Acquired means this process is now the primary owner.
	Acquired
	// AlreadyOwned means another process holds the name.
	AlreadyOwned
)

func (r ClaimResult) String() string {
	switch r {
	case Acquired:
		return "acquired"
	case AlreadyOwned:
		return "already_owned"
	default:
		return "bus_unavailable"
	}
}

// LockOptions configures an InstanceLock.
type LockOptions struct {
	Name string
	// Handoff queues behind the current owner and waits up to HandoffTimeout
	// for it to exit.
	Handoff        bool
	HandoffTimeout time.Duration
}

// InstanceLock claims a well-known name on the session bus.
type InstanceLock struct {
	conn   Conn
	opts   LockOptions
	logger *slog.Logger

	mu       sync.Mutex
	held     bool
	released bool
}

// NewInstanceLock builds a lock for opts.Name. A nil conn yields
// BusUnavailable on Claim.
func NewInstanceLock(conn Conn, opts LockOptions, logger *slog.Logger) *InstanceLock {
	return &InstanceLock{
		conn:   conn,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "instance-lock"),
	}
}

// Name returns the claimed bus name.
func (l *InstanceLock) Name() string {
	return l.opts.Name
}

// Held reports whether this process currently owns the name.
func (l *InstanceLock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

// Claim requests the name. The error is non-nil only with BusUnavailable.
func (l *InstanceLock) Claim(ctx context.Context) (ClaimResult, error) {
	if l.conn == nil {
		return BusUnavailable, ErrNotConnected
	}
	if l.opts.Handoff {
		return l.claimHandoff(ctx)
	}

	reply, err := l.conn.RequestName(l.opts.Name, dbus.NameFlagDoNotQueue)
	if err != nil {
		return BusUnavailable, fmt.Errorf("request name %s: %w", l.opts.Name, err)
	}
	switch reply {
	case dbus.RequestNameReplyPrimaryOwner, dbus.RequestNameReplyAlreadyOwner:
		l.markHeld()
		return Acquired, nil
	default:
		l.logger.Debug("bus name owned elsewhere",
			logging.String(logging.FieldBusName, l.opts.Name),
			logging.Int("reply", int(reply)),
		)
		return AlreadyOwned, nil
	}
}

func (l *InstanceLock) claimHandoff(ctx context.Context) (ClaimResult, error) {
	signals := make(chan *dbus.Signal, 8)
	l.conn.Signal(signals)
	defer l.conn.RemoveSignal(signals)

	reply, err := l.conn.RequestName(l.opts.Name, 0)
	if err != nil {
		return BusUnavailable, fmt.Errorf("request name %s: %w", l.opts.Name, err)
	}
	switch reply {
	case dbus.RequestNameReplyPrimaryOwner, dbus.RequestNameReplyAlreadyOwner:
		l.markHeld()
		return Acquired, nil
	case dbus.RequestNameReplyInQueue:
	default:
		return AlreadyOwned, nil
	}

	l.logger.Debug("waiting for bus name handoff",
		logging.String(logging.FieldBusName, l.opts.Name),
		logging.Duration("timeout", l.opts.HandoffTimeout),
	)
	timer := time.NewTimer(l.opts.HandoffTimeout)
	defer timer.Stop()
	for {
		select {
		case sig, ok := <-signals:
			if !ok {
				return BusUnavailable, ErrNotConnected
			}
			if isNameAcquired(sig, l.opts.Name) {
				l.markHeld()
				return Acquired, nil
			}
		case <-timer.C:
			l.leaveQueue()
			return AlreadyOwned, nil
		case <-ctx.Done():
			l.leaveQueue()
			return AlreadyOwned, ctx.Err()
		}
	}
}

func (l *InstanceLock) leaveQueue() {
	if _, err := l.conn.ReleaseName(l.opts.Name); err != nil {
		l.logger.Debug("leave name queue failed", logging.Error(err))
	}
}

func isNameAcquired(sig *dbus.Signal, name string) bool {
	if sig == nil || sig.Name != nameAcquiredSignal || len(sig.Body) == 0 {
		return false
	}
	acquired, ok := sig.Body[0].(string)
	return ok && acquired == name
}

func (l *InstanceLock) markHeld() {
	l.mu.Lock()
	l.held = true
	l.mu.Unlock()
	l.logger.Debug("bus name acquired", logging.String(logging.FieldBusName, l.opts.Name))
}

// Release gives the name back. Only the first call after a successful claim
// talks to the bus; failures are logged and returned.
func (l *InstanceLock) Release() error {
	l.mu.Lock()
	if !l.held || l.released {
		l.mu.Unlock()
		return nil
	}
	l.released = true
	l.held = false
	l.mu.Unlock()

	reply, err := l.conn.ReleaseName(l.opts.Name)
	if err != nil {
		logging.WarnWithContext(l.logger, "release bus name failed", "bus_name_release_failed",
			logging.String(logging.FieldBusName, l.opts.Name),
			logging.Error(err),
			logging.String(logging.FieldImpact, "the bus drops the name when the connection closes"),
		)
		return fmt.Errorf("release name %s: %w", l.opts.Name, err)
	}
	if reply != dbus.ReleaseNameReplyReleased {
		l.logger.Debug("bus name was not owned at release",
			logging.String(logging.FieldBusName, l.opts.Name),
			logging.Int("reply", int(reply)),
		)
	}
	return nil
}
