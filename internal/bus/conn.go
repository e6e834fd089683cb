package bus

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

// Conn is the subset of *dbus.Conn used by settingsd components.
type Conn interface {
	RequestName(name string, flags dbus.RequestNameFlags) (dbus.RequestNameReply, error)
	ReleaseName(name string) (dbus.ReleaseNameReply, error)
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
	AddMatchSignal(options ...dbus.MatchOption) error
	RemoveMatchSignal(options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
	Close() error
}

var _ Conn = (*dbus.Conn)(nil)

// ConnectSession opens a private connection to the session bus. The returned
// interface is nil when the bus cannot be reached.
func ConnectSession() (Conn, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return conn, nil
}
