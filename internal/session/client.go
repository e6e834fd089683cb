package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"

	"settingsd/internal/bus"
	"settingsd/internal/logging"
)

const (
	autostartIDEnv    = "DESKTOP_AUTOSTART_ID"
	unregisterTimeout = 2 * time.Second
)

// ErrDisabled is returned by Connect when session integration is turned off.
var ErrDisabled = errors.New("session integration disabled")

// RestartPolicy tells the session manager what to do when the client exits.
type RestartPolicy int

const (
	RestartIfRunning RestartPolicy = iota
	RestartAnyway
	RestartImmediately
	RestartNever
)

func (p RestartPolicy) String() string {
	switch p {
	case RestartAnyway:
		return "anyway"
	case RestartImmediately:
		return "immediately"
	case RestartNever:
		return "never"
	default:
		return "if_running"
	}
}

// State is fixed once Connect returns.
type State struct {
	Resumed       bool
	RestartPolicy RestartPolicy
	ClientID      string
	Connected     bool
	ObjectPath    dbus.ObjectPath
}

// Options configures the session manager client.
type Options struct {
	Service         string
	Path            dbus.ObjectPath
	Interface       string
	ClientInterface string
	AppID           string
	// PreviousClientID is the id the session manager restored this client
	// with. A non-empty value marks the run as resumed.
	PreviousClientID string
	Disabled         bool
	RestartPolicy    RestartPolicy
}

// Client is a session manager client registration.
type Client struct {
	conn   bus.Conn
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	onQuit  func(source string)
	signals chan *dbus.Signal
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewClient builds an unregistered client.
func NewClient(conn bus.Conn, opts Options, logger *slog.Logger) *Client {
	return &Client{
		conn:   conn,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "session"),
		state:  State{RestartPolicy: opts.RestartPolicy},
	}
}

// OnQuit sets the callback invoked when the session manager asks the helper
// to exit. It may fire more than once and from the signal goroutine.
func (c *Client) OnQuit(fn func(source string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onQuit = fn
}

// Connect registers with the session manager. On error the returned state
// reports Resumed=false and the helper keeps running without a session.
func (c *Client) Connect(ctx context.Context) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Connected {
		return c.state, nil
	}
	if c.opts.Disabled {
		return c.state, ErrDisabled
	}
	if c.conn == nil {
		return c.state, bus.ErrNotConnected
	}

	clientID := c.startupID()
	var clientPath dbus.ObjectPath
	manager := c.conn.Object(c.opts.Service, c.opts.Path)
	call := manager.CallWithContext(ctx, c.opts.Interface+".RegisterClient", 0, c.opts.AppID, clientID)
	if err := call.Store(&clientPath); err != nil {
		return c.state, fmt.Errorf("register with %s: %w", c.opts.Service, err)
	}
	if err := c.conn.AddMatchSignal(
		dbus.WithMatchObjectPath(clientPath),
		dbus.WithMatchInterface(c.opts.ClientInterface),
	); err != nil {
		c.unregister(clientPath)
		return c.state, fmt.Errorf("subscribe client signals: %w", err)
	}

	c.signals = make(chan *dbus.Signal, 8)
	c.done = make(chan struct{})
	c.conn.Signal(c.signals)
	c.wg.Add(1)
	go c.dispatch(clientPath, c.signals, c.done)

	c.state = State{
		Resumed:       c.opts.PreviousClientID != "",
		RestartPolicy: c.opts.RestartPolicy,
		ClientID:      clientID,
		Connected:     true,
		ObjectPath:    clientPath,
	}
	c.logger.Info("registered with session manager",
		logging.String("client_id", clientID),
		logging.Bool("resumed", c.state.Resumed),
		logging.String("restart_policy", c.state.RestartPolicy.String()),
	)
	return c.state, nil
}

// startupID picks the client id: the restored id first, then the id the
// session manager exported for autostarted apps, then a fresh one.
func (c *Client) startupID() string {
	if id := strings.TrimSpace(c.opts.PreviousClientID); id != "" {
		return id
	}
	if id := strings.TrimSpace(os.Getenv(autostartIDEnv)); id != "" {
		_ = os.Unsetenv(autostartIDEnv)
		return id
	}
	return uuid.NewString()
}

// Resumed reports whether this run resumes a saved session.
func (c *Client) Resumed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Resumed
}

// State returns the connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Disconnect unregisters the client. Safe to call when not connected.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if !c.state.Connected {
		c.mu.Unlock()
		return
	}
	clientPath := c.state.ObjectPath
	c.state.Connected = false
	c.conn.RemoveSignal(c.signals)
	if err := c.conn.RemoveMatchSignal(
		dbus.WithMatchObjectPath(clientPath),
		dbus.WithMatchInterface(c.opts.ClientInterface),
	); err != nil {
		c.logger.Debug("remove match rule failed", logging.Error(err))
	}
	close(c.done)
	c.mu.Unlock()

	c.wg.Wait()
	c.unregister(clientPath)
}

func (c *Client) unregister(clientPath dbus.ObjectPath) {
	ctx, cancel := context.WithTimeout(context.Background(), unregisterTimeout)
	defer cancel()
	manager := c.conn.Object(c.opts.Service, c.opts.Path)
	if err := manager.CallWithContext(ctx, c.opts.Interface+".UnregisterClient", 0, clientPath).Err; err != nil {
		c.logger.Debug("unregister client failed", logging.Error(err))
	}
}

func (c *Client) dispatch(clientPath dbus.ObjectPath, signals <-chan *dbus.Signal, done <-chan struct{}) {
	defer c.wg.Done()
	for {
		select {
		case <-done:
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			if sig == nil || sig.Path != clientPath {
				continue
			}
			c.handle(clientPath, sig)
		}
	}
}

func (c *Client) handle(clientPath dbus.ObjectPath, sig *dbus.Signal) {
	member := strings.TrimPrefix(sig.Name, c.opts.ClientInterface+".")
	c.logger.Debug("session manager signal", logging.String(logging.FieldSignal, member))
	switch member {
	case "QueryEndSession":
		c.respond(clientPath)
	case "EndSession":
		c.respond(clientPath)
		c.quit("end-session")
	case "Stop":
		c.quit("session-stop")
	case "CancelEndSession":
	}
}

func (c *Client) respond(clientPath dbus.ObjectPath) {
	client := c.conn.Object(c.opts.Service, clientPath)
	if err := client.Call(c.opts.ClientInterface+".EndSessionResponse", 0, true, "").Err; err != nil {
		logging.WarnWithContext(c.logger, "end session response failed", "session_response_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "session manager may wait for its timeout before logging out"),
		)
	}
}

func (c *Client) quit(source string) {
	c.mu.Lock()
	fn := c.onQuit
	c.mu.Unlock()
	if fn != nil {
		fn(source)
	}
}
