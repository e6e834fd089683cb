package xfconf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"

	"settingsd/internal/bus"
	"settingsd/internal/logging"
)

const (
	peerPing          = "org.freedesktop.DBus.Peer.Ping"
	memberChanged     = "PropertyChanged"
	memberRemoved     = "PropertyRemoved"
	signalBufferDepth = 32
)

// ErrUnavailable reports that the settings daemon did not answer.
var ErrUnavailable = errors.New("xfconf service unavailable")

// Options locates the settings daemon on the bus.
type Options struct {
	Service   string
	Path      dbus.ObjectPath
	Interface string
}

// Change describes one property update delivered to watchers.
type Change struct {
	Channel  string
	Property string
	Value    any
	Removed  bool
}

// Client is a connection-scoped xfconf client.
type Client struct {
	conn   bus.Conn
	opts   Options
	logger *slog.Logger

	mu        sync.Mutex
	watchers  map[string]map[int]func(Change)
	nextID    int
	connected bool
	signals   chan *dbus.Signal
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewClient builds a client; nothing is sent until Connect.
func NewClient(conn bus.Conn, opts Options, logger *slog.Logger) *Client {
	return &Client{
		conn:     conn,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "xfconf"),
		watchers: make(map[string]map[int]func(Change)),
	}
}

func (c *Client) object() dbus.BusObject {
	return c.conn.Object(c.opts.Service, c.opts.Path)
}

func (c *Client) matchOptions(member string) []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchObjectPath(c.opts.Path),
		dbus.WithMatchInterface(c.opts.Interface),
		dbus.WithMatchMember(member),
	}
}

// Connect pings the daemon and starts signal dispatch. Calling Connect on a
// connected client is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return nil
	}
	if c.conn == nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, bus.ErrNotConnected)
	}
	if err := c.object().CallWithContext(ctx, peerPing, 0).Err; err != nil {
		return fmt.Errorf("%w: ping %s: %w", ErrUnavailable, c.opts.Service, err)
	}
	if err := c.conn.AddMatchSignal(c.matchOptions(memberChanged)...); err != nil {
		return fmt.Errorf("subscribe %s: %w", memberChanged, err)
	}
	if err := c.conn.AddMatchSignal(c.matchOptions(memberRemoved)...); err != nil {
		_ = c.conn.RemoveMatchSignal(c.matchOptions(memberChanged)...)
		return fmt.Errorf("subscribe %s: %w", memberRemoved, err)
	}

	c.signals = make(chan *dbus.Signal, signalBufferDepth)
	c.done = make(chan struct{})
	c.conn.Signal(c.signals)
	c.connected = true

	c.wg.Add(1)
	go c.dispatch(c.signals, c.done)

	c.logger.Debug("xfconf connected", logging.String("service", c.opts.Service))
	return nil
}

// Disconnect stops signal dispatch and drops subscriptions.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	c.connected = false
	c.conn.RemoveSignal(c.signals)
	for _, member := range []string{memberChanged, memberRemoved} {
		if err := c.conn.RemoveMatchSignal(c.matchOptions(member)...); err != nil {
			c.logger.Debug("remove match rule failed", logging.String(logging.FieldSignal, member), logging.Error(err))
		}
	}
	close(c.done)
	c.mu.Unlock()

	c.wg.Wait()
	c.logger.Debug("xfconf disconnected")
}

// Connected reports whether Connect succeeded and Disconnect has not run.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Properties returns every property of channel under base ("/" or "" for the
// whole channel).
func (c *Client) Properties(ctx context.Context, channel, base string) (map[string]any, error) {
	if c.conn == nil {
		return nil, bus.ErrNotConnected
	}
	var raw map[string]dbus.Variant
	call := c.object().CallWithContext(ctx, c.opts.Interface+".GetAllProperties", 0, channel, base)
	if err := call.Store(&raw); err != nil {
		return nil, fmt.Errorf("get properties %s%s: %w", channel, base, err)
	}
	out := make(map[string]any, len(raw))
	for key, value := range raw {
		out[key] = value.Value()
	}
	return out, nil
}

// Property reads one property value.
func (c *Client) Property(ctx context.Context, channel, property string) (any, error) {
	if c.conn == nil {
		return nil, bus.ErrNotConnected
	}
	var value dbus.Variant
	call := c.object().CallWithContext(ctx, c.opts.Interface+".GetProperty", 0, channel, property)
	if err := call.Store(&value); err != nil {
		return nil, fmt.Errorf("get property %s%s: %w", channel, property, err)
	}
	return value.Value(), nil
}

// Watch registers fn for changes on channel and returns a function that
// removes it. Callbacks run on the dispatcher goroutine.
func (c *Client) Watch(channel string, fn func(Change)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	if c.watchers[channel] == nil {
		c.watchers[channel] = make(map[int]func(Change))
	}
	c.watchers[channel][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.watchers[channel], id)
			if len(c.watchers[channel]) == 0 {
				delete(c.watchers, channel)
			}
		})
	}
}

func (c *Client) dispatch(signals <-chan *dbus.Signal, done <-chan struct{}) {
	defer c.wg.Done()
	for {
		select {
		case <-done:
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			change, ok := c.decode(sig)
			if !ok {
				continue
			}
			c.deliver(change)
		}
	}
}

func (c *Client) decode(sig *dbus.Signal) (Change, bool) {
	if sig == nil || sig.Path != c.opts.Path || len(sig.Body) < 2 {
		return Change{}, false
	}
	var change Change
	switch sig.Name {
	case c.opts.Interface + "." + memberChanged:
		if len(sig.Body) < 3 {
			return Change{}, false
		}
		if variant, ok := sig.Body[2].(dbus.Variant); ok {
			change.Value = variant.Value()
		} else {
			change.Value = sig.Body[2]
		}
	case c.opts.Interface + "." + memberRemoved:
		change.Removed = true
	default:
		return Change{}, false
	}
	channel, ok1 := sig.Body[0].(string)
	property, ok2 := sig.Body[1].(string)
	if !ok1 || !ok2 {
		return Change{}, false
	}
	change.Channel = channel
	change.Property = property
	return change, true
}

func (c *Client) deliver(change Change) {
	c.mu.Lock()
	targets := make([]func(Change), 0, len(c.watchers[change.Channel]))
	for _, fn := range c.watchers[change.Channel] {
		targets = append(targets, fn)
	}
	c.mu.Unlock()

	c.logger.Debug("property update",
		logging.String(logging.FieldChannel, change.Channel),
		logging.String(logging.FieldProperty, change.Property),
		logging.Bool("removed", change.Removed),
		logging.Int("watchers", len(targets)),
	)
	for _, fn := range targets {
		fn(change)
	}
}
