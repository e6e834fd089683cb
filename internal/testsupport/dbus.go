package testsupport

import (
	"context"
	"sync"

	"github.com/godbus/dbus/v5"
)

// MethodHandler answers a fake D-Bus method call.
type MethodHandler func(args ...any) ([]any, error)

// FakeCall records one method invocation on a FakeObject.
type FakeCall struct {
	Method string
	Args   []any
}

// FakeObject is an in-memory dbus.BusObject. Only Call and CallWithContext
// are implemented; the embedded interface panics for anything else.
type FakeObject struct {
	dbus.BusObject

	dest string
	path dbus.ObjectPath

	mu       sync.Mutex
	handlers map[string]MethodHandler
	calls    []FakeCall
}

// Handle registers the handler for a fully qualified method name.
func (o *FakeObject) Handle(method string, handler MethodHandler) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handlers[method] = handler
}

// Calls returns the recorded invocations.
func (o *FakeObject) Calls() []FakeCall {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]FakeCall(nil), o.calls...)
}

// CallCount returns how often method was invoked.
func (o *FakeObject) CallCount(method string) int {
	count := 0
	for _, call := range o.Calls() {
		if call.Method == method {
			count++
		}
	}
	return count
}

func (o *FakeObject) Call(method string, flags dbus.Flags, args ...any) *dbus.Call {
	return o.CallWithContext(context.Background(), method, flags, args...)
}

func (o *FakeObject) CallWithContext(ctx context.Context, method string, _ dbus.Flags, args ...any) *dbus.Call {
	o.mu.Lock()
	o.calls = append(o.calls, FakeCall{Method: method, Args: args})
	handler := o.handlers[method]
	o.mu.Unlock()

	call := &dbus.Call{Destination: o.dest, Path: o.path, Method: method, Args: args}
	if err := ctx.Err(); err != nil {
		call.Err = err
		return call
	}
	if handler == nil {
		call.Err = dbus.Error{Name: "org.freedesktop.DBus.Error.UnknownMethod", Body: []any{method}}
		return call
	}
	call.Body, call.Err = handler(args...)
	return call
}

func (o *FakeObject) Destination() string { return o.dest }

func (o *FakeObject) Path() dbus.ObjectPath { return o.path }

// FakeConn is an in-memory session bus connection for tests.
type FakeConn struct {
	mu       sync.Mutex
	owners   map[string]bool
	objects  map[string]*FakeObject
	signals  []chan<- *dbus.Signal
	matches  int
	closed   bool
	released []string

	// RequestNameFunc overrides the default ownership bookkeeping.
	RequestNameFunc func(name string, flags dbus.RequestNameFlags) (dbus.RequestNameReply, error)
	// ReleaseNameErr is returned by ReleaseName when set.
	ReleaseNameErr error
	// AddMatchErr is returned by AddMatchSignal when set.
	AddMatchErr error
}

// NewFakeConn returns an empty fake bus.
func NewFakeConn() *FakeConn {
	return &FakeConn{
		owners:  make(map[string]bool),
		objects: make(map[string]*FakeObject),
	}
}

// SetOwnedElsewhere marks name as held by another connection.
func (c *FakeConn) SetOwnedElsewhere(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.owners[name] = false
}

func (c *FakeConn) RequestName(name string, flags dbus.RequestNameFlags) (dbus.RequestNameReply, error) {
	if c.RequestNameFunc != nil {
		return c.RequestNameFunc(name, flags)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	mine, owned := c.owners[name]
	switch {
	case owned && mine:
		return dbus.RequestNameReplyAlreadyOwner, nil
	case owned && flags&dbus.NameFlagDoNotQueue != 0:
		return dbus.RequestNameReplyExists, nil
	case owned:
		return dbus.RequestNameReplyInQueue, nil
	}
	c.owners[name] = true
	return dbus.RequestNameReplyPrimaryOwner, nil
}

func (c *FakeConn) ReleaseName(name string) (dbus.ReleaseNameReply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.released = append(c.released, name)
	if c.ReleaseNameErr != nil {
		return 0, c.ReleaseNameErr
	}
	if mine, ok := c.owners[name]; ok && mine {
		delete(c.owners, name)
		return dbus.ReleaseNameReplyReleased, nil
	}
	return dbus.ReleaseNameReplyNotOwner, nil
}

// Released lists every name passed to ReleaseName.
func (c *FakeConn) Released() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.released...)
}

// Owns reports whether this connection is the primary owner of name.
func (c *FakeConn) Owns(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owners[name]
}

// Object returns the fake for dest and path, creating it on first use.
func (c *FakeConn) Object(dest string, path dbus.ObjectPath) dbus.BusObject {
	return c.FakeObject(dest, path)
}

// FakeObject is Object with the concrete type.
func (c *FakeConn) FakeObject(dest string, path dbus.ObjectPath) *FakeObject {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := dest + string(path)
	obj, ok := c.objects[key]
	if !ok {
		obj = &FakeObject{dest: dest, path: path, handlers: make(map[string]MethodHandler)}
		c.objects[key] = obj
	}
	return obj
}

func (c *FakeConn) AddMatchSignal(...dbus.MatchOption) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.AddMatchErr != nil {
		return c.AddMatchErr
	}
	c.matches++
	return nil
}

func (c *FakeConn) RemoveMatchSignal(...dbus.MatchOption) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.matches > 0 {
		c.matches--
	}
	return nil
}

// Matches returns the number of active match rules.
func (c *FakeConn) Matches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.matches
}

func (c *FakeConn) Signal(ch chan<- *dbus.Signal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signals = append(c.signals, ch)
}

func (c *FakeConn) RemoveSignal(ch chan<- *dbus.Signal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.signals {
		if existing == ch {
			c.signals = append(c.signals[:i], c.signals[i+1:]...)
			return
		}
	}
}

// Subscribers returns the number of registered signal channels.
func (c *FakeConn) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.signals)
}

// Emit delivers sig to every registered channel.
func (c *FakeConn) Emit(sig *dbus.Signal) {
	c.mu.Lock()
	targets := append([]chan<- *dbus.Signal(nil), c.signals...)
	c.mu.Unlock()
	for _, ch := range targets {
		ch <- sig
	}
}

func (c *FakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Closed reports whether Close was called.
func (c *FakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
