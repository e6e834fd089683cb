// Package hotplug watches udev for device arrivals so settings can be
// re-applied to new pointers, keyboards and outputs.
package hotplug

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"settingsd/internal/logging"
)

// Rule matches one class of uevents. Values are regular expressions as
// understood by go-udev.
type Rule struct {
	Subsystem string
	Actions   []string
	Env       map[string]string
}

// Event is a matched device event.
type Event struct {
	Action    string
	Subsystem string
	Device    string
}

// Handler receives matched events on the monitor goroutine.
type Handler func(ctx context.Context, ev Event)

// Monitor listens for udev netlink events and calls its handler for events
// matching any of its rules.
type Monitor struct {
	name    string
	rules   []Rule
	handler Handler
	logger  *slog.Logger

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// NewMonitor builds a monitor; name identifies its owner in logs.
func NewMonitor(name string, rules []Rule, handler Handler, logger *slog.Logger) *Monitor {
	return &Monitor{
		name:    name,
		rules:   rules,
		handler: handler,
		logger:  logging.NewComponentLogger(logger, "hotplug").With(logging.String(logging.FieldSubsystem, name)),
	}
}

// PointerRules match mice and touchpads being plugged in.
func PointerRules() []Rule {
	return []Rule{
		{Subsystem: "input", Actions: []string{"add"}, Env: map[string]string{"ID_INPUT_MOUSE": "1"}},
		{Subsystem: "input", Actions: []string{"add"}, Env: map[string]string{"ID_INPUT_TOUCHPAD": "1"}},
	}
}

// KeyboardRules match keyboards being plugged in.
func KeyboardRules() []Rule {
	return []Rule{
		{Subsystem: "input", Actions: []string{"add"}, Env: map[string]string{"ID_INPUT_KEYBOARD": "1"}},
	}
}

// DisplayRules match connector hotplug on DRM cards.
func DisplayRules() []Rule {
	return []Rule{
		{Subsystem: "drm", Actions: []string{"change"}, Env: map[string]string{"HOTPLUG": "1"}},
	}
}

// Start begins listening. Failing to open the netlink socket is logged and
// leaves the monitor stopped; it never returns an error to the caller.
func (m *Monitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		logging.WarnWithContext(m.logger, "failed to connect to udev netlink socket", "hotplug_connect_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that udevd is running and netlink sockets are permitted"),
			logging.String(logging.FieldImpact, "new devices get settings only after the next change"),
		)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, conn, quit)

	m.logger.Debug("hotplug monitor started")
	return nil
}

// Stop shuts down the monitor. Safe on a stopped or nil monitor.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false
	m.logger.Debug("hotplug monitor stopped")
}

// Running reports whether the monitor is active.
func (m *Monitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) monitorLoop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, m.buildMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(ctx, uevent)
		case err := <-errs:
			m.logger.Debug("udev monitor error", logging.Error(err))
		}
	}
}

func (m *Monitor) buildMatcher() netlink.Matcher {
	rules := &netlink.RuleDefinitions{}
	for _, rule := range m.rules {
		env := make(map[string]string, len(rule.Env)+1)
		for key, value := range rule.Env {
			env[key] = anchor(value)
		}
		if rule.Subsystem != "" {
			env["SUBSYSTEM"] = anchor(rule.Subsystem)
		}
		def := netlink.RuleDefinition{Env: env}
		if len(rule.Actions) > 0 {
			action := anchor(strings.Join(rule.Actions, "|"))
			def.Action = &action
		}
		rules.AddRule(def)
	}
	return rules
}

func anchor(pattern string) string {
	return "^(" + pattern + ")$"
}

func (m *Monitor) handleEvent(ctx context.Context, uevent netlink.UEvent) {
	ev := Event{
		Action:    string(uevent.Action),
		Subsystem: uevent.Env["SUBSYSTEM"],
		Device:    extractDeviceName(uevent),
	}
	m.logger.Debug("device event",
		logging.String("action", ev.Action),
		logging.String("device", ev.Device),
	)
	if m.handler == nil {
		return
	}
	m.handler(ctx, ev)
}

// extractDeviceName prefers DEVNAME and falls back to the last DEVPATH
// element.
func extractDeviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		return devname
	}
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		devpath = uevent.KObj
	}
	if devpath == "" {
		return ""
	}
	parts := strings.Split(strings.TrimSuffix(devpath, "/"), "/")
	return parts[len(parts)-1]
}
