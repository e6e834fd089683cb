package helpers

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"

	"settingsd/internal/hotplug"
	"settingsd/internal/logging"
	"settingsd/internal/xfconf"
)

// Store is the part of the xfconf client helpers use.
type Store interface {
	Properties(ctx context.Context, channel, base string) (map[string]any, error)
	Watch(channel string, fn func(xfconf.Change)) func()
}

// Applier pushes a channel snapshot to the desktop. reason names the trigger:
// "startup", "property" or "hotplug".
type Applier func(ctx context.Context, name string, snapshot map[string]any, reason string) error

// Spec describes one channel-following subsystem.
type Spec struct {
	Name    string
	Channel string
	Base    string
	Hotplug []hotplug.Rule
}

// Option customizes a Helper.
type Option func(*Helper)

// WithApplier replaces the default applier, which only logs.
func WithApplier(apply Applier) Option {
	return func(h *Helper) {
		if apply != nil {
			h.apply = apply
		}
	}
}

// WithHotplug toggles the udev monitor for specs that declare rules.
func WithHotplug(enabled bool) Option {
	return func(h *Helper) {
		h.hotplugEnabled = enabled
	}
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Helper) {
		h.logger = logging.NewComponentLogger(logger, h.spec.Name)
	}
}

// Helper is a subsystem.Subsystem following one xfconf channel.
type Helper struct {
	spec           Spec
	store          Store
	apply          Applier
	hotplugEnabled bool
	logger         *slog.Logger

	mu       sync.Mutex
	ctx      context.Context
	snapshot map[string]any
	unwatch  func()
	monitor  *hotplug.Monitor
	applied  int
}

// New builds a helper for spec backed by store.
func New(spec Spec, store Store, opts ...Option) *Helper {
	h := &Helper{
		spec:           spec,
		store:          store,
		hotplugEnabled: true,
		logger:         logging.NewComponentLogger(nil, spec.Name),
	}
	h.apply = h.logApply
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Helper) Name() string { return h.spec.Name }

// Spec returns the helper's description.
func (h *Helper) Spec() Spec { return h.spec }

// Start loads the channel and subscribes to changes. A failed load is
// returned after the subscription is in place so later changes still apply.
func (h *Helper) Start(ctx context.Context) error {
	h.mu.Lock()
	h.ctx = context.WithoutCancel(ctx)
	h.snapshot = make(map[string]any)
	h.mu.Unlock()

	h.unwatch = h.store.Watch(h.spec.Channel, h.onChange)

	if h.hotplugEnabled && len(h.spec.Hotplug) > 0 {
		h.monitor = hotplug.NewMonitor(h.spec.Name, h.spec.Hotplug, h.onDevice, h.logger)
		_ = h.monitor.Start(ctx)
	}

	props, err := h.store.Properties(ctx, h.spec.Channel, h.spec.Base)
	if err != nil {
		return fmt.Errorf("load channel %s: %w", h.spec.Channel, err)
	}
	h.mu.Lock()
	maps.Copy(h.snapshot, props)
	h.mu.Unlock()

	h.logger.Debug("channel loaded",
		logging.String(logging.FieldChannel, h.spec.Channel),
		logging.Int("properties", len(props)),
	)
	h.reapply("startup")
	return nil
}

// Stop drops the subscription and the udev monitor.
func (h *Helper) Stop() error {
	if h.unwatch != nil {
		h.unwatch()
		h.unwatch = nil
	}
	h.monitor.Stop()
	h.monitor = nil
	return nil
}

// Snapshot returns a copy of the tracked properties.
func (h *Helper) Snapshot() map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return maps.Clone(h.snapshot)
}

// Applied returns how many times the applier ran.
func (h *Helper) Applied() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.applied
}

func (h *Helper) onChange(change xfconf.Change) {
	if h.spec.Base != "" && h.spec.Base != "/" && !strings.HasPrefix(change.Property, h.spec.Base) {
		return
	}
	h.mu.Lock()
	if h.snapshot == nil {
		h.mu.Unlock()
		return
	}
	if change.Removed {
		delete(h.snapshot, change.Property)
	} else {
		h.snapshot[change.Property] = change.Value
	}
	h.mu.Unlock()
	h.reapply("property")
}

func (h *Helper) onDevice(_ context.Context, ev hotplug.Event) {
	h.logger.Debug("device added", logging.String("device", ev.Device))
	h.reapply("hotplug")
}

func (h *Helper) reapply(reason string) {
	h.mu.Lock()
	ctx := h.ctx
	snapshot := maps.Clone(h.snapshot)
	h.applied++
	h.mu.Unlock()

	if err := h.apply(ctx, h.spec.Name, snapshot, reason); err != nil {
		logging.WarnWithContext(h.logger, "applying settings failed", "settings_apply_failed",
			logging.String("reason", reason),
			logging.Error(err),
			logging.String(logging.FieldImpact, "desktop may not reflect "+h.spec.Channel+" settings"),
		)
	}
}

func (h *Helper) logApply(_ context.Context, name string, snapshot map[string]any, reason string) error {
	h.logger.Debug("settings applied",
		logging.String(logging.FieldChannel, h.spec.Channel),
		logging.String("reason", reason),
		logging.Int("properties", len(snapshot)),
	)
	return nil
}
