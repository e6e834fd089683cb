package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"settingsd/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose XDG directories point into a per-test
// temp tree. XDG_CONFIG_HOME and XDG_CONFIG_DIRS are set for the test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	for _, dir := range []string{"config", "xdg", "state"} {
		if err := os.MkdirAll(filepath.Join(base, dir), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(base, "config"))
	t.Setenv("XDG_CONFIG_DIRS", filepath.Join(base, "xdg"))

	cfgVal := config.Default()
	cfgVal.Logging.File = filepath.Join(base, "state", "settingsd.log")
	cfgVal.Instance.HandoffTimeout = 1
	cfgVal.Clipboard.PollIntervalMillis = 50

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithBusName overrides the claimed bus name.
func WithBusName(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Instance.BusName = name
	}
}

// WithoutDisplays drops the optional display subsystem.
func WithoutDisplays() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Subsystems.Displays = false
	}
}

// WithoutHotplug disables udev monitors.
func WithoutHotplug() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Subsystems.Hotplug = false
	}
}

// UserAutostartDir returns the per-user autostart directory for the config
// returned by NewConfig.
func UserAutostartDir(t testing.TB) string {
	t.Helper()
	return filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "autostart")
}

// SystemAutostartDir returns the system-wide autostart directory for the
// config returned by NewConfig.
func SystemAutostartDir(t testing.TB) string {
	t.Helper()
	return filepath.Join(os.Getenv("XDG_CONFIG_DIRS"), "autostart")
}
