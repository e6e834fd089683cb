package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Instance controls single-instance enforcement on the session bus.
type Instance struct {
	BusName string `toml:"bus_name"`
	// HandoffTimeout bounds how long a detached child waits for its parent to
	// hand over the bus name, in seconds.
	HandoffTimeout int `toml:"handoff_timeout"`
}

// Xfconf locates the configuration storage service on the session bus.
type Xfconf struct {
	Service   string `toml:"service"`
	Path      string `toml:"path"`
	Interface string `toml:"interface"`
}

// Session locates the session manager and identifies this client to it.
type Session struct {
	ManagerService   string `toml:"manager_service"`
	ManagerPath      string `toml:"manager_path"`
	ManagerInterface string `toml:"manager_interface"`
	ClientInterface  string `toml:"client_interface"`
	AppID            string `toml:"app_id"`
}

// Autostart names the per-user desktop entry whose Hidden key is reconciled.
type Autostart struct {
	FileName string `toml:"file_name"`
}

// Subsystems toggles optional hosted subsystems and device hotplug tracking.
type Subsystems struct {
	Displays bool `toml:"displays"`
	Hotplug  bool `toml:"hotplug"`
}

// Clipboard contains clipboard manager settings.
type Clipboard struct {
	PollIntervalMillis int `toml:"poll_interval_ms"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Config encapsulates all configuration values for settingsd.
//
// Configuration sections:
//   - Instance: bus name used as the single-instance token
//   - Xfconf: configuration storage service address
//   - Session: session manager address and client identity
//   - Autostart: desktop entry reconciled on every launch
//   - Subsystems: optional subsystems and hotplug tracking
//   - Clipboard: clipboard manager polling
//   - Logging: log format, level and file
type Config struct {
	Instance   Instance   `toml:"instance"`
	Xfconf     Xfconf     `toml:"xfconf"`
	Session    Session    `toml:"session"`
	Autostart  Autostart  `toml:"autostart"`
	Subsystems Subsystems `toml:"subsystems"`
	Clipboard  Clipboard  `toml:"clipboard"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	if base := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); base != "" {
		return expandPath(filepath.Join(base, "settingsd", "config.toml"))
	}
	return expandPath("~/.config/settingsd/config.toml")
}

// Load locates, parses, and validates a configuration file. A missing file is
// not an error: defaults are returned and the boolean result reports false.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if strings.TrimSpace(path) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		path = defaultPath
	}
	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %s is a directory", expanded)
	}
	return expanded, true, nil
}

// HandoffTimeoutDuration returns the bus name handoff window.
func (c *Config) HandoffTimeoutDuration() time.Duration {
	return time.Duration(c.Instance.HandoffTimeout) * time.Second
}

// ClipboardPollInterval returns the clipboard polling period.
func (c *Config) ClipboardPollInterval() time.Duration {
	return time.Duration(c.Clipboard.PollIntervalMillis) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && pathValue[1] == '/' {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
