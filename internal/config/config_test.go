package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"settingsd/internal/config"
)

func TestLoadWithoutFileReturnsDefaults(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(tempHome, ".config", "settingsd", "config.toml"); resolved != want {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, want)
	}
	if cfg.Instance.BusName != "org.xfce.SettingsHelper" {
		t.Fatalf("unexpected bus name %q", cfg.Instance.BusName)
	}
	if want := filepath.Join(tempHome, ".local", "state", "settingsd", "settingsd.log"); cfg.Logging.File != want {
		t.Fatalf("unexpected log file: got %q want %q", cfg.Logging.File, want)
	}
	if !cfg.Subsystems.Displays {
		t.Fatal("expected displays subsystem enabled by default")
	}
	if cfg.HandoffTimeoutDuration() != 10*time.Second {
		t.Fatalf("unexpected handoff timeout %s", cfg.HandoffTimeoutDuration())
	}
	if cfg.ClipboardPollInterval() != 500*time.Millisecond {
		t.Fatalf("unexpected clipboard interval %s", cfg.ClipboardPollInterval())
	}
}

func TestLoadHonoursXDGConfigHome(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)

	path := filepath.Join(base, "settingsd", "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("[subsystems]\ndisplays = false\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected %s to be loaded, got %q (exists=%v)", path, resolved, exists)
	}
	if cfg.Subsystems.Displays {
		t.Fatal("expected displays disabled by file")
	}
	if !cfg.Subsystems.Hotplug {
		t.Fatal("expected unspecified keys to keep defaults")
	}
}

func TestLoadNormalizesValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[autostart]
file_name = "  helper-autostart "

[logging]
format = " JSON "
level = "DEBUG"
file = ""
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Autostart.FileName != "helper-autostart.desktop" {
		t.Fatalf("unexpected autostart file %q", cfg.Autostart.FileName)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config %+v", cfg.Logging)
	}
	if cfg.Logging.File != "" {
		t.Fatalf("expected empty log file to disable file output, got %q", cfg.Logging.File)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{name: "unique bus name", content: "[instance]\nbus_name = \":1.42\"\n", want: "instance.bus_name"},
		{name: "single element bus name", content: "[instance]\nbus_name = \"helper\"\n", want: "instance.bus_name"},
		{name: "handoff timeout", content: "[instance]\nhandoff_timeout = 0\n", want: "instance.handoff_timeout"},
		{name: "xfconf path", content: "[xfconf]\npath = \"org/xfce\"\n", want: "xfconf.path"},
		{name: "autostart directory", content: "[autostart]\nfile_name = \"../x.desktop\"\n", want: "autostart.file_name"},
		{name: "clipboard interval", content: "[clipboard]\npoll_interval_ms = 1\n", want: "clipboard.poll_interval_ms"},
		{name: "log format", content: "[logging]\nformat = \"xml\"\n", want: "logging.format"},
		{name: "unknown key", content: "[instance]\nbogus = true\n", want: "parse config"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestSampleConfigMatchesDefaults(t *testing.T) {
	var parsed config.Config
	if err := toml.Unmarshal([]byte(config.SampleConfig()), &parsed); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	defaults := config.Default()
	if parsed.Instance != defaults.Instance {
		t.Fatalf("sample instance section drifted: %+v vs %+v", parsed.Instance, defaults.Instance)
	}
	if parsed.Session != defaults.Session {
		t.Fatalf("sample session section drifted: %+v vs %+v", parsed.Session, defaults.Session)
	}
	if parsed.Autostart != defaults.Autostart {
		t.Fatalf("sample autostart section drifted: %+v vs %+v", parsed.Autostart, defaults.Autostart)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Clipboard.PollIntervalMillis != 500 {
		t.Fatalf("unexpected clipboard interval %d", cfg.Clipboard.PollIntervalMillis)
	}
}
