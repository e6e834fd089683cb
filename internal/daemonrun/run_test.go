package daemonrun

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"settingsd/internal/clipboard"
	"settingsd/internal/daemon"
	"settingsd/internal/logging"
	"settingsd/internal/testsupport"
	"settingsd/internal/xfconf"
)

type nopStore struct{}

func (nopStore) Properties(context.Context, string, string) (map[string]any, error) {
	return map[string]any{}, nil
}

func (nopStore) Watch(string, func(xfconf.Change)) func() { return func() {} }

type nopClipboard struct{}

func (nopClipboard) Available() bool       { return false }
func (nopClipboard) Read() (string, error) { return "", clipboard.ErrUnsupported }
func (nopClipboard) Write(string) error    { return clipboard.ErrUnsupported }

func entryNames(t *testing.T, withDisplays bool) ([]string, []bool) {
	t.Helper()
	var opts []testsupport.ConfigOption
	if !withDisplays {
		opts = append(opts, testsupport.WithoutDisplays())
	}
	cfg := testsupport.NewConfig(t, opts...)
	var names []string
	var fallible []bool
	for _, entry := range buildEntries(cfg, nopStore{}, nopClipboard{}, logging.NewNop()) {
		names = append(names, entry.Subsystem.Name())
		fallible = append(fallible, entry.Fallible)
	}
	return names, fallible
}

func TestBuildEntriesOrder(t *testing.T) {
	names, fallible := entryNames(t, true)
	want := []string{"displays", "pointers", "keyboards", "accessibility", "shortcuts", "keyboard-layout", "workspaces", "clipboard"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("got %v want %v", names, want)
	}
	for i, f := range fallible {
		if f != (names[i] == "clipboard") {
			t.Fatalf("%s: unexpected fallible=%v", names[i], f)
		}
	}
}

func TestBuildEntriesWithoutDisplays(t *testing.T) {
	names, _ := entryNames(t, false)
	if len(names) != 7 || names[0] != "pointers" {
		t.Fatalf("unexpected entries %v", names)
	}
}

func TestStartOrderMatchesEntries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	planned := StartOrder(cfg)
	names, _ := entryNames(t, true)
	if len(planned) != len(names) {
		t.Fatalf("planned %d, built %d", len(planned), len(names))
	}
	for i, p := range planned {
		if p.Name != names[i] {
			t.Fatalf("position %d: planned %s, built %s", i, p.Name, names[i])
		}
	}
	if !planned[len(planned)-1].Fallible {
		t.Fatal("clipboard must be fallible")
	}
	if !planned[0].Hotplug || planned[3].Hotplug {
		t.Fatalf("unexpected hotplug flags %+v", planned)
	}
}

func TestNewAutostartFlagUsesUserDirectory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	flag := newAutostartFlag(cfg, logging.NewNop())
	changed, err := flag.Reconcile(false)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !changed {
		t.Fatal("absent key must be recorded on first run")
	}
	content := testsupport.ReadFile(t, filepath.Join(testsupport.UserAutostartDir(t), cfg.Autostart.FileName))
	if !strings.Contains(content, "Hidden=true") {
		t.Fatalf("expected Hidden=true, got:\n%s", content)
	}
}

func TestNewAutostartFlagWithoutHome(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "")
	flag := newAutostartFlag(cfg, logging.NewNop())
	if _, err := flag.Reconcile(true); err == nil {
		t.Fatal("expected error when no home directory is known")
	}
}

func TestRunWithoutBusIsFatal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	t.Setenv("DBUS_SESSION_BUS_ADDRESS", "unix:path="+filepath.Join(t.TempDir(), "missing"))

	err := Run(context.Background(), cfg, Options{Debug: true, Logger: logging.NewNop()})
	if !errors.Is(err, daemon.ErrBusUnavailable) {
		t.Fatalf("expected ErrBusUnavailable, got %v", err)
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(context.Background(), nil, Options{}); err == nil {
		t.Fatal("expected error")
	}
}
