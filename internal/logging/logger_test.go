package logging_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"settingsd/internal/config"
	"settingsd/internal/logging"
)

func TestConsoleLoggerWritesComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	noColor := false
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", Console: &buf, Color: &noColor})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "bus").Info("name claimed", logging.String(logging.FieldBusName, "org.xfce.SettingsHelper"))
	logger.Debug("hidden at info level")

	out := buf.String()
	if !strings.Contains(out, "[bus] name claimed") {
		t.Fatalf("expected component prefix, got %q", out)
	}
	if !strings.Contains(out, "bus_name=org.xfce.SettingsHelper") {
		t.Fatalf("expected bus_name field, got %q", out)
	}
	if strings.Contains(out, "hidden at info level") {
		t.Fatalf("debug line leaked at info level: %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("expected no ANSI codes when colour is disabled: %q", out)
	}
	if strings.Contains(out, ".go:") {
		t.Fatalf("expected no source location at info level: %q", out)
	}
}

func TestConsoleLoggerColour(t *testing.T) {
	var buf bytes.Buffer
	color := true
	logger, err := logging.New(logging.Options{Level: "info", Console: &buf, Color: &color})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("degraded")
	if !strings.Contains(buf.String(), "\x1b[33m") {
		t.Fatalf("expected yellow warning label, got %q", buf.String())
	}
}

func TestConsoleLoggerDetectsNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Error("boom", logging.Error(errors.New("bus closed")))
	out := buf.String()
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("buffers are not terminals, expected no colour: %q", out)
	}
	if !strings.Contains(out, `error="bus closed"`) {
		t.Fatalf("expected quoted error value, got %q", out)
	}
}

func TestJSONLoggerWritesFileCopy(t *testing.T) {
	var console bytes.Buffer
	logPath := filepath.Join(t.TempDir(), "state", "settingsd.log")
	logger, err := logging.New(logging.Options{Level: "debug", Format: "json", Console: &console, File: logPath})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("subsystem started", logging.String(logging.FieldSubsystem, "pointers"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for name, raw := range map[string][]byte{"console": console.Bytes(), "file": content} {
		var entry map[string]any
		if err := json.Unmarshal(bytes.TrimSpace(raw), &entry); err != nil {
			t.Fatalf("%s output is not JSON: %v (%q)", name, err, raw)
		}
		if entry["level"] != "debug" || entry["msg"] != "subsystem started" || entry["subsystem"] != "pointers" {
			t.Fatalf("unexpected %s entry: %v", name, entry)
		}
		if _, ok := entry["ts"]; !ok {
			t.Fatalf("expected ts key in %s entry: %v", name, entry)
		}
		if _, ok := entry["source"]; !ok {
			t.Fatalf("expected source at debug level in %s entry: %v", name, entry)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml", Console: &bytes.Buffer{}}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewFromConfigDebugOverride(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.File = filepath.Join(t.TempDir(), "helper.log")
	cfg.Logging.Format = "json"

	logger, err := logging.NewFromConfig(&cfg, true)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Debug("forced debug")

	content, err := os.ReadFile(cfg.Logging.File)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "forced debug") {
		t.Fatalf("expected debug line with --debug, got %q", content)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	noColor := false
	logger, err := logging.New(logging.Options{Console: &buf, Color: &noColor})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WarnWithContext(logger, "autostart update failed", "autostart_write_failed",
		logging.String(logging.FieldErrorHint, "check permissions on ~/.config/autostart"))

	out := buf.String()
	for _, want := range []string{
		"event_type=autostart_write_failed",
		`error_hint="check permissions on ~/.config/autostart"`,
		"impact=",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
	if strings.Count(out, "error_hint=") != 1 {
		t.Fatalf("expected caller hint to win over default: %q", out)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewComponentLogger(nil, "test")
	if logger.Enabled(t.Context(), 12) {
		t.Fatal("expected no-op logger to be disabled at every level")
	}
	logging.WarnWithContext(nil, "ignored", "noop")
}

func TestErrorWithContextAddsEventType(t *testing.T) {
	var buf bytes.Buffer
	noColor := false
	logger, err := logging.New(logging.Options{Console: &buf, Color: &noColor})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.ErrorWithContext(logger, "session bus unavailable", "bus_connect_failed")

	out := buf.String()
	if !strings.Contains(out, "event_type=bus_connect_failed") || !strings.Contains(out, "error_hint=") {
		t.Fatalf("missing context fields: %q", out)
	}
	if strings.Contains(out, "impact=") {
		t.Fatalf("errors carry no default impact: %q", out)
	}
}
