package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"settingsd/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// File receives a copy of every record when set.
	File string
	// Console overrides stderr as the primary destination.
	Console io.Writer
	// Color forces ANSI colour on or off for console output. Nil means
	// detect from the console writer.
	Color *bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLevel(opts.Level))
	addSource := levelVar.Level() <= slog.LevelDebug

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = config.LogFormatConsole
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	color := false
	if opts.Color != nil {
		color = *opts.Color
	} else {
		color = isTerminal(console)
	}

	primary, err := newHandler(format, console, levelVar, addSource, color)
	if err != nil {
		return nil, err
	}

	handlers := []slog.Handler{primary}
	if path := strings.TrimSpace(opts.File); path != "" {
		file, err := openLogFile(path)
		if err != nil {
			return nil, err
		}
		fileHandler, err := newHandler(format, file, levelVar, addSource, false)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, fileHandler)
	}
	return slog.New(newFanoutHandler(handlers...)), nil
}

// NewFromConfig creates a logger from the [logging] section. Debug forces
// debug level regardless of configuration.
func NewFromConfig(cfg *config.Config, debug bool) (*slog.Logger, error) {
	if cfg == nil {
		defaults := config.Default()
		cfg = &defaults
	}
	level := cfg.Logging.Level
	if debug {
		level = config.LogLevelDebug
	}
	return New(Options{
		Level:  level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})
}

func newHandler(format string, w io.Writer, lvl *slog.LevelVar, addSource, color bool) (slog.Handler, error) {
	switch format {
	case config.LogFormatJSON:
		return newJSONHandler(w, lvl, addSource), nil
	case config.LogFormatConsole:
		return newPrettyHandler(w, lvl, addSource, color), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", format)
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
