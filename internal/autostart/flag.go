package autostart

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"settingsd/internal/config"
	"settingsd/internal/logging"
)

const hiddenKey = "Hidden"

// Flag is the Hidden key of the helper's autostart entry.
type Flag struct {
	path       string
	systemDirs []string
	logger     *slog.Logger
}

// NewFlag manages the entry at path. systemDirs are searched, in order, for a
// template when the per-user entry does not exist yet.
func NewFlag(path string, systemDirs []string, logger *slog.Logger) *Flag {
	return &Flag{
		path:       path,
		systemDirs: systemDirs,
		logger:     logging.NewComponentLogger(logger, "autostart"),
	}
}

// UserPath returns $XDG_CONFIG_HOME/autostart/<fileName>.
func UserPath(fileName string) (string, error) {
	base := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME"))
	if base == "" {
		base = "~/.config"
	}
	dir, err := config.ExpandPath(base)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "autostart", fileName), nil
}

// SystemDirs returns the autostart directories under $XDG_CONFIG_DIRS.
func SystemDirs() []string {
	raw := strings.TrimSpace(os.Getenv("XDG_CONFIG_DIRS"))
	if raw == "" {
		raw = "/etc/xdg"
	}
	var dirs []string
	for _, dir := range filepath.SplitList(raw) {
		if dir = strings.TrimSpace(dir); dir != "" {
			dirs = append(dirs, filepath.Join(dir, "autostart"))
		}
	}
	return dirs
}

// Path returns the per-user entry path.
func (f *Flag) Path() string {
	return f.path
}

// Hidden reads the stored value. ok is false when no entry defines the key.
func (f *Flag) Hidden() (value, ok bool, err error) {
	entry, _, err := f.load()
	if err != nil {
		return false, false, err
	}
	value, ok = entry.Bool(desktopEntryGroup, hiddenKey)
	return value, ok, nil
}

// Reconcile flips Hidden to !resumed when the stored value equals resumed.
// A missing key reads as resumed so the first run always records the state.
// It reports whether the entry was written.
func (f *Flag) Reconcile(resumed bool) (bool, error) {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return false, fmt.Errorf("create autostart directory: %w", err)
	}

	lock := flock.New(f.path + ".lock")
	if err := lock.Lock(); err != nil {
		return false, fmt.Errorf("lock autostart entry: %w", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			f.logger.Debug("unlock autostart entry failed", logging.Error(err))
		}
	}()

	entry, source, err := f.load()
	if err != nil {
		return false, err
	}
	stored, ok := entry.Bool(desktopEntryGroup, hiddenKey)
	if !ok {
		stored = resumed
	}
	if stored != resumed {
		f.logger.Debug("autostart entry already consistent",
			logging.Bool("hidden", stored),
			logging.Bool("resumed", resumed),
		)
		return false, nil
	}

	entry.SetBool(desktopEntryGroup, hiddenKey, !resumed)
	if err := writeAtomic(f.path, entry.Bytes()); err != nil {
		return false, err
	}
	f.logger.Info("autostart entry updated",
		logging.String(logging.FieldPath, f.path),
		logging.String("template", source),
		logging.Bool("hidden", !resumed),
	)
	return true, nil
}

// load reads the per-user entry, falling back to the first system entry.
// An empty entry is returned when neither exists.
func (f *Flag) load() (*desktopEntry, string, error) {
	candidates := []string{f.path}
	name := filepath.Base(f.path)
	for _, dir := range f.systemDirs {
		candidates = append(candidates, filepath.Join(dir, name))
	}
	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate)
		if err == nil {
			return parseDesktopEntry(data), candidate, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, "", fmt.Errorf("read autostart entry %s: %w", candidate, err)
		}
	}
	return parseDesktopEntry(nil), "", nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp autostart entry: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write autostart entry: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync autostart entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close autostart entry: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod autostart entry: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("replace autostart entry: %w", err)
	}
	return nil
}
