// Package clipboard keeps clipboard text alive after the owning application
// exits.
//
// The manager polls the system clipboard and remembers the last non-empty
// text. When the clipboard turns up empty, typically because the window that
// owned the selection closed, the remembered text is written back.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/atotto/clipboard"

	"settingsd/internal/logging"
)

// Name is the subsystem name.
const Name = "clipboard"

// ErrUnsupported means no clipboard tool is available on this system.
var ErrUnsupported = errors.New("no clipboard backend available")

// Backend reads and writes clipboard text.
type Backend interface {
	Available() bool
	Read() (string, error)
	Write(text string) error
}

// SystemBackend uses xclip, xsel or wl-clipboard through atotto/clipboard.
type SystemBackend struct{}

func (SystemBackend) Available() bool { return !clipboard.Unsupported }

func (SystemBackend) Read() (string, error) { return clipboard.ReadAll() }

func (SystemBackend) Write(text string) error { return clipboard.WriteAll(text) }

// Manager is the fallible clipboard subsystem.
type Manager struct {
	backend  Backend
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	last     string
	restored int
	stop     chan struct{}
	wg       sync.WaitGroup
}

// New builds a manager polling every interval. A nil backend selects
// SystemBackend.
func New(backend Backend, interval time.Duration, logger *slog.Logger) *Manager {
	if backend == nil {
		backend = SystemBackend{}
	}
	return &Manager{
		backend:  backend,
		interval: interval,
		logger:   logging.NewComponentLogger(logger, Name),
	}
}

func (m *Manager) Name() string { return Name }

// Start fails when no backend exists or the clipboard cannot be read.
func (m *Manager) Start(ctx context.Context) error {
	if !m.backend.Available() {
		return ErrUnsupported
	}
	text, err := m.backend.Read()
	if err != nil {
		return fmt.Errorf("read clipboard: %w", err)
	}
	if m.interval <= 0 {
		return fmt.Errorf("invalid poll interval %s", m.interval)
	}

	m.mu.Lock()
	m.last = text
	m.stop = make(chan struct{})
	stop := m.stop
	m.mu.Unlock()

	m.wg.Add(1)
	go m.loop(ctx, stop)
	m.logger.Debug("clipboard manager started", logging.Duration("interval", m.interval))
	return nil
}

// Stop ends polling. Safe to call more than once.
func (m *Manager) Stop() error {
	m.mu.Lock()
	stop := m.stop
	m.stop = nil
	m.mu.Unlock()
	if stop == nil {
		return nil
	}
	close(stop)
	m.wg.Wait()
	return nil
}

// Last returns the remembered clipboard text.
func (m *Manager) Last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Restored returns how many times the clipboard was refilled.
func (m *Manager) Restored() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restored
}

func (m *Manager) loop(ctx context.Context, stop <-chan struct{}) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			m.poll()
		}
	}
}

func (m *Manager) poll() {
	text, err := m.backend.Read()
	if err != nil {
		m.logger.Debug("clipboard read failed", logging.Error(err))
		return
	}

	m.mu.Lock()
	if text != "" {
		m.last = text
		m.mu.Unlock()
		return
	}
	last := m.last
	m.mu.Unlock()
	if last == "" {
		return
	}

	if err := m.backend.Write(last); err != nil {
		m.logger.Debug("clipboard restore failed", logging.Error(err))
		return
	}
	m.mu.Lock()
	m.restored++
	m.mu.Unlock()
	m.logger.Debug("clipboard content restored", logging.Int("bytes", len(last)))
}
