// Package signals turns termination signals into shutdown requests.
package signals

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"

	"golang.org/x/sys/unix"
)

// DefaultSignals are the signals settingsd treats as a request to quit.
var DefaultSignals = []os.Signal{unix.SIGQUIT, unix.SIGTERM}

var (
	// ErrNoSignals is returned by Arm when the signal set is empty.
	ErrNoSignals = errors.New("no signals to arm")
	// ErrAlreadyArmed is returned by a second Arm without Disarm.
	ErrAlreadyArmed = errors.New("signal bridge already armed")
)

// Bridge forwards OS signals to a callback on a dedicated goroutine. The
// callback must only enqueue work.
type Bridge struct {
	mu    sync.Mutex
	ch    chan os.Signal
	done  chan struct{}
	wg    sync.WaitGroup
	armed bool
}

// NewBridge returns a disarmed bridge.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Arm starts delivering sigs to notify. Uncatchable signals are rejected and
// nothing is installed.
func (b *Bridge) Arm(notify func(os.Signal), sigs ...os.Signal) error {
	if len(sigs) == 0 {
		return ErrNoSignals
	}
	for _, sig := range sigs {
		if sig == unix.SIGKILL || sig == unix.SIGSTOP {
			return fmt.Errorf("signal %s cannot be caught", sig)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.armed {
		return ErrAlreadyArmed
	}
	b.ch = make(chan os.Signal, len(sigs))
	b.done = make(chan struct{})
	signal.Notify(b.ch, sigs...)
	b.armed = true

	b.wg.Add(1)
	go func(ch <-chan os.Signal, done <-chan struct{}) {
		defer b.wg.Done()
		for {
			select {
			case <-done:
				return
			case sig := <-ch:
				notify(sig)
			}
		}
	}(b.ch, b.done)
	return nil
}

// Armed reports whether handlers are installed.
func (b *Bridge) Armed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.armed
}

// Disarm restores default signal handling. Safe to call when not armed.
func (b *Bridge) Disarm() {
	b.mu.Lock()
	if !b.armed {
		b.mu.Unlock()
		return
	}
	signal.Stop(b.ch)
	close(b.done)
	b.armed = false
	b.mu.Unlock()
	b.wg.Wait()
}
