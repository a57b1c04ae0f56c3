// internal/watchdog/watchdog.go

// Package watchdog enforces the control loop's liveness deadline.
package watchdog

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// ErrLivenessTimeout is passed to the expiry hook.
var ErrLivenessTimeout = errors.New("watchdog: liveness deadline missed")

// Device is a hardware watchdog kicked alongside the software deadline.
type Device interface {
	Kick() error
	Close() error
}

// Watchdog fires its hook once if Kick is not called within the timeout.
// After expiry the hardware device is no longer kicked, so the board resets
// even if the hook hangs.
type Watchdog struct {
	mu       sync.Mutex
	timeout  time.Duration
	timer    *time.Timer
	onExpire func(error)
	dev      Device
	expired  bool
	stopped  bool
}

// New arms nothing; call Start once the loop is running.
func New(timeout time.Duration, onExpire func(error), dev Device) (*Watchdog, error) {
	if timeout <= 0 {
		return nil, errors.New("watchdog: timeout must be > 0")
	}
	if onExpire == nil {
		return nil, errors.New("watchdog: expiry hook required")
	}
	return &Watchdog{timeout: timeout, onExpire: onExpire, dev: dev}, nil
}

// Start arms the deadline.
func (w *Watchdog) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil || w.stopped {
		return
	}
	w.timer = time.AfterFunc(w.timeout, w.fire)
}

// Kick pushes the deadline out by one timeout.
func (w *Watchdog) Kick() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.expired || w.stopped || w.timer == nil {
		return
	}
	w.timer.Reset(w.timeout)
	if w.dev != nil {
		if err := w.dev.Kick(); err != nil {
			log.Printf("watchdog device kick failed (err=%v)", err)
		}
	}
}

// Expired reports whether the deadline was missed.
func (w *Watchdog) Expired() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.expired
}

// Stop disarms the deadline and closes the device with the magic close,
// for an orderly shutdown.
func (w *Watchdog) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	if w.dev != nil && !w.expired {
		if err := w.dev.Close(); err != nil {
			return fmt.Errorf("watchdog: close device: %w", err)
		}
	}
	return nil
}

func (w *Watchdog) fire() {
	w.mu.Lock()
	if w.expired || w.stopped {
		w.mu.Unlock()
		return
	}
	w.expired = true
	w.mu.Unlock()

	log.Printf("liveness deadline missed (timeout=%v)", w.timeout)
	w.onExpire(ErrLivenessTimeout)
}
