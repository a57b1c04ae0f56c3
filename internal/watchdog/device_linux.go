// internal/watchdog/device_linux.go
//go:build linux

package watchdog

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// Open opens a kernel watchdog device (e.g. /dev/watchdog) and sets its
// timeout, rounded up to whole seconds.
func Open(path string, timeout time.Duration) (Device, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("watchdog: open %s: %w", path, err)
	}

	secs := int((timeout + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	if err := unix.IoctlSetPointerInt(int(f.Fd()), unix.WDIOC_SETTIMEOUT, secs); err != nil {
		// Magic close so the open does not leave an armed watchdog behind.
		_, _ = f.Write([]byte("V"))
		f.Close()
		return nil, fmt.Errorf("watchdog: set timeout %ds: %w", secs, err)
	}
	return &fileDevice{f: f}, nil
}

type fileDevice struct {
	f *os.File
}

func (d *fileDevice) Kick() error {
	_, err := d.f.Write([]byte{0})
	return err
}

// Close writes the magic character so the kernel disarms the timer.
func (d *fileDevice) Close() error {
	if _, err := d.f.Write([]byte("V")); err != nil {
		d.f.Close()
		return err
	}
	return d.f.Close()
}
