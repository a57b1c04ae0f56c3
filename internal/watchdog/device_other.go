// internal/watchdog/device_other.go
//go:build !linux

package watchdog

import (
	"errors"
	"time"
)

func Open(path string, timeout time.Duration) (Device, error) {
	return nil, errors.New("watchdog: hardware device only supported on linux")
}
