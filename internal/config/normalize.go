// internal/config/normalize.go
package config

const (
	DefaultCycleMs           = 10
	DefaultDebounceMs        = 250
	DefaultHeartbeatMs       = 500
	DefaultPersistIntervalMs = 3600000
	DefaultPersistPath       = "/var/lib/blaster/state.cbor"
	DefaultWatchdogMs        = 2000
	DefaultStrobeMs          = 15
	DefaultMotionTimeoutMs   = 4000
	DefaultRemoteTimeoutMs   = 500
	DefaultTestCycles        = 3
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	b := &cfg.Blaster

	setDefault(&b.CycleMs, DefaultCycleMs)
	setDefault(&b.DebounceMs, DefaultDebounceMs)
	setDefault(&b.HeartbeatMs, DefaultHeartbeatMs)
	setDefault(&b.Persist.IntervalMs, DefaultPersistIntervalMs)
	setDefault(&b.Watchdog.TimeoutMs, DefaultWatchdogMs)
	setDefault(&b.Actuator.StrobeMs, DefaultStrobeMs)
	setDefault(&b.Actuator.TimeoutMs, DefaultMotionTimeoutMs)
	setDefault(&b.Operator.TestCycles, DefaultTestCycles)

	if b.Persist.Path == "" {
		b.Persist.Path = DefaultPersistPath
	}

	if b.CountAbortedBlasts == nil {
		v := true
		b.CountAbortedBlasts = &v
	}

	if b.RemoteIO != nil {
		setDefault(&b.RemoteIO.TimeoutMs, DefaultRemoteTimeoutMs)
	}

	if b.Status != nil {
		setDefault(&b.Status.TimeoutMs, DefaultRemoteTimeoutMs)

		// Normalize device_name:
		// - ASCII already validated
		// - Truncate to max 16 characters
		if len(b.Status.DeviceName) > 16 {
			b.Status.DeviceName = b.Status.DeviceName[:16]
		}
	}

	// No other normalization is performed here.
	// Line binding and polarity belong to later stages.
}

func setDefault(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}
