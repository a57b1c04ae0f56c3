// internal/config/validate.go
package config

import (
	"fmt"
	"sort"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	b := &cfg.Blaster

	// ------------------------------------------------------------
	// TIMING (zero => default, negative => invalid)
	// ------------------------------------------------------------

	timings := []struct {
		name string
		v    int
	}{
		{"cycle_ms", b.CycleMs},
		{"debounce_ms", b.DebounceMs},
		{"heartbeat_ms", b.HeartbeatMs},
		{"pneumatic_settle_ms", b.PneumaticSettleMs},
		{"persist.interval_ms", b.Persist.IntervalMs},
		{"watchdog.timeout_ms", b.Watchdog.TimeoutMs},
		{"actuator.strobe_ms", b.Actuator.StrobeMs},
		{"actuator.timeout_ms", b.Actuator.TimeoutMs},
	}
	for _, t := range timings {
		if t.v < 0 {
			return fmt.Errorf("%s must be >= 0 (got %d)", t.name, t.v)
		}
	}

	// ------------------------------------------------------------
	// LINES
	// ------------------------------------------------------------

	for _, name := range RequiredLines {
		if _, ok := b.Lines[name]; !ok {
			return fmt.Errorf("lines: required line %q is missing", name)
		}
	}

	// Deterministic error order.
	names := make([]string, 0, len(b.Lines))
	for name := range b.Lines {
		names = append(names, name)
	}
	sort.Strings(names)

	// key = gpio name / remote kind|address
	owner := make(map[string]string)

	for _, name := range names {
		l := b.Lines[name]

		in, out := IsInput(name), IsOutput(name)
		if !in && !out {
			return fmt.Errorf("lines: unknown line %q", name)
		}

		hasGPIO := l.GPIO != ""
		hasRemote := l.Remote != nil
		if hasGPIO == hasRemote {
			return fmt.Errorf("lines: %q must set exactly one of gpio or remote", name)
		}

		switch l.Pull {
		case "", "up", "down", "float", "none":
		default:
			return fmt.Errorf("lines: %q has invalid pull %q", name, l.Pull)
		}
		if l.Pull != "" && (out || hasRemote) {
			return fmt.Errorf("lines: %q: pull applies to gpio inputs only", name)
		}

		var key string
		if hasGPIO {
			key = "gpio|" + l.GPIO
		} else {
			if b.RemoteIO == nil {
				return fmt.Errorf("lines: %q uses remote but remote_io is not configured", name)
			}
			if in {
				if *l.Remote >= b.RemoteIO.InputCount {
					return fmt.Errorf(
						"lines: %q remote input %d outside remote_io.input_count %d",
						name,
						*l.Remote,
						b.RemoteIO.InputCount,
					)
				}
				key = fmt.Sprintf("di|%d", *l.Remote)
			} else {
				key = fmt.Sprintf("coil|%d", *l.Remote)
			}
		}

		if prev, exists := owner[key]; exists {
			return fmt.Errorf("lines: %q and %q share %s", prev, name, key)
		}
		owner[key] = name
	}

	if err := allOrNone(b.Lines, CellInputs, "cell handshake inputs"); err != nil {
		return err
	}
	if err := allOrNone(b.Lines, Lamps, "stack light lamps"); err != nil {
		return err
	}
	if _, ok := b.Lines[LineCellPowered]; ok {
		for _, name := range []string{LineMachineSafe, LineBlasting} {
			if _, ok := b.Lines[name]; !ok {
				return fmt.Errorf("lines: cell handshake requires output %q", name)
			}
		}
	}

	if b.Actuator.HomeConfirm {
		if _, ok := b.Lines[LineHomeSensor]; !ok {
			return fmt.Errorf("actuator.home_confirm requires line %q", LineHomeSensor)
		}
	}
	if b.PneumaticSettleMs > 0 {
		if _, ok := b.Lines[LinePressure]; !ok {
			return fmt.Errorf("pneumatic_settle_ms requires line %q", LinePressure)
		}
	}

	// ------------------------------------------------------------
	// REMOTE I/O (OPT-IN)
	// ------------------------------------------------------------

	if r := b.RemoteIO; r != nil {
		if r.Endpoint == "" {
			return fmt.Errorf("remote_io.endpoint is required")
		}
		if r.TimeoutMs < 0 {
			return fmt.Errorf("remote_io.timeout_ms must be >= 0")
		}
		if r.InputCount == 0 {
			return fmt.Errorf("remote_io.input_count must be > 0")
		}
	}

	// ------------------------------------------------------------
	// STATUS MIRROR (OPT-IN)
	// ------------------------------------------------------------

	if s := b.Status; s != nil {
		if s.Endpoint == "" {
			return fmt.Errorf("status.endpoint is required")
		}
		if s.TimeoutMs < 0 {
			return fmt.Errorf("status.timeout_ms must be >= 0")
		}
		// device_name sanity (ASCII only)
		for i := 0; i < len(s.DeviceName); i++ {
			if s.DeviceName[i] > 0x7F {
				return fmt.Errorf("status.device_name must contain ASCII characters only")
			}
		}
		// base_slot * 20 must stay inside the register space
		if uint32(s.BaseSlot)*20+20 > 0x10000 {
			return fmt.Errorf("status.base_slot %d out of range", s.BaseSlot)
		}
	}

	// ------------------------------------------------------------
	// OPERATOR
	// ------------------------------------------------------------

	if p := b.Operator.ExtendPosition; p < 0 || p > 31 {
		return fmt.Errorf("operator.extend_position must be in [0,31] (got %d)", p)
	}
	if b.Operator.TestCycles < 0 {
		return fmt.Errorf("operator.test_cycles must be >= 0")
	}

	return nil
}

func allOrNone(lines map[string]LineConfig, group []string, what string) error {
	n := 0
	for _, name := range group {
		if _, ok := lines[name]; ok {
			n++
		}
	}
	if n != 0 && n != len(group) {
		return fmt.Errorf("lines: %s must be configured together %v", what, group)
	}
	return nil
}
