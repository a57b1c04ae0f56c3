// internal/actuator/driver.go
package actuator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tamzrod/shaft-blaster/internal/line"
)

const (
	DefaultStrobe       = 15 * time.Millisecond
	DefaultTimeout      = 4000 * time.Millisecond
	DefaultPollInterval = time.Millisecond
)

var (
	// ErrMotionTimeout means the busy edge was not observed within the window.
	ErrMotionTimeout = errors.New("actuator: motion timeout")
	// ErrHomingFailure means the home sequence did not confirm the reference.
	ErrHomingFailure = errors.New("actuator: homing failure")
	// ErrBusy means a motion is already in progress on the lines.
	ErrBusy = errors.New("actuator: motion already in progress")
)

// Outcome is the result of one drive call. It is never retried here.
type Outcome int

const (
	Completed Outcome = iota
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case TimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Lines are the logical lines owned by the driver.
// Polarity (opto-isolation inverts the code and drive lines) is applied by
// the caller when building them; true here always means asserted / moving.
type Lines struct {
	Bits  [CodeBits]line.Output
	Drive line.Output
	Busy  line.Input

	// Home is an optional reference sensor confirming the retracted position.
	Home line.Input
}

// Config holds protocol timing.
type Config struct {
	Strobe       time.Duration
	Timeout      time.Duration
	PollInterval time.Duration
}

// Driver translates positions into the motion controller's coded inputs.
// One motion at a time; the caller serializes requests.
type Driver struct {
	lines  Lines
	cfg    Config
	active *Motion
}

// New validates the line set and fills timing defaults.
func New(lines Lines, cfg Config) (*Driver, error) {
	for i, b := range lines.Bits {
		if b == nil {
			return nil, fmt.Errorf("actuator: bit%d line required", i)
		}
	}
	if lines.Drive == nil {
		return nil, errors.New("actuator: drive line required")
	}
	if lines.Busy == nil {
		return nil, errors.New("actuator: busy line required")
	}
	if cfg.Strobe <= 0 {
		cfg.Strobe = DefaultStrobe
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Driver{lines: lines, cfg: cfg}, nil
}

// Config returns the effective timing.
func (d *Driver) Config() Config { return d.cfg }

// HasHomeSensor reports whether homing is confirmed by a reference sensor.
func (d *Driver) HasHomeSensor() bool { return d.lines.Home != nil }

// Begin validates p, asserts its code, and raises the drive strobe.
// Invalid positions are rejected before any line is written.
func (d *Driver) Begin(p Position, now time.Time) (*Motion, error) {
	if err := p.Check(); err != nil {
		return nil, err
	}
	if d.active != nil && !d.active.done {
		return nil, ErrBusy
	}

	// Drive must be inactive while the code settles.
	if err := d.lines.Drive.Set(false); err != nil {
		return nil, fmt.Errorf("actuator: drive release: %w", err)
	}
	code := Bits(p)
	for i, bit := range code {
		if err := d.lines.Bits[i].Set(bit); err != nil {
			return nil, fmt.Errorf("actuator: bit%d: %w", i, err)
		}
	}
	if err := d.lines.Drive.Set(true); err != nil {
		return nil, fmt.Errorf("actuator: drive strobe: %w", err)
	}

	m := &Motion{d: d, pos: p, start: now}
	d.active = m
	return m, nil
}

// BeginHome drives the home position; completion is confirmed by the home
// sensor when one is configured.
func (d *Driver) BeginHome(now time.Time) (*Motion, error) {
	m, err := d.Begin(HomePosition, now)
	if err != nil {
		return nil, err
	}
	m.home = true
	return m, nil
}

// Drive runs one motion to completion, blocking the caller.
// The control loop uses Begin/Poll instead so it never stalls; Drive serves
// commissioning tools and tests.
func (d *Driver) Drive(ctx context.Context, p Position) (Outcome, error) {
	m, err := d.Begin(p, time.Now())
	if err != nil {
		return TimedOut, err
	}

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Abort(time.Now())
			return TimedOut, ctx.Err()
		case now := <-ticker.C:
			if o, done := m.Poll(now); done {
				return o, m.Err()
			}
		}
	}
}

type phase int

const (
	phaseStrobe phase = iota
	phaseWaitEdge
	phaseDone
)

// Motion is one in-flight move. Poll it once per control cycle.
type Motion struct {
	d    *Driver
	pos  Position
	home bool

	phase     phase
	start     time.Time
	strobeEnd time.Time
	end       time.Time
	prior     bool

	done    bool
	outcome Outcome
	err     error
}

// Position returns the requested position.
func (m *Motion) Position() Position { return m.pos }

// Poll advances the motion and reports (outcome, true) once finished.
func (m *Motion) Poll(now time.Time) (Outcome, bool) {
	switch m.phase {
	case phaseStrobe:
		if now.Sub(m.start) < m.d.cfg.Strobe {
			return m.outcome, false
		}
		if err := m.d.lines.Drive.Set(false); err != nil {
			m.finish(now, TimedOut, fmt.Errorf("actuator: drive release: %w", err))
			return m.outcome, true
		}
		// The level right after the strobe is the reference for edge
		// detection: an already-idle line is not a completion.
		busy, err := m.d.lines.Busy.Read()
		if err != nil {
			m.finish(now, TimedOut, fmt.Errorf("actuator: busy read: %w", err))
			return m.outcome, true
		}
		m.prior = busy
		m.strobeEnd = now
		m.phase = phaseWaitEdge
		return m.outcome, false

	case phaseWaitEdge:
		if now.Sub(m.strobeEnd) > m.d.cfg.Timeout {
			m.finish(now, TimedOut, fmt.Errorf("%w: position %d after %v", ErrMotionTimeout, int(m.pos), m.d.cfg.Timeout))
			return m.outcome, true
		}
		busy, err := m.d.lines.Busy.Read()
		if err != nil {
			m.finish(now, TimedOut, fmt.Errorf("actuator: busy read: %w", err))
			return m.outcome, true
		}
		if m.prior && !busy {
			m.finish(now, Completed, m.confirmHome())
			return m.outcome, true
		}
		m.prior = busy
		return m.outcome, false

	default:
		return m.outcome, true
	}
}

func (m *Motion) confirmHome() error {
	if !m.home || m.d.lines.Home == nil {
		return nil
	}
	at, err := m.d.lines.Home.Read()
	if err != nil {
		return fmt.Errorf("%w: home sensor: %v", ErrHomingFailure, err)
	}
	if !at {
		return fmt.Errorf("%w: reference sensor not asserted", ErrHomingFailure)
	}
	return nil
}

func (m *Motion) finish(now time.Time, o Outcome, err error) {
	if m.home && o == TimedOut && err != nil && !errors.Is(err, ErrHomingFailure) {
		err = fmt.Errorf("%w: %w", ErrHomingFailure, err)
	}
	m.phase = phaseDone
	m.done = true
	m.outcome = o
	m.err = err
	m.end = now
	if m.d.active == m {
		m.d.active = nil
	}
}

// Abort releases the drive line and ends the motion at now as timed out.
func (m *Motion) Abort(now time.Time) {
	if m.done {
		return
	}
	_ = m.d.lines.Drive.Set(false)
	m.finish(now, TimedOut, errors.New("actuator: motion aborted"))
}

// Done reports whether the motion has finished.
func (m *Motion) Done() bool { return m.done }

// Outcome returns the final outcome; meaningful once Done.
func (m *Motion) Outcome() Outcome { return m.outcome }

// Err returns the failure cause, nil when completed (and confirmed for homing).
func (m *Motion) Err() error { return m.err }

// Elapsed is the time from strobe start to the observed outcome.
func (m *Motion) Elapsed() time.Duration {
	if !m.done {
		return 0
	}
	return m.end.Sub(m.start)
}
