// internal/controller/controller.go

// Package controller runs the cooperative control cycle.
//
// One goroutine owns every component. Each cycle samples the lines,
// debounces them, turns operator and cell signals into machine requests,
// steps the machine once, drives the handshake outputs, persists on the
// configured cadence and mirrors status.
package controller

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/tamzrod/shaft-blaster/internal/actuator"
	"github.com/tamzrod/shaft-blaster/internal/cell"
	"github.com/tamzrod/shaft-blaster/internal/line"
	"github.com/tamzrod/shaft-blaster/internal/machine"
	"github.com/tamzrod/shaft-blaster/internal/status"
	"github.com/tamzrod/shaft-blaster/internal/store"
)

// CellLines are the four handshake inputs.
type CellLines struct {
	Powered line.Input
	Auto    line.Input
	Faulted line.Input
	Shaft   line.Input
}

// Buttons are operator trigger inputs. Any may be nil.
type Buttons struct {
	Home         line.Input
	Extend       line.Input
	Test         line.Input
	Ack          line.Input
	DurationUp   line.Input
	DurationDown line.Input
	ResetCount   line.Input
	Material     line.Input
}

// Lines are the logical inputs sampled each cycle. Polarity is already applied.
type Lines struct {
	Shaft line.Input
	Door  line.Input

	// ModeManual selects manual operation. Without it the machine runs in
	// automatic mode when a handshake is present, manual otherwise.
	ModeManual line.Input

	// Pressure is the optional blast pressure feedback.
	Pressure line.Input

	Cell    *CellLines
	Buttons Buttons
}

// Poller refreshes a remote input image once per cycle.
type Poller interface {
	PollOnce() error
}

// StatusWriter mirrors the machine status.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}

// Kicker is the liveness deadline.
type Kicker interface {
	Kick()
}

// Deps are the collaborators. Machine and Store are required.
type Deps struct {
	Machine   *machine.Machine
	Handshake *cell.Handshake
	Store     store.Store
	Watchdog  Kicker
	Pollers   []Poller
	Status    StatusWriter
}

// Config is the runtime timing and operator defaults.
type Config struct {
	Cycle           time.Duration
	Debounce        time.Duration
	PersistInterval time.Duration
	ExtendPosition  actuator.Position
	TestCycles      int
}

// Controller is the single owned context of the control loop.
type Controller struct {
	cfg   Config
	lines Lines

	m       *machine.Machine
	hs      *cell.Handshake
	st      store.Store
	wd      Kicker
	pollers []Poller
	status  StatusWriter

	started bool

	shaft    sensor
	door     sensor
	manual   sensor
	pressure sensor
	cellIn   [4]sensor
	buttons  []*button

	manualMode bool
	prevShaft  bool
	prevState  machine.State

	rec         store.Record
	saved       store.Record
	lastPersist time.Time

	errorSince time.Time
	pollFailed bool
	statusFail bool

	// snapshot of rec for Flush, which may run on another goroutine
	flushMu  sync.Mutex
	flushRec store.Record
}

// New builds a controller around an already constructed machine.
// rec is the record loaded at boot; its duration must already be applied
// to the machine.
func New(cfg Config, lines Lines, d Deps, rec store.Record) (*Controller, error) {
	if d.Machine == nil {
		return nil, errors.New("controller: machine required")
	}
	if d.Store == nil {
		return nil, errors.New("controller: store required")
	}
	if lines.Shaft == nil || lines.Door == nil {
		return nil, errors.New("controller: shaft and door lines required")
	}
	if (lines.Cell == nil) != (d.Handshake == nil) {
		return nil, errors.New("controller: cell lines and handshake must be configured together")
	}
	if cfg.Cycle <= 0 {
		return nil, errors.New("controller: cycle must be > 0")
	}
	if err := cfg.ExtendPosition.Check(); err != nil {
		return nil, err
	}

	c := &Controller{
		cfg:      cfg,
		lines:    lines,
		m:        d.Machine,
		hs:       d.Handshake,
		st:       d.Store,
		wd:       d.Watchdog,
		pollers:  d.Pollers,
		status:   d.Status,
		rec:      rec,
		saved:    rec,
		flushRec: rec,
	}

	c.shaft = sensor{name: "shaft", in: lines.Shaft}
	c.door = sensor{name: "door", in: lines.Door}
	c.manual = sensor{name: "mode_manual", in: lines.ModeManual, hold: true}
	c.pressure = sensor{name: "pressure", in: lines.Pressure}
	if lines.Cell != nil {
		c.cellIn = [4]sensor{
			{name: "cell_powered", in: lines.Cell.Powered},
			{name: "cell_auto", in: lines.Cell.Auto},
			{name: "cell_faulted", in: lines.Cell.Faulted},
			{name: "cell_shaft", in: lines.Cell.Shaft},
		}
	}

	b := lines.Buttons
	c.buttons = []*button{
		{sensor: sensor{name: "btn_home", in: b.Home}, press: c.pressHome},
		{sensor: sensor{name: "btn_extend", in: b.Extend}, press: c.pressExtend},
		{sensor: sensor{name: "btn_test", in: b.Test}, press: c.pressTest},
		{sensor: sensor{name: "btn_ack", in: b.Ack}, press: c.pressAck},
		{sensor: sensor{name: "btn_duration_up", in: b.DurationUp}, press: func(now time.Time) { c.adjustDuration(1, now) }},
		{sensor: sensor{name: "btn_duration_down", in: b.DurationDown}, press: func(now time.Time) { c.adjustDuration(-1, now) }},
		{sensor: sensor{name: "btn_reset_count", in: b.ResetCount}, press: c.pressResetCount},
		{sensor: sensor{name: "btn_material", in: b.Material}, press: c.pressMaterial},
	}

	return c, nil
}

// Manual reports the operating mode of the last cycle.
func (c *Controller) Manual() bool { return c.manualMode }

// Record returns the persisted-state view of the last cycle.
func (c *Controller) Record() store.Record { return c.rec }

// Cycle runs one control cycle at now.
func (c *Controller) Cycle(now time.Time) {
	if c.wd != nil {
		c.wd.Kick()
	}

	c.pollRemote()

	first := !c.started
	if first {
		c.start(now)
	}

	shaft := c.shaft.sample(c.cfg.Debounce, now, false)
	door := c.door.sample(c.cfg.Debounce, now, false)
	if first {
		// A shaft already in place at boot is not a presentation.
		c.prevShaft = shaft
	}
	pressure := c.pressure.sample(c.cfg.Debounce, now, false)

	manual := c.hs == nil
	if c.manual.in != nil {
		manual = c.manual.sample(c.cfg.Debounce, now, manual)
	}

	modeChanged := manual != c.manualMode
	if modeChanged {
		log.Printf("mode changed, safe reset (manual=%v)", manual)
		c.manualMode = manual
		if c.m.SafeReset(now) {
			log.Printf("blast aborted by mode change")
		}
		if c.hs != nil {
			if err := c.hs.Reset(now); err != nil {
				log.Printf("handshake reset failed (err=%v)", err)
			}
		}
	}

	automatic := !manual && c.hs != nil
	if c.hs != nil {
		c.hs.Update(cell.Inputs{
			Powered:      c.cellIn[0].sample(c.cfg.Debounce, now, false),
			Auto:         c.cellIn[1].sample(c.cfg.Debounce, now, false),
			Faulted:      c.cellIn[2].sample(c.cfg.Debounce, now, true),
			ShaftInPlace: c.cellIn[3].sample(c.cfg.Debounce, now, false),
		}, now)
	}

	for _, b := range c.buttons {
		if b.pressed(c.cfg.Debounce, now) && !modeChanged {
			b.press(now)
		}
	}

	// Blast trigger: manual uses the local shaft edge, automatic the cell permit.
	if !modeChanged && c.m.State() == machine.Idle {
		switch {
		case manual && shaft && !c.prevShaft && door:
			c.m.RequestBlast()
		case automatic && c.hs.Permit(door, shaft):
			c.m.RequestBlast()
		}
	}
	c.prevShaft = shaft

	in := machine.Inputs{
		DoorClosed:          door,
		ShaftPresent:        shaft,
		Automatic:           automatic,
		PneumaticsConfirmed: pressure,
	}
	if automatic {
		in.Cell = c.hs.AbortReason(door)
	}
	c.m.Step(in, now)

	st := c.m.State()
	if st == machine.Blasting && c.prevState != machine.Blasting && automatic {
		c.hs.MarkHandled()
	}
	if st == machine.Error && c.prevState != machine.Error {
		c.errorSince = now
	}
	c.prevState = st

	if c.hs != nil {
		safe, blasting := false, false
		if automatic {
			safe = door
			blasting = st == machine.Blasting
		}
		if err := c.hs.Publish(safe, blasting, now); err != nil {
			log.Printf("handshake publish failed (err=%v)", err)
		}
	}

	c.rec.TotalCount = c.m.Count()
	c.persist(now, false)
	c.publishStatus(now, door, shaft)

	c.flushMu.Lock()
	c.flushRec = c.rec
	c.flushMu.Unlock()
}

func (c *Controller) start(now time.Time) {
	c.started = true
	c.lastPersist = now
	c.prevState = c.m.State()
	c.manualMode = c.hs == nil
	if c.manual.in != nil {
		if v, err := c.manual.in.Read(); err == nil {
			c.manualMode = v
		}
	}
	log.Printf("controller started (manual=%v count=%d duration_ms=%d material=%s)",
		c.manualMode, c.rec.TotalCount, c.rec.DurationMs, c.rec.Material)
}

func (c *Controller) pollRemote() {
	var failed bool
	for _, p := range c.pollers {
		if err := p.PollOnce(); err != nil {
			failed = true
			if !c.pollFailed {
				log.Printf("remote io poll failed (err=%v)", err)
			}
		}
	}
	if c.pollFailed && !failed {
		log.Printf("remote io poll recovered")
	}
	c.pollFailed = failed
}

// persist writes the record when forced (explicit operator change) or when
// the interval elapsed with unsaved changes. Failed writes are not retried
// until the next trigger.
func (c *Controller) persist(now time.Time, force bool) {
	if !force {
		if c.rec == c.saved || now.Sub(c.lastPersist) < c.cfg.PersistInterval {
			return
		}
	}
	c.lastPersist = now
	if err := c.st.Save(c.rec); err != nil {
		log.Printf("persist failed (err=%v)", err)
		return
	}
	c.saved = c.rec
	log.Printf("persisted (count=%d duration_ms=%d material=%s)", c.rec.TotalCount, c.rec.DurationMs, c.rec.Material)
}

// Flush saves the last completed cycle's record. It is the graceful
// shutdown hook and is safe to call from the watchdog goroutine.
func (c *Controller) Flush() error {
	c.flushMu.Lock()
	rec := c.flushRec
	c.flushMu.Unlock()

	if err := c.st.Save(rec); err != nil {
		return err
	}
	log.Printf("flushed (count=%d)", rec.TotalCount)
	return nil
}

// ---- operator triggers ----

func (c *Controller) pressHome(time.Time) { c.m.RequestHome() }

func (c *Controller) pressExtend(time.Time) {
	if err := c.m.RequestExtend(c.cfg.ExtendPosition); err != nil {
		log.Printf("extend rejected (err=%v)", err)
	}
}

func (c *Controller) pressTest(time.Time) {
	if c.cfg.TestCycles <= 0 {
		return
	}
	if err := c.m.RequestCycleTest(c.cfg.TestCycles, c.cfg.ExtendPosition); err != nil {
		log.Printf("cycle test rejected (err=%v)", err)
	}
}

func (c *Controller) pressAck(time.Time) { c.m.AcknowledgeError() }

func (c *Controller) adjustDuration(steps int, now time.Time) {
	ms := store.AdjustDuration(c.rec.DurationMs, steps)
	if ms == c.rec.DurationMs {
		return
	}
	if err := c.m.SetDuration(time.Duration(ms) * time.Millisecond); err != nil {
		log.Printf("duration change rejected (err=%v)", err)
		return
	}
	c.rec.DurationMs = ms
	c.persist(now, true)
}

func (c *Controller) pressResetCount(now time.Time) {
	if err := c.m.ResetCount(); err != nil {
		log.Printf("counter reset rejected (err=%v)", err)
		return
	}
	c.rec.TotalCount = 0
	c.persist(now, true)
}

func (c *Controller) pressMaterial(now time.Time) {
	if c.m.State() != machine.Idle {
		log.Printf("material change rejected (err=%v)", machine.ErrNotIdle)
		return
	}
	c.rec.Material = c.rec.Material.Next()
	c.persist(now, true)
}
