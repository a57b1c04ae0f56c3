// internal/machine/machine.go

// Package machine sequences homing, positioning, blasting and cycle tests.
//
// The machine is stepped once per control cycle by a single goroutine. At
// most one transition fires per Step, entry actions run once per entry,
// and no call blocks: motions are polled and blasts end on a deadline.
package machine

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	ring "github.com/zfjagann/golang-ring"

	"github.com/tamzrod/shaft-blaster/internal/actuator"
	"github.com/tamzrod/shaft-blaster/internal/cell"
	"github.com/tamzrod/shaft-blaster/internal/indicator"
	"github.com/tamzrod/shaft-blaster/internal/line"
)

const DefaultHistorySize = 32

var (
	// ErrNotIdle rejects configuration changes outside Idle.
	ErrNotIdle = errors.New("machine: not idle")
	// ErrHomingRequired means an extend was attempted without a verified home.
	ErrHomingRequired = errors.New("machine: home required before extend")
	// ErrPneumatics means blast pressure was not confirmed within the settle time.
	ErrPneumatics = errors.New("machine: blast pressure not confirmed")
)

// Motor is the motion side of the actuator driver.
type Motor interface {
	Begin(p actuator.Position, now time.Time) (*actuator.Motion, error)
	BeginHome(now time.Time) (*actuator.Motion, error)
}

// Inputs are the accepted (debounced) signals for one cycle.
type Inputs struct {
	DoorClosed   bool
	ShaftPresent bool

	// Automatic is true when the cell handshake governs blasting.
	Automatic bool
	// Cell is the handshake's abort reason; ignored in manual mode.
	Cell cell.Reason

	// PneumaticsConfirmed is the optional blast pressure feedback.
	PneumaticsConfirmed bool
}

// Config holds sequencing options.
type Config struct {
	Duration time.Duration

	// CountAborted counts blasts ended by an abort condition.
	CountAborted bool

	// PneumaticSettle enables the pressure feedback check when > 0.
	PneumaticSettle time.Duration

	HistorySize int
}

// Deps are the collaborators the machine drives.
type Deps struct {
	Motor     Motor
	Relay     line.Output
	Indicator indicator.Indicator
}

// Machine owns the process state. All fields are private; the controller
// talks to it through request and query methods only.
type Machine struct {
	motor Motor
	relay line.Output
	ind   indicator.Indicator

	countAborted bool
	settle       time.Duration

	cur      variant
	homed    bool
	trig     Triggers
	duration time.Duration
	count    uint32
	sessions uint32
	lastExit ExitReason

	history ring.Ring
}

// New builds a machine in Idle. count is the persisted lifetime counter.
func New(d Deps, cfg Config, count uint32, now time.Time) (*Machine, error) {
	if d.Motor == nil {
		return nil, errors.New("machine: motor required")
	}
	if d.Relay == nil {
		return nil, errors.New("machine: relay output required")
	}
	if cfg.Duration <= 0 {
		return nil, errors.New("machine: blast duration must be > 0")
	}
	if cfg.PneumaticSettle < 0 {
		return nil, errors.New("machine: pneumatic settle must be >= 0")
	}
	size := cfg.HistorySize
	if size <= 0 {
		size = DefaultHistorySize
	}

	m := &Machine{
		motor:        d.Motor,
		relay:        d.Relay,
		ind:          d.Indicator,
		countAborted: cfg.CountAborted,
		settle:       cfg.PneumaticSettle,
		duration:     cfg.Duration,
		count:        count,
	}
	m.history.SetCapacity(size)

	m.cur = &idle{}
	m.enter(now)
	return m, nil
}

// ---- queries ----

func (m *Machine) State() State { return m.cur.State() }
func (m *Machine) Homed() bool { return m.homed }
func (m *Machine) Count() uint32 { return m.count }
func (m *Machine) Duration() time.Duration { return m.duration }

// Sessions counts blasts started since boot.
func (m *Machine) Sessions() uint32 { return m.sessions }

// LastExit is why the most recent blast ended.
func (m *Machine) LastExit() ExitReason { return m.lastExit }

// Pending returns the latched requests.
func (m *Machine) Pending() Triggers { return m.trig }

// Fault returns the active fault, FaultNone outside Error.
func (m *Machine) Fault() Fault {
	if e, ok := m.cur.(*errored); ok {
		return e.fault
	}
	return FaultNone
}

// Session returns the running blast, if any.
func (m *Machine) Session() (BlastSession, bool) {
	if b, ok := m.cur.(*blasting); ok {
		return b.session, true
	}
	return BlastSession{}, false
}

// Processing reports whether a motion or blast is in progress.
func (m *Machine) Processing() bool {
	switch m.cur.State() {
	case Homing, Extending, Blasting, Testing:
		return true
	default:
		return false
	}
}

// History returns recent transitions, oldest first.
func (m *Machine) History() []Transition {
	vals := m.history.Values()
	out := make([]Transition, 0, len(vals))
	for _, v := range vals {
		if t, ok := v.(Transition); ok {
			out = append(out, t)
		}
	}
	return out
}

// ---- requests ----

// RequestHome latches a home request.
func (m *Machine) RequestHome() { m.trig.Home = true }

// RequestExtend latches an extend to p. Out-of-range positions are rejected
// here so the driver never sees them.
func (m *Machine) RequestExtend(p actuator.Position) error {
	if err := p.Check(); err != nil {
		return err
	}
	m.trig.Extend = true
	m.trig.ExtendPos = p
	return nil
}

// RequestCycleTest latches count round trips between home and p.
func (m *Machine) RequestCycleTest(count int, p actuator.Position) error {
	if count < 1 {
		return fmt.Errorf("machine: cycle test count must be >= 1 (got %d)", count)
	}
	if err := p.Check(); err != nil {
		return err
	}
	m.trig.Test = true
	m.trig.TestCount = count
	m.trig.TestPos = p
	return nil
}

// RequestBlast latches the automatic-blast trigger.
func (m *Machine) RequestBlast() { m.trig.Blast = true }

// AcknowledgeError latches the operator acknowledgement.
func (m *Machine) AcknowledgeError() { m.trig.Ack = true }

// SetDuration changes the blast duration for future sessions.
func (m *Machine) SetDuration(d time.Duration) error {
	if m.cur.State() != Idle {
		return ErrNotIdle
	}
	if d <= 0 {
		return errors.New("machine: blast duration must be > 0")
	}
	m.duration = d
	return nil
}

// ResetCount zeroes the lifetime counter.
func (m *Machine) ResetCount() error {
	if m.cur.State() != Idle {
		return ErrNotIdle
	}
	m.count = 0
	return nil
}

// SafeReset aborts a running blast and releases the relay. It reports
// whether a blast was aborted. Used when the operating mode changes.
func (m *Machine) SafeReset(now time.Time) bool {
	if b, ok := m.cur.(*blasting); ok {
		m.apply(m.endBlast(b, ExitSafeReset), now)
		return true
	}
	if err := m.relay.Set(false); err != nil {
		log.Printf("relay release failed (err=%v)", err)
	}
	return false
}

// ---- stepping ----

type transition struct {
	to     variant
	reason string
	effect func()
}

// Step evaluates the current state's transitions in priority order and
// fires at most one.
func (m *Machine) Step(in Inputs, now time.Time) {
	var t *transition
	switch s := m.cur.(type) {
	case *idle:
		t = m.stepIdle(in)
	case *homing:
		t = m.stepHoming(s, now)
	case *extending:
		t = m.stepExtending(s, now)
	case *blasting:
		t = m.stepBlasting(s, in, now)
	case *errored:
		t = m.stepError()
	case *cycleTest:
		t = m.stepTesting(s, now)
	}
	if t != nil {
		m.apply(t, now)
	}
}

func (m *Machine) stepIdle(in Inputs) *transition {
	switch {
	case m.trig.Home:
		m.trig.Home = false
		return &transition{to: &homing{}, reason: "home requested"}

	case m.trig.Extend:
		m.trig.Extend = false
		return &transition{to: &extending{pos: m.trig.ExtendPos}, reason: "extend requested"}
	}

	if m.trig.Blast {
		m.trig.Blast = false
		if in.DoorClosed {
			return &transition{to: &blasting{session: BlastSession{Automatic: in.Automatic}}, reason: "blast triggered"}
		}
		log.Printf("blast refused (reason=door_open)")
	}

	if m.trig.Test {
		m.trig.Test = false
		return &transition{
			to:     &cycleTest{remaining: m.trig.TestCount, pos: m.trig.TestPos, toHome: true},
			reason: "cycle test requested",
		}
	}

	// Idle -> Error has no defined condition.
	return nil
}

func (m *Machine) stepHoming(s *homing, now time.Time) *transition {
	if s.err != nil {
		return m.fail(s.err, "home start failed")
	}
	o, done := s.motion.Poll(now)
	if !done {
		return nil
	}
	if err := s.motion.Err(); err != nil {
		return m.fail(err, "homing failed")
	}
	return &transition{
		to:     &idle{},
		reason: "homed (" + o.String() + ")",
		effect: func() { m.homed = true },
	}
}

func (m *Machine) stepExtending(s *extending, now time.Time) *transition {
	if s.err != nil {
		return m.fail(s.err, "extend rejected")
	}
	o, done := s.motion.Poll(now)
	if !done {
		return nil
	}
	if o == actuator.Completed && s.motion.Err() == nil && m.homed {
		return &transition{to: &idle{}, reason: fmt.Sprintf("extended to %d", int(s.pos))}
	}
	err := s.motion.Err()
	if err == nil {
		err = actuator.ErrMotionTimeout
	}
	return m.fail(err, "extend failed")
}

func (m *Machine) stepBlasting(s *blasting, in Inputs, now time.Time) *transition {
	if s.err != nil {
		return m.fail(s.err, "relay failed")
	}

	// Aborts first, highest priority first, then normal completion.
	switch {
	case !in.DoorClosed:
		return m.endBlast(s, ExitDoorOpened)
	case in.Automatic && in.Cell == cell.Unavailable:
		return m.endBlast(s, ExitCellUnavailable)
	case in.Automatic && in.Cell == cell.ShaftCleared:
		return m.endBlast(s, ExitCellShaftCleared)
	case !in.ShaftPresent:
		return m.endBlast(s, ExitShaftRemoved)
	case !now.Before(s.session.Deadline()):
		return m.endBlast(s, ExitCompleted)
	}

	if m.settle > 0 && !in.PneumaticsConfirmed && now.Sub(s.session.Start) >= m.settle {
		return m.fail(ErrPneumatics, "pneumatics not confirmed")
	}
	return nil
}

func (m *Machine) stepError() *transition {
	if !m.trig.Ack {
		return nil
	}
	m.trig.Ack = false
	return &transition{to: &idle{}, reason: "error acknowledged"}
}

func (m *Machine) stepTesting(s *cycleTest, now time.Time) *transition {
	if s.err != nil {
		return m.fail(s.err, "cycle test start failed")
	}
	_, done := s.motion.Poll(now)
	if !done {
		return nil
	}
	if err := s.motion.Err(); err != nil {
		return m.fail(err, "cycle test failed")
	}

	var err error
	if s.toHome {
		if s.remaining == 0 {
			return &transition{to: &idle{}, reason: "cycle test complete"}
		}
		s.toHome = false
		s.motion, err = m.motor.Begin(s.pos, now)
	} else {
		s.remaining--
		s.toHome = true
		s.motion, err = m.motor.BeginHome(now)
	}
	if err != nil {
		return m.fail(err, "cycle test leg failed")
	}
	m.show(indicator.Processing)
	return nil
}

func (m *Machine) endBlast(s *blasting, r ExitReason) *transition {
	return &transition{
		to:     &idle{},
		reason: "blast " + r.String(),
		effect: func() {
			m.lastExit = r
			if !r.Aborted() || m.countAborted {
				m.count++
			}
			log.Printf("blast ended (session=%s reason=%s count=%d)", s.session.ID, r, m.count)
		},
	}
}

func (m *Machine) fail(err error, reason string) *transition {
	return &transition{
		to:     &errored{fault: faultFor(err), cause: err},
		reason: reason,
	}
}

// ---- transitions ----

func (m *Machine) apply(t *transition, now time.Time) {
	from := m.cur.State()
	m.leave()

	m.cur = t.to
	m.enter(now)
	if t.effect != nil {
		t.effect()
	}

	to := m.cur.State()
	m.history.Enqueue(Transition{From: from, To: to, Reason: t.reason, At: now})
	log.Printf("state %s -> %s (reason=%s)", from, to, t.reason)
}

// leave runs exit actions of the current state.
func (m *Machine) leave() {
	if _, ok := m.cur.(*blasting); ok {
		if err := m.relay.Set(false); err != nil {
			log.Printf("relay release failed (err=%v)", err)
		}
	}
}

// enter runs the entry action of the new current state, exactly once.
func (m *Machine) enter(now time.Time) {
	switch s := m.cur.(type) {
	case *idle:
		// Stale requests must never leak into a fresh cycle.
		m.trig = Triggers{}
		m.homed = false
		m.show(indicator.OK)

	case *homing:
		m.homed = false
		s.motion, s.err = m.motor.BeginHome(now)
		m.show(indicator.Processing)

	case *extending:
		if !m.homed {
			s.err = fmt.Errorf("%w: position %d", ErrHomingRequired, int(s.pos))
			m.show(indicator.Fault)
			return
		}
		s.motion, s.err = m.motor.Begin(s.pos, now)
		m.show(indicator.Processing)

	case *blasting:
		s.session.ID = uuid.New()
		s.session.Start = now
		s.session.Duration = m.duration
		m.sessions++
		if err := m.relay.Set(true); err != nil {
			s.err = fmt.Errorf("machine: relay: %w", err)
		}
		m.show(indicator.Processing)
		log.Printf("blast started (session=%s duration=%v automatic=%v)", s.session.ID, s.session.Duration, s.session.Automatic)

	case *errored:
		m.homed = false
		m.trig.Ack = false
		if err := m.relay.Set(false); err != nil {
			log.Printf("relay release failed (err=%v)", err)
		}
		m.show(indicator.Fault)
		log.Printf("fault %s (err=%v)", s.fault, s.cause)

	case *cycleTest:
		s.motion, s.err = m.motor.BeginHome(now)
		m.show(indicator.Processing)
	}
}

func (m *Machine) show(cond indicator.Condition) {
	if m.ind == nil {
		return
	}
	st := m.cur.State()
	if err := m.ind.Show(st.String(), indicator.ColorFor(st == Error, cond)); err != nil {
		log.Printf("indicator update failed (state=%s err=%v)", st, err)
	}
}
