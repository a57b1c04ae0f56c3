// internal/machine/machine_test.go
package machine

import (
	"errors"
	"testing"
	"time"

	"github.com/tamzrod/shaft-blaster/internal/actuator"
	"github.com/tamzrod/shaft-blaster/internal/cell"
	"github.com/tamzrod/shaft-blaster/internal/indicator"
	"github.com/tamzrod/shaft-blaster/internal/line"
)

const blastTime = 7 * time.Second

type countingMotor struct {
	d     *actuator.Driver
	calls int
	last  actuator.Position
}

func (c *countingMotor) Begin(p actuator.Position, now time.Time) (*actuator.Motion, error) {
	c.calls++
	c.last = p
	return c.d.Begin(p, now)
}

func (c *countingMotor) BeginHome(now time.Time) (*actuator.Motion, error) {
	c.calls++
	c.last = actuator.HomePosition
	return c.d.BeginHome(now)
}

type recordingIndicator struct {
	shows []indicator.Color
}

func (r *recordingIndicator) Show(_ string, c indicator.Color) error {
	r.shows = append(r.shows, c)
	return nil
}

func (r *recordingIndicator) lastColor() indicator.Color {
	if len(r.shows) == 0 {
		return indicator.Off
	}
	return r.shows[len(r.shows)-1]
}

type rig struct {
	t     *testing.T
	m     *Machine
	motor *countingMotor
	busy  *line.Fake
	relay *line.Fake
	ind   *recordingIndicator
	now   time.Time
}

func newRig(t *testing.T, cfg Config) *rig {
	t.Helper()
	var l actuator.Lines
	for i := range l.Bits {
		l.Bits[i] = line.NewFake(false)
	}
	l.Drive = line.NewFake(false)
	busy := line.NewFake(false)
	l.Busy = busy

	d, err := actuator.New(l, actuator.Config{})
	if err != nil {
		t.Fatalf("actuator.New err=%v", err)
	}

	if cfg.Duration == 0 {
		cfg.Duration = blastTime
	}
	r := &rig{
		t:     t,
		motor: &countingMotor{d: d},
		busy:  busy,
		relay: line.NewFake(false),
		ind:   &recordingIndicator{},
		now:   time.Unix(1000, 0),
	}
	r.m, err = New(Deps{Motor: r.motor, Relay: r.relay, Indicator: r.ind}, cfg, 0, r.now)
	if err != nil {
		t.Fatalf("New err=%v", err)
	}
	return r
}

var safe = Inputs{DoorClosed: true, ShaftPresent: true}

func (r *rig) step(in Inputs, d time.Duration) {
	r.now = r.now.Add(d)
	r.m.Step(in, r.now)
}

// completeMotion plays the motion controller: busy during the strobe,
// idle afterwards.
func (r *rig) completeMotion() {
	r.busy.Drive(true)
	r.step(safe, 20*time.Millisecond)
	r.busy.Drive(false)
	r.step(safe, 10*time.Millisecond)
}

func (r *rig) expect(s State) {
	r.t.Helper()
	if got := r.m.State(); got != s {
		r.t.Fatalf("state got=%v want=%v", got, s)
	}
}

func (r *rig) home() {
	r.t.Helper()
	r.m.RequestHome()
	r.step(safe, 10*time.Millisecond)
	r.expect(Homing)
	r.completeMotion()
	r.expect(Idle)
	if !r.m.Homed() {
		r.t.Fatalf("homed flag not set after a successful home")
	}
}

func TestNew_StartsIdleAndGreen(t *testing.T) {
	r := newRig(t, Config{})
	r.expect(Idle)
	if r.ind.lastColor() != indicator.Green {
		t.Fatalf("idle colour got=%v", r.ind.lastColor())
	}
}

func TestIdleEntry_ClearsEveryTrigger(t *testing.T) {
	r := newRig(t, Config{})

	// Drive into Error so triggers can be latched outside Idle.
	if err := r.m.RequestExtend(5); err != nil {
		t.Fatalf("RequestExtend err=%v", err)
	}
	r.step(safe, 10*time.Millisecond)
	r.step(safe, 10*time.Millisecond)
	r.expect(Error)

	r.m.RequestHome()
	_ = r.m.RequestExtend(3)
	_ = r.m.RequestCycleTest(2, 4)
	r.m.RequestBlast()
	r.m.AcknowledgeError()
	if p := r.m.Pending(); !(p.Home && p.Extend && p.Test && p.Blast && p.Ack) {
		t.Fatalf("triggers not latched: %+v", p)
	}

	r.step(safe, 10*time.Millisecond)
	r.expect(Idle)
	if p := r.m.Pending(); p.Any() {
		t.Fatalf("idle entry left triggers latched: %+v", p)
	}

	// Nothing stale fires afterwards.
	r.step(safe, 10*time.Millisecond)
	r.expect(Idle)
}

func TestExtend_WithoutHomeNeverDrives(t *testing.T) {
	r := newRig(t, Config{})

	_ = r.m.RequestExtend(12)
	r.step(safe, 10*time.Millisecond)
	r.expect(Extending)
	r.step(safe, 10*time.Millisecond)
	r.expect(Error)

	if r.motor.calls != 0 {
		t.Fatalf("driver invoked %d times without a home", r.motor.calls)
	}
	if r.m.Fault() != FaultHomingRequired {
		t.Fatalf("fault got=%v", r.m.Fault())
	}
	if r.m.Homed() {
		t.Fatalf("homed flag must be false in Error")
	}
	if r.ind.lastColor() != indicator.Red {
		t.Fatalf("error colour got=%v", r.ind.lastColor())
	}
}

func TestHomeThenExtend(t *testing.T) {
	r := newRig(t, Config{})
	r.home()

	_ = r.m.RequestExtend(8)
	r.step(safe, 10*time.Millisecond)
	r.expect(Extending)
	if r.motor.last != 8 {
		t.Fatalf("driver got position %d", r.motor.last)
	}
	if r.ind.lastColor() != indicator.White {
		t.Fatalf("processing colour got=%v", r.ind.lastColor())
	}

	r.completeMotion()
	r.expect(Idle)
	if r.m.Homed() {
		t.Fatalf("idle re-entry must clear the homed flag")
	}
}

func TestExtend_TimeoutRoutesToError(t *testing.T) {
	r := newRig(t, Config{})
	r.home()

	_ = r.m.RequestExtend(8)
	r.step(safe, 10*time.Millisecond)
	r.step(safe, 20*time.Millisecond)
	r.expect(Extending)
	r.step(safe, actuator.DefaultTimeout+time.Millisecond)
	r.expect(Error)
	if r.m.Fault() != FaultMotionTimeout {
		t.Fatalf("fault got=%v", r.m.Fault())
	}
}

func TestHoming_TimeoutIsHomingFailure(t *testing.T) {
	r := newRig(t, Config{})
	r.m.RequestHome()
	r.step(safe, 10*time.Millisecond)
	r.step(safe, 20*time.Millisecond)
	r.step(safe, actuator.DefaultTimeout+time.Millisecond)
	r.expect(Error)
	if r.m.Fault() != FaultHomingFailure {
		t.Fatalf("fault got=%v", r.m.Fault())
	}
}

func TestError_StickyUntilAcknowledged(t *testing.T) {
	r := newRig(t, Config{})
	_ = r.m.RequestExtend(1)
	r.step(safe, 10*time.Millisecond)
	r.step(safe, 10*time.Millisecond)
	r.expect(Error)

	for i := 0; i < 100; i++ {
		r.step(safe, time.Second)
	}
	r.expect(Error)

	r.m.AcknowledgeError()
	r.step(safe, 10*time.Millisecond)
	r.expect(Idle)
	if r.m.Fault() != FaultNone {
		t.Fatalf("fault not cleared: %v", r.m.Fault())
	}
}

func TestError_StaleAckDoesNotExit(t *testing.T) {
	r := newRig(t, Config{})
	r.m.AcknowledgeError()
	_ = r.m.RequestExtend(1)
	r.step(safe, 10*time.Millisecond)

	// Ack latched before the fault must not clear it.
	if !r.m.Pending().Ack {
		t.Fatalf("ack should still be latched in Extending")
	}
	r.step(safe, 10*time.Millisecond)
	r.expect(Error)
	if r.m.Pending().Ack {
		t.Fatalf("error entry must drop an earlier acknowledgement")
	}
}

func TestScenario_ManualBlastCompletes(t *testing.T) {
	r := newRig(t, Config{CountAborted: true})

	r.m.RequestBlast()
	r.step(safe, 10*time.Millisecond)
	r.expect(Blasting)
	if !r.relay.Level() {
		t.Fatalf("relay not asserted on blasting entry")
	}
	sess, ok := r.m.Session()
	if !ok || sess.Duration != blastTime || sess.Automatic {
		t.Fatalf("session got=%+v ok=%v", sess, ok)
	}

	r.step(safe, blastTime-time.Millisecond)
	r.expect(Blasting)
	r.step(safe, time.Millisecond)
	r.expect(Idle)

	if r.relay.Level() {
		t.Fatalf("relay still asserted after blast")
	}
	if r.m.Count() != 1 {
		t.Fatalf("count got=%d want=1", r.m.Count())
	}
	if r.m.LastExit() != ExitCompleted {
		t.Fatalf("exit got=%v", r.m.LastExit())
	}
}

func TestScenario_DoorOpenAborts(t *testing.T) {
	for _, countAborted := range []bool{true, false} {
		r := newRig(t, Config{CountAborted: countAborted})

		r.m.RequestBlast()
		r.step(safe, 10*time.Millisecond)
		r.expect(Blasting)

		open := safe
		open.DoorClosed = false
		r.step(open, time.Second)
		r.expect(Idle)
		if r.relay.Level() {
			t.Fatalf("relay still asserted after door abort")
		}
		want := uint32(0)
		if countAborted {
			want = 1
		}
		if r.m.Count() != want {
			t.Fatalf("countAborted=%v count got=%d want=%d", countAborted, r.m.Count(), want)
		}
		if r.m.LastExit() != ExitDoorOpened {
			t.Fatalf("exit got=%v", r.m.LastExit())
		}
	}
}

func TestScenario_CellFaultAbortsAutomaticBlast(t *testing.T) {
	r := newRig(t, Config{CountAborted: true})
	auto := safe
	auto.Automatic = true

	r.m.RequestBlast()
	r.step(auto, 10*time.Millisecond)
	r.expect(Blasting)

	r.step(auto, time.Second)
	r.expect(Blasting)

	faulted := auto
	faulted.Cell = cell.Unavailable
	r.step(faulted, 10*time.Millisecond)
	r.expect(Idle)
	if r.m.LastExit() != ExitCellUnavailable {
		t.Fatalf("exit got=%v", r.m.LastExit())
	}
}

func TestBlast_CellReasonIgnoredInManual(t *testing.T) {
	r := newRig(t, Config{})
	r.m.RequestBlast()
	r.step(safe, 10*time.Millisecond)

	manual := safe
	manual.Cell = cell.ShaftCleared
	r.step(manual, time.Second)
	r.expect(Blasting)
}

func TestBlast_AbortPriority(t *testing.T) {
	r := newRig(t, Config{})
	auto := Inputs{DoorClosed: true, ShaftPresent: true, Automatic: true}
	r.m.RequestBlast()
	r.step(auto, 10*time.Millisecond)

	// Door open, cell unavailable, shaft gone and deadline passed all at once.
	all := Inputs{Automatic: true, Cell: cell.Unavailable}
	r.step(all, blastTime*2)
	if r.m.LastExit() != ExitDoorOpened {
		t.Fatalf("door must win, got %v", r.m.LastExit())
	}
}

func TestBlast_RefusedWithDoorOpen(t *testing.T) {
	r := newRig(t, Config{})
	r.m.RequestBlast()
	r.step(Inputs{ShaftPresent: true}, 10*time.Millisecond)
	r.expect(Idle)
	if r.m.Pending().Blast {
		t.Fatalf("refused blast must not stay latched")
	}
	if r.relay.Writes() != 0 {
		t.Fatalf("relay touched with the door open")
	}
}

func TestBlast_PneumaticsNotConfirmed(t *testing.T) {
	r := newRig(t, Config{PneumaticSettle: 200 * time.Millisecond})
	r.m.RequestBlast()
	r.step(safe, 10*time.Millisecond)
	r.step(safe, 100*time.Millisecond)
	r.expect(Blasting)

	r.step(safe, 100*time.Millisecond)
	r.expect(Error)
	if r.m.Fault() != FaultPneumatics {
		t.Fatalf("fault got=%v", r.m.Fault())
	}
	if r.relay.Level() {
		t.Fatalf("relay asserted in Error")
	}
	if r.m.Count() != 0 {
		t.Fatalf("failed blast counted")
	}
}

func TestBlast_PneumaticsConfirmed(t *testing.T) {
	r := newRig(t, Config{PneumaticSettle: 200 * time.Millisecond})
	ok := safe
	ok.PneumaticsConfirmed = true
	r.m.RequestBlast()
	r.step(ok, 10*time.Millisecond)
	r.step(ok, time.Second)
	r.expect(Blasting)
}

func TestBlast_EntryActionRunsOnce(t *testing.T) {
	r := newRig(t, Config{})
	r.m.RequestBlast()
	r.step(safe, 10*time.Millisecond)
	shows, relayWrites := len(r.ind.shows), r.relay.Writes()

	for i := 0; i < 50; i++ {
		r.step(safe, 10*time.Millisecond)
	}
	if len(r.ind.shows) != shows || r.relay.Writes() != relayWrites {
		t.Fatalf("entry action repeated while held")
	}
	if r.m.Sessions() != 1 {
		t.Fatalf("sessions got=%d", r.m.Sessions())
	}
}

func TestSafeReset_AbortsBlast(t *testing.T) {
	r := newRig(t, Config{CountAborted: false})
	r.m.RequestBlast()
	r.step(safe, 10*time.Millisecond)

	if !r.m.SafeReset(r.now) {
		t.Fatalf("SafeReset did not report the abort")
	}
	r.expect(Idle)
	if r.relay.Level() || r.m.LastExit() != ExitSafeReset || r.m.Count() != 0 {
		t.Fatalf("relay=%v exit=%v count=%d", r.relay.Level(), r.m.LastExit(), r.m.Count())
	}
}

func TestCycleTest_RoundTrips(t *testing.T) {
	r := newRig(t, Config{})
	if err := r.m.RequestCycleTest(2, 10); err != nil {
		t.Fatalf("RequestCycleTest err=%v", err)
	}
	r.step(safe, 10*time.Millisecond)
	r.expect(Testing)

	// home, out, home, out, home
	for leg := 0; leg < 5; leg++ {
		r.expect(Testing)
		want := actuator.HomePosition
		if leg%2 == 1 {
			want = 10
		}
		if r.motor.last != want {
			t.Fatalf("leg %d drove %d want %d", leg, r.motor.last, want)
		}
		r.completeMotion()
	}
	r.expect(Idle)
	if r.motor.calls != 5 {
		t.Fatalf("motions got=%d want=5", r.motor.calls)
	}
}

func TestCycleTest_TimeoutRoutesToError(t *testing.T) {
	r := newRig(t, Config{})
	_ = r.m.RequestCycleTest(1, 10)
	r.step(safe, 10*time.Millisecond)
	r.completeMotion()
	r.expect(Testing)

	r.step(safe, 20*time.Millisecond)
	r.step(safe, actuator.DefaultTimeout+time.Millisecond)
	r.expect(Error)
	if r.m.Fault() != FaultMotionTimeout {
		t.Fatalf("fault got=%v", r.m.Fault())
	}
}

func TestRequests_Validation(t *testing.T) {
	r := newRig(t, Config{})
	if err := r.m.RequestExtend(32); !errors.Is(err, actuator.ErrInvalidPosition) {
		t.Fatalf("expected ErrInvalidPosition, got %v", err)
	}
	if err := r.m.RequestCycleTest(0, 4); err == nil {
		t.Fatalf("expected count error")
	}
	if r.m.Pending().Any() {
		t.Fatalf("rejected requests latched")
	}
}

func TestSetDuration_OnlyInIdle(t *testing.T) {
	r := newRig(t, Config{})
	if err := r.m.SetDuration(3 * time.Second); err != nil {
		t.Fatalf("SetDuration err=%v", err)
	}
	r.m.RequestBlast()
	r.step(safe, 10*time.Millisecond)
	if err := r.m.SetDuration(time.Second); !errors.Is(err, ErrNotIdle) {
		t.Fatalf("expected ErrNotIdle, got %v", err)
	}
	if err := r.m.ResetCount(); !errors.Is(err, ErrNotIdle) {
		t.Fatalf("expected ErrNotIdle, got %v", err)
	}
	sess, _ := r.m.Session()
	if sess.Duration != 3*time.Second {
		t.Fatalf("session duration got=%v", sess.Duration)
	}
}

func TestHistory_Bounded(t *testing.T) {
	r := newRig(t, Config{Duration: time.Second})
	for i := 0; i < 20; i++ {
		r.m.RequestBlast()
		r.step(safe, 10*time.Millisecond)
		r.step(safe, time.Second)
	}
	h := r.m.History()
	if len(h) != DefaultHistorySize {
		t.Fatalf("history len got=%d want=%d", len(h), DefaultHistorySize)
	}
	last := h[len(h)-1]
	if last.From != Blasting || last.To != Idle {
		t.Fatalf("last transition got=%+v", last)
	}
	if r.m.Count() != 20 {
		t.Fatalf("count got=%d", r.m.Count())
	}
}
