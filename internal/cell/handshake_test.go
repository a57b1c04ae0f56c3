// internal/cell/handshake_test.go
package cell

import (
	"errors"
	"testing"
	"time"

	"github.com/tamzrod/shaft-blaster/internal/line"
)

var ready = Inputs{Powered: true, Auto: true}

func newHandshake(t *testing.T, hb time.Duration) (*Handshake, *line.Fake, *line.Fake, *line.Fake) {
	t.Helper()
	safe, blasting, beat := line.NewFake(false), line.NewFake(false), line.NewFake(false)
	h, err := New(Outputs{MachineSafe: safe, Blasting: blasting, Heartbeat: beat}, hb)
	if err != nil {
		t.Fatalf("New err=%v", err)
	}
	return h, safe, blasting, beat
}

func TestInputs_Available(t *testing.T) {
	cases := []struct {
		in   Inputs
		want bool
	}{
		{Inputs{Powered: true, Auto: true}, true},
		{Inputs{Powered: false, Auto: true}, false},
		{Inputs{Powered: true, Auto: false}, false},
		{Inputs{Powered: true, Auto: true, Faulted: true}, false},
	}
	for _, c := range cases {
		if got := c.in.Available(); got != c.want {
			t.Fatalf("Available(%+v) got=%v want=%v", c.in, got, c.want)
		}
	}
}

func TestPermit_RequiresFreshPresentation(t *testing.T) {
	h, _, _, _ := newHandshake(t, 0)
	t0 := time.Unix(0, 0)

	h.Update(ready, t0)
	withShaft := ready
	withShaft.ShaftInPlace = true

	v := h.Update(withShaft, t0)
	if !v.ShaftArrived {
		t.Fatalf("absent -> present not reported")
	}
	if !h.Permit(true, true) {
		t.Fatalf("permit expected for a fresh presentation")
	}

	h.MarkHandled()
	h.Update(withShaft, t0)
	if h.Permit(true, true) {
		t.Fatalf("same presentation must not retrigger")
	}

	h.Update(ready, t0)
	h.Update(withShaft, t0)
	if !h.Permit(true, true) {
		t.Fatalf("re-presented shaft must clear the latch")
	}
}

func TestPermit_Gates(t *testing.T) {
	h, _, _, _ := newHandshake(t, 0)
	t0 := time.Unix(0, 0)
	h.Update(ready, t0)
	withShaft := ready
	withShaft.ShaftInPlace = true
	h.Update(withShaft, t0)

	if h.Permit(false, true) {
		t.Fatalf("open door must block")
	}
	if h.Permit(true, false) {
		t.Fatalf("missing local shaft must block")
	}

	faulted := withShaft
	faulted.Faulted = true
	h.Update(faulted, t0)
	if h.Permit(true, true) {
		t.Fatalf("unavailable cell must block")
	}
}

func TestUpdate_ShaftPresentAtBootIsHandled(t *testing.T) {
	h, _, _, _ := newHandshake(t, 0)
	withShaft := ready
	withShaft.ShaftInPlace = true
	v := h.Update(withShaft, time.Unix(0, 0))
	if v.ShaftArrived || h.Permit(true, true) {
		t.Fatalf("shaft present at first sample must not trigger")
	}
}

func TestAbortReason_Priority(t *testing.T) {
	h, _, _, _ := newHandshake(t, 0)
	t0 := time.Unix(0, 0)

	h.Update(Inputs{Powered: true, Auto: true, Faulted: true}, t0)
	if r := h.AbortReason(false); r != DoorOpen {
		t.Fatalf("door must win, got %v", r)
	}
	if r := h.AbortReason(true); r != Unavailable {
		t.Fatalf("expected unavailable, got %v", r)
	}

	h.Update(ready, t0)
	if r := h.AbortReason(true); r != ShaftCleared {
		t.Fatalf("expected shaft cleared, got %v", r)
	}

	withShaft := ready
	withShaft.ShaftInPlace = true
	h.Update(withShaft, t0)
	if r := h.AbortReason(true); r != NoAbort {
		t.Fatalf("expected no abort, got %v", r)
	}
}

func TestPublish_OutputsAndHeartbeat(t *testing.T) {
	h, safe, blasting, beat := newHandshake(t, 500*time.Millisecond)
	t0 := time.Unix(0, 0)

	if err := h.Publish(true, false, t0); err != nil {
		t.Fatalf("Publish err=%v", err)
	}
	if !safe.Level() || blasting.Level() {
		t.Fatalf("outputs not driven")
	}
	first := beat.Level()

	_ = h.Publish(true, false, t0.Add(100*time.Millisecond))
	if beat.Level() != first {
		t.Fatalf("heartbeat toggled before the period")
	}
	_ = h.Publish(true, false, t0.Add(500*time.Millisecond))
	if beat.Level() == first {
		t.Fatalf("heartbeat did not toggle after the period")
	}

	writes := safe.Writes()
	_ = h.Publish(true, false, t0.Add(600*time.Millisecond))
	if safe.Writes() != writes {
		t.Fatalf("unchanged outputs rewritten")
	}
}

func TestPublish_ReassertsAfterFailure(t *testing.T) {
	h, safe, blasting, _ := newHandshake(t, 0)
	t0 := time.Unix(0, 0)

	blasting.Fail(errors.New("coil write"))
	if err := h.Publish(true, true, t0); err == nil {
		t.Fatalf("expected error")
	}
	blasting.Fail(nil)
	before := safe.Writes()
	if err := h.Publish(true, true, t0); err != nil {
		t.Fatalf("Publish err=%v", err)
	}
	if safe.Writes() == before || !blasting.Level() {
		t.Fatalf("outputs not re-asserted after failure")
	}
}

func TestReset_SafeOutputs(t *testing.T) {
	h, safe, blasting, _ := newHandshake(t, 0)
	t0 := time.Unix(0, 0)

	h.Update(ready, t0)
	withShaft := ready
	withShaft.ShaftInPlace = true
	h.Update(withShaft, t0)
	_ = h.Publish(true, true, t0)

	if err := h.Reset(t0); err != nil {
		t.Fatalf("Reset err=%v", err)
	}
	if safe.Level() || blasting.Level() {
		t.Fatalf("reset must de-assert outputs")
	}
	if h.Permit(true, true) {
		t.Fatalf("presentation during reset must count as handled")
	}
}
