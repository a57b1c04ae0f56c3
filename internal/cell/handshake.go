// internal/cell/handshake.go

// Package cell exchanges availability and shaft presence with an upstream
// automation cell and gates automatic blasting on it.
package cell

import (
	"errors"
	"fmt"
	"time"

	"github.com/tamzrod/shaft-blaster/internal/line"
)

// Inputs is one sample of the cell's signals.
type Inputs struct {
	Powered      bool
	Auto         bool
	Faulted      bool
	ShaftInPlace bool
}

// Available is recomputed from every sample and never cached.
func (in Inputs) Available() bool {
	return in.Powered && in.Auto && !in.Faulted
}

// Outputs are the lines this package owns. Heartbeat is optional.
type Outputs struct {
	MachineSafe line.Output
	Blasting    line.Output
	Heartbeat   line.Output
}

// Reason is why an automatic blast must end now.
type Reason int

const (
	NoAbort Reason = iota
	DoorOpen
	Unavailable
	ShaftCleared
)

func (r Reason) String() string {
	switch r {
	case NoAbort:
		return "none"
	case DoorOpen:
		return "door_open"
	case Unavailable:
		return "cell_unavailable"
	case ShaftCleared:
		return "cell_shaft_cleared"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// View is the handshake state after one Update.
type View struct {
	Available    bool
	ShaftInPlace bool
	// ShaftArrived is true on the cycle the cell shaft goes absent -> present.
	ShaftArrived bool
	ShaftHandled bool
}

// Handshake holds the cell-side latches. Single goroutine; no locking.
type Handshake struct {
	out       Outputs
	heartbeat time.Duration

	in           Inputs
	sampled      bool
	shaftHandled bool

	hbLevel bool
	hbAt    time.Time

	safe, blasting bool
	published      bool
}

// New requires the machine-safe and blasting outputs. A zero heartbeat
// period disables the heartbeat toggle.
func New(out Outputs, heartbeat time.Duration) (*Handshake, error) {
	if out.MachineSafe == nil {
		return nil, errors.New("cell: machine-safe output required")
	}
	if out.Blasting == nil {
		return nil, errors.New("cell: blasting output required")
	}
	if heartbeat < 0 {
		return nil, errors.New("cell: heartbeat period must be >= 0")
	}
	return &Handshake{out: out, heartbeat: heartbeat}, nil
}

// Update ingests one sample of the cell lines.
//
// The shaftHandled latch clears only when the cell shaft goes from absent
// to present. A shaft already present at the first sample counts as
// handled, so a restart never blasts the same presentation twice.
func (h *Handshake) Update(in Inputs, _ time.Time) View {
	arrived := false
	if !h.sampled {
		h.sampled = true
		h.shaftHandled = in.ShaftInPlace
	} else if in.ShaftInPlace && !h.in.ShaftInPlace {
		arrived = true
		h.shaftHandled = false
	}
	h.in = in

	return View{
		Available:    in.Available(),
		ShaftInPlace: in.ShaftInPlace,
		ShaftArrived: arrived,
		ShaftHandled: h.shaftHandled,
	}
}

// Available reports availability from the latest sample.
func (h *Handshake) Available() bool { return h.in.Available() }

// Permit reports whether an automatic blast may start this cycle.
func (h *Handshake) Permit(doorClosed, localShaft bool) bool {
	return h.sampled &&
		h.in.Available() &&
		doorClosed &&
		h.in.ShaftInPlace &&
		localShaft &&
		!h.shaftHandled
}

// MarkHandled latches the current presentation once a blast starts on it.
func (h *Handshake) MarkHandled() { h.shaftHandled = true }

// AbortReason returns the highest-priority reason to end an automatic blast.
func (h *Handshake) AbortReason(doorClosed bool) Reason {
	switch {
	case !doorClosed:
		return DoorOpen
	case !h.in.Available():
		return Unavailable
	case !h.in.ShaftInPlace:
		return ShaftCleared
	default:
		return NoAbort
	}
}

// Publish drives machine-safe and blasting, and toggles the heartbeat
// every period. Outputs are rewritten only on change, and fully after a
// failed write.
func (h *Handshake) Publish(safe, blasting bool, now time.Time) error {
	if !h.published || safe != h.safe || blasting != h.blasting {
		h.published = false
		if err := h.out.MachineSafe.Set(safe); err != nil {
			return fmt.Errorf("cell: machine-safe: %w", err)
		}
		if err := h.out.Blasting.Set(blasting); err != nil {
			return fmt.Errorf("cell: blasting: %w", err)
		}
		h.safe, h.blasting = safe, blasting
		h.published = true
	}

	if h.out.Heartbeat == nil || h.heartbeat == 0 {
		return nil
	}
	if h.hbAt.IsZero() || now.Before(h.hbAt) || now.Sub(h.hbAt) >= h.heartbeat {
		next := !h.hbLevel
		if err := h.out.Heartbeat.Set(next); err != nil {
			return fmt.Errorf("cell: heartbeat: %w", err)
		}
		h.hbLevel = next
		h.hbAt = now
	}
	return nil
}

// Reset de-asserts both outputs and treats any shaft currently presented
// as handled. Used on mode changes.
func (h *Handshake) Reset(now time.Time) error {
	h.shaftHandled = h.in.ShaftInPlace
	h.published = false
	return h.Publish(false, false, now)
}
