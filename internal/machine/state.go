// internal/machine/state.go
package machine

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tamzrod/shaft-blaster/internal/actuator"
)

// State is the externally visible process state.
type State int

const (
	Idle State = iota
	Homing
	Extending
	Blasting
	Error
	Testing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Homing:
		return "homing"
	case Extending:
		return "extending"
	case Blasting:
		return "blasting"
	case Error:
		return "error"
	case Testing:
		return "testing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Fault is the cause recorded on Error entry.
type Fault int

const (
	FaultNone Fault = iota
	FaultMotionTimeout
	FaultHomingFailure
	FaultHomingRequired
	FaultInvalidPosition
	FaultPneumatics
	FaultIO
)

func (f Fault) String() string {
	switch f {
	case FaultNone:
		return "none"
	case FaultMotionTimeout:
		return "motion_timeout"
	case FaultHomingFailure:
		return "homing_failure"
	case FaultHomingRequired:
		return "homing_required"
	case FaultInvalidPosition:
		return "invalid_position"
	case FaultPneumatics:
		return "pneumatics"
	case FaultIO:
		return "io"
	default:
		return fmt.Sprintf("fault(%d)", int(f))
	}
}

func faultFor(err error) Fault {
	switch {
	case err == nil:
		return FaultNone
	case errors.Is(err, ErrHomingRequired):
		return FaultHomingRequired
	case errors.Is(err, ErrPneumatics):
		return FaultPneumatics
	case errors.Is(err, actuator.ErrHomingFailure):
		return FaultHomingFailure
	case errors.Is(err, actuator.ErrMotionTimeout):
		return FaultMotionTimeout
	case errors.Is(err, actuator.ErrInvalidPosition):
		return FaultInvalidPosition
	default:
		return FaultIO
	}
}

// ExitReason is why the last blast ended.
type ExitReason int

const (
	ExitNone ExitReason = iota
	ExitCompleted
	ExitDoorOpened
	ExitCellUnavailable
	ExitCellShaftCleared
	ExitShaftRemoved
	ExitSafeReset
)

func (r ExitReason) String() string {
	switch r {
	case ExitNone:
		return "none"
	case ExitCompleted:
		return "completed"
	case ExitDoorOpened:
		return "door_opened"
	case ExitCellUnavailable:
		return "cell_unavailable"
	case ExitCellShaftCleared:
		return "cell_shaft_cleared"
	case ExitShaftRemoved:
		return "shaft_removed"
	case ExitSafeReset:
		return "safe_reset"
	default:
		return fmt.Sprintf("exit(%d)", int(r))
	}
}

// Aborted reports whether the blast ended before its duration.
func (r ExitReason) Aborted() bool {
	return r != ExitNone && r != ExitCompleted
}

// BlastSession lives for one Blasting visit and is never persisted.
type BlastSession struct {
	ID        uuid.UUID
	Start     time.Time
	Duration  time.Duration
	Automatic bool
}

// Deadline is when the blast completes absent an abort.
func (b BlastSession) Deadline() time.Time { return b.Start.Add(b.Duration) }

// Remaining returns the time left at now, never negative.
func (b BlastSession) Remaining(now time.Time) time.Duration {
	r := b.Deadline().Sub(now)
	if r < 0 {
		return 0
	}
	return r
}

// variant is the current state together with the data only it needs.
type variant interface {
	State() State
}

type idle struct{}

type homing struct {
	motion *actuator.Motion
	err    error
}

type extending struct {
	pos    actuator.Position
	motion *actuator.Motion
	err    error
}

type blasting struct {
	session BlastSession
	err     error
}

type errored struct {
	fault Fault
	cause error
}

type cycleTest struct {
	remaining int
	pos       actuator.Position
	toHome    bool
	motion    *actuator.Motion
	err       error
}

func (*idle) State() State      { return Idle }
func (*homing) State() State    { return Homing }
func (*extending) State() State { return Extending }
func (*blasting) State() State  { return Blasting }
func (*errored) State() State   { return Error }
func (*cycleTest) State() State { return Testing }

// Triggers are the latched operator and automation requests.
type Triggers struct {
	Home      bool
	Extend    bool
	ExtendPos actuator.Position
	Test      bool
	TestCount int
	TestPos   actuator.Position
	Blast     bool
	Ack       bool
}

// Any reports whether any request is latched.
func (t Triggers) Any() bool {
	return t.Home || t.Extend || t.Test || t.Blast || t.Ack
}

// Transition is one entry of the transition history.
type Transition struct {
	From   State
	To     State
	Reason string
	At     time.Time
}
