// internal/indicator/indicator.go

// Package indicator maps machine condition to an operator-visible colour.
package indicator

import (
	"errors"
	"fmt"
	"log"
)

// Color is the indicator output.
type Color int

const (
	Off Color = iota
	Green
	Red
	White
)

func (c Color) String() string {
	switch c {
	case Off:
		return "off"
	case Green:
		return "green"
	case Red:
		return "red"
	case White:
		return "white"
	default:
		return fmt.Sprintf("color(%d)", int(c))
	}
}

// Condition is what the machine is doing right now.
type Condition int

const (
	OK Condition = iota
	Processing
	Fault
)

// ColorFor maps a condition to a colour. A faulted machine is red whatever
// the condition reported by the current activity.
func ColorFor(faulted bool, cond Condition) Color {
	if faulted {
		return Red
	}
	switch cond {
	case Processing:
		return White
	case Fault:
		return Red
	default:
		return Green
	}
}

// Indicator displays the colour for a named state.
type Indicator interface {
	Show(state string, c Color) error
}

// Multi fans one update out to several indicators. All are attempted.
func Multi(ind ...Indicator) Indicator {
	return multi(ind)
}

type multi []Indicator

func (m multi) Show(state string, c Color) error {
	var errs []error
	for _, i := range m {
		if i == nil {
			continue
		}
		if err := i.Show(state, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Logger reports colour changes through the standard logger.
type Logger struct {
	last    Color
	lastSt  string
	started bool
}

func (l *Logger) Show(state string, c Color) error {
	if l.started && c == l.last && state == l.lastSt {
		return nil
	}
	l.started = true
	l.last = c
	l.lastSt = state
	log.Printf("indicator %s (state=%s)", c, state)
	return nil
}
