// internal/controller/sensor.go
package controller

import (
	"log"
	"time"

	"github.com/tamzrod/shaft-blaster/internal/debounce"
	"github.com/tamzrod/shaft-blaster/internal/line"
)

// sensor is one debounced input. The debouncer starts at the first sample
// so a level present at boot is never seen as an edge.
type sensor struct {
	name string
	in   line.Input

	// hold keeps the accepted value on read errors instead of forcing the
	// fallback (used for the mode switch).
	hold bool

	deb     *debounce.Input
	failing bool
}

// sample returns the accepted level. A failed read forces fallback at
// once, so a lost door or cell signal reads as unsafe without waiting for
// the debounce window.
func (s *sensor) sample(window time.Duration, now time.Time, fallback bool) bool {
	if s.in == nil {
		return fallback
	}

	v, err := s.in.Read()
	if err != nil {
		if !s.failing {
			log.Printf("line read failed (line=%s err=%v)", s.name, err)
			s.failing = true
		}
		if s.deb == nil {
			s.deb = debounce.New(window, fallback)
		}
		if s.hold {
			return s.deb.Value()
		}
		s.deb.Reset(fallback, now)
		return fallback
	}
	if s.failing {
		log.Printf("line read recovered (line=%s)", s.name)
		s.failing = false
	}

	if s.deb == nil {
		s.deb = debounce.New(window, v)
	}
	return s.deb.Update(v, now)
}

// button turns a debounced input into rising-edge presses.
type button struct {
	sensor
	press func(now time.Time)

	prev   bool
	primed bool
}

func (b *button) pressed(window time.Duration, now time.Time) bool {
	if b.in == nil {
		return false
	}
	v := b.sample(window, now, false)
	if !b.primed {
		b.primed = true
		b.prev = v
		return false
	}
	edge := v && !b.prev
	b.prev = v
	return edge
}
