// internal/debounce/debounce.go

// Package debounce suppresses chatter on sampled digital inputs.
package debounce

import "time"

// Input holds the accepted level of one sampled signal.
//
// A raw level is accepted only after it has differed from the accepted
// level, without changing, for longer than the window. The reference time
// restarts on every raw change, so a flicker that reverts inside the window
// never produces an accepted transition, and two accepted transitions are
// always at least one window apart.
type Input struct {
	window   time.Duration
	accepted bool
	lastRaw  bool
	ref      time.Time
	started  bool
}

// New returns an input whose accepted level starts at initial.
func New(window time.Duration, initial bool) *Input {
	return &Input{window: window, accepted: initial, lastRaw: initial}
}

// Update feeds one raw sample taken at now and returns the accepted level.
func (d *Input) Update(raw bool, now time.Time) bool {
	if !d.started {
		d.started = true
		d.ref = now
	}

	// Clock went backwards (wrapped tick source or wall-clock step):
	// restart the reference instead of computing a huge interval.
	if now.Before(d.ref) {
		d.ref = now
	}

	if raw != d.lastRaw {
		d.lastRaw = raw
		d.ref = now
	}

	if raw != d.accepted && now.Sub(d.ref) > d.window {
		d.accepted = raw
		d.ref = now
	}

	return d.accepted
}

// Value returns the accepted level without sampling.
func (d *Input) Value() bool { return d.accepted }

// Reset forces the accepted level, e.g. after a mode change.
func (d *Input) Reset(v bool, now time.Time) {
	d.accepted = v
	d.lastRaw = v
	d.ref = now
	d.started = true
}
