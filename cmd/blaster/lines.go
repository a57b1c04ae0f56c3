// cmd/blaster/lines.go
package main

import (
	"fmt"

	"github.com/tamzrod/shaft-blaster/internal/config"
	"github.com/tamzrod/shaft-blaster/internal/line"
	"github.com/tamzrod/shaft-blaster/internal/line/gpioline"
	"github.com/tamzrod/shaft-blaster/internal/remoteio"
)

// binder resolves logical line names to GPIO pins or remote I/O points.
// Polarity is applied here; everything above sees logical levels.
type binder struct {
	lines map[string]config.LineConfig
	bank  *remoteio.Bank

	hostReady bool
}

func (b *binder) has(name string) bool {
	_, ok := b.lines[name]
	return ok
}

func (b *binder) initHost() error {
	if b.hostReady {
		return nil
	}
	if err := gpioline.Init(); err != nil {
		return err
	}
	b.hostReady = true
	return nil
}

// input returns nil, nil for an unconfigured line.
func (b *binder) input(name string) (line.Input, error) {
	lc, ok := b.lines[name]
	if !ok {
		return nil, nil
	}

	var in line.Input
	if lc.Remote != nil {
		if b.bank == nil {
			return nil, fmt.Errorf("line %s: remote_io not configured", name)
		}
		r, err := b.bank.Input(*lc.Remote)
		if err != nil {
			return nil, fmt.Errorf("line %s: %w", name, err)
		}
		in = r
	} else {
		if err := b.initHost(); err != nil {
			return nil, err
		}
		pull, err := gpioline.ParsePull(lc.Pull)
		if err != nil {
			return nil, fmt.Errorf("line %s: %w", name, err)
		}
		p, err := gpioline.OpenInput(lc.GPIO, pull)
		if err != nil {
			return nil, fmt.Errorf("line %s: %w", name, err)
		}
		in = p
	}

	if lc.ActiveLow {
		in = line.InvertInput(in)
	}
	return in, nil
}

// output returns nil, nil for an unconfigured line.
func (b *binder) output(name string) (line.Output, error) {
	lc, ok := b.lines[name]
	if !ok {
		return nil, nil
	}

	var out line.Output
	if lc.Remote != nil {
		if b.bank == nil {
			return nil, fmt.Errorf("line %s: remote_io not configured", name)
		}
		out = b.bank.Output(*lc.Remote)
	} else {
		if err := b.initHost(); err != nil {
			return nil, err
		}
		p, err := gpioline.OpenOutput(lc.GPIO)
		if err != nil {
			return nil, fmt.Errorf("line %s: %w", name, err)
		}
		out = p
	}

	if lc.ActiveLow {
		out = line.InvertOutput(out)
	}
	return out, nil
}

// inputs binds every name in order, stopping at the first failure.
func (b *binder) inputs(names ...string) ([]line.Input, error) {
	out := make([]line.Input, len(names))
	for i, n := range names {
		in, err := b.input(n)
		if err != nil {
			return nil, err
		}
		out[i] = in
	}
	return out, nil
}
