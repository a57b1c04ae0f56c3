// internal/line/gpioline/gpioline.go

// Package gpioline binds logical lines to host GPIO pins through periph.io.
package gpioline

import (
	"fmt"
	"strings"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Init loads the host drivers. It must run before any pin is looked up.
func Init() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("gpioline: host init: %w", err)
	}
	return nil
}

// ParsePull maps a config string to a periph pull setting.
func ParsePull(s string) (gpio.Pull, error) {
	switch strings.ToLower(s) {
	case "":
		return gpio.PullNoChange, nil
	case "up":
		return gpio.PullUp, nil
	case "down":
		return gpio.PullDown, nil
	case "float", "none":
		return gpio.Float, nil
	default:
		return gpio.PullNoChange, fmt.Errorf("gpioline: unknown pull %q", s)
	}
}

// Input reads a pin; High reads as true.
type Input struct {
	pin gpio.PinIn
}

// NewInput configures pin as an input without edge detection.
func NewInput(pin gpio.PinIn, pull gpio.Pull) (*Input, error) {
	if pin == nil {
		return nil, fmt.Errorf("gpioline: nil pin")
	}
	if err := pin.In(pull, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("gpioline: %s in: %w", pin, err)
	}
	return &Input{pin: pin}, nil
}

// OpenInput looks a pin up by name (e.g. "GPIO17") and configures it as an input.
func OpenInput(name string, pull gpio.Pull) (*Input, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpioline: pin %q not found", name)
	}
	return NewInput(p, pull)
}

func (i *Input) Read() (bool, error) {
	return i.pin.Read() == gpio.High, nil
}

// Output drives a pin; true drives High.
type Output struct {
	pin gpio.PinOut
}

// NewOutput configures pin as an output driven Low.
func NewOutput(pin gpio.PinOut) (*Output, error) {
	if pin == nil {
		return nil, fmt.Errorf("gpioline: nil pin")
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("gpioline: %s out: %w", pin, err)
	}
	return &Output{pin: pin}, nil
}

// OpenOutput looks a pin up by name and configures it as an output.
func OpenOutput(name string) (*Output, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpioline: pin %q not found", name)
	}
	return NewOutput(p)
}

func (o *Output) Set(v bool) error {
	if err := o.pin.Out(gpio.Level(v)); err != nil {
		return fmt.Errorf("gpioline: %s set: %w", o.pin, err)
	}
	return nil
}
