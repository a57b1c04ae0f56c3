// internal/remoteio/bank.go
package remoteio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tamzrod/shaft-blaster/internal/line"
)

// Client abstracts the Modbus operations the bank needs.
type Client interface {
	ReadDiscreteInputs(unitID uint8, addr, qty uint16) ([]bool, error) // FC 2
	WriteCoil(unitID uint8, addr uint16, v bool) error                 // FC 5
}

// Config is the minimal runtime config the bank needs.
type Config struct {
	Name       string
	UnitID     uint8
	InputBase  uint16
	InputCount uint16
}

// Bank is a dumb, cycle-driven image of a remote I/O coupler.
// Inputs are read once per control cycle by PollOnce; lines read the image.
// Outputs are written through immediately.
type Bank struct {
	cfg    Config
	client Client

	mu     sync.Mutex
	inputs []bool
	at     time.Time
	err    error
}

// ErrNotPolled is returned by inputs read before the first successful poll.
var ErrNotPolled = errors.New("remoteio: input image not polled yet")

// New creates a bank with immutable config.
func New(cfg Config, client Client) (*Bank, error) {
	if cfg.Name == "" {
		return nil, errors.New("remoteio: name required")
	}
	if client == nil {
		return nil, errors.New("remoteio: client required")
	}
	if cfg.InputCount == 0 {
		return nil, errors.New("remoteio: input_count must be > 0")
	}
	return &Bank{cfg: cfg, client: client, err: ErrNotPolled}, nil
}

// PollOnce refreshes the input image with exactly one read.
// All-or-nothing: on failure the previous image is discarded so no line
// reports stale data as current.
func (b *Bank) PollOnce() error {
	bits, err := b.client.ReadDiscreteInputs(b.cfg.UnitID, b.cfg.InputBase, b.cfg.InputCount)

	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil && len(bits) < int(b.cfg.InputCount) {
		err = fmt.Errorf("remoteio: short read: got=%d want=%d", len(bits), b.cfg.InputCount)
	}
	if err != nil {
		b.inputs = nil
		b.err = fmt.Errorf("remoteio %s: poll: %w", b.cfg.Name, err)
		return b.err
	}

	b.inputs = bits
	b.at = time.Now()
	b.err = nil
	return nil
}

// LastPoll returns the time of the last successful poll.
func (b *Bank) LastPoll() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.at
}

// Input returns a line bound to the input at offset (relative to InputBase).
func (b *Bank) Input(offset uint16) (line.Input, error) {
	if offset >= b.cfg.InputCount {
		return nil, fmt.Errorf("remoteio %s: input offset %d out of range (count=%d)", b.cfg.Name, offset, b.cfg.InputCount)
	}
	return &input{bank: b, offset: offset}, nil
}

// Output returns a line bound to the coil at addr.
func (b *Bank) Output(addr uint16) line.Output {
	return &output{bank: b, addr: addr}
}

type input struct {
	bank   *Bank
	offset uint16
}

func (i *input) Read() (bool, error) {
	i.bank.mu.Lock()
	defer i.bank.mu.Unlock()
	if i.bank.err != nil {
		return false, i.bank.err
	}
	return i.bank.inputs[i.offset], nil
}

type output struct {
	bank *Bank
	addr uint16
}

func (o *output) Set(v bool) error {
	if err := o.bank.client.WriteCoil(o.bank.cfg.UnitID, o.addr, v); err != nil {
		return fmt.Errorf("remoteio %s: coil %d: %w", o.bank.cfg.Name, o.addr, err)
	}
	return nil
}
