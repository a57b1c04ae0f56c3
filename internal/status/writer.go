// internal/status/writer.go
package status

import (
	"errors"
	"fmt"
	"strings"
)

// RegisterClient is the Modbus side of the status writer (FC16).
type RegisterClient interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}

// Config places the block on the status device.
type Config struct {
	UnitID     uint8
	BaseSlot   uint16
	DeviceName string
}

// Writer delivers snapshots into status memory.
// It receives a snapshot and writes it verbatim.
type Writer struct {
	cfg Config
	cli RegisterClient

	needFull bool
	last     []uint16
	nameRegs []uint16
}

func NewWriter(cfg Config, cli RegisterClient) (*Writer, error) {
	if cli == nil {
		return nil, errors.New("status writer: client required")
	}
	return &Writer{
		cfg:      cfg,
		cli:      cli,
		needFull: true, // full re-assert on first successful write
		nameRegs: EncodeDeviceName(cfg.DeviceName),
	}, nil
}

// WriteStatus delivers a snapshot.
// On any write failure, the next call re-asserts the full block.
// Otherwise only slots that changed are written, one register each.
func (w *Writer) WriteStatus(s Snapshot) error {
	live := Encode(s)
	base := w.baseAddr()

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if w.needFull {
		if err := w.cli.WriteRegisters(w.cfg.UnitID, base, w.fullBlockRegs(live)); err != nil {
			w.needFull = true
			return fmt.Errorf("status writer: full block write failed: %w", err)
		}
		w.needFull = false
		w.last = live
		return nil
	}

	var errs []string
	for slot := 0; slot < SlotLiveEnd; slot++ {
		if w.last[slot] == live[slot] {
			continue
		}
		if err := w.cli.WriteRegisters(w.cfg.UnitID, base+uint16(slot), []uint16{live[slot]}); err != nil {
			errs = append(errs, fmt.Sprintf("slot%d write failed: %v", slot, err))
			continue
		}
		w.last[slot] = live[slot]
	}

	if len(errs) > 0 {
		// Any partial failure introduces doubt; re-assert on next call.
		w.needFull = true
		return errors.New("status writer: " + strings.Join(errs, " | "))
	}
	return nil
}

func (w *Writer) baseAddr() uint16 {
	// Each machine owns a fixed SlotsPerDevice block.
	return w.cfg.BaseSlot * SlotsPerDevice
}

func (w *Writer) fullBlockRegs(live []uint16) []uint16 {
	regs := make([]uint16, SlotsPerDevice)
	copy(regs, live)

	// Device name always lives at the end of the block
	copy(regs[SlotDeviceNameStart:SlotDeviceNameEnd+1], w.nameRegs)

	return regs
}
