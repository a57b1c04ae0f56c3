// internal/controller/status.go
package controller

import (
	"log"
	"time"

	"github.com/tamzrod/shaft-blaster/internal/indicator"
	"github.com/tamzrod/shaft-blaster/internal/machine"
	"github.com/tamzrod/shaft-blaster/internal/status"
)

func (c *Controller) snapshot(now time.Time, door, shaft bool) status.Snapshot {
	st := c.m.State()

	cond := indicator.OK
	if c.m.Processing() {
		cond = indicator.Processing
	}

	var flags uint16
	if c.m.Homed() {
		flags |= status.FlagHomed
	}
	if c.hs != nil && c.hs.Available() {
		flags |= status.FlagCellAvailable
	}
	if c.manualMode {
		flags |= status.FlagManual
	}
	if st == machine.Blasting {
		flags |= status.FlagRelay
	}
	if door {
		flags |= status.FlagDoorClosed
	}
	if shaft {
		flags |= status.FlagShaftPresent
	}

	var secs uint32
	if st == machine.Error && !c.errorSince.IsZero() && now.After(c.errorSince) {
		secs = uint32(now.Sub(c.errorSince) / time.Second)
	}

	return status.Snapshot{
		State:          uint16(st),
		Fault:          uint16(c.m.Fault()),
		SecondsInError: secs,
		Color:          uint16(indicator.ColorFor(st == machine.Error, cond)),
		Flags:          flags,
		LastExit:       uint16(c.m.LastExit()),
		TotalCount:     c.rec.TotalCount,
		DurationMs:     c.rec.DurationMs,
		Material:       uint16(c.rec.Material),
		Sessions:       c.m.Sessions(),
	}
}

// publishStatus mirrors the snapshot; failures are logged once until the
// writer recovers.
func (c *Controller) publishStatus(now time.Time, door, shaft bool) {
	if c.status == nil {
		return
	}
	if err := c.status.WriteStatus(c.snapshot(now, door, shaft)); err != nil {
		if !c.statusFail {
			log.Printf("status write failed (err=%v)", err)
		}
		c.statusFail = true
		return
	}
	if c.statusFail {
		log.Printf("status write recovered")
	}
	c.statusFail = false
}
