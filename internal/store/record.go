// internal/store/record.go

// Package store persists the lifetime counter and operator settings.
package store

import "fmt"

const (
	DefaultDurationMs uint32 = 7000
	MinDurationMs     uint32 = 1000
	MaxDurationMs     uint32 = 15000
	DurationStepMs    uint32 = 1000

	// Durations above this mark an uninitialised store.
	SentinelDurationMs uint32 = 30000
)

// Material is the shaft material tag selected by the operator.
type Material uint8

const (
	Graphite Material = iota
	Steel
)

func (m Material) String() string {
	switch m {
	case Graphite:
		return "graphite"
	case Steel:
		return "steel"
	default:
		return fmt.Sprintf("material(%d)", uint8(m))
	}
}

// Next returns the other material.
func (m Material) Next() Material {
	if m == Graphite {
		return Steel
	}
	return Graphite
}

// Record is the persisted state.
type Record struct {
	TotalCount uint32   `cbor:"1,keyasint"`
	DurationMs uint32   `cbor:"2,keyasint"`
	Material   Material `cbor:"3,keyasint"`
}

// Defaults is the first-boot record.
func Defaults() Record {
	return Record{TotalCount: 0, DurationMs: DefaultDurationMs, Material: Graphite}
}

// ClampDuration bounds ms to [MinDurationMs, MaxDurationMs].
func ClampDuration(ms uint32) uint32 {
	if ms < MinDurationMs {
		return MinDurationMs
	}
	if ms > MaxDurationMs {
		return MaxDurationMs
	}
	return ms
}

// AdjustDuration adds steps*DurationStepMs and clamps.
func AdjustDuration(ms uint32, steps int) uint32 {
	v := int64(ms) + int64(steps)*int64(DurationStepMs)
	if v < int64(MinDurationMs) {
		return MinDurationMs
	}
	if v > int64(MaxDurationMs) {
		return MaxDurationMs
	}
	return uint32(v)
}

// Uninitialised reports whether r carries the blank-store sentinel.
func (r Record) Uninitialised() bool {
	return r.DurationMs > SentinelDurationMs
}

// Normalize clamps fields to their valid ranges.
func (r Record) Normalize() Record {
	r.DurationMs = ClampDuration(r.DurationMs)
	if r.Material != Graphite && r.Material != Steel {
		r.Material = Graphite
	}
	return r
}
