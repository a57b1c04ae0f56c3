// internal/actuator/position.go
package actuator

import (
	"errors"
	"fmt"
)

// Position is a preprogrammed actuator offset in 1/16 inch increments.
// The motion controller accepts a 6-bit code; only 0..31 are programmed.
type Position int

const (
	// HomePosition is the retracted reference position.
	HomePosition Position = 0
	// MaxPosition is the furthest programmed offset (2 inches).
	MaxPosition Position = 31

	// CodeBits is the width of the position code bus.
	CodeBits = 6
)

// ErrInvalidPosition rejects a code outside [0, 31] before any line is touched.
var ErrInvalidPosition = errors.New("actuator: invalid position")

// Valid reports whether p can be sent to the motion controller.
func (p Position) Valid() bool {
	return p >= HomePosition && p <= MaxPosition
}

// Check returns ErrInvalidPosition (wrapped with the value) when p is out of range.
func (p Position) Check() error {
	if !p.Valid() {
		return fmt.Errorf("%w: %d not in [%d,%d]", ErrInvalidPosition, int(p), int(HomePosition), int(MaxPosition))
	}
	return nil
}

// Bits returns the code for p, least significant bit first.
func Bits(p Position) [CodeBits]bool {
	var out [CodeBits]bool
	v := int(p)
	for i := 0; i < CodeBits; i++ {
		out[i] = v&1 == 1
		v >>= 1
	}
	return out
}
