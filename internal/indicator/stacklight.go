// internal/indicator/stacklight.go
package indicator

import (
	"errors"
	"fmt"

	"github.com/tamzrod/shaft-blaster/internal/line"
)

// StackLight drives one lamp per colour. At most one lamp is lit.
type StackLight struct {
	green line.Output
	red   line.Output
	white line.Output

	cur     Color
	applied bool
}

// NewStackLight requires all three lamps.
func NewStackLight(green, red, white line.Output) (*StackLight, error) {
	if green == nil || red == nil || white == nil {
		return nil, errors.New("indicator: stack light requires green, red and white lamps")
	}
	return &StackLight{green: green, red: red, white: white}, nil
}

// Show lights the lamp for c. Lamps are rewritten only when the colour
// changes or a previous write failed.
func (s *StackLight) Show(_ string, c Color) error {
	if s.applied && c == s.cur {
		return nil
	}
	s.applied = false

	// Lamps off first so two colours never show together.
	lamps := []struct {
		c   Color
		out line.Output
	}{{Green, s.green}, {Red, s.red}, {White, s.white}}
	for _, l := range lamps {
		if l.c == c {
			continue
		}
		if err := l.out.Set(false); err != nil {
			return fmt.Errorf("indicator: %s lamp: %w", l.c, err)
		}
	}
	for _, l := range lamps {
		if l.c != c {
			continue
		}
		if err := l.out.Set(true); err != nil {
			return fmt.Errorf("indicator: %s lamp: %w", l.c, err)
		}
	}

	s.cur = c
	s.applied = true
	return nil
}
