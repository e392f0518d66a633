package gpio

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Line names one of the light outputs.
type Line int

const (
	Light Line = iota
	LongLight
	TurnLeft
	TurnRight
)

// Lines lists every output the light task owns.
var Lines = []Line{Light, LongLight, TurnLeft, TurnRight}

func (l Line) String() string {
	switch l {
	case Light:
		return "light"
	case LongLight:
		return "long_light"
	case TurnLeft:
		return "turn_left"
	case TurnRight:
		return "turn_right"
	default:
		return fmt.Sprintf("line(%d)", int(l))
	}
}

// Driver sets and reads the logical state of the light outputs. "Active" means the lamp is
// lit, whatever the pin polarity. Calls are expected not to block.
type Driver interface {
	Set(line Line, active bool)
	Active(line Line) bool
}

// AllOff drives every light output inactive.
func AllOff(d Driver) {
	for _, line := range Lines {
		d.Set(line, false)
	}
	log.Info().Msg("All light outputs off")
}
