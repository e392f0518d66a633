package gpio

import (
	"fmt"

	"github.com/thatsimonsguy/light-controller/internal/model"
	"github.com/thatsimonsguy/light-controller/internal/pinctrl"
	"github.com/thatsimonsguy/light-controller/system/shutdown"
)

var (
	readLevel = pinctrl.ReadLevel
	drive     = pinctrl.Drive
	fatal     = shutdown.ShutdownWithError
)

// PinctrlDriver drives pins through the Raspberry Pi pinctrl tool. In safe mode Set is a
// no-op and pins keep whatever level the boot script left them at.
type PinctrlDriver struct {
	pins     map[Line]model.GPIOPin
	safeMode bool
}

func NewPinctrlDriver(pins map[Line]model.GPIOPin, safeMode bool) *PinctrlDriver {
	return &PinctrlDriver{pins: pins, safeMode: safeMode}
}

func (d *PinctrlDriver) Set(line Line, active bool) {
	if d.safeMode {
		return
	}
	pin, ok := d.pins[line]
	if !ok {
		return
	}

	// active-low lamps are lit by driving the pin low
	if err := drive(pin.Number, pin.ActiveHigh == active); err != nil {
		fatal(err, fmt.Sprintf("Failed to drive %s (pin %d)", line, pin.Number))
	}
}

func (d *PinctrlDriver) Active(line Line) bool {
	pin, ok := d.pins[line]
	if !ok {
		return false
	}
	level, err := readLevel(pin.Number)
	if err != nil {
		fatal(err, fmt.Sprintf("Failed to read pin level for %s (pin %d)", line, pin.Number))
		return false
	}
	return pin.ActiveHigh == level
}
