package gpio

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/warthog618/go-gpiocdev"

	"github.com/thatsimonsguy/light-controller/internal/model"
)

// CdevDriver drives the outputs through the GPIO character device. Polarity is handled by
// the kernel, so line values are logical.
type CdevDriver struct {
	mu    sync.Mutex
	chip  *gpiocdev.Chip
	lines map[Line]*gpiocdev.Line
}

func NewCdevDriver(chipName string, pins map[Line]model.GPIOPin) (*CdevDriver, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer("light-controller"))
	if err != nil {
		return nil, fmt.Errorf("failed to open GPIO chip %s: %w", chipName, err)
	}

	d := &CdevDriver{
		chip:  chip,
		lines: make(map[Line]*gpiocdev.Line),
	}
	for line, pin := range pins {
		opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
		if !pin.ActiveHigh {
			opts = append(opts, gpiocdev.AsActiveLow)
		}
		l, err := chip.RequestLine(pin.Number, opts...)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("failed to request GPIO line %d for %s: %w", pin.Number, line, err)
		}
		d.lines[line] = l
		log.Info().Str("line", line.String()).Int("offset", pin.Number).Bool("active_high", pin.ActiveHigh).Msg("Configured light output")
	}
	return d, nil
}

func (d *CdevDriver) Set(line Line, active bool) {
	d.mu.Lock()
	l, ok := d.lines[line]
	d.mu.Unlock()
	if !ok {
		return
	}

	v := 0
	if active {
		v = 1
	}
	if err := l.SetValue(v); err != nil {
		log.Error().Err(err).Str("line", line.String()).Bool("active", active).Msg("Failed to set light output")
	}
}

func (d *CdevDriver) Active(line Line) bool {
	d.mu.Lock()
	l, ok := d.lines[line]
	d.mu.Unlock()
	if !ok {
		return false
	}

	v, err := l.Value()
	if err != nil {
		log.Error().Err(err).Str("line", line.String()).Msg("Failed to read light output")
		return false
	}
	return v == 1
}

func (d *CdevDriver) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for name, l := range d.lines {
		l.Close()
		delete(d.lines, name)
	}
	if d.chip != nil {
		d.chip.Close()
		d.chip = nil
	}
}
