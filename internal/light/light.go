// Package light drives the headlight and turn-signal outputs of the vehicle.
//
// A single goroutine ticks every TickInterval (500 ms by default). On each tick it resets the
// watchdog and advances the turn-signal state machine. Indicators toggle once per tick, so the
// flash period is always twice the tick interval.
package light

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"

	"github.com/thatsimonsguy/light-controller/internal/analog"
	"github.com/thatsimonsguy/light-controller/internal/gpio"
	"github.com/thatsimonsguy/light-controller/internal/model"
	"github.com/thatsimonsguy/light-controller/internal/terminal"
	"github.com/thatsimonsguy/light-controller/internal/watchdog"
)

const DefaultTickInterval = 500 * time.Millisecond

// Dispatcher is the terminal the controller registers light_cmd with.
type Dispatcher interface {
	Register(name, help, usage string, cb terminal.Callback)
	Unregister(name string)
	Printf(format string, args ...any)
}

// Observer is told about every accepted mode change.
type Observer interface {
	LightModeChanged(mode model.LightMode)
	TurnModeChanged(mode model.TurnMode)
}

// AppConfig is the reconfiguration payload shared with sibling applications.
type AppConfig struct {
	Name string
}

type Controller struct {
	out     gpio.Driver
	wd      watchdog.Resetter
	cmds    Dispatcher
	samples analog.Source

	cal       analog.Calibration
	tick      time.Duration
	observers []Observer

	turnMode      atomic.Int32
	stopRequested atomic.Bool
	running       atomic.Bool

	// lifecycle serialises Start and Stop; the task never takes it
	lifecycle sync.Mutex
	wake      chan struct{}
	done      chan struct{}
}

type Option func(*Controller)

func WithTickInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.tick = d
		}
	}
}

func WithCalibration(cal analog.Calibration) Option {
	return func(c *Controller) { c.cal = cal }
}

func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observers = append(c.observers, o) }
}

// New panics when the driver, watchdog or sample source is missing. cmds may be nil, in
// which case light_cmd is never registered.
func New(out gpio.Driver, wd watchdog.Resetter, cmds Dispatcher, samples analog.Source, opts ...Option) *Controller {
	if out == nil || wd == nil || samples == nil {
		panic("light controller requires an output driver, a watchdog and an analog source")
	}
	c := &Controller{
		out:     out,
		wd:      wd,
		cmds:    cmds,
		samples: samples,
		cal:     analog.DefaultCalibration(),
		tick:    DefaultTickInterval,
	}
	c.stopRequested.Store(true)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) TickInterval() time.Duration {
	return c.tick
}

func (c *Controller) SetLightMode(mode model.LightMode) {
	switch mode {
	case model.LightOff:
		c.out.Set(gpio.Light, false)
		c.out.Set(gpio.LongLight, false)
	case model.LightOn:
		c.out.Set(gpio.Light, true)
		c.out.Set(gpio.LongLight, false)
	case model.LightLong:
		c.out.Set(gpio.Light, true)
		c.out.Set(gpio.LongLight, true)
	default:
		log.Warn().Int("mode", int(mode)).Msg("Ignoring unknown light mode")
		return
	}

	log.Info().Str("light_mode", mode.String()).Msg("Light mode set")
	for _, o := range c.observers {
		o.LightModeChanged(mode)
	}
}

// SetLightModeInt is the raw-integer entry point. Out-of-range values leave the outputs alone.
func (c *Controller) SetLightModeInt(v int) error {
	mode, err := model.LightModeFromInt(v)
	if err != nil {
		return err
	}
	c.SetLightMode(mode)
	return nil
}

// LightMode reads the mode back from the output latches; long-light wins over light.
func (c *Controller) LightMode() model.LightMode {
	if c.out.Active(gpio.LongLight) {
		return model.LightLong
	}
	if c.out.Active(gpio.Light) {
		return model.LightOn
	}
	return model.LightOff
}

func (c *Controller) SetTurnMode(mode model.TurnMode) {
	if !mode.Valid() {
		log.Warn().Int("mode", int(mode)).Msg("Ignoring unknown turn mode")
		return
	}
	c.turnMode.Store(int32(mode))

	log.Info().Str("turn_mode", mode.String()).Msg("Turn mode set")
	for _, o := range c.observers {
		o.TurnModeChanged(mode)
	}
}

func (c *Controller) SetTurnModeInt(v int) error {
	mode, err := model.TurnModeFromInt(v)
	if err != nil {
		return err
	}
	c.SetTurnMode(mode)
	return nil
}

func (c *Controller) TurnMode() model.TurnMode {
	return model.TurnMode(c.turnMode.Load())
}

// Configure exists for parity with the other applications; nothing here is configurable at
// runtime.
func (c *Controller) Configure(conf AppConfig) {
	log.Debug().Str("app", conf.Name).Msg("Light app configure requested, nothing to apply")
}
