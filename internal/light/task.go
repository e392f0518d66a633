package light

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/light-controller/internal/gpio"
	"github.com/thatsimonsguy/light-controller/internal/model"
)

const (
	commandName  = "light_cmd"
	commandHelp  = "Print the number d"
	commandUsage = "[d]"
)

// Start spawns the light task and registers light_cmd. It does nothing while a task is
// still active, including one a timed-out StopContext left behind.
func (c *Controller) Start() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.done != nil {
		select {
		case <-c.done:
			// previous task exited after its stop timed out
			c.wake, c.done = nil, nil
		default:
			log.Debug().Msg("Light task already running, ignoring start")
			return
		}
	}

	c.stopRequested.Store(false)
	c.wake = make(chan struct{})
	c.done = make(chan struct{})
	go c.run(c.wake, c.done)

	if c.cmds != nil {
		c.cmds.Register(commandName, commandHelp, commandUsage, c.terminalCommand)
	}
	log.Info().Dur("tick", c.tick).Msg("Starting light task")
}

// Stop unregisters light_cmd, requests the task to stop and waits for it to exit.
func (c *Controller) Stop() {
	_ = c.StopContext(context.Background())
}

// StopContext is Stop with an upper bound on the wait. When ctx ends first the stop request
// stays in place and ctx.Err() is returned.
func (c *Controller) StopContext(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.done == nil {
		log.Debug().Msg("Light task not running, ignoring stop")
		return nil
	}

	if c.cmds != nil {
		c.cmds.Unregister(commandName)
	}

	if !c.stopRequested.Swap(true) {
		close(c.wake)
	}

	select {
	case <-c.done:
	case <-ctx.Done():
		log.Warn().Err(ctx.Err()).Msg("Light task did not confirm exit in time")
		return ctx.Err()
	}

	c.wake, c.done = nil, nil
	log.Info().Msg("Light task stopped")
	return nil
}

// Running reports whether the task is between entry and exit.
func (c *Controller) Running() bool {
	return c.running.Load()
}

func (c *Controller) run(wake <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	c.running.Store(true)

	for {
		if c.stopRequested.Load() {
			c.running.Store(false)
			return
		}

		c.wd.ResetTimeout()
		c.step(c.TurnMode())

		timer := time.NewTimer(c.tick)
		select {
		case <-timer.C:
		case <-wake:
			timer.Stop()
		}
	}
}

// step advances the indicators by one tick. Both mode uses the left output as the phase
// reference so the pair never drifts apart.
func (c *Controller) step(mode model.TurnMode) {
	switch mode {
	case model.TurnOff:
		c.out.Set(gpio.TurnLeft, false)
		c.out.Set(gpio.TurnRight, false)
	case model.TurnLeft:
		c.out.Set(gpio.TurnLeft, !c.out.Active(gpio.TurnLeft))
		c.out.Set(gpio.TurnRight, false)
	case model.TurnRight:
		c.out.Set(gpio.TurnRight, !c.out.Active(gpio.TurnRight))
		c.out.Set(gpio.TurnLeft, false)
	case model.TurnBoth:
		on := !c.out.Active(gpio.TurnLeft)
		c.out.Set(gpio.TurnLeft, on)
		c.out.Set(gpio.TurnRight, on)
	}
}
