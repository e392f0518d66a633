package light

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/thatsimonsguy/light-controller/internal/analog"
	"github.com/thatsimonsguy/light-controller/internal/gpio"
	"github.com/thatsimonsguy/light-controller/internal/model"
	"github.com/thatsimonsguy/light-controller/internal/terminal"
)

type countingWatchdog struct {
	resets atomic.Int64
	block  chan struct{}
}

func (w *countingWatchdog) ResetTimeout() {
	w.resets.Inc()
	if w.block != nil {
		<-w.block
	}
}

type recordingDispatcher struct {
	*terminal.Dispatcher
	mu         sync.Mutex
	registered []string
}

func (d *recordingDispatcher) Register(name, help, usage string, cb terminal.Callback) {
	d.mu.Lock()
	d.registered = append(d.registered, name)
	d.mu.Unlock()
	d.Dispatcher.Register(name, help, usage, cb)
}

type recordingObserver struct {
	lights []model.LightMode
	turns  []model.TurnMode
}

func (o *recordingObserver) LightModeChanged(m model.LightMode) { o.lights = append(o.lights, m) }
func (o *recordingObserver) TurnModeChanged(m model.TurnMode)   { o.turns = append(o.turns, m) }

func newTestController(opts ...Option) (*Controller, *gpio.MemoryDriver, *countingWatchdog, *recordingDispatcher, *analog.Buffer) {
	out := gpio.NewMemoryDriver()
	wd := &countingWatchdog{}
	cmds := &recordingDispatcher{Dispatcher: terminal.NewDispatcher(nil)}
	samples := analog.NewBuffer()
	c := New(out, wd, cmds, samples, opts...)
	return c, out, wd, cmds, samples
}

func TestLightMode_RoundTrip(t *testing.T) {
	c, out, _, _, _ := newTestController()

	tests := []struct {
		mode      model.LightMode
		light     bool
		longLight bool
	}{
		{model.LightOn, true, false},
		{model.LightLong, true, true},
		{model.LightOff, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			c.SetLightMode(tt.mode)
			assert.Equal(t, tt.light, out.Active(gpio.Light))
			assert.Equal(t, tt.longLight, out.Active(gpio.LongLight))
			assert.Equal(t, tt.mode, c.LightMode())
		})
	}
}

func TestLightMode_LongWithoutLightReadsLong(t *testing.T) {
	c, out, _, _, _ := newTestController()
	out.Set(gpio.LongLight, true)
	out.Set(gpio.Light, false)

	assert.Equal(t, model.LightLong, c.LightMode())
}

func TestSetLightModeInt_RejectsOutOfRange(t *testing.T) {
	c, out, _, _, _ := newTestController()
	require.NoError(t, c.SetLightModeInt(1))

	err := c.SetLightModeInt(7)
	assert.ErrorIs(t, err, model.ErrInvalidMode)
	assert.Equal(t, model.LightOn, c.LightMode(), "outputs untouched")
	assert.True(t, out.Active(gpio.Light))
}

func TestSetTurnModeInt(t *testing.T) {
	c, _, _, _, _ := newTestController()

	require.NoError(t, c.SetTurnModeInt(3))
	assert.Equal(t, model.TurnBoth, c.TurnMode())

	assert.ErrorIs(t, c.SetTurnModeInt(-1), model.ErrInvalidMode)
	assert.Equal(t, model.TurnBoth, c.TurnMode())

	c.SetTurnMode(model.TurnMode(12))
	assert.Equal(t, model.TurnBoth, c.TurnMode())
}

func TestStep_LeftTogglesOnOddTicks(t *testing.T) {
	c, out, _, _, _ := newTestController()
	c.SetTurnMode(model.TurnLeft)

	for n := 1; n <= 6; n++ {
		c.step(c.TurnMode())
		assert.Equal(t, n%2 == 1, out.Active(gpio.TurnLeft), "tick %d", n)
		assert.False(t, out.Active(gpio.TurnRight), "tick %d", n)
	}
}

func TestStep_RightTogglesAndForcesLeftOff(t *testing.T) {
	c, out, _, _, _ := newTestController()
	out.Set(gpio.TurnLeft, true)
	c.SetTurnMode(model.TurnRight)

	c.step(c.TurnMode())
	assert.True(t, out.Active(gpio.TurnRight))
	assert.False(t, out.Active(gpio.TurnLeft))

	c.step(c.TurnMode())
	assert.False(t, out.Active(gpio.TurnRight))
	assert.False(t, out.Active(gpio.TurnLeft))
}

func TestStep_BothLockstep(t *testing.T) {
	c, out, _, _, _ := newTestController()

	// start desynchronised: right on, left off
	out.Set(gpio.TurnRight, true)
	c.SetTurnMode(model.TurnBoth)

	for n := 1; n <= 5; n++ {
		c.step(c.TurnMode())
		assert.Equal(t, out.Active(gpio.TurnLeft), out.Active(gpio.TurnRight), "tick %d", n)
		assert.Equal(t, n%2 == 1, out.Active(gpio.TurnLeft), "tick %d", n)
	}
}

func TestStep_OffForcesBothOff(t *testing.T) {
	c, out, _, _, _ := newTestController()
	out.Set(gpio.TurnLeft, true)
	out.Set(gpio.TurnRight, true)
	c.SetTurnMode(model.TurnOff)

	c.step(c.TurnMode())

	assert.False(t, out.Active(gpio.TurnLeft))
	assert.False(t, out.Active(gpio.TurnRight))
}

func TestObserversNotified(t *testing.T) {
	obs := &recordingObserver{}
	c, _, _, _, _ := newTestController(WithObserver(obs))

	c.SetLightMode(model.LightLong)
	c.SetTurnMode(model.TurnLeft)
	_ = c.SetTurnModeInt(9)

	assert.Equal(t, []model.LightMode{model.LightLong}, obs.lights)
	assert.Equal(t, []model.TurnMode{model.TurnLeft}, obs.turns)
}

func TestStopBeforeStartReturns(t *testing.T) {
	c, _, _, _, _ := newTestController()

	done := make(chan struct{})
	go func() {
		c.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop before Start hung")
	}
	assert.False(t, c.Running())
}

func TestStartStop(t *testing.T) {
	c, out, wd, cmds, _ := newTestController(WithTickInterval(time.Millisecond))
	c.SetTurnMode(model.TurnLeft)

	c.Start()
	c.Start() // already running, no second task

	assert.Eventually(t, func() bool { return wd.resets.Load() >= 3 }, time.Second, time.Millisecond)
	assert.True(t, c.Running())

	_, ok := cmds.Lookup(commandName)
	assert.True(t, ok)
	assert.Equal(t, []string{commandName}, cmds.registered)

	c.Stop()

	assert.False(t, c.Running())
	_, ok = cmds.Lookup(commandName)
	assert.False(t, ok)
	assert.False(t, out.Active(gpio.TurnRight))

	resets := wd.resets.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, resets, wd.resets.Load(), "no resets after Stop returned")
}

func TestStopEndsLongTickPromptly(t *testing.T) {
	c, _, wd, _, _ := newTestController(WithTickInterval(time.Hour))

	c.Start()
	assert.Eventually(t, func() bool { return wd.resets.Load() == 1 }, time.Second, time.Millisecond)

	start := time.Now()
	c.Stop()
	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, c.Running())
}

func TestRestartAfterStop(t *testing.T) {
	c, _, wd, _, _ := newTestController(WithTickInterval(time.Millisecond))

	c.Start()
	c.Stop()
	before := wd.resets.Load()

	c.Start()
	assert.Eventually(t, func() bool { return wd.resets.Load() > before }, time.Second, time.Millisecond)
	c.Stop()
	assert.False(t, c.Running())
}

func TestStopContext_TimesOutWhileTaskWedged(t *testing.T) {
	c, _, wd, _, _ := newTestController(WithTickInterval(time.Millisecond))
	wd.block = make(chan struct{})

	c.Start()
	assert.Eventually(t, func() bool { return wd.resets.Load() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.StopContext(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, c.Running())

	close(wd.block)
	c.Stop()
	assert.False(t, c.Running())
}

func TestStartAfterTimedOutStop(t *testing.T) {
	c, _, wd, cmds, _ := newTestController(WithTickInterval(time.Millisecond))
	wd.block = make(chan struct{})

	c.Start()
	assert.Eventually(t, func() bool { return wd.resets.Load() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, c.StopContext(ctx), context.DeadlineExceeded)

	close(wd.block)
	assert.Eventually(t, func() bool { return !c.Running() }, time.Second, time.Millisecond)

	c.Start()
	assert.Eventually(t, func() bool { return c.Running() && wd.resets.Load() > 1 }, time.Second, time.Millisecond)
	_, ok := cmds.Lookup(commandName)
	assert.True(t, ok)

	c.Stop()
	assert.False(t, c.Running())
}

func TestNew_RequiresCollaborators(t *testing.T) {
	out := gpio.NewMemoryDriver()
	wd := &countingWatchdog{}
	samples := analog.NewBuffer()

	assert.Panics(t, func() { New(nil, wd, nil, samples) })
	assert.Panics(t, func() { New(out, nil, nil, samples) })
	assert.Panics(t, func() { New(out, wd, nil, nil) })
	assert.NotPanics(t, func() { New(out, wd, nil, samples) })
}

func TestTerminalCommand(t *testing.T) {
	c, _, _, cmds, samples := newTestController(WithTickInterval(time.Hour))
	samples.Set(analog.ChannelExt, 2048)
	samples.Set(analog.ChannelExt2, 4095)

	c.Start()
	defer c.Stop()

	var out bytes.Buffer
	require.NoError(t, cmds.Execute(&out, "light_cmd 42"))
	assert.Equal(t, "You have entered 42\nADC1: 1.65 V ADC2: 3.30 V\n", out.String())

	out.Reset()
	require.NoError(t, cmds.Execute(&out, "light_cmd"))
	assert.Equal(t, usageError, out.String())
	assert.NotContains(t, out.String(), "ADC1")

	out.Reset()
	require.NoError(t, cmds.Execute(&out, "light_cmd 1 2"))
	assert.Equal(t, usageError, out.String())

	out.Reset()
	require.NoError(t, cmds.Execute(&out, "light_cmd abc"))
	assert.Contains(t, out.String(), "You have entered -1\n")
}

func TestParseArg(t *testing.T) {
	tests := map[string]int{
		"42":    42,
		"-7":    -7,
		"+3":    3,
		" 12":   12,
		"12abc": 12,
		"abc":   -1,
		"":      -1,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseArg(in), "input %q", in)
	}
}
