package config

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/thatsimonsguy/light-controller/internal/analog"
	"github.com/thatsimonsguy/light-controller/internal/gpio"
	"github.com/thatsimonsguy/light-controller/internal/model"
)

const validJSON = `{
	"log_level": "debug",
	"driver": "cdev",
	"pins": {
		"light":      {"pin": 5,  "active_high": true},
		"long_light": {"pin": 6,  "active_high": true},
		"turn_left":  {"pin": 13, "active_high": false},
		"turn_right": {"pin": 19, "active_high": false}
	},
	"calibration": {"vin_r1": 110000.0},
	"dd_tags": ["board:adv"]
}`

func pin(n int) *model.GPIOPin {
	return &model.GPIOPin{Number: n, ActiveHigh: true}
}

func TestParse_Defaults(t *testing.T) {
	cfg := Parse(strings.NewReader(validJSON), "test.json")

	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
	assert.Equal(t, "cdev", cfg.Driver)
	assert.Equal(t, 500*time.Millisecond, cfg.TickInterval())
	assert.Equal(t, 2*time.Second, cfg.WatchdogTimeout())
	assert.Equal(t, "static", cfg.AnalogSource)
	assert.Equal(t, 8080, cfg.APIPort)
	assert.Equal(t, []string{"board:adv"}, cfg.DDTags)
	assert.False(t, cfg.Pins.TurnLeft.ActiveHigh)

	def := analog.DefaultCalibration()
	assert.Equal(t, 110000.0, cfg.Calibration.VinR1, "explicit calibration kept")
	assert.Equal(t, def.VReg, cfg.Calibration.VReg, "missing calibration defaulted")
	assert.Equal(t, def.NTCBeta, cfg.Calibration.NTCBeta)
}

func TestParse_EnvOverride(t *testing.T) {
	t.Setenv("LIGHT_DRIVER", "memory")
	t.Setenv("LIGHT_API_PORT", "9090")
	t.Setenv("LIGHT_SAFE_MODE", "true")

	cfg := Parse(strings.NewReader(validJSON), "test.json")

	assert.Equal(t, "memory", cfg.Driver)
	assert.Equal(t, 9090, cfg.APIPort)
	assert.True(t, cfg.SafeMode)
}

func TestValidate_Missing(t *testing.T) {
	cfg := Config{Pins: Pins{Light: pin(5), LongLight: pin(6), TurnLeft: pin(13)}}
	cfg.applyDefaults()

	assert.PanicsWithValue(t, "Missing required pin config fields: pins.turn_right", func() {
		cfg.validate()
	})
}

func TestValidate_Conflict(t *testing.T) {
	cfg := Config{Pins: Pins{Light: pin(5), LongLight: pin(5), TurnLeft: pin(13), TurnRight: pin(19)}}
	cfg.applyDefaults()

	assert.Panics(t, func() { cfg.validate() })
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := Config{Pins: Pins{Light: pin(5), LongLight: pin(6), TurnLeft: pin(13), TurnRight: pin(19)}}
	cfg.applyDefaults()
	cfg.Driver = "spi"

	assert.PanicsWithValue(t, "Unknown GPIO driver: spi", func() { cfg.validate() })
}

func TestValidate_WatchdogMustOutlastTick(t *testing.T) {
	cfg := Config{
		Pins:              Pins{Light: pin(5), LongLight: pin(6), TurnLeft: pin(13), TurnRight: pin(19)},
		TickIntervalMs:    500,
		WatchdogTimeoutMs: 400,
	}
	cfg.applyDefaults()

	assert.Panics(t, func() { cfg.validate() })
}

func TestValidate_OK(t *testing.T) {
	cfg := Config{Pins: Pins{Light: pin(5), LongLight: pin(6), TurnLeft: pin(13), TurnRight: pin(19)}}
	cfg.applyDefaults()

	assert.NotPanics(t, func() { cfg.validate() })
}

func TestPins_ByLine(t *testing.T) {
	cfg := Parse(strings.NewReader(validJSON), "test.json")

	pins := cfg.Pins.ByLine()
	assert.Len(t, pins, 4)
	assert.Equal(t, model.GPIOPin{Number: 13, ActiveHigh: false}, pins[gpio.TurnLeft])
	assert.Equal(t, 6, pins[gpio.LongLight].Number)

	partial := Pins{Light: pin(2)}
	assert.Equal(t, map[gpio.Line]model.GPIOPin{gpio.Light: {Number: 2, ActiveHigh: true}}, partial.ByLine())
}
