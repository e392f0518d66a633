package telemetrycontroller

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/light-controller/internal/analog"
	"github.com/thatsimonsguy/light-controller/internal/datadog"
	"github.com/thatsimonsguy/light-controller/internal/model"
)

const DefaultInterval = 10 * time.Second

var gauge = datadog.Gauge

// Reading is one converted snapshot of the supervised analog channels.
type Reading struct {
	InputVoltage float64 `json:"input_voltage"`
	ADC1         float64 `json:"adc1"`
	ADC2         float64 `json:"adc2"`
	// phase shunt currents in amperes, CURR1..CURR3
	Currents  [3]float64 `json:"currents"`
	MOSTemp   float64    `json:"mos_temp"`
	MotorTemp float64    `json:"motor_temp"`
}

func Read(source analog.Source, cal analog.Calibration) Reading {
	return Reading{
		InputVoltage: cal.InputVoltage(source.Sample(analog.ChannelVinSense)),
		ADC1:         cal.ChannelVolts(source.Sample(analog.ChannelExt)),
		ADC2:         cal.ChannelVolts(source.Sample(analog.ChannelExt2)),
		Currents: [3]float64{
			cal.ShuntCurrent(source.Sample(analog.ChannelCurr1), analog.CurrentZeroSample),
			cal.ShuntCurrent(source.Sample(analog.ChannelCurr2), analog.CurrentZeroSample),
			cal.ShuntCurrent(source.Sample(analog.ChannelCurr3), analog.CurrentZeroSample),
		},
		MOSTemp:   cal.NTCTemperature(source.Sample(analog.ChannelTempMOS)),
		MotorTemp: cal.MotorTemperature(source.Sample(analog.ChannelTempMotor), cal.MotorNTCBeta),
	}
}

func RunTelemetryController(ctx context.Context, source analog.Source, cal analog.Calibration, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	go func() {
		log.Info().Dur("interval", interval).Msg("Starting telemetry controller")

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("Telemetry controller stopped")
				return
			case <-ticker.C:
				report(Read(source, cal))
			}
		}
	}()
}

func report(r Reading) {
	log.Debug().
		Float64("input_voltage", r.InputVoltage).
		Float64("mos_temp", r.MOSTemp).
		Float64("motor_temp", r.MotorTemp).
		Msg("Analog telemetry")

	gauge("analog.input_voltage", r.InputVoltage)
	gauge("analog.adc1", r.ADC1)
	gauge("analog.adc2", r.ADC2)
	for i, amps := range r.Currents {
		gauge("analog.current", amps, fmt.Sprintf("shunt:%d", i+1))
	}

	// a disconnected thermistor reads as NaN; statsd has no encoding for it
	if !math.IsNaN(r.MOSTemp) && !math.IsInf(r.MOSTemp, 0) {
		gauge("analog.mos_temp", r.MOSTemp)
	} else {
		log.Warn().Msg("MOSFET temperature unavailable")
	}
	if !math.IsNaN(r.MotorTemp) && !math.IsInf(r.MotorTemp, 0) {
		gauge("analog.motor_temp", r.MotorTemp)
	} else {
		log.Warn().Msg("Motor temperature unavailable")
	}
}

// ModeGauges mirrors mode changes into metrics.
type ModeGauges struct{}

func (ModeGauges) LightModeChanged(mode model.LightMode) {
	gauge("light.mode", float64(mode), "mode:"+mode.String())
}

func (ModeGauges) TurnModeChanged(mode model.TurnMode) {
	gauge("turn.mode", float64(mode), "mode:"+mode.String())
}
