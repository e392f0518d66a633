package api

import (
	"math"

	"github.com/thatsimonsguy/light-controller/internal/controllers/telemetrycontroller"
)

// AnalogResponse carries temperatures as pointers; encoding/json rejects NaN, so an
// unavailable reading is sent as null.
type AnalogResponse struct {
	InputVoltage float64    `json:"input_voltage"`
	ADC1         float64    `json:"adc1"`
	ADC2         float64    `json:"adc2"`
	Currents     [3]float64 `json:"currents"`
	MOSTemp      *float64   `json:"mos_temp"`
	MotorTemp    *float64   `json:"motor_temp"`
}

func analogResponse(r telemetrycontroller.Reading) AnalogResponse {
	return AnalogResponse{
		InputVoltage: r.InputVoltage,
		ADC1:         r.ADC1,
		ADC2:         r.ADC2,
		Currents:     r.Currents,
		MOSTemp:      finite(r.MOSTemp),
		MotorTemp:    finite(r.MotorTemp),
	}
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
