package analog

import "math"

// Channel is an index into the ADC sample array.
type Channel int

const (
	ChannelSens1     Channel = 0
	ChannelSens2     Channel = 1
	ChannelSens3     Channel = 2
	ChannelCurr1     Channel = 3
	ChannelCurr2     Channel = 4
	ChannelCurr3     Channel = 5
	ChannelExt       Channel = 6
	ChannelExt2      Channel = 7
	ChannelTempMOS   Channel = 8
	ChannelTempMotor Channel = 9
	ChannelShutdown  Channel = 10
	ChannelVinSense  Channel = 11
	ChannelVrefInt   Channel = 12

	NumChannels = 13
)

// MaxSample is full scale for the 12-bit converter.
const MaxSample = 4095

const kelvinAt25C = 298.15

// CurrentZeroSample is the reading of an idle shunt amplifier, biased to mid-scale.
const CurrentZeroSample = 2048.0

// Calibration holds the board constants the conversions depend on.
type Calibration struct {
	VReg            float64 `json:"v_reg"`
	VinR1           float64 `json:"vin_r1"`
	VinR2           float64 `json:"vin_r2"`
	CurrentAmpGain  float64 `json:"current_amp_gain"`
	CurrentShuntRes float64 `json:"current_shunt_res"`
	NTCRes          float64 `json:"ntc_res"`
	NTCBeta         float64 `json:"ntc_beta"`
	MotorNTCBeta    float64 `json:"motor_ntc_beta"`
}

func DefaultCalibration() Calibration {
	return Calibration{
		VReg:            3.3,
		VinR1:           68000.0,
		VinR2:           2200.0,
		CurrentAmpGain:  20.0,
		CurrentShuntRes: 0.0002,
		NTCRes:          10000.0,
		NTCBeta:         3380.0,
		MotorNTCBeta:    3380.0,
	}
}

func clamp(sample uint16) float64 {
	if sample > MaxSample {
		return MaxSample
	}
	return float64(sample)
}

// InputVoltage scales the supply-sense divider back to the battery voltage.
func (c Calibration) InputVoltage(sample uint16) float64 {
	return clamp(sample) * (c.VReg / MaxSample) * ((c.VinR1 + c.VinR2) / c.VinR2)
}

// SampleForInputVoltage is the inverse of InputVoltage. The result is not rounded.
func (c Calibration) SampleForInputVoltage(volts float64) float64 {
	return volts / ((c.VReg / MaxSample) * ((c.VinR1 + c.VinR2) / c.VinR2))
}

// ChannelVolts is the raw pin voltage of a channel. It divides by 4096, unlike the other
// formulas; diagnostic output depends on it.
func (c Calibration) ChannelVolts(sample uint16) float64 {
	return clamp(sample) / 4096.0 * c.VReg
}

// ShuntCurrent converts a shunt amplifier sample to amperes, relative to the sample the
// amplifier reads with no current flowing. Negative values are reverse current.
func (c Calibration) ShuntCurrent(sample uint16, zero float64) float64 {
	return (clamp(sample) - zero) * (c.VReg / MaxSample) / (c.CurrentAmpGain * c.CurrentShuntRes)
}

// NTCResistance is for a thermistor on the high side of the divider.
// A zero sample gives +Inf.
func (c Calibration) NTCResistance(sample uint16) float64 {
	return (MaxSample*c.NTCRes)/clamp(sample) - c.NTCRes
}

// MotorNTCResistance is for a thermistor on the low side of the divider.
// A full-scale sample gives +Inf and a zero sample gives 0.
func (c Calibration) MotorNTCResistance(sample uint16) float64 {
	return c.NTCRes / (MaxSample/clamp(sample) - 1.0)
}

// Temperature converts a thermistor resistance to Celsius with the beta equation.
// Open (+Inf) and shorted (0) sensors yield NaN.
func (c Calibration) Temperature(res, beta float64) float64 {
	if math.IsNaN(res) || math.IsInf(res, 0) || res <= 0 {
		return math.NaN()
	}
	return 1.0/(math.Log(res/c.NTCRes)/beta+1.0/kelvinAt25C) - 273.15
}

func (c Calibration) NTCTemperature(sample uint16) float64 {
	return c.Temperature(c.NTCResistance(sample), c.NTCBeta)
}

func (c Calibration) MotorTemperature(sample uint16, beta float64) float64 {
	return c.Temperature(c.MotorNTCResistance(sample), beta)
}
