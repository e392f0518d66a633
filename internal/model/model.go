package model

import (
	"errors"
	"fmt"
)

var ErrInvalidMode = errors.New("invalid mode")

// LightMode is the requested headlight tier. It is never stored; it is read back from the
// light and long-light output latches.
type LightMode int

const (
	LightOff LightMode = iota
	LightOn
	LightLong
)

// TurnMode selects which indicators the light task flashes.
type TurnMode int

const (
	TurnOff TurnMode = iota
	TurnLeft
	TurnRight
	TurnBoth
)

var lightModeNames = map[LightMode]string{
	LightOff:  "off",
	LightOn:   "on",
	LightLong: "long",
}

var turnModeNames = map[TurnMode]string{
	TurnOff:   "off",
	TurnLeft:  "left",
	TurnRight: "right",
	TurnBoth:  "both",
}

func (m LightMode) String() string {
	if name, ok := lightModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("LightMode(%d)", int(m))
}

func (m TurnMode) String() string {
	if name, ok := turnModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("TurnMode(%d)", int(m))
}

func (m LightMode) Valid() bool {
	_, ok := lightModeNames[m]
	return ok
}

func (m TurnMode) Valid() bool {
	_, ok := turnModeNames[m]
	return ok
}

// LightModeFromInt closes a raw integer (0=off, 1=on, 2=long) to a LightMode.
func LightModeFromInt(v int) (LightMode, error) {
	m := LightMode(v)
	if !m.Valid() {
		return LightOff, fmt.Errorf("light mode %d: %w", v, ErrInvalidMode)
	}
	return m, nil
}

// TurnModeFromInt closes a raw integer (0=off, 1=left, 2=right, 3=both) to a TurnMode.
func TurnModeFromInt(v int) (TurnMode, error) {
	m := TurnMode(v)
	if !m.Valid() {
		return TurnOff, fmt.Errorf("turn mode %d: %w", v, ErrInvalidMode)
	}
	return m, nil
}

func ParseLightMode(s string) (LightMode, error) {
	for m, name := range lightModeNames {
		if name == s {
			return m, nil
		}
	}
	return LightOff, fmt.Errorf("light mode %q: %w", s, ErrInvalidMode)
}

func ParseTurnMode(s string) (TurnMode, error) {
	for m, name := range turnModeNames {
		if name == s {
			return m, nil
		}
	}
	return TurnOff, fmt.Errorf("turn mode %q: %w", s, ErrInvalidMode)
}

// GPIOPin is a BCM pin number plus its electrical polarity.
type GPIOPin struct {
	Number     int  `json:"pin"`
	ActiveHigh bool `json:"active_high"`
}

// Event is one row of the mode-change journal.
type Event struct {
	ID        int64  `json:"id"`
	Kind      string `json:"kind"`
	Value     string `json:"value"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
}
