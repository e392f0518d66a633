package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLightModeFromInt(t *testing.T) {
	tests := []struct {
		in      int
		want    LightMode
		wantErr bool
	}{
		{0, LightOff, false},
		{1, LightOn, false},
		{2, LightLong, false},
		{3, LightOff, true},
		{-1, LightOff, true},
	}

	for _, tt := range tests {
		got, err := LightModeFromInt(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidMode, "input %d", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestTurnModeFromInt(t *testing.T) {
	for i, want := range []TurnMode{TurnOff, TurnLeft, TurnRight, TurnBoth} {
		got, err := TurnModeFromInt(i)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := TurnModeFromInt(4)
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestParseModes(t *testing.T) {
	lm, err := ParseLightMode("long")
	require.NoError(t, err)
	assert.Equal(t, LightLong, lm)

	tm, err := ParseTurnMode("both")
	require.NoError(t, err)
	assert.Equal(t, TurnBoth, tm)

	_, err = ParseTurnMode("hazard")
	assert.ErrorIs(t, err, ErrInvalidMode)
	_, err = ParseLightMode("")
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestModeStrings(t *testing.T) {
	assert.Equal(t, "right", TurnRight.String())
	assert.Equal(t, "on", LightOn.String())
	assert.Equal(t, "TurnMode(9)", TurnMode(9).String())
}
