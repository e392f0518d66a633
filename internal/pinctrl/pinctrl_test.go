package pinctrl

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakePinctrl(t *testing.T, out string, err error) *[][]string {
	t.Helper()
	orig := runPinctrl
	t.Cleanup(func() { runPinctrl = orig })

	var calls [][]string
	runPinctrl = func(args ...string) ([]byte, error) {
		calls = append(calls, args)
		return []byte(out), err
	}
	return &calls
}

func TestParseGetOutput(t *testing.T) {
	sample := `
 0: ip    pu | hi // ID_SDA/GPIO0 = input
 2: no    pu | -- // GPIO2 = none
 5: op dh pu | hi // GPIO5 = output
26: op dl pn | lo // GPIO26 = output
garbage line
`
	states, err := parseGetOutput(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, states, 4)

	assert.Equal(t, PinState{Pin: 5, Mode: "op", Pull: "pu", Drive: "dh", Level: "hi", Comment: "GPIO5 = output"}, states[5])
	assert.Equal(t, "--", states[2].Level)
	assert.Equal(t, "dl", states[26].Drive)
	assert.Equal(t, "pn", states[26].Pull)
}

func TestParseLevelOutput(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"0", false},
		{"1", true},
		{"\n1\n", true},
		{"\n0\n", false},
	}
	for _, tc := range tests {
		result, err := parseLevelOutput(tc.input)
		require.NoError(t, err, tc.input)
		assert.Equal(t, tc.expected, result, tc.input)
	}

	_, err := parseLevelOutput("x")
	assert.Error(t, err)
}

func TestReadLevel(t *testing.T) {
	calls := fakePinctrl(t, "1\n", nil)

	level, err := ReadLevel(17)
	require.NoError(t, err)
	assert.True(t, level)
	assert.Equal(t, [][]string{{"lev", "17"}}, *calls)
}

func TestDrive(t *testing.T) {
	calls := fakePinctrl(t, "", nil)

	require.NoError(t, Drive(22, true))
	require.NoError(t, Drive(22, false))
	assert.Equal(t, [][]string{
		{"set", "22", "op", "pn", "dh"},
		{"set", "22", "op", "pn", "dl"},
	}, *calls)
}

func TestSetPinError(t *testing.T) {
	fakePinctrl(t, "permission denied", errors.New("exit status 1"))

	err := SetPin(4, "op")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestReadPin(t *testing.T) {
	fakePinctrl(t, "13: op dh pd | hi // GPIO13 = output\n", nil)

	ps, err := ReadPin(13)
	require.NoError(t, err)
	assert.Equal(t, "op", ps.Mode)

	_, err = ReadPin(14)
	assert.Error(t, err)
}
