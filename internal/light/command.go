package light

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/thatsimonsguy/light-controller/internal/analog"
)

const usageError = "This command requires one argument.\n"

var leadingInt = regexp.MustCompile(`^\s*[+-]?\d+`)

// parseArg reads the leading integer of s the way %d scanning does. Anything unparseable
// yields -1.
func parseArg(s string) int {
	m := leadingInt.FindString(s)
	if m == "" {
		return -1
	}
	d, err := strconv.Atoi(strings.TrimSpace(m))
	if err != nil {
		return -1
	}
	return d
}

func (c *Controller) terminalCommand(args []string) {
	if len(args) != 2 {
		c.cmds.Printf(usageError)
		return
	}

	d := parseArg(args[1])
	c.cmds.Printf("You have entered %d", d)
	c.cmds.Printf("ADC1: %.2f V ADC2: %.2f V",
		c.cal.ChannelVolts(c.samples.Sample(analog.ChannelExt)),
		c.cal.ChannelVolts(c.samples.Sample(analog.ChannelExt2)))
}
