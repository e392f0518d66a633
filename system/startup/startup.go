package startup

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/thatsimonsguy/light-controller/internal/gpio"
	"github.com/thatsimonsguy/light-controller/internal/model"
	"github.com/thatsimonsguy/light-controller/internal/pinctrl"
)

var (
	execCommand = exec.Command
	readPin     = pinctrl.ReadPin
)

func sortedLines(pins map[gpio.Line]model.GPIOPin) []gpio.Line {
	ordered := make([]gpio.Line, 0, len(pins))
	for line := range pins {
		ordered = append(ordered, line)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })
	return ordered
}

// WriteStartupScript writes a boot script that configures every light pin as an output and
// drives it to its inactive level, so nothing is lit between power-on and controller start.
func WriteStartupScript(path string, pins map[gpio.Line]model.GPIOPin) error {
	var lines []string
	lines = append(lines, "#!/bin/bash", "", "# Light GPIO pin configuration at boot", "")

	write := func(label string, pin model.GPIOPin, active bool) {
		drive := "dl"
		if pin.ActiveHigh == active {
			drive = "dh"
		}
		lines = append(lines, fmt.Sprintf("# %s", label))
		lines = append(lines, fmt.Sprintf("pinctrl set %d op pn %s", pin.Number, drive))
		lines = append(lines, "")
	}

	for _, line := range sortedLines(pins) {
		write(line.String(), pins[line], false)
	}

	contents := strings.Join(lines, "\n") + "\n"
	return os.WriteFile(path, []byte(contents), 0755)
}

func InstallStartupService(unitPath, scriptPath string) error {
	unitContents := fmt.Sprintf(`[Unit]
Description=Configure light GPIO pins at boot
After=network.target

[Service]
Type=oneshot
Environment=PATH=/usr/local/bin:/usr/bin:/bin
ExecStart=%s
RemainAfterExit=true

[Install]
WantedBy=multi-user.target
`, scriptPath)

	return os.WriteFile(unitPath, []byte(unitContents), 0644)
}

// InstallControllerService writes the unit for the controller itself, ordered after the pin
// setup unit at bootUnitPath.
func InstallControllerService(unitPath, bootUnitPath, execPath, configPath string) error {
	bootUnit := filepath.Base(bootUnitPath)

	unit := fmt.Sprintf(`[Unit]
Description=Light controller main service
After=%s
Requires=%s

[Service]
Type=simple
ExecStart=%s -config-file %s
Restart=on-failure
RestartSec=5s

[Install]
WantedBy=multi-user.target
`, bootUnit, bootUnit, execPath, configPath)

	return os.WriteFile(unitPath, []byte(unit), 0644)
}

func RunStartupScript(path string) error {
	cmd := execCommand("/bin/bash", path)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// ReportPins prints what pinctrl reports for every configured light pin. A pin that is an
// output driven to its active level is shown as lit.
func ReportPins(w io.Writer, pins map[gpio.Line]model.GPIOPin) error {
	for _, line := range sortedLines(pins) {
		pin := pins[line]
		state, err := readPin(pin.Number)
		if err != nil {
			return fmt.Errorf("reading %s pin %d: %w", line, pin.Number, err)
		}
		lit := state.Mode == "op" && (state.Level == "hi") == pin.ActiveHigh
		fmt.Fprintf(w, "%-11s pin %-2d mode=%s pull=%s drive=%s level=%s lit=%t\n",
			line, pin.Number, state.Mode, state.Pull, state.Drive, state.Level, lit)
	}
	return nil
}
