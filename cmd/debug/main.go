package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/thatsimonsguy/light-controller/db"
	"github.com/thatsimonsguy/light-controller/internal/analog"
	"github.com/thatsimonsguy/light-controller/internal/config"
	"github.com/thatsimonsguy/light-controller/system/startup"
)

func main() {
	DebugCLI()
}

func DebugCLI() {
	var dbPath, command, kind, configPath, execPath string
	var limit, sample int
	var olderThan time.Duration
	flag.StringVar(&dbPath, "db", "data/light.db", "Path to the SQLite event journal")
	flag.StringVar(&command, "cmd", "", "Command to run: events, prune-events, convert, pins, write-boot-script, run-boot-script, install-services")
	flag.StringVar(&kind, "kind", "", "Event kind filter for events, conversion kind for convert (vin, adc, current, ntc, motor)")
	flag.IntVar(&limit, "limit", 50, "Maximum number of events to list")
	flag.DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age threshold for prune-events")
	flag.IntVar(&sample, "sample", 0, "Raw 12-bit ADC sample for convert")
	flag.StringVar(&configPath, "config-file", "config.json", "Controller config for pins, the boot script and install-services")
	flag.StringVar(&execPath, "exec", "/usr/local/bin/light-controller", "Controller binary path for install-services")
	help := flag.Bool("help", false, "Show help")
	flag.Parse()

	if *help || command == "" {
		fmt.Println("\nUsage of light-debug:")
		fmt.Println("  -db string\tPath to the SQLite event journal (default 'data/light.db')")
		fmt.Println("  -cmd string\tCommand to run: events, prune-events, convert, pins, write-boot-script, run-boot-script, install-services")
		fmt.Println("  -kind string\tEvent kind (light_mode, turn_mode) or conversion (vin, adc, current, ntc, motor)")
		fmt.Println("  -limit int\tMaximum number of events to list")
		fmt.Println("  -older-than duration\tAge threshold for prune-events")
		fmt.Println("  -sample int\tRaw ADC sample for convert")
		fmt.Println("  -config-file string\tController config file")
		fmt.Println("  -exec string\tController binary path for install-services")
		fmt.Println("  -help\tShow this help message")
		os.Exit(0)
	}

	var err error
	switch command {
	case "events":
		err = db.ListEventsCLI(dbPath, kind, limit, os.Stdout)
	case "prune-events":
		var n int64
		n, err = db.PruneEventsCLI(dbPath, olderThan)
		if err == nil {
			fmt.Printf("Pruned %d events\n", n)
		}
	case "convert":
		err = convert(kind, sample)
	case "pins":
		cfg := loadConfig(configPath)
		err = startup.ReportPins(os.Stdout, cfg.Pins.ByLine())
	case "write-boot-script":
		cfg := loadConfig(configPath)
		err = startup.WriteStartupScript(cfg.BootScriptFilePath, cfg.Pins.ByLine())
	case "run-boot-script":
		cfg := loadConfig(configPath)
		err = startup.RunStartupScript(cfg.BootScriptFilePath)
	case "install-services":
		cfg := loadConfig(configPath)
		err = startup.InstallStartupService(cfg.OSServicePath, cfg.BootScriptFilePath)
		if err == nil {
			err = startup.InstallControllerService(cfg.MainServicePath, cfg.OSServicePath, execPath, configPath)
		}
	default:
		fmt.Println("Invalid command")
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("Command %s failed: %v\n", command, err)
		os.Exit(1)
	}
	fmt.Printf("Command %s completed successfully\n", command)
}

func loadConfig(path string) config.Config {
	file, err := os.Open(path)
	if err != nil {
		fmt.Printf("Failed to open config file: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()
	return config.Parse(file, path)
}

func convert(kind string, sample int) error {
	if sample < 0 || sample > analog.MaxSample {
		return fmt.Errorf("sample %d outside 0..%d", sample, analog.MaxSample)
	}
	cal := analog.DefaultCalibration()
	s := uint16(sample)

	switch strings.ToLower(kind) {
	case "vin":
		fmt.Printf("%d -> %.3f V input\n", sample, cal.InputVoltage(s))
	case "adc", "":
		fmt.Printf("%d -> %.3f V at pin\n", sample, cal.ChannelVolts(s))
	case "current":
		fmt.Printf("%d -> %.2f A through the shunt\n", sample, cal.ShuntCurrent(s, analog.CurrentZeroSample))
	case "ntc":
		fmt.Printf("%d -> %.1f ohm, %.2f C\n", sample, cal.NTCResistance(s), cal.NTCTemperature(s))
	case "motor":
		fmt.Printf("%d -> %.1f ohm, %.2f C\n", sample, cal.MotorNTCResistance(s), cal.MotorTemperature(s, cal.MotorNTCBeta))
	default:
		return fmt.Errorf("unknown conversion %q", kind)
	}
	return nil
}
