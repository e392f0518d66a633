package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env"
	"github.com/rs/zerolog"

	"github.com/thatsimonsguy/light-controller/internal/analog"
	"github.com/thatsimonsguy/light-controller/internal/gpio"
	"github.com/thatsimonsguy/light-controller/internal/model"
)

type Pins struct {
	Light     *model.GPIOPin `json:"light"`
	LongLight *model.GPIOPin `json:"long_light"`
	TurnLeft  *model.GPIOPin `json:"turn_left"`
	TurnRight *model.GPIOPin `json:"turn_right"`
}

// ByLine keys the configured pins by output line. Nil pins are skipped.
func (p Pins) ByLine() map[gpio.Line]model.GPIOPin {
	pins := make(map[gpio.Line]model.GPIOPin, len(gpio.Lines))
	for line, pin := range map[gpio.Line]*model.GPIOPin{
		gpio.Light:     p.Light,
		gpio.LongLight: p.LongLight,
		gpio.TurnLeft:  p.TurnLeft,
		gpio.TurnRight: p.TurnRight,
	} {
		if pin != nil {
			pins[line] = *pin
		}
	}
	return pins
}

type Config struct {
	ConfigFile string
	LogLevel   zerolog.Level

	LogLevelName string `json:"log_level" env:"LIGHT_LOG_LEVEL"`
	LogFile      string `json:"log_file" env:"LIGHT_LOG_FILE"`
	SafeMode     bool   `json:"safe_mode" env:"LIGHT_SAFE_MODE"`

	// pinctrl, cdev or memory
	Driver   string `json:"driver" env:"LIGHT_DRIVER"`
	GPIOChip string `json:"gpio_chip" env:"LIGHT_GPIO_CHIP"`
	Pins     Pins   `json:"pins"`

	TickIntervalMs    int                `json:"tick_interval_ms" env:"LIGHT_TICK_INTERVAL_MS"`
	WatchdogTimeoutMs int                `json:"watchdog_timeout_ms" env:"LIGHT_WATCHDOG_TIMEOUT_MS"`
	Calibration       analog.Calibration `json:"calibration"`

	// sysfs or static
	AnalogSource  string `json:"analog_source" env:"LIGHT_ANALOG_SOURCE"`
	IIODevicePath string `json:"iio_device_path" env:"LIGHT_IIO_DEVICE_PATH"`

	APIPort   int    `json:"api_port" env:"LIGHT_API_PORT"`
	RedisAddr string `json:"redis_addr" env:"LIGHT_REDIS_ADDR"`
	DBPath    string `json:"db_path" env:"LIGHT_DB_PATH"`

	EnableDatadog bool     `json:"enable_datadog" env:"LIGHT_ENABLE_DATADOG"`
	DDAgentAddr   string   `json:"dd_agent_addr" env:"DD_AGENT_ADDR"`
	DDNamespace   string   `json:"dd_namespace"`
	DDTags        []string `json:"dd_tags"`

	NtfyTopic string `json:"ntfy_topic" env:"LIGHT_NTFY_TOPIC"`

	TelemetryIntervalSeconds int `json:"telemetry_interval_seconds"`

	BootScriptFilePath string `json:"boot_script_file_path"`
	OSServicePath      string `json:"os_service_path"`
	MainServicePath    string `json:"main_service_path"`
}

func Load() Config {
	var (
		logLevel string
		safeMode bool
		simulate bool
		cfg      Config
	)

	flag.StringVar(&cfg.ConfigFile, "config-file", "config.json", "Path to controller config file")
	flag.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.BoolVar(&safeMode, "safe-mode", false, "Never drive GPIO pins")
	flag.BoolVar(&simulate, "simulate", false, "Use in-memory outputs instead of hardware")
	flag.Parse()

	file, err := os.Open(cfg.ConfigFile)
	if err != nil {
		panic("Failed to load config file: " + err.Error())
	}
	defer file.Close()

	cfg = Parse(file, cfg.ConfigFile)

	if logLevel != "" {
		cfg.LogLevelName = logLevel
		cfg.LogLevel = parseLogLevel(logLevel)
	}
	if safeMode {
		cfg.SafeMode = true
	}
	if simulate {
		cfg.Driver = "memory"
		cfg.AnalogSource = "static"
	}
	return cfg
}

// Parse decodes a JSON config, applies LIGHT_* environment overrides and defaults, then
// validates. Any problem panics.
func Parse(r io.Reader, name string) Config {
	var cfg Config
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		panic("Failed to parse config file: " + err.Error())
	}
	cfg.ConfigFile = name

	if err := env.Parse(&cfg); err != nil {
		panic("Failed to apply environment overrides: " + err.Error())
	}

	cfg.applyDefaults()
	cfg.validate()
	return cfg
}

func (cfg *Config) TickInterval() time.Duration {
	return time.Duration(cfg.TickIntervalMs) * time.Millisecond
}

func (cfg *Config) WatchdogTimeout() time.Duration {
	return time.Duration(cfg.WatchdogTimeoutMs) * time.Millisecond
}

func (cfg *Config) applyDefaults() {
	cfg.LogLevel = parseLogLevel(cfg.LogLevelName)

	if cfg.Driver == "" {
		cfg.Driver = "pinctrl"
	}
	if cfg.GPIOChip == "" {
		cfg.GPIOChip = "gpiochip0"
	}
	if cfg.TickIntervalMs == 0 {
		cfg.TickIntervalMs = 500
	}
	if cfg.WatchdogTimeoutMs == 0 {
		cfg.WatchdogTimeoutMs = 4 * cfg.TickIntervalMs
	}
	if cfg.AnalogSource == "" {
		cfg.AnalogSource = "static"
	}
	if cfg.IIODevicePath == "" {
		cfg.IIODevicePath = "/sys/bus/iio/devices/iio:device0"
	}
	if cfg.APIPort == 0 {
		cfg.APIPort = 8080
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "data/light.db"
	}
	if cfg.DDNamespace == "" {
		cfg.DDNamespace = "light_controller."
	}
	if cfg.TelemetryIntervalSeconds == 0 {
		cfg.TelemetryIntervalSeconds = 10
	}
	if cfg.BootScriptFilePath == "" {
		cfg.BootScriptFilePath = "/usr/local/bin/light-pins.sh"
	}
	if cfg.OSServicePath == "" {
		cfg.OSServicePath = "/etc/systemd/system/light-pins.service"
	}
	if cfg.MainServicePath == "" {
		cfg.MainServicePath = "/etc/systemd/system/light-controller.service"
	}

	// zero calibration fields fall back to the board defaults one by one
	def := analog.DefaultCalibration()
	cal := reflect.ValueOf(&cfg.Calibration).Elem()
	defVal := reflect.ValueOf(def)
	for i := 0; i < cal.NumField(); i++ {
		if cal.Field(i).Float() == 0 {
			cal.Field(i).SetFloat(defVal.Field(i).Float())
		}
	}
}

func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (cfg *Config) validate() {
	var (
		missingFields []string
		usedPins      = map[int]string{}
		conflicts     []string
	)

	v := reflect.ValueOf(cfg.Pins)
	t := reflect.TypeOf(cfg.Pins)

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldName := t.Field(i).Tag.Get("json")

		if field.IsNil() {
			missingFields = append(missingFields, "pins."+fieldName)
			continue
		}

		pin := field.Interface().(*model.GPIOPin).Number
		if other, exists := usedPins[pin]; exists {
			conflicts = append(conflicts, fmt.Sprintf("pins.%s and pins.%s both use pin %d", fieldName, other, pin))
		} else {
			usedPins[pin] = fieldName
		}
	}

	if len(missingFields) > 0 {
		panic("Missing required pin config fields: " + strings.Join(missingFields, ", "))
	}
	if len(conflicts) > 0 {
		panic("Conflicting GPIO pins: " + strings.Join(conflicts, ", "))
	}

	switch cfg.Driver {
	case "pinctrl", "cdev", "memory":
	default:
		panic("Unknown GPIO driver: " + cfg.Driver)
	}
	switch cfg.AnalogSource {
	case "sysfs", "static":
	default:
		panic("Unknown analog source: " + cfg.AnalogSource)
	}

	if cfg.TickIntervalMs < 0 {
		panic(fmt.Sprintf("tick_interval_ms must be positive, got %d", cfg.TickIntervalMs))
	}
	if cfg.WatchdogTimeoutMs <= cfg.TickIntervalMs {
		panic(fmt.Sprintf("watchdog_timeout_ms (%d) must exceed tick_interval_ms (%d)", cfg.WatchdogTimeoutMs, cfg.TickIntervalMs))
	}

	cal := cfg.Calibration
	if cal.VReg <= 0 || cal.VinR2 <= 0 || cal.CurrentAmpGain <= 0 || cal.CurrentShuntRes <= 0 || cal.NTCRes <= 0 || cal.NTCBeta <= 0 || cal.MotorNTCBeta <= 0 {
		panic(fmt.Sprintf("Calibration constants must be positive: %+v", cal))
	}
}
