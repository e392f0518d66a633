package main

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/light-controller/db"
	"github.com/thatsimonsguy/light-controller/internal/analog"
	"github.com/thatsimonsguy/light-controller/internal/api"
	"github.com/thatsimonsguy/light-controller/internal/config"
	"github.com/thatsimonsguy/light-controller/internal/controllers/telemetrycontroller"
	"github.com/thatsimonsguy/light-controller/internal/datadog"
	"github.com/thatsimonsguy/light-controller/internal/env"
	"github.com/thatsimonsguy/light-controller/internal/gpio"
	"github.com/thatsimonsguy/light-controller/internal/light"
	"github.com/thatsimonsguy/light-controller/internal/logging"
	"github.com/thatsimonsguy/light-controller/internal/messaging"
	"github.com/thatsimonsguy/light-controller/internal/notifications"
	"github.com/thatsimonsguy/light-controller/internal/terminal"
	"github.com/thatsimonsguy/light-controller/internal/watchdog"
	"github.com/thatsimonsguy/light-controller/system/shutdown"
)

func main() {
	cfg := config.Load()
	env.Cfg = &cfg
	logging.Init(cfg.LogLevel, cfg.LogFile)

	log.Info().
		Str("config_file", cfg.ConfigFile).
		Str("driver", cfg.Driver).
		Dur("tick", cfg.TickInterval()).
		Msg("Starting light controller")

	if cfg.SafeMode {
		log.Warn().Msg("SAFE MODE ENABLED - light outputs will not be driven")
	}

	datadog.InitMetrics()

	out := newDriver(&cfg)
	shutdown.RegisterSafeState(func() { gpio.AllOff(out) })

	notifier := notifications.New(cfg.NtfyTopic)
	wd := watchdog.New(cfg.WatchdogTimeout(), func(starved time.Duration) {
		msg := fmt.Sprintf("Light task has not reset the watchdog for %s", starved.Round(time.Millisecond))
		if err := notifier.Send("Light controller watchdog expired", msg); err != nil {
			log.Warn().Err(err).Msg("Failed to send watchdog notification")
		}
		shutdown.ShutdownWithError(fmt.Errorf("watchdog starved for %s", starved), "Watchdog expired, forcing lights to safe state")
	})

	cmds := terminal.NewDispatcher(os.Stdout)
	samples := newAnalogSource(&cfg)

	opts := []light.Option{
		light.WithTickInterval(cfg.TickInterval()),
		light.WithCalibration(cfg.Calibration),
		light.WithObserver(telemetrycontroller.ModeGauges{}),
	}

	dbConn, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.DBPath).Msg("Event journal unavailable, continuing without it")
	} else {
		opts = append(opts, light.WithObserver(db.NewJournal(dbConn, "controller")))
	}

	var bridge *messaging.Bridge
	if cfg.RedisAddr != "" {
		bridge = messaging.NewBridge(cfg.RedisAddr)
		if err := bridge.Connect(); err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, running without state publishing")
			bridge.Close()
			bridge = nil
		} else {
			opts = append(opts, light.WithObserver(bridge))
		}
	}

	ctrl := light.New(out, wd, cmds, samples, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if bridge != nil {
		bridge.StartListening(ctrl)
	}

	server := api.NewServer(ctrl, cmds, samples, cfg.Calibration, dbConn)
	go func() {
		if err := server.Start(cfg.APIPort); err != nil {
			shutdown.ShutdownWithError(err, "REST API server failed")
		}
	}()

	telemetrycontroller.RunTelemetryController(ctx, samples, cfg.Calibration,
		time.Duration(cfg.TelemetryIntervalSeconds)*time.Second)

	wd.Start(ctx)
	ctrl.Start()

	if isatty.IsTerminal(os.Stdin.Fd()) {
		go runConsole(cmds)
	}

	<-ctx.Done()
	log.Info().Msg("Shutdown requested")

	// the watchdog goes first so a slow stop is not mistaken for a starved task
	wd.Stop()

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*cfg.TickInterval()+time.Second)
	if err := ctrl.StopContext(stopCtx); err != nil {
		log.Error().Err(err).Msg("Light task did not stop cleanly")
	}
	cancel()

	apiCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := server.Shutdown(apiCtx); err != nil {
		log.Warn().Err(err).Msg("REST API server shutdown failed")
	}
	cancel()

	if bridge != nil {
		bridge.Close()
	}
	if dbConn != nil {
		dbConn.Close()
	}
	datadog.Close()

	shutdown.Shutdown()
}

func newDriver(cfg *config.Config) gpio.Driver {
	pins := cfg.Pins.ByLine()

	switch cfg.Driver {
	case "memory":
		log.Info().Msg("Using in-memory light outputs")
		return gpio.NewMemoryDriver()
	case "cdev":
		if cfg.SafeMode {
			log.Warn().Msg("Safe mode with cdev driver, using in-memory outputs instead")
			return gpio.NewMemoryDriver()
		}
		d, err := gpio.NewCdevDriver(cfg.GPIOChip, pins)
		if err != nil {
			shutdown.ShutdownWithError(err, "Failed to open GPIO character device")
		}
		shutdown.RegisterSafeState(d.Close)
		return d
	default:
		return gpio.NewPinctrlDriver(pins, cfg.SafeMode)
	}
}

func newAnalogSource(cfg *config.Config) analog.Source {
	if cfg.AnalogSource == "sysfs" {
		log.Info().Str("device", cfg.IIODevicePath).Msg("Reading analog channels from IIO")
		return analog.NewSysfsSource(cfg.IIODevicePath)
	}

	// static: nominal pack voltage and room temperature thermistors
	buf := analog.NewBuffer()
	buf.Set(analog.ChannelVinSense, uint16(math.Round(cfg.Calibration.SampleForInputVoltage(48))))
	buf.Set(analog.ChannelTempMOS, 2048)
	buf.Set(analog.ChannelTempMotor, 2048)
	log.Info().Msg("Using static analog samples")
	return buf
}

func runConsole(cmds *terminal.Dispatcher) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if err := cmds.Execute(os.Stdout, scanner.Text()); err != nil {
			fmt.Fprintln(os.Stdout, err)
		}
	}
}
