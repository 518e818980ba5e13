package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/storskegg/ble-roster/internal/audit"
	"github.com/storskegg/ble-roster/internal/config"
	"github.com/storskegg/ble-roster/internal/display"
	"github.com/storskegg/ble-roster/internal/gps"
	"github.com/storskegg/ble-roster/internal/input"
	"github.com/storskegg/ble-roster/internal/logging"
	"github.com/storskegg/ble-roster/internal/monitor"
	"github.com/storskegg/ble-roster/internal/scan"
)

// CLI is the root command structure for ble_monitor. Flags left unset keep
// the value from the config file.
type CLI struct {
	Config   string `short:"c" help:"Path to YAML config file." placeholder:"FILE"`
	Source   string `help:"Observation source: adapter, serial or stdin."`
	Port     string `short:"p" help:"Serial port of the sniffer (e.g. /dev/ttyUSB0)."`
	Baud     int    `help:"Baud rate for the sniffer serial port."`
	GPS      string `name:"gps" help:"GPS/GNSS serial port (e.g. /dev/ttyUSB1)."`
	Display  string `help:"Display backend: ansi or tcell."`
	Sort     string `help:"Initial sort mode: discovery or signal."`
	Audit    string `help:"Audit log path."`
	NoAudit  bool   `name:"no-audit" help:"Disable the audit log."`
	LogLevel string `name:"log-level" help:"Diagnostics level: debug, info, warn or error."`
	Verbose  bool   `short:"v" help:"Enable debug diagnostics."`

	Run     RunCmd     `cmd:"" default:"withargs" help:"Show the live device roster (default)."`
	Version VersionCmd `cmd:"" help:"Print the version and exit."`
}

// apply copies set flags over cfg.
func (c *CLI) apply(cfg *config.Config) {
	if c.Source != "" {
		cfg.Scan.Source = c.Source
	}
	if c.Port != "" {
		cfg.Scan.Port = c.Port
		if c.Source == "" {
			cfg.Scan.Source = "serial"
		}
	}
	if c.Baud != 0 {
		cfg.Scan.Baud = c.Baud
	}
	if c.GPS != "" {
		cfg.GPS.Port = c.GPS
	}
	if c.Display != "" {
		cfg.Display.Backend = c.Display
	}
	if c.Sort != "" {
		cfg.Roster.Sort = c.Sort
	}
	if c.Audit != "" {
		cfg.Audit.Path = c.Audit
		cfg.Audit.Enabled = true
	}
	if c.NoAudit {
		cfg.Audit.Enabled = false
	}
	if c.LogLevel != "" {
		cfg.Logging.Level = c.LogLevel
	}
	if c.Verbose {
		cfg.Logging.Level = "debug"
	}
}

// load reads the config file, applies the flags and validates the result.
func (c *CLI) load() (*config.Config, error) {
	cfg, err := config.LoadRaw(c.Config)
	if err != nil {
		return nil, err
	}
	c.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

type VersionCmd struct{}

func (v *VersionCmd) Run(globals *CLI) error {
	fmt.Println("ble_monitor", version)
	return nil
}

type RunCmd struct{}

func (r *RunCmd) Run(globals *CLI) error {
	cfg, err := globals.load()
	if err != nil {
		return err
	}

	if err := logging.Initialize(cfg.Logging.Level, cfg.Logging.Path); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cues := scan.NewCues(cfg.Audio.Enabled)
	source := newSource(cfg, cues)

	var location *gps.LocationState
	if cfg.GPS.Port != "" {
		receiver := gps.NewReceiver(cfg.GPS.Port, cfg.GPS.Baud)
		if err := receiver.Start(ctx); err != nil {
			return fmt.Errorf("starting GPS receiver: %w", err)
		}
		defer receiver.Close()
		location = receiver.State()
	}

	backend, keys, err := newBackend(ctx, cfg)
	if err != nil {
		return err
	}

	var auditLog *audit.Log
	if cfg.Audit.Enabled {
		auditLog = audit.New(cfg.Audit.Path)
	}

	logging.Info("Starting ble_monitor")

	mon := monitor.New(monitor.Config{
		InactiveThreshold: cfg.Roster.InactiveThreshold.Std(),
		DeviceTimeout:     cfg.Roster.DeviceTimeout.Std(),
		SortMode:          cfg.SortMode(),
		ScanInterval:      cfg.Scan.Interval.Std(),
		CycleInterval:     cfg.Display.CycleInterval.Std(),
		RenderInterval:    cfg.Display.RenderInterval.Std(),
		AuditInterval:     cfg.Audit.Interval.Std(),
		RetryDelay:        cfg.Scan.RetryDelay.Std(),
		BarWidth:          cfg.Display.BarWidth,
		NameWidth:         cfg.Display.NameWidth,
		ExportDir:         cfg.Export.Directory,
	}, monitor.Deps{
		Source:  source,
		Backend: backend,
		Keys:    keys,
		GPS:     location,
		Audit:   auditLog,
		Cues:    cues,
	})
	return mon.Run(ctx)
}

func newSource(cfg *config.Config, cues *scan.Cues) scan.Source {
	switch cfg.Scan.Source {
	case "serial":
		return scan.NewSerial(scan.SerialConfig{
			Port:       cfg.Scan.Port,
			Baud:       cfg.Scan.Baud,
			RetryDelay: cfg.Scan.RetryDelay.Std(),
			Cues:       cues,
		})
	case "stdin":
		return scan.NewSerial(scan.SerialConfig{
			Stdin:      os.Stdin,
			RetryDelay: cfg.Scan.RetryDelay.Std(),
			Cues:       cues,
		})
	default:
		return scan.NewAdapter()
	}
}

// newBackend opens the display and the key source that goes with it. When
// observations arrive on stdin the ANSI backend reads keys from the
// controlling terminal instead.
func newBackend(ctx context.Context, cfg *config.Config) (display.Backend, input.Poller, error) {
	if cfg.Display.Backend == "tcell" {
		t, err := display.NewTcell()
		if err != nil {
			return nil, nil, fmt.Errorf("creating screen: %w", err)
		}
		t.Listen(ctx)
		return t, t.Keys(), nil
	}

	in := os.Stdin
	if cfg.Scan.Source == "stdin" {
		tty, err := os.Open("/dev/tty")
		if err != nil {
			return nil, nil, fmt.Errorf("opening terminal for keys: %w", err)
		}
		in = tty
	}

	a, err := display.NewANSI(in, os.Stdout)
	if err != nil {
		return nil, nil, fmt.Errorf("creating terminal: %w", err)
	}
	keys := input.NewDecoder(input.Read(ctx, in), cfg.Input.EscapeTimeout.Std())
	return a, keys, nil
}
