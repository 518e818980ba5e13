package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/storskegg/ble-roster/internal/logging"
	"github.com/storskegg/ble-roster/internal/roster"
)

// DefaultPath is read when no config file is named. It may be absent.
const DefaultPath = "ble_roster.yaml"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the root configuration structure.
type Config struct {
	Scan    ScanConfig    `yaml:"scan"`
	Roster  RosterConfig  `yaml:"roster"`
	Display DisplayConfig `yaml:"display"`
	Input   InputConfig   `yaml:"input"`
	Audit   AuditConfig   `yaml:"audit"`
	GPS     GPSConfig     `yaml:"gps"`
	Export  ExportConfig  `yaml:"export"`
	Logging LoggingConfig `yaml:"logging"`
	Audio   AudioConfig   `yaml:"audio"`
}

// ScanConfig selects where observations come from.
type ScanConfig struct {
	// Source is "adapter", "serial" or "stdin".
	Source     string   `yaml:"source"`
	Port       string   `yaml:"port"`
	Baud       int      `yaml:"baud"`
	Interval   Duration `yaml:"interval"`
	RetryDelay Duration `yaml:"retry_delay"`
}

// RosterConfig holds the activity and eviction thresholds.
type RosterConfig struct {
	InactiveThreshold Duration `yaml:"inactive_threshold"`
	DeviceTimeout     Duration `yaml:"device_timeout"`
	Sort              string   `yaml:"sort"`
}

// DisplayConfig controls the terminal front end.
type DisplayConfig struct {
	// Backend is "ansi" or "tcell".
	Backend        string   `yaml:"backend"`
	RenderInterval Duration `yaml:"render_interval"`
	CycleInterval  Duration `yaml:"cycle_interval"`
	BarWidth       int      `yaml:"bar_width"`
	NameWidth      int      `yaml:"name_width"`
}

type InputConfig struct {
	EscapeTimeout Duration `yaml:"escape_timeout"`
}

// AuditConfig controls the flat-file audit log.
type AuditConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Path     string   `yaml:"path"`
	Interval Duration `yaml:"interval"`
}

// GPSConfig names an optional NMEA receiver. An empty port disables GPS;
// a zero baud rate auto-detects.
type GPSConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

type ExportConfig struct {
	Directory string `yaml:"directory"`
}

// LoggingConfig controls diagnostics. An empty level disables logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

type AudioConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Duration is a time.Duration written as a Go duration string ("15s").
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("line %d: duration must be a string: %w", value.Line, err)
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes d as a duration string.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Load reads configuration from a YAML file and validates it.
//
// Defaults are applied first, then the file, then environment variable
// overrides named BLE_ROSTER_SECTION_KEY. A missing file at DefaultPath is
// not an error; any other unreadable path is.
func Load(path string) (*Config, error) {
	cfg, err := LoadRaw(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// LoadRaw is Load without the final Validate, for callers that layer more
// overrides on top and validate once at the end.
func LoadRaw(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && path == DefaultPath:
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			Source:     "adapter",
			Baud:       115200,
			Interval:   Duration(100 * time.Millisecond),
			RetryDelay: Duration(time.Second),
		},
		Roster: RosterConfig{
			InactiveThreshold: Duration(15 * time.Second),
			DeviceTimeout:     Duration(60 * time.Second),
			Sort:              "discovery",
		},
		Display: DisplayConfig{
			Backend:        "ansi",
			RenderInterval: Duration(250 * time.Millisecond),
			CycleInterval:  Duration(100 * time.Millisecond),
			BarWidth:       20,
			NameWidth:      20,
		},
		Input: InputConfig{
			EscapeTimeout: Duration(25 * time.Millisecond),
		},
		Audit: AuditConfig{
			Enabled:  true,
			Path:     "ble_audit.log",
			Interval: Duration(10 * time.Second),
		},
		Export: ExportConfig{
			Directory: "exports",
		},
		Logging: LoggingConfig{
			Path: "ble_monitor.log",
		},
	}
}

// applyEnvOverrides applies environment variable overrides.
// Environment variables follow the pattern: BLE_ROSTER_SECTION_KEY
func applyEnvOverrides(cfg *Config) error {
	var errs []error

	envString := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	envInt := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	envBool := func(name string, dst *bool) {
		if v := os.Getenv(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = b
		}
	}
	envDuration := func(name string, dst *Duration) {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = Duration(d)
		}
	}

	// Scan
	envString("BLE_ROSTER_SCAN_SOURCE", &cfg.Scan.Source)
	envString("BLE_ROSTER_SCAN_PORT", &cfg.Scan.Port)
	envInt("BLE_ROSTER_SCAN_BAUD", &cfg.Scan.Baud)
	envDuration("BLE_ROSTER_SCAN_RETRY_DELAY", &cfg.Scan.RetryDelay)

	// Roster
	envDuration("BLE_ROSTER_ROSTER_INACTIVE_THRESHOLD", &cfg.Roster.InactiveThreshold)
	envDuration("BLE_ROSTER_ROSTER_DEVICE_TIMEOUT", &cfg.Roster.DeviceTimeout)
	envString("BLE_ROSTER_ROSTER_SORT", &cfg.Roster.Sort)

	// Display
	envString("BLE_ROSTER_DISPLAY_BACKEND", &cfg.Display.Backend)

	// Audit
	envBool("BLE_ROSTER_AUDIT_ENABLED", &cfg.Audit.Enabled)
	envString("BLE_ROSTER_AUDIT_PATH", &cfg.Audit.Path)

	// GPS
	envString("BLE_ROSTER_GPS_PORT", &cfg.GPS.Port)
	envInt("BLE_ROSTER_GPS_BAUD", &cfg.GPS.Baud)

	envString("BLE_ROSTER_EXPORT_DIRECTORY", &cfg.Export.Directory)

	// Logging
	envString("BLE_ROSTER_LOG_LEVEL", &cfg.Logging.Level)
	envString("BLE_ROSTER_LOG_PATH", &cfg.Logging.Path)

	envBool("BLE_ROSTER_AUDIO_ENABLED", &cfg.Audio.Enabled)

	return errors.Join(errs...)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	switch c.Scan.Source {
	case "adapter", "stdin":
	case "serial":
		if c.Scan.Port == "" {
			errs = append(errs, "scan.port is required when scan.source is serial")
		}
	default:
		errs = append(errs, fmt.Sprintf("scan.source %q must be adapter, serial or stdin", c.Scan.Source))
	}
	if c.Scan.Baud <= 0 {
		errs = append(errs, "scan.baud must be positive")
	}
	if c.Scan.RetryDelay <= 0 {
		errs = append(errs, "scan.retry_delay must be positive")
	}

	if c.Roster.InactiveThreshold <= 0 {
		errs = append(errs, "roster.inactive_threshold must be positive")
	}
	if c.Roster.DeviceTimeout < c.Roster.InactiveThreshold {
		errs = append(errs, "roster.device_timeout must not be shorter than roster.inactive_threshold")
	}
	if _, err := roster.ParseSortMode(c.Roster.Sort); err != nil {
		errs = append(errs, fmt.Sprintf("roster.sort: %v", err))
	}

	switch c.Display.Backend {
	case "ansi", "tcell":
	default:
		errs = append(errs, fmt.Sprintf("display.backend %q must be ansi or tcell", c.Display.Backend))
	}
	if c.Display.RenderInterval <= 0 {
		errs = append(errs, "display.render_interval must be positive")
	}
	if c.Display.CycleInterval <= 0 {
		errs = append(errs, "display.cycle_interval must be positive")
	}
	if c.Display.BarWidth < 1 {
		errs = append(errs, "display.bar_width must be at least 1")
	}
	if c.Display.NameWidth < 1 {
		errs = append(errs, "display.name_width must be at least 1")
	}

	if c.Input.EscapeTimeout <= 0 {
		errs = append(errs, "input.escape_timeout must be positive")
	}

	if c.Audit.Enabled {
		if c.Audit.Path == "" {
			errs = append(errs, "audit.path is required when audit is enabled")
		}
		if c.Audit.Interval <= 0 {
			errs = append(errs, "audit.interval must be positive")
		}
	}

	if c.GPS.Baud < 0 {
		errs = append(errs, "gps.baud must not be negative")
	}

	if c.Export.Directory == "" {
		errs = append(errs, "export.directory is required")
	}

	if !logging.ValidLevel(c.Logging.Level) {
		errs = append(errs, fmt.Sprintf("logging.level %q is not a known level", c.Logging.Level))
	}
	if c.Logging.Level != "" && c.Logging.Path == "" {
		errs = append(errs, "logging.path is required when logging.level is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(errs, "; "))
	}

	return nil
}

// SortMode returns the configured initial sort mode. It assumes Validate passed.
func (c *Config) SortMode() roster.SortMode {
	mode, _ := roster.ParseSortMode(c.Roster.Sort)
	return mode
}
