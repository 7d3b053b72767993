// SPDX-FileCopyrightText: 2025 The Ferrite Authors
// SPDX-License-Identifier: Apache-2.0

// Package config holds the simulator's configuration: logging, the web
// listener, the simulated platform (CPUs, tick rate, power states) and
// the idle-loop workload. Values come from a YAML file merged over
// defaults, with command-line flags taking precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"gopkg.in/yaml.v3"
	"k8s.io/utils/ptr"

	"github.com/ferrite-os/ferrite/internal/pm/state"
)

type (
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	}

	Web struct {
		Config          string   `yaml:"configFile"`
		ListenAddresses []string `yaml:"listenAddresses"`
	}

	// Platform describes the simulated machine the PM engine runs on.
	Platform struct {
		CPUs           int          `yaml:"cpus"`
		TicksPerSecond uint32       `yaml:"ticksPerSecond"`
		CycleHz        uint32       `yaml:"cycleHz"`
		Stats          *bool        `yaml:"stats"`
		States         []state.Spec `yaml:"states"`
		Devices        []Device     `yaml:"devices"`
	}

	// Device describes one simulated peripheral.
	Device struct {
		Name        string `yaml:"name"`
		WakeCapable bool   `yaml:"wakeCapable"`
	}

	// Idle configures the workload loop that drives suspend cycles.
	Idle struct {
		Interval time.Duration `yaml:"interval"`
		// HorizonTicks is the simulated distance to the next kernel
		// deadline handed to the engine each cycle. -1 sleeps forever
		// (until an external wake).
		HorizonTicks int32 `yaml:"horizonTicks"`
	}

	Config struct {
		Log      Log      `yaml:"log"`
		Web      Web      `yaml:"web"`
		Platform Platform `yaml:"platform"`
		Idle     Idle     `yaml:"idle"`
	}
)

// DefaultPort is the port the metrics listener binds when unset.
const DefaultPort = ":28282"

// DefaultConfig returns a Config with defaults: one CPU at 10k ticks and
// 32MHz cycles, three stock sleep states and three peripherals, one of
// them wake capable.
func DefaultConfig() *Config {
	return &Config{
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Web: Web{
			ListenAddresses: []string{DefaultPort},
		},
		Platform: Platform{
			CPUs:           1,
			TicksPerSecond: 10_000,
			CycleHz:        32_000_000,
			Stats:          ptr.To(true),
			States: []state.Spec{
				{State: "runtime-idle", MinResidencyUs: 500, ExitLatencyUs: 50},
				{State: "suspend-to-idle", MinResidencyUs: 5_000, ExitLatencyUs: 500},
				{State: "suspend-to-ram", MinResidencyUs: 50_000, ExitLatencyUs: 2_000},
			},
			Devices: []Device{
				{Name: "uart0"},
				{Name: "spi0"},
				{Name: "rtc0", WakeCapable: true},
			},
		},
		Idle: Idle{
			Interval:     time.Second,
			HorizonTicks: 1_000,
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// RegisterFlags wires the flag overrides into app. The returned function
// applies the parsed flags onto cfg and must run after app.Parse.
func RegisterFlags(app *kingpin.Application, cfg *Config) func() error {
	logLevel := app.Flag("log.level", "Log level: debug, info, warn, error").Default(cfg.Log.Level).String()
	logFormat := app.Flag("log.format", "Log format: text or json").Default(cfg.Log.Format).String()
	listen := app.Flag("web.listen-address", "Address for the metrics listener").Default(cfg.Web.ListenAddresses...).Strings()
	cpus := app.Flag("platform.cpus", "Number of simulated CPUs").Default(fmt.Sprint(cfg.Platform.CPUs)).Int()
	interval := app.Flag("idle.interval", "Delay between simulated idle entries").Default(cfg.Idle.Interval.String()).Duration()

	return func() error {
		cfg.Log.Level = *logLevel
		cfg.Log.Format = *logFormat
		cfg.Web.ListenAddresses = *listen
		cfg.Platform.CPUs = *cpus
		cfg.Idle.Interval = *interval
		return cfg.Validate()
	}
}

// Validate checks the configuration for values the simulator cannot run
// with. The state table gets its full validation in state.TableFromSpecs.
func (c *Config) Validate() error {
	var errs []string

	if c.Platform.CPUs < 1 {
		errs = append(errs, "platform.cpus must be at least 1")
	}
	if c.Platform.TicksPerSecond == 0 {
		errs = append(errs, "platform.ticksPerSecond must be non-zero")
	}
	if c.Platform.CycleHz == 0 {
		errs = append(errs, "platform.cycleHz must be non-zero")
	}
	if c.Idle.Interval < 0 {
		errs = append(errs, "idle.interval must not be negative")
	}
	if c.Idle.HorizonTicks < -1 {
		errs = append(errs, "idle.horizonTicks must be -1 (forever) or non-negative")
	}
	if _, err := state.TableFromSpecs(c.Platform.States); err != nil {
		errs = append(errs, fmt.Sprintf("platform.states: %v", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

// StatsEnabled reports whether residency statistics are recorded.
func (c *Config) StatsEnabled() bool {
	return c.Platform.Stats == nil || *c.Platform.Stats
}

// String renders the configuration as YAML for startup logging, the
// same way it would appear in a config file.
func (c *Config) String() string {
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("<unprintable config: %v>", err)
	}
	return string(out)
}
