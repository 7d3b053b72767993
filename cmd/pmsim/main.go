// SPDX-FileCopyrightText: 2025 The Ferrite Authors
// SPDX-License-Identifier: Apache-2.0

// pmsim runs the PM engine against a simulated machine and exposes its
// residency statistics on a Prometheus /metrics endpoint.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"

	"github.com/ferrite-os/ferrite/config"
	"github.com/ferrite-os/ferrite/internal/exporter/prometheus"
	"github.com/ferrite-os/ferrite/internal/logger"
	"github.com/ferrite-os/ferrite/internal/pm"
	"github.com/ferrite-os/ferrite/internal/pm/device"
	"github.com/ferrite-os/ferrite/internal/pm/policy"
	"github.com/ferrite-os/ferrite/internal/pm/state"
	"github.com/ferrite-os/ferrite/internal/server"
	"github.com/ferrite-os/ferrite/internal/service"
	"github.com/ferrite-os/ferrite/internal/sim"
	"github.com/ferrite-os/ferrite/internal/version"
)

func main() {
	cfg, err := parseArgsAndConfig()
	if err != nil {
		kingpin.Fatalf("%v", err)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	logVersionInfo(log)
	log.Info("Configuration loaded", "config", cfg.String())

	services, machine, err := createServices(log, cfg)
	if err != nil {
		log.Error("failed to create services", "error", err)
		os.Exit(1)
	}

	if err := service.Init(log, services); err != nil {
		log.Error("initialization failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var g run.Group
	for _, s := range services {
		runner, ok := s.(service.Runner)
		if !ok {
			continue
		}
		svc := s
		r := runner
		g.Add(
			func() error {
				log.Info("Running service", "service", svc.Name())
				return r.Run(ctx)
			},
			func(err error) {
				if err != nil {
					log.Warn("service terminated", "service", svc.Name(), "reason", err)
				}
				if shutdowner, ok := svc.(service.Shutdowner); ok {
					if shutdownErr := shutdowner.Shutdown(); shutdownErr != nil {
						log.Warn("service shutdown failed", "service", svc.Name(), "error", shutdownErr)
					}
				}
				cancel()
			},
		)
	}
	g.Add(waitForInterrupt(ctx, log))

	log.Info("Starting pmsim")
	if err := g.Run(); err != nil {
		machine.Stop()
		log.Error("pmsim terminated with an error", "error", err)
		os.Exit(1)
	}
	log.Info("Graceful shutdown completed")
}

func parseArgsAndConfig() (*config.Config, error) {
	// First pass locates the config file; flag defaults come from the
	// stock configuration.
	cfg := config.DefaultConfig()
	app := kingpin.New("pmsim", "Power-management engine simulator and metrics exporter.")
	configFile := app.Flag("config.file", "Path to YAML configuration file").String()
	applyFlags := config.RegisterFlags(app, cfg)

	if _, err := app.Parse(os.Args[1:]); err != nil {
		return nil, err
	}

	if *configFile != "" {
		// Second pass re-parses with the file's values as flag
		// defaults, so explicit flags override the file.
		loaded, err := config.Load(*configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded

		app = kingpin.New("pmsim", "Power-management engine simulator and metrics exporter.")
		app.Flag("config.file", "Path to YAML configuration file").String()
		applyFlags = config.RegisterFlags(app, cfg)
		if _, err := app.Parse(os.Args[1:]); err != nil {
			return nil, err
		}
	}

	if err := applyFlags(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// createServices builds the simulated machine, the engine and the
// observation services around them.
func createServices(log *slog.Logger, cfg *config.Config) ([]service.Service, *sim.Machine, error) {
	table, err := state.TableFromSpecs(cfg.Platform.States)
	if err != nil {
		return nil, nil, err
	}

	machine := sim.NewMachine(
		sim.WithLogger(log),
		sim.WithCycleHz(cfg.Platform.CycleHz),
		sim.WithTicksPerSecond(cfg.Platform.TicksPerSecond),
	)

	registry := device.NewRegistry(device.WithLogger(log))
	for _, d := range cfg.Platform.Devices {
		simDev := sim.NewSimDevice(log, d.Name, d.WakeCapable)
		registry.Register(simDev.Device())
		if d.WakeCapable {
			simDev.Device().WakeupEnable(true)
		}
	}

	engine := pm.NewEngine(
		pm.WithLogger(log),
		pm.WithArch(machine),
		pm.WithSchedLocker(machine),
		pm.WithTickTimer(machine),
		pm.WithCycleCounter(machine),
		pm.WithSoCHooks(machine),
		pm.WithPolicy(policy.NewResidency(table, cfg.Platform.TicksPerSecond, policy.WithLogger(log))),
		pm.WithDeviceRegistry(registry),
		pm.WithCPUs(cfg.Platform.CPUs),
		pm.WithTicksPerSecond(cfg.Platform.TicksPerSecond),
		pm.WithStatsEnabled(cfg.StatsEnabled()),
	)
	machine.SetWakeISR(engine.SystemResume)

	idleLoop := sim.NewIdleLoop(engine, machine,
		sim.WithIdleLogger(log),
		sim.WithIdleInterval(cfg.Idle.Interval),
		sim.WithIdleHorizon(cfg.Idle.HorizonTicks),
		sim.WithIdleCPUs(cfg.Platform.CPUs),
	)

	apiServer := server.NewAPIServer(
		server.WithLogger(log),
		server.WithListen(cfg.Web.ListenAddresses, cfg.Web.Config),
	)

	exporter := prometheus.NewExporter(apiServer,
		prometheus.WithLogger(log),
		prometheus.WithCollectors(prometheus.CreateCollectors(engine.Stats(), log)),
	)

	return []service.Service{
		apiServer,
		exporter,
		idleLoop,
	}, machine, nil
}

func logVersionInfo(log *slog.Logger) {
	v := version.Info()
	log.Info("pmsim version information",
		"version", v.Version,
		"buildTime", v.BuildTime,
		"gitBranch", v.GitBranch,
		"gitCommit", v.GitCommit,
		"goVersion", v.GoVersion,
		"goOS", v.GoOS,
		"goArch", v.GoArch,
	)
}

func waitForInterrupt(ctx context.Context, log *slog.Logger) (func() error, func(error)) {
	ctxInternal, cancel := context.WithCancel(ctx)
	return func() error {
			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt)
			log.Info("Press Ctrl+C to shutdown")
			select {
			case <-c:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			case <-ctxInternal.Done():
				return ctxInternal.Err()
			}
		}, func(error) {
			cancel()
		}
}
