// SPDX-FileCopyrightText: 2025 The Ferrite Authors
// SPDX-License-Identifier: Apache-2.0

package sim

import (
	"context"
	"log/slog"
	"time"

	"k8s.io/utils/clock"

	"github.com/ferrite-os/ferrite/internal/pm"
	"github.com/ferrite-os/ferrite/internal/pm/state"
	"github.com/ferrite-os/ferrite/internal/service"
)

// IdleLoop periodically drives the engine through suspend cycles, the
// way a kernel's idle thread would on each CPU in turn.
type IdleLoop struct {
	logger   *slog.Logger
	engine   *pm.Engine
	machine  *Machine
	clk      clock.Clock
	interval time.Duration
	horizon  int32
	cpus     int
}

var _ service.Runner = (*IdleLoop)(nil)

// IdleLoopOpts holds the loop's construction options.
type IdleLoopOpts struct {
	logger   *slog.Logger
	clk      clock.Clock
	interval time.Duration
	horizon  int32
	cpus     int
}

// DefaultIdleLoopOpts returns a new IdleLoopOpts with defaults set.
func DefaultIdleLoopOpts() IdleLoopOpts {
	return IdleLoopOpts{
		logger:   slog.Default(),
		clk:      clock.RealClock{},
		interval: time.Second,
		horizon:  1_000,
		cpus:     1,
	}
}

// IdleLoopOptionFn is a function sets one more more options in IdleLoopOpts struct
type IdleLoopOptionFn func(*IdleLoopOpts)

// WithIdleLogger sets the logger for the idle loop.
func WithIdleLogger(logger *slog.Logger) IdleLoopOptionFn {
	return func(o *IdleLoopOpts) { o.logger = logger }
}

// WithIdleClock sets the clock pacing the loop.
func WithIdleClock(clk clock.Clock) IdleLoopOptionFn {
	return func(o *IdleLoopOpts) { o.clk = clk }
}

// WithIdleInterval sets the delay between idle entries.
func WithIdleInterval(d time.Duration) IdleLoopOptionFn {
	return func(o *IdleLoopOpts) { o.interval = d }
}

// WithIdleHorizon sets the tick horizon handed to the engine.
func WithIdleHorizon(ticks int32) IdleLoopOptionFn {
	return func(o *IdleLoopOpts) { o.horizon = ticks }
}

// WithIdleCPUs sets the number of simulated CPUs cycled through.
func WithIdleCPUs(cpus int) IdleLoopOptionFn {
	return func(o *IdleLoopOpts) { o.cpus = cpus }
}

// NewIdleLoop creates the idle-loop service.
func NewIdleLoop(engine *pm.Engine, machine *Machine, applyOpts ...IdleLoopOptionFn) *IdleLoop {
	opts := DefaultIdleLoopOpts()
	for _, apply := range applyOpts {
		apply(&opts)
	}

	return &IdleLoop{
		logger:   opts.logger.With("service", "idle-loop"),
		engine:   engine,
		machine:  machine,
		clk:      opts.clk,
		interval: opts.interval,
		horizon:  opts.horizon,
		cpus:     opts.cpus,
	}
}

// Name implements service.Service.
func (l *IdleLoop) Name() string {
	return "idle-loop"
}

// Run drives suspend cycles until ctx is done. CPUs take turns: the
// cycles are serialized the way a single shared idle path would be.
func (l *IdleLoop) Run(ctx context.Context) error {
	cpu := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.clk.After(l.interval):
		}

		l.machine.SetActiveCPU(cpu)

		// The architecture layer masks interrupts before the idle
		// thread considers suspension.
		key := l.machine.IRQLock()
		entered := l.engine.SystemSuspend(l.horizon)
		if entered == state.Active {
			// Nothing was entered; restore the mask ourselves since
			// no exit post-ops will.
			l.machine.IRQUnlock(key)
		}

		l.logger.Debug("idle cycle complete", "cpu", cpu, "state", entered)
		cpu = (cpu + 1) % l.cpus
	}
}

// Shutdown unblocks a sleeping machine so Run can observe ctx.
func (l *IdleLoop) Shutdown() error {
	l.machine.Stop()
	return nil
}
