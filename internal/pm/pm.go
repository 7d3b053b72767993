// SPDX-FileCopyrightText: 2025 The Ferrite Authors
// SPDX-License-Identifier: Apache-2.0

// Package pm implements the CPU suspension engine: the orchestrator that
// sits between the scheduler's idle path, the tick timer, the device
// layer and the SoC sleep primitive. It owns the suspend/resume ordering
// contract, the transition notifier registry and the per-CPU residency
// statistics.
package pm

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ferrite-os/ferrite/internal/pm/device"
	"github.com/ferrite-os/ferrite/internal/pm/policy"
	"github.com/ferrite-os/ferrite/internal/pm/state"
)

// TicksForever marks a wake-up horizon with no scheduled deadline.
const TicksForever = policy.TicksForever

// Arch is the architecture layer the engine runs on: interrupt masking
// and CPU identification.
type Arch interface {
	// IRQLock masks interrupts on the current CPU and returns a key for
	// IRQUnlock.
	IRQLock() uint32
	// IRQUnlock restores the interrupt state captured by IRQLock.
	IRQUnlock(key uint32)
	// CurrentCPU returns the id of the executing CPU.
	CurrentCPU() int
}

// SchedLocker prevents the scheduler from migrating execution off the
// current context while held.
type SchedLocker interface {
	Lock()
	Unlock()
}

// TickTimer programs the next tick interrupt.
type TickTimer interface {
	// SetExpiry arms the tick to fire after the given number of ticks.
	// idle hints that the CPU is entering an idle period.
	SetExpiry(ticks int32, idle bool)
}

// CycleCounter is a monotonic 32-bit cycle source. Wrapping is expected;
// residency deltas use modular subtraction.
type CycleCounter interface {
	Cycles() uint32
}

// SoCHooks are the platform sleep primitives. On real targets these are
// supplied by the silicon port; the engine falls back to safe defaults
// when none are configured.
type SoCHooks interface {
	// StateSet halts the CPU in the given state until a wake interrupt.
	// It runs with interrupts masked and the scheduler locked. It may
	// unmask interrupts as part of the sleep instruction, and on some
	// architectures it does not return until after the wake ISR ran.
	StateSet(info state.Info)
	// ExitPostOps performs SoC bookkeeping after sleep exit. The kernel
	// expects interrupts to be unmasked when it returns.
	ExitPostOps(info state.Info)
}

// Engine is the per-machine CPU suspension orchestrator.
type Engine struct {
	logger *slog.Logger

	arch    Arch
	sched   SchedLocker
	timer   TickTimer
	policy  policy.Policy
	hooks   SoCHooks
	devices *device.Registry

	ticksPerSec uint32
	stats       *Stats

	notifiers notifierRegistry

	// current is the in-flight or just-completed transition. Written on
	// the idle path; snapshotted by NextStateGet.
	stateMu sync.Mutex
	current state.Info

	// postOpsPending is set when entry into the SoC hook has begun and
	// cleared by the first SystemResume, which may run inside the wake
	// ISR. Single producer (idle path), single consumer (ISR or the
	// tail of SystemSuspend).
	postOpsPending atomic.Bool
}

// Opts holds the engine's construction options.
type Opts struct {
	logger       *slog.Logger
	arch         Arch
	sched        SchedLocker
	timer        TickTimer
	cycles       CycleCounter
	policy       policy.Policy
	hooks        SoCHooks
	devices      *device.Registry
	cpus         int
	ticksPerSec  uint32
	statsEnabled bool
}

// DefaultOpts returns a new Opts with defaults set. The defaults run the
// engine standalone: no-op arch and scheduler layers, a policy that
// always stays active, one CPU and statistics enabled.
func DefaultOpts() Opts {
	return Opts{
		logger:       slog.Default(),
		arch:         noopArch{},
		sched:        &noopSched{},
		timer:        noopTimer{},
		cycles:       zeroCycles{},
		policy:       &policy.Fixed{},
		cpus:         1,
		ticksPerSec:  10_000,
		statsEnabled: true,
	}
}

// OptionFn is a function sets one more more options in Opts struct
type OptionFn func(*Opts)

// WithLogger sets the logger for the engine.
func WithLogger(logger *slog.Logger) OptionFn {
	return func(o *Opts) { o.logger = logger }
}

// WithArch sets the architecture layer.
func WithArch(arch Arch) OptionFn {
	return func(o *Opts) { o.arch = arch }
}

// WithSchedLocker sets the scheduler lock.
func WithSchedLocker(sched SchedLocker) OptionFn {
	return func(o *Opts) { o.sched = sched }
}

// WithTickTimer sets the tick timer.
func WithTickTimer(timer TickTimer) OptionFn {
	return func(o *Opts) { o.timer = timer }
}

// WithCycleCounter sets the cycle source used by the statistics recorder.
func WithCycleCounter(cycles CycleCounter) OptionFn {
	return func(o *Opts) { o.cycles = cycles }
}

// WithPolicy sets the next-state policy.
func WithPolicy(p policy.Policy) OptionFn {
	return func(o *Opts) { o.policy = p }
}

// WithSoCHooks sets the platform sleep primitives.
func WithSoCHooks(hooks SoCHooks) OptionFn {
	return func(o *Opts) { o.hooks = hooks }
}

// WithDeviceRegistry sets the device registry suspended around deep
// sleep cycles. Without one, device suspension is skipped entirely.
func WithDeviceRegistry(devices *device.Registry) OptionFn {
	return func(o *Opts) { o.devices = devices }
}

// WithCPUs sets the number of CPUs tracked by the statistics recorder.
func WithCPUs(cpus int) OptionFn {
	return func(o *Opts) { o.cpus = cpus }
}

// WithTicksPerSecond sets the kernel tick rate used for latency
// conversions.
func WithTicksPerSecond(tps uint32) OptionFn {
	return func(o *Opts) { o.ticksPerSec = tps }
}

// WithStatsEnabled enables or disables the residency statistics
// recorder. Disabled, all recording is a no-op.
func WithStatsEnabled(enabled bool) OptionFn {
	return func(o *Opts) { o.statsEnabled = enabled }
}

// NewEngine creates a CPU suspension engine.
func NewEngine(applyOpts ...OptionFn) *Engine {
	opts := DefaultOpts()
	for _, apply := range applyOpts {
		apply(&opts)
	}

	e := &Engine{
		logger:      opts.logger.With("service", "pm"),
		arch:        opts.arch,
		sched:       opts.sched,
		timer:       opts.timer,
		policy:      opts.policy,
		hooks:       opts.hooks,
		devices:     opts.devices,
		ticksPerSec: opts.ticksPerSec,
		stats:       newStats(opts.statsEnabled, opts.cpus, opts.cycles),
	}
	if e.hooks == nil {
		e.hooks = &defaultHooks{logger: e.logger, arch: e.arch}
	}
	return e
}

// Name implements service.Service.
func (e *Engine) Name() string {
	return "pm"
}

// Stats returns the engine's residency statistics recorder.
func (e *Engine) Stats() *Stats {
	return e.stats
}

func (e *Engine) setCurrent(info state.Info) {
	e.stateMu.Lock()
	e.current = info
	e.stateMu.Unlock()
}

func (e *Engine) currentInfo() state.Info {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.current
}

// defaultHooks stand in when no SoC port is wired. StateSet not being
// overridden is a misconfiguration on a real target, so it is logged
// once; the exit path unmasks interrupts, which is what the kernel
// expects after post-ops.
type defaultHooks struct {
	logger *slog.Logger
	arch   Arch
	warn   sync.Once
}

func (h *defaultHooks) StateSet(info state.Info) {
	h.warn.Do(func() {
		h.logger.Warn("no SoC power state hook configured; sleep is a no-op")
	})
}

func (h *defaultHooks) ExitPostOps(info state.Info) {
	h.arch.IRQUnlock(0)
}

// noopArch is the standalone arch layer: a single CPU with no interrupt
// controller.
type noopArch struct{}

func (noopArch) IRQLock() uint32      { return 0 }
func (noopArch) IRQUnlock(key uint32) {}
func (noopArch) CurrentCPU() int      { return 0 }

type noopSched struct{ mu sync.Mutex }

func (s *noopSched) Lock()   { s.mu.Lock() }
func (s *noopSched) Unlock() { s.mu.Unlock() }

type noopTimer struct{}

func (noopTimer) SetExpiry(ticks int32, idle bool) {}

type zeroCycles struct{}

func (zeroCycles) Cycles() uint32 { return 0 }
