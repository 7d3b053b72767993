// SPDX-FileCopyrightText: 2025 The Ferrite Authors
// SPDX-License-Identifier: Apache-2.0

// Package sim provides a host-side stand-in for the pieces of a real
// target the PM engine talks to: the architecture layer, the scheduler
// lock, the tick timer, the cycle counter and the SoC sleep primitives.
// Sleep is modelled as a wait on the wall clock (or a fake clock in
// tests); wake-up runs a simulated ISR before the sleep call returns,
// matching the hardware wake path.
package sim

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"k8s.io/utils/clock"

	"github.com/ferrite-os/ferrite/internal/pm/state"
)

// Machine simulates the platform under the engine. It implements
// pm.Arch, pm.SchedLocker, pm.TickTimer, pm.CycleCounter and pm.SoCHooks.
type Machine struct {
	logger *slog.Logger
	clk    clock.Clock

	cycleHz     uint32
	ticksPerSec uint32
	epoch       time.Time

	// irqDepth models the architectural interrupt mask nesting.
	irqDepth atomic.Int32

	// sched is the scheduler lock; the engine holds it across the
	// sleep window.
	sched sync.Mutex

	// activeCPU is the CPU the idle loop currently simulates.
	activeCPU atomic.Int32

	// expiryTicks is the tick deadline armed by the engine; -1 means
	// no deadline (sleep until an external wake).
	expiryTicks atomic.Int32

	// wakeISR runs in simulated interrupt context when sleep ends,
	// before StateSet returns. Wired to the engine's SystemResume.
	wakeISR func()

	wakeCh chan struct{}
	stopCh chan struct{}

	stopOnce sync.Once
}

// Opts holds the machine's construction options.
type Opts struct {
	logger      *slog.Logger
	clk         clock.Clock
	cycleHz     uint32
	ticksPerSec uint32
}

// DefaultOpts returns a new Opts with defaults set.
func DefaultOpts() Opts {
	return Opts{
		logger:      slog.Default(),
		clk:         clock.RealClock{},
		cycleHz:     32_000_000,
		ticksPerSec: 10_000,
	}
}

// OptionFn is a function sets one more more options in Opts struct
type OptionFn func(*Opts)

// WithLogger sets the logger for the machine.
func WithLogger(logger *slog.Logger) OptionFn {
	return func(o *Opts) { o.logger = logger }
}

// WithClock sets the clock; tests pass a fake.
func WithClock(clk clock.Clock) OptionFn {
	return func(o *Opts) { o.clk = clk }
}

// WithCycleHz sets the simulated cycle counter frequency.
func WithCycleHz(hz uint32) OptionFn {
	return func(o *Opts) { o.cycleHz = hz }
}

// WithTicksPerSecond sets the simulated kernel tick rate.
func WithTicksPerSecond(tps uint32) OptionFn {
	return func(o *Opts) { o.ticksPerSec = tps }
}

// NewMachine creates a simulated machine.
func NewMachine(applyOpts ...OptionFn) *Machine {
	opts := DefaultOpts()
	for _, apply := range applyOpts {
		apply(&opts)
	}

	m := &Machine{
		logger:      opts.logger.With("service", "machine"),
		clk:         opts.clk,
		cycleHz:     opts.cycleHz,
		ticksPerSec: opts.ticksPerSec,
		epoch:       opts.clk.Now(),
		wakeCh:      make(chan struct{}, 1),
		stopCh:      make(chan struct{}),
	}
	m.expiryTicks.Store(-1)
	return m
}

// SetWakeISR installs the handler run in simulated interrupt context on
// wake. Must be set before the first sleep.
func (m *Machine) SetWakeISR(isr func()) {
	m.wakeISR = isr
}

// SetActiveCPU pins subsequent engine calls to the given simulated CPU.
func (m *Machine) SetActiveCPU(cpu int) {
	m.activeCPU.Store(int32(cpu))
}

// Wake delivers an external wake event, as a wake-capable device would.
func (m *Machine) Wake() {
	select {
	case m.wakeCh <- struct{}{}:
	default:
	}
}

// Stop unblocks any in-flight sleep and prevents further ones from
// blocking. Used on simulator shutdown.
func (m *Machine) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// IRQLock masks interrupts, returning the previous nesting depth.
func (m *Machine) IRQLock() uint32 {
	return uint32(m.irqDepth.Add(1) - 1)
}

// IRQUnlock restores the interrupt mask to the given depth; unlocking
// with 0 fully unmasks.
func (m *Machine) IRQUnlock(key uint32) {
	m.irqDepth.Store(int32(key))
}

// IRQsMasked reports whether interrupts are currently masked.
func (m *Machine) IRQsMasked() bool {
	return m.irqDepth.Load() > 0
}

// CurrentCPU returns the simulated CPU id.
func (m *Machine) CurrentCPU() int {
	return int(m.activeCPU.Load())
}

// Lock takes the scheduler lock.
func (m *Machine) Lock() { m.sched.Lock() }

// Unlock releases the scheduler lock.
func (m *Machine) Unlock() { m.sched.Unlock() }

// SetExpiry arms the simulated tick.
func (m *Machine) SetExpiry(ticks int32, idle bool) {
	m.expiryTicks.Store(ticks)
}

// ExpiryTicks returns the armed tick deadline.
func (m *Machine) ExpiryTicks() int32 {
	return m.expiryTicks.Load()
}

// Cycles returns the 32-bit cycle counter, derived from elapsed clock
// time at the configured frequency. Wrap-around is the expected 32-bit
// modular behaviour.
func (m *Machine) Cycles() uint32 {
	elapsed := m.clk.Since(m.epoch)
	return uint32(elapsed.Nanoseconds() * int64(m.cycleHz) / int64(time.Second))
}

// StateSet models the SoC sleep primitive: block until the armed tick
// expires or an external wake arrives, then run the wake ISR before
// returning, the way hardware resumes inside interrupt context.
func (m *Machine) StateSet(info state.Info) {
	ticks := m.expiryTicks.Load()

	var timeout <-chan time.Time
	if ticks >= 0 {
		d := time.Duration(ticks) * time.Second / time.Duration(m.ticksPerSec)
		timeout = m.clk.After(d)
	}

	select {
	case <-timeout:
	case <-m.wakeCh:
	case <-m.stopCh:
	}

	if m.wakeISR != nil {
		m.wakeISR()
	}
}

// ExitPostOps unmasks interrupts, the default SoC exit behaviour.
func (m *Machine) ExitPostOps(info state.Info) {
	m.IRQUnlock(0)
}
