// SPDX-FileCopyrightText: 2025 The Ferrite Authors
// SPDX-License-Identifier: Apache-2.0

package pm

import (
	"fmt"

	"github.com/ferrite-os/ferrite/internal/pm/state"
)

// SystemSuspend is the idle-path entry point. It asks the policy for a
// target state given the ticks until the next kernel deadline, arms the
// tick so the CPU is back up in time, suspends devices for deep states,
// and drives the SoC sleep primitive between the entry and exit
// notifications. It returns the state that was entered; Active means no
// power operation took place.
//
// It must be called with interrupts masked by the architecture layer.
// On architectures where the SoC hook returns only after the wake ISR
// ran, the exit work has already been done by SystemResume and the tail
// of this function finds postOpsPending cleared.
func (e *Engine) SystemSuspend(ticks int32) state.State {
	info := e.policy.NextState(ticks)
	e.setCurrent(info)
	if info.State == state.Active {
		e.logger.Debug("no power operations done")
		return state.Active
	}
	e.postOpsPending.Store(true)

	if ticks != TicksForever {
		// The policy must hand out descriptors whose residency covers
		// the exit latency; anything else breaks the tick arithmetic.
		if info.MinResidencyUs < info.ExitLatencyUs {
			panic(fmt.Sprintf("pm: %s: min residency %dus below exit latency %dus",
				info.State, info.MinResidencyUs, info.ExitLatencyUs))
		}

		// Fire a little early so the CPU is fully awake by the time the
		// next kernel deadline arrives.
		e.timer.SetExpiry(ticks-usToTicksCeil(e.ticksPerSec, info.ExitLatencyUs), true)
	}

	resumeDevices := false
	if e.devices != nil && info.State != state.RuntimeIdle {
		if err := e.SuspendDevices(); err != nil {
			return e.handleDeviceAbort(err)
		}
		resumeDevices = true
	}

	// Interrupts are masked here, but the SoC hook is expected to unmask
	// them while sleeping. The scheduler lock keeps this CPU on the
	// current context until the exit notification has run; it is
	// released only after SystemResume below.
	e.sched.Lock()

	cpu := e.arch.CurrentCPU()
	e.stats.startTimer(cpu)
	e.notify(true)
	e.hooks.StateSet(info)
	e.stats.stopTimer(cpu)

	// Wake-up sequence starts here.
	if resumeDevices {
		e.ResumeDevices()
	}
	e.stats.update(cpu, info.State)
	e.SystemResume()
	e.sched.Unlock()

	return info.State
}

// SystemResume completes the exit work a suspension still owes: SoC
// post-ops and the exit notification. The wake ISR must call it on
// architectures where sleep exit continues in interrupt context before
// the scheduler regains control; on the others it runs at the tail of
// SystemSuspend. Either way it runs exactly once per suspension —
// a second call before the next suspend is a no-op.
func (e *Engine) SystemResume() {
	if e.postOpsPending.CompareAndSwap(true, false) {
		info := e.currentInfo()
		e.hooks.ExitPostOps(info)
		e.notify(false)
	}
}

// PowerStateForce enters the given state immediately, bypassing the
// policy. Forcing Active is a no-op. The descriptor must be valid.
func (e *Engine) PowerStateForce(info state.Info) {
	if !info.State.Valid() {
		panic(fmt.Sprintf("pm: invalid power state %d", int(info.State)))
	}
	if info.State == state.Active {
		return
	}

	// The matching unmask happens in exit post-ops, not here.
	_ = e.arch.IRQLock()

	e.setCurrent(info)
	e.postOpsPending.Store(true)
	e.notify(true)

	e.sched.Lock()
	cpu := e.arch.CurrentCPU()
	e.stats.startTimer(cpu)
	e.hooks.StateSet(info)
	e.stats.stopTimer(cpu)

	e.SystemResume()
	e.sched.Unlock()
}

// NextStateGet returns a snapshot of the current transition descriptor.
func (e *Engine) NextStateGet() state.Info {
	return e.currentInfo()
}

// SuspendDevices suspends all suspendable devices, deepest dependents
// first. See device.Registry.SuspendAll for the skip and error rules.
func (e *Engine) SuspendDevices() error {
	if e.devices == nil {
		return nil
	}
	return e.devices.SuspendAll()
}

// ResumeDevices resumes the devices suspended by the current cycle.
func (e *Engine) ResumeDevices() {
	if e.devices != nil {
		e.devices.ResumeAll()
	}
}

// handleDeviceAbort rolls back a suspend cycle after a device refused
// suspension: devices already suspended are brought back and the cycle
// is accounted as never having left Active.
func (e *Engine) handleDeviceAbort(err error) state.State {
	e.logger.Error("some devices did not enter suspend state", "error", err)
	e.ResumeDevices()

	// The SoC hook was never reached, so no exit work is owed.
	e.postOpsPending.Store(false)

	e.stateMu.Lock()
	e.current.State = state.Active
	e.stateMu.Unlock()
	return state.Active
}

// usToTicksCeil converts microseconds to ticks, rounding up.
func usToTicksCeil(ticksPerSec uint32, us uint32) int32 {
	return int32((uint64(us)*uint64(ticksPerSec) + 999_999) / 1_000_000)
}
