// SPDX-FileCopyrightText: 2025 The Ferrite Authors
// SPDX-License-Identifier: Apache-2.0

// Package device implements per-device power management: the device PM
// control block with its ACTIVE/SUSPENDED/OFF state machine, and the
// registry that suspends and resumes whole device sets around a CPU
// sleep cycle.
package device

import (
	"errors"
	"sync/atomic"
)

// State is the power state of a single device.
type State int

const (
	StateActive State = iota
	StateSuspended
	StateOff
)

// StateString returns the printable name of a device state. Unknown
// values map to the empty string.
func StateString(s State) string {
	switch s {
	case StateActive:
		return "active"
	case StateSuspended:
		return "suspended"
	case StateOff:
		return "off"
	default:
		return ""
	}
}

func (s State) String() string { return StateString(s) }

// Action is the transition request handed to a device's action callback.
type Action int

const (
	ActionSuspend Action = iota
	ActionResume
	ActionTurnOff
)

// ActionFunc performs a power transition on a device. It runs with the
// device's state not yet updated; returning an error leaves the stored
// state untouched. The callback may itself block or suspend.
type ActionFunc func(dev *Device, action Action) error

// Transition results. Callers compare with errors.Is; the first three are
// benign from the suspension scheduler's point of view.
var (
	// ErrNotImplemented: the device does not participate in power
	// management (it has no action callback).
	ErrNotImplemented = errors.New("power management not implemented")
	// ErrUnsupported: the device cannot make the requested transition
	// from its current state.
	ErrUnsupported = errors.New("transition not supported")
	// ErrAlready: the device is already at the requested state.
	ErrAlready = errors.New("already at state")
	// ErrBusy: a transition is already in progress on the device.
	ErrBusy = errors.New("transition in progress")
)

// Device flag bits. All flag mutations are single-word atomics so ISRs
// and threads can share the control block without extra locking.
const (
	flagBusy uint32 = 1 << iota
	flagWakeupCapable
	flagWakeupEnabled
	flagTransitioning
)

// Device is a registered device together with its PM control block.
type Device struct {
	name     string
	actionCB ActionFunc

	// state is written only under a claimed transition (or before the
	// device is visible to the registry); reads from other contexts see
	// the last completed transition.
	state State

	flags atomic.Uint32
}

// Option configures a Device at construction.
type Option func(*Device)

// WithWakeupCapability marks the device as able to wake the system from
// sleep. Whether wake is armed is controlled separately via WakeupEnable.
func WithWakeupCapability() Option {
	return func(d *Device) {
		d.flags.Or(flagWakeupCapable)
	}
}

// New creates a device control block. A nil action callback produces a
// device that does not participate in power management: transitions
// return ErrNotImplemented and the busy and wake-up flag operations are
// no-ops. TransitioningSet and TransitioningClear still act on the flag.
func New(name string, action ActionFunc, opts ...Option) *Device {
	d := &Device{
		name:     name,
		actionCB: action,
		state:    StateActive,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns the device name.
func (d *Device) Name() string { return d.name }

// StateSet drives the device to target. The action callback decides the
// outcome: on error the stored state is unchanged and the error is
// propagated as-is; on success the new state is recorded.
func (d *Device) StateSet(target State) error {
	if d.actionCB == nil {
		return ErrNotImplemented
	}

	if d.flags.Load()&flagTransitioning != 0 {
		return ErrBusy
	}

	var action Action
	switch target {
	case StateSuspended:
		if d.state == StateSuspended {
			return ErrAlready
		}
		if d.state == StateOff {
			return ErrUnsupported
		}
		action = ActionSuspend
	case StateActive:
		if d.state == StateActive {
			return ErrAlready
		}
		action = ActionResume
	case StateOff:
		if d.state == StateOff {
			return ErrAlready
		}
		action = ActionTurnOff
	default:
		return ErrUnsupported
	}

	if err := d.actionCB(d, action); err != nil {
		return err
	}

	d.state = target
	return nil
}

// StateGet returns the device's current power state.
func (d *Device) StateGet() (State, error) {
	if d.actionCB == nil {
		return StateActive, ErrNotImplemented
	}
	return d.state, nil
}

// TransitioningSet claims the transition flag. It returns false when a
// transition is already in progress. The flag is the caller's to manage
// around StateSet when the action callback may itself suspend.
func (d *Device) TransitioningSet() bool {
	for {
		old := d.flags.Load()
		if old&flagTransitioning != 0 {
			return false
		}
		if d.flags.CompareAndSwap(old, old|flagTransitioning) {
			return true
		}
	}
}

// TransitioningClear releases the transition flag.
func (d *Device) TransitioningClear() {
	d.flags.And(^flagTransitioning)
}

// BusySet marks the device as in the middle of a hardware transaction
// that must not be interrupted by suspension.
func (d *Device) BusySet() {
	if d.actionCB == nil {
		return
	}
	d.flags.Or(flagBusy)
}

// BusyClear clears the busy marker.
func (d *Device) BusyClear() {
	if d.actionCB == nil {
		return
	}
	d.flags.And(^flagBusy)
}

// IsBusy reports whether the device is marked busy.
func (d *Device) IsBusy() bool {
	if d.actionCB == nil {
		return false
	}
	return d.flags.Load()&flagBusy != 0
}

// WakeupEnable arms or disarms the device as a wake source. It fails when
// the device is not wake capable, or when the flags word changed
// concurrently (the caller may retry).
func (d *Device) WakeupEnable(enable bool) bool {
	if d.actionCB == nil {
		return false
	}

	flags := d.flags.Load()
	if flags&flagWakeupCapable == 0 {
		return false
	}

	newFlags := flags
	if enable {
		newFlags |= flagWakeupEnabled
	} else {
		newFlags &^= flagWakeupEnabled
	}

	return d.flags.CompareAndSwap(flags, newFlags)
}

// WakeupIsEnabled reports whether the device is armed as a wake source.
func (d *Device) WakeupIsEnabled() bool {
	if d.actionCB == nil {
		return false
	}
	return d.flags.Load()&flagWakeupEnabled != 0
}

// WakeupIsCapable reports whether the device can act as a wake source.
func (d *Device) WakeupIsCapable() bool {
	if d.actionCB == nil {
		return false
	}
	return d.flags.Load()&flagWakeupCapable != 0
}
