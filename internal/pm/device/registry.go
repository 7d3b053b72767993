// SPDX-FileCopyrightText: 2025 The Ferrite Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"errors"
	"log/slog"
)

// Registry holds the system's devices in registration order. Registration
// order is the dependency order: a device must be registered after every
// device it depends on. The suspension scheduler leans on that contract —
// suspending in reverse registration order means no device is suspended
// while a dependent is still active, and resuming in reverse suspension
// order brings dependencies back before their dependents.
type Registry struct {
	logger  *slog.Logger
	devices []*Device

	// slots[:numSuspended] names the devices suspended during the
	// current cycle, in suspension order. Drained in reverse by
	// ResumeAll before the cycle completes.
	slots        []*Device
	numSuspended int
}

// RegistryOption configures a Registry at construction.
type RegistryOption func(*Registry)

// WithLogger sets the logger for the registry.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty device registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "device-registry")
	return r
}

// Register appends a device. All registration happens at system bring-up,
// before the idle path can run; the registry is read-only afterwards.
func (r *Registry) Register(devs ...*Device) {
	r.devices = append(r.devices, devs...)
	r.slots = make([]*Device, len(r.devices))
}

// Devices returns the registered devices in registration order.
func (r *Registry) Devices() []*Device {
	return r.devices
}

// NumSuspended returns how many devices the current cycle has suspended.
func (r *Registry) NumSuspended() int {
	return r.numSuspended
}

// SuspendAll walks the devices in reverse registration order and drives
// each to SUSPENDED. Busy devices and armed wake sources are left active.
// Devices that do not implement PM, do not support the transition or are
// already suspended are skipped. The first real failure stops the walk
// and is returned; the caller is expected to roll back with ResumeAll.
func (r *Registry) SuspendAll() error {
	r.numSuspended = 0

	for i := len(r.devices) - 1; i >= 0; i-- {
		dev := r.devices[i]

		if dev.IsBusy() || dev.WakeupIsEnabled() {
			continue
		}

		err := dev.StateSet(StateSuspended)
		if errors.Is(err, ErrNotImplemented) || errors.Is(err, ErrUnsupported) || errors.Is(err, ErrAlready) {
			continue
		}
		if err != nil {
			r.logger.Error("device did not enter state",
				"device", dev.Name(),
				"state", StateString(StateSuspended),
				"error", err)
			return err
		}

		r.slots[r.numSuspended] = dev
		r.numSuspended++
	}

	return nil
}

// ResumeAll returns every device suspended by the last SuspendAll to
// ACTIVE, in reverse suspension order. Resume errors are ignored: a
// device that fails to come back cannot abort the wake path.
func (r *Registry) ResumeAll() {
	for i := r.numSuspended - 1; i >= 0; i-- {
		if err := r.slots[i].StateSet(StateActive); err != nil {
			r.logger.Warn("device did not resume",
				"device", r.slots[i].Name(),
				"error", err)
		}
		r.slots[i] = nil
	}
	r.numSuspended = 0
}

// IsAnyBusy reports whether any registered PM-capable device is busy.
func (r *Registry) IsAnyBusy() bool {
	for _, dev := range r.devices {
		if dev.IsBusy() {
			return true
		}
	}
	return false
}
