// SPDX-FileCopyrightText: 2025 The Ferrite Authors
// SPDX-License-Identifier: Apache-2.0

package sim

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/ferrite-os/ferrite/internal/pm/device"
)

// ErrSimulatedFailure is what a simulated device returns when told to
// refuse its next suspend.
var ErrSimulatedFailure = errors.New("simulated transition failure")

// SimDevice is a peripheral whose power transitions only count and log.
// Tests and the simulator use it to watch suspension ordering and to
// inject transition failures.
type SimDevice struct {
	logger *slog.Logger
	dev    *device.Device

	suspends    atomic.Uint32
	resumes     atomic.Uint32
	failSuspend atomic.Bool
}

// NewSimDevice creates a simulated device and its PM control block.
func NewSimDevice(logger *slog.Logger, name string, wakeCapable bool) *SimDevice {
	sd := &SimDevice{
		logger: logger.With("device", name),
	}

	var opts []device.Option
	if wakeCapable {
		opts = append(opts, device.WithWakeupCapability())
	}
	sd.dev = device.New(name, sd.action, opts...)
	return sd
}

func (sd *SimDevice) action(dev *device.Device, action device.Action) error {
	switch action {
	case device.ActionSuspend:
		if sd.failSuspend.CompareAndSwap(true, false) {
			return ErrSimulatedFailure
		}
		sd.suspends.Add(1)
		sd.logger.Debug("suspended")
	case device.ActionResume:
		sd.resumes.Add(1)
		sd.logger.Debug("resumed")
	case device.ActionTurnOff:
		sd.logger.Debug("turned off")
	}
	return nil
}

// Device returns the underlying PM control block.
func (sd *SimDevice) Device() *device.Device {
	return sd.dev
}

// Suspends returns how many times the device was suspended.
func (sd *SimDevice) Suspends() uint32 {
	return sd.suspends.Load()
}

// Resumes returns how many times the device was resumed.
func (sd *SimDevice) Resumes() uint32 {
	return sd.resumes.Load()
}

// FailNextSuspend makes the next suspend action fail once.
func (sd *SimDevice) FailNextSuspend() {
	sd.failSuspend.Store(true)
}
