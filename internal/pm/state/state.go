// SPDX-FileCopyrightText: 2025 The Ferrite Authors
// SPDX-License-Identifier: Apache-2.0

// Package state defines the CPU power states a platform can enter and the
// descriptors the PM engine exchanges with the next-state policy. States
// are ordered: a larger value is a deeper sleep.
package state

import (
	"fmt"
)

// State identifies a CPU power state. The zero value is Active.
type State int

const (
	// Active means the CPU is running; no power operation is in flight.
	Active State = iota
	// RuntimeIdle is a light sleep entered from the idle thread only.
	// Peripheral devices stay powered.
	RuntimeIdle
	// SuspendToIdle stops the CPU clock; devices may be clock-gated.
	SuspendToIdle
	// Standby power-gates the CPU while retaining its register state.
	Standby
	// SuspendToRAM powers off the CPU and most of the SoC; RAM is retained.
	SuspendToRAM
	// SuspendToDisk saves the system image to non-volatile storage.
	SuspendToDisk
	// SoftOff powers the system down; wake requires a full boot.
	SoftOff
)

// Count is the number of defined power states, Active included.
const Count = int(SoftOff) + 1

var stateNames = map[State]string{
	Active:        "active",
	RuntimeIdle:   "runtime-idle",
	SuspendToIdle: "suspend-to-idle",
	Standby:       "standby",
	SuspendToRAM:  "suspend-to-ram",
	SuspendToDisk: "suspend-to-disk",
	SoftOff:       "soft-off",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Valid reports whether s is one of the defined power states.
func (s State) Valid() bool {
	return s >= Active && s < State(Count)
}

// Parse converts a state name as used in configuration files
// (e.g. "suspend-to-ram") back to its State.
func Parse(name string) (State, error) {
	for s, n := range stateNames {
		if n == name {
			return s, nil
		}
	}
	return Active, fmt.Errorf("unknown power state %q", name)
}

// Info describes one candidate CPU sleep state. Values are immutable once
// constructed; the engine and the policy pass them by value.
type Info struct {
	State State

	// SubstateID disambiguates SoC-specific variants of the same state.
	// Zero when the platform defines only one variant.
	SubstateID uint8

	// MinResidencyUs is the minimum time in microseconds the CPU must
	// stay in this state for entering it to save power. Always at least
	// ExitLatencyUs.
	MinResidencyUs uint32

	// ExitLatencyUs is the worst-case delay in microseconds between the
	// wake signal and the CPU executing at full speed again.
	ExitLatencyUs uint32
}

// Valid reports whether the descriptor names a defined state and its
// residency covers its exit latency.
func (i Info) Valid() bool {
	return i.State.Valid() && i.MinResidencyUs >= i.ExitLatencyUs
}
