// SPDX-FileCopyrightText: 2025 The Ferrite Authors
// SPDX-License-Identifier: Apache-2.0

// Package policy selects the power state the CPU should enter for a given
// wake-up horizon. The engine treats the policy as an opaque decision
// function; this package carries the interface and the stock
// residency-based implementation.
package policy

import (
	"log/slog"

	"github.com/ferrite-os/ferrite/internal/pm/state"
)

// TicksForever is the wake-up horizon used when no kernel timeout is
// scheduled: the CPU may sleep until an external event wakes it.
const TicksForever int32 = -1

// Policy decides the next power state for the CPU given the number of
// ticks until the next scheduled kernel deadline. Returning an Active
// descriptor means no power operation should be performed. NextState
// runs on the idle path with interrupts masked and must not block.
type Policy interface {
	NextState(ticks int32) state.Info
}

// Residency picks the deepest state whose minimum residency fits within
// the wake-up horizon.
type Residency struct {
	logger      *slog.Logger
	table       state.Table
	ticksPerSec uint32
}

var _ Policy = (*Residency)(nil)

// ResidencyOption configures a Residency policy.
type ResidencyOption func(*Residency)

// WithLogger sets the logger for the policy.
func WithLogger(logger *slog.Logger) ResidencyOption {
	return func(p *Residency) {
		p.logger = logger
	}
}

// NewResidency creates a residency policy over the platform's state
// table. The table must be ordered shallow to deep (state.TableFromSpecs
// guarantees this).
func NewResidency(table state.Table, ticksPerSec uint32, opts ...ResidencyOption) *Residency {
	p := &Residency{
		logger:      slog.Default(),
		table:       table,
		ticksPerSec: ticksPerSec,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "residency-policy")
	return p
}

// NextState returns the deepest table entry whose minimum residency is
// covered by the horizon, or an Active descriptor when none fits.
func (p *Residency) NextState(ticks int32) state.Info {
	for i := len(p.table) - 1; i >= 0; i-- {
		info := p.table[i]
		if ticks == TicksForever || ticks >= usToTicksCeil(p.ticksPerSec, info.MinResidencyUs) {
			p.logger.Debug("selected state", "state", info.State, "ticks", ticks)
			return info
		}
	}
	return state.Info{State: state.Active}
}

// Fixed always returns the same descriptor. Useful for forced testing
// setups and platforms with a single sleep state.
type Fixed struct {
	Info state.Info
}

var _ Policy = (*Fixed)(nil)

func (p *Fixed) NextState(ticks int32) state.Info {
	return p.Info
}

// usToTicksCeil converts microseconds to ticks, rounding up so a sleep
// never undershoots the requested residency.
func usToTicksCeil(ticksPerSec uint32, us uint32) int32 {
	return int32((uint64(us)*uint64(ticksPerSec) + 999_999) / 1_000_000)
}
