// SPDX-FileCopyrightText: 2025 The Ferrite Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferrite-os/ferrite/internal/pm/state"
)

func testTable(t *testing.T) state.Table {
	t.Helper()
	table, err := state.TableFromSpecs([]state.Spec{
		{State: "runtime-idle", MinResidencyUs: 500, ExitLatencyUs: 50},
		{State: "suspend-to-idle", MinResidencyUs: 5_000, ExitLatencyUs: 500},
		{State: "suspend-to-ram", MinResidencyUs: 50_000, ExitLatencyUs: 2_000},
	})
	require.NoError(t, err)
	return table
}

func TestResidencyPicksDeepestFittingState(t *testing.T) {
	p := NewResidency(testTable(t), 10_000)

	tests := []struct {
		name  string
		ticks int32
		want  state.State
	}{
		// 10k ticks/s: one tick is 100us.
		{name: "forever sleeps deepest", ticks: TicksForever, want: state.SuspendToRAM},
		{name: "long horizon", ticks: 1_000, want: state.SuspendToRAM},
		{name: "ram residency boundary", ticks: 500, want: state.SuspendToRAM},
		{name: "medium horizon", ticks: 499, want: state.SuspendToIdle},
		{name: "short horizon", ticks: 49, want: state.RuntimeIdle},
		{name: "idle residency boundary", ticks: 5, want: state.RuntimeIdle},
		{name: "too short for any state", ticks: 4, want: state.Active},
		{name: "zero horizon", ticks: 0, want: state.Active},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, p.NextState(tc.ticks).State)
		})
	}
}

func TestResidencyEmptyTable(t *testing.T) {
	p := NewResidency(nil, 10_000)
	assert.Equal(t, state.Active, p.NextState(TicksForever).State)
}

func TestResidencyReturnsFullDescriptor(t *testing.T) {
	p := NewResidency(testTable(t), 10_000)

	info := p.NextState(TicksForever)
	assert.Equal(t, uint32(50_000), info.MinResidencyUs)
	assert.Equal(t, uint32(2_000), info.ExitLatencyUs)
}

func TestFixed(t *testing.T) {
	p := &Fixed{Info: state.Info{State: state.Standby}}
	assert.Equal(t, state.Standby, p.NextState(0).State)
	assert.Equal(t, state.Standby, p.NextState(TicksForever).State)
}
