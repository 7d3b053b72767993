// SPDX-FileCopyrightText: 2025 The Ferrite Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateOrdering(t *testing.T) {
	// Deeper sleep states compare larger; the suspension scheduler and
	// the policy both rely on this.
	assert.Less(t, Active, RuntimeIdle)
	assert.Less(t, RuntimeIdle, SuspendToIdle)
	assert.Less(t, SuspendToIdle, Standby)
	assert.Less(t, Standby, SuspendToRAM)
	assert.Less(t, SuspendToRAM, SuspendToDisk)
	assert.Less(t, SuspendToDisk, SoftOff)
}

func TestParseRoundTrip(t *testing.T) {
	for s := Active; s < State(Count); s++ {
		parsed, err := Parse(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	_, err := Parse("hibernate")
	assert.Error(t, err)
}

func TestValid(t *testing.T) {
	assert.True(t, SoftOff.Valid())
	assert.False(t, State(-1).Valid())
	assert.False(t, State(Count).Valid())

	assert.True(t, Info{State: Standby, MinResidencyUs: 100, ExitLatencyUs: 100}.Valid())
	assert.False(t, Info{State: Standby, MinResidencyUs: 99, ExitLatencyUs: 100}.Valid())
}

func TestTableFromSpecs(t *testing.T) {
	table, err := TableFromSpecs([]Spec{
		{State: "runtime-idle", MinResidencyUs: 500, ExitLatencyUs: 50},
		{State: "suspend-to-ram", SubstateID: 2, MinResidencyUs: 50_000, ExitLatencyUs: 2_000},
	})
	require.NoError(t, err)
	require.Len(t, table, 2)
	assert.Equal(t, SuspendToRAM, table[1].State)
	assert.Equal(t, uint8(2), table[1].SubstateID)
	assert.Equal(t, SuspendToRAM, table.Deepest().State)
}

func TestTableFromSpecsRejectsBadTables(t *testing.T) {
	tests := []struct {
		name  string
		specs []Spec
	}{
		{
			name:  "unknown state",
			specs: []Spec{{State: "hibernate", MinResidencyUs: 1, ExitLatencyUs: 1}},
		},
		{
			name:  "active listed",
			specs: []Spec{{State: "active"}},
		},
		{
			name: "out of order",
			specs: []Spec{
				{State: "suspend-to-ram", MinResidencyUs: 50_000, ExitLatencyUs: 2_000},
				{State: "runtime-idle", MinResidencyUs: 500, ExitLatencyUs: 50},
			},
		},
		{
			name: "duplicate state",
			specs: []Spec{
				{State: "standby", MinResidencyUs: 1_000, ExitLatencyUs: 100},
				{State: "standby", MinResidencyUs: 2_000, ExitLatencyUs: 100},
			},
		},
		{
			name:  "residency below exit latency",
			specs: []Spec{{State: "standby", MinResidencyUs: 50, ExitLatencyUs: 100}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := TableFromSpecs(tc.specs)
			assert.Error(t, err)
		})
	}
}

func TestTableFromYAML(t *testing.T) {
	table, err := TableFromYAML([]byte(`
- state: runtime-idle
  min-residency-us: 500
  exit-latency-us: 50
- state: standby
  substate-id: 1
  min-residency-us: 10000
  exit-latency-us: 1000
`))
	require.NoError(t, err)
	require.Len(t, table, 2)
	assert.Equal(t, Standby, table[1].State)
	assert.Equal(t, uint8(1), table[1].SubstateID)
}

func TestEmptyTableDeepest(t *testing.T) {
	assert.Equal(t, Active, Table{}.Deepest().State)
}
