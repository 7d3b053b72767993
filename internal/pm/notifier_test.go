// SPDX-FileCopyrightText: 2025 The Ferrite Authors
// SPDX-License-Identifier: Apache-2.0

package pm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferrite-os/ferrite/internal/pm/policy"
	"github.com/ferrite-os/ferrite/internal/pm/state"
)

func TestNotifierBroadcastOrder(t *testing.T) {
	m := &testMachine{}
	e := newTestEngine(t, m, &policy.Fixed{Info: state.Info{
		State:          state.RuntimeIdle,
		MinResidencyUs: 100,
		ExitLatencyUs:  10,
	}}, nil)

	var order []string
	first := &Notifier{StateEntry: func(s state.State) { order = append(order, "first") }}
	second := &Notifier{StateEntry: func(s state.State) { order = append(order, "second") }}
	e.NotifierRegister(first)
	e.NotifierRegister(second)

	e.SystemSuspend(policy.TicksForever)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestNotifierUnregisterStopsDelivery(t *testing.T) {
	m := &testMachine{}
	e := newTestEngine(t, m, &policy.Fixed{Info: state.Info{
		State:          state.RuntimeIdle,
		MinResidencyUs: 100,
		ExitLatencyUs:  10,
	}}, nil)

	entries := 0
	n := &Notifier{StateEntry: func(s state.State) { entries++ }}
	e.NotifierRegister(n)

	e.SystemSuspend(policy.TicksForever)
	require.Equal(t, 1, entries)

	require.NoError(t, e.NotifierUnregister(n))
	e.SystemSuspend(policy.TicksForever)
	assert.Equal(t, 1, entries)
}

func TestNotifierUnregisterUnknown(t *testing.T) {
	m := &testMachine{}
	e := newTestEngine(t, m, &policy.Fixed{}, nil)

	err := e.NotifierUnregister(&Notifier{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNotifierNilCallbacksSkipped(t *testing.T) {
	m := &testMachine{}
	e := newTestEngine(t, m, &policy.Fixed{Info: state.Info{
		State:          state.RuntimeIdle,
		MinResidencyUs: 100,
		ExitLatencyUs:  10,
	}}, nil)

	exits := 0
	e.NotifierRegister(&Notifier{})
	e.NotifierRegister(&Notifier{StateExit: func(s state.State) { exits++ }})

	assert.NotPanics(t, func() { e.SystemSuspend(policy.TicksForever) })
	assert.Equal(t, 1, exits)
}
