// SPDX-FileCopyrightText: 2025 The Ferrite Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateSetTransitions(t *testing.T) {
	tests := []struct {
		name       string
		from       State
		to         State
		wantAction Action
		wantErr    error
	}{
		{name: "active to suspended", from: StateActive, to: StateSuspended, wantAction: ActionSuspend},
		{name: "suspended to active", from: StateSuspended, to: StateActive, wantAction: ActionResume},
		{name: "active to off", from: StateActive, to: StateOff, wantAction: ActionTurnOff},
		{name: "suspended to off", from: StateSuspended, to: StateOff, wantAction: ActionTurnOff},
		{name: "off to suspended rejected", from: StateOff, to: StateSuspended, wantErr: ErrUnsupported},
		{name: "already active", from: StateActive, to: StateActive, wantErr: ErrAlready},
		{name: "already suspended", from: StateSuspended, to: StateSuspended, wantErr: ErrAlready},
		{name: "already off", from: StateOff, to: StateOff, wantErr: ErrAlready},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got []Action
			d := New("dev", func(dev *Device, a Action) error {
				got = append(got, a)
				return nil
			})
			d.state = tc.from

			err := d.StateSet(tc.to)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				// Failed transitions never reach the callback and
				// never move the stored state.
				assert.Empty(t, got)
				st, _ := d.StateGet()
				assert.Equal(t, tc.from, st)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, []Action{tc.wantAction}, got)
			st, err := d.StateGet()
			require.NoError(t, err)
			assert.Equal(t, tc.to, st)
		})
	}
}

func TestStateSetCallbackFailureKeepsState(t *testing.T) {
	d := New("dev", func(dev *Device, a Action) error {
		return assert.AnError
	})

	err := d.StateSet(StateSuspended)
	assert.ErrorIs(t, err, assert.AnError)

	st, _ := d.StateGet()
	assert.Equal(t, StateActive, st)
}

func TestStateSetNoActionCallback(t *testing.T) {
	d := New("dumb", nil)

	assert.ErrorIs(t, d.StateSet(StateSuspended), ErrNotImplemented)
	_, err := d.StateGet()
	assert.ErrorIs(t, err, ErrNotImplemented)

	// Flag surfaces degrade to no-ops without a callback.
	d.BusySet()
	assert.False(t, d.IsBusy())
	assert.False(t, d.WakeupEnable(true))
	assert.False(t, d.WakeupIsCapable())
}

func TestStateSetWhileTransitioning(t *testing.T) {
	calls := 0
	d := New("dev", func(dev *Device, a Action) error {
		calls++
		return nil
	})

	require.True(t, d.TransitioningSet())
	assert.False(t, d.TransitioningSet())

	assert.ErrorIs(t, d.StateSet(StateSuspended), ErrBusy)
	assert.Zero(t, calls)

	d.TransitioningClear()
	assert.NoError(t, d.StateSet(StateSuspended))
	assert.Equal(t, 1, calls)
}

func TestBusyFlag(t *testing.T) {
	d := New("dev", func(dev *Device, a Action) error { return nil })

	assert.False(t, d.IsBusy())
	d.BusySet()
	assert.True(t, d.IsBusy())
	d.BusyClear()
	assert.False(t, d.IsBusy())
}

func TestWakeupEnableRoundTrip(t *testing.T) {
	d := New("rtc", func(dev *Device, a Action) error { return nil }, WithWakeupCapability())

	require.True(t, d.WakeupIsCapable())
	assert.False(t, d.WakeupIsEnabled())

	require.True(t, d.WakeupEnable(true))
	assert.True(t, d.WakeupIsEnabled())

	// Enable then disable restores the original flag word.
	require.True(t, d.WakeupEnable(false))
	assert.False(t, d.WakeupIsEnabled())
	assert.True(t, d.WakeupIsCapable())
}

func TestWakeupEnableNotCapable(t *testing.T) {
	d := New("uart", func(dev *Device, a Action) error { return nil })

	assert.False(t, d.WakeupEnable(true))
	assert.False(t, d.WakeupIsEnabled())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "active", StateString(StateActive))
	assert.Equal(t, "suspended", StateString(StateSuspended))
	assert.Equal(t, "off", StateString(StateOff))
	assert.Equal(t, "", StateString(State(99)))
}
