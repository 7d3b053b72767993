// SPDX-FileCopyrightText: 2025 The Ferrite Authors
// SPDX-License-Identifier: Apache-2.0

package pm

import (
	"errors"
	"sync"

	"github.com/ferrite-os/ferrite/internal/pm/state"
)

// ErrNotFound is returned by NotifierUnregister for a notifier that is
// not registered.
var ErrNotFound = errors.New("notifier not registered")

// Notifier observes power state transitions. Either callback may be nil.
// Callbacks run on the idle path with interrupts masked: they must not
// block, must not call back into the engine and must not register or
// unregister notifiers.
type Notifier struct {
	// StateEntry is called when the system is about to enter the state.
	StateEntry func(s state.State)
	// StateExit is called after the system left the state, once exit
	// post-ops have run.
	StateExit func(s state.State)
}

// notifierRegistry keeps notifiers in registration order. The lock
// serialises registration from thread context against broadcasts from
// the idle path.
type notifierRegistry struct {
	mu   sync.Mutex
	list []*Notifier
}

// NotifierRegister adds a notifier to the end of the broadcast order.
func (e *Engine) NotifierRegister(n *Notifier) {
	e.notifiers.mu.Lock()
	e.notifiers.list = append(e.notifiers.list, n)
	e.notifiers.mu.Unlock()
}

// NotifierUnregister removes a notifier. It returns ErrNotFound when the
// notifier is not registered.
func (e *Engine) NotifierUnregister(n *Notifier) error {
	e.notifiers.mu.Lock()
	defer e.notifiers.mu.Unlock()

	for i, reg := range e.notifiers.list {
		if reg == n {
			e.notifiers.list = append(e.notifiers.list[:i], e.notifiers.list[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// notify broadcasts entry or exit of the current transition's state to
// all registered notifiers, in registration order.
func (e *Engine) notify(entering bool) {
	s := e.currentInfo().State

	e.notifiers.mu.Lock()
	defer e.notifiers.mu.Unlock()

	for _, n := range e.notifiers.list {
		callback := n.StateExit
		if entering {
			callback = n.StateEntry
		}
		if callback != nil {
			callback(s)
		}
	}
}
