// Package connectivity tracks network reachability for the sync engine.
//
// The monitor itself never probes the network: transitions are fed in by a
// platform event source via Set. That keeps the state machine testable and
// avoids polling cost on battery-powered devices.
package connectivity

import (
	"context"
	"sync"
)

// State is the reachability state.
type State string

const (
	Online  State = "online"
	Offline State = "offline"
)

// Listener receives the current state on subscription and every transition
// after that.
type Listener func(State)

// Monitor is a two-state reachability machine with subscriptions and a
// one-shot wait-until-online primitive.
type Monitor struct {
	mu        sync.Mutex
	state     State
	listeners map[int]Listener
	nextID    int

	// onlineCh is closed while online and replaced on each transition to
	// offline, so waiters block only when actually offline.
	onlineCh chan struct{}
}

// NewMonitor creates a monitor seeded with the platform's current
// reachability.
func NewMonitor(initial State) *Monitor {
	m := &Monitor{
		state:     initial,
		listeners: make(map[int]Listener),
		onlineCh:  make(chan struct{}),
	}
	if initial == Online {
		close(m.onlineCh)
	}
	return m
}

// State returns a synchronous snapshot of the current state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Set feeds a reachability transition in. Setting the current state again is
// a no-op.
func (m *Monitor) Set(state State) {
	m.mu.Lock()
	if state == m.state {
		m.mu.Unlock()
		return
	}
	m.state = state
	if state == Online {
		close(m.onlineCh)
	} else {
		m.onlineCh = make(chan struct{})
	}
	toNotify := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		toNotify = append(toNotify, l)
	}
	m.mu.Unlock()

	for _, l := range toNotify {
		l(state)
	}
}

// Subscribe registers a listener and returns its unsubscribe function. The
// listener is called immediately with the current state, then on every
// transition.
func (m *Monitor) Subscribe(l Listener) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	current := m.state
	m.mu.Unlock()

	l(current)

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// WaitForOnline returns immediately when online, otherwise blocks until the
// next transition to online or until ctx is cancelled.
func (m *Monitor) WaitForOnline(ctx context.Context) error {
	m.mu.Lock()
	ch := m.onlineCh
	m.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
