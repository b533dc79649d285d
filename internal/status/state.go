package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/xmark/internal/bus"
)

// State is the connection state of the daemon's XMPP session.
type State string

const (
	Booting      State = "BOOTING"
	Connecting   State = "CONNECTING"
	Online       State = "ONLINE"
	Reconnecting State = "RECONNECTING"
	Offline      State = "OFFLINE"
	Error        State = "ERROR"
)

var validTransitions = map[State][]State{
	Booting:      {Connecting, Offline, Error},
	Connecting:   {Online, Reconnecting, Offline, Error},
	Online:       {Reconnecting, Offline, Error},
	Reconnecting: {Connecting, Offline, Error},
	Offline:      {Connecting, Error},
	Error:        {Booting, Connecting},
}

// Machine tracks and enforces connection state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Booting state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Booting,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition moves to a new state, or fails if the move is not allowed.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(validTransitions[m.current], to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Emit(bus.KindStatusChanged, StatusChange{From: from, To: to})
	}
	return nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From State
	To   State
}
