package channel

import (
	"sync"

	"github.com/turtacn/soapproxy/pkg/errors"
)

// CommunicationState is the lifecycle state of a channel.
type CommunicationState int

const (
	StateCreated CommunicationState = iota
	StateOpening
	StateOpened
	StateClosing
	StateClosed
	StateFaulted
)

// String returns the state name.
func (s CommunicationState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateOpening:
		return "opening"
	case StateOpened:
		return "opened"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// lifecycle tracks channel state and raises closed and faulted events, each at
// most once.
type lifecycle struct {
	mu        sync.Mutex
	state     CommunicationState
	onClosed  []func()
	onFaulted []func()
}

// State returns the current state.
func (l *lifecycle) State() CommunicationState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// OnClosed registers fn to run when the channel reaches the closed state.
func (l *lifecycle) OnClosed(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onClosed = append(l.onClosed, fn)
}

// OnFaulted registers fn to run when the channel faults.
func (l *lifecycle) OnFaulted(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onFaulted = append(l.onFaulted, fn)
}

func (l *lifecycle) beginOpen() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateCreated {
		return errors.ErrChannelNotUsable.WithDetail("state", l.state.String())
	}
	l.state = StateOpening
	return nil
}

func (l *lifecycle) endOpen(err error) {
	if err != nil {
		l.fault()
		return
	}
	l.mu.Lock()
	if l.state == StateOpening {
		l.state = StateOpened
	}
	l.mu.Unlock()
}

// fault moves the channel to the faulted state unless it is already closed.
func (l *lifecycle) fault() {
	l.mu.Lock()
	if l.state == StateClosed || l.state == StateFaulted {
		l.mu.Unlock()
		return
	}
	l.state = StateFaulted
	handlers := l.onFaulted
	l.onFaulted = nil
	l.mu.Unlock()

	for _, fn := range handlers {
		fn()
	}
}

// beginClose reports whether the caller should run close logic.
func (l *lifecycle) beginClose() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateClosed || l.state == StateClosing {
		return false
	}
	l.state = StateClosing
	return true
}

func (l *lifecycle) endClose() {
	l.mu.Lock()
	if l.state == StateClosed {
		l.mu.Unlock()
		return
	}
	l.state = StateClosed
	handlers := l.onClosed
	l.onClosed = nil
	l.onFaulted = nil
	l.mu.Unlock()

	for _, fn := range handlers {
		fn()
	}
}
