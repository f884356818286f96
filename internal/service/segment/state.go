// Package segment provides utterance id generation and the session lifecycle.
package segment

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of a streaming session.
type State int

const (
	// StateActive - Session is connected and accepts audio.
	StateActive State = iota
	// StateClosed - Client disconnected. Terminal.
	StateClosed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateActive:
		return "ACTIVE"
	case StateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true if the state is terminal.
func (s State) IsTerminal() bool {
	return s == StateClosed
}

// ErrSessionClosed is returned when work is offered to a closed session.
var ErrSessionClosed = errors.New("session is closed")

// Lifecycle guards a session against emitting results after disconnect.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	ACTIVE ──→ Close() ──→ CLOSED
//
// Rules:
//   - ACTIVE: windows may be admitted and results emitted
//   - CLOSED: Admit and Emit return ErrSessionClosed; inference that was
//     already running finishes but its result is discarded
type Lifecycle struct {
	mu        sync.RWMutex
	sessionId string
	state     State
	admitted  int
	emitted   int
	discarded int
}

// NewLifecycle creates a new session lifecycle in ACTIVE state.
func NewLifecycle(sessionId string) *Lifecycle {
	return &Lifecycle{
		sessionId: sessionId,
		state:     StateActive,
	}
}

// SessionId returns the session ID.
func (l *Lifecycle) SessionId() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sessionId
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// IsClosed returns true once the session has been closed.
func (l *Lifecycle) IsClosed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.IsTerminal()
}

// Admit records that a window is about to be processed.
func (l *Lifecycle) Admit() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.IsTerminal() {
		return ErrSessionClosed
	}
	l.admitted++
	return nil
}

// Emit validates that a finished result may still be delivered.
// A rejected result is counted as discarded.
func (l *Lifecycle) Emit() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.IsTerminal() {
		l.discarded++
		return ErrSessionClosed
	}
	l.emitted++
	return nil
}

// Close transitions to CLOSED. Returns true on the first call only.
func (l *Lifecycle) Close() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.IsTerminal() {
		return false
	}
	l.state = StateClosed
	return true
}

// Stats returns admitted, emitted and discarded window counts.
func (l *Lifecycle) Stats() (admitted, emitted, discarded int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.admitted, l.emitted, l.discarded
}
