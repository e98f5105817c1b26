// Package notify delivers trade announcements to the chat channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrSessionNotReady is returned when sending on a session that is not open.
	ErrSessionNotReady = errors.New("notify: session not ready")

	// ErrSessionClosed is returned when opening a closed session.
	ErrSessionClosed = errors.New("notify: session closed")

	// ErrMissingArtifact is returned when a media channel gets no artifact.
	ErrMissingArtifact = errors.New("notify: artifact required")
)

// State is a session lifecycle state.
type State int

const (
	StateCreated State = iota
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session is a channel connection opened once at startup and shared by all
// passes.
type Session interface {
	Open(ctx context.Context) error
	Close() error
	State() State
}

// lifecycle implements the Created → Ready → Closed transitions.
type lifecycle struct {
	mu    sync.RWMutex
	state State
}

// open runs handshake once. A failed handshake leaves the session in
// StateCreated so Open can be retried.
func (l *lifecycle) open(ctx context.Context, handshake func(ctx context.Context) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateReady:
		return nil
	case StateClosed:
		return ErrSessionClosed
	}
	if handshake != nil {
		if err := handshake(ctx); err != nil {
			return err
		}
	}
	l.state = StateReady
	return nil
}

func (l *lifecycle) close() {
	l.mu.Lock()
	l.state = StateClosed
	l.mu.Unlock()
}

func (l *lifecycle) current() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

func (l *lifecycle) ready() error {
	if s := l.current(); s != StateReady {
		return fmt.Errorf("%w (state %s)", ErrSessionNotReady, s)
	}
	return nil
}
