package app

import (
	"fmt"
	"sync"

	"github.com/jvlcode/screen-recorder/internal/domain"
	"github.com/jvlcode/screen-recorder/internal/ports"
)

// State represents the lifecycle state of the recording session.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateRecording
	StateStopping
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateStarting:
		return "Starting"
	case StateRecording:
		return "Recording"
	case StateStopping:
		return "Stopping"
	default:
		return "Unknown"
	}
}

// Lifecycle manages the state machine for the recording session.
type Lifecycle struct {
	mu           sync.RWMutex
	state        State
	logger       ports.Logger
	eventEmitter EventEmitter
}

// EventEmitter is called when lifecycle state changes.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// NewLifecycle creates a new lifecycle manager in the Idle state.
func NewLifecycle(logger ports.Logger, emitter EventEmitter) *Lifecycle {
	return &Lifecycle{
		state:        StateIdle,
		logger:       logger,
		eventEmitter: emitter,
	}
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo attempts to transition to a new state.
//
//	Idle      -> Starting
//	Starting  -> Recording | Idle
//	Recording -> Stopping  | Idle (encoder exited on its own)
//	Stopping  -> Idle
func (l *Lifecycle) TransitionTo(newState State, reason string) error {
	l.mu.Lock()
	oldState := l.state

	if !validTransition(oldState, newState) {
		l.mu.Unlock()
		switch newState {
		case StateStarting:
			return domain.ErrAlreadyRecording
		case StateStopping:
			return domain.ErrNotRecording
		default:
			return fmt.Errorf("invalid transition %s -> %s", oldState, newState)
		}
	}

	l.state = newState
	l.mu.Unlock()

	// Emit event outside of lock
	if l.eventEmitter != nil {
		l.eventEmitter.OnStateChange(oldState, newState, reason)
	}

	l.logger.Info("state transition",
		ports.String("from", oldState.String()),
		ports.String("to", newState.String()),
		ports.String("reason", reason),
	)

	return nil
}

func validTransition(from, to State) bool {
	switch from {
	case StateIdle:
		return to == StateStarting
	case StateStarting:
		return to == StateRecording || to == StateIdle
	case StateRecording:
		return to == StateStopping || to == StateIdle
	case StateStopping:
		return to == StateIdle
	}
	return false
}
