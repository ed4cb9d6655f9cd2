package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is wrapped by every TransitionError
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned for a status outside the entity's status set
	ErrInvalidState = errors.New("invalid state")
)

// TransitionError reports a trigger that has no edge from the current state
type TransitionError struct {
	Entity  string
	From    State
	Trigger Trigger
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s from %s", e.Entity, e.Trigger, e.From)
}

// Unwrap lets errors.Is match ErrInvalidTransition
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
