// Package lifecycle implements the build run state machine.
package lifecycle

import (
	"fmt"

	"github.com/telemart-systems/telemart/pkg/types"
)

// Transition table: from -> allowed tos
var validTransitions = map[types.RunStatus][]types.RunStatus{
	types.RunPending:   {types.RunRunning, types.RunSkipped, types.RunCancelled},
	types.RunRunning:   {types.RunSuccess, types.RunFailed, types.RunCancelled},
	types.RunSuccess:   {},
	types.RunFailed:    {},
	types.RunSkipped:   {},
	types.RunCancelled: {},
}

// CanTransition checks if transitioning from one run status to another is valid.
func CanTransition(from, to types.RunStatus) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Transition validates and returns the new status, or an error if the transition is invalid.
func Transition(from, to types.RunStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	return nil
}

// IsTerminal returns true if the status is a terminal (final) state.
func IsTerminal(status types.RunStatus) bool {
	switch status {
	case types.RunSuccess, types.RunFailed, types.RunSkipped, types.RunCancelled:
		return true
	}
	return false
}
