// Package plugin holds the output contract shared by every check: the four
// severity levels, the single status line with optional performance data, and
// the exit code handed back to the monitoring scheduler.
package plugin

import "fmt"

type State int

const (
	StateOK State = iota
	StateWarning
	StateCritical
	StateUnknown
)

// StateLegacyUnknown is the UNKNOWN code used by older plugins. It is
// reported as StateUnknown.
const StateLegacyUnknown State = -1

func (s State) String() string {
	switch s {
	case StateOK:
		return "OK"
	case StateWarning:
		return "WARNING"
	case StateCritical:
		return "CRITICAL"
	case StateUnknown, StateLegacyUnknown:
		return "UNKNOWN"
	}
	return fmt.Sprintf("undefined(%d)", int(s))
}

// Valid reports whether s is one of the levels the scheduler understands.
func (s State) Valid() bool {
	return s >= StateLegacyUnknown && s <= StateUnknown
}

// ExitCode returns the process exit code for s. Anything that is not OK,
// WARNING or CRITICAL exits as UNKNOWN.
func (s State) ExitCode() int {
	switch s {
	case StateOK, StateWarning, StateCritical:
		return int(s)
	}
	return int(StateUnknown)
}

// Worst returns the more severe of a and b, ordering
// UNKNOWN < OK < WARNING < CRITICAL.
func Worst(a, b State) State {
	switch {
	case a == StateCritical || b == StateCritical:
		return StateCritical
	case a == StateWarning || b == StateWarning:
		return StateWarning
	case a == StateOK || b == StateOK:
		return StateOK
	}
	return StateUnknown
}
