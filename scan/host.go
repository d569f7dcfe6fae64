package scan

import "strings"

type PortState uint8

const (
	PortUnknown PortState = iota
	PortOpen
	PortClosed
	PortFiltered
)

// PortLine is one port entry of a scanner report, e.g. "22/tcp open ssh".
type PortLine struct {
	Port     int
	Protocol string
	State    PortState
}

// portState finds the state among the fields that follow the port/protocol
// token. Only an exact "open" token counts as open, so a service named
// "openvpn" on a closed port is not mistaken for an open one.
func portState(fields []string) PortState {
	state := PortUnknown
	for _, f := range fields {
		switch strings.ToLower(f) {
		case "open":
			return PortOpen
		case "closed":
			state = PortClosed
		case "filtered", "open|filtered", "closed|filtered":
			if state == PortUnknown {
				state = PortFiltered
			}
		}
	}
	return state
}
