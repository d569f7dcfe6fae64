package scan

import (
	"fmt"
	"strings"

	"github.com/liamg/nagprobe/plugin"
)

// Result is the comparison of a host's observed open ports against the
// expected ones.
type Result struct {
	Host string
	// Open holds the observed open ports with optional ports removed.
	Open []int
	// Unexpected holds open ports that are neither required nor optional.
	Unexpected []int
	// Missing holds required ports that were not observed open.
	Missing []int
}

// Classify compares observed open ports against the required and optional
// lists. Optional ports are removed from the observed set first, so they are
// never reported either way.
func Classify(host string, required, optional, observed []int) Result {
	result := Result{
		Host:       host,
		Open:       []int{},
		Unexpected: []int{},
		Missing:    []int{},
	}

	skip := toSet(optional)
	for _, port := range observed {
		if !skip[port] {
			result.Open = append(result.Open, port)
		}
	}

	want := toSet(required)
	for _, port := range result.Open {
		if !want[port] {
			result.Unexpected = append(result.Unexpected, port)
		}
	}

	open := toSet(result.Open)
	for _, port := range required {
		if !open[port] && !skip[port] {
			result.Missing = append(result.Missing, port)
		}
	}

	return result
}

// State is CRITICAL if anything unexpected is open, otherwise WARNING if a
// required port is closed. Both conditions together still report CRITICAL
// only.
func (r Result) State() plugin.State {
	state := plugin.StateOK
	if len(r.Missing) > 0 {
		state = plugin.Worst(state, plugin.StateWarning)
	}
	if len(r.Unexpected) > 0 {
		state = plugin.Worst(state, plugin.StateCritical)
	}
	return state
}

func (r Result) String() string {
	switch r.State() {
	case plugin.StateCritical:
		return fmt.Sprintf("PORTS CRITICAL - Open:%s Closed:%s", portList(r.Unexpected), portList(r.Missing))
	case plugin.StateWarning:
		return fmt.Sprintf("PORTS WARNING - Closed:%s", portList(r.Missing))
	}
	return "PORTS ok - Only defined ports open"
}

// Plugin converts r into the plugin output.
func (r Result) Plugin() plugin.Result {
	return plugin.Result{
		State:   r.State(),
		Message: r.String(),
	}
}

// portList renders each port preceded by a space.
func portList(ports []int) string {
	var sb strings.Builder
	for _, port := range ports {
		fmt.Fprintf(&sb, " %d", port)
	}
	return sb.String()
}

func toSet(ports []int) map[int]bool {
	set := make(map[int]bool, len(ports))
	for _, port := range ports {
		set[port] = true
	}
	return set
}
