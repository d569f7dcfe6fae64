package plugin

import (
	"fmt"
	"io"
	"strings"
)

type Result struct {
	State    State
	Message  string
	Perfdata []Perfdata
}

func NewResult(state State, format string, args ...interface{}) Result {
	return Result{
		State:   state,
		Message: fmt.Sprintf(format, args...),
	}
}

// Unknown is shorthand for an UNKNOWN result.
func Unknown(format string, args ...interface{}) Result {
	return NewResult(StateUnknown, format, args...)
}

// WithPerfdata returns a copy of r carrying the given performance data.
func (r Result) WithPerfdata(pd ...Perfdata) Result {
	r.Perfdata = append(append([]Perfdata{}, r.Perfdata...), pd...)
	return r
}

// Normalize forces a state the scheduler cannot interpret to UNKNOWN and notes
// the offending value in the message.
func (r Result) Normalize() Result {
	if r.State.Valid() {
		if r.State == StateLegacyUnknown {
			r.State = StateUnknown
		}
		return r
	}
	r.Message = fmt.Sprintf("%s - undefined exit code (%d)", r.Message, int(r.State))
	r.State = StateUnknown
	return r
}

func (r Result) String() string {
	if len(r.Perfdata) == 0 {
		return r.Message
	}

	perf := make([]string, 0, len(r.Perfdata))
	for _, pd := range r.Perfdata {
		perf = append(perf, pd.String())
	}

	return fmt.Sprintf("%s | %s", r.Message, strings.Join(perf, " "))
}

// Emit writes the normalized result as a single line and returns the exit code
// to hand to os.Exit.
func (r Result) Emit(w io.Writer) int {
	r = r.Normalize()

	line := strings.ReplaceAll(r.String(), "\n", " ")
	fmt.Fprintln(w, line)

	return r.State.ExitCode()
}
