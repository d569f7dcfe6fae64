package plugin

import (
	"bytes"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCodes(t *testing.T) {
	assert.Equal(t, 0, StateOK.ExitCode())
	assert.Equal(t, 1, StateWarning.ExitCode())
	assert.Equal(t, 2, StateCritical.ExitCode())
	assert.Equal(t, 3, StateUnknown.ExitCode())
	assert.Equal(t, 3, StateLegacyUnknown.ExitCode())
	assert.Equal(t, 3, State(7).ExitCode())
}

func TestWorst(t *testing.T) {
	assert.Equal(t, StateCritical, Worst(StateWarning, StateCritical))
	assert.Equal(t, StateWarning, Worst(StateOK, StateWarning))
	assert.Equal(t, StateOK, Worst(StateUnknown, StateOK))
	assert.Equal(t, StateUnknown, Worst(StateUnknown, StateUnknown))
}

func TestNormalizeClampsUndefinedState(t *testing.T) {
	r := Result{State: State(5), Message: "PORTS ok"}.Normalize()
	assert.Equal(t, StateUnknown, r.State)
	assert.Equal(t, "PORTS ok - undefined exit code (5)", r.Message)

	r = Result{State: StateLegacyUnknown, Message: "nope"}.Normalize()
	assert.Equal(t, StateUnknown, r.State)
	assert.Equal(t, "nope", r.Message)
}

func TestEmitWritesOneLine(t *testing.T) {
	buf := &bytes.Buffer{}
	code := NewResult(StateWarning, "two\nlines").Emit(buf)

	assert.Equal(t, 1, code)
	assert.Equal(t, "two lines\n", buf.String())
}

func TestResultWithPerfdata(t *testing.T) {
	warn, err := ParseRange("2")
	require.NoError(t, err)
	crit, err := ParseRange("10")
	require.NoError(t, err)

	r := NewResult(StateOK, "PCP OK - load = 0.5").WithPerfdata(Perfdata{
		Label: "load",
		Value: 0.5,
		Warn:  warn,
		Crit:  crit,
	})

	assert.Equal(t, "PCP OK - load = 0.5 | load=0.5;2;10", r.String())
}

func TestPerfdataString(t *testing.T) {
	zero := 0.0

	assert.Equal(t, "RTT=0ms", Perfdata{Label: "RTT", UOM: "ms"}.String())
	assert.Equal(t, "RTT=12ms;;;0", Perfdata{Label: "RTT", Value: 12, UOM: "ms", Min: &zero}.String())
	assert.Equal(t, "'disk used'=3.25", Perfdata{Label: "disk used", Value: 3.25}.String())
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		in     string
		start  float64
		end    float64
		inside bool
	}{
		{"10", 0, 10, false},
		{"10:", 10, math.Inf(1), false},
		{"~:10", math.Inf(-1), 10, false},
		{"10:20", 10, 20, false},
		{"@10:20", 10, 20, true},
		{"-5:5", -5, 5, false},
	}

	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			r, err := ParseRange(test.in)
			require.NoError(t, err)
			assert.Equal(t, test.start, r.Start)
			assert.Equal(t, test.end, r.End)
			assert.Equal(t, test.inside, r.Inside)
			assert.Equal(t, test.in, r.String())
		})
	}
}

func TestParseRangeRejectsGarbage(t *testing.T) {
	for _, in := range []string{"abc", "20:10", "1:x", "@:q"} {
		_, err := ParseRange(in)
		assert.True(t, errors.Is(err, ErrRangeUnparseable), in)
	}
}

func TestRangeAlert(t *testing.T) {
	r, _ := ParseRange("10")
	assert.False(t, r.Alert(0))
	assert.False(t, r.Alert(10))
	assert.True(t, r.Alert(10.5))
	assert.True(t, r.Alert(-1))

	r, _ = ParseRange("@10:20")
	assert.True(t, r.Alert(15))
	assert.False(t, r.Alert(21))
}

func TestThresholdsState(t *testing.T) {
	th, err := ParseThresholds("2", "10")
	require.NoError(t, err)

	assert.Equal(t, StateOK, th.State(1.5))
	assert.Equal(t, StateOK, th.State(2))
	assert.Equal(t, StateWarning, th.State(5))
	assert.Equal(t, StateCritical, th.State(11))

	none, err := ParseThresholds("", "")
	require.NoError(t, err)
	assert.Equal(t, StateOK, none.State(1e9))

	_, err = ParseThresholds("oops", "")
	assert.True(t, errors.Is(err, ErrRangeUnparseable))
}
