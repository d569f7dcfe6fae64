package scan

import (
	"testing"

	"github.com/liamg/nagprobe/plugin"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		required []int
		optional []int
		observed []int
		state    plugin.State
		message  string
	}{
		{
			name:     "all required open",
			required: []int{22, 80},
			observed: []int{22, 80},
			state:    plugin.StateOK,
			message:  "PORTS ok - Only defined ports open",
		},
		{
			name:     "required closed",
			required: []int{22, 80},
			observed: []int{22},
			state:    plugin.StateWarning,
			message:  "PORTS WARNING - Closed: 80",
		},
		{
			name:     "unexpected open",
			required: []int{22},
			observed: []int{22, 80, 31337},
			state:    plugin.StateCritical,
			message:  "PORTS CRITICAL - Open: 80 31337 Closed:",
		},
		{
			name:     "unexpected open and required closed",
			required: []int{22, 443},
			observed: []int{22, 80},
			state:    plugin.StateCritical,
			message:  "PORTS CRITICAL - Open: 80 Closed: 443",
		},
		{
			name:     "optional open",
			required: []int{22},
			optional: []int{8080},
			observed: []int{22, 8080},
			state:    plugin.StateOK,
			message:  "PORTS ok - Only defined ports open",
		},
		{
			name:     "optional closed and not observed",
			required: []int{22},
			optional: []int{8080, 9090},
			observed: []int{22},
			state:    plugin.StateOK,
			message:  "PORTS ok - Only defined ports open",
		},
		{
			name:     "optional and required closed",
			required: []int{22, 8080},
			optional: []int{8080},
			observed: []int{22},
			state:    plugin.StateOK,
			message:  "PORTS ok - Only defined ports open",
		},
		{
			name:    "nothing expected nothing open",
			state:   plugin.StateOK,
			message: "PORTS ok - Only defined ports open",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := Classify("example.org", test.required, test.optional, test.observed)
			assert.Equal(t, test.state, result.State())
			assert.Equal(t, test.message, result.String())
			assert.Equal(t, test.state, result.Plugin().State)
		})
	}
}

func TestClassifyOptionalNeverReported(t *testing.T) {
	optional := []int{25, 110}
	result := Classify("mail", []int{25}, optional, []int{110, 143})

	for _, port := range optional {
		assert.NotContains(t, result.Unexpected, port)
		assert.NotContains(t, result.Missing, port)
	}
	assert.Equal(t, []int{143}, result.Unexpected)
	assert.Equal(t, []int{143}, result.Open)
}
