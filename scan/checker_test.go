package scan

import (
	"os"
	"testing"
	"time"

	"github.com/liamg/nagprobe/plugin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScanner returns a Command that runs script with the scan arguments as
// positional parameters.
func fakeScanner(script string) []string {
	return []string{"sh", "-c", script, "nmap"}
}

func newTestChecker(t *testing.T, config Config) (*Checker, string) {
	dir := t.TempDir()
	config.TempDir = dir
	config.PollInterval = 10 * time.Millisecond
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	return NewChecker(config), dir
}

func assertTempRemoved(t *testing.T, dir string) {
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "scan output was not removed")
}

func TestScanCommand(t *testing.T) {
	config := Config{Host: "example.org", Command: DefaultCommand()}
	assert.Equal(t, []string{"nmap", "-Pn", "example.org"}, config.ScanCommand())

	config.Range = ":1024,3000:7000"
	assert.Equal(t, []string{"nmap", "-Pn", "-p", "-1024,3000-7000", "example.org"}, config.ScanCommand())

	// deriving the command leaves the base command alone
	assert.Equal(t, []string{"nmap", "-Pn"}, config.Command)
}

func TestCheckerDefaults(t *testing.T) {
	c := NewChecker(Config{Host: "example.org"})
	assert.Equal(t, DefaultCommand(), c.Config().Command)
	assert.Equal(t, DefaultPollInterval, c.Config().PollInterval)
	assert.NotEmpty(t, c.Config().TempDir)
}

func TestCheckerBadConfig(t *testing.T) {
	c, dir := newTestChecker(t, Config{Command: fakeScanner("echo should not run >&2; exit 9")})

	assert.True(t, errors.Is(c.Validate(), ErrBadConfig))

	result := c.Run()
	assert.Equal(t, plugin.StateUnknown, result.State)
	assert.Equal(t, BadParamsMessage, result.Message)
	assertTempRemoved(t, dir)

	c, _ = newTestChecker(t, Config{Host: "example.org", Ports: []int{70000}})
	assert.True(t, errors.Is(c.Validate(), ErrBadConfig))

	c, _ = newTestChecker(t, Config{Host: "example.org", Command: []string{"", "-Pn"}})
	assert.True(t, errors.Is(c.Validate(), ErrBadConfig))
}

func TestCheckerEmptyArgument(t *testing.T) {
	c, dir := newTestChecker(t, Config{
		Host:    "10.0.0.1",
		Command: []string{"sh", "-c", `[ -z "$1" ] && echo "22/tcp open ssh"`, "nmap", ""},
		Ports:   []int{22},
	})
	require.NoError(t, c.Validate())

	result := c.Run()
	assert.Equal(t, plugin.StateOK, result.State)
	assertTempRemoved(t, dir)
}

func TestCheckerOK(t *testing.T) {
	c, dir := newTestChecker(t, Config{
		Host:    "10.0.0.1",
		Ports:   []int{22, 80},
		Command: fakeScanner(`[ "$1" = "10.0.0.1" ] || exit 5; printf '22/tcp open ssh\n80/tcp open http\n'`),
	})

	result := c.Run()
	assert.Equal(t, plugin.StateOK, result.State)
	assert.Equal(t, "PORTS ok - Only defined ports open", result.Message)
	assertTempRemoved(t, dir)
}

func TestCheckerWarning(t *testing.T) {
	c, _ := newTestChecker(t, Config{
		Host:    "10.0.0.1",
		Ports:   []int{22, 80},
		Command: fakeScanner(`printf '22/tcp open ssh\n80/tcp closed http\n'`),
	})

	result := c.Run()
	assert.Equal(t, plugin.StateWarning, result.State)
	assert.Equal(t, "PORTS WARNING - Closed: 80", result.Message)
}

func TestCheckerCritical(t *testing.T) {
	c, _ := newTestChecker(t, Config{
		Host:     "10.0.0.1",
		Ports:    []int{22},
		Optional: []int{443},
		Range:    "1:40000",
		Command: fakeScanner(`[ "$1" = "-p" ] && [ "$2" = "1-40000" ] || exit 5
printf '22/tcp open ssh\n80/tcp open http\n443/tcp open https\n31337/tcp open Elite\n'`),
	})

	result := c.Run()
	assert.Equal(t, plugin.StateCritical, result.State)
	assert.Equal(t, "PORTS CRITICAL - Open: 80 31337 Closed:", result.Message)
}

func TestCheckerTimeout(t *testing.T) {
	c, dir := newTestChecker(t, Config{
		Host:    "10.0.0.1",
		Ports:   []int{22},
		Timeout: 50 * time.Millisecond,
		Command: fakeScanner(`printf '22/tcp open ssh\n'; exec sleep 10`),
	})

	start := time.Now()
	result := c.Run()

	assert.Equal(t, plugin.StateCritical, result.State)
	assert.Equal(t, "CRITICAL - Plugin timed out after 0.05 seconds", result.Message)
	assert.Less(t, time.Since(start), 5*time.Second)
	assertTempRemoved(t, dir)
}

func TestCheckerProcessFailure(t *testing.T) {
	c, dir := newTestChecker(t, Config{
		Host:    "10.0.0.1",
		Command: fakeScanner(`printf '22/tcp open ssh\n'; exit 4`),
	})

	result := c.Run()
	assert.Equal(t, plugin.StateUnknown, result.State)
	assert.Equal(t, "sh program failed with code 4", result.Message)
	assertTempRemoved(t, dir)
}

func TestCheckerScannerMissing(t *testing.T) {
	c, _ := newTestChecker(t, Config{
		Host:    "10.0.0.1",
		Command: []string{"/nonexistent/nmap"},
	})

	result := c.Run()
	assert.Equal(t, plugin.StateUnknown, result.State)
	assert.Equal(t, "nmap program failed with code 127", result.Message)
}

func TestCheckerOutputRemovedMidRun(t *testing.T) {
	if _, err := os.Stat("/proc/self/fd/1"); err != nil {
		t.Skip("needs /proc")
	}

	c, dir := newTestChecker(t, Config{
		Host:    "10.0.0.1",
		Ports:   []int{22},
		Command: fakeScanner(`printf '22/tcp open ssh\n'; rm -f "$(readlink /proc/$$/fd/1)"`),
	})

	result := c.Run()
	assert.Equal(t, plugin.StateUnknown, result.State)
	assert.Equal(t, "Unable to get output from sh", result.Message)
	assertTempRemoved(t, dir)
}

func TestRemoveTempMissingFile(t *testing.T) {
	assert.NotPanics(t, func() {
		removeTemp(t.TempDir() + "/does-not-exist")
	})
}
