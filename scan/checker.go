package scan

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/liamg/nagprobe/plugin"
	"github.com/liamg/nagprobe/task"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var ErrBadConfig = errors.New("bad params")

// BadParamsMessage is reported when the checker is not given enough to run.
const BadParamsMessage = "UNKNOWN: bad params, try running without any params for syntax"

const (
	DefaultTimeout      = 10 * time.Second
	DefaultPollInterval = time.Second

	tempPrefix = "check_nmap_tmp."
)

// DefaultCommand returns the scanner invocation the host (and an optional
// port range) is appended to.
func DefaultCommand() []string {
	return []string{"nmap", "-Pn"}
}

// Config describes one port check. It is treated as an immutable value: the
// scan command is derived from it, never written back into it.
type Config struct {
	Host     string `validate:"required"`
	Ports    []int  `validate:"dive,min=1,max=65535"`
	Optional []int  `validate:"dive,min=1,max=65535"`
	// Range restricts the scan, in either nmap's dash syntax or the colon
	// syntax accepted on the command line.
	Range        string
	Timeout      time.Duration
	Command      []string `validate:"min=1"`
	TempDir      string   `validate:"required"`
	PollInterval time.Duration
}

// ScanCommand builds the argv for scanning c.Host.
func (c Config) ScanCommand() []string {
	argv := make([]string, 0, len(c.Command)+3)
	argv = append(argv, c.Command...)
	if r := NormalizeRange(c.Range); r != "" {
		argv = append(argv, "-p", r)
	}
	return append(argv, c.Host)
}

// Checker runs a port scanner against one host and compares the open ports it
// reports with the required and optional lists.
type Checker struct {
	config   Config
	validate *validator.Validate
}

// NewChecker fills in defaults for any unset Command, TempDir or PollInterval.
func NewChecker(config Config) *Checker {
	if len(config.Command) == 0 {
		config.Command = DefaultCommand()
	}
	if config.TempDir == "" {
		config.TempDir = os.TempDir()
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}

	return &Checker{
		config:   config,
		validate: validator.New(),
	}
}

func (c *Checker) Config() Config {
	return c.config
}

// Validate returns an error wrapping ErrBadConfig if the check cannot run.
func (c *Checker) Validate() error {
	if err := c.validate.Struct(c.config); err != nil {
		return errors.Wrap(ErrBadConfig, err.Error())
	}
	if c.config.Command[0] == "" {
		return errors.Wrap(ErrBadConfig, "no scanner executable")
	}
	return nil
}

// Run performs the check. Every failure is reported as a result; Run never
// returns without one.
func (c *Checker) Run() plugin.Result {
	if err := c.Validate(); err != nil {
		logrus.Debugf("Invalid configuration: %s", err)
		return plugin.Unknown(BadParamsMessage)
	}

	logrus.Debugf("Params: host=%s timeout=%s ports=%v optional=%v range=%q",
		c.config.Host, c.config.Timeout, c.config.Ports, c.config.Optional, c.config.Range)

	return c.scan()
}

func (c *Checker) scan() plugin.Result {
	tmpFile := filepath.Join(c.config.TempDir, tempPrefix+uuid.NewString())
	logrus.Debugf("Tmpfile is: %s", tmpFile)
	defer removeTemp(tmpFile)

	t := task.New(c.config.ScanCommand()...)
	th := task.NewTimeoutHandler(t.Terminate, c.config.Timeout)

	if err := t.Start(task.Options{Stdout: tmpFile, Stderr: os.DevNull}); err != nil {
		// The exit status carries the failure.
		logrus.Debugf("Scan failed to start: %s", err)
	}

	status, err := t.Wait(th.Check, c.config.PollInterval)
	logrus.Debugf("call duration: %s", th.Elapsed())
	if err != nil {
		return plugin.Unknown("%s program failed: %s", c.program(), err)
	}

	// Checked before the exit status, since a killed scanner fails too.
	if th.TimedOut() {
		return plugin.NewResult(plugin.StateCritical, "CRITICAL - Plugin timed out after %s seconds", seconds(c.config.Timeout))
	}

	if !status.Success() {
		return plugin.Unknown("%s program failed with code %d", c.program(), status.Code)
	}

	return c.classifyOutput(tmpFile)
}

func (c *Checker) classifyOutput(path string) plugin.Result {
	observed, err := readOpenPorts(path)
	if err != nil {
		logrus.Debugf("Failed to read scan output: %s", err)
		return plugin.Unknown("Unable to get output from %s", c.program())
	}

	logrus.Debugf("Ports found by %s: %s", c.program(), describePorts(observed))

	result := Classify(c.config.Host, c.config.Ports, c.config.Optional, observed)
	if len(c.config.Optional) > 0 {
		logrus.Debugf("optional ports removed: %s", describePorts(result.Open))
	}

	return result.Plugin()
}

func (c *Checker) program() string {
	return filepath.Base(c.config.Command[0])
}

func readOpenPorts(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lines, err := ParseReport(f)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read report")
	}

	return OpenPorts(lines), nil
}

// removeTemp deletes the scan output. A file already removed by a colliding
// invocation is not an error.
func removeTemp(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logrus.Debugf("Failed to remove %s: %s", path, err)
	}
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
