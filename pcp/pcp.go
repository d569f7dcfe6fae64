// Package pcp checks a Performance Co-Pilot metric by sampling it once with
// pmval and comparing the value against warning and critical ranges.
package pcp

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/liamg/nagprobe/plugin"
	"github.com/liamg/nagprobe/task"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var ErrNoValue = errors.New("no value in pmval output")

const tempPrefix = "check_pcpmetric_tmp."

type Config struct {
	Pmval    string `validate:"required"`
	Host     string
	Metric   string `validate:"required"`
	Instance string

	Thresholds plugin.Thresholds

	Timeout      time.Duration
	PollInterval time.Duration
	TempDir      string `validate:"required"`
}

// Command builds the pmval invocation sampling the metric once.
func (c Config) Command() []string {
	argv := []string{c.Pmval, "-s", "1"}
	if c.Host != "" {
		argv = append(argv, "-h", c.Host)
	}
	if c.Instance != "" {
		argv = append(argv, "-i", c.Instance)
	}
	return append(argv, c.Metric)
}

type Check struct {
	config   Config
	validate *validator.Validate
}

func NewCheck(config Config) *Check {
	if config.TempDir == "" {
		config.TempDir = os.TempDir()
	}
	return &Check{
		config:   config,
		validate: validator.New(),
	}
}

func (c *Check) Validate() error {
	return c.validate.Struct(c.config)
}

func (c *Check) Run() plugin.Result {
	if err := c.Validate(); err != nil {
		return plugin.Unknown("PCP UNKNOWN - %s", err)
	}

	output := filepath.Join(c.config.TempDir, tempPrefix+uuid.NewString())
	defer func() {
		if err := os.Remove(output); err != nil && !os.IsNotExist(err) {
			logrus.Debugf("Failed to remove %s: %s", output, err)
		}
	}()

	t := task.New(c.config.Command()...)
	th := task.NewTimeoutHandler(t.Terminate, c.config.Timeout)

	if err := t.Start(task.Options{Stdout: output, Stderr: output}); err != nil {
		logrus.Debugf("pmval failed to start: %s", err)
	}

	status, err := t.Wait(th.Check, c.config.PollInterval)
	if err != nil {
		return plugin.Unknown("PCP UNKNOWN - %s", err)
	}
	if th.TimedOut() {
		return plugin.NewResult(plugin.StateCritical, "PCP CRITICAL - pmval timed out after %s seconds",
			strconv.FormatFloat(c.config.Timeout.Seconds(), 'f', -1, 64))
	}

	f, err := os.Open(output)
	if err != nil {
		return plugin.Unknown("PCP UNKNOWN - unable to get output from pmval")
	}
	defer f.Close()

	value, err := LastValue(f)
	if !status.Success() {
		return plugin.Unknown("PCP UNKNOWN - pmval failed with code %d", status.Code)
	}
	if err != nil {
		return plugin.Unknown("PCP UNKNOWN - %s", err)
	}

	return c.evaluate(value)
}

func (c *Check) evaluate(value float64) plugin.Result {
	state := c.config.Thresholds.State(value)
	formatted := strconv.FormatFloat(value, 'f', -1, 64)

	return plugin.NewResult(state, "PCP %s - %s = %s", state, c.config.Metric, formatted).
		WithPerfdata(plugin.Perfdata{
			Label: c.config.Metric,
			Value: value,
			Warn:  c.config.Thresholds.Warn,
			Crit:  c.config.Thresholds.Crit,
		})
}

// LastValue returns the first field of the last non-empty line of pmval
// output, which holds the sampled value.
func LastValue(r io.Reader) (float64, error) {
	var last string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			last = line
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, errors.Wrap(err, "failed to read pmval output")
	}

	if last == "" {
		return 0, ErrNoValue
	}

	field := strings.Fields(last)[0]
	value, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q: %s", field, last)
	}

	return value, nil
}
