package asterisk

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/liamg/nagprobe/plugin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type PeerType string

const (
	PeerSIP   PeerType = "sip"
	PeerPJSIP PeerType = "pjsip"
	PeerIAX   PeerType = "iax"
)

// Command returns the CLI command showing one peer, or all of them.
func (t PeerType) Command(peer string, all bool) string {
	var one, many string
	switch t {
	case PeerSIP:
		one, many = "sip show peer", "sip show peers"
	case PeerPJSIP:
		one, many = "pjsip show aor", "pjsip show aors"
	case PeerIAX:
		one, many = "iax2 show peer", "iax2 show peers"
	}

	if all {
		return many
	}
	return one + " " + peer
}

type Config struct {
	Host   string   `validate:"required"`
	Port   int      `validate:"min=1,max=65535"`
	User   string   `validate:"required"`
	Secret string   `validate:"required"`
	Type   PeerType `validate:"required,oneof=sip pjsip iax"`
	Peer   string   `validate:"required_without=All"`

	// All and Verbose print the raw command output instead of judging a peer.
	All     bool
	Verbose bool

	Thresholds plugin.Thresholds
	Timeout    time.Duration
}

type Check struct {
	config   Config
	validate *validator.Validate
}

func NewCheck(config Config) *Check {
	return &Check{
		config:   config,
		validate: validator.New(),
	}
}

func (c *Check) Validate() error {
	return c.validate.Struct(c.config)
}

func (c *Check) Run(ctx context.Context) plugin.Result {
	if err := c.Validate(); err != nil {
		return plugin.Unknown("UNKNOWN - %s", err)
	}

	client, err := Dial(ctx, addr(c.config.Host, c.config.Port), c.config.Timeout)
	if err != nil {
		logrus.Debugf("%s", err)
		return plugin.NewResult(plugin.StateCritical, "Critical - Cannot contact Asterisk!")
	}
	defer client.Close()

	if err := client.Login(c.config.User, c.config.Secret); err != nil {
		logrus.Debugf("Login failed: %s", err)
		if errors.Is(err, ErrAuthFailed) {
			return plugin.NewResult(plugin.StateCritical, "Critical - Authentication failed")
		}
		return plugin.NewResult(plugin.StateCritical, "Critical - Cannot contact Asterisk!")
	}

	output, err := client.Command(c.config.Type.Command(c.config.Peer, c.config.All))
	if err != nil {
		logrus.Debugf("Command failed: %s", err)
		return plugin.NewResult(plugin.StateCritical, "Critical - Cannot contact Asterisk!")
	}

	if err := client.Logoff(); err != nil {
		logrus.Debugf("Logoff failed: %s", err)
	}

	if c.config.All || c.config.Verbose {
		return plugin.NewResult(plugin.StateOK, "%s", output)
	}

	if c.config.Type == PeerPJSIP {
		return ClassifyAOR(c.config.Peer, output, c.config.Thresholds)
	}
	return ClassifyPeer(c.config.Peer, output)
}

// ClassifyPeer judges "sip show peer" and "iax2 show peer" output by its
// Status line.
func ClassifyPeer(peer, output string) plugin.Result {
	var status string
	for _, line := range strings.Split(output, "\n") {
		if idx := strings.Index(line, "Status"); idx >= 0 {
			status = strings.TrimSpace(line[idx:])
			break
		}
	}

	if status == "" {
		return plugin.Unknown("%s is not defined or never connected", peer)
	}

	value := status
	if _, v, ok := strings.Cut(status, ":"); ok {
		value = strings.TrimSpace(v)
	}

	switch {
	case strings.Contains(value, "OK"):
		return plugin.NewResult(plugin.StateOK, "%s", status)
	case strings.Contains(value, "LAGGED"):
		return plugin.NewResult(plugin.StateWarning, "%s", status)
	case strings.Contains(value, "UNKNOWN"):
		return plugin.NewResult(plugin.StateUnknown, "%s", status)
	case strings.Contains(strings.ToLower(value), "unmonitored"):
		return plugin.NewResult(plugin.StateWarning, "%s", status)
	}

	return plugin.NewResult(plugin.StateCritical, "%s", status)
}

// ClassifyAOR judges "pjsip show aor" output by the contact line of peer,
// e.g. "Contact:  1000/sip:1000@10.0.0.5:5060  4ef1a1ba3f Avail  12.345".
func ClassifyAOR(peer, output string, th plugin.Thresholds) plugin.Result {
	var fields []string
	for _, line := range strings.Split(output, "\n") {
		if idx := strings.Index(line, peer+"/"); idx >= 0 {
			fields = strings.Fields(line[idx:])
			break
		}
	}

	state := -1
	for i, f := range fields {
		if lf := strings.ToLower(f); strings.HasPrefix(lf, "avail") || strings.HasPrefix(lf, "unavail") {
			state = i
			break
		}
	}

	if state < 0 {
		return plugin.Unknown("%s is not defined or never connected", peer)
	}

	status := fields[state]
	if strings.HasPrefix(strings.ToLower(status), "unavail") {
		return plugin.NewResult(plugin.StateCritical, "%s %s", peer, status).
			WithPerfdata(plugin.Perfdata{Label: "RTT", UOM: "ms"})
	}

	var rtt float64
	if state+1 < len(fields) {
		if v, err := strconv.ParseFloat(fields[state+1], 64); err == nil {
			rtt = v
		}
	}

	zero := 0.0
	return plugin.NewResult(th.State(rtt), "%s %s RTT=%sms", peer, status, strconv.FormatFloat(rtt, 'f', -1, 64)).
		WithPerfdata(plugin.Perfdata{
			Label: "RTT",
			Value: rtt,
			UOM:   "ms",
			Warn:  th.Warn,
			Crit:  th.Crit,
			Min:   &zero,
		})
}

func (c Config) String() string {
	return fmt.Sprintf("%s@%s type=%s peer=%s", c.User, addr(c.Host, c.Port), c.Type, c.Peer)
}
