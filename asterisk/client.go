// Package asterisk checks the registration state of an Asterisk peer over
// the Asterisk Manager Interface (AMI).
package asterisk

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var ErrAuthFailed = errors.New("authentication failed")

const endCommand = "--END COMMAND--"

// Client is a minimal AMI client: it logs in, runs CLI commands and logs off.
type Client struct {
	conn net.Conn
	r    *bufio.Reader
}

// Dial connects to addr. The whole session must finish within timeout.
func Dial(ctx context.Context, addr string, timeout time.Duration) (*Client, error) {
	d := net.Dialer{Timeout: timeout}

	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", addr)
	}

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		conn.Close()
		return nil, err
	}

	return &Client{
		conn: conn,
		r:    bufio.NewReader(conn),
	}, nil
}

func (c *Client) send(headers ...string) error {
	var sb strings.Builder
	for _, h := range headers {
		sb.WriteString(h)
		sb.WriteString("\r\n")
	}
	sb.WriteString("\r\n")

	_, err := c.conn.Write([]byte(sb.String()))
	return errors.Wrap(err, "failed to send action")
}

func (c *Client) readLine() (string, error) {
	line, err := c.r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readMessage reads a response up to the blank line terminating it. The
// greeting banner, if still unread, is skipped.
func (c *Client) readMessage() (map[string]string, error) {
	headers := map[string]string{}

	for {
		line, err := c.readLine()
		if err != nil {
			return nil, errors.Wrap(err, "failed to read response")
		}
		if line == "" {
			if len(headers) == 0 {
				continue
			}
			return headers, nil
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			logrus.Debugf("AMI: %s", line)
			continue
		}
		headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
}

// Login authenticates with the manager and turns events off.
func (c *Client) Login(user, secret string) error {
	if err := c.send("Action: login", "Username: "+user, "Secret: "+secret, "Events: off"); err != nil {
		return err
	}

	resp, err := c.readMessage()
	if err != nil {
		return err
	}

	if !strings.Contains(strings.ToLower(resp["Message"]), "accepted") {
		return errors.Wrap(ErrAuthFailed, resp["Message"])
	}

	return nil
}

// Command runs a CLI command and returns its output. Both the legacy
// "Response: Follows" framing and the "Output:" header framing are handled.
func (c *Client) Command(command string) (string, error) {
	if err := c.send("Action: command", "Command: "+command); err != nil {
		return "", err
	}

	var out []string
	follows := false
	started := false

	for {
		line, err := c.readLine()
		if err != nil {
			if len(out) > 0 {
				// Connection closed after the output.
				return strings.Join(out, "\n"), nil
			}
			return "", errors.Wrap(err, "failed to read command output")
		}

		switch {
		case strings.Contains(line, "END COMMAND"):
			if before, _, ok := strings.Cut(line, endCommand); ok && strings.TrimSpace(before) != "" {
				out = append(out, before)
			}
			return strings.Join(out, "\n"), nil
		case !started && line == "":
			continue
		case strings.HasPrefix(line, "Response:"):
			started = true
			follows = strings.Contains(line, "Follows")
		case strings.HasPrefix(line, "Privilege:"), strings.HasPrefix(line, "ActionID:"):
		case strings.HasPrefix(line, "Output:"):
			out = append(out, strings.TrimPrefix(strings.TrimPrefix(line, "Output:"), " "))
		case line == "" && !follows:
			return strings.Join(out, "\n"), nil
		case follows:
			out = append(out, line)
		}
	}
}

// Logoff ends the session and closes the connection.
func (c *Client) Logoff() error {
	defer c.conn.Close()

	if err := c.send("Action: logoff"); err != nil {
		return err
	}
	if _, err := c.readMessage(); err != nil {
		logrus.Debugf("AMI logoff: %s", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func addr(host string, port int) string {
	return net.JoinHostPort(host, fmt.Sprint(port))
}
