package scan

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/gopacket/layers"
)

// DescribePort returns the IANA service name registered for a TCP port, or ""
// if there is none.
func DescribePort(port int) string {
	if s, ok := layers.TCPPortNames[layers.TCPPort(port)]; ok {
		return s
	}

	return ""
}

func describePorts(ports []int) string {
	described := make([]string, len(ports))
	for i, port := range ports {
		if name := DescribePort(port); name != "" {
			described[i] = fmt.Sprintf("%d(%s)", port, name)
		} else {
			described[i] = strconv.Itoa(port)
		}
	}
	return "[" + strings.Join(described, " ") + "]"
}

// ParsePortList parses a comma and/or whitespace separated list of ports,
// e.g. "22,80 443".
func ParsePortList(selection string) ([]int, error) {
	ports := []int{}
	for _, r := range strings.FieldsFunc(selection, isListSeparator) {
		port, err := strconv.Atoi(r)
		if err != nil {
			return nil, fmt.Errorf("Invalid port number: '%s'", r)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("Port out of range: %d", port)
		}
		ports = append(ports, port)
	}
	return ports, nil
}

func isListSeparator(r rune) bool {
	return r == ',' || r == ' ' || r == '\t' || r == '\n'
}

// NormalizeRange translates the colon range syntax accepted on the command
// line (":1024,3000:7000") to the dash syntax nmap expects.
func NormalizeRange(r string) string {
	return strings.ReplaceAll(strings.TrimSpace(r), ":", "-")
}
