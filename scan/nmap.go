package scan

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

const maxReportLine = 1024 * 1024

// ParseReport extracts the port lines from a scanner's text report. It is a
// best-effort scrape of free text: any line that does not start with a
// numeric port/protocol token is skipped.
func ParseReport(r io.Reader) ([]PortLine, error) {
	var lines []PortLine

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxReportLine)
	for scanner.Scan() {
		if pl, ok := parsePortLine(scanner.Text()); ok {
			lines = append(lines, pl)
		}
	}

	return lines, scanner.Err()
}

func parsePortLine(line string) (PortLine, bool) {
	if len(line) < 2 {
		return PortLine{}, false
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return PortLine{}, false
	}

	idx := strings.Index(fields[0], "/")
	if idx < 1 {
		return PortLine{}, false
	}

	port, err := strconv.Atoi(fields[0][:idx])
	if err != nil || port < 0 {
		return PortLine{}, false
	}

	return PortLine{
		Port:     port,
		Protocol: fields[0][idx+1:],
		State:    portState(fields[1:]),
	}, true
}

// OpenPorts returns the distinct open ports of a report in the order they
// were listed.
func OpenPorts(lines []PortLine) []int {
	seen := map[int]bool{}
	open := []int{}
	for _, pl := range lines {
		if pl.State != PortOpen || seen[pl.Port] {
			continue
		}
		seen[pl.Port] = true
		open = append(open, pl.Port)
	}
	return open
}
