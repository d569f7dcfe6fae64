package plugin

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var ErrRangeUnparseable = errors.New("range format incorrect")

// Range is a threshold in the standard plugin syntax:
//
//	10      alert if < 0 or > 10
//	10:     alert if < 10
//	~:10    alert if > 10
//	10:20   alert if < 10 or > 20
//	@10:20  alert if >= 10 and <= 20
type Range struct {
	Start, End float64
	Inside     bool

	text string
}

func ParseRange(s string) (*Range, error) {
	text := s
	r := &Range{End: math.Inf(1)}

	if strings.HasPrefix(s, "@") {
		r.Inside = true
		s = s[1:]
	}

	end := s
	if idx := strings.Index(s, ":"); idx >= 0 {
		start := s[:idx]
		end = s[idx+1:]
		switch start {
		case "~":
			r.Start = math.Inf(-1)
		case "":
		default:
			v, err := strconv.ParseFloat(start, 64)
			if err != nil {
				return nil, errors.Wrapf(ErrRangeUnparseable, "%q", text)
			}
			r.Start = v
		}
	}

	if end != "" {
		v, err := strconv.ParseFloat(end, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrRangeUnparseable, "%q", text)
		}
		r.End = v
	}

	if r.Start > r.End {
		return nil, errors.Wrapf(ErrRangeUnparseable, "%q: start is greater than end", text)
	}

	r.text = text
	return r, nil
}

// Alert reports whether v falls in the alerting part of the range.
func (r *Range) Alert(v float64) bool {
	within := r.Start <= v && v <= r.End
	if r.Inside {
		return within
	}
	return !within
}

func (r *Range) String() string {
	if r.text != "" {
		return r.text
	}

	var sb strings.Builder
	if r.Inside {
		sb.WriteByte('@')
	}
	switch {
	case math.IsInf(r.Start, -1):
		sb.WriteString("~:")
	case r.Start != 0:
		sb.WriteString(formatFloat(r.Start) + ":")
	}
	if !math.IsInf(r.End, 1) {
		sb.WriteString(formatFloat(r.End))
	} else if r.Start == 0 {
		sb.WriteString("0:")
	}
	return sb.String()
}

// Thresholds pairs a warning and a critical range. Either may be nil.
type Thresholds struct {
	Warn *Range
	Crit *Range
}

func ParseThresholds(warn, crit string) (Thresholds, error) {
	var th Thresholds
	var err error

	if warn != "" {
		if th.Warn, err = ParseRange(warn); err != nil {
			return th, errors.Wrap(err, "warning")
		}
	}
	if crit != "" {
		if th.Crit, err = ParseRange(crit); err != nil {
			return th, errors.Wrap(err, "critical")
		}
	}
	return th, nil
}

// State checks critical before warning.
func (th Thresholds) State(v float64) State {
	if th.Crit != nil && th.Crit.Alert(v) {
		return StateCritical
	}
	if th.Warn != nil && th.Warn.Alert(v) {
		return StateWarning
	}
	return StateOK
}
