package plugin

import (
	"strconv"
	"strings"
)

// Perfdata is one label=value[UOM];[warn];[crit];[min];[max] entry.
type Perfdata struct {
	Label string
	Value float64
	UOM   string
	Warn  *Range
	Crit  *Range
	Min   *float64
	Max   *float64
}

func (p Perfdata) String() string {
	label := p.Label
	if strings.ContainsAny(label, " ='") {
		label = "'" + strings.ReplaceAll(label, "'", "''") + "'"
	}

	fields := []string{
		label + "=" + formatFloat(p.Value) + p.UOM,
		rangeField(p.Warn),
		rangeField(p.Crit),
		floatField(p.Min),
		floatField(p.Max),
	}

	// trailing empty fields are optional
	end := len(fields)
	for end > 1 && fields[end-1] == "" {
		end--
	}

	return strings.Join(fields[:end], ";")
}

func rangeField(r *Range) string {
	if r == nil {
		return ""
	}
	return r.String()
}

func floatField(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
