package tui

import (
	"fmt"
	"strings"
	"time"
)

type ageUnit struct {
	name    string
	seconds int64
}

// Calendar-free approximations: a month is 30 days, a year 365.
var ageUnits = []ageUnit{
	{"year", 365 * 24 * 3600},
	{"month", 30 * 24 * 3600},
	{"week", 7 * 24 * 3600},
	{"day", 24 * 3600},
	{"hour", 3600},
	{"minute", 60},
	{"second", 1},
}

// ApproximateAge renders the distance between two times as the largest
// non-zero units, at most precision adjacent unit slots, e.g.
// "1 hour, 22 minutes". Zero or future distances render as "0 seconds".
func ApproximateAge(from, to time.Time, precision int) string {
	if precision <= 0 {
		precision = 2
	}

	rem := to.Unix() - from.Unix()
	if rem <= 0 {
		return "0 seconds"
	}

	var parts []string
	first := -1
	for i, unit := range ageUnits {
		v := rem / unit.seconds
		rem -= v * unit.seconds
		if v == 0 {
			continue
		}
		if first == -1 {
			first = i
		} else if first+precision <= i {
			break
		}
		label := unit.name
		if v != 1 {
			label += "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s", v, label))
	}

	if len(parts) == 0 {
		return "0 seconds"
	}
	return strings.Join(parts, ", ")
}
