package output

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	subSecondPrecision = 5
	defaultPrecision   = 2
)

// FormatDuration renders d the way test summaries print it, for example
// "0.00123 seconds", "1 second" or "2 minutes 5.5 seconds".
func FormatDuration(d time.Duration) string {
	secs := d.Seconds()

	var precision int
	switch {
	case secs < 1:
		precision = subSecondPrecision
	case secs < 120:
		precision = defaultPrecision
	case secs < 300:
		precision = 1
	default:
		precision = 0
	}

	if secs > 60 {
		minutes := int64(math.Round(secs)) / 60
		rest := secs - float64(minutes*60)
		return pluralize(strconv.FormatInt(minutes, 10), "minute") + " " +
			pluralize(formatSeconds(rest, precision), "second")
	}
	return pluralize(formatSeconds(secs, precision), "second")
}

func formatSeconds(secs float64, precision int) string {
	if secs < 0 {
		return "0"
	}
	return stripTrailingZeroes(strconv.FormatFloat(secs, 'f', precision, 64))
}

func stripTrailingZeroes(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func pluralize(count, unit string) string {
	if f, err := strconv.ParseFloat(count, 64); err == nil && f == 1 {
		return count + " " + unit
	}
	return count + " " + unit + "s"
}
