// Package humanize renders uptimes and byte counts for the panel.
package humanize

import (
	"math"
	"strconv"
	"strings"
)

var durationUnits = []struct {
	seconds float64
	suffix  string
}{
	{604800, "w"},
	{86400, "d"},
	{3600, "h"},
	{60, "m"},
}

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// Duration formats seconds as e.g. "1w 1d 1h 1m". Seconds below a minute are
// dropped and an all-zero duration is the empty string.
func Duration(seconds float32) string {
	rest := float64(seconds)
	if !(rest > 0) || math.IsInf(rest, 1) {
		return ""
	}

	parts := make([]string, 0, len(durationUnits))
	for _, u := range durationUnits {
		n := math.Floor(rest / u.seconds)
		rest = math.Mod(rest, u.seconds)
		if n > 0 {
			parts = append(parts, strconv.FormatFloat(n, 'f', 0, 64)+u.suffix)
		}
	}
	return strings.Join(parts, " ")
}

// Bytes formats a byte count with decimal units, e.g. "1.5 MB". TB is the
// largest unit.
func Bytes(bytes float32) string {
	size := float64(bytes)
	unit := 0
	for size >= 1000 && unit < len(byteUnits)-1 {
		size /= 1000
		unit++
	}

	rounded := math.Round(size*100) / 100
	if rounded == 0 {
		// avoid "-0"
		rounded = 0
	}
	return strconv.FormatFloat(rounded, 'f', -1, 64) + " " + byteUnits[unit]
}
