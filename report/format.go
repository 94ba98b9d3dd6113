// Package report renders year statistics as a spreadsheet, bar charts, a PDF
// report and console tables.
package report

import (
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Headers returns the column titles shared by every tabular rendering.
func Headers(profession string) []string {
	return []string{
		"Year",
		"Average salary",
		"Average salary - " + profession,
		"Vacancies",
		"Vacancies - " + profession,
	}
}

func formatInt(v int) string {
	return humanize.Comma(int64(v))
}

func formatCompact(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e6:
		return strconv.FormatFloat(v/1e6, 'f', 1, 64) + "M"
	case abs >= 1e3:
		return strconv.FormatFloat(v/1e3, 'f', 0, 64) + "k"
	default:
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
}

// pdfSafe replaces dashes the vgpdf fonts do not render.
func pdfSafe(s string) string {
	return strings.NewReplacer("\u2014", "-", "\u2013", "-").Replace(s)
}

func sparkline(values []int) string {
	blocks := []rune("▁▂▃▄▅▆▇█")
	n := len(blocks)
	if len(values) == 0 {
		return ""
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	spread := hi - lo
	var sb strings.Builder
	for _, v := range values {
		idx := n / 2
		if spread > 0 {
			idx = min((v-lo)*(n-1)/spread, n-1)
		}
		sb.WriteRune(blocks[idx])
	}
	return sb.String()
}
