package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/zalepa/vacstat/stats"
)

// Table renders the statistics as a console table with a salary trend line.
func Table(s stats.Statistics) (string, error) {
	data := pterm.TableData{Headers(s.Profession)}
	salaries := make([]int, 0, len(s.Salary))
	for _, r := range s.Rows() {
		data = append(data, []string{
			strconv.Itoa(r.Year),
			formatInt(r.Salary),
			formatInt(r.ProfessionSalary),
			formatInt(r.Count),
			formatInt(r.ProfessionCount),
		})
		salaries = append(salaries, r.Salary)
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
	if err != nil {
		return "", err
	}
	return table + "\nTrend: " + sparkline(salaries) + "\n", nil
}

// WriteSeries prints the four year series, one labelled line each.
func WriteSeries(w io.Writer, s stats.Statistics) error {
	lines := []struct {
		label  string
		series stats.YearSeries
	}{
		{"Salary level by year", s.Salary},
		{"Vacancies by year", s.Count},
		{"Salary level by year for " + s.Profession, s.ProfessionSalary},
		{"Vacancies by year for " + s.Profession, s.ProfessionCount},
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "%s: %s\n", l.label, formatSeries(l.series)); err != nil {
			return err
		}
	}
	return nil
}

func formatSeries(s stats.YearSeries) string {
	parts := make([]string, 0, len(s))
	for _, y := range s.Years() {
		parts = append(parts, fmt.Sprintf("%d: %d", y, s[y]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
