package currency

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// DefaultBase is the code all salaries are normalized to.
const DefaultBase = "RUR"

// Period identifies a calendar month.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the month containing d.
func PeriodOf(d civil.Date) Period {
	return Period{Year: d.Year, Month: d.Month}
}

// ParsePeriod accepts "YYYY-MM" and the legacy "MM/YYYY" form.
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	var year, month string
	switch {
	case len(s) == 7 && s[4] == '-':
		year, month = s[:4], s[5:]
	case len(s) == 7 && s[2] == '/':
		month, year = s[:2], s[3:]
	default:
		return Period{}, fmt.Errorf("invalid period %q", s)
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q", s)
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return Period{}, fmt.Errorf("invalid period %q", s)
	}
	return Period{Year: y, Month: time.Month(m)}, nil
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Before reports whether p is an earlier month than q.
func (p Period) Before(q Period) bool {
	if p.Year != q.Year {
		return p.Year < q.Year
	}
	return p.Month < q.Month
}

// Next returns the following month.
func (p Period) Next() Period {
	if p.Month == time.December {
		return Period{Year: p.Year + 1, Month: time.January}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// Span returns every month from first to last inclusive.
func Span(first, last Period) []Period {
	var out []Period
	for p := first; !last.Before(p); p = p.Next() {
		out = append(out, p)
	}
	return out
}

// Table holds monthly multipliers that convert an amount in a currency into
// the base currency.
type Table struct {
	base  string
	rates map[Period]map[string]decimal.Decimal
	codes map[string]bool
}

// NewTable returns an empty table for the given base currency.
func NewTable(base string) *Table {
	if base == "" {
		base = DefaultBase
	}
	return &Table{
		base:  base,
		rates: make(map[Period]map[string]decimal.Decimal),
		codes: make(map[string]bool),
	}
}

// Base returns the base currency code.
func (t *Table) Base() string {
	return t.base
}

// Set stores a multiplier. Non-positive multipliers are rejected.
func (t *Table) Set(p Period, code string, multiplier decimal.Decimal) error {
	if !multiplier.IsPositive() {
		return fmt.Errorf("%s %s: multiplier must be positive, got %s", p, code, multiplier)
	}
	m, ok := t.rates[p]
	if !ok {
		m = make(map[string]decimal.Decimal)
		t.rates[p] = m
	}
	m[code] = multiplier
	t.codes[code] = true
	return nil
}

// Lookup returns the multiplier for code in period p. The base currency
// always resolves to 1.
func (t *Table) Lookup(p Period, code string) (decimal.Decimal, bool) {
	if code == t.base {
		return decimal.NewFromInt(1), true
	}
	v, ok := t.rates[p][code]
	return v, ok
}

// Currencies returns the codes with at least one entry, sorted.
func (t *Table) Currencies() []string {
	out := make([]string, 0, len(t.codes))
	for c := range t.codes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Periods returns the months with at least one entry, ascending.
func (t *Table) Periods() []Period {
	out := make([]Period, 0, len(t.rates))
	for p := range t.rates {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Len returns the number of (period, currency) entries.
func (t *Table) Len() int {
	n := 0
	for _, m := range t.rates {
		n += len(m)
	}
	return n
}

// ReadCSV loads a table whose first column is "date" and whose remaining
// columns are currency codes. Empty and zero cells mean the rate is unknown.
func ReadCSV(r io.Reader, base string) (*Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("rates table is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read rates header: %w", err)
	}

	dateCol := -1
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		header[i] = name
		if name == "date" {
			dateCol = i
		}
	}
	if dateCol < 0 {
		return nil, errors.New(`rates table has no "date" column`)
	}

	t := NewTable(base)
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return t, nil
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("rates line %d: %w", line, err)
		}
		p, err := ParsePeriod(row[dateCol])
		if err != nil {
			return nil, fmt.Errorf("rates line %d: %w", line, err)
		}
		for i, cell := range row {
			code := header[i]
			if i == dateCol || code == "" || code == t.Base() {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			v, err := decimal.NewFromString(strings.ReplaceAll(cell, ",", "."))
			if err != nil {
				return nil, fmt.Errorf("rates line %d, %s: %w", line, code, err)
			}
			if v.IsZero() {
				continue
			}
			if err := t.Set(p, code, v); err != nil {
				return nil, fmt.Errorf("rates line %d: %w", line, err)
			}
		}
	}
}

// LoadFile reads a rates table from a CSV file.
func LoadFile(path, base string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rates: %w", err)
	}
	defer f.Close()

	t, err := ReadCSV(f, base)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// WriteCSV writes the table with one row per month and one column per
// currency. The base currency column is always present and holds 1.
func (t *Table) WriteCSV(w io.Writer) error {
	codes := []string{t.base}
	for _, c := range t.Currencies() {
		if c != t.base {
			codes = append(codes, c)
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"date"}, codes...)); err != nil {
		return err
	}
	for _, p := range t.Periods() {
		row := []string{p.String()}
		for _, c := range codes {
			if v, ok := t.Lookup(p, c); ok {
				row = append(row, v.String())
			} else {
				row = append(row, "")
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveFile writes the table to path.
func (t *Table) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := t.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
