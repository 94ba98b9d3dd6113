package stats

import (
	"errors"
	"sort"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/zalepa/vacstat/currency"
	"github.com/zalepa/vacstat/vacancy"
)

// Accumulator is a running salary sum and posting count.
type Accumulator struct {
	Sum   decimal.Decimal
	Count int
}

// Add returns the accumulator with one more salary.
func (a Accumulator) Add(salary decimal.Decimal) Accumulator {
	return Accumulator{Sum: a.Sum.Add(salary), Count: a.Count + 1}
}

// Plus combines two accumulators.
func (a Accumulator) Plus(b Accumulator) Accumulator {
	return Accumulator{Sum: a.Sum.Add(b.Sum), Count: a.Count + b.Count}
}

// Average returns the rounded mean salary, or 0 when nothing was counted.
func (a Accumulator) Average() int {
	if a.Count == 0 {
		return 0
	}
	return int(a.Sum.Div(decimal.NewFromInt(int64(a.Count))).Round(0).IntPart())
}

// Partial is the aggregate of one or more partitions: accumulators per year
// for every posting and for postings matching the profession filter.
type Partial struct {
	All     map[int]Accumulator
	Matched map[int]Accumulator

	// Unresolved counts postings dropped for lack of an exchange rate.
	Unresolved int
	// Skipped counts postings without any salary bound.
	Skipped int
}

// NewPartial returns an empty Partial.
func NewPartial() Partial {
	return Partial{All: make(map[int]Accumulator), Matched: make(map[int]Accumulator)}
}

// Normalizer converts a salary fork into the base currency.
type Normalizer interface {
	Normalize(s vacancy.Salary, date civil.Date) (decimal.Decimal, error)
}

// Aggregate normalizes the salary of every record and accumulates it by
// publication year, once for all records and once more for records whose
// name contains profession. The match is a case-sensitive substring test.
func Aggregate(records []vacancy.Record, profession string, n Normalizer) (Partial, error) {
	p := NewPartial()
	for _, rec := range records {
		salary, err := n.Normalize(rec.Salary, rec.Date)
		switch {
		case err == nil:
		case errors.Is(err, currency.ErrUnresolvableRate):
			p.Unresolved++
			continue
		case errors.Is(err, currency.ErrNoSalary):
			p.Skipped++
			continue
		default:
			return Partial{}, err
		}

		year := rec.Year()
		p.All[year] = p.All[year].Add(salary)
		if strings.Contains(rec.Name, profession) {
			p.Matched[year] = p.Matched[year].Add(salary)
		}
	}
	return p, nil
}

// Merge adds partials together. The result does not depend on the order or
// grouping of the arguments, and the arguments are left untouched.
func Merge(partials ...Partial) Partial {
	out := NewPartial()
	for _, p := range partials {
		for year, a := range p.All {
			out.All[year] = out.All[year].Plus(a)
		}
		for year, a := range p.Matched {
			out.Matched[year] = out.Matched[year].Plus(a)
		}
		out.Unresolved += p.Unresolved
		out.Skipped += p.Skipped
	}
	return out
}

// Series converts the accumulators into average salary and count series for
// all postings and for matched postings.
func (p Partial) Series() (salary, count, profSalary, profCount YearSeries) {
	salary, count = seriesOf(p.All)
	profSalary, profCount = seriesOf(p.Matched)
	return salary, count, profSalary, profCount
}

func seriesOf(accs map[int]Accumulator) (YearSeries, YearSeries) {
	avg := make(YearSeries, len(accs))
	count := make(YearSeries, len(accs))
	for year, a := range accs {
		avg[year] = a.Average()
		count[year] = a.Count
	}
	return avg, count
}

// YearSeries maps a year to an integer value.
type YearSeries map[int]int

// Years returns the keys in ascending order.
func (s YearSeries) Years() []int {
	years := make([]int, 0, len(s))
	for y := range s {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}
