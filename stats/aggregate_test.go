package stats

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/zalepa/vacstat/currency"
)

func rubles(t *testing.T) *currency.Normalizer {
	t.Helper()
	tbl := currency.NewTable("RUR")
	require.NoError(t, tbl.Set(currency.Period{Year: 2021, Month: 1}, "USD", decimal.NewFromInt(70)))
	return currency.NewNormalizer(tbl, currency.ExcludeMissing)
}

func acc(sum int64, count int) Accumulator {
	return Accumulator{Sum: decimal.NewFromInt(sum), Count: count}
}

func TestAccumulatorAverage(t *testing.T) {
	tests := []struct {
		acc  Accumulator
		want int
	}{
		{acc(0, 0), 0},
		{acc(350000, 3), 116667},
		{acc(200000, 2), 100000},
		{Accumulator{Sum: decimal.RequireFromString("5.5"), Count: 2}, 3},
		{Accumulator{Sum: decimal.RequireFromString("2.5"), Count: 1}, 3},
		{Accumulator{Sum: decimal.RequireFromString("2.4999"), Count: 1}, 2},
	}
	for _, tt := range tests {
		if got := tt.acc.Average(); got != tt.want {
			t.Errorf("Average(%s/%d) = %d, want %d", tt.acc.Sum, tt.acc.Count, got, tt.want)
		}
	}
}

func TestAggregate(t *testing.T) {
	records := decode(t,
		row("Engineer", "100000", "200000", "RUR", "2021-01-10T00:00:00+0300"),
		row("Analyst", "50000", "", "RUR", "2021-01-11T00:00:00+0300"),
		row("Senior Engineer", "1000", "", "USD", "2021-01-12T00:00:00+0300"),
		row("engineer", "10", "", "RUR", "2021-01-13T00:00:00+0300"),
		row("Engineer", "1000", "", "EUR", "2021-01-14T00:00:00+0300"),
	)

	p, err := Aggregate(records, "Engineer", rubles(t))
	require.NoError(t, err)

	require.Equal(t, 1, p.Unresolved)
	require.Equal(t, 4, p.All[2021].Count)
	// Single bounds are halved.
	require.True(t, p.All[2021].Sum.Equal(decimal.NewFromInt(150000+25000+35000+5)))
	// Matching is case-sensitive.
	require.Equal(t, 2, p.Matched[2021].Count)
	require.True(t, p.Matched[2021].Sum.Equal(decimal.NewFromInt(150000+35000)))
}

func TestAggregateZeroPolicyKeepsCount(t *testing.T) {
	tbl := currency.NewTable("RUR")
	n := currency.NewNormalizer(tbl, currency.ZeroMissing)
	records := decode(t,
		row("Engineer", "100", "", "RUR", "2021-01-10T00:00:00+0300"),
		row("Engineer", "1000", "", "EUR", "2021-01-14T00:00:00+0300"),
	)
	p, err := Aggregate(records, "Engineer", n)
	require.NoError(t, err)
	require.Zero(t, p.Unresolved)
	require.Equal(t, 2, p.All[2021].Count)
	require.Equal(t, 25, p.All[2021].Average())
}

func TestMergeOrderIndependent(t *testing.T) {
	a := Partial{
		All:        map[int]Accumulator{2019: acc(100, 1), 2020: acc(300, 2)},
		Matched:    map[int]Accumulator{2020: acc(100, 1)},
		Unresolved: 1,
	}
	b := Partial{
		All:     map[int]Accumulator{2020: acc(500, 1), 2021: acc(70, 1)},
		Matched: map[int]Accumulator{2021: acc(70, 1)},
		Skipped: 2,
	}
	c := Partial{
		All:     map[int]Accumulator{2019: acc(1, 1)},
		Matched: map[int]Accumulator{},
	}

	want := Merge(a, b, c)
	require.Equal(t, 2, want.All[2019].Count)
	require.True(t, want.All[2020].Sum.Equal(decimal.NewFromInt(800)))
	require.Equal(t, 3, want.All[2020].Count)
	require.Equal(t, 1, want.Unresolved)
	require.Equal(t, 2, want.Skipped)

	for _, got := range []Partial{
		Merge(c, b, a),
		Merge(b, a, c),
		Merge(Merge(a, b), c),
		Merge(a, Merge(b, c)),
		Merge(Merge(c), Merge(a), Merge(b)),
	} {
		requireSamePartial(t, want, got)
	}

	// Inputs are not mutated.
	require.Len(t, a.All, 2)
	require.Equal(t, 2, a.All[2020].Count)
}

func requireSamePartial(t *testing.T, want, got Partial) {
	t.Helper()
	ws, wc, wps, wpc := want.Series()
	gs, gc, gps, gpc := got.Series()
	require.Equal(t, ws, gs)
	require.Equal(t, wc, gc)
	require.Equal(t, wps, gps)
	require.Equal(t, wpc, gpc)
	for year, a := range want.All {
		require.True(t, a.Sum.Equal(got.All[year].Sum), "year %d", year)
	}
	require.Equal(t, want.Unresolved, got.Unresolved)
	require.Equal(t, want.Skipped, got.Skipped)
}

func TestMergeEmpty(t *testing.T) {
	salary, count, profSalary, profCount := Merge().Series()
	require.Empty(t, salary)
	require.Empty(t, count)
	require.Empty(t, profSalary)
	require.Empty(t, profCount)
}

func TestYearSeriesYears(t *testing.T) {
	s := YearSeries{2022: 1, 2007: 5, 2015: 3}
	require.Equal(t, []int{2007, 2015, 2022}, s.Years())
}
