package stats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReconcile(t *testing.T) {
	full := YearSeries{2019: 10, 2020: 20, 2021: 30}
	avg := YearSeries{2020: 5}
	count := YearSeries{2020: 1}

	gotAvg, gotCount := Reconcile(full.Years(), avg, count)
	require.Equal(t, YearSeries{2019: 0, 2020: 5, 2021: 0}, gotAvg)
	require.Equal(t, YearSeries{2019: 0, 2020: 1, 2021: 0}, gotCount)
	require.Equal(t, full.Years(), gotAvg.Years())

	// Inputs are left as they were.
	require.Equal(t, YearSeries{2020: 5}, avg)
	require.Equal(t, YearSeries{2020: 1}, count)
}

func TestReconcileEmpty(t *testing.T) {
	avg, count := Reconcile(nil, nil, nil)
	require.Empty(t, avg)
	require.Empty(t, count)
}

func TestNewStatisticsAlignsSeries(t *testing.T) {
	p := Partial{
		All: map[int]Accumulator{
			2018: acc(300, 3),
			2019: acc(100, 1),
			2020: acc(500, 2),
		},
		Matched: map[int]Accumulator{2019: acc(100, 1)},
	}
	s := NewStatistics("Go", p)

	require.Equal(t, []int{2018, 2019, 2020}, s.Years())
	require.Equal(t, s.Salary.Years(), s.ProfessionSalary.Years())
	require.Equal(t, s.Count.Years(), s.ProfessionCount.Years())
	require.Equal(t, []Row{
		{Year: 2018, Salary: 100, Count: 3},
		{Year: 2019, Salary: 100, ProfessionSalary: 100, Count: 1, ProfessionCount: 1},
		{Year: 2020, Salary: 250, Count: 2},
	}, s.Rows())
}

func TestNewStatisticsEmpty(t *testing.T) {
	s := NewStatistics("Go", NewPartial())
	require.True(t, s.Empty())
	require.Empty(t, s.Rows())
}
