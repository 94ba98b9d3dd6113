package stats

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/zalepa/vacstat/currency"
	"github.com/zalepa/vacstat/vacancy"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const datasetHeader = "name,salary_from,salary_to,salary_currency,area_name,published_at\n"

func writeDataset(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vacancies.csv")
	require.NoError(t, os.WriteFile(path, []byte(datasetHeader+strings.Join(lines, "\n")+"\n"), 0644))
	return path
}

func runPipeline(t *testing.T, opts Options, n Normalizer, path string) (Result, error) {
	t.Helper()
	if n == nil {
		n = currency.NewNormalizer(currency.NewTable("RUR"), currency.ExcludeMissing)
	}
	return NewPipeline(opts, n, zaptest.NewLogger(t)).Run(context.Background(), path)
}

var endToEndRows = []string{
	"Engineer,100000,200000,RUR,Moscow,2021-03-01T10:00:00+0300",
	"Analyst,50000,,RUR,Kazan,2021-04-01T10:00:00+0300",
	"Engineer,300000,,RUR,Moscow,2022-01-15T10:00:00+0300",
}

func TestPipelineEndToEnd(t *testing.T) {
	path := writeDataset(t, endToEndRows...)
	res, err := runPipeline(t, Options{Profession: "Engineer", Workers: 2, Sort: true}, nil, path)
	require.NoError(t, err)

	// Single bounds are halved: 2021 averages 150000 and 25000.
	s := res.Statistics
	require.Equal(t, YearSeries{2021: 87500, 2022: 150000}, s.Salary)
	require.Equal(t, YearSeries{2021: 2, 2022: 1}, s.Count)
	require.Equal(t, YearSeries{2021: 150000, 2022: 150000}, s.ProfessionSalary)
	require.Equal(t, YearSeries{2021: 1, 2022: 1}, s.ProfessionCount)
}

func TestPipelineEndToEndKeepSingle(t *testing.T) {
	path := writeDataset(t, endToEndRows...)
	dir := filepath.Join(t.TempDir(), "vacancies_by_year")
	n := currency.NewNormalizer(currency.NewTable("RUR"), currency.ExcludeMissing)
	n.SingleBound = currency.KeepSingle

	res, err := runPipeline(t, Options{Profession: "Engineer", Dir: dir, Workers: 2, Sort: true}, n, path)
	require.NoError(t, err)

	s := res.Statistics
	require.Equal(t, YearSeries{2021: 100000, 2022: 300000}, s.Salary)
	require.Equal(t, YearSeries{2021: 2, 2022: 1}, s.Count)
	require.Equal(t, YearSeries{2021: 150000, 2022: 300000}, s.ProfessionSalary)
	require.Equal(t, YearSeries{2021: 1, 2022: 1}, s.ProfessionCount)

	require.Equal(t, 3, res.Rows)
	require.Zero(t, res.Malformed)
	require.Len(t, res.Partitions, 2)
	for _, f := range res.Partitions {
		require.FileExists(t, f.Path)
	}
	require.FileExists(t, filepath.Join(dir, "vacancies_2022.csv"))
}

func TestPipelineFillsYearsWithoutMatches(t *testing.T) {
	path := writeDataset(t,
		"Designer,100,,RUR,Moscow,2019-03-01T10:00:00+0300",
		"Engineer,200,,RUR,Moscow,2020-03-01T10:00:00+0300",
		"Designer,300,,RUR,Moscow,2021-03-01T10:00:00+0300",
	)
	res, err := runPipeline(t, Options{Profession: "Engineer", Sort: true}, nil, path)
	require.NoError(t, err)

	s := res.Statistics
	require.Equal(t, YearSeries{2019: 0, 2020: 100, 2021: 0}, s.ProfessionSalary)
	require.Equal(t, YearSeries{2019: 0, 2020: 1, 2021: 0}, s.ProfessionCount)
	require.Equal(t, s.Years(), s.ProfessionSalary.Years())
}

func TestPipelineCountsDroppedRows(t *testing.T) {
	tbl := currency.NewTable("RUR")
	require.NoError(t, tbl.Set(currency.Period{Year: 2021, Month: 3}, "USD", decimal.NewFromInt(75)))
	n := currency.NewNormalizer(tbl, currency.ExcludeMissing)

	path := writeDataset(t,
		"Engineer,1000,2000,USD,Moscow,2021-03-01T10:00:00+0300",
		"Engineer,1000,,USD,Moscow,2021-04-01T10:00:00+0300",
		"Engineer,,,RUR,Moscow,2021-04-02T10:00:00+0300",
		"Engineer,1,2",
	)
	res, err := runPipeline(t, Options{Profession: "Engineer", Sort: true}, n, path)
	require.NoError(t, err)
	require.Equal(t, 4, res.Rows)
	require.Equal(t, 2, res.Malformed)
	require.Equal(t, 1, res.Unresolved)
	require.Equal(t, YearSeries{2021: 112500}, res.Statistics.Salary)
	require.Equal(t, YearSeries{2021: 1}, res.Statistics.Count)
}

func TestPipelineDropsNonFiniteAmounts(t *testing.T) {
	path := writeDataset(t,
		"Engineer,NaN,,RUR,Moscow,2021-05-01T10:00:00+0300",
		"Engineer,100,Inf,RUR,Moscow,2021-05-02T10:00:00+0300",
		"Engineer,100,200,RUR,Moscow,2021-05-03T10:00:00+0300",
	)
	res, err := runPipeline(t, Options{Profession: "Engineer", Sort: true}, nil, path)
	require.NoError(t, err)
	require.Equal(t, 2, res.Malformed)
	require.Equal(t, YearSeries{2021: 150}, res.Statistics.Salary)
}

func TestPipelineNestedMarkup(t *testing.T) {
	path := writeDataset(t,
		"<<b>Engineer</b>,100,200,RUR,Moscow,2021-05-01T10:00:00+0300",
	)
	res, err := runPipeline(t, Options{Profession: "Engineer", Sort: true}, nil, path)
	require.NoError(t, err)
	require.Zero(t, res.Malformed)
	require.Equal(t, YearSeries{2021: 1}, res.Statistics.ProfessionCount)
}

func TestPipelineEmptyDataset(t *testing.T) {
	path := writeDataset(t, "Broken,,,RUR,Moscow,2021-04-02T10:00:00+0300")
	res, err := runPipeline(t, Options{Profession: "Engineer", Sort: true}, nil, path)
	require.NoError(t, err)
	require.True(t, res.Statistics.Empty())
	require.Empty(t, res.Partitions)
	require.Equal(t, 1, res.Malformed)
}

func TestPipelineUnsortedWithoutSort(t *testing.T) {
	path := writeDataset(t,
		"Engineer,100,,RUR,Moscow,2021-03-01T10:00:00+0300",
		"Engineer,100,,RUR,Moscow,2022-03-01T10:00:00+0300",
		"Engineer,100,,RUR,Moscow,2021-05-01T10:00:00+0300",
	)
	_, err := runPipeline(t, Options{Profession: "Engineer"}, nil, path)
	require.ErrorIs(t, err, ErrUnsortedInput)

	res, err := runPipeline(t, Options{Profession: "Engineer", Sort: true}, nil, path)
	require.NoError(t, err)
	require.Equal(t, YearSeries{2021: 2, 2022: 1}, res.Statistics.Count)
}

var errBroken = errors.New("rate service exploded")

type failingNormalizer struct {
	year  int
	panic bool
}

func (f failingNormalizer) Normalize(s vacancy.Salary, d civil.Date) (decimal.Decimal, error) {
	if d.Year == f.year {
		if f.panic {
			panic("boom")
		}
		return decimal.Zero, errBroken
	}
	return decimal.NewFromFloat(s.From.Value), nil
}

func TestPipelineWorkerFailureAborts(t *testing.T) {
	path := writeDataset(t,
		"Engineer,100,,RUR,Moscow,2020-03-01T10:00:00+0300",
		"Engineer,100,,RUR,Moscow,2021-03-01T10:00:00+0300",
		"Engineer,100,,RUR,Moscow,2022-03-01T10:00:00+0300",
	)

	_, err := runPipeline(t, Options{Profession: "Engineer", Sort: true}, failingNormalizer{year: 2021}, path)
	require.ErrorIs(t, err, errBroken)
	require.ErrorContains(t, err, "partition 2021")

	_, err = runPipeline(t, Options{Profession: "Engineer", Sort: true, Workers: 1}, failingNormalizer{year: 2022, panic: true}, path)
	require.ErrorContains(t, err, "partition 2022")
	require.ErrorContains(t, err, "panic: boom")
}

func TestPipelineCancelled(t *testing.T) {
	path := writeDataset(t, "Engineer,100,,RUR,Moscow,2020-03-01T10:00:00+0300")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := currency.NewNormalizer(currency.NewTable("RUR"), currency.ExcludeMissing)
	_, err := NewPipeline(Options{Profession: "Engineer", Sort: true}, n, nil).Run(ctx, path)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPipelineMissingFile(t *testing.T) {
	_, err := runPipeline(t, Options{Profession: "Engineer"}, nil, filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}
