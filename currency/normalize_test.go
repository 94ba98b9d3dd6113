package currency

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/zalepa/vacstat/vacancy"
)

func salary(from, to *float64, code string) vacancy.Salary {
	s := vacancy.Salary{Currency: code}
	if from != nil {
		s.From = vacancy.Some(*from)
	}
	if to != nil {
		s.To = vacancy.Some(*to)
	}
	return s
}

func f(v float64) *float64 { return &v }

func testTable(t *testing.T) *Table {
	t.Helper()
	tbl := NewTable(DefaultBase)
	require.NoError(t, tbl.Set(Period{2022, 3}, "USD", decimal.RequireFromString("75.5")))
	require.NoError(t, tbl.Set(Period{2022, 3}, "KZT", decimal.RequireFromString("0.16789")))
	return tbl
}

func TestNormalize(t *testing.T) {
	march := civil.Date{Year: 2022, Month: 3, Day: 14}
	n := NewNormalizer(testTable(t), ExcludeMissing)

	tests := []struct {
		name   string
		salary vacancy.Salary
		want   string
	}{
		{"base midpoint", salary(f(100000), f(200000), "RUR"), "150000"},
		{"base from only", salary(f(50000), nil, "RUR"), "25000"},
		{"base to only", salary(nil, f(70000), "RUR"), "35000"},
		{"odd midpoint", salary(f(1), f(2), "RUR"), "1.5"},
		{"converted midpoint", salary(f(1000), f(2000), "USD"), "113250"},
		{"converted single", salary(f(1000), nil, "USD"), "37750"},
		{"rounded to four places", salary(f(2), nil, "KZT"), "0.1679"},
	}
	for _, tt := range tests {
		got, err := n.Normalize(tt.salary, march)
		require.NoError(t, err, tt.name)
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("%s: Normalize = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestNormalizeKeepSingle(t *testing.T) {
	march := civil.Date{Year: 2022, Month: 3, Day: 14}
	n := NewNormalizer(testTable(t), ExcludeMissing)
	n.SingleBound = KeepSingle

	tests := []struct {
		name   string
		salary vacancy.Salary
		want   string
	}{
		{"base midpoint", salary(f(100000), f(200000), "RUR"), "150000"},
		{"base from only", salary(f(50000), nil, "RUR"), "50000"},
		{"base to only", salary(nil, f(70000), "RUR"), "70000"},
		{"converted single", salary(f(1000), nil, "USD"), "75500"},
		{"rounded to four places", salary(f(1), nil, "KZT"), "0.1679"},
	}
	for _, tt := range tests {
		got, err := n.Normalize(tt.salary, march)
		require.NoError(t, err, tt.name)
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("%s: Normalize = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestNormalizeBaseSkipsLookup(t *testing.T) {
	// A nil rate table proves the base currency never needs one.
	n := &Normalizer{Base: "RUR"}
	got, err := n.Normalize(salary(f(10), f(20), "RUR"), civil.Date{Year: 1999, Month: 1, Day: 1})
	require.NoError(t, err)
	require.True(t, got.Equal(decimal.NewFromInt(15)))
}

func TestNormalizeNoSalary(t *testing.T) {
	n := NewNormalizer(testTable(t), ExcludeMissing)
	_, err := n.Normalize(salary(nil, nil, "RUR"), civil.Date{Year: 2022, Month: 3, Day: 1})
	require.ErrorIs(t, err, ErrNoSalary)
}

func TestNormalizeMissingRate(t *testing.T) {
	april := civil.Date{Year: 2022, Month: 4, Day: 1}

	n := NewNormalizer(testTable(t), ExcludeMissing)
	_, err := n.Normalize(salary(f(1000), nil, "USD"), april)
	require.ErrorIs(t, err, ErrUnresolvableRate)
	require.Contains(t, err.Error(), "2022-04")

	_, err = n.Normalize(salary(f(1000), nil, "GEL"), civil.Date{Year: 2022, Month: 3, Day: 1})
	require.ErrorIs(t, err, ErrUnresolvableRate)

	legacy := NewNormalizer(testTable(t), ZeroMissing)
	got, err := legacy.Normalize(salary(f(1000), f(3000), "USD"), april)
	require.NoError(t, err)
	require.True(t, got.IsZero())
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	require.Equal(t, ExcludeMissing, p)

	p, err = ParsePolicy(" Zero ")
	require.NoError(t, err)
	require.Equal(t, ZeroMissing, p)

	_, err = ParsePolicy("guess")
	require.Error(t, err)
}

func TestParseSingleBound(t *testing.T) {
	p, err := ParseSingleBound("")
	require.NoError(t, err)
	require.Equal(t, HalveSingle, p)

	p, err = ParseSingleBound(" Keep ")
	require.NoError(t, err)
	require.Equal(t, KeepSingle, p)

	_, err = ParseSingleBound("average")
	require.Error(t, err)
}
