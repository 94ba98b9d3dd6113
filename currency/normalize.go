package currency

import (
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/zalepa/vacstat/vacancy"
)

// Places is the number of decimal places normalized salaries are rounded to.
const Places = 4

var (
	// ErrNoSalary means neither salary bound is present.
	ErrNoSalary = errors.New("no salary bounds")
	// ErrUnresolvableRate means the rate table has no multiplier for the
	// posting's month and currency.
	ErrUnresolvableRate = errors.New("no exchange rate")
)

// MissingRatePolicy decides what happens to a salary whose currency cannot be
// converted.
type MissingRatePolicy string

const (
	// ExcludeMissing reports ErrUnresolvableRate so the posting is left out
	// of both salary sums and counts.
	ExcludeMissing MissingRatePolicy = "exclude"
	// ZeroMissing converts the salary to 0 and keeps the posting. This
	// reproduces the legacy reports, where unknown currencies pulled the
	// averages down.
	ZeroMissing MissingRatePolicy = "zero"
)

// ParsePolicy validates a policy name. The empty string selects ExcludeMissing.
func ParsePolicy(s string) (MissingRatePolicy, error) {
	switch p := MissingRatePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ExcludeMissing, nil
	case ExcludeMissing, ZeroMissing:
		return p, nil
	default:
		return "", fmt.Errorf("unknown missing-rate policy %q (want %s or %s)", s, ExcludeMissing, ZeroMissing)
	}
}

// SingleBoundPolicy decides how a fork with only one bound is converted.
type SingleBoundPolicy string

const (
	// HalveSingle treats the missing bound as 0, so the single bound is
	// halved like the sum of a full fork. This matches the legacy reports.
	HalveSingle SingleBoundPolicy = "halve"
	// KeepSingle uses the single bound as the posting's salary.
	KeepSingle SingleBoundPolicy = "keep"
)

// ParseSingleBound validates a single-bound policy name. The empty string
// selects HalveSingle.
func ParseSingleBound(s string) (SingleBoundPolicy, error) {
	switch p := SingleBoundPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return HalveSingle, nil
	case HalveSingle, KeepSingle:
		return p, nil
	default:
		return "", fmt.Errorf("unknown single-bound policy %q (want %s or %s)", s, HalveSingle, KeepSingle)
	}
}

// RateLookup resolves a monthly multiplier. *Table implements it.
type RateLookup interface {
	Lookup(p Period, code string) (decimal.Decimal, bool)
}

// Normalizer converts salary forks into a single base-currency amount. The
// zero SingleBound halves single bounds.
type Normalizer struct {
	Base        string
	Rates       RateLookup
	Policy      MissingRatePolicy
	SingleBound SingleBoundPolicy
}

// NewNormalizer returns a Normalizer over t using t's base currency.
func NewNormalizer(t *Table, policy MissingRatePolicy) *Normalizer {
	return &Normalizer{Base: t.Base(), Rates: t, Policy: policy}
}

var two = decimal.NewFromInt(2)

// Normalize returns the salary of a posting in the base currency:
// (from + to) * multiplier / 2, with a missing bound counted as 0, for the
// multiplier of the posting's month. Under KeepSingle a lone bound is taken
// whole instead. The result is rounded to Places.
func (n *Normalizer) Normalize(s vacancy.Salary, date civil.Date) (decimal.Decimal, error) {
	if !s.From.Valid && !s.To.Valid {
		return decimal.Zero, ErrNoSalary
	}
	var sum decimal.Decimal
	if s.From.Valid {
		sum = sum.Add(decimal.NewFromFloat(s.From.Value))
	}
	if s.To.Valid {
		sum = sum.Add(decimal.NewFromFloat(s.To.Value))
	}
	if n.SingleBound == KeepSingle && s.From.Valid != s.To.Valid {
		sum = sum.Mul(two)
	}

	multiplier, err := n.multiplier(s.Currency, PeriodOf(date))
	if err != nil {
		return decimal.Zero, err
	}
	return sum.Mul(multiplier).Div(two).Round(Places), nil
}

func (n *Normalizer) multiplier(code string, p Period) (decimal.Decimal, error) {
	base := n.Base
	if base == "" {
		base = DefaultBase
	}
	if code == base {
		return decimal.NewFromInt(1), nil
	}
	if code != "" && n.Rates != nil {
		if m, ok := n.Rates.Lookup(p, code); ok {
			return m, nil
		}
	}
	if n.Policy == ZeroMissing {
		return decimal.Zero, nil
	}
	return decimal.Zero, fmt.Errorf("%w for %q in %s", ErrUnresolvableRate, code, p)
}
