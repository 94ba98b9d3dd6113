package currency

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

// DefaultDailyURL is the Central Bank of Russia daily quotes endpoint. The
// placeholders are month and year; quotes are taken on the 2nd of each month.
const DefaultDailyURL = "https://www.cbr.ru/scripts/XML_daily.asp?date_req=02/%02d/%d"

// Fetcher downloads monthly quotes and fills a Table.
type Fetcher struct {
	// URL is a format string taking month and year.
	URL     string
	Client  *http.Client
	Limiter *rate.Limiter
	Retries uint64
	Logger  *zap.Logger
}

// NewFetcher returns a Fetcher allowing perSecond requests per second.
func NewFetcher(url string, perSecond float64, retries uint64, logger *zap.Logger) *Fetcher {
	if url == "" {
		url = DefaultDailyURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Fetcher{
		URL:     url,
		Client:  &http.Client{Timeout: 30 * time.Second},
		Limiter: rate.NewLimiter(limit, 1),
		Retries: retries,
		Logger:  logger,
	}
}

type valCurs struct {
	Date    string   `xml:"Date,attr"`
	Valutes []valute `xml:"Valute"`
}

type valute struct {
	CharCode string `xml:"CharCode"`
	Nominal  string `xml:"Nominal"`
	Value    string `xml:"Value"`
}

// ParseDaily decodes a daily quotes document into multipliers per currency
// code (Value / Nominal, rounded to Places).
func ParseDaily(r io.Reader) (map[string]decimal.Decimal, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	var doc valCurs
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode quotes: %w", err)
	}

	out := make(map[string]decimal.Decimal, len(doc.Valutes))
	for _, v := range doc.Valutes {
		value, err := parseCommaDecimal(v.Value)
		if err != nil {
			return nil, fmt.Errorf("%s value: %w", v.CharCode, err)
		}
		nominal, err := parseCommaDecimal(v.Nominal)
		if err != nil {
			return nil, fmt.Errorf("%s nominal: %w", v.CharCode, err)
		}
		if !nominal.IsPositive() {
			return nil, fmt.Errorf("%s nominal: %s is not positive", v.CharCode, nominal)
		}
		out[strings.TrimSpace(v.CharCode)] = value.Div(nominal).Round(Places)
	}
	return out, nil
}

func parseCommaDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	s = strings.ReplaceAll(s, " ", "")
	return decimal.NewFromString(s)
}

// Month fetches the quotes published for p.
func (f *Fetcher) Month(ctx context.Context, p Period) (map[string]decimal.Decimal, error) {
	url := fmt.Sprintf(f.URL, int(p.Month), p.Year)

	var quotes map[string]decimal.Decimal
	op := func() error {
		if err := f.Limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := f.Client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("status %d", resp.StatusCode))
		}

		q, err := ParseDaily(resp.Body)
		if err != nil {
			return backoff.Permanent(err)
		}
		quotes = q
		return nil
	}
	notify := func(err error, wait time.Duration) {
		f.Logger.Warn("retrying quotes request", zap.String("period", p.String()), zap.Duration("wait", wait), zap.Error(err))
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), f.Retries), ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, fmt.Errorf("fetch quotes for %s: %w", p, err)
	}
	return quotes, nil
}

// Fill fetches every month from first to last and stores the quotes for the
// requested codes in t. Codes missing from a month's document are left
// unset. progress, if non-nil, is called once per month.
func (f *Fetcher) Fill(ctx context.Context, t *Table, first, last Period, codes []string, progress func()) error {
	for _, p := range Span(first, last) {
		quotes, err := f.Month(ctx, p)
		if err != nil {
			return err
		}
		var missing []string
		for _, code := range codes {
			if code == t.Base() {
				continue
			}
			v, ok := quotes[code]
			if !ok || !v.IsPositive() {
				missing = append(missing, code)
				continue
			}
			if err := t.Set(p, code, v); err != nil {
				return err
			}
		}
		if len(missing) > 0 {
			f.Logger.Debug("quotes missing currencies", zap.String("period", p.String()), zap.Strings("codes", missing))
		}
		if progress != nil {
			progress()
		}
	}
	return nil
}

// SelectCurrencies returns, sorted, the codes that occur more than minCount
// times.
func SelectCurrencies(counts map[string]int, minCount int) []string {
	var out []string
	for code, n := range counts {
		if code != "" && n > minCount {
			out = append(out, code)
		}
	}
	sort.Strings(out)
	return out
}
